package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/ruteri/identity-registry-backend/cmd/flags"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/specstore"
	"github.com/urfave/cli/v2"
)

// endorseCommand runs the two halves of the endorsement flow: the
// identity owner prepares and signs the endorsement offline, and any
// funded account submits it.
var endorseCommand = &cli.Command{
	Name:  "endorse",
	Usage: "Prepare and submit endorsed DID writes",
	Subcommands: []*cli.Command{
		{
			Name:  "prepare",
			Usage: "Build and sign the endorsement for a createDid, printed for the submitter",
			Flags: []cli.Flag{&cli.StringFlag{Name: "document", Required: true, Usage: "DID document JSON file"}},
			Action: func(cCtx *cli.Context) error {
				c, err := newClient(cCtx)
				if err != nil {
					return err
				}
				keys, err := newSigner(cCtx)
				if err != nil {
					return err
				}
				doc, identity, err := loadDidDocument(cCtx.String("document"))
				if err != nil {
					return err
				}
				endorsement, err := c.PrepareCreateDidEndorsement(identity, doc)
				if err != nil {
					return err
				}
				sig, err := endorsement.Sign(keys, identity)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{
					"identity":     identity,
					"signingInput": hex.EncodeToString(endorsement.SigningInput),
					"digest":       hex.EncodeToString(endorsement.Digest[:]),
					"signature":    hex.EncodeToString(sig.Raw()),
				})
			},
		},
		{
			Name:  "submit",
			Usage: "Submit a createDid endorsed by the identity owner",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "document", Required: true, Usage: "DID document JSON file"},
				&cli.StringFlag{Name: "signature", Required: true, Usage: "hex endorsement signature from 'endorse prepare'"},
			},
			Action: func(cCtx *cli.Context) error {
				c, keys, from, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				doc, identity, err := loadDidDocument(cCtx.String("document"))
				if err != nil {
					return err
				}
				raw, err := hexBytes(cCtx.String("signature"))
				if err != nil {
					return fmt.Errorf("decoding signature: %w", err)
				}
				sig, err := interfaces.NewSignatureData(raw)
				if err != nil {
					return err
				}
				receipt, err := c.SubmitCreateDidSigned(context.Background(), keys, from, identity, sig, doc)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash, "identity": identity})
			},
		},
	},
}

var accountCommand = &cli.Command{
	Name:  "account",
	Usage: "Manage signing accounts",
	Subcommands: []*cli.Command{
		{
			Name:  "new",
			Usage: "Generate a key in the keystore and print its account",
			Action: func(cCtx *cli.Context) error {
				keys, err := newKeyWriter(cCtx)
				if err != nil {
					return err
				}
				account, err := keys.Generate()
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"account": account})
			},
		},
		{
			Name:  "import",
			Usage: "Import a hex private key into the keystore",
			Flags: []cli.Flag{&cli.StringFlag{Name: "key", Required: true, Usage: "hex private key"}},
			Action: func(cCtx *cli.Context) error {
				keys, err := newKeyWriter(cCtx)
				if err != nil {
					return err
				}
				account, err := keys.ImportHex(cCtx.String("key"))
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"account": account})
			},
		},
		{
			Name:  "list",
			Usage: "List the accounts the signer holds keys for",
			Action: func(cCtx *cli.Context) error {
				keys, err := newSigner(cCtx)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"accounts": keys.Accounts()})
			},
		},
	},
}

// keyWriter is the key-generating surface of the file-backed signers.
// The Vault signer manages key material through its own Store flow.
type keyWriter interface {
	Generate() (interfaces.Account, error)
	ImportHex(hexKey string) (interfaces.Account, error)
}

func newKeyWriter(cCtx *cli.Context) (keyWriter, error) {
	if cCtx.String(vaultAddrFlag.Name) != "" {
		return nil, fmt.Errorf("account new/import manage keystore keys; use Vault tooling for Vault-held keys")
	}
	keys, err := newSigner(cCtx)
	if err != nil {
		return nil, err
	}
	writer, ok := keys.(keyWriter)
	if !ok {
		return nil, fmt.Errorf("configured signer cannot create keys")
	}
	return writer, nil
}

var profileCommand = &cli.Command{
	Name:  "profile",
	Usage: "Work with network profile artifacts",
	Subcommands: []*cli.Command{
		{
			Name:  "fetch",
			Usage: "Fetch and print a network profile from an artifact store",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "store", Required: true, Usage: "artifact store URI"},
				&cli.StringFlag{Name: "id", Required: true, Usage: "hex artifact id"},
			},
			Action: func(cCtx *cli.Context) error {
				logger := flags.SetupLogger(cCtx)

				raw, err := hexBytes(cCtx.String("id"))
				if err != nil || len(raw) != len(specstore.ArtifactID{}) {
					return fmt.Errorf("id must be a 32-byte hex string")
				}
				var id specstore.ArtifactID
				copy(id[:], raw)

				backend, err := specstore.NewFactory(logger).BackendFor(cCtx.String("store"))
				if err != nil {
					return err
				}
				data, err := backend.Fetch(context.Background(), id)
				if err != nil {
					return err
				}
				profile, err := specstore.ParseNetworkProfile(data)
				if err != nil {
					return err
				}
				return printJSON(profile)
			},
		},
	},
}
