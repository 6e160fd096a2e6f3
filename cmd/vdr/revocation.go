package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/client"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/urfave/cli/v2"
)

var revRegIDFlag = &cli.StringFlag{
	Name:     "id",
	Required: true,
	Usage:    "revocation registry definition id, hex or canonical string",
}

var revocationCommand = &cli.Command{
	Name:  "revocation",
	Usage: "Manage revocation registries",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "Store a revocation registry definition, sent by its issuer",
			Flags: []cli.Flag{&cli.StringFlag{Name: "payload", Required: true, Usage: "definition JSON file"}},
			Action: func(cCtx *cli.Context) error {
				c, keys, _, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				payload, err := os.ReadFile(cCtx.String("payload"))
				if err != nil {
					return err
				}
				id, receipt, err := c.CreateRevocationRegistryDefinition(context.Background(), keys, payload)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash, "id": id})
			},
		},
		{
			Name:  "entry",
			Usage: "Publish an accumulator state transition",
			Flags: []cli.Flag{
				revRegIDFlag,
				&cli.StringFlag{Name: "issuer", Required: true, Usage: "issuer DID"},
				&cli.StringFlag{Name: "payload", Required: true, Usage: "entry JSON file"},
			},
			Action: func(cCtx *cli.Context) error {
				c, keys, _, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				id, err := parseResourceID(cCtx.String("id"))
				if err != nil {
					return err
				}
				issuerDid := cCtx.String("issuer")
				identity, err := interfaces.DidAccount(issuerDid)
				if err != nil {
					return err
				}
				raw, err := os.ReadFile(cCtx.String("payload"))
				if err != nil {
					return err
				}
				var entry interfaces.RevocationRegistryEntry
				if err := json.Unmarshal(raw, &entry); err != nil {
					return fmt.Errorf("parsing entry: %w", err)
				}
				receipt, err := c.CreateRevocationRegistryEntry(context.Background(), keys, identity, id, issuerDid, entry)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash})
			},
		},
		revocationStatusSubcommand("suspend", "Suspend a revocation registry"),
		revocationStatusSubcommand("reactivate", "Reactivate a suspended revocation registry"),
		revocationStatusSubcommand("revoke", "Terminally revoke a revocation registry"),
		{
			Name:  "resolve",
			Usage: "Resolve a revocation registry definition",
			Flags: []cli.Flag{revRegIDFlag},
			Action: func(cCtx *cli.Context) error {
				c, err := newClient(cCtx)
				if err != nil {
					return err
				}
				id, err := parseResourceID(cCtx.String("id"))
				if err != nil {
					return err
				}
				record, err := c.ResolveRevocationRegistryDefinition(context.Background(), id)
				if err != nil {
					return err
				}
				return printJSON(record)
			},
		},
		{
			Name:  "status",
			Usage: "Reconstruct the status list from the entry event log",
			Flags: []cli.Flag{revRegIDFlag},
			Action: func(cCtx *cli.Context) error {
				c, err := newClient(cCtx)
				if err != nil {
					return err
				}
				id, err := parseResourceID(cCtx.String("id"))
				if err != nil {
					return err
				}
				ctx := context.Background()

				record, err := c.ResolveRevocationRegistryDefinition(ctx, id)
				if err != nil {
					return err
				}
				def, err := interfaces.ParseRevocationRegistryDefinition(record.RevRegDef)
				if err != nil {
					return err
				}
				delta, err := c.FetchRevocationDelta(ctx, id, 0)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{
					"accum":      delta.Accum,
					"issued":     delta.Issued,
					"revoked":    delta.Revoked,
					"timestamp":  delta.Timestamp,
					"statusList": client.BuildStatusList(delta, def.Value.MaxCredNum),
				})
			},
		},
	},
}

// revocationStatusSubcommand builds the suspend/reactivate/revoke
// lifecycle commands, which share their shape.
func revocationStatusSubcommand(name, usage string) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{revRegIDFlag},
		Action: func(cCtx *cli.Context) error {
			c, keys, from, err := clientAndSigner(cCtx)
			if err != nil {
				return err
			}
			id, err := parseResourceID(cCtx.String("id"))
			if err != nil {
				return err
			}
			ctx := context.Background()

			var receipt *types.Receipt
			switch name {
			case "suspend":
				receipt, err = c.SuspendRevocationRegistry(ctx, keys, from, id)
			case "reactivate":
				receipt, err = c.ReactivateRevocationRegistry(ctx, keys, from, id)
			case "revoke":
				receipt, err = c.RevokeRevocationRegistry(ctx, keys, from, id)
			}
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"txHash": receipt.TxHash})
		},
	}
}

var mappingCommand = &cli.Command{
	Name:  "mapping",
	Usage: "Manage legacy identifier mappings",
	Subcommands: []*cli.Command{
		{
			Name:  "did",
			Usage: "Map a legacy DID identifier to its new DID",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "legacy-id", Required: true, Usage: "base58 legacy identifier"},
				&cli.StringFlag{Name: "did", Required: true, Usage: "new DID"},
				&cli.StringFlag{Name: "ed25519-key", Required: true, Usage: "hex legacy ed25519 public key"},
				&cli.StringFlag{Name: "ed25519-sig", Required: true, Usage: "hex ed25519 signature over the new DID"},
			},
			Action: func(cCtx *cli.Context) error {
				c, keys, _, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				newDid := cCtx.String("did")
				identity, err := interfaces.DidAccount(newDid)
				if err != nil {
					return err
				}
				ed25519Key, err := hexBytes(cCtx.String("ed25519-key"))
				if err != nil {
					return err
				}
				ed25519Sig, err := hexBytes(cCtx.String("ed25519-sig"))
				if err != nil {
					return err
				}
				receipt, err := c.CreateDidMapping(context.Background(), keys, identity,
					cCtx.String("legacy-id"), newDid, ed25519Key, ed25519Sig)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash})
			},
		},
		{
			Name:  "resource",
			Usage: "Map a legacy resource identifier to its new identifier",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "legacy-issuer", Required: true, Usage: "base58 legacy issuer identifier"},
				&cli.StringFlag{Name: "legacy-id", Required: true},
				&cli.StringFlag{Name: "new-id", Required: true},
			},
			Action: func(cCtx *cli.Context) error {
				c, keys, from, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				receipt, err := c.CreateResourceMapping(context.Background(), keys, from,
					cCtx.String("legacy-issuer"), cCtx.String("legacy-id"), cCtx.String("new-id"))
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash})
			},
		},
		{
			Name:  "get",
			Usage: "Look up a legacy identifier mapping",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "legacy-id", Required: true},
				&cli.BoolFlag{Name: "resource", Usage: "look up a resource mapping instead of a DID mapping"},
			},
			Action: func(cCtx *cli.Context) error {
				c, err := newClient(cCtx)
				if err != nil {
					return err
				}
				legacyID := cCtx.String("legacy-id")
				var mapped string
				if cCtx.Bool("resource") {
					mapped, err = c.GetResourceMapping(context.Background(), legacyID)
				} else {
					mapped, err = c.GetDidMapping(context.Background(), legacyID)
				}
				if err != nil {
					return err
				}
				return printJSON(map[string]string{"legacyId": legacyID, "mappedTo": mapped})
			},
		},
	},
}
