// The vdr command is the operator CLI of the identity registry: every
// registry write and read exposed by the client SDK, with key material
// held in an encrypted keystore, Vault, or an ephemeral in-memory signer.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ruteri/identity-registry-backend/client"
	"github.com/ruteri/identity-registry-backend/cmd/flags"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/signer"
	"github.com/urfave/cli/v2"
)

var keystoreFlag = &cli.StringFlag{
	Name:  "keystore",
	Usage: "directory holding passphrase-encrypted key files",
}
var passFileFlag = &cli.StringFlag{
	Name:  "pass-file",
	Usage: "file holding the keystore passphrase",
}
var keyFlag = &cli.StringFlag{
	Name:  "key",
	Usage: "hex private key for an ephemeral in-memory signer (development only)",
}
var vaultAddrFlag = &cli.StringFlag{
	Name:  "vault-addr",
	Usage: "Vault server address for the Vault-backed signer",
}
var vaultTokenFlag = &cli.StringFlag{
	Name:  "vault-token",
	Usage: "Vault token, falls back to VAULT_TOKEN",
}
var vaultMountFlag = &cli.StringFlag{
	Name:  "vault-mount",
	Value: "secret",
	Usage: "KV v2 mount path holding signing keys",
}
var vaultKeyPathFlag = &cli.StringFlag{
	Name:  "vault-key-path",
	Value: "identity-registry/keys",
	Usage: "path prefix under the mount holding one secret per account",
}
var fromFlag = &cli.StringFlag{
	Name:  "from",
	Usage: "sender account, defaults to the signer's only account",
}

// globalFlags apply to every subcommand.
var globalFlags = []cli.Flag{
	flags.RPCAddrFlag,
	flags.QuorumThresholdFlag,
	flags.ChainIDFlag,
	keystoreFlag,
	passFileFlag,
	keyFlag,
	vaultAddrFlag,
	vaultTokenFlag,
	vaultMountFlag,
	vaultKeyPathFlag,
	fromFlag,
	flags.LogJSONFlag,
	flags.LogDebugFlag,
	flags.LogUIDFlag,
	flags.LogServiceFlag,
}

func main() {
	app := &cli.App{
		Name:  "vdr",
		Usage: "Operate the identity registry ledger",
		Flags: globalFlags,
		Commands: []*cli.Command{
			roleCommand,
			didCommand,
			schemaCommand,
			credDefCommand,
			revocationCommand,
			mappingCommand,
			validatorCommand,
			upgradeCommand,
			endorseCommand,
			accountCommand,
			profileCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newClient dials the configured endpoints.
func newClient(cCtx *cli.Context) (*client.Client, error) {
	return client.New(client.Config{
		ChainID:         cCtx.Uint64(flags.ChainIDFlag.Name),
		Nodes:           cCtx.StringSlice(flags.RPCAddrFlag.Name),
		QuorumThreshold: cCtx.Int(flags.QuorumThresholdFlag.Name),
		Log:             flags.SetupLogger(cCtx),
	})
}

// newSigner picks the key backend from the flags: Vault wins over the
// keystore, which wins over the ephemeral dev signer.
func newSigner(cCtx *cli.Context) (interfaces.TransactionSigner, error) {
	if addr := cCtx.String(vaultAddrFlag.Name); addr != "" {
		return signer.NewVault(signer.VaultConfig{
			Address:   addr,
			Token:     cCtx.String(vaultTokenFlag.Name),
			MountPath: cCtx.String(vaultMountFlag.Name),
			KeyPath:   cCtx.String(vaultKeyPathFlag.Name),
		})
	}
	if dir := cCtx.String(keystoreFlag.Name); dir != "" {
		passphrase, err := readPassphrase(cCtx)
		if err != nil {
			return nil, err
		}
		return signer.NewKeystore(dir, passphrase)
	}
	if hexKey := cCtx.String(keyFlag.Name); hexKey != "" {
		keys := signer.NewBasic()
		if _, err := keys.ImportHex(hexKey); err != nil {
			return nil, fmt.Errorf("importing key: %w", err)
		}
		return keys, nil
	}
	return nil, fmt.Errorf("no signer configured: set --keystore, --vault-addr or --key")
}

func readPassphrase(cCtx *cli.Context) ([]byte, error) {
	passFile := cCtx.String(passFileFlag.Name)
	if passFile == "" {
		return nil, fmt.Errorf("--pass-file is required with --keystore")
	}
	passphrase, err := os.ReadFile(passFile)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	return bytes.TrimSpace(passphrase), nil
}

// fromAccount resolves the sender: the --from flag, or the signer's only
// account.
func fromAccount(cCtx *cli.Context, keys interfaces.TransactionSigner) (interfaces.Account, error) {
	if from := cCtx.String(fromFlag.Name); from != "" {
		return interfaces.AccountFromHex(from)
	}
	accounts := keys.Accounts()
	if len(accounts) != 1 {
		return interfaces.Account{}, fmt.Errorf("signer holds %d accounts, pick one with --from", len(accounts))
	}
	return accounts[0], nil
}

// clientAndSigner is the common setup of every write command.
func clientAndSigner(cCtx *cli.Context) (*client.Client, interfaces.TransactionSigner, interfaces.Account, error) {
	c, err := newClient(cCtx)
	if err != nil {
		return nil, nil, interfaces.Account{}, err
	}
	keys, err := newSigner(cCtx)
	if err != nil {
		return nil, nil, interfaces.Account{}, err
	}
	from, err := fromAccount(cCtx, keys)
	if err != nil {
		return nil, nil, interfaces.Account{}, err
	}
	return c, keys, from, nil
}

// hexBytes decodes hex input with or without the 0x prefix.
func hexBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

// printJSON renders command output for both humans and scripts.
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
