package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/urfave/cli/v2"
)

var roleCommand = &cli.Command{
	Name:  "role",
	Usage: "Manage on-ledger roles",
	Subcommands: []*cli.Command{
		{
			Name:  "assign",
			Usage: "Grant a role to an account (trustee only)",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "role", Required: true, Usage: "trustee, endorser or steward"},
				&cli.StringFlag{Name: "account", Required: true},
			},
			Action: func(cCtx *cli.Context) error {
				c, keys, from, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				role, err := interfaces.RoleFromString(cCtx.String("role"))
				if err != nil {
					return err
				}
				account, err := interfaces.AccountFromHex(cCtx.String("account"))
				if err != nil {
					return err
				}
				receipt, err := c.AssignRole(context.Background(), keys, from, role, account)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash, "role": role.String(), "account": account})
			},
		},
		{
			Name:  "revoke",
			Usage: "Remove a role from an account (trustee only)",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "role", Required: true},
				&cli.StringFlag{Name: "account", Required: true},
			},
			Action: func(cCtx *cli.Context) error {
				c, keys, from, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				role, err := interfaces.RoleFromString(cCtx.String("role"))
				if err != nil {
					return err
				}
				account, err := interfaces.AccountFromHex(cCtx.String("account"))
				if err != nil {
					return err
				}
				receipt, err := c.RevokeRole(context.Background(), keys, from, role, account)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash})
			},
		},
		{
			Name:  "get",
			Usage: "Show the role of an account",
			Flags: []cli.Flag{&cli.StringFlag{Name: "account", Required: true}},
			Action: func(cCtx *cli.Context) error {
				c, err := newClient(cCtx)
				if err != nil {
					return err
				}
				account, err := interfaces.AccountFromHex(cCtx.String("account"))
				if err != nil {
					return err
				}
				role, err := c.GetRole(context.Background(), account)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"account": account, "role": role.String()})
			},
		},
	},
}

var didCommand = &cli.Command{
	Name:  "did",
	Usage: "Manage DID documents",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "Store a DID document, sent by the identity it describes",
			Flags: []cli.Flag{&cli.StringFlag{Name: "document", Required: true, Usage: "DID document JSON file"}},
			Action: func(cCtx *cli.Context) error {
				c, keys, _, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				doc, identity, err := loadDidDocument(cCtx.String("document"))
				if err != nil {
					return err
				}
				receipt, err := c.CreateDid(context.Background(), keys, identity, doc)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash, "identity": identity})
			},
		},
		{
			Name:  "update",
			Usage: "Replace the stored DID document",
			Flags: []cli.Flag{&cli.StringFlag{Name: "document", Required: true}},
			Action: func(cCtx *cli.Context) error {
				c, keys, _, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				doc, identity, err := loadDidDocument(cCtx.String("document"))
				if err != nil {
					return err
				}
				receipt, err := c.UpdateDid(context.Background(), keys, identity, doc)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash})
			},
		},
		{
			Name:  "deactivate",
			Usage: "Terminally deactivate a DID",
			Flags: []cli.Flag{&cli.StringFlag{Name: "did", Required: true}},
			Action: func(cCtx *cli.Context) error {
				c, keys, _, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				identity, err := interfaces.DidAccount(cCtx.String("did"))
				if err != nil {
					return err
				}
				receipt, err := c.DeactivateDid(context.Background(), keys, identity)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash})
			},
		},
		{
			Name:  "resolve",
			Usage: "Resolve a DID to its stored record",
			Flags: []cli.Flag{&cli.StringFlag{Name: "did", Required: true}},
			Action: func(cCtx *cli.Context) error {
				c, err := newClient(cCtx)
				if err != nil {
					return err
				}
				record, err := c.ResolveDid(context.Background(), cCtx.String("did"))
				if err != nil {
					return err
				}
				return printJSON(record)
			},
		},
	},
}

var schemaCommand = &cli.Command{
	Name:  "schema",
	Usage: "Manage credential schemas",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "Store a credential schema, sent by its issuer",
			Flags: []cli.Flag{&cli.StringFlag{Name: "payload", Required: true, Usage: "schema JSON file"}},
			Action: func(cCtx *cli.Context) error {
				c, keys, _, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				payload, err := os.ReadFile(cCtx.String("payload"))
				if err != nil {
					return err
				}
				id, receipt, err := c.CreateSchema(context.Background(), keys, payload)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash, "id": id})
			},
		},
		{
			Name:  "resolve",
			Usage: "Resolve a schema by hex id or canonical id string",
			Flags: []cli.Flag{&cli.StringFlag{Name: "id", Required: true}},
			Action: func(cCtx *cli.Context) error {
				c, err := newClient(cCtx)
				if err != nil {
					return err
				}
				id, err := parseResourceID(cCtx.String("id"))
				if err != nil {
					return err
				}
				record, err := c.ResolveSchema(context.Background(), id)
				if err != nil {
					return err
				}
				return printJSON(record)
			},
		},
	},
}

var credDefCommand = &cli.Command{
	Name:  "creddef",
	Usage: "Manage credential definitions",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "Store a credential definition, sent by its issuer",
			Flags: []cli.Flag{&cli.StringFlag{Name: "payload", Required: true, Usage: "credential definition JSON file"}},
			Action: func(cCtx *cli.Context) error {
				c, keys, _, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				payload, err := os.ReadFile(cCtx.String("payload"))
				if err != nil {
					return err
				}
				id, receipt, err := c.CreateCredentialDefinition(context.Background(), keys, payload)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash, "id": id})
			},
		},
		{
			Name:  "resolve",
			Usage: "Resolve a credential definition by hex id or canonical id string",
			Flags: []cli.Flag{&cli.StringFlag{Name: "id", Required: true}},
			Action: func(cCtx *cli.Context) error {
				c, err := newClient(cCtx)
				if err != nil {
					return err
				}
				id, err := parseResourceID(cCtx.String("id"))
				if err != nil {
					return err
				}
				record, err := c.ResolveCredentialDefinition(context.Background(), id)
				if err != nil {
					return err
				}
				return printJSON(record)
			},
		},
	},
}

var validatorCommand = &cli.Command{
	Name:  "validator",
	Usage: "Manage the validator set",
	Subcommands: []*cli.Command{
		{
			Name:  "add",
			Usage: "Add a node to the validator set (trustee only)",
			Flags: []cli.Flag{&cli.StringFlag{Name: "validator", Required: true}},
			Action: func(cCtx *cli.Context) error {
				c, keys, from, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				validator, err := interfaces.AccountFromHex(cCtx.String("validator"))
				if err != nil {
					return err
				}
				receipt, err := c.AddValidator(context.Background(), keys, from, validator)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash})
			},
		},
		{
			Name:  "remove",
			Usage: "Remove a node from the validator set (trustee only)",
			Flags: []cli.Flag{&cli.StringFlag{Name: "validator", Required: true}},
			Action: func(cCtx *cli.Context) error {
				c, keys, from, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				validator, err := interfaces.AccountFromHex(cCtx.String("validator"))
				if err != nil {
					return err
				}
				receipt, err := c.RemoveValidator(context.Background(), keys, from, validator)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash})
			},
		},
		{
			Name:  "list",
			Usage: "Show the current validator set",
			Action: func(cCtx *cli.Context) error {
				c, err := newClient(cCtx)
				if err != nil {
					return err
				}
				validators, err := c.GetValidators(context.Background())
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"validators": validators})
			},
		},
	},
}

var upgradeCommand = &cli.Command{
	Name:  "upgrade",
	Usage: "Manage contract implementation upgrades",
	Subcommands: []*cli.Command{
		{
			Name:  "propose",
			Usage: "Propose a new implementation for a proxy (trustee only)",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "proxy", Required: true},
				&cli.StringFlag{Name: "implementation", Required: true},
			},
			Action: func(cCtx *cli.Context) error {
				c, keys, from, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				proxy, implementation, err := upgradePair(cCtx)
				if err != nil {
					return err
				}
				receipt, err := c.ProposeUpgrade(context.Background(), keys, from, proxy, implementation)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash})
			},
		},
		{
			Name:  "approve",
			Usage: "Approve a pending upgrade proposal (trustee only)",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "proxy", Required: true},
				&cli.StringFlag{Name: "implementation", Required: true},
			},
			Action: func(cCtx *cli.Context) error {
				c, keys, from, err := clientAndSigner(cCtx)
				if err != nil {
					return err
				}
				proxy, implementation, err := upgradePair(cCtx)
				if err != nil {
					return err
				}
				receipt, err := c.ApproveUpgrade(context.Background(), keys, from, proxy, implementation)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"txHash": receipt.TxHash})
			},
		},
		{
			Name:  "check",
			Usage: "Show a proposal and whether it reached its approval threshold",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "proxy", Required: true},
				&cli.StringFlag{Name: "implementation", Required: true},
			},
			Action: func(cCtx *cli.Context) error {
				c, err := newClient(cCtx)
				if err != nil {
					return err
				}
				proxy, implementation, err := upgradePair(cCtx)
				if err != nil {
					return err
				}
				proposal, err := c.GetUpgradeProposal(context.Background(), proxy, implementation)
				if err != nil {
					return err
				}
				sufficient := c.CheckSufficientApprovals(context.Background(), proxy, implementation) == nil
				return printJSON(map[string]any{"proposal": proposal, "sufficientApprovals": sufficient})
			},
		},
	},
}

func upgradePair(cCtx *cli.Context) (interfaces.Account, interfaces.Account, error) {
	proxy, err := interfaces.AccountFromHex(cCtx.String("proxy"))
	if err != nil {
		return interfaces.Account{}, interfaces.Account{}, err
	}
	implementation, err := interfaces.AccountFromHex(cCtx.String("implementation"))
	if err != nil {
		return interfaces.Account{}, interfaces.Account{}, err
	}
	return proxy, implementation, nil
}

// loadDidDocument reads a document file and derives the identity account
// from its id.
func loadDidDocument(path string) ([]byte, interfaces.Account, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, interfaces.Account{}, err
	}
	parsed, err := interfaces.ParseDIDDocument(doc)
	if err != nil {
		return nil, interfaces.Account{}, fmt.Errorf("parsing document: %w", err)
	}
	identity, err := parsed.IdentityAccount()
	if err != nil {
		return nil, interfaces.Account{}, err
	}
	return doc, identity, nil
}

// parseResourceID accepts a 32-byte hex id or a canonical identifier
// string, re-deriving the keccak id for the latter.
func parseResourceID(raw string) (interfaces.ResourceID, error) {
	if strings.HasPrefix(raw, "0x") {
		if len(raw) != 2+2*common.HashLength {
			return interfaces.ResourceID{}, fmt.Errorf("hex resource id must be 32 bytes")
		}
		return common.HexToHash(raw), nil
	}
	if raw == "" {
		return interfaces.ResourceID{}, fmt.Errorf("empty resource id")
	}
	return interfaces.ResourceIDHash(raw), nil
}
