// The node command runs the development ledger: an in-process identity
// registry behind an eth-namespace JSON-RPC endpoint.
package main

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/identity-registry-backend/cmd/flags"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/node"
	"github.com/ruteri/identity-registry-backend/registry"
	"github.com/ruteri/identity-registry-backend/state"
	"github.com/urfave/cli/v2"
)

var nodeFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8545",
		Usage: "address to listen on for JSON-RPC",
	},
	&cli.StringFlag{
		Name:  "state-path",
		Value: "",
		Usage: "bbolt database file for ledger state, empty for in-memory",
	},
	&cli.StringSliceFlag{
		Name:  "genesis-trustee",
		Usage: "account granted the trustee role at genesis, repeatable",
	},
	&cli.StringSliceFlag{
		Name:  "genesis-validator",
		Usage: "account added to the validator set at genesis, repeatable",
	},
	flags.ChainIDFlag,
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:  "identity-registry-node",
		Usage: "Run the development identity registry ledger",
		Flags: nodeFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			trustees, err := parseAccounts(cCtx.StringSlice("genesis-trustee"))
			if err != nil {
				return fmt.Errorf("genesis-trustee: %w", err)
			}
			if len(trustees) == 0 {
				return fmt.Errorf("at least one genesis-trustee is required")
			}
			validators, err := parseAccounts(cCtx.StringSlice("genesis-validator"))
			if err != nil {
				return fmt.Errorf("genesis-validator: %w", err)
			}

			var store interfaces.StateStore
			if path := cCtx.String("state-path"); path != "" {
				logger.Info("Opening ledger state", "path", path)
				boltStore, err := state.NewBoltStore(path)
				if err != nil {
					return fmt.Errorf("opening state store: %w", err)
				}
				defer boltStore.Close()
				store = boltStore
			} else {
				logger.Info("Running with in-memory ledger state")
				store = state.NewMemoryStore()
			}

			ledger, err := node.NewLedger(store, node.Config{
				ChainID: new(big.Int).SetUint64(cCtx.Uint64(flags.ChainIDFlag.Name)),
				Genesis: registry.Genesis{
					Trustees:   trustees,
					Validators: validators,
				},
				Log: logger,
			})
			if err != nil {
				return fmt.Errorf("initializing ledger: %w", err)
			}

			server, err := node.NewServer(&node.ServerConfig{
				ListenAddr:               cCtx.String("listen-addr"),
				MetricsAddr:              cCtx.String(flags.MetricsAddrFlag.Name),
				EnablePprof:              cCtx.Bool(flags.PprofFlag.Name),
				Log:                      logger,
				DrainDuration:            time.Duration(cCtx.Int64(flags.DrainSecondsFlag.Name)) * time.Second,
				GracefulShutdownDuration: 30 * time.Second,
				ReadTimeout:              60 * time.Second,
				WriteTimeout:             30 * time.Second,
			}, ledger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func parseAccounts(raw []string) ([]interfaces.Account, error) {
	accounts := make([]interfaces.Account, 0, len(raw))
	for _, s := range raw {
		account, err := interfaces.AccountFromHex(s)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}
