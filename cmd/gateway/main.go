// The gateway command runs the resolver gateway: a read-only HTTP facade
// over quorum-verified ledger reads. The target network comes either from
// explicit --rpc-addr endpoints or from a network profile artifact.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/identity-registry-backend/client"
	"github.com/ruteri/identity-registry-backend/cmd/flags"
	"github.com/ruteri/identity-registry-backend/httpserver"
	"github.com/ruteri/identity-registry-backend/specstore"
	"github.com/urfave/cli/v2"
)

var gatewayFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for the resolution API",
	},
	&cli.StringFlag{
		Name:  "profile-store",
		Usage: "artifact store URI holding the network profile (file://, s3://, ipfs://, vault://, github://)",
	},
	&cli.StringFlag{
		Name:  "profile-id",
		Usage: "hex artifact id of the network profile, requires profile-store",
	},
	&cli.StringFlag{
		Name:  "dns-server",
		Usage: "DNS server for srv+ node discovery, host:port, empty for the system resolver",
	},
	flags.RPCAddrFlag,
	flags.QuorumThresholdFlag,
	flags.ChainIDFlag,
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:  "identity-registry-gateway",
		Usage: "Serve DID and AnonCreds resolution over the identity registry ledger",
		Flags: gatewayFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			ledgerClient, err := buildClient(cCtx, logger)
			if err != nil {
				return err
			}

			server, err := httpserver.NewServer(&httpserver.ServerConfig{
				ListenAddr:               cCtx.String("listen-addr"),
				MetricsAddr:              cCtx.String(flags.MetricsAddrFlag.Name),
				EnablePprof:              cCtx.Bool(flags.PprofFlag.Name),
				Log:                      logger,
				DrainDuration:            time.Duration(cCtx.Int64(flags.DrainSecondsFlag.Name)) * time.Second,
				GracefulShutdownDuration: 30 * time.Second,
				ReadTimeout:              60 * time.Second,
				WriteTimeout:             30 * time.Second,
			}, httpserver.NewHandler(ledgerClient, logger))
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

// buildClient constructs the ledger client from a profile artifact when
// configured, and from the explicit endpoint flags otherwise. srv+ node
// pseudo-URLs expand through DNS SRV discovery in both cases.
func buildClient(cCtx *cli.Context, logger *slog.Logger) (*client.Client, error) {
	ctx := context.Background()

	if storeURI := cCtx.String("profile-store"); storeURI != "" {
		profile, err := fetchProfile(ctx, storeURI, cCtx.String("profile-id"), logger)
		if err != nil {
			return nil, err
		}
		profile.Nodes, err = expandNodes(ctx, cCtx.String("dns-server"), profile.Nodes)
		if err != nil {
			return nil, err
		}
		logger.Info("Using network profile", "name", profile.Name, "chainId", profile.ChainID, "nodes", len(profile.Nodes))
		return client.NewFromProfile(profile, logger)
	}

	nodes, err := expandNodes(ctx, cCtx.String("dns-server"), cCtx.StringSlice(flags.RPCAddrFlag.Name))
	if err != nil {
		return nil, err
	}
	return client.New(client.Config{
		ChainID:         cCtx.Uint64(flags.ChainIDFlag.Name),
		Nodes:           nodes,
		QuorumThreshold: cCtx.Int(flags.QuorumThresholdFlag.Name),
		Log:             logger,
	})
}

func fetchProfile(ctx context.Context, storeURI, idHex string, logger *slog.Logger) (*specstore.NetworkProfile, error) {
	if idHex == "" {
		return nil, fmt.Errorf("profile-id is required with profile-store")
	}
	raw, err := hex.DecodeString(idHex)
	if err != nil || len(raw) != len(specstore.ArtifactID{}) {
		return nil, fmt.Errorf("profile-id must be a 32-byte hex string")
	}
	var id specstore.ArtifactID
	copy(id[:], raw)

	backend, err := specstore.NewFactory(logger).BackendFor(storeURI)
	if err != nil {
		return nil, fmt.Errorf("profile store: %w", err)
	}
	data, err := backend.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching network profile: %w", err)
	}
	return specstore.ParseNetworkProfile(data)
}

func expandNodes(ctx context.Context, dnsServer string, nodes []string) ([]string, error) {
	needsExpansion := false
	for _, node := range nodes {
		if client.IsSRVNode(node) {
			needsExpansion = true
			break
		}
	}
	if !needsExpansion {
		return nodes, nil
	}

	discovery, err := client.NewDiscovery(dnsServer)
	if err != nil {
		return nil, fmt.Errorf("node discovery: %w", err)
	}
	return discovery.Expand(ctx, nodes)
}
