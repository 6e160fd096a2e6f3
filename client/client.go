// Package client is the ledger SDK: transaction building and submission,
// endorsed (meta-transaction) writes, quorum-verified reads across
// multiple nodes, and typed per-registry operation helpers. It runs
// against any interfaces.LedgerBackend, so the same code talks to a
// remote node over JSON-RPC and to an in-process development ledger.
package client

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ruteri/identity-registry-backend/contracts"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/registry"
	"github.com/ruteri/identity-registry-backend/specstore"
)

// DefaultChainID is the development ledger chain id, used when the config
// does not name one.
const DefaultChainID uint64 = 1337

// DefaultGasLimit is the fixed gas limit of built transactions. The
// permissioned network runs with gas price zero, so the limit only bounds
// execution.
const DefaultGasLimit uint64 = 8_000_000

// Defaults of the quorum read policy.
const (
	DefaultCallTimeout   = 2000 * time.Millisecond
	DefaultCallRetries   = 4
	DefaultRetryInterval = 500 * time.Millisecond
)

// DefaultQuorumThreshold is the number of byte-identical responses a read
// needs before it is trusted, for n configured endpoints.
func DefaultQuorumThreshold(n int) int {
	return n/3 + 1
}

// Config configures a Client. Either Backends or Nodes must be set;
// everything else has working defaults for the development network.
type Config struct {
	// ChainID of the target network. Defaults to DefaultChainID.
	ChainID uint64

	// Nodes are JSON-RPC endpoint URLs, dialed during construction.
	Nodes []string

	// Backends are pre-built ledger backends, used instead of dialing
	// Nodes. Tests inject the in-process node backend here.
	Backends []interfaces.LedgerBackend

	// QuorumThreshold overrides DefaultQuorumThreshold(len(backends)).
	QuorumThreshold int

	// Addresses overrides the default contract address table.
	Addresses *registry.Addresses

	// GasLimit overrides DefaultGasLimit.
	GasLimit uint64

	CallTimeout   time.Duration
	CallRetries   int
	RetryInterval time.Duration

	Log *slog.Logger
}

// Client is a ledger SDK instance bound to one network.
type Client struct {
	chainID       *big.Int
	set           *contracts.Set
	backends      []interfaces.LedgerBackend
	threshold     int
	gasLimit      uint64
	callTimeout   time.Duration
	callRetries   int
	retryInterval time.Duration
	log           *slog.Logger
}

// New builds a client from the config, dialing any configured node URLs.
func New(cfg Config) (*Client, error) {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	set := contracts.Default()
	if cfg.Addresses != nil {
		var err error
		set, err = contracts.New(*cfg.Addresses)
		if err != nil {
			return nil, fmt.Errorf("binding contract set: %w", err)
		}
	}

	backends := cfg.Backends
	for _, url := range cfg.Nodes {
		backend, err := DialBackend(url, set)
		if err != nil {
			return nil, fmt.Errorf("dialing node %s: %w", url, err)
		}
		backends = append(backends, backend)
	}
	if len(backends) == 0 {
		return nil, errors.New("no ledger backends configured")
	}

	threshold := cfg.QuorumThreshold
	if threshold == 0 {
		threshold = DefaultQuorumThreshold(len(backends))
	}
	if threshold < 1 || threshold > len(backends) {
		return nil, fmt.Errorf("quorum threshold %d out of range for %d backends", threshold, len(backends))
	}

	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = DefaultChainID
	}
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}
	callTimeout := cfg.CallTimeout
	if callTimeout == 0 {
		callTimeout = DefaultCallTimeout
	}
	callRetries := cfg.CallRetries
	if callRetries == 0 {
		callRetries = DefaultCallRetries
	}
	retryInterval := cfg.RetryInterval
	if retryInterval == 0 {
		retryInterval = DefaultRetryInterval
	}

	return &Client{
		chainID:       new(big.Int).SetUint64(chainID),
		set:           set,
		backends:      backends,
		threshold:     threshold,
		gasLimit:      gasLimit,
		callTimeout:   callTimeout,
		callRetries:   callRetries,
		retryInterval: retryInterval,
		log:           log,
	}, nil
}

// NewFromProfile builds a client from a network profile artifact. Profile
// contract addresses override the defaults; contracts the profile does not
// name keep their default addresses. Node pseudo-URLs should be expanded
// through Discovery before this call.
func NewFromProfile(profile *specstore.NetworkProfile, log *slog.Logger) (*Client, error) {
	addrs := contracts.DefaultAddresses
	entries := []struct {
		name   string
		target *interfaces.Account
	}{
		{registry.RoleControlName, &addrs.RoleControl},
		{registry.ValidatorControlName, &addrs.ValidatorControl},
		{registry.DidRegistryName, &addrs.DidRegistry},
		{registry.SchemaRegistryName, &addrs.SchemaRegistry},
		{registry.CredentialDefinitionRegistryName, &addrs.CredentialDefinitionRegistry},
		{registry.RevocationRegistryName, &addrs.RevocationRegistry},
		{registry.LegacyMappingRegistryName, &addrs.LegacyMappingRegistry},
		{registry.UpgradeControlName, &addrs.UpgradeControl},
	}
	for _, entry := range entries {
		if addr, err := profile.ContractAddress(entry.name); err == nil {
			*entry.target = addr
		}
	}

	return New(Config{
		ChainID:         profile.ChainID,
		Nodes:           profile.Nodes,
		QuorumThreshold: profile.QuorumThreshold,
		Addresses:       &addrs,
		Log:             log,
	})
}

// ChainID returns the configured chain id.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Contracts returns the bound contract set.
func (c *Client) Contracts() *contracts.Set {
	return c.set
}

// spec resolves a contract name against the bound set.
func (c *Client) spec(contract string) (*contracts.Spec, error) {
	spec, ok := c.set.ByName(contract)
	if !ok {
		return nil, fmt.Errorf("unknown contract %q", contract)
	}
	return spec, nil
}
