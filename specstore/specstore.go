// Package specstore distributes the immutable artifacts a client needs
// to join a network: contract spec JSON (ABI plus contract name) and
// network profile JSON (chain id, node endpoints, quorum threshold and
// the contract address table). Artifacts are content-addressed by the
// keccak-256 hash of their bytes and fetched through URI-configured
// backends (file, S3, IPFS, Vault, GitHub), optionally aggregated with
// first-hit fallback.
package specstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ArtifactID is the keccak-256 hash of an artifact's content.
type ArtifactID [32]byte

// ArtifactIDOf derives the content id of raw artifact bytes.
func ArtifactIDOf(data []byte) ArtifactID {
	return ArtifactID(crypto.Keccak256Hash(data))
}

// Hex returns the unprefixed hex form of the id, used as storage key.
func (id ArtifactID) Hex() string {
	return fmt.Sprintf("%x", id[:])
}

var (
	// ErrArtifactNotFound is returned when a backend does not hold the
	// requested artifact.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrBackendUnavailable is returned when a backend cannot be reached.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrReadOnlyBackend is returned by Store on backends without write
	// support.
	ErrReadOnlyBackend = errors.New("storage backend is read-only")

	// ErrInvalidLocationURI is returned for malformed backend URIs.
	ErrInvalidLocationURI = errors.New("invalid backend location URI")
)

// Backend is one artifact store.
type Backend interface {
	// Fetch retrieves an artifact by content id. Implementations verify
	// the fetched bytes hash back to the id.
	Fetch(ctx context.Context, id ArtifactID) ([]byte, error)

	// Store writes an artifact and returns its content id.
	Store(ctx context.Context, data []byte) (ArtifactID, error)

	// Available reports whether the backend is reachable.
	Available(ctx context.Context) bool

	// Name identifies the backend in logs.
	Name() string

	// LocationURI returns the URI the backend was created from.
	LocationURI() string
}

// ContractSpecArtifact is the stored form of one contract spec.
type ContractSpecArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
}

// ParseContractSpec decodes and validates a contract spec artifact.
func ParseContractSpec(data []byte) (*ContractSpecArtifact, error) {
	var spec ContractSpecArtifact
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("malformed contract spec: %w", err)
	}
	if spec.ContractName == "" {
		return nil, errors.New("contract spec is missing contractName")
	}
	if len(spec.ABI) == 0 {
		return nil, errors.New("contract spec is missing abi")
	}
	return &spec, nil
}

// ProfileContract is one contract entry of a network profile.
type ProfileContract struct {
	Address string `json:"address"`

	// SpecID optionally points at the contract spec artifact holding the
	// contract's ABI, for clients that do not ship embedded specs.
	SpecID string `json:"specId,omitempty"`
}

// NetworkProfile describes one deployed network: where to connect, how
// many nodes must agree on reads, and where the registries live.
type NetworkProfile struct {
	Name            string                     `json:"name"`
	ChainID         uint64                     `json:"chainId"`
	Nodes           []string                   `json:"nodes"`
	QuorumThreshold int                        `json:"quorumThreshold,omitempty"`
	Contracts       map[string]ProfileContract `json:"contracts"`
}

// ParseNetworkProfile decodes and validates a network profile artifact.
func ParseNetworkProfile(data []byte) (*NetworkProfile, error) {
	var profile NetworkProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("malformed network profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Validate checks the structural rules of a network profile.
func (p *NetworkProfile) Validate() error {
	if p.ChainID == 0 {
		return errors.New("network profile chainId is required")
	}
	if len(p.Nodes) == 0 {
		return errors.New("network profile must list at least one node")
	}
	if p.QuorumThreshold < 0 || p.QuorumThreshold > len(p.Nodes) {
		return fmt.Errorf("quorum threshold %d out of range for %d nodes", p.QuorumThreshold, len(p.Nodes))
	}
	for name, contract := range p.Contracts {
		if !common.IsHexAddress(contract.Address) {
			return fmt.Errorf("contract %s has invalid address %q", name, contract.Address)
		}
	}
	return nil
}

// ContractAddress returns the deployment address of a named contract.
func (p *NetworkProfile) ContractAddress(name string) (common.Address, error) {
	contract, ok := p.Contracts[name]
	if !ok {
		return common.Address{}, fmt.Errorf("network profile has no contract %q", name)
	}
	return common.HexToAddress(contract.Address), nil
}

// Encode serializes the profile with stable indentation, the form stored
// as an artifact.
func (p *NetworkProfile) Encode() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
