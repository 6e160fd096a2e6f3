// Package contracts carries the contract specs of the identity registry
// set: parsed ABIs for calldata dispatch and result encoding, event
// layouts for ledger logs, and the custom error selectors that carry the
// registry error taxonomy through revert data.
//
// The specs are embedded JSON ABI files, one per contract, named after
// the registry contract names. Method, event and error declarations are
// the single source of truth for the wire format; the node and the
// client SDK both derive their encoding from them.
package contracts

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry-backend/registry"

	"embed"
)

//go:embed specs/*.json
var specFiles embed.FS

// Spec is one deployed registry contract: its name, deployment address
// and parsed ABI.
type Spec struct {
	Name    string
	Address common.Address
	ABI     abi.ABI
}

// DefaultAddresses is the fixed address table the dev ledger deploys the
// contract set under.
var DefaultAddresses = registry.Addresses{
	RoleControl:                  common.HexToAddress("0x0000000000000000000000000000000000001111"),
	ValidatorControl:             common.HexToAddress("0x0000000000000000000000000000000000002222"),
	DidRegistry:                  common.HexToAddress("0x0000000000000000000000000000000000003333"),
	SchemaRegistry:               common.HexToAddress("0x0000000000000000000000000000000000004444"),
	CredentialDefinitionRegistry: common.HexToAddress("0x0000000000000000000000000000000000005555"),
	RevocationRegistry:           common.HexToAddress("0x0000000000000000000000000000000000006666"),
	LegacyMappingRegistry:        common.HexToAddress("0x0000000000000000000000000000000000007777"),
	UpgradeControl:               common.HexToAddress("0x0000000000000000000000000000000000008888"),
}

// Set is the parsed contract set with name, address and error selector
// indexes.
type Set struct {
	addresses registry.Addresses
	specs     []*Spec
	byName    map[string]*Spec
	byAddress map[common.Address]*Spec
	errByID   map[[4]byte]abi.Error
	errByName map[string]abi.Error
}

// New parses the embedded contract specs and binds them to the given
// address table.
func New(addrs registry.Addresses) (*Set, error) {
	entries := []struct {
		name    string
		address common.Address
	}{
		{registry.RoleControlName, addrs.RoleControl},
		{registry.ValidatorControlName, addrs.ValidatorControl},
		{registry.DidRegistryName, addrs.DidRegistry},
		{registry.SchemaRegistryName, addrs.SchemaRegistry},
		{registry.CredentialDefinitionRegistryName, addrs.CredentialDefinitionRegistry},
		{registry.RevocationRegistryName, addrs.RevocationRegistry},
		{registry.LegacyMappingRegistryName, addrs.LegacyMappingRegistry},
		{registry.UpgradeControlName, addrs.UpgradeControl},
	}

	set := &Set{
		addresses: addrs,
		byName:    make(map[string]*Spec, len(entries)),
		byAddress: make(map[common.Address]*Spec, len(entries)),
		errByID:   make(map[[4]byte]abi.Error),
		errByName: make(map[string]abi.Error),
	}
	for _, entry := range entries {
		raw, err := specFiles.ReadFile("specs/" + entry.name + ".json")
		if err != nil {
			return nil, fmt.Errorf("missing contract spec %s: %w", entry.name, err)
		}
		parsed, err := abi.JSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing contract spec %s: %w", entry.name, err)
		}

		spec := &Spec{Name: entry.name, Address: entry.address, ABI: parsed}
		set.specs = append(set.specs, spec)
		set.byName[spec.Name] = spec
		set.byAddress[spec.Address] = spec

		for _, abiErr := range parsed.Errors {
			var selector [4]byte
			copy(selector[:], abiErr.ID[:4])
			set.errByID[selector] = abiErr
			set.errByName[abiErr.Name] = abiErr
		}
	}
	return set, nil
}

var defaultSet = func() *Set {
	set, err := New(DefaultAddresses)
	if err != nil {
		panic(fmt.Sprintf("embedded contract specs are broken: %v", err))
	}
	return set
}()

// Default returns the contract set bound to DefaultAddresses.
func Default() *Set {
	return defaultSet
}

// Addresses returns the address table the set was bound to.
func (s *Set) Addresses() registry.Addresses {
	return s.addresses
}

// Specs returns every contract spec in deployment order.
func (s *Set) Specs() []*Spec {
	out := make([]*Spec, len(s.specs))
	copy(out, s.specs)
	return out
}

// ByName returns the spec of the named contract.
func (s *Set) ByName(name string) (*Spec, bool) {
	spec, ok := s.byName[name]
	return spec, ok
}

// ByAddress returns the spec deployed at the given address.
func (s *Set) ByAddress(address common.Address) (*Spec, bool) {
	spec, ok := s.byAddress[address]
	return spec, ok
}

// MethodByID resolves a four-byte calldata selector against the spec.
func (sp *Spec) MethodByID(selector []byte) (*abi.Method, error) {
	return sp.ABI.MethodById(selector)
}

// Pack encodes a method call with its selector, ready for calldata.
func (sp *Spec) Pack(method string, args ...any) ([]byte, error) {
	return sp.ABI.Pack(method, args...)
}
