// Package registry implements the ledger-side identity registries: role
// control, DID documents, credential schemas, credential definitions,
// revocation registries, legacy identifier mappings, the validator set and
// contract upgrade control.
//
// Every registry is a deterministic state machine over an injected
// StateStore. Operations take an explicit TxContext naming the
// authenticated sender; nothing reads ambient transaction state. Writes
// submitted on behalf of another identity go through the *Signed variants,
// which verify a secp256k1 endorsement over the operation's canonical
// signing input before treating the endorsing identity as the actor.
//
// Cross-registry checks (issuer exists and is active, schema exists) are
// direct typed lookups returning taxonomy errors; no error-string
// inspection happens anywhere in the package.
package registry

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ruteri/identity-registry-backend/interfaces"
)

// TxContext carries the authenticated actor and block environment of one
// ledger operation.
type TxContext struct {
	Sender      interfaces.Account
	BlockNumber uint64
	Time        int64
}

// EventSink receives registry events. The node turns them into ledger logs
// using the contract specs; tests record them directly.
type EventSink interface {
	Emit(contract string, event string, args ...any)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(string, string, ...any) {}

// Contract names, matching the embedded contract specs.
const (
	RoleControlName                  = "RoleControl"
	ValidatorControlName             = "ValidatorControl"
	DidRegistryName                  = "DidRegistry"
	SchemaRegistryName               = "SchemaRegistry"
	CredentialDefinitionRegistryName = "CredentialDefinitionRegistry"
	RevocationRegistryName           = "RevocationRegistry"
	LegacyMappingRegistryName        = "LegacyMappingRegistry"
	UpgradeControlName               = "UpgradeControl"
)

// State buckets, one per registry concern.
var (
	bucketRoles        = []byte("roles")
	bucketRoleCounts   = []byte("role_counts")
	bucketDids         = []byte("dids")
	bucketSchemas      = []byte("schemas")
	bucketCredDefs     = []byte("creddefs")
	bucketRevocations  = []byte("revocations")
	bucketAccumulators = []byte("accumulators")
	bucketDidMappings  = []byte("did_mappings")
	bucketResMappings  = []byte("resource_mappings")
	bucketValidators   = []byte("validators")
	bucketUpgrades     = []byte("upgrades")
	bucketActiveImpls  = []byte("active_implementations")
)

func getJSON(store interfaces.StateStore, bucket, key []byte, out any) (bool, error) {
	raw, err := store.Get(bucket, key)
	if err != nil {
		return false, fmt.Errorf("state read: %w", err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("corrupt state record: %w", err)
	}
	return true, nil
}

func putJSON(store interfaces.StateStore, bucket, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state encode: %w", err)
	}
	if err := store.Put(bucket, key, raw); err != nil {
		return fmt.Errorf("state write: %w", err)
	}
	return nil
}

func encodeUint32(v uint32) []byte {
	var enc [4]byte
	binary.BigEndian.PutUint32(enc[:], v)
	return enc[:]
}

func decodeUint32(raw []byte) uint32 {
	if len(raw) != 4 {
		return 0
	}
	return binary.BigEndian.Uint32(raw)
}

// Genesis is the initial ledger state applied when a fresh state store is
// first opened.
type Genesis struct {
	Trustees   []interfaces.Account
	Validators []interfaces.Account
}

// Addresses maps each registry to its deployment address, used for
// endorsement signing inputs.
type Addresses struct {
	RoleControl                  interfaces.Account
	ValidatorControl             interfaces.Account
	DidRegistry                  interfaces.Account
	SchemaRegistry               interfaces.Account
	CredentialDefinitionRegistry interfaces.Account
	RevocationRegistry           interfaces.Account
	LegacyMappingRegistry        interfaces.Account
	UpgradeControl               interfaces.Account
}

// Registries wires the full registry set over one state store.
type Registries struct {
	Roles       *RoleControl
	Validators  *ValidatorControl
	Dids        *DidRegistry
	Schemas     *SchemaRegistry
	CredDefs    *CredentialDefinitionRegistry
	Revocations *RevocationRegistry
	Mappings    *LegacyMappingRegistry
	Upgrades    *UpgradeControl
}

// NewRegistries builds the registry set and applies genesis to an empty
// state store. Genesis is idempotent: stores that already hold roles are
// left untouched.
func NewRegistries(store interfaces.StateStore, events EventSink, addrs Addresses, genesis Genesis) (*Registries, error) {
	if events == nil {
		events = NopSink{}
	}

	roles := NewRoleControl(store, events)
	validators := NewValidatorControl(store, events, roles)
	dids := NewDidRegistry(store, events, addrs.DidRegistry, roles)
	schemas := NewSchemaRegistry(store, events, addrs.SchemaRegistry, dids)
	credDefs := NewCredentialDefinitionRegistry(store, events, addrs.CredentialDefinitionRegistry, dids, schemas)
	revocations := NewRevocationRegistry(store, events, addrs.RevocationRegistry, dids, credDefs)
	mappings := NewLegacyMappingRegistry(store, events, addrs.LegacyMappingRegistry, dids)
	upgrades := NewUpgradeControl(store, events, roles)

	if err := roles.applyGenesis(genesis.Trustees); err != nil {
		return nil, err
	}
	if err := validators.applyGenesis(genesis.Validators); err != nil {
		return nil, err
	}

	return &Registries{
		Roles:       roles,
		Validators:  validators,
		Dids:        dids,
		Schemas:     schemas,
		CredDefs:    credDefs,
		Revocations: revocations,
		Mappings:    mappings,
		Upgrades:    upgrades,
	}, nil
}
