package registry

import (
	"crypto/ecdsa"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/state"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	Contract string
	Name     string
	Args     []any
}

type recordingSink struct {
	events []recordedEvent
}

func (s *recordingSink) Emit(contract string, event string, args ...any) {
	s.events = append(s.events, recordedEvent{Contract: contract, Name: event, Args: args})
}

func (s *recordingSink) has(contract, event string) bool {
	for _, e := range s.events {
		if e.Contract == contract && e.Name == event {
			return true
		}
	}
	return false
}

type identity struct {
	key     *ecdsa.PrivateKey
	account interfaces.Account
}

func newIdentity(t *testing.T) identity {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return identity{key: key, account: crypto.PubkeyToAddress(key.PublicKey)}
}

func (id identity) did() string {
	return interfaces.BuildDid(interfaces.DidMethodEthr, id.account)
}

func (id identity) sign(t *testing.T, digest [32]byte) interfaces.SignatureData {
	t.Helper()
	raw, err := crypto.Sign(digest[:], id.key)
	require.NoError(t, err)
	sig, err := interfaces.NewSignatureData(raw)
	require.NoError(t, err)
	return sig
}

func (id identity) document(t *testing.T) []byte {
	t.Helper()
	doc := interfaces.NewBasicDIDDocument(id.did(), "zHxwoxJN2qWBtQ9hXT7rtgGz1aHiMvIo")
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func testAddresses() Addresses {
	return Addresses{
		RoleControl:                  common.HexToAddress("0x0000000000000000000000000000000000001111"),
		ValidatorControl:             common.HexToAddress("0x0000000000000000000000000000000000002222"),
		DidRegistry:                  common.HexToAddress("0x0000000000000000000000000000000000003333"),
		SchemaRegistry:               common.HexToAddress("0x0000000000000000000000000000000000004444"),
		CredentialDefinitionRegistry: common.HexToAddress("0x0000000000000000000000000000000000005555"),
		RevocationRegistry:           common.HexToAddress("0x0000000000000000000000000000000000006666"),
		LegacyMappingRegistry:        common.HexToAddress("0x0000000000000000000000000000000000007777"),
		UpgradeControl:               common.HexToAddress("0x0000000000000000000000000000000000008888"),
	}
}

type testEnv struct {
	regs      *Registries
	sink      *recordingSink
	trustee   identity
	validator interfaces.Account
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	trustee := newIdentity(t)
	validator := common.HexToAddress("0x0000000000000000000000000000000000000101")
	sink := &recordingSink{}
	regs, err := NewRegistries(state.NewMemoryStore(), sink, testAddresses(), Genesis{
		Trustees:   []interfaces.Account{trustee.account},
		Validators: []interfaces.Account{validator},
	})
	require.NoError(t, err)
	return &testEnv{regs: regs, sink: sink, trustee: trustee, validator: validator}
}

func (e *testEnv) txFrom(sender interfaces.Account) TxContext {
	return TxContext{Sender: sender, BlockNumber: 1, Time: 1700000000}
}

// createDid registers an active DID for the identity, sent by itself.
func (e *testEnv) createDid(t *testing.T, id identity) {
	t.Helper()
	err := e.regs.Dids.CreateDid(e.txFrom(id.account), id.account, id.document(t))
	require.NoError(t, err)
}

// schemaFixture builds a valid schema payload plus its canonical id for
// the issuer.
func schemaFixture(t *testing.T, issuer identity, name, version string) (interfaces.ResourceID, []byte) {
	t.Helper()
	payload, err := json.Marshal(interfaces.Schema{
		IssuerID:  issuer.did(),
		Name:      name,
		Version:   version,
		AttrNames: []string{"first_name", "last_name"},
	})
	require.NoError(t, err)
	id := interfaces.ResourceIDHash(interfaces.SchemaIDString(issuer.did(), name, version))
	return id, payload
}

// credDefFixture builds a valid credential definition payload referencing
// the schema, plus its canonical id.
func credDefFixture(t *testing.T, issuer identity, schemaIDString, tag string) (interfaces.ResourceID, []byte) {
	t.Helper()
	payload, err := json.Marshal(interfaces.CredentialDefinition{
		IssuerID:    issuer.did(),
		SchemaID:    schemaIDString,
		CredDefType: interfaces.CredDefTypeCL,
		Tag:         tag,
		Value:       json.RawMessage(`{"n":"0954456694171","s":"0954456694171"}`),
	})
	require.NoError(t, err)
	id := interfaces.ResourceIDHash(interfaces.CredDefIDString(issuer.did(), schemaIDString, tag))
	return id, payload
}

// revRegDefFixture builds a valid revocation registry definition payload
// referencing the credential definition, plus its canonical id.
func revRegDefFixture(t *testing.T, issuer identity, credDefIDString, tag string) (interfaces.ResourceID, []byte) {
	t.Helper()
	payload, err := json.Marshal(interfaces.RevocationRegistryDefinition{
		IssuerID:     issuer.did(),
		RevocDefType: interfaces.RevocDefTypeCLAccum,
		CredDefID:    credDefIDString,
		Tag:          tag,
		Value: interfaces.RevocationRegistryDefinitionValue{
			MaxCredNum:    666,
			PublicKeys:    interfaces.RevocationRegistryPublicKeys{AccumKey: interfaces.AccumulatorKey{Z: "1 0BB...386"}},
			TailsHash:     "91zvq2cFmBZmHCcLqFyzv7bfehHH5rMhdAG5wTjqy2PE",
			TailsLocation: "https://tails.example/91zvq2cFmBZmHCcLqFyzv7bfehHH5rMhdAG5wTjqy2PE",
		},
	})
	require.NoError(t, err)
	id := interfaces.ResourceIDHash(interfaces.RevRegDefIDString(credDefIDString, tag))
	return id, payload
}
