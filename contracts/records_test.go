package contracts

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMetadata() interfaces.ResourceMetadata {
	return interfaces.ResourceMetadata{
		Owner:     common.HexToAddress("0x1234"),
		Sender:    common.HexToAddress("0x5678"),
		Created:   1700000000,
		Updated:   1700000100,
		VersionID: 3,
	}
}

// packRecord runs a record through the resolve method's output encoding
// and back, the exact path node responses and client reads take.
func packRecord[T any](t *testing.T, contract, method string, wire T) T {
	t.Helper()

	spec, ok := Default().ByName(contract)
	require.True(t, ok)
	m, ok := spec.ABI.Methods[method]
	require.True(t, ok)

	packed, err := m.Outputs.Pack(wire)
	require.NoError(t, err)

	values, err := m.Outputs.Unpack(packed)
	require.NoError(t, err)
	require.Len(t, values, 1)

	return *abi.ConvertType(values[0], new(T)).(*T)
}

func TestDidRecordWireRoundTrip(t *testing.T) {
	rec := interfaces.DidRecord{
		Document: []byte(`{"id":"did:ethr:0x1234"}`),
		Metadata: interfaces.DidMetadata{
			ResourceMetadata: testMetadata(),
			Deactivated:      true,
		},
	}

	got := packRecord(t, registry.DidRegistryName, "resolveDid", DidRecordToWire(rec))
	assert.Equal(t, rec, DidRecordFromWire(got))
}

func TestSchemaRecordWireRoundTrip(t *testing.T) {
	rec := interfaces.SchemaRecord{
		Schema:   []byte(`{"name":"BasicIdentity","version":"1.0.0"}`),
		Metadata: testMetadata(),
	}

	got := packRecord(t, registry.SchemaRegistryName, "resolveSchema", SchemaRecordToWire(rec))
	assert.Equal(t, rec, SchemaRecordFromWire(got))
}

func TestCredentialDefinitionRecordWireRoundTrip(t *testing.T) {
	rec := interfaces.CredentialDefinitionRecord{
		CredDef:  []byte(`{"credDefType":"CL","tag":"default"}`),
		Metadata: testMetadata(),
	}

	got := packRecord(t, registry.CredentialDefinitionRegistryName,
		"resolveCredentialDefinition", CredentialDefinitionRecordToWire(rec))
	assert.Equal(t, rec, CredentialDefinitionRecordFromWire(got))
}

func TestRevocationRecordWireRoundTrip(t *testing.T) {
	rec := interfaces.RevocationRegistryRecord{
		RevRegDef: []byte(`{"revocDefType":"CL_ACCUM","tag":"reg1"}`),
		Metadata:  testMetadata(),
		Status:    interfaces.RevocationSuspended,
	}

	got := packRecord(t, registry.RevocationRegistryName,
		"resolveRevocationRegistryDefinition", RevocationRecordToWire(rec))
	assert.Equal(t, rec, RevocationRecordFromWire(got))
}

func TestEntryWireRoundTrip(t *testing.T) {
	spec, ok := Default().ByName(registry.RevocationRegistryName)
	require.True(t, ok)
	method, ok := spec.ABI.Methods["createRevocationRegistryEntry"]
	require.True(t, ok)

	identity := common.HexToAddress("0x1234")
	id := common.HexToHash("0xc0ffee")
	entry := interfaces.RevocationRegistryEntry{
		CurrentAccum: []byte{0x21, 0x01, 0x02},
		PrevAccum:    []byte{0x21, 0x01},
		Issued:       []uint32{1, 2, 3},
		Revoked:      []uint32{7},
		Timestamp:    1700000042,
	}

	packed, err := method.Inputs.Pack(identity, id, "did:ethr:0x1234", EntryToWire(entry))
	require.NoError(t, err)

	values, err := method.Inputs.Unpack(packed)
	require.NoError(t, err)
	require.Len(t, values, 4)

	got := *abi.ConvertType(values[3], new(RevocationEntryWire)).(*RevocationEntryWire)
	assert.Equal(t, entry, EntryFromWire(got))
}

func TestProposalWireRoundTrip(t *testing.T) {
	proposal := registry.UpgradeProposal{
		Proposer: common.HexToAddress("0x1234"),
		Created:  1700000000,
		Approvals: []common.Address{
			common.HexToAddress("0x5678"),
			common.HexToAddress("0x9abc"),
		},
		Applied: true,
	}

	got := packRecord(t, registry.UpgradeControlName, "getProposal", ProposalToWire(proposal))
	assert.Equal(t, proposal, ProposalFromWire(got))
}

func TestProposalToWireNormalizesApprovals(t *testing.T) {
	wire := ProposalToWire(registry.UpgradeProposal{Proposer: common.HexToAddress("0x1234")})
	require.NotNil(t, wire.Approvals)
	assert.Empty(t, wire.Approvals)
}
