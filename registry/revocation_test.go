package registry

import (
	"testing"

	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// issuerWithCredDef registers a DID, a schema and a credential definition
// for a fresh issuer.
func issuerWithCredDef(t *testing.T, env *testEnv) (identity, interfaces.ResourceID, string) {
	t.Helper()
	issuer, schemaID, schemaIDString := issuerWithSchema(t, env)
	credDefID, credDefPayload := credDefFixture(t, issuer, schemaIDString, "default")
	err := env.regs.CredDefs.CreateCredentialDefinition(env.txFrom(issuer.account), issuer.account, credDefID, issuer.did(), schemaID, credDefPayload)
	require.NoError(t, err)
	return issuer, credDefID, interfaces.CredDefIDString(issuer.did(), schemaIDString, "default")
}

// revRegForIssuer additionally registers a revocation registry definition.
func revRegForIssuer(t *testing.T, env *testEnv) (identity, interfaces.ResourceID) {
	t.Helper()
	issuer, credDefID, credDefIDString := issuerWithCredDef(t, env)
	id, payload := revRegDefFixture(t, issuer, credDefIDString, "default")
	err := env.regs.Revocations.CreateRevocationRegistryDefinition(env.txFrom(issuer.account), issuer.account, id, credDefID, issuer.did(), payload)
	require.NoError(t, err)
	return issuer, id
}

func TestCreateAndResolveRevocationRegistryDefinition(t *testing.T) {
	env := newTestEnv(t)
	issuer, credDefID, credDefIDString := issuerWithCredDef(t, env)
	id, payload := revRegDefFixture(t, issuer, credDefIDString, "default")

	err := env.regs.Revocations.CreateRevocationRegistryDefinition(env.txFrom(issuer.account), issuer.account, id, credDefID, issuer.did(), payload)
	require.NoError(t, err)

	record, err := env.regs.Revocations.ResolveRevocationRegistryDefinition(id)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(record.RevRegDef))
	assert.Equal(t, interfaces.RevocationActive, record.Status)
	assert.Equal(t, uint64(1), record.Metadata.VersionID)
	assert.True(t, env.sink.has(RevocationRegistryName, "RevocationRegistryDefinitionCreated"))
}

func TestCreateRevocationRegistryDefinitionTwice(t *testing.T) {
	env := newTestEnv(t)
	issuer, id := revRegForIssuer(t, env)

	err := env.regs.Revocations.CreateRevocationRegistryDefinition(env.txFrom(issuer.account), issuer.account, id, interfaces.ResourceID{}, issuer.did(), []byte(`{}`))
	require.ErrorIs(t, err, ErrRevocationRegistryDefinitionAlreadyExist)
}

func TestCreateRevocationRegistryDefinitionSigned(t *testing.T) {
	env := newTestEnv(t)
	issuer, credDefID, credDefIDString := issuerWithCredDef(t, env)
	relayer := newIdentity(t)
	id, payload := revRegDefFixture(t, issuer, credDefIDString, "default")

	digest := CreateRevocationRegistryDefinitionDigest(testAddresses().RevocationRegistry, issuer.account, id, credDefID, issuer.did(), payload)
	sig := issuer.sign(t, digest)

	err := env.regs.Revocations.CreateRevocationRegistryDefinitionSigned(env.txFrom(relayer.account), issuer.account, sig, id, credDefID, issuer.did(), payload)
	require.NoError(t, err)

	record, err := env.regs.Revocations.ResolveRevocationRegistryDefinition(id)
	require.NoError(t, err)
	assert.Equal(t, relayer.account, record.Metadata.Sender)
}

func TestCreateRevocationRegistryDefinitionGuards(t *testing.T) {
	env := newTestEnv(t)
	issuer, credDefID, credDefIDString := issuerWithCredDef(t, env)
	tx := env.txFrom(issuer.account)

	// Referenced credential definition does not exist.
	id, payload := revRegDefFixture(t, issuer, credDefIDString, "default")
	err := env.regs.Revocations.CreateRevocationRegistryDefinition(tx, issuer.account, id, interfaces.ResourceID{0x01}, issuer.did(), payload)
	require.ErrorIs(t, err, ErrCredentialDefinitionNotFound)

	// Payload names a credDefId that is not the referenced definition.
	_, mismatched := revRegDefFixture(t, issuer, credDefIDString+":other", "default")
	err = env.regs.Revocations.CreateRevocationRegistryDefinition(tx, issuer.account, id, credDefID, issuer.did(), mismatched)
	require.ErrorIs(t, err, ErrInvalidRevocationRegistryDefinition)

	// Id must hash the canonical revocation registry id string.
	wrongID, _ := revRegDefFixture(t, issuer, credDefIDString, "other-tag")
	err = env.regs.Revocations.CreateRevocationRegistryDefinition(tx, issuer.account, wrongID, credDefID, issuer.did(), payload)
	require.ErrorIs(t, err, ErrInvalidRevocationRegistryDefinitionId)
}

func TestRevocationRegistryStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	issuer, id := revRegForIssuer(t, env)
	tx := env.txFrom(issuer.account)

	// Active -> Suspended.
	require.NoError(t, env.regs.Revocations.SuspendRevocationRegistry(tx, issuer.account, id))
	record, err := env.regs.Revocations.ResolveRevocationRegistryDefinition(id)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RevocationSuspended, record.Status)
	assert.Equal(t, uint64(2), record.Metadata.VersionID)

	err = env.regs.Revocations.SuspendRevocationRegistry(tx, issuer.account, id)
	require.ErrorIs(t, err, ErrRevocationRegistryIsSuspended)

	// Suspended -> Active.
	require.NoError(t, env.regs.Revocations.ReactivateRevocationRegistry(tx, issuer.account, id))
	record, err = env.regs.Revocations.ResolveRevocationRegistryDefinition(id)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RevocationActive, record.Status)

	err = env.regs.Revocations.ReactivateRevocationRegistry(tx, issuer.account, id)
	require.ErrorIs(t, err, ErrRevocationRegistryNotSuspended)

	// Revoked is terminal.
	require.NoError(t, env.regs.Revocations.RevokeRevocationRegistry(tx, issuer.account, id))
	err = env.regs.Revocations.SuspendRevocationRegistry(tx, issuer.account, id)
	require.ErrorIs(t, err, ErrRevocationRegistryIsRevoked)
	err = env.regs.Revocations.ReactivateRevocationRegistry(tx, issuer.account, id)
	require.ErrorIs(t, err, ErrRevocationRegistryIsRevoked)
	err = env.regs.Revocations.RevokeRevocationRegistry(tx, issuer.account, id)
	require.ErrorIs(t, err, ErrRevocationRegistryIsRevoked)

	assert.True(t, env.sink.has(RevocationRegistryName, "RevocationRegistryStatusChanged"))
}

func TestRevocationRegistryStatusAuthorization(t *testing.T) {
	env := newTestEnv(t)
	issuer, id := revRegForIssuer(t, env)
	stranger := newIdentity(t)

	err := env.regs.Revocations.SuspendRevocationRegistry(env.txFrom(stranger.account), issuer.account, id)
	require.ErrorIs(t, err, ErrNotIdentityOwner)

	// Trustees may suspend on the owner's behalf.
	err = env.regs.Revocations.SuspendRevocationRegistry(env.txFrom(env.trustee.account), issuer.account, id)
	require.NoError(t, err)
}

func TestSuspendSignedBindsToVersion(t *testing.T) {
	env := newTestEnv(t)
	issuer, id := revRegForIssuer(t, env)
	relayer := newIdentity(t)
	tx := env.txFrom(issuer.account)

	digest := SuspendRevocationRegistryDigest(testAddresses().RevocationRegistry, issuer.account, id, 1)
	sig := issuer.sign(t, digest)

	require.NoError(t, env.regs.Revocations.SuspendRevocationRegistrySigned(env.txFrom(relayer.account), issuer.account, sig, id))
	require.NoError(t, env.regs.Revocations.ReactivateRevocationRegistry(tx, issuer.account, id))

	// Version moved past 1, the captured signature is dead.
	err := env.regs.Revocations.SuspendRevocationRegistrySigned(env.txFrom(relayer.account), issuer.account, sig, id)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestRevocationRegistryEntries(t *testing.T) {
	env := newTestEnv(t)
	issuer, id := revRegForIssuer(t, env)
	tx := env.txFrom(issuer.account)

	latest, err := env.regs.Revocations.LatestAccumulator(id)
	require.NoError(t, err)
	assert.Empty(t, latest)

	first := interfaces.RevocationRegistryEntry{
		CurrentAccum: []byte{0x01, 0x02},
		Issued:       []uint32{1, 2, 3},
	}
	require.NoError(t, env.regs.Revocations.CreateRevocationRegistryEntry(tx, issuer.account, id, issuer.did(), first))

	latest, err = env.regs.Revocations.LatestAccumulator(id)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, latest)

	second := interfaces.RevocationRegistryEntry{
		CurrentAccum: []byte{0x03, 0x04},
		PrevAccum:    []byte{0x01, 0x02},
		Revoked:      []uint32{2},
	}
	require.NoError(t, env.regs.Revocations.CreateRevocationRegistryEntry(tx, issuer.account, id, issuer.did(), second))

	latest, err = env.regs.Revocations.LatestAccumulator(id)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x04}, latest)
	assert.True(t, env.sink.has(RevocationRegistryName, "RevocationRegistryEntryCreated"))
}

func TestRevocationRegistryEntryChainValidation(t *testing.T) {
	env := newTestEnv(t)
	issuer, id := revRegForIssuer(t, env)
	tx := env.txFrom(issuer.account)

	// First entry must not name a previous accumulator.
	err := env.regs.Revocations.CreateRevocationRegistryEntry(tx, issuer.account, id, issuer.did(), interfaces.RevocationRegistryEntry{
		CurrentAccum: []byte{0x01},
		PrevAccum:    []byte{0xff},
	})
	require.ErrorIs(t, err, ErrAccumulatorMismatch)

	require.NoError(t, env.regs.Revocations.CreateRevocationRegistryEntry(tx, issuer.account, id, issuer.did(), interfaces.RevocationRegistryEntry{
		CurrentAccum: []byte{0x01},
	}))

	// Later entries must chain onto the latest accumulator.
	err = env.regs.Revocations.CreateRevocationRegistryEntry(tx, issuer.account, id, issuer.did(), interfaces.RevocationRegistryEntry{
		CurrentAccum: []byte{0x02},
		PrevAccum:    []byte{0xff},
	})
	require.ErrorIs(t, err, ErrAccumulatorMismatch)
}

func TestRevocationRegistryEntryGuards(t *testing.T) {
	env := newTestEnv(t)
	issuer, id := revRegForIssuer(t, env)
	stranger := newIdentity(t)
	entry := interfaces.RevocationRegistryEntry{CurrentAccum: []byte{0x01}}

	err := env.regs.Revocations.CreateRevocationRegistryEntry(env.txFrom(stranger.account), issuer.account, id, issuer.did(), entry)
	require.ErrorIs(t, err, ErrNotIdentityOwner)

	require.NoError(t, env.regs.Revocations.SuspendRevocationRegistry(env.txFrom(issuer.account), issuer.account, id))
	err = env.regs.Revocations.CreateRevocationRegistryEntry(env.txFrom(issuer.account), issuer.account, id, issuer.did(), entry)
	require.ErrorIs(t, err, ErrRevocationRegistryIsSuspended)
}

func TestLatestAccumulatorMissingDefinition(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.regs.Revocations.LatestAccumulator(interfaces.ResourceID{0xaa})
	require.ErrorIs(t, err, ErrRevocationRegistryDefinitionNotFound)
}
