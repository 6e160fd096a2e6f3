package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndResolveDid(t *testing.T) {
	env := newTestEnv(t)
	owner := newIdentity(t)

	env.createDid(t, owner)

	record, err := env.regs.Dids.ResolveDid(owner.account)
	require.NoError(t, err)
	assert.JSONEq(t, string(owner.document(t)), string(record.Document))
	assert.Equal(t, owner.account, record.Metadata.Owner)
	assert.Equal(t, owner.account, record.Metadata.Sender)
	assert.Equal(t, uint64(1), record.Metadata.VersionID)
	assert.False(t, record.Metadata.Deactivated)
	assert.True(t, env.sink.has(DidRegistryName, "DIDCreated"))
}

func TestCreateDidTwice(t *testing.T) {
	env := newTestEnv(t)
	owner := newIdentity(t)

	env.createDid(t, owner)
	err := env.regs.Dids.CreateDid(env.txFrom(owner.account), owner.account, owner.document(t))
	require.ErrorIs(t, err, ErrDidAlreadyExist)
}

func TestCreateDidForOtherIdentity(t *testing.T) {
	env := newTestEnv(t)
	owner := newIdentity(t)
	stranger := newIdentity(t)

	err := env.regs.Dids.CreateDid(env.txFrom(stranger.account), owner.account, owner.document(t))
	require.ErrorIs(t, err, ErrUnauthorized)

	// A privileged sender may register a DID for someone else.
	err = env.regs.Dids.CreateDid(env.txFrom(env.trustee.account), owner.account, owner.document(t))
	require.NoError(t, err)

	record, err := env.regs.Dids.ResolveDid(owner.account)
	require.NoError(t, err)
	assert.Equal(t, owner.account, record.Metadata.Owner)
	assert.Equal(t, env.trustee.account, record.Metadata.Sender)
}

func TestCreateDidSigned(t *testing.T) {
	env := newTestEnv(t)
	owner := newIdentity(t)
	relayer := newIdentity(t)
	document := owner.document(t)

	digest := CreateDidDigest(testAddresses().DidRegistry, owner.account, document)
	sig := owner.sign(t, digest)

	err := env.regs.Dids.CreateDidSigned(env.txFrom(relayer.account), owner.account, sig, document)
	require.NoError(t, err)

	record, err := env.regs.Dids.ResolveDid(owner.account)
	require.NoError(t, err)
	assert.Equal(t, owner.account, record.Metadata.Owner)
	assert.Equal(t, relayer.account, record.Metadata.Sender)
}

func TestCreateDidSignedByWrongKey(t *testing.T) {
	env := newTestEnv(t)
	owner := newIdentity(t)
	impostor := newIdentity(t)
	relayer := newIdentity(t)
	document := owner.document(t)

	digest := CreateDidDigest(testAddresses().DidRegistry, owner.account, document)
	sig := impostor.sign(t, digest)

	err := env.regs.Dids.CreateDidSigned(env.txFrom(relayer.account), owner.account, sig, document)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestCreateDidRejectsInvalidDocument(t *testing.T) {
	env := newTestEnv(t)
	owner := newIdentity(t)
	other := newIdentity(t)

	err := env.regs.Dids.CreateDid(env.txFrom(owner.account), owner.account, []byte("{not json"))
	require.ErrorIs(t, err, ErrInvalidDidDocument)

	// Document id names a different account than the registered identity.
	err = env.regs.Dids.CreateDid(env.txFrom(owner.account), owner.account, other.document(t))
	require.ErrorIs(t, err, ErrIncorrectDid)
}

func TestUpdateDid(t *testing.T) {
	env := newTestEnv(t)
	owner := newIdentity(t)
	env.createDid(t, owner)

	err := env.regs.Dids.UpdateDid(env.txFrom(owner.account), owner.account, owner.document(t))
	require.NoError(t, err)

	record, err := env.regs.Dids.ResolveDid(owner.account)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), record.Metadata.VersionID)
	assert.True(t, env.sink.has(DidRegistryName, "DIDUpdated"))
}

func TestUpdateDidAuthorization(t *testing.T) {
	env := newTestEnv(t)
	owner := newIdentity(t)
	stranger := newIdentity(t)
	env.createDid(t, owner)

	err := env.regs.Dids.UpdateDid(env.txFrom(stranger.account), owner.account, owner.document(t))
	require.ErrorIs(t, err, ErrNotIdentityOwner)

	err = env.regs.Dids.UpdateDid(env.txFrom(env.trustee.account), owner.account, owner.document(t))
	require.NoError(t, err)
}

func TestUpdateDidMissing(t *testing.T) {
	env := newTestEnv(t)
	owner := newIdentity(t)

	err := env.regs.Dids.UpdateDid(env.txFrom(owner.account), owner.account, owner.document(t))
	require.ErrorIs(t, err, ErrDidNotFound)
}

func TestUpdateDidSignedBindsToVersion(t *testing.T) {
	env := newTestEnv(t)
	owner := newIdentity(t)
	relayer := newIdentity(t)
	env.createDid(t, owner)
	document := owner.document(t)

	digest := UpdateDidDigest(testAddresses().DidRegistry, owner.account, 1, document)
	sig := owner.sign(t, digest)

	err := env.regs.Dids.UpdateDidSigned(env.txFrom(relayer.account), owner.account, sig, document)
	require.NoError(t, err)

	// The same signature no longer matches: the record moved to version 2.
	err = env.regs.Dids.UpdateDidSigned(env.txFrom(relayer.account), owner.account, sig, document)
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestDeactivateDid(t *testing.T) {
	env := newTestEnv(t)
	owner := newIdentity(t)
	env.createDid(t, owner)

	err := env.regs.Dids.DeactivateDid(env.txFrom(owner.account), owner.account)
	require.NoError(t, err)

	record, err := env.regs.Dids.ResolveDid(owner.account)
	require.NoError(t, err)
	assert.True(t, record.Metadata.Deactivated)
	assert.True(t, env.sink.has(DidRegistryName, "DIDDeactivated"))

	err = env.regs.Dids.UpdateDid(env.txFrom(owner.account), owner.account, owner.document(t))
	require.ErrorIs(t, err, ErrDidHasBeenDeactivated)

	err = env.regs.Dids.DeactivateDid(env.txFrom(owner.account), owner.account)
	require.ErrorIs(t, err, ErrDidHasBeenDeactivated)
}

func TestDeactivateDidSigned(t *testing.T) {
	env := newTestEnv(t)
	owner := newIdentity(t)
	relayer := newIdentity(t)
	env.createDid(t, owner)

	digest := DeactivateDidDigest(testAddresses().DidRegistry, owner.account, 1)
	sig := owner.sign(t, digest)

	err := env.regs.Dids.DeactivateDidSigned(env.txFrom(relayer.account), owner.account, sig)
	require.NoError(t, err)

	record, err := env.regs.Dids.ResolveDid(owner.account)
	require.NoError(t, err)
	assert.True(t, record.Metadata.Deactivated)
}

func TestEnsureActiveIssuer(t *testing.T) {
	env := newTestEnv(t)
	issuer := newIdentity(t)

	_, err := env.regs.Dids.EnsureActiveIssuer("not a did")
	require.ErrorIs(t, err, ErrIncorrectDid)

	_, err = env.regs.Dids.EnsureActiveIssuer(issuer.did())
	require.ErrorIs(t, err, ErrIssuerNotFound)

	env.createDid(t, issuer)
	owner, err := env.regs.Dids.EnsureActiveIssuer(issuer.did())
	require.NoError(t, err)
	assert.Equal(t, issuer.account, owner)

	require.NoError(t, env.regs.Dids.DeactivateDid(env.txFrom(issuer.account), issuer.account))
	_, err = env.regs.Dids.EnsureActiveIssuer(issuer.did())
	require.ErrorIs(t, err, ErrIssuerHasBeenDeactivated)
}
