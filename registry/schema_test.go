package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndResolveSchema(t *testing.T) {
	env := newTestEnv(t)
	issuer := newIdentity(t)
	env.createDid(t, issuer)
	id, payload := schemaFixture(t, issuer, "BasicIdentity", "1.0.0")

	err := env.regs.Schemas.CreateSchema(env.txFrom(issuer.account), issuer.account, id, issuer.did(), payload)
	require.NoError(t, err)

	record, err := env.regs.Schemas.ResolveSchema(id)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(record.Schema))
	assert.Equal(t, issuer.account, record.Metadata.Owner)
	assert.True(t, env.sink.has(SchemaRegistryName, "SchemaCreated"))
}

func TestCreateSchemaTwice(t *testing.T) {
	env := newTestEnv(t)
	issuer := newIdentity(t)
	env.createDid(t, issuer)
	id, payload := schemaFixture(t, issuer, "BasicIdentity", "1.0.0")
	tx := env.txFrom(issuer.account)

	require.NoError(t, env.regs.Schemas.CreateSchema(tx, issuer.account, id, issuer.did(), payload))
	err := env.regs.Schemas.CreateSchema(tx, issuer.account, id, issuer.did(), payload)
	require.ErrorIs(t, err, ErrSchemaAlreadyExist)
}

func TestCreateSchemaSigned(t *testing.T) {
	env := newTestEnv(t)
	issuer := newIdentity(t)
	relayer := newIdentity(t)
	env.createDid(t, issuer)
	id, payload := schemaFixture(t, issuer, "BasicIdentity", "1.0.0")

	digest := CreateSchemaDigest(testAddresses().SchemaRegistry, issuer.account, id, issuer.did(), payload)
	sig := issuer.sign(t, digest)

	err := env.regs.Schemas.CreateSchemaSigned(env.txFrom(relayer.account), issuer.account, sig, id, issuer.did(), payload)
	require.NoError(t, err)

	record, err := env.regs.Schemas.ResolveSchema(id)
	require.NoError(t, err)
	assert.Equal(t, issuer.account, record.Metadata.Owner)
	assert.Equal(t, relayer.account, record.Metadata.Sender)
}

func TestCreateSchemaRequiresIssuerIdentity(t *testing.T) {
	env := newTestEnv(t)
	issuer := newIdentity(t)
	stranger := newIdentity(t)
	env.createDid(t, issuer)
	id, payload := schemaFixture(t, issuer, "BasicIdentity", "1.0.0")

	err := env.regs.Schemas.CreateSchema(env.txFrom(stranger.account), issuer.account, id, issuer.did(), payload)
	require.ErrorIs(t, err, ErrNotIdentityOwner)
}

func TestCreateSchemaIssuerGuards(t *testing.T) {
	env := newTestEnv(t)
	issuer := newIdentity(t)
	id, payload := schemaFixture(t, issuer, "BasicIdentity", "1.0.0")
	tx := env.txFrom(issuer.account)

	// No DID registered for the issuer yet.
	err := env.regs.Schemas.CreateSchema(tx, issuer.account, id, issuer.did(), payload)
	require.ErrorIs(t, err, ErrIssuerNotFound)

	env.createDid(t, issuer)
	require.NoError(t, env.regs.Dids.DeactivateDid(tx, issuer.account))

	err = env.regs.Schemas.CreateSchema(tx, issuer.account, id, issuer.did(), payload)
	require.ErrorIs(t, err, ErrIssuerHasBeenDeactivated)
}

func TestCreateSchemaValidation(t *testing.T) {
	env := newTestEnv(t)
	issuer := newIdentity(t)
	env.createDid(t, issuer)
	id, payload := schemaFixture(t, issuer, "BasicIdentity", "1.0.0")
	tx := env.txFrom(issuer.account)

	err := env.regs.Schemas.CreateSchema(tx, issuer.account, id, issuer.did(), []byte(`{"attrNames":[]}`))
	require.ErrorIs(t, err, ErrInvalidSchema)

	// Id must be the keccak hash of the canonical schema id string.
	otherID, _ := schemaFixture(t, issuer, "BasicIdentity", "2.0.0")
	err = env.regs.Schemas.CreateSchema(tx, issuer.account, otherID, issuer.did(), payload)
	require.ErrorIs(t, err, ErrInvalidSchemaId)

	require.NoError(t, env.regs.Schemas.CreateSchema(tx, issuer.account, id, issuer.did(), payload))
}

func TestResolveSchemaMissing(t *testing.T) {
	env := newTestEnv(t)
	issuer := newIdentity(t)
	id, _ := schemaFixture(t, issuer, "BasicIdentity", "1.0.0")

	_, err := env.regs.Schemas.ResolveSchema(id)
	require.ErrorIs(t, err, ErrSchemaNotFound)
}
