package registry

import (
	"testing"

	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// issuerWithSchema registers a DID and a schema for a fresh issuer and
// returns the issuer plus the schema's resource id and canonical string.
func issuerWithSchema(t *testing.T, env *testEnv) (identity, interfaces.ResourceID, string) {
	t.Helper()
	issuer := newIdentity(t)
	env.createDid(t, issuer)
	schemaID, schemaPayload := schemaFixture(t, issuer, "BasicIdentity", "1.0.0")
	err := env.regs.Schemas.CreateSchema(env.txFrom(issuer.account), issuer.account, schemaID, issuer.did(), schemaPayload)
	require.NoError(t, err)
	return issuer, schemaID, interfaces.SchemaIDString(issuer.did(), "BasicIdentity", "1.0.0")
}

func TestCreateAndResolveCredentialDefinition(t *testing.T) {
	env := newTestEnv(t)
	issuer, schemaID, schemaIDString := issuerWithSchema(t, env)
	id, payload := credDefFixture(t, issuer, schemaIDString, "default")

	err := env.regs.CredDefs.CreateCredentialDefinition(env.txFrom(issuer.account), issuer.account, id, issuer.did(), schemaID, payload)
	require.NoError(t, err)

	record, err := env.regs.CredDefs.ResolveCredentialDefinition(id)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(record.CredDef))
	assert.Equal(t, issuer.account, record.Metadata.Owner)
	assert.True(t, env.sink.has(CredentialDefinitionRegistryName, "CredentialDefinitionCreated"))
}

func TestCreateCredentialDefinitionTwice(t *testing.T) {
	env := newTestEnv(t)
	issuer, schemaID, schemaIDString := issuerWithSchema(t, env)
	id, payload := credDefFixture(t, issuer, schemaIDString, "default")
	tx := env.txFrom(issuer.account)

	require.NoError(t, env.regs.CredDefs.CreateCredentialDefinition(tx, issuer.account, id, issuer.did(), schemaID, payload))
	err := env.regs.CredDefs.CreateCredentialDefinition(tx, issuer.account, id, issuer.did(), schemaID, payload)
	require.ErrorIs(t, err, ErrCredentialDefinitionAlreadyExist)
}

func TestCreateCredentialDefinitionSigned(t *testing.T) {
	env := newTestEnv(t)
	issuer, schemaID, schemaIDString := issuerWithSchema(t, env)
	relayer := newIdentity(t)
	id, payload := credDefFixture(t, issuer, schemaIDString, "default")

	digest := CreateCredentialDefinitionDigest(testAddresses().CredentialDefinitionRegistry, issuer.account, id, issuer.did(), schemaID, payload)
	sig := issuer.sign(t, digest)

	err := env.regs.CredDefs.CreateCredentialDefinitionSigned(env.txFrom(relayer.account), issuer.account, sig, id, issuer.did(), schemaID, payload)
	require.NoError(t, err)

	record, err := env.regs.CredDefs.ResolveCredentialDefinition(id)
	require.NoError(t, err)
	assert.Equal(t, relayer.account, record.Metadata.Sender)
}

func TestCreateCredentialDefinitionRequiresSchema(t *testing.T) {
	env := newTestEnv(t)
	issuer := newIdentity(t)
	env.createDid(t, issuer)
	schemaIDString := interfaces.SchemaIDString(issuer.did(), "BasicIdentity", "1.0.0")
	missingSchemaID := interfaces.ResourceIDHash(schemaIDString)
	id, payload := credDefFixture(t, issuer, schemaIDString, "default")

	err := env.regs.CredDefs.CreateCredentialDefinition(env.txFrom(issuer.account), issuer.account, id, issuer.did(), missingSchemaID, payload)
	require.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestCreateCredentialDefinitionSchemaMismatch(t *testing.T) {
	env := newTestEnv(t)
	issuer, schemaID, _ := issuerWithSchema(t, env)

	// Payload references a different schema than the one passed by id.
	otherSchemaIDString := interfaces.SchemaIDString(issuer.did(), "OtherSchema", "1.0.0")
	id, payload := credDefFixture(t, issuer, otherSchemaIDString, "default")

	err := env.regs.CredDefs.CreateCredentialDefinition(env.txFrom(issuer.account), issuer.account, id, issuer.did(), schemaID, payload)
	require.ErrorIs(t, err, ErrInvalidCredentialDefinition)
}

func TestCreateCredentialDefinitionIdValidation(t *testing.T) {
	env := newTestEnv(t)
	issuer, schemaID, schemaIDString := issuerWithSchema(t, env)
	_, payload := credDefFixture(t, issuer, schemaIDString, "default")
	wrongID, _ := credDefFixture(t, issuer, schemaIDString, "other-tag")

	err := env.regs.CredDefs.CreateCredentialDefinition(env.txFrom(issuer.account), issuer.account, wrongID, issuer.did(), schemaID, payload)
	require.ErrorIs(t, err, ErrInvalidCredentialDefinitionId)
}

func TestCreateCredentialDefinitionDeactivatedIssuer(t *testing.T) {
	env := newTestEnv(t)
	issuer, schemaID, schemaIDString := issuerWithSchema(t, env)
	id, payload := credDefFixture(t, issuer, schemaIDString, "default")
	tx := env.txFrom(issuer.account)

	require.NoError(t, env.regs.Dids.DeactivateDid(tx, issuer.account))

	err := env.regs.CredDefs.CreateCredentialDefinition(tx, issuer.account, id, issuer.did(), schemaID, payload)
	require.ErrorIs(t, err, ErrIssuerHasBeenDeactivated)
}

func TestResolveCredentialDefinitionMissing(t *testing.T) {
	env := newTestEnv(t)
	issuer := newIdentity(t)
	id, _ := credDefFixture(t, issuer, "unknown-schema", "default")

	_, err := env.regs.CredDefs.ResolveCredentialDefinition(id)
	require.ErrorIs(t, err, ErrCredentialDefinitionNotFound)
}
