package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/node"
	"github.com/ruteri/identity-registry-backend/registry"
	"github.com/ruteri/identity-registry-backend/signer"
	"github.com/ruteri/identity-registry-backend/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known dev trustee key, the zeroth account of the usual dev chains.
const devTrusteeKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type clientEnv struct {
	client  *Client
	signer  *signer.Basic
	trustee interfaces.Account
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newClientEnv runs the SDK against an in-process development ledger.
func newClientEnv(t *testing.T) *clientEnv {
	t.Helper()

	keys := signer.NewBasic()
	trustee, err := keys.ImportHex(devTrusteeKeyHex)
	require.NoError(t, err)

	ledger, err := node.NewLedger(state.NewMemoryStore(), node.Config{
		Genesis: registry.Genesis{Trustees: []interfaces.Account{trustee}},
		Log:     discardLogger(),
	})
	require.NoError(t, err)

	c, err := New(Config{
		Backends: []interfaces.LedgerBackend{node.NewBackend(ledger)},
		Log:      discardLogger(),
	})
	require.NoError(t, err)

	return &clientEnv{client: c, signer: keys, trustee: trustee}
}

func (e *clientEnv) newIdentity(t *testing.T) interfaces.Account {
	t.Helper()
	account, err := e.signer.Generate()
	require.NoError(t, err)
	return account
}

func didDocument(t *testing.T, account interfaces.Account) (string, []byte) {
	t.Helper()
	did := interfaces.BuildDid(interfaces.DidMethodEthr, account)
	doc := interfaces.NewBasicDIDDocument(did, "zHxwoxJN2qWBtQ9hXT7rtgGz1aHiMvIo")
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return did, raw
}

func TestCreateAndResolveDid(t *testing.T) {
	env := newClientEnv(t)
	ctx := context.Background()
	identity := env.newIdentity(t)
	did, doc := didDocument(t, identity)

	receipt, err := env.client.CreateDid(ctx, env.signer, identity, doc)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	record, err := env.client.ResolveDid(ctx, did)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(doc), record.Document)
	assert.Equal(t, identity, record.Metadata.Owner)
	assert.Equal(t, identity, record.Metadata.Sender)
	assert.Equal(t, uint64(1), record.Metadata.VersionID)

	// DID URLs resolve the base DID.
	record, err = env.client.ResolveDid(ctx, did+"/path?query=1#fragment")
	require.NoError(t, err)
	assert.Equal(t, identity, record.Metadata.Owner)
}

func TestRevertSurfacesTaxonomyError(t *testing.T) {
	env := newClientEnv(t)
	ctx := context.Background()
	identity := env.newIdentity(t)
	_, doc := didDocument(t, identity)

	_, err := env.client.CreateDid(ctx, env.signer, identity, doc)
	require.NoError(t, err)

	_, err = env.client.CreateDid(ctx, env.signer, identity, doc)
	require.ErrorIs(t, err, registry.ErrDidAlreadyExist)

	_, err = env.client.ResolveDidAccount(ctx, env.newIdentity(t))
	require.ErrorIs(t, err, registry.ErrDidNotFound)
}

func TestRoleLifecycle(t *testing.T) {
	env := newClientEnv(t)
	ctx := context.Background()
	endorser := env.newIdentity(t)

	_, err := env.client.AssignRole(ctx, env.signer, env.trustee, interfaces.RoleEndorser, endorser)
	require.NoError(t, err)

	role, err := env.client.GetRole(ctx, endorser)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RoleEndorser, role)

	has, err := env.client.HasRole(ctx, interfaces.RoleEndorser, endorser)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = env.client.RevokeRole(ctx, env.signer, env.trustee, interfaces.RoleEndorser, endorser)
	require.NoError(t, err)

	role, err = env.client.GetRole(ctx, endorser)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RoleEmpty, role)

	// The last trustee is floored.
	_, err = env.client.RevokeRole(ctx, env.signer, env.trustee, interfaces.RoleTrustee, env.trustee)
	require.ErrorIs(t, err, registry.ErrCannotRevokeLastTrustee)
}

func TestValidatorSet(t *testing.T) {
	env := newClientEnv(t)
	ctx := context.Background()
	validator := env.newIdentity(t)

	_, err := env.client.AddValidator(ctx, env.signer, env.trustee, validator)
	require.NoError(t, err)

	validators, err := env.client.GetValidators(ctx)
	require.NoError(t, err)
	assert.Contains(t, validators, validator)

	// The last validator is floored.
	_, err = env.client.RemoveValidator(ctx, env.signer, env.trustee, validator)
	require.ErrorIs(t, err, registry.ErrCannotDeactivateLastValidator)
}

// issuerChain walks an issuer through DID, schema and credential
// definition creation, returning the revocation registry definition
// payload ready for creation.
func issuerChain(t *testing.T, env *clientEnv, identity interfaces.Account) (interfaces.ResourceID, []byte) {
	t.Helper()
	ctx := context.Background()
	did, doc := didDocument(t, identity)

	_, err := env.client.CreateDid(ctx, env.signer, identity, doc)
	require.NoError(t, err)

	schemaPayload, err := json.Marshal(interfaces.Schema{
		IssuerID:  did,
		Name:      "BasicIdentity",
		Version:   "1.0.0",
		AttrNames: []string{"first_name", "last_name"},
	})
	require.NoError(t, err)
	schemaID, _, err := env.client.CreateSchema(ctx, env.signer, schemaPayload)
	require.NoError(t, err)

	schemaIDString := interfaces.SchemaIDString(did, "BasicIdentity", "1.0.0")
	credDefPayload, err := json.Marshal(interfaces.CredentialDefinition{
		IssuerID:    did,
		SchemaID:    schemaIDString,
		CredDefType: interfaces.CredDefTypeCL,
		Tag:         "default",
		Value:       json.RawMessage(`{"n":"0954456694171"}`),
	})
	require.NoError(t, err)
	_, _, err = env.client.CreateCredentialDefinition(ctx, env.signer, credDefPayload)
	require.NoError(t, err)

	credDefIDString := interfaces.CredDefIDString(did, schemaIDString, "default")
	revRegPayload, err := json.Marshal(interfaces.RevocationRegistryDefinition{
		IssuerID:     did,
		RevocDefType: interfaces.RevocDefTypeCLAccum,
		CredDefID:    credDefIDString,
		Tag:          "reg1",
		Value: interfaces.RevocationRegistryDefinitionValue{
			MaxCredNum:    8,
			PublicKeys:    interfaces.RevocationRegistryPublicKeys{AccumKey: interfaces.AccumulatorKey{Z: "1 0BB"}},
			TailsHash:     "91zvq2cFmBZmHCcLqFyzv7bfehHH5rMhdAG5wTjqy2PE",
			TailsLocation: "https://tails.example/91zvq2cFmBZmHCcLqFyzv7bfehHH5rMhdAG5wTjqy2PE",
		},
	})
	require.NoError(t, err)

	return schemaID, revRegPayload
}

func TestSchemaAndCredDefResolution(t *testing.T) {
	env := newClientEnv(t)
	ctx := context.Background()
	identity := env.newIdentity(t)
	did, _ := didDocument(t, identity)
	schemaID, _ := issuerChain(t, env, identity)

	record, err := env.client.ResolveSchema(ctx, schemaID)
	require.NoError(t, err)
	var schema interfaces.Schema
	require.NoError(t, json.Unmarshal(record.Schema, &schema))
	assert.Equal(t, "BasicIdentity", schema.Name)
	assert.Equal(t, identity, record.Metadata.Owner)

	// The canonical id string re-derives the same record.
	byID, err := env.client.ResolveSchemaByID(ctx, interfaces.SchemaIDString(did, "BasicIdentity", "1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, record, byID)

	credDefRecord, err := env.client.ResolveCredentialDefinitionByID(ctx,
		interfaces.CredDefIDString(did, interfaces.SchemaIDString(did, "BasicIdentity", "1.0.0"), "default"))
	require.NoError(t, err)
	assert.Equal(t, identity, credDefRecord.Metadata.Owner)
}

func TestRevocationDeltaAndStatusList(t *testing.T) {
	env := newClientEnv(t)
	ctx := context.Background()
	identity := env.newIdentity(t)
	did, _ := didDocument(t, identity)
	_, revRegPayload := issuerChain(t, env, identity)

	revRegID, _, err := env.client.CreateRevocationRegistryDefinition(ctx, env.signer, revRegPayload)
	require.NoError(t, err)

	_, err = env.client.CreateRevocationRegistryEntry(ctx, env.signer, identity, revRegID, did,
		interfaces.RevocationRegistryEntry{
			CurrentAccum: []byte{0x21, 0x01},
			Issued:       []uint32{1, 2, 3},
		})
	require.NoError(t, err)

	_, err = env.client.CreateRevocationRegistryEntry(ctx, env.signer, identity, revRegID, did,
		interfaces.RevocationRegistryEntry{
			CurrentAccum: []byte{0x21, 0x02},
			PrevAccum:    []byte{0x21, 0x01},
			Revoked:      []uint32{2},
		})
	require.NoError(t, err)

	delta, err := env.client.FetchRevocationDelta(ctx, revRegID, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x21, 0x02}, delta.Accum)
	assert.Equal(t, []uint32{1, 3}, delta.Issued)
	assert.Equal(t, []uint32{2}, delta.Revoked)
	assert.NotZero(t, delta.Timestamp)

	statusList := BuildStatusList(delta, 8)
	assert.Equal(t, []uint8{0, 1, 0, 0, 0, 0, 0, 0}, statusList)

	accum, err := env.client.GetLatestAccumulator(ctx, revRegID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x21, 0x02}, accum)
}

func TestRevocationDeltaTimestampFilter(t *testing.T) {
	env := newClientEnv(t)
	ctx := context.Background()
	identity := env.newIdentity(t)
	did, _ := didDocument(t, identity)
	_, revRegPayload := issuerChain(t, env, identity)

	revRegID, _, err := env.client.CreateRevocationRegistryDefinition(ctx, env.signer, revRegPayload)
	require.NoError(t, err)

	// Entry timestamps are caller-supplied, so ledger order does not
	// imply timestamp order.
	_, err = env.client.CreateRevocationRegistryEntry(ctx, env.signer, identity, revRegID, did,
		interfaces.RevocationRegistryEntry{
			CurrentAccum: []byte{0x21, 0x01},
			Issued:       []uint32{1},
			Timestamp:    200,
		})
	require.NoError(t, err)

	_, err = env.client.CreateRevocationRegistryEntry(ctx, env.signer, identity, revRegID, did,
		interfaces.RevocationRegistryEntry{
			CurrentAccum: []byte{0x21, 0x02},
			PrevAccum:    []byte{0x21, 0x01},
			Issued:       []uint32{2},
			Timestamp:    100,
		})
	require.NoError(t, err)

	// An out-of-order early entry still folds into a filtered delta.
	delta, err := env.client.FetchRevocationDelta(ctx, revRegID, 150)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2}, delta.Issued)
	assert.Equal(t, []byte{0x21, 0x02}, delta.Accum)
	assert.Equal(t, uint64(100), delta.Timestamp)

	delta, err = env.client.FetchRevocationDelta(ctx, revRegID, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, delta.Issued)
}

func TestRevocationStatusTransitions(t *testing.T) {
	env := newClientEnv(t)
	ctx := context.Background()
	identity := env.newIdentity(t)
	_, revRegPayload := issuerChain(t, env, identity)

	revRegID, _, err := env.client.CreateRevocationRegistryDefinition(ctx, env.signer, revRegPayload)
	require.NoError(t, err)

	_, err = env.client.SuspendRevocationRegistry(ctx, env.signer, identity, revRegID)
	require.NoError(t, err)
	record, err := env.client.ResolveRevocationRegistryDefinition(ctx, revRegID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RevocationSuspended, record.Status)

	_, err = env.client.ReactivateRevocationRegistry(ctx, env.signer, identity, revRegID)
	require.NoError(t, err)

	_, err = env.client.RevokeRevocationRegistry(ctx, env.signer, identity, revRegID)
	require.NoError(t, err)

	_, err = env.client.ReactivateRevocationRegistry(ctx, env.signer, identity, revRegID)
	require.ErrorIs(t, err, registry.ErrRevocationRegistryIsRevoked)
}

func TestUpgradeQuorumOverClient(t *testing.T) {
	env := newClientEnv(t)
	ctx := context.Background()

	// Three trustees, majority threshold two.
	second := env.newIdentity(t)
	third := env.newIdentity(t)
	_, err := env.client.AssignRole(ctx, env.signer, env.trustee, interfaces.RoleTrustee, second)
	require.NoError(t, err)
	_, err = env.client.AssignRole(ctx, env.signer, env.trustee, interfaces.RoleTrustee, third)
	require.NoError(t, err)

	proxy := env.client.Contracts().Addresses().DidRegistry
	implementation := env.newIdentity(t)

	_, err = env.client.ProposeUpgrade(ctx, env.signer, env.trustee, proxy, implementation)
	require.NoError(t, err)
	require.ErrorIs(t, env.client.CheckSufficientApprovals(ctx, proxy, implementation), registry.ErrInsufficientApprovals)

	_, err = env.client.ApproveUpgrade(ctx, env.signer, env.trustee, proxy, implementation)
	require.NoError(t, err)
	require.ErrorIs(t, env.client.CheckSufficientApprovals(ctx, proxy, implementation), registry.ErrInsufficientApprovals)

	_, err = env.client.ApproveUpgrade(ctx, env.signer, second, proxy, implementation)
	require.NoError(t, err)
	require.NoError(t, env.client.CheckSufficientApprovals(ctx, proxy, implementation))

	active, err := env.client.GetActiveImplementation(ctx, proxy)
	require.NoError(t, err)
	assert.Equal(t, implementation, active)

	proposal, err := env.client.GetUpgradeProposal(ctx, proxy, implementation)
	require.NoError(t, err)
	assert.True(t, proposal.Applied)
	assert.Len(t, proposal.Approvals, 2)
}
