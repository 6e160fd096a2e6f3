package registry

import (
	"github.com/ruteri/identity-registry-backend/endorsement"
	"github.com/ruteri/identity-registry-backend/interfaces"
)

// CredentialDefinitionRegistry stores credential definitions. Definitions
// are immutable create-once records bound to an existing schema and an
// active issuer DID.
type CredentialDefinitionRegistry struct {
	state    interfaces.StateStore
	events   EventSink
	contract interfaces.Account
	dids     *DidRegistry
	schemas  *SchemaRegistry
}

// NewCredentialDefinitionRegistry creates the credential definition
// registry.
func NewCredentialDefinitionRegistry(state interfaces.StateStore, events EventSink, contract interfaces.Account, dids *DidRegistry, schemas *SchemaRegistry) *CredentialDefinitionRegistry {
	return &CredentialDefinitionRegistry{state: state, events: events, contract: contract, dids: dids, schemas: schemas}
}

// CreateCredentialDefinitionDigest is the canonical signing input digest
// for an endorsed createCredentialDefinition.
func CreateCredentialDefinitionDigest(contract, identity interfaces.Account, id interfaces.ResourceID, issuerID string, schemaID interfaces.ResourceID, credDef []byte) [32]byte {
	return endorsement.NewBuilder(contract, identity, "createCredentialDefinition").
		Bytes32(id).
		String(issuerID).
		Bytes32(schemaID).
		Bytes(credDef).
		Digest()
}

// CreateCredentialDefinition stores a new credential definition. The
// sender must be the issuer identity.
func (c *CredentialDefinitionRegistry) CreateCredentialDefinition(tx TxContext, identity interfaces.Account, id interfaces.ResourceID, issuerID string, schemaID interfaces.ResourceID, credDef []byte) error {
	return c.create(tx, identity, nil, id, issuerID, schemaID, credDef)
}

// CreateCredentialDefinitionSigned stores a new credential definition on
// behalf of the issuer identity, proven by its endorsement signature.
func (c *CredentialDefinitionRegistry) CreateCredentialDefinitionSigned(tx TxContext, identity interfaces.Account, sig interfaces.SignatureData, id interfaces.ResourceID, issuerID string, schemaID interfaces.ResourceID, credDef []byte) error {
	return c.create(tx, identity, &sig, id, issuerID, schemaID, credDef)
}

func (c *CredentialDefinitionRegistry) create(tx TxContext, identity interfaces.Account, sig *interfaces.SignatureData, id interfaces.ResourceID, issuerID string, schemaID interfaces.ResourceID, credDef []byte) error {
	var existing interfaces.CredentialDefinitionRecord
	found, err := getJSON(c.state, bucketCredDefs, id.Bytes(), &existing)
	if err != nil {
		return err
	}
	if found && existing.Metadata.Exists() {
		return ErrCredentialDefinitionAlreadyExist.With(id)
	}

	actor, err := resolveActor(tx, identity, sig, func() [32]byte {
		return CreateCredentialDefinitionDigest(c.contract, identity, id, issuerID, schemaID, credDef)
	})
	if err != nil {
		return err
	}
	if err := requireIdentity(actor, identity); err != nil {
		return err
	}

	parsed, err := interfaces.ParseCredentialDefinition(credDef)
	if err != nil {
		return ErrInvalidCredentialDefinition.With(err.Error())
	}
	if parsed.IssuerID != issuerID {
		return ErrInvalidCredentialDefinition.With("issuerId does not match credential definition payload")
	}

	owner, err := c.dids.EnsureActiveIssuer(issuerID)
	if err != nil {
		return err
	}
	if owner != identity {
		return ErrNotIdentityOwner.With(identity, owner)
	}

	schemaRecord, err := c.schemas.ResolveSchema(schemaID)
	if err != nil {
		return err
	}
	storedSchema, err := interfaces.ParseSchema(schemaRecord.Schema)
	if err != nil {
		return ErrInvalidSchema.With(err.Error())
	}
	canonicalSchemaID := interfaces.SchemaIDString(storedSchema.IssuerID, storedSchema.Name, storedSchema.Version)
	if parsed.SchemaID != canonicalSchemaID {
		return ErrInvalidCredentialDefinition.With("schemaId does not match referenced schema")
	}

	expected := interfaces.ResourceIDHash(interfaces.CredDefIDString(issuerID, canonicalSchemaID, parsed.Tag))
	if id != expected {
		return ErrInvalidCredentialDefinitionId.With(id)
	}

	record := interfaces.CredentialDefinitionRecord{
		CredDef: credDef,
		Metadata: interfaces.ResourceMetadata{
			Owner:     identity,
			Sender:    tx.Sender,
			Created:   tx.Time,
			Updated:   tx.Time,
			VersionID: 1,
		},
	}
	if err := putJSON(c.state, bucketCredDefs, id.Bytes(), &record); err != nil {
		return err
	}

	c.events.Emit(CredentialDefinitionRegistryName, "CredentialDefinitionCreated", id, identity)
	return nil
}

// ResolveCredentialDefinition returns the stored credential definition
// record.
func (c *CredentialDefinitionRegistry) ResolveCredentialDefinition(id interfaces.ResourceID) (interfaces.CredentialDefinitionRecord, error) {
	var record interfaces.CredentialDefinitionRecord
	found, err := getJSON(c.state, bucketCredDefs, id.Bytes(), &record)
	if err != nil {
		return interfaces.CredentialDefinitionRecord{}, err
	}
	if !found || !record.Metadata.Exists() {
		return interfaces.CredentialDefinitionRecord{}, ErrCredentialDefinitionNotFound.With(id)
	}
	return record, nil
}
