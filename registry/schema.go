package registry

import (
	"github.com/ruteri/identity-registry-backend/endorsement"
	"github.com/ruteri/identity-registry-backend/interfaces"
)

// SchemaRegistry stores credential schemas. Schemas are immutable
// create-once records owned by the issuer DID's identity.
type SchemaRegistry struct {
	state    interfaces.StateStore
	events   EventSink
	contract interfaces.Account
	dids     *DidRegistry
}

// NewSchemaRegistry creates the schema registry.
func NewSchemaRegistry(state interfaces.StateStore, events EventSink, contract interfaces.Account, dids *DidRegistry) *SchemaRegistry {
	return &SchemaRegistry{state: state, events: events, contract: contract, dids: dids}
}

// CreateSchemaDigest is the canonical signing input digest for an endorsed
// createSchema.
func CreateSchemaDigest(contract, identity interfaces.Account, id interfaces.ResourceID, issuerID string, schema []byte) [32]byte {
	return endorsement.NewBuilder(contract, identity, "createSchema").
		Bytes32(id).
		String(issuerID).
		Bytes(schema).
		Digest()
}

// CreateSchema stores a new schema. The sender must be the issuer identity.
func (s *SchemaRegistry) CreateSchema(tx TxContext, identity interfaces.Account, id interfaces.ResourceID, issuerID string, schema []byte) error {
	return s.create(tx, identity, nil, id, issuerID, schema)
}

// CreateSchemaSigned stores a new schema on behalf of the issuer identity,
// proven by its endorsement signature.
func (s *SchemaRegistry) CreateSchemaSigned(tx TxContext, identity interfaces.Account, sig interfaces.SignatureData, id interfaces.ResourceID, issuerID string, schema []byte) error {
	return s.create(tx, identity, &sig, id, issuerID, schema)
}

func (s *SchemaRegistry) create(tx TxContext, identity interfaces.Account, sig *interfaces.SignatureData, id interfaces.ResourceID, issuerID string, schema []byte) error {
	var existing interfaces.SchemaRecord
	found, err := getJSON(s.state, bucketSchemas, id.Bytes(), &existing)
	if err != nil {
		return err
	}
	if found && existing.Metadata.Exists() {
		return ErrSchemaAlreadyExist.With(id)
	}

	actor, err := resolveActor(tx, identity, sig, func() [32]byte {
		return CreateSchemaDigest(s.contract, identity, id, issuerID, schema)
	})
	if err != nil {
		return err
	}
	if err := requireIdentity(actor, identity); err != nil {
		return err
	}

	parsed, err := interfaces.ParseSchema(schema)
	if err != nil {
		return ErrInvalidSchema.With(err.Error())
	}
	if parsed.IssuerID != issuerID {
		return ErrInvalidSchema.With("issuerId does not match schema payload")
	}

	owner, err := s.dids.EnsureActiveIssuer(issuerID)
	if err != nil {
		return err
	}
	if owner != identity {
		return ErrNotIdentityOwner.With(identity, owner)
	}

	expected := interfaces.ResourceIDHash(interfaces.SchemaIDString(issuerID, parsed.Name, parsed.Version))
	if id != expected {
		return ErrInvalidSchemaId.With(id)
	}

	record := interfaces.SchemaRecord{
		Schema: schema,
		Metadata: interfaces.ResourceMetadata{
			Owner:     identity,
			Sender:    tx.Sender,
			Created:   tx.Time,
			Updated:   tx.Time,
			VersionID: 1,
		},
	}
	if err := putJSON(s.state, bucketSchemas, id.Bytes(), &record); err != nil {
		return err
	}

	s.events.Emit(SchemaRegistryName, "SchemaCreated", id, identity)
	return nil
}

// ResolveSchema returns the stored schema record.
func (s *SchemaRegistry) ResolveSchema(id interfaces.ResourceID) (interfaces.SchemaRecord, error) {
	var record interfaces.SchemaRecord
	found, err := getJSON(s.state, bucketSchemas, id.Bytes(), &record)
	if err != nil {
		return interfaces.SchemaRecord{}, err
	}
	if !found || !record.Metadata.Exists() {
		return interfaces.SchemaRecord{}, ErrSchemaNotFound.With(id)
	}
	return record, nil
}
