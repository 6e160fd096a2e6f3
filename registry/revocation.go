package registry

import (
	"bytes"

	"github.com/ruteri/identity-registry-backend/endorsement"
	"github.com/ruteri/identity-registry-backend/interfaces"
)

// RevocationRegistry stores revocation registry definitions and publishes
// accumulator entries. Definitions are created active, may be suspended and
// reactivated by their owner or a trustee, and can be revoked terminally.
// Entries form a hash-chained accumulator history: only the latest
// accumulator is kept in state, the full history lives in the event log.
type RevocationRegistry struct {
	state    interfaces.StateStore
	events   EventSink
	contract interfaces.Account
	dids     *DidRegistry
	credDefs *CredentialDefinitionRegistry
	roles    *RoleControl
}

// NewRevocationRegistry creates the revocation registry.
func NewRevocationRegistry(state interfaces.StateStore, events EventSink, contract interfaces.Account, dids *DidRegistry, credDefs *CredentialDefinitionRegistry) *RevocationRegistry {
	return &RevocationRegistry{
		state:    state,
		events:   events,
		contract: contract,
		dids:     dids,
		credDefs: credDefs,
		roles:    dids.roles,
	}
}

// CreateRevocationRegistryDefinitionDigest is the canonical signing input
// digest for an endorsed createRevocationRegistryDefinition.
func CreateRevocationRegistryDefinitionDigest(contract, identity interfaces.Account, id interfaces.ResourceID, credDefID interfaces.ResourceID, issuerID string, revRegDef []byte) [32]byte {
	return endorsement.NewBuilder(contract, identity, "createRevocationRegistryDefinition").
		Bytes32(id).
		Bytes32(credDefID).
		String(issuerID).
		Bytes(revRegDef).
		Digest()
}

// SuspendRevocationRegistryDigest is the canonical signing input digest
// for an endorsed suspendRevocationRegistry.
func SuspendRevocationRegistryDigest(contract, identity interfaces.Account, id interfaces.ResourceID, versionID uint64) [32]byte {
	return endorsement.NewBuilder(contract, identity, "suspendRevocationRegistry").
		Bytes32(id).
		Uint64(versionID).
		Digest()
}

// ReactivateRevocationRegistryDigest is the canonical signing input digest
// for an endorsed reactivateRevocationRegistry.
func ReactivateRevocationRegistryDigest(contract, identity interfaces.Account, id interfaces.ResourceID, versionID uint64) [32]byte {
	return endorsement.NewBuilder(contract, identity, "reactivateRevocationRegistry").
		Bytes32(id).
		Uint64(versionID).
		Digest()
}

// RevokeRevocationRegistryDigest is the canonical signing input digest for
// an endorsed revokeRevocationRegistry.
func RevokeRevocationRegistryDigest(contract, identity interfaces.Account, id interfaces.ResourceID, versionID uint64) [32]byte {
	return endorsement.NewBuilder(contract, identity, "revokeRevocationRegistry").
		Bytes32(id).
		Uint64(versionID).
		Digest()
}

// CreateRevocationRegistryDefinition stores a new revocation registry
// definition. The sender must be the issuer identity.
func (r *RevocationRegistry) CreateRevocationRegistryDefinition(tx TxContext, identity interfaces.Account, id interfaces.ResourceID, credDefID interfaces.ResourceID, issuerID string, revRegDef []byte) error {
	return r.create(tx, identity, nil, id, credDefID, issuerID, revRegDef)
}

// CreateRevocationRegistryDefinitionSigned stores a new definition on
// behalf of the issuer identity, proven by its endorsement signature.
func (r *RevocationRegistry) CreateRevocationRegistryDefinitionSigned(tx TxContext, identity interfaces.Account, sig interfaces.SignatureData, id interfaces.ResourceID, credDefID interfaces.ResourceID, issuerID string, revRegDef []byte) error {
	return r.create(tx, identity, &sig, id, credDefID, issuerID, revRegDef)
}

func (r *RevocationRegistry) create(tx TxContext, identity interfaces.Account, sig *interfaces.SignatureData, id interfaces.ResourceID, credDefID interfaces.ResourceID, issuerID string, revRegDef []byte) error {
	var existing interfaces.RevocationRegistryRecord
	found, err := getJSON(r.state, bucketRevocations, id.Bytes(), &existing)
	if err != nil {
		return err
	}
	if found && existing.Metadata.Exists() {
		return ErrRevocationRegistryDefinitionAlreadyExist.With(id)
	}

	actor, err := resolveActor(tx, identity, sig, func() [32]byte {
		return CreateRevocationRegistryDefinitionDigest(r.contract, identity, id, credDefID, issuerID, revRegDef)
	})
	if err != nil {
		return err
	}
	if err := requireIdentity(actor, identity); err != nil {
		return err
	}

	parsed, err := interfaces.ParseRevocationRegistryDefinition(revRegDef)
	if err != nil {
		return ErrInvalidRevocationRegistryDefinition.With(err.Error())
	}
	if parsed.IssuerID != issuerID {
		return ErrInvalidRevocationRegistryDefinition.With("issuerId does not match definition payload")
	}

	owner, err := r.dids.EnsureActiveIssuer(issuerID)
	if err != nil {
		return err
	}
	if owner != identity {
		return ErrNotIdentityOwner.With(identity, owner)
	}

	credDefRecord, err := r.credDefs.ResolveCredentialDefinition(credDefID)
	if err != nil {
		return err
	}
	storedCredDef, err := interfaces.ParseCredentialDefinition(credDefRecord.CredDef)
	if err != nil {
		return ErrInvalidCredentialDefinition.With(err.Error())
	}
	if storedCredDef.IssuerID != issuerID {
		return ErrInvalidRevocationRegistryDefinition.With("issuer does not own referenced credential definition")
	}
	canonicalCredDefID := interfaces.CredDefIDString(storedCredDef.IssuerID, storedCredDef.SchemaID, storedCredDef.Tag)
	if parsed.CredDefID != canonicalCredDefID {
		return ErrInvalidRevocationRegistryDefinition.With("credDefId does not match referenced credential definition")
	}

	expected := interfaces.ResourceIDHash(interfaces.RevRegDefIDString(canonicalCredDefID, parsed.Tag))
	if id != expected {
		return ErrInvalidRevocationRegistryDefinitionId.With(id)
	}

	record := interfaces.RevocationRegistryRecord{
		RevRegDef: revRegDef,
		Metadata: interfaces.ResourceMetadata{
			Owner:     identity,
			Sender:    tx.Sender,
			Created:   tx.Time,
			Updated:   tx.Time,
			VersionID: 1,
		},
		Status: interfaces.RevocationActive,
	}
	if err := putJSON(r.state, bucketRevocations, id.Bytes(), &record); err != nil {
		return err
	}

	r.events.Emit(RevocationRegistryName, "RevocationRegistryDefinitionCreated", id, identity)
	return nil
}

// SuspendRevocationRegistry moves an active definition to suspended.
func (r *RevocationRegistry) SuspendRevocationRegistry(tx TxContext, identity interfaces.Account, id interfaces.ResourceID) error {
	return r.transition(tx, identity, nil, id, interfaces.RevocationSuspended)
}

// SuspendRevocationRegistrySigned suspends on behalf of the owner
// identity, proven by its endorsement over the record's current version.
func (r *RevocationRegistry) SuspendRevocationRegistrySigned(tx TxContext, identity interfaces.Account, sig interfaces.SignatureData, id interfaces.ResourceID) error {
	return r.transition(tx, identity, &sig, id, interfaces.RevocationSuspended)
}

// ReactivateRevocationRegistry moves a suspended definition back to
// active.
func (r *RevocationRegistry) ReactivateRevocationRegistry(tx TxContext, identity interfaces.Account, id interfaces.ResourceID) error {
	return r.transition(tx, identity, nil, id, interfaces.RevocationActive)
}

// ReactivateRevocationRegistrySigned reactivates on behalf of the owner
// identity, proven by its endorsement over the record's current version.
func (r *RevocationRegistry) ReactivateRevocationRegistrySigned(tx TxContext, identity interfaces.Account, sig interfaces.SignatureData, id interfaces.ResourceID) error {
	return r.transition(tx, identity, &sig, id, interfaces.RevocationActive)
}

// RevokeRevocationRegistry revokes a definition terminally.
func (r *RevocationRegistry) RevokeRevocationRegistry(tx TxContext, identity interfaces.Account, id interfaces.ResourceID) error {
	return r.transition(tx, identity, nil, id, interfaces.RevocationRevoked)
}

// RevokeRevocationRegistrySigned revokes on behalf of the owner identity,
// proven by its endorsement over the record's current version.
func (r *RevocationRegistry) RevokeRevocationRegistrySigned(tx TxContext, identity interfaces.Account, sig interfaces.SignatureData, id interfaces.ResourceID) error {
	return r.transition(tx, identity, &sig, id, interfaces.RevocationRevoked)
}

func (r *RevocationRegistry) transition(tx TxContext, identity interfaces.Account, sig *interfaces.SignatureData, id interfaces.ResourceID, target interfaces.RevocationStatus) error {
	record, err := r.loadRecord(id)
	if err != nil {
		return err
	}

	if record.Status == interfaces.RevocationRevoked {
		return ErrRevocationRegistryIsRevoked.With(id)
	}
	switch target {
	case interfaces.RevocationSuspended:
		if record.Status == interfaces.RevocationSuspended {
			return ErrRevocationRegistryIsSuspended.With(id)
		}
	case interfaces.RevocationActive:
		if record.Status != interfaces.RevocationSuspended {
			return ErrRevocationRegistryNotSuspended.With(id)
		}
	case interfaces.RevocationRevoked:
		// Any non-revoked status may be revoked.
	}

	digest := func() [32]byte {
		switch target {
		case interfaces.RevocationSuspended:
			return SuspendRevocationRegistryDigest(r.contract, identity, id, record.Metadata.VersionID)
		case interfaces.RevocationActive:
			return ReactivateRevocationRegistryDigest(r.contract, identity, id, record.Metadata.VersionID)
		default:
			return RevokeRevocationRegistryDigest(r.contract, identity, id, record.Metadata.VersionID)
		}
	}
	actor, err := resolveActor(tx, identity, sig, digest)
	if err != nil {
		return err
	}
	if err := requireOwnerOrTrustee(r.roles, actor, record.Metadata.Owner); err != nil {
		return err
	}

	record.Status = target
	record.Metadata.Updated = tx.Time
	record.Metadata.VersionID++
	if err := putJSON(r.state, bucketRevocations, id.Bytes(), &record); err != nil {
		return err
	}

	r.events.Emit(RevocationRegistryName, "RevocationRegistryStatusChanged", id, uint8(target))
	return nil
}

// CreateRevocationRegistryEntry publishes the next accumulator state for
// an active definition. The entry must chain onto the latest accumulator.
// Entries are emitted as events; only the latest accumulator stays in
// state.
func (r *RevocationRegistry) CreateRevocationRegistryEntry(tx TxContext, identity interfaces.Account, id interfaces.ResourceID, issuerID string, entry interfaces.RevocationRegistryEntry) error {
	record, err := r.loadRecord(id)
	if err != nil {
		return err
	}
	switch record.Status {
	case interfaces.RevocationSuspended:
		return ErrRevocationRegistryIsSuspended.With(id)
	case interfaces.RevocationRevoked:
		return ErrRevocationRegistryIsRevoked.With(id)
	}

	if err := requireIdentity(tx.Sender, identity); err != nil {
		return err
	}
	if identity != record.Metadata.Owner {
		return ErrNotIdentityOwner.With(identity, record.Metadata.Owner)
	}

	parsed, err := interfaces.ParseRevocationRegistryDefinition(record.RevRegDef)
	if err != nil {
		return ErrInvalidRevocationRegistryDefinition.With(err.Error())
	}
	if parsed.IssuerID != issuerID {
		return ErrInvalidRevocationRegistryDefinition.With("issuerId does not match definition")
	}

	if len(entry.CurrentAccum) == 0 {
		return ErrInvalidRevocationRegistryDefinition.With("currentAccum is required")
	}
	latest, err := r.state.Get(bucketAccumulators, id.Bytes())
	if err != nil {
		return err
	}
	if len(latest) == 0 {
		if len(entry.PrevAccum) != 0 {
			return ErrAccumulatorMismatch.With(id)
		}
	} else if !bytes.Equal(entry.PrevAccum, latest) {
		return ErrAccumulatorMismatch.With(id)
	}

	if err := r.state.Put(bucketAccumulators, id.Bytes(), entry.CurrentAccum); err != nil {
		return err
	}

	if entry.Timestamp == 0 {
		entry.Timestamp = uint64(tx.Time)
	}
	r.events.Emit(RevocationRegistryName, "RevocationRegistryEntryCreated", id, uint64(tx.Time), entry)
	return nil
}

// ResolveRevocationRegistryDefinition returns the stored definition record
// including its lifecycle status.
func (r *RevocationRegistry) ResolveRevocationRegistryDefinition(id interfaces.ResourceID) (interfaces.RevocationRegistryRecord, error) {
	return r.loadRecord(id)
}

// LatestAccumulator returns the most recent accumulator published for the
// definition, nil when no entry exists yet.
func (r *RevocationRegistry) LatestAccumulator(id interfaces.ResourceID) ([]byte, error) {
	if _, err := r.loadRecord(id); err != nil {
		return nil, err
	}
	return r.state.Get(bucketAccumulators, id.Bytes())
}

func (r *RevocationRegistry) loadRecord(id interfaces.ResourceID) (interfaces.RevocationRegistryRecord, error) {
	var record interfaces.RevocationRegistryRecord
	found, err := getJSON(r.state, bucketRevocations, id.Bytes(), &record)
	if err != nil {
		return interfaces.RevocationRegistryRecord{}, err
	}
	if !found || !record.Metadata.Exists() {
		return interfaces.RevocationRegistryRecord{}, ErrRevocationRegistryDefinitionNotFound.With(id)
	}
	return record, nil
}
