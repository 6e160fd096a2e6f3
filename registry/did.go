package registry

import (
	"github.com/ruteri/identity-registry-backend/endorsement"
	"github.com/ruteri/identity-registry-backend/interfaces"
)

// DidRegistry stores DID documents keyed by the identity account embedded
// in the DID. Records are created active, may be updated while active, and
// can be deactivated by their owner or a trustee. Deactivation is terminal:
// a deactivated DID rejects updates and blocks new resources that name it
// as issuer.
type DidRegistry struct {
	state    interfaces.StateStore
	events   EventSink
	contract interfaces.Account
	roles    *RoleControl
}

// NewDidRegistry creates the DID registry. contract is the registry's own
// deployment address, bound into every endorsement digest.
func NewDidRegistry(state interfaces.StateStore, events EventSink, contract interfaces.Account, roles *RoleControl) *DidRegistry {
	return &DidRegistry{state: state, events: events, contract: contract, roles: roles}
}

// CreateDidDigest is the canonical signing input digest for an endorsed
// createDid.
func CreateDidDigest(contract, identity interfaces.Account, document []byte) [32]byte {
	return endorsement.NewBuilder(contract, identity, "createDid").
		Bytes(document).
		Digest()
}

// UpdateDidDigest is the canonical signing input digest for an endorsed
// updateDid. The record's current version binds the endorsement to one
// state, so a captured signature cannot be replayed later.
func UpdateDidDigest(contract, identity interfaces.Account, versionID uint64, document []byte) [32]byte {
	return endorsement.NewBuilder(contract, identity, "updateDid").
		Uint64(versionID).
		Bytes(document).
		Digest()
}

// DeactivateDidDigest is the canonical signing input digest for an
// endorsed deactivateDid.
func DeactivateDidDigest(contract, identity interfaces.Account, versionID uint64) [32]byte {
	return endorsement.NewBuilder(contract, identity, "deactivateDid").
		Uint64(versionID).
		Digest()
}

// CreateDid stores a new DID document for identity. The sender must be the
// identity itself or hold a privileged role.
func (d *DidRegistry) CreateDid(tx TxContext, identity interfaces.Account, document []byte) error {
	return d.create(tx, identity, nil, document)
}

// CreateDidSigned stores a new DID document on behalf of identity, proven
// by identity's endorsement signature. Any funded sender may submit it.
func (d *DidRegistry) CreateDidSigned(tx TxContext, identity interfaces.Account, sig interfaces.SignatureData, document []byte) error {
	return d.create(tx, identity, &sig, document)
}

func (d *DidRegistry) create(tx TxContext, identity interfaces.Account, sig *interfaces.SignatureData, document []byte) error {
	record, found, err := d.load(identity)
	if err != nil {
		return err
	}
	if found && record.Metadata.Exists() {
		return ErrDidAlreadyExist.With(identity)
	}

	actor, err := resolveActor(tx, identity, sig, func() [32]byte {
		return CreateDidDigest(d.contract, identity, document)
	})
	if err != nil {
		return err
	}
	if actor != identity {
		privileged, err := d.roles.HasAnyRole(actor, interfaces.RoleTrustee, interfaces.RoleEndorser, interfaces.RoleSteward)
		if err != nil {
			return err
		}
		if !privileged {
			return ErrUnauthorized.With(actor)
		}
	}

	if err := d.validateDocument(identity, document); err != nil {
		return err
	}

	record = interfaces.DidRecord{
		Document: document,
		Metadata: interfaces.DidMetadata{
			ResourceMetadata: interfaces.ResourceMetadata{
				Owner:     identity,
				Sender:    tx.Sender,
				Created:   tx.Time,
				Updated:   tx.Time,
				VersionID: 1,
			},
		},
	}
	if err := putJSON(d.state, bucketDids, identity.Bytes(), &record); err != nil {
		return err
	}

	d.events.Emit(DidRegistryName, "DIDCreated", identity)
	return nil
}

// UpdateDid replaces the stored document. Only the record owner or a
// trustee may update, and deactivated DIDs reject updates.
func (d *DidRegistry) UpdateDid(tx TxContext, identity interfaces.Account, document []byte) error {
	return d.update(tx, identity, nil, document)
}

// UpdateDidSigned replaces the stored document on behalf of identity,
// proven by identity's endorsement over the record's current version.
func (d *DidRegistry) UpdateDidSigned(tx TxContext, identity interfaces.Account, sig interfaces.SignatureData, document []byte) error {
	return d.update(tx, identity, &sig, document)
}

func (d *DidRegistry) update(tx TxContext, identity interfaces.Account, sig *interfaces.SignatureData, document []byte) error {
	record, err := d.loadActive(identity)
	if err != nil {
		return err
	}

	actor, err := resolveActor(tx, identity, sig, func() [32]byte {
		return UpdateDidDigest(d.contract, identity, record.Metadata.VersionID, document)
	})
	if err != nil {
		return err
	}
	if err := requireOwnerOrTrustee(d.roles, actor, record.Metadata.Owner); err != nil {
		return err
	}

	if err := d.validateDocument(identity, document); err != nil {
		return err
	}

	record.Document = document
	record.Metadata.Updated = tx.Time
	record.Metadata.VersionID++
	if err := putJSON(d.state, bucketDids, identity.Bytes(), &record); err != nil {
		return err
	}

	d.events.Emit(DidRegistryName, "DIDUpdated", identity)
	return nil
}

// DeactivateDid marks the DID deactivated. Deactivation is terminal.
func (d *DidRegistry) DeactivateDid(tx TxContext, identity interfaces.Account) error {
	return d.deactivate(tx, identity, nil)
}

// DeactivateDidSigned deactivates on behalf of identity, proven by
// identity's endorsement over the record's current version.
func (d *DidRegistry) DeactivateDidSigned(tx TxContext, identity interfaces.Account, sig interfaces.SignatureData) error {
	return d.deactivate(tx, identity, &sig)
}

func (d *DidRegistry) deactivate(tx TxContext, identity interfaces.Account, sig *interfaces.SignatureData) error {
	record, err := d.loadActive(identity)
	if err != nil {
		return err
	}

	actor, err := resolveActor(tx, identity, sig, func() [32]byte {
		return DeactivateDidDigest(d.contract, identity, record.Metadata.VersionID)
	})
	if err != nil {
		return err
	}
	if err := requireOwnerOrTrustee(d.roles, actor, record.Metadata.Owner); err != nil {
		return err
	}

	record.Metadata.Deactivated = true
	record.Metadata.Updated = tx.Time
	record.Metadata.VersionID++
	if err := putJSON(d.state, bucketDids, identity.Bytes(), &record); err != nil {
		return err
	}

	d.events.Emit(DidRegistryName, "DIDDeactivated", identity)
	return nil
}

// ResolveDid returns the stored record for identity.
func (d *DidRegistry) ResolveDid(identity interfaces.Account) (interfaces.DidRecord, error) {
	record, found, err := d.load(identity)
	if err != nil {
		return interfaces.DidRecord{}, err
	}
	if !found || !record.Metadata.Exists() {
		return interfaces.DidRecord{}, ErrDidNotFound.With(identity)
	}
	return record, nil
}

// EnsureActiveIssuer resolves an issuer DID string and requires the DID to
// exist and be active. It returns the record owner, the identity dependent
// registries check resource ownership against.
func (d *DidRegistry) EnsureActiveIssuer(issuerDid string) (interfaces.Account, error) {
	identity, err := interfaces.DidAccount(issuerDid)
	if err != nil {
		return interfaces.Account{}, ErrIncorrectDid.With(issuerDid)
	}

	record, found, err := d.load(identity)
	if err != nil {
		return interfaces.Account{}, err
	}
	if !found || !record.Metadata.Exists() {
		return interfaces.Account{}, ErrIssuerNotFound.With(identity)
	}
	if record.Metadata.Deactivated {
		return interfaces.Account{}, ErrIssuerHasBeenDeactivated.With(identity)
	}
	return record.Metadata.Owner, nil
}

func (d *DidRegistry) load(identity interfaces.Account) (interfaces.DidRecord, bool, error) {
	var record interfaces.DidRecord
	found, err := getJSON(d.state, bucketDids, identity.Bytes(), &record)
	return record, found, err
}

func (d *DidRegistry) loadActive(identity interfaces.Account) (interfaces.DidRecord, error) {
	record, found, err := d.load(identity)
	if err != nil {
		return interfaces.DidRecord{}, err
	}
	if !found || !record.Metadata.Exists() {
		return interfaces.DidRecord{}, ErrDidNotFound.With(identity)
	}
	if record.Metadata.Deactivated {
		return interfaces.DidRecord{}, ErrDidHasBeenDeactivated.With(identity)
	}
	return record, nil
}

func (d *DidRegistry) validateDocument(identity interfaces.Account, document []byte) error {
	doc, err := interfaces.ParseDIDDocument(document)
	if err != nil {
		return ErrInvalidDidDocument.With(err.Error())
	}
	docIdentity, err := doc.IdentityAccount()
	if err != nil {
		return ErrIncorrectDid.With(doc.ID)
	}
	if docIdentity != identity {
		return ErrIncorrectDid.With(doc.ID)
	}
	return nil
}
