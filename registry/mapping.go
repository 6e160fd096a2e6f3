package registry

import (
	"crypto/ed25519"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/ruteri/identity-registry-backend/endorsement"
	"github.com/ruteri/identity-registry-backend/interfaces"
)

// LegacyMappingRegistry links legacy sovrin-style identifiers to their
// migrated counterparts. A DID mapping proves control of the legacy
// identifier with an ed25519 signature over the new DID, made by the key
// the legacy identifier was derived from. Resource mappings may then be
// added by the same owner for ids prefixed with the legacy DID.
type LegacyMappingRegistry struct {
	state    interfaces.StateStore
	events   EventSink
	contract interfaces.Account
	dids     *DidRegistry
}

// NewLegacyMappingRegistry creates the legacy mapping registry.
func NewLegacyMappingRegistry(state interfaces.StateStore, events EventSink, contract interfaces.Account, dids *DidRegistry) *LegacyMappingRegistry {
	return &LegacyMappingRegistry{
		state:    state,
		events:   events,
		contract: contract,
		dids:     dids,
	}
}

// CreateDidMappingDigest is the canonical signing input digest for an
// endorsed createDidMapping.
func CreateDidMappingDigest(contract, identity interfaces.Account, legacyIdentifier, newDid string, ed25519Key, ed25519Signature []byte) [32]byte {
	return endorsement.NewBuilder(contract, identity, "createDidMapping").
		String(legacyIdentifier).
		String(newDid).
		Bytes(ed25519Key).
		Bytes(ed25519Signature).
		Digest()
}

// CreateResourceMappingDigest is the canonical signing input digest for an
// endorsed createResourceMapping.
func CreateResourceMappingDigest(contract, identity interfaces.Account, legacyIssuerIdentifier, legacyIdentifier, newIdentifier string) [32]byte {
	return endorsement.NewBuilder(contract, identity, "createResourceMapping").
		String(legacyIssuerIdentifier).
		String(legacyIdentifier).
		String(newIdentifier).
		Digest()
}

// CreateDidMapping records legacyIdentifier -> newDid. The legacy
// identifier must be the base58 encoding of the first sixteen bytes of
// the ed25519 key, and the signature must verify over the UTF-8 bytes of
// newDid.
func (l *LegacyMappingRegistry) CreateDidMapping(tx TxContext, identity interfaces.Account, legacyIdentifier, newDid string, ed25519Key, ed25519Signature []byte) error {
	return l.createDidMapping(tx, identity, nil, legacyIdentifier, newDid, ed25519Key, ed25519Signature)
}

// CreateDidMappingSigned records a DID mapping on behalf of the identity,
// proven by its endorsement signature.
func (l *LegacyMappingRegistry) CreateDidMappingSigned(tx TxContext, identity interfaces.Account, sig interfaces.SignatureData, legacyIdentifier, newDid string, ed25519Key, ed25519Signature []byte) error {
	return l.createDidMapping(tx, identity, &sig, legacyIdentifier, newDid, ed25519Key, ed25519Signature)
}

func (l *LegacyMappingRegistry) createDidMapping(tx TxContext, identity interfaces.Account, sig *interfaces.SignatureData, legacyIdentifier, newDid string, ed25519Key, ed25519Signature []byte) error {
	existing, err := l.state.Get(bucketDidMappings, []byte(legacyIdentifier))
	if err != nil {
		return err
	}
	if len(existing) != 0 {
		return ErrDidMappingAlreadyExist.With(legacyIdentifier)
	}

	actor, err := resolveActor(tx, identity, sig, func() [32]byte {
		return CreateDidMappingDigest(l.contract, identity, legacyIdentifier, newDid, ed25519Key, ed25519Signature)
	})
	if err != nil {
		return err
	}
	if err := requireIdentity(actor, identity); err != nil {
		return err
	}

	mapped, err := interfaces.DidAccount(newDid)
	if err != nil {
		return ErrIncorrectDid.With(newDid)
	}
	if mapped != identity {
		return ErrNotIdentityOwner.With(identity, mapped)
	}

	if len(ed25519Key) != ed25519.PublicKeySize {
		return ErrInvalidLegacyMapping.With(legacyIdentifier)
	}
	if base58.Encode(ed25519Key[:16]) != legacyIdentifier {
		return ErrInvalidLegacyMapping.With(legacyIdentifier)
	}
	if !ed25519.Verify(ed25519.PublicKey(ed25519Key), []byte(newDid), ed25519Signature) {
		return ErrInvalidEd25519Signature.With(legacyIdentifier)
	}

	if err := l.state.Put(bucketDidMappings, []byte(legacyIdentifier), []byte(newDid)); err != nil {
		return err
	}

	l.events.Emit(LegacyMappingRegistryName, "DidMappingCreated", legacyIdentifier, newDid)
	return nil
}

// CreateResourceMapping records legacyIdentifier -> newIdentifier for a
// legacy resource id issued under legacyIssuerIdentifier.
func (l *LegacyMappingRegistry) CreateResourceMapping(tx TxContext, identity interfaces.Account, legacyIssuerIdentifier, legacyIdentifier, newIdentifier string) error {
	return l.createResourceMapping(tx, identity, nil, legacyIssuerIdentifier, legacyIdentifier, newIdentifier)
}

// CreateResourceMappingSigned records a resource mapping on behalf of the
// identity, proven by its endorsement signature.
func (l *LegacyMappingRegistry) CreateResourceMappingSigned(tx TxContext, identity interfaces.Account, sig interfaces.SignatureData, legacyIssuerIdentifier, legacyIdentifier, newIdentifier string) error {
	return l.createResourceMapping(tx, identity, &sig, legacyIssuerIdentifier, legacyIdentifier, newIdentifier)
}

func (l *LegacyMappingRegistry) createResourceMapping(tx TxContext, identity interfaces.Account, sig *interfaces.SignatureData, legacyIssuerIdentifier, legacyIdentifier, newIdentifier string) error {
	existing, err := l.state.Get(bucketResMappings, []byte(legacyIdentifier))
	if err != nil {
		return err
	}
	if len(existing) != 0 {
		return ErrResourceMappingAlreadyExist.With(legacyIdentifier)
	}

	actor, err := resolveActor(tx, identity, sig, func() [32]byte {
		return CreateResourceMappingDigest(l.contract, identity, legacyIssuerIdentifier, legacyIdentifier, newIdentifier)
	})
	if err != nil {
		return err
	}
	if err := requireIdentity(actor, identity); err != nil {
		return err
	}

	issuerDid, err := l.GetDidMapping(legacyIssuerIdentifier)
	if err != nil {
		return err
	}
	if issuerDid == "" {
		return ErrDidMappingNotFound.With(legacyIssuerIdentifier)
	}
	mapped, err := interfaces.DidAccount(issuerDid)
	if err != nil {
		return ErrIncorrectDid.With(issuerDid)
	}
	if mapped != identity {
		return ErrNotIdentityOwner.With(identity, mapped)
	}

	if !strings.HasPrefix(legacyIdentifier, legacyIssuerIdentifier+":") {
		return ErrInvalidLegacyMapping.With(legacyIdentifier)
	}

	if err := l.state.Put(bucketResMappings, []byte(legacyIdentifier), []byte(newIdentifier)); err != nil {
		return err
	}

	l.events.Emit(LegacyMappingRegistryName, "ResourceMappingCreated", legacyIdentifier, newIdentifier)
	return nil
}

// GetDidMapping returns the migrated DID for a legacy identifier, empty
// when no mapping exists.
func (l *LegacyMappingRegistry) GetDidMapping(legacyIdentifier string) (string, error) {
	value, err := l.state.Get(bucketDidMappings, []byte(legacyIdentifier))
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// GetResourceMapping returns the migrated resource id for a legacy
// resource identifier, empty when no mapping exists.
func (l *LegacyMappingRegistry) GetResourceMapping(legacyIdentifier string) (string, error) {
	value, err := l.state.Get(bucketResMappings, []byte(legacyIdentifier))
	if err != nil {
		return "", err
	}
	return string(value), nil
}
