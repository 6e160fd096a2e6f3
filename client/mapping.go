package client

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/endorsement"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/registry"
)

// CreateDidMapping records a legacy identifier -> DID mapping. The legacy
// identifier must be the base58 form of the first sixteen bytes of the
// ed25519 key, and the signature must verify over the new DID string.
func (c *Client) CreateDidMapping(ctx context.Context, signer interfaces.TransactionSigner, identity interfaces.Account, legacyIdentifier, newDid string, ed25519Key, ed25519Signature []byte) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, identity, registry.LegacyMappingRegistryName,
		"createDidMapping", identity, legacyIdentifier, newDid, ed25519Key, ed25519Signature)
}

// CreateResourceMapping records a legacy resource identifier -> new
// identifier mapping under an already-mapped legacy issuer.
func (c *Client) CreateResourceMapping(ctx context.Context, signer interfaces.TransactionSigner, identity interfaces.Account, legacyIssuerIdentifier, legacyIdentifier, newIdentifier string) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, identity, registry.LegacyMappingRegistryName,
		"createResourceMapping", identity, legacyIssuerIdentifier, legacyIdentifier, newIdentifier)
}

// PrepareCreateDidMappingEndorsement builds the signing material for an
// endorsed createDidMapping.
func (c *Client) PrepareCreateDidMappingEndorsement(identity interfaces.Account, legacyIdentifier, newDid string, ed25519Key, ed25519Signature []byte) (EndorsementData, error) {
	spec, err := c.spec(registry.LegacyMappingRegistryName)
	if err != nil {
		return EndorsementData{}, err
	}
	builder := endorsement.NewBuilder(spec.Address, identity, "createDidMapping").
		String(legacyIdentifier).
		String(newDid).
		Bytes(ed25519Key).
		Bytes(ed25519Signature)
	return EndorsementData{SigningInput: builder.SigningInput(), Digest: builder.Digest()}, nil
}

// PrepareCreateResourceMappingEndorsement builds the signing material for
// an endorsed createResourceMapping.
func (c *Client) PrepareCreateResourceMappingEndorsement(identity interfaces.Account, legacyIssuerIdentifier, legacyIdentifier, newIdentifier string) (EndorsementData, error) {
	spec, err := c.spec(registry.LegacyMappingRegistryName)
	if err != nil {
		return EndorsementData{}, err
	}
	builder := endorsement.NewBuilder(spec.Address, identity, "createResourceMapping").
		String(legacyIssuerIdentifier).
		String(legacyIdentifier).
		String(newIdentifier)
	return EndorsementData{SigningInput: builder.SigningInput(), Digest: builder.Digest()}, nil
}

// SubmitCreateDidMappingSigned submits an endorsed createDidMapping
// carried by the from account.
func (c *Client) SubmitCreateDidMappingSigned(ctx context.Context, signer interfaces.TransactionSigner, from, identity interfaces.Account, sig interfaces.SignatureData, legacyIdentifier, newDid string, ed25519Key, ed25519Signature []byte) (*types.Receipt, error) {
	return c.submitSigned(ctx, signer, from, registry.LegacyMappingRegistryName,
		"createDidMapping", identity, sig, legacyIdentifier, newDid, ed25519Key, ed25519Signature)
}

// SubmitCreateResourceMappingSigned submits an endorsed
// createResourceMapping carried by the from account.
func (c *Client) SubmitCreateResourceMappingSigned(ctx context.Context, signer interfaces.TransactionSigner, from, identity interfaces.Account, sig interfaces.SignatureData, legacyIssuerIdentifier, legacyIdentifier, newIdentifier string) (*types.Receipt, error) {
	return c.submitSigned(ctx, signer, from, registry.LegacyMappingRegistryName,
		"createResourceMapping", identity, sig, legacyIssuerIdentifier, legacyIdentifier, newIdentifier)
}

// GetDidMapping resolves a legacy identifier to its DID.
func (c *Client) GetDidMapping(ctx context.Context, legacyIdentifier string) (string, error) {
	values, err := c.read(ctx, registry.LegacyMappingRegistryName, "didMapping", legacyIdentifier)
	if err != nil {
		return "", err
	}
	return values[0].(string), nil
}

// GetResourceMapping resolves a legacy resource identifier to its new
// identifier.
func (c *Client) GetResourceMapping(ctx context.Context, legacyIdentifier string) (string, error) {
	values, err := c.read(ctx, registry.LegacyMappingRegistryName, "resourceMapping", legacyIdentifier)
	if err != nil {
		return "", err
	}
	return values[0].(string), nil
}
