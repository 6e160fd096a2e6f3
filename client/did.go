package client

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/contracts"
	"github.com/ruteri/identity-registry-backend/endorsement"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/registry"
)

// CreateDid stores a DID document for the identity account. The sender is
// the identity itself on the direct path.
func (c *Client) CreateDid(ctx context.Context, signer interfaces.TransactionSigner, identity interfaces.Account, document []byte) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, identity, registry.DidRegistryName, "createDid", identity, document)
}

// UpdateDid replaces the document of an existing, active DID.
func (c *Client) UpdateDid(ctx context.Context, signer interfaces.TransactionSigner, identity interfaces.Account, document []byte) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, identity, registry.DidRegistryName, "updateDid", identity, document)
}

// DeactivateDid terminally deactivates a DID.
func (c *Client) DeactivateDid(ctx context.Context, signer interfaces.TransactionSigner, identity interfaces.Account) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, identity, registry.DidRegistryName, "deactivateDid", identity)
}

// PrepareCreateDidEndorsement builds the signing material for an endorsed
// createDid.
func (c *Client) PrepareCreateDidEndorsement(identity interfaces.Account, document []byte) (EndorsementData, error) {
	spec, err := c.spec(registry.DidRegistryName)
	if err != nil {
		return EndorsementData{}, err
	}
	builder := endorsement.NewBuilder(spec.Address, identity, "createDid").Bytes(document)
	return EndorsementData{SigningInput: builder.SigningInput(), Digest: builder.Digest()}, nil
}

// PrepareUpdateDidEndorsement builds the signing material for an endorsed
// updateDid. The digest binds the record's current version, so it reads
// the ledger first.
func (c *Client) PrepareUpdateDidEndorsement(ctx context.Context, identity interfaces.Account, document []byte) (EndorsementData, error) {
	record, err := c.ResolveDidAccount(ctx, identity)
	if err != nil {
		return EndorsementData{}, err
	}
	spec, err := c.spec(registry.DidRegistryName)
	if err != nil {
		return EndorsementData{}, err
	}
	builder := endorsement.NewBuilder(spec.Address, identity, "updateDid").
		Uint64(record.Metadata.VersionID).
		Bytes(document)
	return EndorsementData{SigningInput: builder.SigningInput(), Digest: builder.Digest()}, nil
}

// PrepareDeactivateDidEndorsement builds the signing material for an
// endorsed deactivateDid, bound to the record's current version.
func (c *Client) PrepareDeactivateDidEndorsement(ctx context.Context, identity interfaces.Account) (EndorsementData, error) {
	record, err := c.ResolveDidAccount(ctx, identity)
	if err != nil {
		return EndorsementData{}, err
	}
	spec, err := c.spec(registry.DidRegistryName)
	if err != nil {
		return EndorsementData{}, err
	}
	builder := endorsement.NewBuilder(spec.Address, identity, "deactivateDid").
		Uint64(record.Metadata.VersionID)
	return EndorsementData{SigningInput: builder.SigningInput(), Digest: builder.Digest()}, nil
}

// SubmitCreateDidSigned submits an endorsed createDid: the identity
// owner's endorsement signature carried by the from account.
func (c *Client) SubmitCreateDidSigned(ctx context.Context, signer interfaces.TransactionSigner, from, identity interfaces.Account, sig interfaces.SignatureData, document []byte) (*types.Receipt, error) {
	return c.submitSigned(ctx, signer, from, registry.DidRegistryName, "createDid", identity, sig, document)
}

// SubmitUpdateDidSigned submits an endorsed updateDid.
func (c *Client) SubmitUpdateDidSigned(ctx context.Context, signer interfaces.TransactionSigner, from, identity interfaces.Account, sig interfaces.SignatureData, document []byte) (*types.Receipt, error) {
	return c.submitSigned(ctx, signer, from, registry.DidRegistryName, "updateDid", identity, sig, document)
}

// SubmitDeactivateDidSigned submits an endorsed deactivateDid.
func (c *Client) SubmitDeactivateDidSigned(ctx context.Context, signer interfaces.TransactionSigner, from, identity interfaces.Account, sig interfaces.SignatureData) (*types.Receipt, error) {
	return c.submitSigned(ctx, signer, from, registry.DidRegistryName, "deactivateDid", identity, sig)
}

// ResolveDid resolves a DID string (or DID URL) to its stored record.
func (c *Client) ResolveDid(ctx context.Context, did string) (interfaces.DidRecord, error) {
	parsed, err := interfaces.ParseDidURL(did)
	if err != nil {
		return interfaces.DidRecord{}, err
	}
	account, err := parsed.Account()
	if err != nil {
		return interfaces.DidRecord{}, fmt.Errorf("%w: %v", interfaces.ErrInvalidDid, err)
	}
	return c.ResolveDidAccount(ctx, account)
}

// ResolveDidAccount resolves the DID record of an identity account.
func (c *Client) ResolveDidAccount(ctx context.Context, identity interfaces.Account) (interfaces.DidRecord, error) {
	values, err := c.read(ctx, registry.DidRegistryName, "resolveDid", identity)
	if err != nil {
		return interfaces.DidRecord{}, err
	}
	wire := *abi.ConvertType(values[0], new(contracts.DidRecordWire)).(*contracts.DidRecordWire)
	return contracts.DidRecordFromWire(wire), nil
}
