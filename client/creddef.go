package client

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/contracts"
	"github.com/ruteri/identity-registry-backend/endorsement"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/registry"
)

// CredentialDefinitionID derives the 32-byte credential definition id and
// the referenced schema id from the payload.
func CredentialDefinitionID(payload []byte) (id, schemaID interfaces.ResourceID, credDef *interfaces.CredentialDefinition, err error) {
	credDef, err = interfaces.ParseCredentialDefinition(payload)
	if err != nil {
		return interfaces.ResourceID{}, interfaces.ResourceID{}, nil, err
	}
	idString := interfaces.CredDefIDString(credDef.IssuerID, credDef.SchemaID, credDef.Tag)
	return interfaces.ResourceIDHash(idString), interfaces.ResourceIDHash(credDef.SchemaID), credDef, nil
}

// CreateCredentialDefinition stores a credential definition under the
// issuer identity named in the payload.
func (c *Client) CreateCredentialDefinition(ctx context.Context, signer interfaces.TransactionSigner, payload []byte) (interfaces.ResourceID, *types.Receipt, error) {
	id, schemaID, credDef, err := CredentialDefinitionID(payload)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	identity, err := interfaces.DidAccount(credDef.IssuerID)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	receipt, err := c.submitWrite(ctx, signer, identity, registry.CredentialDefinitionRegistryName,
		"createCredentialDefinition", identity, id, credDef.IssuerID, schemaID, payload)
	return id, receipt, err
}

// PrepareCreateCredentialDefinitionEndorsement builds the signing
// material for an endorsed createCredentialDefinition.
func (c *Client) PrepareCreateCredentialDefinitionEndorsement(payload []byte) (EndorsementData, interfaces.ResourceID, error) {
	id, schemaID, credDef, err := CredentialDefinitionID(payload)
	if err != nil {
		return EndorsementData{}, interfaces.ResourceID{}, err
	}
	identity, err := interfaces.DidAccount(credDef.IssuerID)
	if err != nil {
		return EndorsementData{}, interfaces.ResourceID{}, err
	}
	spec, err := c.spec(registry.CredentialDefinitionRegistryName)
	if err != nil {
		return EndorsementData{}, interfaces.ResourceID{}, err
	}
	builder := endorsement.NewBuilder(spec.Address, identity, "createCredentialDefinition").
		Bytes32(id).
		String(credDef.IssuerID).
		Bytes32(schemaID).
		Bytes(payload)
	return EndorsementData{SigningInput: builder.SigningInput(), Digest: builder.Digest()}, id, nil
}

// SubmitCreateCredentialDefinitionSigned submits an endorsed
// createCredentialDefinition carried by the from account.
func (c *Client) SubmitCreateCredentialDefinitionSigned(ctx context.Context, signer interfaces.TransactionSigner, from interfaces.Account, sig interfaces.SignatureData, payload []byte) (interfaces.ResourceID, *types.Receipt, error) {
	id, schemaID, credDef, err := CredentialDefinitionID(payload)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	identity, err := interfaces.DidAccount(credDef.IssuerID)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	receipt, err := c.submitSigned(ctx, signer, from, registry.CredentialDefinitionRegistryName,
		"createCredentialDefinition", identity, sig, id, credDef.IssuerID, schemaID, payload)
	return id, receipt, err
}

// ResolveCredentialDefinition resolves a credential definition by its
// 32-byte id.
func (c *Client) ResolveCredentialDefinition(ctx context.Context, id interfaces.ResourceID) (interfaces.CredentialDefinitionRecord, error) {
	values, err := c.read(ctx, registry.CredentialDefinitionRegistryName, "resolveCredentialDefinition", id)
	if err != nil {
		return interfaces.CredentialDefinitionRecord{}, err
	}
	wire := *abi.ConvertType(values[0], new(contracts.CredentialDefinitionRecordWire)).(*contracts.CredentialDefinitionRecordWire)
	return contracts.CredentialDefinitionRecordFromWire(wire), nil
}

// ResolveCredentialDefinitionByID resolves by canonical identifier
// string.
func (c *Client) ResolveCredentialDefinitionByID(ctx context.Context, idString string) (interfaces.CredentialDefinitionRecord, error) {
	return c.ResolveCredentialDefinition(ctx, interfaces.ResourceIDHash(idString))
}
