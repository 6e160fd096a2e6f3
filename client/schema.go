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

// SchemaID derives the 32-byte schema id from the schema payload: the
// keccak-256 hash of its canonical identifier string.
func SchemaID(payload []byte) (interfaces.ResourceID, *interfaces.Schema, error) {
	schema, err := interfaces.ParseSchema(payload)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	idString := interfaces.SchemaIDString(schema.IssuerID, schema.Name, schema.Version)
	return interfaces.ResourceIDHash(idString), schema, nil
}

// CreateSchema stores a credential schema. The issuer DID inside the
// payload names the identity; the sender must be that identity on the
// direct path.
func (c *Client) CreateSchema(ctx context.Context, signer interfaces.TransactionSigner, payload []byte) (interfaces.ResourceID, *types.Receipt, error) {
	id, schema, err := SchemaID(payload)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	identity, err := interfaces.DidAccount(schema.IssuerID)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	receipt, err := c.submitWrite(ctx, signer, identity, registry.SchemaRegistryName, "createSchema",
		identity, id, schema.IssuerID, payload)
	return id, receipt, err
}

// PrepareCreateSchemaEndorsement builds the signing material for an
// endorsed createSchema.
func (c *Client) PrepareCreateSchemaEndorsement(payload []byte) (EndorsementData, interfaces.ResourceID, error) {
	id, schema, err := SchemaID(payload)
	if err != nil {
		return EndorsementData{}, interfaces.ResourceID{}, err
	}
	identity, err := interfaces.DidAccount(schema.IssuerID)
	if err != nil {
		return EndorsementData{}, interfaces.ResourceID{}, err
	}
	spec, err := c.spec(registry.SchemaRegistryName)
	if err != nil {
		return EndorsementData{}, interfaces.ResourceID{}, err
	}
	builder := endorsement.NewBuilder(spec.Address, identity, "createSchema").
		Bytes32(id).
		String(schema.IssuerID).
		Bytes(payload)
	return EndorsementData{SigningInput: builder.SigningInput(), Digest: builder.Digest()}, id, nil
}

// SubmitCreateSchemaSigned submits an endorsed createSchema carried by
// the from account.
func (c *Client) SubmitCreateSchemaSigned(ctx context.Context, signer interfaces.TransactionSigner, from interfaces.Account, sig interfaces.SignatureData, payload []byte) (interfaces.ResourceID, *types.Receipt, error) {
	id, schema, err := SchemaID(payload)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	identity, err := interfaces.DidAccount(schema.IssuerID)
	if err != nil {
		return interfaces.ResourceID{}, nil, err
	}
	receipt, err := c.submitSigned(ctx, signer, from, registry.SchemaRegistryName, "createSchema",
		identity, sig, id, schema.IssuerID, payload)
	return id, receipt, err
}

// ResolveSchema resolves a schema by its 32-byte id.
func (c *Client) ResolveSchema(ctx context.Context, id interfaces.ResourceID) (interfaces.SchemaRecord, error) {
	values, err := c.read(ctx, registry.SchemaRegistryName, "resolveSchema", id)
	if err != nil {
		return interfaces.SchemaRecord{}, err
	}
	wire := *abi.ConvertType(values[0], new(contracts.SchemaRecordWire)).(*contracts.SchemaRecordWire)
	return contracts.SchemaRecordFromWire(wire), nil
}

// ResolveSchemaByID resolves a schema by its canonical identifier string,
// re-deriving the keccak id.
func (c *Client) ResolveSchemaByID(ctx context.Context, idString string) (interfaces.SchemaRecord, error) {
	if idString == "" {
		return interfaces.SchemaRecord{}, fmt.Errorf("empty schema id")
	}
	return c.ResolveSchema(ctx, interfaces.ResourceIDHash(idString))
}
