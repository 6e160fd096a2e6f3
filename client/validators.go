package client

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/registry"
)

// AddValidator adds a node to the validator set. The sender must be a
// trustee.
func (c *Client) AddValidator(ctx context.Context, signer interfaces.TransactionSigner, from interfaces.Account, validator interfaces.Account) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, from, registry.ValidatorControlName, "addValidator", validator)
}

// RemoveValidator removes a node from the validator set. The last
// validator cannot be removed.
func (c *Client) RemoveValidator(ctx context.Context, signer interfaces.TransactionSigner, from interfaces.Account, validator interfaces.Account) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, from, registry.ValidatorControlName, "removeValidator", validator)
}

// GetValidators returns the current validator set.
func (c *Client) GetValidators(ctx context.Context) ([]interfaces.Account, error) {
	values, err := c.read(ctx, registry.ValidatorControlName, "getValidators")
	if err != nil {
		return nil, err
	}
	return values[0].([]common.Address), nil
}
