package client

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/registry"
)

// AssignRole grants a role to an account. The sender must be a trustee.
func (c *Client) AssignRole(ctx context.Context, signer interfaces.TransactionSigner, from interfaces.Account, role interfaces.Role, account interfaces.Account) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, from, registry.RoleControlName, "assignRole", uint8(role), account)
}

// RevokeRole removes a role from an account. The sender must be a
// trustee; the last trustee cannot be revoked.
func (c *Client) RevokeRole(ctx context.Context, signer interfaces.TransactionSigner, from interfaces.Account, role interfaces.Role, account interfaces.Account) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, from, registry.RoleControlName, "revokeRole", uint8(role), account)
}

// GetRole returns an account's role, RoleEmpty when none is assigned.
func (c *Client) GetRole(ctx context.Context, account interfaces.Account) (interfaces.Role, error) {
	values, err := c.read(ctx, registry.RoleControlName, "getRole", account)
	if err != nil {
		return interfaces.RoleEmpty, err
	}
	return interfaces.Role(values[0].(uint8)), nil
}

// HasRole reports whether the account holds the role.
func (c *Client) HasRole(ctx context.Context, role interfaces.Role, account interfaces.Account) (bool, error) {
	values, err := c.read(ctx, registry.RoleControlName, "hasRole", uint8(role), account)
	if err != nil {
		return false, err
	}
	return values[0].(bool), nil
}

// GetRoleCount returns how many accounts hold the role.
func (c *Client) GetRoleCount(ctx context.Context, role interfaces.Role) (uint32, error) {
	values, err := c.read(ctx, registry.RoleControlName, "getRoleCount", uint8(role))
	if err != nil {
		return 0, err
	}
	return values[0].(uint32), nil
}
