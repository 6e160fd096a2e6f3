package client

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/contracts"
	"github.com/ruteri/identity-registry-backend/interfaces"
	"github.com/ruteri/identity-registry-backend/registry"
)

// ProposeUpgrade proposes a new implementation for a proxy. The sender
// must be a trustee; approvals are collected separately through
// ApproveUpgrade, the proposer's included.
func (c *Client) ProposeUpgrade(ctx context.Context, signer interfaces.TransactionSigner, from interfaces.Account, proxy, implementation interfaces.Account) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, from, registry.UpgradeControlName, "propose", proxy, implementation)
}

// ApproveUpgrade adds a trustee approval to a pending proposal. The
// proposal applies once approvals reach the trustee-majority threshold.
func (c *Client) ApproveUpgrade(ctx context.Context, signer interfaces.TransactionSigner, from interfaces.Account, proxy, implementation interfaces.Account) (*types.Receipt, error) {
	return c.submitWrite(ctx, signer, from, registry.UpgradeControlName, "approve", proxy, implementation)
}

// GetUpgradeProposal returns the stored proposal for the pair.
func (c *Client) GetUpgradeProposal(ctx context.Context, proxy, implementation interfaces.Account) (registry.UpgradeProposal, error) {
	values, err := c.read(ctx, registry.UpgradeControlName, "getProposal", proxy, implementation)
	if err != nil {
		return registry.UpgradeProposal{}, err
	}
	wire := *abi.ConvertType(values[0], new(contracts.UpgradeProposalWire)).(*contracts.UpgradeProposalWire)
	return contracts.ProposalFromWire(wire), nil
}

// CheckSufficientApprovals returns nil when the proposal has reached its
// approval threshold, and the InsufficientApprovals ledger error
// otherwise.
func (c *Client) CheckSufficientApprovals(ctx context.Context, proxy, implementation interfaces.Account) error {
	_, err := c.read(ctx, registry.UpgradeControlName, "ensureSufficientApprovals", proxy, implementation)
	return err
}

// GetActiveImplementation returns the implementation a proxy currently
// points at, the zero account when no upgrade has applied.
func (c *Client) GetActiveImplementation(ctx context.Context, proxy interfaces.Account) (interfaces.Account, error) {
	values, err := c.read(ctx, registry.UpgradeControlName, "getActiveImplementation", proxy)
	if err != nil {
		return interfaces.Account{}, err
	}
	return values[0].(interfaces.Account), nil
}
