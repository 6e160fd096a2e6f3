package registry

import (
	"math/big"

	"github.com/ruteri/identity-registry-backend/interfaces"
)

// UpgradeProposal tracks one (proxy, implementation) upgrade through the
// trustee approval vote.
type UpgradeProposal struct {
	Proposer  interfaces.Account   `json:"proposer"`
	Created   int64                `json:"created"`
	Approvals []interfaces.Account `json:"approvals"`
	Applied   bool                 `json:"applied"`
}

// UpgradeControl gates contract implementation upgrades behind a strict
// majority of current trustees. A proxy carries at most one pending
// proposal; reaching the threshold applies the upgrade exactly once and
// records the active implementation.
type UpgradeControl struct {
	state  interfaces.StateStore
	events EventSink
	roles  *RoleControl
}

// NewUpgradeControl creates the upgrade registry.
func NewUpgradeControl(state interfaces.StateStore, events EventSink, roles *RoleControl) *UpgradeControl {
	return &UpgradeControl{state: state, events: events, roles: roles}
}

// Propose opens an upgrade vote for the (proxy, implementation) pair.
// Trustee-only. Fails while any proposal for the proxy is still pending.
func (uc *UpgradeControl) Propose(tx TxContext, proxy, implementation interfaces.Account) error {
	if err := uc.roles.EnsureTrustee(tx.Sender); err != nil {
		return err
	}

	pendingImpl, err := uc.state.Get(bucketUpgrades, pendingKey(proxy))
	if err != nil {
		return err
	}
	if len(pendingImpl) != 0 {
		pending, found, err := uc.load(proxy, interfaces.Account(pendingImpl))
		if err != nil {
			return err
		}
		if found && !pending.Applied {
			return ErrUpgradeAlreadyProposed.With(proxy, implementation)
		}
	}

	proposal := UpgradeProposal{Proposer: tx.Sender, Created: tx.Time}
	if err := putJSON(uc.state, bucketUpgrades, proposalKey(proxy, implementation), &proposal); err != nil {
		return err
	}
	if err := uc.state.Put(bucketUpgrades, pendingKey(proxy), implementation.Bytes()); err != nil {
		return err
	}

	uc.events.Emit(UpgradeControlName, "UpgradeProposed", proxy, implementation, tx.Sender)
	return nil
}

// Approve records one trustee approval. Reaching a strict majority of the
// current trustee count applies the upgrade.
func (uc *UpgradeControl) Approve(tx TxContext, proxy, implementation interfaces.Account) error {
	if err := uc.roles.EnsureTrustee(tx.Sender); err != nil {
		return err
	}
	proposal, found, err := uc.load(proxy, implementation)
	if err != nil {
		return err
	}
	if !found {
		return ErrUpgradeProposalNotFound.With(proxy, implementation)
	}
	if proposal.Applied {
		return ErrUpgradeAlreadyApplied.With(proxy, implementation)
	}
	for _, approver := range proposal.Approvals {
		if approver == tx.Sender {
			return ErrUpgradeAlreadyApproved.With(proxy, implementation)
		}
	}
	proposal.Approvals = append(proposal.Approvals, tx.Sender)

	threshold, err := uc.approvalThreshold()
	if err != nil {
		return err
	}
	if uint32(len(proposal.Approvals)) >= threshold {
		proposal.Applied = true
		if err := uc.state.Put(bucketActiveImpls, proxy.Bytes(), implementation.Bytes()); err != nil {
			return err
		}
	}
	if err := putJSON(uc.state, bucketUpgrades, proposalKey(proxy, implementation), &proposal); err != nil {
		return err
	}

	uc.events.Emit(UpgradeControlName, "UpgradeApproved", proxy, implementation, tx.Sender)
	if proposal.Applied {
		uc.events.Emit(UpgradeControlName, "UpgradeApplied", proxy, implementation)
	}
	return nil
}

// EnsureSufficientApprovals reports whether the proposal has reached the
// approval threshold. Pure read, no state change.
func (uc *UpgradeControl) EnsureSufficientApprovals(proxy, implementation interfaces.Account) error {
	proposal, found, err := uc.load(proxy, implementation)
	if err != nil {
		return err
	}
	if !found {
		return ErrUpgradeProposalNotFound.With(proxy, implementation)
	}
	if proposal.Applied {
		return nil
	}
	threshold, err := uc.approvalThreshold()
	if err != nil {
		return err
	}
	if uint32(len(proposal.Approvals)) < threshold {
		return ErrInsufficientApprovals.With(big.NewInt(int64(len(proposal.Approvals))), big.NewInt(int64(threshold)))
	}
	return nil
}

// Proposal returns the stored proposal for the pair.
func (uc *UpgradeControl) Proposal(proxy, implementation interfaces.Account) (UpgradeProposal, error) {
	proposal, found, err := uc.load(proxy, implementation)
	if err != nil {
		return UpgradeProposal{}, err
	}
	if !found {
		return UpgradeProposal{}, ErrUpgradeProposalNotFound.With(proxy, implementation)
	}
	return proposal, nil
}

// ActiveImplementation returns the implementation last applied for the
// proxy, the zero account when no upgrade was ever applied.
func (uc *UpgradeControl) ActiveImplementation(proxy interfaces.Account) (interfaces.Account, error) {
	raw, err := uc.state.Get(bucketActiveImpls, proxy.Bytes())
	if err != nil {
		return interfaces.Account{}, err
	}
	if len(raw) == 0 {
		return interfaces.Account{}, nil
	}
	return interfaces.Account(raw), nil
}

// approvalThreshold is a strict majority of the current trustee count,
// evaluated at call time.
func (uc *UpgradeControl) approvalThreshold() (uint32, error) {
	count, err := uc.roles.RoleCount(interfaces.RoleTrustee)
	if err != nil {
		return 0, err
	}
	return count/2 + 1, nil
}

func (uc *UpgradeControl) load(proxy, implementation interfaces.Account) (UpgradeProposal, bool, error) {
	var proposal UpgradeProposal
	found, err := getJSON(uc.state, bucketUpgrades, proposalKey(proxy, implementation), &proposal)
	return proposal, found, err
}

func pendingKey(proxy interfaces.Account) []byte {
	return proxy.Bytes()
}

func proposalKey(proxy, implementation interfaces.Account) []byte {
	return append(proxy.Bytes(), implementation.Bytes()...)
}
