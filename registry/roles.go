package registry

import (
	"github.com/ruteri/identity-registry-backend/interfaces"
)

// RoleControl manages on-ledger account roles and per-role holder counts.
// Role assignment and revocation are trustee-only operations.
type RoleControl struct {
	state  interfaces.StateStore
	events EventSink
}

// NewRoleControl creates the role registry over the given state store.
func NewRoleControl(state interfaces.StateStore, events EventSink) *RoleControl {
	return &RoleControl{state: state, events: events}
}

// applyGenesis grants the trustee role to the initial account set. Accounts
// that already hold a role are left untouched, so re-opening a persistent
// store is safe.
func (rc *RoleControl) applyGenesis(trustees []interfaces.Account) error {
	for _, account := range trustees {
		current, err := rc.GetRole(account)
		if err != nil {
			return err
		}
		if current != interfaces.RoleEmpty {
			continue
		}
		if err := rc.setRole(account, interfaces.RoleTrustee); err != nil {
			return err
		}
	}
	return nil
}

// AssignRole grants role to account. Only trustees may assign roles.
// Re-assigning the role an account already holds is a no-op. Demoting the
// final trustee to another role is rejected like revoking it would be.
func (rc *RoleControl) AssignRole(tx TxContext, role interfaces.Role, account interfaces.Account) error {
	if !role.Valid() || role == interfaces.RoleEmpty {
		return ErrInvalidRole.With(uint8(role))
	}
	if err := rc.EnsureTrustee(tx.Sender); err != nil {
		return err
	}

	current, err := rc.GetRole(account)
	if err != nil {
		return err
	}
	if current == role {
		return nil
	}
	if current == interfaces.RoleTrustee {
		count, err := rc.RoleCount(interfaces.RoleTrustee)
		if err != nil {
			return err
		}
		if count <= 1 {
			return ErrCannotRevokeLastTrustee.With()
		}
	}
	if current != interfaces.RoleEmpty {
		if err := rc.adjustCount(current, -1); err != nil {
			return err
		}
	}
	if err := rc.setRole(account, role); err != nil {
		return err
	}

	rc.events.Emit(RoleControlName, "RoleAssigned", uint8(role), account, tx.Sender)
	return nil
}

// RevokeRole removes role from account. Only trustees may revoke roles.
// Revoking a role the account does not hold is a no-op. Revoking the final
// trustee is rejected: it would strand every future admin operation.
func (rc *RoleControl) RevokeRole(tx TxContext, role interfaces.Role, account interfaces.Account) error {
	if !role.Valid() || role == interfaces.RoleEmpty {
		return ErrInvalidRole.With(uint8(role))
	}
	if err := rc.EnsureTrustee(tx.Sender); err != nil {
		return err
	}

	current, err := rc.GetRole(account)
	if err != nil {
		return err
	}
	if current != role {
		return nil
	}

	if role == interfaces.RoleTrustee {
		count, err := rc.RoleCount(interfaces.RoleTrustee)
		if err != nil {
			return err
		}
		if count <= 1 {
			return ErrCannotRevokeLastTrustee.With()
		}
	}

	if err := rc.state.Delete(bucketRoles, account.Bytes()); err != nil {
		return err
	}
	if err := rc.adjustCount(role, -1); err != nil {
		return err
	}

	rc.events.Emit(RoleControlName, "RoleRevoked", uint8(role), account, tx.Sender)
	return nil
}

// GetRole returns the role held by account, RoleEmpty if none.
func (rc *RoleControl) GetRole(account interfaces.Account) (interfaces.Role, error) {
	raw, err := rc.state.Get(bucketRoles, account.Bytes())
	if err != nil {
		return interfaces.RoleEmpty, err
	}
	if len(raw) != 1 {
		return interfaces.RoleEmpty, nil
	}
	return interfaces.Role(raw[0]), nil
}

// HasRole reports whether account holds exactly the given role.
func (rc *RoleControl) HasRole(role interfaces.Role, account interfaces.Account) (bool, error) {
	current, err := rc.GetRole(account)
	if err != nil {
		return false, err
	}
	return current == role, nil
}

// HasAnyRole reports whether account holds one of the given roles.
func (rc *RoleControl) HasAnyRole(account interfaces.Account, roles ...interfaces.Role) (bool, error) {
	current, err := rc.GetRole(account)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if current == role {
			return true, nil
		}
	}
	return false, nil
}

// RoleCount returns the number of accounts currently holding role.
func (rc *RoleControl) RoleCount(role interfaces.Role) (uint32, error) {
	raw, err := rc.state.Get(bucketRoleCounts, []byte{byte(role)})
	if err != nil {
		return 0, err
	}
	return decodeUint32(raw), nil
}

// EnsureTrustee fails with Unauthorized unless account is a trustee.
func (rc *RoleControl) EnsureTrustee(account interfaces.Account) error {
	isTrustee, err := rc.HasRole(interfaces.RoleTrustee, account)
	if err != nil {
		return err
	}
	if !isTrustee {
		return ErrUnauthorized.With(account)
	}
	return nil
}

func (rc *RoleControl) setRole(account interfaces.Account, role interfaces.Role) error {
	if err := rc.state.Put(bucketRoles, account.Bytes(), []byte{byte(role)}); err != nil {
		return err
	}
	return rc.adjustCount(role, 1)
}

func (rc *RoleControl) adjustCount(role interfaces.Role, delta int32) error {
	count, err := rc.RoleCount(role)
	if err != nil {
		return err
	}
	next := int64(count) + int64(delta)
	if next < 0 {
		next = 0
	}
	return rc.state.Put(bucketRoleCounts, []byte{byte(role)}, encodeUint32(uint32(next)))
}
