package registry

import (
	"math/big"

	"github.com/ruteri/identity-registry-backend/interfaces"
)

// MaxValidators bounds the consensus validator set size.
const MaxValidators = 256

var validatorListKey = []byte("list")

// ValidatorControl maintains the node allow-list consumed by the
// consensus layer. Membership changes are trustee-only and the set never
// shrinks below one validator.
type ValidatorControl struct {
	state  interfaces.StateStore
	events EventSink
	roles  *RoleControl
}

// NewValidatorControl creates the validator registry.
func NewValidatorControl(state interfaces.StateStore, events EventSink, roles *RoleControl) *ValidatorControl {
	return &ValidatorControl{state: state, events: events, roles: roles}
}

func (vc *ValidatorControl) applyGenesis(validators []interfaces.Account) error {
	current, err := vc.list()
	if err != nil {
		return err
	}
	if len(current) != 0 || len(validators) == 0 {
		return nil
	}
	seen := make(map[interfaces.Account]struct{}, len(validators))
	deduped := make([]interfaces.Account, 0, len(validators))
	for _, v := range validators {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		deduped = append(deduped, v)
	}
	return vc.store(deduped)
}

// AddValidator appends a validator to the set. Trustee-only.
func (vc *ValidatorControl) AddValidator(tx TxContext, validator interfaces.Account) error {
	if err := vc.roles.EnsureTrustee(tx.Sender); err != nil {
		return err
	}
	validators, err := vc.list()
	if err != nil {
		return err
	}
	for _, v := range validators {
		if v == validator {
			return ErrValidatorAlreadyExists.With(validator)
		}
	}
	if len(validators)+1 > MaxValidators {
		return ErrExceedsValidatorLimit.With(big.NewInt(MaxValidators))
	}
	if err := vc.store(append(validators, validator)); err != nil {
		return err
	}
	vc.events.Emit(ValidatorControlName, "ValidatorAdded", validator)
	return nil
}

// RemoveValidator removes a validator from the set, keeping order.
// Trustee-only; the last validator cannot be removed.
func (vc *ValidatorControl) RemoveValidator(tx TxContext, validator interfaces.Account) error {
	if err := vc.roles.EnsureTrustee(tx.Sender); err != nil {
		return err
	}
	validators, err := vc.list()
	if err != nil {
		return err
	}
	index := -1
	for i, v := range validators {
		if v == validator {
			index = i
			break
		}
	}
	if index < 0 {
		return ErrValidatorNotFound.With(validator)
	}
	if len(validators) <= 1 {
		return ErrCannotDeactivateLastValidator.With()
	}
	if err := vc.store(append(validators[:index], validators[index+1:]...)); err != nil {
		return err
	}
	vc.events.Emit(ValidatorControlName, "ValidatorRemoved", validator)
	return nil
}

// GetValidators returns the current validator set in insertion order.
func (vc *ValidatorControl) GetValidators() ([]interfaces.Account, error) {
	return vc.list()
}

func (vc *ValidatorControl) list() ([]interfaces.Account, error) {
	var validators []interfaces.Account
	if _, err := getJSON(vc.state, bucketValidators, validatorListKey, &validators); err != nil {
		return nil, err
	}
	return validators, nil
}

func (vc *ValidatorControl) store(validators []interfaces.Account) error {
	return putJSON(vc.state, bucketValidators, validatorListKey, validators)
}
