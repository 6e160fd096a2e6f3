package registry

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenesisValidators(t *testing.T) {
	env := newTestEnv(t)

	validators, err := env.regs.Validators.GetValidators()
	require.NoError(t, err)
	assert.Equal(t, []common.Address{env.validator}, validators)
}

func TestAddValidator(t *testing.T) {
	env := newTestEnv(t)
	next := common.HexToAddress("0x0000000000000000000000000000000000000102")
	tx := env.txFrom(env.trustee.account)

	require.NoError(t, env.regs.Validators.AddValidator(tx, next))

	validators, err := env.regs.Validators.GetValidators()
	require.NoError(t, err)
	assert.Equal(t, []common.Address{env.validator, next}, validators)
	assert.True(t, env.sink.has(ValidatorControlName, "ValidatorAdded"))

	err = env.regs.Validators.AddValidator(tx, next)
	require.ErrorIs(t, err, ErrValidatorAlreadyExists)
}

func TestAddValidatorRequiresTrustee(t *testing.T) {
	env := newTestEnv(t)
	outsider := newIdentity(t)

	err := env.regs.Validators.AddValidator(env.txFrom(outsider.account), common.HexToAddress("0x0000000000000000000000000000000000000102"))
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRemoveValidator(t *testing.T) {
	env := newTestEnv(t)
	second := common.HexToAddress("0x0000000000000000000000000000000000000102")
	third := common.HexToAddress("0x0000000000000000000000000000000000000103")
	tx := env.txFrom(env.trustee.account)

	require.NoError(t, env.regs.Validators.AddValidator(tx, second))
	require.NoError(t, env.regs.Validators.AddValidator(tx, third))
	require.NoError(t, env.regs.Validators.RemoveValidator(tx, second))

	validators, err := env.regs.Validators.GetValidators()
	require.NoError(t, err)
	assert.Equal(t, []common.Address{env.validator, third}, validators)
	assert.True(t, env.sink.has(ValidatorControlName, "ValidatorRemoved"))

	err = env.regs.Validators.RemoveValidator(tx, second)
	require.ErrorIs(t, err, ErrValidatorNotFound)
}

func TestRemoveLastValidator(t *testing.T) {
	env := newTestEnv(t)

	err := env.regs.Validators.RemoveValidator(env.txFrom(env.trustee.account), env.validator)
	require.ErrorIs(t, err, ErrCannotDeactivateLastValidator)
}

func TestValidatorLimit(t *testing.T) {
	env := newTestEnv(t)
	tx := env.txFrom(env.trustee.account)

	// Genesis already seeded one validator.
	for i := 1; i < MaxValidators; i++ {
		require.NoError(t, env.regs.Validators.AddValidator(tx, common.BigToAddress(big.NewInt(int64(0x1000+i)))))
	}

	err := env.regs.Validators.AddValidator(tx, common.BigToAddress(big.NewInt(0xffff)))
	require.ErrorIs(t, err, ErrExceedsValidatorLimit)
}
