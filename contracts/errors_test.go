package contracts

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/identity-registry-backend/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevertRoundTrip(t *testing.T) {
	set := Default()

	identity := common.HexToAddress("0x1234")
	actor := common.HexToAddress("0x5678")
	id := common.HexToHash("0xc0ffee")

	cases := []struct {
		name string
		in   error
		code *registry.Code
		args []any
	}{
		{"address arg", registry.ErrDidNotFound.With(identity), registry.ErrDidNotFound, []any{identity}},
		{"two addresses", registry.ErrNotIdentityOwner.With(actor, identity), registry.ErrNotIdentityOwner, []any{actor, identity}},
		{"bytes32 arg", registry.ErrSchemaNotFound.With(id), registry.ErrSchemaNotFound, []any{id}},
		{"string arg", registry.ErrInvalidSchema.With("attrNames must not be empty"), registry.ErrInvalidSchema, []any{"attrNames must not be empty"}},
		{"uint8 arg", registry.ErrInvalidRole.With(uint8(9)), registry.ErrInvalidRole, []any{uint8(9)}},
		{"uint256 arg", registry.ErrExceedsValidatorLimit.With(big.NewInt(256)), registry.ErrExceedsValidatorLimit, []any{big.NewInt(256)}},
		{"two uint256", registry.ErrInsufficientApprovals.With(big.NewInt(1), big.NewInt(3)), registry.ErrInsufficientApprovals, []any{big.NewInt(1), big.NewInt(3)}},
		{"no args", registry.ErrCannotRevokeLastTrustee.With(), registry.ErrCannotRevokeLastTrustee, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, ok := set.EncodeRevert(tc.in)
			require.True(t, ok)
			require.GreaterOrEqual(t, len(data), 4)

			decoded, ok := set.DecodeRevert(data)
			require.True(t, ok)
			require.ErrorIs(t, decoded, tc.code)

			var ledgerErr *registry.Error
			require.ErrorAs(t, decoded, &ledgerErr)
			require.Len(t, ledgerErr.Args, len(tc.args))
			for i, want := range tc.args {
				assert.EqualValues(t, want, ledgerErr.Args[i])
			}
		})
	}
}

func TestRevertRoundTripThroughWrapping(t *testing.T) {
	set := Default()

	wrapped := registry.ErrUnauthorized.With(common.HexToAddress("0x5678"))
	data, ok := set.EncodeRevert(wrapped)
	require.True(t, ok)

	decoded, ok := set.DecodeRevert(data)
	require.True(t, ok)
	assert.ErrorIs(t, decoded, registry.ErrUnauthorized)
	assert.Contains(t, decoded.Error(), "Unauthorized")
}

func TestEncodeRevertRejectsForeignErrors(t *testing.T) {
	set := Default()

	_, ok := set.EncodeRevert(errors.New("out of gas"))
	assert.False(t, ok)

	_, ok = set.EncodeRevert(nil)
	assert.False(t, ok)
}

func TestDecodeRevertRejectsMalformedData(t *testing.T) {
	set := Default()

	_, ok := set.DecodeRevert(nil)
	assert.False(t, ok)

	_, ok = set.DecodeRevert([]byte{0x01, 0x02})
	assert.False(t, ok)

	_, ok = set.DecodeRevert([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.False(t, ok)

	// Valid selector, truncated argument payload.
	valid, ok := set.EncodeRevert(registry.ErrDidNotFound.With(common.HexToAddress("0x1234")))
	require.True(t, ok)
	_, ok = set.DecodeRevert(valid[:8])
	assert.False(t, ok)
}
