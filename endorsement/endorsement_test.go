package endorsement

import (
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/identity-registry-backend/interfaces"
)

var (
	testContract = common.HexToAddress("0x0000000000000000000000000000000000003333")
	testActor    = common.HexToAddress("0xf0e2db6c8dc6c681bb5d6ad121a107f300e9b2b5")

	// Development key of testActor.
	testKeyHex = "8bbbb1b345af56b560a5b20bd4b0ed1cd8cc9958a16262bc75118453cb546df7"
)

func TestDigestDeterminism(t *testing.T) {
	build := func() [32]byte {
		return NewBuilder(testContract, testActor, "createDid").
			Bytes([]byte(`{"id":"did:besu:0xf0e2db6c8dc6c681bb5d6ad121a107f300e9b2b5"}`)).
			Digest()
	}

	first := build()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, build())
	}
}

func TestDigestFieldSensitivity(t *testing.T) {
	base := NewBuilder(testContract, testActor, "createSchema").
		Bytes32([32]byte{1}).
		String("issuer").
		Bytes([]byte("payload")).
		Digest()

	otherContract := NewBuilder(testActor, testActor, "createSchema").
		Bytes32([32]byte{1}).String("issuer").Bytes([]byte("payload")).Digest()
	assert.NotEqual(t, base, otherContract)

	otherActor := NewBuilder(testContract, testContract, "createSchema").
		Bytes32([32]byte{1}).String("issuer").Bytes([]byte("payload")).Digest()
	assert.NotEqual(t, base, otherActor)

	otherMethod := NewBuilder(testContract, testActor, "createSchemas").
		Bytes32([32]byte{1}).String("issuer").Bytes([]byte("payload")).Digest()
	assert.NotEqual(t, base, otherMethod)

	otherID := NewBuilder(testContract, testActor, "createSchema").
		Bytes32([32]byte{2}).String("issuer").Bytes([]byte("payload")).Digest()
	assert.NotEqual(t, base, otherID)

	otherPayload := NewBuilder(testContract, testActor, "createSchema").
		Bytes32([32]byte{1}).String("issuer").Bytes([]byte("payloae")).Digest()
	assert.NotEqual(t, base, otherPayload)
}

// Length prefixes keep adjacent variable-length fields from being
// re-split into a colliding input.
func TestDigestFraming(t *testing.T) {
	a := NewBuilder(testContract, testActor, "m").String("ab").String("c").Digest()
	b := NewBuilder(testContract, testActor, "m").String("a").String("bc").Digest()
	assert.NotEqual(t, a, b)

	// An empty optional field still shifts subsequent fields.
	c := NewBuilder(testContract, testActor, "m").String("").String("abc").Digest()
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, b, c)
}

func TestSigningInputLayout(t *testing.T) {
	input := NewBuilder(testContract, testActor, "m").Uint64(7).SigningInput()

	require.Equal(t, byte(0x19), input[0])
	require.Equal(t, byte(0x00), input[1])
	assert.Equal(t, testContract.Bytes(), input[2:22])
	assert.Equal(t, testActor.Bytes(), input[22:42])
	// Method: uint32 length 1, then "m".
	assert.Equal(t, []byte{0, 0, 0, 1, 'm'}, input[42:47])
	// Fixed-width uint64.
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 7}, input[47:])
}

func TestSignAndRecover(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)

	digest := NewBuilder(testContract, testActor, "createDid").
		Bytes([]byte("document")).
		Digest()

	rawSig, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)

	sig, err := interfaces.NewSignatureData(rawSig)
	require.NoError(t, err)

	recovered, err := RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, testActor, recovered)

	// A different digest recovers a different account.
	tampered := NewBuilder(testContract, testActor, "createDid").
		Bytes([]byte("documenT")).
		Digest()
	other, err := RecoverSigner(tampered, sig)
	require.NoError(t, err)
	assert.NotEqual(t, testActor, other)

	// A malformed signature is an error, not a panic.
	bad := sig
	bad.S = [32]byte{}
	_, err = RecoverSigner(digest, bad)
	require.Error(t, err)
}

func TestKnownKeyAddress(t *testing.T) {
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, testActor, crypto.PubkeyToAddress(key.PublicKey))

	raw, err := hex.DecodeString(testKeyHex)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}
