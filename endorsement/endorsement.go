// Package endorsement implements the deterministic signing input for
// registry writes submitted on behalf of another identity, and the
// secp256k1 recovery used to verify them.
//
// The signing input is a fixed framing hashed with keccak-256:
//
//	0x19 ‖ 0x00 ‖ contract(20) ‖ actor(20) ‖ method ‖ param...
//
// Numeric parameters are encoded big-endian at their full fixed width and
// 32-byte values are encoded raw. Every variable-length field, including
// the method name, is prefixed with its big-endian uint32 length, so
// adjacent fields can never be re-framed into a colliding input. Empty
// optional fields are encoded with a zero length rather than omitted.
package endorsement

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/identity-registry-backend/interfaces"
)

// Framing prefix of every signing input. The leading 0x19 makes the input
// an invalid RLP payload, so an endorsement can never double as a
// transaction signature.
const (
	signaturePrefix  byte = 0x19
	signatureVersion byte = 0x00
)

// Builder accumulates the signing input for one endorsed operation.
type Builder struct {
	buf bytes.Buffer
}

// NewBuilder starts a signing input for the given target contract, endorsed
// actor and ledger method name.
func NewBuilder(contract, actor interfaces.Account, method string) *Builder {
	b := &Builder{}
	b.buf.WriteByte(signaturePrefix)
	b.buf.WriteByte(signatureVersion)
	b.buf.Write(contract.Bytes())
	b.buf.Write(actor.Bytes())
	b.writeLengthPrefixed([]byte(method))
	return b
}

func (b *Builder) writeLengthPrefixed(p []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(p)))
	b.buf.Write(length[:])
	b.buf.Write(p)
}

// String appends a length-prefixed UTF-8 string parameter.
func (b *Builder) String(s string) *Builder {
	b.writeLengthPrefixed([]byte(s))
	return b
}

// Bytes appends a length-prefixed variable-length byte parameter.
func (b *Builder) Bytes(p []byte) *Builder {
	b.writeLengthPrefixed(p)
	return b
}

// Bytes32 appends a fixed 32-byte parameter.
func (b *Builder) Bytes32(v [32]byte) *Builder {
	b.buf.Write(v[:])
	return b
}

// Account appends a fixed 20-byte account parameter.
func (b *Builder) Account(a interfaces.Account) *Builder {
	b.buf.Write(a.Bytes())
	return b
}

// Uint8 appends a fixed single-byte parameter.
func (b *Builder) Uint8(v uint8) *Builder {
	b.buf.WriteByte(v)
	return b
}

// Uint32 appends a fixed 4-byte big-endian parameter.
func (b *Builder) Uint32(v uint32) *Builder {
	var enc [4]byte
	binary.BigEndian.PutUint32(enc[:], v)
	b.buf.Write(enc[:])
	return b
}

// Uint64 appends a fixed 8-byte big-endian parameter.
func (b *Builder) Uint64(v uint64) *Builder {
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], v)
	b.buf.Write(enc[:])
	return b
}

// Uint256 appends a fixed 32-byte big-endian parameter. Nil is encoded as
// zero.
func (b *Builder) Uint256(v *big.Int) *Builder {
	var enc [32]byte
	if v != nil {
		v.FillBytes(enc[:])
	}
	b.buf.Write(enc[:])
	return b
}

// SigningInput returns the accumulated raw input bytes.
func (b *Builder) SigningInput() []byte {
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

// Digest returns the keccak-256 hash of the signing input, the value
// signers operate on.
func (b *Builder) Digest() [32]byte {
	return crypto.Keccak256Hash(b.buf.Bytes())
}

// RecoverSigner recovers the account that produced sig over digest.
func RecoverSigner(digest [32]byte, sig interfaces.SignatureData) (interfaces.Account, error) {
	pubkey, err := crypto.SigToPub(digest[:], sig.Raw())
	if err != nil {
		return interfaces.Account{}, fmt.Errorf("signature recovery: %w", err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}
