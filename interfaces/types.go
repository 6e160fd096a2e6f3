package interfaces

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Account is a 20-byte ledger account address. Registry records are keyed
// and owned by accounts, and every authenticated operation names one
// explicitly.
type Account = common.Address

// ResourceID is the 32-byte identifier of an immutable registry resource,
// derived as the keccak-256 hash of its canonical identifier string.
type ResourceID = common.Hash

// AccountFromHex parses a 0x-prefixed hex string into an Account.
func AccountFromHex(s string) (Account, error) {
	if !common.IsHexAddress(s) {
		return Account{}, fmt.Errorf("invalid account address %q", s)
	}
	return common.HexToAddress(s), nil
}

// Role is the on-ledger permission level of an account.
type Role uint8

const (
	RoleEmpty Role = iota
	RoleTrustee
	RoleEndorser
	RoleSteward
)

var roleNames = map[Role]string{
	RoleEmpty:    "empty",
	RoleTrustee:  "trustee",
	RoleEndorser: "endorser",
	RoleSteward:  "steward",
}

// String returns the lowercase role name, or "unknown" for values outside
// the defined set.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether r is one of the defined role values.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// RoleFromString parses a case-insensitive role name.
func RoleFromString(s string) (Role, error) {
	for role, name := range roleNames {
		if strings.EqualFold(s, name) {
			return role, nil
		}
	}
	return RoleEmpty, fmt.Errorf("unknown role %q", s)
}

// SignatureData is a secp256k1 recoverable signature in (v, r, s) form.
// V is normalized to 27 or 28.
type SignatureData struct {
	V uint8
	R [32]byte
	S [32]byte
}

// NewSignatureData builds SignatureData from a 65-byte [R || S || V]
// signature. V may be given as 0/1 (raw recovery id) or 27/28.
func NewSignatureData(sig []byte) (SignatureData, error) {
	if len(sig) != 65 {
		return SignatureData{}, fmt.Errorf("invalid signature length %d, expected 65", len(sig))
	}
	v := sig[64]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return SignatureData{}, fmt.Errorf("invalid signature recovery value %d", sig[64])
	}
	var sd SignatureData
	sd.V = v
	copy(sd.R[:], sig[0:32])
	copy(sd.S[:], sig[32:64])
	return sd, nil
}

// Raw returns the 65-byte [R || S || V] form with V as a 0/1 recovery id,
// the layout expected by secp256k1 public key recovery.
func (s SignatureData) Raw() []byte {
	sig := make([]byte, 65)
	copy(sig[0:32], s.R[:])
	copy(sig[32:64], s.S[:])
	sig[64] = s.V - 27
	return sig
}

// IsZero reports whether the signature is unset.
func (s SignatureData) IsZero() bool {
	return s == SignatureData{}
}

// ErrNoSuchAccount is returned by signers asked to sign for an account they
// do not hold a key for.
var ErrNoSuchAccount = errors.New("no key available for account")
