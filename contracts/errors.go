package contracts

import (
	"errors"

	"github.com/ruteri/identity-registry-backend/registry"
)

// EncodeRevert packs a registry error into solidity custom-error revert
// data: the error's four-byte selector followed by its ABI-encoded
// arguments. Errors outside the taxonomy report ok = false and revert
// with empty data.
func (s *Set) EncodeRevert(err error) ([]byte, bool) {
	var ledgerErr *registry.Error
	if !errors.As(err, &ledgerErr) {
		return nil, false
	}
	abiErr, ok := s.errByName[ledgerErr.Code.Name]
	if !ok {
		return nil, false
	}
	packed, packErr := abiErr.Inputs.Pack(ledgerErr.Args...)
	if packErr != nil {
		return nil, false
	}
	return append(abiErr.ID[:4:4], packed...), true
}

// DecodeRevert maps custom-error revert data back to the registry error
// it encodes, so errors.Is holds across the wire. Unknown selectors and
// malformed data report ok = false.
func (s *Set) DecodeRevert(data []byte) (error, bool) {
	if len(data) < 4 {
		return nil, false
	}
	var selector [4]byte
	copy(selector[:], data[:4])
	abiErr, ok := s.errByID[selector]
	if !ok {
		return nil, false
	}
	code, ok := registry.CodeByName(abiErr.Name)
	if !ok {
		return nil, false
	}
	values, err := abiErr.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, false
	}
	return code.With(values...), true
}
