package interfaces

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Supported DID methods. The method-specific identifier is always an
// account address, so resolution never needs an extra lookup step.
const (
	DidMethodBesu = "besu"
	DidMethodEthr = "ethr"
)

var (
	didRegexp = regexp.MustCompile(`^did:(besu|ethr):((?:[a-zA-Z0-9]+:)*)(0x[a-fA-F0-9]{40})$`)

	didURLRegexp = regexp.MustCompile(`^did:(besu|ethr):((?:[a-zA-Z0-9]+:)*)(0x[a-fA-F0-9]{40})(/[^#?]*)?(\?[^#]*)?(#.*)?$`)
)

// ErrInvalidDid is returned for strings that do not match the supported DID
// syntax.
var ErrInvalidDid = errors.New("invalid DID")

// ParsedDid is a decomposed DID. Network is empty for network-less DIDs.
type ParsedDid struct {
	Method     string
	Network    string
	Identifier string
}

// ParseDid parses a bare DID (no path, query or fragment).
func ParseDid(did string) (ParsedDid, error) {
	m := didRegexp.FindStringSubmatch(did)
	if m == nil {
		return ParsedDid{}, fmt.Errorf("%w: %q", ErrInvalidDid, did)
	}
	return ParsedDid{
		Method:     m[1],
		Network:    strings.TrimSuffix(m[2], ":"),
		Identifier: m[3],
	}, nil
}

// ParseDidURL parses a DID URL, discarding any path, query and fragment.
func ParseDidURL(didURL string) (ParsedDid, error) {
	m := didURLRegexp.FindStringSubmatch(didURL)
	if m == nil {
		return ParsedDid{}, fmt.Errorf("%w: %q", ErrInvalidDid, didURL)
	}
	return ParsedDid{
		Method:     m[1],
		Network:    strings.TrimSuffix(m[2], ":"),
		Identifier: m[3],
	}, nil
}

// String reassembles the canonical DID string.
func (p ParsedDid) String() string {
	if p.Network != "" {
		return fmt.Sprintf("did:%s:%s:%s", p.Method, p.Network, p.Identifier)
	}
	return fmt.Sprintf("did:%s:%s", p.Method, p.Identifier)
}

// WithoutNetwork drops the network component. Registry state is keyed by
// the identifier alone, so DIDs differing only in network resolve to the
// same record.
func (p ParsedDid) WithoutNetwork() ParsedDid {
	return ParsedDid{Method: p.Method, Identifier: p.Identifier}
}

// Account returns the account address embedded in the method-specific
// identifier.
func (p ParsedDid) Account() (Account, error) {
	return AccountFromHex(p.Identifier)
}

// BuildDid assembles a network-less DID for the given method and account.
func BuildDid(method string, account Account) string {
	return fmt.Sprintf("did:%s:%s", method, strings.ToLower(account.Hex()))
}

// DidAccount is a convenience wrapper parsing a DID string directly to the
// account it identifies.
func DidAccount(did string) (Account, error) {
	parsed, err := ParseDid(did)
	if err != nil {
		return Account{}, err
	}
	return parsed.Account()
}
