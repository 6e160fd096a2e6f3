package interfaces

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIdentifier = "0xf0e2db6c8dc6c681bb5d6ad121a107f300e9b2b5"

func TestParseDid(t *testing.T) {
	testCases := []struct {
		name    string
		did     string
		method  string
		network string
		wantErr bool
	}{
		{name: "besu without network", did: "did:besu:" + testIdentifier, method: "besu"},
		{name: "ethr without network", did: "did:ethr:" + testIdentifier, method: "ethr"},
		{name: "with network", did: "did:besu:testnet:" + testIdentifier, method: "besu", network: "testnet"},
		{name: "with nested network", did: "did:besu:org:testnet:" + testIdentifier, method: "besu", network: "org:testnet"},
		{name: "unsupported method", did: "did:web:example.com", wantErr: true},
		{name: "short identifier", did: "did:besu:0x1234", wantErr: true},
		{name: "missing prefix", did: "besu:" + testIdentifier, wantErr: true},
		{name: "trailing fragment", did: "did:besu:" + testIdentifier + "#KEY-1", wantErr: true},
		{name: "empty", did: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := ParseDid(tc.did)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidDid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.method, parsed.Method)
			assert.Equal(t, tc.network, parsed.Network)
			assert.Equal(t, testIdentifier, parsed.Identifier)
			assert.Equal(t, tc.did, parsed.String())
		})
	}
}

func TestParseDidURL(t *testing.T) {
	base := "did:besu:" + testIdentifier

	for _, url := range []string{
		base,
		base + "#KEY-1",
		base + "/path/to/resource",
		base + "?versionId=3",
		base + "/path?query=1#frag",
	} {
		parsed, err := ParseDidURL(url)
		require.NoError(t, err, url)
		assert.Equal(t, base, parsed.String())
	}

	_, err := ParseDidURL("did:besu:nothex#KEY-1")
	require.ErrorIs(t, err, ErrInvalidDid)
}

func TestDidAccountRoundTrip(t *testing.T) {
	account, err := AccountFromHex(testIdentifier)
	require.NoError(t, err)

	did := BuildDid(DidMethodBesu, account)
	assert.Equal(t, "did:besu:"+testIdentifier, did)

	recovered, err := DidAccount(did)
	require.NoError(t, err)
	assert.Equal(t, account, recovered)
}

func TestWithoutNetwork(t *testing.T) {
	parsed, err := ParseDid("did:besu:testnet:" + testIdentifier)
	require.NoError(t, err)

	stripped := parsed.WithoutNetwork()
	assert.Empty(t, stripped.Network)
	assert.Equal(t, "did:besu:"+testIdentifier, stripped.String())
}

func TestRoleNames(t *testing.T) {
	for _, role := range []Role{RoleEmpty, RoleTrustee, RoleEndorser, RoleSteward} {
		parsed, err := RoleFromString(strings.ToUpper(role.String()))
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}

	_, err := RoleFromString("admin")
	require.Error(t, err)
	assert.False(t, Role(200).Valid())
}
