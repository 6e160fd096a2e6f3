package specstore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFileBackendRoundTrip(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	data := []byte(`{"name":"devnet","chainId":1337,"nodes":["http://localhost:8545"],"contracts":{}}`)
	id, err := backend.Store(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, ArtifactIDOf(data), id)

	fetched, err := backend.Fetch(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	assert.True(t, backend.Available(context.Background()))
}

func TestFileBackendNotFound(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	_, err = backend.Fetch(context.Background(), ArtifactIDOf([]byte("missing")))
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestFileBackendDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)

	data := []byte("original artifact")
	id, err := backend.Store(context.Background(), data)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, id.Hex()+".json"), []byte("tampered"), 0644))

	_, err = backend.Fetch(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")
}

func TestMultiBackendFallback(t *testing.T) {
	first, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	second, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	data := []byte("artifact held only by the second backend")
	id, err := second.Store(context.Background(), data)
	require.NoError(t, err)

	multi := NewMultiBackend([]Backend{first, second}, testLogger())

	fetched, err := multi.Fetch(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	_, err = multi.Fetch(context.Background(), ArtifactIDOf([]byte("nowhere")))
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestMultiBackendStoresToAll(t *testing.T) {
	first, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	second, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	multi := NewMultiBackend([]Backend{first, second}, testLogger())

	data := []byte("replicated artifact")
	id, err := multi.Store(context.Background(), data)
	require.NoError(t, err)

	for _, backend := range []Backend{first, second} {
		fetched, err := backend.Fetch(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, data, fetched)
	}
}

func TestFactorySchemes(t *testing.T) {
	factory := NewFactory(testLogger())

	backend, err := factory.BackendFor("file://" + t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)

	backend, err = factory.BackendFor("github://hyperledger/indy-node-networks")
	require.NoError(t, err)
	assert.IsType(t, &GitHubBackend{}, backend)

	_, err = factory.BackendFor("ftp://unsupported")
	assert.ErrorIs(t, err, ErrInvalidLocationURI)

	_, err = factory.BackendFor("vault://host:8200/onlymount")
	assert.ErrorIs(t, err, ErrInvalidLocationURI)
}

func TestFactoryMultiSkipsInvalid(t *testing.T) {
	factory := NewFactory(testLogger())

	dir := t.TempDir()
	backend, err := factory.MultiBackendFor([]string{"bad://nope", "file://" + dir})
	require.NoError(t, err)
	// A single surviving backend passes through without wrapping.
	assert.IsType(t, &FileBackend{}, backend)

	_, err = factory.MultiBackendFor([]string{"bad://nope"})
	assert.Error(t, err)
}

func TestGitHubBackendIsReadOnly(t *testing.T) {
	backend := NewGitHubBackend("owner", "repo", testLogger())
	_, err := backend.Store(context.Background(), []byte("data"))
	assert.ErrorIs(t, err, ErrReadOnlyBackend)
}

func TestParseNetworkProfile(t *testing.T) {
	raw := []byte(`{
		"name": "devnet",
		"chainId": 1337,
		"nodes": ["http://127.0.0.1:8545", "http://127.0.0.1:8546"],
		"quorumThreshold": 1,
		"contracts": {
			"DidRegistry": {"address": "0x0000000000000000000000000000000000003333"}
		}
	}`)

	profile, err := ParseNetworkProfile(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(1337), profile.ChainID)
	assert.Len(t, profile.Nodes, 2)

	addr, err := profile.ContractAddress("DidRegistry")
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000003333", addr.Hex())

	_, err = profile.ContractAddress("RoleControl")
	assert.Error(t, err)

	// The profile must survive an encode/decode cycle unchanged.
	encoded, err := profile.Encode()
	require.NoError(t, err)
	again, err := ParseNetworkProfile(encoded)
	require.NoError(t, err)
	assert.Equal(t, profile, again)
}

func TestParseNetworkProfileRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing chain id", `{"nodes":["http://localhost:8545"],"contracts":{}}`},
		{"no nodes", `{"chainId":1337,"nodes":[],"contracts":{}}`},
		{"threshold above node count", `{"chainId":1337,"nodes":["a"],"quorumThreshold":2,"contracts":{}}`},
		{"bad contract address", `{"chainId":1337,"nodes":["a"],"contracts":{"DidRegistry":{"address":"nope"}}}`},
		{"not json", `{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseNetworkProfile([]byte(tc.raw))
			assert.Error(t, err)
		})
	}
}

func TestParseContractSpec(t *testing.T) {
	spec, err := ParseContractSpec([]byte(`{"contractName":"DidRegistry","abi":[{"type":"function","name":"resolveDid"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "DidRegistry", spec.ContractName)

	_, err = ParseContractSpec([]byte(`{"abi":[]}`))
	assert.Error(t, err)

	_, err = ParseContractSpec([]byte(`{"contractName":"DidRegistry"}`))
	assert.Error(t, err)
}
