package specstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	shell "github.com/ipfs/go-ipfs-api"
)

// mfsRoot is the IPFS files-API directory artifacts live under, keyed by
// content id hex. MFS gives the keccak-addressed artifacts a stable
// lookup path independent of IPFS's own content ids.
const mfsRoot = "/identity-registry-artifacts"

// IPFSBackend stores artifacts on an IPFS node through its files API.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend connects to an IPFS node API.
func NewIPFSBackend(host, port, timeout string, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)
	return &IPFSBackend{
		shell:       shell.NewShell(apiURL),
		host:        host,
		port:        port,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s?timeout=%s", apiURL, timeout),
	}, nil
}

// Fetch reads an artifact from the node's files API and verifies its
// content hash.
func (b *IPFSBackend) Fetch(ctx context.Context, id ArtifactID) ([]byte, error) {
	if !b.shell.IsUp() {
		return nil, ErrBackendUnavailable
	}

	reader, err := b.shell.FilesRead(ctx, b.filesPath(id))
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("fetching artifact from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading artifact from IPFS: %w", err)
	}
	if ArtifactIDOf(data) != id {
		return nil, fmt.Errorf("artifact %s content hash mismatch", id.Hex())
	}

	b.log.Debug("Fetched artifact from IPFS", slog.String("id", id.Hex()), slog.Int("size", len(data)))
	return data, nil
}

// Store writes the artifact into the node's files API under its content
// id.
func (b *IPFSBackend) Store(ctx context.Context, data []byte) (ArtifactID, error) {
	id := ArtifactIDOf(data)
	if !b.shell.IsUp() {
		return id, ErrBackendUnavailable
	}

	err := b.shell.FilesWrite(ctx, b.filesPath(id), bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return id, fmt.Errorf("storing artifact in IPFS: %w", err)
	}

	b.log.Debug("Stored artifact in IPFS", slog.String("id", id.Hex()), slog.Int("size", len(data)))
	return id, nil
}

// Available reports whether the IPFS node responds.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func (b *IPFSBackend) filesPath(id ArtifactID) string {
	return fmt.Sprintf("%s/%s", mfsRoot, id.Hex())
}
