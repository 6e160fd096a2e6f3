package specstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileBackend stores artifacts as files named by their content id hex
// under one directory.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates (if needed) and opens an artifact directory.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}
	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch reads an artifact file and verifies its content hash.
func (b *FileBackend) Fetch(ctx context.Context, id ArtifactID) ([]byte, error) {
	data, err := os.ReadFile(b.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact file: %w", err)
	}
	if ArtifactIDOf(data) != id {
		return nil, fmt.Errorf("artifact %s content hash mismatch", id.Hex())
	}

	b.log.Debug("Fetched artifact from file", slog.String("id", id.Hex()), slog.Int("size", len(data)))
	return data, nil
}

// Store writes the artifact under its content id.
func (b *FileBackend) Store(ctx context.Context, data []byte) (ArtifactID, error) {
	id := ArtifactIDOf(data)
	if err := os.WriteFile(b.path(id), data, 0644); err != nil {
		return id, fmt.Errorf("writing artifact file: %w", err)
	}
	b.log.Debug("Stored artifact in file", slog.String("id", id.Hex()), slog.Int("size", len(data)))
	return id, nil
}

// Available reports whether the artifact directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	return err == nil
}

func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) path(id ArtifactID) string {
	return filepath.Join(b.baseDir, id.Hex()+".json")
}
