package specstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

// VaultConfig configures a Vault KV v2 artifact backend.
type VaultConfig struct {
	// Address is the Vault server address, e.g. https://vault.example.com:8200.
	Address string

	// Token authenticates requests.
	Token string

	// MountPath is the KV v2 mount, e.g. "secret".
	MountPath string

	// DataPath is the path within the mount artifacts live under.
	DataPath string
}

// VaultBackend stores artifacts in a HashiCorp Vault KV v2 mount, one
// secret per artifact keyed by content id hex.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a Vault artifact backend.
func NewVaultBackend(cfg VaultConfig, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = cfg.Address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("creating Vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	mountPath := strings.Trim(cfg.MountPath, "/")
	dataPath := strings.Trim(cfg.DataPath, "/")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", cfg.Address, mountPath, dataPath),
	}, nil
}

// Fetch reads an artifact secret and verifies its content hash.
func (b *VaultBackend) Fetch(ctx context.Context, id ArtifactID) ([]byte, error) {
	path := b.secretPath(id)

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault", slog.String("path", path), "err", err)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, ErrArtifactNotFound
	}

	// KV v2 wraps the payload in a "data" map.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response at %s", path)
	}
	content, ok := data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key missing in Vault secret at %s", path)
	}

	raw := []byte(content)
	if ArtifactIDOf(raw) != id {
		return nil, fmt.Errorf("artifact %s content hash mismatch", id.Hex())
	}

	b.log.Debug("Fetched artifact from Vault", slog.String("id", id.Hex()), slog.Int("size", len(raw)))
	return raw, nil
}

// Store writes the artifact as a KV v2 secret under its content id.
func (b *VaultBackend) Store(ctx context.Context, data []byte) (ArtifactID, error) {
	id := ArtifactIDOf(data)
	path := b.secretPath(id)

	_, err := b.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"data": map[string]interface{}{
			"content": string(data),
		},
	})
	if err != nil {
		b.log.Error("Failed to write to Vault", slog.String("path", path), "err", err)
		return id, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored artifact in Vault", slog.String("id", id.Hex()), slog.Int("size", len(data)))
	return id, nil
}

// Available reports whether Vault is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}
	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

func (b *VaultBackend) secretPath(id ArtifactID) string {
	return fmt.Sprintf("%s/data/%s/%s", b.mountPath, b.dataPath, id.Hex())
}
