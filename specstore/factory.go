package specstore

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Factory creates artifact backends from location URIs.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a backend factory.
func NewFactory(log *slog.Logger) *Factory {
	if log == nil {
		log = slog.Default()
	}
	return &Factory{log: log}
}

// BackendFor creates a backend from a location URI.
//
// Supported schemes:
//   - file:///path — local filesystem
//   - s3://[ACCESS:SECRET@]bucket/prefix?region=...&endpoint=... — S3 or
//     compatible object storage
//   - ipfs://host:port?timeout=30s — IPFS node API
//   - vault://host:port/mount/path?token=...&tls=false — Vault KV v2
//   - github://owner/repo — read-only Git blob storage
func (f *Factory) BackendFor(locationURI string) (Backend, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return f.createFileBackend(u)
	case "s3":
		return f.createS3Backend(u)
	case "ipfs":
		return f.createIPFSBackend(u)
	case "vault":
		return f.createVaultBackend(u)
	case "github":
		return f.createGitHubBackend(u)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, u.Scheme)
	}
}

// MultiBackendFor creates a first-hit aggregate over every URI that
// yields a valid backend. URIs that fail to construct are logged and
// skipped; at least one backend must survive.
func (f *Factory) MultiBackendFor(locationURIs []string) (Backend, error) {
	backends := make([]Backend, 0, len(locationURIs))
	for _, uri := range locationURIs {
		backend, err := f.BackendFor(uri)
		if err != nil {
			f.log.Warn("Skipping invalid storage backend", "err", err, slog.String("locationURI", uri))
			continue
		}
		backends = append(backends, backend)
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends among %d URIs", len(locationURIs))
	}
	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMultiBackend(backends, f.log), nil
}

func (f *Factory) createFileBackend(u *url.URL) (Backend, error) {
	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in %q", ErrInvalidLocationURI, u.String())
	}
	return NewFileBackend(path, f.log)
}

func (f *Factory) createS3Backend(u *url.URL) (Backend, error) {
	bucket := u.Host
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 URI is missing the bucket", ErrInvalidLocationURI)
	}
	prefix := strings.Trim(u.Path, "/")

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	return NewS3Backend(S3Config{
		Bucket:    bucket,
		Prefix:    prefix,
		Region:    region,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}, f.log)
}

func (f *Factory) createIPFSBackend(u *url.URL) (Backend, error) {
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: ipfs URI is missing the host", ErrInvalidLocationURI)
	}
	port := u.Port()
	if port == "" {
		port = "5001"
	}
	timeout := u.Query().Get("timeout")
	if timeout == "" {
		timeout = "30s"
	}
	return NewIPFSBackend(host, port, timeout, f.log)
}

func (f *Factory) createVaultBackend(u *url.URL) (Backend, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("%w: vault URI is missing the host", ErrInvalidLocationURI)
	}
	segments := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return nil, fmt.Errorf("%w: expected vault://host:port/mount/path", ErrInvalidLocationURI)
	}

	query := u.Query()
	scheme := "https"
	if query.Get("tls") == "false" {
		scheme = "http"
	}

	return NewVaultBackend(VaultConfig{
		Address:   fmt.Sprintf("%s://%s", scheme, u.Host),
		Token:     query.Get("token"),
		MountPath: segments[0],
		DataPath:  segments[1],
	}, f.log)
}

func (f *Factory) createGitHubBackend(u *url.URL) (Backend, error) {
	owner := u.Host
	repo := strings.Trim(u.Path, "/")
	if owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("%w: expected github://owner/repo", ErrInvalidLocationURI)
	}
	return NewGitHubBackend(owner, repo, f.log), nil
}
