package specstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// MultiBackend aggregates several backends. Fetch returns the first hit,
// Store writes to every available backend.
type MultiBackend struct {
	backends []Backend
	log      *slog.Logger
}

// NewMultiBackend creates a first-hit aggregate backend.
func NewMultiBackend(backends []Backend, log *slog.Logger) *MultiBackend {
	if log == nil {
		log = slog.Default()
	}
	return &MultiBackend{backends: backends, log: log}
}

// Fetch tries each backend in order and returns the first hit.
func (m *MultiBackend) Fetch(ctx context.Context, id ArtifactID) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend", backend.Name()),
				slog.String("id", id.Hex()))
			continue
		}

		data, err := backend.Fetch(ctx, id)
		if err == nil {
			m.log.Debug("Fetched artifact",
				slog.String("backend", backend.Name()),
				slog.String("id", id.Hex()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend", backend.Name()),
			slog.String("id", id.Hex()),
			"err", err)
	}

	m.log.Error("All backends failed to fetch artifact",
		slog.String("id", id.Hex()),
		slog.Int("failed_backends", len(errs)))

	if allNotFound(errs) && len(errs) > 0 {
		return nil, ErrArtifactNotFound
	}
	return nil, fmt.Errorf("all backends failed to fetch %s: %v", id.Hex(), errs)
}

// Store writes the artifact to every available backend. It succeeds if
// at least one write succeeds.
func (m *MultiBackend) Store(ctx context.Context, data []byte) (ArtifactID, error) {
	id := ArtifactIDOf(data)
	var success bool
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend", backend.Name()))
			continue
		}

		if _, err := backend.Store(ctx, data); err != nil {
			if errors.Is(err, ErrReadOnlyBackend) {
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("Failed to store to backend",
				slog.String("backend", backend.Name()),
				"err", err)
			continue
		}
		success = true
	}

	if !success {
		return id, fmt.Errorf("all backends failed to store artifact: %v", errs)
	}
	return id, nil
}

// Available reports whether any backend is available.
func (m *MultiBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

func (m *MultiBackend) Name() string {
	return "multi-backend"
}

func (m *MultiBackend) LocationURI() string {
	locations := make([]string, 0, len(m.backends))
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}

func allNotFound(errs []error) bool {
	for _, err := range errs {
		if !errors.Is(err, ErrArtifactNotFound) {
			return false
		}
	}
	return true
}
