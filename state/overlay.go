package state

import (
	"sync"

	"github.com/ruteri/identity-registry-backend/interfaces"
)

// Overlay is a copy-on-write view over a base store. Reads fall through to
// the base; writes and deletes stay in the overlay and never reach it. The
// ledger node runs eth_call executions against an overlay so calls observe
// current state without persisting effects.
type Overlay struct {
	base interfaces.StateStore

	mu      sync.RWMutex
	buckets map[string]map[string]overlayEntry
}

type overlayEntry struct {
	value   []byte
	deleted bool
}

// NewOverlay creates an overlay view of base.
func NewOverlay(base interfaces.StateStore) *Overlay {
	return &Overlay{
		base:    base,
		buckets: make(map[string]map[string]overlayEntry),
	}
}

func (o *Overlay) lookup(bucket, key []byte) (overlayEntry, bool) {
	b, ok := o.buckets[string(bucket)]
	if !ok {
		return overlayEntry{}, false
	}
	entry, ok := b[string(key)]
	return entry, ok
}

// Get returns the overlay value if the key was written or deleted here,
// falling through to the base store otherwise.
func (o *Overlay) Get(bucket, key []byte) ([]byte, error) {
	o.mu.RLock()
	entry, ok := o.lookup(bucket, key)
	o.mu.RUnlock()

	if ok {
		if entry.deleted {
			return nil, nil
		}
		out := make([]byte, len(entry.value))
		copy(out, entry.value)
		return out, nil
	}
	return o.base.Get(bucket, key)
}

// Put buffers the value in the overlay.
func (o *Overlay) Put(bucket, key, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	o.mu.Lock()
	defer o.mu.Unlock()

	b, ok := o.buckets[string(bucket)]
	if !ok {
		b = make(map[string]overlayEntry)
		o.buckets[string(bucket)] = b
	}
	b[string(key)] = overlayEntry{value: stored}
	return nil
}

// Has reports key presence through the overlay view.
func (o *Overlay) Has(bucket, key []byte) (bool, error) {
	o.mu.RLock()
	entry, ok := o.lookup(bucket, key)
	o.mu.RUnlock()

	if ok {
		return !entry.deleted, nil
	}
	return o.base.Has(bucket, key)
}

// Delete buffers a tombstone hiding the base value.
func (o *Overlay) Delete(bucket, key []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	b, ok := o.buckets[string(bucket)]
	if !ok {
		b = make(map[string]overlayEntry)
		o.buckets[string(bucket)] = b
	}
	b[string(key)] = overlayEntry{deleted: true}
	return nil
}

// Close discards the overlay. The base store stays open.
func (o *Overlay) Close() error {
	o.buckets = nil
	return nil
}

var _ interfaces.StateStore = (*Overlay)(nil)
