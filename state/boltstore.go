package state

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ruteri/identity-registry-backend/interfaces"
)

// BoltStore is a bbolt-backed StateStore for persistent nodes.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates the database file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening state database %s: %w", path, err)
	}
	return &BoltStore{db: db}, nil
}

// Get returns a copy of the stored value, or nil when the key is absent.
func (s *BoltStore) Get(bucket, key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		// Values are only valid for the duration of the transaction.
		if value := b.Get(key); value != nil {
			out = make([]byte, len(value))
			copy(out, value)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("state get: %w", err)
	}
	return out, nil
}

// Put stores value under bucket/key, creating the bucket if needed.
func (s *BoltStore) Put(bucket, key, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("state put: %w", err)
	}
	return nil
}

// Has reports whether bucket/key holds a value.
func (s *BoltStore) Has(bucket, key []byte) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		found = b.Get(key) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("state has: %w", err)
	}
	return found, nil
}

// Delete removes bucket/key. Deleting an absent key is not an error.
func (s *BoltStore) Delete(bucket, key []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("state delete: %w", err)
	}
	return nil
}

// Close releases the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

var _ interfaces.StateStore = (*BoltStore)(nil)
