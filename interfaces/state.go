package interfaces

// StateStore is the key-value store the registry modules run against.
// Keys are grouped into named buckets, one per registry concern.
//
// Get returns a nil slice without error for missing keys; callers detect
// absence through the record's Created sentinel or Has.
type StateStore interface {
	Get(bucket, key []byte) ([]byte, error)
	Put(bucket, key, value []byte) error
	Has(bucket, key []byte) (bool, error)
	Delete(bucket, key []byte) error
	Close() error
}
