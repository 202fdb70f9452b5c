// Package storage provides database abstractions.
package storage

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batch accumulates several writes that Commit applies together. A block
// commit touches the block body, the height index, and one tx-index entry
// per transaction — without a batch a crash between those writes leaves the
// store inconsistent (e.g. a block present but unreachable by height).
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}

// Batcher is implemented by a DB that can build an atomic write Batch.
type Batcher interface {
	NewBatch() Batch
}
