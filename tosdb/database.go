// Package tosdb defines the key-value store interfaces the ledger persists
// accounts through.
package tosdb

import (
	"errors"
	"io"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("tosdb: not found")

// KeyValueReader wraps the Has and Get method of a backing data store.
type KeyValueReader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the Put and Delete method of a backing data store.
type KeyValueWriter interface {
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// Batch is a write-only store that commits its changes atomically on Write.
type Batch interface {
	KeyValueWriter

	// ValueSize retrieves the amount of data queued up for writing.
	ValueSize() int

	Write() error
	Reset()
}

// Batcher wraps the NewBatch method of a backing data store.
type Batcher interface {
	NewBatch() Batch
}

// KeyValueStore contains all the methods required to allow handling
// different key-value data stores backing the ledger.
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter
	Batcher
	io.Closer
}
