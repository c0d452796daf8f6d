package store

import (
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Store is the key value persistence used for snapshots.
type Store interface {
	Close() error
	// Get returns ErrKeyNotFound when the key does not exist.
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	// PutBatch writes all entries atomically.
	PutBatch(entries map[string][]byte) error
	Delete(key []byte) error
	// List calls fn for every key with the given prefix in key order. An
	// error returned by fn stops the iteration and is returned.
	List(prefix []byte, fn func(key, value []byte) error) error
}
