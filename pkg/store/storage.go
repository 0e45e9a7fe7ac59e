package store

import (
	"context"
)

const (
	CurrentVersion = 1
)

// Storage is a plain string-keyed persistent store. Expiry is not part
// of the contract, staleness is tracked by the cache layer on top.
type Storage interface {
	Close() error
	Version() (int, error)

	// Get returns the raw value for key, or model.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set inserts or overwrites the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes the key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// WalkKeys iterates over keys that start with the given prefix.
	WalkKeys(ctx context.Context, prefix string, cb func(key string) error) error
}
