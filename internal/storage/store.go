// Package storage provides abstractions for durable key-value storage.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// Batch is a set of writes applied atomically by Store.Apply.
// Removes are applied after sets, so a key present in both ends up removed.
type Batch struct {
	Sets    map[string]string
	Removes []string
}

// Empty reports whether the batch has nothing to write.
func (b Batch) Empty() bool {
	return len(b.Sets) == 0 && len(b.Removes) == 0
}

// Store defines durable, namespaced string storage.
// This abstraction allows swapping storage backends (SQLite, a mobile
// key-value store, etc.) without changing the persistence layer.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes the given keys. Missing keys are ignored.
	Remove(ctx context.Context, keys ...string) error

	// Apply commits every write in the batch or none of them.
	Apply(ctx context.Context, batch Batch) error

	// Keys lists stored keys with the given prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
