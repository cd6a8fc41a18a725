package storage

import "context"

// Store is the durable blob capability backing the history store: one
// serialized value per key with get/set/remove semantics. Implementations
// must tolerate concurrent readers; single-writer usage is assumed.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores the value under the key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes the key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
