// Package storage provides the durable key-value medium the state stores
// persist themselves to.
package storage

import (
	"context"
)

// Fixed keys the state stores persist under.
const (
	CartKey    = "cart-storage"
	SessionKey = "auth-storage"
)

// KV is a string-keyed store of serialized JSON blobs.
// It abstracts the underlying medium, allowing for different implementations (e.g., in-memory, database).
type KV interface {
	// Get returns the blob stored under key. The boolean reports whether the
	// key was present; an absent key is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores the blob under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}
