package blob

import (
	"context"
	"io"
)

// Store defines the contract for durable byte storage behind a storage key.
// Keys are caller-supplied and never interpreted; callers own key uniqueness.
type Store interface {
	// SaveWithKey writes the reader's bytes at the given storage key.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	// Open opens the bytes stored at the key. A missing or unreadable key is
	// a storage error, never a validation verdict.
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// ResolveURL returns an opaque display locator for the key. Callers must
	// not parse it.
	ResolveURL(storageKey string) string
}

// Resetter is implemented by stores that support wiping all stored blobs.
// Only the dev/test reset flow uses it.
type Resetter interface {
	Reset(ctx context.Context) error
}
