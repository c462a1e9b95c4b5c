package grants

import "context"

// Store is the mutable grant table shared by arbitrary upload clients. Take
// must be atomic: of two concurrent Take calls for the same id, exactly one
// may succeed.
type Store interface {
	Put(ctx context.Context, grant Grant) error
	// Take removes and returns the grant in one step. A missing id returns
	// ErrGrantNotFound.
	Take(ctx context.Context, id string) (Grant, error)
	// Clear drops every outstanding grant. Dev/test reset only.
	Clear(ctx context.Context) error
}
