package grants

import (
	"context"
	"sync"
)

// MemoryStore is an in-process grant table guarded by a mutex.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]Grant
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Grant)}
}

// Put stores a grant under its id.
func (s *MemoryStore) Put(ctx context.Context, grant Grant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[grant.ID] = grant
	return nil
}

// Take removes and returns the grant atomically.
func (s *MemoryStore) Take(ctx context.Context, id string) (Grant, error) {
	if err := ctx.Err(); err != nil {
		return Grant{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.data[id]
	if !ok {
		return Grant{}, ErrGrantNotFound
	}
	delete(s.data, id)
	return grant, nil
}

// Clear drops all grants.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]Grant)
	return nil
}

var _ Store = (*MemoryStore)(nil)
