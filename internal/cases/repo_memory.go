package cases

import (
	"context"
	"sort"
	"sync"
)

// MemoryRegistry is an in-memory Registry implementation.
type MemoryRegistry struct {
	mu      sync.RWMutex
	folders map[string]CaseFolder
	docs    map[string][]Document // caseID -> documents in creation order
}

// NewMemoryRegistry constructs an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		folders: make(map[string]CaseFolder),
		docs:    make(map[string][]Document),
	}
}

// CreateCase stores the folder and its documents under one lock acquisition.
func (r *MemoryRegistry) CreateCase(ctx context.Context, folder CaseFolder, docs []Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.folders[folder.ID] = folder
	r.docs[folder.ID] = append([]Document(nil), docs...)
	return nil
}

// GetCase returns the folder for a case id.
func (r *MemoryRegistry) GetCase(ctx context.Context, caseID string) (CaseFolder, error) {
	if err := ctx.Err(); err != nil {
		return CaseFolder{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	folder, ok := r.folders[caseID]
	if !ok {
		return CaseFolder{}, ErrNotFound
	}
	return folder, nil
}

// ListCases returns all folders, newest first.
func (r *MemoryRegistry) ListCases(ctx context.Context) ([]CaseFolder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CaseFolder, 0, len(r.folders))
	for _, folder := range r.folders {
		out = append(out, folder)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListDocuments returns the documents of a case in creation order.
func (r *MemoryRegistry) ListDocuments(ctx context.Context, caseID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.folders[caseID]; !ok {
		return nil, ErrNotFound
	}
	return append([]Document(nil), r.docs[caseID]...), nil
}

// GetDocument returns the document for the exact (caseID, documentID) pair.
func (r *MemoryRegistry) GetDocument(ctx context.Context, caseID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.docs[caseID] {
		if doc.ID == documentID {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

// TransitionDocument applies a compare-and-set status change under the lock.
func (r *MemoryRegistry) TransitionDocument(ctx context.Context, caseID, documentID string, from, to DocumentStatus, outcome TransitionOutcome) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if !from.CanTransitionTo(to) {
		return Document{}, ErrDocumentFinalized
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.docs[caseID]
	for i := range docs {
		if docs[i].ID != documentID {
			continue
		}
		if docs[i].Status != from {
			return Document{}, ErrDocumentFinalized
		}
		docs[i].Status = to
		docs[i].FailureReason = outcome.FailureReason
		if outcome.StoredSize > 0 {
			docs[i].StoredSize = outcome.StoredSize
		}
		if outcome.UploadedAt != nil {
			docs[i].UploadedAt = outcome.UploadedAt
		}
		r.docs[caseID] = docs
		return docs[i], nil
	}
	return Document{}, ErrNotFound
}

// Reset drops all cases.
func (r *MemoryRegistry) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.folders = make(map[string]CaseFolder)
	r.docs = make(map[string][]Document)
	return nil
}

var _ Registry = (*MemoryRegistry)(nil)
