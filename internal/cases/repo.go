package cases

import (
	"context"
	"time"
)

// TransitionOutcome carries the fields stamped alongside a status change.
type TransitionOutcome struct {
	FailureReason string
	StoredSize    int64
	UploadedAt    *time.Time
}

// Registry is the single source of truth for case and document lifecycle
// state. Adapters (memory, file, postgres) are interchangeable; nothing
// above this interface may depend on which one is active.
type Registry interface {
	// CreateCase persists the folder and all its documents atomically:
	// either everything becomes visible or nothing does.
	CreateCase(ctx context.Context, folder CaseFolder, docs []Document) error
	GetCase(ctx context.Context, caseID string) (CaseFolder, error)
	ListCases(ctx context.Context) ([]CaseFolder, error)
	ListDocuments(ctx context.Context, caseID string) ([]Document, error)
	// GetDocument looks up strictly by the (caseID, documentID) pair; a
	// document under a different case is ErrNotFound, never leaked.
	GetDocument(ctx context.Context, caseID, documentID string) (Document, error)
	// TransitionDocument applies a compare-and-set status change: it
	// succeeds only while the document is still in `from`, so two racing
	// completions cannot both write an outcome. An illegal or stale
	// transition returns ErrDocumentFinalized.
	TransitionDocument(ctx context.Context, caseID, documentID string, from, to DocumentStatus, outcome TransitionOutcome) (Document, error)
	// Reset drops all cases and documents. Dev/test only.
	Reset(ctx context.Context) error
}
