package cases

import "errors"

var (
	// ErrInvalidRequest marks malformed createCase/completeUpload input.
	// Nothing is persisted when it is returned.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound covers an absent case, an absent document, or a
	// (caseID, documentID) pair that does not match.
	ErrNotFound = errors.New("not found")
	// ErrDocumentFinalized marks an attempt to move a document already in a
	// terminal state; the stored outcome is left untouched.
	ErrDocumentFinalized = errors.New("document already finalized")
	// ErrStorage wraps blob read/write failures. It is never a validation
	// verdict: a missing blob is a storage problem, not invalid content.
	ErrStorage = errors.New("storage failure")
)

const (
	ErrorCodeValidation = "validation_error"
	ErrorCodeNotFound   = "not_found"
	ErrorCodeConflict   = "conflict"
	ErrorCodeInvalidDoc = "document_invalid"
	ErrorCodeStorage    = "storage_error"
)

// ValidationError is the one error kind that mutates state before being
// surfaced: the failure reason is persisted on the document first.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
