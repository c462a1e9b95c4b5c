package cases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"docudeep-backend/internal/blob"
	"docudeep-backend/internal/grants"
	"docudeep-backend/internal/shared/metrics"
	"docudeep-backend/internal/shared/telemetry"
	"docudeep-backend/internal/validation"
)

// Service orchestrates the case lifecycle: intake, upload authorization,
// content validation and read-side queries.
type Service struct {
	Registry  Registry
	Blob      blob.Store
	Authority grants.Authority
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// CreateCase validates the requested documents, issues one upload grant per
// document and registers the whole case in a single atomic call. Grants are
// issued before registration; if registration fails the orphaned grants
// simply expire unused.
func (s *Service) CreateCase(ctx context.Context, specs []DocumentSpec) (CaseCreateResponse, error) {
	if len(specs) == 0 {
		return CaseCreateResponse{}, fmt.Errorf("%w: at least one document is required", ErrInvalidRequest)
	}
	if len(specs) > MaxDocumentsPerCase {
		return CaseCreateResponse{}, fmt.Errorf("%w: a case holds at most %d documents, got %d", ErrInvalidRequest, MaxDocumentsPerCase, len(specs))
	}

	now := s.now()
	caseID := uuid.NewString()
	folder := CaseFolder{ID: caseID, Status: CaseStatusOpen, CreatedAt: now}

	docs := make([]Document, 0, len(specs))
	for i, spec := range specs {
		doc, err := s.buildDocument(caseID, spec, now)
		if err != nil {
			return CaseCreateResponse{}, fmt.Errorf("document %d: %w", i, err)
		}
		docs = append(docs, doc)
	}

	plans := make([]UploadPlan, 0, len(docs))
	for _, doc := range docs {
		upload, err := s.Authority.Issue(ctx, doc.StorageKey, doc.MimeType, doc.DeclaredSize)
		if err != nil {
			return CaseCreateResponse{}, fmt.Errorf("%w: issue upload grant: %v", ErrStorage, err)
		}
		plans = append(plans, UploadPlan{
			DocumentID:       doc.ID,
			DocumentType:     doc.Type,
			UploadURL:        upload.URL,
			Method:           upload.Method,
			Headers:          upload.Headers,
			ExpiresInSeconds: int64(upload.ExpiresIn / time.Second),
		})
	}

	if err := s.Registry.CreateCase(ctx, folder, docs); err != nil {
		return CaseCreateResponse{}, fmt.Errorf("%w: register case: %v", ErrStorage, err)
	}

	metrics.IncCaseCreated()
	telemetry.Info("case created", map[string]any{
		"case_id":   caseID,
		"documents": len(docs),
	})
	return CaseCreateResponse{CaseID: caseID, Uploads: plans}, nil
}

func (s *Service) buildDocument(caseID string, spec DocumentSpec, now time.Time) (Document, error) {
	if spec.Filename == "" {
		return Document{}, fmt.Errorf("%w: filename is required", ErrInvalidRequest)
	}
	if !validation.SupportedMimeType(spec.MimeType) {
		return Document{}, fmt.Errorf("%w: unsupported mime type: %s", ErrInvalidRequest, spec.MimeType)
	}
	if spec.SizeBytes <= 0 {
		return Document{}, fmt.Errorf("%w: size must be positive", ErrInvalidRequest)
	}
	if spec.SizeBytes > MaxDeclaredSizeBytes {
		return Document{}, fmt.Errorf("%w: size %d exceeds the %d byte limit", ErrInvalidRequest, spec.SizeBytes, MaxDeclaredSizeBytes)
	}
	docType, err := DocumentTypeFromLabel(spec.DocumentType)
	if err != nil {
		return Document{}, err
	}

	docID := uuid.NewString()
	storageKey := BuildStorageKey(caseID, docID, spec.Filename)
	return Document{
		ID:           docID,
		CaseID:       caseID,
		Filename:     spec.Filename,
		Type:         docType,
		MimeType:     spec.MimeType,
		DeclaredSize: spec.SizeBytes,
		StorageKey:   storageKey,
		StorageURL:   s.Blob.ResolveURL(storageKey),
		Status:       StatusPendingUpload,
		CreatedAt:    now,
	}, nil
}

// CompleteUpload reads the uploaded bytes back from the blob store, validates
// them against the declared mime type and finalizes the document. The verdict
// is persisted before any error is surfaced, and a compare-and-set transition
// guarantees at most one completion wins a race.
func (s *Service) CompleteUpload(ctx context.Context, caseID, documentID string) (DocumentResponse, error) {
	doc, err := s.Registry.GetDocument(ctx, caseID, documentID)
	if err != nil {
		return DocumentResponse{}, err
	}
	if doc.Status.Terminal() {
		return DocumentResponse{}, ErrDocumentFinalized
	}

	payload, err := s.readBlob(ctx, doc.StorageKey)
	if err != nil {
		return DocumentResponse{}, err
	}

	start := time.Now()
	verdict := validation.Validate(payload, doc.MimeType)
	metrics.ObserveValidationDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)

	var failure *validation.FailureError
	if errors.As(verdict, &failure) {
		updated, err := s.Registry.TransitionDocument(ctx, caseID, documentID,
			StatusPendingUpload, StatusValidationFailed,
			TransitionOutcome{FailureReason: failure.Reason})
		if err != nil {
			return DocumentResponse{}, err
		}
		metrics.IncValidationFailed()
		telemetry.Info("document validation failed", map[string]any{
			"case_id":           caseID,
			"document_id":       documentID,
			"status_transition": string(StatusPendingUpload) + "->" + string(updated.Status),
			"reason":            failure.Reason,
		})
		return DocumentResponse{}, &ValidationError{Reason: failure.Reason}
	}
	if verdict != nil {
		return DocumentResponse{}, fmt.Errorf("%w: validate document: %v", ErrStorage, verdict)
	}

	uploadedAt := s.now()
	updated, err := s.Registry.TransitionDocument(ctx, caseID, documentID,
		StatusPendingUpload, StatusUploaded,
		TransitionOutcome{StoredSize: int64(len(payload)), UploadedAt: &uploadedAt})
	if err != nil {
		return DocumentResponse{}, err
	}
	metrics.IncValidationPassed()
	telemetry.Info("document uploaded", map[string]any{
		"case_id":           caseID,
		"document_id":       documentID,
		"status_transition": string(StatusPendingUpload) + "->" + string(updated.Status),
		"stored_size":       updated.StoredSize,
	})
	return toDocumentResponse(updated), nil
}

func (s *Service) readBlob(ctx context.Context, storageKey string) ([]byte, error) {
	rc, err := s.Blob.Open(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: open blob: %v", ErrStorage, err)
	}
	defer rc.Close()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read blob: %v", ErrStorage, err)
	}
	return payload, nil
}

// ListCases returns all case folders with their document summaries.
func (s *Service) ListCases(ctx context.Context) ([]CaseResponse, error) {
	folders, err := s.Registry.ListCases(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CaseResponse, 0, len(folders))
	for _, folder := range folders {
		docs, err := s.Registry.ListDocuments(ctx, folder.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, toCaseResponse(folder, docs))
	}
	return out, nil
}

// GetCase returns a single case folder with its document summaries.
func (s *Service) GetCase(ctx context.Context, caseID string) (CaseResponse, error) {
	folder, err := s.Registry.GetCase(ctx, caseID)
	if err != nil {
		return CaseResponse{}, err
	}
	docs, err := s.Registry.ListDocuments(ctx, caseID)
	if err != nil {
		return CaseResponse{}, err
	}
	return toCaseResponse(folder, docs), nil
}

// OpenDocument streams the stored bytes of an uploaded document.
func (s *Service) OpenDocument(ctx context.Context, caseID, documentID string) (Document, io.ReadCloser, error) {
	doc, err := s.Registry.GetDocument(ctx, caseID, documentID)
	if err != nil {
		return Document{}, nil, err
	}
	if doc.Status != StatusUploaded {
		return Document{}, nil, ErrNotFound
	}
	rc, err := s.Blob.Open(ctx, doc.StorageKey)
	if err != nil {
		return Document{}, nil, fmt.Errorf("%w: open blob: %v", ErrStorage, err)
	}
	return doc, rc, nil
}
