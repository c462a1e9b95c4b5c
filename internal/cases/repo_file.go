package cases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const metadataFileName = "metadata.json"

// FileRegistry keeps one metadata.json per case under a base directory. It
// is the flat-file persistence strategy: human-inspectable, adequate for a
// single process. A process-wide mutex serializes the read-modify-write of
// a metadata file, which is what makes TransitionDocument a real CAS.
type FileRegistry struct {
	mu      sync.Mutex
	baseDir string
}

// NewFileRegistry constructs a FileRegistry rooted at baseDir.
func NewFileRegistry(baseDir string) (*FileRegistry, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create metadata dir: %w", err)
	}
	return &FileRegistry{baseDir: baseDir}, nil
}

type caseMetadata struct {
	CaseID    string         `json:"caseId"`
	Status    CaseStatus     `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	Documents []documentMeta `json:"documents"`
}

type documentMeta struct {
	ID            string         `json:"id"`
	Filename      string         `json:"filename"`
	DocumentType  DocumentType   `json:"documentType"`
	MimeType      string         `json:"mimeType"`
	DeclaredSize  int64          `json:"declaredSize"`
	StoredSize    int64          `json:"storedSize,omitempty"`
	StorageKey    string         `json:"storageKey"`
	StorageURL    string         `json:"storageUrl"`
	Status        DocumentStatus `json:"status"`
	FailureReason string         `json:"failureReason,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UploadedAt    *time.Time     `json:"uploadedAt,omitempty"`
}

// CreateCase writes the full case metadata file in one shot.
func (r *FileRegistry) CreateCase(ctx context.Context, folder CaseFolder, docs []Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	meta := caseMetadata{
		CaseID:    folder.ID,
		Status:    folder.Status,
		CreatedAt: folder.CreatedAt,
	}
	for _, doc := range docs {
		meta.Documents = append(meta.Documents, toMeta(doc))
	}
	return r.writeMetadata(meta)
}

// GetCase returns the folder for a case id.
func (r *FileRegistry) GetCase(ctx context.Context, caseID string) (CaseFolder, error) {
	if err := ctx.Err(); err != nil {
		return CaseFolder{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, err := r.readMetadata(caseID)
	if err != nil {
		return CaseFolder{}, err
	}
	return CaseFolder{ID: meta.CaseID, Status: meta.Status, CreatedAt: meta.CreatedAt}, nil
}

// ListCases scans the base directory for case metadata files, newest first.
// Unreadable metadata files are skipped rather than failing the whole list.
func (r *FileRegistry) ListCases(ctx context.Context) ([]CaseFolder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.baseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []CaseFolder{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list metadata dir: %w", err)
	}

	out := []CaseFolder{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := r.readMetadata(entry.Name())
		if err != nil {
			continue
		}
		out = append(out, CaseFolder{ID: meta.CaseID, Status: meta.Status, CreatedAt: meta.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListDocuments returns the documents of a case in creation order.
func (r *FileRegistry) ListDocuments(ctx context.Context, caseID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, err := r.readMetadata(caseID)
	if err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(meta.Documents))
	for _, doc := range meta.Documents {
		out = append(out, fromMeta(meta.CaseID, doc))
	}
	return out, nil
}

// GetDocument returns the document for the exact (caseID, documentID) pair.
func (r *FileRegistry) GetDocument(ctx context.Context, caseID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, err := r.readMetadata(caseID)
	if err != nil {
		return Document{}, err
	}
	for _, doc := range meta.Documents {
		if doc.ID == documentID {
			return fromMeta(meta.CaseID, doc), nil
		}
	}
	return Document{}, ErrNotFound
}

// TransitionDocument rewrites the metadata file with the updated document,
// failing if the document is no longer in the expected state.
func (r *FileRegistry) TransitionDocument(ctx context.Context, caseID, documentID string, from, to DocumentStatus, outcome TransitionOutcome) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if !from.CanTransitionTo(to) {
		return Document{}, ErrDocumentFinalized
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	meta, err := r.readMetadata(caseID)
	if err != nil {
		return Document{}, err
	}
	for i := range meta.Documents {
		if meta.Documents[i].ID != documentID {
			continue
		}
		if meta.Documents[i].Status != from {
			return Document{}, ErrDocumentFinalized
		}
		meta.Documents[i].Status = to
		meta.Documents[i].FailureReason = outcome.FailureReason
		if outcome.StoredSize > 0 {
			meta.Documents[i].StoredSize = outcome.StoredSize
		}
		if outcome.UploadedAt != nil {
			meta.Documents[i].UploadedAt = outcome.UploadedAt
		}
		if err := r.writeMetadata(meta); err != nil {
			return Document{}, err
		}
		return fromMeta(meta.CaseID, meta.Documents[i]), nil
	}
	return Document{}, ErrNotFound
}

// Reset drops every stored case.
func (r *FileRegistry) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.RemoveAll(r.baseDir); err != nil {
		return fmt.Errorf("reset metadata dir: %w", err)
	}
	return os.MkdirAll(r.baseDir, 0o755)
}

func (r *FileRegistry) metadataPath(caseID string) string {
	return filepath.Join(r.baseDir, caseID, metadataFileName)
}

func (r *FileRegistry) readMetadata(caseID string) (caseMetadata, error) {
	data, err := os.ReadFile(r.metadataPath(caseID))
	if errors.Is(err, fs.ErrNotExist) {
		return caseMetadata{}, ErrNotFound
	}
	if err != nil {
		return caseMetadata{}, fmt.Errorf("read case metadata: %w", err)
	}
	var meta caseMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return caseMetadata{}, fmt.Errorf("decode case metadata: %w", err)
	}
	return meta, nil
}

func (r *FileRegistry) writeMetadata(meta caseMetadata) error {
	dir := filepath.Join(r.baseDir, meta.CaseID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create case dir: %w", err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode case metadata: %w", err)
	}
	tmp := filepath.Join(dir, metadataFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write case metadata: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, metadataFileName))
}

func toMeta(doc Document) documentMeta {
	return documentMeta{
		ID:            doc.ID,
		Filename:      doc.Filename,
		DocumentType:  doc.Type,
		MimeType:      doc.MimeType,
		DeclaredSize:  doc.DeclaredSize,
		StoredSize:    doc.StoredSize,
		StorageKey:    doc.StorageKey,
		StorageURL:    doc.StorageURL,
		Status:        doc.Status,
		FailureReason: doc.FailureReason,
		CreatedAt:     doc.CreatedAt,
		UploadedAt:    doc.UploadedAt,
	}
}

func fromMeta(caseID string, meta documentMeta) Document {
	return Document{
		ID:            meta.ID,
		CaseID:        caseID,
		Filename:      meta.Filename,
		Type:          meta.DocumentType,
		MimeType:      meta.MimeType,
		DeclaredSize:  meta.DeclaredSize,
		StoredSize:    meta.StoredSize,
		StorageKey:    meta.StorageKey,
		StorageURL:    meta.StorageURL,
		Status:        meta.Status,
		FailureReason: meta.FailureReason,
		CreatedAt:     meta.CreatedAt,
		UploadedAt:    meta.UploadedAt,
	}
}

var _ Registry = (*FileRegistry)(nil)
