package cases

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"docudeep-backend/internal/shared/util"
)

// MaxDocumentsPerCase bounds how many documents a case may hold.
const MaxDocumentsPerCase = 5

// MaxDeclaredSizeBytes bounds a single document's declared payload size.
const MaxDeclaredSizeBytes = 10 * 1024 * 1024

// CaseStatus is the case-level lifecycle state. Only OPEN exists today; the
// field is a placeholder for future case-level transitions.
type CaseStatus string

const CaseStatusOpen CaseStatus = "OPEN"

// CaseFolder groups 1-5 documents submitted together.
type CaseFolder struct {
	ID        string
	Status    CaseStatus
	CreatedAt time.Time
}

// DocumentStatus is the per-document lifecycle state.
type DocumentStatus string

const (
	StatusPendingUpload    DocumentStatus = "PENDING_UPLOAD"
	StatusUploaded         DocumentStatus = "UPLOADED"
	StatusValidationFailed DocumentStatus = "VALIDATION_FAILED"
)

// transitions is the single source of truth for legal status changes.
// UPLOADED and VALIDATION_FAILED are terminal.
var transitions = map[DocumentStatus][]DocumentStatus{
	StatusPendingUpload:    {StatusUploaded, StatusValidationFailed},
	StatusUploaded:         {},
	StatusValidationFailed: {},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist from s.
func (s DocumentStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// DocumentType is the enumerated business meaning of a document.
type DocumentType string

const (
	TypePayslip   DocumentType = "PAYSLIP"
	TypeTaxNotice DocumentType = "TAX_NOTICE"
	TypeExpenses  DocumentType = "EXPENSES"
)

var typeLabels = map[string]DocumentType{
	"PAYSLIP":          TypePayslip,
	"BULLETIN_DE_PAIE": TypePayslip,
	"TAX_NOTICE":       TypeTaxNotice,
	"AVIS_D_IMPOSITION": TypeTaxNotice,
	"AVIS_DIMPOSITION":  TypeTaxNotice,
	"EXPENSES":          TypeExpenses,
	"CHARGES":           TypeExpenses,
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// DocumentTypeFromLabel resolves a free-text label, including known localized
// synonyms, to a DocumentType. Accents are folded so "bulletin de paie" and
// "avis d'imposition" resolve regardless of diacritics.
func DocumentTypeFromLabel(label string) (DocumentType, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "", fmt.Errorf("%w: document type is required", ErrInvalidRequest)
	}

	folded, _, err := transform.String(accentStripper, trimmed)
	if err != nil {
		folded = trimmed
	}
	normalized := strings.ToUpper(folded)
	normalized = strings.NewReplacer("-", "_", " ", "_", "'", "_").Replace(normalized)

	if t, ok := typeLabels[normalized]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: unsupported document type: %s", ErrInvalidRequest, label)
}

// Document is one file's metadata and lifecycle state within a case. The
// bytes themselves live in the blob store under StorageKey.
type Document struct {
	ID            string
	CaseID        string
	Filename      string
	Type          DocumentType
	MimeType      string
	DeclaredSize  int64
	StoredSize    int64
	StorageKey    string
	StorageURL    string
	Status        DocumentStatus
	FailureReason string
	CreatedAt     time.Time
	UploadedAt    *time.Time
}

// BuildStorageKey derives the deterministic storage key for a document. The
// filename is sanitized to [A-Za-z0-9._-] so keys are collision-safe and
// traversal-safe.
func BuildStorageKey(caseID, documentID, filename string) string {
	return path.Join("cases", caseID, documentID, util.SanitizeStorageFilename(filename))
}
