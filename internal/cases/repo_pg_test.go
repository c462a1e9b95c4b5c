package cases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRegistryCreateCaseIsTransactional(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRegistry{DB: db}
	now := time.Now().UTC()
	folder := CaseFolder{ID: "case-1", Status: CaseStatusOpen, CreatedAt: now}
	docs := []Document{
		{
			ID:           "doc-1",
			CaseID:       "case-1",
			Filename:     "payslip.pdf",
			Type:         TypePayslip,
			MimeType:     "application/pdf",
			DeclaredSize: 1024,
			StorageKey:   "cases/case-1/doc-1/payslip.pdf",
			StorageURL:   "/blobs/cases/case-1/doc-1/payslip.pdf",
			Status:       StatusPendingUpload,
			CreatedAt:    now,
		},
		{
			ID:           "doc-2",
			CaseID:       "case-1",
			Filename:     "tax.pdf",
			Type:         TypeTaxNotice,
			MimeType:     "application/pdf",
			DeclaredSize: 2048,
			StorageKey:   "cases/case-1/doc-2/tax.pdf",
			StorageURL:   "/blobs/cases/case-1/doc-2/tax.pdf",
			Status:       StatusPendingUpload,
			CreatedAt:    now,
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO case_folders").
		WithArgs(folder.ID, folder.Status, folder.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for _, doc := range docs {
		mock.ExpectExec("INSERT INTO documents").
			WithArgs(
				doc.ID,
				doc.CaseID,
				doc.Filename,
				doc.Type,
				doc.MimeType,
				doc.DeclaredSize,
				doc.StorageKey,
				doc.StorageURL,
				doc.Status,
				sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	if err := repo.CreateCase(context.Background(), folder, docs); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRegistryCreateCaseRollsBackOnDocumentError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRegistry{DB: db}
	now := time.Now().UTC()
	folder := CaseFolder{ID: "case-1", Status: CaseStatusOpen, CreatedAt: now}
	doc := Document{
		ID:           "doc-1",
		CaseID:       "case-1",
		Filename:     "payslip.pdf",
		Type:         TypePayslip,
		MimeType:     "application/pdf",
		DeclaredSize: 1024,
		StorageKey:   "cases/case-1/doc-1/payslip.pdf",
		StorageURL:   "/blobs/cases/case-1/doc-1/payslip.pdf",
		Status:       StatusPendingUpload,
		CreatedAt:    now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO case_folders").
		WithArgs(folder.ID, folder.Status, folder.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO documents").
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	if err := repo.CreateCase(context.Background(), folder, []Document{doc}); err == nil {
		t.Fatal("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRegistryTransitionDocumentStaleStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRegistry{DB: db}
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE documents").
		WithArgs(
			StatusUploaded,
			"",
			int64(512),
			sqlmock.AnyArg(),
			"doc-1",
			"case-1",
			StatusPendingUpload,
		).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Row exists but already finalized.
	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("doc-1", "case-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "case_id", "filename", "document_type", "mime_type", "declared_size",
			"stored_size", "storage_key", "storage_url", "status", "failure_reason",
			"created_at", "uploaded_at",
		}).AddRow(
			"doc-1", "case-1", "payslip.pdf", TypePayslip, "application/pdf", int64(1024),
			int64(512), "cases/case-1/doc-1/payslip.pdf", "/blobs/cases/case-1/doc-1/payslip.pdf",
			StatusUploaded, nil, now, now,
		))

	uploadedAt := now
	_, err = repo.TransitionDocument(context.Background(), "case-1", "doc-1",
		StatusPendingUpload, StatusUploaded,
		TransitionOutcome{StoredSize: 512, UploadedAt: &uploadedAt})
	if !errors.Is(err, ErrDocumentFinalized) {
		t.Fatalf("err = %v, want ErrDocumentFinalized", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRegistryGetDocumentScopedToCase(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRegistry{DB: db}

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("doc-1", "other-case").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "case_id", "filename", "document_type", "mime_type", "declared_size",
			"stored_size", "storage_key", "storage_url", "status", "failure_reason",
			"created_at", "uploaded_at",
		}))

	_, err = repo.GetDocument(context.Background(), "other-case", "doc-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRegistryTransitionRejectsIllegalTransition(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRegistry{DB: db}
	_, err = repo.TransitionDocument(context.Background(), "case-1", "doc-1",
		StatusUploaded, StatusValidationFailed, TransitionOutcome{})
	if !errors.Is(err, ErrDocumentFinalized) {
		t.Fatalf("err = %v, want ErrDocumentFinalized", err)
	}
}
