package cases

import (
	"context"
	"database/sql"
	"errors"
)

// PGRegistry implements Registry using Postgres.
type PGRegistry struct {
	DB *sql.DB
}

const documentColumns = `id, case_id, filename, document_type, mime_type, declared_size, stored_size,
       storage_key, storage_url, status, failure_reason, created_at, uploaded_at`

// CreateCase inserts the folder and all its documents in one transaction.
func (r *PGRegistry) CreateCase(ctx context.Context, folder CaseFolder, docs []Document) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO case_folders (id, status, created_at) VALUES ($1, $2, $3)`,
		folder.ID, folder.Status, folder.CreatedAt,
	); err != nil {
		return err
	}

	const insertDoc = `
INSERT INTO documents (
	id, case_id, filename, document_type, mime_type, declared_size,
	storage_key, storage_url, status, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx, insertDoc,
			doc.ID,
			doc.CaseID,
			doc.Filename,
			doc.Type,
			doc.MimeType,
			doc.DeclaredSize,
			doc.StorageKey,
			doc.StorageURL,
			doc.Status,
			doc.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetCase returns the folder for a case id.
func (r *PGRegistry) GetCase(ctx context.Context, caseID string) (CaseFolder, error) {
	const query = `SELECT id, status, created_at FROM case_folders WHERE id = $1 LIMIT 1`
	var folder CaseFolder
	err := r.DB.QueryRowContext(ctx, query, caseID).Scan(&folder.ID, &folder.Status, &folder.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CaseFolder{}, ErrNotFound
		}
		return CaseFolder{}, err
	}
	return folder, nil
}

// ListCases lists folders newest-first.
func (r *PGRegistry) ListCases(ctx context.Context) ([]CaseFolder, error) {
	const query = `SELECT id, status, created_at FROM case_folders ORDER BY created_at DESC, id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CaseFolder{}
	for rows.Next() {
		var folder CaseFolder
		if err := rows.Scan(&folder.ID, &folder.Status, &folder.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, folder)
	}
	return out, rows.Err()
}

// ListDocuments returns the documents of a case in creation order.
func (r *PGRegistry) ListDocuments(ctx context.Context, caseID string) ([]Document, error) {
	if _, err := r.GetCase(ctx, caseID); err != nil {
		return nil, err
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE case_id = $1 ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// GetDocument returns the document for the exact (caseID, documentID) pair.
func (r *PGRegistry) GetDocument(ctx context.Context, caseID, documentID string) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND case_id = $2 LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, documentID, caseID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// TransitionDocument applies the status change only while the row still
// holds the expected status; a zero-row update means another completion won.
func (r *PGRegistry) TransitionDocument(ctx context.Context, caseID, documentID string, from, to DocumentStatus, outcome TransitionOutcome) (Document, error) {
	if !from.CanTransitionTo(to) {
		return Document{}, ErrDocumentFinalized
	}

	const query = `
UPDATE documents
SET status = $1,
    failure_reason = NULLIF($2::text, ''),
    stored_size = CASE WHEN $3::bigint > 0 THEN $3::bigint ELSE stored_size END,
    uploaded_at = COALESCE($4::timestamptz, uploaded_at)
WHERE id = $5 AND case_id = $6 AND status = $7`

	res, err := r.DB.ExecContext(ctx, query,
		to, outcome.FailureReason, outcome.StoredSize, outcome.UploadedAt,
		documentID, caseID, from,
	)
	if err != nil {
		return Document{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Document{}, err
	}
	if n == 0 {
		// Distinguish a stale status from a missing row.
		if _, err := r.GetDocument(ctx, caseID, documentID); err != nil {
			return Document{}, err
		}
		return Document{}, ErrDocumentFinalized
	}
	return r.GetDocument(ctx, caseID, documentID)
}

// Reset truncates all case state. Dev/test only.
func (r *PGRegistry) Reset(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `TRUNCATE TABLE documents, case_folders`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var storedSize sql.NullInt64
	var failureReason sql.NullString
	var uploadedAt sql.NullTime
	err := row.Scan(
		&doc.ID,
		&doc.CaseID,
		&doc.Filename,
		&doc.Type,
		&doc.MimeType,
		&doc.DeclaredSize,
		&storedSize,
		&doc.StorageKey,
		&doc.StorageURL,
		&doc.Status,
		&failureReason,
		&doc.CreatedAt,
		&uploadedAt,
	)
	if err != nil {
		return Document{}, err
	}
	if storedSize.Valid {
		doc.StoredSize = storedSize.Int64
	}
	if failureReason.Valid {
		doc.FailureReason = failureReason.String
	}
	if uploadedAt.Valid {
		doc.UploadedAt = &uploadedAt.Time
	}
	return doc, nil
}

var _ Registry = (*PGRegistry)(nil)
