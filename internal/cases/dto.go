package cases

import "time"

// DocumentSpec is one requested document in a createCase call.
type DocumentSpec struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mimeType"`
	SizeBytes    int64  `json:"sizeBytes"`
	DocumentType string `json:"documentType"`
}

// UploadPlan tells the client where and how to put one document's bytes.
type UploadPlan struct {
	DocumentID       string            `json:"documentId"`
	DocumentType     DocumentType      `json:"documentType"`
	UploadURL        string            `json:"uploadUrl"`
	Method           string            `json:"method"`
	Headers          map[string]string `json:"headers"`
	ExpiresInSeconds int64             `json:"expiresInSeconds"`
}

// CaseCreateResponse is the outward-facing result of createCase.
type CaseCreateResponse struct {
	CaseID  string       `json:"caseId"`
	Uploads []UploadPlan `json:"uploads"`
}

// DocumentResponse is the public summary of a document.
type DocumentResponse struct {
	ID           string         `json:"id"`
	DocumentType DocumentType   `json:"documentType"`
	Status       DocumentStatus `json:"status"`
	MimeType     string         `json:"mimeType"`
	SizeBytes    int64          `json:"sizeBytes"`
	StorageURL   string         `json:"storageUrl"`
}

// CaseResponse is the outward-facing representation of a case folder.
type CaseResponse struct {
	CaseID    string             `json:"caseId"`
	Status    CaseStatus         `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
	Documents []DocumentResponse `json:"documents"`
}

func toDocumentResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:           doc.ID,
		DocumentType: doc.Type,
		Status:       doc.Status,
		MimeType:     doc.MimeType,
		SizeBytes:    doc.DeclaredSize,
		StorageURL:   doc.StorageURL,
	}
}

func toCaseResponse(folder CaseFolder, docs []Document) CaseResponse {
	out := CaseResponse{
		CaseID:    folder.ID,
		Status:    folder.Status,
		CreatedAt: folder.CreatedAt,
		Documents: make([]DocumentResponse, 0, len(docs)),
	}
	for _, doc := range docs {
		out.Documents = append(out.Documents, toDocumentResponse(doc))
	}
	return out
}
