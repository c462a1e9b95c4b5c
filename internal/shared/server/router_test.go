package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docudeep-backend/internal/shared/config"
	"docudeep-backend/internal/shared/server"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		Env:             "dev",
		RegistryType:    "memory",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		GrantStoreType:  "memory",
		PresignTTL:      15 * time.Minute,
	}

	router, err := server.NewRouter(cfg)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

type createdCase struct {
	CaseID  string `json:"caseId"`
	Uploads []struct {
		DocumentID       string            `json:"documentId"`
		DocumentType     string            `json:"documentType"`
		UploadURL        string            `json:"uploadUrl"`
		Method           string            `json:"method"`
		Headers          map[string]string `json:"headers"`
		ExpiresInSeconds int64             `json:"expiresInSeconds"`
	} `json:"uploads"`
}

func createCase(t *testing.T, router *gin.Engine, docs []map[string]any) createdCase {
	t.Helper()
	resp := doJSON(t, router, http.MethodPost, "/api/v1/cases", map[string]any{"documents": docs})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create case status = %d, body = %s", resp.Code, resp.Body.String())
	}
	var created createdCase
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return created
}

func uploadPayload(t *testing.T, router *gin.Engine, uploadURL, mimeType string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, uploadURL, bytes.NewReader(payload))
	if mimeType != "" {
		req.Header.Set("Content-Type", mimeType)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	resp := doJSON(t, router, http.MethodGet, "/api/v1/health", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("health status = %d", resp.Code)
	}
}

func TestCaseLifecycleEndToEnd(t *testing.T) {
	router := newTestRouter(t)

	created := createCase(t, router, []map[string]any{
		{"filename": "payslip.pdf", "mimeType": "application/pdf", "sizeBytes": 4096, "documentType": "bulletin de paie"},
	})
	if len(created.Uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(created.Uploads))
	}
	plan := created.Uploads[0]
	if plan.Method != "PUT" || !strings.HasPrefix(plan.UploadURL, "/api/v1/dev/storage/upload/") {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.DocumentType != "PAYSLIP" {
		t.Fatalf("documentType = %s, want PAYSLIP", plan.DocumentType)
	}

	// Simulated presigned upload.
	payload := buildPDF(false)
	if resp := uploadPayload(t, router, plan.UploadURL, "application/pdf", payload); resp.Code != http.StatusAccepted {
		t.Fatalf("upload status = %d, body = %s", resp.Code, resp.Body.String())
	}

	// A grant is single use.
	if resp := uploadPayload(t, router, plan.UploadURL, "application/pdf", payload); resp.Code != http.StatusNotFound {
		t.Fatalf("second upload status = %d, want 404", resp.Code)
	}

	completeURL := fmt.Sprintf("/api/v1/cases/%s/documents/%s/complete", created.CaseID, plan.DocumentID)
	resp := doJSON(t, router, http.MethodPost, completeURL, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body = %s", resp.Code, resp.Body.String())
	}
	var completed struct {
		Status    string `json:"status"`
		SizeBytes int64  `json:"sizeBytes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completed); err != nil {
		t.Fatalf("decode complete response: %v", err)
	}
	if completed.Status != "UPLOADED" {
		t.Fatalf("status = %s, want UPLOADED", completed.Status)
	}

	// Completing a finalized document is a conflict.
	if resp := doJSON(t, router, http.MethodPost, completeURL, nil); resp.Code != http.StatusConflict {
		t.Fatalf("second complete status = %d, want 409", resp.Code)
	}

	// The case shows the terminal state.
	resp = doJSON(t, router, http.MethodGet, "/api/v1/cases/"+created.CaseID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get case status = %d", resp.Code)
	}
	var folder struct {
		CaseID    string `json:"caseId"`
		Status    string `json:"status"`
		Documents []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&folder); err != nil {
		t.Fatalf("decode case: %v", err)
	}
	if len(folder.Documents) != 1 || folder.Documents[0].Status != "UPLOADED" {
		t.Fatalf("unexpected case state: %+v", folder)
	}

	// Content is served back byte for byte.
	contentURL := fmt.Sprintf("/api/v1/cases/%s/documents/%s/content", created.CaseID, plan.DocumentID)
	resp = doJSON(t, router, http.MethodGet, contentURL, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("content status = %d", resp.Code)
	}
	if !bytes.Equal(resp.Body.Bytes(), payload) {
		t.Fatal("content mismatch")
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %s", ct)
	}
}

func TestCreateCaseRejectsTooManyDocuments(t *testing.T) {
	router := newTestRouter(t)

	docs := make([]map[string]any, 0, 6)
	for i := 0; i < 6; i++ {
		docs = append(docs, map[string]any{
			"filename":     fmt.Sprintf("doc-%d.pdf", i),
			"mimeType":     "application/pdf",
			"sizeBytes":    1024,
			"documentType": "PAYSLIP",
		})
	}

	resp := doJSON(t, router, http.MethodPost, "/api/v1/cases", map[string]any{"documents": docs})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != "validation_error" {
		t.Fatalf("error code = %s, want validation_error", body.Error.Code)
	}
}

func TestCompleteValidationFailurePersists(t *testing.T) {
	router := newTestRouter(t)

	created := createCase(t, router, []map[string]any{
		{"filename": "locked.pdf", "mimeType": "application/pdf", "sizeBytes": 8192, "documentType": "TAX_NOTICE"},
	})
	plan := created.Uploads[0]

	if resp := uploadPayload(t, router, plan.UploadURL, "application/pdf", buildPDF(true)); resp.Code != http.StatusAccepted {
		t.Fatalf("upload status = %d", resp.Code)
	}

	completeURL := fmt.Sprintf("/api/v1/cases/%s/documents/%s/complete", created.CaseID, plan.DocumentID)
	resp := doJSON(t, router, http.MethodPost, completeURL, nil)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("complete status = %d, want 422, body = %s", resp.Code, resp.Body.String())
	}

	// The verdict sticks: retry is a conflict, not a second validation.
	if resp := doJSON(t, router, http.MethodPost, completeURL, nil); resp.Code != http.StatusConflict {
		t.Fatalf("retry status = %d, want 409", resp.Code)
	}

	// Failed content is never served.
	contentURL := fmt.Sprintf("/api/v1/cases/%s/documents/%s/content", created.CaseID, plan.DocumentID)
	if resp := doJSON(t, router, http.MethodGet, contentURL, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("content status = %d, want 404", resp.Code)
	}
}

func TestCompleteUnknownPairIsNotFound(t *testing.T) {
	router := newTestRouter(t)

	created := createCase(t, router, []map[string]any{
		{"filename": "a.pdf", "mimeType": "application/pdf", "sizeBytes": 1024, "documentType": "PAYSLIP"},
	})
	other := createCase(t, router, []map[string]any{
		{"filename": "b.pdf", "mimeType": "application/pdf", "sizeBytes": 1024, "documentType": "PAYSLIP"},
	})

	// Document under the wrong case never resolves.
	url := fmt.Sprintf("/api/v1/cases/%s/documents/%s/complete", other.CaseID, created.Uploads[0].DocumentID)
	if resp := doJSON(t, router, http.MethodPost, url, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}

	url = fmt.Sprintf("/api/v1/cases/%s/documents/%s/complete", "missing-case", "missing-doc")
	if resp := doJSON(t, router, http.MethodPost, url, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
}

func TestCompleteBeforeUploadIsStorageError(t *testing.T) {
	router := newTestRouter(t)

	created := createCase(t, router, []map[string]any{
		{"filename": "a.pdf", "mimeType": "application/pdf", "sizeBytes": 1024, "documentType": "PAYSLIP"},
	})

	url := fmt.Sprintf("/api/v1/cases/%s/documents/%s/complete", created.CaseID, created.Uploads[0].DocumentID)
	resp := doJSON(t, router, http.MethodPost, url, nil)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502, body = %s", resp.Code, resp.Body.String())
	}
}

func TestOversizedUploadRejected(t *testing.T) {
	router := newTestRouter(t)

	created := createCase(t, router, []map[string]any{
		{"filename": "small.pdf", "mimeType": "application/pdf", "sizeBytes": 16, "documentType": "PAYSLIP"},
	})
	plan := created.Uploads[0]

	big := bytes.Repeat([]byte("x"), 64)
	resp := uploadPayload(t, router, plan.UploadURL, "application/pdf", big)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestDevReset(t *testing.T) {
	router := newTestRouter(t)

	created := createCase(t, router, []map[string]any{
		{"filename": "a.pdf", "mimeType": "application/pdf", "sizeBytes": 1024, "documentType": "PAYSLIP"},
	})

	resp := doJSON(t, router, http.MethodPost, "/api/v1/dev/storage/reset", nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("reset status = %d, want 204", resp.Code)
	}

	if resp := doJSON(t, router, http.MethodGet, "/api/v1/cases/"+created.CaseID, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("get after reset status = %d, want 404", resp.Code)
	}

	// An old upload URL no longer resolves either.
	if resp := uploadPayload(t, router, created.Uploads[0].UploadURL, "application/pdf", []byte("x")); resp.Code != http.StatusNotFound {
		t.Fatalf("upload after reset status = %d, want 404", resp.Code)
	}

	resp = doJSON(t, router, http.MethodGet, "/api/v1/cases", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list status = %d", resp.Code)
	}
	var folders []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&folders); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(folders) != 0 {
		t.Fatalf("folders after reset = %d, want 0", len(folders))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	createCase(t, router, []map[string]any{
		{"filename": "a.pdf", "mimeType": "application/pdf", "sizeBytes": 1024, "documentType": "PAYSLIP"},
	})

	resp := doJSON(t, router, http.MethodGet, "/api/v1/metrics", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "cases_created_total") {
		t.Fatalf("metrics body missing counter: %s", resp.Body.String())
	}
}
