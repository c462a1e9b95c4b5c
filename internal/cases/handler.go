package cases

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docudeep-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches case routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/cases", h.create)
	rg.GET("/cases", h.list)
	rg.GET("/cases/:caseId", h.get)
	rg.POST("/cases/:caseId/documents/:documentId/complete", h.complete)
	rg.GET("/cases/:caseId/documents/:documentId/content", h.content)
}

type createCaseRequest struct {
	Documents []DocumentSpec `json:"documents"`
}

func (h *Handler) create(c *gin.Context) {
	var req createCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "invalid request body", nil)
		return
	}

	resp, err := h.Svc.CreateCase(c.Request.Context(), req.Documents)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRequest):
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
		case errors.Is(err, ErrStorage):
			respond.Error(c, http.StatusBadGateway, ErrorCodeStorage, "failed to prepare uploads", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create case", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) list(c *gin.Context) {
	folders, err := h.Svc.ListCases(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list cases", nil)
		return
	}
	respond.OK(c, folders)
}

func (h *Handler) get(c *gin.Context) {
	caseID := c.Param("caseId")
	c.Set("caseId", caseID)

	resp, err := h.Svc.GetCase(c.Request.Context(), caseID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "case not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch case", nil)
		}
		return
	}
	respond.OK(c, resp)
}

func (h *Handler) complete(c *gin.Context) {
	caseID := c.Param("caseId")
	documentID := c.Param("documentId")
	c.Set("caseId", caseID)
	c.Set("documentId", documentID)

	resp, err := h.Svc.CompleteUpload(c.Request.Context(), caseID, documentID)
	if err != nil {
		var invalid *ValidationError
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "document not found", nil)
		case errors.Is(err, ErrDocumentFinalized):
			respond.Error(c, http.StatusConflict, ErrorCodeConflict, "document is already finalized", nil)
		case errors.As(err, &invalid):
			respond.Error(c, http.StatusUnprocessableEntity, ErrorCodeInvalidDoc, invalid.Reason, nil)
		case errors.Is(err, ErrStorage):
			respond.Error(c, http.StatusBadGateway, ErrorCodeStorage, "failed to read uploaded document", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to complete upload", nil)
		}
		return
	}
	respond.OK(c, resp)
}

func (h *Handler) content(c *gin.Context) {
	caseID := c.Param("caseId")
	documentID := c.Param("documentId")
	c.Set("caseId", caseID)
	c.Set("documentId", documentID)

	doc, rc, err := h.Svc.OpenDocument(c.Request.Context(), caseID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "document content not available", nil)
		case errors.Is(err, ErrStorage):
			respond.Error(c, http.StatusBadGateway, ErrorCodeStorage, "failed to open document content", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open document content", nil)
		}
		return
	}
	defer rc.Close()

	c.Header("Content-Type", doc.MimeType)
	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	if doc.StoredSize > 0 {
		c.Header("Content-Length", strconv.FormatInt(doc.StoredSize, 10))
	}
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}
