package grants

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docudeep-backend/internal/shared/metrics"
	"docudeep-backend/internal/shared/server/respond"
)

// Handler exposes the dev-mode storage endpoints: grant consumption for the
// simulated presigned uploads, and the administrative reset.
type Handler struct {
	Authority *LocalAuthority
	// ResetAll clears grants, blobs and registry state. Wired by the router.
	ResetAll func(c *gin.Context) error
}

// NewHandler constructs a Handler.
func NewHandler(authority *LocalAuthority, resetAll func(c *gin.Context) error) *Handler {
	return &Handler{Authority: authority, ResetAll: resetAll}
}

// RegisterRoutes attaches the dev storage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/storage/upload/:token", h.consume)
	rg.POST("/storage/reset", h.reset)
}

func (h *Handler) consume(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read payload", nil)
		return
	}

	if err := h.Authority.Consume(c.Request.Context(), c.Param("token"), payload); err != nil {
		switch {
		case errors.Is(err, ErrGrantNotFound):
			respond.Error(c, http.StatusNotFound, "grant_error", err.Error(), nil)
		case errors.Is(err, ErrGrantExpired):
			respond.Error(c, http.StatusGone, "grant_error", err.Error(), nil)
		case errors.Is(err, ErrPayloadTooLarge):
			respond.Error(c, http.StatusBadRequest, "grant_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusBadGateway, "storage_error", "failed to persist upload", nil)
		}
		return
	}

	metrics.IncUploadConsumed()
	c.Status(http.StatusAccepted)
}

func (h *Handler) reset(c *gin.Context) {
	if h.ResetAll == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "reset not available", nil)
		return
	}
	if err := h.ResetAll(c); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "reset failed", nil)
		return
	}
	c.Status(http.StatusNoContent)
}
