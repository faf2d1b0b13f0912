package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/security/audit"
	"github.com/yourorg/tourbook/internal/security/middleware"
	"github.com/yourorg/tourbook/internal/service"
)

// ViewRequest asks for a direct access URL to one of the caller's blobs.
type ViewRequest struct {
	PublicID string `json:"publicId"`
}

// ViewResponse carries the access URL for an owned document.
type ViewResponse struct {
	Success   bool   `json:"success"`
	SignedURL string `json:"signedUrl"`
}

// ViewHandler handles POST /api/documents/view. Ownership is resolved here
// against the caller's user record before the URL is built.
type ViewHandler struct {
	documents *service.DocumentService
	audit     *audit.Logger
	logger    *slog.Logger
}

func NewViewHandler(documents *service.DocumentService, auditLog *audit.Logger, logger *slog.Logger) *ViewHandler {
	return &ViewHandler{documents: documents, audit: auditLog, logger: logger}
}

func (h *ViewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserFromContext(r.Context())
	token := middleware.GetTokenFromContext(r.Context())
	if userID == "" {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	var req ViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "body", Message: "invalid JSON"}))
		return
	}
	if req.PublicID == "" {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "publicId", Message: "required"}))
		return
	}

	owned, err := ownsObject(r.Context(), h.documents, token, req.PublicID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !owned {
		h.audit.LogDenied(r.Context(), userID, "view of foreign document "+req.PublicID)
		writeError(w, domain.ErrForbidden)
		return
	}

	url, err := h.documents.View(userID, req.PublicID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.audit.LogDocumentAccess(r.Context(), userID, req.PublicID)
	writeJSON(w, http.StatusOK, ViewResponse{Success: true, SignedURL: url})
}
