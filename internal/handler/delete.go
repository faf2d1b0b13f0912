package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/security/audit"
	"github.com/yourorg/tourbook/internal/security/middleware"
	"github.com/yourorg/tourbook/internal/service"
)

// DeleteRequest names the slot to clear. The userId field is accepted for
// compatibility with the browser client but the authenticated caller is the
// owner regardless of what it says.
type DeleteRequest struct {
	DocumentType string `json:"documentType"`
	UserID       string `json:"userId"`
}

// DeleteResponse reports the cleared slot plus any residual cleanup debt.
type DeleteResponse struct {
	Success     bool                     `json:"success"`
	Message     string                   `json:"message"`
	CleanupDebt []service.CleanupFailure `json:"cleanupDebt,omitempty"`
}

// DeleteHandler handles DELETE /api/documents/delete.
type DeleteHandler struct {
	documents *service.DocumentService
	audit     *audit.Logger
	logger    *slog.Logger
}

func NewDeleteHandler(documents *service.DocumentService, auditLog *audit.Logger, logger *slog.Logger) *DeleteHandler {
	return &DeleteHandler{documents: documents, audit: auditLog, logger: logger}
}

func (h *DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserFromContext(r.Context())
	token := middleware.GetTokenFromContext(r.Context())
	if userID == "" {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "body", Message: "invalid JSON"}))
		return
	}

	result, err := h.documents.Delete(r.Context(), token, userID, domain.DocumentKind(req.DocumentType))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Document not found"})
			return
		}
		writeError(w, err)
		return
	}

	h.audit.LogDocumentDelete(r.Context(), userID, req.DocumentType)
	writeJSON(w, http.StatusOK, DeleteResponse{
		Success:     true,
		Message:     "document deleted",
		CleanupDebt: result.CleanupDebt,
	})
}
