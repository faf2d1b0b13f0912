package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/security/audit"
	"github.com/yourorg/tourbook/internal/security/middleware"
	"github.com/yourorg/tourbook/internal/service"
)

// ProxyHandler handles GET /api/documents/proxy?publicId=... by fetching
// the blob bytes and relaying them. Browsers cannot hit the private blob
// store directly, so document previews go through here.
type ProxyHandler struct {
	documents *service.DocumentService
	audit     *audit.Logger
	logger    *slog.Logger
}

func NewProxyHandler(documents *service.DocumentService, auditLog *audit.Logger, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{documents: documents, audit: auditLog, logger: logger}
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserFromContext(r.Context())
	token := middleware.GetTokenFromContext(r.Context())
	if userID == "" {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	objectID := r.URL.Query().Get("publicId")
	if objectID == "" {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "publicId", Message: "required"}))
		return
	}

	owned, err := ownsObject(r.Context(), h.documents, token, objectID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !owned {
		h.audit.LogDenied(r.Context(), userID, "proxy of foreign document "+objectID)
		writeError(w, domain.ErrForbidden)
		return
	}

	data, contentType, err := h.documents.Proxy(r.Context(), objectID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.audit.LogDocumentAccess(r.Context(), userID, objectID)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(data)
}
