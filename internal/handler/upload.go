package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/security/audit"
	"github.com/yourorg/tourbook/internal/security/middleware"
	"github.com/yourorg/tourbook/internal/service"
	"github.com/yourorg/tourbook/pkg/config"
)

// UploadResponse is the upload result surfaced to the client.
type UploadResponse struct {
	Success            bool                     `json:"success"`
	Message            string                   `json:"message"`
	FileID             string                   `json:"fileId"`
	CloudinaryPublicID string                   `json:"cloudinaryPublicId"`
	URL                string                   `json:"url,omitempty"`
	CleanupDebt        []service.CleanupFailure `json:"cleanupDebt,omitempty"`
}

// UploadHandler handles POST /api/documents/upload.
type UploadHandler struct {
	documents *service.DocumentService
	audit     *audit.Logger
	logger    *slog.Logger
	config    *config.Config
}

func NewUploadHandler(documents *service.DocumentService, auditLog *audit.Logger, logger *slog.Logger, cfg *config.Config) *UploadHandler {
	return &UploadHandler{documents: documents, audit: auditLog, logger: logger, config: cfg}
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserFromContext(r.Context())
	token := middleware.GetTokenFromContext(r.Context())
	if userID == "" {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	// Cap the body a little above the document limit to leave room for
	// multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes+64*1024)
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes + 64*1024); err != nil {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "file", Message: "invalid or oversized multipart body"}))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "file", Message: "required"}))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read upload body", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	// The owner is the authenticated caller; the userId form field the
	// browser client sends is not trusted.
	result, err := h.documents.Upload(r.Context(), service.UploadInput{
		Token:          token,
		OwnerID:        userID,
		Kind:           domain.DocumentKind(r.FormValue("documentType")),
		Data:           data,
		FileName:       header.Filename,
		MimeType:       partMimeType(header.Header.Get("Content-Type"), data),
		ReplacesFileID: r.FormValue("replaceDocumentId"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.audit.LogDocumentUpload(r.Context(), userID, r.FormValue("documentType"), result.BlobObjectID)

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:            true,
		Message:            "document uploaded",
		FileID:             result.FileID,
		CloudinaryPublicID: result.BlobObjectID,
		URL:                result.DisplayURL,
		CleanupDebt:        result.CleanupDebt,
	})
}
