package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/security/middleware"
	"github.com/yourorg/tourbook/internal/service"
)

// DocumentView is one shaped slot in the listing response, null when empty.
type DocumentView struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Name               string `json:"name"`
	Status             string `json:"status"`
	CloudinaryPublicID string `json:"cloudinary_public_id"`
	FileName           string `json:"file_name"`
	UploadDate         string `json:"upload_date,omitempty"`
	StrapiURL          string `json:"strapi_url"`
}

// DocumentSlots holds both named slots, each possibly null.
type DocumentSlots struct {
	Passport *DocumentView `json:"passport_document"`
	Visa     *DocumentView `json:"visa_document"`
}

// DocumentsResponse is the full listing envelope.
type DocumentsResponse struct {
	Success   bool          `json:"success"`
	UserID    string        `json:"userId"`
	Documents DocumentSlots `json:"documents"`
}

// DocumentsHandler handles GET /api/user/documents.
type DocumentsHandler struct {
	documents *service.DocumentService
	logger    *slog.Logger
}

func NewDocumentsHandler(documents *service.DocumentService, logger *slog.Logger) *DocumentsHandler {
	return &DocumentsHandler{documents: documents, logger: logger}
}

func (h *DocumentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserFromContext(r.Context())
	token := middleware.GetTokenFromContext(r.Context())
	if userID == "" {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	slots, err := h.documents.List(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := DocumentsResponse{Success: true, UserID: userID}
	for _, slot := range slots {
		view := toDocumentView(slot)
		switch slot.Kind {
		case domain.KindPassport:
			resp.Documents.Passport = view
		case domain.KindVisa:
			resp.Documents.Visa = view
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func toDocumentView(slot service.DocumentSlot) *DocumentView {
	ref := slot.Reference
	if ref == nil {
		return nil
	}
	uploadDate := ""
	if !ref.UploadedAt.IsZero() {
		uploadDate = ref.UploadedAt.Format(time.RFC3339)
	}
	return &DocumentView{
		ID:                 ref.ReferenceFileID,
		Type:               string(slot.Kind),
		Name:               ref.FileName,
		Status:             string(ref.Status),
		CloudinaryPublicID: ref.BlobObjectID,
		FileName:           ref.FileName,
		UploadDate:         uploadDate,
		StrapiURL:          ref.DisplayURL,
	}
}

// ownsObject reports whether the caller's user record references the blob
// object in either document slot.
func ownsObject(ctx context.Context, documents *service.DocumentService, token, objectID string) (bool, error) {
	user, err := documents.Owner(ctx, token)
	if err != nil {
		return false, err
	}
	for _, ref := range []*domain.DocumentReference{user.Passport, user.Visa} {
		if ref != nil && ref.BlobObjectID == objectID {
			return true, nil
		}
	}
	return false, nil
}
