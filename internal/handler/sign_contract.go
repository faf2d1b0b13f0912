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

// SignContractHandler handles POST /api/reservations/{id}/sign with the
// signed contract file as multipart.
type SignContractHandler struct {
	reservations *service.ReservationService
	audit        *audit.Logger
	logger       *slog.Logger
	config       *config.Config
}

func NewSignContractHandler(reservations *service.ReservationService, auditLog *audit.Logger, logger *slog.Logger, cfg *config.Config) *SignContractHandler {
	return &SignContractHandler{reservations: reservations, audit: auditLog, logger: logger, config: cfg}
}

func (h *SignContractHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserFromContext(r.Context())
	token := middleware.GetTokenFromContext(r.Context())
	if userID == "" {
		writeError(w, domain.ErrUnauthorized)
		return
	}

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
		h.logger.Error("failed to read contract body", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	reservation, err := h.reservations.SignContract(r.Context(), service.SignContractInput{
		Token:         token,
		UserID:        userID,
		ReservationID: r.PathValue("id"),
		Data:          data,
		FileName:      header.Filename,
		MimeType:      partMimeType(header.Header.Get("Content-Type"), data),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.audit.LogAction(r.Context(), userID, "contract_sign", "reservation", reservation.ID, "success", "")
	writeJSON(w, http.StatusOK, toReservationView(reservation))
}
