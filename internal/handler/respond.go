package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/service"
)

// partMimeType resolves the content type of an uploaded multipart part.
// Non-browser clients (and Go's multipart writer) stamp parts
// application/octet-stream, so that is treated the same as no type at all
// and the bytes are sniffed instead.
func partMimeType(declared string, data []byte) string {
	if declared == "" || declared == "application/octet-stream" {
		return http.DetectContentType(data)
	}
	return declared
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorResponse is the error envelope for every endpoint. Success is always
// false; it is present so clients can branch on one field for both
// outcomes.
type errorResponse struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Step    string              `json:"step,omitempty"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

// writeError maps domain errors to HTTP statuses: validation 400, missing
// auth 401, foreign resource 403, empty slot 404, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Fields: verr.Fields})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	}

	resp := errorResponse{Error: err.Error()}
	var step *service.StepError
	if errors.As(err, &step) {
		resp.Step = step.Step
	}
	writeJSON(w, status, resp)
}
