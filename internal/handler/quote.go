package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/service"
)

// QuoteRequest is a quote form submission. TourName empty means a custom
// tour request and Details must be set.
type QuoteRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	TourName string `json:"tourName,omitempty"`
	Date     string `json:"date,omitempty"`
	People   int    `json:"people"`
	Details  string `json:"details,omitempty"`
}

// QuoteHandler handles POST /api/quotes. Public endpoint.
type QuoteHandler struct {
	quotes *service.QuoteService
	logger *slog.Logger
}

func NewQuoteHandler(quotes *service.QuoteService, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, logger: logger}
}

func (h *QuoteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "body", Message: "invalid JSON"}))
		return
	}

	customerNotified, err := h.quotes.Send(r.Context(), service.QuoteInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		TourName: req.TourName,
		Date:     req.Date,
		People:   req.People,
		Details:  req.Details,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "quote request received",
		"customerNotified": customerNotified,
	})
}
