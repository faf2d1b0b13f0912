package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/security/middleware"
	"github.com/yourorg/tourbook/internal/service"
)

// CreateReservationRequest is a booking submission.
type CreateReservationRequest struct {
	TourID  int    `json:"tourId"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// ReservationView is the reservation shape surfaced to clients.
type ReservationView struct {
	ID             string    `json:"id"`
	Date           string    `json:"date"`
	Message        string    `json:"message,omitempty"`
	Tour           *TourView `json:"tour,omitempty"`
	Contract       *FileView `json:"contract,omitempty"`
	SignedContract *FileView `json:"signedContract,omitempty"`
	Signed         bool      `json:"signed"`
}

// FileView is a file reference surfaced to clients.
type FileView struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// ReservationsHandler handles POST /api/reservations, GET /api/reservations
// and GET /api/reservations/{id}.
type ReservationsHandler struct {
	reservations *service.ReservationService
	logger       *slog.Logger
}

func NewReservationsHandler(reservations *service.ReservationService, logger *slog.Logger) *ReservationsHandler {
	return &ReservationsHandler{reservations: reservations, logger: logger}
}

func (h *ReservationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserFromContext(r.Context())
	token := middleware.GetTokenFromContext(r.Context())
	if userID == "" {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodPost:
		h.create(w, r, token, userID)
	case r.Method == http.MethodGet && r.PathValue("id") != "":
		h.get(w, r, token, userID)
	case r.Method == http.MethodGet:
		h.list(w, r, token, userID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ReservationsHandler) create(w http.ResponseWriter, r *http.Request, token, userID string) {
	var req CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewValidationError(domain.FieldError{Field: "body", Message: "invalid JSON"}))
		return
	}

	reservation, err := h.reservations.Create(r.Context(), service.CreateInput{
		Token:   token,
		UserID:  userID,
		TourID:  req.TourID,
		Date:    req.Date,
		Message: req.Message,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationView(reservation))
}

func (h *ReservationsHandler) list(w http.ResponseWriter, r *http.Request, token, userID string) {
	reservations, err := h.reservations.List(r.Context(), token, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]*ReservationView, 0, len(reservations))
	for _, res := range reservations {
		views = append(views, toReservationView(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": views})
}

func (h *ReservationsHandler) get(w http.ResponseWriter, r *http.Request, token, userID string) {
	reservation, err := h.reservations.Get(r.Context(), token, r.PathValue("id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationView(reservation))
}

func toReservationView(res *domain.Reservation) *ReservationView {
	view := &ReservationView{
		ID:      res.ID,
		Date:    res.Date,
		Message: res.Message,
		Signed:  res.Signed,
	}
	if res.Tour != nil {
		view.Tour = toTourView(res.Tour)
	}
	if res.ContractGenerated != nil {
		view.Contract = toFileView(res.ContractGenerated)
	}
	if res.SignedContract != nil {
		view.SignedContract = toFileView(res.SignedContract)
	}
	return view
}

func toFileView(f *domain.FileRef) *FileView {
	return &FileView{ID: f.ID, URL: f.URL, Name: f.Name}
}
