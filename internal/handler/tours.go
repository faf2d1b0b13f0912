package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/service"
)

// TourView is the tour shape surfaced to clients.
type TourView struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Location    string   `json:"location"`
	DurationMin int      `json:"durationMin"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// ToursHandler handles GET /api/tours and
// GET /api/tours/destination/{name}. Both are public and served from the
// tag cache when warm.
type ToursHandler struct {
	tours  *service.TourService
	logger *slog.Logger
}

func NewToursHandler(tours *service.TourService, logger *slog.Logger) *ToursHandler {
	return &ToursHandler{tours: tours, logger: logger}
}

func (h *ToursHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if destination := r.PathValue("destination"); destination != "" {
		h.byDestination(w, r, destination)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	result, err := h.tours.List(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]*TourView, 0, len(result.Tours))
	for _, tour := range result.Tours {
		views = append(views, toTourView(tour))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tours": views,
		"meta": map[string]int{
			"page":      result.Page,
			"pageSize":  result.PageSize,
			"pageCount": result.PageCount,
			"total":     result.Total,
		},
	})
}

func (h *ToursHandler) byDestination(w http.ResponseWriter, r *http.Request, destination string) {
	tours, err := h.tours.ByDestination(r.Context(), destination)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]*TourView, 0, len(tours))
	for _, tour := range tours {
		views = append(views, toTourView(tour))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tours": views})
}

func toTourView(t *domain.Tour) *TourView {
	return &TourView{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Price:       t.Price,
		Location:    t.Location,
		DurationMin: t.DurationMin,
		ImageURL:    t.ImageURL,
		Categories:  t.Categories,
	}
}
