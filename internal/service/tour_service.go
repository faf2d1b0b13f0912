package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourorg/tourbook/internal/domain"
)

// TourService serves the public tour catalog. Catalog reads are the only
// cached reads in the system; the store layer caches them behind tags.
type TourService struct {
	tours  domain.TourStore
	logger *slog.Logger
}

// NewTourService creates a new tour catalog service.
func NewTourService(tours domain.TourStore, logger *slog.Logger) *TourService {
	return &TourService{tours: tours, logger: logger}
}

const (
	defaultPageSize = 12
	maxPageSize     = 50
)

// List returns one page of the catalog. Page numbers start at 1.
func (s *TourService) List(ctx context.Context, page, pageSize int) (*domain.TourPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	result, err := s.tours.ListTours(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	return result, nil
}

// ByDestination returns the tours for one destination.
func (s *TourService) ByDestination(ctx context.Context, destination string) ([]*domain.Tour, error) {
	if destination == "" {
		return nil, domain.NewValidationError(domain.FieldError{Field: "destination", Message: "required"})
	}
	tours, err := s.tours.ListToursByDestination(ctx, destination)
	if err != nil {
		return nil, fmt.Errorf("list tours by destination: %w", err)
	}
	return tours, nil
}
