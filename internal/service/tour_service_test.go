package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/yourorg/tourbook/internal/domain"
)

type fakeTourStore struct {
	lastPage     int
	lastPageSize int
}

func (f *fakeTourStore) ListTours(ctx context.Context, page, pageSize int) (*domain.TourPage, error) {
	f.lastPage = page
	f.lastPageSize = pageSize
	return &domain.TourPage{
		Tours:    []*domain.Tour{{ID: 1, Name: "Alhambra"}},
		Page:     page,
		PageSize: pageSize,
		Total:    1,
	}, nil
}

func (f *fakeTourStore) ListToursByDestination(ctx context.Context, destination string) ([]*domain.Tour, error) {
	if destination != "granada" {
		return nil, nil
	}
	return []*domain.Tour{{ID: 1, Name: "Alhambra", Location: "Granada"}}, nil
}

// TestTourListClampsPaging verifies page and page-size normalization.
func TestTourListClampsPaging(t *testing.T) {
	store := &fakeTourStore{}
	svc := NewTourService(store, slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)))

	if _, err := svc.List(context.Background(), 0, 0); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if store.lastPage != 1 || store.lastPageSize != defaultPageSize {
		t.Errorf("Expected defaults, got page=%d size=%d", store.lastPage, store.lastPageSize)
	}

	if _, err := svc.List(context.Background(), 2, 500); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if store.lastPageSize != maxPageSize {
		t.Errorf("Expected page size clamp to %d, got %d", maxPageSize, store.lastPageSize)
	}
}

// TestToursByDestination verifies the destination filter path.
func TestToursByDestination(t *testing.T) {
	store := &fakeTourStore{}
	svc := NewTourService(store, slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)))

	tours, err := svc.ByDestination(context.Background(), "granada")
	if err != nil {
		t.Fatalf("ByDestination failed: %v", err)
	}
	if len(tours) != 1 || tours[0].Location != "Granada" {
		t.Errorf("Unexpected tours: %+v", tours)
	}

	if _, err := svc.ByDestination(context.Background(), ""); !domain.IsValidation(err) {
		t.Errorf("Empty destination must be a validation error, got %v", err)
	}
}
