package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/events"
)

type fakeReservationStore struct {
	reservations map[string]*domain.Reservation
	createCalls  int
	signCalls    int
	signErr      error
	createErr    error
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{reservations: map[string]*domain.Reservation{}}
}

func (f *fakeReservationStore) CreateReservation(ctx context.Context, token, userID string, tourID int, date, message string) (*domain.Reservation, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	r := &domain.Reservation{
		ID:      fmt.Sprintf("r-%d", f.createCalls),
		UserID:  userID,
		Date:    date,
		Message: message,
		Tour:    &domain.Tour{ID: tourID},
	}
	f.reservations[r.ID] = r
	return r, nil
}

func (f *fakeReservationStore) ListReservations(ctx context.Context, token, userID string) ([]*domain.Reservation, error) {
	var out []*domain.Reservation
	for _, r := range f.reservations {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReservationStore) GetReservation(ctx context.Context, token, reservationID, userID string) (*domain.Reservation, error) {
	r, ok := f.reservations[reservationID]
	if !ok || r.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeReservationStore) SetSignedContract(ctx context.Context, token, reservationID, fileID string) error {
	f.signCalls++
	if f.signErr != nil {
		return f.signErr
	}
	r, ok := f.reservations[reservationID]
	if !ok {
		return domain.ErrNotFound
	}
	r.Signed = true
	r.SignedContract = &domain.FileRef{ID: fileID}
	return nil
}

func newReservationTestService(store *fakeReservationStore, media *fakeMediaStore) *ReservationService {
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	return NewReservationService(store, media, events.NewHub(), logger, testConfig())
}

// TestCreateReservation verifies the booking happy path.
func TestCreateReservation(t *testing.T) {
	store := newFakeReservationStore()
	svc := newReservationTestService(store, &fakeMediaStore{})

	r, err := svc.Create(context.Background(), CreateInput{
		Token: "tok", UserID: "u1", TourID: 7, Date: "2026-10-01", Message: "two people",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if r.ID == "" || r.Tour.ID != 7 {
		t.Errorf("Unexpected reservation: %+v", r)
	}

	list, err := svc.List(context.Background(), "tok", "u1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected one reservation, got %d", len(list))
	}
}

// TestCreateReservationValidation verifies bad input never reaches the store.
func TestCreateReservationValidation(t *testing.T) {
	cases := []struct {
		name string
		in   CreateInput
	}{
		{"missing user", CreateInput{TourID: 7, Date: "2026-10-01"}},
		{"missing tour", CreateInput{UserID: "u1", Date: "2026-10-01"}},
		{"bad date", CreateInput{UserID: "u1", TourID: 7, Date: "October 1st"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeReservationStore()
			svc := newReservationTestService(store, &fakeMediaStore{})
			if _, err := svc.Create(context.Background(), tc.in); !domain.IsValidation(err) {
				t.Fatalf("Expected validation error, got %v", err)
			}
			if store.createCalls != 0 {
				t.Errorf("Validation failure must not reach the store")
			}
		})
	}
}

// TestSignContract verifies the contract dual-write: media upload then
// reservation update.
func TestSignContract(t *testing.T) {
	store := newFakeReservationStore()
	store.reservations["r-1"] = &domain.Reservation{ID: "r-1", UserID: "u1"}
	media := &fakeMediaStore{}
	svc := newReservationTestService(store, media)

	r, err := svc.SignContract(context.Background(), SignContractInput{
		Token: "tok", UserID: "u1", ReservationID: "r-1",
		Data: []byte("%PDF-1.4"), FileName: "contract.pdf", MimeType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("SignContract failed: %v", err)
	}
	if !r.Signed || r.SignedContract == nil {
		t.Errorf("Reservation not marked signed: %+v", r)
	}
	if media.uploadCalls != 1 || store.signCalls != 1 {
		t.Errorf("Expected one media upload and one record update")
	}
}

// TestSignContractRejectsResign verifies a signed contract is final.
func TestSignContractRejectsResign(t *testing.T) {
	store := newFakeReservationStore()
	store.reservations["r-1"] = &domain.Reservation{ID: "r-1", UserID: "u1", Signed: true}
	media := &fakeMediaStore{}
	svc := newReservationTestService(store, media)

	_, err := svc.SignContract(context.Background(), SignContractInput{
		Token: "tok", UserID: "u1", ReservationID: "r-1",
		Data: []byte("%PDF-1.4"), FileName: "contract.pdf", MimeType: "application/pdf",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("Expected ErrForbidden on re-sign, got %v", err)
	}
	if media.uploadCalls != 0 {
		t.Errorf("Re-sign must not upload anything")
	}
}

// TestSignContractRecordUpdateFailure verifies the step error when the
// reservation update fails after the media upload.
func TestSignContractRecordUpdateFailure(t *testing.T) {
	store := newFakeReservationStore()
	store.reservations["r-1"] = &domain.Reservation{ID: "r-1", UserID: "u1"}
	store.signErr = errors.New("strapi 500")
	svc := newReservationTestService(store, &fakeMediaStore{})

	_, err := svc.SignContract(context.Background(), SignContractInput{
		Token: "tok", UserID: "u1", ReservationID: "r-1",
		Data: []byte("%PDF-1.4"), FileName: "contract.pdf", MimeType: "application/pdf",
	})
	var step *StepError
	if !errors.As(err, &step) || step.Step != "reservation_update" {
		t.Fatalf("Expected reservation_update step error, got %v", err)
	}
}

// TestSignContractScopedToOwner verifies a caller cannot sign another
// user's reservation.
func TestSignContractScopedToOwner(t *testing.T) {
	store := newFakeReservationStore()
	store.reservations["r-1"] = &domain.Reservation{ID: "r-1", UserID: "u2"}
	svc := newReservationTestService(store, &fakeMediaStore{})

	_, err := svc.SignContract(context.Background(), SignContractInput{
		Token: "tok", UserID: "u1", ReservationID: "r-1",
		Data: []byte("%PDF-1.4"), FileName: "contract.pdf", MimeType: "application/pdf",
	})
	var step *StepError
	if !errors.As(err, &step) || step.Step != "reservation_lookup" {
		t.Fatalf("Expected reservation_lookup step error, got %v", err)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound underneath, got %v", err)
	}
}
