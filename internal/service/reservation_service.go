package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/events"
	"github.com/yourorg/tourbook/pkg/config"
)

// ReservationService handles bookings and the signed-contract workflow. The
// contract path mirrors the document dual-write, minus the private blob
// store: contracts go to the media library only.
type ReservationService struct {
	reservations domain.ReservationStore
	media        domain.MediaStore
	hub          *events.Hub
	logger       *slog.Logger
	config       *config.Config
}

// NewReservationService creates a new reservation service.
func NewReservationService(
	reservations domain.ReservationStore,
	media domain.MediaStore,
	hub *events.Hub,
	logger *slog.Logger,
	cfg *config.Config,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		media:        media,
		hub:          hub,
		logger:       logger,
		config:       cfg,
	}
}

// CreateInput is a validated booking request.
type CreateInput struct {
	Token   string
	UserID  string
	TourID  int
	Date    string
	Message string
}

// Validate checks the input shape without touching the reference store.
func (in *CreateInput) Validate() *domain.ValidationError {
	var fields []domain.FieldError
	if in.UserID == "" {
		fields = append(fields, domain.FieldError{Field: "userId", Message: "required"})
	}
	if in.TourID <= 0 {
		fields = append(fields, domain.FieldError{Field: "tourId", Message: "required"})
	}
	if in.Date == "" {
		fields = append(fields, domain.FieldError{Field: "date", Message: "required"})
	} else if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		fields = append(fields, domain.FieldError{Field: "date", Message: "must be YYYY-MM-DD"})
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields...)
	}
	return nil
}

// Create books a tour for the caller.
func (s *ReservationService) Create(ctx context.Context, in CreateInput) (*domain.Reservation, error) {
	if verr := in.Validate(); verr != nil {
		return nil, verr
	}
	reservation, err := s.reservations.CreateReservation(ctx, in.Token, in.UserID, in.TourID, in.Date, in.Message)
	if err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	s.logger.Info("reservation created",
		slog.String("reservation_id", reservation.ID),
		slog.String("user_id", in.UserID),
		slog.Int("tour_id", in.TourID),
	)
	return reservation, nil
}

// List returns the caller's reservations.
func (s *ReservationService) List(ctx context.Context, token, userID string) ([]*domain.Reservation, error) {
	if userID == "" {
		return nil, domain.NewValidationError(domain.FieldError{Field: "userId", Message: "required"})
	}
	reservations, err := s.reservations.ListReservations(ctx, token, userID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

// Get returns one reservation, scoped to the caller.
func (s *ReservationService) Get(ctx context.Context, token, reservationID, userID string) (*domain.Reservation, error) {
	if reservationID == "" {
		return nil, domain.NewValidationError(domain.FieldError{Field: "reservationId", Message: "required"})
	}
	reservation, err := s.reservations.GetReservation(ctx, token, reservationID, userID)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return reservation, nil
}

// SignContractInput is a validated signed-contract submission.
type SignContractInput struct {
	Token         string
	UserID        string
	ReservationID string
	Data          []byte
	FileName      string
	MimeType      string
}

// Validate checks the input shape without touching the reference store.
func (in *SignContractInput) Validate(cfg *config.Config) *domain.ValidationError {
	var fields []domain.FieldError
	if in.ReservationID == "" {
		fields = append(fields, domain.FieldError{Field: "reservationId", Message: "required"})
	}
	if len(in.Data) == 0 {
		fields = append(fields, domain.FieldError{Field: "file", Message: "required"})
	}
	if int64(len(in.Data)) > cfg.MaxUploadBytes {
		fields = append(fields, domain.FieldError{
			Field:   "file",
			Message: fmt.Sprintf("exceeds maximum size of %d bytes", cfg.MaxUploadBytes),
		})
	}
	if !cfg.MimeAllowed(in.MimeType) {
		fields = append(fields, domain.FieldError{Field: "mimeType", Message: "must be pdf, jpeg, png or jpg"})
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields...)
	}
	return nil
}

// SignContract uploads the signed contract file and marks the reservation
// signed. A reservation already signed is final; re-signing is rejected.
func (s *ReservationService) SignContract(ctx context.Context, in SignContractInput) (*domain.Reservation, error) {
	if verr := in.Validate(s.config); verr != nil {
		return nil, verr
	}

	reservation, err := s.reservations.GetReservation(ctx, in.Token, in.ReservationID, in.UserID)
	if err != nil {
		return nil, &StepError{Step: "reservation_lookup", Err: err}
	}
	if reservation.Signed {
		return nil, fmt.Errorf("reservation %s already has a signed contract: %w", in.ReservationID, domain.ErrForbidden)
	}

	fileID, url, err := s.media.UploadMedia(ctx, in.Token, in.Data, in.FileName, in.MimeType)
	if err != nil {
		return nil, &StepError{Step: "media_upload", Err: err}
	}

	if err := s.reservations.SetSignedContract(ctx, in.Token, in.ReservationID, fileID); err != nil {
		s.logger.Error("signed-contract record update failed after media upload",
			slog.String("reservation_id", in.ReservationID),
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return nil, &StepError{Step: "reservation_update", Err: err}
	}

	reservation.Signed = true
	reservation.SignedContract = &domain.FileRef{ID: fileID, URL: url, Name: in.FileName}

	if s.hub != nil {
		s.hub.Publish(events.Event{
			Type:    events.TypeContractSigned,
			OwnerID: in.UserID,
			Detail:  in.ReservationID,
		})
	}
	s.logger.Info("signed contract recorded",
		slog.String("reservation_id", in.ReservationID),
		slog.String("file_id", fileID),
	)
	return reservation, nil
}
