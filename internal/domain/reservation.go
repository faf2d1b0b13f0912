package domain

import "context"

// FileRef points at a file record in the reference-store media library.
type FileRef struct {
	ID   string
	URL  string
	Name string
}

// Tour is a bookable tour as modeled by the reference store.
type Tour struct {
	ID          int
	DocumentID  string
	Name        string
	Description string
	Price       float64
	Location    string
	DurationMin int
	ImageURL    string
	Categories  []string
}

// Reservation is a booking created by a user. Contract fields are populated
// by later operations; a signed contract is final.
type Reservation struct {
	ID                string
	DocumentID        string
	UserID            string
	Date              string
	Message           string
	Tour              *Tour
	ContractGenerated *FileRef
	SignedContract    *FileRef
	Signed            bool
}

// ReservationStore is the reference-store surface for reservations.
type ReservationStore interface {
	CreateReservation(ctx context.Context, token, userID string, tourID int, date, message string) (*Reservation, error)
	ListReservations(ctx context.Context, token, userID string) ([]*Reservation, error)
	GetReservation(ctx context.Context, token, reservationID, userID string) (*Reservation, error)
	// SetSignedContract records the signed-contract file and flags the
	// reservation as signed.
	SetSignedContract(ctx context.Context, token, reservationID, fileID string) error
}

// TourPage is one page of the tour catalog.
type TourPage struct {
	Tours     []*Tour
	Page      int
	PageSize  int
	PageCount int
	Total     int
}

// TourStore is the reference-store surface for the tour catalog.
type TourStore interface {
	ListTours(ctx context.Context, page, pageSize int) (*TourPage, error)
	ListToursByDestination(ctx context.Context, destination string) ([]*Tour, error)
}
