package domain

import "time"

// IntentState tracks an upload intent through the dual-write.
type IntentState string

const (
	// IntentPending: blob upload started, user record not yet updated.
	IntentPending IntentState = "pending"
	// IntentCommitted: user record updated, both stores agree.
	IntentCommitted IntentState = "committed"
	// IntentReconciled: a stale pending intent whose orphaned blob the
	// sweeper removed (or attempted to remove).
	IntentReconciled IntentState = "reconciled"
)

// UploadIntent is the persisted journal entry written before the private
// blob upload. The journal is advisory: it exists so the sweeper can find
// orphaned blobs after a partial failure, and journal errors never fail the
// user-facing operation.
type UploadIntent struct {
	ID           string
	OwnerID      string
	Kind         DocumentKind
	BlobObjectID string
	State        IntentState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IntentRepository is the journal's data access.
type IntentRepository interface {
	Create(intent *UploadIntent) error
	MarkCommitted(id string) error
	MarkReconciled(id string) error
	// ListStalePending returns pending intents created before the cutoff.
	ListStalePending(cutoff time.Time) ([]*UploadIntent, error)
	CountByState(state IntentState) (int, error)
}
