package repository

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/tourbook/internal/domain"
)

// PostgresIntentRepository implements domain.IntentRepository against the
// upload_intents journal table.
type PostgresIntentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresIntentRepository creates an intent repository.
func NewPostgresIntentRepository(db *sql.DB, logger *slog.Logger) *PostgresIntentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresIntentRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a new pending intent.
func (r *PostgresIntentRepository) Create(intent *domain.UploadIntent) error {
	query := `
		INSERT INTO upload_intents (id, owner_id, document_kind, blob_object_id, state)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		intent.ID,
		intent.OwnerID,
		string(intent.Kind),
		intent.BlobObjectID,
		string(intent.State),
	).Scan(&intent.CreatedAt, &intent.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create upload intent",
			slog.String("owner_id", intent.OwnerID),
			slog.String("kind", string(intent.Kind)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create upload intent: %w", err)
	}
	return nil
}

// MarkCommitted transitions an intent to committed.
func (r *PostgresIntentRepository) MarkCommitted(id string) error {
	return r.setState(id, domain.IntentCommitted)
}

// MarkReconciled transitions an intent to reconciled.
func (r *PostgresIntentRepository) MarkReconciled(id string) error {
	return r.setState(id, domain.IntentReconciled)
}

func (r *PostgresIntentRepository) setState(id string, state domain.IntentState) error {
	query := `UPDATE upload_intents SET state = $1, updated_at = now() WHERE id = $2`

	result, err := r.db.Exec(query, string(state), id)
	if err != nil {
		r.logger.Error("failed to update intent state",
			slog.String("intent_id", id),
			slog.String("state", string(state)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to update intent state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("intent %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListStalePending returns pending intents created before the cutoff.
func (r *PostgresIntentRepository) ListStalePending(cutoff time.Time) ([]*domain.UploadIntent, error) {
	query := `
		SELECT id, owner_id, document_kind, blob_object_id, state, created_at, updated_at
		FROM upload_intents
		WHERE state = 'pending' AND created_at < $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale intents: %w", err)
	}
	defer rows.Close()

	var intents []*domain.UploadIntent
	for rows.Next() {
		intent := &domain.UploadIntent{}
		var kind, state string
		if err := rows.Scan(
			&intent.ID,
			&intent.OwnerID,
			&kind,
			&intent.BlobObjectID,
			&state,
			&intent.CreatedAt,
			&intent.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan intent: %w", err)
		}
		intent.Kind = domain.DocumentKind(kind)
		intent.State = domain.IntentState(state)
		intents = append(intents, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading intents: %w", err)
	}
	return intents, nil
}

// CountByState returns the number of intents in a state.
func (r *PostgresIntentRepository) CountByState(state domain.IntentState) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT count(*) FROM upload_intents WHERE state = $1`,
		string(state),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count intents: %w", err)
	}
	return count, nil
}
