package store

import (
	"context"

	"sav-service/internal/models"
)

// CreateCompensationIntent records a compensation still owed to the remote inventory
func (s *Store) CreateCompensationIntent(ctx context.Context, intent *models.CompensationIntent) error {
	query := `
		INSERT INTO compensation_intents (kind, intervention_id, part_id, quantity, correlation_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, intent, query,
		intent.Kind, intent.InterventionID, intent.PartID,
		intent.Quantity, intent.CorrelationID, models.CompensationStatusPending)
}

// ResolveCompensationIntent marks an intent as applied remotely
func (s *Store) ResolveCompensationIntent(ctx context.Context, intentID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE compensation_intents
		SET status = $1, resolved_at = NOW()
		WHERE id = $2`,
		models.CompensationStatusResolved, intentID)
	return err
}

// RecordCompensationAttempt increments the attempt counter after a failed retry
func (s *Store) RecordCompensationAttempt(ctx context.Context, intentID int64, lastError string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE compensation_intents
		SET attempts = attempts + 1, last_error = $1
		WHERE id = $2`,
		lastError, intentID)
	return err
}

// AbandonCompensationIntent gives up on an intent after max attempts
func (s *Store) AbandonCompensationIntent(ctx context.Context, intentID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE compensation_intents
		SET status = $1
		WHERE id = $2`,
		models.CompensationStatusAbandoned, intentID)
	return err
}

// ListPendingCompensations retrieves unresolved intents, oldest first
func (s *Store) ListPendingCompensations(ctx context.Context, limit int) ([]models.CompensationIntent, error) {
	var intents []models.CompensationIntent
	err := s.db.SelectContext(ctx, &intents, `
		SELECT * FROM compensation_intents
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2`,
		models.CompensationStatusPending, limit)
	return intents, err
}

// CountPendingCompensations counts unresolved intents
func (s *Store) CountPendingCompensations(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM compensation_intents WHERE status = $1",
		models.CompensationStatusPending)
	return count, err
}
