package store

import (
	"context"
	"database/sql"
	"errors"

	"sav-service/internal/apperr"
	"sav-service/internal/models"
)

// CreateIntervention persists a new intervention
func (s *Store) CreateIntervention(ctx context.Context, iv *models.Intervention) error {
	query := `
		INSERT INTO interventions (reclamation_id, technician_id, status, planned_date, is_free, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, iv, query,
		iv.ReclamationID, iv.TechnicianID, iv.Status, iv.PlannedDate, iv.IsFree, iv.Notes)
}

// GetInterventionByID retrieves a non-deleted intervention
func (s *Store) GetInterventionByID(ctx context.Context, id int64) (*models.Intervention, error) {
	var iv models.Intervention
	err := s.db.GetContext(ctx, &iv,
		"SELECT * FROM interventions WHERE id = $1 AND deleted = FALSE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("intervention not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

// GetInterventionIncludingDeleted retrieves an intervention regardless of its
// soft-delete flag. Used by the restore operation only.
func (s *Store) GetInterventionIncludingDeleted(ctx context.Context, id int64) (*models.Intervention, error) {
	var iv models.Intervention
	err := s.db.GetContext(ctx, &iv, "SELECT * FROM interventions WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("intervention not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

// UpdateIntervention writes back mutable intervention fields
func (s *Store) UpdateIntervention(ctx context.Context, iv *models.Intervention) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE interventions
		SET technician_id = $1, status = $2, planned_date = $3, started_at = $4,
		    completed_at = $5, notes = $6, updated_at = NOW()
		WHERE id = $7`,
		iv.TechnicianID, iv.Status, iv.PlannedDate, iv.StartedAt,
		iv.CompletedAt, iv.Notes, iv.ID)
	return err
}

// SetInterventionDeleted flips the soft-delete flag
func (s *Store) SetInterventionDeleted(ctx context.Context, id int64, deleted bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE interventions SET deleted = $1, updated_at = NOW() WHERE id = $2",
		deleted, id)
	return err
}

// ListInterventionsByReclamation retrieves non-deleted interventions for a reclamation
func (s *Store) ListInterventionsByReclamation(ctx context.Context, reclamationID int64) ([]models.Intervention, error) {
	var ivs []models.Intervention
	err := s.db.SelectContext(ctx, &ivs,
		"SELECT * FROM interventions WHERE reclamation_id = $1 AND deleted = FALSE ORDER BY planned_date",
		reclamationID)
	return ivs, err
}

// ListInterventionsByTechnician retrieves non-deleted interventions assigned to a technician
func (s *Store) ListInterventionsByTechnician(ctx context.Context, technicianID int64) ([]models.Intervention, error) {
	var ivs []models.Intervention
	err := s.db.SelectContext(ctx, &ivs,
		"SELECT * FROM interventions WHERE technician_id = $1 AND deleted = FALSE ORDER BY planned_date",
		technicianID)
	return ivs, err
}

// CreatePartUsed persists a part snapshot
func (s *Store) CreatePartUsed(ctx context.Context, part *models.PartUsed) error {
	query := `
		INSERT INTO parts_used (intervention_id, part_id, name, reference, unit_price, quantity, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, part, query,
		part.InterventionID, part.PartID, part.Name, part.Reference,
		part.UnitPrice, part.Quantity, part.CorrelationID)
}

// GetPartUsed retrieves a part snapshot scoped to its intervention
func (s *Store) GetPartUsed(ctx context.Context, interventionID, partUsedID int64) (*models.PartUsed, error) {
	var part models.PartUsed
	err := s.db.GetContext(ctx, &part,
		"SELECT * FROM parts_used WHERE id = $1 AND intervention_id = $2",
		partUsedID, interventionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("part used not found: %d", partUsedID)
	}
	if err != nil {
		return nil, err
	}
	return &part, nil
}

// ListPartsUsed retrieves all part snapshots for an intervention
func (s *Store) ListPartsUsed(ctx context.Context, interventionID int64) ([]models.PartUsed, error) {
	var parts []models.PartUsed
	err := s.db.SelectContext(ctx, &parts,
		"SELECT * FROM parts_used WHERE intervention_id = $1 ORDER BY id", interventionID)
	return parts, err
}

// DeletePartUsed removes a part snapshot
func (s *Store) DeletePartUsed(ctx context.Context, partUsedID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM parts_used WHERE id = $1", partUsedID)
	return err
}

// GetLabor retrieves the labor entry for an intervention, nil when absent
func (s *Store) GetLabor(ctx context.Context, interventionID int64) (*models.Labor, error) {
	var labor models.Labor
	err := s.db.GetContext(ctx, &labor,
		"SELECT * FROM labor WHERE intervention_id = $1", interventionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &labor, nil
}

// UpsertLabor creates or overwrites the single labor entry per intervention
func (s *Store) UpsertLabor(ctx context.Context, labor *models.Labor) error {
	query := `
		INSERT INTO labor (intervention_id, hours, hourly_rate, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (intervention_id) DO UPDATE
		SET hours = EXCLUDED.hours, hourly_rate = EXCLUDED.hourly_rate,
		    description = EXCLUDED.description, updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, labor, query,
		labor.InterventionID, labor.Hours, labor.HourlyRate, labor.Description)
}

// DeleteLabor removes the labor entry for an intervention
func (s *Store) DeleteLabor(ctx context.Context, interventionID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM labor WHERE intervention_id = $1", interventionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("no labor entry for intervention: %d", interventionID)
	}
	return nil
}
