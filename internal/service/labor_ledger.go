package service

import (
	"context"
	"time"

	"sav-service/internal/apperr"
	"sav-service/internal/models"
	"sav-service/internal/util"

	"go.uber.org/zap"
)

// LaborLedger maintains the single labor entry per intervention. No remote
// calls are involved; a second SetLabor overwrites the existing entry.
type LaborLedger struct {
	store   InterventionStore
	locker  Locker
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewLaborLedger creates a new labor ledger
func NewLaborLedger(store InterventionStore, locker Locker, lockTTL time.Duration) *LaborLedger {
	return &LaborLedger{
		store:   store,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  util.GetLogger(),
	}
}

// SetLabor creates or overwrites the labor entry for an intervention.
func (ll *LaborLedger) SetLabor(ctx context.Context, actor Actor, interventionID int64, hours float64, hourlyRate int64, description string) (*models.Labor, error) {
	ctx, span := util.StartSpan(ctx, "LaborLedger.SetLabor")
	defer span.End()

	if hours <= 0 {
		return nil, apperr.Validation("hours must be positive")
	}
	if hourlyRate < 0 {
		return nil, apperr.Validation("hourly rate cannot be negative")
	}

	release, err := lockIntervention(ctx, ll.locker, interventionID, ll.lockTTL, ll.logger)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := ll.store.GetInterventionByID(ctx, interventionID); err != nil {
		return nil, err
	}

	labor := &models.Labor{
		InterventionID: interventionID,
		Hours:          hours,
		HourlyRate:     hourlyRate,
		Description:    description,
	}

	if err := ll.store.UpsertLabor(ctx, labor); err != nil {
		return nil, apperr.Internal("failed to set labor", err)
	}

	ll.logger.Info("Labor set",
		zap.Int64("intervention_id", interventionID),
		zap.Float64("hours", hours),
		zap.Int64("hourly_rate", hourlyRate))

	return labor, nil
}

// RemoveLabor deletes the labor entry outright.
func (ll *LaborLedger) RemoveLabor(ctx context.Context, actor Actor, interventionID int64) error {
	ctx, span := util.StartSpan(ctx, "LaborLedger.RemoveLabor")
	defer span.End()

	release, err := lockIntervention(ctx, ll.locker, interventionID, ll.lockTTL, ll.logger)
	if err != nil {
		return err
	}
	defer release()

	return ll.store.DeleteLabor(ctx, interventionID)
}
