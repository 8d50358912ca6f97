package service

import (
	"context"
	"time"

	"sav-service/internal/apperr"

	"go.uber.org/zap"
)

// lockIntervention takes the per-intervention lease and returns its release
// func. A held lease means another mutation is in flight (Conflict). An
// unreachable lock service degrades to unserialized execution with a warning
// rather than refusing the operation.
func lockIntervention(ctx context.Context, locker Locker, interventionID int64, ttl time.Duration, logger *zap.Logger) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}

	token, err := locker.AcquireInterventionLock(ctx, interventionID, ttl)
	if err != nil {
		logger.Warn("Intervention lock unavailable, proceeding without lease",
			zap.Int64("intervention_id", interventionID),
			zap.Error(err))
		return func() {}, nil
	}
	if token == "" {
		return nil, apperr.Conflict("another operation on intervention %d is in progress", interventionID)
	}

	return func() {
		if err := locker.ReleaseInterventionLock(ctx, interventionID, token); err != nil {
			logger.Warn("Failed to release intervention lock",
				zap.Int64("intervention_id", interventionID),
				zap.Error(err))
		}
	}, nil
}
