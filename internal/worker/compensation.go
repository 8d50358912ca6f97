// Package worker runs the background loops: the compensation retrier that
// squares remote inventory after partial saga failures, and the notification
// worker that delivers in-app notifications and emails enqueued by the
// dispatcher.
package worker

import (
	"context"
	"time"

	"sav-service/internal/models"
	"sav-service/internal/service"
	"sav-service/internal/util"

	"go.uber.org/zap"
)

const compensationBatchSize = 50

// CompensationWorkerStore is the persistence surface of the retrier.
type CompensationWorkerStore interface {
	ListPendingCompensations(ctx context.Context, limit int) ([]models.CompensationIntent, error)
	ResolveCompensationIntent(ctx context.Context, intentID int64) error
	RecordCompensationAttempt(ctx context.Context, intentID int64, lastError string) error
	AbandonCompensationIntent(ctx context.Context, intentID int64) error
	CountPendingCompensations(ctx context.Context) (int, error)
}

// CorrelationCache remembers which correlation ids already reached the
// inventory service. It guards against replaying a mutation whose intent
// could not be marked resolved after the remote call succeeded.
type CorrelationCache interface {
	MarkCorrelationApplied(ctx context.Context, correlationID string, ttl time.Duration) error
	IsCorrelationApplied(ctx context.Context, correlationID string) (bool, error)
}

// CompensationRetrier periodically replays unresolved compensation intents
// against the inventory collaborator until they resolve or exhaust their
// attempt budget.
type CompensationRetrier struct {
	store       CompensationWorkerStore
	inventory   service.InventoryAPI
	applied     CorrelationCache
	interval    time.Duration
	maxAttempts int
	logger      *zap.Logger
}

// NewCompensationRetrier creates a new compensation retrier
func NewCompensationRetrier(store CompensationWorkerStore, inventory service.InventoryAPI, applied CorrelationCache, interval time.Duration, maxAttempts int) *CompensationRetrier {
	return &CompensationRetrier{
		store:       store,
		inventory:   inventory,
		applied:     applied,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      util.GetLogger(),
	}
}

// Start runs the retry loop until the context is cancelled.
func (r *CompensationRetrier) Start(ctx context.Context) error {
	r.logger.Info("Starting compensation retrier",
		zap.Duration("interval", r.interval),
		zap.Int("max_attempts", r.maxAttempts))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Compensation retrier stopping")
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

// runOnce processes one batch of pending intents.
func (r *CompensationRetrier) runOnce(ctx context.Context) {
	intents, err := r.store.ListPendingCompensations(ctx, compensationBatchSize)
	if err != nil {
		r.logger.Error("Failed to list pending compensations", zap.Error(err))
		return
	}

	for i := range intents {
		r.process(ctx, &intents[i])
	}

	if count, err := r.store.CountPendingCompensations(ctx); err == nil {
		util.CompensationIntentsPending.Set(float64(count))
	}
}

func (r *CompensationRetrier) process(ctx context.Context, intent *models.CompensationIntent) {
	util.CompensationRetriesTotal.Inc()

	if r.applied != nil {
		if done, cacheErr := r.applied.IsCorrelationApplied(ctx, intent.CorrelationID); cacheErr == nil && done {
			if err := r.store.ResolveCompensationIntent(ctx, intent.ID); err != nil {
				r.logger.Error("Failed to mark compensation resolved", zap.Error(err))
				return
			}
			util.CompensationResolvedTotal.Inc()
			r.logger.Info("Compensation already applied remotely, resolved from cache",
				zap.Int64("intent_id", intent.ID),
				zap.String("correlation_id", intent.CorrelationID))
			return
		}
	}

	var err error
	switch intent.Kind {
	case models.CompensationKindRestoreStock:
		err = r.inventory.RestoreStock(ctx, intent.PartID, intent.Quantity, intent.CorrelationID)
	case models.CompensationKindDeductStock:
		err = r.inventory.DeductStock(ctx, intent.PartID, intent.Quantity, intent.CorrelationID)
	default:
		r.logger.Error("Unknown compensation kind, abandoning",
			zap.Int64("intent_id", intent.ID),
			zap.String("kind", intent.Kind))
		_ = r.store.AbandonCompensationIntent(ctx, intent.ID)
		return
	}

	if err == nil {
		if r.applied != nil {
			if cacheErr := r.applied.MarkCorrelationApplied(ctx, intent.CorrelationID, 24*time.Hour); cacheErr != nil {
				r.logger.Warn("Failed to cache applied correlation", zap.Error(cacheErr))
			}
		}
		if err := r.store.ResolveCompensationIntent(ctx, intent.ID); err != nil {
			r.logger.Error("Failed to mark compensation resolved", zap.Error(err))
			return
		}
		util.CompensationResolvedTotal.Inc()
		r.logger.Info("Compensation resolved",
			zap.Int64("intent_id", intent.ID),
			zap.Int64("part_id", intent.PartID),
			zap.Int("quantity", intent.Quantity))
		return
	}

	if recErr := r.store.RecordCompensationAttempt(ctx, intent.ID, err.Error()); recErr != nil {
		r.logger.Error("Failed to record compensation attempt", zap.Error(recErr))
		return
	}

	// attempts was read before this retry; +1 accounts for it.
	if intent.Attempts+1 >= r.maxAttempts {
		if abErr := r.store.AbandonCompensationIntent(ctx, intent.ID); abErr != nil {
			r.logger.Error("Failed to abandon compensation intent", zap.Error(abErr))
			return
		}
		util.CompensationAbandonedTotal.Inc()
		r.logger.Error("Compensation abandoned after max attempts; remote stock needs manual reconciliation",
			zap.Int64("intent_id", intent.ID),
			zap.Int64("part_id", intent.PartID),
			zap.Int("quantity", intent.Quantity),
			zap.Error(err))
		return
	}

	r.logger.Warn("Compensation attempt failed, will retry",
		zap.Int64("intent_id", intent.ID),
		zap.Int("attempts", intent.Attempts+1),
		zap.Error(err))
}
