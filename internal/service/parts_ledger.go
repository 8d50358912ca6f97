package service

import (
	"context"
	"time"

	"sav-service/internal/apperr"
	"sav-service/internal/models"
	"sav-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PartsLedger drives the cross-service saga around spare-part consumption.
// The remote Inventory service owns stock; this ledger owns the local
// PartUsed snapshots. A local write and a remote mutation can fail
// independently, so every remote deduction that cannot be matched by a local
// snapshot leaves a durable compensation intent for the background retrier.
type PartsLedger struct {
	store     InterventionStore
	compStore CompensationStore
	inventory InventoryAPI
	publisher Publisher
	locker    Locker
	lockTTL   time.Duration
	logger    *zap.Logger
}

// NewPartsLedger creates a new parts ledger
func NewPartsLedger(
	store InterventionStore,
	compStore CompensationStore,
	inventory InventoryAPI,
	publisher Publisher,
	locker Locker,
	lockTTL time.Duration,
) *PartsLedger {
	return &PartsLedger{
		store:     store,
		compStore: compStore,
		inventory: inventory,
		publisher: publisher,
		locker:    locker,
		lockTTL:   lockTTL,
		logger:    util.GetLogger(),
	}
}

// AddPart consumes quantity units of a part for an intervention:
// snapshot the part, check stock, deduct remotely, then persist locally.
// If the local persist fails after the remote deduction succeeded, the
// deduction is compensated with a RestoreStock call; should that also fail,
// the intent stays pending and the retrier finishes the job.
func (pl *PartsLedger) AddPart(ctx context.Context, actor Actor, interventionID, partID int64, quantity int) (*models.PartUsed, error) {
	ctx, span := util.StartSpan(ctx, "PartsLedger.AddPart")
	defer span.End()

	if quantity <= 0 {
		return nil, apperr.Validation("quantity must be positive")
	}

	release, err := lockIntervention(ctx, pl.locker, interventionID, pl.lockTTL, pl.logger)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := pl.store.GetInterventionByID(ctx, interventionID); err != nil {
		return nil, err
	}

	part, err := pl.inventory.GetPart(ctx, partID)
	if err != nil {
		return nil, err
	}

	if part.Stock < quantity {
		util.StockDeductionsFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, apperr.Validation("insufficient stock: available=%d, requested=%d", part.Stock, quantity)
	}

	correlationID := uuid.New().String()

	if err := pl.inventory.DeductStock(ctx, partID, quantity, correlationID); err != nil {
		return nil, err
	}

	partUsed := &models.PartUsed{
		InterventionID: interventionID,
		PartID:         partID,
		Name:           part.Name,
		Reference:      part.Reference,
		UnitPrice:      part.UnitPrice,
		Quantity:       quantity,
		CorrelationID:  correlationID,
	}

	if err := pl.store.CreatePartUsed(ctx, partUsed); err != nil {
		pl.logger.Error("Local part snapshot failed after remote deduction, compensating",
			zap.Int64("intervention_id", interventionID),
			zap.Int64("part_id", partID),
			zap.String("correlation_id", correlationID),
			zap.Error(err))
		pl.compensateDeduction(ctx, interventionID, partID, quantity, correlationID)
		return nil, apperr.Internal("failed to record part usage", err)
	}

	util.PartsAddedTotal.Inc()
	pl.logger.Info("Part added to intervention",
		zap.Int64("intervention_id", interventionID),
		zap.Int64("part_id", partID),
		zap.Int("quantity", quantity))

	event := &models.PartAddedEvent{
		BaseEvent:      newBaseEvent(models.EventTypePartAdded),
		InterventionID: interventionID,
		PartID:         partID,
		Quantity:       quantity,
		CorrelationID:  correlationID,
	}
	if err := pl.publisher.PublishPartAdded(ctx, event); err != nil {
		pl.logger.Error("Failed to publish PartAdded event", zap.Error(err))
	}

	return partUsed, nil
}

// RemovePart deletes the local snapshot first, then restores remote stock.
// A failed restore is not rolled back locally; the asymmetry with AddPart is
// deliberate, favoring local consistency. The failed restore is recorded as
// a pending intent so the retrier eventually squares the remote side.
func (pl *PartsLedger) RemovePart(ctx context.Context, actor Actor, interventionID, partUsedID int64) error {
	ctx, span := util.StartSpan(ctx, "PartsLedger.RemovePart")
	defer span.End()

	release, err := lockIntervention(ctx, pl.locker, interventionID, pl.lockTTL, pl.logger)
	if err != nil {
		return err
	}
	defer release()

	part, err := pl.store.GetPartUsed(ctx, interventionID, partUsedID)
	if err != nil {
		return err
	}

	if err := pl.store.DeletePartUsed(ctx, partUsedID); err != nil {
		return apperr.Internal("failed to remove part usage", err)
	}

	restoreCorrelation := uuid.New().String()
	if err := pl.inventory.RestoreStock(ctx, part.PartID, part.Quantity, restoreCorrelation); err != nil {
		pl.logger.Error("Stock restore failed after local removal; leaving intent for retrier",
			zap.Int64("intervention_id", interventionID),
			zap.Int64("part_id", part.PartID),
			zap.Int("quantity", part.Quantity),
			zap.Error(err))
		pl.recordRestoreIntent(ctx, interventionID, part.PartID, part.Quantity, restoreCorrelation, err)
	}

	util.PartsRemovedTotal.Inc()

	event := &models.PartRemovedEvent{
		BaseEvent:      newBaseEvent(models.EventTypePartRemoved),
		InterventionID: interventionID,
		PartID:         part.PartID,
		Quantity:       part.Quantity,
		CorrelationID:  restoreCorrelation,
	}
	if err := pl.publisher.PublishPartRemoved(ctx, event); err != nil {
		pl.logger.Error("Failed to publish PartRemoved event", zap.Error(err))
	}

	return nil
}

// compensateDeduction undoes a remote deduction that has no matching local
// snapshot. The intent is persisted before the restore attempt so a crash or
// a failed restore leaves a durable record instead of silent stock loss.
func (pl *PartsLedger) compensateDeduction(ctx context.Context, interventionID, partID int64, quantity int, correlationID string) {
	intent := &models.CompensationIntent{
		Kind:           models.CompensationKindRestoreStock,
		InterventionID: interventionID,
		PartID:         partID,
		Quantity:       quantity,
		CorrelationID:  correlationID,
	}

	if err := pl.compStore.CreateCompensationIntent(ctx, intent); err != nil {
		// Worst case: no durable record and the restore below is the only shot.
		pl.logger.Error("Failed to persist compensation intent",
			zap.Int64("part_id", partID),
			zap.String("correlation_id", correlationID),
			zap.Error(err))
		if restoreErr := pl.inventory.RestoreStock(ctx, partID, quantity, correlationID); restoreErr != nil {
			pl.logger.Error("Compensation failed, remote stock short",
				zap.Int64("part_id", partID),
				zap.Int("quantity", quantity),
				zap.Error(apperr.Compensation("stock restore failed", restoreErr)))
		}
		return
	}

	util.CompensationIntentsPending.Inc()

	if err := pl.inventory.RestoreStock(ctx, partID, quantity, correlationID); err != nil {
		pl.logger.Warn("Immediate compensation attempt failed, retrier will continue",
			zap.Int64("intent_id", intent.ID),
			zap.Error(err))
		if recErr := pl.compStore.RecordCompensationAttempt(ctx, intent.ID, err.Error()); recErr != nil {
			pl.logger.Error("Failed to record compensation attempt", zap.Error(recErr))
		}
		return
	}

	if err := pl.compStore.ResolveCompensationIntent(ctx, intent.ID); err != nil {
		pl.logger.Error("Failed to mark compensation resolved", zap.Error(err))
		return
	}
	util.CompensationIntentsPending.Dec()
	util.CompensationResolvedTotal.Inc()
}

// recordRestoreIntent persists a pending restore after a RemovePart whose
// remote call failed.
func (pl *PartsLedger) recordRestoreIntent(ctx context.Context, interventionID, partID int64, quantity int, correlationID string, cause error) {
	intent := &models.CompensationIntent{
		Kind:           models.CompensationKindRestoreStock,
		InterventionID: interventionID,
		PartID:         partID,
		Quantity:       quantity,
		CorrelationID:  correlationID,
	}
	if err := pl.compStore.CreateCompensationIntent(ctx, intent); err != nil {
		pl.logger.Error("Failed to persist restore intent",
			zap.Int64("part_id", partID),
			zap.Error(apperr.Compensation(cause.Error(), err)))
		return
	}
	if err := pl.compStore.RecordCompensationAttempt(ctx, intent.ID, cause.Error()); err != nil {
		pl.logger.Error("Failed to record restore attempt", zap.Error(err))
	}
	util.CompensationIntentsPending.Inc()
}
