package service

import (
	"context"
	"time"

	"sav-service/internal/apperr"
	"sav-service/internal/gateway"
	"sav-service/internal/models"
	"sav-service/internal/util"

	"go.uber.org/zap"
)

// InterventionService owns intervention identity, status transitions,
// technician assignment and timestamps, and sequences the side effects
// around them.
type InterventionService struct {
	store        InterventionStore
	reclamations ReclamationAPI
	directory    DirectoryAPI
	publisher    Publisher
	dispatcher   *Dispatcher
	locker       Locker
	lockTTL      time.Duration
	logger       *zap.Logger
}

// NewInterventionService creates a new intervention service
func NewInterventionService(
	store InterventionStore,
	reclamations ReclamationAPI,
	directory DirectoryAPI,
	publisher Publisher,
	dispatcher *Dispatcher,
	locker Locker,
	lockTTL time.Duration,
) *InterventionService {
	return &InterventionService{
		store:        store,
		reclamations: reclamations,
		directory:    directory,
		publisher:    publisher,
		dispatcher:   dispatcher,
		locker:       locker,
		lockTTL:      lockTTL,
		logger:       util.GetLogger(),
	}
}

// CreateInterventionRequest is the payload for scheduling an intervention
type CreateInterventionRequest struct {
	ReclamationID int64     `json:"reclamation_id" binding:"required"`
	TechnicianID  *int64    `json:"technician_id,omitempty"`
	PlannedDate   time.Time `json:"planned_date" binding:"required"`
	Notes         string    `json:"notes"`
	IsFree        bool      `json:"is_free"`
}

// InterventionDetail bundles an intervention with its parts and labor
type InterventionDetail struct {
	Intervention *models.Intervention `json:"intervention"`
	Parts        []models.PartUsed    `json:"parts"`
	Labor        *models.Labor        `json:"labor,omitempty"`
}

// CreateIntervention schedules a new intervention in Planned status.
// The warranty flag is fixed here and never changes afterwards.
func (s *InterventionService) CreateIntervention(ctx context.Context, actor Actor, req *CreateInterventionRequest) (*models.Intervention, error) {
	ctx, span := util.StartSpan(ctx, "InterventionService.CreateIntervention")
	defer span.End()

	if req.PlannedDate.IsZero() {
		return nil, apperr.Validation("planned date is required")
	}
	if req.TechnicianID != nil && *req.TechnicianID <= 0 {
		return nil, apperr.Validation("invalid technician id")
	}

	rec, err := s.reclamations.GetReclamation(ctx, req.ReclamationID)
	if err != nil {
		return nil, err
	}

	iv := &models.Intervention{
		ReclamationID: req.ReclamationID,
		TechnicianID:  req.TechnicianID,
		Status:        models.InterventionStatusPlanned,
		PlannedDate:   req.PlannedDate,
		IsFree:        req.IsFree,
		Notes:         req.Notes,
	}

	if err := s.store.CreateIntervention(ctx, iv); err != nil {
		return nil, apperr.Internal("failed to create intervention", err)
	}

	util.InterventionsCreatedTotal.Inc()
	s.logger.Info("Intervention created",
		zap.Int64("intervention_id", iv.ID),
		zap.Int64("reclamation_id", iv.ReclamationID))

	event := &models.InterventionCreatedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeInterventionCreated),
		InterventionID: iv.ID,
		ReclamationID:  iv.ReclamationID,
		TechnicianID:   iv.TechnicianID,
		PlannedDate:    iv.PlannedDate,
		IsFree:         iv.IsFree,
	}
	if err := s.publisher.PublishInterventionCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish InterventionCreated event", zap.Error(err))
	}

	s.dispatcher.InterventionScheduled(ctx, iv, rec)

	return iv, nil
}

// GetIntervention retrieves an intervention with its parts and labor,
// enforcing that clients only see their own.
func (s *InterventionService) GetIntervention(ctx context.Context, actor Actor, id int64) (*InterventionDetail, error) {
	iv, err := s.store.GetInterventionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rec, err := s.reclamations.GetReclamation(ctx, iv.ReclamationID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, rec); err != nil {
		return nil, err
	}

	parts, err := s.store.ListPartsUsed(ctx, id)
	if err != nil {
		return nil, err
	}
	labor, err := s.store.GetLabor(ctx, id)
	if err != nil {
		return nil, err
	}

	return &InterventionDetail{Intervention: iv, Parts: parts, Labor: labor}, nil
}

// UpdateStatus transitions an intervention. startedAt is stamped on the first
// entry to InProgress, completedAt on Completed. Notes append rather than
// replace. Completed and Cancelled reject any further transition.
func (s *InterventionService) UpdateStatus(ctx context.Context, actor Actor, id int64, newStatus, notes string) (*models.Intervention, error) {
	ctx, span := util.StartSpan(ctx, "InterventionService.UpdateStatus")
	defer span.End()

	if !models.ValidStatus(newStatus) {
		return nil, apperr.Validation("unknown status: %s", newStatus)
	}

	release, err := lockIntervention(ctx, s.locker, id, s.lockTTL, s.logger)
	if err != nil {
		return nil, err
	}
	defer release()

	iv, err := s.store.GetInterventionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(iv.Status, newStatus) {
		return nil, apperr.Validation("cannot transition from %s to %s", iv.Status, newStatus)
	}

	oldStatus := iv.Status
	iv.Status = newStatus

	now := time.Now()
	switch newStatus {
	case models.InterventionStatusInProgress:
		if iv.StartedAt == nil {
			iv.StartedAt = &now
		}
	case models.InterventionStatusCompleted:
		iv.CompletedAt = &now
	}

	if notes != "" {
		if iv.Notes != "" {
			iv.Notes += "\n"
		}
		iv.Notes += notes
	}

	if err := s.store.UpdateIntervention(ctx, iv); err != nil {
		return nil, apperr.Internal("failed to update intervention", err)
	}

	util.InterventionStatusChangesTotal.WithLabelValues(newStatus).Inc()
	s.logger.Info("Intervention status changed",
		zap.Int64("intervention_id", iv.ID),
		zap.String("from", oldStatus),
		zap.String("to", newStatus))

	var totalAmount int64
	if newStatus == models.InterventionStatusCompleted {
		totalAmount, err = s.computeTotal(ctx, iv)
		if err != nil {
			s.logger.Error("Failed to compute intervention total", zap.Error(err))
		}
	}

	event := &models.InterventionStatusEvent{
		BaseEvent:      newBaseEvent(models.EventTypeInterventionStatus),
		InterventionID: iv.ID,
		OldStatus:      oldStatus,
		NewStatus:      newStatus,
		TotalAmount:    totalAmount,
	}
	if err := s.publisher.PublishInterventionStatus(ctx, event); err != nil {
		s.logger.Error("Failed to publish status event", zap.Error(err))
	}

	rec, err := s.reclamations.GetReclamation(ctx, iv.ReclamationID)
	if err != nil {
		s.logger.Warn("Skipping status notifications, reclamation lookup failed",
			zap.Int64("intervention_id", iv.ID),
			zap.Error(err))
		return iv, nil
	}

	s.dispatcher.StatusChanged(ctx, iv, rec, newStatus, totalAmount, s.actorOwnsReclamation(ctx, actor, rec))

	return iv, nil
}

// AssignTechnician updates the technician reference and notifies both sides.
func (s *InterventionService) AssignTechnician(ctx context.Context, actor Actor, id, technicianID int64) (*models.Intervention, error) {
	ctx, span := util.StartSpan(ctx, "InterventionService.AssignTechnician")
	defer span.End()

	if technicianID <= 0 {
		return nil, apperr.Validation("invalid technician id")
	}

	iv, err := s.store.GetInterventionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	iv.TechnicianID = &technicianID
	if err := s.store.UpdateIntervention(ctx, iv); err != nil {
		return nil, apperr.Internal("failed to assign technician", err)
	}

	event := &models.TechnicianAssignedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeTechnicianAssigned),
		InterventionID: iv.ID,
		TechnicianID:   technicianID,
	}
	if err := s.publisher.PublishTechnicianAssigned(ctx, event); err != nil {
		s.logger.Error("Failed to publish technician assignment", zap.Error(err))
	}

	if rec, err := s.reclamations.GetReclamation(ctx, iv.ReclamationID); err == nil {
		s.dispatcher.TechnicianAssigned(ctx, iv, rec, technicianID)
	} else {
		s.logger.Warn("Skipping assignment notifications, reclamation lookup failed", zap.Error(err))
	}

	return iv, nil
}

// Delete soft-deletes an intervention. Consumed parts are not restored to
// remote stock; the gap is logged so staff can reconcile manually.
func (s *InterventionService) Delete(ctx context.Context, actor Actor, id int64) error {
	iv, err := s.store.GetInterventionByID(ctx, id)
	if err != nil {
		return err
	}

	parts, err := s.store.ListPartsUsed(ctx, id)
	if err == nil && len(parts) > 0 {
		s.logger.Warn("Deleting intervention with consumed parts; remote stock is not restored",
			zap.Int64("intervention_id", iv.ID),
			zap.Int("parts", len(parts)))
	}

	return s.store.SetInterventionDeleted(ctx, id, true)
}

// Restore flips the soft-delete flag back.
func (s *InterventionService) Restore(ctx context.Context, actor Actor, id int64) (*models.Intervention, error) {
	iv, err := s.store.GetInterventionIncludingDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if !iv.Deleted {
		return iv, nil
	}

	if err := s.store.SetInterventionDeleted(ctx, id, false); err != nil {
		return nil, apperr.Internal("failed to restore intervention", err)
	}
	iv.Deleted = false
	return iv, nil
}

// ListByReclamation retrieves interventions for a reclamation.
func (s *InterventionService) ListByReclamation(ctx context.Context, actor Actor, reclamationID int64) ([]models.Intervention, error) {
	rec, err := s.reclamations.GetReclamation(ctx, reclamationID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, rec); err != nil {
		return nil, err
	}
	return s.store.ListInterventionsByReclamation(ctx, reclamationID)
}

// ListByTechnician retrieves interventions assigned to a technician.
func (s *InterventionService) ListByTechnician(ctx context.Context, technicianID int64) ([]models.Intervention, error) {
	return s.store.ListInterventionsByTechnician(ctx, technicianID)
}

// computeTotal sums parts and labor for an intervention, honoring the
// warranty flag.
func (s *InterventionService) computeTotal(ctx context.Context, iv *models.Intervention) (int64, error) {
	if iv.IsFree {
		return 0, nil
	}

	parts, err := s.store.ListPartsUsed(ctx, iv.ID)
	if err != nil {
		return 0, err
	}
	var total int64
	for i := range parts {
		total += parts[i].TotalPrice()
	}

	labor, err := s.store.GetLabor(ctx, iv.ID)
	if err != nil {
		return 0, err
	}
	if labor != nil {
		total += labor.Total()
	}

	return total, nil
}

// actorOwnsReclamation reports whether the acting user is the client who
// filed the reclamation.
func (s *InterventionService) actorOwnsReclamation(ctx context.Context, actor Actor, rec *gateway.Reclamation) bool {
	if actor.UserID == 0 {
		return false
	}
	client, err := s.directory.GetClientByUserID(ctx, actor.UserID)
	if err != nil {
		s.logger.Warn("Actor identity lookup failed", zap.Error(err))
		return false
	}
	return client != nil && client.ID == rec.ClientID
}

// authorize rejects clients reading interventions on reclamations they do
// not own. Users without a client profile are staff.
func (s *InterventionService) authorize(ctx context.Context, actor Actor, rec *gateway.Reclamation) error {
	if actor.UserID == 0 {
		return nil
	}
	client, err := s.directory.GetClientByUserID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if client == nil {
		return nil
	}
	if client.ID != rec.ClientID {
		return apperr.Forbidden("intervention belongs to another client")
	}
	return nil
}
