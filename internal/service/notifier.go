package service

import (
	"context"
	"fmt"
	"time"

	"sav-service/internal/gateway"
	"sav-service/internal/models"
	"sav-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const relatedEntityIntervention = "intervention"

// Dispatcher decides, per lifecycle event, who gets an in-app notification
// and/or an email, and enqueues the delivery commands. Delivery is handled by
// the notification worker; nothing here ever fails the primary operation.
type Dispatcher struct {
	publisher Publisher
	directory DirectoryAPI
	admins    []int64
	logger    *zap.Logger
}

// NewDispatcher creates a new notification dispatcher. adminUserIDs is the
// configured recipient set for staff-facing notifications.
func NewDispatcher(publisher Publisher, directory DirectoryAPI, adminUserIDs []int64) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		directory: directory,
		admins:    adminUserIDs,
		logger:    util.GetLogger(),
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func (d *Dispatcher) notify(ctx context.Context, userID int64, title, message, kind string, interventionID int64) {
	cmd := &models.NotificationCommand{
		BaseEvent:         newBaseEvent(models.EventTypeNotificationRequested),
		UserID:            userID,
		Title:             title,
		Message:           message,
		Kind:              kind,
		RelatedEntityID:   &interventionID,
		RelatedEntityType: relatedEntityIntervention,
	}
	if err := d.publisher.EnqueueNotification(ctx, cmd); err != nil {
		d.logger.Error("Failed to enqueue notification",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}
	util.NotificationsEnqueuedTotal.Inc()
}

func (d *Dispatcher) email(ctx context.Context, cmd *models.EmailCommand) {
	cmd.BaseEvent = newBaseEvent(models.EventTypeEmailRequested)
	if err := d.publisher.EnqueueEmail(ctx, cmd); err != nil {
		d.logger.Error("Failed to enqueue email",
			zap.String("to", cmd.To),
			zap.String("template", cmd.Template),
			zap.Error(err))
	}
}

// clientUserID resolves the user account behind a client directory id, 0 when
// the client has no linked account.
func (d *Dispatcher) clientUserID(ctx context.Context, clientID int64) int64 {
	client, err := d.directory.GetClientByID(ctx, clientID)
	if err != nil || client == nil {
		if err != nil {
			d.logger.Warn("Failed to resolve client for notification",
				zap.Int64("client_id", clientID),
				zap.Error(err))
		}
		return 0
	}
	return client.UserID
}

// InterventionScheduled notifies the client (in-app + email) and the assigned
// technician, if any.
func (d *Dispatcher) InterventionScheduled(ctx context.Context, iv *models.Intervention, rec *gateway.Reclamation) {
	when := iv.PlannedDate.Format("02/01/2006 15:04")

	if userID := d.clientUserID(ctx, rec.ClientID); userID != 0 {
		d.notify(ctx, userID, "Intervention planifiée",
			fmt.Sprintf("Une intervention pour votre réclamation «%s» est planifiée le %s.", rec.Title, when),
			"info", iv.ID)
	}
	if iv.TechnicianID != nil {
		d.notify(ctx, *iv.TechnicianID, "Nouvelle intervention",
			fmt.Sprintf("Une intervention vous a été assignée pour le %s.", when),
			"info", iv.ID)
	}

	d.email(ctx, &models.EmailCommand{
		Template:    models.EmailTemplateScheduled,
		To:          rec.ClientEmail,
		ClientName:  rec.ClientName,
		PlannedDate: iv.PlannedDate,
	})
}

// StatusChanged notifies the client of a transition. The client notification
// is skipped when the client performed the transition themself.
func (d *Dispatcher) StatusChanged(ctx context.Context, iv *models.Intervention, rec *gateway.Reclamation, newStatus string, totalAmount int64, actorIsOwner bool) {
	if !actorIsOwner {
		if userID := d.clientUserID(ctx, rec.ClientID); userID != 0 {
			switch newStatus {
			case models.InterventionStatusInProgress:
				d.notify(ctx, userID, "Intervention démarrée",
					"Notre technicien a commencé l'intervention sur votre réclamation.",
					"info", iv.ID)
			case models.InterventionStatusCompleted:
				d.notify(ctx, userID, "Intervention terminée",
					fmt.Sprintf("Votre intervention est terminée. Montant: %d.%02d €.", totalAmount/100, totalAmount%100),
					"success", iv.ID)
			case models.InterventionStatusCancelled:
				d.notify(ctx, userID, "Intervention annulée",
					"Votre intervention a été annulée.",
					"warning", iv.ID)
			}
		}
	}

	if newStatus == models.InterventionStatusCompleted {
		d.email(ctx, &models.EmailCommand{
			Template:   models.EmailTemplateCompleted,
			To:         rec.ClientEmail,
			ClientName: rec.ClientName,
			Amount:     totalAmount,
		})
	}
}

// TechnicianAssigned notifies both the technician and the client.
func (d *Dispatcher) TechnicianAssigned(ctx context.Context, iv *models.Intervention, rec *gateway.Reclamation, technicianID int64) {
	d.notify(ctx, technicianID, "Intervention assignée",
		fmt.Sprintf("Une intervention vous a été assignée pour le %s.", iv.PlannedDate.Format("02/01/2006 15:04")),
		"info", iv.ID)

	if userID := d.clientUserID(ctx, rec.ClientID); userID != 0 {
		d.notify(ctx, userID, "Technicien assigné",
			"Un technicien a été assigné à votre intervention.",
			"info", iv.ID)
	}
}

// InvoiceGenerated emails the client that their invoice is ready.
func (d *Dispatcher) InvoiceGenerated(ctx context.Context, inv *models.Invoice, rec *gateway.Reclamation) {
	d.email(ctx, &models.EmailCommand{
		Template:      models.EmailTemplateInvoiceReady,
		To:            rec.ClientEmail,
		ClientName:    rec.ClientName,
		Amount:        inv.TotalAmount,
		InvoiceNumber: inv.InvoiceNumber,
	})
}

// ReclamationEscalated notifies the configured admin recipients. Recipients
// come from config rather than a fixed identifier.
func (d *Dispatcher) ReclamationEscalated(ctx context.Context, interventionID int64, message string) {
	for _, adminID := range d.admins {
		d.notify(ctx, adminID, "Escalade SAV", message, "warning", interventionID)
	}
}
