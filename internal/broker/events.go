package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"sav-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher publishes intervention lifecycle events and outbound
// notification commands on their respective topics.
type EventPublisher struct {
	lifecycle     *Producer
	notifications *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(lifecycle, notifications *Producer) *EventPublisher {
	return &EventPublisher{lifecycle: lifecycle, notifications: notifications}
}

func interventionKey(id int64) string {
	return fmt.Sprintf("intervention-%d", id)
}

// PublishInterventionCreated publishes an InterventionCreated event
func (ep *EventPublisher) PublishInterventionCreated(ctx context.Context, event *models.InterventionCreatedEvent) error {
	return ep.lifecycle.PublishEvent(ctx, interventionKey(event.InterventionID), event)
}

// PublishInterventionStatus publishes a status transition event
func (ep *EventPublisher) PublishInterventionStatus(ctx context.Context, event *models.InterventionStatusEvent) error {
	return ep.lifecycle.PublishEvent(ctx, interventionKey(event.InterventionID), event)
}

// PublishTechnicianAssigned publishes a technician assignment event
func (ep *EventPublisher) PublishTechnicianAssigned(ctx context.Context, event *models.TechnicianAssignedEvent) error {
	return ep.lifecycle.PublishEvent(ctx, interventionKey(event.InterventionID), event)
}

// PublishPartAdded publishes a PartAdded event
func (ep *EventPublisher) PublishPartAdded(ctx context.Context, event *models.PartAddedEvent) error {
	return ep.lifecycle.PublishEvent(ctx, interventionKey(event.InterventionID), event)
}

// PublishPartRemoved publishes a PartRemoved event
func (ep *EventPublisher) PublishPartRemoved(ctx context.Context, event *models.PartRemovedEvent) error {
	return ep.lifecycle.PublishEvent(ctx, interventionKey(event.InterventionID), event)
}

// PublishInvoiceGenerated publishes an InvoiceGenerated event
func (ep *EventPublisher) PublishInvoiceGenerated(ctx context.Context, event *models.InvoiceGeneratedEvent) error {
	key := fmt.Sprintf("invoice-%d", event.InvoiceID)
	return ep.lifecycle.PublishEvent(ctx, key, event)
}

// EnqueueNotification hands an in-app notification command to the worker topic
func (ep *EventPublisher) EnqueueNotification(ctx context.Context, cmd *models.NotificationCommand) error {
	key := fmt.Sprintf("user-%d", cmd.UserID)
	return ep.notifications.PublishEvent(ctx, key, cmd)
}

// EnqueueEmail hands an email command to the worker topic
func (ep *EventPublisher) EnqueueEmail(ctx context.Context, cmd *models.EmailCommand) error {
	return ep.notifications.PublishEvent(ctx, cmd.To, cmd)
}

// EventHandler routes consumed messages to registered handlers
type EventHandler struct {
	onNotification func(context.Context, *models.NotificationCommand) error
	onEmail        func(context.Context, *models.EmailCommand) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnNotification registers a handler for notification commands
func (eh *EventHandler) OnNotification(handler func(context.Context, *models.NotificationCommand) error) {
	eh.onNotification = handler
}

// OnEmail registers a handler for email commands
func (eh *EventHandler) OnEmail(handler func(context.Context, *models.EmailCommand) error) {
	eh.onEmail = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeNotificationRequested:
		if eh.onNotification != nil {
			var cmd models.NotificationCommand
			if err := json.Unmarshal(msg.Value, &cmd); err != nil {
				return fmt.Errorf("failed to unmarshal notification command: %w", err)
			}
			return eh.onNotification(ctx, &cmd)
		}

	case models.EventTypeEmailRequested:
		if eh.onEmail != nil {
			var cmd models.EmailCommand
			if err := json.Unmarshal(msg.Value, &cmd); err != nil {
				return fmt.Errorf("failed to unmarshal email command: %w", err)
			}
			return eh.onEmail(ctx, &cmd)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
