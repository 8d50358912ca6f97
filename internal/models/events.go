package models

import "time"

// Event types
const (
	EventTypeInterventionCreated   = "INTERVENTION_CREATED"
	EventTypeInterventionStatus    = "INTERVENTION_STATUS_CHANGED"
	EventTypeTechnicianAssigned    = "TECHNICIAN_ASSIGNED"
	EventTypePartAdded             = "PART_ADDED"
	EventTypePartRemoved           = "PART_REMOVED"
	EventTypeInvoiceGenerated      = "INVOICE_GENERATED"
	EventTypeNotificationRequested = "NOTIFICATION_REQUESTED"
	EventTypeEmailRequested        = "EMAIL_REQUESTED"
)

// Email template kinds
const (
	EmailTemplateScheduled    = "scheduled"
	EmailTemplateStarted      = "started"
	EmailTemplateCompleted    = "completed"
	EmailTemplateInvoiceReady = "invoice-ready"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// InterventionCreatedEvent published when an intervention is scheduled
type InterventionCreatedEvent struct {
	BaseEvent
	InterventionID int64     `json:"intervention_id"`
	ReclamationID  int64     `json:"reclamation_id"`
	TechnicianID   *int64    `json:"technician_id,omitempty"`
	PlannedDate    time.Time `json:"planned_date"`
	IsFree         bool      `json:"is_free"`
}

// InterventionStatusEvent published on every status transition
type InterventionStatusEvent struct {
	BaseEvent
	InterventionID int64  `json:"intervention_id"`
	OldStatus      string `json:"old_status"`
	NewStatus      string `json:"new_status"`
	TotalAmount    int64  `json:"total_amount"`
}

// TechnicianAssignedEvent published when a technician is (re)assigned
type TechnicianAssignedEvent struct {
	BaseEvent
	InterventionID int64 `json:"intervention_id"`
	TechnicianID   int64 `json:"technician_id"`
}

// PartAddedEvent published after a part snapshot is persisted
type PartAddedEvent struct {
	BaseEvent
	InterventionID int64  `json:"intervention_id"`
	PartID         int64  `json:"part_id"`
	Quantity       int    `json:"quantity"`
	CorrelationID  string `json:"correlation_id"`
}

// PartRemovedEvent published after a part snapshot is removed
type PartRemovedEvent struct {
	BaseEvent
	InterventionID int64  `json:"intervention_id"`
	PartID         int64  `json:"part_id"`
	Quantity       int    `json:"quantity"`
	CorrelationID  string `json:"correlation_id"`
}

// InvoiceGeneratedEvent published once an invoice row exists
type InvoiceGeneratedEvent struct {
	BaseEvent
	InvoiceID      int64  `json:"invoice_id"`
	InterventionID *int64 `json:"intervention_id,omitempty"`
	OrderID        *int64 `json:"order_id,omitempty"`
	InvoiceNumber  string `json:"invoice_number"`
	TotalAmount    int64  `json:"total_amount"`
}

// NotificationCommand asks the notification worker to create an in-app
// notification through the notification collaborator. Delivery is
// best-effort and never reported back to the operation that enqueued it.
type NotificationCommand struct {
	BaseEvent
	UserID            int64  `json:"user_id"`
	Title             string `json:"title"`
	Message           string `json:"message"`
	Kind              string `json:"kind"`
	RelatedEntityID   *int64 `json:"related_entity_id,omitempty"`
	RelatedEntityType string `json:"related_entity_type,omitempty"`
}

// EmailCommand asks the notification worker to send a templated email.
type EmailCommand struct {
	BaseEvent
	Template      string    `json:"template"`
	To            string    `json:"to"`
	ClientName    string    `json:"client_name"`
	PlannedDate   time.Time `json:"planned_date,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
}
