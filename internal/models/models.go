package models

import (
	"math"
	"time"
)

// Intervention statuses
const (
	InterventionStatusPlanned    = "PLANNED"
	InterventionStatusInProgress = "IN_PROGRESS"
	InterventionStatusCompleted  = "COMPLETED"
	InterventionStatusCancelled  = "CANCELLED"
)

// ValidStatus reports whether s is a known intervention status.
func ValidStatus(s string) bool {
	switch s {
	case InterventionStatusPlanned, InterventionStatusInProgress,
		InterventionStatusCompleted, InterventionStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a status change is allowed.
// Completed and Cancelled are terminal.
func CanTransition(from, to string) bool {
	switch from {
	case InterventionStatusPlanned:
		return to == InterventionStatusInProgress ||
			to == InterventionStatusCompleted ||
			to == InterventionStatusCancelled
	case InterventionStatusInProgress:
		return to == InterventionStatusCompleted ||
			to == InterventionStatusCancelled
	}
	return false
}

// Intervention is a scheduled technician work order addressing a reclamation.
type Intervention struct {
	ID            int64      `db:"id" json:"id"`
	ReclamationID int64      `db:"reclamation_id" json:"reclamation_id"`
	TechnicianID  *int64     `db:"technician_id" json:"technician_id,omitempty"`
	Status        string     `db:"status" json:"status"`
	PlannedDate   time.Time  `db:"planned_date" json:"planned_date"`
	StartedAt     *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	IsFree        bool       `db:"is_free" json:"is_free"`
	Notes         string     `db:"notes" json:"notes"`
	Deleted       bool       `db:"deleted" json:"deleted"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// PartUsed is a spare part consumed by an intervention. Name, reference and
// unit price are snapshotted at add-time; later catalog changes never affect
// historical interventions. All amounts are in cents.
type PartUsed struct {
	ID             int64     `db:"id" json:"id"`
	InterventionID int64     `db:"intervention_id" json:"intervention_id"`
	PartID         int64     `db:"part_id" json:"part_id"`
	Name           string    `db:"name" json:"name"`
	Reference      string    `db:"reference" json:"reference"`
	UnitPrice      int64     `db:"unit_price" json:"unit_price"`
	Quantity       int       `db:"quantity" json:"quantity"`
	CorrelationID  string    `db:"correlation_id" json:"correlation_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// TotalPrice returns quantity × snapshotted unit price, in cents.
func (p *PartUsed) TotalPrice() int64 {
	return p.UnitPrice * int64(p.Quantity)
}

// Labor is the single billable time entry for an intervention.
type Labor struct {
	ID             int64     `db:"id" json:"id"`
	InterventionID int64     `db:"intervention_id" json:"intervention_id"`
	Hours          float64   `db:"hours" json:"hours"`
	HourlyRate     int64     `db:"hourly_rate" json:"hourly_rate"`
	Description    string    `db:"description" json:"description"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Total returns hours × hourly rate, rounded to the nearest cent.
func (l *Labor) Total() int64 {
	return int64(math.Round(l.Hours * float64(l.HourlyRate)))
}

// Invoice covers exactly one intervention or one retail order.
type Invoice struct {
	ID             int64     `db:"id" json:"id"`
	InterventionID *int64    `db:"intervention_id" json:"intervention_id,omitempty"`
	OrderID        *int64    `db:"order_id" json:"order_id,omitempty"`
	InvoiceNumber  string    `db:"invoice_number" json:"invoice_number"`
	PartsTotal     int64     `db:"parts_total" json:"parts_total"`
	LaborTotal     int64     `db:"labor_total" json:"labor_total"`
	TotalAmount    int64     `db:"total_amount" json:"total_amount"`
	IsFree         bool      `db:"is_free" json:"is_free"`
	PDFPath        string    `db:"pdf_path" json:"pdf_path,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Compensation intent kinds
const (
	CompensationKindRestoreStock = "RESTORE_STOCK"
	CompensationKindDeductStock  = "DEDUCT_STOCK"
)

// Compensation intent statuses
const (
	CompensationStatusPending   = "PENDING"
	CompensationStatusResolved  = "RESOLVED"
	CompensationStatusAbandoned = "ABANDONED"
)

// CompensationIntent is a durable record of a remote inventory correction
// still owed after a partial saga failure. A background retrier works off
// pending intents until they resolve or exhaust their attempts.
type CompensationIntent struct {
	ID             int64      `db:"id" json:"id"`
	Kind           string     `db:"kind" json:"kind"`
	InterventionID int64      `db:"intervention_id" json:"intervention_id"`
	PartID         int64      `db:"part_id" json:"part_id"`
	Quantity       int        `db:"quantity" json:"quantity"`
	CorrelationID  string     `db:"correlation_id" json:"correlation_id"`
	Status         string     `db:"status" json:"status"`
	Attempts       int        `db:"attempts" json:"attempts"`
	LastError      string     `db:"last_error" json:"last_error,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt     *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
