package service

import (
	"context"
	"time"

	"sav-service/internal/gateway"
	"sav-service/internal/models"
)

// Actor identifies who is performing an operation. Upstream auth resolves the
// user; the service only needs the id for owner checks, the token is carried
// on the context for collaborator calls.
type Actor struct {
	UserID int64
}

// InterventionStore is the persistence surface the intervention-side services
// need. *store.Store satisfies it.
type InterventionStore interface {
	CreateIntervention(ctx context.Context, iv *models.Intervention) error
	GetInterventionByID(ctx context.Context, id int64) (*models.Intervention, error)
	GetInterventionIncludingDeleted(ctx context.Context, id int64) (*models.Intervention, error)
	UpdateIntervention(ctx context.Context, iv *models.Intervention) error
	SetInterventionDeleted(ctx context.Context, id int64, deleted bool) error
	ListInterventionsByReclamation(ctx context.Context, reclamationID int64) ([]models.Intervention, error)
	ListInterventionsByTechnician(ctx context.Context, technicianID int64) ([]models.Intervention, error)

	CreatePartUsed(ctx context.Context, part *models.PartUsed) error
	GetPartUsed(ctx context.Context, interventionID, partUsedID int64) (*models.PartUsed, error)
	ListPartsUsed(ctx context.Context, interventionID int64) ([]models.PartUsed, error)
	DeletePartUsed(ctx context.Context, partUsedID int64) error

	GetLabor(ctx context.Context, interventionID int64) (*models.Labor, error)
	UpsertLabor(ctx context.Context, labor *models.Labor) error
	DeleteLabor(ctx context.Context, interventionID int64) error
}

// InvoiceStore is the persistence surface of the invoice generator.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoiceByID(ctx context.Context, id int64) (*models.Invoice, error)
	GetInvoiceByInterventionID(ctx context.Context, interventionID int64) (*models.Invoice, error)
	GetInvoiceByOrderID(ctx context.Context, orderID int64) (*models.Invoice, error)
	CountInvoicesInMonth(ctx context.Context, year int, month int) (int, error)
	UpdateInvoicePDFPath(ctx context.Context, invoiceID int64, path string) error
}

// CompensationStore records compensations owed to the remote inventory.
type CompensationStore interface {
	CreateCompensationIntent(ctx context.Context, intent *models.CompensationIntent) error
	ResolveCompensationIntent(ctx context.Context, intentID int64) error
	RecordCompensationAttempt(ctx context.Context, intentID int64, lastError string) error
	ListPendingCompensations(ctx context.Context, limit int) ([]models.CompensationIntent, error)
}

// InventoryAPI is the slice of the inventory collaborator the ledger uses.
type InventoryAPI interface {
	GetPart(ctx context.Context, partID int64) (*gateway.Part, error)
	DeductStock(ctx context.Context, partID int64, quantity int, correlationID string) error
	RestoreStock(ctx context.Context, partID int64, quantity int, correlationID string) error
}

// ReclamationAPI resolves the complaint an intervention addresses.
type ReclamationAPI interface {
	GetReclamation(ctx context.Context, id int64) (*gateway.Reclamation, error)
}

// DirectoryAPI resolves client identities for owner checks and notification
// targeting.
type DirectoryAPI interface {
	GetClientByID(ctx context.Context, id int64) (*gateway.ClientRecord, error)
	GetClientByUserID(ctx context.Context, userID int64) (*gateway.ClientRecord, error)
}

// PDFAPI is the invoice renderer collaborator.
type PDFAPI interface {
	Render(ctx context.Context, data gateway.InvoiceRenderData) ([]byte, error)
}

// Publisher is the event surface the services emit on.
type Publisher interface {
	PublishInterventionCreated(ctx context.Context, event *models.InterventionCreatedEvent) error
	PublishInterventionStatus(ctx context.Context, event *models.InterventionStatusEvent) error
	PublishTechnicianAssigned(ctx context.Context, event *models.TechnicianAssignedEvent) error
	PublishPartAdded(ctx context.Context, event *models.PartAddedEvent) error
	PublishPartRemoved(ctx context.Context, event *models.PartRemovedEvent) error
	PublishInvoiceGenerated(ctx context.Context, event *models.InvoiceGeneratedEvent) error
	EnqueueNotification(ctx context.Context, cmd *models.NotificationCommand) error
	EnqueueEmail(ctx context.Context, cmd *models.EmailCommand) error
}

// Locker serializes mutating operations per intervention.
type Locker interface {
	AcquireInterventionLock(ctx context.Context, interventionID int64, ttl time.Duration) (string, error)
	ReleaseInterventionLock(ctx context.Context, interventionID int64, token string) error
}
