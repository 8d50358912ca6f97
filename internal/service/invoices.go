package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sav-service/internal/apperr"
	"sav-service/internal/gateway"
	"sav-service/internal/models"
	"sav-service/internal/store"
	"sav-service/internal/util"

	"go.uber.org/zap"
)

// invoiceNumberAttempts bounds the retries when a concurrent generation took
// the allocated number.
const invoiceNumberAttempts = 3

// InvoiceService computes billable totals, allocates sequential invoice
// numbers and persists invoices exactly once per origin. PDF rendering is
// best-effort: an invoice without a PDF stays valid and retrievable.
type InvoiceService struct {
	interventions InterventionStore
	invoices      InvoiceStore
	reclamations  ReclamationAPI
	pdf           PDFAPI
	publisher     Publisher
	dispatcher    *Dispatcher
	locker        Locker
	lockTTL       time.Duration
	pdfDir        string
	logger        *zap.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	interventions InterventionStore,
	invoices InvoiceStore,
	reclamations ReclamationAPI,
	pdf PDFAPI,
	publisher Publisher,
	dispatcher *Dispatcher,
	locker Locker,
	lockTTL time.Duration,
	pdfDir string,
) *InvoiceService {
	return &InvoiceService{
		interventions: interventions,
		invoices:      invoices,
		reclamations:  reclamations,
		pdf:           pdf,
		publisher:     publisher,
		dispatcher:    dispatcher,
		locker:        locker,
		lockTTL:       lockTTL,
		pdfDir:        pdfDir,
		logger:        util.GetLogger(),
	}
}

// invoiceNumber formats INV-YYYYMM-NNNN from the month's invoice count.
func invoiceNumber(at time.Time, countThisMonth int) string {
	return fmt.Sprintf("INV-%d%02d-%04d", at.Year(), int(at.Month()), countThisMonth+1)
}

// GenerateInvoice creates the single invoice for a completed intervention.
func (is *InvoiceService) GenerateInvoice(ctx context.Context, actor Actor, interventionID int64) (*models.Invoice, error) {
	ctx, span := util.StartSpan(ctx, "InvoiceService.GenerateInvoice")
	defer span.End()

	release, err := lockIntervention(ctx, is.locker, interventionID, is.lockTTL, is.logger)
	if err != nil {
		return nil, err
	}
	defer release()

	iv, err := is.interventions.GetInterventionByID(ctx, interventionID)
	if err != nil {
		return nil, err
	}

	if iv.Status != models.InterventionStatusCompleted {
		return nil, apperr.Validation("intervention is not completed")
	}

	existing, err := is.invoices.GetInvoiceByInterventionID(ctx, interventionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Validation("Invoice already exists")
	}

	parts, err := is.interventions.ListPartsUsed(ctx, interventionID)
	if err != nil {
		return nil, err
	}
	labor, err := is.interventions.GetLabor(ctx, interventionID)
	if err != nil {
		return nil, err
	}

	var partsTotal, laborTotal int64
	for i := range parts {
		partsTotal += parts[i].TotalPrice()
	}
	if labor != nil {
		laborTotal = labor.Total()
	}

	totalAmount := partsTotal + laborTotal
	if iv.IsFree {
		totalAmount = 0
	}

	inv := &models.Invoice{
		InterventionID: &interventionID,
		PartsTotal:     partsTotal,
		LaborTotal:     laborTotal,
		TotalAmount:    totalAmount,
		IsFree:         iv.IsFree,
	}

	if err := is.createNumbered(ctx, inv); err != nil {
		return nil, err
	}

	util.InvoicesGeneratedTotal.WithLabelValues("intervention").Inc()
	is.logger.Info("Invoice generated",
		zap.Int64("invoice_id", inv.ID),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Int64("total_amount", inv.TotalAmount))

	rec, recErr := is.reclamations.GetReclamation(ctx, iv.ReclamationID)
	clientName := ""
	if recErr == nil {
		clientName = rec.ClientName
	} else {
		is.logger.Warn("Reclamation lookup failed for invoice rendering", zap.Error(recErr))
	}

	is.renderPDF(ctx, inv, clientName, invoiceLines(parts, labor))

	event := &models.InvoiceGeneratedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeInvoiceGenerated),
		InvoiceID:      inv.ID,
		InterventionID: inv.InterventionID,
		InvoiceNumber:  inv.InvoiceNumber,
		TotalAmount:    inv.TotalAmount,
	}
	if err := is.publisher.PublishInvoiceGenerated(ctx, event); err != nil {
		is.logger.Error("Failed to publish InvoiceGenerated event", zap.Error(err))
	}

	if recErr == nil {
		is.dispatcher.InvoiceGenerated(ctx, inv, rec)
	}

	return inv, nil
}

// OrderInvoiceLine is one billable line of a retail-order invoice.
type OrderInvoiceLine struct {
	Description string `json:"description" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
	UnitPrice   int64  `json:"unit_price" binding:"required,min=0"`
}

// OrderInvoiceRequest carries the retail-order data the core does not own.
type OrderInvoiceRequest struct {
	ClientName  string             `json:"client_name" binding:"required"`
	ClientEmail string             `json:"client_email"`
	Lines       []OrderInvoiceLine `json:"lines" binding:"required,min=1"`
}

// GenerateInvoiceFromOrder creates the single invoice for a retail order,
// under the same numbering and uniqueness discipline as interventions.
func (is *InvoiceService) GenerateInvoiceFromOrder(ctx context.Context, actor Actor, orderID int64, req *OrderInvoiceRequest) (*models.Invoice, error) {
	ctx, span := util.StartSpan(ctx, "InvoiceService.GenerateInvoiceFromOrder")
	defer span.End()

	existing, err := is.invoices.GetInvoiceByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Validation("Invoice already exists")
	}

	var partsTotal int64
	lines := make([]gateway.InvoiceLineData, 0, len(req.Lines))
	for _, line := range req.Lines {
		lineTotal := line.UnitPrice * int64(line.Quantity)
		partsTotal += lineTotal
		lines = append(lines, gateway.InvoiceLineData{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Total:       lineTotal,
		})
	}

	inv := &models.Invoice{
		OrderID:     &orderID,
		PartsTotal:  partsTotal,
		TotalAmount: partsTotal,
	}

	if err := is.createNumbered(ctx, inv); err != nil {
		return nil, err
	}

	util.InvoicesGeneratedTotal.WithLabelValues("order").Inc()
	is.logger.Info("Order invoice generated",
		zap.Int64("invoice_id", inv.ID),
		zap.Int64("order_id", orderID),
		zap.String("invoice_number", inv.InvoiceNumber))

	is.renderPDF(ctx, inv, req.ClientName, lines)

	event := &models.InvoiceGeneratedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeInvoiceGenerated),
		InvoiceID:     inv.ID,
		OrderID:       inv.OrderID,
		InvoiceNumber: inv.InvoiceNumber,
		TotalAmount:   inv.TotalAmount,
	}
	if err := is.publisher.PublishInvoiceGenerated(ctx, event); err != nil {
		is.logger.Error("Failed to publish InvoiceGenerated event", zap.Error(err))
	}

	if req.ClientEmail != "" {
		is.dispatcher.InvoiceGenerated(ctx, inv, &gateway.Reclamation{
			ClientName:  req.ClientName,
			ClientEmail: req.ClientEmail,
		})
	}

	return inv, nil
}

// GetInvoice retrieves an invoice by id.
func (is *InvoiceService) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	return is.invoices.GetInvoiceByID(ctx, id)
}

// GetInvoicePDF returns the rendered PDF bytes for an invoice.
func (is *InvoiceService) GetInvoicePDF(ctx context.Context, id int64) ([]byte, error) {
	inv, err := is.invoices.GetInvoiceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.PDFPath == "" {
		return nil, apperr.NotFound("no pdf rendered for invoice %s", inv.InvoiceNumber)
	}
	pdf, err := os.ReadFile(inv.PDFPath)
	if err != nil {
		return nil, apperr.NotFound("pdf for invoice %s is not available", inv.InvoiceNumber)
	}
	return pdf, nil
}

// createNumbered allocates the next monthly number and persists the invoice,
// retrying when a concurrent generation took the number first. The storage
// unique indexes stay the authoritative guard.
func (is *InvoiceService) createNumbered(ctx context.Context, inv *models.Invoice) error {
	now := time.Now()
	for attempt := 0; attempt < invoiceNumberAttempts; attempt++ {
		count, err := is.invoices.CountInvoicesInMonth(ctx, now.Year(), int(now.Month()))
		if err != nil {
			return apperr.Internal("failed to count invoices", err)
		}

		inv.InvoiceNumber = invoiceNumber(now, count)

		err = is.invoices.CreateInvoice(ctx, inv)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrInvoiceNumberConflict) {
			continue
		}
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperr.Internal("failed to create invoice", err)
	}
	return apperr.Conflict("could not allocate an invoice number, try again")
}

// invoiceLines flattens parts and labor into renderable invoice lines.
func invoiceLines(parts []models.PartUsed, labor *models.Labor) []gateway.InvoiceLineData {
	lines := make([]gateway.InvoiceLineData, 0, len(parts)+1)
	for i := range parts {
		p := &parts[i]
		lines = append(lines, gateway.InvoiceLineData{
			Description: fmt.Sprintf("%s (%s)", p.Name, p.Reference),
			Quantity:    p.Quantity,
			UnitPrice:   p.UnitPrice,
			Total:       p.TotalPrice(),
		})
	}
	if labor != nil {
		lines = append(lines, gateway.InvoiceLineData{
			Description: fmt.Sprintf("Main d'œuvre: %s", labor.Description),
			Quantity:    1,
			UnitPrice:   labor.Total(),
			Total:       labor.Total(),
		})
	}
	return lines
}

// renderPDF asks the collaborator for the PDF and stores it next to the
// invoice. Failures are logged; the invoice stays valid without a PDF.
func (is *InvoiceService) renderPDF(ctx context.Context, inv *models.Invoice, clientName string, lines []gateway.InvoiceLineData) {
	pdf, err := is.pdf.Render(ctx, gateway.InvoiceRenderData{
		InvoiceNumber: inv.InvoiceNumber,
		ClientName:    clientName,
		IssuedAt:      inv.CreatedAt,
		Lines:         lines,
		PartsTotal:    inv.PartsTotal,
		LaborTotal:    inv.LaborTotal,
		TotalAmount:   inv.TotalAmount,
		IsFree:        inv.IsFree,
	})
	if err != nil {
		is.logger.Error("PDF rendering failed, invoice kept without pdf",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err))
		return
	}

	if err := os.MkdirAll(is.pdfDir, 0o755); err != nil {
		is.logger.Error("Failed to create pdf directory", zap.Error(err))
		return
	}

	path := filepath.Join(is.pdfDir, inv.InvoiceNumber+".pdf")
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		is.logger.Error("Failed to store rendered pdf",
			zap.String("path", path),
			zap.Error(err))
		return
	}

	if err := is.invoices.UpdateInvoicePDFPath(ctx, inv.ID, path); err != nil {
		is.logger.Error("Failed to record pdf path", zap.Error(err))
		return
	}
	inv.PDFPath = path
}
