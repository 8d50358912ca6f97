package store

import (
	"context"
	"database/sql"
	"errors"

	"sav-service/internal/apperr"
	"sav-service/internal/models"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// ErrInvoiceNumberConflict signals that a concurrently-created invoice took
// the allocated number; the caller recomputes the month count and retries.
var ErrInvoiceNumberConflict = errors.New("invoice number already taken")

// CreateInvoice persists an invoice row. The unique indexes on
// intervention_id, order_id and invoice_number are the authoritative
// once-only guard; a violation surfaces as the same validation failure the
// service-level pre-check produces.
func (s *Store) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	query := `
		INSERT INTO invoices (intervention_id, order_id, invoice_number, parts_total, labor_total, total_amount, is_free, pdf_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := s.db.GetContext(ctx, inv, query,
		inv.InterventionID, inv.OrderID, inv.InvoiceNumber,
		inv.PartsTotal, inv.LaborTotal, inv.TotalAmount, inv.IsFree, inv.PDFPath)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		if pqErr.Constraint == "invoices_invoice_number_key" {
			return ErrInvoiceNumberConflict
		}
		return apperr.Validation("Invoice already exists")
	}
	return err
}

// GetInvoiceByID retrieves an invoice
func (s *Store) GetInvoiceByID(ctx context.Context, id int64) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.GetContext(ctx, &inv, "SELECT * FROM invoices WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("invoice not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInvoiceByInterventionID retrieves the invoice for an intervention, nil when absent
func (s *Store) GetInvoiceByInterventionID(ctx context.Context, interventionID int64) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.GetContext(ctx, &inv,
		"SELECT * FROM invoices WHERE intervention_id = $1", interventionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInvoiceByOrderID retrieves the invoice for a retail order, nil when absent
func (s *Store) GetInvoiceByOrderID(ctx context.Context, orderID int64) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.GetContext(ctx, &inv, "SELECT * FROM invoices WHERE order_id = $1", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CountInvoicesInMonth counts invoices created in the given calendar month
func (s *Store) CountInvoicesInMonth(ctx context.Context, year int, month int) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM invoices
		WHERE EXTRACT(YEAR FROM created_at) = $1 AND EXTRACT(MONTH FROM created_at) = $2`,
		year, month)
	return count, err
}

// UpdateInvoicePDFPath stores the rendered PDF location
func (s *Store) UpdateInvoicePDFPath(ctx context.Context, invoiceID int64, path string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE invoices SET pdf_path = $1 WHERE id = $2", path, invoiceID)
	return err
}
