package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"sav-service/internal/apperr"
	"sav-service/internal/models"
	"sav-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoiceFixture struct {
	svc      *InvoiceService
	store    *fakeStore
	invoices *fakeInvoices
	pdf      *fakePDF
	pub      *fakePublisher
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	st := newFakeStore()
	invs := newFakeInvoices()
	pdf := &fakePDF{data: []byte("%PDF-1.4 rendered")}
	pub := &fakePublisher{}
	recs := newFakeReclamations(defaultReclamation())
	dir := newFakeDirectory()
	dispatcher := NewDispatcher(pub, dir, nil)
	svc := NewInvoiceService(st, invs, recs, pdf, pub, dispatcher, &fakeLocker{}, time.Second, t.TempDir())
	return &invoiceFixture{svc: svc, store: st, invoices: invs, pdf: pdf, pub: pub}
}

func (f *invoiceFixture) seedCompleted(t *testing.T) *models.Intervention {
	t.Helper()
	iv := f.store.seedIntervention(&models.Intervention{ID: 1, ReclamationID: 10, Status: models.InterventionStatusCompleted})
	f.store.parts[100] = &models.PartUsed{ID: 100, InterventionID: 1, Name: "Compressor", Reference: "CMP-7", UnitPrice: 45, Quantity: 3}
	f.store.labors[1] = &models.Labor{ID: 101, InterventionID: 1, Hours: 1.5, HourlyRate: 40, Description: "remplacement compresseur"}
	return iv
}

func expectedNumber(seq int) string {
	now := time.Now()
	return fmt.Sprintf("INV-%d%02d-%04d", now.Year(), int(now.Month()), seq)
}

func TestGenerateInvoiceTotals(t *testing.T) {
	f := newInvoiceFixture(t)
	f.seedCompleted(t)

	inv, err := f.svc.GenerateInvoice(context.Background(), Actor{}, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(135), inv.PartsTotal)
	assert.Equal(t, int64(60), inv.LaborTotal)
	assert.Equal(t, int64(195), inv.TotalAmount)
	assert.Equal(t, expectedNumber(1), inv.InvoiceNumber)
	require.NotNil(t, inv.InterventionID)
	assert.Equal(t, int64(1), *inv.InterventionID)

	require.Len(t, f.pub.invoices, 1)
	assert.Equal(t, inv.InvoiceNumber, f.pub.invoices[0].InvoiceNumber)

	require.Len(t, f.pub.emails, 1)
	assert.Equal(t, models.EmailTemplateInvoiceReady, f.pub.emails[0].Template)
	assert.Equal(t, "marie@example.com", f.pub.emails[0].To)
}

func TestGenerateInvoiceFreeInterventionKeepsBreakdown(t *testing.T) {
	f := newInvoiceFixture(t)
	iv := f.seedCompleted(t)
	iv.IsFree = true
	f.store.interventions[1] = iv

	inv, err := f.svc.GenerateInvoice(context.Background(), Actor{}, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(135), inv.PartsTotal, "breakdown survives the warranty")
	assert.Equal(t, int64(60), inv.LaborTotal)
	assert.Zero(t, inv.TotalAmount)
	assert.True(t, inv.IsFree)
}

func TestGenerateInvoiceRequiresCompleted(t *testing.T) {
	f := newInvoiceFixture(t)
	f.store.seedIntervention(&models.Intervention{ID: 1, ReclamationID: 10, Status: models.InterventionStatusInProgress})

	_, err := f.svc.GenerateInvoice(context.Background(), Actor{}, 1)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "not completed")
}

func TestGenerateInvoiceOnlyOnce(t *testing.T) {
	f := newInvoiceFixture(t)
	f.seedCompleted(t)

	_, err := f.svc.GenerateInvoice(context.Background(), Actor{}, 1)
	require.NoError(t, err)

	_, err = f.svc.GenerateInvoice(context.Background(), Actor{}, 1)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "Invoice already exists")
}

func TestInvoiceNumbersAreSequentialWithinMonth(t *testing.T) {
	f := newInvoiceFixture(t)
	f.seedCompleted(t)
	f.store.seedIntervention(&models.Intervention{ID: 2, ReclamationID: 10, Status: models.InterventionStatusCompleted})

	first, err := f.svc.GenerateInvoice(context.Background(), Actor{}, 1)
	require.NoError(t, err)
	second, err := f.svc.GenerateInvoice(context.Background(), Actor{}, 2)
	require.NoError(t, err)

	assert.Equal(t, expectedNumber(1), first.InvoiceNumber)
	assert.Equal(t, expectedNumber(2), second.InvoiceNumber)
}

func TestInvoiceNumberRetriesOnConflict(t *testing.T) {
	f := newInvoiceFixture(t)
	f.seedCompleted(t)
	f.invoices.conflictsLeft = 1
	f.invoices.conflictErr = store.ErrInvoiceNumberConflict

	inv, err := f.svc.GenerateInvoice(context.Background(), Actor{}, 1)
	require.NoError(t, err)
	assert.Equal(t, expectedNumber(2), inv.InvoiceNumber, "the conflicting number was taken by a concurrent insert")
}

func TestInvoiceNumberGivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newInvoiceFixture(t)
	f.seedCompleted(t)
	f.invoices.conflictsLeft = invoiceNumberAttempts
	f.invoices.conflictErr = store.ErrInvoiceNumberConflict

	_, err := f.svc.GenerateInvoice(context.Background(), Actor{}, 1)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestInvoiceNumberFormat(t *testing.T) {
	at := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-202603-0001", invoiceNumber(at, 0))
	assert.Equal(t, "INV-202603-0042", invoiceNumber(at, 41))
}

func TestGenerateInvoiceRendersPDF(t *testing.T) {
	f := newInvoiceFixture(t)
	f.seedCompleted(t)

	inv, err := f.svc.GenerateInvoice(context.Background(), Actor{}, 1)
	require.NoError(t, err)
	require.NotEmpty(t, inv.PDFPath)

	require.NotNil(t, f.pdf.last)
	assert.Equal(t, inv.InvoiceNumber, f.pdf.last.InvoiceNumber)
	assert.Equal(t, "Marie Martin", f.pdf.last.ClientName)
	require.Len(t, f.pdf.last.Lines, 2, "parts line plus labor line")

	pdf, err := f.svc.GetInvoicePDF(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 rendered"), pdf)
}

func TestGenerateInvoiceSurvivesPDFFailure(t *testing.T) {
	f := newInvoiceFixture(t)
	f.seedCompleted(t)
	f.pdf.err = apperr.RemoteCall("renderer down", errBoom)

	inv, err := f.svc.GenerateInvoice(context.Background(), Actor{}, 1)
	require.NoError(t, err, "the invoice row must exist even when rendering fails")
	assert.Empty(t, inv.PDFPath)

	_, err = f.svc.GetInvoicePDF(context.Background(), inv.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestGenerateInvoiceFromOrder(t *testing.T) {
	f := newInvoiceFixture(t)

	inv, err := f.svc.GenerateInvoiceFromOrder(context.Background(), Actor{}, 55, &OrderInvoiceRequest{
		ClientName:  "Paul Durand",
		ClientEmail: "paul@example.com",
		Lines: []OrderInvoiceLine{
			{Description: "Filtre à eau", Quantity: 2, UnitPrice: 1250},
			{Description: "Joint de porte", Quantity: 1, UnitPrice: 800},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2*1250+800), inv.TotalAmount)
	require.NotNil(t, inv.OrderID)
	assert.Equal(t, int64(55), *inv.OrderID)
	assert.Nil(t, inv.InterventionID)
	assert.Equal(t, expectedNumber(1), inv.InvoiceNumber)

	require.Len(t, f.pub.emails, 1)
	assert.Equal(t, "paul@example.com", f.pub.emails[0].To)
}

func TestGenerateInvoiceFromOrderOnlyOnce(t *testing.T) {
	f := newInvoiceFixture(t)
	req := &OrderInvoiceRequest{
		ClientName: "Paul Durand",
		Lines:      []OrderInvoiceLine{{Description: "Filtre", Quantity: 1, UnitPrice: 500}},
	}

	_, err := f.svc.GenerateInvoiceFromOrder(context.Background(), Actor{}, 55, req)
	require.NoError(t, err)

	_, err = f.svc.GenerateInvoiceFromOrder(context.Background(), Actor{}, 55, req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invoice already exists")
}

func TestOrderInvoiceWithoutEmailSkipsNotification(t *testing.T) {
	f := newInvoiceFixture(t)

	_, err := f.svc.GenerateInvoiceFromOrder(context.Background(), Actor{}, 55, &OrderInvoiceRequest{
		ClientName: "Guichet",
		Lines:      []OrderInvoiceLine{{Description: "Filtre", Quantity: 1, UnitPrice: 500}},
	})
	require.NoError(t, err)
	assert.Empty(t, f.pub.emails)
}
