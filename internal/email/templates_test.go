package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.00 €", formatCents(0))
	assert.Equal(t, "1.95 €", formatCents(195))
	assert.Equal(t, "135.00 €", formatCents(13500))
	assert.Equal(t, "-1.05 €", formatCents(-105))
}

func TestRenderScheduledTemplate(t *testing.T) {
	body, err := renderEmailTemplate("scheduled.html", scheduledEmailData{
		baseEmailData: baseEmailData{Title: "Intervention planifiée", Heading: "Intervention planifiée"},
		ClientName:    "Marie Martin",
		PlannedDate:   "01/09/2026 09:30",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Marie Martin")
	assert.Contains(t, body, "01/09/2026 09:30")
}

func TestRenderCompletedTemplateFree(t *testing.T) {
	body, err := renderEmailTemplate("completed.html", completedEmailData{
		baseEmailData:   baseEmailData{Title: "Intervention terminée", Heading: "Intervention terminée"},
		ClientName:      "Marie Martin",
		AmountFormatted: formatCents(0),
		IsFree:          true,
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Marie Martin")
}

func TestRenderInvoiceReadyTemplate(t *testing.T) {
	body, err := renderEmailTemplate("invoice_ready.html", invoiceReadyEmailData{
		baseEmailData:   baseEmailData{Title: "Votre facture", Heading: "Votre facture"},
		ClientName:      "Paul Durand",
		InvoiceNumber:   "INV-202608-0001",
		AmountFormatted: formatCents(19500),
	})
	require.NoError(t, err)
	assert.Contains(t, body, "INV-202608-0001")
}
