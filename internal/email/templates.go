package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title   string
	Heading string
}

type scheduledEmailData struct {
	baseEmailData
	ClientName  string
	PlannedDate string
}

type startedEmailData struct {
	baseEmailData
	ClientName string
}

type completedEmailData struct {
	baseEmailData
	ClientName      string
	AmountFormatted string
	IsFree          bool
}

type invoiceReadyEmailData struct {
	baseEmailData
	ClientName      string
	InvoiceNumber   string
	AmountFormatted string
}

func renderEmailTemplate(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// formatCents renders an amount in cents as a decimal euro string.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d €", sign, cents/100, cents%100)
}
