package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sav-service/internal/apperr"
	"sav-service/internal/util"

	"go.uber.org/zap"
)

// InvoiceRenderData is the payload handed to the PDF renderer. Layout and
// styling live entirely on the renderer side.
type InvoiceRenderData struct {
	InvoiceNumber string            `json:"invoice_number"`
	ClientName    string            `json:"client_name"`
	IssuedAt      time.Time         `json:"issued_at"`
	Lines         []InvoiceLineData `json:"lines"`
	PartsTotal    int64             `json:"parts_total"`
	LaborTotal    int64             `json:"labor_total"`
	TotalAmount   int64             `json:"total_amount"`
	IsFree        bool              `json:"is_free"`
}

// InvoiceLineData is a single billable line on the rendered invoice.
type InvoiceLineData struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Total       int64  `json:"total"`
}

// PDFClient talks to the PDF-renderer collaborator.
type PDFClient struct {
	base
}

// NewPDFClient creates a new PDF renderer client
func NewPDFClient(baseURL string, timeout time.Duration, logger *zap.Logger) *PDFClient {
	return &PDFClient{base: newBase(baseURL, timeout, logger)}
}

// Render asks the collaborator to lay out the invoice and returns the PDF bytes.
func (c *PDFClient) Render(ctx context.Context, data InvoiceRenderData) ([]byte, error) {
	ctx, span := util.StartSpan(ctx, "PDFClient.Render")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/render/invoice", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.RemoteCall("pdf renderer unreachable", err)
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		c.logger.Warn("PDF render rejected",
			zap.String("invoice_number", data.InvoiceNumber),
			zap.Int("status", resp.StatusCode))
		return nil, apperr.RemoteCall(fmt.Sprintf("pdf renderer returned %d", resp.StatusCode), nil)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.RemoteCall("failed to read rendered pdf", err)
	}
	return pdf, nil
}
