package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"sav-service/internal/apperr"
	"sav-service/internal/util"

	"go.uber.org/zap"
)

// Part is the inventory collaborator's view of a spare part. UnitPrice is in
// cents; Stock is the currently available quantity.
type Part struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Reference string `json:"reference"`
	UnitPrice int64  `json:"unit_price"`
	Stock     int    `json:"stock"`
}

// InventoryClient talks to the service that owns spare-part stock.
type InventoryClient struct {
	base
}

// NewInventoryClient creates a new inventory collaborator client
func NewInventoryClient(baseURL string, timeout time.Duration, logger *zap.Logger) *InventoryClient {
	return &InventoryClient{base: newBase(baseURL, timeout, logger)}
}

// GetPart fetches the current part snapshot
func (c *InventoryClient) GetPart(ctx context.Context, partID int64) (*Part, error) {
	ctx, span := util.StartSpan(ctx, "InventoryClient.GetPart")
	defer span.End()

	var part Part
	status, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/parts/%d", partID), nil, &part)
	if err != nil {
		return nil, apperr.RemoteCall("inventory service unreachable", err)
	}
	if status == http.StatusNotFound {
		return nil, apperr.NotFound("part not found: %d", partID)
	}
	if !is2xx(status) {
		return nil, apperr.RemoteCall(fmt.Sprintf("inventory service returned %d", status), nil)
	}
	return &part, nil
}

type stockMutation struct {
	Quantity      int    `json:"quantity"`
	CorrelationID string `json:"correlation_id"`
}

// DeductStock removes quantity units of a part from remote stock. The
// correlation id lets the inventory service deduplicate retried calls.
func (c *InventoryClient) DeductStock(ctx context.Context, partID int64, quantity int, correlationID string) error {
	ctx, span := util.StartSpan(ctx, "InventoryClient.DeductStock")
	defer span.End()

	start := time.Now()
	defer func() {
		util.StockDeductLatency.Observe(time.Since(start).Seconds())
	}()

	status, err := c.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("/api/v1/parts/%d/deduct", partID),
		stockMutation{Quantity: quantity, CorrelationID: correlationID}, nil)
	if err != nil {
		util.StockDeductionsFailedTotal.WithLabelValues("unreachable").Inc()
		return apperr.RemoteCall("stock deduction failed", err)
	}
	if !is2xx(status) {
		util.StockDeductionsFailedTotal.WithLabelValues("rejected").Inc()
		c.logger.Warn("Stock deduction rejected",
			zap.Int64("part_id", partID),
			zap.Int("quantity", quantity),
			zap.Int("status", status))
		return apperr.RemoteCall(fmt.Sprintf("stock deduction returned %d", status), nil)
	}
	return nil
}

// RestoreStock returns quantity units of a part to remote stock (compensation).
func (c *InventoryClient) RestoreStock(ctx context.Context, partID int64, quantity int, correlationID string) error {
	ctx, span := util.StartSpan(ctx, "InventoryClient.RestoreStock")
	defer span.End()

	status, err := c.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("/api/v1/parts/%d/restore", partID),
		stockMutation{Quantity: quantity, CorrelationID: correlationID}, nil)
	if err != nil {
		return apperr.RemoteCall("stock restore failed", err)
	}
	if !is2xx(status) {
		return apperr.RemoteCall(fmt.Sprintf("stock restore returned %d", status), nil)
	}
	return nil
}
