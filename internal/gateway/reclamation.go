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

// Reclamation is the complaint an intervention addresses, as served by the
// reclamation collaborator. Client fields ride along so callers avoid a
// second directory round-trip in the common case.
type Reclamation struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ClientID    int64  `json:"client_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
}

// ReclamationClient talks to the reclamation collaborator.
type ReclamationClient struct {
	base
}

// NewReclamationClient creates a new reclamation collaborator client
func NewReclamationClient(baseURL string, timeout time.Duration, logger *zap.Logger) *ReclamationClient {
	return &ReclamationClient{base: newBase(baseURL, timeout, logger)}
}

// GetReclamation fetches a reclamation by id
func (c *ReclamationClient) GetReclamation(ctx context.Context, id int64) (*Reclamation, error) {
	ctx, span := util.StartSpan(ctx, "ReclamationClient.GetReclamation")
	defer span.End()

	var rec Reclamation
	status, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/reclamations/%d", id), nil, &rec)
	if err != nil {
		return nil, apperr.RemoteCall("reclamation service unreachable", err)
	}
	switch {
	case status == http.StatusNotFound:
		return nil, apperr.NotFound("reclamation not found: %d", id)
	case status == http.StatusForbidden:
		return nil, apperr.Forbidden("access to reclamation %d denied", id)
	case !is2xx(status):
		return nil, apperr.RemoteCall(fmt.Sprintf("reclamation service returned %d", status), nil)
	}
	return &rec, nil
}
