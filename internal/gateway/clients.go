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

// ClientRecord is a directory entry for a client account.
type ClientRecord struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// DirectoryClient talks to the client-directory collaborator.
type DirectoryClient struct {
	base
}

// NewDirectoryClient creates a new client-directory collaborator client
func NewDirectoryClient(baseURL string, timeout time.Duration, logger *zap.Logger) *DirectoryClient {
	return &DirectoryClient{base: newBase(baseURL, timeout, logger)}
}

// GetClientByID fetches a client by their directory id
func (c *DirectoryClient) GetClientByID(ctx context.Context, id int64) (*ClientRecord, error) {
	ctx, span := util.StartSpan(ctx, "DirectoryClient.GetClientByID")
	defer span.End()

	var rec ClientRecord
	status, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/clients/%d", id), nil, &rec)
	if err != nil {
		return nil, apperr.RemoteCall("client directory unreachable", err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if !is2xx(status) {
		return nil, apperr.RemoteCall(fmt.Sprintf("client directory returned %d", status), nil)
	}
	return &rec, nil
}

// GetClientByUserID fetches the client linked to a user account, nil when the
// user has no client profile.
func (c *DirectoryClient) GetClientByUserID(ctx context.Context, userID int64) (*ClientRecord, error) {
	ctx, span := util.StartSpan(ctx, "DirectoryClient.GetClientByUserID")
	defer span.End()

	var rec ClientRecord
	status, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/clients/by-user/%d", userID), nil, &rec)
	if err != nil {
		return nil, apperr.RemoteCall("client directory unreachable", err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if !is2xx(status) {
		return nil, apperr.RemoteCall(fmt.Sprintf("client directory returned %d", status), nil)
	}
	return &rec, nil
}
