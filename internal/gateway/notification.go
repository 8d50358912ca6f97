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

// NotificationClient talks to the in-app notification collaborator.
// Callers treat it as best-effort: a failure is logged, never surfaced.
type NotificationClient struct {
	base
}

// NewNotificationClient creates a new notification collaborator client
func NewNotificationClient(baseURL string, timeout time.Duration, logger *zap.Logger) *NotificationClient {
	return &NotificationClient{base: newBase(baseURL, timeout, logger)}
}

type createNotificationRequest struct {
	UserID            int64  `json:"user_id"`
	Title             string `json:"title"`
	Message           string `json:"message"`
	Kind              string `json:"kind"`
	RelatedEntityID   *int64 `json:"related_entity_id,omitempty"`
	RelatedEntityType string `json:"related_entity_type,omitempty"`
}

// Create creates an in-app notification for a user
func (c *NotificationClient) Create(ctx context.Context, userID int64, title, message, kind string, relatedEntityID *int64, relatedEntityType string) error {
	ctx, span := util.StartSpan(ctx, "NotificationClient.Create")
	defer span.End()

	status, err := c.doJSON(ctx, http.MethodPost, "/api/v1/notifications", createNotificationRequest{
		UserID:            userID,
		Title:             title,
		Message:           message,
		Kind:              kind,
		RelatedEntityID:   relatedEntityID,
		RelatedEntityType: relatedEntityType,
	}, nil)
	if err != nil {
		return apperr.RemoteCall("notification service unreachable", err)
	}
	if !is2xx(status) {
		c.logger.Warn("Notification rejected",
			zap.Int64("user_id", userID),
			zap.Int("status", status))
		return apperr.RemoteCall(fmt.Sprintf("notification service returned %d", status), nil)
	}
	return nil
}
