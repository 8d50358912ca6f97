package worker

import (
	"context"
	"time"

	"sav-service/internal/broker"
	"sav-service/internal/models"
	"sav-service/internal/util"

	"go.uber.org/zap"
)

// InAppNotifier creates in-app notifications through the collaborator.
type InAppNotifier interface {
	Create(ctx context.Context, userID int64, title, message, kind string, relatedEntityID *int64, relatedEntityType string) error
}

// EmailSender sends the client-facing templated emails.
type EmailSender interface {
	SendInterventionScheduled(ctx context.Context, toEmail, clientName string, plannedDate time.Time) error
	SendInterventionStarted(ctx context.Context, toEmail, clientName string) error
	SendInterventionCompleted(ctx context.Context, toEmail, clientName string, amount int64, isFree bool) error
	SendInvoiceReady(ctx context.Context, toEmail, clientName, invoiceNumber string, amount int64) error
}

// NotificationWorker consumes notification and email commands and performs
// the delivery. Delivery is best-effort: a failed send is logged and the
// message is still committed, never replayed against the primary operation.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, notifier InAppNotifier, sender EmailSender) *NotificationWorker {
	logger := util.GetLogger()
	eventHandler := broker.NewEventHandler()

	eventHandler.OnNotification(func(ctx context.Context, cmd *models.NotificationCommand) error {
		if err := notifier.Create(ctx, cmd.UserID, cmd.Title, cmd.Message, cmd.Kind, cmd.RelatedEntityID, cmd.RelatedEntityType); err != nil {
			logger.Warn("In-app notification delivery failed",
				zap.Int64("user_id", cmd.UserID),
				zap.String("title", cmd.Title),
				zap.Error(err))
		}
		return nil
	})

	eventHandler.OnEmail(func(ctx context.Context, cmd *models.EmailCommand) error {
		var err error
		switch cmd.Template {
		case models.EmailTemplateScheduled:
			err = sender.SendInterventionScheduled(ctx, cmd.To, cmd.ClientName, cmd.PlannedDate)
		case models.EmailTemplateStarted:
			err = sender.SendInterventionStarted(ctx, cmd.To, cmd.ClientName)
		case models.EmailTemplateCompleted:
			err = sender.SendInterventionCompleted(ctx, cmd.To, cmd.ClientName, cmd.Amount, cmd.Amount == 0)
		case models.EmailTemplateInvoiceReady:
			err = sender.SendInvoiceReady(ctx, cmd.To, cmd.ClientName, cmd.InvoiceNumber, cmd.Amount)
		default:
			logger.Warn("Unknown email template", zap.String("template", cmd.Template))
			return nil
		}

		if err != nil {
			util.EmailsFailedTotal.Inc()
			logger.Warn("Email delivery failed",
				zap.String("to", cmd.To),
				zap.String("template", cmd.Template),
				zap.Error(err))
			return nil
		}
		util.EmailsSentTotal.Inc()
		return nil
	})

	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       logger,
	}
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}
