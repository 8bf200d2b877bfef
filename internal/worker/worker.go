package worker

import (
	"context"
	"encoding/json"
	"log"

	"tour-booking-service/internal/broker"
	"tour-booking-service/internal/models"
	"tour-booking-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ConfirmationSender is the mail surface the worker needs
type ConfirmationSender interface {
	SendConfirmation(email, name, tourName string, numParticipants int, bookingID int64) error
}

// NotificationWorker consumes settlement events and sends confirmation
// emails off the reconciliation path. Email failures are logged and the
// message is still committed: notification never gates booking state.
type NotificationWorker struct {
	consumer *broker.Consumer
	sender   ConfirmationSender
	logger   *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, sender ConfirmationSender) *NotificationWorker {
	return &NotificationWorker{
		consumer: consumer,
		sender:   sender,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")

	return w.consumer.StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		var baseEvent models.BaseEvent
		if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
			w.logger.Error("Failed to unmarshal event", zap.Error(err))
			return nil
		}

		if baseEvent.EventType != models.EventTypePaymentConfirmed {
			return nil
		}

		var event models.PaymentConfirmedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			w.logger.Error("Failed to unmarshal PaymentConfirmed event", zap.Error(err))
			return nil
		}

		if err := w.sender.SendConfirmation(
			event.CustomerEmail,
			event.CustomerName,
			event.TourName,
			event.NumParticipants,
			event.BookingID,
		); err != nil {
			w.logger.Error("Confirmation email failed",
				zap.Int64("booking_id", event.BookingID),
				zap.Error(err))
		}
		return nil
	})
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}
