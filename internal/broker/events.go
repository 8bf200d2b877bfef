package broker

import (
	"context"
	"fmt"

	"tour-booking-service/internal/models"
)

// EventPublisher publishes domain events keyed by booking so all events
// for one booking land on the same partition in order.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishBookingCreated publishes a BookingCreated event
func (ep *EventPublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishPaymentConfirmed publishes a PaymentConfirmed event
func (ep *EventPublisher) PublishPaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishPaymentFailed publishes a PaymentFailed event
func (ep *EventPublisher) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

func bookingKey(bookingID int64) string {
	return fmt.Sprintf("booking-%d", bookingID)
}
