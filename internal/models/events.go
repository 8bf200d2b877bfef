package models

import "time"

// Event types
const (
	EventTypeBookingCreated   = "BOOKING_CREATED"
	EventTypePaymentConfirmed = "PAYMENT_CONFIRMED"
	EventTypePaymentFailed    = "PAYMENT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent published when a pending booking is placed
type BookingCreatedEvent struct {
	BaseEvent
	BookingID       int64 `json:"booking_id"`
	TourID          int64 `json:"tour_id"`
	UserID          int64 `json:"user_id"`
	NumParticipants int   `json:"num_participants"`
}

// PaymentConfirmedEvent published after a paid transition commits. It
// carries everything the notification worker needs so the consumer does
// not have to read the database.
type PaymentConfirmedEvent struct {
	BaseEvent
	BookingID       int64   `json:"booking_id"`
	TourID          int64   `json:"tour_id"`
	TourName        string  `json:"tour_name"`
	CustomerName    string  `json:"customer_name"`
	CustomerEmail   string  `json:"customer_email"`
	NumParticipants int     `json:"num_participants"`
	MpesaReceipt    string  `json:"mpesa_receipt"`
	AmountPaid      float64 `json:"amount_paid"`
	PhoneNumber     string  `json:"phone_number"`
}

// PaymentFailedEvent published when the gateway reports a failed or
// cancelled transaction
type PaymentFailedEvent struct {
	BaseEvent
	BookingID  int64  `json:"booking_id"`
	ResultCode int    `json:"result_code"`
	Reason     string `json:"reason"`
}
