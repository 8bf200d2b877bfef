package models

import "time"

// Tour statuses (admin-driven, never derived from the tour date)
const (
	TourStatusAvailable  = "available"
	TourStatusComingSoon = "coming_soon"
	TourStatusDone       = "done"
)

// Booking payment statuses. A booking is created pending and moves to
// exactly one of paid/failed; terminal states never revert.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Tour represents a bookable tour
type Tour struct {
	ID                  int64     `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	Description         string    `db:"description" json:"description"`
	Price               float64   `db:"price" json:"price"`
	Date                time.Time `db:"date" json:"date"`
	MaxParticipants     int       `db:"max_participants" json:"max_participants"`
	CurrentParticipants int       `db:"current_participants" json:"current_participants"`
	Status              string    `db:"status" json:"status"`
}

// User represents a registered account
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Booking represents a tour booking. The payment fields are populated
// by the callback reconciler once the gateway reports an outcome.
type Booking struct {
	ID              int64     `db:"id" json:"id"`
	TourID          int64     `db:"tour_id" json:"tour_id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	CustomerName    string    `db:"customer_name" json:"customer_name"`
	CustomerEmail   string    `db:"customer_email" json:"customer_email"`
	NumParticipants int       `db:"num_participants" json:"num_participants"`
	BookingDate     time.Time `db:"booking_date" json:"booking_date"`
	PaymentStatus   string    `db:"payment_status" json:"payment_status"`
	MpesaReceipt    *string   `db:"mpesa_receipt" json:"mpesa_receipt,omitempty"`
	AmountPaid      *float64  `db:"amount_paid" json:"amount_paid,omitempty"`
	PhoneNumberPaid *string   `db:"phone_number_paid" json:"phone_number_paid,omitempty"`
}

// BookingDetail is a booking joined with its tour for user-facing reads
type BookingDetail struct {
	Booking
	TourName  string    `db:"tour_name" json:"tour_name"`
	TourPrice float64   `db:"tour_price" json:"tour_price"`
	TourDate  time.Time `db:"tour_date" json:"tour_date"`
}

// AdminBooking is the admin listing row; the user join is LEFT so
// bookings survive user deletion.
type AdminBooking struct {
	Booking
	TourName string  `db:"tour_name" json:"tour_name"`
	TourDate string  `db:"tour_date" json:"tour_date"`
	Username *string `db:"username" json:"username,omitempty"`
}

// BookingConfirmation carries the data the notification sender needs
// after a successful reconciliation.
type BookingConfirmation struct {
	BookingID       int64  `db:"booking_id"`
	TourID          int64  `db:"tour_id"`
	TourName        string `db:"tour_name"`
	CustomerName    string `db:"customer_name"`
	CustomerEmail   string `db:"customer_email"`
	NumParticipants int    `db:"num_participants"`
}

// Memory is an admin-managed gallery entry backed by an image file
type Memory struct {
	ID            int64     `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	ImageFilename string    `db:"image_filename" json:"image_filename"`
	TourID        *int64    `db:"tour_id" json:"tour_id,omitempty"`
	MemoryDate    time.Time `db:"memory_date" json:"memory_date"`
	TourName      *string   `db:"tour_name" json:"tour_name,omitempty"`
}

// AdminStats aggregates the dashboard counters
type AdminStats struct {
	TotalTours      int `db:"total_tours" json:"total_tours"`
	TotalUsers      int `db:"total_users" json:"total_users"`
	TotalBookings   int `db:"total_bookings" json:"total_bookings"`
	PaidBookings    int `db:"paid_bookings" json:"paid_bookings"`
	PendingBookings int `db:"pending_bookings" json:"pending_bookings"`
}
