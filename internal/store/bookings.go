package store

import (
	"context"
	"database/sql"
	"fmt"

	"tour-booking-service/internal/models"
)

// CreateBooking inserts a pending booking. Capacity is not incremented
// here; only a confirmed payment claims seats.
func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (tour_id, user_id, customer_name, customer_email, num_participants, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, booking_date`

	return s.db.GetContext(ctx, booking, query,
		booking.TourID, booking.UserID, booking.CustomerName, booking.CustomerEmail,
		booking.NumParticipants, booking.PaymentStatus)
}

// GetBookingByID retrieves a booking by ID
func (s *Store) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, "SELECT * FROM bookings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingDetail retrieves a booking joined with its tour
func (s *Store) GetBookingDetail(ctx context.Context, id int64) (*models.BookingDetail, error) {
	var detail models.BookingDetail
	query := `
		SELECT b.*, t.name AS tour_name, t.price AS tour_price, t.date AS tour_date
		FROM bookings b JOIN tours t ON b.tour_id = t.id
		WHERE b.id = $1`

	err := s.db.GetContext(ctx, &detail, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetBookingsByUserID retrieves a user's bookings, newest first
func (s *Store) GetBookingsByUserID(ctx context.Context, userID int64) ([]models.BookingDetail, error) {
	var bookings []models.BookingDetail
	query := `
		SELECT b.*, t.name AS tour_name, t.price AS tour_price, t.date AS tour_date
		FROM bookings b JOIN tours t ON b.tour_id = t.id
		WHERE b.user_id = $1 ORDER BY b.booking_date DESC`

	err := s.db.SelectContext(ctx, &bookings, query, userID)
	return bookings, err
}

// ListBookings retrieves every booking for the admin view. The user
// join is LEFT so bookings survive account deletion.
func (s *Store) ListBookings(ctx context.Context) ([]models.AdminBooking, error) {
	var bookings []models.AdminBooking
	query := `
		SELECT b.*, t.name AS tour_name, t.date::text AS tour_date, u.username
		FROM bookings b
		JOIN tours t ON b.tour_id = t.id
		LEFT JOIN users u ON b.user_id = u.id
		ORDER BY b.booking_date DESC`

	err := s.db.SelectContext(ctx, &bookings, query)
	return bookings, err
}

// MarkBookingPaidTx settles a successful payment. The booking update
// and the tour participant increment commit together or not at all.
// The UPDATE is guarded on payment_status='pending', so redelivered
// callbacks fall through as no-ops: the confirmation is returned with
// applied=false and nothing changes.
func (s *Store) MarkBookingPaidTx(ctx context.Context, bookingID int64, receipt string, amount float64, phone string) (*models.BookingConfirmation, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var row struct {
		models.BookingConfirmation
		PaymentStatus string `db:"payment_status"`
	}
	err = tx.GetContext(ctx, &row, `
		SELECT b.id AS booking_id, b.tour_id, t.name AS tour_name,
		       b.customer_name, b.customer_email, b.num_participants, b.payment_status
		FROM bookings b JOIN tours t ON b.tour_id = t.id
		WHERE b.id = $1
		FOR UPDATE OF b`, bookingID)
	if err == sql.ErrNoRows {
		return nil, false, ErrBookingNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock booking: %w", err)
	}

	if row.PaymentStatus != models.PaymentStatusPending {
		return &row.BookingConfirmation, false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE bookings
		SET payment_status = $1, mpesa_receipt = $2, amount_paid = $3, phone_number_paid = $4
		WHERE id = $5 AND payment_status = $6`,
		models.PaymentStatusPaid, receipt, amount, phone, bookingID, models.PaymentStatusPending)
	if err != nil {
		return nil, false, fmt.Errorf("failed to mark booking paid: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE tours SET current_participants = current_participants + $1 WHERE id = $2",
		row.NumParticipants, row.TourID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim tour seats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return &row.BookingConfirmation, true, nil
}

// MarkBookingFailed records a failed or cancelled payment. No capacity
// change; terminal bookings are left untouched.
func (s *Store) MarkBookingFailed(ctx context.Context, bookingID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bookings SET payment_status = $1 WHERE id = $2 AND payment_status = $3",
		models.PaymentStatusFailed, bookingID, models.PaymentStatusPending)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 1 {
		return true, nil
	}

	var status string
	err = s.db.GetContext(ctx, &status, "SELECT payment_status FROM bookings WHERE id = $1", bookingID)
	if err == sql.ErrNoRows {
		return false, ErrBookingNotFound
	}
	if err != nil {
		return false, err
	}
	return false, nil
}
