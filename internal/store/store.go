package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tour-booking-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Sentinel errors surfaced to the service layer
var (
	ErrTourNotFound    = errors.New("tour not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrMemoryNotFound  = errors.New("memory not found")
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetTourByID retrieves a tour by ID
func (s *Store) GetTourByID(ctx context.Context, id int64) (*models.Tour, error) {
	var tour models.Tour
	err := s.db.GetContext(ctx, &tour, "SELECT * FROM tours WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrTourNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tour, nil
}

// GetToursByStatus retrieves tours with the given status. Past tours
// list newest first; everything else lists by upcoming date.
func (s *Store) GetToursByStatus(ctx context.Context, status string) ([]models.Tour, error) {
	order := "ASC"
	if status == models.TourStatusDone {
		order = "DESC"
	}
	var tours []models.Tour
	query := fmt.Sprintf("SELECT * FROM tours WHERE status = $1 ORDER BY date %s", order)
	err := s.db.SelectContext(ctx, &tours, query, status)
	return tours, err
}

// GetAllTours retrieves every tour for the admin listing
func (s *Store) GetAllTours(ctx context.Context) ([]models.Tour, error) {
	var tours []models.Tour
	err := s.db.SelectContext(ctx, &tours, "SELECT * FROM tours ORDER BY date DESC")
	return tours, err
}

// CreateTour inserts a new tour with zero participants
func (s *Store) CreateTour(ctx context.Context, tour *models.Tour) error {
	query := `
		INSERT INTO tours (name, description, price, date, max_participants, status, current_participants)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		RETURNING id, current_participants`

	return s.db.GetContext(ctx, tour, query,
		tour.Name, tour.Description, tour.Price, tour.Date, tour.MaxParticipants, tour.Status)
}

// UpdateTour updates tour fields; current_participants is only ever
// touched by the payment reconciler.
func (s *Store) UpdateTour(ctx context.Context, tour *models.Tour) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE tours SET name = $1, description = $2, price = $3, date = $4, max_participants = $5, status = $6 WHERE id = $7",
		tour.Name, tour.Description, tour.Price, tour.Date, tour.MaxParticipants, tour.Status, tour.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTourNotFound
	}
	return nil
}

// DeleteTour removes a tour
func (s *Store) DeleteTour(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tours WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTourNotFound
	}
	return nil
}

// GetAdminStats aggregates the dashboard counters
func (s *Store) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	var stats models.AdminStats
	query := `
		SELECT
			(SELECT COUNT(id) FROM tours) AS total_tours,
			(SELECT COUNT(id) FROM users) AS total_users,
			(SELECT COUNT(id) FROM bookings) AS total_bookings,
			(SELECT COUNT(id) FROM bookings WHERE payment_status = 'paid') AS paid_bookings,
			(SELECT COUNT(id) FROM bookings WHERE payment_status = 'pending') AS pending_bookings`

	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return nil, err
	}
	return &stats, nil
}
