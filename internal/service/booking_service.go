package service

import (
	"context"
	"fmt"
	"time"

	"tour-booking-service/internal/models"
	"tour-booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingStore is the persistence surface the ledger needs
type BookingStore interface {
	GetTourByID(ctx context.Context, id int64) (*models.Tour, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingDetail(ctx context.Context, id int64) (*models.BookingDetail, error)
	GetBookingsByUserID(ctx context.Context, userID int64) ([]models.BookingDetail, error)
}

// PaymentGateway initiates the push-payment request. Acceptance of the
// request proves nothing about payment; only the callback settles it.
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, booking *models.Booking, tour *models.Tour, phone string) (*models.StkPushResponse, error)
}

// BookingEventPublisher publishes booking lifecycle events
type BookingEventPublisher interface {
	PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error
}

// BookingService is the booking ledger
type BookingService struct {
	store     BookingStore
	gateway   PaymentGateway
	publisher BookingEventPublisher
	logger    *zap.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(store BookingStore, gateway PaymentGateway, publisher BookingEventPublisher) *BookingService {
	return &BookingService{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreateBookingRequest represents a request to place a booking
type CreateBookingRequest struct {
	TourID          int64 `json:"tour_id" binding:"required"`
	NumParticipants int   `json:"num_participants" binding:"required"`
}

// Create places a pending booking. The capacity check is optimistic:
// seats are only claimed when the payment callback settles, so two
// users can both pass this check for the last seats and race at the
// provider.
func (s *BookingService) Create(ctx context.Context, req *CreateBookingRequest, user *models.User) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Create")
	defer span.End()

	if req.NumParticipants < 1 {
		util.BookingsFailedTotal.WithLabelValues("invalid_participants").Inc()
		return nil, ErrInvalidParticipants
	}

	tour, err := s.store.GetTourByID(ctx, req.TourID)
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("tour_not_found").Inc()
		return nil, err
	}

	if tour.Status != models.TourStatusAvailable {
		util.BookingsFailedTotal.WithLabelValues("tour_unavailable").Inc()
		return nil, ErrTourNotAvailable
	}

	if tour.CurrentParticipants+req.NumParticipants > tour.MaxParticipants {
		util.BookingsFailedTotal.WithLabelValues("capacity").Inc()
		return nil, fmt.Errorf("%w: %d spots left", ErrCapacityExceeded, tour.MaxParticipants-tour.CurrentParticipants)
	}

	booking := &models.Booking{
		TourID:          tour.ID,
		UserID:          user.ID,
		CustomerName:    user.Username,
		CustomerEmail:   user.Email,
		NumParticipants: req.NumParticipants,
		PaymentStatus:   models.PaymentStatusPending,
	}

	if err := s.store.CreateBooking(ctx, booking); err != nil {
		util.BookingsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	util.BookingsCreatedTotal.Inc()
	s.logger.Info("Booking placed",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("tour_id", tour.ID),
		zap.Int("participants", booking.NumParticipants))

	if s.publisher != nil {
		event := &models.BookingCreatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeBookingCreated,
				Timestamp: time.Now(),
			},
			BookingID:       booking.ID,
			TourID:          booking.TourID,
			UserID:          booking.UserID,
			NumParticipants: booking.NumParticipants,
		}
		if err := s.publisher.PublishBookingCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish BookingCreated event", zap.Error(err))
		}
	}

	return booking, nil
}

// Pay initiates the push payment for a pending booking. The booking is
// not mutated here on any path: a network failure or gateway rejection
// leaves it pending and the user may retry.
func (s *BookingService) Pay(ctx context.Context, bookingID, userID int64, phone string) (*models.StkPushResponse, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.Pay")
	defer span.End()

	booking, err := s.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrNotBookingOwner
	}
	if booking.PaymentStatus == models.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}

	tour, err := s.store.GetTourByID(ctx, booking.TourID)
	if err != nil {
		return nil, err
	}

	return s.gateway.InitiatePayment(ctx, booking, tour, phone)
}

// GetBooking retrieves a booking with its tour; non-admins only see
// their own.
func (s *BookingService) GetBooking(ctx context.Context, bookingID int64, user *models.User) (*models.BookingDetail, error) {
	detail, err := s.store.GetBookingDetail(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if detail.UserID != user.ID && !user.IsAdmin {
		return nil, ErrNotBookingOwner
	}
	return detail, nil
}

// ListUserBookings retrieves the caller's bookings
func (s *BookingService) ListUserBookings(ctx context.Context, userID int64) ([]models.BookingDetail, error) {
	return s.store.GetBookingsByUserID(ctx, userID)
}
