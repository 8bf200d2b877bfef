package service

import (
	"context"
	"testing"

	"tour-booking-service/internal/models"
	"tour-booking-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBookingStore struct {
	tours    map[int64]*models.Tour
	bookings map[int64]*models.Booking
	nextID   int64
}

func newFakeBookingStore(tours ...*models.Tour) *fakeBookingStore {
	f := &fakeBookingStore{
		tours:    make(map[int64]*models.Tour),
		bookings: make(map[int64]*models.Booking),
		nextID:   1,
	}
	for _, tour := range tours {
		f.tours[tour.ID] = tour
	}
	return f
}

func (f *fakeBookingStore) GetTourByID(ctx context.Context, id int64) (*models.Tour, error) {
	tour, ok := f.tours[id]
	if !ok {
		return nil, store.ErrTourNotFound
	}
	return tour, nil
}

func (f *fakeBookingStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	booking.ID = f.nextID
	f.nextID++
	f.bookings[booking.ID] = booking
	return nil
}

func (f *fakeBookingStore) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking, ok := f.bookings[id]
	if !ok {
		return nil, store.ErrBookingNotFound
	}
	return booking, nil
}

func (f *fakeBookingStore) GetBookingDetail(ctx context.Context, id int64) (*models.BookingDetail, error) {
	booking, ok := f.bookings[id]
	if !ok {
		return nil, store.ErrBookingNotFound
	}
	tour := f.tours[booking.TourID]
	return &models.BookingDetail{
		Booking:   *booking,
		TourName:  tour.Name,
		TourPrice: tour.Price,
		TourDate:  tour.Date,
	}, nil
}

func (f *fakeBookingStore) GetBookingsByUserID(ctx context.Context, userID int64) ([]models.BookingDetail, error) {
	var out []models.BookingDetail
	for _, booking := range f.bookings {
		if booking.UserID == userID {
			detail, _ := f.GetBookingDetail(ctx, booking.ID)
			out = append(out, *detail)
		}
	}
	return out, nil
}

type fakeGateway struct {
	resp *models.StkPushResponse
	err  error

	lastBooking *models.Booking
	lastPhone   string
}

func (f *fakeGateway) InitiatePayment(ctx context.Context, booking *models.Booking, tour *models.Tour, phone string) (*models.StkPushResponse, error) {
	f.lastBooking = booking
	f.lastPhone = phone
	return f.resp, f.err
}

func availableTour() *models.Tour {
	return &models.Tour{
		ID:                  7,
		Name:                "Coastal Safari",
		Price:               1500.50,
		MaxParticipants:     10,
		CurrentParticipants: 5,
		Status:              models.TourStatusAvailable,
	}
}

func testUser() *models.User {
	return &models.User{ID: 3, Username: "jane", Email: "jane@example.com"}
}

func TestCreateBookingPending(t *testing.T) {
	st := newFakeBookingStore(availableTour())
	svc := NewBookingService(st, &fakeGateway{}, nil)

	booking, err := svc.Create(context.Background(), &CreateBookingRequest{TourID: 7, NumParticipants: 3}, testUser())
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, int64(3), booking.UserID)
	assert.Equal(t, "jane", booking.CustomerName)
	assert.Equal(t, "jane@example.com", booking.CustomerEmail)
	assert.Nil(t, booking.MpesaReceipt)

	// Seats are only claimed at settlement, not at creation
	assert.Equal(t, 5, st.tours[7].CurrentParticipants)
}

func TestCreateBookingCapacityExceeded(t *testing.T) {
	tour := availableTour()
	tour.CurrentParticipants = 8
	st := newFakeBookingStore(tour)
	svc := NewBookingService(st, &fakeGateway{}, nil)

	_, err := svc.Create(context.Background(), &CreateBookingRequest{TourID: 7, NumParticipants: 3}, testUser())
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Empty(t, st.bookings)
}

func TestCreateBookingExactlyFillsTour(t *testing.T) {
	tour := availableTour()
	tour.CurrentParticipants = 7
	st := newFakeBookingStore(tour)
	svc := NewBookingService(st, &fakeGateway{}, nil)

	_, err := svc.Create(context.Background(), &CreateBookingRequest{TourID: 7, NumParticipants: 3}, testUser())
	assert.NoError(t, err)
}

func TestCreateBookingInvalidParticipants(t *testing.T) {
	st := newFakeBookingStore(availableTour())
	svc := NewBookingService(st, &fakeGateway{}, nil)

	_, err := svc.Create(context.Background(), &CreateBookingRequest{TourID: 7, NumParticipants: 0}, testUser())
	assert.ErrorIs(t, err, ErrInvalidParticipants)
}

func TestCreateBookingTourNotAvailable(t *testing.T) {
	tour := availableTour()
	tour.Status = models.TourStatusComingSoon
	st := newFakeBookingStore(tour)
	svc := NewBookingService(st, &fakeGateway{}, nil)

	_, err := svc.Create(context.Background(), &CreateBookingRequest{TourID: 7, NumParticipants: 1}, testUser())
	assert.ErrorIs(t, err, ErrTourNotAvailable)
}

func TestCreateBookingTourNotFound(t *testing.T) {
	st := newFakeBookingStore()
	svc := NewBookingService(st, &fakeGateway{}, nil)

	_, err := svc.Create(context.Background(), &CreateBookingRequest{TourID: 99, NumParticipants: 1}, testUser())
	assert.ErrorIs(t, err, store.ErrTourNotFound)
}

func TestPayDelegatesToGateway(t *testing.T) {
	st := newFakeBookingStore(availableTour())
	gw := &fakeGateway{resp: &models.StkPushResponse{CheckoutRequestID: "c-1", ResponseCode: "0"}}
	svc := NewBookingService(st, gw, nil)

	booking, err := svc.Create(context.Background(), &CreateBookingRequest{TourID: 7, NumParticipants: 2}, testUser())
	require.NoError(t, err)

	resp, err := svc.Pay(context.Background(), booking.ID, 3, "0712345678")
	require.NoError(t, err)
	assert.Equal(t, "c-1", resp.CheckoutRequestID)
	assert.Equal(t, booking.ID, gw.lastBooking.ID)
	assert.Equal(t, "0712345678", gw.lastPhone)

	// Gateway acceptance does not settle anything
	assert.Equal(t, models.PaymentStatusPending, st.bookings[booking.ID].PaymentStatus)
}

func TestPayNotOwner(t *testing.T) {
	st := newFakeBookingStore(availableTour())
	svc := NewBookingService(st, &fakeGateway{}, nil)

	booking, err := svc.Create(context.Background(), &CreateBookingRequest{TourID: 7, NumParticipants: 1}, testUser())
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), booking.ID, 999, "0712345678")
	assert.ErrorIs(t, err, ErrNotBookingOwner)
}

func TestPayAlreadyPaid(t *testing.T) {
	st := newFakeBookingStore(availableTour())
	svc := NewBookingService(st, &fakeGateway{}, nil)

	booking, err := svc.Create(context.Background(), &CreateBookingRequest{TourID: 7, NumParticipants: 1}, testUser())
	require.NoError(t, err)
	st.bookings[booking.ID].PaymentStatus = models.PaymentStatusPaid

	_, err = svc.Pay(context.Background(), booking.ID, 3, "0712345678")
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestGetBookingOwnership(t *testing.T) {
	st := newFakeBookingStore(availableTour())
	svc := NewBookingService(st, &fakeGateway{}, nil)

	booking, err := svc.Create(context.Background(), &CreateBookingRequest{TourID: 7, NumParticipants: 1}, testUser())
	require.NoError(t, err)

	detail, err := svc.GetBooking(context.Background(), booking.ID, testUser())
	require.NoError(t, err)
	assert.Equal(t, "Coastal Safari", detail.TourName)

	_, err = svc.GetBooking(context.Background(), booking.ID, &models.User{ID: 999})
	assert.ErrorIs(t, err, ErrNotBookingOwner)

	// Admins can read any booking
	_, err = svc.GetBooking(context.Background(), booking.ID, &models.User{ID: 999, IsAdmin: true})
	assert.NoError(t, err)
}
