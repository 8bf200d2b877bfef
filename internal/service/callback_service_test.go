package service

import (
	"context"
	"errors"
	"testing"

	"tour-booking-service/internal/models"
	"tour-booking-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReconcilerStore keeps one booking and its tour in memory and
// mirrors the guarded-update semantics of the real transaction.
type fakeReconcilerStore struct {
	booking *models.Booking
	tour    *models.Tour
	err     error

	paidCalls   int
	failedCalls int
}

func (f *fakeReconcilerStore) MarkBookingPaidTx(ctx context.Context, bookingID int64, receipt string, amount float64, phone string) (*models.BookingConfirmation, bool, error) {
	f.paidCalls++
	if f.err != nil {
		return nil, false, f.err
	}
	if f.booking == nil || f.booking.ID != bookingID {
		return nil, false, store.ErrBookingNotFound
	}

	conf := &models.BookingConfirmation{
		BookingID:       f.booking.ID,
		TourID:          f.tour.ID,
		TourName:        f.tour.Name,
		CustomerName:    f.booking.CustomerName,
		CustomerEmail:   f.booking.CustomerEmail,
		NumParticipants: f.booking.NumParticipants,
	}
	if f.booking.PaymentStatus != models.PaymentStatusPending {
		return conf, false, nil
	}

	f.booking.PaymentStatus = models.PaymentStatusPaid
	f.booking.MpesaReceipt = &receipt
	f.booking.AmountPaid = &amount
	f.booking.PhoneNumberPaid = &phone
	f.tour.CurrentParticipants += f.booking.NumParticipants
	return conf, true, nil
}

func (f *fakeReconcilerStore) MarkBookingFailed(ctx context.Context, bookingID int64) (bool, error) {
	f.failedCalls++
	if f.err != nil {
		return false, f.err
	}
	if f.booking == nil || f.booking.ID != bookingID {
		return false, store.ErrBookingNotFound
	}
	if f.booking.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	f.booking.PaymentStatus = models.PaymentStatusFailed
	return true, nil
}

type fakePaymentPublisher struct {
	confirmed []*models.PaymentConfirmedEvent
	failed    []*models.PaymentFailedEvent
}

func (f *fakePaymentPublisher) PublishPaymentConfirmed(ctx context.Context, e *models.PaymentConfirmedEvent) error {
	f.confirmed = append(f.confirmed, e)
	return nil
}

func (f *fakePaymentPublisher) PublishPaymentFailed(ctx context.Context, e *models.PaymentFailedEvent) error {
	f.failed = append(f.failed, e)
	return nil
}

func pendingFixture() *fakeReconcilerStore {
	return &fakeReconcilerStore{
		booking: &models.Booking{
			ID:              42,
			TourID:          7,
			CustomerName:    "Jane Wanjiku",
			CustomerEmail:   "jane@example.com",
			NumParticipants: 3,
			PaymentStatus:   models.PaymentStatusPending,
		},
		tour: &models.Tour{
			ID:                  7,
			Name:                "Coastal Safari",
			Price:               1500.50,
			MaxParticipants:     10,
			CurrentParticipants: 5,
		},
	}
}

func successEnvelope(accountRef interface{}) *models.StkCallbackEnvelope {
	env := &models.StkCallbackEnvelope{}
	env.Body.StkCallback = models.StkCallback{
		MerchantRequestID: "m-1",
		CheckoutRequestID: "c-1",
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		CallbackMetadata: models.CallbackMetadata{
			Items: []models.CallbackItem{
				{Name: "Amount", Value: float64(4502)},
				{Name: "MpesaReceiptNumber", Value: "QKK1XY9TRF"},
				{Name: "PhoneNumber", Value: float64(254712345678)},
				{Name: "BillAccountRef", Value: accountRef},
			},
		},
	}
	return env
}

func failureEnvelope(accountRef string, code int) *models.StkCallbackEnvelope {
	env := &models.StkCallbackEnvelope{}
	env.Body.StkCallback = models.StkCallback{
		MerchantRequestID: "m-1",
		CheckoutRequestID: "c-1",
		ResultCode:        code,
		ResultDesc:        "Request cancelled by user",
		CallbackMetadata: models.CallbackMetadata{
			Items: []models.CallbackItem{
				{Name: "BillAccountRef", Value: accountRef},
			},
		},
	}
	return env
}

func TestProcessSuccessSettlesBooking(t *testing.T) {
	st := pendingFixture()
	pub := &fakePaymentPublisher{}
	cs := NewCallbackService(st, pub, nil)

	ack, err := cs.Process(context.Background(), successEnvelope("42"))
	require.NoError(t, err)
	assert.Equal(t, 0, ack.ResultCode)

	assert.Equal(t, models.PaymentStatusPaid, st.booking.PaymentStatus)
	require.NotNil(t, st.booking.MpesaReceipt)
	assert.Equal(t, "QKK1XY9TRF", *st.booking.MpesaReceipt)
	require.NotNil(t, st.booking.AmountPaid)
	assert.Equal(t, float64(4502), *st.booking.AmountPaid)
	require.NotNil(t, st.booking.PhoneNumberPaid)
	assert.Equal(t, "254712345678", *st.booking.PhoneNumberPaid)
	assert.Equal(t, 8, st.tour.CurrentParticipants)

	require.Len(t, pub.confirmed, 1)
	assert.Equal(t, int64(42), pub.confirmed[0].BookingID)
	assert.Equal(t, "jane@example.com", pub.confirmed[0].CustomerEmail)
}

func TestProcessRedeliveryIsNoOp(t *testing.T) {
	st := pendingFixture()
	pub := &fakePaymentPublisher{}
	cs := NewCallbackService(st, pub, nil)

	_, err := cs.Process(context.Background(), successEnvelope("42"))
	require.NoError(t, err)

	ack, err := cs.Process(context.Background(), successEnvelope("42"))
	require.NoError(t, err)
	assert.Equal(t, 0, ack.ResultCode)
	assert.Equal(t, "Already processed", ack.ResultDesc)

	// Seats counted exactly once, one notification
	assert.Equal(t, 8, st.tour.CurrentParticipants)
	assert.Len(t, pub.confirmed, 1)
}

func TestProcessUnknownBooking(t *testing.T) {
	st := pendingFixture()
	cs := NewCallbackService(st, &fakePaymentPublisher{}, nil)

	ack, err := cs.Process(context.Background(), successEnvelope("999"))
	require.NoError(t, err)
	assert.Equal(t, 1, ack.ResultCode)

	assert.Equal(t, models.PaymentStatusPending, st.booking.PaymentStatus)
	assert.Equal(t, 5, st.tour.CurrentParticipants)
}

func TestProcessFailureRecordsFailedStatus(t *testing.T) {
	st := pendingFixture()
	pub := &fakePaymentPublisher{}
	cs := NewCallbackService(st, pub, nil)

	ack, err := cs.Process(context.Background(), failureEnvelope("42", 1032))
	require.NoError(t, err)
	assert.Equal(t, 0, ack.ResultCode)

	assert.Equal(t, models.PaymentStatusFailed, st.booking.PaymentStatus)
	assert.Equal(t, 5, st.tour.CurrentParticipants)

	require.Len(t, pub.failed, 1)
	assert.Equal(t, 1032, pub.failed[0].ResultCode)
}

func TestProcessFailureAfterPaidIsIgnored(t *testing.T) {
	st := pendingFixture()
	cs := NewCallbackService(st, &fakePaymentPublisher{}, nil)

	_, err := cs.Process(context.Background(), successEnvelope("42"))
	require.NoError(t, err)

	// Late out-of-order failure must not clobber the paid booking
	ack, err := cs.Process(context.Background(), failureEnvelope("42", 1032))
	require.NoError(t, err)
	assert.Equal(t, 0, ack.ResultCode)
	assert.Equal(t, models.PaymentStatusPaid, st.booking.PaymentStatus)
}

func TestProcessBadAccountReference(t *testing.T) {
	st := pendingFixture()
	cs := NewCallbackService(st, &fakePaymentPublisher{}, nil)

	ack, err := cs.Process(context.Background(), successEnvelope("not-a-number"))
	require.NoError(t, err)
	assert.Equal(t, 1, ack.ResultCode)
	assert.Equal(t, 0, st.paidCalls)
}

func TestProcessNumericAccountReference(t *testing.T) {
	// Some provider versions send the reference as a JSON number
	st := pendingFixture()
	cs := NewCallbackService(st, &fakePaymentPublisher{}, nil)

	ack, err := cs.Process(context.Background(), successEnvelope(float64(42)))
	require.NoError(t, err)
	assert.Equal(t, 0, ack.ResultCode)
	assert.Equal(t, models.PaymentStatusPaid, st.booking.PaymentStatus)
}

func TestProcessDatabaseErrorSignalsRetry(t *testing.T) {
	st := pendingFixture()
	st.err = errors.New("connection reset")
	cs := NewCallbackService(st, &fakePaymentPublisher{}, nil)

	ack, err := cs.Process(context.Background(), successEnvelope("42"))
	require.Error(t, err)
	assert.Equal(t, 1, ack.ResultCode)
}
