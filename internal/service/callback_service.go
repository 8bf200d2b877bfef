package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tour-booking-service/internal/models"
	"tour-booking-service/internal/store"
	"tour-booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Callback metadata item names used by the provider
const (
	metaAmount     = "Amount"
	metaReceipt    = "MpesaReceiptNumber"
	metaPhone      = "PhoneNumber"
	metaAccountRef = "BillAccountRef"
)

// ReconcilerStore is the persistence surface the reconciler needs. Both
// writes are guarded on the booking still being pending, which is what
// makes redelivered callbacks safe.
type ReconcilerStore interface {
	MarkBookingPaidTx(ctx context.Context, bookingID int64, receipt string, amount float64, phone string) (*models.BookingConfirmation, bool, error)
	MarkBookingFailed(ctx context.Context, bookingID int64) (bool, error)
}

// PaymentEventPublisher publishes settlement events for the
// notification worker
type PaymentEventPublisher interface {
	PublishPaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}

// ReceiptCache records receipts as they arrive so redelivered callbacks
// can be counted. Purely observational; the database guard is what
// enforces exactly-once.
type ReceiptCache interface {
	MarkReceiptSeen(ctx context.Context, receipt string) (bool, error)
}

// CallbackService reconciles asynchronous payment callbacks against
// pending bookings.
type CallbackService struct {
	store     ReconcilerStore
	publisher PaymentEventPublisher
	receipts  ReceiptCache
	logger    *zap.Logger
}

// NewCallbackService creates a new callback reconciler
func NewCallbackService(store ReconcilerStore, publisher PaymentEventPublisher, receipts ReceiptCache) *CallbackService {
	return &CallbackService{
		store:     store,
		publisher: publisher,
		receipts:  receipts,
		logger:    util.GetLogger(),
	}
}

type callbackMeta struct {
	amount     float64
	receipt    string
	phone      string
	accountRef string
}

// Process applies one callback. The returned ack always goes back to
// the provider; a non-nil error signals a persistence fault the caller
// should surface as HTTP 500 so the provider redelivers. Every other
// outcome, including handled failures, is HTTP 200 territory.
func (cs *CallbackService) Process(ctx context.Context, env *models.StkCallbackEnvelope) (*models.CallbackAck, error) {
	ctx, span := util.StartSpan(ctx, "CallbackService.Process")
	defer span.End()

	cb := env.Body.StkCallback
	meta := extractMetadata(cb.CallbackMetadata.Items)

	bookingID, err := strconv.ParseInt(meta.accountRef, 10, 64)
	if err != nil {
		util.CallbacksReceivedTotal.WithLabelValues("parse_error").Inc()
		cs.logger.Error("Callback carries no usable booking reference",
			zap.String("account_ref", meta.accountRef),
			zap.Int("result_code", cb.ResultCode))
		return &models.CallbackAck{ResultCode: 1, ResultDesc: "Invalid booking reference in callback"}, nil
	}

	if cb.ResultCode == 0 {
		return cs.settleSuccess(ctx, bookingID, cb, meta)
	}
	return cs.settleFailure(ctx, bookingID, cb)
}

func (cs *CallbackService) settleSuccess(ctx context.Context, bookingID int64, cb models.StkCallback, meta callbackMeta) (*models.CallbackAck, error) {
	if cs.receipts != nil && meta.receipt != "" {
		first, err := cs.receipts.MarkReceiptSeen(ctx, meta.receipt)
		if err != nil {
			cs.logger.Warn("Receipt cache unavailable", zap.Error(err))
		} else if !first {
			util.CallbackRedeliveriesTotal.Inc()
		}
	}

	conf, applied, err := cs.store.MarkBookingPaidTx(ctx, bookingID, meta.receipt, meta.amount, meta.phone)
	if errors.Is(err, store.ErrBookingNotFound) {
		util.CallbacksReceivedTotal.WithLabelValues("unknown_booking").Inc()
		cs.logger.Error("Successful callback for unknown booking", zap.Int64("booking_id", bookingID))
		return &models.CallbackAck{ResultCode: 1, ResultDesc: "Unknown booking"}, nil
	}
	if err != nil {
		util.CallbacksReceivedTotal.WithLabelValues("db_error").Inc()
		cs.logger.Error("Reconciliation transaction failed",
			zap.Int64("booking_id", bookingID),
			zap.Error(err))
		return &models.CallbackAck{ResultCode: 1, ResultDesc: "Database error"}, fmt.Errorf("reconciliation failed for booking %d: %w", bookingID, err)
	}

	if !applied {
		// Booking already terminal: a retried delivery, settled before.
		util.CallbacksReceivedTotal.WithLabelValues("duplicate").Inc()
		util.CallbackRedeliveriesTotal.Inc()
		cs.logger.Info("Callback for already-settled booking ignored", zap.Int64("booking_id", bookingID))
		return &models.CallbackAck{ResultCode: 0, ResultDesc: "Already processed"}, nil
	}

	util.CallbacksReceivedTotal.WithLabelValues("paid").Inc()
	util.ReconciliationsTotal.WithLabelValues("paid").Inc()
	cs.logger.Info("Booking settled as paid",
		zap.Int64("booking_id", bookingID),
		zap.String("receipt", meta.receipt),
		zap.Float64("amount", meta.amount))

	if cs.publisher != nil {
		event := &models.PaymentConfirmedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypePaymentConfirmed,
				Timestamp: time.Now(),
			},
			BookingID:       conf.BookingID,
			TourID:          conf.TourID,
			TourName:        conf.TourName,
			CustomerName:    conf.CustomerName,
			CustomerEmail:   conf.CustomerEmail,
			NumParticipants: conf.NumParticipants,
			MpesaReceipt:    meta.receipt,
			AmountPaid:      meta.amount,
			PhoneNumber:     meta.phone,
		}
		if err := cs.publisher.PublishPaymentConfirmed(ctx, event); err != nil {
			// Notification is best effort; the settlement stands.
			cs.logger.Error("Failed to publish PaymentConfirmed event",
				zap.Int64("booking_id", bookingID),
				zap.Error(err))
		}
	}

	return &models.CallbackAck{ResultCode: 0, ResultDesc: "Accepted"}, nil
}

func (cs *CallbackService) settleFailure(ctx context.Context, bookingID int64, cb models.StkCallback) (*models.CallbackAck, error) {
	applied, err := cs.store.MarkBookingFailed(ctx, bookingID)
	if errors.Is(err, store.ErrBookingNotFound) {
		util.CallbacksReceivedTotal.WithLabelValues("unknown_booking").Inc()
		cs.logger.Error("Failed-payment callback for unknown booking", zap.Int64("booking_id", bookingID))
		return &models.CallbackAck{ResultCode: 1, ResultDesc: "Unknown booking"}, nil
	}
	if err != nil {
		util.CallbacksReceivedTotal.WithLabelValues("db_error").Inc()
		cs.logger.Error("Failed to record payment failure",
			zap.Int64("booking_id", bookingID),
			zap.Error(err))
		return &models.CallbackAck{ResultCode: 1, ResultDesc: "Database error"}, fmt.Errorf("failure update failed for booking %d: %w", bookingID, err)
	}

	if !applied {
		util.CallbacksReceivedTotal.WithLabelValues("duplicate").Inc()
		util.CallbackRedeliveriesTotal.Inc()
		return &models.CallbackAck{ResultCode: 0, ResultDesc: "Already processed"}, nil
	}

	util.CallbacksReceivedTotal.WithLabelValues("failed").Inc()
	util.ReconciliationsTotal.WithLabelValues("failed").Inc()
	cs.logger.Warn("Booking settled as failed",
		zap.Int64("booking_id", bookingID),
		zap.Int("result_code", cb.ResultCode),
		zap.String("result_desc", cb.ResultDesc))

	if cs.publisher != nil {
		event := &models.PaymentFailedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypePaymentFailed,
				Timestamp: time.Now(),
			},
			BookingID:  bookingID,
			ResultCode: cb.ResultCode,
			Reason:     cb.ResultDesc,
		}
		if err := cs.publisher.PublishPaymentFailed(ctx, event); err != nil {
			cs.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
		}
	}

	return &models.CallbackAck{ResultCode: 0, ResultDesc: "Failure recorded"}, nil
}

func extractMetadata(items []models.CallbackItem) callbackMeta {
	var meta callbackMeta
	for _, item := range items {
		switch item.Name {
		case metaAmount:
			meta.amount = itemFloat(item.Value)
		case metaReceipt:
			meta.receipt = itemString(item.Value)
		case metaPhone:
			meta.phone = itemString(item.Value)
		case metaAccountRef:
			meta.accountRef = itemString(item.Value)
		}
	}
	return meta
}

// Metadata values arrive as strings or JSON numbers depending on the
// field and provider version.
func itemString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func itemFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}
