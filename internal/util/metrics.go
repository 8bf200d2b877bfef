package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings placed",
	})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of rejected booking attempts",
	}, []string{"reason"})

	PaymentsInitiatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_initiated_total",
		Help: "Total number of STK push requests accepted by the gateway",
	})

	PaymentInitiationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_initiation_failures_total",
		Help: "Total number of failed STK push attempts",
	}, []string{"reason"})

	GatewayTokenRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_token_requests_total",
		Help: "Total number of OAuth token fetches from the payment gateway",
	})

	CallbacksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_received_total",
		Help: "Total number of payment callbacks received",
	}, []string{"outcome"})

	CallbackRedeliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_callback_redeliveries_total",
		Help: "Total number of callbacks received for already-settled bookings",
	})

	ReconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliations_total",
		Help: "Total number of booking state transitions applied by the reconciler",
	}, []string{"outcome"})

	EmailsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Total number of emails sent",
	})

	EmailsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emails_failed_total",
		Help: "Total number of email sends that failed",
	})

	StkPushLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stk_push_latency_seconds",
		Help:    "Latency of STK push gateway calls",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
