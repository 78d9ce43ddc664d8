package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Total number of orders placed through checkout",
	})

	CheckoutsReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_replayed_total",
		Help: "Checkouts answered with an existing order for a repeated idempotency key",
	})

	CheckoutsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of the checkout transaction",
		Buckets: prometheus.DefBuckets,
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of orders cancelled by customers",
	})

	OrderItemTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_item_transitions_total",
		Help: "Order item status changes made by sellers",
	}, []string{"from", "to"})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Units of stock taken or given back by status transitions",
	}, []string{"effect"})

	StockAdjustmentsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_failed_total",
		Help: "Status transitions rejected while adjusting stock",
	}, []string{"reason"})

	CartClampedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_clamped_total",
		Help: "Cart writes reduced to the available stock",
	})

	ReviewsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviews_submitted_total",
		Help: "Product reviews stored, by rating",
	}, []string{"rating"})

	MessagesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_sent_total",
		Help: "Messages sent, by sender role",
	}, []string{"sender_type"})

	RealtimeNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_notifications_total",
		Help: "Notifications fanned out to realtime subscribers",
	}, []string{"type"})

	AuthEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_events_total",
		Help: "Sign-in and sign-out events",
	}, []string{"event", "role"})

	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uploads_total",
		Help: "Files stored, by kind",
	}, []string{"kind"})

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
