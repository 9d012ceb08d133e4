// Package telemetry exposes Prometheus metrics for business-level
// observability: order flow, payment outcomes, webhook health, and the
// stock anomalies operators need to chase.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability.
type BusinessMetrics struct {
	// Orders
	OrdersCreated   *prometheus.CounterVec
	OrdersCancelled prometheus.Counter
	OrderValue      prometheus.Histogram

	// Payments
	PaymentsSucceeded *prometheus.CounterVec
	PaymentsFailed    *prometheus.CounterVec
	RevenueCollected  prometheus.Counter

	// Stock
	StockConflicts prometheus.Counter
	StockAnomalies prometheus.Counter

	// Coupons
	CouponRedemptions *prometheus.CounterVec
	CouponAnomalies   prometheus.Counter

	// Webhooks
	WebhookReceived  *prometheus.CounterVec
	WebhookProcessed *prometheus.CounterVec
	WebhookFailed    *prometheus.CounterVec

	// Email delivery
	EmailSent   *prometheus.CounterVec
	EmailFailed *prometheus.CounterVec
}

// NewBusinessMetrics creates and registers all business metrics.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "verdant"
	}

	subsystem := "business"

	m := &BusinessMetrics{
		OrdersCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Total orders created",
			},
			[]string{"payment_method"}, // cod, online
		),
		OrdersCancelled: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_cancelled_total",
				Help:      "Total orders cancelled by shoppers",
			},
		),
		OrderValue: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_cents",
				Help:      "Final order totals in cents",
				Buckets:   []float64{10000, 25000, 50000, 100000, 250000, 500000, 1000000},
			},
		),
		PaymentsSucceeded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payments_succeeded_total",
				Help:      "Total payment confirmations applied",
			},
			[]string{"provider"}, // stripe, razorpay
		),
		PaymentsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payments_failed_total",
				Help:      "Total payment confirmations rejected",
			},
			[]string{"provider"},
		),
		RevenueCollected: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "revenue_collected_cents_total",
				Help:      "Total revenue collected via online payments, in cents",
			},
		),
		StockConflicts: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_conflicts_total",
				Help:      "Checkouts rejected because stock ran out under the cart",
			},
		),
		StockAnomalies: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stock_anomalies_total",
				Help:      "Paid orders whose stock decrement came up short",
			},
		),
		CouponRedemptions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "coupon_redemptions_total",
				Help:      "Coupons redeemed on settled orders",
			},
			[]string{"code"},
		),
		CouponAnomalies: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "coupon_anomalies_total",
				Help:      "Paid orders whose coupon hit its limit before settlement",
			},
		),
		WebhookReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_received_total",
				Help:      "Total webhook deliveries received",
			},
			[]string{"provider", "event_type"},
		),
		WebhookProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_processed_total",
				Help:      "Total webhook deliveries processed successfully",
			},
			[]string{"provider", "event_type"},
		),
		WebhookFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_failed_total",
				Help:      "Total webhook deliveries that failed verification or processing",
			},
			[]string{"provider", "reason"}, // signature, payload, processing
		),
		EmailSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "emails_sent_total",
				Help:      "Total emails sent by type",
			},
			[]string{"email_type"}, // order_confirmation, order_cancelled
		),
		EmailFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "emails_failed_total",
				Help:      "Total email delivery failures",
			},
			[]string{"email_type"},
		),
	}

	return m
}

// Global instance for easy access from handlers and services.
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance.
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}
