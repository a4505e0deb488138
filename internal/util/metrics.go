package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductsSyncedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "products_synced_total",
		Help: "Total number of products pushed to Stripe",
	}, []string{"environment", "action"})

	ProductSyncFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_sync_failures_total",
		Help: "Total number of failed product pushes",
	}, []string{"reason"})

	ConflictsDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_conflicts_detected_total",
		Help: "Total number of detected sync conflicts",
	}, []string{"field"})

	FullSyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "full_sync_duration_seconds",
		Help:    "Duration of full catalog sync runs",
		Buckets: prometheus.DefBuckets,
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events_total",
		Help: "Total number of Stripe webhook events received",
	}, []string{"type"})

	WebhookEventsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events_skipped_total",
		Help: "Total number of webhook events skipped",
	}, []string{"reason"})

	TokenRefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oauth_token_refreshes_total",
		Help: "Total number of successful OAuth token refreshes",
	})

	TokenRefreshFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oauth_token_refresh_failures_total",
		Help: "Total number of failed OAuth token refreshes",
	})

	StripeAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stripe_api_latency_seconds",
		Help:    "Latency of Stripe API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

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
