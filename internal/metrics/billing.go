package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookEventsTotal,
		webhookAnomaliesTotal,
		checkoutSessionsTotal,
		eventPublishFailuresTotal,
	)
}

// Webhook outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeSkipped   = "skipped"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prepme_billing_webhook_events_total",
			Help: "Billing webhook deliveries by event type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	webhookAnomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prepme_billing_webhook_anomalies_total",
			Help: "Authentic subscription events that could not be applied to any user.",
		},
		[]string{"reason"},
	)

	checkoutSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prepme_billing_checkout_sessions_total",
			Help: "Checkout sessions by variant (user/email) and result.",
		},
		[]string{"variant", "result"},
	)

	eventPublishFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prepme_subscription_event_publish_failures_total",
			Help: "Subscription-change notifications that could not be published.",
		},
	)
)

func IncWebhookEvent(eventType, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	webhookEventsTotal.WithLabelValues(norm(eventType), norm(outcome)).Inc()
}

func IncWebhookAnomaly(reason string) {
	webhookAnomaliesTotal.WithLabelValues(norm(reason)).Inc()
}

func IncCheckoutSession(variant, result string) {
	checkoutSessionsTotal.WithLabelValues(norm(variant), norm(result)).Inc()
}

func IncPublishFailure() {
	eventPublishFailuresTotal.Inc()
}
