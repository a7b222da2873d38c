package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_attempts_total",
			Help: "Reservation attempts by ledger outcome",
		},
		[]string{"outcome", "source"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Payment webhook events by disposition",
		},
		[]string{"disposition"},
	)

	webhookRejects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_webhook_rejects_total",
			Help: "Webhook requests rejected for a bad signature",
		},
	)

	refundsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_refunds_total",
			Help: "Refunds issued for payments that could not be seated",
		},
	)

	remindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_emails_total",
			Help: "Reminder sweep results per milestone",
		},
		[]string{"milestone", "result"},
	)

	joinRedirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "join_redirects_total",
			Help: "Join link resolutions by result",
		},
		[]string{"result"},
	)
)

// TrackReservation records one ledger attempt. source is "payment" for
// webhook-driven bookings and "direct" for the authenticated endpoint.
func TrackReservation(outcome, source string) {
	reservationAttempts.WithLabelValues(outcome, source).Inc()
}

// TrackWebhook records one verified webhook event by its disposition.
func TrackWebhook(disposition string) {
	webhookEvents.WithLabelValues(disposition).Inc()
	if disposition == "refunded" {
		refundsIssued.Inc()
	}
}

// TrackWebhookReject records a request that failed signature verification.
func TrackWebhookReject() {
	webhookRejects.Inc()
}

// TrackReminder records one reminder result ("sent", "skipped_late",
// "invalid_email" or "failed") for a milestone.
func TrackReminder(milestone, result string) {
	remindersSent.WithLabelValues(milestone, result).Inc()
}

// TrackJoin records a join attempt ("redirected", "not_reserved",
// "window_closed" or "not_found").
func TrackJoin(result string) {
	joinRedirects.WithLabelValues(result).Inc()
}
