package payment

import (
	"context"
	"log"
	"strconv"
	"time"

	"roomreserve/internal/booking"
	"roomreserve/internal/mailer"
	"roomreserve/internal/model"
	"roomreserve/internal/queue"
	"roomreserve/internal/repository"
)

// Reserver is the slice of the ledger the reconciler drives.
type Reserver interface {
	Reserve(ctx context.Context, sessionID uint64, userID string) (booking.Outcome, error)
}

// SessionSource loads session definitions for the independent window
// re-check.
type SessionSource interface {
	GetByID(ctx context.Context, id uint64) (*model.Session, error)
}

// ReservationStore covers the post-booking enrichment writes.
type ReservationStore interface {
	GetBySessionAndUser(ctx context.Context, sessionID uint64, userID string) (*model.Reservation, error)
	UpdateEnrichment(ctx context.Context, id uint64, email, timezone *string, reminder24h, reminder1h *time.Time) error
	MarkConfirmationSent(ctx context.Context, id uint64) (bool, error)
}

// Refunder issues refunds against a payment reference. The production
// Gateway satisfies it.
type Refunder interface {
	Refund(ctx context.Context, paymentRef, idempotencyKey string) error
}

// OccupancyInvalidator drops cached seat counts after any attempt.
type OccupancyInvalidator interface {
	Invalidate(ctx context.Context, sessionID uint64)
}

// EventPublisher announces confirmed reservations on the broker.
type EventPublisher interface {
	PublishReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error
}

// Disposition summarizes how the reconciler handled one event. All
// dispositions map to a 200 response; only a returned error asks the
// gateway to retry.
type Disposition string

const (
	DispositionIgnored       Disposition = "ignored"
	DispositionBooked        Disposition = "booked"
	DispositionDuplicate     Disposition = "duplicate"
	DispositionRefunded      Disposition = "refunded"
	DispositionRefundSkipped Disposition = "refund_skipped"
)

// Reconciler turns at-least-once payment completion events into
// exactly-once reservation outcomes. Replays of one event can never
// create two reservations (unique constraint), two refunds (gateway
// idempotency key derived from the event id) or two confirmation
// emails (confirmation_sent flag).
type Reconciler struct {
	sessions     SessionSource
	reservations ReservationStore
	ledger       Reserver
	gateway      Refunder
	mail         mailer.Sender
	occupancy    OccupancyInvalidator
	events       EventPublisher
	siteURL      string
	now          func() time.Time
}

// NewReconciler wires the reconciler. occupancy, mail and events may be
// nil; the corresponding step becomes a no-op.
func NewReconciler(sessions SessionSource, reservations ReservationStore, ledger Reserver,
	gateway Refunder, mail mailer.Sender, occupancy OccupancyInvalidator, events EventPublisher, siteURL string) *Reconciler {
	if sessions == nil || reservations == nil || ledger == nil || gateway == nil {
		panic("nil dependency passed to NewReconciler")
	}
	return &Reconciler{
		sessions:     sessions,
		reservations: reservations,
		ledger:       ledger,
		gateway:      gateway,
		mail:         mail,
		occupancy:    occupancy,
		events:       events,
		siteURL:      siteURL,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// HandleEvent processes one verified gateway event. A nil error means
// the event is settled and the gateway should stop retrying; an error
// means a transient failure the gateway must redeliver.
func (r *Reconciler) HandleEvent(ctx context.Context, ev *Event) (Disposition, error) {
	if ev.Kind != KindCheckoutCompleted {
		return DispositionIgnored, nil
	}
	co := &ev.Checkout
	if co.PaymentStatus != "paid" {
		log.Printf("reconciler: ignoring event %s with payment_status=%q", ev.ID, co.PaymentStatus)
		return DispositionIgnored, nil
	}
	if co.Metadata.UserID == "" || co.Metadata.SessionID == "" {
		log.Printf("reconciler: ignoring event %s without correlation metadata", ev.ID)
		return DispositionIgnored, nil
	}
	sessionID, err := strconv.ParseUint(co.Metadata.SessionID, 10, 64)
	if err != nil {
		log.Printf("reconciler: ignoring event %s with malformed session id %q", ev.ID, co.Metadata.SessionID)
		return DispositionIgnored, nil
	}
	if r.occupancy != nil {
		defer r.occupancy.Invalidate(ctx, sessionID)
	}

	sess, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			// Paid for a session that no longer exists; nothing to seat.
			return r.refund(ctx, ev)
		}
		return "", err
	}
	// Re-check the window before touching the ledger: a webhook that
	// arrives after start+grace must refund, not seat, even though the
	// ledger would also reject it.
	if r.now().After(sess.StartsAt.Add(booking.GracePeriod)) {
		return r.refund(ctx, ev)
	}

	outcome, err := r.ledger.Reserve(ctx, sessionID, co.Metadata.UserID)
	if err != nil {
		return "", err
	}
	switch outcome {
	case booking.Booked, booking.AlreadyBooked:
		r.enrich(ctx, sess, ev)
		if outcome == booking.Booked {
			r.announce(ctx, sess, ev)
			return DispositionBooked, nil
		}
		return DispositionDuplicate, nil
	case booking.CapacityExceeded, booking.WindowClosed, booking.SessionNotFound:
		return r.refund(ctx, ev)
	}
	return "", nil
}

// refund compensates a payment that cannot be seated. The idempotency
// key is derived from the event id so redelivery of the same event
// collapses to one refund. A missing payment reference is logged and
// settled rather than retried forever.
func (r *Reconciler) refund(ctx context.Context, ev *Event) (Disposition, error) {
	ref := ev.Checkout.PaymentIntent
	if ref == "" {
		log.Printf("reconciler: event %s has no payment reference; skipping refund", ev.ID)
		return DispositionRefundSkipped, nil
	}
	if err := r.gateway.Refund(ctx, ref, "refund-"+ev.ID); err != nil {
		// Surface a retryable failure; dropping the refund silently is
		// the one thing this handler must never do.
		return "", err
	}
	log.Printf("reconciler: refunded payment %s for event %s", ref, ev.ID)
	return DispositionRefunded, nil
}

// enrich fills in the participant's email and timezone, schedules the
// reminder milestones that still lie in the future, and sends the
// confirmation email at most once. Enrichment is best effort: failures
// are logged, never turned into gateway retries.
func (r *Reconciler) enrich(ctx context.Context, sess *model.Session, ev *Event) {
	res, err := r.reservations.GetBySessionAndUser(ctx, sess.ID, ev.Checkout.Metadata.UserID)
	if err != nil {
		log.Printf("reconciler: load reservation for enrichment failed: %v", err)
		return
	}

	var email, tz *string
	if v := ev.Checkout.Metadata.Email; v != "" {
		email = &v
	} else if v := ev.Checkout.CustomerDetails.Email; v != "" {
		email = &v
	}
	if v := ev.Checkout.Metadata.Timezone; v != "" {
		tz = &v
	}
	now := r.now()
	var r24, r1 *time.Time
	if t := sess.StartsAt.Add(-24 * time.Hour); t.After(now) {
		r24 = &t
	}
	if t := sess.StartsAt.Add(-time.Hour); t.After(now) {
		r1 = &t
	}
	if err := r.reservations.UpdateEnrichment(ctx, res.ID, email, tz, r24, r1); err != nil {
		log.Printf("reconciler: enrichment update failed for reservation %d: %v", res.ID, err)
	}

	if r.mail == nil || res.ConfirmationSent {
		return
	}
	to := ""
	if email != nil {
		to = *email
	} else if res.UserEmail != nil {
		to = *res.UserEmail
	}
	if !mailer.ValidEmail(to) {
		log.Printf("reconciler: no valid email for reservation %d; confirmation not sent", res.ID)
		return
	}
	html := mailer.ConfirmationHTML(sess.Title, sess.StartsAt, tz, r.siteURL)
	if err := r.mail.Send(ctx, to, mailer.ConfirmationSubject(sess.Title), html); err != nil {
		log.Printf("reconciler: confirmation send failed for reservation %d: %v", res.ID, err)
		return
	}
	if _, err := r.reservations.MarkConfirmationSent(ctx, res.ID); err != nil {
		log.Printf("reconciler: marking confirmation sent failed for reservation %d: %v", res.ID, err)
	}
}

// announce publishes the confirmed reservation on the broker, best
// effort.
func (r *Reconciler) announce(ctx context.Context, sess *model.Session, ev *Event) {
	if r.events == nil {
		return
	}
	res, err := r.reservations.GetBySessionAndUser(ctx, sess.ID, ev.Checkout.Metadata.UserID)
	if err != nil {
		log.Printf("reconciler: load reservation for announce failed: %v", err)
		return
	}
	_ = r.events.PublishReservationConfirmed(ctx, queue.ReservationConfirmedEvent{
		EventID:       ev.ID,
		ReservationID: res.ID,
		SessionID:     sess.ID,
		UserID:        res.UserID,
		SessionTitle:  sess.Title,
		StartsAt:      sess.StartsAt.Format(time.RFC3339),
		PriceCents:    sess.PriceCents,
		Source:        "payment",
		ConfirmedAt:   r.now().Format(time.RFC3339),
	})
}
