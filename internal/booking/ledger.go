// Package booking holds the reservation ledger, the single authority
// allowed to create reservation rows. Every write path (paid webhook,
// free signup, admin action) funnels through Reserve so that the
// capacity invariant and the (session, participant) uniqueness
// constraint are enforced in exactly one place.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"roomreserve/internal/capacity"
	"roomreserve/internal/model"
	"roomreserve/internal/repository"
)

// GracePeriod is how long after a session's start instant paid
// reservations are still accepted. A webhook that lands later than this
// is refunded instead of seated.
const GracePeriod = 5 * time.Minute

// Outcome is the typed result of a reservation attempt. Capacity,
// window and duplicate conditions are expected business states that
// callers branch on, not errors.
type Outcome int

const (
	// OutcomeUnknown is the zero value. It is only ever returned
	// alongside a non-nil error, so the enum's zero never masquerades
	// as a successful booking.
	OutcomeUnknown Outcome = iota
	// Booked means a new reservation row was created.
	Booked
	// AlreadyBooked means the participant already held a seat; treated
	// as success so retried calls stay idempotent.
	AlreadyBooked
	// CapacityExceeded means the session's effective capacity is full.
	CapacityExceeded
	// WindowClosed means the reservation window (start + grace) has passed.
	WindowClosed
	// SessionNotFound means the session does not exist or is not scheduled.
	SessionNotFound
)

func (o Outcome) String() string {
	switch o {
	case Booked:
		return "booked"
	case AlreadyBooked:
		return "already_booked"
	case CapacityExceeded:
		return "capacity_exceeded"
	case WindowClosed:
		return "window_closed"
	case SessionNotFound:
		return "session_not_found"
	}
	return "unknown"
}

// Reserved reports whether the outcome means the participant holds a seat.
func (o Outcome) Reserved() bool { return o == Booked || o == AlreadyBooked }

// Decide applies the ledger's admission policy to a loaded session and
// its current reservation count. Pure; the transactional wrapper in
// Reserve supplies consistent inputs.
func Decide(sess *model.Session, reserved int, now time.Time) Outcome {
	if sess.Status != model.SessionScheduled {
		return SessionNotFound
	}
	if now.After(sess.StartsAt.Add(GracePeriod)) {
		return WindowClosed
	}
	if reserved >= capacity.Total(sess.PriceCents, sess.SeatCap) {
		return CapacityExceeded
	}
	return Booked
}

// Ledger performs atomic check-and-insert reservation attempts.
type Ledger struct {
	db           *sql.DB
	sessions     *repository.SessionRepo
	reservations *repository.ReservationRepo
	now          func() time.Time
}

// NewLedger constructs a Ledger. The repositories must share the given
// DB handle so the reserve transaction can span both.
func NewLedger(db *sql.DB, sessions *repository.SessionRepo, reservations *repository.ReservationRepo) *Ledger {
	if db == nil || sessions == nil || reservations == nil {
		panic("nil dependency passed to NewLedger")
	}
	return &Ledger{db: db, sessions: sessions, reservations: reservations, now: func() time.Time { return time.Now().UTC() }}
}

// Reserve attempts to create a reservation for (sessionID, userID) and
// returns a typed outcome. The whole check-and-insert runs in one
// transaction with the session row locked, so concurrent callers for
// the same session serialize on the store rather than racing the
// capacity check. It has no email or scheduling side effects.
func (l *Ledger) Reserve(ctx context.Context, sessionID uint64, userID string) (Outcome, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return OutcomeUnknown, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sess, err := l.sessions.GetForUpdateTx(ctx, tx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return SessionNotFound, nil
		}
		return OutcomeUnknown, err
	}
	count, err := l.reservations.CountBySessionTx(ctx, tx, sessionID)
	if err != nil {
		return OutcomeUnknown, err
	}
	outcome := Decide(sess, count, l.now())
	if outcome != Booked {
		// Full or closed: a participant who already holds a seat still
		// gets an idempotent success.
		if outcome == CapacityExceeded || outcome == WindowClosed {
			exists, eerr := l.reservations.ExistsTx(ctx, tx, sessionID, userID)
			if eerr != nil {
				return OutcomeUnknown, eerr
			}
			if exists {
				return AlreadyBooked, nil
			}
		}
		return outcome, nil
	}

	if _, err := l.reservations.InsertTx(ctx, tx, sessionID, userID); err != nil {
		if errors.Is(err, repository.ErrDuplicateReservation) {
			return AlreadyBooked, nil
		}
		return OutcomeUnknown, err
	}
	if err := tx.Commit(); err != nil {
		return OutcomeUnknown, err
	}
	committed = true
	return Booked, nil
}
