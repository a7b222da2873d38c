package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"roomreserve/internal/model"
)

func scheduledSession(priceCents, seatCap int, startsAt time.Time) *model.Session {
	return &model.Session{
		ID:              42,
		Title:           "Sketch Workshop",
		StartsAt:        startsAt,
		DurationMinutes: 90,
		SeatCap:         seatCap,
		Status:          model.SessionScheduled,
		PriceCents:      priceCents,
	}
}

func TestDecideBooked(t *testing.T) {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	sess := scheduledSession(100, 5, start)

	// Community tier: 5 sub-rooms of 5 = 25 seats.
	assert.Equal(t, Booked, Decide(sess, 0, start.Add(-time.Hour)))
	assert.Equal(t, Booked, Decide(sess, 24, start.Add(-time.Hour)))
	assert.Equal(t, CapacityExceeded, Decide(sess, 25, start.Add(-time.Hour)))
}

func TestDecideProCapacity(t *testing.T) {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	sess := scheduledSession(500, 5, start)

	assert.Equal(t, Booked, Decide(sess, 4, start.Add(-time.Hour)))
	assert.Equal(t, CapacityExceeded, Decide(sess, 5, start.Add(-time.Hour)))
}

func TestDecideWindow(t *testing.T) {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	sess := scheduledSession(100, 5, start)

	// Reservations stay open through the 5 minute grace period.
	assert.Equal(t, Booked, Decide(sess, 0, start))
	assert.Equal(t, Booked, Decide(sess, 0, start.Add(4*time.Minute+59*time.Second)))
	assert.Equal(t, Booked, Decide(sess, 0, start.Add(5*time.Minute)))
	assert.Equal(t, WindowClosed, Decide(sess, 0, start.Add(6*time.Minute)))
}

func TestDecideWindowBeatsCapacity(t *testing.T) {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	sess := scheduledSession(100, 1, start)

	// A late attempt against a full session reports the window, not the
	// capacity: the seat question is moot once the window has closed.
	assert.Equal(t, WindowClosed, Decide(sess, 5, start.Add(10*time.Minute)))
}

func TestDecideNotScheduled(t *testing.T) {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	for _, status := range []string{model.SessionCancelled, model.SessionCompleted} {
		sess := scheduledSession(100, 5, start)
		sess.Status = status
		assert.Equal(t, SessionNotFound, Decide(sess, 0, start.Add(-time.Hour)), status)
	}
}

func TestOutcomeZeroValueIsNotASeat(t *testing.T) {
	// The zero value must never read as a successful booking; error
	// paths return it alongside a non-nil error.
	var o Outcome
	assert.Equal(t, OutcomeUnknown, o)
	assert.False(t, o.Reserved())
	assert.Equal(t, "unknown", o.String())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "booked", Booked.String())
	assert.Equal(t, "already_booked", AlreadyBooked.String())
	assert.Equal(t, "capacity_exceeded", CapacityExceeded.String())
	assert.Equal(t, "window_closed", WindowClosed.String())
	assert.Equal(t, "session_not_found", SessionNotFound.String())
}

func TestOutcomeReserved(t *testing.T) {
	assert.True(t, Booked.Reserved())
	assert.True(t, AlreadyBooked.Reserved())
	assert.False(t, CapacityExceeded.Reserved())
	assert.False(t, WindowClosed.Reserved())
	assert.False(t, SessionNotFound.Reserved())
}
