package model

import "time"

// Reservation records that a participant holds a seat in a session.
// At most one reservation exists per (session, participant) pair; the
// uniqueness constraint on (session_id, user_id) is what makes the
// ledger's insert double as its idempotency check. Email, reminder
// schedule and timezone are filled best-effort after creation by the
// payment reconciler. CreatedAt defines roster order for room
// assignment.
type Reservation struct {
	ID               uint64     // reservations.id
	SessionID        uint64     // reservations.session_id
	UserID           string     // reservations.user_id
	UserEmail        *string    // reservations.user_email (nullable)
	Reminder24hAt    *time.Time // reservations.reminder_24h_at (nullable)
	Reminder24hSent  bool       // reservations.reminder_24h_sent
	Reminder1hAt     *time.Time // reservations.reminder_1h_at (nullable)
	Reminder1hSent   bool       // reservations.reminder_1h_sent
	ConfirmationSent bool       // reservations.confirmation_sent
	Timezone         *string    // reservations.timezone (nullable)
	CreatedAt        time.Time  // reservations.created_at
}
