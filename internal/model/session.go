package model

import "time"

// Session statuses as stored in the sessions.status column.
const (
	SessionScheduled = "scheduled"
	SessionCancelled = "cancelled"
	SessionCompleted = "completed"
)

// Session represents a scheduled, time-boxed virtual writing room.
// Participants reserve a seat ahead of time and are split across
// capacity-limited sub-rooms at join time unless the session carries
// a single-room override link.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – display title of the session.
//  StartsAt        – UTC instant when the session begins.
//  DurationMinutes – length of the session (must be > 0).
//  SeatCap         – per-sub-room seat cap (must be >= 1).
//  Status          – scheduled, cancelled or completed.
//  PriceCents      – price in minor currency units; 0 means free.
//  RoomLink        – optional single-room override link; when set every
//                    participant joins through this link.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Session struct {
	ID              uint64    // sessions.id
	Title           string    // sessions.title
	StartsAt        time.Time // sessions.starts_at (UTC)
	DurationMinutes int       // sessions.duration_minutes
	SeatCap         int       // sessions.seat_cap
	Status          string    // sessions.status
	PriceCents      int       // sessions.price_cents
	RoomLink        *string   // sessions.room_link (nullable)
	CreatedAt       time.Time // sessions.created_at
	UpdatedAt       time.Time // sessions.updated_at
}

// EndsAt returns the UTC instant when the session ends.
func (s *Session) EndsAt() time.Time {
	return s.StartsAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Free reports whether the session requires no payment to reserve.
func (s *Session) Free() bool { return s.PriceCents == 0 }
