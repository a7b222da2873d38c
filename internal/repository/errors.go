// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// ledger and handlers to distinguish between different failure scenarios
// without string-matching driver messages.
package repository

import "errors"

// ErrSessionNotFound indicates that no session row matched the lookup.
var ErrSessionNotFound = errors.New("session not found")

// ErrReservationNotFound indicates that no reservation row matched the
// lookup.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrRoomNotFound indicates that the rooms table has no row for the
// requested sub-room number.
var ErrRoomNotFound = errors.New("room not found")

// ErrDuplicateReservation is returned when an insert hits the unique
// (session_id, user_id) constraint. Callers treat this as an idempotent
// success, never as a failure.
var ErrDuplicateReservation = errors.New("reservation already exists")
