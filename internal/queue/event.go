// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationConfirmedEvent is published when the ledger creates a new
// reservation. It carries enough information for downstream consumers
// to log, notify, or trigger analytics without querying the primary
// database.
type ReservationConfirmedEvent struct {
	EventID       string `json:"event_id"`
	ReservationID uint64 `json:"reservation_id"`
	SessionID     uint64 `json:"session_id"`
	UserID        string `json:"user_id"`
	SessionTitle  string `json:"session_title"`
	StartsAt      string `json:"starts_at"`
	PriceCents    int    `json:"price_cents"`
	Source        string `json:"source"` // "payment" or "free"
	ConfirmedAt   string `json:"confirmed_at"`
}
