// Package capacity computes a session's effective seat capacity and
// whether its participants split across several sub-rooms. These are
// pure functions of session attributes; every other component (ledger,
// resolver, catalog) derives capacity through this package instead of
// re-implementing the policy.
package capacity

// ProThresholdCents is the price at or above which a session is a
// moderated single-room ("pro") session. Cheaper sessions are community
// sessions whose participants auto-split across sub-rooms.
const ProThresholdCents = 450

// FanOut is the number of sub-rooms a split session fans out to.
const FanOut = 5

// Mode describes how a session's participants are roomed.
type Mode int

const (
	// Split sessions distribute participants across FanOut sub-rooms.
	Split Mode = iota
	// Single sessions keep everyone in one room.
	Single
)

// ModeFor returns the rooming mode implied by a session's price tier.
func ModeFor(priceCents int) Mode {
	if priceCents >= ProThresholdCents {
		return Single
	}
	return Split
}

// Total returns the effective total capacity for a session given its
// price tier and per-sub-room seat cap.
func Total(priceCents, seatCap int) int {
	if ModeFor(priceCents) == Single {
		return seatCap
	}
	return seatCap * FanOut
}

// SubRooms returns how many sub-rooms a session uses.
func SubRooms(priceCents int) int {
	if ModeFor(priceCents) == Single {
		return 1
	}
	return FanOut
}

// TierLabel returns the human-readable tier name shown in the catalog.
func TierLabel(priceCents int) string {
	if ModeFor(priceCents) == Single {
		return "pro"
	}
	return "community"
}
