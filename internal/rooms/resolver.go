// Package rooms decides which sub-room a reserved participant belongs
// to. Assignment is a deterministic function of the session, the ordered
// roster of reservations and the clock; nothing is persisted. Before the
// session starts the assignment rebalances as people join; once the
// session has started, earlier participants keep the room they were
// given and late joiners are slotted into whatever space remains.
package rooms

import (
	"errors"
	"sort"
	"time"

	"roomreserve/internal/capacity"
	"roomreserve/internal/model"
)

// ErrNotReserved is returned when the participant holds no reservation
// for the session. Room assignment is a privilege of reservation.
var ErrNotReserved = errors.New("participant not reserved for session")

// ErrCapacityExceeded is returned when every sub-room is full and the
// participant cannot be placed.
var ErrCapacityExceeded = errors.New("session capacity exceeded")

// Assignment is the outcome of resolving a participant's room.
// When OverrideLink is non-empty the session runs as a single room
// behind that link and RoomNumber is zero. Otherwise RoomNumber is the
// 1-based sub-room the participant belongs to.
type Assignment struct {
	RoomNumber   int
	OverrideLink string
}

// Assign resolves the sub-room for userID in the given session.
//
// The roster is the full set of reservations for the session; order in
// the slice does not matter because entries are re-sorted by their
// store-recorded creation instant (ties broken by id), the only valid
// source of ordering truth under concurrent inserts.
//
// Balancing rule: before the session starts, participants are assigned
// round-robin over the ordered roster (index mod sub-room count), which
// keeps occupancy within one seat across rooms. At or after the start
// instant the pre-start portion of the roster is frozen at its
// round-robin slots and later joiners are first-fit into the
// lowest-numbered sub-room with a free seat.
func Assign(sess *model.Session, roster []model.Reservation, userID string, now time.Time) (Assignment, error) {
	if sess.RoomLink != nil && *sess.RoomLink != "" {
		// Single-room override: everyone shares one link, but only
		// reserved participants may resolve it.
		for i := range roster {
			if roster[i].UserID == userID {
				return Assignment{OverrideLink: *sess.RoomLink}, nil
			}
		}
		return Assignment{}, ErrNotReserved
	}

	ordered := make([]model.Reservation, len(roster))
	copy(ordered, roster)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	idx := -1
	for i := range ordered {
		if ordered[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Assignment{}, ErrNotReserved
	}

	n := capacity.SubRooms(sess.PriceCents)
	if now.Before(sess.StartsAt) {
		return Assignment{RoomNumber: idx%n + 1}, nil
	}
	return frozenAssign(sess, ordered, idx, n)
}

// frozenAssign computes the post-start assignment. Participants whose
// reservation predates the start keep the round-robin slot they had at
// start time; reservations created at or after the start fill remaining
// seats in creation order, lowest-numbered room first.
func frozenAssign(sess *model.Session, ordered []model.Reservation, idx, n int) (Assignment, error) {
	occupancy := make([]int, n)
	frozen := 0
	for i := range ordered {
		if !ordered[i].CreatedAt.Before(sess.StartsAt) {
			break
		}
		occupancy[i%n]++
		frozen++
	}
	if idx < frozen {
		return Assignment{RoomNumber: idx%n + 1}, nil
	}
	// Walk late joiners in order so that earlier ones claim seats
	// first. The walk never passes idx: either a seat runs out at or
	// before it, or the loop returns the assignment.
	for i := frozen; i <= idx; i++ {
		room := firstFit(occupancy, sess.SeatCap)
		if room == 0 {
			return Assignment{}, ErrCapacityExceeded
		}
		occupancy[room-1]++
		if i == idx {
			return Assignment{RoomNumber: room}, nil
		}
	}
	return Assignment{}, ErrCapacityExceeded
}

func firstFit(occupancy []int, roomCap int) int {
	for r := range occupancy {
		if occupancy[r] < roomCap {
			return r + 1
		}
	}
	return 0
}
