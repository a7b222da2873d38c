package rooms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomreserve/internal/model"
)

var start = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

func splitSession() *model.Session {
	return &model.Session{
		ID:              1,
		Title:           "Late Night Punch-Up",
		StartsAt:        start,
		DurationMinutes: 60,
		SeatCap:         2,
		Status:          model.SessionScheduled,
		PriceCents:      100, // community tier: 5 sub-rooms of 2
	}
}

func roster(sess *model.Session, userIDs []string, createdAt []time.Time) []model.Reservation {
	out := make([]model.Reservation, len(userIDs))
	for i := range userIDs {
		out[i] = model.Reservation{
			ID:        uint64(i + 1),
			SessionID: sess.ID,
			UserID:    userIDs[i],
			CreatedAt: createdAt[i],
		}
	}
	return out
}

func times(base time.Time, n int, step time.Duration) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * step)
	}
	return out
}

func TestAssignNotReserved(t *testing.T) {
	sess := splitSession()
	r := roster(sess, []string{"u1", "u2"}, times(start.Add(-time.Hour), 2, time.Minute))

	_, err := Assign(sess, r, "stranger", start.Add(-30*time.Minute))
	assert.ErrorIs(t, err, ErrNotReserved)
}

func TestAssignOverrideLink(t *testing.T) {
	sess := splitSession()
	link := "https://meet.example.com/big-room"
	sess.RoomLink = &link
	r := roster(sess, []string{"u1"}, times(start.Add(-time.Hour), 1, time.Minute))

	a, err := Assign(sess, r, "u1", start.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, link, a.OverrideLink)
	assert.Zero(t, a.RoomNumber)

	_, err = Assign(sess, r, "u2", start.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrNotReserved)
}

func TestAssignPreStartRoundRobin(t *testing.T) {
	sess := splitSession()
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"}
	r := roster(sess, users, times(start.Add(-time.Hour), len(users), time.Minute))
	now := start.Add(-10 * time.Minute)

	want := []int{1, 2, 3, 4, 5, 1, 2}
	for i, u := range users {
		a, err := Assign(sess, r, u, now)
		require.NoError(t, err)
		assert.Equal(t, want[i], a.RoomNumber, "user %s", u)
	}
}

func TestAssignPreStartRebalancesNewJoiner(t *testing.T) {
	sess := splitSession()
	now := start.Add(-10 * time.Minute)

	// With five participants each room has one; the sixth lands in room 1,
	// the least-filled room scanned in round-robin order.
	users := []string{"u1", "u2", "u3", "u4", "u5"}
	r := roster(sess, users, times(start.Add(-time.Hour), 5, time.Minute))
	r = append(r, model.Reservation{ID: 6, SessionID: sess.ID, UserID: "u6", CreatedAt: start.Add(-time.Minute)})

	a, err := Assign(sess, r, "u6", now)
	require.NoError(t, err)
	assert.Equal(t, 1, a.RoomNumber)
}

func TestAssignIgnoresSliceOrder(t *testing.T) {
	sess := splitSession()
	users := []string{"u1", "u2", "u3"}
	r := roster(sess, users, times(start.Add(-time.Hour), 3, time.Minute))
	// Shuffle the slice: assignment must follow creation time, not position.
	r[0], r[2] = r[2], r[0]

	a, err := Assign(sess, r, "u3", start.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, a.RoomNumber)
}

func TestAssignFrozenAfterStart(t *testing.T) {
	sess := splitSession()
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6"}
	r := roster(sess, users, times(start.Add(-time.Hour), len(users), time.Minute))

	before, err := Assign(sess, r, "u3", start.Add(-time.Second))
	require.NoError(t, err)

	// A grace-window joiner arrives after start; u3 must keep its room.
	r = append(r, model.Reservation{ID: 7, SessionID: sess.ID, UserID: "late1", CreatedAt: start.Add(2 * time.Minute)})
	after, err := Assign(sess, r, "u3", start.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, before.RoomNumber, after.RoomNumber)
}

func TestAssignLateJoinerFirstFit(t *testing.T) {
	sess := splitSession()
	// Rooms of 2; pre-start roster of 6 leaves room 1 full (u1, u6) and
	// rooms 2-5 with one seat free each.
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6"}
	r := roster(sess, users, times(start.Add(-time.Hour), len(users), time.Minute))
	r = append(r, model.Reservation{ID: 7, SessionID: sess.ID, UserID: "late1", CreatedAt: start.Add(time.Minute)})
	r = append(r, model.Reservation{ID: 8, SessionID: sess.ID, UserID: "late2", CreatedAt: start.Add(2 * time.Minute)})

	a1, err := Assign(sess, r, "late1", start.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, a1.RoomNumber)

	a2, err := Assign(sess, r, "late2", start.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, a2.RoomNumber)
}

func TestAssignLateJoinerStableAcrossRecomputation(t *testing.T) {
	sess := splitSession()
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6"}
	r := roster(sess, users, times(start.Add(-time.Hour), len(users), time.Minute))
	r = append(r, model.Reservation{ID: 7, SessionID: sess.ID, UserID: "late1", CreatedAt: start.Add(time.Minute)})

	first, err := Assign(sess, r, "late1", start.Add(2*time.Minute))
	require.NoError(t, err)

	r = append(r, model.Reservation{ID: 8, SessionID: sess.ID, UserID: "late2", CreatedAt: start.Add(3 * time.Minute)})
	second, err := Assign(sess, r, "late1", start.Add(4*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, first.RoomNumber, second.RoomNumber)
}

func TestAssignCapacityExceededAfterStart(t *testing.T) {
	sess := splitSession()
	sess.SeatCap = 1 // 5 rooms of 1
	users := []string{"u1", "u2", "u3", "u4", "u5"}
	r := roster(sess, users, times(start.Add(-time.Hour), len(users), time.Minute))
	r = append(r, model.Reservation{ID: 6, SessionID: sess.ID, UserID: "late1", CreatedAt: start.Add(time.Minute)})

	_, err := Assign(sess, r, "late1", start.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestAssignEarlierLateJoinerTakesLastSeat(t *testing.T) {
	sess := splitSession()
	sess.SeatCap = 1 // 5 rooms of 1
	users := []string{"u1", "u2", "u3", "u4"}
	r := roster(sess, users, times(start.Add(-time.Hour), len(users), time.Minute))
	r = append(r, model.Reservation{ID: 5, SessionID: sess.ID, UserID: "late1", CreatedAt: start.Add(time.Minute)})
	r = append(r, model.Reservation{ID: 6, SessionID: sess.ID, UserID: "late2", CreatedAt: start.Add(2 * time.Minute)})

	a, err := Assign(sess, r, "late1", start.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 5, a.RoomNumber)

	_, err = Assign(sess, r, "late2", start.Add(3*time.Minute))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestAssignProSingleRoom(t *testing.T) {
	sess := splitSession()
	sess.PriceCents = 500 // pro tier: one room
	users := []string{"u1", "u2", "u3"}
	r := roster(sess, users, times(start.Add(-time.Hour), len(users), time.Minute))

	for _, u := range users {
		a, err := Assign(sess, r, u, start.Add(-time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, a.RoomNumber)
	}
}
