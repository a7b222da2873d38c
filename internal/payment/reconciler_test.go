package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomreserve/internal/booking"
	"roomreserve/internal/model"
	"roomreserve/internal/repository"
)

// fakeStore backs both the ledger and the reservation store with one
// in-memory map so the reconciler tests exercise the real replay
// semantics: a second Reserve for the same pair reports AlreadyBooked.
type fakeStore struct {
	sessions map[uint64]*model.Session
	byKey    map[string]*model.Reservation
	nextID   uint64
}

func newFakeStore(sessions ...*model.Session) *fakeStore {
	s := &fakeStore{sessions: map[uint64]*model.Session{}, byKey: map[string]*model.Reservation{}, nextID: 1}
	for _, sess := range sessions {
		s.sessions[sess.ID] = sess
	}
	return s
}

func key(sessionID uint64, userID string) string {
	return fmt.Sprintf("%d/%s", sessionID, userID)
}

func (s *fakeStore) GetByID(_ context.Context, id uint64) (*model.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return sess, nil
}

func (s *fakeStore) Reserve(_ context.Context, sessionID uint64, userID string) (booking.Outcome, error) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return booking.SessionNotFound, nil
	}
	if _, exists := s.byKey[key(sessionID, userID)]; exists {
		return booking.AlreadyBooked, nil
	}
	taken := 0
	for _, r := range s.byKey {
		if r.SessionID == sessionID {
			taken++
		}
	}
	if taken >= sess.SeatCap {
		return booking.CapacityExceeded, nil
	}
	s.byKey[key(sessionID, userID)] = &model.Reservation{ID: s.nextID, SessionID: sessionID, UserID: userID}
	s.nextID++
	return booking.Booked, nil
}

func (s *fakeStore) GetBySessionAndUser(_ context.Context, sessionID uint64, userID string) (*model.Reservation, error) {
	r, ok := s.byKey[key(sessionID, userID)]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return r, nil
}

func (s *fakeStore) UpdateEnrichment(_ context.Context, id uint64, email, tz *string, r24, r1 *time.Time) error {
	for _, r := range s.byKey {
		if r.ID != id {
			continue
		}
		if email != nil {
			r.UserEmail = email
		}
		if tz != nil {
			r.Timezone = tz
		}
		if r24 != nil {
			r.Reminder24hAt = r24
		}
		if r1 != nil {
			r.Reminder1hAt = r1
		}
		return nil
	}
	return repository.ErrReservationNotFound
}

func (s *fakeStore) MarkConfirmationSent(_ context.Context, id uint64) (bool, error) {
	for _, r := range s.byKey {
		if r.ID == id && !r.ConfirmationSent {
			r.ConfirmationSent = true
			return true, nil
		}
	}
	return false, nil
}

type fakeGateway struct {
	refunds []string // idempotency keys, in call order
	refs    []string
	fail    error
}

func (g *fakeGateway) Refund(_ context.Context, paymentRef, idempotencyKey string) error {
	if g.fail != nil {
		return g.fail
	}
	g.refunds = append(g.refunds, idempotencyKey)
	g.refs = append(g.refs, paymentRef)
	return nil
}

type fakeMailer struct {
	sent []string // recipient per send
	fail error
}

func (m *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakeOccupancy struct{ invalidated []uint64 }

func (o *fakeOccupancy) Invalidate(_ context.Context, sessionID uint64) {
	o.invalidated = append(o.invalidated, sessionID)
}

func paidEvent(id string, sessionID, userID, email string) *Event {
	ev := &Event{ID: id, Type: "checkout.session.completed", Kind: KindCheckoutCompleted}
	ev.Checkout.ID = "cs_" + id
	ev.Checkout.PaymentStatus = "paid"
	ev.Checkout.PaymentIntent = "pi_" + id
	ev.Checkout.Metadata = CheckoutMetadata{UserID: userID, SessionID: sessionID, Email: email}
	return ev
}

func testSession(id uint64, startsAt time.Time, seatCap int) *model.Session {
	return &model.Session{
		ID:              id,
		Title:           "Deep Work Sprint",
		StartsAt:        startsAt,
		DurationMinutes: 60,
		SeatCap:         seatCap,
		Status:          model.SessionScheduled,
		PriceCents:      500,
	}
}

func newTestReconciler(store *fakeStore, gw *fakeGateway, mail *fakeMailer, occ *fakeOccupancy, now time.Time) *Reconciler {
	r := NewReconciler(store, store, store, gw, mail, occ, nil, "https://rooms.example.com")
	r.now = func() time.Time { return now }
	return r
}

func TestHandleEventBooksAndConfirmsOnce(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(testSession(42, now.Add(48*time.Hour), 10))
	gw := &fakeGateway{}
	mail := &fakeMailer{}
	occ := &fakeOccupancy{}
	rec := newTestReconciler(store, gw, mail, occ, now)

	disp, err := rec.HandleEvent(context.Background(), paidEvent("evt_1", "42", "user_9", "w@example.com"))
	require.NoError(t, err)
	assert.Equal(t, DispositionBooked, disp)

	res, err := store.GetBySessionAndUser(context.Background(), 42, "user_9")
	require.NoError(t, err)
	assert.True(t, res.ConfirmationSent)
	require.NotNil(t, res.UserEmail)
	assert.Equal(t, "w@example.com", *res.UserEmail)
	require.NotNil(t, res.Reminder24hAt)
	assert.Equal(t, now.Add(24*time.Hour), *res.Reminder24hAt)
	require.NotNil(t, res.Reminder1hAt)
	assert.Equal(t, []string{"w@example.com"}, mail.sent)
	assert.Empty(t, gw.refunds)
	assert.Equal(t, []uint64{42}, occ.invalidated)
}

func TestHandleEventReplayIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(testSession(42, now.Add(48*time.Hour), 10))
	gw := &fakeGateway{}
	mail := &fakeMailer{}
	rec := newTestReconciler(store, gw, mail, &fakeOccupancy{}, now)

	ev := paidEvent("evt_1", "42", "user_9", "w@example.com")
	disp, err := rec.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, DispositionBooked, disp)

	disp, err = rec.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, DispositionDuplicate, disp)

	// One reservation, one confirmation, zero refunds after the replay.
	assert.Len(t, store.byKey, 1)
	assert.Len(t, mail.sent, 1)
	assert.Empty(t, gw.refunds)
}

func TestHandleEventIgnoresUnpaidAndUnknown(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(testSession(42, now.Add(time.Hour), 10))
	gw := &fakeGateway{}
	rec := newTestReconciler(store, gw, &fakeMailer{}, &fakeOccupancy{}, now)

	unpaid := paidEvent("evt_u", "42", "user_9", "")
	unpaid.Checkout.PaymentStatus = "unpaid"
	disp, err := rec.HandleEvent(context.Background(), unpaid)
	require.NoError(t, err)
	assert.Equal(t, DispositionIgnored, disp)

	other := &Event{ID: "evt_o", Type: "invoice.paid", Kind: KindIgnored}
	disp, err = rec.HandleEvent(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, DispositionIgnored, disp)

	missing := paidEvent("evt_m", "", "user_9", "")
	disp, err = rec.HandleEvent(context.Background(), missing)
	require.NoError(t, err)
	assert.Equal(t, DispositionIgnored, disp)

	assert.Empty(t, store.byKey)
	assert.Empty(t, gw.refunds)
}

func TestHandleEventRefundsWhenSessionFull(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(testSession(42, now.Add(time.Hour), 1))
	gw := &fakeGateway{}
	rec := newTestReconciler(store, gw, &fakeMailer{}, &fakeOccupancy{}, now)

	_, err := store.Reserve(context.Background(), 42, "earlier_user")
	require.NoError(t, err)

	ev := paidEvent("evt_full", "42", "user_9", "")
	disp, err := rec.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, DispositionRefunded, disp)
	require.Equal(t, []string{"refund-evt_full"}, gw.refunds)
	assert.Equal(t, []string{"pi_evt_full"}, gw.refs)

	// Redelivery refunds under the same idempotency key so the gateway
	// collapses it to one refund.
	disp, err = rec.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, DispositionRefunded, disp)
	assert.Equal(t, []string{"refund-evt_full", "refund-evt_full"}, gw.refunds)
}

func TestHandleEventRefundsLateWebhook(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// Started six minutes ago, past the grace period.
	store := newFakeStore(testSession(42, now.Add(-6*time.Minute), 10))
	gw := &fakeGateway{}
	rec := newTestReconciler(store, gw, &fakeMailer{}, &fakeOccupancy{}, now)

	disp, err := rec.HandleEvent(context.Background(), paidEvent("evt_late", "42", "user_9", ""))
	require.NoError(t, err)
	assert.Equal(t, DispositionRefunded, disp)
	assert.Equal(t, []string{"refund-evt_late"}, gw.refunds)
	assert.Empty(t, store.byKey)
}

func TestHandleEventRefundsMissingSession(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gw := &fakeGateway{}
	rec := newTestReconciler(newFakeStore(), gw, &fakeMailer{}, &fakeOccupancy{}, now)

	disp, err := rec.HandleEvent(context.Background(), paidEvent("evt_gone", "404", "user_9", ""))
	require.NoError(t, err)
	assert.Equal(t, DispositionRefunded, disp)
	assert.Equal(t, []string{"refund-evt_gone"}, gw.refunds)
}

func TestHandleEventSkipsRefundWithoutPaymentRef(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gw := &fakeGateway{}
	rec := newTestReconciler(newFakeStore(), gw, &fakeMailer{}, &fakeOccupancy{}, now)

	ev := paidEvent("evt_noref", "404", "user_9", "")
	ev.Checkout.PaymentIntent = ""
	disp, err := rec.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, DispositionRefundSkipped, disp)
	assert.Empty(t, gw.refunds)
}

func TestHandleEventRefundFailureIsRetryable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gw := &fakeGateway{fail: errors.New("gateway unavailable")}
	rec := newTestReconciler(newFakeStore(), gw, &fakeMailer{}, &fakeOccupancy{}, now)

	_, err := rec.HandleEvent(context.Background(), paidEvent("evt_fail", "404", "user_9", ""))
	assert.Error(t, err)
}

func TestHandleEventFallsBackToCustomerEmail(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(testSession(42, now.Add(time.Hour), 10))
	mail := &fakeMailer{}
	rec := newTestReconciler(store, &fakeGateway{}, mail, &fakeOccupancy{}, now)

	ev := paidEvent("evt_cd", "42", "user_9", "")
	ev.Checkout.CustomerDetails.Email = "card@example.com"
	disp, err := rec.HandleEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, DispositionBooked, disp)
	assert.Equal(t, []string{"card@example.com"}, mail.sent)
}

func TestHandleEventConfirmationFailureDoesNotRetry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(testSession(42, now.Add(time.Hour), 10))
	mail := &fakeMailer{fail: errors.New("mail provider down")}
	rec := newTestReconciler(store, &fakeGateway{}, mail, &fakeOccupancy{}, now)

	disp, err := rec.HandleEvent(context.Background(), paidEvent("evt_mf", "42", "user_9", "w@example.com"))
	require.NoError(t, err)
	assert.Equal(t, DispositionBooked, disp)

	res, err := store.GetBySessionAndUser(context.Background(), 42, "user_9")
	require.NoError(t, err)
	assert.False(t, res.ConfirmationSent)
}

func TestHandleEventSkipsPastMilestones(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// Starts in 30 minutes: the 24h and 1h milestones are already past.
	store := newFakeStore(testSession(42, now.Add(30*time.Minute), 10))
	rec := newTestReconciler(store, &fakeGateway{}, &fakeMailer{}, &fakeOccupancy{}, now)

	disp, err := rec.HandleEvent(context.Background(), paidEvent("evt_soon", "42", "user_9", "w@example.com"))
	require.NoError(t, err)
	require.Equal(t, DispositionBooked, disp)

	res, err := store.GetBySessionAndUser(context.Background(), 42, "user_9")
	require.NoError(t, err)
	assert.Nil(t, res.Reminder24hAt)
	assert.Nil(t, res.Reminder1hAt)
}
