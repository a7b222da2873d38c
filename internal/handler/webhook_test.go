package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomreserve/internal/booking"
	"roomreserve/internal/model"
	"roomreserve/internal/payment"
	"roomreserve/internal/repository"
)

const webhookSecret = "whsec_handler_test"

// stubStore satisfies the reconciler's session, reservation and ledger
// dependencies with canned behavior; webhook handler tests only care
// about status codes, not ledger mechanics.
type stubStore struct {
	session *model.Session
	outcome booking.Outcome
}

func (s *stubStore) GetByID(context.Context, uint64) (*model.Session, error) {
	if s.session == nil {
		return nil, repository.ErrSessionNotFound
	}
	return s.session, nil
}

func (s *stubStore) Reserve(context.Context, uint64, string) (booking.Outcome, error) {
	return s.outcome, nil
}

func (s *stubStore) GetBySessionAndUser(context.Context, uint64, string) (*model.Reservation, error) {
	return &model.Reservation{ID: 1, SessionID: s.session.ID, UserID: "user_1"}, nil
}

func (s *stubStore) UpdateEnrichment(context.Context, uint64, *string, *string, *time.Time, *time.Time) error {
	return nil
}

func (s *stubStore) MarkConfirmationSent(context.Context, uint64) (bool, error) { return true, nil }

type stubRefunder struct{ calls int }

func (r *stubRefunder) Refund(context.Context, string, string) error {
	r.calls++
	return nil
}

func newWebhookContext(t *testing.T, body, signature string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(payment.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func newTestWebhookHandler(store *stubStore, refunder *stubRefunder, now time.Time) *WebhookHandler {
	rec := payment.NewReconciler(store, store, store, refunder, nil, nil, nil, "https://rooms.example.com")
	h := NewWebhookHandler(webhookSecret, rec)
	h.now = func() time.Time { return now }
	return h
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h := newTestWebhookHandler(&stubStore{}, &stubRefunder{}, now)

	c, rec := newWebhookContext(t, `{"id":"evt_1","type":"checkout.session.completed"}`, "t=1,v1=deadbeef")
	require.NoError(t, h.Handle(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newWebhookContext(t, `{}`, "")
	require.NoError(t, h.Handle(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h := newTestWebhookHandler(&stubStore{}, &stubRefunder{}, now)

	body := `{"id":`
	c, rec := newWebhookContext(t, body, payment.Sign([]byte(body), webhookSecret, now))
	require.NoError(t, h.Handle(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookAcknowledgesIgnoredEvent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h := newTestWebhookHandler(&stubStore{}, &stubRefunder{}, now)

	body := `{"id":"evt_2","type":"invoice.paid","data":{"object":{}}}`
	c, rec := newWebhookContext(t, body, payment.Sign([]byte(body), webhookSecret, now))
	require.NoError(t, h.Handle(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ignored"`)
}

func TestWebhookSeatsPaidCheckout(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &stubStore{
		session: &model.Session{
			ID: 42, Title: "Deep Work", StartsAt: now.Add(time.Hour),
			DurationMinutes: 60, SeatCap: 10, Status: model.SessionScheduled, PriceCents: 500,
		},
		outcome: booking.Booked,
	}
	refunder := &stubRefunder{}
	h := newTestWebhookHandler(store, refunder, now)

	body := `{"id":"evt_3","type":"checkout.session.completed","data":{"object":{
		"id":"cs_1","payment_status":"paid","payment_intent":"pi_1",
		"metadata":{"user_id":"user_1","session_id":"42"}}}}`
	c, rec := newWebhookContext(t, body, payment.Sign([]byte(body), webhookSecret, now))
	require.NoError(t, h.Handle(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"booked"`)
	assert.Zero(t, refunder.calls)
}

func TestWebhookRefundsFullSession(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &stubStore{
		session: &model.Session{
			ID: 42, Title: "Deep Work", StartsAt: now.Add(time.Hour),
			DurationMinutes: 60, SeatCap: 10, Status: model.SessionScheduled, PriceCents: 500,
		},
		outcome: booking.CapacityExceeded,
	}
	refunder := &stubRefunder{}
	h := newTestWebhookHandler(store, refunder, now)

	body := `{"id":"evt_4","type":"checkout.session.completed","data":{"object":{
		"id":"cs_2","payment_status":"paid","payment_intent":"pi_2",
		"metadata":{"user_id":"user_2","session_id":"42"}}}}`
	c, rec := newWebhookContext(t, body, payment.Sign([]byte(body), webhookSecret, now))
	require.NoError(t, h.Handle(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"refunded"`)
	assert.Equal(t, 1, refunder.calls)
}
