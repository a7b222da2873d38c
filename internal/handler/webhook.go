package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"roomreserve/internal/monitoring"
	"roomreserve/internal/payment"
)

// maxWebhookBody bounds how much of a webhook payload is read.
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment gateway events. The signature check
// happens before any parsing; an unsigned body is never looked at.
type WebhookHandler struct {
	Secret     string
	Reconciler *payment.Reconciler
	now        func() time.Time
}

func NewWebhookHandler(secret string, reconciler *payment.Reconciler) *WebhookHandler {
	if reconciler == nil {
		panic("nil reconciler passed to NewWebhookHandler")
	}
	return &WebhookHandler{
		Secret:     secret,
		Reconciler: reconciler,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes POST /v1/payments/webhook. A 400 tells the gateway
// the event is unacceptable and will never succeed; a 500 asks it to
// redeliver. Every accepted event answers 200 regardless of how it was
// settled, since from the gateway's view it has been handled.
func (h *WebhookHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}

	sig := c.Request().Header.Get(payment.SignatureHeader)
	if err := payment.VerifySignature(body, sig, h.Secret, h.now(), payment.DefaultTolerance); err != nil {
		monitoring.TrackWebhookReject()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	ev, err := payment.ParseEvent(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed event"})
	}

	disposition, err := h.Reconciler.HandleEvent(c.Request().Context(), ev)
	if err != nil {
		// Transient failure: the gateway retries with the same event id
		// and the reconciler's idempotency absorbs the replay.
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "event processing failed"})
	}
	monitoring.TrackWebhook(string(disposition))
	return c.JSON(http.StatusOK, echo.Map{"received": true, "disposition": disposition})
}
