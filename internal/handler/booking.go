package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"roomreserve/internal/booking"
	"roomreserve/internal/capacity"
	"roomreserve/internal/model"
	"roomreserve/internal/monitoring"
	"roomreserve/internal/payment"
	"roomreserve/internal/queue"
	"roomreserve/internal/repository"
	"roomreserve/internal/rooms"
)

// JoinOpensBefore is how early the join link resolves before start.
const JoinOpensBefore = 5 * time.Minute

// JoinClosesAfter is how long after the scheduled end the link stays
// usable.
const JoinClosesAfter = 10 * time.Minute

// BookingHandler covers the authenticated participant surface: direct
// reservation of free sessions, checkout creation for paid ones, and
// join-link resolution. All methods assume JWTAuth has run.
type BookingHandler struct {
	Sessions     *repository.SessionRepo
	Reservations *repository.ReservationRepo
	Rooms        *repository.RoomRepo
	Ledger       *booking.Ledger
	Occupancy    *booking.OccupancyCache
	Gateway      payment.Gateway
	Publisher    payment.EventPublisher
	SiteURL      string
	adminIDs     map[string]bool
}

func NewBookingHandler(sessions *repository.SessionRepo, reservations *repository.ReservationRepo, roomRepo *repository.RoomRepo,
	ledger *booking.Ledger, occupancy *booking.OccupancyCache, gateway payment.Gateway, publisher payment.EventPublisher,
	siteURL string, adminIDs []string) *BookingHandler {
	if sessions == nil || reservations == nil || roomRepo == nil || ledger == nil || occupancy == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &BookingHandler{
		Sessions:     sessions,
		Reservations: reservations,
		Rooms:        roomRepo,
		Ledger:       ledger,
		Occupancy:    occupancy,
		Gateway:      gateway,
		Publisher:    publisher,
		SiteURL:      siteURL,
		adminIDs:     admins,
	}
}

// Reserve handles POST /v1/sessions/:id/reserve. Only free sessions can
// be reserved directly; paid sessions must go through checkout so the
// seat is granted by the payment webhook. Admins may reserve any
// session, which is how comped seats are issued.
func (h *BookingHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()

	sess, err := h.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if sess.PriceCents > 0 && !h.adminIDs[userID] {
		return c.JSON(http.StatusPaymentRequired, echo.Map{
			"error":    "payment required",
			"checkout": "/v1/sessions/" + c.Param("id") + "/checkout",
		})
	}

	outcome, err := h.Ledger.Reserve(ctx, sessionID, userID)
	h.Occupancy.Invalidate(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	monitoring.TrackReservation(outcome.String(), "direct")

	switch outcome {
	case booking.Booked:
		h.publishConfirmed(c, sess, userID)
		return c.JSON(http.StatusCreated, echo.Map{"status": "booked"})
	case booking.AlreadyBooked:
		return c.JSON(http.StatusOK, echo.Map{"status": "already_booked"})
	case booking.CapacityExceeded:
		return c.JSON(http.StatusConflict, echo.Map{"error": "session is full"})
	case booking.WindowClosed:
		return c.JSON(http.StatusGone, echo.Map{"error": "reservation window has closed"})
	case booking.SessionNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unexpected outcome"})
}

// Checkout handles POST /v1/sessions/:id/checkout. It opens a gateway
// checkout for a paid session and returns the hosted payment URL. The
// seat itself is only granted when the completion webhook arrives.
func (h *BookingHandler) Checkout(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body struct {
		Email    string `json:"email"`
		Timezone string `json:"timezone"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()

	sess, err := h.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if sess.Status != model.SessionScheduled {
		return c.JSON(http.StatusConflict, echo.Map{"error": "session is not open for booking"})
	}
	if sess.PriceCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session is free, use reserve"})
	}
	if time.Now().UTC().After(sess.StartsAt.Add(booking.GracePeriod)) {
		return c.JSON(http.StatusGone, echo.Map{"error": "reservation window has closed"})
	}
	// Pre-checks are advisory only; the webhook path re-runs them
	// authoritatively and refunds when the seat is gone by then.
	if reserved, err := h.Occupancy.Count(ctx, sessionID); err == nil {
		if reserved >= capacity.Total(sess.PriceCents, sess.SeatCap) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "session is full"})
		}
	}
	if existing, err := h.Reservations.GetBySessionAndUser(ctx, sessionID, userID); err == nil && existing != nil {
		return c.JSON(http.StatusOK, echo.Map{"status": "already_booked"})
	}

	url, err := h.Gateway.CreateCheckout(ctx, payment.CheckoutParams{
		SessionID:  sessionID,
		UserID:     userID,
		Title:      sess.Title,
		PriceCents: sess.PriceCents,
		SuccessURL: h.SiteURL + "/sessions/" + c.Param("id") + "?checkout=success",
		CancelURL:  h.SiteURL + "/sessions/" + c.Param("id") + "?checkout=cancelled",
		Email:      body.Email,
		Timezone:   body.Timezone,
	})
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// Join handles GET /v1/sessions/:id/join. Inside the join window it
// resolves the caller's sub-room deterministically and redirects to the
// meeting link.
func (h *BookingHandler) Join(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || sessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()

	sess, err := h.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			monitoring.TrackJoin("not_found")
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	now := time.Now().UTC()
	opens := sess.StartsAt.Add(-JoinOpensBefore)
	closes := sess.EndsAt().Add(JoinClosesAfter)
	if now.Before(opens) || now.After(closes) {
		monitoring.TrackJoin("window_closed")
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":    "join window is closed",
			"opens_at": opens.Format(time.RFC3339),
		})
	}

	roster, err := h.Reservations.ListBySession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	assignment, err := rooms.Assign(sess, roster, userID, now)
	if err != nil {
		switch err {
		case rooms.ErrNotReserved:
			monitoring.TrackJoin("not_reserved")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "no reservation for this session"})
		case rooms.ErrCapacityExceeded:
			return c.JSON(http.StatusConflict, echo.Map{"error": "all rooms are full"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assignment failed"})
	}

	link := assignment.OverrideLink
	if link == "" {
		room, err := h.Rooms.GetByNumber(ctx, assignment.RoomNumber)
		if err != nil {
			if err == repository.ErrRoomNotFound {
				monitoring.TrackJoin("not_found")
				return c.JSON(http.StatusNotFound, echo.Map{"error": "room is not configured"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		link = room.RoomLink
	}
	monitoring.TrackJoin("redirected")
	return c.Redirect(http.StatusFound, link)
}

// publishConfirmed emits the broker event for a free-session booking,
// best effort.
func (h *BookingHandler) publishConfirmed(c echo.Context, sess *model.Session, userID string) {
	if h.Publisher == nil {
		return
	}
	ctx := c.Request().Context()
	res, err := h.Reservations.GetBySessionAndUser(ctx, sess.ID, userID)
	if err != nil {
		return
	}
	_ = h.Publisher.PublishReservationConfirmed(ctx, queue.ReservationConfirmedEvent{
		EventID:       uuid.NewString(),
		ReservationID: res.ID,
		SessionID:     sess.ID,
		UserID:        userID,
		SessionTitle:  sess.Title,
		StartsAt:      sess.StartsAt.Format(time.RFC3339),
		PriceCents:    sess.PriceCents,
		Source:        "free",
		ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
	})
}
