package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"roomreserve/internal/booking"
	"roomreserve/internal/model"
	"roomreserve/internal/repository"
)

// adminTimezone is the wall-clock zone admins schedule sessions in. The
// admin surface accepts local date/time strings and converts them to
// UTC at this boundary; everything past it is UTC only.
const adminTimezone = "America/New_York"

// AdminSessionHandler implements the administrative session CRUD. All
// routes sit behind JWTAuth plus the admin allowlist.
type AdminSessionHandler struct {
	Sessions     *repository.SessionRepo
	Reservations *repository.ReservationRepo
	Occupancy    *booking.OccupancyCache
}

func NewAdminSessionHandler(sessions *repository.SessionRepo, reservations *repository.ReservationRepo, occupancy *booking.OccupancyCache) *AdminSessionHandler {
	if sessions == nil || reservations == nil || occupancy == nil {
		panic("nil dependency passed to NewAdminSessionHandler")
	}
	return &AdminSessionHandler{Sessions: sessions, Reservations: reservations, Occupancy: occupancy}
}

type sessionRequest struct {
	Title           string  `json:"title" validate:"required,max=255"`
	Date            string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string  `json:"time" validate:"required,datetime=15:04"`
	DurationMinutes int     `json:"duration_minutes" validate:"required,min=1,max=1440"`
	SeatCap         int     `json:"seat_cap" validate:"required,min=1,max=500"`
	PriceCents      int     `json:"price_cents" validate:"min=0"`
	RoomLink        *string `json:"room_link" validate:"omitempty,url"`
	RepeatWeeks     int     `json:"repeat_weeks" validate:"min=0,max=52"`
}

// startsAtUTC combines the request's local date and time into a UTC
// instant.
func (r *sessionRequest) startsAtUTC() (time.Time, error) {
	loc, err := time.LoadLocation(adminTimezone)
	if err != nil {
		return time.Time{}, err
	}
	local, err := time.ParseInLocation("2006-01-02 15:04", r.Date+" "+r.Time, loc)
	if err != nil {
		return time.Time{}, err
	}
	return local.UTC(), nil
}

// Create handles POST /v1/admin/sessions. With repeat_weeks > 0 the
// session is duplicated at weekly wall-clock intervals, so a 7 PM
// session stays at 7 PM local across a DST change.
func (h *AdminSessionHandler) Create(c echo.Context) error {
	var body sessionRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	loc, err := time.LoadLocation(adminTimezone)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "timezone database unavailable"})
	}
	base, err := time.ParseInLocation("2006-01-02 15:04", body.Date+" "+body.Time, loc)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date or time"})
	}

	ctx := c.Request().Context()
	created := make([]echo.Map, 0, body.RepeatWeeks+1)
	for week := 0; week <= body.RepeatWeeks; week++ {
		// AddDate keeps the wall clock fixed in loc; converting to UTC
		// afterwards absorbs DST shifts.
		startsAt := base.AddDate(0, 0, 7*week).UTC()
		s := &model.Session{
			Title:           body.Title,
			StartsAt:        startsAt,
			DurationMinutes: body.DurationMinutes,
			SeatCap:         body.SeatCap,
			Status:          model.SessionScheduled,
			PriceCents:      body.PriceCents,
			RoomLink:        body.RoomLink,
		}
		if err := h.Sessions.Create(ctx, s); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create session"})
		}
		created = append(created, echo.Map{
			"id":        s.ID,
			"starts_at": s.StartsAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusCreated, echo.Map{"sessions": created})
}

// List handles GET /v1/admin/sessions. Unlike the public catalog it
// includes cancelled and past sessions along with reservation counts.
func (h *AdminSessionHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	sessions, err := h.Sessions.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		reserved, err := h.Reservations.CountBySession(ctx, s.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		v := sessionView(s, reserved)
		v["room_link"] = s.RoomLink
		out = append(out, v)
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}

// Update handles PATCH /v1/admin/sessions/:id. Only fields present in
// the body change; date and time must come together since they form one
// instant.
func (h *AdminSessionHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body struct {
		Title           *string `json:"title" validate:"omitempty,max=255"`
		Date            *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
		Time            *string `json:"time" validate:"omitempty,datetime=15:04"`
		DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,min=1,max=1440"`
		SeatCap         *int    `json:"seat_cap" validate:"omitempty,min=1,max=500"`
		PriceCents      *int    `json:"price_cents" validate:"omitempty,min=0"`
		RoomLink        *string `json:"room_link" validate:"omitempty,url"`
		Status          *string `json:"status" validate:"omitempty,oneof=scheduled cancelled completed"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if (body.Date == nil) != (body.Time == nil) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date and time must be provided together"})
	}

	ctx := c.Request().Context()
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if body.Title != nil {
		s.Title = *body.Title
	}
	if body.Date != nil && body.Time != nil {
		req := sessionRequest{Date: *body.Date, Time: *body.Time}
		startsAt, err := req.startsAtUTC()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date or time"})
		}
		s.StartsAt = startsAt
	}
	if body.DurationMinutes != nil {
		s.DurationMinutes = *body.DurationMinutes
	}
	if body.SeatCap != nil {
		s.SeatCap = *body.SeatCap
	}
	if body.PriceCents != nil {
		s.PriceCents = *body.PriceCents
	}
	if body.RoomLink != nil {
		if *body.RoomLink == "" {
			s.RoomLink = nil
		} else {
			s.RoomLink = body.RoomLink
		}
	}
	if body.Status != nil {
		s.Status = *body.Status
	}

	if err := h.Sessions.Update(ctx, s); err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update session"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

// Roster handles GET /v1/admin/sessions/:id/reservations. It exposes
// the booking roster in creation order, the same order room assignment
// uses.
func (h *AdminSessionHandler) Roster(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Sessions.GetByID(ctx, id); err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	roster, err := h.Reservations.ListBySession(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(roster))
	for _, r := range roster {
		out = append(out, echo.Map{
			"id":                r.ID,
			"user_id":           r.UserID,
			"user_email":        r.UserEmail,
			"confirmation_sent": r.ConfirmationSent,
			"created_at":        r.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// RemoveReservation handles DELETE /v1/admin/reservations/:id, used to
// manually free a seat. The reservation is loaded first so the freed
// session's cached occupancy can be invalidated.
func (h *AdminSessionHandler) RemoveReservation(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx := c.Request().Context()
	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrReservationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.Reservations.Delete(ctx, id); err != nil {
		if err == repository.ErrReservationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete reservation"})
	}
	h.Occupancy.Invalidate(ctx, res.SessionID)
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /v1/admin/sessions/:id. Reservations go with
// the session via the FK cascade.
func (h *AdminSessionHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	if err := h.Sessions.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete session"})
	}
	return c.NoContent(http.StatusNoContent)
}
