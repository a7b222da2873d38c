package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"roomreserve/internal/booking"
	"roomreserve/internal/capacity"
	"roomreserve/internal/model"
	"roomreserve/internal/repository"
)

// CatalogHandler serves the public session listing. Seat counts come
// from the occupancy cache, so listed availability can run a little
// behind the ledger; the reserve path re-checks against the store.
type CatalogHandler struct {
	Sessions  *repository.SessionRepo
	Occupancy *booking.OccupancyCache
}

func NewCatalogHandler(sessions *repository.SessionRepo, occupancy *booking.OccupancyCache) *CatalogHandler {
	if sessions == nil || occupancy == nil {
		panic("nil dependency passed to NewCatalogHandler")
	}
	return &CatalogHandler{Sessions: sessions, Occupancy: occupancy}
}

// ListSessions handles GET /v1/sessions. It returns upcoming scheduled
// sessions with tier, capacity and remaining-seat information.
func (h *CatalogHandler) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()
	sessions, err := h.Sessions.ListUpcoming(ctx, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	out := make([]echo.Map, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		reserved, err := h.Occupancy.Count(ctx, s.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		out = append(out, sessionView(s, reserved))
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}

// GetSession handles GET /v1/sessions/:id.
func (h *CatalogHandler) GetSession(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	reserved, err := h.Occupancy.Count(ctx, s.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, sessionView(s, reserved))
}

func sessionView(s *model.Session, reserved int) echo.Map {
	total := capacity.Total(s.PriceCents, s.SeatCap)
	remaining := total - reserved
	if remaining < 0 {
		remaining = 0
	}
	return echo.Map{
		"id":               s.ID,
		"title":            s.Title,
		"starts_at":        s.StartsAt.Format(time.RFC3339),
		"ends_at":          s.EndsAt().Format(time.RFC3339),
		"duration_minutes": s.DurationMinutes,
		"status":           s.Status,
		"price_cents":      s.PriceCents,
		"tier":             capacity.TierLabel(s.PriceCents),
		"sub_rooms":        capacity.SubRooms(s.PriceCents),
		"capacity":         total,
		"reserved":         reserved,
		"remaining":        remaining,
	}
}
