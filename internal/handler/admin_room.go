package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"roomreserve/internal/model"
	"roomreserve/internal/repository"
)

// AdminRoomHandler manages the sub-room link table. Room numbers are
// small and stable (1..FanOut); what changes is the meeting link behind
// each number.
type AdminRoomHandler struct {
	Rooms *repository.RoomRepo
}

func NewAdminRoomHandler(roomRepo *repository.RoomRepo) *AdminRoomHandler {
	if roomRepo == nil {
		panic("nil repository passed to NewAdminRoomHandler")
	}
	return &AdminRoomHandler{Rooms: roomRepo}
}

// List handles GET /v1/admin/rooms.
func (h *AdminRoomHandler) List(c echo.Context) error {
	rooms, err := h.Rooms.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, echo.Map{
			"room_number": r.RoomNumber,
			"room_link":   r.RoomLink,
			"room_label":  r.RoomLabel,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

// Upsert handles PUT /v1/admin/rooms/:number. Creating and replacing a
// room link are the same operation.
func (h *AdminRoomHandler) Upsert(c echo.Context) error {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room number"})
	}
	var body struct {
		RoomLink  string `json:"room_link" validate:"required,url"`
		RoomLabel string `json:"room_label" validate:"max=100"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	room := &model.Room{RoomNumber: number, RoomLink: body.RoomLink, RoomLabel: body.RoomLabel}
	if err := h.Rooms.Upsert(c.Request().Context(), room); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save room"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_number": room.RoomNumber,
		"room_link":   room.RoomLink,
		"room_label":  room.RoomLabel,
	})
}
