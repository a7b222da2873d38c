package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"roomreserve/internal/reminder"
)

// CronHandler exposes the reminder sweep to the external scheduler. The
// scheduler authenticates with a shared secret rather than a user token.
type CronHandler struct {
	Secret string
	Sweep  *reminder.Sweep
}

func NewCronHandler(secret string, sweep *reminder.Sweep) *CronHandler {
	if sweep == nil {
		panic("nil sweep passed to NewCronHandler")
	}
	return &CronHandler{Secret: secret, Sweep: sweep}
}

// SendReminders handles POST and GET /v1/cron/send-reminders. The
// secret is accepted either in X-Cron-Secret or as a Bearer token, to
// fit whichever header the scheduler can send.
func (h *CronHandler) SendReminders(c echo.Context) error {
	if !h.authorized(c) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sum, err := h.Sweep.Run(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *CronHandler) authorized(c echo.Context) bool {
	if h.Secret == "" {
		return false
	}
	candidate := c.Request().Header.Get("X-Cron-Secret")
	if candidate == "" {
		if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			candidate = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(h.Secret)) == 1
}
