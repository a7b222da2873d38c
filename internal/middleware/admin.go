package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAdmin returns a middleware that restricts a route to the
// configured admin allowlist. The identity provider carries no role
// claim, so administrative access is a deployment-time list of user ids
// rather than anything read from the token. It assumes JWTAuth has
// already stored the caller's id under "user_id".
func RequireAdmin(adminIDs []string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		allowed[id] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := c.Get("user_id").(string)
			if !ok || !allowed[id] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
