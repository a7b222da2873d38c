// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roomreserve/internal/handler"
	"roomreserve/internal/middleware"
)

// RegisterSystem registers the unauthenticated operational endpoints:
// the health check used by load balancers and the Prometheus scrape
// target.
func RegisterSystem(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterPublic registers the unauthenticated catalog routes,
// optionally behind the short-TTL response cache.
func RegisterPublic(e *echo.Echo, catalog *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("/sessions", catalog.ListSessions)
	g.GET("/sessions/:id", catalog.GetSession)
}

// RegisterBooking registers the authenticated participant routes. All
// of them require a valid identity token.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1/sessions")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.POST("/:id/reserve", b.Reserve)
	g.POST("/:id/checkout", b.Checkout)
	g.GET("/:id/join", b.Join)
}

// RegisterPayments registers the gateway webhook. It carries no JWT
// middleware: the gateway authenticates through the signature header,
// checked inside the handler against the raw body.
func RegisterPayments(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/v1/payments/webhook", w.Handle)
}

// RegisterCron registers the reminder sweep trigger. Schedulers differ
// in which method they can send, so both GET and POST map to the same
// handler; authentication is the shared cron secret.
func RegisterCron(e *echo.Echo, cron *handler.CronHandler) {
	e.POST("/v1/cron/send-reminders", cron.SendReminders)
	e.GET("/v1/cron/send-reminders", cron.SendReminders)
}

// RegisterAdmin registers the administrative CRUD surface behind the
// identity token check plus the admin allowlist.
func RegisterAdmin(e *echo.Echo, sessions *handler.AdminSessionHandler, roomsH *handler.AdminRoomHandler, jwtSecret string, adminIDs []string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireAdmin(adminIDs))

	g.POST("/sessions", sessions.Create)
	g.GET("/sessions", sessions.List)
	g.PATCH("/sessions/:id", sessions.Update)
	g.DELETE("/sessions/:id", sessions.Delete)
	g.GET("/sessions/:id/reservations", sessions.Roster)
	g.DELETE("/reservations/:id", sessions.RemoveReservation)

	g.GET("/rooms", roomsH.List)
	g.PUT("/rooms/:number", roomsH.Upsert)
}
