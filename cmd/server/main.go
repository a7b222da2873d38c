package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"roomreserve/internal/booking"
	"roomreserve/internal/config"
	"roomreserve/internal/database"
	"roomreserve/internal/handler"
	"roomreserve/internal/mailer"
	"roomreserve/internal/middleware"
	"roomreserve/internal/payment"
	"roomreserve/internal/queue"
	"roomreserve/internal/reminder"
	"roomreserve/internal/repository"
	"roomreserve/internal/router"
	queue_publisher "roomreserve/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; occupancy cache, response cache and rate limiting degraded")
	}

	sessionRepo := repository.NewSessionRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	roomRepo := repository.NewRoomRepo(db)

	ledger := booking.NewLedger(db, sessionRepo, reservationRepo)
	occupancy := booking.NewOccupancyCache(rdb, reservationRepo, time.Minute)

	gateway := payment.NewStripeClient(cfg.StripeAPIBase, cfg.StripeAPIKey)
	var mail mailer.Sender
	if cfg.ResendAPIKey != "" {
		mail = mailer.NewClient("", cfg.ResendAPIKey, cfg.MailFrom, cfg.SiteURL)
	} else {
		log.Printf("RESEND_API_KEY not set; confirmation and reminder email disabled")
	}
	publisher := queue_publisher.NewPublisher(cfg.RabbitURL)

	reconciler := payment.NewReconciler(sessionRepo, reservationRepo, ledger, gateway, mail, occupancy, publisher, cfg.SiteURL)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	catalogCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	router.RegisterSystem(e)
	router.RegisterPublic(e, handler.NewCatalogHandler(sessionRepo, occupancy), catalogCache)
	router.RegisterBooking(e, handler.NewBookingHandler(
		sessionRepo, reservationRepo, roomRepo, ledger, occupancy, gateway, publisher, cfg.SiteURL, cfg.AdminUserIDs,
	), cfg.JWTSecret)
	router.RegisterPayments(e, handler.NewWebhookHandler(cfg.StripeWebhookSecret, reconciler))
	router.RegisterAdmin(e, handler.NewAdminSessionHandler(sessionRepo, reservationRepo, occupancy),
		handler.NewAdminRoomHandler(roomRepo), cfg.JWTSecret, cfg.AdminUserIDs)

	if mail != nil {
		sweep := reminder.NewSweep(reservationRepo, sessionRepo, mail, cfg.SiteURL)
		router.RegisterCron(e, handler.NewCronHandler(cfg.CronSecret, sweep))
	}

	// Broker consumer runs for the life of the process, reconnecting on
	// its own.
	go func() {
		if err := queue.StartConsumer(cfg.RabbitURL); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
