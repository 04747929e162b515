package main // Entry point package

import (
	"context" // Context for the background sweep loop
	"log"     // Logging library
	"time"    // Durations for the policy knobs and sweep interval

	"github.com/joho/godotenv"    // Loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/rackhouse/billiard-reservation/internal/availability" // In-memory interval index
	"github.com/rackhouse/billiard-reservation/internal/config"       // Internal config loader
	"github.com/rackhouse/billiard-reservation/internal/database"     // MySQL connection helper
	"github.com/rackhouse/billiard-reservation/internal/handler"      // HTTP handlers
	"github.com/rackhouse/billiard-reservation/internal/middleware"   // Cache and rate-limit middleware
	"github.com/rackhouse/billiard-reservation/internal/queue"        // RabbitMQ publisher and consumer
	"github.com/rackhouse/billiard-reservation/internal/repository"   // Data access layer
	"github.com/rackhouse/billiard-reservation/internal/router"       // Route registration
	"github.com/rackhouse/billiard-reservation/internal/scheduler"    // Expiry sweep loop
	"github.com/rackhouse/billiard-reservation/internal/service"      // Booking business logic
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the availability response cache and the booking rate
	// limiter.  Both middlewares degrade to pass-through when it is down.
	rdb := config.NewRedisClient(config.LoadRedisConfig())

	tableRepo := repository.NewTableRepo(db)
	typeRepo := repository.NewTableTypeRepo(db)
	resRepo := repository.NewReservationRepo(db)

	booking := service.NewBookingService(
		tableRepo,
		resRepo,
		availability.NewIndex(),
		queue.PublishReservationEvent,
		service.Policy{
			DepositPercent: uint32(cfg.DepositPercent),
			PendingTTL:     time.Duration(cfg.PendingTTLMin) * time.Minute,
			CancelLeadTime: time.Duration(cfg.CancelLeadTimeMin) * time.Minute,
			MinDuration:    time.Duration(cfg.MinDurationMin) * time.Minute,
			MaxDuration:    time.Duration(cfg.MaxDurationMin) * time.Minute,
		},
	)

	// Replay active reservations into the index so conflict checks are
	// correct from the first request after a restart.
	ctx := context.Background()
	if err := booking.WarmIndex(ctx); err != nil {
		log.Fatalf("warm index: %v", err)
	}

	// Background sweep cancels PENDING reservations whose deposit window
	// has lapsed, freeing the slots for other customers.
	go scheduler.New(booking, time.Duration(cfg.SweepIntervalSec)*time.Second).Start(ctx)

	// Consume reservation events and append them to the notification log.
	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	tables := handler.NewTableHandler(tableRepo, typeRepo)
	reservations := handler.NewReservationHandler(booking, cfg.OpenHour, cfg.CloseHour)

	e := echo.New() // Create Echo instance

	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limitMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterPublic(e, tables, reservations, cfg.JWTSecret, cacheMW)
	router.RegisterCustomer(e, reservations, cfg.JWTSecret, limitMW)
	router.RegisterStaff(e, tables, reservations, cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
