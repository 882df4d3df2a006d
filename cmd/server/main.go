package main // Entry point package

import (
    "context" // Context for worker shutdown
    "log"     // Logging library
    "time"    // Durations for booking timing knobs

    "github.com/joho/godotenv"    // .env loader for local development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/iliyamo/movie-ticketing/internal/config"     // Internal config loader
    "github.com/iliyamo/movie-ticketing/internal/database"   // MySQL connection helper
    "github.com/iliyamo/movie-ticketing/internal/handler"    // HTTP handlers
    "github.com/iliyamo/movie-ticketing/internal/middleware" // Redis cache and rate limit middleware
    "github.com/iliyamo/movie-ticketing/internal/queue"      // RabbitMQ publisher and consumer
    "github.com/iliyamo/movie-ticketing/internal/repository" // Data access layer
    "github.com/iliyamo/movie-ticketing/internal/router"     // Route registration
    "github.com/iliyamo/movie-ticketing/internal/service"    // Pricing and booking lifecycle
    "github.com/iliyamo/movie-ticketing/internal/worker"     // Hold expiry sweeper
)

func main() {
    // Load .env if present; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load() // Load environment config

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("db connect failed: %v", err)
    }
    defer db.Close()

    // Redis is optional: when it is down the cache and rate limiter
    // become pass-throughs instead of blocking startup.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable, cache and rate limiting disabled")
    }

    // Repositories.
    users := repository.NewUserRepo(db)
    halls := repository.NewHallRepo(db)
    showtimes := repository.NewShowtimeRepo(db)
    seats := repository.NewSeatRepo(db)
    bookings := repository.NewBookingRepo(db)

    // Booking lifecycle with timing knobs from config.
    lifecycle := service.NewLifecycle(
        bookings,
        showtimes,
        time.Duration(cfg.HoldTTLSec)*time.Second,
        time.Duration(cfg.PaidCancelGraceSec)*time.Second,
        queue.PublishBookingPaid,
    )

    // Background workers: hold expiry sweep and the paid-event consumer.
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    sweeper := worker.NewExpirySweeper(lifecycle, time.Duration(cfg.SweepIntervalSec)*time.Second)
    go sweeper.Run(ctx)
    go func() {
        if err := queue.StartBookingConsumer(); err != nil {
            log.Printf("booking consumer stopped: %v", err)
        }
    }()

    // Handlers and routes.
    e := echo.New()
    var cacheMW, rateMW echo.MiddlewareFunc
    if rdb != nil {
        cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
        rateMW = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    }
    router.Register(e, router.Deps{
        Auth:        handler.NewAuthHandler(cfg, users),
        Halls:       handler.NewHallHandler(halls),
        Showtimes:   handler.NewShowtimeHandler(showtimes, halls, seats),
        Seats:       handler.NewSeatHandler(seats),
        Bookings:    handler.NewBookingHandler(lifecycle, bookings),
        JWTSecret:   cfg.JWTSecret,
        CacheMW:     cacheMW,
        RateLimitMW: rateMW,
    })

    addr := ":" + cfg.Port                                // Address string with port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

    if err := e.Start(addr); err != nil { // Start HTTP server
        log.Fatal(err) // Log and exit if server fails
    }
}
