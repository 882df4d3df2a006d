package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/iliyamo/movie-ticketing/internal/handler"    // import the handlers that implement business logic
    "github.com/iliyamo/movie-ticketing/internal/middleware" // import middleware for JWT authentication and role enforcement
    "github.com/iliyamo/movie-ticketing/internal/model"
)

// Deps bundles everything route registration needs.  CacheMW and
// RateLimitMW may be nil when Redis is unavailable; affected routes
// then run without caching or limiting.
type Deps struct {
    Auth        *handler.AuthHandler
    Halls       *handler.HallHandler
    Showtimes   *handler.ShowtimeHandler
    Seats       *handler.SeatHandler
    Bookings    *handler.BookingHandler
    JWTSecret   string
    CacheMW     echo.MiddlewareFunc
    RateLimitMW echo.MiddlewareFunc
}

// Register wires the full HTTP surface.
//
//   /healthz                          liveness, no auth
//   /api/auth/*                       register + login, no auth
//   /api/seats, /api/showtimes/:id    public reads, cached
//   /api/*                            everything else requires a JWT;
//                                     admin routes also require ADMIN
func Register(e *echo.Echo, d Deps) {
    if d.RateLimitMW != nil {
        e.Use(d.RateLimitMW)
    }

    // Map the GET request at path "/healthz" to the Health handler.  This
    // endpoint can be used by load balancers or monitoring systems to verify
    // that the service is up and running.
    e.GET("/healthz", handler.Health)

    // Unauthenticated auth endpoints.
    auth := e.Group("/api/auth")
    auth.POST("/register", d.Auth.Register)
    auth.POST("/login", d.Auth.Login)

    // Public reads.  The seat map and showtime detail are the hottest
    // endpoints, so they go through the response cache when Redis is up.
    public := e.Group("/api")
    if d.CacheMW != nil {
        public.GET("/seats", d.Seats.List, d.CacheMW)
        public.GET("/showtimes/:id", d.Showtimes.Get, d.CacheMW)
        public.GET("/halls/:id/showtimes", d.Showtimes.ListByHall, d.CacheMW)
    } else {
        public.GET("/seats", d.Seats.List)
        public.GET("/showtimes/:id", d.Showtimes.Get)
        public.GET("/halls/:id/showtimes", d.Showtimes.ListByHall)
    }

    // Everything below requires a valid access token.
    api := e.Group("/api")
    api.Use(middleware.JWTAuth(d.JWTSecret))
    api.Use(middleware.RequireRole(model.RoleAdmin, model.RoleCustomer))

    api.GET("/me", d.Auth.Me)

    // Booking lifecycle, owner-scoped inside the handlers.
    api.POST("/bookings", d.Bookings.Create)
    api.GET("/bookings", d.Bookings.List)
    api.GET("/bookings/:id", d.Bookings.Get)
    api.PUT("/bookings/:id/status", d.Bookings.UpdateStatus)
    api.DELETE("/bookings/:id", d.Bookings.Cancel)

    // Admin-only management surface.
    admin := e.Group("/api")
    admin.Use(middleware.JWTAuth(d.JWTSecret))
    admin.Use(middleware.RequireRole(model.RoleAdmin))

    admin.POST("/halls", d.Halls.Create)
    admin.GET("/halls", d.Halls.List)
    admin.GET("/halls/:id", d.Halls.Get)

    admin.POST("/showtimes", d.Showtimes.Create)
    admin.DELETE("/showtimes/:id", d.Showtimes.Delete)

    admin.GET("/bookings/showtime/:showtimeId", d.Bookings.ListByShowtime)
    admin.GET("/bookings/user/:userId", d.Bookings.ListByUser)
}
