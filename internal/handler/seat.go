package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-ticketing/internal/repository"
)

// SeatHandler serves the public seat map.
type SeatHandler struct {
    Seats *repository.SeatRepo
}

func NewSeatHandler(seats *repository.SeatRepo) *SeatHandler {
    return &SeatHandler{Seats: seats}
}

// List returns the seat map of a showtime.  showtimeId is required;
// hallId optionally narrows the result.  A showtime with no seats at
// all answers 404 so clients can tell "not materialized" apart from
// "fully booked".
func (h *SeatHandler) List(c echo.Context) error {
    showtimeID, err := strconv.ParseUint(c.QueryParam("showtimeId"), 10, 64)
    if err != nil || showtimeID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "showtimeId required"})
    }
    var hallID uint64
    if raw := c.QueryParam("hallId"); raw != "" {
        hallID, err = strconv.ParseUint(raw, 10, 64)
        if err != nil || hallID == 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hallId"})
        }
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    seats, err := h.Seats.ListByShowtime(ctx, showtimeID, hallID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if len(seats) == 0 {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no seats for this showtime"})
    }
    return c.JSON(http.StatusOK, echo.Map{"seats": seats})
}
