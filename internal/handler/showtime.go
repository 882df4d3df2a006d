package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-ticketing/internal/model"
    "github.com/iliyamo/movie-ticketing/internal/repository"
)

// ShowtimeHandler serves showtime scheduling endpoints.  Creating a
// showtime also materializes its seat inventory from the hall layout,
// so a showtime is bookable the moment the create call returns.
type ShowtimeHandler struct {
    Showtimes *repository.ShowtimeRepo
    Halls     *repository.HallRepo
    Seats     *repository.SeatRepo
}

func NewShowtimeHandler(showtimes *repository.ShowtimeRepo, halls *repository.HallRepo, seats *repository.SeatRepo) *ShowtimeHandler {
    return &ShowtimeHandler{Showtimes: showtimes, Halls: halls, Seats: seats}
}

type createShowtimeReq struct {
    MovieID          uint64    `json:"movie_id"`
    HallID           uint64    `json:"hall_id"`
    StartsAt         time.Time `json:"starts_at"`
    TicketPriceCents uint32    `json:"ticket_price_cents"`
}

// Create schedules a showtime and materializes its seats.  The two
// steps are separate statements, so a crash between them leaves a
// showtime with zero seats; re-running materialization is guarded
// against double inventory by the repository.
func (h *ShowtimeHandler) Create(c echo.Context) error {
    var req createShowtimeReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.MovieID == 0 || req.HallID == 0 || req.StartsAt.IsZero() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie_id, hall_id and starts_at required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    hall, err := h.Halls.GetByID(ctx, req.HallID)
    if err != nil {
        if errors.Is(err, repository.ErrHallNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "hall not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }

    st := &model.Showtime{
        MovieID:          req.MovieID,
        HallID:           req.HallID,
        StartsAt:         req.StartsAt,
        TicketPriceCents: req.TicketPriceCents,
    }
    if err := h.Showtimes.Create(ctx, st); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create showtime failed"})
    }

    created, err := h.Seats.MaterializeSeats(ctx, hall, st.ID)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrDuplicateInventory):
            return c.JSON(http.StatusConflict, echo.Map{"error": "seats already created for this showtime"})
        case errors.Is(err, repository.ErrInvalidLayout):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat layout"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create seats failed"})
        }
    }
    st.AvailableSeats = uint32(created)

    return c.JSON(http.StatusCreated, echo.Map{
        "showtime":      st,
        "seats_created": created,
    })
}

// Get returns a showtime by ID, including its live available_seats
// counter.
func (h *ShowtimeHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    st, err := h.Showtimes.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrShowtimeNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, st)
}

// ListByHall returns a hall's showtimes ordered by start time.
func (h *ShowtimeHandler) ListByHall(c echo.Context) error {
    hallID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hall id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if _, err := h.Halls.GetByID(ctx, hallID); err != nil {
        if errors.Is(err, repository.ErrHallNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "hall not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    sts, err := h.Showtimes.ListByHall(ctx, hallID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"showtimes": sts})
}

// Delete removes a showtime and everything hanging off it: bookings,
// booking seats and the seat inventory.
func (h *ShowtimeHandler) Delete(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    if err := h.Showtimes.DeleteCascade(ctx, id); err != nil {
        if errors.Is(err, repository.ErrShowtimeNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete showtime failed"})
    }
    return c.NoContent(http.StatusNoContent)
}
