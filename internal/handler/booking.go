package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-ticketing/internal/model"
    "github.com/iliyamo/movie-ticketing/internal/repository"
    "github.com/iliyamo/movie-ticketing/internal/service"
)

// BookingReader is the read side of the booking ledger used by
// handlers; mutations all go through the lifecycle service.
type BookingReader interface {
    GetByID(ctx context.Context, id uint64) (*model.Booking, error)
    ListByUser(ctx context.Context, userID uint64) ([]*model.Booking, error)
    ListByShowtime(ctx context.Context, showtimeID uint64) ([]*model.Booking, error)
}

// BookingHandler serves the booking lifecycle endpoints.
type BookingHandler struct {
    Lifecycle *service.Lifecycle
    Bookings  BookingReader
}

func NewBookingHandler(lifecycle *service.Lifecycle, bookings BookingReader) *BookingHandler {
    return &BookingHandler{Lifecycle: lifecycle, Bookings: bookings}
}

// ----- DTOs -----

type createBookingReq struct {
    ShowtimeID uint64   `json:"showtimeId"`
    Seats      []string `json:"seats"`
}

type updateStatusReq struct {
    PaymentStatus string `json:"paymentStatus"`
    // Clients echo these back; they are cross-checked against the
    // server's record, never trusted.
    ShowtimeID uint64   `json:"showtimeId"`
    Seats      []string `json:"seats"`
}

type bookingResp struct {
    ID              uint64              `json:"id"`
    UserID          uint64              `json:"user_id"`
    ShowtimeID      uint64              `json:"showtime_id"`
    Seats           []string            `json:"seats"`
    TotalPriceCents uint32              `json:"total_price_cents"`
    PaymentStatus   model.PaymentStatus `json:"payment_status"`
    ExpiresAt       time.Time           `json:"expires_at"`
    PaidAt          *time.Time          `json:"paid_at,omitempty"`
    CreatedAt       time.Time           `json:"created_at"`
}

func toBookingResp(b *model.Booking) bookingResp {
    return bookingResp{
        ID:              b.ID,
        UserID:          b.UserID,
        ShowtimeID:      b.ShowtimeID,
        Seats:           b.SeatLabels(),
        TotalPriceCents: b.TotalPriceCents,
        PaymentStatus:   b.Status,
        ExpiresAt:       b.ExpiresAt,
        PaidAt:          b.PaidAt,
        CreatedAt:       b.CreatedAt,
    }
}

// seatsMatchBooking reports whether the echoed labels name exactly the
// booking's seats, order-insensitively.  Unparseable labels never match.
func seatsMatchBooking(labels []string, seats []model.SeatPosition) bool {
    ps, err := model.ParseSeatLabels(labels)
    if err != nil || len(ps) != len(seats) {
        return false
    }
    have := make(map[model.SeatPosition]struct{}, len(seats))
    for _, p := range seats {
        have[p] = struct{}{}
    }
    for _, p := range ps {
        if _, ok := have[p]; !ok {
            return false
        }
    }
    return true
}

func toBookingResps(bs []*model.Booking) []bookingResp {
    out := make([]bookingResp, 0, len(bs))
    for _, b := range bs {
        out = append(out, toBookingResp(b))
    }
    return out
}

// Create places a hold on the requested seats.  All-or-nothing: when
// any seat is contested the response is 400 with the losing labels and
// nothing has been booked.
func (h *BookingHandler) Create(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createBookingReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.ShowtimeID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "showtimeId required"})
    }
    if len(req.Seats) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    b, err := h.Lifecycle.CreateBooking(ctx, uid, req.ShowtimeID, req.Seats)
    if err != nil {
        var unavailable *repository.SeatsUnavailableError
        switch {
        case errors.Is(err, model.ErrInvalidSeatLabel):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat label"})
        case errors.Is(err, repository.ErrShowtimeNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
        case errors.As(err, &unavailable):
            return c.JSON(http.StatusBadRequest, echo.Map{
                "error":       "seats unavailable",
                "unavailable": unavailable.Seats,
            })
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
        }
    }
    return c.JSON(http.StatusCreated, toBookingResp(b))
}

// List returns the caller's bookings, newest first.
func (h *BookingHandler) List(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    bs, err := h.Bookings.ListByUser(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingResps(bs)})
}

// Get returns one of the caller's bookings.  Someone else's booking
// answers 404, not 403, so IDs cannot be enumerated.
func (h *BookingHandler) Get(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    b, err := h.Bookings.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrBookingNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if b.UserID != uid {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
    }
    return c.JSON(http.StatusOK, toBookingResp(b))
}

// UpdateStatus settles a PENDING booking as PAID or FAILED.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var req updateStatusReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    next, err := model.ParsePaymentStatus(req.PaymentStatus)
    if err != nil || !next.Terminal() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment status"})
    }
    if req.ShowtimeID != 0 || len(req.Seats) > 0 {
        // Cross-check echoed fields against the record before settling,
        // so a confused client fails loudly.
        ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
        b, berr := h.Bookings.GetByID(ctx, id)
        cancel()
        if berr == nil && b.UserID == uid {
            if req.ShowtimeID != 0 && b.ShowtimeID != req.ShowtimeID {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": "showtimeId does not match booking"})
            }
            if len(req.Seats) > 0 && !seatsMatchBooking(req.Seats, b.Seats) {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats do not match booking"})
            }
        }
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    b, err := h.Lifecycle.SettlePayment(ctx, id, uid, next)
    if err != nil {
        switch {
        case errors.Is(err, model.ErrInvalidPaymentStatus):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment status"})
        case errors.Is(err, repository.ErrBookingNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        case errors.Is(err, repository.ErrBookingResolved):
            return c.JSON(http.StatusConflict, echo.Map{"error": "booking already resolved"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update booking failed"})
        }
    }
    return c.JSON(http.StatusOK, toBookingResp(b))
}

// Cancel deletes the caller's booking and frees its seats.
func (h *BookingHandler) Cancel(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    if err := h.Lifecycle.Cancel(ctx, id, uid); err != nil {
        switch {
        case errors.Is(err, repository.ErrBookingNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        case errors.Is(err, repository.ErrBookingResolved):
            return c.JSON(http.StatusConflict, echo.Map{"error": "booking can no longer be cancelled"})
        case errors.Is(err, repository.ErrSeatNotReserved):
            // Inventory and ledger disagree; this must be visible in logs.
            log.Printf("booking %d: cancel hit unreserved seat, inventory inconsistent", id)
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking state inconsistent"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel booking failed"})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled"})
}

// ListByShowtime returns all bookings of a showtime (admin).
func (h *BookingHandler) ListByShowtime(c echo.Context) error {
    id, ok := pathID(c, "showtimeId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    bs, err := h.Bookings.ListByShowtime(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingResps(bs)})
}

// ListByUser returns all bookings of a user (admin).  No bookings at
// all answers 404.
func (h *BookingHandler) ListByUser(c echo.Context) error {
    id, ok := pathID(c, "userId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    bs, err := h.Bookings.ListByUser(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if len(bs) == 0 {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no bookings for this user"})
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingResps(bs)})
}
