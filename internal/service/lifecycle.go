package service

import (
    "context"
    "log"
    "time"

    "github.com/iliyamo/movie-ticketing/internal/model"
    "github.com/iliyamo/movie-ticketing/internal/queue"
    "github.com/iliyamo/movie-ticketing/internal/repository"
)

// Ledger is the slice of the booking repository the lifecycle manager
// drives.  Every mutation behind it is atomic and conditional on the
// booking's current state, which is what lets concurrent settle, cancel
// and expiry calls resolve to exactly one winner.
type Ledger interface {
    Create(ctx context.Context, b *model.Booking) error
    GetByID(ctx context.Context, id uint64) (*model.Booking, error)
    MarkPaid(ctx context.Context, id uint64, now time.Time) error
    MarkFailed(ctx context.Context, id uint64) error
    Cancel(ctx context.Context, id, userID uint64, grace time.Duration, now time.Time) error
    ExpireDue(ctx context.Context, now time.Time) ([]uint64, error)
}

// ShowtimeReader provides read access to showtimes for pricing and
// event enrichment.
type ShowtimeReader interface {
    GetByID(ctx context.Context, id uint64) (*model.Showtime, error)
}

// Lifecycle owns the booking state machine: hold creation, payment
// settlement, cancellation and hold expiry.  Handlers and the expiry
// worker call into it; it never touches SQL itself.
type Lifecycle struct {
    ledger    Ledger
    showtimes ShowtimeReader
    holdTTL   time.Duration // how long a PENDING hold lives
    grace     time.Duration // post-payment cancellation window
    now       func() time.Time
    publish   func(ctx context.Context, ev queue.BookingPaidEvent) error
}

// NewLifecycle constructs a Lifecycle.  publish may be nil, in which
// case settled bookings are not announced on the broker.
func NewLifecycle(
    ledger Ledger,
    showtimes ShowtimeReader,
    holdTTL, grace time.Duration,
    publish func(ctx context.Context, ev queue.BookingPaidEvent) error,
) *Lifecycle {
    return &Lifecycle{
        ledger:    ledger,
        showtimes: showtimes,
        holdTTL:   holdTTL,
        grace:     grace,
        now:       time.Now,
        publish:   publish,
    }
}

// CreateBooking places a hold: it prices the requested seats, allocates
// them atomically and records a PENDING booking that expires after the
// hold TTL.  Seat labels are parsed and deduplicated up front, so a
// request naming the same seat twice charges for it once.  All-or
// nothing: if any seat is taken, nothing is booked and the error lists
// the contested seats.
func (l *Lifecycle) CreateBooking(ctx context.Context, userID, showtimeID uint64, seatLabels []string) (*model.Booking, error) {
    positions, err := model.ParseSeatLabels(seatLabels)
    if err != nil {
        return nil, err
    }
    if len(positions) == 0 {
        return nil, model.ErrInvalidSeatLabel
    }
    st, err := l.showtimes.GetByID(ctx, showtimeID)
    if err != nil {
        return nil, err
    }
    total, err := Total(st.TicketPriceCents, len(positions))
    if err != nil {
        return nil, err
    }
    b := &model.Booking{
        UserID:          userID,
        ShowtimeID:      showtimeID,
        Seats:           positions,
        TotalPriceCents: total,
        Status:          model.PaymentPending,
        ExpiresAt:       l.now().Add(l.holdTTL).UTC(),
    }
    if err := l.ledger.Create(ctx, b); err != nil {
        return nil, err
    }
    return b, nil
}

// SettlePayment moves a PENDING booking to PAID or FAILED on behalf of
// its owner.  PAID keeps the seats and stamps paid_at; FAILED releases
// them.  A hold whose TTL has already lapsed is settled as FAILED
// regardless of the requested outcome, without waiting for the sweep.
// The updated booking is returned on success.
func (l *Lifecycle) SettlePayment(ctx context.Context, bookingID, userID uint64, next model.PaymentStatus) (*model.Booking, error) {
    if !model.PaymentPending.CanTransitionTo(next) {
        return nil, model.ErrInvalidPaymentStatus
    }
    b, err := l.ledger.GetByID(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    if b.UserID != userID {
        // Not the owner's booking; do not reveal that it exists.
        return nil, repository.ErrBookingNotFound
    }
    now := l.now()
    if next == model.PaymentPaid && b.Status == model.PaymentPending && now.After(b.ExpiresAt) {
        if err := l.ledger.MarkFailed(ctx, bookingID); err != nil && err != repository.ErrBookingResolved {
            return nil, err
        }
        return nil, repository.ErrBookingResolved
    }
    if next == model.PaymentPaid {
        err = l.ledger.MarkPaid(ctx, bookingID, now)
    } else {
        err = l.ledger.MarkFailed(ctx, bookingID)
    }
    if err != nil {
        return nil, err
    }
    b, err = l.ledger.GetByID(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    if b.Status == model.PaymentPaid && l.publish != nil {
        l.announcePaid(ctx, b)
    }
    return b, nil
}

// Cancel removes the owner's booking and frees its seats.  PENDING
// bookings cancel unconditionally; PAID bookings only inside the grace
// window measured from paid_at.
func (l *Lifecycle) Cancel(ctx context.Context, bookingID, userID uint64) error {
    return l.ledger.Cancel(ctx, bookingID, userID, l.grace, l.now())
}

// ExpireDue fails every PENDING booking whose hold has lapsed and
// releases its seats.  The expiry worker calls this on a timer.
func (l *Lifecycle) ExpireDue(ctx context.Context) ([]uint64, error) {
    return l.ledger.ExpireDue(ctx, l.now())
}

// announcePaid publishes the settled booking on the broker.  Publish
// failures are logged and swallowed: the sale is already durable.
func (l *Lifecycle) announcePaid(ctx context.Context, b *model.Booking) {
    ev := queue.BookingPaidEvent{
        BookingID:       b.ID,
        UserID:          b.UserID,
        ShowtimeID:      b.ShowtimeID,
        SeatLabels:      b.SeatLabels(),
        TotalPriceCents: b.TotalPriceCents,
    }
    if b.PaidAt != nil {
        ev.PaidAt = b.PaidAt.UTC().Format(time.RFC3339)
    }
    if st, err := l.showtimes.GetByID(ctx, b.ShowtimeID); err == nil {
        ev.MovieID = st.MovieID
        ev.HallID = st.HallID
        ev.StartsAt = st.StartsAt.UTC().Format(time.RFC3339)
    }
    if err := l.publish(ctx, ev); err != nil {
        log.Printf("booking %d: publish paid event failed: %v", b.ID, err)
    }
}
