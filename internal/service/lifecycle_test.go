package service

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/movie-ticketing/internal/model"
    "github.com/iliyamo/movie-ticketing/internal/queue"
    "github.com/iliyamo/movie-ticketing/internal/repository"
)

// memLedger is an in-memory Ledger whose mutations follow the same
// check-and-set discipline as the SQL layer: every transition verifies
// the current state under one lock, so the concurrency properties the
// lifecycle relies on hold here too.
type memLedger struct {
    mu        sync.Mutex
    nextID    uint64
    bookings  map[uint64]*model.Booking
    seats     map[uint64]map[model.SeatPosition]bool // showtime -> seat -> available
    available map[uint64]int
}

func newMemLedger() *memLedger {
    return &memLedger{
        bookings:  make(map[uint64]*model.Booking),
        seats:     make(map[uint64]map[model.SeatPosition]bool),
        available: make(map[uint64]int),
    }
}

// seed materializes a rows x cols grid for a showtime.
func (m *memLedger) seed(showtimeID uint64, rows, cols int) {
    m.mu.Lock()
    defer m.mu.Unlock()
    grid := make(map[model.SeatPosition]bool, rows*cols)
    for r := 0; r < rows; r++ {
        for c := 1; c <= cols; c++ {
            grid[model.SeatPosition{Row: model.IndexToRowLabel(r), Column: uint32(c)}] = true
        }
    }
    m.seats[showtimeID] = grid
    m.available[showtimeID] = rows * cols
}

func (m *memLedger) availableCount(showtimeID uint64) int {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.available[showtimeID]
}

// consistent reports whether the counter matches the seat flags.
func (m *memLedger) consistent(showtimeID uint64) bool {
    m.mu.Lock()
    defer m.mu.Unlock()
    n := 0
    for _, free := range m.seats[showtimeID] {
        if free {
            n++
        }
    }
    return n == m.available[showtimeID]
}

func (m *memLedger) Create(_ context.Context, b *model.Booking) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    grid, ok := m.seats[b.ShowtimeID]
    if !ok {
        return repository.ErrShowtimeNotFound
    }
    var contested []model.SeatPosition
    for _, p := range b.Seats {
        if !grid[p] {
            contested = append(contested, p)
        }
    }
    if len(contested) > 0 {
        return &repository.SeatsUnavailableError{Seats: model.Labels(contested)}
    }
    for _, p := range b.Seats {
        grid[p] = false
    }
    m.available[b.ShowtimeID] -= len(b.Seats)
    m.nextID++
    b.ID = m.nextID
    b.Status = model.PaymentPending
    stored := *b
    stored.Seats = append([]model.SeatPosition(nil), b.Seats...)
    m.bookings[b.ID] = &stored
    return nil
}

func (m *memLedger) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    b, ok := m.bookings[id]
    if !ok {
        return nil, repository.ErrBookingNotFound
    }
    cp := *b
    cp.Seats = append([]model.SeatPosition(nil), b.Seats...)
    return &cp, nil
}

func (m *memLedger) MarkPaid(_ context.Context, id uint64, now time.Time) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    b, ok := m.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    if b.Status != model.PaymentPending {
        return repository.ErrBookingResolved
    }
    b.Status = model.PaymentPaid
    t := now
    b.PaidAt = &t
    return nil
}

func (m *memLedger) MarkFailed(_ context.Context, id uint64) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.markFailedLocked(id)
}

func (m *memLedger) markFailedLocked(id uint64) error {
    b, ok := m.bookings[id]
    if !ok {
        return repository.ErrBookingNotFound
    }
    if b.Status != model.PaymentPending {
        return repository.ErrBookingResolved
    }
    b.Status = model.PaymentFailed
    grid := m.seats[b.ShowtimeID]
    for _, p := range b.Seats {
        if !grid[p] {
            grid[p] = true
            m.available[b.ShowtimeID]++
        }
    }
    return nil
}

func (m *memLedger) Cancel(_ context.Context, id, userID uint64, grace time.Duration, now time.Time) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    b, ok := m.bookings[id]
    if !ok || b.UserID != userID {
        return repository.ErrBookingNotFound
    }
    switch b.Status {
    case model.PaymentPending:
    case model.PaymentPaid:
        if b.PaidAt == nil || now.Sub(*b.PaidAt) > grace {
            return repository.ErrBookingResolved
        }
    default:
        return repository.ErrBookingResolved
    }
    grid := m.seats[b.ShowtimeID]
    for _, p := range b.Seats {
        if grid[p] {
            return repository.ErrSeatNotReserved
        }
    }
    for _, p := range b.Seats {
        grid[p] = true
        m.available[b.ShowtimeID]++
    }
    delete(m.bookings, id)
    return nil
}

func (m *memLedger) ExpireDue(_ context.Context, now time.Time) ([]uint64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var expired []uint64
    for id, b := range m.bookings {
        if b.Status == model.PaymentPending && !b.ExpiresAt.After(now) {
            if err := m.markFailedLocked(id); err == nil {
                expired = append(expired, id)
            }
        }
    }
    return expired, nil
}

// memShowtimes is a fixed showtime catalog.
type memShowtimes struct {
    byID map[uint64]*model.Showtime
}

func (m *memShowtimes) GetByID(_ context.Context, id uint64) (*model.Showtime, error) {
    st, ok := m.byID[id]
    if !ok {
        return nil, repository.ErrShowtimeNotFound
    }
    cp := *st
    return &cp, nil
}

// fakeClock is a mutable clock for deterministic expiry tests.
type fakeClock struct {
    mu sync.Mutex
    t  time.Time
}

func (c *fakeClock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.t = c.t.Add(d)
}

// eventSink collects published events.
type eventSink struct {
    mu     sync.Mutex
    events []queue.BookingPaidEvent
}

func (s *eventSink) publish(_ context.Context, ev queue.BookingPaidEvent) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.events = append(s.events, ev)
    return nil
}

func (s *eventSink) all() []queue.BookingPaidEvent {
    s.mu.Lock()
    defer s.mu.Unlock()
    return append([]queue.BookingPaidEvent(nil), s.events...)
}

const (
    testShowtime = uint64(1)
    testUser     = uint64(7)
    otherUser    = uint64(8)
)

func newTestLifecycle(t *testing.T, rows, cols int) (*Lifecycle, *memLedger, *fakeClock, *eventSink) {
    t.Helper()
    ledger := newMemLedger()
    ledger.seed(testShowtime, rows, cols)
    showtimes := &memShowtimes{byID: map[uint64]*model.Showtime{
        testShowtime: {
            ID:               testShowtime,
            MovieID:          42,
            HallID:           3,
            StartsAt:         time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC),
            TicketPriceCents: 1500,
        },
    }}
    sink := &eventSink{}
    l := NewLifecycle(ledger, showtimes, time.Minute, 2*time.Minute, sink.publish)
    clock := &fakeClock{t: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
    l.now = clock.Now
    return l, ledger, clock, sink
}

func TestCreateBookingPricesAndHolds(t *testing.T) {
    l, ledger, clock, _ := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    b, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1", "B2"})
    require.NoError(t, err)
    assert.Equal(t, model.PaymentPending, b.Status)
    assert.Equal(t, uint32(3000), b.TotalPriceCents)
    assert.Equal(t, []string{"A1", "B2"}, b.SeatLabels())
    assert.Equal(t, clock.Now().Add(time.Minute), b.ExpiresAt)
    assert.Equal(t, 2, ledger.availableCount(testShowtime))
    assert.True(t, ledger.consistent(testShowtime))
}

func TestCreateBookingDedupesSeats(t *testing.T) {
    l, ledger, _, _ := newTestLifecycle(t, 2, 2)

    b, err := l.CreateBooking(context.Background(), testUser, testShowtime, []string{"A1", "a1", "A1"})
    require.NoError(t, err)
    assert.Equal(t, uint32(1500), b.TotalPriceCents)
    assert.Len(t, b.Seats, 1)
    assert.Equal(t, 3, ledger.availableCount(testShowtime))
}

func TestCreateBookingValidation(t *testing.T) {
    l, _, _, _ := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    _, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"bogus"})
    assert.ErrorIs(t, err, model.ErrInvalidSeatLabel)

    _, err = l.CreateBooking(ctx, testUser, testShowtime, nil)
    assert.ErrorIs(t, err, model.ErrInvalidSeatLabel)

    _, err = l.CreateBooking(ctx, testUser, 999, []string{"A1"})
    assert.ErrorIs(t, err, repository.ErrShowtimeNotFound)
}

func TestCreateBookingAllOrNothing(t *testing.T) {
    l, ledger, _, _ := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    _, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1"})
    require.NoError(t, err)

    // A2 is free, A1 is not: the whole request must fail and A2 must
    // stay available.
    _, err = l.CreateBooking(ctx, otherUser, testShowtime, []string{"A2", "A1"})
    var unavailable *repository.SeatsUnavailableError
    require.ErrorAs(t, err, &unavailable)
    assert.Equal(t, []string{"A1"}, unavailable.Seats)
    assert.Equal(t, 3, ledger.availableCount(testShowtime))
    assert.True(t, ledger.consistent(testShowtime))
}

func TestCreateBookingRejectsUnknownSeat(t *testing.T) {
    l, _, _, _ := newTestLifecycle(t, 2, 2)

    _, err := l.CreateBooking(context.Background(), testUser, testShowtime, []string{"Z99"})
    var unavailable *repository.SeatsUnavailableError
    require.ErrorAs(t, err, &unavailable)
    assert.Equal(t, []string{"Z99"}, unavailable.Seats)
}

func TestConcurrentBookingSingleWinner(t *testing.T) {
    l, ledger, _, _ := newTestLifecycle(t, 1, 1)
    ctx := context.Background()

    const racers = 32
    var wg sync.WaitGroup
    errs := make([]error, racers)
    for i := 0; i < racers; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, errs[i] = l.CreateBooking(ctx, uint64(100+i), testShowtime, []string{"A1"})
        }(i)
    }
    wg.Wait()

    wins := 0
    for _, err := range errs {
        if err == nil {
            wins++
            continue
        }
        var unavailable *repository.SeatsUnavailableError
        require.ErrorAs(t, err, &unavailable)
    }
    assert.Equal(t, 1, wins)
    assert.Equal(t, 0, ledger.availableCount(testShowtime))
    assert.True(t, ledger.consistent(testShowtime))
}

func TestSettlePaymentPaid(t *testing.T) {
    l, ledger, clock, sink := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    b, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1", "A2"})
    require.NoError(t, err)

    paid, err := l.SettlePayment(ctx, b.ID, testUser, model.PaymentPaid)
    require.NoError(t, err)
    assert.Equal(t, model.PaymentPaid, paid.Status)
    require.NotNil(t, paid.PaidAt)
    assert.Equal(t, clock.Now(), *paid.PaidAt)
    // Paid seats stay allocated.
    assert.Equal(t, 2, ledger.availableCount(testShowtime))

    events := sink.all()
    require.Len(t, events, 1)
    assert.Equal(t, b.ID, events[0].BookingID)
    assert.Equal(t, testUser, events[0].UserID)
    assert.Equal(t, []string{"A1", "A2"}, events[0].SeatLabels)
    assert.Equal(t, uint32(3000), events[0].TotalPriceCents)
    assert.Equal(t, uint64(42), events[0].MovieID)
}

func TestSettlePaymentFailedReleasesSeats(t *testing.T) {
    l, ledger, _, sink := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    b, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1", "A2"})
    require.NoError(t, err)

    failed, err := l.SettlePayment(ctx, b.ID, testUser, model.PaymentFailed)
    require.NoError(t, err)
    assert.Equal(t, model.PaymentFailed, failed.Status)
    assert.Equal(t, 4, ledger.availableCount(testShowtime))
    assert.True(t, ledger.consistent(testShowtime))
    assert.Empty(t, sink.all())
}

func TestSettlePaymentGuards(t *testing.T) {
    l, _, _, _ := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    b, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1"})
    require.NoError(t, err)

    // PENDING is not a settlement target.
    _, err = l.SettlePayment(ctx, b.ID, testUser, model.PaymentPending)
    assert.ErrorIs(t, err, model.ErrInvalidPaymentStatus)

    // Another user's booking is invisible.
    _, err = l.SettlePayment(ctx, b.ID, otherUser, model.PaymentPaid)
    assert.ErrorIs(t, err, repository.ErrBookingNotFound)

    _, err = l.SettlePayment(ctx, 999, testUser, model.PaymentPaid)
    assert.ErrorIs(t, err, repository.ErrBookingNotFound)

    // Settling twice conflicts.
    _, err = l.SettlePayment(ctx, b.ID, testUser, model.PaymentPaid)
    require.NoError(t, err)
    _, err = l.SettlePayment(ctx, b.ID, testUser, model.PaymentFailed)
    assert.ErrorIs(t, err, repository.ErrBookingResolved)
}

func TestSettlePaymentAfterHoldLapse(t *testing.T) {
    l, ledger, clock, sink := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    b, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1"})
    require.NoError(t, err)

    clock.Advance(2 * time.Minute)

    _, err = l.SettlePayment(ctx, b.ID, testUser, model.PaymentPaid)
    assert.ErrorIs(t, err, repository.ErrBookingResolved)

    // The lapsed hold was failed eagerly, without waiting for the sweep.
    got, err := ledger.GetByID(ctx, b.ID)
    require.NoError(t, err)
    assert.Equal(t, model.PaymentFailed, got.Status)
    assert.Equal(t, 4, ledger.availableCount(testShowtime))
    assert.Empty(t, sink.all())
}

func TestConcurrentSettleSingleWinner(t *testing.T) {
    l, _, _, sink := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    b, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1"})
    require.NoError(t, err)

    var wg sync.WaitGroup
    outcomes := make([]error, 2)
    for i, status := range []model.PaymentStatus{model.PaymentPaid, model.PaymentFailed} {
        wg.Add(1)
        go func(i int, s model.PaymentStatus) {
            defer wg.Done()
            _, outcomes[i] = l.SettlePayment(ctx, b.ID, testUser, s)
        }(i, status)
    }
    wg.Wait()

    wins := 0
    for _, err := range outcomes {
        if err == nil {
            wins++
        } else {
            assert.ErrorIs(t, err, repository.ErrBookingResolved)
        }
    }
    assert.Equal(t, 1, wins)
    assert.LessOrEqual(t, len(sink.all()), 1)
}

func TestCancelPending(t *testing.T) {
    l, ledger, _, _ := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    b, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1", "B1"})
    require.NoError(t, err)

    require.NoError(t, l.Cancel(ctx, b.ID, testUser))
    assert.Equal(t, 4, ledger.availableCount(testShowtime))
    assert.True(t, ledger.consistent(testShowtime))

    _, err = ledger.GetByID(ctx, b.ID)
    assert.ErrorIs(t, err, repository.ErrBookingNotFound)
}

func TestCancelPaidWithinGrace(t *testing.T) {
    l, ledger, clock, _ := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    b, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1"})
    require.NoError(t, err)
    _, err = l.SettlePayment(ctx, b.ID, testUser, model.PaymentPaid)
    require.NoError(t, err)

    clock.Advance(90 * time.Second) // inside the 2 minute grace window
    require.NoError(t, l.Cancel(ctx, b.ID, testUser))
    assert.Equal(t, 4, ledger.availableCount(testShowtime))
}

func TestCancelPaidAfterGrace(t *testing.T) {
    l, ledger, clock, _ := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    b, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1"})
    require.NoError(t, err)
    _, err = l.SettlePayment(ctx, b.ID, testUser, model.PaymentPaid)
    require.NoError(t, err)

    clock.Advance(3 * time.Minute)
    err = l.Cancel(ctx, b.ID, testUser)
    assert.ErrorIs(t, err, repository.ErrBookingResolved)
    // The sale stands.
    assert.Equal(t, 3, ledger.availableCount(testShowtime))
}

func TestCancelGuards(t *testing.T) {
    l, _, _, _ := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    b, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1"})
    require.NoError(t, err)

    assert.ErrorIs(t, l.Cancel(ctx, b.ID, otherUser), repository.ErrBookingNotFound)
    assert.ErrorIs(t, l.Cancel(ctx, 999, testUser), repository.ErrBookingNotFound)
}

func TestExpireDueReleasesSeats(t *testing.T) {
    l, ledger, clock, _ := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    b1, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1"})
    require.NoError(t, err)
    b2, err := l.CreateBooking(ctx, otherUser, testShowtime, []string{"A2"})
    require.NoError(t, err)
    _, err = l.SettlePayment(ctx, b2.ID, otherUser, model.PaymentPaid)
    require.NoError(t, err)

    clock.Advance(2 * time.Minute)
    expired, err := l.ExpireDue(ctx)
    require.NoError(t, err)
    assert.Equal(t, []uint64{b1.ID}, expired)

    got, err := ledger.GetByID(ctx, b1.ID)
    require.NoError(t, err)
    assert.Equal(t, model.PaymentFailed, got.Status)
    // b1's seat returned; b2's paid seat did not.
    assert.Equal(t, 3, ledger.availableCount(testShowtime))
    assert.True(t, ledger.consistent(testShowtime))
}

func TestExpireDueIsIdempotent(t *testing.T) {
    l, ledger, clock, _ := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    _, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1"})
    require.NoError(t, err)

    clock.Advance(2 * time.Minute)
    first, err := l.ExpireDue(ctx)
    require.NoError(t, err)
    assert.Len(t, first, 1)

    second, err := l.ExpireDue(ctx)
    require.NoError(t, err)
    assert.Empty(t, second)
    assert.Equal(t, 4, ledger.availableCount(testShowtime))
}

// TestBookingScenario walks the whole happy path on a 2x2 hall: hold,
// contention, payment, grace cancel, rebooking.
func TestBookingScenario(t *testing.T) {
    l, ledger, clock, sink := newTestLifecycle(t, 2, 2)
    ctx := context.Background()

    // User books two seats.
    b, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1", "B2"})
    require.NoError(t, err)
    assert.Equal(t, 2, ledger.availableCount(testShowtime))

    // A rival wants one of them and loses.
    _, err = l.CreateBooking(ctx, otherUser, testShowtime, []string{"B2"})
    var unavailable *repository.SeatsUnavailableError
    require.ErrorAs(t, err, &unavailable)

    // Payment settles; the event goes out.
    _, err = l.SettlePayment(ctx, b.ID, testUser, model.PaymentPaid)
    require.NoError(t, err)
    require.Len(t, sink.all(), 1)

    // Second thoughts inside the grace window.
    clock.Advance(time.Minute)
    require.NoError(t, l.Cancel(ctx, b.ID, testUser))
    assert.Equal(t, 4, ledger.availableCount(testShowtime))

    // Now the rival gets the seat.
    rb, err := l.CreateBooking(ctx, otherUser, testShowtime, []string{"B2"})
    require.NoError(t, err)
    assert.Equal(t, []string{"B2"}, rb.SeatLabels())
    assert.True(t, ledger.consistent(testShowtime))
}

func TestPublishFailureDoesNotFailSettlement(t *testing.T) {
    ledger := newMemLedger()
    ledger.seed(testShowtime, 1, 1)
    showtimes := &memShowtimes{byID: map[uint64]*model.Showtime{
        testShowtime: {ID: testShowtime, TicketPriceCents: 1000},
    }}
    l := NewLifecycle(ledger, showtimes, time.Minute, time.Minute, func(context.Context, queue.BookingPaidEvent) error {
        return errors.New("broker down")
    })

    ctx := context.Background()
    b, err := l.CreateBooking(ctx, testUser, testShowtime, []string{"A1"})
    require.NoError(t, err)

    paid, err := l.SettlePayment(ctx, b.ID, testUser, model.PaymentPaid)
    require.NoError(t, err)
    assert.Equal(t, model.PaymentPaid, paid.Status)
}
