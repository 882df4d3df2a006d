package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/iliyamo/movie-ticketing/internal/model"
)

// BookingRepo is the booking ledger.  Every booking row is the durable
// record of one reservation transaction; its seat list lives in
// booking_seats and survives independently of the seats' availability
// flags.  All state transitions here are conditional updates: the WHERE
// clause re-checks the current status so concurrent confirm, cancel and
// expiry calls settle to exactly one winner.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo {
    return &BookingRepo{db: db}
}

// Create atomically allocates the booking's seats and records the
// booking.  Seat allocation, the bookings insert and the booking_seats
// inserts share one transaction, so a booking row never exists without
// its seats marked and vice versa.  On contention the transaction rolls
// back and *SeatsUnavailableError reports the contested labels; the
// caller's request has no effect at all.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := allocateSeatsTx(ctx, tx, b.ShowtimeID, b.Seats); err != nil {
        return err
    }
    const ins = `INSERT INTO bookings (user_id, showtime_id, total_price_cents, payment_status, expires_at)
                 VALUES (?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, ins, b.UserID, b.ShowtimeID, b.TotalPriceCents, model.PaymentPending, b.ExpiresAt.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    b.Status = model.PaymentPending
    // One bulk insert for the seat list.
    q := `INSERT INTO booking_seats (booking_id, showtime_id, row_label, seat_number) VALUES `
    args := make([]interface{}, 0, len(b.Seats)*4)
    for i, p := range b.Seats {
        if i > 0 {
            q += ","
        }
        q += "(?, ?, ?, ?)"
        args = append(args, b.ID, b.ShowtimeID, p.Row, p.Column)
    }
    if _, err := tx.ExecContext(ctx, q, args...); err != nil {
        return err
    }
    const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
    if err := tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID retrieves a booking with its seat list.  It returns
// ErrBookingNotFound when no row matches.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    const q = `SELECT id, user_id, showtime_id, total_price_cents, payment_status, expires_at, paid_at, created_at, updated_at
               FROM bookings WHERE id = ?`
    b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        return nil, err
    }
    if err := r.populateSeats(ctx, []*model.Booking{b}); err != nil {
        return nil, err
    }
    return b, nil
}

// ListByUser returns all bookings of a user, newest first, with seat
// lists populated.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Booking, error) {
    const q = `SELECT id, user_id, showtime_id, total_price_cents, payment_status, expires_at, paid_at, created_at, updated_at
               FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`
    return r.list(ctx, q, userID)
}

// ListByShowtime returns all bookings of a showtime, newest first, with
// seat lists populated.
func (r *BookingRepo) ListByShowtime(ctx context.Context, showtimeID uint64) ([]*model.Booking, error) {
    const q = `SELECT id, user_id, showtime_id, total_price_cents, payment_status, expires_at, paid_at, created_at, updated_at
               FROM bookings WHERE showtime_id = ? ORDER BY created_at DESC, id DESC`
    return r.list(ctx, q, showtimeID)
}

func (r *BookingRepo) list(ctx context.Context, q string, arg interface{}) ([]*model.Booking, error) {
    rows, err := r.db.QueryContext(ctx, q, arg)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]*model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        result = append(result, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if err := r.populateSeats(ctx, result); err != nil {
        return nil, err
    }
    return result, nil
}

// MarkPaid settles a PENDING booking as PAID and stamps paid_at.  The
// update is conditional on the current status: if the booking has
// already been settled, failed or expired it returns ErrBookingResolved,
// and ErrBookingNotFound when no such booking exists at all.
func (r *BookingRepo) MarkPaid(ctx context.Context, id uint64, now time.Time) error {
    const q = `UPDATE bookings SET payment_status = ?, paid_at = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND payment_status = ?`
    res, err := r.db.ExecContext(ctx, q, model.PaymentPaid, now.UTC(), id, model.PaymentPending)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 1 {
        return nil
    }
    return r.resolveMissOrRace(ctx, id)
}

// MarkFailed settles a PENDING booking as FAILED and releases its seats
// in the same transaction.  Like MarkPaid it is conditional on the
// current status and loses gracefully with ErrBookingResolved.
func (r *BookingRepo) MarkFailed(ctx context.Context, id uint64) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    const q = `UPDATE bookings SET payment_status = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND payment_status = ?`
    res, err := tx.ExecContext(ctx, q, model.PaymentFailed, id, model.PaymentPending)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return r.resolveMissOrRace(ctx, id)
    }
    showtimeID, seats, err := bookingSeatsTx(ctx, tx, id)
    if err != nil {
        return err
    }
    if _, err := releaseSeatsTx(ctx, tx, showtimeID, seats); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// Cancel removes a booking owned by userID and releases its seats.  A
// PENDING booking may always be cancelled; a PAID booking only within
// the grace window measured from paid_at.  Anything else fails with
// ErrBookingResolved.  The booking row is locked for the duration of
// the transaction so cancel and expiry cannot both release the seats.
func (r *BookingRepo) Cancel(ctx context.Context, id, userID uint64, grace time.Duration, now time.Time) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    const q = `SELECT showtime_id, payment_status, paid_at FROM bookings
               WHERE id = ? AND user_id = ? FOR UPDATE`
    var (
        showtimeID uint64
        status     model.PaymentStatus
        paidAt     sql.NullTime
    )
    if err := tx.QueryRowContext(ctx, q, id, userID).Scan(&showtimeID, &status, &paidAt); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return ErrBookingNotFound
        }
        return err
    }
    switch status {
    case model.PaymentPending:
        // always cancellable
    case model.PaymentPaid:
        if !paidAt.Valid || now.Sub(paidAt.Time) > grace {
            return ErrBookingResolved
        }
    default:
        return ErrBookingResolved
    }
    _, seats, err := bookingSeatsTx(ctx, tx, id)
    if err != nil {
        return err
    }
    if err := releaseSeatsStrictTx(ctx, tx, showtimeID, seats); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM booking_seats WHERE booking_id = ?`, id); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// ExpireDue settles every PENDING booking whose hold has lapsed as
// FAILED and releases its seats.  Each booking is processed in its own
// transaction so one bad row cannot wedge the whole sweep; the
// conditional update means a booking paid between the scan and the
// settle is simply skipped.  It returns the IDs of the bookings it
// expired.
func (r *BookingRepo) ExpireDue(ctx context.Context, now time.Time) ([]uint64, error) {
    const scan = `SELECT id FROM bookings WHERE payment_status = ? AND expires_at <= ?`
    rows, err := r.db.QueryContext(ctx, scan, model.PaymentPending, now.UTC())
    if err != nil {
        return nil, err
    }
    var due []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            rows.Close()
            return nil, err
        }
        due = append(due, id)
    }
    rows.Close()
    if err := rows.Err(); err != nil {
        return nil, err
    }
    expired := make([]uint64, 0, len(due))
    for _, id := range due {
        err := r.MarkFailed(ctx, id)
        if err == nil {
            expired = append(expired, id)
            continue
        }
        if errors.Is(err, ErrBookingResolved) || errors.Is(err, ErrBookingNotFound) {
            continue // settled or cancelled since the scan
        }
        return expired, err
    }
    return expired, nil
}

// resolveMissOrRace turns a zero-row conditional update into the right
// sentinel: ErrBookingNotFound when the booking does not exist,
// ErrBookingResolved when it exists but has left PENDING.
func (r *BookingRepo) resolveMissOrRace(ctx context.Context, id uint64) error {
    var one int
    err := r.db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, id).Scan(&one)
    if errors.Is(err, sql.ErrNoRows) {
        return ErrBookingNotFound
    }
    if err != nil {
        return err
    }
    return ErrBookingResolved
}

// bookingSeatsTx loads a booking's showtime and seat list inside tx,
// ordered the way they were written.
func bookingSeatsTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (uint64, []model.SeatPosition, error) {
    const q = `SELECT showtime_id, row_label, seat_number FROM booking_seats
               WHERE booking_id = ? ORDER BY id`
    rows, err := tx.QueryContext(ctx, q, bookingID)
    if err != nil {
        return 0, nil, err
    }
    defer rows.Close()
    var (
        showtimeID uint64
        seats      []model.SeatPosition
    )
    for rows.Next() {
        var p model.SeatPosition
        if err := rows.Scan(&showtimeID, &p.Row, &p.Column); err != nil {
            return 0, nil, err
        }
        seats = append(seats, p)
    }
    if err := rows.Err(); err != nil {
        return 0, nil, err
    }
    return showtimeID, seats, nil
}

// populateSeats fills the Seats slice of each booking with one IN query
// instead of a query per booking.
func (r *BookingRepo) populateSeats(ctx context.Context, bookings []*model.Booking) error {
    if len(bookings) == 0 {
        return nil
    }
    byID := make(map[uint64]*model.Booking, len(bookings))
    args := make([]interface{}, 0, len(bookings))
    for _, b := range bookings {
        byID[b.ID] = b
        args = append(args, b.ID)
    }
    placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
    q := `SELECT booking_id, row_label, seat_number FROM booking_seats
          WHERE booking_id IN (` + placeholders + `) ORDER BY booking_id, id`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var (
            bookingID uint64
            p         model.SeatPosition
        )
        if err := rows.Scan(&bookingID, &p.Row, &p.Column); err != nil {
            return err
        }
        if b, ok := byID[bookingID]; ok {
            b.Seats = append(b.Seats, p)
        }
    }
    return rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
    var (
        b      model.Booking
        paidAt sql.NullTime
    )
    err := row.Scan(
        &b.ID, &b.UserID, &b.ShowtimeID, &b.TotalPriceCents, &b.Status, &b.ExpiresAt, &paidAt, &b.CreatedAt, &b.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    if paidAt.Valid {
        t := paidAt.Time
        b.PaidAt = &t
    }
    return &b, nil
}
