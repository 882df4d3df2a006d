// Package repository contains data access logic for showtime operations.
// A showtime is a scheduled screening of a movie in a hall; it carries
// the per-seat ticket price and a denormalized available_seats counter.
// The counter is never written on its own: every adjustment happens in
// the same transaction as the seat flips it accounts for.
package repository

import (
    "context"      // context for controlling query lifetime
    "database/sql" // sql provides DB abstraction
    "errors"       // errors for sentinel comparisons

    "github.com/iliyamo/movie-ticketing/internal/model"
)

// ShowtimeRepo manages persistence for showtimes.
type ShowtimeRepo struct {
    db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
    return &ShowtimeRepo{db: db}
}

// Create inserts a new showtime with an available_seats counter of zero;
// the counter is set to the real value by seat materialization, which
// runs immediately after in the showtime-creation flow.  On success the
// generated ID and DB-default fields are populated on the given struct.
func (r *ShowtimeRepo) Create(ctx context.Context, s *model.Showtime) error {
    const q = `INSERT INTO showtimes (movie_id, hall_id, starts_at, ticket_price_cents, available_seats)
               VALUES (?, ?, ?, ?, 0)`
    res, err := r.db.ExecContext(ctx, q, s.MovieID, s.HallID, s.StartsAt.UTC(), s.TicketPriceCents)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    const sel = `SELECT id, movie_id, hall_id, starts_at, ticket_price_cents, available_seats, created_at, updated_at
                 FROM showtimes WHERE id = ?`
    return r.db.QueryRowContext(ctx, sel, s.ID).Scan(
        &s.ID, &s.MovieID, &s.HallID, &s.StartsAt, &s.TicketPriceCents, &s.AvailableSeats, &s.CreatedAt, &s.UpdatedAt,
    )
}

// GetByID retrieves a showtime by its ID.  It returns
// ErrShowtimeNotFound if there is no matching row.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
    const q = `SELECT id, movie_id, hall_id, starts_at, ticket_price_cents, available_seats, created_at, updated_at
               FROM showtimes WHERE id = ?`
    var s model.Showtime
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &s.ID, &s.MovieID, &s.HallID, &s.StartsAt, &s.TicketPriceCents, &s.AvailableSeats, &s.CreatedAt, &s.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrShowtimeNotFound
        }
        return nil, err
    }
    return &s, nil
}

// ListByHall returns all showtimes for a given hall ordered by start
// time ascending.  When none exist it returns an empty slice.
func (r *ShowtimeRepo) ListByHall(ctx context.Context, hallID uint64) ([]model.Showtime, error) {
    const q = `SELECT id, movie_id, hall_id, starts_at, ticket_price_cents, available_seats, created_at, updated_at
               FROM showtimes WHERE hall_id = ? ORDER BY starts_at ASC`
    rows, err := r.db.QueryContext(ctx, q, hallID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]model.Showtime, 0)
    for rows.Next() {
        var s model.Showtime
        if err := rows.Scan(
            &s.ID, &s.MovieID, &s.HallID, &s.StartsAt, &s.TicketPriceCents, &s.AvailableSeats, &s.CreatedAt, &s.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        result = append(result, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}

// DeleteCascade removes a showtime together with its bookings, booking
// seats and seat inventory.  The deletion is an explicit, ordered
// transaction rather than an implicit lifecycle hook so that failure
// handling stays visible: dependents go first, the showtime row last,
// and everything rolls back together on error.  It returns
// ErrShowtimeNotFound when the showtime does not exist.
func (r *ShowtimeRepo) DeleteCascade(ctx context.Context, id uint64) error {
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
    // Verify the showtime exists before deleting dependents.
    var one int
    if err := tx.QueryRowContext(ctx, `SELECT 1 FROM showtimes WHERE id = ?`, id).Scan(&one); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return ErrShowtimeNotFound
        }
        return err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM booking_seats WHERE showtime_id = ?`, id); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE showtime_id = ?`, id); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE showtime_id = ?`, id); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `DELETE FROM showtimes WHERE id = ?`, id); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
