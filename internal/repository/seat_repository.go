package repository // repository defines data access for per-showtime seat inventory

import (
    "context"      // context allows query cancellation and timeouts
    "database/sql" // sql provides DB primitives
    "strings"      // strings builds the bulk INSERT statements

    "github.com/iliyamo/movie-ticketing/internal/model"
)

// seatInsertBatch caps the seats per INSERT statement.  Each seat takes
// four placeholders and MySQL rejects prepared statements with more
// than 65535 of them, so large halls are written in several statements
// inside the one materialization transaction.
const seatInsertBatch = 10000

// SeatRepo is the seat inventory store: the durable record of every
// seat's identity and current availability for a showtime.  Seats are
// created in bulk from the hall layout, flipped by the allocation
// helpers, and deleted when the owning showtime is deleted.
type SeatRepo struct {
    db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
    return &SeatRepo{db: db}
}

// MaterializeSeats creates the full seat grid for a showtime from the
// hall layout: rows x cols records, rows labeled A, B, .. AA, columns
// 1..cols, all initially available.  As an atomic side effect the
// showtime's available_seats counter is set to rows x cols.  The whole
// operation runs once per showtime: a second call fails with
// ErrDuplicateInventory and leaves the first run's inventory untouched.
// It returns the number of seats created.
func (r *SeatRepo) MaterializeSeats(ctx context.Context, hall *model.Hall, showtimeID uint64) (int, error) {
    if hall == nil || !hall.ValidLayout() {
        return 0, ErrInvalidLayout
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    // Idempotency guard: materialization must run exactly once.
    var existing int
    if err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM seats WHERE showtime_id = ?`, showtimeID,
    ).Scan(&existing); err != nil {
        return 0, err
    }
    if existing > 0 {
        return 0, ErrDuplicateInventory
    }
    rows := int(hall.SeatRows)
    cols := int(hall.SeatCols)
    total := rows * cols
    // Walk the grid in insertion order, one bulk INSERT per batch.
    for start := 0; start < total; start += seatInsertBatch {
        end := start + seatInsertBatch
        if end > total {
            end = total
        }
        var q strings.Builder
        q.WriteString(`INSERT INTO seats (hall_id, showtime_id, row_label, seat_number, is_available) VALUES `)
        args := make([]interface{}, 0, (end-start)*4)
        for i := start; i < end; i++ {
            if i > start {
                q.WriteByte(',')
            }
            q.WriteString("(?, ?, ?, ?, 1)")
            args = append(args, hall.ID, showtimeID, model.IndexToRowLabel(i/cols), uint32(i%cols)+1)
        }
        if _, err := tx.ExecContext(ctx, q.String(), args...); err != nil {
            return 0, err
        }
    }
    res, err := tx.ExecContext(ctx,
        `UPDATE showtimes SET available_seats = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
        total, showtimeID,
    )
    if err != nil {
        return 0, err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return 0, ErrShowtimeNotFound
    }
    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return total, nil
}

// ListByShowtime retrieves all seats of a showtime ordered by row label
// then seat number.  A non-zero hallID narrows the result to that hall,
// mirroring the public query parameters.
func (r *SeatRepo) ListByShowtime(ctx context.Context, showtimeID, hallID uint64) ([]model.Seat, error) {
    q := `SELECT id, hall_id, showtime_id, row_label, seat_number, is_available, created_at, updated_at
          FROM seats WHERE showtime_id = ?`
    args := []interface{}{showtimeID}
    if hallID != 0 {
        q += ` AND hall_id = ?`
        args = append(args, hallID)
    }
    q += ` ORDER BY row_label, seat_number`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var result []model.Seat
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(
            &s.ID, &s.HallID, &s.ShowtimeID, &s.RowLabel, &s.SeatNumber, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt,
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
