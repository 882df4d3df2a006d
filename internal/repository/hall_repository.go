package repository // repository holds data access logic for domain entities

import (
    "context"      // context is used to manage deadlines and cancellation
    "database/sql" // sql provides DB primitives
    "errors"       // errors for sentinel comparisons

    "github.com/iliyamo/movie-ticketing/internal/model"
)

// HallRepo provides methods to create and retrieve halls.  Halls are the
// static layout template from which a showtime's seat inventory is
// materialized; they sit outside the concurrency-critical path.
type HallRepo struct {
    db *sql.DB // db is the underlying database connection
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo {
    return &HallRepo{db: db}
}

// Create inserts a new hall.  Capacity is stored as rows x cols so
// reads never have to recompute it.  After insert the generated ID and
// DB-default timestamps are populated on the given hall.
func (r *HallRepo) Create(ctx context.Context, h *model.Hall) error {
    const qInsert = `INSERT INTO halls (name, hall_type, seat_rows, seat_cols, capacity)
                     VALUES (?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, qInsert, h.Name, h.HallType, h.SeatRows, h.SeatCols, h.SeatRows*h.SeatCols)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    h.ID = uint64(id)
    const qSelect = `SELECT id, name, hall_type, seat_rows, seat_cols, capacity, created_at, updated_at
                     FROM halls WHERE id = ?`
    return r.db.QueryRowContext(ctx, qSelect, h.ID).
        Scan(&h.ID, &h.Name, &h.HallType, &h.SeatRows, &h.SeatCols, &h.Capacity, &h.CreatedAt, &h.UpdatedAt)
}

// GetByID retrieves a hall by its ID.  It returns ErrHallNotFound when
// no row is found.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
    const q = `SELECT id, name, hall_type, seat_rows, seat_cols, capacity, created_at, updated_at
               FROM halls WHERE id = ?`
    var h model.Hall
    err := r.db.QueryRowContext(ctx, q, id).
        Scan(&h.ID, &h.Name, &h.HallType, &h.SeatRows, &h.SeatCols, &h.Capacity, &h.CreatedAt, &h.UpdatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrHallNotFound
        }
        return nil, err
    }
    return &h, nil
}

// List returns all halls ordered by name.  When no halls exist it
// returns an empty slice and nil error.
func (r *HallRepo) List(ctx context.Context) ([]model.Hall, error) {
    const q = `SELECT id, name, hall_type, seat_rows, seat_cols, capacity, created_at, updated_at
               FROM halls ORDER BY name`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    result := make([]model.Hall, 0)
    for rows.Next() {
        var h model.Hall
        if err := rows.Scan(&h.ID, &h.Name, &h.HallType, &h.SeatRows, &h.SeatCols, &h.Capacity, &h.CreatedAt, &h.UpdatedAt); err != nil {
            return nil, err
        }
        result = append(result, h)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return result, nil
}
