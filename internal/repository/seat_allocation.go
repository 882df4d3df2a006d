package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/movie-ticketing/internal/model"
)

// This file holds the check-and-mark critical section shared by booking
// creation, cancellation, failure and expiry flows.  Every availability
// decision is made by a conditional UPDATE whose WHERE clause re-checks
// the precondition at write time, so a stale read can never turn into an
// unconditional write.  All helpers run inside the caller's transaction;
// on error the caller rolls back and no partial state is observable.

// allocateSeatsTx marks the given seats unavailable for a showtime and
// decrements the showtime's available_seats counter by the request size,
// all within tx.  Each seat is flipped with
// `UPDATE ... WHERE is_available = 1`; any seat that was missing or
// already taken causes the whole allocation to fail with
// *SeatsUnavailableError listing the contested labels.  The caller must
// roll back the transaction on error so no seat from a failed request
// stays marked.
func allocateSeatsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, positions []model.SeatPosition) error {
    const mark = `UPDATE seats SET is_available = 0, updated_at = CURRENT_TIMESTAMP
                  WHERE showtime_id = ? AND row_label = ? AND seat_number = ? AND is_available = 1`
    var contested []model.SeatPosition
    for _, p := range positions {
        res, err := tx.ExecContext(ctx, mark, showtimeID, p.Row, p.Column)
        if err != nil {
            return err
        }
        n, err := res.RowsAffected()
        if err != nil {
            return err
        }
        if n == 0 {
            contested = append(contested, p)
        }
    }
    if len(contested) > 0 {
        return &SeatsUnavailableError{Seats: model.Labels(contested)}
    }
    // Keep the conservation invariant: the counter moves in the same
    // transaction as the seat flips.  The guard on available_seats can
    // only fail if the counter has drifted from the seat table.
    const dec = `UPDATE showtimes SET available_seats = available_seats - ?, updated_at = CURRENT_TIMESTAMP
                 WHERE id = ? AND available_seats >= ?`
    res, err := tx.ExecContext(ctx, dec, len(positions), showtimeID, len(positions))
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrShowtimeNotFound
    }
    return nil
}

// releaseSeatsTx flips the given seats back to available and increments
// the counter by the number of rows actually flipped.  Seats that are
// already available are skipped rather than treated as an error, which
// makes release idempotent under the races between expiry and
// user-initiated cancellation.  It returns how many seats were released.
func releaseSeatsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, positions []model.SeatPosition) (int, error) {
    const free = `UPDATE seats SET is_available = 1, updated_at = CURRENT_TIMESTAMP
                  WHERE showtime_id = ? AND row_label = ? AND seat_number = ? AND is_available = 0`
    released := 0
    for _, p := range positions {
        res, err := tx.ExecContext(ctx, free, showtimeID, p.Row, p.Column)
        if err != nil {
            return 0, err
        }
        n, err := res.RowsAffected()
        if err != nil {
            return 0, err
        }
        released += int(n)
    }
    if released > 0 {
        const inc = `UPDATE showtimes SET available_seats = available_seats + ?, updated_at = CURRENT_TIMESTAMP
                     WHERE id = ?`
        if _, err := tx.ExecContext(ctx, inc, released, showtimeID); err != nil {
            return 0, err
        }
    }
    return released, nil
}

// releaseSeatsStrictTx is the cancel-path variant of releaseSeatsTx:
// every seat the booking claims must actually be flipped.  A seat that
// is already available signals that the inventory and the ledger have
// diverged, so the whole transaction fails with ErrSeatNotReserved
// instead of silently succeeding.  Callers hold the booking row lock,
// which rules out the benign double-release race.
func releaseSeatsStrictTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, positions []model.SeatPosition) error {
    const free = `UPDATE seats SET is_available = 1, updated_at = CURRENT_TIMESTAMP
                  WHERE showtime_id = ? AND row_label = ? AND seat_number = ? AND is_available = 0`
    for _, p := range positions {
        res, err := tx.ExecContext(ctx, free, showtimeID, p.Row, p.Column)
        if err != nil {
            return err
        }
        if n, _ := res.RowsAffected(); n == 0 {
            return ErrSeatNotReserved
        }
    }
    if len(positions) > 0 {
        const inc = `UPDATE showtimes SET available_seats = available_seats + ?, updated_at = CURRENT_TIMESTAMP
                     WHERE id = ?`
        if _, err := tx.ExecContext(ctx, inc, len(positions), showtimeID); err != nil {
            return err
        }
    }
    return nil
}
