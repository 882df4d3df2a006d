// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios: expected
// contention (seats lost to another customer), duplicate seat
// materialization, missing records, and consistency faults that signal
// an invariant violation rather than ordinary conflict.
package repository

import (
    "errors"
    "fmt"
    "strings"
)

// ErrHallNotFound is returned when a hall lookup yields no rows.
var ErrHallNotFound = errors.New("hall not found")

// ErrShowtimeNotFound is returned when a showtime lookup yields no rows.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrBookingNotFound is returned when a booking lookup yields no rows.
var ErrBookingNotFound = errors.New("booking not found")

// ErrUserNotFound is returned when a user lookup yields no rows.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateInventory is returned when seats have already been
// materialized for a showtime. Materialization must run exactly once.
var ErrDuplicateInventory = errors.New("seats already created for this showtime")

// ErrInvalidLayout is returned when a hall's seat grid is missing or
// exceeds the supported row/column limits.
var ErrInvalidLayout = errors.New("invalid seat layout")

// ErrBookingResolved is returned when a transition loses the race
// against a concurrent confirm, cancel or expiry. Exactly one of the
// racing operations completes; the others receive this error instead of
// double-applying their effects.
var ErrBookingResolved = errors.New("booking already resolved")

// ErrSeatNotReserved is returned by cancel/expire when a seat the
// booking claims to hold is already available. This is a consistency
// fault, not ordinary contention: handlers should log it distinctly
// before surfacing it.
var ErrSeatNotReserved = errors.New("seat is not reserved")

// SeatsUnavailableError reports which requested seats could not be
// allocated, so the client can re-render the seat map without a full
// reload. It aborts the entire request: no partial allocation is ever
// committed.
type SeatsUnavailableError struct {
    Seats []string // compact labels of the contested or missing seats
}

// Error implements the error interface.
func (e *SeatsUnavailableError) Error() string {
    return fmt.Sprintf("seats %s are already booked", strings.Join(e.Seats, ", "))
}
