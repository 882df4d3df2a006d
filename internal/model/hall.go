package model

import "time"

// Hall layout limits.  Row labels are base-26 letter codes, so 702 rows
// covers A through ZZ; anything larger is rejected at materialization
// time instead of silently producing broken labels.
const (
    MaxHallRows = 702
    MaxHallCols = 500
)

// Hall represents the static seating geometry a showtime's seat
// inventory is generated from.  SeatRows and SeatCols describe the grid;
// Capacity is always rows x cols.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – human readable hall name.
//  HallType  – classification tier (PLATINUM, GOLDEN, SILVER).
//  SeatRows  – number of seating rows.
//  SeatCols  – number of seats per row.
//  Capacity  – total seat count (rows x cols).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Hall struct {
    ID        uint64    `json:"id"`         // halls.id
    Name      string    `json:"name"`       // halls.name
    HallType  string    `json:"hall_type"`  // halls.hall_type
    SeatRows  uint32    `json:"seat_rows"`  // halls.seat_rows
    SeatCols  uint32    `json:"seat_cols"`  // halls.seat_cols
    Capacity  uint32    `json:"capacity"`   // halls.capacity
    CreatedAt time.Time `json:"created_at"` // halls.created_at
    UpdatedAt time.Time `json:"updated_at"` // halls.updated_at
}

// ValidLayout reports whether the hall's grid is materializable.
func (h *Hall) ValidLayout() bool {
    return h.SeatRows >= 1 && h.SeatRows <= MaxHallRows &&
        h.SeatCols >= 1 && h.SeatCols <= MaxHallCols
}
