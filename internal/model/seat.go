package model

import (
    "errors"
    "strconv"
    "strings"
    "time"
)

// Seat describes one physical seat instance scoped to a single showtime.
// Seats are materialized in bulk when a showtime is created and are
// uniquely identified by (showtime, row label, seat number).  The
// IsAvailable flag is the single source of truth for bookability; the
// booking state itself lives in the bookings ledger.
//
// Fields:
//  ID          – primary key identifier.
//  HallID      – hall the seat belongs to.
//  ShowtimeID  – showtime the seat belongs to.
//  RowLabel    – letter-coded row (A, B, .. AA, ..).
//  SeatNumber  – 1-based column within the row.
//  IsAvailable – whether the seat can still be booked.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Seat struct {
    ID          uint64    `json:"id"`           // seats.id
    HallID      uint64    `json:"hall_id"`      // seats.hall_id
    ShowtimeID  uint64    `json:"showtime_id"`  // seats.showtime_id
    RowLabel    string    `json:"row"`          // seats.row_label
    SeatNumber  uint32    `json:"column"`       // seats.seat_number
    IsAvailable bool      `json:"is_available"` // seats.is_available
    CreatedAt   time.Time `json:"created_at"`   // seats.created_at
    UpdatedAt   time.Time `json:"updated_at"`   // seats.updated_at
}

// Label returns the compact wire form of the seat ("A12").
func (s Seat) Label() string {
    return s.RowLabel + strconv.FormatUint(uint64(s.SeatNumber), 10)
}

// SeatPosition is the structured (row, column) pair used internally for
// all seat addressing.  Compact labels such as "A12" are parsed into a
// SeatPosition exactly once at the wire boundary and serialized back only
// when building responses, so nothing downstream re-parses strings.
type SeatPosition struct {
    Row    string // letter-coded row label, upper case
    Column uint32 // 1-based seat number within the row
}

// Label serializes the position to the compact wire format.
func (p SeatPosition) Label() string {
    return p.Row + strconv.FormatUint(uint64(p.Column), 10)
}

// ErrInvalidSeatLabel is returned when a compact seat identifier cannot
// be parsed into a row label and a column number.
var ErrInvalidSeatLabel = errors.New("invalid seat label")

// ParseSeatLabel parses a compact seat identifier.  The leading letters
// form the row label and the trailing digits form the column number, so
// multi-letter rows ("AA3") and multi-digit columns ("A12") both work.
// The row label is normalized to upper case.  A label with no letters,
// no digits, a zero column or stray characters is rejected.
func ParseSeatLabel(raw string) (SeatPosition, error) {
    s := strings.TrimSpace(raw)
    i := 0
    for i < len(s) {
        ch := s[i]
        if ch >= 'a' && ch <= 'z' {
            ch -= 32
        }
        if ch < 'A' || ch > 'Z' {
            break
        }
        i++
    }
    if i == 0 || i == len(s) {
        return SeatPosition{}, ErrInvalidSeatLabel
    }
    col, err := strconv.ParseUint(s[i:], 10, 32)
    if err != nil || col == 0 {
        return SeatPosition{}, ErrInvalidSeatLabel
    }
    return SeatPosition{Row: strings.ToUpper(s[:i]), Column: uint32(col)}, nil
}

// ParseSeatLabels parses a list of compact identifiers, collapsing
// duplicates while preserving the first-seen order.  Any malformed label
// aborts the whole parse.
func ParseSeatLabels(raw []string) ([]SeatPosition, error) {
    out := make([]SeatPosition, 0, len(raw))
    seen := make(map[SeatPosition]struct{}, len(raw))
    for _, r := range raw {
        p, err := ParseSeatLabel(r)
        if err != nil {
            return nil, err
        }
        if _, ok := seen[p]; ok {
            continue
        }
        seen[p] = struct{}{}
        out = append(out, p)
    }
    return out, nil
}

// Labels serializes a slice of positions back to compact strings.
func Labels(ps []SeatPosition) []string {
    out := make([]string, 0, len(ps))
    for _, p := range ps {
        out = append(out, p.Label())
    }
    return out
}

// IndexToRowLabel converts a zero-based row index to its alphabetical
// label (0->A, 25->Z, 26->AA).  Negative indices yield an empty string.
func IndexToRowLabel(i int) string {
    if i < 0 {
        return ""
    }
    res := []rune{}
    for {
        rem := i % 26
        res = append(res, rune('A'+rem))
        i = i/26 - 1
        if i < 0 {
            break
        }
    }
    for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
        res[j], res[k] = res[k], res[j]
    }
    return string(res)
}

// RowLabelToIndex converts a row label back to its zero-based index.  It
// returns false for labels containing anything but ASCII letters.
func RowLabelToIndex(label string) (int, bool) {
    s := strings.ToUpper(strings.TrimSpace(label))
    if s == "" {
        return -1, false
    }
    n := 0
    for i := 0; i < len(s); i++ {
        ch := s[i]
        if ch < 'A' || ch > 'Z' {
            return -1, false
        }
        n = n*26 + int(ch-'A'+1)
    }
    return n - 1, true
}
