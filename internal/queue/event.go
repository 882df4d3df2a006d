// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingPaidEvent is published when a booking settles as PAID.  It
// carries enough information for downstream consumers to log, notify,
// or feed analytics without querying the primary database.
type BookingPaidEvent struct {
    BookingID       uint64   `json:"booking_id"`
    UserID          uint64   `json:"user_id"`
    ShowtimeID      uint64   `json:"showtime_id"`
    MovieID         uint64   `json:"movie_id"`
    HallID          uint64   `json:"hall_id"`
    StartsAt        string   `json:"starts_at"`
    SeatLabels      []string `json:"seats"`
    TotalPriceCents uint32   `json:"total_price_cents"`
    PaidAt          string   `json:"paid_at"`
}
