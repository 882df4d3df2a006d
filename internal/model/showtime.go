package model

import "time"

// Showtime represents a scheduled screening of a movie in a particular
// hall.  The movie itself is an external reference; this service only
// carries its ID.  AvailableSeats is a denormalized counter that must
// always equal the number of this showtime's seats with
// is_available = 1 – the two are only ever updated inside the same
// transaction.
//
// Fields:
//  ID               – primary key identifier.
//  MovieID          – external movie reference.
//  HallID           – hall where the screening happens.
//  StartsAt         – scheduled start.
//  TicketPriceCents – per-seat ticket price in cents.
//  AvailableSeats   – cached count of bookable seats.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Showtime struct {
    ID               uint64    `json:"id"`                 // showtimes.id
    MovieID          uint64    `json:"movie_id"`           // showtimes.movie_id
    HallID           uint64    `json:"hall_id"`            // showtimes.hall_id
    StartsAt         time.Time `json:"starts_at"`          // showtimes.starts_at
    TicketPriceCents uint32    `json:"ticket_price_cents"` // showtimes.ticket_price_cents
    AvailableSeats   uint32    `json:"available_seats"`    // showtimes.available_seats
    CreatedAt        time.Time `json:"created_at"`         // showtimes.created_at
    UpdatedAt        time.Time `json:"updated_at"`         // showtimes.updated_at
}
