package model

import (
    "errors"
    "strings"
    "time"
)

// PaymentStatus is the closed set of payment states a booking can be in.
// The zero value is not valid; use ParsePaymentStatus for input coming
// from the wire.  PENDING is the hold state: seats are marked
// unavailable but payment has not been confirmed yet.  PAID and FAILED
// are terminal for the happy path; transition legality is enforced by
// the lifecycle manager, not by scattered string checks.
type PaymentStatus string

const (
    PaymentPending PaymentStatus = "PENDING" // hold created, awaiting payment
    PaymentPaid    PaymentStatus = "PAID"    // payment confirmed, sale final
    PaymentFailed  PaymentStatus = "FAILED"  // payment declined, seats released
)

// ErrInvalidPaymentStatus is returned when a wire value does not name a
// known payment status.
var ErrInvalidPaymentStatus = errors.New("invalid payment status")

// ParsePaymentStatus converts a wire value into a PaymentStatus.  The
// original client sends "Paid"/"Failed"/"Pending", so matching is case
// insensitive.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
    switch strings.ToUpper(strings.TrimSpace(s)) {
    case string(PaymentPending):
        return PaymentPending, nil
    case string(PaymentPaid):
        return PaymentPaid, nil
    case string(PaymentFailed):
        return PaymentFailed, nil
    }
    return "", ErrInvalidPaymentStatus
}

// Terminal reports whether the status admits no further transitions.
func (s PaymentStatus) Terminal() bool {
    return s == PaymentPaid || s == PaymentFailed
}

// CanTransitionTo reports whether moving from s to next is a legal
// forward transition.  Only PENDING -> PAID and PENDING -> FAILED are
// allowed.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
    return s == PaymentPending && next.Terminal()
}

// Booking records one reservation transaction: which user booked which
// seats of which showtime, the total price and the payment state.  The
// seat list survives independently of the seats' own availability flags
// so history is not lost when seats are released.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – user who created the booking.
//  ShowtimeID      – showtime being booked.
//  Seats           – ordered seat positions held by this booking.
//  TotalPriceCents – total price in cents for all seats.
//  Status          – payment state (PENDING, PAID, FAILED).
//  ExpiresAt       – when the PENDING hold lapses.
//  PaidAt          – when the booking settled PAID, if it did.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Booking struct {
    ID              uint64         `json:"id"`                // bookings.id
    UserID          uint64         `json:"user_id"`           // bookings.user_id
    ShowtimeID      uint64         `json:"showtime_id"`       // bookings.showtime_id
    Seats           []SeatPosition `json:"-"`                 // booking_seats rows
    TotalPriceCents uint32         `json:"total_price_cents"` // bookings.total_price_cents
    Status          PaymentStatus  `json:"payment_status"`    // bookings.payment_status
    ExpiresAt       time.Time      `json:"expires_at"`        // bookings.expires_at
    PaidAt          *time.Time     `json:"paid_at,omitempty"` // bookings.paid_at (nullable)
    CreatedAt       time.Time      `json:"created_at"`        // bookings.created_at
    UpdatedAt       time.Time      `json:"updated_at"`        // bookings.updated_at
}

// SeatLabels returns the compact wire labels of the booked seats.
func (b *Booking) SeatLabels() []string {
    return Labels(b.Seats)
}
