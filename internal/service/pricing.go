// Package service holds the business rules that sit between handlers
// and repositories: pricing and the booking lifecycle.
package service

import "errors"

// ErrPriceOverflow is returned when a total would not fit the 32-bit
// cents column.  It should never occur with real hall sizes; failing
// loudly beats wrapping around silently.
var ErrPriceOverflow = errors.New("total price overflows")

// Total computes the charge for seatCount seats at the showtime's
// per-seat price.  Prices are integer cents throughout; there is no
// floating point anywhere in the money path.
func Total(ticketPriceCents uint32, seatCount int) (uint32, error) {
    if seatCount < 0 {
        return 0, ErrPriceOverflow
    }
    total := uint64(ticketPriceCents) * uint64(seatCount)
    if total > uint64(^uint32(0)) {
        return 0, ErrPriceOverflow
    }
    return uint32(total), nil
}
