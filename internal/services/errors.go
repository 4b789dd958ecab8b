// Package services holds the business logic of the delay guarantee engine:
// issuing compensation for risky bookings and driving compensation records
// through staff review and redemption.
//
// This file centralizes the service-level error values. Handlers translate
// them into HTTP status codes; callers check them with errors.Is.
package services

import "errors"

var (
	// ErrValidation is returned for malformed input such as an empty booking
	// id, an unknown status filter or a blank discount code.
	ErrValidation = errors.New("validation failed")

	// ErrBookingNotFound indicates the booking collaborator has no such booking.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrCompensationNotFound indicates no compensation record matches the
	// given id or discount code.
	ErrCompensationNotFound = errors.New("compensation not found")

	// ErrConflict is returned when a concurrent reviewer already moved the
	// record out of the expected status.
	ErrConflict = errors.New("compensation was modified concurrently")

	// ErrInvalidState is returned when the requested transition is not allowed
	// from the record's current status.
	ErrInvalidState = errors.New("compensation is not in a valid state for this action")

	// ErrExpired is returned when a discount code is used at or after its expiry.
	ErrExpired = errors.New("discount code expired")

	// ErrDependency wraps store failures and timeouts.
	ErrDependency = errors.New("dependency unavailable")
)
