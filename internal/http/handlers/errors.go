// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package) and the translation of
// service errors into those responses. Clients branch on the code; the message
// is for humans.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "message": "compensation was modified concurrently"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-delay-guarantee/internal/services"
)

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeRateLimited = "too_many_requests"
	ErrCodeInternal    = "internal_error"

	// Domain-specific:
	ErrCodeInvalidState     = "invalid_state"
	ErrCodeExpired          = "code_expired"
	ErrCodeUnavailable      = "dependency_unavailable"
	ErrCodeIdempotencyReuse = "idempotency_key_reused"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// failService maps a service error onto the error envelope.
//
//	ErrValidation                          -> 400 bad_request
//	ErrBookingNotFound, ErrCompensationNotFound -> 404 not_found
//	ErrConflict                            -> 409 conflict
//	ErrInvalidState                        -> 409 invalid_state
//	ErrExpired                             -> 410 code_expired
//	ErrDependency                          -> 503 dependency_unavailable
//	anything else                          -> 500 internal_error
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrBookingNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "booking not found")
	case errors.Is(err, services.ErrCompensationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "compensation not found")
	case errors.Is(err, services.ErrConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, services.ErrConflict.Error())
	case errors.Is(err, services.ErrInvalidState):
		fail(c, http.StatusConflict, ErrCodeInvalidState, err.Error())
	case errors.Is(err, services.ErrExpired):
		fail(c, http.StatusGone, ErrCodeExpired, services.ErrExpired.Error())
	case errors.Is(err, services.ErrDependency):
		_ = c.Error(err)
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "service temporarily unavailable, retry later")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
