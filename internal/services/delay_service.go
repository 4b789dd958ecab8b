// Package services – DelayService
//
// This file implements the on-demand delay calculation used by the booking
// flow: feature gate, booking lookup, risk estimation and compensation
// issuance, in that order. The calculation never blocks a booking; when the
// gate is off or its store is unreachable the caller gets a default
// assessment and no compensation.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
	"github.com/tbourn/go-delay-guarantee/internal/risk"
)

// CalculateRequest names the booking to assess. Origin and Destination,
// when set, replace the booking's route labels in the response.
type CalculateRequest struct {
	BookingID   string
	Origin      string
	Destination string
}

// CalculateResult is the assessment plus what the issuer decided.
type CalculateResult struct {
	Assessment domain.DelayAssessment
	Evaluation Evaluation
	// RouteOverridden is set when a requested label names a different place
	// than the booking's stored route. Case and spacing differences do not
	// count.
	RouteOverridden bool
}

// Status is the status reported to the booking flow: the record's status
// when one exists, otherwise the evaluation outcome.
func (r CalculateResult) Status() string {
	if r.Evaluation.HasRecord() {
		return string(r.Evaluation.Record.Status)
	}
	return string(r.Evaluation.Outcome)
}

// DelayService orchestrates a delay calculation for one booking.
type DelayService struct {
	DB           *gorm.DB
	Gate         FeatureGate
	Flag         string
	Estimator    *risk.Estimator
	Issuer       *Issuer
	StoreTimeout time.Duration
	Now          func() time.Time
	Log          zerolog.Logger
}

// NewDelayService wires a DelayService. The gate and flag are shared with iss.
func NewDelayService(db *gorm.DB, est *risk.Estimator, iss *Issuer) *DelayService {
	return &DelayService{
		DB:        db,
		Gate:      iss.Gate,
		Flag:      iss.Flag,
		Estimator: est,
		Issuer:    iss,
		Now:       time.Now,
		Log:       log.Logger,
	}
}

// Calculate assesses the booking and evaluates compensation.
//
// Errors:
//   - ErrValidation for an empty booking id.
//   - ErrBookingNotFound when the booking does not exist.
//   - ErrDependency when the booking or record store fails.
//
// A disabled or degraded gate is not an error.
func (s *DelayService) Calculate(ctx context.Context, req CalculateRequest) (*CalculateResult, error) {
	tr := otel.Tracer("services/DelayService")
	ctx, span := tr.Start(ctx, "Calculate",
		trace.WithAttributes(attribute.String("booking.id", req.BookingID)),
	)
	defer span.End()

	bookingID := strings.TrimSpace(req.BookingID)
	if bookingID == "" {
		return nil, fmt.Errorf("%w: booking id is required", ErrValidation)
	}
	origin, destination := risk.CleanLabel(req.Origin), risk.CleanLabel(req.Destination)

	if d := s.Gate.Check(ctx, s.Flag); !d.Enabled {
		outcome := OutcomeDisabled
		if d.Degraded {
			outcome = OutcomeDegraded
		}
		issuanceTotal.WithLabelValues(string(outcome)).Inc()
		span.SetAttributes(attribute.String("outcome", string(outcome)))
		return &CalculateResult{
			Assessment: s.defaultAssessment(bookingID, origin, destination),
			Evaluation: Evaluation{Outcome: outcome},
		}, nil
	}

	lctx, cancel := withStoreTimeout(ctx, s.StoreTimeout)
	b, err := lookupBooking(lctx, s.DB, bookingID)
	cancel()
	if err != nil {
		return nil, err
	}

	route := domain.RouteFromBooking(*b)
	overridden := (origin != "" && !risk.SameLabel(origin, route.Origin)) ||
		(destination != "" && !risk.SameLabel(destination, route.Destination))
	if overridden {
		span.SetAttributes(attribute.Bool("route.overridden", true))
		loggerFrom(ctx, s.Log).Warn().
			Str("booking_id", bookingID).
			Str("booking_route", risk.RouteKey(route.Origin, route.Destination)).
			Str("requested_route", risk.RouteKey(firstLabel(origin, route.Origin), firstLabel(destination, route.Destination))).
			Msg("route labels differ from the booking")
	}
	if origin != "" {
		route.Origin = origin
	}
	if destination != "" {
		route.Destination = destination
	}

	a := s.Estimator.Estimate(bookingID, route)
	assessmentsTotal.WithLabelValues(string(a.Tier)).Inc()
	if a.Defaulted {
		loggerFrom(ctx, s.Log).Warn().
			Str("booking_id", bookingID).
			Msg("route attributes missing, default assessment used")
	}

	ev, err := s.Issuer.EvaluateBooking(ctx, b, a)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("outcome", string(ev.Outcome)))
	return &CalculateResult{Assessment: a, Evaluation: ev, RouteOverridden: overridden}, nil
}

func firstLabel(override, stored string) string {
	if override != "" {
		return override
	}
	return stored
}

func (s *DelayService) defaultAssessment(bookingID, origin, destination string) domain.DelayAssessment {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return domain.DelayAssessment{
		BookingID:  bookingID,
		Route:      domain.RouteDescriptor{Origin: origin, Destination: destination},
		Score:      0,
		Tier:       domain.TierLow,
		ComputedAt: now().UTC(),
		Defaulted:  true,
	}
}
