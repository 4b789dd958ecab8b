package domain

import "time"

// RouteDescriptor is the transient input to delay estimation.
type RouteDescriptor struct {
	Origin          string     `json:"origin"`
	Destination     string     `json:"destination"`
	DistanceKm      float64    `json:"distance"`
	DurationMinutes float64    `json:"estimatedDuration"`
	DepartureAt     *time.Time `json:"departureAt,omitempty"`
}

// RouteFromBooking copies the route attributes of a booking.
func RouteFromBooking(b Booking) RouteDescriptor {
	return RouteDescriptor{
		Origin:          b.Origin,
		Destination:     b.Destination,
		DistanceKm:      b.DistanceKm,
		DurationMinutes: b.DurationMinutes,
		DepartureAt:     b.DepartureAt,
	}
}

// RiskTier buckets a delay risk score.
type RiskTier string

const (
	TierLow    RiskTier = "low"
	TierMedium RiskTier = "medium"
	TierHigh   RiskTier = "high"
)

// TierFor maps a score to its tier: [0,30) low, [30,60) medium, [60,100] high.
func TierFor(score int) RiskTier {
	switch {
	case score >= 60:
		return TierHigh
	case score >= 30:
		return TierMedium
	default:
		return TierLow
	}
}

// Rank orders tiers so policy thresholds can compare them.
func (t RiskTier) Rank() int {
	switch t {
	case TierMedium:
		return 1
	case TierHigh:
		return 2
	default:
		return 0
	}
}

// Valid reports whether t is a declared tier.
func (t RiskTier) Valid() bool {
	return t == TierLow || t == TierMedium || t == TierHigh
}

// DelayAssessment is the deterministic output of the risk estimator.
// Defaulted is set when route attributes were missing and the conservative
// default was returned.
type DelayAssessment struct {
	BookingID             string          `json:"bookingId"`
	Route                 RouteDescriptor `json:"route"`
	Score                 int             `json:"delayRiskScore"`
	Tier                  RiskTier        `json:"riskTier"`
	EstimatedDelayMinutes int             `json:"estimatedDelayMinutes"`
	ComputedAt            time.Time       `json:"computedAt"`
	Defaulted             bool            `json:"defaulted"`
}
