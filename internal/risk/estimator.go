// Package risk implements the route risk estimator: a deterministic policy
// function from route attributes to a bounded delay risk score, a risk tier
// and an estimated delay in minutes.
//
// The estimator has no side effects and never fails. Missing or unusable
// route attributes produce the conservative default assessment (score 0, low
// tier, zero delay) with Defaulted set.
package risk

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
	"github.com/tbourn/go-delay-guarantee/internal/policy"
)

const (
	minScore = 0
	maxScore = 100
)

// Estimator computes DelayAssessments from a risk policy.
type Estimator struct {
	policy policy.Risk
	loc    *time.Location
	now    func() time.Time
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithClock sets the clock used to stamp ComputedAt. The clock never affects
// the score or the delay.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) {
		if now != nil {
			e.now = now
		}
	}
}

// New returns an Estimator for the given risk policy.
func New(p policy.Risk, opts ...Option) *Estimator {
	e := &Estimator{
		policy: p,
		loc:    p.Location(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate scores a route. Identical routes always yield identical scores,
// tiers and delays.
func (e *Estimator) Estimate(bookingID string, route domain.RouteDescriptor) domain.DelayAssessment {
	route.Origin = CleanLabel(route.Origin)
	route.Destination = CleanLabel(route.Destination)

	a := domain.DelayAssessment{
		BookingID:  bookingID,
		Route:      route,
		Tier:       domain.TierLow,
		ComputedAt: e.now().UTC(),
	}
	if !usable(route.DistanceKm) || !usable(route.DurationMinutes) {
		a.Defaulted = true
		return a
	}

	raw := route.DistanceKm*e.policy.DistanceWeight + route.DurationMinutes*e.policy.DurationWeight
	if route.DepartureAt != nil && e.policy.IsPeak(route.DepartureAt.In(e.loc).Hour()) {
		raw += e.policy.PeakBonus
	}
	a.Score = int(math.Round(clamp(raw, minScore, maxScore)))
	a.Tier = domain.TierFor(a.Score)

	delay := route.DurationMinutes * float64(a.Score) / maxScore * e.policy.DelayFactor
	upper := math.Inf(1)
	if e.policy.MaxDelayMinutes > 0 {
		upper = float64(e.policy.MaxDelayMinutes)
	}
	a.EstimatedDelayMinutes = int(math.Round(clamp(delay, 0, upper)))
	return a
}

func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// CleanLabel trims a route label and collapses inner whitespace.
func CleanLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RouteKey is a case-folded origin/destination key, stable across label
// spelling differences such as "Airport" and "AIRPORT ".
func RouteKey(origin, destination string) string {
	fold := cases.Fold()
	return fold.String(CleanLabel(origin)) + "->" + fold.String(CleanLabel(destination))
}

// SameLabel reports whether two labels name the same place after folding.
func SameLabel(a, b string) bool {
	return cases.Fold().String(CleanLabel(a)) == cases.Fold().String(CleanLabel(b))
}
