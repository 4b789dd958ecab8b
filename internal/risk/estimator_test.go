package risk

import (
	"math"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
	"github.com/tbourn/go-delay-guarantee/internal/policy"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newEstimator() *Estimator {
	return New(policy.Default().Risk, WithClock(func() time.Time { return fixedNow }))
}

func TestEstimate_ScenarioMediumTier(t *testing.T) {
	a := newEstimator().Estimate("b1", domain.RouteDescriptor{Origin: "Airport", Destination: "Old Town", DistanceKm: 40, DurationMinutes: 50})
	if a.Score != 40 || a.Tier != domain.TierMedium {
		t.Fatalf("score/tier = %d/%s; want 40/medium", a.Score, a.Tier)
	}
	if a.EstimatedDelayMinutes != 10 {
		t.Fatalf("delay = %d; want 10", a.EstimatedDelayMinutes)
	}
	if a.Defaulted || a.BookingID != "b1" || !a.ComputedAt.Equal(fixedNow) {
		t.Fatalf("unexpected assessment: %+v", a)
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	e := newEstimator()
	dep := time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC)
	r := domain.RouteDescriptor{DistanceKm: 73.3, DurationMinutes: 91, DepartureAt: &dep}
	first := e.Estimate("b", r)
	for i := 0; i < 50; i++ {
		got := e.Estimate("b", r)
		if got.Score != first.Score || got.EstimatedDelayMinutes != first.EstimatedDelayMinutes || got.Tier != first.Tier {
			t.Fatalf("non-deterministic result on iteration %d: %+v vs %+v", i, got, first)
		}
	}
}

func TestEstimate_Bounds(t *testing.T) {
	e := newEstimator()
	routes := []domain.RouteDescriptor{
		{DistanceKm: 0.1, DurationMinutes: 0.1},
		{DistanceKm: 5, DurationMinutes: 10},
		{DistanceKm: 500, DurationMinutes: 600},
		{DistanceKm: 1e12, DurationMinutes: 1e12},
		{DistanceKm: math.MaxFloat64, DurationMinutes: math.MaxFloat64},
	}
	for _, r := range routes {
		a := e.Estimate("b", r)
		if a.Score < 0 || a.Score > 100 {
			t.Fatalf("score out of range for %+v: %d", r, a.Score)
		}
		if a.EstimatedDelayMinutes < 0 || a.EstimatedDelayMinutes > 180 {
			t.Fatalf("delay out of range for %+v: %d", r, a.EstimatedDelayMinutes)
		}
		if a.Tier != domain.TierFor(a.Score) {
			t.Fatalf("tier mismatch: %+v", a)
		}
	}
}

func TestEstimate_MissingAttributesDefault(t *testing.T) {
	e := newEstimator()
	routes := []domain.RouteDescriptor{
		{},
		{DistanceKm: 40},
		{DurationMinutes: 50},
		{DistanceKm: -3, DurationMinutes: 50},
		{DistanceKm: math.NaN(), DurationMinutes: 50},
		{DistanceKm: 40, DurationMinutes: math.Inf(1)},
	}
	for _, r := range routes {
		a := e.Estimate("b", r)
		if !a.Defaulted || a.Score != 0 || a.Tier != domain.TierLow || a.EstimatedDelayMinutes != 0 {
			t.Fatalf("expected default assessment for %+v, got %+v", r, a)
		}
	}
}

func TestEstimate_PeakBonusUsesPolicyTimezone(t *testing.T) {
	p := policy.Default().Risk
	p.Timezone = "Europe/Athens" // UTC+2 in March
	e := New(p)

	// 06:30 UTC is 08:30 in Athens, a peak hour.
	dep := time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC)
	base := domain.RouteDescriptor{DistanceKm: 40, DurationMinutes: 50}
	peak := base
	peak.DepartureAt = &dep

	if got := e.Estimate("b", peak).Score - e.Estimate("b", base).Score; got != 15 {
		t.Fatalf("peak bonus = %d; want 15", got)
	}
}

func TestEstimate_MonotonicInDistance(t *testing.T) {
	e := newEstimator()
	prev := -1
	for km := 1.0; km <= 200; km += 7 {
		s := e.Estimate("b", domain.RouteDescriptor{DistanceKm: km, DurationMinutes: 30}).Score
		if s < prev {
			t.Fatalf("score decreased at %.0fkm: %d < %d", km, s, prev)
		}
		prev = s
	}
}

func TestLabels(t *testing.T) {
	if got := CleanLabel("  Old   Town \t"); got != "Old Town" {
		t.Fatalf("CleanLabel = %q", got)
	}
	if RouteKey("Airport ", "OLD town") != RouteKey("airport", "Old  Town") {
		t.Fatalf("RouteKey should fold case and whitespace")
	}
	if !SameLabel("École Street", "ÉCOLE street") {
		t.Fatalf("SameLabel should case-fold")
	}
	if SameLabel("Airport", "Harbour") {
		t.Fatalf("different labels must not match")
	}
}

func TestEstimate_TrimsLabels(t *testing.T) {
	a := newEstimator().Estimate("b", domain.RouteDescriptor{Origin: " Airport ", Destination: "Old   Town", DistanceKm: 1, DurationMinutes: 1})
	if a.Route.Origin != "Airport" || a.Route.Destination != "Old Town" {
		t.Fatalf("labels not cleaned: %+v", a.Route)
	}
}
