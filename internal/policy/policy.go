// Package policy holds the tunable coefficients of the delay guarantee
// engine: how route attributes become a risk score, and which compensation a
// risk tier earns. Values come from a YAML file or environment variables with
// defaults, loaded with cleanenv.
package policy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
)

// Policy is the full engine policy.
type Policy struct {
	Risk         Risk         `yaml:"risk"         env-prefix:"RISK_"`
	Compensation Compensation `yaml:"compensation" env-prefix:"COMP_"`
}

// Risk configures the route risk estimator.
//
// raw = distanceKm*DistanceWeight + durationMinutes*DurationWeight
// (+ PeakBonus when the departure hour, in Timezone, is listed in PeakHours).
type Risk struct {
	DistanceWeight  float64 `yaml:"distance_weight"   env:"DISTANCE_WEIGHT"   env-default:"0.5"`
	DurationWeight  float64 `yaml:"duration_weight"   env:"DURATION_WEIGHT"   env-default:"0.4"`
	PeakBonus       float64 `yaml:"peak_bonus"        env:"PEAK_BONUS"        env-default:"15"`
	PeakHours       []int   `yaml:"peak_hours"        env:"PEAK_HOURS"        env-default:"7,8,16,17,18"`
	Timezone        string  `yaml:"timezone"          env:"TIMEZONE"          env-default:"UTC"`
	DelayFactor     float64 `yaml:"delay_factor"      env:"DELAY_FACTOR"      env-default:"0.5"`
	MaxDelayMinutes int     `yaml:"max_delay_minutes" env:"MAX_DELAY_MINUTES" env-default:"180"`
}

// Compensation configures when compensation is warranted and what it is.
// A record is issued when the tier is at least MinTier or the estimated delay
// reaches DelayThresholdMinutes.
type Compensation struct {
	MinTier               domain.RiskTier `yaml:"min_tier"                env:"MIN_TIER"                env-default:"medium"`
	DelayThresholdMinutes int             `yaml:"delay_threshold_minutes" env:"DELAY_THRESHOLD_MINUTES" env-default:"30"`

	LowKind     domain.CompensationKind `yaml:"low_kind"     env:"LOW_KIND"     env-default:"fixed"`
	LowValue    float64                 `yaml:"low_value"    env:"LOW_VALUE"    env-default:"5"`
	MediumKind  domain.CompensationKind `yaml:"medium_kind"  env:"MEDIUM_KIND"  env-default:"percentage"`
	MediumValue float64                 `yaml:"medium_value" env:"MEDIUM_VALUE" env-default:"10"`
	HighKind    domain.CompensationKind `yaml:"high_kind"    env:"HIGH_KIND"    env-default:"percentage"`
	HighValue   float64                 `yaml:"high_value"   env:"HIGH_VALUE"   env-default:"20"`

	// MaxDiscountAmount caps the monetary discount; 0 means uncapped.
	MaxDiscountAmount float64 `yaml:"max_discount_amount" env:"MAX_DISCOUNT_AMOUNT" env-default:"0"`
}

// Load reads the policy from path when non-empty, otherwise from the
// environment only. Defaults fill anything left unset. The result is
// validated.
func Load(path string) (Policy, error) {
	var p Policy
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &p)
	} else {
		err = cleanenv.ReadEnv(&p)
	}
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Default returns the built-in policy, ignoring the environment.
func Default() Policy {
	return Policy{
		Risk: Risk{
			DistanceWeight:  0.5,
			DurationWeight:  0.4,
			PeakBonus:       15,
			PeakHours:       []int{7, 8, 16, 17, 18},
			Timezone:        "UTC",
			DelayFactor:     0.5,
			MaxDelayMinutes: 180,
		},
		Compensation: Compensation{
			MinTier:               domain.TierMedium,
			DelayThresholdMinutes: 30,
			LowKind:               domain.KindFixed,
			LowValue:              5,
			MediumKind:            domain.KindPercentage,
			MediumValue:           10,
			HighKind:              domain.KindPercentage,
			HighValue:             20,
		},
	}
}

// Validate checks the policy for values the engine cannot work with.
func (p Policy) Validate() error {
	r := p.Risk
	for _, w := range []float64{r.DistanceWeight, r.DurationWeight, r.PeakBonus, r.DelayFactor} {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return errors.New("risk weights must be finite and >= 0")
		}
	}
	for _, h := range r.PeakHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("peak hour %d out of range [0,23]", h)
		}
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return fmt.Errorf("risk timezone: %w", err)
	}
	if r.MaxDelayMinutes < 0 {
		return errors.New("max_delay_minutes must be >= 0")
	}

	c := p.Compensation
	if !c.MinTier.Valid() {
		return fmt.Errorf("min_tier %q is not one of low, medium, high", c.MinTier)
	}
	if c.DelayThresholdMinutes < 0 {
		return errors.New("delay_threshold_minutes must be >= 0")
	}
	if c.MaxDiscountAmount < 0 {
		return errors.New("max_discount_amount must be >= 0")
	}
	for _, tier := range []domain.RiskTier{domain.TierLow, domain.TierMedium, domain.TierHigh} {
		if err := c.TermsFor(tier).Validate(); err != nil {
			return fmt.Errorf("%s tier terms: %w", tier, err)
		}
	}
	return nil
}

// Location returns the timezone used for peak-hour checks.
// Validate guarantees it loads; UTC is the fallback otherwise.
func (r Risk) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsPeak reports whether hour is one of the configured peak hours.
func (r Risk) IsPeak(hour int) bool {
	for _, h := range r.PeakHours {
		if h == hour {
			return true
		}
	}
	return false
}

// TermsFor returns the compensation earned by a tier.
func (c Compensation) TermsFor(tier domain.RiskTier) domain.Compensation {
	switch tier {
	case domain.TierHigh:
		return domain.Compensation{Kind: c.HighKind, Value: c.HighValue}
	case domain.TierMedium:
		return domain.Compensation{Kind: c.MediumKind, Value: c.MediumValue}
	default:
		return domain.Compensation{Kind: c.LowKind, Value: c.LowValue}
	}
}

// Warranted reports whether an assessment earns compensation.
func (c Compensation) Warranted(a domain.DelayAssessment) bool {
	if a.Defaulted {
		return false
	}
	if a.Tier.Rank() >= c.MinTier.Rank() {
		return true
	}
	return c.DelayThresholdMinutes > 0 && a.EstimatedDelayMinutes >= c.DelayThresholdMinutes
}

// Cap applies MaxDiscountAmount to a computed discount.
func (c Compensation) Cap(amount float64) float64 {
	if c.MaxDiscountAmount > 0 && amount > c.MaxDiscountAmount {
		return c.MaxDiscountAmount
	}
	return amount
}
