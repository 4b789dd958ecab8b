package domain

import (
	"fmt"
	"math"
)

// CompensationKind discriminates the Compensation variant.
type CompensationKind string

const (
	// KindPercentage discounts Value percent of the booking amount.
	KindPercentage CompensationKind = "percentage"
	// KindFixed discounts a flat Value, capped at the booking amount.
	KindFixed CompensationKind = "fixed"
)

// Compensation is the tagged variant describing the promised discount.
type Compensation struct {
	Kind  CompensationKind `json:"kind"  yaml:"kind"`
	Value float64          `json:"value" yaml:"value"`
}

// Validate checks that the variant is known and carries a positive value.
// Percentages above 100 are rejected.
func (c Compensation) Validate() error {
	if c.Value <= 0 || math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return fmt.Errorf("compensation value must be > 0, got %v", c.Value)
	}
	switch c.Kind {
	case KindPercentage:
		if c.Value > 100 {
			return fmt.Errorf("percentage compensation must be <= 100, got %v", c.Value)
		}
		return nil
	case KindFixed:
		return nil
	default:
		return fmt.Errorf("unknown compensation kind %q", c.Kind)
	}
}

// DiscountFor returns the monetary discount for a booking of the given amount,
// rounded to cents. A non-positive amount yields zero.
func (c Compensation) DiscountFor(amount float64) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, nil
	}
	var v float64
	switch c.Kind {
	case KindPercentage:
		v = amount * c.Value / 100
	case KindFixed:
		v = math.Min(c.Value, amount)
	}
	return math.Round(v*100) / 100, nil
}
