package domain

import (
	"math"
	"testing"
)

func TestCompensation_DiscountFor(t *testing.T) {
	tests := []struct {
		name   string
		c      Compensation
		amount float64
		want   float64
	}{
		{"percentage", Compensation{KindPercentage, 10}, 120, 12},
		{"percentage rounds to cents", Compensation{KindPercentage, 10}, 33.33, 3.33},
		{"fixed below amount", Compensation{KindFixed, 5}, 80, 5},
		{"fixed capped at amount", Compensation{KindFixed, 50}, 20, 20},
		{"zero amount", Compensation{KindPercentage, 20}, 0, 0},
		{"negative amount", Compensation{KindFixed, 5}, -10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.c.DiscountFor(tt.amount)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("DiscountFor(%v) = %v; want %v", tt.amount, got, tt.want)
			}
		})
	}
}

func TestCompensation_Validate(t *testing.T) {
	bad := []Compensation{
		{KindPercentage, 0},
		{KindFixed, -1},
		{KindPercentage, 101},
		{"voucher", 5},
		{KindFixed, math.NaN()},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("Validate(%+v) expected error", c)
		}
		if _, err := c.DiscountFor(100); err == nil {
			t.Errorf("DiscountFor with %+v expected error", c)
		}
	}
	if err := (Compensation{KindPercentage, 100}).Validate(); err != nil {
		t.Fatalf("100%% should be valid: %v", err)
	}
}
