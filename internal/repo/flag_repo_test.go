package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
)

func TestFlags_UpsertGetList(t *testing.T) {
	db := newTestDB(t, &domain.FeatureFlag{})
	ctx := context.Background()

	if _, err := GetFlag(ctx, db, "delay_guarantee_enabled"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	f, err := UpsertFlag(ctx, db, "delay_guarantee_enabled", true, "ops")
	if err != nil || !f.Enabled || f.UpdatedBy != "ops" {
		t.Fatalf("create: %+v %v", f, err)
	}
	f, err = UpsertFlag(ctx, db, "delay_guarantee_enabled", false, "oncall")
	if err != nil || f.Enabled || f.UpdatedBy != "oncall" {
		t.Fatalf("update: %+v %v", f, err)
	}

	if _, err := UpsertFlag(ctx, db, "another", true, "ops"); err != nil {
		t.Fatalf("second flag: %v", err)
	}
	all, err := ListFlags(ctx, db)
	if err != nil || len(all) != 2 || all[0].Key != "another" {
		t.Fatalf("list: %+v %v", all, err)
	}
}

func TestBookings_SaveAndGet(t *testing.T) {
	db := newTestDB(t, &domain.Booking{})
	ctx := context.Background()

	if _, err := GetBooking(ctx, db, "b1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	b := &domain.Booking{ID: "b1", UserID: "u1", Amount: 80, Currency: "EUR", DistanceKm: 40, DurationMinutes: 50}
	if err := SaveBooking(ctx, db, b); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := GetBooking(ctx, db, "b1")
	if err != nil || got.DistanceKm != 40 || got.Amount != 80 {
		t.Fatalf("get: %+v %v", got, err)
	}
}
