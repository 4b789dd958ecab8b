package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
	"github.com/tbourn/go-delay-guarantee/internal/repo"
)

// bookingCmd writes bookings for local testing; production bookings come
// from the booking flow.
func (c *cli) bookingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Manage local test bookings",
	}

	b := domain.Booking{}
	var departure string
	seed := &cobra.Command{
		Use:   "seed <bookingId>",
		Short: "Create or replace a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b.ID = strings.TrimSpace(args[0])
			if departure != "" {
				t, err := time.Parse(time.RFC3339, departure)
				if err != nil {
					return fmt.Errorf("--departure: %w", err)
				}
				b.DepartureAt = &t
			}
			if err := repo.SaveBooking(cmd.Context(), c.engine.DB, &b); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), b)
		},
	}
	f := seed.Flags()
	f.StringVar(&b.UserID, "user", "demo-user", "owning user id")
	f.Float64Var(&b.Amount, "amount", 0, "booking amount")
	f.StringVar(&b.Currency, "currency", "USD", "ISO currency code")
	f.StringVar(&b.Status, "status", "confirmed", "booking status")
	f.StringVar(&b.Origin, "origin", "", "origin label")
	f.StringVar(&b.Destination, "destination", "", "destination label")
	f.Float64Var(&b.DistanceKm, "distance-km", 0, "route distance in km")
	f.Float64Var(&b.DurationMinutes, "duration-min", 0, "scheduled duration in minutes")
	f.StringVar(&departure, "departure", "", "departure time, RFC3339")

	cmd.AddCommand(seed)
	return cmd
}
