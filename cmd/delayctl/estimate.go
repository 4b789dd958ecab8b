package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
	"github.com/tbourn/go-delay-guarantee/internal/repo"
	"github.com/tbourn/go-delay-guarantee/internal/risk"
	"github.com/tbourn/go-delay-guarantee/internal/services"
)

func (c *cli) estimateCmd() *cobra.Command {
	var origin, destination string
	var issue bool

	cmd := &cobra.Command{
		Use:   "estimate <bookingId>",
		Short: "Assess delay risk for a booking",
		Long: `Print the delay assessment for a stored booking.

With --issue the full calculation runs, honoring the kill switch, and any
warranted compensation record is created exactly as the API would.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if issue {
				res, err := c.engine.Delay.Calculate(ctx, services.CalculateRequest{
					BookingID: args[0], Origin: origin, Destination: destination,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"assessment": res.Assessment,
					"status":     res.Status(),
					"record":     res.Evaluation.Record,
				})
			}

			b, err := repo.GetBooking(ctx, c.engine.DB, args[0])
			if errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("booking %q not found", args[0])
			}
			if err != nil {
				return err
			}
			route := domain.RouteFromBooking(*b)
			if o := risk.CleanLabel(origin); o != "" {
				route.Origin = o
			}
			if d := risk.CleanLabel(destination); d != "" {
				route.Destination = d
			}
			return printJSON(cmd.OutOrStdout(), c.engine.Estimator.Estimate(b.ID, route))
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "", "override the booking's origin label")
	cmd.Flags().StringVar(&destination, "destination", "", "override the booking's destination label")
	cmd.Flags().BoolVar(&issue, "issue", false, "run the full calculation and issue compensation")
	return cmd
}
