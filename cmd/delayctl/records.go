package main

import (
	"github.com/spf13/cobra"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
)

func (c *cli) recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"rec"},
		Short:   "List and review compensation records",
	}

	var status string
	var page, size int
	list := &cobra.Command{
		Use:   "list",
		Short: "List records by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := domain.ParseStatus(status)
			if err != nil {
				return err
			}
			items, total, err := c.engine.Workflow.ListByStatus(cmd.Context(), st, page, size)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"status":        st,
				"total":         total,
				"page":          page,
				"compensations": items,
			})
		},
	}
	list.Flags().StringVarP(&status, "status", "s", "pending", "pending, approved, rejected or applied")
	list.Flags().IntVar(&page, "page", 1, "1-based page")
	list.Flags().IntVar(&size, "size", 20, "page size")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a record and its audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.engine.Workflow.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}

	cmd.AddCommand(list, show, c.reviewCmd("approve"), c.reviewCmd("reject"))
	return cmd
}

func (c *cli) reviewCmd(action string) *cobra.Command {
	var reviewer, notes string
	cmd := &cobra.Command{
		Use:   action + " <id>",
		Short: "Review a pending record (" + action + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			review := c.engine.Workflow.Approve
			if action == "reject" {
				review = c.engine.Workflow.Reject
			}
			rec, err := review(cmd.Context(), args[0], reviewer, notes)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", "delayctl", "reviewer recorded on the record")
	cmd.Flags().StringVar(&notes, "notes", "", "review notes")
	return cmd
}
