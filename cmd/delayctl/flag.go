package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-delay-guarantee/internal/repo"
	"github.com/tbourn/go-delay-guarantee/internal/sysutil"
)

func (c *cli) flagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flag",
		Short: "Inspect and toggle feature flags",
	}

	get := &cobra.Command{
		Use:   "get [name]",
		Short: "Show a flag; defaults to the delay guarantee kill switch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := c.engine.Gate.Check(cmd.Context(), c.flagName(args))
			if d.Degraded {
				return fmt.Errorf("flag %q: store unavailable", d.Flag)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"key": d.Flag, "enabled": d.Enabled})
		},
	}

	var actor string
	set := &cobra.Command{
		Use:   "set [name] <on|off>",
		Short: "Enable or disable a flag",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, raw := c.flagName(nil), args[0]
			if len(args) == 2 {
				name, raw = args[0], args[1]
			}
			enabled, err := parseSwitch(raw)
			if err != nil {
				return err
			}
			if err := c.engine.Gate.Set(cmd.Context(), name, enabled, actor); err != nil {
				return fmt.Errorf("set flag %q: %w", name, err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"key": name, "enabled": enabled})
		},
	}
	set.Flags().StringVar(&actor, "actor", "delayctl", "recorded as the flag's last updater")

	list := &cobra.Command{
		Use:   "list",
		Short: "List every flag persisted in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Flags.Store != "sql" {
				return fmt.Errorf("flag list requires the sql flag store, got %q", c.cfg.Flags.Store)
			}
			all, err := repo.ListFlags(cmd.Context(), c.engine.DB)
			if err != nil {
				return fmt.Errorf("list flags: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"flags": all})
		},
	}

	cmd.AddCommand(get, set, list)
	return cmd
}

func (c *cli) flagName(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return c.cfg.Flags.DelayFlag
}

func parseSwitch(s string) (bool, error) {
	if sysutil.IsTruthy(s) {
		return true, nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
