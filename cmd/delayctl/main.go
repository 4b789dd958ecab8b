// Command delayctl is the operator CLI for the delay guarantee engine. It
// talks to the same database and flag store as the server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-delay-guarantee/internal/app"
	"github.com/tbourn/go-delay-guarantee/internal/config"
	"github.com/tbourn/go-delay-guarantee/internal/sysutil"
)

var Version = "dev"

// cli carries state shared by subcommands. engine is opened by the root
// PersistentPreRunE.
type cli struct {
	dbDriver  string
	dbPath    string
	flagStore string
	verbose   bool

	cfg    config.Config
	engine *app.Engine
}

func main() {
	_ = godotenv.Load()
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs the CLI with args and releases the engine afterwards, also
// when the command fails.
func execute(args []string, stdout, stderr io.Writer) error {
	c := &cli{}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer func() {
		if c.engine != nil {
			_ = c.engine.Close()
		}
	}()
	return root.Execute()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "delayctl",
		Short:         "Operate the delay guarantee engine",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.dbDriver, "db-driver", "", "database driver (sqlite, postgres); overrides DB_DRIVER")
	pf.StringVar(&c.dbPath, "db", "", "sqlite path or postgres URL; overrides DB_PATH / DATABASE_URL")
	pf.StringVar(&c.flagStore, "flag-store", "", "flag store (sql, redis); overrides FLAG_STORE")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level to stderr")

	root.AddCommand(c.flagCmd())
	root.AddCommand(c.estimateCmd())
	root.AddCommand(c.recordsCmd())
	root.AddCommand(c.bookingCmd())
	root.AddCommand(envCmd())
	return root
}

// envCmd lists the variables config.Load reads. It needs no engine.
func envCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "env",
		Short:             "List the environment variables and their defaults",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.Usage())
			return err
		},
	}
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.dbDriver != "" {
		cfg.DB.Driver = c.dbDriver
	}
	if c.dbPath != "" {
		if cfg.DB.Driver == "postgres" {
			cfg.DB.URL = c.dbPath
		} else {
			cfg.DB.Path = c.dbPath
		}
	}
	if c.flagStore != "" {
		cfg.Flags.Store = c.flagStore
	}
	// The CLI never publishes lifecycle events or asks for advisory notes.
	cfg.Kafka.Brokers = nil
	cfg.Advisory.GeminiAPIKey = ""

	level := "warn"
	if c.verbose {
		level = "debug"
	}
	lg := sysutil.SetupLogger(cmd.ErrOrStderr(), level, true)

	c.cfg = cfg
	c.engine, err = app.Build(lg.WithContext(cmd.Context()), cfg, lg)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
