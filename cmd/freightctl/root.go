package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/warp/freight-engine/app"
	"github.com/warp/freight-engine/config"
	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/logging"
)

var version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "freightctl",
		Short: "Plan freight lanes, quote shipments and run billing from the command line",
		Long: `freightctl drives the freight billing engine without the HTTP server.

It reads the same environment as the server (DB_DRIVER, DB_DSN,
RATE_TABLE_FILE, ROUTES_FILE, LATE_FEE_DAILY_RATE, ...), optionally from a
.env file, so commands that persist invoices or run sweeps act on the same
database the server uses.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			lc := logging.DefaultConfig()
			lc.Level = level
			lc.Output = "stderr"
			return logging.Setup(lc)
		},
	}

	root.PersistentFlags().String("env", "", ".env file to load")
	root.PersistentFlags().String("driver", "", "database driver: sqlite or mysql (overrides DB_DRIVER)")
	root.PersistentFlags().String("db", "", "database path or DSN (overrides DB_DSN)")
	root.PersistentFlags().String("log-level", "warn", "log level (trace, debug, info, warn, error)")

	root.AddCommand(
		newScheduleCmd(),
		newBillingDateCmd(),
		newQuoteCmd(),
		newBookCmd(),
		newSweepCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run executes args and returns the process exit code. The logger is
// resolved only after the command ran, since PersistentPreRunE sets it up.
func run(args []string, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		log := logging.WithComponent("cmd")
		log.Debug().Err(err).Msg("command failed")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads env (and --env) and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env")
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("driver"); v != "" {
		cfg.DBDriver = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DBDSN = v
	}
	return cfg, nil
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

// printer groups the whole part of amounts.
var printer = message.NewPrinter(language.English)

// money renders a to the cent from its decimal value. The whole part is
// grouped when it fits an int64 and printed plain otherwise.
func money(a generic.Amount) string {
	v := a.Value.Round(2)
	sign := ""
	if v.IsNegative() {
		sign, v = "-", v.Neg()
	}
	whole, cents, _ := strings.Cut(v.StringFixed(2), ".")
	if n := v.Truncate(0).BigInt(); n.IsInt64() {
		whole = printer.Sprint(number.Decimal(n.Int64()))
	}
	return fmt.Sprintf("%s%s.%s %s", sign, whole, cents, a.Currency)
}
