package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/generic"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the late-fee sweep against the configured database",
		Long: `Run one late-fee sweep as of today (or --as-of).

With --since the sweep is replayed once per day from that date up to
--as-of, recording a run for each day. Fees are recomputed from scratch on
every run, so the final state equals a single sweep as of --as-of; the
replay only fills the run history.`,
		Example: `  freightctl sweep
  freightctl sweep --as-of 2024-04-10
  freightctl sweep --since 2024-04-01 --as-of 2024-04-10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asOf := generic.Today()
			if raw, _ := cmd.Flags().GetString("as-of"); raw != "" {
				d, err := generic.ParseDate(raw)
				if err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
				asOf = d
			}
			since := asOf
			if raw, _ := cmd.Flags().GetString("since"); raw != "" {
				d, err := generic.ParseDate(raw)
				if err != nil {
					return fmt.Errorf("--since: %w", err)
				}
				if d.After(asOf) {
					return fmt.Errorf("--since %s is after --as-of %s", d, asOf)
				}
				since = d
			}

			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			days := generic.DaysBetween(since, asOf) + 1
			var bar *progressbar.ProgressBar
			if days > 1 {
				bar = progressbar.NewOptions(days,
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("sweeping"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}

			changed := make(map[string]billing.Invoice)
			for d := since; !d.After(asOf); d = d.AddDays(1) {
				updated, err := a.Accruer.Accrue(cmd.Context(), d.Time.Add(12*time.Hour))
				if err != nil {
					return fmt.Errorf("sweep %s: %w", d, err)
				}
				for _, inv := range updated {
					changed[inv.ID] = inv
				}
				if bar != nil {
					bar.Add(1)
				}
			}

			out := cmd.OutOrStdout()
			fees := generic.Amount{}
			for _, inv := range changed {
				if fees.Currency == "" {
					fees = inv.LateFees.Zero()
				}
				if inv.LateFees.Currency == fees.Currency {
					fees = fees.Add(inv.LateFees)
				}
			}
			fmt.Fprintf(out, "as of %s: %d invoices updated over %d run(s)\n", asOf, len(changed), days)
			if len(changed) > 0 {
				fmt.Fprintf(out, "late fees on updated invoices: %s\n", money(fees))
			}
			return nil
		},
	}
	cmd.Flags().String("as-of", "", "sweep date (YYYY-MM-DD, default today)")
	cmd.Flags().String("since", "", "replay daily sweeps from this date")
	return cmd
}
