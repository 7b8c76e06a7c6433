package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/factory"
	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/recurrence"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "List the shipment dates (and optionally due dates) of a lane recurrence",
		Example: `  # Two shipments every Monday and Thursday in March
  freightctl schedule --frequency weekly --weekdays mon,thu \
    --start 2024-03-01 --end 2024-03-31 --per-interval 2

  # Same, from a JSON file, with NET_10 due dates
  freightctl schedule --recurrence lane.json --term NET_10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := recurrenceFromFlags(cmd)
			if err != nil {
				return err
			}
			horizon, _ := cmd.Flags().GetInt("horizon-days")
			shipments, err := (&recurrence.Calculator{HorizonDays: horizon}).Generate(spec)
			if err != nil {
				return err
			}

			var due billing.PaymentDates
			if raw, _ := cmd.Flags().GetString("term"); raw != "" {
				term, err := billing.ParsePaymentTerm(raw)
				if err != nil {
					return err
				}
				if due, err = billing.GeneratePaymentDates(shipments, term); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			perDay := shipmentsPerDay(shipments)
			for i, d := range shipments.Intervals() {
				line := fmt.Sprintf("%s  %s  x%d", d, d.Weekday().String()[:3], perDay[d.String()])
				if due != nil {
					line += "  due " + due[i].String()
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "total shipments: %d\n", recurrence.TotalShipments(shipments))
			return nil
		},
	}
	addRecurrenceFlags(cmd)
	cmd.Flags().String("term", "", "payment term (PAB, NET_7, NET_10, NET_15, EOM) to print due dates")
	cmd.Flags().Int("horizon-days", recurrence.DefaultHorizonDays, "cap for open-ended recurrences")
	return cmd
}

func newBillingDateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "billing-date <YYYY-MM-DD> <TERM>",
		Short:   "Print the due date for a reference date and payment term",
		Example: `  freightctl billing-date 2024-12-30 NET_7   # 2025-01-07`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := generic.ParseDate(args[0])
			if err != nil {
				return err
			}
			term, err := billing.ParsePaymentTerm(args[1])
			if err != nil {
				return err
			}
			due, err := billing.NextBillingDate(ref, term)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), due)
			return nil
		},
	}
	return cmd
}

func shipmentsPerDay(seq recurrence.Sequence) map[string]int {
	counts := make(map[string]int)
	for _, d := range seq {
		counts[d.String()]++
	}
	return counts
}

// =============================================================================
// SHARED FLAGS
// =============================================================================

func addRecurrenceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("recurrence", "", "recurrence JSON file (overrides the flags below)")
	f.String("frequency", "weekly", "daily or weekly")
	f.StringSlice("weekdays", nil, "weekdays for weekly recurrences, e.g. mon,thu")
	f.Bool("skip-weekends", false, "drop Saturdays and Sundays")
	f.String("start", "", "first day (YYYY-MM-DD)")
	f.String("end", "", "last day (YYYY-MM-DD); empty for open-ended")
	f.Int("per-interval", 1, "shipments per qualifying day")
}

func recurrenceFromFlags(cmd *cobra.Command) (recurrence.Spec, error) {
	f := cmd.Flags()
	if path, _ := f.GetString("recurrence"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return recurrence.Spec{}, err
		}
		return factory.ParseRecurrence(data)
	}

	rj := factory.RecurrenceJSON{}
	rj.Frequency, _ = f.GetString("frequency")
	rj.Weekdays, _ = f.GetStringSlice("weekdays")
	rj.SkipWeekends, _ = f.GetBool("skip-weekends")
	rj.StartDate, _ = f.GetString("start")
	rj.EndDate, _ = f.GetString("end")
	rj.ShipmentsPerInterval, _ = f.GetInt("per-interval")
	for i, w := range rj.Weekdays {
		rj.Weekdays[i] = strings.TrimSpace(w)
	}
	return factory.RecurrenceFromJSON(rj)
}
