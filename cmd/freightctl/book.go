package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/warp/freight-engine/booking"
)

func newBookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Plan a dedicated lane and issue its invoices",
		Long: `Plan a dedicated lane and, unless --dry-run is set, store one pending
invoice per distinct due date. All invoices are written in one transaction.`,
		Example: `  freightctl book --contract-id lane-chi-det \
    --from "Chicago, IL" --to "Detroit, MI" --weight 5000 \
    --frequency weekly --weekdays mon --start 2024-03-01 --end 2024-03-31 \
    --per-interval 2 --term NET_10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, load, term, err := laneFlags(cmd)
			if err != nil {
				return err
			}
			spec, err := recurrenceFromFlags(cmd)
			if err != nil {
				return err
			}
			contractID, _ := cmd.Flags().GetString("contract-id")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			contract, err := a.Planner.PlanLane(cmd.Context(), booking.LaneRequest{
				ContractID:  contractID,
				Origin:      from,
				Destination: to,
				Load:        load,
				Recurrence:  spec,
				Term:        term,
			})
			if err != nil {
				return err
			}
			invoices, err := contract.Invoices(uuid.NewString)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "contract   %s\n", contract.ID)
			fmt.Fprintf(out, "shipments  %d x %s\n", contract.Totals.TotalShipments, money(contract.Totals.PerShipmentRate))
			fmt.Fprintf(out, "total      %s\n\n", money(contract.Totals.ContractTotal))

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "INVOICE\tFIRST SHIPMENT\tDUE\tPRINCIPAL")
			for _, inv := range invoices {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", inv.ID, inv.ReferenceDate, inv.DueDate, money(inv.Principal))
			}
			tw.Flush()

			if dryRun {
				fmt.Fprintln(out, "\ndry run: nothing stored")
				return nil
			}
			if err := a.Billing.IssueInvoices(cmd.Context(), invoices); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nissued %d invoices\n", len(invoices))
			return nil
		},
	}
	addLaneFlags(cmd)
	addRecurrenceFlags(cmd)
	cmd.Flags().String("contract-id", "", "contract id (random when empty)")
	cmd.Flags().Bool("dry-run", false, "plan only, store nothing")
	return cmd
}
