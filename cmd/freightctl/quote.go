package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/booking"
	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/quote"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a single (spot) shipment",
		Example: `  freightctl quote --from "Chicago, IL" --to "Detroit, MI" \
    --truck tractor --equipment dry_van --weight 12000 \
    --pickup 2024-03-22 --term NET_15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, load, term, err := laneFlags(cmd)
			if err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetString("pickup")
			pickup, err := generic.ParseDate(raw)
			if err != nil {
				return fmt.Errorf("--pickup: %w", err)
			}

			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := a.Planner.QuoteSpot(cmd.Context(), booking.SpotRequest{
				Origin:      from,
				Destination: to,
				Load:        load,
				PickupDate:  pickup,
				Term:        term,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "quote      %s\n", q.ID)
			fmt.Fprintf(out, "route      %s -> %s (%s km, %s)\n", q.Origin, q.Destination, q.Route.DistanceKm, q.Route.Duration)
			fmt.Fprintf(out, "bracket    %s\n", q.WeightBracket)
			fmt.Fprintf(out, "price      %s\n", money(q.Price))
			if q.RatePerKm != nil {
				fmt.Fprintf(out, "per km     %s\n", money(*q.RatePerKm))
			}
			if q.RatePerKg != nil {
				fmt.Fprintf(out, "per kg     %s\n", money(*q.RatePerKg))
			}
			fmt.Fprintf(out, "due        %s (%s)\n", q.DueDate, q.Term)
			return nil
		},
	}
	addLaneFlags(cmd)
	cmd.Flags().String("pickup", "", "pickup date (YYYY-MM-DD)")
	return cmd
}

// =============================================================================
// SHARED FLAGS
// =============================================================================

func addLaneFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("from", "", "origin")
	f.String("to", "", "destination")
	f.String("mode", string(quote.ModeFTL), "FTL or POWER")
	f.String("truck", string(quote.TruckTractor), "sprinter, box_truck or tractor")
	f.String("equipment", string(quote.EquipmentDryVan), "dry_van, reefer, flatbed or power_only")
	f.String("weight", "0", "load weight in kg")
	f.String("trailer", "", "shipper trailer for POWER loads, e.g. reefer/53")
	f.String("term", string(billing.PAB), "payment term")
}

func laneFlags(cmd *cobra.Command) (from, to string, load booking.Load, term billing.PaymentTerm, err error) {
	f := cmd.Flags()
	from, _ = f.GetString("from")
	to, _ = f.GetString("to")
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return "", "", load, "", fmt.Errorf("--from and --to are required")
	}

	mode, _ := f.GetString("mode")
	truck, _ := f.GetString("truck")
	equipment, _ := f.GetString("equipment")
	rawWeight, _ := f.GetString("weight")
	weight, err := decimal.NewFromString(rawWeight)
	if err != nil {
		return "", "", load, "", fmt.Errorf("--weight: %w", err)
	}
	load = booking.Load{
		Mode:      quote.Mode(strings.ToUpper(mode)),
		Truck:     quote.TruckType(strings.ToLower(truck)),
		Equipment: quote.Equipment(strings.ToLower(equipment)),
		WeightKg:  weight,
	}

	if raw, _ := f.GetString("trailer"); raw != "" {
		trailer, err := parseTrailer(raw)
		if err != nil {
			return "", "", load, "", err
		}
		load.Trailer = &trailer
	}

	rawTerm, _ := f.GetString("term")
	term, err = billing.ParsePaymentTerm(rawTerm)
	if err != nil {
		return "", "", load, "", err
	}
	return from, to, load, term, nil
}

func parseTrailer(s string) (quote.Trailer, error) {
	kind, length, ok := strings.Cut(s, "/")
	if !ok {
		return quote.Trailer{}, fmt.Errorf("--trailer must look like type/length, got %q", s)
	}
	var ft int
	if _, err := fmt.Sscanf(length, "%d", &ft); err != nil || ft <= 0 {
		return quote.Trailer{}, fmt.Errorf("--trailer length must be a positive number of feet, got %q", length)
	}
	return quote.Trailer{Type: kind, LengthFt: ft}, nil
}
