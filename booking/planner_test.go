package booking_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/booking"
	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/logging"
	"github.com/warp/freight-engine/quote"
	"github.com/warp/freight-engine/recurrence"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func d(s string) generic.Date { return generic.MustParseDate(s) }

func dec(s string) decimal.Decimal { return generic.MustParseDecimal(s) }

func usd(s string) generic.Amount { return generic.Amount{Value: dec(s), Currency: generic.USD} }

// countingRoutes records how many lookups were made.
type countingRoutes struct {
	quote.FixedRoutes
	calls int
}

func (c *countingRoutes) Distance(ctx context.Context, origin, destination string) (quote.Route, error) {
	c.calls++
	return c.FixedRoutes.Distance(ctx, origin, destination)
}

func newPlanner(t *testing.T) (*booking.Planner, *countingRoutes) {
	t.Helper()
	routes := &countingRoutes{FixedRoutes: quote.FixedRoutes{}.
		Add("Chicago, IL", "Detroit, MI", quote.Route{DistanceKm: dec("450"), Duration: "4h 45m"}).
		Add("Chicago, IL", "Chicago, IL", quote.Route{DistanceKm: decimal.Zero, Duration: "0m"})}
	table := &quote.Table{
		Currency:        generic.USD,
		Minimum:         dec("100"),
		BasePerKm:       map[quote.TruckType]decimal.Decimal{quote.TruckTractor: dec("2")},
		EquipmentFactor: map[quote.Equipment]decimal.Decimal{quote.EquipmentDryVan: dec("1")},
		WeightFactor: map[quote.WeightBracket]decimal.Decimal{
			quote.WeightLight:  dec("1"),
			quote.WeightMedium: dec("1"),
			quote.WeightHeavy:  dec("1.2"),
		},
	}
	p := booking.NewPlanner(routes, table, nil)
	p.Logger = logging.Nop()
	return p, routes
}

func dryVan(kg string) booking.Load {
	return booking.Load{Mode: quote.ModeFTL, Truck: quote.TruckTractor, Equipment: quote.EquipmentDryVan, WeightKg: dec(kg)}
}

func mondays(start, end string, perInterval int) recurrence.Spec {
	e := d(end)
	return recurrence.Spec{
		Frequency:            recurrence.Weekly,
		Weekdays:             generic.WeekdaysOf(time.Monday),
		Start:                d(start),
		End:                  &e,
		ShipmentsPerInterval: perInterval,
	}
}

// =============================================================================
// SPOT
// =============================================================================

func TestQuoteSpot(t *testing.T) {
	p, _ := newPlanner(t)

	q, err := p.QuoteSpot(context.Background(), booking.SpotRequest{
		Origin: "Chicago, IL", Destination: "Detroit, MI",
		Load:       dryVan("12000"),
		PickupDate: d("2024-03-22"),
		Term:       billing.NET15,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, quote.WeightHeavy, q.WeightBracket)
	// 2 × 450 × 1 × 1.2
	assert.True(t, q.Price.Equal(usd("1080")), "got %s", q.Price)
	require.NotNil(t, q.RatePerKm)
	assert.True(t, q.RatePerKm.Equal(usd("2.4")))
	require.NotNil(t, q.RatePerKg)
	assert.True(t, q.RatePerKg.Equal(usd("0.09")))
	assert.Equal(t, "2024-03-31", q.DueDate.String())
}

func TestQuoteSpot_ZeroDistanceAndWeightDoNotFail(t *testing.T) {
	p, _ := newPlanner(t)

	q, err := p.QuoteSpot(context.Background(), booking.SpotRequest{
		Origin: "Chicago, IL", Destination: "Chicago, IL",
		Load:       dryVan("0"),
		PickupDate: d("2024-03-22"),
		Term:       billing.PAB,
	})
	require.NoError(t, err)
	assert.True(t, q.Price.Equal(usd("100")))
	assert.Nil(t, q.RatePerKm)
	assert.Nil(t, q.RatePerKg)
	assert.Equal(t, "2024-03-22", q.DueDate.String())
}

func TestQuoteSpot_GeocodingFailurePropagates(t *testing.T) {
	p, _ := newPlanner(t)

	q, err := p.QuoteSpot(context.Background(), booking.SpotRequest{
		Origin: "Chicago, IL", Destination: "Nowhere",
		Load: dryVan("100"), PickupDate: d("2024-03-22"), Term: billing.EOM,
	})
	var geoErr *generic.GeocodingError
	require.ErrorAs(t, err, &geoErr)
	assert.Equal(t, booking.SpotQuote{}, q)
}

// =============================================================================
// LANE
// =============================================================================

func TestPlanLane_MarchMondays(t *testing.T) {
	// GIVEN: weekly Mondays for March 2024, two shipments each, NET_10
	// WHEN: the lane is planned
	// THEN: 8 shipments, one payment date per Monday and the full total
	p, _ := newPlanner(t)

	c, err := p.PlanLane(context.Background(), booking.LaneRequest{
		ContractID: "lane-1",
		Origin:     "Chicago, IL", Destination: "Detroit, MI",
		Load:       dryVan("5000"),
		Recurrence: mondays("2024-03-01", "2024-03-31", 2),
		Term:       billing.NET10,
	})
	require.NoError(t, err)

	assert.Equal(t, "lane-1", c.ID)
	assert.Len(t, c.Shipments, 8)
	require.Len(t, c.PaymentDates, 4)
	assert.Equal(t, []string{"2024-03-10", "2024-03-20", "2024-03-20", "2024-03-31"},
		dates(c.PaymentDates))
	assert.Equal(t, 8, c.Totals.TotalShipments)
	assert.True(t, c.Totals.PerShipmentRate.Equal(usd("900")))
	assert.True(t, c.Totals.ContractTotal.Equal(usd("7200")))

	window, ok := c.Window()
	require.True(t, ok)
	assert.Equal(t, "2024-03-04", window.Start.String())
	assert.Equal(t, "2024-03-25", window.End.String())
}

func TestPlanLane_InvalidInputSkipsDistanceLookup(t *testing.T) {
	p, routes := newPlanner(t)

	bad := mondays("2024-03-31", "2024-03-01", 1)
	c, err := p.PlanLane(context.Background(), booking.LaneRequest{
		Origin: "Chicago, IL", Destination: "Detroit, MI",
		Load: dryVan("100"), Recurrence: bad, Term: billing.NET7,
	})
	assert.ErrorIs(t, err, generic.ErrInvalidRecurrence)
	assert.Equal(t, booking.Contract{}, c)

	_, err = p.PlanLane(context.Background(), booking.LaneRequest{
		Origin: "Chicago, IL", Destination: "Detroit, MI",
		Load: dryVan("100"), Recurrence: mondays("2024-03-01", "2024-03-31", 1),
		Term: billing.PaymentTerm("NET_60"),
	})
	assert.ErrorIs(t, err, generic.ErrUnknownPaymentTerm)

	assert.Equal(t, 0, routes.calls)
}

func TestPlanLane_UnsupportedConfiguration(t *testing.T) {
	p, _ := newPlanner(t)

	load := dryVan("100")
	load.Equipment = quote.EquipmentReefer
	_, err := p.PlanLane(context.Background(), booking.LaneRequest{
		Origin: "Chicago, IL", Destination: "Detroit, MI",
		Load: load, Recurrence: mondays("2024-03-01", "2024-03-31", 1), Term: billing.EOM,
	})
	var cfgErr *generic.UnsupportedConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "equipment", cfgErr.Dimension)
}

func TestPlanLane_NoQualifyingDates(t *testing.T) {
	p, _ := newPlanner(t)

	e := d("2024-03-03")
	spec := recurrence.Spec{
		Frequency:            recurrence.Daily,
		SkipWeekends:         true,
		Start:                d("2024-03-02"),
		End:                  &e,
		ShipmentsPerInterval: 1,
	}
	_, err := p.PlanLane(context.Background(), booking.LaneRequest{
		Origin: "Chicago, IL", Destination: "Detroit, MI",
		Load: dryVan("100"), Recurrence: spec, Term: billing.EOM,
	})
	assert.ErrorIs(t, err, generic.ErrNonPositiveQuantity)
}

func TestContract_Invoices(t *testing.T) {
	p, _ := newPlanner(t)
	c, err := p.PlanLane(context.Background(), booking.LaneRequest{
		ContractID: "lane-1",
		Origin:     "Chicago, IL", Destination: "Detroit, MI",
		Load:       dryVan("5000"),
		Recurrence: mondays("2024-03-01", "2024-03-31", 2),
		Term:       billing.NET10,
	})
	require.NoError(t, err)

	n := 0
	invoices, err := c.Invoices(func() string { n++; return fmt.Sprintf("inv-%d", n) })
	require.NoError(t, err)
	require.Len(t, invoices, 3)

	assert.Equal(t, "inv-1", invoices[0].ID)
	assert.Equal(t, "2024-03-10", invoices[0].DueDate.String())
	assert.Equal(t, "2024-03-04", invoices[0].ReferenceDate.String())
	assert.True(t, invoices[0].Principal.Equal(usd("1800")))

	assert.Equal(t, "2024-03-20", invoices[1].DueDate.String())
	assert.True(t, invoices[1].Principal.Equal(usd("3600")))

	sum := usd("0")
	for _, inv := range invoices {
		assert.Equal(t, "lane-1", inv.ContractID)
		assert.Equal(t, billing.StatusPending, inv.Status)
		sum = sum.Add(inv.Principal)
	}
	assert.True(t, sum.Equal(c.Totals.ContractTotal))
}

func TestPlanLane_CancelledContext(t *testing.T) {
	p, _ := newPlanner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.PlanLane(ctx, booking.LaneRequest{
		Origin: "Chicago, IL", Destination: "Detroit, MI",
		Load: dryVan("100"), Recurrence: mondays("2024-03-01", "2024-03-31", 1), Term: billing.EOM,
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, generic.IsUpstream(err))
}

func dates(ds billing.PaymentDates) []string {
	out := make([]string, len(ds))
	for i, x := range ds {
		out[i] = x.String()
	}
	return out
}
