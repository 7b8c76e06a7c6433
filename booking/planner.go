/*
planner.go - Spot quotes and dedicated-lane contracts

PURPOSE:
  Orchestrates the collaborators and the core engine for one booking:

    distance → price → recurrence → payment dates → contract totals

  Every step must succeed before a Contract or SpotQuote is returned. A
  failure at any step returns the zero value and the error, unchanged:
  GeocodingError and UnsupportedConfigurationError from the collaborators
  are never retried here.

  Parameter validation (recurrence spec, payment term) happens before the
  distance provider is called, so bad input costs no upstream request.

SEE ALSO:
  - contract.go: Contract value and invoice derivation
  - quote/: rate table, distance provider, aggregation
  - billing/schedule.go: payment terms
*/

package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/logging"
	"github.com/warp/freight-engine/quote"
	"github.com/warp/freight-engine/recurrence"
)

// Load describes what is being moved and with what.
type Load struct {
	Mode      quote.Mode
	Truck     quote.TruckType
	Equipment quote.Equipment
	Trailer   *quote.Trailer
	WeightKg  decimal.Decimal
}

type SpotRequest struct {
	Origin      string
	Destination string
	Load        Load
	PickupDate  generic.Date
	Term        billing.PaymentTerm
}

// SpotQuote is a priced single shipment. RatePerKm and RatePerKg are nil
// when the distance or weight is zero.
type SpotQuote struct {
	ID            string
	Origin        string
	Destination   string
	Route         quote.Route
	WeightBracket quote.WeightBracket
	Price         generic.Amount
	RatePerKm     *generic.Amount
	RatePerKg     *generic.Amount
	PickupDate    generic.Date
	Term          billing.PaymentTerm
	DueDate       generic.Date
}

type LaneRequest struct {
	ContractID  string
	Origin      string
	Destination string
	Load        Load
	Recurrence  recurrence.Spec
	Term        billing.PaymentTerm
}

// Planner prices bookings. It holds no mutable state and is safe for
// concurrent use.
type Planner struct {
	Distances  quote.DistanceProvider
	Rates      quote.RateTable
	Calculator *recurrence.Calculator
	Logger     zerolog.Logger
}

func NewPlanner(distances quote.DistanceProvider, rates quote.RateTable, calc *recurrence.Calculator) *Planner {
	if calc == nil {
		calc = recurrence.NewCalculator()
	}
	return &Planner{
		Distances:  distances,
		Rates:      rates,
		Calculator: calc,
		Logger:     logging.WithComponent("booking"),
	}
}

// =============================================================================
// SPOT
// =============================================================================

func (p *Planner) QuoteSpot(ctx context.Context, req SpotRequest) (SpotQuote, error) {
	if err := req.Term.Validate(); err != nil {
		return SpotQuote{}, err
	}
	if req.PickupDate.IsZero() {
		return SpotQuote{}, &generic.InvalidRecurrenceError{Field: "pickup_date", Reason: "required"}
	}

	route, bracket, price, err := p.price(ctx, req.Origin, req.Destination, req.Load)
	if err != nil {
		return SpotQuote{}, err
	}
	due, err := billing.NextBillingDate(req.PickupDate, req.Term)
	if err != nil {
		return SpotQuote{}, err
	}

	q := SpotQuote{
		ID:            uuid.NewString(),
		Origin:        req.Origin,
		Destination:   req.Destination,
		Route:         route,
		WeightBracket: bracket,
		Price:         price,
		PickupDate:    req.PickupDate,
		Term:          req.Term,
		DueDate:       due,
	}
	if rate, err := quote.RatePerDistance(price, route.DistanceKm); err == nil {
		q.RatePerKm = &rate
	}
	if rate, err := quote.RatePerWeight(price, req.Load.WeightKg); err == nil {
		q.RatePerKg = &rate
	}

	p.Logger.Debug().
		Str("quote_id", q.ID).
		Str("price", price.String()).
		Str("due_date", due.String()).
		Msg("spot quote computed")
	return q, nil
}

// =============================================================================
// LANE
// =============================================================================

// PlanLane builds a dedicated-lane contract. Nothing is persisted.
func (p *Planner) PlanLane(ctx context.Context, req LaneRequest) (Contract, error) {
	if err := req.Recurrence.Validate(); err != nil {
		return Contract{}, err
	}
	if err := req.Term.Validate(); err != nil {
		return Contract{}, err
	}

	route, bracket, perShipment, err := p.price(ctx, req.Origin, req.Destination, req.Load)
	if err != nil {
		return Contract{}, err
	}

	shipments, err := p.Calculator.Generate(req.Recurrence)
	if err != nil {
		return Contract{}, err
	}
	paymentDates, err := billing.GeneratePaymentDates(shipments, req.Term)
	if err != nil {
		return Contract{}, err
	}
	totals, err := quote.Aggregate(perShipment, recurrence.TotalShipments(shipments))
	if err != nil {
		return Contract{}, err
	}

	id := req.ContractID
	if id == "" {
		id = uuid.NewString()
	}
	c := Contract{
		ID:            id,
		Origin:        req.Origin,
		Destination:   req.Destination,
		Route:         route,
		Load:          req.Load,
		WeightBracket: bracket,
		Recurrence:    req.Recurrence,
		Term:          req.Term,
		Shipments:     shipments,
		PaymentDates:  paymentDates,
		Totals:        totals,
	}

	p.Logger.Info().
		Str("contract_id", c.ID).
		Int("shipments", totals.TotalShipments).
		Int("payment_dates", len(paymentDates)).
		Str("contract_total", totals.ContractTotal.String()).
		Msg("lane planned")
	return c, nil
}

func (p *Planner) price(ctx context.Context, origin, destination string, load Load) (quote.Route, quote.WeightBracket, generic.Amount, error) {
	bracket, err := quote.WeightBracketFor(load.WeightKg)
	if err != nil {
		return quote.Route{}, "", generic.Amount{}, err
	}
	route, err := p.Distances.Distance(ctx, origin, destination)
	if err != nil {
		p.Logger.Warn().Err(err).Str("origin", origin).Str("destination", destination).Msg("distance lookup failed")
		return quote.Route{}, "", generic.Amount{}, err
	}
	price, err := p.Rates.Price(quote.PriceRequest{
		Truck:      load.Truck,
		Equipment:  load.Equipment,
		Trailer:    load.Trailer,
		DistanceKm: route.DistanceKm,
		Weight:     bracket,
	})
	if err != nil {
		return quote.Route{}, "", generic.Amount{}, err
	}
	return route, bracket, price, nil
}
