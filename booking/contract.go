package booking

import (
	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/quote"
	"github.com/warp/freight-engine/recurrence"
)

// Contract is a planned dedicated lane. It is a value: copying it copies
// the plan, and nothing in it refers back to the planner.
type Contract struct {
	ID            string
	Origin        string
	Destination   string
	Route         quote.Route
	Load          Load
	WeightBracket quote.WeightBracket
	Recurrence    recurrence.Spec
	Term          billing.PaymentTerm
	Shipments     recurrence.Sequence
	PaymentDates  billing.PaymentDates
	Totals        quote.Totals
}

// Invoices derives one pending invoice per distinct due date. Principal is
// the per-shipment rate times the shipments billed on that date, so the
// principals always sum to the contract total.
func (c Contract) Invoices(newID func() string) ([]billing.Invoice, error) {
	cycles, err := billing.GroupByDueDate(c.Shipments, c.Term)
	if err != nil {
		return nil, err
	}
	out := make([]billing.Invoice, 0, len(cycles))
	for _, cy := range cycles {
		out = append(out, billing.NewInvoice(
			newID(),
			c.ID,
			cy.Intervals[0],
			cy.DueDate,
			c.Totals.PerShipmentRate.MulInt(cy.Shipments),
		))
	}
	return out, nil
}

// Window is the first and last shipment date, or false when empty.
func (c Contract) Window() (generic.Period, bool) {
	if len(c.Shipments) == 0 {
		return generic.Period{}, false
	}
	return generic.Period{Start: c.Shipments[0], End: c.Shipments[len(c.Shipments)-1]}, true
}
