/*
schedule.go - Payment terms and billing (due) dates

PURPOSE:
  Maps a payment-term code to the due date of a transaction, and a lane's
  shipment sequence to its payment dates.

PAYMENT TERMS:
  PAB     pay at booking: the reference date itself
  NET_7   7th, 14th, 21st or 28th of the month
  NET_10  10th, 20th or end of month
  NET_15  15th or end of month
  EOM     end of month

SELECTION RULE:
  The due date is the smallest candidate on or after the reference date.
  When the reference is past every candidate of its month, the search moves
  to the first day of the next month. Every schedule has a candidate on or
  before the 28th or at EOM, so one hop always suffices; a second hop is an
  invariant violation reported as ErrBillingRollover.

ONE DUE DATE PER INTERVAL:
  Shipments sharing an interval date share one due date. Payment dates are
  derived from distinct interval dates so a lane never produces duplicate
  invoices for the same interval.

SEE ALSO:
  - generic/time.go: EndOfMonth, FirstOfNextMonth
  - recurrence/calculator.go: shipment sequences
  - booking/planner.go: lane contracts
*/

package billing

import (
	"fmt"
	"strings"

	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/recurrence"
)

// =============================================================================
// PAYMENT TERM
// =============================================================================

type PaymentTerm string

const (
	PAB   PaymentTerm = "PAB"
	NET7  PaymentTerm = "NET_7"
	NET10 PaymentTerm = "NET_10"
	NET15 PaymentTerm = "NET_15"
	EOM   PaymentTerm = "EOM"
)

// PaymentTerms lists every supported term.
var PaymentTerms = []PaymentTerm{PAB, NET7, NET10, NET15, EOM}

// endOfMonth marks the EOM candidate in a term schedule.
const endOfMonth = -1

var termSchedules = map[PaymentTerm][]int{
	NET7:  {7, 14, 21, 28},
	NET10: {10, 20, endOfMonth},
	NET15: {15, endOfMonth},
	EOM:   {endOfMonth},
}

// maxRolloverHops bounds the month rollover in NextBillingDate.
const maxRolloverHops = 1

// ParsePaymentTerm normalizes codes such as "net-10", "NET10" or "eom".
func ParsePaymentTerm(s string) (PaymentTerm, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	code = strings.NewReplacer("-", "_", " ", "_").Replace(code)
	if strings.HasPrefix(code, "NET") && !strings.HasPrefix(code, "NET_") {
		code = "NET_" + strings.TrimPrefix(code, "NET")
	}
	term := PaymentTerm(code)
	if err := term.Validate(); err != nil {
		return "", &generic.UnknownPaymentTermError{Term: s}
	}
	return term, nil
}

func (t PaymentTerm) Validate() error {
	if t == PAB {
		return nil
	}
	if _, ok := termSchedules[t]; ok {
		return nil
	}
	return &generic.UnknownPaymentTermError{Term: string(t)}
}

func (t PaymentTerm) String() string { return string(t) }

// candidates returns the term's due dates within the month of d, ascending.
func (t PaymentTerm) candidates(d generic.Date) []generic.Date {
	days := termSchedules[t]
	out := make([]generic.Date, 0, len(days))
	for _, day := range days {
		if day == endOfMonth {
			out = append(out, d.EndOfMonth())
			continue
		}
		out = append(out, generic.NewDate(d.Year(), d.Month(), day))
	}
	return out
}

// =============================================================================
// NEXT BILLING DATE
// =============================================================================

// NextBillingDate returns the due date for a transaction on reference.
func NextBillingDate(reference generic.Date, term PaymentTerm) (generic.Date, error) {
	if err := term.Validate(); err != nil {
		return generic.Date{}, err
	}
	if term == PAB {
		return reference, nil
	}

	ref := reference
	for hop := 0; hop <= maxRolloverHops; hop++ {
		for _, c := range term.candidates(ref) {
			if c.AfterOrEqual(ref) {
				return c, nil
			}
		}
		ref = ref.FirstOfNextMonth()
	}
	return generic.Date{}, fmt.Errorf("%w: term %s from %s", generic.ErrBillingRollover, term, reference)
}

// =============================================================================
// PAYMENT DATES FOR A SEQUENCE
// =============================================================================

// PaymentDates holds one due date per distinct interval, parallel to
// Sequence.Intervals().
type PaymentDates []generic.Date

// GeneratePaymentDates applies NextBillingDate once per distinct interval.
func GeneratePaymentDates(shipments recurrence.Sequence, term PaymentTerm) (PaymentDates, error) {
	if err := term.Validate(); err != nil {
		return nil, err
	}
	intervals := shipments.Intervals()
	out := make(PaymentDates, 0, len(intervals))
	for _, d := range intervals {
		due, err := NextBillingDate(d, term)
		if err != nil {
			return nil, err
		}
		out = append(out, due)
	}
	return out, nil
}

// Cycle groups the intervals billed on one due date.
type Cycle struct {
	DueDate   generic.Date
	Intervals []generic.Date
	Shipments int
}

// GroupByDueDate folds a shipment sequence into billing cycles ordered by
// due date. Due dates are monotone in the interval date, so adjacent
// grouping is enough.
func GroupByDueDate(shipments recurrence.Sequence, term PaymentTerm) ([]Cycle, error) {
	if err := term.Validate(); err != nil {
		return nil, err
	}
	var cycles []Cycle
	for i, d := range shipments {
		if i > 0 && d.Equal(shipments[i-1]) {
			cycles[len(cycles)-1].Shipments++
			continue
		}
		due, err := NextBillingDate(d, term)
		if err != nil {
			return nil, err
		}
		if n := len(cycles); n > 0 && cycles[n-1].DueDate.Equal(due) {
			cycles[n-1].Intervals = append(cycles[n-1].Intervals, d)
			cycles[n-1].Shipments++
			continue
		}
		cycles = append(cycles, Cycle{DueDate: due, Intervals: []generic.Date{d}, Shipments: 1})
	}
	return cycles, nil
}
