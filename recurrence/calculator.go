/*
calculator.go - Shipment date generation for dedicated lane contracts

PURPOSE:
  Turns a recurrence Spec into the full, ordered list of shipment dates.
  Everything downstream (payment dates, contract totals, invoices) is
  derived from this list, so it must be deterministic.

FREQUENCIES:
  Daily:
    Every date in [start, end] is an interval.
  Weekly:
    Only dates whose weekday is in the selected set are intervals.

WEEKEND SKIP:
  With SkipWeekends, a Saturday or Sunday interval is dropped, never
  shifted. A weekly contract on Saturdays with SkipWeekends therefore
  produces no shipments at all. That is an empty sequence, not an error.

OPEN-ENDED CONTRACTS:
  A spec without an end date is generated up to HorizonDays calendar days
  from the start (start included). The cap guarantees termination.

LIMITS:
  Every window, open-ended or not, is at most MaxWindowDays long, and a
  sequence holds at most MaxShipments dates. Both are checked before
  anything is allocated and fail with InvalidRecurrenceError.

EXAMPLE:
  end := generic.NewDate(2024, time.March, 31)
  seq, err := recurrence.NewCalculator().Generate(recurrence.Spec{
      Frequency:            recurrence.Weekly,
      Weekdays:             generic.WeekdaysOf(time.Monday),
      Start:                generic.NewDate(2024, time.March, 1),
      End:                  &end,
      ShipmentsPerInterval: 2,
  })
  // [03-04 03-04 03-11 03-11 03-18 03-18 03-25 03-25]

SEE ALSO:
  - generic/time.go: NextOccurrence and weekend checks
  - billing/schedule.go: due dates per interval
*/

package recurrence

import (
	"fmt"

	"github.com/warp/freight-engine/generic"
)

const (
	// DefaultHorizonDays bounds open-ended contracts.
	DefaultHorizonDays = 365
	// DefaultMaxWindowDays is ten years of calendar days.
	DefaultMaxWindowDays = 3660
	// DefaultMaxShipments caps one contract's sequence.
	DefaultMaxShipments = 100_000
	// MaxShipmentsPerInterval caps a single qualifying day.
	MaxShipmentsPerInterval = 1000
)

// Calculator generates shipment dates. Zero fields use the defaults above.
type Calculator struct {
	HorizonDays   int
	MaxWindowDays int
	MaxShipments  int
}

func NewCalculator() *Calculator {
	return &Calculator{
		HorizonDays:   DefaultHorizonDays,
		MaxWindowDays: DefaultMaxWindowDays,
		MaxShipments:  DefaultMaxShipments,
	}
}

// Generate returns the shipment dates for spec.
func (c *Calculator) Generate(spec Spec) (Sequence, error) {
	intervals, err := c.Intervals(spec)
	if err != nil {
		return nil, err
	}
	total, err := c.total(len(intervals), spec.ShipmentsPerInterval)
	if err != nil {
		return nil, err
	}
	seq := make(Sequence, 0, total)
	for _, d := range intervals {
		for i := 0; i < spec.ShipmentsPerInterval; i++ {
			seq = append(seq, d)
		}
	}
	return seq, nil
}

// Count returns len(Generate(spec)) without materializing shipments.
func (c *Calculator) Count(spec Spec) (int, error) {
	intervals, err := c.Intervals(spec)
	if err != nil {
		return 0, err
	}
	return c.total(len(intervals), spec.ShipmentsPerInterval)
}

// total is intervals × perInterval, rejected before the product can pass
// the cap.
func (c *Calculator) total(intervals, perInterval int) (int, error) {
	limit := c.maxShipments()
	if intervals > 0 && perInterval > limit/intervals {
		return 0, &generic.InvalidRecurrenceError{
			Field:  "shipments_per_interval",
			Reason: fmt.Sprintf("%d intervals x %d shipments exceeds the limit of %d", intervals, perInterval, limit),
		}
	}
	return intervals * perInterval, nil
}

// Intervals returns the qualifying interval dates, one per interval.
func (c *Calculator) Intervals(spec Spec) ([]generic.Date, error) {
	window, err := c.Window(spec)
	if err != nil {
		return nil, err
	}

	switch spec.Frequency {
	case Weekly:
		return weekly(window, spec.Weekdays, spec.SkipWeekends), nil
	default:
		return daily(window, spec.SkipWeekends), nil
	}
}

// Window is the inclusive range generation walks over.
func (c *Calculator) Window(spec Spec) (generic.Period, error) {
	if err := spec.Validate(); err != nil {
		return generic.Period{}, err
	}
	limit := c.maxWindowDays()
	if spec.End == nil && c.horizonDays() > limit {
		return generic.Period{}, &generic.InvalidRecurrenceError{
			Field:  "horizon_days",
			Reason: fmt.Sprintf("horizon of %d days exceeds the limit of %d", c.horizonDays(), limit),
		}
	}
	window := c.window(spec)
	if window.Len() > limit {
		return generic.Period{}, &generic.InvalidRecurrenceError{
			Field:  "end_date",
			Reason: fmt.Sprintf("window of %d days exceeds the limit of %d", window.Len(), limit),
		}
	}
	return window, nil
}

func (c *Calculator) horizonDays() int {
	if c.HorizonDays > 0 {
		return c.HorizonDays
	}
	return DefaultHorizonDays
}

func (c *Calculator) maxWindowDays() int {
	if c.MaxWindowDays > 0 {
		return c.MaxWindowDays
	}
	return DefaultMaxWindowDays
}

func (c *Calculator) maxShipments() int {
	if c.MaxShipments > 0 {
		return c.MaxShipments
	}
	return DefaultMaxShipments
}

func (c *Calculator) window(spec Spec) generic.Period {
	if spec.End != nil {
		return generic.Period{Start: spec.Start, End: *spec.End}
	}
	return generic.Period{Start: spec.Start, End: spec.Start.AddDays(c.horizonDays() - 1)}
}

func daily(window generic.Period, skipWeekends bool) []generic.Date {
	var out []generic.Date
	window.Walk(func(d generic.Date) bool {
		if skipWeekends && d.IsWeekend() {
			return true
		}
		out = append(out, d)
		return true
	})
	return out
}

func weekly(window generic.Period, days generic.WeekdaySet, skipWeekends bool) []generic.Date {
	var out []generic.Date
	for d := generic.NextOccurrence(window.Start, days); d.BeforeOrEqual(window.End); d = generic.NextOccurrence(d.AddDays(1), days) {
		if skipWeekends && d.IsWeekend() {
			continue
		}
		out = append(out, d)
	}
	return out
}
