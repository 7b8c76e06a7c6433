package recurrence

import (
	"fmt"
	"strings"

	"github.com/warp/freight-engine/generic"
)

// Frequency is how often a lane contract has an interval.
type Frequency string

const (
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

// ParseFrequency accepts "daily" or "weekly", case-insensitive.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case Daily, Weekly:
		return f, nil
	default:
		return "", &generic.InvalidRecurrenceError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", s)}
	}
}

// Spec is the recurrence configuration of a dedicated lane contract.
type Spec struct {
	Frequency    Frequency
	Weekdays     generic.WeekdaySet // empty = any day (Daily)
	SkipWeekends bool
	Start        generic.Date
	// End is inclusive. Nil means open-ended; generation stops at the
	// calculator horizon.
	End                  *generic.Date
	ShipmentsPerInterval int
}

// Validate checks the invariants every generation relies on.
func (s Spec) Validate() error {
	switch s.Frequency {
	case Daily:
	case Weekly:
		if s.Weekdays.IsEmpty() {
			return &generic.InvalidRecurrenceError{Field: "weekdays", Reason: "weekly frequency requires at least one weekday"}
		}
	default:
		return &generic.InvalidRecurrenceError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", s.Frequency)}
	}
	if s.Start.IsZero() {
		return &generic.InvalidRecurrenceError{Field: "start_date", Reason: "required"}
	}
	if s.End != nil && s.End.Before(s.Start) {
		return &generic.InvalidRecurrenceError{Field: "end_date", Reason: fmt.Sprintf("%s is before start %s", s.End, s.Start)}
	}
	if s.ShipmentsPerInterval <= 0 {
		return &generic.InvalidRecurrenceError{Field: "shipments_per_interval", Reason: fmt.Sprintf("must be positive, got %d", s.ShipmentsPerInterval)}
	}
	if s.ShipmentsPerInterval > MaxShipmentsPerInterval {
		return &generic.InvalidRecurrenceError{Field: "shipments_per_interval", Reason: fmt.Sprintf("at most %d per day, got %d", MaxShipmentsPerInterval, s.ShipmentsPerInterval)}
	}
	return nil
}

// Sequence is the ordered list of shipment dates. Shipments sharing an
// interval repeat the interval date.
type Sequence []generic.Date

// TotalShipments is the number of shipments in the sequence.
func TotalShipments(seq Sequence) int { return len(seq) }

// Intervals returns the distinct dates in order.
func (seq Sequence) Intervals() []generic.Date {
	var out []generic.Date
	for i, d := range seq {
		if i > 0 && d.Equal(seq[i-1]) {
			continue
		}
		out = append(out, d)
	}
	return out
}
