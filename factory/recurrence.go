/*
recurrence.go - JSON to Go conversion for lane recurrences

PURPOSE:
  Contracts and rate tables arrive as JSON (API bodies, CLI files, env
  presets). The factory turns them into validated Go values so the engine
  only ever sees closed enums and typed dates. Unknown strings are errors,
  never silently defaulted.

JSON SCHEMA (recurrence):
  {
    "frequency": "weekly",
    "weekdays": ["monday", "thu"],
    "skip_weekends": false,
    "start_date": "2024-03-01",
    "end_date": "2024-03-31",
    "shipments_per_interval": 2
  }

JSON SCHEMA (rate table): see ratetable.go.

USAGE:
  spec, err := factory.ParseRecurrence(body)
  table, err := factory.ParseRateTable(factory.DefaultRateTableJSON())

SEE ALSO:
  - recurrence/types.go: Spec
  - quote/ratetable.go: Table
*/

// Package factory provides JSON to Go conversion for lane recurrences, rate
// tables and routes.
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/recurrence"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RecurrenceJSON is the JSON representation of a recurrence spec.
type RecurrenceJSON struct {
	Frequency            string   `json:"frequency"`
	Weekdays             []string `json:"weekdays,omitempty" validate:"max=7"`
	SkipWeekends         bool     `json:"skip_weekends,omitempty"`
	StartDate            string   `json:"start_date"`
	EndDate              string   `json:"end_date,omitempty"` // empty = open-ended
	ShipmentsPerInterval int      `json:"shipments_per_interval" validate:"max=1000"`
}

// =============================================================================
// RECURRENCE
// =============================================================================

// ParseRecurrence parses and validates a recurrence JSON document.
func ParseRecurrence(data []byte) (recurrence.Spec, error) {
	var rj RecurrenceJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return recurrence.Spec{}, fmt.Errorf("failed to parse recurrence JSON: %w", err)
	}
	return RecurrenceFromJSON(rj)
}

// RecurrenceFromJSON converts RecurrenceJSON to a validated recurrence.Spec.
func RecurrenceFromJSON(rj RecurrenceJSON) (recurrence.Spec, error) {
	freq, err := recurrence.ParseFrequency(rj.Frequency)
	if err != nil {
		return recurrence.Spec{}, err
	}

	var days generic.WeekdaySet
	for _, name := range rj.Weekdays {
		wd, err := generic.ParseWeekday(name)
		if err != nil {
			return recurrence.Spec{}, &generic.InvalidRecurrenceError{Field: "weekdays", Reason: err.Error()}
		}
		days = days.With(wd)
	}

	start, err := generic.ParseDate(rj.StartDate)
	if err != nil {
		return recurrence.Spec{}, &generic.InvalidRecurrenceError{Field: "start_date", Reason: err.Error()}
	}

	spec := recurrence.Spec{
		Frequency:            freq,
		Weekdays:             days,
		SkipWeekends:         rj.SkipWeekends,
		Start:                start,
		ShipmentsPerInterval: rj.ShipmentsPerInterval,
	}
	if rj.EndDate != "" {
		end, err := generic.ParseDate(rj.EndDate)
		if err != nil {
			return recurrence.Spec{}, &generic.InvalidRecurrenceError{Field: "end_date", Reason: err.Error()}
		}
		spec.End = &end
	}

	if err := spec.Validate(); err != nil {
		return recurrence.Spec{}, err
	}
	return spec, nil
}

// RecurrenceToJSON is the inverse of RecurrenceFromJSON.
func RecurrenceToJSON(spec recurrence.Spec) RecurrenceJSON {
	rj := RecurrenceJSON{
		Frequency:            string(spec.Frequency),
		SkipWeekends:         spec.SkipWeekends,
		StartDate:            spec.Start.String(),
		ShipmentsPerInterval: spec.ShipmentsPerInterval,
	}
	for _, d := range spec.Weekdays.Days() {
		rj.Weekdays = append(rj.Weekdays, lower(d.String()))
	}
	if spec.End != nil {
		rj.EndDate = spec.End.String()
	}
	return rj
}
