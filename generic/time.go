/*
time.go - Calendar dates and the date cursor

PURPOSE:
  Every date the engine reasons about (shipment dates, due dates, invoice
  reference dates) is a calendar day. Date wraps time.Time normalized to
  midnight UTC so comparisons never depend on the hour or the zone.

DATE CURSOR:
  NextOccurrence, NextWorkday, EndOfMonth and FirstOfNextMonth are the only
  calendar arithmetic the recurrence and billing packages need. All of them
  are pure functions.

EXAMPLE:
  d := generic.NewDate(2024, time.February, 10)
  d.EndOfMonth()                                    // 2024-02-29
  generic.NextOccurrence(d, generic.WeekdaysOf(time.Monday)) // 2024-02-12

SEE ALSO:
  - period.go: inclusive date ranges
  - recurrence/calculator.go: shipment date generation
  - billing/schedule.go: payment-term due dates
*/

package generic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for dates (ISO 8601 calendar date).
const DateLayout = "2006-01-02"

// =============================================================================
// DATE - A calendar day
// =============================================================================

type Date struct {
	Time time.Time
}

// NewDate builds a date; out-of-range values normalize like time.Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

func Today() Date { return DateOf(time.Now()) }

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals in tests and presets.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.Time.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// MONTH BOUNDARIES
// =============================================================================

func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

// EndOfMonth returns the last calendar day of the month (Feb 29 in leap years).
func EndOfMonth(year int, month time.Month) Date {
	// Day 0 of the next month is the last day of this one.
	return NewDate(year, month+1, 0)
}

func (d Date) EndOfMonth() Date       { return EndOfMonth(d.Year(), d.Month()) }
func (d Date) FirstOfNextMonth() Date { return NewDate(d.Year(), d.Month()+1, 1) }
func (d Date) IsEndOfMonth() bool     { return d.Equal(d.EndOfMonth()) }

// DaysBetween returns the whole days from one date to another (negative when to < from).
func DaysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}

// =============================================================================
// WEEKDAY SET
// =============================================================================

// WeekdaySet is a bitmask over time.Weekday. The zero value is the empty set.
type WeekdaySet uint8

func WeekdaysOf(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// Workdays is Monday through Friday.
var Workdays = WeekdaysOf(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)

func (s WeekdaySet) With(d time.Weekday) WeekdaySet   { return s | 1<<uint(d) }
func (s WeekdaySet) Contains(d time.Weekday) bool    { return s&(1<<uint(d)) != 0 }
func (s WeekdaySet) IsEmpty() bool                   { return s == 0 }

func (s WeekdaySet) Len() int {
	n := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			n++
		}
	}
	return n
}

// Days lists the members in Sunday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

func (s WeekdaySet) String() string {
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, d.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts full or abbreviated English names, case-insensitive.
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return d, nil
}

// =============================================================================
// DATE CURSOR
// =============================================================================

// NextOccurrence returns the first date on or after from whose weekday is in
// set. An empty set matches every day.
func NextOccurrence(from Date, set WeekdaySet) Date {
	if set.IsEmpty() {
		return from
	}
	for i := 0; i < 7; i++ {
		d := from.AddDays(i)
		if set.Contains(d.Weekday()) {
			return d
		}
	}
	// unreachable: a non-empty set matches within a week
	return from
}

// NextWorkday returns from, or the following Monday when from is a weekend day.
func NextWorkday(from Date) Date {
	return NextOccurrence(from, Workdays)
}
