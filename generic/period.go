package generic

// =============================================================================
// PERIOD - Inclusive range of calendar days
// =============================================================================

// Period is the inclusive range [Start, End]. Contract windows and sweep
// horizons are both expressed as periods.
type Period struct {
	Start Date
	End   Date
}

// NewPeriod validates that end is not before start.
func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Len is the number of days in the period, both ends included.
func (p Period) Len() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns all days in the period.
func (p Period) Days() []Date {
	days := make([]Date, 0, p.Len())
	p.Walk(func(d Date) bool {
		days = append(days, d)
		return true
	})
	return days
}

// Walk visits each day in order until fn returns false.
func (p Period) Walk(fn func(Date) bool) {
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		if !fn(current) {
			return
		}
	}
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
