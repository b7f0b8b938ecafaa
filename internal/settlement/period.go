package settlement

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid settlement period")

// Period is one calendar month.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewPeriod validates a 4-digit year and a 1-indexed month.
func NewPeriod(year, month int) (Period, error) {
	if year < 1000 || year > 9999 {
		return Period{}, fmt.Errorf("%w: year %d must have four digits", ErrInvalidPeriod, year)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: month %d must be between 1 and 12", ErrInvalidPeriod, month)
	}
	return Period{Year: year, Month: month}, nil
}

// ID is the invoice identifier for the period, e.g. "2026-01".
func (p Period) ID() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (p Period) String() string {
	return p.ID()
}

// Bounds returns the first and last instant of the month in loc. Both ends
// are inclusive; end is one nanosecond before the next month starts.
func (p Period) Bounds(loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		return time.Time{}, time.Time{}, errors.New("settlement timezone is required")
	}
	if _, err := NewPeriod(p.Year, p.Month); err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end, nil
}

// Previous returns the calendar month before p.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// PeriodContaining returns the month that t falls in when read in loc.
func PeriodContaining(t time.Time, loc *time.Location) Period {
	local := t.In(loc)
	return Period{Year: local.Year(), Month: int(local.Month())}
}
