package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period identifies a (year, month) reconciliation window. Periods are
// totally ordered and serve as the idempotency key for every monthly
// operation.
type Period struct {
	Year  int
	Month int // 1-12
}

// NewPeriod builds a Period, normalizing out-of-range months with year
// carry: month 13 of 2024 becomes month 1 of 2025, month 0 of 2024 becomes
// month 12 of 2023.
func NewPeriod(year, month int) Period {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// PeriodOf returns the period containing the given instant.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// ParsePeriod parses the YYYY-MM form produced by String.
func ParsePeriod(s string) (Period, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Period{}, ErrInvalidPeriod
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate rejects periods whose month is outside [1,12] or whose year is
// not positive. Construction through NewPeriod never produces such values.
func (p Period) Validate() error {
	if p.Year < 1 || p.Month < 1 || p.Month > 12 {
		return ErrInvalidPeriod
	}
	return nil
}

// IsZero reports whether p is the zero value (no period).
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Next returns the following month, carrying into the next year after
// December.
func (p Period) Next() Period {
	return NewPeriod(p.Year, p.Month+1)
}

// Prev returns the preceding month.
func (p Period) Prev() Period {
	return NewPeriod(p.Year, p.Month-1)
}

// Compare returns -1, 0 or 1 depending on whether p is earlier than, equal
// to or later than o.
func (p Period) Compare(o Period) int {
	a := p.Year*12 + p.Month
	b := o.Year*12 + o.Month
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether p is strictly earlier than o.
func (p Period) Before(o Period) bool {
	return p.Compare(o) < 0
}

// After reports whether p is strictly later than o.
func (p Period) After(o Period) bool {
	return p.Compare(o) > 0
}

// Equals reports whether p and o identify the same window.
func (p Period) Equals(o Period) bool {
	return p.Year == o.Year && p.Month == o.Month
}

// String renders the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
