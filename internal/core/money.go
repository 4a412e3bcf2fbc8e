// Package core holds the value types and entities of the monthly
// reconciliation engine.
//
// This file implements the Money value type. Amounts are integer minor
// units (cents) everywhere; conversion to and from display strings happens
// only at formatting boundaries.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is a fixed-point monetary amount in cents. The zero value is 0,00.
type Money struct {
	Cents int64
}

// NewMoney returns a Money holding the given amount of cents.
func NewMoney(cents int64) Money {
	return Money{Cents: cents}
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// MulInt returns m scaled by an integer factor.
func (m Money) MulInt(n int64) Money {
	return Money{Cents: m.Cents * n}
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Cents < 0
}

// Compare returns -1, 0 or 1 depending on whether m is less than, equal to
// or greater than o.
func (m Money) Compare(o Money) int {
	switch {
	case m.Cents < o.Cents:
		return -1
	case m.Cents > o.Cents:
		return 1
	default:
		return 0
	}
}

// Less reports whether m is strictly smaller than o.
func (m Money) Less(o Money) bool {
	return m.Cents < o.Cents
}

// CeilToUnit rounds up to the next whole currency unit. Amounts already on
// a unit boundary are returned unchanged; the rounding direction favors the
// recipient of a transfer.
func (m Money) CeilToUnit() Money {
	rem := m.Cents % 100
	if rem == 0 {
		return m
	}
	if m.Cents > 0 {
		return Money{Cents: m.Cents - rem + 100}
	}
	// Mathematical ceiling for negative amounts: -1,50 -> -1,00.
	return Money{Cents: m.Cents - rem}
}

// ParseMoney converts a display string to cents.
//
// Currency glyphs, whitespace and grouping dots are stripped before parsing;
// of the remaining characters only digits, a decimal comma and a leading
// minus sign are accepted. A single dot followed by at most two trailing
// digits is treated as a decimal separator so that machine input like
// "12.34" still parses. Half-up rounding is applied on the third decimal
// digit.
//
//	ParseMoney("€ 1.234,56") -> 123456
//	ParseMoney("-0,5")       -> -50
//	ParseMoney("12.34")      -> 1234
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}

	// "12.34" style input: reinterpret the dot as a decimal comma before
	// grouping dots are dropped.
	if i := strings.LastIndexByte(s, '.'); i >= 0 &&
		!strings.Contains(s, ",") &&
		strings.Count(s, ".") == 1 &&
		len(s)-i-1 <= 2 {
		s = s[:i] + "," + s[i+1:]
	}

	hasDigit := false
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
			b.WriteRune(r)
		case r == ',', r == '-':
			b.WriteRune(r)
		case r == '.', unicode.IsSpace(r):
			// grouping separator or padding
		case unicode.IsLetter(r):
			return Money{}, ErrInvalidAmount
		default:
			// currency glyphs and the like
		}
	}
	if !hasDigit {
		return Money{}, ErrInvalidAmount
	}
	s = b.String()

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if strings.Contains(s, "-") {
		return Money{}, ErrInvalidAmount
	}

	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}

	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if units > maxSafe {
		return Money{}, ErrInvalidAmount
	}

	// First two fractional digits, half-up rounding on the third.
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}

	cents := units*100 + frac
	if neg {
		cents = -cents
	}
	return Money{Cents: cents}, nil
}

// Format renders the amount with a comma decimal separator, two fraction
// digits and dot thousands grouping: 123456 cents -> "1.234,56".
func (m Money) Format() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}

	units := strconv.FormatInt(cents/100, 10)
	var grouped strings.Builder
	lead := len(units) % 3
	if lead == 0 {
		lead = 3
	}
	grouped.WriteString(units[:lead])
	for i := lead; i < len(units); i += 3 {
		grouped.WriteByte('.')
		grouped.WriteString(units[i : i+3])
	}

	out := grouped.String() + "," + twoDigits(cents%100)
	if neg {
		return "-" + out
	}
	return out
}

// String implements fmt.Stringer using the display format.
func (m Money) String() string {
	return m.Format()
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
