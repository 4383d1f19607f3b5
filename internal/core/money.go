// Package core holds the ledger domain: invoices, expenses, money and
// calendar dates, plus the pure aggregation and filter engines.
//
// This file contains money parsing and formatting. Amounts are kept in
// fils, the 1/1000 minor unit of the Jordanian dinar, so arithmetic is
// integer-only and rounding-free.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in fils (1 JOD = 1000 fils).
type Money struct {
	Fils int64
}

// ParseDecimalToFils converts a decimal string to fils with half-up
// rounding on the fourth decimal place. Both dot (12.345) and comma
// (12,345) separators are accepted. Returns an error for invalid
// formats, negative values, or zero amounts; use this where bad input
// must block a form submission.
func ParseDecimalToFils(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 1000
	const maxSafeInt64 = (1<<63 - 1) / 1000
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	fils := iv*1000 + fracFils(fracPart)
	if fils <= 0 {
		return 0, ErrInvalidAmount
	}
	return fils, nil
}

// CoerceFils is the tolerant counterpart of ParseDecimalToFils: any
// blank or malformed value coerces to 0 and a leading minus sign is
// preserved. Every monetary field in the ledger document may be blank
// mid-edit, so ingestion must never fail on it.
func CoerceFils(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0
	}
	const maxSafeInt64 = (1<<63 - 1) / 1000
	if iv > maxSafeInt64 {
		return 0
	}
	fils := iv*1000 + fracFils(fracPart)
	if neg {
		fils = -fils
	}
	return fils
}

// fracFils takes the first three fractional digits, rounding half-up
// on the fourth.
func fracFils(frac string) int64 {
	var v int64
	switch {
	case len(frac) >= 3:
		v = int64(frac[0]-'0')*100 + int64(frac[1]-'0')*10 + int64(frac[2]-'0')
		if len(frac) > 3 && frac[3] >= '5' {
			v++
		}
	case len(frac) == 2:
		v = int64(frac[0]-'0')*100 + int64(frac[1]-'0')*10
	case len(frac) == 1:
		v = int64(frac[0]-'0') * 100
	}
	return v
}

// Dinars returns the dinar value as a float64 for display purposes.
// Use fils for calculations.
func (m Money) Dinars() float64 {
	return float64(m.Fils) / 1000.0
}

// MarshalJSON emits the amount as a plain decimal number with three
// fraction digits, e.g. 12.345.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.decimal()), nil
}

// UnmarshalJSON accepts a number, a numeric string, an empty string or
// null; anything unparseable coerces to 0 rather than erroring.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		m.Fils = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	m.Fils = CoerceFils(s)
	return nil
}

func (m Money) decimal() string {
	fils := m.Fils
	neg := fils < 0
	if neg {
		fils = -fils
	}
	s := fmt.Sprintf("%d.%03d", fils/1000, fils%1000)
	if neg {
		return "-" + s
	}
	return s
}

// FormatJOD renders the amount with the fixed dinar formatter used
// across the UI. There is deliberately exactly one formatter.
func FormatJOD(m Money) string {
	if m.Fils < 0 {
		return "-د.ا " + Money{Fils: -m.Fils}.decimal()
	}
	return "د.ا " + m.decimal()
}
