// Package core provides money parsing and formatting utilities.
//
// Amounts are carried as decimal.Decimal end to end so totals and
// averages never pick up floating point drift.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol is the display prefix for Malaysian Ringgit.
const CurrencySymbol = "RM"

// ParseAmount converts a decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an
// optional currency prefix and thousands separators when a dot is present.
// Negative amounts are rejected.
//
// Examples:
//
//	ParseAmount("12.34")      -> 12.34, nil
//	ParseAmount("RM 1,200.5") -> 1200.5, nil
//	ParseAmount("12,34")      -> 12.34, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, CurrencySymbol)
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatRinggit renders an amount as "RM 1,234.50".
func FormatRinggit(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + CurrencySymbol + " " + b.String() + "." + frac
}
