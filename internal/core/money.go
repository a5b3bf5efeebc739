// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and rounding them for presentation.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmountExponent keeps "1e999999999" from expanding into a gigabyte of digits.
const maxAmountExponent = 64

// ParseAmount converts a decimal string to an amount in full precision.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an
// optional leading plus sign and exponent notation (1e2, 1.5E1) as written
// by JSON encoders. Negative values and anything that is not a number are
// rejected.
//
// Examples:
//
//	ParseAmount("12.5")   -> 12.5, nil
//	ParseAmount("12,345") -> 12.345, nil
//	ParseAmount("1e2")    -> 100, nil
//	ParseAmount("-1")     -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimPrefix(s, "+")
	if s == "" || strings.HasPrefix(s, "+") {
		return decimal.Zero, ErrInvalidAmount
	}
	mantissa, exponent, hasExp := strings.Cut(strings.ToLower(s), "e")
	if hasExp && (mantissa == "" || exponent == "") {
		return decimal.Zero, ErrInvalidAmount
	}
	if mantissa == "." || strings.Count(mantissa, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(mantissa, ".") {
		mantissa = "0" + mantissa
	}
	if strings.HasSuffix(mantissa, ".") {
		mantissa += "0"
	}
	if hasExp {
		mantissa += "e" + exponent
	}

	d, err := decimal.NewFromString(mantissa)
	if err != nil || d.IsNegative() || abs(d.Exponent()) > maxAmountExponent {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Round2 rounds an amount half-up to two decimal places for presentation.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Float returns the presentation value of d as a float64 rounded to cents.
// Use decimals for arithmetic; this is for JSON and display only.
func Float(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// FormatAmount renders d with exactly two decimals (e.g. "12.50").
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func abs(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}
