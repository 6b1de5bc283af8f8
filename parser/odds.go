package parser

import (
	"strconv"
	"strings"
)

const (
	// OddsNone is the decimal value for a missing or unpriced runner.
	OddsNone = ""
	// OddsEvens is the decimal value of an even-money price.
	OddsEvens = "2.00"
)

// CleanSP strips favourite markers (F, J, C) from a starting price.
func CleanSP(sp string) string {
	sp = strings.TrimSpace(sp)
	sp = strings.Trim(sp, "FJC")
	return strings.TrimSpace(sp)
}

// FractionToDecimal converts a fractional price such as "9/2" to "5.50".
func FractionToDecimal(sp string) string {
	sp = CleanSP(sp)
	lower := strings.ToLower(sp)
	switch {
	case sp == "", lower == "no odds":
		return OddsNone
	case strings.Contains(lower, "evens"), lower == "evs":
		return OddsEvens
	}

	num, den, ok := strings.Cut(sp, "/")
	if !ok {
		return OddsNone
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return OddsNone
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil || d == 0 {
		return OddsNone
	}
	return strconv.FormatFloat(n/d+1, 'f', 2, 64)
}
