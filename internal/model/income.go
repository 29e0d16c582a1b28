package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// IncomeCategory buckets a country-year by GDP per capita.
type IncomeCategory int

const (
	// IncomeUnknown is the zero value; the preparer never emits it.
	IncomeUnknown IncomeCategory = iota
	IncomeLow
	IncomeLowerMiddle
	IncomeUpperMiddle
	IncomeHigh
)

// Lower bounds (inclusive) of the income bins, in GDP per capita.
const (
	LowerMiddleFloor = 1000.0
	UpperMiddleFloor = 5000.0
	HighIncomeFloor  = 15000.0
)

// IncomeCategories lists the assignable categories in ascending order.
var IncomeCategories = []IncomeCategory{IncomeLow, IncomeLowerMiddle, IncomeUpperMiddle, IncomeHigh}

// ClassifyIncome maps GDP per capita onto right-open bins:
// [0,1000) [1000,5000) [5000,15000) [15000,inf).
// Negative and NaN inputs return IncomeUnknown.
func ClassifyIncome(gdpPerCapita float64) IncomeCategory {
	switch {
	case math.IsNaN(gdpPerCapita) || gdpPerCapita < 0:
		return IncomeUnknown
	case gdpPerCapita < LowerMiddleFloor:
		return IncomeLow
	case gdpPerCapita < UpperMiddleFloor:
		return IncomeLowerMiddle
	case gdpPerCapita < HighIncomeFloor:
		return IncomeUpperMiddle
	default:
		return IncomeHigh
	}
}

func (c IncomeCategory) String() string {
	switch c {
	case IncomeLow:
		return "Low Income"
	case IncomeLowerMiddle:
		return "Lower Middle"
	case IncomeUpperMiddle:
		return "Upper Middle"
	case IncomeHigh:
		return "High Income"
	default:
		return "Unknown"
	}
}

// Valid reports whether c is one of the four assignable categories.
func (c IncomeCategory) Valid() bool {
	return c >= IncomeLow && c <= IncomeHigh
}

// ParseIncomeCategory is the inverse of String for the assignable categories.
func ParseIncomeCategory(s string) (IncomeCategory, error) {
	for _, c := range IncomeCategories {
		if c.String() == s {
			return c, nil
		}
	}
	return IncomeUnknown, eris.Errorf("model: unknown income category %q", s)
}

// MarshalText encodes the category as its label.
func (c IncomeCategory) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, eris.Errorf("model: cannot marshal income category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a label produced by MarshalText.
func (c *IncomeCategory) UnmarshalText(text []byte) error {
	parsed, err := ParseIncomeCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
