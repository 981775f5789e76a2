package utils

import (
	"github.com/shopspring/decimal"
)

// Parse string, fallback to zero on error
func ParseDecimalSafe(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RoundMoney rounds for display at the response boundary (2 decimal places).
// Internal accounting keeps full precision; only rendered values go through
// here.
func RoundMoney(val decimal.Decimal) float64 {
	f, _ := val.Round(2).Float64()
	return f
}

// RoundQuantity rounds coin quantities for display (6 decimal places).
func RoundQuantity(val decimal.Decimal) float64 {
	f, _ := val.Round(6).Float64()
	return f
}
