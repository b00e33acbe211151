package calculator

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidPrice is returned when a price is zero or not finite, or when the
// change itself overflows.
var ErrInvalidPrice = errors.New("invalid base price")

// PercentChange returns (to - from) / from * 100.
func PercentChange(from, to float64) (float64, error) {
	if from == 0 || math.IsNaN(from) || math.IsInf(from, 0) || math.IsNaN(to) || math.IsInf(to, 0) {
		return 0, ErrInvalidPrice
	}
	pct := (to - from) / from * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0, ErrInvalidPrice
	}
	return pct, nil
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
