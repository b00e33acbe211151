package calculator

import (
	"errors"
	"math"

	"TopBolsas/internal/model"
)

// CloseRange returns the lowest and highest close of bars.
func CloseRange(bars []model.OHLCV) (low, high float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	low = math.Inf(1)
	high = math.Inf(-1)
	for _, b := range bars {
		low = math.Min(low, b.Close)
		high = math.Max(high, b.Close)
	}
	return low, high, nil
}

// RangePosition returns where current sits within [low, high], from 0 to 1.
// A flat range yields 0.5.
func RangePosition(current, low, high float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	return math.Max(0, math.Min(1, pos)), nil
}
