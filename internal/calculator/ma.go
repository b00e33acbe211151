package calculator

import (
	"errors"

	"TopBolsas/internal/model"
)

// VolumeWindow is the trailing session count for the volume average.
const VolumeWindow = 75

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// CalculateVolumeAverage returns the trailing 75-session mean volume ending
// at the latest bar. ok is false when there are fewer than 75 bars.
func CalculateVolumeAverage(dailyBars []model.OHLCV) (avg float64, ok bool) {
	avg, err := CalculateSMA(extractVolumes(dailyBars), VolumeWindow)
	if err != nil {
		return 0, false
	}
	return avg, true
}

func extractVolumes(bars []model.OHLCV) []float64 {
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = b.Volume
	}
	return volumes
}
