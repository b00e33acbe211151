package calculator

import (
	"errors"
	"fmt"
	"strings"

	"TopBolsas/internal/model"
)

const (
	// MinSessions is the least history a symbol needs to be ranked.
	MinSessions = 7
	// WeekLookback is how many sessions back the weekly change is measured.
	WeekLookback = 6
)

// ErrInsufficientHistory is returned for fewer than MinSessions bars.
var ErrInsufficientHistory = errors.New("insufficient history")

// BuildRecord derives the ranking indicators from one metadata record and
// its year-to-date daily bars (oldest first).
func BuildRecord(meta model.Metadata, bars []model.OHLCV) (model.TickerRecord, error) {
	n := len(bars)
	if n < MinSessions {
		return model.TickerRecord{}, fmt.Errorf("%w: %d sessions, need %d", ErrInsufficientHistory, n, MinSessions)
	}
	last := bars[n-1]

	day, err := PercentChange(last.Open, last.Close)
	if err != nil {
		return model.TickerRecord{}, fmt.Errorf("day change: %w", err)
	}
	week, err := PercentChange(bars[n-1-WeekLookback].Close, last.Close)
	if err != nil {
		return model.TickerRecord{}, fmt.Errorf("week change: %w", err)
	}
	ytd, err := PercentChange(bars[0].Close, last.Close)
	if err != nil {
		return model.TickerRecord{}, fmt.Errorf("ytd change: %w", err)
	}

	rec := model.TickerRecord{
		Symbol:        meta.Symbol,
		Name:          meta.Name,
		DayChangePct:  Round2(day),
		WeekChangePct: Round2(week),
		YTDChangePct:  Round2(ytd),
		CurrentPrice:  Round2(last.Close),
		Sector:        orNotAvailable(meta.Sector),
		Country:       orNotAvailable(meta.Country),
		Volume:        int64(last.Volume),
	}

	if avg, ok := CalculateVolumeAverage(bars); ok {
		truncated := int64(avg)
		rec.VolumeAvg75 = &truncated
		if diff, err := PercentChange(avg, last.Volume); err == nil {
			diff = Round2(diff)
			rec.VolumeDiffPct = &diff
		}
	}
	return rec, nil
}

func orNotAvailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.NotAvailable
	}
	return s
}
