// Package anomaly classifies how far a session's volume strays from its
// 75-session average.
package anomaly

import (
	"sort"

	"TopBolsas/internal/model"
)

// Level is a volume anomaly grade.
type Level struct {
	Key   string
	Label string
	Emoji string
}

var (
	LevelExtreme = Level{Key: "extreme", Label: "Volumen extremo", Emoji: "🔥"}
	LevelHigh    = Level{Key: "high", Label: "Volumen alto", Emoji: "📈"}
	LevelNormal  = Level{Key: "normal", Label: "Volumen normal", Emoji: "➖"}
	LevelLow     = Level{Key: "low", Label: "Volumen bajo", Emoji: "📉"}
	LevelUnknown = Level{Key: "unknown", Label: "Sin media 75", Emoji: "❔"}
)

const (
	extremeMin = 100.0
	highMin    = 30.0
	lowMax     = -30.0
)

func mapLevel(diff float64) Level {
	switch {
	case diff >= extremeMin:
		return LevelExtreme
	case diff >= highMin:
		return LevelHigh
	case diff > lowMax:
		return LevelNormal
	default:
		return LevelLow
	}
}

// Classify grades one record by its volume deviation.
func Classify(rec model.TickerRecord) Level {
	if rec.VolumeDiffPct == nil {
		return LevelUnknown
	}
	return mapLevel(*rec.VolumeDiffPct)
}

// Unusual reports whether a level deserves attention.
func (l Level) Unusual() bool {
	return l == LevelExtreme || l == LevelHigh || l == LevelLow
}

// Anomaly pairs a record with its level.
type Anomaly struct {
	Record model.TickerRecord
	Level  Level
}

// Scan returns the records with unusual volume, largest absolute deviation
// first. Records without an average are skipped.
func Scan(records []model.TickerRecord) []Anomaly {
	var out []Anomaly
	for _, r := range records {
		lvl := Classify(r)
		if !lvl.Unusual() {
			continue
		}
		out = append(out, Anomaly{Record: r, Level: lvl})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return abs(*out[i].Record.VolumeDiffPct) > abs(*out[j].Record.VolumeDiffPct)
	})
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
