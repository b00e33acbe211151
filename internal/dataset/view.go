package dataset

import (
	"fmt"
	"sort"
	"strings"

	"TopBolsas/internal/anomaly"
	"TopBolsas/internal/model"
)

// Field names a sortable record column.
type Field string

const (
	FieldSymbol        Field = "symbol"
	FieldName          Field = "name"
	FieldDayChange     Field = "day_change_pct"
	FieldWeekChange    Field = "week_change_pct"
	FieldYTDChange     Field = "ytd_change_pct"
	FieldCurrentPrice  Field = "current_price"
	FieldVolume        Field = "volume"
	FieldVolumeAvg75   Field = "volume_avg_75"
	FieldVolumeDiffPct Field = "volume_diff_pct"
)

// Fields lists every sortable field.
var Fields = []Field{
	FieldSymbol, FieldName, FieldDayChange, FieldWeekChange, FieldYTDChange,
	FieldCurrentPrice, FieldVolume, FieldVolumeAvg75, FieldVolumeDiffPct,
}

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// numeric returns the value of a numeric field and false when it is undefined.
func numeric(r model.TickerRecord, f Field) (float64, bool) {
	switch f {
	case FieldDayChange:
		return r.DayChangePct, true
	case FieldWeekChange:
		return r.WeekChangePct, true
	case FieldYTDChange:
		return r.YTDChangePct, true
	case FieldCurrentPrice:
		return r.CurrentPrice, true
	case FieldVolume:
		return float64(r.Volume), true
	case FieldVolumeAvg75:
		if r.VolumeAvg75 == nil {
			return 0, false
		}
		return float64(*r.VolumeAvg75), true
	case FieldVolumeDiffPct:
		if r.VolumeDiffPct == nil {
			return 0, false
		}
		return *r.VolumeDiffPct, true
	}
	return 0, false
}

// SortBy returns a sorted copy of the records. The sort is stable; rows with
// an undefined value go last in either direction.
func SortBy(rs *model.ResultSet, field Field, desc bool) []model.TickerRecord {
	out := Records(rs)
	switch field {
	case FieldSymbol, FieldName:
		key := func(r model.TickerRecord) string {
			if field == FieldSymbol {
				return r.Symbol
			}
			return strings.ToLower(r.Name)
		}
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return key(out[i]) > key(out[j])
			}
			return key(out[i]) < key(out[j])
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			a, aok := numeric(out[i], field)
			b, bok := numeric(out[j], field)
			if aok != bok {
				return aok
			}
			if !aok {
				return false
			}
			if desc {
				return a > b
			}
			return a < b
		})
	}
	return out
}

// Records returns a copy of the canonical records.
func Records(rs *model.ResultSet) []model.TickerRecord {
	if rs == nil {
		return []model.TickerRecord{}
	}
	out := make([]model.TickerRecord, len(rs.Records))
	copy(out, rs.Records)
	return out
}

// Filter returns the records whose symbol or name contains query, ignoring
// case. An empty query keeps everything.
func Filter(rs *model.ResultSet, query string) []model.TickerRecord {
	q := strings.ToUpper(strings.TrimSpace(query))
	all := Records(rs)
	if q == "" {
		return all
	}
	out := make([]model.TickerRecord, 0, len(all))
	for _, r := range all {
		if strings.Contains(strings.ToUpper(r.Symbol), q) || strings.Contains(strings.ToUpper(r.Name), q) {
			out = append(out, r)
		}
	}
	return out
}

// Top returns at most n leading records.
func Top(records []model.TickerRecord, n int) []model.TickerRecord {
	if n < 0 || n >= len(records) {
		return records
	}
	return records[:n]
}

// Category selects the column counted by ValueCounts.
type Category string

const (
	BySector  Category = "sector"
	ByCountry Category = "country"
)

// ValueCounts counts records per sector or country, largest count first,
// ties by label.
func ValueCounts(rs *model.ResultSet, by Category) []model.CategoryCount {
	counts := map[string]int{}
	for _, r := range Records(rs) {
		label := r.Sector
		if by == ByCountry {
			label = r.Country
		}
		if label == "" {
			label = model.NotAvailable
		}
		counts[label]++
	}
	out := make([]model.CategoryCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, model.CategoryCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// VolumeRow is one line of the volume comparison table.
type VolumeRow struct {
	Symbol  string
	Name    string
	Volume  int64
	Avg75   *int64
	DiffPct *float64
	Up      bool // volume above its average
	Level   anomaly.Level
}

// VolumeTable compares latest volume with the 75-session average, largest
// deviation first and undefined averages last.
func VolumeTable(rs *model.ResultSet) []VolumeRow {
	sorted := SortBy(rs, FieldVolumeDiffPct, true)
	rows := make([]VolumeRow, len(sorted))
	for i, r := range sorted {
		rows[i] = VolumeRow{
			Symbol:  r.Symbol,
			Name:    r.Name,
			Volume:  r.Volume,
			Avg75:   r.VolumeAvg75,
			DiffPct: r.VolumeDiffPct,
			Up:      r.VolumeDiffPct != nil && *r.VolumeDiffPct > 0,
			Level:   anomaly.Classify(r),
		}
	}
	return rows
}
