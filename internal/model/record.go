package model

// NotAvailable marks an unknown categorical value.
const NotAvailable = "N/A"

// TickerRecord holds the indicators computed for one symbol.
type TickerRecord struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	DayChangePct  float64  `json:"day_change_pct"`
	WeekChangePct float64  `json:"week_change_pct"`
	YTDChangePct  float64  `json:"ytd_change_pct"`
	CurrentPrice  float64  `json:"current_price"`
	Sector        string   `json:"sector"`
	Country       string   `json:"country"`
	Volume        int64    `json:"volume"`
	VolumeAvg75   *int64   `json:"volume_avg_75"`   // nil with fewer than 75 sessions
	VolumeDiffPct *float64 `json:"volume_diff_pct"` // nil when VolumeAvg75 is nil or zero
}
