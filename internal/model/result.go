package model

import "time"

// FailureReason says why a symbol was left out of a result set.
type FailureReason string

const (
	FailureNetwork      FailureReason = "network"
	FailureUpstream     FailureReason = "upstream"
	FailureParse        FailureReason = "parse"
	FailureNoData       FailureReason = "no_data"
	FailureInsufficient FailureReason = "insufficient_history"
	FailureInvalidData  FailureReason = "invalid_data"
	FailureCanceled     FailureReason = "canceled"
	FailureUnknown      FailureReason = "unknown"
)

// FetchOutcome is the result of fetching one symbol: either a record or a
// failure reason, never both.
type FetchOutcome struct {
	Symbol string
	Record *TickerRecord
	Reason FailureReason
	Err    error
}

// OK reports whether the fetch produced a record.
func (o FetchOutcome) OK() bool { return o.Record != nil }

// FetchFailure is the diagnostic kept for a dropped symbol.
type FetchFailure struct {
	Symbol  string        `json:"symbol"`
	Reason  FailureReason `json:"reason"`
	Message string        `json:"message"`
}

// ResultSet is the assembled table for one ticker list. Records keep
// ticker-list order; consumers sort and filter copies.
type ResultSet struct {
	Key       string         `json:"key"`
	Symbols   []string       `json:"symbols"`
	Records   []TickerRecord `json:"records"`
	Failures  []FetchFailure `json:"failures"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Len returns the number of records.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Records)
}

// Empty reports whether the set has no displayable rows.
func (rs *ResultSet) Empty() bool { return rs.Len() == 0 }

// CategoryCount is one bar of a sector or country breakdown.
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}
