// Package dataset assembles ticker records into a result set and derives
// read-only projections from it.
package dataset

import (
	"time"

	"TopBolsas/internal/model"
)

// Assemble concatenates records in the given order. A symbol that repeats
// keeps its first record. An empty input yields an empty, non-nil set.
func Assemble(records []model.TickerRecord) *model.ResultSet {
	rs := &model.ResultSet{
		Records:  make([]model.TickerRecord, 0, len(records)),
		Failures: []model.FetchFailure{},
	}
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if seen[r.Symbol] {
			continue
		}
		seen[r.Symbol] = true
		rs.Records = append(rs.Records, r)
	}
	return rs
}

// FromOutcomes builds the result set for one ticker list from its fetch
// outcomes. Successful records keep outcome order; failures are kept as
// diagnostics.
func FromOutcomes(key string, symbols []string, outcomes []model.FetchOutcome, fetchedAt time.Time) *model.ResultSet {
	records := make([]model.TickerRecord, 0, len(outcomes))
	var failures []model.FetchFailure
	for _, o := range outcomes {
		if o.OK() {
			records = append(records, *o.Record)
			continue
		}
		f := model.FetchFailure{Symbol: o.Symbol, Reason: o.Reason}
		if o.Err != nil {
			f.Message = o.Err.Error()
		}
		failures = append(failures, f)
	}

	rs := Assemble(records)
	rs.Key = key
	rs.Symbols = append([]string(nil), symbols...)
	if failures != nil {
		rs.Failures = failures
	}
	rs.FetchedAt = fetchedAt
	return rs
}
