package dataset

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TopBolsas/internal/anomaly"
	"TopBolsas/internal/model"
)

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func symbols(records []model.TickerRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Symbol
	}
	return out
}

func sample() *model.ResultSet {
	return Assemble([]model.TickerRecord{
		{Symbol: "A", Name: "Alpha", DayChangePct: 5, WeekChangePct: 1, YTDChangePct: 10, CurrentPrice: 20, Sector: "Tech", Country: "United States", Volume: 300, VolumeAvg75: i64(100), VolumeDiffPct: f64(200)},
		{Symbol: "B", Name: "Beta", DayChangePct: -2, WeekChangePct: 3, YTDChangePct: -5, CurrentPrice: 50, Sector: "Energy", Country: "Spain", Volume: 50},
		{Symbol: "C", Name: "Gamma", DayChangePct: 0, WeekChangePct: 3, YTDChangePct: 2, CurrentPrice: 10, Sector: "Tech", Country: "Spain", Volume: 90, VolumeAvg75: i64(100), VolumeDiffPct: f64(-10)},
	})
}

func TestAssemble_Empty(t *testing.T) {
	rs := Assemble(nil)
	require.NotNil(t, rs)
	assert.True(t, rs.Empty())
	assert.Equal(t, 0, rs.Len())

	// every projection degrades to an empty result
	assert.Empty(t, SortBy(rs, FieldDayChange, true))
	assert.Empty(t, Filter(rs, "x"))
	assert.Empty(t, ValueCounts(rs, BySector))
	assert.Empty(t, ValueCounts(rs, ByCountry))
	assert.Empty(t, VolumeTable(rs))
	assert.Empty(t, Top(SortBy(rs, FieldYTDChange, true), 5))
	assert.Empty(t, SortBy(nil, FieldVolume, false))
}

func TestAssemble_KeepsOrderAndDropsDuplicates(t *testing.T) {
	rs := Assemble([]model.TickerRecord{{Symbol: "X", Name: "first"}, {Symbol: "Y"}, {Symbol: "X", Name: "second"}})
	assert.Equal(t, []string{"X", "Y"}, symbols(rs.Records))
	assert.Equal(t, "first", rs.Records[0].Name)
}

func TestFromOutcomes(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	req := []string{"A", "B", "C"}
	outs := []model.FetchOutcome{
		{Symbol: "A", Record: &model.TickerRecord{Symbol: "A"}},
		{Symbol: "B", Reason: model.FailureNetwork, Err: errors.New("timeout")},
		{Symbol: "C", Record: &model.TickerRecord{Symbol: "C"}},
	}
	rs := FromOutcomes("A,B,C", req, outs, now)

	assert.Equal(t, "A,B,C", rs.Key)
	assert.Equal(t, []string{"A", "C"}, symbols(rs.Records))
	require.Len(t, rs.Failures, 1)
	assert.Equal(t, model.FetchFailure{Symbol: "B", Reason: model.FailureNetwork, Message: "timeout"}, rs.Failures[0])
	assert.Equal(t, now, rs.FetchedAt)

	// every record is a member of the request
	for _, r := range rs.Records {
		assert.Contains(t, req, r.Symbol)
	}
}

func TestSortBy_DayChangeExample(t *testing.T) {
	got := SortBy(sample(), FieldDayChange, true)
	assert.Equal(t, []string{"A", "C", "B"}, symbols(got))
}

func TestSortBy_StableOnTies(t *testing.T) {
	got := SortBy(sample(), FieldWeekChange, true)
	assert.Equal(t, []string{"B", "C", "A"}, symbols(got))
}

func TestSortBy_UndefinedLastBothDirections(t *testing.T) {
	rs := sample()
	assert.Equal(t, []string{"A", "C", "B"}, symbols(SortBy(rs, FieldVolumeDiffPct, true)))
	assert.Equal(t, []string{"C", "A", "B"}, symbols(SortBy(rs, FieldVolumeDiffPct, false)))
	assert.Equal(t, []string{"A", "C", "B"}, symbols(SortBy(rs, FieldVolumeAvg75, false)))
}

func TestSortBy_AllFieldsTotal(t *testing.T) {
	rs := sample()
	for _, f := range Fields {
		for _, desc := range []bool{true, false} {
			got := SortBy(rs, f, desc)
			assert.ElementsMatch(t, []string{"A", "B", "C"}, symbols(got), "%s desc=%v", f, desc)
		}
	}
}

func TestSortBy_PriceAscending(t *testing.T) {
	assert.Equal(t, []string{"C", "A", "B"}, symbols(SortBy(sample(), FieldCurrentPrice, false)))
	assert.Equal(t, []string{"B", "A", "C"}, symbols(SortBy(sample(), FieldCurrentPrice, true)))
}

func TestSortBy_DoesNotMutateCanonical(t *testing.T) {
	rs := sample()
	_ = SortBy(rs, FieldYTDChange, true)
	_ = Filter(rs, "a")
	assert.Equal(t, []string{"A", "B", "C"}, symbols(rs.Records))
}

func TestFilter(t *testing.T) {
	rs := sample()
	assert.Equal(t, []string{"A", "B", "C"}, symbols(Filter(rs, "")))
	assert.Equal(t, []string{"B"}, symbols(Filter(rs, "b")))
	assert.Equal(t, []string{"C"}, symbols(Filter(rs, "gam")))
	assert.Empty(t, Filter(rs, "zzz"))
}

func TestTop(t *testing.T) {
	recs := SortBy(sample(), FieldYTDChange, true)
	assert.Equal(t, []string{"A", "C"}, symbols(Top(recs, 2)))
	assert.Len(t, Top(recs, 10), 3)
}

func TestValueCounts(t *testing.T) {
	rs := sample()
	assert.Equal(t, []model.CategoryCount{{Label: "Tech", Count: 2}, {Label: "Energy", Count: 1}}, ValueCounts(rs, BySector))
	assert.Equal(t, []model.CategoryCount{{Label: "Spain", Count: 2}, {Label: "United States", Count: 1}}, ValueCounts(rs, ByCountry))
}

func TestVolumeTable(t *testing.T) {
	rows := VolumeTable(sample())
	require.Len(t, rows, 3)
	assert.Equal(t, "A", rows[0].Symbol)
	assert.True(t, rows[0].Up)
	assert.Equal(t, anomaly.LevelExtreme, rows[0].Level)
	assert.Equal(t, "C", rows[1].Symbol)
	assert.False(t, rows[1].Up)
	assert.Equal(t, "B", rows[2].Symbol)
	assert.Nil(t, rows[2].DiffPct)
	assert.Equal(t, anomaly.LevelUnknown, rows[2].Level)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("ytd_change_pct")
	require.NoError(t, err)
	assert.Equal(t, FieldYTDChange, f)

	_, err = ParseField("pe_ratio")
	assert.Error(t, err)
}
