package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TopBolsas/internal/model"
)

var fixedNow = time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)

func barsWithCloses(closes ...float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   fixedNow.AddDate(0, 0, i-len(closes)),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 500,
		}
	}
	return bars
}

func flat(n int, price float64) []model.OHLCV {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return barsWithCloses(closes...)
}

func newTestCollector(f Fetcher) *Collector {
	c := NewCollector(f, 3)
	c.Now = func() time.Time { return fixedNow }
	return c
}

func TestYearStart(t *testing.T) {
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), YearStart(fixedNow))
}

func TestCollector_FetchOne(t *testing.T) {
	f := &MockFetcher{
		Bars: map[string][]model.OHLCV{"AAA": flat(10, 20)},
		Meta: map[string]model.Metadata{"AAA": {Name: "Triple A", Sector: "Tech", Country: "Spain"}},
	}
	out := newTestCollector(f).FetchOne(context.Background(), "AAA")
	require.True(t, out.OK())
	assert.Equal(t, "AAA", out.Record.Symbol)
	assert.Equal(t, "Triple A", out.Record.Name)
	assert.Equal(t, "Spain", out.Record.Country)
	assert.Equal(t, 20.0, out.Record.CurrentPrice)
}

func TestCollector_FetchOne_Failures(t *testing.T) {
	f := &MockFetcher{
		Bars: map[string][]model.OHLCV{
			"SHORT": flat(6, 10),
		},
		Errors: map[string]error{
			"NET":   fmt.Errorf("%w: connection reset", ErrNetwork),
			"PARSE": fmt.Errorf("%w: bad json", ErrParse),
			"ODD":   errors.New("boom"),
		},
	}
	c := newTestCollector(f)

	tests := []struct {
		symbol string
		reason model.FailureReason
	}{
		{"SHORT", model.FailureInsufficient},
		{"NET", model.FailureNetwork},
		{"PARSE", model.FailureParse},
		{"ODD", model.FailureUnknown},
	}
	for _, tt := range tests {
		out := c.FetchOne(context.Background(), tt.symbol)
		assert.False(t, out.OK(), tt.symbol)
		assert.Equal(t, tt.reason, out.Reason, tt.symbol)
		assert.Error(t, out.Err, tt.symbol)
	}
}

func TestCollector_SevenSessionBoundary(t *testing.T) {
	f := &MockFetcher{Bars: map[string][]model.OHLCV{
		"SIX":   flat(6, 10),
		"SEVEN": flat(7, 10),
	}}
	outs := newTestCollector(f).Collect(context.Background(), []string{"SIX", "SEVEN"})
	require.Len(t, outs, 2)
	assert.False(t, outs[0].OK())
	assert.True(t, outs[1].OK())
}

func TestCollector_CollectKeepsOrderAndIsolatesFailures(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E", "F", "G"}
	f := &MockFetcher{
		Bars:   map[string][]model.OHLCV{},
		Errors: map[string]error{"C": fmt.Errorf("%w: 500", ErrUpstream)},
	}
	for _, s := range symbols {
		f.Bars[s] = flat(8, 10)
	}

	outs := newTestCollector(f).Collect(context.Background(), symbols)
	require.Len(t, outs, len(symbols))
	for i, s := range symbols {
		assert.Equal(t, s, outs[i].Symbol)
		if s == "C" {
			assert.Equal(t, model.FailureUpstream, outs[i].Reason)
		} else {
			assert.True(t, outs[i].OK(), s)
		}
	}
}

func TestCollector_OverflowingBarIsIsolated(t *testing.T) {
	bad := flat(8, 10)
	bad[7].Open = 1e-310
	f := &MockFetcher{Bars: map[string][]model.OHLCV{"A": flat(8, 10), "B": bad}}

	outs := newTestCollector(f).Collect(context.Background(), []string{"A", "B"})
	require.Len(t, outs, 2)
	assert.True(t, outs[0].OK())
	assert.Equal(t, model.FailureInvalidData, outs[1].Reason)
}

func TestCollector_ZeroValueConcurrency(t *testing.T) {
	c := &Collector{Fetcher: &MockFetcher{}, Now: func() time.Time { return fixedNow }}

	done := make(chan []model.FetchOutcome, 1)
	go func() { done <- c.Collect(context.Background(), []string{"A", "B"}) }()

	select {
	case outs := <-done:
		require.Len(t, outs, 2)
		assert.True(t, outs[0].OK())
		assert.True(t, outs[1].OK())
	case <-time.After(2 * time.Second):
		t.Fatal("Collect blocked with zero concurrency")
	}
}

func TestCollector_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outs := newTestCollector(&MockFetcher{}).Collect(ctx, []string{"A", "B"})
	for _, o := range outs {
		assert.Equal(t, model.FailureCanceled, o.Reason)
	}
}

func TestCollector_RequestsYearToDate(t *testing.T) {
	var gotFrom, gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/profile":
			w.Write([]byte(`{"name":"Apple Inc.","sector":"Technology","country":"United States"}`))
		case "/api/v1/bars/daily":
			gotFrom = r.URL.Query().Get("from")
			gotTo = r.URL.Query().Get("to")
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
			w.Write([]byte(`[
				{"timestamp": 1767571200, "open": 10, "high": 10, "low": 10, "close": 10, "volume": 1},
				{"timestamp": 1767657600, "open": 10, "high": 10, "low": 10, "close": 10, "volume": 1},
				{"timestamp": 1767744000, "open": 10, "high": 10, "low": 10, "close": 10, "volume": 1},
				{"timestamp": 1767830400, "open": 10, "high": 10, "low": 10, "close": 10, "volume": 1},
				{"timestamp": 1767916800, "open": 10, "high": 10, "low": 10, "close": 10, "volume": 1},
				{"timestamp": 1768176000, "open": 10, "high": 10, "low": 10, "close": 10, "volume": 1},
				{"timestamp": 1768262400, "open": 10, "high": 11, "low": 10, "close": 11, "volume": 1}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestCollector(NewVsTraderFetcher(srv.URL, "key", "", time.Second))
	out := c.FetchOne(context.Background(), "AAPL")
	require.True(t, out.OK(), "%v", out.Err)
	assert.Equal(t, "2026-01-01", gotFrom)
	assert.Equal(t, "2026-10-16", gotTo)
	assert.Equal(t, "Apple Inc.", out.Record.Name)
	assert.Equal(t, 10.0, out.Record.DayChangePct)
	assert.Equal(t, 10.0, out.Record.WeekChangePct)
}

func TestVsTraderFetcher_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "", "", time.Second)
	_, err := f.FetchMetadata(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, model.FailureReason(""), Classify(nil))
	assert.Equal(t, model.FailureCanceled, Classify(context.DeadlineExceeded))
	assert.Equal(t, model.FailureNoData, Classify(fmt.Errorf("x: %w", ErrNoData)))
}

func TestNewFetcher(t *testing.T) {
	f, err := NewFetcher(SourceConfig{})
	require.NoError(t, err)
	assert.Equal(t, "yahoo", f.Name())

	f, err = NewFetcher(SourceConfig{Provider: "vstrader", BaseURL: "http://localhost:9"})
	require.NoError(t, err)
	assert.Equal(t, "vstrader", f.Name())

	f, err = NewFetcher(SourceConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", f.Name())

	_, err = NewFetcher(SourceConfig{Provider: "vstrader"})
	assert.Error(t, err)
	_, err = NewFetcher(SourceConfig{Provider: "bloomberg"})
	assert.Error(t, err)
}
