package collector

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"TopBolsas/internal/calculator"
	"TopBolsas/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without explicit bars get generated YTD-sized history.
type MockFetcher struct {
	Price  float64
	Bars   map[string][]model.OHLCV
	Meta   map[string]model.Metadata
	Errors map[string]error

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many history fetches were served.
func (m *MockFetcher) Calls() int64 { return m.calls.Load() }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.OHLCV, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	days := int(to.Sub(from).Hours()/24) * 5 / 7
	return generateMockBars(m.Price, days, to), nil
}

func (m *MockFetcher) FetchMetadata(ctx context.Context, symbol string) (*model.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if meta, ok := m.Meta[symbol]; ok {
		meta.Symbol = symbol
		return &meta, nil
	}
	return &model.Metadata{Symbol: symbol, Name: symbol}, nil
}

func generateMockBars(basePrice float64, count int, end time.Time) []model.OHLCV {
	if basePrice == 0 {
		basePrice = 100
	}
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// DefaultConcurrency is the number of symbols fetched in parallel.
const DefaultConcurrency = 4

// Collector fetches per-symbol data and computes the ranking indicators.
type Collector struct {
	Fetcher     Fetcher
	Concurrency int
	Now         func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, concurrency int) *Collector {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Collector{Fetcher: fetcher, Concurrency: concurrency, Now: time.Now}
}

// YearStart returns January 1st of t's year in t's location.
func YearStart(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

// FetchOne fetches metadata and year-to-date history for one symbol and
// builds its record. Failures are returned as an outcome, never as an error.
func (c *Collector) FetchOne(ctx context.Context, symbol string) model.FetchOutcome {
	rec, err := c.fetchRecord(ctx, symbol)
	if err != nil {
		reason := Classify(err)
		log.Warn().Str("symbol", symbol).Str("reason", string(reason)).Err(err).Msg("symbol skipped")
		return model.FetchOutcome{Symbol: symbol, Reason: reason, Err: err}
	}
	return model.FetchOutcome{Symbol: symbol, Record: &rec}
}

func (c *Collector) fetchRecord(ctx context.Context, symbol string) (model.TickerRecord, error) {
	meta, err := c.Fetcher.FetchMetadata(ctx, symbol)
	if err != nil {
		return model.TickerRecord{}, fmt.Errorf("fetch metadata: %w", err)
	}
	now := c.Now()
	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, YearStart(now), now)
	if err != nil {
		return model.TickerRecord{}, fmt.Errorf("fetch daily bars: %w", err)
	}
	m := *meta
	m.Symbol = symbol
	return calculator.BuildRecord(m, bars)
}

// Collect fetches every symbol with bounded parallelism. The returned slice
// has one outcome per input symbol, in input order.
func (c *Collector) Collect(ctx context.Context, symbols []string) []model.FetchOutcome {
	limit := c.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	outcomes := make([]model.FetchOutcome, len(symbols))
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			outcomes[i] = c.FetchOne(ctx, symbol)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// History returns daily bars from the given start until now.
func (c *Collector) History(ctx context.Context, symbol string, from time.Time) ([]model.OHLCV, error) {
	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, from, c.Now())
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}
	return bars, nil
}
