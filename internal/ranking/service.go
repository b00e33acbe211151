// Package ranking serves cached result sets for ticker universes.
package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"TopBolsas/internal/cache"
	"TopBolsas/internal/collector"
	"TopBolsas/internal/dataset"
	"TopBolsas/internal/model"
	"TopBolsas/internal/recorder"
	"TopBolsas/internal/universe"
)

// HistoryMonths is the span of the price chart history.
const HistoryMonths = 6

type triggerKey struct{}

// WithTrigger tags recomputations started under ctx in the run journal.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func triggerOf(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok && t != "" {
		return t
	}
	return "request"
}

// Service computes result sets through the collector and memoizes them per
// ticker list.
type Service struct {
	collector *collector.Collector
	results   *cache.TTLCache[*model.ResultSet]
	history   *cache.TTLCache[[]model.OHLCV]
	recorder  recorder.Recorder
}

// NewService wires a collector to fresh caches with the given TTL.
func NewService(c *collector.Collector, ttl time.Duration, rec recorder.Recorder, opts ...cache.Option) *Service {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Service{
		collector: c,
		results:   cache.New[*model.ResultSet](ttl, opts...),
		history:   cache.New[[]model.OHLCV](ttl, opts...),
		recorder:  rec,
	}
}

// Universe returns the result set for a market and asset type.
func (s *Service) Universe(ctx context.Context, market universe.Market, asset universe.AssetType) (*model.ResultSet, error) {
	sel := universe.Selection{Market: market, Asset: asset}
	return s.compute(ctx, universe.Select(market, asset), sel.String())
}

// compute returns the result set for an ordered ticker list. The same list in
// the same order is served from cache until its TTL elapses.
func (s *Service) compute(ctx context.Context, symbols []string, label string) (*model.ResultSet, error) {
	key := cache.KeyFor(symbols)
	return s.results.GetOrCompute(ctx, key, func(ctx context.Context) (*model.ResultSet, error) {
		start := time.Now()
		outcomes := s.collector.Collect(ctx, symbols)
		rs := dataset.FromOutcomes(key, symbols, outcomes, s.collector.Now())
		elapsed := time.Since(start)

		log.Info().
			Str("key", truncateKey(key)).
			Str("label", label).
			Int("requested", len(symbols)).
			Int("records", rs.Len()).
			Int("failures", len(rs.Failures)).
			Dur("duration", elapsed).
			Msg("result set computed")

		run := &recorder.Run{
			Key:       key,
			Label:     label,
			Trigger:   triggerOf(ctx),
			Requested: len(symbols),
			Succeeded: rs.Len(),
			Failures:  rs.Failures,
			StartedAt: start,
			Duration:  elapsed,
		}
		if err := s.recorder.RecordRun(run); err != nil {
			log.Warn().Err(err).Msg("failed to journal run")
		}
		return rs, nil
	})
}

// PriceHistory returns the last HistoryMonths calendar months of daily bars
// for one symbol, cached with the same TTL as result sets.
func (s *Service) PriceHistory(ctx context.Context, symbol string) ([]model.OHLCV, error) {
	return s.history.GetOrCompute(ctx, "history:"+symbol, func(ctx context.Context) ([]model.OHLCV, error) {
		from := s.collector.Now().AddDate(0, -HistoryMonths, 0)
		bars, err := s.collector.History(ctx, symbol, from)
		if err != nil {
			return nil, fmt.Errorf("price history %s: %w", symbol, err)
		}
		return bars, nil
	})
}

// Invalidate drops the cached result set of a market and asset type so the
// next request recomputes it.
func (s *Service) Invalidate(market universe.Market, asset universe.AssetType) {
	s.results.Invalidate(cache.KeyFor(universe.Select(market, asset)))
}

// Purge drops expired entries from both caches.
func (s *Service) Purge() int {
	return s.results.Purge() + s.history.Purge()
}

func truncateKey(key string) string {
	if len(key) <= 64 {
		return key
	}
	return key[:64] + "..."
}
