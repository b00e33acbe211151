package collector

import (
	"context"
	"fmt"
	"time"

	"TopBolsas/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchDailyBars returns daily sessions in [from, to], oldest first.
	FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.OHLCV, error)
	// FetchMetadata returns name, sector and country. Missing fields are empty.
	FetchMetadata(ctx context.Context, symbol string) (*model.Metadata, error)
	Name() string
}

// SourceConfig selects and configures a Fetcher.
type SourceConfig struct {
	Provider  string // "yahoo" (default) or "vstrader"
	BaseURL   string
	APIKey    string
	Proxy     string
	RateLimit int
	Timeout   time.Duration
}

// NewFetcher builds the Fetcher named by c.Provider.
func NewFetcher(c SourceConfig) (Fetcher, error) {
	switch c.Provider {
	case "", "yahoo":
		opts := []YahooOption{WithRateLimit(c.RateLimit), WithTimeout(c.Timeout)}
		if c.BaseURL != "" {
			opts = append(opts, WithYahooBaseURL(c.BaseURL))
		}
		return NewYahooFetcher(c.Proxy, opts...), nil
	case "vstrader":
		if c.BaseURL == "" {
			return nil, fmt.Errorf("vstrader: base url is required")
		}
		return NewVsTraderFetcher(c.BaseURL, c.APIKey, c.Proxy, c.Timeout), nil
	case "mock":
		return &MockFetcher{}, nil
	}
	return nil, fmt.Errorf("unknown data source provider %q", c.Provider)
}
