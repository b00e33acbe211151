package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"TopBolsas/internal/model"
)

const (
	yahooBaseURL   = "https://query1.finance.yahoo.com"
	yahooHomeURL   = "https://fc.yahoo.com"
	yahooUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	DefaultRateLimit = 5 // requests per second
	DefaultTimeout   = 30 * time.Second
)

// yahooRenames maps curated tickers to their current Yahoo listing.
var yahooRenames = map[string]string{
	"DPW.DE": "DHL.DE", // Deutsche Post relisted as DHL Group
}

// YahooFetcher implements Fetcher using the Yahoo Finance public API.
type YahooFetcher struct {
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker

	baseURL string
	homeURL string
	limiter *rate.Limiter

	mu    sync.Mutex
	crumb string
}

// YahooOption configures a YahooFetcher.
type YahooOption func(*YahooFetcher)

// WithYahooBaseURL points both the API and the cookie endpoint at baseURL.
func WithYahooBaseURL(baseURL string) YahooOption {
	return func(f *YahooFetcher) {
		f.baseURL = strings.TrimRight(baseURL, "/")
		f.homeURL = f.baseURL + "/"
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(requestsPerSecond int) YahooOption {
	return func(f *YahooFetcher) {
		if requestsPerSecond > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) YahooOption {
	return func(f *YahooFetcher) {
		if timeout > 0 {
			f.Client.Timeout = timeout
		}
	}
}

// NewYahooFetcher creates a new Yahoo Finance fetcher with optional proxy support.
func NewYahooFetcher(proxyURL string, opts ...YahooOption) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	jar, _ := cookiejar.New(nil)
	f := &YahooFetcher{
		Client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: transport,
			Jar:       jar,
		},
		SymbolMap: make(map[string]string, len(yahooRenames)),
		baseURL:   yahooBaseURL,
		homeURL:   yahooHomeURL,
		limiter:   rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}
	for k, v := range yahooRenames {
		f.SymbolMap[k] = v
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []interface{} `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// yahooSummary is the quoteSummary response for the price and assetProfile modules.
type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				ShortName string `json:"shortName"`
				LongName  string `json:"longName"`
			} `json:"price"`
			AssetProfile struct {
				Sector  string `json:"sector"`
				Country string `json:"country"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func valueAt(vals []interface{}, i int) float64 {
	if i >= len(vals) {
		return 0
	}
	return toFloat(vals[i])
}

// get performs a rate-limited GET and returns the body of a 200 response.
func (f *YahooFetcher) get(ctx context.Context, u string) ([]byte, int, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("%w: yahoo fetch: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: yahoo read body: %v", ErrNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("%w: yahoo status %d, body: %s", ErrUpstream, resp.StatusCode, truncate(body, 200))
	}
	return body, resp.StatusCode, nil
}

// FetchDailyBars returns split and dividend adjusted daily bars.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.OHLCV, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", strconv.FormatInt(from.Unix(), 10))
	params.Set("period2", strconv.FormatInt(to.Unix(), 10))
	params.Set("events", "div,split")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.baseURL, url.PathEscape(f.yahooSymbol(symbol)), params.Encode())

	body, _, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}
	return parseChart(body)
}

func parseChart(body []byte) ([]model.OHLCV, error) {
	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: yahoo decode: %v", ErrParse, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo api error: %s", ErrUpstream, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, ErrNoData
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo: missing quote indicators", ErrParse)
	}
	quote := result.Indicators.Quote[0]
	var adj []interface{}
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]model.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o := valueAt(quote.Open, i)
		h := valueAt(quote.High, i)
		l := valueAt(quote.Low, i)
		c := valueAt(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		if a := valueAt(adj, i); a > 0 && c > 0 && a != c {
			ratio := a / c
			o, h, l, c = o*ratio, h*ratio, l*ratio, a
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: valueAt(quote.Volume, i),
		})
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// FetchMetadata reads name, sector and country from quoteSummary.
func (f *YahooFetcher) FetchMetadata(ctx context.Context, symbol string) (*model.Metadata, error) {
	crumb, err := f.ensureCrumb(ctx)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("modules", "price,assetProfile")
	params.Set("crumb", crumb)
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", f.baseURL, url.PathEscape(f.yahooSymbol(symbol)), params.Encode())

	body, status, err := f.get(ctx, u)
	if err != nil {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			f.resetCrumb()
		}
		return nil, err
	}

	var summary yahooSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("%w: yahoo summary decode: %v", ErrParse, err)
	}
	if summary.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("%w: yahoo summary error: %s", ErrUpstream, summary.QuoteSummary.Error.Description)
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return nil, ErrNoData
	}
	r := summary.QuoteSummary.Result[0]
	return &model.Metadata{
		Symbol:  symbol,
		Name:    r.Price.ShortName,
		Sector:  r.AssetProfile.Sector,
		Country: r.AssetProfile.Country,
	}, nil
}

// ensureCrumb performs the cookie and crumb handshake once and reuses it.
func (f *YahooFetcher) ensureCrumb(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crumb != "" {
		return f.crumb, nil
	}

	// The home page only sets the session cookie; its status is irrelevant.
	if req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.homeURL, nil); err == nil {
		req.Header.Set("User-Agent", yahooUserAgent)
		if resp, err := f.Client.Do(req); err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}

	body, _, err := f.get(ctx, f.baseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("get crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.Contains(crumb, "<") {
		return "", fmt.Errorf("%w: invalid crumb received", ErrUpstream)
	}
	log.Debug().Msg("yahoo crumb acquired")
	f.crumb = crumb
	return crumb, nil
}

func (f *YahooFetcher) resetCrumb() {
	f.mu.Lock()
	f.crumb = ""
	f.mu.Unlock()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
