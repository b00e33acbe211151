package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TopBolsas/internal/dataset"
	"TopBolsas/internal/export"
	"TopBolsas/internal/model"
	"TopBolsas/internal/recorder"
	"TopBolsas/internal/universe"
)

var fixedNow = time.Date(2026, 10, 16, 22, 30, 0, 0, time.UTC)

type fakeRanker struct {
	mu      sync.Mutex
	sets    map[universe.Selection]*model.ResultSet
	failing map[universe.Selection]bool
	history map[string][]model.OHLCV
	calls   []universe.Selection
	dropped []universe.Selection
	charted []string
	purged  int
}

func (f *fakeRanker) Universe(_ context.Context, m universe.Market, a universe.AssetType) (*model.ResultSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sel := universe.Selection{Market: m, Asset: a}
	f.calls = append(f.calls, sel)
	if f.failing[sel] {
		return nil, errors.New("upstream down")
	}
	if rs, ok := f.sets[sel]; ok {
		return rs, nil
	}
	return dataset.Assemble(nil), nil
}

func (f *fakeRanker) PriceHistory(_ context.Context, symbol string) ([]model.OHLCV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charted = append(f.charted, symbol)
	bars, ok := f.history[symbol]
	if !ok {
		return nil, errors.New("no data")
	}
	return bars, nil
}

func (f *fakeRanker) Invalidate(m universe.Market, a universe.AssetType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, universe.Selection{Market: m, Asset: a})
}

type fakeRuns struct {
	runs []recorder.RunSummary
	err  error
}

func (f *fakeRuns) RecentRuns(limit int) ([]recorder.RunSummary, error) {
	if len(f.runs) > limit {
		return f.runs[:limit], f.err
	}
	return f.runs, f.err
}

func (f *fakeRanker) Purge() int {
	f.purged++
	return 0
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

var (
	nyseStocks = universe.Selection{Market: universe.MarketNYSE, Asset: universe.AssetStocks}
	bmeStocks  = universe.Selection{Market: universe.MarketBME, Asset: universe.AssetStocks}
	nyseETFs   = universe.Selection{Market: universe.MarketNYSE, Asset: universe.AssetETFs}
)

func sampleSet() *model.ResultSet {
	avg, diff := int64(100), 50.0
	return dataset.Assemble([]model.TickerRecord{
		{Symbol: "AAPL", Name: "Apple Inc.", DayChangePct: 1.5, CurrentPrice: 190, Sector: "Technology", Country: "United States", Volume: 150, VolumeAvg75: &avg, VolumeDiffPct: &diff},
		{Symbol: "XOM", Name: "Exxon Mobil", DayChangePct: -0.4, CurrentPrice: 110, Sector: "Energy", Country: "United States", Volume: 80},
	})
}

func newTestScheduler(t *testing.T, r *fakeRanker, exportDir string) (*Scheduler, *fakeSender) {
	t.Helper()
	s := &fakeSender{}
	sched := NewScheduler(context.Background(), r, s, []universe.Selection{nyseStocks, bmeStocks}, exportDir, 3)
	sched.Now = func() time.Time { return fixedNow }
	return sched, s
}

func TestRegisterAll(t *testing.T) {
	sched, _ := newTestScheduler(t, &fakeRanker{}, "")
	require.NoError(t, sched.RegisterAll("0 0 * * * *", "0 30 22 * * 1-5"))
	assert.Len(t, sched.Cron.Entries(), 2)

	bad, _ := newTestScheduler(t, &fakeRanker{}, "")
	assert.Error(t, bad.RegisterAll("not a cron", "0 30 22 * * 1-5"))
}

func TestDigest_ExportsAndSends(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRanker{sets: map[universe.Selection]*model.ResultSet{nyseStocks: sampleSet()}}
	sched, sender := newTestScheduler(t, r, dir)

	sched.RunDigestNow()

	assert.Equal(t, []universe.Selection{nyseStocks, bmeStocks}, r.calls)
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0], "NYSE (EEUU) / Acciones")
	assert.Contains(t, sender.sent[0], "AAPL")
	assert.Contains(t, sender.sent[0], "datos_bolsa_2026-10-16.xlsx")

	fh, err := os.Open(filepath.Join(dir, "nyse-acciones", "datos_bolsa_2026-10-16.xlsx"))
	require.NoError(t, err)
	defer fh.Close()
	records, err := export.ReadWorkbook(fh)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// an empty universe still exports a header-only workbook
	_, err = os.Stat(filepath.Join(dir, "bme-acciones", "datos_bolsa_2026-10-16.xlsx"))
	assert.NoError(t, err)
}

func TestDigest_ComputeFailureIsReported(t *testing.T) {
	r := &fakeRanker{failing: map[universe.Selection]bool{nyseStocks: true}}
	sched, sender := newTestScheduler(t, r, "")

	sched.RunDigestNow()
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0], "No se pudieron calcular")
	assert.Contains(t, sender.sent[1], "Bolsa Española (BME)")
}

func TestRefresh_WarmsEveryUniverse(t *testing.T) {
	r := &fakeRanker{}
	sched, sender := newTestScheduler(t, r, "")

	sched.refreshTask()
	assert.Equal(t, []universe.Selection{nyseStocks, bmeStocks}, r.calls)
	assert.Equal(t, 1, r.purged)
	assert.Empty(t, sender.sent)
}

func TestRefresh_StopsWhenCanceled(t *testing.T) {
	r := &fakeRanker{}
	sched, _ := newTestScheduler(t, r, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sched.Ctx = ctx

	sched.refreshTask()
	assert.Empty(t, r.calls)
}
