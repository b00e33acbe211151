package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"TopBolsas/internal/export"
	"TopBolsas/internal/model"
	"TopBolsas/internal/ranking"
	"TopBolsas/internal/recorder"
	"TopBolsas/internal/universe"
)

// Ranker serves result sets and price history.
type Ranker interface {
	Universe(ctx context.Context, market universe.Market, asset universe.AssetType) (*model.ResultSet, error)
	PriceHistory(ctx context.Context, symbol string) ([]model.OHLCV, error)
	Invalidate(market universe.Market, asset universe.AssetType)
	Purge() int
}

// RunLister reads back the run journal.
type RunLister interface {
	RecentRuns(limit int) ([]recorder.RunSummary, error)
}

// Sender delivers chat messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Ranker    Ranker
	Notifier  Sender
	Runs      RunLister // optional, answers /estado
	Universes []universe.Selection
	ExportDir string
	TopN      int
	Ctx       context.Context
	Now       func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, r Ranker, n Sender, universes []universe.Selection, exportDir string, topN int) *Scheduler {
	if len(universes) == 0 {
		universes = universe.All()
	}
	if topN <= 0 {
		topN = 5
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Ranker:    r,
		Notifier:  n,
		Universes: universes,
		ExportDir: exportDir,
		TopN:      topN,
		Ctx:       ctx,
		Now:       time.Now,
	}
}

// RegisterAll registers the cache refresh and the daily digest.
func (s *Scheduler) RegisterAll(refreshCron, digestCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(digestCron, s.digestTask); err != nil {
		return fmt.Errorf("register digest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunDigestNow executes the digest immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunDigestNow() {
	s.digestTask()
}

func (s *Scheduler) refreshTask() {
	ctx := ranking.WithTrigger(s.Ctx, "refresh")
	if n := s.Ranker.Purge(); n > 0 {
		log.Debug().Int("purged", n).Msg("expired cache entries dropped")
	}
	for _, sel := range s.Universes {
		if ctx.Err() != nil {
			return
		}
		rs, err := s.Ranker.Universe(ctx, sel.Market, sel.Asset)
		if err != nil {
			log.Error().Err(err).Str("universe", sel.String()).Msg("refresh failed")
			continue
		}
		log.Info().Str("universe", sel.String()).Int("records", rs.Len()).Msg("universe refreshed")
	}
}

func (s *Scheduler) digestTask() {
	log.Info().Int("universes", len(s.Universes)).Msg("running digest")
	ctx := ranking.WithTrigger(s.Ctx, "digest")
	for _, sel := range s.Universes {
		if ctx.Err() != nil {
			return
		}
		s.digest(ctx, sel)
	}
}

func (s *Scheduler) digest(ctx context.Context, sel universe.Selection) {
	rs, err := s.Ranker.Universe(ctx, sel.Market, sel.Asset)
	if err != nil {
		log.Error().Err(err).Str("universe", sel.String()).Msg("digest compute failed")
		s.trySend(fmt.Sprintf("❌ No se pudieron calcular los datos de %s: %v", sel, err))
		return
	}

	msg := formatDigest(sel, rs, s.TopN)
	if s.ExportDir != "" {
		dir := filepath.Join(s.ExportDir, slug(sel))
		path, err := export.SaveFile(dir, s.Now(), rs.Records)
		if err != nil {
			log.Error().Err(err).Str("universe", sel.String()).Msg("export failed")
		} else {
			log.Info().Str("path", path).Int("records", rs.Len()).Msg("workbook exported")
			msg += fmt.Sprintf("\n📁 %s", filepath.Base(path))
		}
	}
	s.trySend(msg)
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
