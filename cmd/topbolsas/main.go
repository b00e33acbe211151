package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"TopBolsas/internal/collector"
	"TopBolsas/internal/config"
	"TopBolsas/internal/logger"
	"TopBolsas/internal/notifier"
	"TopBolsas/internal/ranking"
	"TopBolsas/internal/recorder"
	"TopBolsas/internal/scheduler"
)

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		FilePath:    cfg.Logging.FilePath,
		ServiceName: "topbolsas",
	}); err != nil {
		log.Fatal().Err(err).Msg("init logger")
	}
	if err := cfg.Validate(true); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Msg("TopBolsas starting...")

	universes, err := cfg.Selections()
	if err != nil {
		log.Fatal().Err(err).Msg("resolve universes")
	}

	fetcher, err := collector.NewFetcher(cfg.Source())
	if err != nil {
		log.Fatal().Err(err).Msg("init data source")
	}
	log.Info().Str("source", fetcher.Name()).Int("concurrency", cfg.DataSource.Concurrency).Msg("data source ready")
	col := collector.NewCollector(fetcher, cfg.DataSource.Concurrency)

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	svc := ranking.NewService(col, cfg.Cache.TTL, rec)
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, svc, tn, universes, cfg.Export.Dir, cfg.Telegram.TopN)
	sched.Runs = rec
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.DigestCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info().Msg("telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing digest now")
		go sched.RunDigestNow()
	}

	log.Info().Msg("TopBolsas is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
}
