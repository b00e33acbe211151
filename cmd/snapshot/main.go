// Command snapshot computes one universe and prints its rankings, then writes
// the workbook and the category charts to the export directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"TopBolsas/internal/chart"
	"TopBolsas/internal/collector"
	"TopBolsas/internal/config"
	"TopBolsas/internal/dataset"
	"TopBolsas/internal/export"
	"TopBolsas/internal/logger"
	"TopBolsas/internal/model"
	"TopBolsas/internal/ranking"
	"TopBolsas/internal/recorder"
	"TopBolsas/internal/universe"
)

const topN = 10

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: "pretty"}); err != nil {
		log.Fatal().Err(err).Msg("init logger")
	}
	if err := cfg.Validate(false); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	sel, err := selectionFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("snapshot selection")
	}

	fetcher, err := collector.NewFetcher(cfg.Source())
	if err != nil {
		log.Fatal().Err(err).Msg("init data source")
	}
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		if sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath); err == nil {
			rec = sr
			defer sr.Close()
		} else {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		}
	}
	svc := ranking.NewService(collector.NewCollector(fetcher, cfg.DataSource.Concurrency), cfg.Cache.TTL, rec)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = ranking.WithTrigger(ctx, "snapshot")

	start := time.Now()
	rs, err := svc.Universe(ctx, sel.Market, sel.Asset)
	if err != nil {
		log.Fatal().Err(err).Str("universe", sel.String()).Msg("compute universe")
	}
	log.Info().Str("universe", sel.String()).Int("records", rs.Len()).Dur("duration", time.Since(start)).Msg("universe computed")

	printReport(os.Stdout, sel, rs, os.Getenv("SNAPSHOT_QUERY"))

	if err := writeFiles(cfg.Export.Dir, rs); err != nil {
		log.Fatal().Err(err).Msg("write files")
	}
}

func selectionFromEnv() (universe.Selection, error) {
	sel := universe.Selection{Market: universe.MarketNYSE, Asset: universe.AssetStocks}
	if v := os.Getenv("SNAPSHOT_MARKET"); v != "" {
		m, ok := universe.ParseMarket(v)
		if !ok {
			return sel, fmt.Errorf("unknown market %q", v)
		}
		sel.Market = m
	}
	if v := os.Getenv("SNAPSHOT_ASSET"); v != "" {
		a, ok := universe.ParseAssetType(v)
		if !ok {
			return sel, fmt.Errorf("unknown asset type %q", v)
		}
		sel.Asset = a
	}
	return sel, nil
}

func printReport(w io.Writer, sel universe.Selection, rs *model.ResultSet, query string) {
	fmt.Fprintf(w, "== %s · %d activos · %s ==\n\n", sel, rs.Len(), rs.FetchedAt.Format("2006-01-02 15:04"))
	if rs.Empty() {
		fmt.Fprintln(w, "No hay datos disponibles para estos activos.")
		return
	}

	printRanking(w, "Top subidas hoy", dataset.Top(dataset.SortBy(rs, dataset.FieldDayChange, true), topN),
		func(r model.TickerRecord) float64 { return r.DayChangePct })
	printRanking(w, "Top subidas semana", dataset.Top(dataset.SortBy(rs, dataset.FieldWeekChange, true), topN),
		func(r model.TickerRecord) float64 { return r.WeekChangePct })
	printRanking(w, "Top subidas YTD", dataset.Top(dataset.SortBy(rs, dataset.FieldYTDChange, true), topN),
		func(r model.TickerRecord) float64 { return r.YTDChangePct })

	fmt.Fprintf(w, "-- Búsqueda %q --\n", query)
	printTable(w, dataset.Filter(rs, query))

	fmt.Fprintln(w, "-- Ordenado por precio actual --")
	printTable(w, dataset.SortBy(rs, dataset.FieldCurrentPrice, true))

	fmt.Fprintln(w, "-- Volumen actual vs media 75 sesiones --")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Ticker\tNombre\tVolumen\tMedia 75\tDif. %\t")
	for _, r := range dataset.VolumeTable(rs) {
		avg, diff := "-", "-"
		if r.Avg75 != nil {
			avg = humanize.Comma(*r.Avg75)
		}
		if r.DiffPct != nil {
			diff = fmt.Sprintf("%+.2f", *r.DiffPct)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", r.Symbol, r.Name, humanize.Comma(r.Volume), avg, diff)
	}
	tw.Flush()

	if len(rs.Failures) > 0 {
		syms := make([]string, len(rs.Failures))
		for i, f := range rs.Failures {
			syms[i] = fmt.Sprintf("%s (%s)", f.Symbol, f.Reason)
		}
		fmt.Fprintf(w, "\nSin datos: %s\n", strings.Join(syms, ", "))
	}
}

func printRanking(w io.Writer, title string, records []model.TickerRecord, value func(model.TickerRecord) float64) {
	fmt.Fprintf(w, "-- %s --\n", title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, r := range records {
		fmt.Fprintf(tw, "%d.\t%s\t%s\t%+.2f%%\t%.2f\n", i+1, r.Symbol, r.Name, value(r), r.CurrentPrice)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func printTable(w io.Writer, records []model.TickerRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "Ningún activo coincide.")
		fmt.Fprintln(w)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(export.Headers, "\t"))
	for _, r := range records {
		avg, diff := "", ""
		if r.VolumeAvg75 != nil {
			avg = fmt.Sprint(*r.VolumeAvg75)
		}
		if r.VolumeDiffPct != nil {
			diff = fmt.Sprintf("%.2f", *r.VolumeDiffPct)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%s\t%d\t%s\t%s\n",
			r.Symbol, r.Name, r.DayChangePct, r.WeekChangePct, r.YTDChangePct, r.CurrentPrice,
			r.Sector, r.Country, r.Volume, avg, diff)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func writeFiles(dir string, rs *model.ResultSet) error {
	path, err := export.SaveFile(dir, time.Now(), rs.Records)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("workbook written")

	charts := []struct {
		file  string
		title string
		by    dataset.Category
	}{
		{"sectores.png", "Cantidad de activos por sector", dataset.BySector},
		{"paises.png", "Cantidad de activos por país", dataset.ByCountry},
	}
	for _, c := range charts {
		png, err := chart.RenderCategoryChart(c.title, dataset.ValueCounts(rs, c.by))
		if errors.Is(err, chart.ErrNoData) {
			log.Info().Str("chart", c.file).Msg("no data for chart")
			continue
		}
		if err != nil {
			return fmt.Errorf("render %s: %w", c.file, err)
		}
		out := filepath.Join(dir, c.file)
		if err := os.WriteFile(out, png, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", c.file, err)
		}
		log.Info().Str("path", out).Msg("chart written")
	}
	return nil
}
