package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog/log"

	"TopBolsas/internal/calculator"
	"TopBolsas/internal/chart"
	"TopBolsas/internal/dataset"
	"TopBolsas/internal/model"
	"TopBolsas/internal/notifier"
	"TopBolsas/internal/ranking"
	"TopBolsas/internal/universe"
)

const (
	maxCaption = 1024
	statusRuns = 10
)

var marketSlugs = map[universe.Market]string{
	universe.MarketNYSE:      "nyse",
	universe.MarketBME:       "bme",
	universe.MarketEuroStoxx: "eurostoxx",
}

func slug(sel universe.Selection) string {
	m, ok := marketSlugs[sel.Market]
	if !ok {
		m = "otros"
	}
	if sel.Asset == universe.AssetETFs {
		return m + "-etfs"
	}
	return m + "-acciones"
}

func formatDigest(sel universe.Selection, rs *model.ResultSet, topN int) string {
	return notifier.FormatDigest(sel.String(), rs, topN)
}

func text(s string) notifier.Reply { return notifier.Reply{Text: s} }

// parseSelection reads "<mercado> [acciones|etfs]" from args.
func parseSelection(args []string) (universe.Selection, error) {
	if len(args) == 0 {
		return universe.Selection{}, errors.New("falta el mercado (nyse, bme, eurostoxx)")
	}
	m, ok := universe.ParseMarket(args[0])
	if !ok {
		return universe.Selection{}, fmt.Errorf("mercado desconocido: %s", args[0])
	}
	sel := universe.Selection{Market: m, Asset: universe.AssetStocks}
	if len(args) > 1 {
		a, ok := universe.ParseAssetType(args[1])
		if !ok {
			return universe.Selection{}, fmt.Errorf("tipo de activo desconocido: %s", args[1])
		}
		sel.Asset = a
	}
	return sel, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) notifier.Reply {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return text(notifier.FormatHelp())
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	args := fields[1:]
	ctx = ranking.WithTrigger(ctx, "command")

	switch cmd {
	case "/top":
		return s.withSelection(ctx, args, func(sel universe.Selection, rs *model.ResultSet) notifier.Reply {
			return text(formatDigest(sel, rs, s.TopN))
		})
	case "/etf", "/etfs":
		return s.withSelection(ctx, []string{"nyse", "etfs"}, func(sel universe.Selection, rs *model.ResultSet) notifier.Reply {
			return text(formatDigest(sel, rs, s.TopN))
		})
	case "/precio":
		desc := true
		if n := len(args); n > 1 && strings.EqualFold(args[n-1], "asc") {
			desc = false
			args = args[:n-1]
		}
		return s.withSelection(ctx, args, func(sel universe.Selection, rs *model.ResultSet) notifier.Reply {
			order := "mayor a menor"
			if !desc {
				order = "menor a mayor"
			}
			title := fmt.Sprintf("%s · precio actual (%s)", sel, order)
			return text(notifier.FormatPrices(title, dataset.SortBy(rs, dataset.FieldCurrentPrice, desc), 0))
		})
	case "/volumen":
		return s.withSelection(ctx, args, func(sel universe.Selection, rs *model.ResultSet) notifier.Reply {
			title := fmt.Sprintf("%s · volumen vs media 75 sesiones", sel)
			return text(notifier.FormatVolume(title, dataset.VolumeTable(rs), 0))
		})
	case "/buscar":
		return s.search(ctx, args)
	case "/sectores":
		return s.withSelection(ctx, args, func(sel universe.Selection, rs *model.ResultSet) notifier.Reply {
			return breakdown(fmt.Sprintf("%s · activos por sector", sel), dataset.ValueCounts(rs, dataset.BySector), notifier.MsgNoSector)
		})
	case "/paises":
		return s.withSelection(ctx, args, func(sel universe.Selection, rs *model.ResultSet) notifier.Reply {
			return breakdown(fmt.Sprintf("%s · activos por país", sel), dataset.ValueCounts(rs, dataset.ByCountry), notifier.MsgNoCountry)
		})
	case "/grafico":
		return s.priceChart(ctx, args)
	case "/refrescar":
		sel, err := parseSelection(args)
		if err != nil {
			return text("⚠️ " + html.EscapeString(err.Error()))
		}
		s.Ranker.Invalidate(sel.Market, sel.Asset)
		return s.withSelection(ctx, args, func(sel universe.Selection, rs *model.ResultSet) notifier.Reply {
			return text(formatDigest(sel, rs, s.TopN))
		})
	case "/estado":
		return s.status()
	case "/help", "/start", "/ayuda":
		return text(notifier.FormatHelp())
	default:
		return text("Comando no reconocido.\n\n" + notifier.FormatHelp())
	}
}

func (s *Scheduler) withSelection(ctx context.Context, args []string, render func(universe.Selection, *model.ResultSet) notifier.Reply) notifier.Reply {
	sel, err := parseSelection(args)
	if err != nil {
		return text("⚠️ " + html.EscapeString(err.Error()))
	}
	rs, err := s.Ranker.Universe(ctx, sel.Market, sel.Asset)
	if err != nil {
		log.Error().Err(err).Str("universe", sel.String()).Msg("command compute failed")
		return text(fmt.Sprintf("❌ No se pudieron obtener los datos de %s.", sel))
	}
	return render(sel, rs)
}

func (s *Scheduler) search(ctx context.Context, args []string) notifier.Reply {
	if len(args) == 0 {
		return text("⚠️ Uso: /buscar &lt;texto&gt; [mercado]")
	}
	query := args[0]
	sels := s.Universes
	if len(args) > 1 {
		sel, err := parseSelection(args[1:])
		if err != nil {
			return text("⚠️ " + html.EscapeString(err.Error()))
		}
		sels = []universe.Selection{sel}
	}

	var matches []model.TickerRecord
	for _, sel := range sels {
		rs, err := s.Ranker.Universe(ctx, sel.Market, sel.Asset)
		if err != nil {
			log.Warn().Err(err).Str("universe", sel.String()).Msg("search skipped universe")
			continue
		}
		matches = append(matches, dataset.Filter(rs, query)...)
	}
	// the same ticker can be listed in several universes
	return text(notifier.FormatSearch(query, dataset.Assemble(matches).Records))
}

func breakdown(title string, counts []model.CategoryCount, empty string) notifier.Reply {
	msg := notifier.FormatBreakdown(title, counts, empty)
	png, err := chart.RenderCategoryChart(title, counts)
	if err != nil {
		if !errors.Is(err, chart.ErrNoData) {
			log.Error().Err(err).Msg("render category chart")
		}
		return text(msg)
	}
	if len(msg) > maxCaption {
		msg = fmt.Sprintf("📊 <b>%s</b>", title)
	}
	return notifier.Reply{Text: msg, Photo: png}
}

func (s *Scheduler) status() notifier.Reply {
	if s.Runs == nil {
		return text(notifier.FormatRuns(nil))
	}
	runs, err := s.Runs.RecentRuns(statusRuns)
	if err != nil {
		log.Error().Err(err).Msg("read run journal")
		return text("❌ No se pudo leer el historial de cálculos.")
	}
	return text(notifier.FormatRuns(runs))
}

// listed reports whether symbol belongs to one of the configured universes.
func (s *Scheduler) listed(symbol string) bool {
	for _, sel := range s.Universes {
		symbols, ok := universe.Lookup(sel.Market, sel.Asset)
		if !ok {
			continue
		}
		for _, sym := range symbols {
			if sym == symbol {
				return true
			}
		}
	}
	return false
}

func (s *Scheduler) priceChart(ctx context.Context, args []string) notifier.Reply {
	if len(args) == 0 {
		return text("⚠️ Uso: /grafico &lt;ticker&gt;")
	}
	symbol := strings.ToUpper(args[0])
	label := html.EscapeString(symbol)
	if !s.listed(symbol) {
		return text(fmt.Sprintf("ℹ️ %s no está en las listas de activos disponibles. Usa /buscar para encontrar un ticker.", label))
	}
	bars, err := s.Ranker.PriceHistory(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("price history failed")
		return text(fmt.Sprintf("❌ No se pudo obtener el histórico de %s.", label))
	}
	png, err := chart.RenderPriceChart(symbol, bars)
	if errors.Is(err, chart.ErrNoData) {
		return text(fmt.Sprintf("ℹ️ No hay datos suficientes para graficar %s.", label))
	}
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("render price chart")
		return text(fmt.Sprintf("❌ No se pudo generar el gráfico de %s.", label))
	}
	caption := fmt.Sprintf("📈 <b>%s</b> · últimos %d meses (%d sesiones)", label, ranking.HistoryMonths, len(bars))
	if low, high, err := calculator.CloseRange(bars); err == nil {
		last := bars[len(bars)-1].Close
		pos, _ := calculator.RangePosition(last, low, high)
		caption += fmt.Sprintf("\nCierre %.2f · mín %.2f · máx %.2f · posición en rango %.0f%%", last, low, high, pos*100)
	}
	return notifier.Reply{Text: caption, Photo: png}
}
