package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"TopBolsas/internal/anomaly"
	"TopBolsas/internal/dataset"
	"TopBolsas/internal/model"
	"TopBolsas/internal/recorder"
)

// Messages shown instead of empty tables.
const (
	MsgNoData     = "ℹ️ No hay datos disponibles para estos activos."
	MsgNoMatches  = "ℹ️ Ningún activo coincide con la búsqueda."
	MsgNoSector   = "ℹ️ No hay información de sector disponible para estos activos."
	MsgNoCountry  = "ℹ️ No hay información de país disponible para estos activos."
	MsgNoAnomaly  = "Sin volumen inusual."
	MsgNoRuns     = "ℹ️ Todavía no hay cálculos registrados."
	maxSearchRows = 20
	maxFailures   = 10
)

func esc(s string) string { return html.EscapeString(s) }

func writeRanking(b *strings.Builder, heading string, records []model.TickerRecord, value func(model.TickerRecord) float64) {
	b.WriteString(fmt.Sprintf("%s\n", heading))
	for i, r := range records {
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> %s %+.2f%% · %.2f\n",
			i+1, esc(r.Symbol), esc(r.Name), value(r), r.CurrentPrice))
	}
	b.WriteString("\n")
}

// FormatDigest formats the leaders of a result set by day, week and
// year-to-date change, followed by unusual volume.
func FormatDigest(title string, rs *model.ResultSet, topN int) string {
	var b strings.Builder
	date := ""
	if rs != nil && !rs.FetchedAt.IsZero() {
		date = " | " + rs.FetchedAt.Format("2006-01-02 15:04")
	}
	b.WriteString(fmt.Sprintf("📊 <b>%s</b>%s\n\n", esc(title), date))

	if rs.Empty() {
		b.WriteString(MsgNoData + "\n")
		writeFailures(&b, rs)
		return b.String()
	}

	writeRanking(&b, "🚀 <b>Top subidas hoy</b>",
		dataset.Top(dataset.SortBy(rs, dataset.FieldDayChange, true), topN),
		func(r model.TickerRecord) float64 { return r.DayChangePct })
	writeRanking(&b, "📅 <b>Top subidas semana</b>",
		dataset.Top(dataset.SortBy(rs, dataset.FieldWeekChange, true), topN),
		func(r model.TickerRecord) float64 { return r.WeekChangePct })
	writeRanking(&b, "📈 <b>Top subidas YTD</b>",
		dataset.Top(dataset.SortBy(rs, dataset.FieldYTDChange, true), topN),
		func(r model.TickerRecord) float64 { return r.YTDChangePct })

	b.WriteString("🔊 <b>Volumen inusual</b>\n")
	anomalies := anomaly.Scan(rs.Records)
	if len(anomalies) == 0 {
		b.WriteString(MsgNoAnomaly + "\n")
	}
	for i, a := range anomalies {
		if i == topN {
			break
		}
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %+.2f%% (%s vs media %s)\n",
			a.Level.Emoji, esc(a.Record.Symbol), *a.Record.VolumeDiffPct,
			humanize.Comma(a.Record.Volume), humanize.Comma(*a.Record.VolumeAvg75)))
	}
	writeFailures(&b, rs)
	return b.String()
}

func writeFailures(b *strings.Builder, rs *model.ResultSet) {
	if rs == nil || len(rs.Failures) == 0 {
		return
	}
	syms := make([]string, 0, maxFailures)
	for i, f := range rs.Failures {
		if i == maxFailures {
			syms = append(syms, "…")
			break
		}
		syms = append(syms, esc(f.Symbol))
	}
	b.WriteString(fmt.Sprintf("\n⚠️ %d activos sin datos: %s\n", len(rs.Failures), strings.Join(syms, ", ")))
}

// FormatSearch lists the records matching a query.
func FormatSearch(query string, records []model.TickerRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>Búsqueda:</b> %s\n\n", esc(query)))
	if len(records) == 0 {
		b.WriteString(MsgNoMatches)
		return b.String()
	}
	for i, r := range records {
		if i == maxSearchRows {
			b.WriteString(fmt.Sprintf("… y %d más\n", len(records)-maxSearchRows))
			break
		}
		b.WriteString(fmt.Sprintf("<b>%s</b> %s\n   %.2f · día %+.2f%% · semana %+.2f%% · YTD %+.2f%%\n",
			esc(r.Symbol), esc(r.Name), r.CurrentPrice, r.DayChangePct, r.WeekChangePct, r.YTDChangePct))
	}
	return b.String()
}

// FormatPrices lists records in the given order with their current price.
// A non-positive limit lists them all.
func FormatPrices(title string, records []model.TickerRecord, limit int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💶 <b>%s</b>\n\n", esc(title)))
	if len(records) == 0 {
		b.WriteString(MsgNoData)
		return b.String()
	}
	if limit > 0 {
		records = dataset.Top(records, limit)
	}
	for i, r := range records {
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> %.2f\n", i+1, esc(r.Symbol), r.CurrentPrice))
	}
	return b.String()
}

// FormatBreakdown lists counts per category. empty is shown when there are none.
func FormatBreakdown(title string, counts []model.CategoryCount, empty string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b>\n\n", esc(title)))
	if len(counts) == 0 {
		b.WriteString(empty)
		return b.String()
	}
	for _, c := range counts {
		b.WriteString(fmt.Sprintf("%s: %d\n", esc(c.Label), c.Count))
	}
	return b.String()
}

// FormatVolume renders the volume comparison table.
func FormatVolume(title string, rows []dataset.VolumeRow, limit int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔊 <b>%s</b>\n\n", esc(title)))
	if len(rows) == 0 {
		b.WriteString(MsgNoData)
		return b.String()
	}
	for i, r := range rows {
		if limit > 0 && i == limit {
			break
		}
		if r.DiffPct == nil {
			b.WriteString(fmt.Sprintf("%s <b>%s</b> %s · %s\n", r.Level.Emoji, esc(r.Symbol), humanize.Comma(r.Volume), r.Level.Label))
			continue
		}
		mark := "🟥"
		if r.Up {
			mark = "🟩"
		}
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %s vs %s (%+.2f%%)\n",
			mark, esc(r.Symbol), humanize.Comma(r.Volume), humanize.Comma(*r.Avg75), *r.DiffPct))
	}
	return b.String()
}

// FormatRuns lists journaled recomputations, newest first.
func FormatRuns(runs []recorder.RunSummary) string {
	var b strings.Builder
	b.WriteString("🗂 <b>Últimos cálculos</b>\n\n")
	if len(runs) == 0 {
		b.WriteString(MsgNoRuns)
		return b.String()
	}
	for _, r := range runs {
		label := r.Label
		if label == "" {
			label = "-"
		}
		mark := "✅"
		if r.Failed > 0 {
			mark = "⚠️"
		}
		b.WriteString(fmt.Sprintf("%s %s · %s · %s · %d/%d en %s\n",
			mark, r.StartedAt.Format("02/01 15:04"), esc(label), esc(r.Trigger),
			r.Succeeded, r.Requested, r.Duration.Round(100*time.Millisecond)))
	}
	return b.String()
}

// FormatHelp lists the available commands.
func FormatHelp() string {
	return `🤖 <b>TopBolsas</b>

/top &lt;mercado&gt; [acciones|etfs] - ranking del día, semana y YTD
/etf - ranking de ETFs
/precio &lt;mercado&gt; [asc] - activos ordenados por precio
/volumen &lt;mercado&gt; - volumen actual vs media 75 sesiones
/buscar &lt;texto&gt; [mercado] - filtrar por ticker o nombre
/sectores &lt;mercado&gt; - distribución por sector
/paises &lt;mercado&gt; - distribución por país
/grafico &lt;ticker&gt; - precio de los últimos 6 meses
/refrescar &lt;mercado&gt; [acciones|etfs] - recalcular ignorando la caché
/estado - últimos cálculos y fallos
/help - esta ayuda

Mercados: nyse, bme, eurostoxx`
}
