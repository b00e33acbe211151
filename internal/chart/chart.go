// Package chart renders PNG charts for chat and file output.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"TopBolsas/internal/calculator"
	"TopBolsas/internal/model"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("chart: no data to draw")

// RenderPriceChart renders the closes of bars as a PNG line chart.
// At least two bars are needed to draw a line.
func RenderPriceChart(symbol string, bars []model.OHLCV) ([]byte, error) {
	if len(bars) < 2 {
		return nil, ErrNoData
	}

	xValues := make([]time.Time, len(bars))
	yValues := make([]float64, len(bars))
	for i, b := range bars {
		xValues[i] = b.Time
		yValues[i] = b.Close
	}
	lo, hi, err := calculator.CloseRange(bars)
	if err != nil {
		return nil, err
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.05, 1)
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s · precio de cierre", symbol),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name: symbol,
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("2563eb"),
					StrokeWidth: 2,
				},
				XValues: xValues,
				YValues: yValues,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderCategoryChart renders one bar per category count.
func RenderCategoryChart(title string, counts []model.CategoryCount) ([]byte, error) {
	if len(counts) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, len(counts))
	maxCount := 0
	for i, c := range counts {
		bars[i] = chart.Value{
			Label: c.Label,
			Value: float64(c.Count),
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("2563eb"),
				StrokeColor: drawing.ColorFromHex("1e40af"),
				StrokeWidth: 1,
			},
		}
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}

	width := 120 * len(counts)
	if width < 600 {
		width = 600
	}
	graph := chart.BarChart{
		Title:    title,
		Width:    width,
		Height:   450,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount + 1)},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
