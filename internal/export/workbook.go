// Package export writes result sets to spreadsheet workbooks.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"TopBolsas/internal/model"
)

// SheetName is the single worksheet of an exported workbook.
const SheetName = "Datos Bolsa"

// Headers are the column labels, in column order.
var Headers = []string{
	"Ticker",
	"Nombre",
	"Cambio Día (%)",
	"Cambio Semana (%)",
	"Cambio YTD (%)",
	"Precio actual",
	"Sector",
	"País",
	"Volumen",
	"Volumen Promedio 75",
	"Diferencia Volumen (%)",
}

const diffColumn = 11

var ErrBadHeader = errors.New("export: unexpected header row")

// FileName returns the download name for a workbook produced at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("datos_bolsa_%s.xlsx", now.Format("2006-01-02"))
}

func rowValues(r model.TickerRecord) []interface{} {
	vals := []interface{}{
		r.Symbol, r.Name, r.DayChangePct, r.WeekChangePct, r.YTDChangePct,
		r.CurrentPrice, r.Sector, r.Country, r.Volume, nil, nil,
	}
	if r.VolumeAvg75 != nil {
		vals[9] = *r.VolumeAvg75
	}
	if r.VolumeDiffPct != nil {
		vals[10] = *r.VolumeDiffPct
	}
	return vals
}

// WriteWorkbook writes one header row and one row per record. Undefined
// volume averages leave their cells empty.
func WriteWorkbook(w io.Writer, records []model.TickerRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	up, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#90EE90"}}})
	if err != nil {
		return fmt.Errorf("fill style: %w", err)
	}
	down, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FA8072"}}})
	if err != nil {
		return fmt.Errorf("fill style: %w", err)
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return err
	}

	for i, r := range records {
		row := i + 2
		for j, v := range rowValues(r) {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("row %d: %w", row, err)
			}
		}
		if r.VolumeDiffPct != nil {
			style := down
			if *r.VolumeDiffPct > 0 {
				style = up
			}
			cell, _ := excelize.CoordinatesToCellName(diffColumn, row)
			if err := f.SetCellStyle(SheetName, cell, cell, style); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(SheetName, "A", "K", 16); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveFile writes the workbook into dir under FileName(now) and returns its path.
func SaveFile(dir string, now time.Time, records []model.TickerRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create workbook: %w", err)
	}
	if err := WriteWorkbook(out, records); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close workbook: %w", err)
	}
	return path, nil
}

// ReadWorkbook parses a workbook produced by WriteWorkbook.
func ReadWorkbook(r io.Reader) ([]model.TickerRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) != len(Headers) {
		return nil, ErrBadHeader
	}
	for i, h := range Headers {
		if rows[0][i] != h {
			return nil, fmt.Errorf("%w: column %d is %q", ErrBadHeader, i+1, rows[0][i])
		}
	}

	out := make([]model.TickerRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(row []string) (model.TickerRecord, error) {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	var rec model.TickerRecord
	var err error
	rec.Symbol = cell(0)
	rec.Name = cell(1)
	rec.Sector = cell(6)
	rec.Country = cell(7)

	floats := []*float64{&rec.DayChangePct, &rec.WeekChangePct, &rec.YTDChangePct, &rec.CurrentPrice}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(cell(i+2), 64); err != nil {
			return rec, fmt.Errorf("%s: %w", Headers[i+2], err)
		}
	}
	if rec.Volume, err = strconv.ParseInt(cell(8), 10, 64); err != nil {
		return rec, fmt.Errorf("%s: %w", Headers[8], err)
	}
	if s := cell(9); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return rec, fmt.Errorf("%s: %w", Headers[9], err)
		}
		rec.VolumeAvg75 = &v
	}
	if s := cell(10); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rec, fmt.Errorf("%s: %w", Headers[10], err)
		}
		rec.VolumeDiffPct = &v
	}
	return rec, nil
}
