package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"TopBolsas/internal/model"
)

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func sampleRecords() []model.TickerRecord {
	return []model.TickerRecord{
		{Symbol: "SAN.MC", Name: "Banco Santander", DayChangePct: 1.25, WeekChangePct: -3.4, YTDChangePct: 18.02, CurrentPrice: 4.87,
			Sector: "Financial Services", Country: "Spain", Volume: 40123456, VolumeAvg75: i64(35000000), VolumeDiffPct: f64(14.64)},
		{Symbol: "NEW", Name: "Recent Listing", DayChangePct: -0.5, WeekChangePct: 0, YTDChangePct: -12.75, CurrentPrice: 101.1,
			Sector: model.NotAvailable, Country: model.NotAvailable, Volume: 1200},
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "datos_bolsa_2026-10-16.xlsx", FileName(time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC)))
}

func TestWorkbook_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := sampleRecords()
	require.NoError(t, WriteWorkbook(&buf, in))

	out, err := ReadWorkbook(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestWorkbook_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, sampleRecords()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])

	v, err := f.GetCellValue(SheetName, "J3")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestWorkbook_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, nil))

	out, err := ReadWorkbook(&buf)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReadWorkbook_BadHeader(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "nope"))
	require.NoError(t, f.SetSheetName("Sheet1", SheetName))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := ReadWorkbook(&buf)
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestSaveFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "export")
	now := time.Date(2026, 10, 16, 22, 30, 0, 0, time.UTC)

	path, err := SaveFile(dir, now, sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "datos_bolsa_2026-10-16.xlsx"), path)

	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	out, err := ReadWorkbook(fh)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
