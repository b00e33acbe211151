package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TopBolsas/internal/model"
)

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "journal", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_RecordAndRead(t *testing.T) {
	r := openTemp(t)
	start := time.Date(2026, 10, 16, 22, 30, 0, 0, time.UTC)

	run := &Run{
		Key:       "AAPL,MSFT,XYZ",
		Label:     "NYSE (EEUU) / Acciones",
		Trigger:   "digest",
		Requested: 3,
		Succeeded: 2,
		Failures:  []model.FetchFailure{{Symbol: "XYZ", Reason: model.FailureNoData, Message: "no data"}},
		StartedAt: start,
		Duration:  1500 * time.Millisecond,
	}
	require.NoError(t, r.RecordRun(run))
	assert.NotEmpty(t, run.ID)

	require.NoError(t, r.RecordRun(&Run{Key: "SPY", Trigger: "refresh", Requested: 1, Succeeded: 1, StartedAt: start.Add(time.Hour)}))

	runs, err := r.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "SPY", runs[0].Key)

	got := runs[1]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "digest", got.Trigger)
	assert.Equal(t, 3, got.Requested)
	assert.Equal(t, 2, got.Succeeded)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.True(t, start.Equal(got.StartedAt))

	var reason string
	require.NoError(t, r.db.QueryRow(`SELECT reason FROM fetch_failures WHERE run_id = ?`, run.ID).Scan(&reason))
	assert.Equal(t, "no_data", reason)
}

func TestSQLiteRecorder_Limit(t *testing.T) {
	r := openTemp(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.RecordRun(&Run{Key: "K", StartedAt: time.Unix(int64(1000+i), 0)}))
	}
	runs, err := r.RecentRuns(3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRun(&Run{}))
	runs, err := r.RecentRuns(5)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, r.Close())
}
