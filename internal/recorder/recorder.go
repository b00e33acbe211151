package recorder

import (
	"time"

	"TopBolsas/internal/model"
)

// Run describes one recomputation of a ticker list.
type Run struct {
	ID        string
	Key       string // cache key of the ticker list
	Label     string // e.g. "NYSE (EEUU) / Acciones"
	Trigger   string // "request", "refresh", "digest"
	Requested int
	Succeeded int
	Failures  []model.FetchFailure
	StartedAt time.Time
	Duration  time.Duration
}

// RunSummary is a stored run as read back from the journal.
type RunSummary struct {
	ID        string
	Key       string
	Label     string
	Trigger   string
	Requested int
	Succeeded int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}

// Recorder journals recomputations for later diagnosis.
type Recorder interface {
	RecordRun(run *Run) error
	RecentRuns(limit int) ([]RunSummary, error)
	Close() error
}
