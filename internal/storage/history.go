package storage

import (
	"time"

	"github.com/google/uuid"

	"labload/internal/report"
	"labload/internal/runner"
)

// Run is one finished load test as kept in history.
type Run struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Config    runner.Config  `json:"config"`
	Summary   report.Summary `json:"summary"`
}

// NewRun captures a finished runner for history.
func NewRun(r *runner.Runner) Run {
	return Run{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Config:    r.Cfg,
		Summary:   report.Summarize(r),
	}
}

// Fixed width so byte order is time order.
const keyLayout = "2006-01-02T15:04:05.000000000Z"

// key orders runs by time in the bucket, ID breaks ties.
func (r Run) key() []byte {
	return []byte(r.Timestamp.UTC().Format(keyLayout) + "/" + r.ID)
}
