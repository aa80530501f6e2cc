package static

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rhuss/askdata/pkg/observability"
)

// Janitor periodically removes expired files from a Store.
type Janitor struct {
	store *Store
	ttl   time.Duration
	cron  *cron.Cron
}

// NewJanitor schedules purges of files older than ttl. schedule is a
// standard five field cron expression or a descriptor such as "@hourly".
func NewJanitor(store *Store, ttl time.Duration, schedule string) (*Janitor, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("static file ttl must be positive")
	}
	j := &Janitor{store: store, ttl: ttl, cron: cron.New()}
	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start runs the schedule in the background.
func (j *Janitor) Start() { j.cron.Start() }

// Stop stops the schedule. The returned context is done once a running
// purge has finished.
func (j *Janitor) Stop() context.Context { return j.cron.Stop() }

// RunOnce purges expired files now.
func (j *Janitor) RunOnce() {
	n, err := j.store.Purge(j.ttl, time.Now())
	if n > 0 {
		observability.StaticFilesPurged.Add(float64(n))
	}
	if err != nil {
		slog.Warn("purging generated files failed", "dir", j.store.Dir(), "removed", n, "error", err)
		return
	}
	if n > 0 {
		slog.Info("purged generated files", "dir", j.store.Dir(), "removed", n)
	}
}
