// Package sweeper periodically releases expired task reservations.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/taskdeck/taskdeck/internal/engine"
	"github.com/taskdeck/taskdeck/internal/types"
)

// Actor is the synthetic agent id recorded on auto-released tasks.
const Actor = "system:sweeper"

// defaultBatchSize bounds how many expired reservations one sweep
// releases; the writer lock is taken per task, never across the batch.
const defaultBatchSize = 100

// Sweeper scans for in_progress tasks whose reservation exceeded the
// stale timeout and releases them one transaction at a time.
type Sweeper struct {
	engine *engine.Engine

	// Interval between sweeps. Capped at a quarter of the stale timeout
	// so detection never lags more than 25% past the deadline.
	Interval time.Duration
	// BatchSize bounds releases per sweep.
	BatchSize int
	// Logger receives per-task failures and sweep summaries.
	Logger *log.Logger
}

// New builds a sweeper over the engine's stale timeout.
func New(eng *engine.Engine, interval time.Duration) *Sweeper {
	maxInterval := eng.StaleTimeout / 4
	if interval <= 0 || interval > maxInterval {
		interval = maxInterval
	}
	return &Sweeper{
		engine:    eng,
		Interval:  interval,
		BatchSize: defaultBatchSize,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := s.Sweep(ctx)
			if err != nil {
				s.logf("sweep failed: %v", err)
			} else if released > 0 {
				s.logf("sweep released %d stale reservations", released)
			}
		}
	}
}

// Sweep runs one pass and returns the number of reservations released.
// Per-task failures are logged and skipped; a task that completed or
// unlocked between the scan and its release transaction is not an error.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	batch := s.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	stale, err := s.engine.Store().GetStaleTasks(ctx, types.StaleFilter{
		OlderThan: s.engine.StaleTimeout,
		Limit:     batch,
	})
	if err != nil {
		return 0, err
	}

	released := 0
	for _, task := range stale {
		if ctx.Err() != nil {
			return released, ctx.Err()
		}
		if _, err := s.engine.ReleaseStale(ctx, task.ID, Actor); err != nil {
			// The holder beat us to it.
			if types.IsKind(err, types.KindInvalidTransition) || types.IsKind(err, types.KindNotFound) {
				continue
			}
			s.logf("failed to release stale task %d: %v", task.ID, err)
			continue
		}
		released++
	}
	return released, nil
}

func (s *Sweeper) logf(format string, args ...any) {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
