// Package learner reconstructs each household's daily routine from the
// event log and folds the recent routines into refreshed baselines. It is
// a batch process, independent of the hot path: its only output is the
// published baseline snapshot.
package learner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/snarayanan1095/Wellnest/internal/baseline"
	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/models"
)

// EventSource reads the historical event log.
type EventSource interface {
	ListHouseholds(ctx context.Context) ([]string, error)
	ReadEventsForRange(ctx context.Context, householdID string, start, end time.Time) ([]models.Event, error)
}

// RoutineStore persists extracted daily routines.
type RoutineStore interface {
	WriteDailyRoutine(ctx context.Context, routine *models.DailyRoutine) error
	GetRecentRoutines(ctx context.Context, householdID string, limit int) ([]models.DailyRoutine, error)
}

// BaselineWriter persists a household's replacement baseline set.
type BaselineWriter interface {
	WriteBaselines(ctx context.Context, set *models.BaselineSet) error
}

// Summary reports the outcome of one learner run, returned to manual
// trigger callers instead of an opaque error.
type Summary struct {
	HouseholdsProcessed int `json:"households_processed"`
	RoutinesCreated     int `json:"daily_routines_created"`
	BaselinesUpdated    int `json:"baselines_updated"`
	Failures            int `json:"failures"`
}

// ErrAlreadyRunning is returned when a manual trigger overlaps the
// scheduled run; the learner never executes concurrently with itself.
var ErrAlreadyRunning = fmt.Errorf("routine learning already in progress")

// Learner is the scheduled batch process.
type Learner struct {
	cfg       config.LearnerConfig
	events    EventSource
	routines  RoutineStore
	baselines BaselineWriter
	snapshot  *baseline.Store
	loc       *time.Location
	logger    *zap.Logger

	runMu sync.Mutex
	now   func() time.Time
}

// New creates a Learner.
func New(
	cfg config.LearnerConfig,
	events EventSource,
	routines RoutineStore,
	baselines BaselineWriter,
	snapshot *baseline.Store,
	loc *time.Location,
	logger *zap.Logger,
) *Learner {
	return &Learner{
		cfg:       cfg,
		events:    events,
		routines:  routines,
		baselines: baselines,
		snapshot:  snapshot,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs the daily schedule until the context is cancelled. A failed
// run is logged and retried at the next scheduled time, never immediately.
func (l *Learner) Start(ctx context.Context) {
	for {
		next := l.nextRun()
		l.logger.Info("Routine learner scheduled",
			zap.Time("next_run", next),
		)

		select {
		case <-ctx.Done():
			l.logger.Info("Routine learner stopped")
			return
		case <-time.After(time.Until(next)):
		}

		summary, err := l.Run(ctx)
		if err != nil {
			l.logger.Error("Scheduled routine learning failed",
				zap.Error(err),
			)
			continue
		}
		l.logger.Info("Routine learning completed",
			zap.Int("households_processed", summary.HouseholdsProcessed),
			zap.Int("routines_created", summary.RoutinesCreated),
			zap.Int("baselines_updated", summary.BaselinesUpdated),
			zap.Int("failures", summary.Failures),
		)
	}
}

// nextRun computes the next scheduled local run time.
func (l *Learner) nextRun() time.Time {
	now := l.now().In(l.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(),
		l.cfg.RunAtHour, l.cfg.RunAtMinute, 0, 0, l.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run processes every household once: extract yesterday's routine, refresh
// baselines, publish the new snapshot. A failure in one household is
// isolated and counted; the run continues with the others.
func (l *Learner) Run(ctx context.Context) (Summary, error) {
	if !l.runMu.TryLock() {
		return Summary{}, ErrAlreadyRunning
	}
	defer l.runMu.Unlock()

	day := l.previousDay()

	households, err := l.events.ListHouseholds(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list households: %w", err)
	}

	var processed, created, updated, failures int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.maxParallel())
	for _, householdID := range households {
		householdID := householdID
		g.Go(func() error {
			routineWritten, baselineWritten, err := l.processHousehold(gctx, householdID, day)
			if err != nil {
				// Isolated: log, count, keep the previous baseline intact.
				atomic.AddInt64(&failures, 1)
				l.logger.Error("Failed to process household",
					zap.String("household_id", householdID),
					zap.String("day", day),
					zap.Error(err),
				)
				return nil
			}
			atomic.AddInt64(&processed, 1)
			if routineWritten {
				atomic.AddInt64(&created, 1)
			}
			if baselineWritten {
				atomic.AddInt64(&updated, 1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	return Summary{
		HouseholdsProcessed: int(processed) + int(failures),
		RoutinesCreated:     int(created),
		BaselinesUpdated:    int(updated),
		Failures:            int(failures),
	}, nil
}

// previousDay returns the routine-day label for yesterday (the most recent
// complete 4 AM to 4 AM window).
func (l *Learner) previousDay() string {
	return models.LocalDay(l.now().AddDate(0, 0, -1), l.loc)
}

func (l *Learner) maxParallel() int {
	if l.cfg.MaxParallel > 0 {
		return l.cfg.MaxParallel
	}
	return 1
}

// processHousehold is one cancellable unit of work. Any error before the
// final publish discards the partial result; the previously published
// baseline stays valid.
func (l *Learner) processHousehold(ctx context.Context, householdID, day string) (routineWritten, baselineWritten bool, err error) {
	start, end, err := models.DayBounds(day, l.loc)
	if err != nil {
		return false, false, err
	}

	events, err := l.events.ReadEventsForRange(ctx, householdID, start, end)
	if err != nil {
		return false, false, fmt.Errorf("failed to read events: %w", err)
	}

	if len(events) > 0 {
		routine := extractRoutine(householdID, day, events, l.loc, l.cfg.GapThreshold)
		if err := l.routines.WriteDailyRoutine(ctx, routine); err != nil {
			return false, false, err
		}
		routineWritten = true
	} else {
		l.logger.Debug("No events for household, skipping routine",
			zap.String("household_id", householdID),
			zap.String("day", day),
		)
	}

	recent, err := l.routines.GetRecentRoutines(ctx, householdID, l.cfg.WindowDays)
	if err != nil {
		return routineWritten, false, err
	}
	if len(recent) == 0 {
		return routineWritten, false, nil
	}

	set := computeBaselines(householdID, recent, l.cfg.WindowDays, l.now().UTC())
	if len(set.Metrics) == 0 {
		return routineWritten, false, nil
	}

	if err := l.baselines.WriteBaselines(ctx, set); err != nil {
		return routineWritten, false, err
	}

	// Publish last: the in-memory snapshot flips only after the durable
	// write succeeded, and flips atomically by reference.
	l.snapshot.Publish(set)
	return routineWritten, true, nil
}
