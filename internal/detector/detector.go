// Package detector evaluates events and live resident state against the
// published baselines and decides whether to raise, suppress, or resolve
// alerts. Each rule lives in its own file; a failure inside one rule is
// logged and never stops the others.
package detector

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/baseline"
	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/models"
	"github.com/snarayanan1095/Wellnest/internal/tracker"
)

// AlertStore is the persistence gate for raised alerts. TryInsertAlert
// must be atomic: it returns false when an unacknowledged alert with the
// same dedup key already exists inside the cooldown window.
type AlertStore interface {
	TryInsertAlert(ctx context.Context, alert *models.Alert, cooldown time.Duration) (bool, error)
}

// finding is a rule's verdict before dedup and persistence.
type finding struct {
	Type     models.AnomalyType
	Severity models.Severity
	Message  string
	Context  string
}

// Engine is the anomaly detection engine.
type Engine struct {
	cfg       config.DetectorConfig
	tracker   *tracker.Tracker
	baselines *baseline.Store
	alerts    AlertStore
	logger    *zap.Logger
	loc       *time.Location

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(
	cfg config.DetectorConfig,
	trk *tracker.Tracker,
	baselines *baseline.Store,
	alerts AlertStore,
	loc *time.Location,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		tracker:   trk,
		baselines: baselines,
		alerts:    alerts,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
}

// Evaluate runs the event-driven rules against a state delta and returns
// the alerts that survived dedup and were persisted. Duplicate events are
// ignored entirely.
func (e *Engine) Evaluate(ctx context.Context, delta tracker.StateDelta) []models.Alert {
	if delta.Duplicate {
		return nil
	}

	householdID := delta.Event.HouseholdID
	resident := delta.Event.Resident
	set := e.baselines.Get(householdID)

	// Fresh activity resolves a pending inactivity condition immediately,
	// without waiting for the cooldown to elapse.
	if delta.Event.IsActivity() && delta.Event.BoolValue() {
		e.tracker.ClearAlert(householdID, resident, models.AnomalyProlongedInactivity)
	}

	var findings []finding
	findings = append(findings, e.runRule(ctx, "time_of_day", func() []finding {
		return evalTimeOfDay(e.cfg, delta, set)
	})...)
	findings = append(findings, e.runRule(ctx, "frequency", func() []finding {
		return evalFrequency(e.cfg, delta, set)
	})...)

	return e.raiseAll(ctx, householdID, resident, findings, delta.Event.Timestamp)
}

// Sweep runs the clock-driven rules (prolonged inactivity, missed expected
// activity) over every live resident state. These need no fresh event and
// fire from a periodic ticker.
func (e *Engine) Sweep(ctx context.Context) []models.Alert {
	now := e.now().UTC()
	var raised []models.Alert

	for _, householdID := range e.tracker.Households() {
		set := e.baselines.Get(householdID)
		for _, view := range e.tracker.Snapshot(householdID) {
			view := view
			var findings []finding
			findings = append(findings, e.runRule(ctx, "inactivity", func() []finding {
				return evalInactivity(e.cfg, view, now)
			})...)
			findings = append(findings, e.runRule(ctx, "missed_activity", func() []finding {
				return evalMissedActivity(e.cfg, view, set, now, e.loc)
			})...)

			raised = append(raised, e.raiseAll(ctx, view.HouseholdID, view.Resident, findings, now)...)
		}
	}
	return raised
}

// runRule executes one rule with partial-failure isolation: a panic or
// error inside the rule is logged and yields no findings.
func (e *Engine) runRule(_ context.Context, name string, fn func() []finding) (out []finding) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Rule evaluation panicked",
				zap.String("rule", name),
				zap.Any("panic", r),
			)
			out = nil
		}
	}()
	return fn()
}

// raiseAll pushes findings through the two-phase dedup gate and persists
// the survivors.
func (e *Engine) raiseAll(ctx context.Context, householdID, resident string, findings []finding, at time.Time) []models.Alert {
	var raised []models.Alert
	for _, f := range findings {
		alert, ok := e.raise(ctx, householdID, resident, f, at)
		if ok {
			raised = append(raised, alert)
		}
	}
	return raised
}

// raise applies the cooldown dedup in two phases: a fast in-memory check,
// then the atomic conditional insert at the store. The store is the
// authoritative gate; the in-memory check only saves round trips.
func (e *Engine) raise(ctx context.Context, householdID, resident string, f finding, at time.Time) (models.Alert, bool) {
	cooldown := time.Duration(e.cfg.CooldownMinutes) * time.Minute

	if e.tracker.InCooldown(householdID, resident, f.Type, at, cooldown) {
		e.logger.Debug("Alert suppressed by cooldown",
			zap.String("household_id", householdID),
			zap.String("resident", resident),
			zap.String("type", string(f.Type)),
		)
		return models.Alert{}, false
	}

	alert := models.Alert{
		AlertID:     uuid.New().String(),
		HouseholdID: householdID,
		Resident:    resident,
		Type:        f.Type,
		Severity:    f.Severity,
		Title:       models.TitleFor(f.Type),
		Message:     f.Message,
		Context:     f.Context,
		Timestamp:   at,
		CreatedAt:   e.now().UTC(),
	}

	inserted, err := e.alerts.TryInsertAlert(ctx, &alert, cooldown)
	if err != nil {
		e.logger.Error("Failed to persist alert",
			zap.String("household_id", householdID),
			zap.String("type", string(f.Type)),
			zap.Error(err),
		)
		return models.Alert{}, false
	}
	if !inserted {
		// A concurrent raiser or a pre-restart alert holds the window.
		// Remember it locally so we stop asking the store.
		e.tracker.MarkAlerted(householdID, resident, f.Type, at)
		e.logger.Debug("Alert suppressed by store dedup",
			zap.String("household_id", householdID),
			zap.String("type", string(f.Type)),
		)
		return models.Alert{}, false
	}

	e.tracker.MarkAlerted(householdID, resident, f.Type, at)
	e.logger.Info("Alert raised",
		zap.String("alert_id", alert.AlertID),
		zap.String("household_id", householdID),
		zap.String("resident", resident),
		zap.String("type", string(f.Type)),
		zap.String("severity", string(f.Severity)),
	)
	return alert, true
}

// baselineFor returns a metric's baseline only when its sample count
// clears the quality gate; statistical rules stay disabled below it.
func baselineFor(cfg config.DetectorConfig, set *models.BaselineSet, metric models.Metric) (models.Baseline, bool) {
	b, ok := set.Get(metric)
	if !ok || b.SampleCount < cfg.MinSamples {
		return models.Baseline{}, false
	}
	return b, true
}
