// Package service wires the core components together and runs the hot
// path: normalize, append to the event log, apply to resident state,
// evaluate anomalies, fan out raised alerts. All collaborators are
// constructor-injected; there is no ambient global state.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/baseline"
	"github.com/snarayanan1095/Wellnest/internal/broadcaster"
	"github.com/snarayanan1095/Wellnest/internal/cache"
	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/detector"
	"github.com/snarayanan1095/Wellnest/internal/learner"
	"github.com/snarayanan1095/Wellnest/internal/models"
	"github.com/snarayanan1095/Wellnest/internal/normalizer"
	"github.com/snarayanan1095/Wellnest/internal/notifier"
	"github.com/snarayanan1095/Wellnest/internal/report"
	"github.com/snarayanan1095/Wellnest/internal/repository"
	"github.com/snarayanan1095/Wellnest/internal/tracker"
)

// Service is the assembled monitoring core.
type Service struct {
	cfg    *config.Config
	logger *zap.Logger

	db          *sql.DB
	redisClient *redis.Client

	normalizer   *normalizer.Normalizer
	tracker      *tracker.Tracker
	baselines    *baseline.Store
	engine       *detector.Engine
	learner      *learner.Learner
	broadcaster  *broadcaster.Broadcaster
	cacheManager *cache.Manager
	notifier     *notifier.WebhookNotifier

	eventsRepo    *repository.EventsRepository
	alertsRepo    *repository.AlertsRepository
	routinesRepo  *repository.RoutinesRepository
	baselinesRepo *repository.BaselinesRepository

	queue   chan models.RawReading
	wg      sync.WaitGroup
	started bool
}

// New builds the service: connects PostgreSQL and Redis, constructs every
// component, and warms the baseline snapshot store from the database.
func New(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	db, err := repository.NewDB(cfg.Database.GetDSN(), cfg.Database.MaxConns, cfg.Database.MaxIdle)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	redisClient := cache.NewRedisClient(cfg.Redis)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	svc, err := NewWithDeps(cfg, db, redisClient, logger)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, err
	}
	return svc, nil
}

// NewWithDeps builds the service on existing connections. Used by New and
// by tests that inject mocks.
func NewWithDeps(cfg *config.Config, db *sql.DB, redisClient *redis.Client, logger *zap.Logger) (*Service, error) {
	loc := cfg.Location()

	eventsRepo := repository.NewEventsRepository(db, logger)
	alertsRepo := repository.NewAlertsRepository(db, logger)
	routinesRepo := repository.NewRoutinesRepository(db, logger)
	baselinesRepo := repository.NewBaselinesRepository(db, logger)

	baselines := baseline.NewStore()
	trk := tracker.New(loc, logger)
	engine := detector.NewEngine(cfg.Detector, trk, baselines, alertsRepo, loc, logger)
	lrn := learner.New(cfg.Learner, eventsRepo, routinesRepo, baselinesRepo, baselines, loc, logger)
	bcast := broadcaster.New(logger)
	cacheManager := cache.NewManager(cfg.Cache, redisClient, logger)
	webhook := notifier.NewWebhookNotifier(cfg.Notifier, logger)

	svc := &Service{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		redisClient:   redisClient,
		normalizer:    normalizer.New(),
		tracker:       trk,
		baselines:     baselines,
		engine:        engine,
		learner:       lrn,
		broadcaster:   bcast,
		cacheManager:  cacheManager,
		notifier:      webhook,
		eventsRepo:    eventsRepo,
		alertsRepo:    alertsRepo,
		routinesRepo:  routinesRepo,
		baselinesRepo: baselinesRepo,
		queue:         make(chan models.RawReading, cfg.Ingest.QueueSize),
	}

	if err := svc.warmBaselines(context.Background()); err != nil {
		// Non-fatal: statistical rules stay disabled until the learner
		// publishes fresh baselines.
		logger.Warn("Failed to warm baseline snapshots",
			zap.Error(err),
		)
	}

	return svc, nil
}

// warmBaselines loads the persisted baselines so a restart does not lose
// the statistical rules until the next learner run.
func (s *Service) warmBaselines(ctx context.Context) error {
	sets, err := s.baselinesRepo.LoadBaselines(ctx)
	if err != nil {
		return err
	}
	for _, set := range sets {
		s.baselines.Publish(set)
	}
	if len(sets) > 0 {
		s.logger.Info("Warmed baseline snapshots",
			zap.Int("households", len(sets)),
		)
	}
	return nil
}

// Start launches the ingest worker pool, the detector sweep, and the
// routine learner schedule. It returns once everything is running.
func (s *Service) Start(ctx context.Context) {
	if s.started {
		return
	}
	s.started = true

	for i := 0; i < s.cfg.Ingest.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sweepLoop(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.learner.Start(ctx)
	}()

	s.logger.Info("Service started",
		zap.Int("ingest_workers", s.cfg.Ingest.Workers),
	)
}

// Stop waits for the background goroutines and closes the connections.
// Call after cancelling the context passed to Start.
func (s *Service) Stop() {
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}
	s.logger.Info("Service stopped")
}

// worker drains the ingest queue.
func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-s.queue:
			if _, err := s.Ingest(ctx, raw); err != nil {
				// Validation failures only; anything downstream is
				// absorbed inside Ingest.
				s.logger.Warn("Queued reading rejected",
					zap.String("sensor_id", raw.SensorID),
					zap.Error(err),
				)
			}
		}
	}
}

// Enqueue hands a raw reading to the worker pool, dropping it when the
// queue is saturated rather than blocking the transport callback.
func (s *Service) Enqueue(raw models.RawReading) {
	select {
	case s.queue <- raw:
	default:
		s.logger.Error("Ingest queue full, dropping reading",
			zap.String("household_id", raw.HouseholdID),
			zap.String("sensor_id", raw.SensorID),
		)
	}
}

// EnqueueRaw adapts Enqueue to the MQTT consumer's handler signature.
func (s *Service) EnqueueRaw(_ context.Context, raw models.RawReading) error {
	s.Enqueue(raw)
	return nil
}

// Ingest runs one reading through the whole hot path. The only error it
// returns is a *normalizer.ValidationError; every downstream failure is
// logged and absorbed so one bad event never blocks the next.
func (s *Service) Ingest(ctx context.Context, raw models.RawReading) (models.Event, error) {
	event, err := s.normalizer.Normalize(raw)
	if err != nil {
		return models.Event{}, err
	}

	// Append to the durable log first (ON CONFLICT DO NOTHING makes this
	// idempotent). A store failure is logged but the live pipeline still
	// runs; the in-memory dedup keeps the counters honest.
	if _, err := s.eventsRepo.InsertEvent(ctx, &event); err != nil {
		s.logger.Error("Failed to persist event",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}

	delta := s.tracker.Apply(event)
	if delta.Duplicate {
		return event, nil
	}

	// Rule evaluation and all side effects run after the household lock
	// is released inside Apply.
	alerts := s.engine.Evaluate(ctx, delta)
	s.fanout(ctx, alerts)

	return event, nil
}

// fanout delivers raised alerts to subscribers, the dashboard cache, and
// the optional webhook. Best-effort except the broadcaster, which cannot
// fail.
func (s *Service) fanout(ctx context.Context, alerts []models.Alert) {
	for _, alert := range alerts {
		s.broadcaster.Publish(alert)

		if err := s.cacheManager.AppendAlert(ctx, alert); err != nil {
			s.logger.Warn("Failed to cache alert",
				zap.String("alert_id", alert.AlertID),
				zap.Error(err),
			)
		}

		if err := s.notifier.Notify(ctx, alert); err != nil {
			s.logger.Warn("Failed to notify webhook",
				zap.String("alert_id", alert.AlertID),
				zap.Error(err),
			)
		}
	}
}

// sweepLoop periodically runs the clock-driven rules and refreshes the
// dashboard state snapshots.
func (s *Service) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Detector.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			alerts := s.engine.Sweep(ctx)
			s.fanout(ctx, alerts)

			for _, householdID := range s.tracker.Households() {
				views := s.tracker.Snapshot(householdID)
				if err := s.cacheManager.PutStateSnapshot(ctx, householdID, views); err != nil {
					s.logger.Warn("Failed to cache state snapshot",
						zap.String("household_id", householdID),
						zap.Error(err),
					)
				}
			}
		}
	}
}

// Subscribe attaches a live alert listener to a household.
func (s *Service) Subscribe(householdID string) *broadcaster.Subscription {
	return s.broadcaster.Subscribe(householdID)
}

// Unsubscribe detaches a listener. Idempotent.
func (s *Service) Unsubscribe(householdID, subscriptionID string) {
	s.broadcaster.Unsubscribe(householdID, subscriptionID)
}

// TriggerRoutineLearning runs the learner once, outside its schedule.
func (s *Service) TriggerRoutineLearning(ctx context.Context) (learner.Summary, error) {
	return s.learner.Run(ctx)
}

// GetLatestAlerts returns a household's recent alerts. Unfiltered queries
// are served from the Redis cache when it has entries; filtered queries
// and cache misses go to PostgreSQL.
func (s *Service) GetLatestAlerts(ctx context.Context, householdID string, filters repository.AlertFilters) ([]models.Alert, error) {
	unfiltered := filters.Resident == nil && filters.Type == nil &&
		filters.Severity == nil && filters.Acknowledged == nil && filters.Since == nil

	if unfiltered {
		cached, err := s.cacheManager.GetCachedAlerts(ctx, householdID, filters.Limit)
		if err != nil {
			s.logger.Warn("Alert cache read failed, falling back to store",
				zap.String("household_id", householdID),
				zap.Error(err),
			)
		} else if len(cached) > 0 {
			return cached, nil
		}
	}

	return s.alertsRepo.GetLatestAlerts(ctx, householdID, filters)
}

// AcknowledgeAlert marks an alert handled by the dashboard.
func (s *Service) AcknowledgeAlert(ctx context.Context, householdID, alertID string) error {
	return s.alertsRepo.AcknowledgeAlert(ctx, householdID, alertID)
}

// ResidentStates returns the live state views for a household.
func (s *Service) ResidentStates(householdID string) []tracker.StateView {
	return s.tracker.Snapshot(householdID)
}

// ExportRoutineReport renders a household's routine history and current
// baselines as an xlsx workbook.
func (s *Service) ExportRoutineReport(ctx context.Context, householdID string) ([]byte, error) {
	routines, err := s.routinesRepo.GetRecentRoutines(ctx, householdID, 30)
	if err != nil {
		return nil, fmt.Errorf("failed to load routines: %w", err)
	}
	return report.GenerateRoutineReport(householdID, routines, s.baselines.Get(householdID))
}
