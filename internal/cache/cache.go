// Package cache maintains the Redis-backed read models the dashboard
// polls: the latest alerts of a household and resident state snapshots.
// Everything here is best-effort; a cache failure is logged, never
// propagated into the hot path.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/models"
	"github.com/snarayanan1095/Wellnest/internal/tracker"
)

// alertCacheSize caps the alert list kept per household.
const alertCacheSize = 50

// Manager wraps the Redis client with the cache key layout.
type Manager struct {
	cfg    config.CacheConfig
	client *redis.Client
	logger *zap.Logger
}

// NewManager creates a cache Manager.
func NewManager(cfg config.CacheConfig, client *redis.Client, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// NewRedisClient builds the Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (m *Manager) alertKey(householdID string) string {
	return fmt.Sprintf("%s%s:alerts", m.cfg.AlertKeyPrefix, householdID)
}

func (m *Manager) stateKey(householdID string) string {
	return fmt.Sprintf("%s%s", m.cfg.StateKeyPrefix, householdID)
}

// AppendAlert pushes a raised alert onto the household's cached alert
// list, trimming it to the newest alertCacheSize entries.
func (m *Manager) AppendAlert(ctx context.Context, alert models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	key := m.alertKey(alert.HouseholdID)
	pipe := m.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, alertCacheSize-1)
	pipe.Expire(ctx, key, m.cfg.AlertTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache alert: %w", err)
	}

	m.logger.Debug("Cached alert",
		zap.String("household_id", alert.HouseholdID),
		zap.String("alert_id", alert.AlertID),
	)
	return nil
}

// GetCachedAlerts returns the household's cached alerts, newest first.
func (m *Manager) GetCachedAlerts(ctx context.Context, householdID string, limit int) ([]models.Alert, error) {
	if limit <= 0 || limit > alertCacheSize {
		limit = alertCacheSize
	}

	entries, err := m.client.LRange(ctx, m.alertKey(householdID), 0, int64(limit-1)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached alerts: %w", err)
	}

	alerts := make([]models.Alert, 0, len(entries))
	for _, entry := range entries {
		var alert models.Alert
		if err := json.Unmarshal([]byte(entry), &alert); err != nil {
			// One corrupt entry should not hide the rest.
			m.logger.Warn("Skipping corrupt cached alert",
				zap.String("household_id", householdID),
				zap.Error(err),
			)
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// PutStateSnapshot stores the household's resident state views for the
// dashboard's live view.
func (m *Manager) PutStateSnapshot(ctx context.Context, householdID string, views []tracker.StateView) error {
	data, err := json.Marshal(views)
	if err != nil {
		return fmt.Errorf("failed to marshal state snapshot: %w", err)
	}

	if err := m.client.Set(ctx, m.stateKey(householdID), data, m.cfg.StateTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache state snapshot: %w", err)
	}
	return nil
}

// GetStateSnapshot reads a household's cached resident state views.
// Returns nil without error when no snapshot is cached.
func (m *Manager) GetStateSnapshot(ctx context.Context, householdID string) ([]tracker.StateView, error) {
	data, err := m.client.Get(ctx, m.stateKey(householdID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state snapshot: %w", err)
	}

	var views []tracker.StateView
	if err := json.Unmarshal([]byte(data), &views); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state snapshot: %w", err)
	}
	return views, nil
}
