package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/models"
	"github.com/snarayanan1095/Wellnest/internal/tracker"
)

func setupCache(t *testing.T) (*Manager, *miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := config.CacheConfig{
		AlertKeyPrefix: "wellnest:household:",
		StateKeyPrefix: "wellnest:state:",
		AlertTTL:       24 * time.Hour,
		StateTTL:       5 * time.Minute,
	}
	return NewManager(cfg, client, zap.NewNop()), mr, client
}

func cachedAlert(id string) models.Alert {
	return models.Alert{
		AlertID:     id,
		HouseholdID: "house-1",
		Resident:    "margaret",
		Type:        models.AnomalyProlongedInactivity,
		Severity:    models.SeverityHigh,
		Timestamp:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestAppendAlert_NewestFirst(t *testing.T) {
	m, _, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, m.AppendAlert(ctx, cachedAlert("a1")))
	require.NoError(t, m.AppendAlert(ctx, cachedAlert("a2")))

	alerts, err := m.GetCachedAlerts(ctx, "house-1", 10)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "a2", alerts[0].AlertID)
	assert.Equal(t, "a1", alerts[1].AlertID)
}

func TestAppendAlert_TrimsToCap(t *testing.T) {
	m, _, _ := setupCache(t)
	ctx := context.Background()

	for i := 0; i < alertCacheSize+10; i++ {
		require.NoError(t, m.AppendAlert(ctx, cachedAlert(fmt.Sprintf("a%d", i))))
	}

	alerts, err := m.GetCachedAlerts(ctx, "house-1", 0)
	require.NoError(t, err)
	assert.Len(t, alerts, alertCacheSize)
	assert.Equal(t, fmt.Sprintf("a%d", alertCacheSize+9), alerts[0].AlertID)
}

func TestGetCachedAlerts_EmptyHousehold(t *testing.T) {
	m, _, _ := setupCache(t)

	alerts, err := m.GetCachedAlerts(context.Background(), "nobody-home", 10)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestGetCachedAlerts_SkipsCorruptEntries(t *testing.T) {
	m, _, client := setupCache(t)
	ctx := context.Background()

	require.NoError(t, m.AppendAlert(ctx, cachedAlert("a1")))
	require.NoError(t, client.LPush(ctx, "wellnest:household:house-1:alerts", "{not json").Err())

	alerts, err := m.GetCachedAlerts(ctx, "house-1", 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "a1", alerts[0].AlertID)
}

func TestStateSnapshotRoundTrip(t *testing.T) {
	m, _, _ := setupCache(t)
	ctx := context.Background()

	wake := 435
	views := []tracker.StateView{{
		HouseholdID:     "house-1",
		Resident:        "margaret",
		CurrentLocation: "kitchen",
		Day:             "2026-08-20",
		WakeDetected:    true,
		WakeMinute:      &wake,
		TotalEvents:     12,
	}}

	require.NoError(t, m.PutStateSnapshot(ctx, "house-1", views))

	got, err := m.GetStateSnapshot(ctx, "house-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kitchen", got[0].CurrentLocation)
	require.NotNil(t, got[0].WakeMinute)
	assert.Equal(t, 435, *got[0].WakeMinute)
}

func TestGetStateSnapshot_Missing(t *testing.T) {
	m, _, _ := setupCache(t)

	views, err := m.GetStateSnapshot(context.Background(), "house-1")
	require.NoError(t, err)
	assert.Nil(t, views)
}

func TestStateSnapshot_TTL(t *testing.T) {
	m, mr, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, m.PutStateSnapshot(ctx, "house-1", []tracker.StateView{{HouseholdID: "house-1"}}))

	mr.FastForward(6 * time.Minute)

	views, err := m.GetStateSnapshot(ctx, "house-1")
	require.NoError(t, err)
	assert.Nil(t, views, "snapshot expires after its TTL")
}
