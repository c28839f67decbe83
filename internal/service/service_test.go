package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/models"
	"github.com/snarayanan1095/Wellnest/internal/normalizer"
	"github.com/snarayanan1095/Wellnest/internal/repository"
)

func testServiceConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Detector = config.DetectorConfig{
		CooldownMinutes:      45,
		InactivityThreshold:  2 * time.Hour,
		KitchenMarginMinutes: 30,
		SigmaWarn:            1.5,
		SigmaCritical:        2.5,
		MinSigmaMinutes:      10,
		PercentWarn:          25,
		PercentHigh:          50,
		MinSamples:           3,
		SweepInterval:        10 * time.Minute,
	}
	cfg.Learner = config.LearnerConfig{
		RunAtHour:    1,
		WindowDays:   7,
		GapThreshold: 30 * time.Minute,
		MaxParallel:  2,
		Timezone:     "UTC",
	}
	cfg.Cache = config.CacheConfig{
		AlertKeyPrefix: "wellnest:household:",
		StateKeyPrefix: "wellnest:state:",
		AlertTTL:       time.Hour,
		StateTTL:       5 * time.Minute,
	}
	cfg.Ingest.Workers = 2
	cfg.Ingest.QueueSize = 16
	return cfg
}

func setupService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	// Startup warm load finds no persisted baselines.
	mock.ExpectQuery(`SELECT(.|\s)+FROM baselines`).
		WillReturnRows(sqlmock.NewRows([]string{
			"household_id", "metric", "mean", "median", "std_dev",
			"min", "max", "sample_count", "window_days", "computed_at",
		}))

	svc, err := NewWithDeps(testServiceConfig(), db, client, zap.NewNop())
	require.NoError(t, err)
	return svc, mock
}

func testReading() models.RawReading {
	return models.RawReading{
		HouseholdID: "house-1",
		SensorID:    "sensor-k-01",
		SensorType:  "motion",
		Location:    "kitchen",
		Resident:    "margaret",
		Timestamp:   "2026-08-20T08:05:00Z",
		Value:       "true",
	}
}

func TestIngest_HappyPath(t *testing.T) {
	svc, mock := setupService(t)

	mock.ExpectExec(`INSERT INTO events`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event, err := svc.Ingest(context.Background(), testReading())
	require.NoError(t, err)
	assert.Len(t, event.EventID, 16)
	assert.Equal(t, models.SensorMotion, event.SensorType)

	states := svc.ResidentStates("house-1")
	require.Len(t, states, 1)
	assert.Equal(t, "kitchen", states[0].CurrentLocation)
	assert.True(t, states[0].KitchenVisited)
	assert.Equal(t, 1, states[0].TotalEvents)
}

func TestIngest_ValidationErrorOnly(t *testing.T) {
	svc, _ := setupService(t)

	raw := testReading()
	raw.Timestamp = "yesterday"

	_, err := svc.Ingest(context.Background(), raw)
	var verr *normalizer.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "timestamp", verr.Field)

	assert.Empty(t, svc.ResidentStates("house-1"), "rejected reading must not touch state")
}

func TestIngest_DuplicateShortCircuits(t *testing.T) {
	svc, mock := setupService(t)

	mock.ExpectExec(`INSERT INTO events`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Second ingest of the same reading: idempotent store insert, no rules.
	mock.ExpectExec(`INSERT INTO events`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.Ingest(context.Background(), testReading())
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), testReading())
	require.NoError(t, err)

	states := svc.ResidentStates("house-1")
	require.Len(t, states, 1)
	assert.Equal(t, 1, states[0].TotalEvents, "duplicate must not double count")
}

func TestIngest_StoreFailureDoesNotBlockPipeline(t *testing.T) {
	svc, mock := setupService(t)

	mock.ExpectExec(`INSERT INTO events`).
		WillReturnError(assert.AnError)

	event, err := svc.Ingest(context.Background(), testReading())
	require.NoError(t, err, "a store outage must not reject the reading")
	assert.NotEmpty(t, event.EventID)

	states := svc.ResidentStates("house-1")
	require.Len(t, states, 1)
	assert.Equal(t, 1, states[0].TotalEvents, "live state still updates")
}

func TestIngest_AlertFanout(t *testing.T) {
	svc, mock := setupService(t)

	// Publish a wake baseline so the deviation rule can fire, then ingest a
	// wildly late wake-up.
	svc.baselines.Publish(&models.BaselineSet{
		HouseholdID: "house-1",
		Metrics: map[models.Metric]models.Baseline{
			models.MetricWakeTime: {
				HouseholdID: "house-1",
				Metric:      models.MetricWakeTime,
				Mean:        420,
				StdDev:      15,
				SampleCount: 7,
			},
		},
	})

	sub := svc.Subscribe("house-1")
	defer svc.Unsubscribe("house-1", sub.ID)

	mock.ExpectExec(`INSERT INTO events`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	raw := testReading()
	raw.SensorID = "bed-01"
	raw.SensorType = "bed_presence"
	raw.Location = "bedroom"
	raw.Timestamp = "2026-08-20T09:30:00Z" // 09:30 against a 07:00 baseline
	raw.Value = "false"

	_, err := svc.Ingest(context.Background(), raw)
	require.NoError(t, err)

	select {
	case alert := <-sub.C:
		assert.Equal(t, models.AnomalyWakeTimeDeviation, alert.Type)
		assert.Equal(t, models.SeverityCritical, alert.Severity)
	default:
		t.Fatal("subscriber received no alert")
	}

	// The alert is also in the dashboard cache.
	cached, err := svc.GetLatestAlerts(context.Background(), "house-1", repository.AlertFilters{})
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, models.AnomalyWakeTimeDeviation, cached[0].Type)
}

func TestGetLatestAlerts_FilteredQueriesBypassCache(t *testing.T) {
	svc, mock := setupService(t)

	severity := models.SeverityHigh
	mock.ExpectQuery(`SELECT(.|\s)+FROM alerts`).
		WillReturnRows(sqlmock.NewRows([]string{
			"alert_id", "household_id", "resident", "anomaly_type", "severity",
			"title", "message", "context", "triggered_at", "acknowledged",
			"acked_at", "created_at",
		}))

	_, err := svc.GetLatestAlerts(context.Background(), "house-1", repository.AlertFilters{
		Severity: &severity,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcknowledgeAlert_Passthrough(t *testing.T) {
	svc, mock := setupService(t)

	mock.ExpectExec(`UPDATE alerts`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.AcknowledgeAlert(context.Background(), "house-1", "alert-1")
	assert.NoError(t, err)
}

func TestEnqueue_DropsWhenFull(t *testing.T) {
	svc, _ := setupService(t)

	// Workers are not started; fill the queue past its capacity.
	for i := 0; i < 20; i++ {
		svc.Enqueue(testReading())
	}
	assert.Len(t, svc.queue, 16, "overflow is dropped, not blocking")
}
