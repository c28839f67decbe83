package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

func TestWriteBaselines_ReplacesAtomically(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewBaselinesRepository(db, zap.NewNop())

	computed := time.Now().UTC()
	set := &models.BaselineSet{
		HouseholdID: "house-1",
		ComputedAt:  computed,
		Metrics: map[models.Metric]models.Baseline{
			models.MetricWakeTime: {
				HouseholdID: "house-1",
				Metric:      models.MetricWakeTime,
				Mean:        420,
				Median:      418,
				StdDev:      15,
				Min:         400,
				Max:         450,
				SampleCount: 7,
				WindowDays:  7,
				ComputedAt:  computed,
			},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM baselines`).
		WithArgs("house-1").
		WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectExec(`INSERT INTO baselines`).
		WithArgs("house-1", "wake_time", 420.0, 418.0, 15.0, 400.0, 450.0, 7, 7, computed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WriteBaselines(context.Background(), set)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteBaselines_RollsBackOnInsertFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewBaselinesRepository(db, zap.NewNop())

	set := &models.BaselineSet{
		HouseholdID: "house-1",
		Metrics: map[models.Metric]models.Baseline{
			models.MetricWakeTime: {HouseholdID: "house-1", Metric: models.MetricWakeTime},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM baselines`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO baselines`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.WriteBaselines(context.Background(), set)
	assert.Error(t, err)
}

func TestWriteBaselines_Validation(t *testing.T) {
	db, _ := setupMockDB(t)
	defer db.Close()
	repo := NewBaselinesRepository(db, zap.NewNop())

	assert.Error(t, repo.WriteBaselines(context.Background(), nil))
	assert.Error(t, repo.WriteBaselines(context.Background(), &models.BaselineSet{}))
}

func TestLoadBaselines_GroupsByHousehold(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewBaselinesRepository(db, zap.NewNop())

	computed := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"household_id", "metric", "mean", "median", "std_dev",
		"min", "max", "sample_count", "window_days", "computed_at",
	}).
		AddRow("house-1", "wake_time", 420.0, 418.0, 15.0, 400.0, 450.0, 7, 7, computed).
		AddRow("house-1", "bathroom_visits", 4.0, 4.0, 1.0, 2.0, 6.0, 7, 7, computed).
		AddRow("house-2", "wake_time", 380.0, 380.0, 5.0, 370.0, 390.0, 5, 7, computed)

	mock.ExpectQuery(`SELECT(.|\s)+FROM baselines`).
		WillReturnRows(rows)

	sets, err := repo.LoadBaselines(context.Background())
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Equal(t, "house-1", sets[0].HouseholdID)
	assert.Len(t, sets[0].Metrics, 2)

	wake, ok := sets[0].Get(models.MetricWakeTime)
	require.True(t, ok)
	assert.InDelta(t, 420, wake.Mean, 0.001)

	assert.Equal(t, "house-2", sets[1].HouseholdID)
	assert.Len(t, sets[1].Metrics, 1)
}

func TestLoadBaselines_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewBaselinesRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT(.|\s)+FROM baselines`).
		WillReturnRows(sqlmock.NewRows([]string{
			"household_id", "metric", "mean", "median", "std_dev",
			"min", "max", "sample_count", "window_days", "computed_at",
		}))

	sets, err := repo.LoadBaselines(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sets)
}
