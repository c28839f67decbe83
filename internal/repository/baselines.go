package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

// BaselinesRepository persists per-household baseline sets. A household's
// baselines are replaced wholesale inside one transaction, matching the
// copy-on-write semantics of the in-memory snapshot store.
type BaselinesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBaselinesRepository creates a BaselinesRepository.
func NewBaselinesRepository(db *sql.DB, logger *zap.Logger) *BaselinesRepository {
	return &BaselinesRepository{db: db, logger: logger}
}

// WriteBaselines atomically replaces every baseline row of one household.
// A reader sees either the previous complete set or the new one.
func (r *BaselinesRepository) WriteBaselines(ctx context.Context, set *models.BaselineSet) error {
	if set == nil {
		return fmt.Errorf("baseline set is required")
	}
	if set.HouseholdID == "" {
		return fmt.Errorf("household_id is required")
	}

	err := withRetry(ctx, r.logger, "write_baselines", func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM baselines WHERE household_id = $1`, set.HouseholdID,
		); err != nil {
			return err
		}

		insert := `
			INSERT INTO baselines (
				household_id,
				metric,
				mean,
				median,
				std_dev,
				min,
				max,
				sample_count,
				window_days,
				computed_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
			)
		`
		for _, b := range set.Metrics {
			if _, err := tx.ExecContext(ctx, insert,
				b.HouseholdID,
				string(b.Metric),
				b.Mean,
				b.Median,
				b.StdDev,
				b.Min,
				b.Max,
				b.SampleCount,
				b.WindowDays,
				b.ComputedAt,
			); err != nil {
				return err
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("failed to write baselines: %w", err)
	}
	return nil
}

// LoadBaselines reads every household's baseline set, used to warm the
// snapshot store at startup.
func (r *BaselinesRepository) LoadBaselines(ctx context.Context) ([]*models.BaselineSet, error) {
	query := `
		SELECT
			household_id,
			metric,
			mean,
			median,
			std_dev,
			min,
			max,
			sample_count,
			window_days,
			computed_at
		FROM baselines
		ORDER BY household_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query baselines: %w", err)
	}
	defer rows.Close()

	sets := make(map[string]*models.BaselineSet)
	var order []string
	for rows.Next() {
		var b models.Baseline
		var metric string
		err := rows.Scan(
			&b.HouseholdID,
			&metric,
			&b.Mean,
			&b.Median,
			&b.StdDev,
			&b.Min,
			&b.Max,
			&b.SampleCount,
			&b.WindowDays,
			&b.ComputedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan baseline: %w", err)
		}
		b.Metric = models.Metric(metric)

		set, ok := sets[b.HouseholdID]
		if !ok {
			set = &models.BaselineSet{
				HouseholdID: b.HouseholdID,
				Metrics:     make(map[models.Metric]models.Baseline),
			}
			sets[b.HouseholdID] = set
			order = append(order, b.HouseholdID)
		}
		set.Metrics[b.Metric] = b
		if b.ComputedAt.After(set.ComputedAt) {
			set.ComputedAt = b.ComputedAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate baselines: %w", err)
	}

	result := make([]*models.BaselineSet, 0, len(order))
	for _, id := range order {
		result = append(result, sets[id])
	}
	return result, nil
}

// NewDB opens the PostgreSQL connection pool used by all repositories.
func NewDB(dsn string, maxConns, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
