package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

// RoutinesRepository persists the daily routine records the learner
// extracts from the event log.
type RoutinesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRoutinesRepository creates a RoutinesRepository.
func NewRoutinesRepository(db *sql.DB, logger *zap.Logger) *RoutinesRepository {
	return &RoutinesRepository{db: db, logger: logger}
}

// WriteDailyRoutine upserts a routine keyed by (household, day). Re-running
// the learner for the same day overwrites rather than duplicating.
func (r *RoutinesRepository) WriteDailyRoutine(ctx context.Context, routine *models.DailyRoutine) error {
	if routine == nil {
		return fmt.Errorf("routine is required")
	}
	if routine.HouseholdID == "" {
		return fmt.Errorf("household_id is required")
	}
	if routine.Day == "" {
		return fmt.Errorf("day is required")
	}

	query := `
		INSERT INTO daily_routines (
			household_id,
			day,
			wake_minute,
			bed_minute,
			first_kitchen_minute,
			bathroom_visits,
			active_minutes,
			total_events,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (household_id, day) DO UPDATE SET
			wake_minute = EXCLUDED.wake_minute,
			bed_minute = EXCLUDED.bed_minute,
			first_kitchen_minute = EXCLUDED.first_kitchen_minute,
			bathroom_visits = EXCLUDED.bathroom_visits,
			active_minutes = EXCLUDED.active_minutes,
			total_events = EXCLUDED.total_events
	`

	err := withRetry(ctx, r.logger, "write_daily_routine", func() error {
		_, err := r.db.ExecContext(ctx, query,
			routine.HouseholdID,
			routine.Day,
			routine.WakeMinute,
			routine.BedMinute,
			routine.FirstKitchenMinute,
			routine.BathroomVisits,
			routine.ActiveMinutes,
			routine.TotalEvents,
			routine.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write daily routine: %w", err)
	}
	return nil
}

// GetRecentRoutines returns the household's most recent routines, newest
// first, at most limit rows.
func (r *RoutinesRepository) GetRecentRoutines(ctx context.Context, householdID string, limit int) ([]models.DailyRoutine, error) {
	if householdID == "" {
		return nil, fmt.Errorf("household_id is required")
	}
	if limit <= 0 {
		limit = 7
	}

	query := `
		SELECT
			household_id,
			day,
			wake_minute,
			bed_minute,
			first_kitchen_minute,
			bathroom_visits,
			active_minutes,
			total_events,
			created_at
		FROM daily_routines
		WHERE household_id = $1
		ORDER BY day DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, householdID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query routines: %w", err)
	}
	defer rows.Close()

	var routines []models.DailyRoutine
	for rows.Next() {
		var routine models.DailyRoutine
		var wake, bed, kitchen sql.NullInt64
		err := rows.Scan(
			&routine.HouseholdID,
			&routine.Day,
			&wake,
			&bed,
			&kitchen,
			&routine.BathroomVisits,
			&routine.ActiveMinutes,
			&routine.TotalEvents,
			&routine.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan routine: %w", err)
		}
		if wake.Valid {
			m := int(wake.Int64)
			routine.WakeMinute = &m
		}
		if bed.Valid {
			m := int(bed.Int64)
			routine.BedMinute = &m
		}
		if kitchen.Valid {
			m := int(kitchen.Int64)
			routine.FirstKitchenMinute = &m
		}
		routines = append(routines, routine)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate routines: %w", err)
	}

	return routines, nil
}
