package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

// EventsRepository persists the append-only sensor event log.
type EventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEventsRepository creates an EventsRepository.
func NewEventsRepository(db *sql.DB, logger *zap.Logger) *EventsRepository {
	return &EventsRepository{db: db, logger: logger}
}

// InsertEvent appends an event. Inserting an event id that already exists
// is a silent no-op (ON CONFLICT DO NOTHING), which makes ingestion
// idempotent at the store level. Returns whether a row was written.
func (r *EventsRepository) InsertEvent(ctx context.Context, event *models.Event) (bool, error) {
	if event == nil {
		return false, fmt.Errorf("event is required")
	}
	if event.EventID == "" {
		return false, fmt.Errorf("event_id is required")
	}

	query := `
		INSERT INTO events (
			event_id,
			household_id,
			sensor_id,
			sensor_type,
			location,
			resident,
			timestamp,
			value
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (event_id) DO NOTHING
	`

	var inserted bool
	err := withRetry(ctx, r.logger, "insert_event", func() error {
		result, err := r.db.ExecContext(ctx, query,
			event.EventID,
			event.HouseholdID,
			event.SensorID,
			string(event.SensorType),
			event.Location,
			event.Resident,
			event.Timestamp,
			event.Value,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		inserted = rows > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}
	return inserted, nil
}

// ReadEventsForRange returns a household's events with timestamp in
// [start, end), ordered by timestamp ascending.
func (r *EventsRepository) ReadEventsForRange(ctx context.Context, householdID string, start, end time.Time) ([]models.Event, error) {
	if householdID == "" {
		return nil, fmt.Errorf("household_id is required")
	}

	query := `
		SELECT
			event_id,
			household_id,
			sensor_id,
			sensor_type,
			location,
			resident,
			timestamp,
			value
		FROM events
		WHERE household_id = $1
		  AND timestamp >= $2
		  AND timestamp < $3
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, householdID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		var sensorType string
		err := rows.Scan(
			&event.EventID,
			&event.HouseholdID,
			&event.SensorID,
			&sensorType,
			&event.Location,
			&event.Resident,
			&event.Timestamp,
			&event.Value,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.SensorType = models.SensorType(sensorType)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// ListHouseholds returns the distinct household ids present in the event
// log, used by the routine learner to enumerate its work.
func (r *EventsRepository) ListHouseholds(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT household_id FROM events ORDER BY household_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list households: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan household id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate households: %w", err)
	}

	return ids, nil
}
