package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

// AlertsRepository persists alerts and enforces the store-level dedup gate.
type AlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertsRepository creates an AlertsRepository.
func NewAlertsRepository(db *sql.DB, logger *zap.Logger) *AlertsRepository {
	return &AlertsRepository{db: db, logger: logger}
}

// AlertFilters narrows alert queries.
type AlertFilters struct {
	Resident     *string
	Type         *models.AnomalyType
	Severity     *models.Severity
	Acknowledged *bool
	Since        *time.Time
	Limit        int
}

const alertColumns = `
	alert_id,
	household_id,
	resident,
	anomaly_type,
	severity,
	title,
	message,
	context,
	triggered_at,
	acknowledged,
	acked_at,
	created_at`

// TryInsertAlert inserts an alert unless an unacknowledged alert with the
// same dedup key (type, resident, household) was already triggered inside
// the cooldown window. The check and the insert are one statement, so two
// concurrent raisers cannot both pass; this is the authoritative dedup
// gate behind the in-memory cooldown optimization.
func (r *AlertsRepository) TryInsertAlert(ctx context.Context, alert *models.Alert, cooldown time.Duration) (bool, error) {
	if alert == nil {
		return false, fmt.Errorf("alert is required")
	}
	if alert.AlertID == "" {
		return false, fmt.Errorf("alert_id is required")
	}
	if alert.HouseholdID == "" {
		return false, fmt.Errorf("household_id is required")
	}

	cutoff := alert.Timestamp.Add(-cooldown)

	query := `
		INSERT INTO alerts (
			alert_id,
			household_id,
			resident,
			anomaly_type,
			severity,
			title,
			message,
			context,
			triggered_at,
			acknowledged,
			created_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10
		WHERE NOT EXISTS (
			SELECT 1 FROM alerts
			WHERE household_id = $2
			  AND resident = $3
			  AND anomaly_type = $4
			  AND acknowledged = FALSE
			  AND triggered_at > $11
		)
	`

	var inserted bool
	err := withRetry(ctx, r.logger, "try_insert_alert", func() error {
		result, err := r.db.ExecContext(ctx, query,
			alert.AlertID,
			alert.HouseholdID,
			alert.Resident,
			string(alert.Type),
			string(alert.Severity),
			alert.Title,
			alert.Message,
			alert.Context,
			alert.Timestamp,
			alert.CreatedAt,
			cutoff,
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
		return false, fmt.Errorf("failed to insert alert: %w", err)
	}
	return inserted, nil
}

// GetLatestAlerts returns a household's alerts newest first.
func (r *AlertsRepository) GetLatestAlerts(ctx context.Context, householdID string, filters AlertFilters) ([]models.Alert, error) {
	if householdID == "" {
		return nil, fmt.Errorf("household_id is required")
	}

	where := []string{"household_id = $1"}
	args := []interface{}{householdID}
	argN := 2

	if filters.Resident != nil {
		where = append(where, fmt.Sprintf("resident = $%d", argN))
		args = append(args, *filters.Resident)
		argN++
	}
	if filters.Type != nil {
		where = append(where, fmt.Sprintf("anomaly_type = $%d", argN))
		args = append(args, string(*filters.Type))
		argN++
	}
	if filters.Severity != nil {
		where = append(where, fmt.Sprintf("severity = $%d", argN))
		args = append(args, string(*filters.Severity))
		argN++
	}
	if filters.Acknowledged != nil {
		where = append(where, fmt.Sprintf("acknowledged = $%d", argN))
		args = append(args, *filters.Acknowledged)
		argN++
	}
	if filters.Since != nil {
		where = append(where, fmt.Sprintf("triggered_at >= $%d", argN))
		args = append(args, *filters.Since)
		argN++
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM alerts
		WHERE %s
		ORDER BY triggered_at DESC
		LIMIT $%d
	`, alertColumns, strings.Join(where, " AND "), argN)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

// AcknowledgeAlert marks an alert acknowledged. Acknowledging an already
// acknowledged alert is a no-op that still succeeds.
func (r *AlertsRepository) AcknowledgeAlert(ctx context.Context, householdID, alertID string) error {
	if householdID == "" {
		return fmt.Errorf("household_id is required")
	}
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}

	query := `
		UPDATE alerts
		SET acknowledged = TRUE,
		    acked_at = $3
		WHERE alert_id = $1
		  AND household_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, alertID, householdID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert not found: alert_id=%s, household_id=%s", alertID, householdID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (models.Alert, error) {
	var alert models.Alert
	var anomalyType, severity string
	var contextStr sql.NullString
	var ackedAt sql.NullTime

	err := row.Scan(
		&alert.AlertID,
		&alert.HouseholdID,
		&alert.Resident,
		&anomalyType,
		&severity,
		&alert.Title,
		&alert.Message,
		&contextStr,
		&alert.Timestamp,
		&alert.Acknowledged,
		&ackedAt,
		&alert.CreatedAt,
	)
	if err != nil {
		return models.Alert{}, fmt.Errorf("failed to scan alert: %w", err)
	}

	alert.Type = models.AnomalyType(anomalyType)
	alert.Severity = models.Severity(severity)
	if contextStr.Valid {
		alert.Context = contextStr.String
	}
	if ackedAt.Valid {
		alert.AckedAt = &ackedAt.Time
	}
	return alert, nil
}
