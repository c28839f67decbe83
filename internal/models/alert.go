package models

import (
	"fmt"
	"time"
)

// Severity levels for alerts, ordered from least to most severe.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AnomalyType identifies the behavioral rule that raised an alert.
// It is one leg of the dedup key, so values must stay stable.
type AnomalyType string

const (
	AnomalyProlongedInactivity AnomalyType = "prolonged_inactivity"
	AnomalyMissedKitchen       AnomalyType = "missed_kitchen_activity"
	AnomalyWakeTimeDeviation   AnomalyType = "wake_time_deviation"
	AnomalyBedTimeDeviation    AnomalyType = "bed_time_deviation"
	AnomalyBathroomFrequency   AnomalyType = "bathroom_frequency_deviation"
	AnomalyActivityFrequency   AnomalyType = "activity_frequency_deviation"
)

// alertTitles maps anomaly types to the dashboard-facing title.
var alertTitles = map[AnomalyType]string{
	AnomalyProlongedInactivity: "No Movement Detected",
	AnomalyMissedKitchen:       "Missed Breakfast Activity",
	AnomalyWakeTimeDeviation:   "Unusual Wake-Up Time",
	AnomalyBedTimeDeviation:    "Unusual Bed Time",
	AnomalyBathroomFrequency:   "Unusual Bathroom Frequency",
	AnomalyActivityFrequency:   "Unusual Activity Level",
}

// TitleFor returns the display title for an anomaly type.
func TitleFor(t AnomalyType) string {
	if title, ok := alertTitles[t]; ok {
		return title
	}
	return "Wellness Alert"
}

// Alert is a raised anomaly for one resident of one household.
// Only the acknowledged flag (and its timestamp) mutate after creation.
type Alert struct {
	AlertID      string      `json:"alert_id" db:"alert_id"`
	HouseholdID  string      `json:"household_id" db:"household_id"`
	Resident     string      `json:"resident" db:"resident"`
	Type         AnomalyType `json:"type" db:"anomaly_type"`
	Severity     Severity    `json:"severity" db:"severity"`
	Title        string      `json:"title" db:"title"`
	Message      string      `json:"message" db:"message"`
	Context      string      `json:"context,omitempty" db:"context"`
	Timestamp    time.Time   `json:"timestamp" db:"triggered_at"`
	Acknowledged bool        `json:"acknowledged" db:"acknowledged"`
	AckedAt      *time.Time  `json:"acked_at,omitempty" db:"acked_at"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// DedupKey is the (type, resident, household) tuple used for cooldown
// suppression of repeated alerts for the same ongoing condition.
func (a Alert) DedupKey() string {
	return fmt.Sprintf("%s|%s|%s", a.Type, a.Resident, a.HouseholdID)
}
