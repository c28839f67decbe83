package models

import (
	"fmt"
	"time"
)

// DayStartHour is the local-day boundary: activity before 04:00 belongs to
// the previous day's routine, so late-night wandering is not counted as an
// early wake-up.
const DayStartHour = 4

// LocalDay returns the routine-day label ("2006-01-02") for a timestamp,
// applying the 4 AM boundary in the given location.
func LocalDay(ts time.Time, loc *time.Location) string {
	local := ts.In(loc)
	if local.Hour() < DayStartHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format("2006-01-02")
}

// DayBounds returns the [start, end) instants of a routine day label
// in the given location.
func DayBounds(day string, loc *time.Location) (time.Time, time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid day %q: %w", day, err)
	}
	start := d.Add(DayStartHour * time.Hour)
	return start, start.AddDate(0, 0, 1), nil
}

// FormatMinute renders minutes-since-midnight as "HH:MM".
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// DailyRoutine summarizes one household's activity for one routine day
// (4 AM to 4 AM). Time-of-day fields are minutes since local midnight and
// nil when the milestone was never observed. Immutable once written.
type DailyRoutine struct {
	HouseholdID        string    `json:"household_id" db:"household_id"`
	Day                string    `json:"day" db:"day"`
	WakeMinute         *int      `json:"wake_minute" db:"wake_minute"`
	BedMinute          *int      `json:"bed_minute" db:"bed_minute"`
	FirstKitchenMinute *int      `json:"first_kitchen_minute" db:"first_kitchen_minute"`
	BathroomVisits     int       `json:"bathroom_visits" db:"bathroom_visits"`
	ActiveMinutes      int       `json:"active_minutes" db:"active_minutes"`
	TotalEvents        int       `json:"total_events" db:"total_events"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// Metric names the per-household statistics tracked by baselines.
type Metric string

const (
	MetricWakeTime     Metric = "wake_time"
	MetricBedTime      Metric = "bed_time"
	MetricFirstKitchen Metric = "first_kitchen_time"
	MetricBathroom     Metric = "bathroom_visits"
	MetricActiveTime   Metric = "active_minutes"
	MetricTotalEvents  Metric = "total_events"
)

// AllMetrics lists every metric a learner run recomputes.
var AllMetrics = []Metric{
	MetricWakeTime,
	MetricBedTime,
	MetricFirstKitchen,
	MetricBathroom,
	MetricActiveTime,
	MetricTotalEvents,
}

// IsTimeOfDay reports whether a metric's values are minutes since midnight.
func (m Metric) IsTimeOfDay() bool {
	switch m {
	case MetricWakeTime, MetricBedTime, MetricFirstKitchen:
		return true
	}
	return false
}

// Baseline is the statistical expectation for one household metric, computed
// over the most recent routine window. SampleCount doubles as the
// data-quality score that gates which rules may evaluate against it.
type Baseline struct {
	HouseholdID string    `json:"household_id" db:"household_id"`
	Metric      Metric    `json:"metric" db:"metric"`
	Mean        float64   `json:"mean" db:"mean"`
	Median      float64   `json:"median" db:"median"`
	StdDev      float64   `json:"std_dev" db:"std_dev"`
	Min         float64   `json:"min" db:"min"`
	Max         float64   `json:"max" db:"max"`
	SampleCount int       `json:"sample_count" db:"sample_count"`
	WindowDays  int       `json:"window_days" db:"window_days"`
	ComputedAt  time.Time `json:"computed_at" db:"computed_at"`
}

// BaselineSet is one household's complete published baseline snapshot.
// It is replaced wholesale, never mutated in place, so readers always see
// an internally consistent set.
type BaselineSet struct {
	HouseholdID string
	Metrics     map[Metric]Baseline
	ComputedAt  time.Time
}

// Get returns the baseline for a metric, with ok=false when the metric has
// no published baseline yet.
func (s *BaselineSet) Get(m Metric) (Baseline, bool) {
	if s == nil {
		return Baseline{}, false
	}
	b, ok := s.Metrics[m]
	return b, ok
}
