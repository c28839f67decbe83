package learner

import (
	"math"
	"sort"
	"time"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

// computeBaselines folds the most recent routines (newest first, at most
// windowDays of them) into a complete baseline set. Metrics with no
// observations in the window are omitted rather than published as zeros.
func computeBaselines(householdID string, routines []models.DailyRoutine, windowDays int, computedAt time.Time) *models.BaselineSet {
	window := routines
	if len(window) > windowDays {
		window = window[:windowDays]
	}

	set := &models.BaselineSet{
		HouseholdID: householdID,
		Metrics:     make(map[models.Metric]models.Baseline),
		ComputedAt:  computedAt,
	}

	for _, metric := range models.AllMetrics {
		values := metricValues(metric, window)
		if len(values) == 0 {
			continue
		}
		set.Metrics[metric] = summarize(householdID, metric, values, windowDays, computedAt)
	}

	return set
}

// metricValues pulls a metric's observations out of the routine window.
// Time-of-day milestones that never happened contribute nothing.
func metricValues(metric models.Metric, routines []models.DailyRoutine) []float64 {
	var values []float64
	for _, r := range routines {
		switch metric {
		case models.MetricWakeTime:
			if r.WakeMinute != nil {
				values = append(values, float64(*r.WakeMinute))
			}
		case models.MetricBedTime:
			if r.BedMinute != nil {
				values = append(values, float64(*r.BedMinute))
			}
		case models.MetricFirstKitchen:
			if r.FirstKitchenMinute != nil {
				values = append(values, float64(*r.FirstKitchenMinute))
			}
		case models.MetricBathroom:
			values = append(values, float64(r.BathroomVisits))
		case models.MetricActiveTime:
			values = append(values, float64(r.ActiveMinutes))
		case models.MetricTotalEvents:
			values = append(values, float64(r.TotalEvents))
		}
	}
	return values
}

func summarize(householdID string, metric models.Metric, values []float64, windowDays int, computedAt time.Time) models.Baseline {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var variance float64
	for _, v := range sorted {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(sorted))

	return models.Baseline{
		HouseholdID: householdID,
		Metric:      metric,
		Mean:        mean,
		Median:      median(sorted),
		StdDev:      math.Sqrt(variance),
		Min:         sorted[0],
		Max:         sorted[len(sorted)-1],
		SampleCount: len(sorted),
		WindowDays:  windowDays,
		ComputedAt:  computedAt,
	}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
