package detector

import (
	"fmt"

	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/models"
	"github.com/snarayanan1095/Wellnest/internal/tracker"
)

// evalTimeOfDay compares a wake or bed event's minute-of-day against the
// baseline mean in standard-deviation tiers. When the history is so
// uniform that sigma is near zero, a fixed minute floor replaces it so a
// two-minute slip does not page anyone.
func evalTimeOfDay(cfg config.DetectorConfig, delta tracker.StateDelta, set *models.BaselineSet) []finding {
	var findings []finding

	if delta.WakeDetected && delta.WakeMinute != nil {
		if f := timeOfDayFinding(cfg, set, models.MetricWakeTime, models.AnomalyWakeTimeDeviation,
			"Woke up", *delta.WakeMinute); f != nil {
			findings = append(findings, *f)
		}
	}

	if delta.BedTime && delta.BedMinute != nil {
		if f := timeOfDayFinding(cfg, set, models.MetricBedTime, models.AnomalyBedTimeDeviation,
			"Went to bed", *delta.BedMinute); f != nil {
			findings = append(findings, *f)
		}
	}

	return findings
}

func timeOfDayFinding(cfg config.DetectorConfig, set *models.BaselineSet, metric models.Metric, anomaly models.AnomalyType, verb string, actual int) *finding {
	b, ok := baselineFor(cfg, set, metric)
	if !ok {
		return nil
	}

	sigma := b.StdDev
	if sigma < cfg.MinSigmaMinutes {
		sigma = cfg.MinSigmaMinutes
	}

	deviation := float64(actual) - b.Mean
	if deviation < 0 {
		deviation = -deviation
	}

	// Strict comparisons: a value exactly on the tier boundary classifies
	// toward the less severe side.
	var severity models.Severity
	switch {
	case deviation > cfg.SigmaCritical*sigma:
		severity = models.SeverityCritical
	case deviation > cfg.SigmaWarn*sigma:
		severity = models.SeverityMedium
	default:
		return nil
	}

	return &finding{
		Type:     anomaly,
		Severity: severity,
		Message: fmt.Sprintf("%s at %s (typical: %s, deviation %.0f min)",
			verb, models.FormatMinute(actual), models.FormatMinute(int(b.Mean)), deviation),
		Context: fmt.Sprintf("baseline over %d days", b.SampleCount),
	}
}
