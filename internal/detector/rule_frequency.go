package detector

import (
	"fmt"

	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/models"
	"github.com/snarayanan1095/Wellnest/internal/tracker"
)

// evalFrequency flags count metrics whose percentage change over the
// baseline mean crosses a tiered threshold. Only excesses alert; a quiet
// day is the inactivity rule's business, not this one's.
func evalFrequency(cfg config.DetectorConfig, delta tracker.StateDelta, set *models.BaselineSet) []finding {
	var findings []finding

	if delta.BathroomVisit {
		if f := frequencyFinding(cfg, set, models.MetricBathroom, models.AnomalyBathroomFrequency,
			"bathroom visits", delta.BathroomVisits); f != nil {
			findings = append(findings, *f)
		}
	}

	// Total event volume is only worth judging once per day has some mass;
	// checking it on every event would alert on the morning's first events.
	if delta.TotalEvents > 0 && delta.TotalEvents%25 == 0 {
		if f := frequencyFinding(cfg, set, models.MetricTotalEvents, models.AnomalyActivityFrequency,
			"events", delta.TotalEvents); f != nil {
			findings = append(findings, *f)
		}
	}

	return findings
}

func frequencyFinding(cfg config.DetectorConfig, set *models.BaselineSet, metric models.Metric, anomaly models.AnomalyType, noun string, actual int) *finding {
	b, ok := baselineFor(cfg, set, metric)
	if !ok || b.Mean <= 0 {
		return nil
	}

	change := (float64(actual) - b.Mean) / b.Mean * 100
	if change <= 0 {
		return nil
	}

	var severity models.Severity
	switch {
	case change > cfg.PercentHigh:
		severity = models.SeverityHigh
	case change > cfg.PercentWarn:
		severity = models.SeverityMedium
	default:
		return nil
	}

	return &finding{
		Type:     anomaly,
		Severity: severity,
		Message: fmt.Sprintf("%d %s today (typical: %.0f, +%.0f%%)",
			actual, noun, b.Mean, change),
		Context: "May indicate a health concern",
	}
}
