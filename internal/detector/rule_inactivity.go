package detector

import (
	"fmt"
	"time"

	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/models"
	"github.com/snarayanan1095/Wellnest/internal/tracker"
)

// evalInactivity raises when a resident has produced no activity for
// longer than the configured threshold. Needs no baseline, so it stays
// active for brand-new households. Severity scales with how far past the
// threshold the silence has run.
func evalInactivity(cfg config.DetectorConfig, view tracker.StateView, now time.Time) []finding {
	if view.LastActivity.IsZero() {
		// Never seen active; nothing to measure silence against.
		return nil
	}

	idle := now.Sub(view.LastActivity)
	if idle <= cfg.InactivityThreshold {
		return nil
	}

	severity := models.SeverityHigh
	if idle > 2*cfg.InactivityThreshold {
		severity = models.SeverityCritical
	}

	context := "Location unknown"
	if view.CurrentLocation != "" {
		context = fmt.Sprintf("Last seen in %s at %s",
			view.CurrentLocation, view.LastActivity.Format("15:04"))
	}

	return []finding{{
		Type:     models.AnomalyProlongedInactivity,
		Severity: severity,
		Message:  fmt.Sprintf("No motion detected for %.1f hours", idle.Hours()),
		Context:  context,
	}}
}
