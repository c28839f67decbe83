package detector

import (
	"fmt"
	"time"

	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/models"
	"github.com/snarayanan1095/Wellnest/internal/tracker"
)

// fallbackKitchenMinute is the cutoff used when a household has no usable
// first-kitchen baseline yet: if breakfast has not happened by 11:00 local
// time something is off regardless of history.
const fallbackKitchenMinute = 11 * 60

// evalMissedActivity raises when a resident woke up but the expected first
// kitchen activity never came by baseline mean + margin. This rule works
// without a baseline (via the fixed fallback cutoff), so it stays active
// while history is still accumulating.
func evalMissedActivity(cfg config.DetectorConfig, view tracker.StateView, set *models.BaselineSet, now time.Time, loc *time.Location) []finding {
	if !view.WakeDetected || view.KitchenVisited {
		return nil
	}

	local := now.In(loc)
	nowMinute := local.Hour()*60 + local.Minute()

	cutoff := fallbackKitchenMinute
	expected := "by late morning"
	if b, ok := baselineFor(cfg, set, models.MetricFirstKitchen); ok {
		cutoff = int(b.Mean) + cfg.KitchenMarginMinutes
		expected = "by " + models.FormatMinute(int(b.Mean))
	}

	if nowMinute <= cutoff {
		return nil
	}

	context := "Location unknown"
	if view.CurrentLocation != "" {
		context = fmt.Sprintf("Last seen in %s", view.CurrentLocation)
	}

	return []finding{{
		Type:     models.AnomalyMissedKitchen,
		Severity: models.SeverityMedium,
		Message:  fmt.Sprintf("No kitchen activity detected, expected %s", expected),
		Context:  context,
	}}
}
