package learner

import (
	"sort"
	"strings"
	"time"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

// extractRoutine folds one routine day's events into a DailyRoutine.
// Events may arrive unsorted; they are ordered by timestamp first.
//
// Milestones:
//   - wake time: earliest bed_presence=false at/after the 4 AM boundary
//   - bed time: latest bed_presence=true before the next boundary
//   - first kitchen: earliest motion in a kitchen-tagged location
//   - bathroom visits: transitions into a bathroom-tagged location
//   - active minutes: sum of inter-event gaps below gapThreshold
func extractRoutine(householdID, day string, events []models.Event, loc *time.Location, gapThreshold time.Duration) *models.DailyRoutine {
	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	routine := &models.DailyRoutine{
		HouseholdID: householdID,
		Day:         day,
		TotalEvents: len(sorted),
		CreatedAt:   time.Now().UTC(),
	}

	lastLocation := make(map[string]string) // resident -> location
	var lastActive time.Time
	var activeTotal time.Duration

	for _, event := range sorted {
		minute := minuteOfDay(event.Timestamp, loc)

		switch event.SensorType {
		case models.SensorBedPresence:
			if !event.BoolValue() {
				if routine.WakeMinute == nil {
					m := minute
					routine.WakeMinute = &m
				}
			} else {
				// Overwritten until the last on-bed event of the day.
				m := minute
				routine.BedMinute = &m
			}

		case models.SensorMotion:
			if event.BoolValue() {
				if isKitchen(event.Location) && routine.FirstKitchenMinute == nil {
					m := minute
					routine.FirstKitchenMinute = &m
				}
				if isBathroom(event.Location) && lastLocation[event.Resident] != event.Location {
					routine.BathroomVisits++
				}
				lastLocation[event.Resident] = event.Location
			}
		}

		if event.IsActivity() && event.BoolValue() {
			if !lastActive.IsZero() {
				gap := event.Timestamp.Sub(lastActive)
				if gap > 0 && gap < gapThreshold {
					activeTotal += gap
				}
			}
			lastActive = event.Timestamp
		}
	}

	routine.ActiveMinutes = int(activeTotal.Minutes())
	return routine
}

func minuteOfDay(ts time.Time, loc *time.Location) int {
	local := ts.In(loc)
	return local.Hour()*60 + local.Minute()
}

func isKitchen(location string) bool {
	return strings.Contains(location, "kitchen")
}

func isBathroom(location string) bool {
	return strings.Contains(location, "bathroom")
}
