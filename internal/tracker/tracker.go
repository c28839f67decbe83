// Package tracker owns the live per-resident state and applies canonical
// events to it. Updates for one household are serialized by a per-household
// lock; different households proceed fully in parallel.
package tracker

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

// Tracker maintains ResidentState for every (household, resident) pair.
// States are created lazily on first event and live for the process
// lifetime; day-scoped counters reset at the 4 AM local boundary.
type Tracker struct {
	mu         sync.RWMutex
	households map[string]*householdState

	loc    *time.Location
	logger *zap.Logger
}

// householdState groups the residents of one household behind a single
// lock, so two events for the same household never race regardless of
// which resident they belong to.
type householdState struct {
	mu        sync.Mutex
	residents map[string]*ResidentState
}

// New creates a Tracker. loc is the timezone used for the 4 AM day
// boundary and minute-of-day fields.
func New(loc *time.Location, logger *zap.Logger) *Tracker {
	return &Tracker{
		households: make(map[string]*householdState),
		loc:        loc,
		logger:     logger,
	}
}

// household returns the state bucket for a household, creating it if
// needed. Bucket creation holds the registry lock; per-event work does not.
func (t *Tracker) household(householdID string) *householdState {
	t.mu.RLock()
	hs, ok := t.households[householdID]
	t.mu.RUnlock()
	if ok {
		return hs
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if hs, ok = t.households[householdID]; ok {
		return hs
	}
	hs = &householdState{residents: make(map[string]*ResidentState)}
	t.households[householdID] = hs
	return hs
}

// Apply folds an event into the resident's state and returns the delta.
// Applying the same event id twice is a no-op reported via Delta.Duplicate.
func (t *Tracker) Apply(event models.Event) StateDelta {
	hs := t.household(event.HouseholdID)

	hs.mu.Lock()
	defer hs.mu.Unlock()

	state, ok := hs.residents[event.Resident]
	if !ok {
		state = newResidentState(event.HouseholdID, event.Resident, models.LocalDay(event.Timestamp, t.loc))
		hs.residents[event.Resident] = state
		t.logger.Debug("Created resident state",
			zap.String("household_id", event.HouseholdID),
			zap.String("resident", event.Resident),
		)
	}

	delta := StateDelta{Event: event}

	if state.seen(event.EventID) {
		delta.Duplicate = true
		delta.CurrentLocation = state.CurrentLocation
		delta.BathroomVisits = state.BathroomVisits
		delta.TotalEvents = state.TotalEvents
		return delta
	}

	// Day rollover: reset day-scoped counters, keep location and activity.
	day := models.LocalDay(event.Timestamp, t.loc)
	if day != state.Day {
		state.rollDay(day)
		delta.DayRolled = true
		t.logger.Debug("Day rollover",
			zap.String("household_id", event.HouseholdID),
			zap.String("resident", event.Resident),
			zap.String("day", day),
		)
	}

	delta.PrevActivity = state.LastActivity
	t.applyEvent(state, event, &delta)

	delta.CurrentLocation = state.CurrentLocation
	delta.BathroomVisits = state.BathroomVisits
	delta.TotalEvents = state.TotalEvents
	return delta
}

// applyEvent mutates the state for one non-duplicate event.
// Caller holds the household lock.
func (t *Tracker) applyEvent(state *ResidentState, event models.Event, delta *StateDelta) {
	minute := t.minuteOfDay(event.Timestamp)

	state.TotalEvents++
	state.LastSeen[event.Location] = event.Timestamp

	if event.IsActivity() && event.BoolValue() {
		if event.Timestamp.After(state.LastActivity) {
			state.LastActivity = event.Timestamp
		}
		if state.CurrentLocation != event.Location {
			// Bathroom visits count transitions into the location, not
			// every motion report while inside it.
			if isBathroom(event.Location) && event.SensorType == models.SensorMotion {
				state.BathroomVisits++
				delta.BathroomVisit = true
			}
			state.CurrentLocation = event.Location
			delta.LocationChanged = true
		}
	}

	switch event.SensorType {
	case models.SensorBedPresence:
		if !event.BoolValue() {
			if !state.WakeDetected {
				state.WakeDetected = true
				m := minute
				state.WakeMinute = &m
				delta.WakeDetected = true
				delta.WakeMinute = &m
			}
		} else {
			m := minute
			delta.BedTime = true
			delta.BedMinute = &m
		}

	case models.SensorMotion:
		if event.BoolValue() && isKitchen(event.Location) && !state.KitchenVisited {
			state.KitchenVisited = true
			m := minute
			state.FirstKitchenMinute = &m
			delta.FirstKitchen = true
			delta.KitchenMinute = &m
		}
	}
}

// InCooldown reports whether an alert of the given type for the resident
// was raised within the cooldown window. This in-memory check is an
// optimization only; the store-level conditional insert is the
// authoritative dedup gate.
func (t *Tracker) InCooldown(householdID, resident string, anomaly models.AnomalyType, now time.Time, cooldown time.Duration) bool {
	hs := t.household(householdID)
	hs.mu.Lock()
	defer hs.mu.Unlock()

	state, ok := hs.residents[resident]
	if !ok {
		return false
	}
	last, ok := state.LastAlertAt[anomaly]
	return ok && now.Sub(last) < cooldown
}

// MarkAlerted records that an alert of the given type was raised, starting
// its cooldown window.
func (t *Tracker) MarkAlerted(householdID, resident string, anomaly models.AnomalyType, at time.Time) {
	hs := t.household(householdID)
	hs.mu.Lock()
	defer hs.mu.Unlock()

	state, ok := hs.residents[resident]
	if !ok {
		state = newResidentState(householdID, resident, models.LocalDay(at, t.loc))
		hs.residents[resident] = state
	}
	state.LastAlertAt[anomaly] = at
}

// ClearAlert drops the cooldown for an anomaly type, used when the
// underlying condition resolves before the window elapses.
func (t *Tracker) ClearAlert(householdID, resident string, anomaly models.AnomalyType) {
	hs := t.household(householdID)
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if state, ok := hs.residents[resident]; ok {
		delete(state.LastAlertAt, anomaly)
	}
}

// Snapshot returns copies of every resident state in a household.
func (t *Tracker) Snapshot(householdID string) []StateView {
	hs := t.household(householdID)
	hs.mu.Lock()
	defer hs.mu.Unlock()

	views := make([]StateView, 0, len(hs.residents))
	for _, state := range hs.residents {
		views = append(views, state.view())
	}
	return views
}

// Households lists every household with live state.
func (t *Tracker) Households() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.households))
	for id := range t.households {
		ids = append(ids, id)
	}
	return ids
}

// MinuteOfDay converts a timestamp to minutes since local midnight.
func (t *Tracker) minuteOfDay(ts time.Time) int {
	local := ts.In(t.loc)
	return local.Hour()*60 + local.Minute()
}

func isBathroom(location string) bool {
	return strings.Contains(location, "bathroom")
}

func isKitchen(location string) bool {
	return location == "kitchen" || strings.Contains(location, "kitchen")
}
