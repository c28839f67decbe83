package tracker

import (
	"time"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

// recentEventCap bounds the per-resident duplicate-suppression ring.
const recentEventCap = 512

// ResidentState is the live view of one resident. It is owned by the
// Tracker and only ever touched under its household's lock.
type ResidentState struct {
	HouseholdID string
	Resident    string

	// Rolling, multi-day fields: survive the 4 AM day rollover.
	CurrentLocation string
	LastActivity    time.Time
	LastSeen        map[string]time.Time // location -> last observation

	// Day-scoped fields: reset at the 4 AM boundary.
	Day                string // routine-day label currently accumulating
	WakeDetected       bool
	WakeMinute         *int
	KitchenVisited     bool
	FirstKitchenMinute *int
	BathroomVisits     int
	TotalEvents        int

	// Cooldown bookkeeping for the detection engine.
	LastAlertAt map[models.AnomalyType]time.Time

	// Duplicate suppression: ids of recently applied events.
	recentIDs   map[string]struct{}
	recentOrder []string
}

func newResidentState(householdID, resident, day string) *ResidentState {
	return &ResidentState{
		HouseholdID: householdID,
		Resident:    resident,
		Day:         day,
		LastSeen:    make(map[string]time.Time),
		LastAlertAt: make(map[models.AnomalyType]time.Time),
		recentIDs:   make(map[string]struct{}),
	}
}

// seen records an event id, evicting the oldest id once the ring is full,
// and reports whether the id was already present.
func (s *ResidentState) seen(eventID string) bool {
	if _, ok := s.recentIDs[eventID]; ok {
		return true
	}
	s.recentIDs[eventID] = struct{}{}
	s.recentOrder = append(s.recentOrder, eventID)
	if len(s.recentOrder) > recentEventCap {
		oldest := s.recentOrder[0]
		s.recentOrder = s.recentOrder[1:]
		delete(s.recentIDs, oldest)
	}
	return false
}

// rollDay resets the day-scoped counters for a new routine day while
// preserving location, activity times, and alert cooldowns.
func (s *ResidentState) rollDay(day string) {
	s.Day = day
	s.WakeDetected = false
	s.WakeMinute = nil
	s.KitchenVisited = false
	s.FirstKitchenMinute = nil
	s.BathroomVisits = 0
	s.TotalEvents = 0
}

// StateView is an immutable copy of a resident's state handed to readers
// outside the household lock.
type StateView struct {
	HouseholdID     string     `json:"household_id"`
	Resident        string     `json:"resident"`
	CurrentLocation string     `json:"current_location"`
	LastActivity    time.Time  `json:"last_activity"`
	Day             string     `json:"day"`
	WakeDetected    bool       `json:"wake_detected"`
	WakeMinute      *int       `json:"wake_minute,omitempty"`
	KitchenVisited  bool       `json:"kitchen_visited"`
	FirstKitchen    *int       `json:"first_kitchen_minute,omitempty"`
	BathroomVisits  int        `json:"bathroom_visits"`
	TotalEvents     int        `json:"total_events"`
}

func (s *ResidentState) view() StateView {
	v := StateView{
		HouseholdID:     s.HouseholdID,
		Resident:        s.Resident,
		CurrentLocation: s.CurrentLocation,
		LastActivity:    s.LastActivity,
		Day:             s.Day,
		WakeDetected:    s.WakeDetected,
		KitchenVisited:  s.KitchenVisited,
		BathroomVisits:  s.BathroomVisits,
		TotalEvents:     s.TotalEvents,
	}
	if s.WakeMinute != nil {
		m := *s.WakeMinute
		v.WakeMinute = &m
	}
	if s.FirstKitchenMinute != nil {
		m := *s.FirstKitchenMinute
		v.FirstKitchen = &m
	}
	return v
}

// StateDelta describes what one event changed, consumed by the anomaly
// detection engine in the same update.
type StateDelta struct {
	Event models.Event

	// Duplicate means the event id was already applied; nothing changed.
	Duplicate bool
	// DayRolled means applying this event crossed the 4 AM boundary.
	DayRolled bool

	LocationChanged bool
	WakeDetected    bool // this event was the day's wake-up
	WakeMinute      *int
	BedTime         bool // bed_presence turned on
	BedMinute       *int
	FirstKitchen    bool
	KitchenMinute   *int
	BathroomVisit   bool

	// Counters after the update.
	BathroomVisits int
	TotalEvents    int

	// PrevActivity is the last activity time before this event (zero when
	// this is the resident's first observed event).
	PrevActivity    time.Time
	CurrentLocation string
}
