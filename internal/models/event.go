package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SensorType is the closed set of sensor kinds the platform ingests.
// Values outside this set are rejected at the normalizer boundary.
type SensorType string

const (
	SensorMotion      SensorType = "motion"
	SensorDoor        SensorType = "door"
	SensorBedPresence SensorType = "bed_presence"
	SensorSOSButton   SensorType = "sos_button"
	SensorAppliance   SensorType = "appliance"
)

// ParseSensorType validates a raw sensor_type string against the closed enum.
func ParseSensorType(s string) (SensorType, bool) {
	switch SensorType(s) {
	case SensorMotion, SensorDoor, SensorBedPresence, SensorSOSButton, SensorAppliance:
		return SensorType(s), true
	}
	return "", false
}

// ValueKind describes how the value field of a sensor type is interpreted.
type ValueKind int

const (
	// ValueBool expects "true"/"false" (canonical lowercase form).
	ValueBool ValueKind = iota
	// ValueDoorState expects "open"/"closed".
	ValueDoorState
	// ValuePowerState expects "on"/"off".
	ValuePowerState
)

// valueKinds is the typed interpretation table keyed by sensor type.
var valueKinds = map[SensorType]ValueKind{
	SensorMotion:      ValueBool,
	SensorBedPresence: ValueBool,
	SensorSOSButton:   ValueBool,
	SensorDoor:        ValueDoorState,
	SensorAppliance:   ValuePowerState,
}

// KindOf returns the value interpretation for a sensor type.
func (t SensorType) KindOf() ValueKind {
	return valueKinds[t]
}

// RawReading is a sensor reading as submitted by the ingestion layer,
// all fields still strings (matches the sensor client payload).
type RawReading struct {
	HouseholdID string `json:"household_id"`
	SensorID    string `json:"sensor_id"`
	SensorType  string `json:"sensor_type"`
	Location    string `json:"location"`
	Resident    string `json:"resident"`
	Timestamp   string `json:"timestamp"`
	Value       string `json:"value"`
}

// Event is a validated, canonical sensor event. Immutable once created.
// Timestamp is always UTC; EventID is a stable content hash so re-ingesting
// the same reading produces the same id.
type Event struct {
	EventID     string     `json:"event_id" db:"event_id"`
	HouseholdID string     `json:"household_id" db:"household_id"`
	SensorID    string     `json:"sensor_id" db:"sensor_id"`
	SensorType  SensorType `json:"sensor_type" db:"sensor_type"`
	Location    string     `json:"location" db:"location"`
	Resident    string     `json:"resident" db:"resident"`
	Timestamp   time.Time  `json:"timestamp" db:"timestamp"`
	Value       string     `json:"value" db:"value"`
}

// ComputeEventID builds the deterministic event identifier used for
// duplicate suppression: first 16 hex chars of
// sha256(household|sensor|timestamp|value).
func ComputeEventID(householdID, sensorID string, ts time.Time, value string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s",
		householdID, sensorID, ts.UTC().Format(time.RFC3339Nano), value)))
	return hex.EncodeToString(sum[:])[:16]
}

// BoolValue interprets the canonical value of a bool-kind sensor.
// Door and appliance states map open->true and on->true.
func (e Event) BoolValue() bool {
	switch e.Value {
	case "true", "open", "on":
		return true
	}
	return false
}

// IsActivity reports whether the event counts as resident activity
// (used by the inactivity rule and the active-duration aggregation).
func (e Event) IsActivity() bool {
	switch e.SensorType {
	case SensorMotion, SensorBedPresence, SensorDoor, SensorAppliance:
		return true
	}
	return false
}
