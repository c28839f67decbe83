// Package normalizer validates raw sensor readings and turns them into
// canonical events. It is the only place malformed input is rejected;
// everything downstream may assume a well-formed Event.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

// ValidationError reports a malformed raw reading. It is the only error
// kind Normalize returns, so ingestion callers can map it to a 4xx-style
// rejection.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid reading: field %q %s", e.Field, e.Reason)
}

// Normalizer converts raw readings into canonical events.
type Normalizer struct{}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// timestampLayouts are accepted input formats. All carry an explicit offset;
// naive timestamps are rejected because the 4 AM day boundary depends on
// knowing the instant, not the wall clock.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999-07:00",
}

// Normalize validates required fields, canonicalizes the timestamp to UTC,
// validates the sensor type and its value form, and computes the stable
// event id used for duplicate suppression.
func (n *Normalizer) Normalize(raw models.RawReading) (models.Event, error) {
	if raw.HouseholdID == "" {
		return models.Event{}, &ValidationError{Field: "household_id", Reason: "is required"}
	}
	if raw.SensorID == "" {
		return models.Event{}, &ValidationError{Field: "sensor_id", Reason: "is required"}
	}
	if raw.SensorType == "" {
		return models.Event{}, &ValidationError{Field: "sensor_type", Reason: "is required"}
	}
	if raw.Location == "" {
		return models.Event{}, &ValidationError{Field: "location", Reason: "is required"}
	}
	if raw.Resident == "" {
		return models.Event{}, &ValidationError{Field: "resident", Reason: "is required"}
	}
	if raw.Timestamp == "" {
		return models.Event{}, &ValidationError{Field: "timestamp", Reason: "is required"}
	}
	if raw.Value == "" {
		return models.Event{}, &ValidationError{Field: "value", Reason: "is required"}
	}

	sensorType, ok := models.ParseSensorType(raw.SensorType)
	if !ok {
		return models.Event{}, &ValidationError{
			Field:  "sensor_type",
			Reason: fmt.Sprintf("unknown type %q", raw.SensorType),
		}
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return models.Event{}, &ValidationError{
			Field:  "timestamp",
			Reason: fmt.Sprintf("unparsable value %q", raw.Timestamp),
		}
	}

	value, err := canonicalValue(sensorType, raw.Value)
	if err != nil {
		return models.Event{}, &ValidationError{
			Field:  "value",
			Reason: fmt.Sprintf("%v for sensor_type %q", err, sensorType),
		}
	}

	event := models.Event{
		HouseholdID: raw.HouseholdID,
		SensorID:    raw.SensorID,
		SensorType:  sensorType,
		Location:    strings.ToLower(strings.TrimSpace(raw.Location)),
		Resident:    raw.Resident,
		Timestamp:   ts.UTC(),
		Value:       value,
	}
	event.EventID = models.ComputeEventID(event.HouseholdID, event.SensorID, event.Timestamp, event.Value)

	return event, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matched %q", s)
}

// canonicalValue maps the raw value string onto the canonical form for the
// sensor type's value kind.
func canonicalValue(t models.SensorType, raw string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(raw))

	switch t.KindOf() {
	case models.ValueBool:
		switch v {
		case "true", "1", "yes", "on":
			return "true", nil
		case "false", "0", "no", "off":
			return "false", nil
		}
		return "", fmt.Errorf("expected boolean, got %q", raw)

	case models.ValueDoorState:
		switch v {
		case "open", "opened", "true":
			return "open", nil
		case "closed", "close", "false":
			return "closed", nil
		}
		return "", fmt.Errorf("expected open/closed, got %q", raw)

	case models.ValuePowerState:
		switch v {
		case "on", "true":
			return "on", nil
		case "off", "false":
			return "off", nil
		}
		return "", fmt.Errorf("expected on/off, got %q", raw)
	}

	return "", fmt.Errorf("unhandled value kind")
}
