package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

func validReading() models.RawReading {
	return models.RawReading{
		HouseholdID: "house-1",
		SensorID:    "sensor-br-01",
		SensorType:  "motion",
		Location:    "Bedroom",
		Resident:    "margaret",
		Timestamp:   "2026-08-20T07:15:00+02:00",
		Value:       "true",
	}
}

func TestNormalize_Valid(t *testing.T) {
	n := New()

	event, err := n.Normalize(validReading())
	require.NoError(t, err)

	assert.Equal(t, "house-1", event.HouseholdID)
	assert.Equal(t, models.SensorMotion, event.SensorType)
	assert.Equal(t, "bedroom", event.Location, "location is lowercased")
	assert.Equal(t, "true", event.Value)
	assert.Equal(t, time.UTC, event.Timestamp.Location(), "timestamp canonicalized to UTC")
	assert.Equal(t, 5, event.Timestamp.Hour(), "07:15+02:00 is 05:15 UTC")
	assert.Len(t, event.EventID, 16)
}

func TestNormalize_MissingFields(t *testing.T) {
	n := New()

	cases := []struct {
		field  string
		mutate func(*models.RawReading)
	}{
		{"household_id", func(r *models.RawReading) { r.HouseholdID = "" }},
		{"sensor_id", func(r *models.RawReading) { r.SensorID = "" }},
		{"sensor_type", func(r *models.RawReading) { r.SensorType = "" }},
		{"location", func(r *models.RawReading) { r.Location = "" }},
		{"resident", func(r *models.RawReading) { r.Resident = "" }},
		{"timestamp", func(r *models.RawReading) { r.Timestamp = "" }},
		{"value", func(r *models.RawReading) { r.Value = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			raw := validReading()
			tc.mutate(&raw)

			_, err := n.Normalize(raw)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestNormalize_UnknownSensorType(t *testing.T) {
	n := New()
	raw := validReading()
	raw.SensorType = "thermostat"

	_, err := n.Normalize(raw)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sensor_type", verr.Field)
}

func TestNormalize_NaiveTimestampRejected(t *testing.T) {
	n := New()
	raw := validReading()
	raw.Timestamp = "2026-08-20T07:15:00"

	_, err := n.Normalize(raw)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "timestamp", verr.Field)
}

func TestNormalize_CanonicalValues(t *testing.T) {
	n := New()

	cases := []struct {
		sensorType string
		raw        string
		want       string
	}{
		{"motion", "True", "true"},
		{"motion", "1", "true"},
		{"motion", "off", "false"},
		{"bed_presence", "NO", "false"},
		{"door", "opened", "open"},
		{"door", "false", "closed"},
		{"appliance", "ON", "on"},
		{"appliance", "false", "off"},
	}

	for _, tc := range cases {
		raw := validReading()
		raw.SensorType = tc.sensorType
		raw.Value = tc.raw

		event, err := n.Normalize(raw)
		require.NoError(t, err, "%s=%s", tc.sensorType, tc.raw)
		assert.Equal(t, tc.want, event.Value, "%s=%s", tc.sensorType, tc.raw)
	}
}

func TestNormalize_InvalidValueForKind(t *testing.T) {
	n := New()
	raw := validReading()
	raw.SensorType = "door"
	raw.Value = "ajar"

	_, err := n.Normalize(raw)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "value", verr.Field)
}

func TestNormalize_StableEventID(t *testing.T) {
	n := New()

	first, err := n.Normalize(validReading())
	require.NoError(t, err)
	second, err := n.Normalize(validReading())
	require.NoError(t, err)

	assert.Equal(t, first.EventID, second.EventID, "same reading yields same id")

	changed := validReading()
	changed.Value = "false"
	third, err := n.Normalize(changed)
	require.NoError(t, err)
	assert.NotEqual(t, first.EventID, third.EventID)
}
