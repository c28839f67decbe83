package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "wellnest", cfg.Database.Database)

	assert.Equal(t, "wellnest/+/events", cfg.MQTT.Topic)

	assert.Equal(t, 45, cfg.Detector.CooldownMinutes)
	assert.Equal(t, 2*time.Hour, cfg.Detector.InactivityThreshold)
	assert.Equal(t, 1.5, cfg.Detector.SigmaWarn)
	assert.Equal(t, 2.5, cfg.Detector.SigmaCritical)
	assert.Equal(t, 3, cfg.Detector.MinSamples)
	assert.Equal(t, 10*time.Minute, cfg.Detector.SweepInterval)

	assert.Equal(t, 7, cfg.Learner.WindowDays)
	assert.Equal(t, "UTC", cfg.Learner.Timezone)

	assert.Equal(t, 8, cfg.Ingest.Workers)
	assert.Empty(t, cfg.Notifier.WebhookURL, "webhook disabled by default")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DETECTOR_COOLDOWN_MINUTES", "90")
	t.Setenv("DETECTOR_SIGMA_WARN", "2.0")
	t.Setenv("LEARNER_TIMEZONE", "America/New_York")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 90, cfg.Detector.CooldownMinutes)
	assert.Equal(t, 2.0, cfg.Detector.SigmaWarn)
	assert.Equal(t, "America/New_York", cfg.Learner.Timezone)
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("LEARNER_TIMEZONE", "Mars/Olympus_Mons")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidWindowDays(t *testing.T) {
	t.Setenv("LEARNER_WINDOW_DAYS", "-1")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MalformedIntFallsBackToDefault(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLocation(t *testing.T) {
	t.Setenv("LEARNER_TIMEZONE", "America/New_York")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", cfg.Location().String())
}

func TestGetDSN(t *testing.T) {
	c := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Database: "wellnest",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=wellnest sslmode=disable",
		c.GetDSN())
}
