package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig holds MQTT broker settings for the sensor event feed.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // wildcard topic for sensor readings, e.g. "wellnest/+/events"
	QoS      byte
}

// DetectorConfig holds the anomaly rule thresholds. These are hand-tuned
// operating points, not contracts; every one is overridable from the
// environment.
type DetectorConfig struct {
	CooldownMinutes      int           // dedup window for repeated alerts of one type
	InactivityThreshold  time.Duration
	KitchenMarginMinutes int           // grace past baseline mean for the breakfast check
	SigmaWarn            float64       // time-of-day deviation, medium severity
	SigmaCritical        float64       // time-of-day deviation, critical severity
	MinSigmaMinutes      float64       // floor applied when baseline variance is near zero
	PercentWarn          float64       // frequency deviation, medium severity
	PercentHigh          float64       // frequency deviation, high severity
	MinSamples           int           // baseline quality gate for statistical rules
	SweepInterval        time.Duration // clock-driven rule pass over live state
}

// LearnerConfig holds the routine learner schedule and window.
type LearnerConfig struct {
	RunAtHour    int // local hour of the daily run
	RunAtMinute  int
	WindowDays   int           // routines folded into each baseline
	GapThreshold time.Duration // inter-event gap counted as continuous activity
	MaxParallel  int           // concurrent households per run
	Timezone     string        // IANA name used for the 4 AM day boundary
}

// NotifierConfig holds the optional alert webhook.
type NotifierConfig struct {
	WebhookURL string // empty disables outbound notification
	Timeout    time.Duration
	RetryCount int
}

// CacheConfig holds the Redis cache key layout and TTLs.
type CacheConfig struct {
	AlertKeyPrefix string
	StateKeyPrefix string
	AlertTTL       time.Duration
	StateTTL       time.Duration
}

// Config is the full service configuration.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Detector DetectorConfig
	Learner  LearnerConfig
	Notifier NotifierConfig
	Cache    CacheConfig

	Ingest struct {
		Workers   int // hot-path worker pool size
		QueueSize int
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from environment variables with defaults
// suitable for local development.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "wellnest")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wellnest-core")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "wellnest/+/events")
	cfg.MQTT.QoS = 1

	cfg.Detector.CooldownMinutes = getEnvInt("DETECTOR_COOLDOWN_MINUTES", 45)
	cfg.Detector.InactivityThreshold = time.Duration(getEnvInt("DETECTOR_INACTIVITY_MINUTES", 120)) * time.Minute
	cfg.Detector.KitchenMarginMinutes = getEnvInt("DETECTOR_KITCHEN_MARGIN_MINUTES", 30)
	cfg.Detector.SigmaWarn = getEnvFloat("DETECTOR_SIGMA_WARN", 1.5)
	cfg.Detector.SigmaCritical = getEnvFloat("DETECTOR_SIGMA_CRITICAL", 2.5)
	cfg.Detector.MinSigmaMinutes = getEnvFloat("DETECTOR_MIN_SIGMA_MINUTES", 10)
	cfg.Detector.PercentWarn = getEnvFloat("DETECTOR_PERCENT_WARN", 25)
	cfg.Detector.PercentHigh = getEnvFloat("DETECTOR_PERCENT_HIGH", 50)
	cfg.Detector.MinSamples = getEnvInt("DETECTOR_MIN_SAMPLES", 3)
	cfg.Detector.SweepInterval = time.Duration(getEnvInt("DETECTOR_SWEEP_MINUTES", 10)) * time.Minute

	cfg.Learner.RunAtHour = getEnvInt("LEARNER_RUN_HOUR", 1)
	cfg.Learner.RunAtMinute = getEnvInt("LEARNER_RUN_MINUTE", 0)
	cfg.Learner.WindowDays = getEnvInt("LEARNER_WINDOW_DAYS", 7)
	cfg.Learner.GapThreshold = time.Duration(getEnvInt("LEARNER_GAP_MINUTES", 30)) * time.Minute
	cfg.Learner.MaxParallel = getEnvInt("LEARNER_MAX_PARALLEL", 4)
	cfg.Learner.Timezone = getEnv("LEARNER_TIMEZONE", "UTC")

	cfg.Notifier.WebhookURL = getEnv("NOTIFIER_WEBHOOK_URL", "")
	cfg.Notifier.Timeout = time.Duration(getEnvInt("NOTIFIER_TIMEOUT_SECONDS", 10)) * time.Second
	cfg.Notifier.RetryCount = getEnvInt("NOTIFIER_RETRY_COUNT", 3)

	cfg.Cache.AlertKeyPrefix = getEnv("CACHE_ALERT_PREFIX", "wellnest:household:")
	cfg.Cache.StateKeyPrefix = getEnv("CACHE_STATE_PREFIX", "wellnest:state:")
	cfg.Cache.AlertTTL = time.Duration(getEnvInt("CACHE_ALERT_TTL_SECONDS", 86400)) * time.Second
	cfg.Cache.StateTTL = time.Duration(getEnvInt("CACHE_STATE_TTL_SECONDS", 300)) * time.Second

	cfg.Ingest.Workers = getEnvInt("INGEST_WORKERS", 8)
	cfg.Ingest.QueueSize = getEnvInt("INGEST_QUEUE_SIZE", 1024)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if cfg.Learner.WindowDays <= 0 {
		return nil, fmt.Errorf("LEARNER_WINDOW_DAYS must be positive, got %d", cfg.Learner.WindowDays)
	}
	if _, err := time.LoadLocation(cfg.Learner.Timezone); err != nil {
		return nil, fmt.Errorf("invalid LEARNER_TIMEZONE %q: %w", cfg.Learner.Timezone, err)
	}

	return cfg, nil
}

// Location resolves the configured learner timezone.
// Load already validated the name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Learner.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
