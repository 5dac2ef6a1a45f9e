package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

const maxForecastHrs = 16 * 24

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Model configuration. Exactly one of ModelPath and ModelEndpoint is used;
	// the endpoint wins when both are set. ModelFeatures declares the feature
	// names a remote model was trained on, checked against the layout at startup.
	ModelPath     string
	ModelEndpoint string
	ModelTimeout  time.Duration
	ModelFeatures []string

	// Forecast shape.
	ForecastHours int
	HistoryHours  int
	HistoryDays   int

	// Open-Meteo client configuration.
	OpenMeteoTimeout   time.Duration
	OpenMeteoRateLimit float64
	OpenMeteoBurst     int
	GeocodeCacheSize   int

	// Redis latest-forecast store. Disabled when RedisAddr is empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ForecastTTL   time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first if present; variables
// already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}
	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}
	modelTimeout, err := parsePositiveDuration("MODEL_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	forecastHours, err := parseIntInRange("FORECAST_HOURS", 72, 1, maxForecastHrs)
	if err != nil {
		return nil, err
	}
	historyHours, err := parseIntInRange("HISTORY_HOURS", 24, 1, 24*7)
	if err != nil {
		return nil, err
	}
	historyDays, err := parseIntInRange("HISTORY_DAYS", 3, 1, 92)
	if err != nil {
		return nil, err
	}
	openMeteoTimeout, err := parsePositiveDuration("OPENMETEO_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	rateLimit, err := parsePositiveFloat("OPENMETEO_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	burst, err := parseIntInRange("OPENMETEO_BURST", 5, 1, 1000)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseIntInRange("REDIS_DB", 0, 0, 15)
	if err != nil {
		return nil, err
	}
	forecastTTL, err := parsePositiveDuration("FORECAST_TTL", "6h")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "forecast-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "pm25-forecasts"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "pm25-forecast"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ModelPath:     sharedcfg.EnvOrDefault("MODEL_PATH", "models/pm25_forest.json"),
		ModelEndpoint: os.Getenv("MODEL_ENDPOINT"),
		ModelTimeout:  modelTimeout,
		ModelFeatures: sharedcfg.ParseBrokers(os.Getenv("MODEL_FEATURES")),

		ForecastHours: forecastHours,
		HistoryHours:  historyHours,
		HistoryDays:   historyDays,

		OpenMeteoTimeout:   openMeteoTimeout,
		OpenMeteoRateLimit: rateLimit,
		OpenMeteoBurst:     burst,
		GeocodeCacheSize:   parseCacheSize(),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		ForecastTTL:   forecastTTL,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.KafkaSourceTopic == cfg.KafkaSinkTopic {
		return nil, errors.New("KAFKA_SOURCE_TOPIC and KAFKA_SINK_TOPIC must differ")
	}
	if cfg.ModelEndpoint == "" && cfg.ModelPath == "" {
		return nil, errors.New("MODEL_PATH or MODEL_ENDPOINT is required")
	}

	return cfg, nil
}

// RedisEnabled reports whether forecasts are also written to Redis.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseIntInRange(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parsePositiveFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return f, nil
}

func parseCacheSize() int {
	if s := os.Getenv("GEOCODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
