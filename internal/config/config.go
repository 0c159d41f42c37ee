package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/walk-comfort-service/internal/domain"
)

const defaultDensityZones = "Cathedral Quarter,Titanic Quarter,City Hall/Donegall Place,Queen's Quarter,Botanic Gardens"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka comfort pipeline.
	PipelineEnabled    bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Open-Meteo weather source.
	WeatherBaseURL   string
	WeatherLatitude  float64
	WeatherLongitude float64
	WeatherTimeout   time.Duration
	WeatherCacheTTL  time.Duration

	// Fallback is served when the weather source is unavailable.
	Fallback domain.WeatherObservation

	// Route and density advisor (generative JSON API).
	AdvisorAPIKey  string
	AdvisorEnabled bool
	AdvisorBaseURL string
	AdvisorModel   string
	AdvisorTimeout time.Duration

	CityName     string
	DensityZones []string

	// HistoryDBPath enables the SQLite report history when set.
	HistoryDBPath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
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

	weatherTimeout, err := parsePositiveDuration("WEATHER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	weatherCacheTTL, err := parsePositiveDuration("WEATHER_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}
	advisorTimeout, err := parsePositiveDuration("ADVISOR_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}

	latitude, err := parseFloat("WEATHER_LATITUDE", "54.5973")
	if err != nil {
		return nil, err
	}
	longitude, err := parseFloat("WEATHER_LONGITUDE", "-5.9301")
	if err != nil {
		return nil, err
	}

	advisorKey := os.Getenv("ADVISOR_API_KEY")
	advisorEnabled := advisorKey != ""
	if v := os.Getenv("ADVISOR_ENABLED"); v != "" {
		advisorEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		PipelineEnabled:    sharedcfg.EnvOrDefault("PIPELINE_ENABLED", "true") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-weather-observations"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "comfort-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "walk-comfort"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		WeatherBaseURL:   sharedcfg.EnvOrDefault("WEATHER_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		WeatherLatitude:  latitude,
		WeatherLongitude: longitude,
		WeatherTimeout:   weatherTimeout,
		WeatherCacheTTL:  weatherCacheTTL,
		Fallback:         domain.FallbackObservation(),

		AdvisorAPIKey:  advisorKey,
		AdvisorEnabled: advisorEnabled,
		AdvisorBaseURL: sharedcfg.EnvOrDefault("ADVISOR_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		AdvisorModel:   sharedcfg.EnvOrDefault("ADVISOR_MODEL", "gemini-2.5-flash"),
		AdvisorTimeout: advisorTimeout,

		CityName:     sharedcfg.EnvOrDefault("CITY_NAME", "Belfast"),
		DensityZones: parseList(sharedcfg.EnvOrDefault("DENSITY_ZONES", defaultDensityZones)),

		HistoryDBPath: os.Getenv("HISTORY_DB_PATH"),
	}

	if cfg.PipelineEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if cfg.WeatherLatitude < -90 || cfg.WeatherLatitude > 90 {
		return nil, errors.New("WEATHER_LATITUDE must be within [-90, 90]")
	}
	if cfg.WeatherLongitude < -180 || cfg.WeatherLongitude > 180 {
		return nil, errors.New("WEATHER_LONGITUDE must be within [-180, 180]")
	}
	if cfg.AdvisorEnabled && cfg.AdvisorAPIKey == "" {
		return nil, errors.New("ADVISOR_ENABLED is true but ADVISOR_API_KEY is not set")
	}
	if len(cfg.DensityZones) == 0 {
		return nil, errors.New("DENSITY_ZONES must name at least one zone")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key, def string) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
