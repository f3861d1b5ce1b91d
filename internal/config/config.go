// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Data layout.
	DataDir   string
	AssetsDir string

	// Postgres connection strings for the parks and users databases.
	ParksDSN string
	UsersDSN string

	// Dataset completion announcements.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool

	// Acquisition.
	GFSBaseURL      string
	GEFSBaseURL     string
	ConverterCmd    string
	DownloadRate    float64 // requests per second against NOAA
	DownloadBurst   int
	RetentionDays   int
	AcquireInterval time.Duration
}

// Asset file names under AssetsDir.
const (
	LatAssetFile          = "lat.npy"
	LngAssetFile          = "lng.npy"
	LightPollutionFile    = "light_pollution.npy"
	TransparencyTableFile = "sky_transparency_table.npy"
	ScoreTableFile        = "score_table.npy"
	MeteorShowerTableFile = "meteor_shower_table.json"
)

// AssetPath joins an asset file name onto AssetsDir.
func (c *Config) AssetPath(name string) string {
	return filepath.Join(c.AssetsDir, name)
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	acquireInterval, err := parseDuration("ACQUIRE_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}

	downloadRate, err := parseFloat("DOWNLOAD_RATE", 2)
	if err != nil {
		return nil, err
	}
	downloadBurst, err := parseInt("DOWNLOAD_BURST", 4)
	if err != nil {
		return nil, err
	}
	retentionDays, err := parseInt("RETENTION_DAYS", 2)
	if err != nil {
		return nil, err
	}

	kafkaBrokers := parseBrokers(envOrDefault("KAFKA_BROKERS", ""))

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:   envOrDefault("DATA_DIR", "data"),
		AssetsDir: envOrDefault("ASSETS_DIR", "assets"),

		ParksDSN: os.Getenv("PARKS_DSN"),
		UsersDSN: os.Getenv("USERS_DSN"),

		KafkaBrokers: kafkaBrokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "dataset-completions"),
		KafkaEnabled: len(kafkaBrokers) > 0,

		GFSBaseURL:      envOrDefault("GFS_BASE_URL", "https://nomads.ncep.noaa.gov/pub/data/nccf/com/gfs/prod"),
		GEFSBaseURL:     envOrDefault("GEFS_BASE_URL", "https://nomads.ncep.noaa.gov/pub/data/nccf/com/gens/prod"),
		ConverterCmd:    envOrDefault("GRIB_CONVERTER", "grib2npy"),
		DownloadRate:    downloadRate,
		DownloadBurst:   downloadBurst,
		RetentionDays:   retentionDays,
		AcquireInterval: acquireInterval,
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.AssetsDir == "" {
		return nil, errors.New("ASSETS_DIR is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}
