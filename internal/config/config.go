package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sources holds the remote dataset endpoints. Every URL can be overridden for
// testing or mirroring.
type Sources struct {
	ResStock     string `yaml:"resstock"`
	ComStock     string `yaml:"comstock"`
	Weather      string `yaml:"weather"`
	HousingUnits string `yaml:"housing_units"`
	FloorArea    string `yaml:"floor_area"`
	Industry     string `yaml:"industry"`
	Agriculture  string `yaml:"agriculture"`
	Counties     string `yaml:"counties"`
}

// Config holds all tool settings, populated from defaults, an optional YAML
// file, and environment variables, in that order of precedence (env wins).
type Config struct {
	CacheDir  string `yaml:"cache_dir"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// MetricsAddr enables a /metrics and /healthz listener when non-empty.
	MetricsAddr string `yaml:"metrics_addr"`

	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// Housing-unit source retry policy (the only retried fetch).
	UnitsRetries int           `yaml:"units_retries"`
	UnitsTimeout time.Duration `yaml:"units_timeout"`

	// ReferenceYear is the weather year the stock models were run against.
	ReferenceYear int `yaml:"reference_year"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	Sources Sources `yaml:"sources"`
}

const (
	oediRoot = "https://oedi-data-lake.s3.amazonaws.com/nrel-pds-building-stock/" +
		"end-use-load-profiles-for-us-building-stock/2021"

	defaultResStock     = oediRoot + "/resstock_amy2018_release_1/timeseries_aggregates"
	defaultComStock     = oediRoot + "/comstock_amy2018_release_1/timeseries_aggregates"
	defaultWeather      = oediRoot + "/comstock_amy2018_release_1/weather/amy2018"
	defaultHousingUnits = "https://www2.census.gov/programs-surveys/popest/tables/2020-2024/housing/totals"
	defaultFloorArea    = "https://data.openei.org/files/906"
	defaultIndustry     = "https://data.nrel.gov/system/files/97/County_industry_energy_use.gz"
	defaultAgriculture  = "https://data.nrel.gov/system/files/97/agriculture_EndUse.gz"
	defaultCounties     = "https://www2.census.gov/geo/docs/reference/codes/files/national_county.txt"
)

// Load builds the configuration. A non-empty path names a YAML file that
// overlays the defaults; environment variables override both.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.CacheDir == "" {
		return nil, errors.New("cache directory is required")
	}
	if cfg.FetchTimeout <= 0 {
		return nil, errors.New("invalid fetch timeout")
	}
	if cfg.UnitsRetries < 1 {
		return nil, errors.New("units retries must be at least 1")
	}
	if cfg.ReferenceYear < 1900 {
		return nil, fmt.Errorf("invalid reference year %d", cfg.ReferenceYear)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		CacheDir:      defaultCacheDir(),
		LogLevel:      "info",
		LogFormat:     "text",
		FetchTimeout:  120 * time.Second,
		UnitsRetries:  5,
		UnitsTimeout:  5 * time.Second,
		ReferenceYear: 2018,
		KafkaTopic:    "county-load-profiles",
		Sources: Sources{
			ResStock:     defaultResStock,
			ComStock:     defaultComStock,
			Weather:      defaultWeather,
			HousingUnits: defaultHousingUnits,
			FloorArea:    defaultFloorArea,
			Industry:     defaultIndustry,
			Agriculture:  defaultAgriculture,
			Counties:     defaultCounties,
		},
	}
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ".cache"
	}
	return filepath.Join(base, "county-loads")
}

func applyEnv(cfg *Config) {
	cfg.CacheDir = envOrDefault("LOADS_CACHE_DIR", cfg.CacheDir)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.MetricsAddr = envOrDefault("METRICS_ADDR", cfg.MetricsAddr)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = parseBrokers(v)
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.FetchTimeout = d
		}
	}
	if v := os.Getenv("UNITS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.UnitsTimeout = d
		}
	}
	if v := os.Getenv("UNITS_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.UnitsRetries = n
		}
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
