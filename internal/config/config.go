// Package config loads parcel-ingest settings from config.yaml and PARCEL_*
// environment variables, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the root configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Collector CollectorConfig `yaml:"collector" mapstructure:"collector"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Fuzzy     FuzzyConfig     `yaml:"fuzzy" mapstructure:"fuzzy"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CollectorConfig tunes collection runs and source downloads.
type CollectorConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	PacingDelayMs int    `yaml:"pacing_delay_ms" mapstructure:"pacing_delay_ms"`
	SnapshotDir   string `yaml:"snapshot_dir" mapstructure:"snapshot_dir"`
	TempDir       string `yaml:"temp_dir" mapstructure:"temp_dir"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int    `yaml:"max_retries" mapstructure:"max_retries"`
	MaxPages      int    `yaml:"max_pages" mapstructure:"max_pages"`
	// HostRate is the default per-host request rate in requests per second.
	HostRate float64 `yaml:"host_rate" mapstructure:"host_rate"`
	// StMarysURL is the search page probed when the St. Mary's collector
	// initializes.
	StMarysURL string `yaml:"st_marys_url" mapstructure:"st_marys_url"`
}

// GeocodeConfig selects the geocoding provider and its guards.
type GeocodeConfig struct {
	Provider         string  `yaml:"provider" mapstructure:"provider"`
	CacheMaxSize     int     `yaml:"cache_max_size" mapstructure:"cache_max_size"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
	CensusURL        string  `yaml:"census_url" mapstructure:"census_url"`
}

// FuzzyConfig sets matcher defaults for the match command.
type FuzzyConfig struct {
	Threshold          float64 `yaml:"threshold" mapstructure:"threshold"`
	CaseSensitive      bool    `yaml:"case_sensitive" mapstructure:"case_sensitive"`
	IgnoreSpecialChars bool    `yaml:"ignore_special_chars" mapstructure:"ignore_special_chars"`
	NormalizeAddresses bool    `yaml:"normalize_addresses" mapstructure:"normalize_addresses"`
}

// SourcesConfig points at the source list.
type SourcesConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// Load reads config.yaml from the working directory when present, then
// applies PARCEL_* environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PARCEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "parcel-ingest.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("collector.max_concurrent", 3)
	v.SetDefault("collector.pacing_delay_ms", 2000)
	v.SetDefault("collector.snapshot_dir", "data/raw")
	v.SetDefault("collector.temp_dir", "/tmp/parcel-ingest")
	v.SetDefault("collector.user_agent", "parcel-ingest/1.0")
	v.SetDefault("collector.timeout_secs", 30)
	v.SetDefault("collector.max_retries", 3)
	v.SetDefault("collector.max_pages", 25)
	v.SetDefault("collector.host_rate", 2.0)
	v.SetDefault("collector.st_marys_url", "https://www.stmaryscountymd.gov/realestate/")
	v.SetDefault("geocode.provider", "simulated")
	v.SetDefault("geocode.cache_max_size", 10000)
	v.SetDefault("geocode.rate_limit", 10.0)
	v.SetDefault("geocode.failure_threshold", 5)
	v.SetDefault("geocode.reset_timeout_secs", 60)
	v.SetDefault("geocode.census_url", "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress")
	v.SetDefault("fuzzy.threshold", 0.8)
	v.SetDefault("fuzzy.case_sensitive", false)
	v.SetDefault("fuzzy.ignore_special_chars", true)
	v.SetDefault("fuzzy.normalize_addresses", true)
	v.SetDefault("sources.file", "sources.yaml")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. mode is one of
// collect, process, match, geocode, migrate. All problems are reported
// together.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "collect":
		if c.Sources.File == "" {
			problems = append(problems, "sources.file is required")
		}
		if c.Collector.MaxConcurrent < 1 {
			problems = append(problems, "collector.max_concurrent must be at least 1")
		}
		if c.Collector.MaxRetries < 0 {
			problems = append(problems, "collector.max_retries must not be negative")
		}
		problems = append(problems, c.validateStore()...)
		problems = append(problems, c.validateGeocode()...)
	case "migrate":
		problems = append(problems, c.validateStore()...)
	case "process", "geocode":
		problems = append(problems, c.validateGeocode()...)
	case "match":
		if c.Fuzzy.Threshold < 0 || c.Fuzzy.Threshold > 1 {
			problems = append(problems, "fuzzy.threshold must be between 0 and 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var problems []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	return problems
}

func (c *Config) validateGeocode() []string {
	var problems []string
	switch c.Geocode.Provider {
	case "simulated", "census", "none":
	default:
		problems = append(problems, "geocode.provider must be simulated, census or none")
	}
	if c.Geocode.CacheMaxSize < 1 {
		problems = append(problems, "geocode.cache_max_size must be at least 1")
	}
	return problems
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
