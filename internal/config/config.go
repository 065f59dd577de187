// Package config handles configuration loading for gproverlay.
// It supports YAML config files with environment variable overrides;
// every loaded value is range-checked before use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/seenimoa/gproverlay/internal/detect"
)

// Config represents the complete application configuration.
type Config struct {
	Detector detect.Config `mapstructure:"detector" yaml:"detector"`
	Inputs   InputsConfig  `mapstructure:"inputs"   yaml:"inputs"`
	API      APIConfig     `mapstructure:"api"      yaml:"api"`
	Fetch    FetchConfig   `mapstructure:"fetch"    yaml:"fetch"`
	Store    StoreConfig   `mapstructure:"store"    yaml:"store"`
	Logging  LoggingConfig `mapstructure:"logging"  yaml:"logging"`
}

// InputsConfig holds default paths for the file-based inputs.
type InputsConfig struct {
	GPRCSV       string `mapstructure:"gpr_csv"        yaml:"gpr_csv"`
	PortfolioCSV string `mapstructure:"portfolio_csv"  yaml:"portfolio_csv"`
	BetaTableCSV string `mapstructure:"beta_table_csv" yaml:"beta_table_csv"`
	CriteriaJSON string `mapstructure:"criteria_json"  yaml:"criteria_json"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host         string   `mapstructure:"host"          yaml:"host"`
	Port         int      `mapstructure:"port"          yaml:"port"          validate:"gt=0,lte=65535"`
	CORSOrigins  []string `mapstructure:"cors_origins"  yaml:"cors_origins"`
	CacheSize    int      `mapstructure:"cache_size"    yaml:"cache_size"    validate:"gt=0"`
	ReadTimeout  int      `mapstructure:"read_timeout"  yaml:"read_timeout"  validate:"gt=0"` // seconds
	WriteTimeout int      `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gt=0"` // seconds
}

// FetchConfig holds dataset download and headline suggestion settings.
type FetchConfig struct {
	DatasetPageURL  string   `mapstructure:"dataset_page_url" yaml:"dataset_page_url"`
	RefreshSchedule string   `mapstructure:"refresh_schedule" yaml:"refresh_schedule"` // cron spec, empty disables
	RSSFeeds        []string `mapstructure:"rss_feeds"        yaml:"rss_feeds"`
	TimeoutSec      int      `mapstructure:"timeout_sec"      yaml:"timeout_sec"      validate:"gt=0"`
}

// StoreConfig holds SQLite persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=console json"`

	// File enables rotated file output alongside the console writer.
	File       string `mapstructure:"file"        yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gt=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.gproverlay/config.yaml (home directory)
//  3. /etc/gproverlay/config.yaml (system)
//
// Environment variables override config file values.
// Format: GPROVERLAY_<SECTION>_<KEY>, e.g., GPROVERLAY_API_PORT
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".gproverlay"))
	v.AddConfigPath("/etc/gproverlay")

	return load(v, false)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v, true)
}

func load(v *viper.Viper, fileRequired bool) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("GPROVERLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || fileRequired {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults + env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets defaults for all config values. Keys must be registered
// here for environment overrides to reach Unmarshal.
func setDefaults(v *viper.Viper) {
	// Detection defaults
	d := detect.DefaultConfig()
	v.SetDefault("detector.z_threshold", d.ZThreshold)
	v.SetDefault("detector.rolling_window", d.RollingWindow)
	v.SetDefault("detector.short_window", d.ShortWindow)
	v.SetDefault("detector.local_max_window", d.LocalMaxWindow)
	v.SetDefault("detector.elevated_spike_q", d.ElevatedSpikeQ)
	v.SetDefault("detector.extreme_spike_q", d.ExtremeSpikeQ)
	v.SetDefault("detector.pre_days", d.PreDays)
	v.SetDefault("detector.post_days", d.PostDays)
	v.SetDefault("detector.min_episode_days", d.MinEpisodeDays)
	v.SetDefault("detector.episode_percentile", d.EpisodePercentile)
	v.SetDefault("detector.min_regime_days", d.MinRegimeDays)
	v.SetDefault("detector.regime_percentile", d.RegimePercentile)
	v.SetDefault("detector.include_regimes", d.IncludeRegimes)

	// Input defaults
	v.SetDefault("inputs.gpr_csv", "data/gpr_daily_recent.csv")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.cache_size", 64)
	v.SetDefault("api.read_timeout", 15)
	v.SetDefault("api.write_timeout", 30)

	// Fetch defaults
	v.SetDefault("fetch.dataset_page_url", "https://www.matteoiacoviello.com/gpr.htm")
	v.SetDefault("fetch.timeout_sec", 30)

	// Store defaults
	v.SetDefault("store.path", "data/gproverlay.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
