// ============================================================================
// questboard configuration
// ============================================================================
//
// Package: internal/config
//
// Sources, lowest to highest precedence:
//   1. Built-in defaults (SetDefaults)
//   2. YAML config file (--config, optional)
//   3. Environment variables, prefix QUESTBOARD_ with dots as underscores
//      (QUESTBOARD_STORAGE_DRIVER=sqlite)
//
// ============================================================================

package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ChuLiYu/questboard/internal/board"
	"github.com/ChuLiYu/questboard/internal/errors"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "QUESTBOARD"

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverSnapshot = "snapshot"
	DriverMemory   = "memory"
)

// Config is the complete questboard configuration.
type Config struct {
	Storage       StorageConfig       `mapstructure:"storage"`
	Journal       JournalConfig       `mapstructure:"journal"`
	Calendar      CalendarConfig      `mapstructure:"calendar"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Rewards       RewardsConfig       `mapstructure:"rewards"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Log           LogConfig           `mapstructure:"log"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	// Backups kept next to a snapshot file; snapshot driver only.
	Backups int `mapstructure:"backups"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Sync    bool   `mapstructure:"sync"`
}

type CalendarConfig struct {
	StartDay int `mapstructure:"start_day"`
	// AutoAdvanceInterval advances one day per tick in `questboard run`.
	// Zero disables it.
	AutoAdvanceInterval time.Duration `mapstructure:"auto_advance_interval"`
}

type NotificationsConfig struct {
	OnDeadlines        bool  `mapstructure:"on_deadlines"`
	OnExpirations      bool  `mapstructure:"on_expirations"`
	DeadlineThresholds []int `mapstructure:"deadline_thresholds"`
	Console            bool  `mapstructure:"console"`
}

type RewardsConfig struct {
	ReviewThreshold int `mapstructure:"review_threshold"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", "questboard.db")
	v.SetDefault("storage.backups", 3)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "questboard.journal")
	v.SetDefault("journal.sync", false)

	v.SetDefault("calendar.start_day", 1)
	v.SetDefault("calendar.auto_advance_interval", time.Duration(0))

	v.SetDefault("notifications.on_deadlines", true)
	v.SetDefault("notifications.on_expirations", true)
	v.SetDefault("notifications.deadline_thresholds", []int{3, 1, 0})
	v.SetDefault("notifications.console", true)

	v.SetDefault("rewards.review_threshold", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// New builds a viper instance with defaults and environment binding. The
// config file, when path is non-empty, is read on top of the defaults.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}
	return v, nil
}

// Load reads configuration from defaults, the optional file and environment.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper decodes and validates the configuration held by v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	ve := &errors.ValidationError{}
	switch c.Storage.Driver {
	case DriverSQLite, DriverSnapshot:
		if c.Storage.Path == "" {
			ve.Add("storage.path", "required for the %s driver", c.Storage.Driver)
		}
	case DriverMemory:
	default:
		ve.Add("storage.driver", "unknown driver %q (want sqlite, snapshot or memory)", c.Storage.Driver)
	}
	if c.Storage.Backups < 0 {
		ve.Add("storage.backups", "must be >= 0, got %d", c.Storage.Backups)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		ve.Add("journal.path", "required when the journal is enabled")
	}
	if c.Calendar.AutoAdvanceInterval < 0 {
		ve.Add("calendar.auto_advance_interval", "must not be negative")
	}
	for _, t := range c.Notifications.DeadlineThresholds {
		if t < 0 {
			ve.Add("notifications.deadline_thresholds", "must be >= 0, got %d", t)
			break
		}
	}
	if c.Rewards.ReviewThreshold < 0 {
		ve.Add("rewards.review_threshold", "must be >= 0, got %d", c.Rewards.ReviewThreshold)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		ve.Add("metrics.port", "must be a valid TCP port, got %d", c.Metrics.Port)
	}
	return ve.OrNil()
}

// Board returns the orchestrator settings.
func (c *Config) Board() board.Config {
	cfg := board.DefaultConfig()
	cfg.NotifyOnDeadlines = c.Notifications.OnDeadlines
	cfg.NotifyOnExpirations = c.Notifications.OnExpirations
	cfg.DeadlineThresholds = append([]int(nil), c.Notifications.DeadlineThresholds...)
	if c.Rewards.ReviewThreshold > 0 {
		cfg.ReviewThreshold = c.Rewards.ReviewThreshold
	}
	return cfg
}
