package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Playback  PlaybackConfig  `mapstructure:"playback"`
	Breaks    BreaksConfig    `mapstructure:"breaks"`
	Wellbeing WellbeingConfig `mapstructure:"wellbeing"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
}

// ServerConfig defines server ports and addresses
type ServerConfig struct {
	BindAddress    string   `mapstructure:"bind_address"`
	HTTPPort       int      `mapstructure:"http_port"`
	MetricsPort    int      `mapstructure:"metrics_port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // bolt, sqlite, redis or memory
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines the shared Redis backend
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	Channel      string `mapstructure:"channel"` // pub/sub channel for change broadcast
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"` // empty logs to stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// TrackingConfig defines watch-time accounting
type TrackingConfig struct {
	TickInterval          string  `mapstructure:"tick_interval"`
	MinSegment            string  `mapstructure:"min_segment"`
	OverLimitInterval     string  `mapstructure:"over_limit_interval"`
	RolloverCheckInterval string  `mapstructure:"rollover_check_interval"`
	NearLimitMinutes      float64 `mapstructure:"near_limit_minutes"`
}

// PlaybackConfig defines how player signals are reconciled
type PlaybackConfig struct {
	PollInterval string `mapstructure:"poll_interval"`
	StaleAfter   string `mapstructure:"stale_after"`
}

// BreaksConfig defines break reminder behaviour
type BreaksConfig struct {
	Snooze string `mapstructure:"snooze"`
}

// WellbeingConfig defines limit enforcement and history retention
type WellbeingConfig struct {
	PauseOnLimit         bool   `mapstructure:"pause_on_limit"`
	HistoryRetentionDays int    `mapstructure:"history_retention_days"`
	RetentionTime        string `mapstructure:"retention_time"`
}

// CatalogConfig defines the YouTube Data API client
type CatalogConfig struct {
	APIKey     string `mapstructure:"api_key"`
	RegionCode string `mapstructure:"region_code"`
	MaxResults int64  `mapstructure:"max_results"`
	CacheSize  int    `mapstructure:"cache_size"`
	CacheTTL   string `mapstructure:"cache_ttl"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("ZENTUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns the configuration produced by defaults alone.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// ValidKeys returns every configuration key the application understands.
func ValidKeys() map[string]bool {
	v := viper.New()
	setDefaults(v)

	keys := make(map[string]bool)
	for _, key := range v.AllKeys() {
		keys[key] = true
	}
	return keys
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.bind_address", "127.0.0.1")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.allowed_origins", []string{})

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", "/var/lib/zentube/zentube.bolt")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.channel", "zentube:changes")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	// Tracking defaults
	v.SetDefault("tracking.tick_interval", "10s")
	v.SetDefault("tracking.min_segment", "3s")
	v.SetDefault("tracking.over_limit_interval", "1m")
	v.SetDefault("tracking.rollover_check_interval", "1m")
	v.SetDefault("tracking.near_limit_minutes", 1.0)

	// Playback defaults
	v.SetDefault("playback.poll_interval", "5s")
	v.SetDefault("playback.stale_after", "15s")

	// Break defaults
	v.SetDefault("breaks.snooze", "5m")

	// Wellbeing defaults
	v.SetDefault("wellbeing.pause_on_limit", true)
	v.SetDefault("wellbeing.history_retention_days", 90)
	v.SetDefault("wellbeing.retention_time", "00:05")

	// Catalog defaults
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("catalog.region_code", "US")
	v.SetDefault("catalog.max_results", 24)
	v.SetDefault("catalog.cache_size", 256)
	v.SetDefault("catalog.cache_ttl", "10m")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "bolt"
	}
	switch cfg.Storage.Type {
	case "bolt", "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required")
		}
		storageDir := filepath.Dir(cfg.Storage.Path)
		if err := os.MkdirAll(storageDir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	case "memory":
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("redis host is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	durations := map[string]string{
		"tracking.tick_interval":           cfg.Tracking.TickInterval,
		"tracking.min_segment":             cfg.Tracking.MinSegment,
		"tracking.over_limit_interval":     cfg.Tracking.OverLimitInterval,
		"tracking.rollover_check_interval": cfg.Tracking.RolloverCheckInterval,
		"playback.poll_interval":           cfg.Playback.PollInterval,
		"playback.stale_after":             cfg.Playback.StaleAfter,
		"breaks.snooze":                    cfg.Breaks.Snooze,
		"catalog.cache_ttl":                cfg.Catalog.CacheTTL,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d <= 0 && key != "tracking.min_segment" {
			return fmt.Errorf("invalid %s: must be positive", key)
		}
	}

	if cfg.Tracking.NearLimitMinutes < 0 {
		return fmt.Errorf("invalid tracking.near_limit_minutes: %v", cfg.Tracking.NearLimitMinutes)
	}

	if _, err := time.Parse("15:04", cfg.Wellbeing.RetentionTime); err != nil {
		return fmt.Errorf("invalid wellbeing.retention_time: %w", err)
	}
	if cfg.Wellbeing.HistoryRetentionDays < 1 {
		return fmt.Errorf("invalid wellbeing.history_retention_days: %d", cfg.Wellbeing.HistoryRetentionDays)
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
