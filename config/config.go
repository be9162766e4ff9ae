package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	StatusCache StatusCacheConfig `yaml:"status_cache"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	AutoAssign  AutoAssignConfig  `yaml:"auto_assign"`
	Push        PushConfig        `yaml:"push"`
	WorkerPool  WorkerPoolConfig  `yaml:"worker_pool"`
	NATS        NATSConfig        `yaml:"nats"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" validate:"min=1,max=65535"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" validate:"gt=0"`
	RateLimitBurst  int     `yaml:"rate_limit_burst" validate:"min=1"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds" validate:"min=1"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN                    string `yaml:"dsn" validate:"required"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// StatusCacheConfig controls the provisional status cache.
type StatusCacheConfig struct {
	TTLSeconds             int           `yaml:"ttl_seconds" validate:"min=1"`
	TTL                    time.Duration `yaml:"-"`
	CleanupIntervalSeconds int           `yaml:"cleanup_interval_seconds" validate:"min=1"`
	CleanupInterval        time.Duration `yaml:"-"`
	SnapshotPath           string        `yaml:"snapshot_path"`
}

// ReconcileConfig controls the polling fallback and durable call timeouts.
type ReconcileConfig struct {
	IntervalSeconds     int           `yaml:"interval_seconds" validate:"min=1"`
	Interval            time.Duration `yaml:"-"`
	StoreTimeoutSeconds int           `yaml:"store_timeout_seconds" validate:"min=1"`
	StoreTimeout        time.Duration `yaml:"-"`
}

// AutoAssignConfig selects how work areas are ordered before allocation.
type AutoAssignConfig struct {
	AreaOrder string `yaml:"area_order" validate:"oneof=headcount given shuffle"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key" validate:"required_with=PublicKey"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size" validate:"min=1"`
}

// NATSConfig enables relaying bus notifications between processes.
type NATSConfig struct {
	URL           string `yaml:"url" validate:"omitempty,url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// LogConfig controls log file naming.
type LogConfig struct {
	Env string `yaml:"env"`
	Dir string `yaml:"dir"`
}

var validate = validator.New()

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset values and derives the duration fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.StatusCache.TTLSeconds <= 0 {
		cfg.StatusCache.TTLSeconds = 3600
	}
	cfg.StatusCache.TTL = time.Duration(cfg.StatusCache.TTLSeconds) * time.Second
	if cfg.StatusCache.CleanupIntervalSeconds <= 0 {
		cfg.StatusCache.CleanupIntervalSeconds = 600
	}
	cfg.StatusCache.CleanupInterval = time.Duration(cfg.StatusCache.CleanupIntervalSeconds) * time.Second

	if cfg.Reconcile.IntervalSeconds <= 0 {
		cfg.Reconcile.IntervalSeconds = 30
	}
	cfg.Reconcile.Interval = time.Duration(cfg.Reconcile.IntervalSeconds) * time.Second
	if cfg.Reconcile.StoreTimeoutSeconds <= 0 {
		cfg.Reconcile.StoreTimeoutSeconds = 10
	}
	cfg.Reconcile.StoreTimeout = time.Duration(cfg.Reconcile.StoreTimeoutSeconds) * time.Second

	if cfg.AutoAssign.AreaOrder == "" {
		cfg.AutoAssign.AreaOrder = "headcount"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "staffplan"
	}

	if cfg.Log.Env == "" {
		cfg.Log.Env = "dev"
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = "logs"
	}
}

// Validate validates the configuration struct.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
