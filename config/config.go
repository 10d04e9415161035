package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"water-quality-backend/internal/log"
	"water-quality-backend/internal/water"
)

// Upstream modes.
const (
	UpstreamMirror = "mirror"
	UpstreamDirect = "direct"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig        `yaml:"server"`
	Database   DatabaseConfig      `yaml:"database"`
	Upstream   UpstreamConfig      `yaml:"upstream"`
	Forecast   ForecastConfig      `yaml:"forecast"`
	Treatment  TreatmentConfig     `yaml:"treatment"`
	Ingest     IngestConfig        `yaml:"ingest"`
	WorkerPool WorkerPoolConfig    `yaml:"worker_pool"`
	Log        LogConfig           `yaml:"log"`
	Areas      []water.AreaProfile `yaml:"areas"`
	Chores     []water.Chore       `yaml:"chores"`
	Devices    []water.Device      `yaml:"devices"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port                   int           `yaml:"port"`
	RequestIPHeader        string        `yaml:"request_ip_header"`
	RateLimitPerSec        float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst         int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds        int           `yaml:"cache_ttl_seconds"`
	CacheTTL               time.Duration `yaml:"-"`
	ShutdownTimeoutSeconds int           `yaml:"shutdown_timeout_seconds"`
	ShutdownTimeout        time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
}

// UpstreamConfig describes the upstream sensor-data API.
type UpstreamConfig struct {
	Enabled          bool              `yaml:"enabled"`
	Mode             string            `yaml:"mode"`
	BaseURL          string            `yaml:"base_url"`
	Headers          map[string]string `yaml:"headers"`
	HTTPProxy        string            `yaml:"http_proxy"`
	Timezone         string            `yaml:"timezone"`
	Location         *time.Location    `yaml:"-"`
	IntervalSeconds  int               `yaml:"interval_seconds"`
	Interval         time.Duration     `yaml:"-"`
	TimeoutSeconds   int               `yaml:"timeout_seconds"`
	Timeout          time.Duration     `yaml:"-"`
	HistoryLimit     int               `yaml:"history_limit"`
	Retries          int               `yaml:"retries"`
	RetryBaseDelayMs int               `yaml:"retry_base_delay_ms"`
	RetryBaseDelay   time.Duration     `yaml:"-"`
}

// ForecastConfig controls how much live history feeds a forecast.
type ForecastConfig struct {
	HistoryHours int `yaml:"history_hours"`
}

// TreatmentConfig controls simulated treatment jobs.
type TreatmentConfig struct {
	TimeScale                float64 `yaml:"time_scale"`
	ProgressSteps            int     `yaml:"progress_steps"`
	DefaultFlowLPerMin       float64 `yaml:"default_flow_L_per_min"`
	DefaultRemovalEfficiency float64 `yaml:"default_removal_efficiency"`
}

// IngestConfig holds the shared secret sensors present when pushing samples.
type IngestConfig struct {
	Token string `yaml:"token"`
}

// WorkerPoolConfig holds the configuration for the treatment worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

// LogConfig selects the logger flavour.
type LogConfig struct {
	Debug bool `yaml:"debug"`
}

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
		return nil, err
	}

	applyEnv(&cfg)
	cfg.ApplyDefaults()
	return &cfg, nil
}

// applyEnv lets secrets live outside the config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("INGEST_TOKEN"); v != "" {
		cfg.Ingest.Token = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
}

// ApplyDefaults fills unset fields and derives durations.
func (cfg *Config) ApplyDefaults() {
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
		cfg.Server.CacheTTLSeconds = 60
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if cfg.Server.ShutdownTimeoutSeconds <= 0 {
		cfg.Server.ShutdownTimeoutSeconds = 5
	}
	cfg.Server.ShutdownTimeout = time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	cfg.Upstream.Mode = strings.ToLower(strings.TrimSpace(cfg.Upstream.Mode))
	if cfg.Upstream.Mode != UpstreamDirect {
		cfg.Upstream.Mode = UpstreamMirror
	}
	cfg.Upstream.BaseURL = strings.TrimRight(cfg.Upstream.BaseURL, "/")
	if cfg.Upstream.IntervalSeconds <= 0 {
		cfg.Upstream.IntervalSeconds = 300
	}
	cfg.Upstream.Interval = time.Duration(cfg.Upstream.IntervalSeconds) * time.Second
	if cfg.Upstream.TimeoutSeconds <= 0 {
		cfg.Upstream.TimeoutSeconds = 10
	}
	cfg.Upstream.Timeout = time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second
	if cfg.Upstream.HistoryLimit <= 0 {
		cfg.Upstream.HistoryLimit = 100
	}
	if cfg.Upstream.Retries <= 0 {
		cfg.Upstream.Retries = 3
	}
	if cfg.Upstream.RetryBaseDelayMs <= 0 {
		cfg.Upstream.RetryBaseDelayMs = 500
	}
	cfg.Upstream.RetryBaseDelay = time.Duration(cfg.Upstream.RetryBaseDelayMs) * time.Millisecond
	cfg.Upstream.Location = time.UTC
	if cfg.Upstream.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Upstream.Timezone)
		if err != nil {
			log.Warnf("upstream.timezone %q is invalid (%v); defaulting to UTC", cfg.Upstream.Timezone, err)
		} else {
			cfg.Upstream.Location = loc
		}
	}

	if cfg.Forecast.HistoryHours <= 0 {
		cfg.Forecast.HistoryHours = 30 * 24
	}

	if cfg.Treatment.TimeScale <= 0 {
		cfg.Treatment.TimeScale = 1
	}
	if cfg.Treatment.ProgressSteps <= 0 {
		cfg.Treatment.ProgressSteps = 10
	}
	if cfg.Treatment.DefaultFlowLPerMin <= 0 {
		cfg.Treatment.DefaultFlowLPerMin = 0.166
	}
	if cfg.Treatment.DefaultRemovalEfficiency <= 0 || cfg.Treatment.DefaultRemovalEfficiency > 1 {
		cfg.Treatment.DefaultRemovalEfficiency = 0.95
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Warnf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = cfg.WorkerPool.Size * 16
	}

	if len(cfg.Areas) == 0 {
		cfg.Areas = water.DefaultAreaProfiles()
	}
	if len(cfg.Chores) == 0 {
		cfg.Chores = water.DefaultChores()
	}
	if len(cfg.Devices) == 0 {
		cfg.Devices = water.DefaultDevices()
	}
}
