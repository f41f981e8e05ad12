package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"cclens/internal/analytics"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Analytics AnalyticsConfig `yaml:"analytics" envconfig:"ANALYTICS"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// DataConfig describes where the complaints dataset comes from.
type DataConfig struct {
	// CSVPath is the dataset location, resolved against the executable
	// directory when relative.
	CSVPath string `yaml:"csv_path" envconfig:"CSV_PATH"`

	// SourceURL is an optional download location (plain HTTP or a Google
	// Drive share link) used when the CSV is missing or a fetch is forced.
	SourceURL string `yaml:"source_url" envconfig:"SOURCE_URL"`

	// FetchIfMissing downloads from SourceURL at startup when CSVPath does
	// not exist yet.
	FetchIfMissing bool `yaml:"fetch_if_missing" envconfig:"FETCH_IF_MISSING"`
}

// AnalyticsConfig tunes the rollup thresholds. The zero value is not
// usable; Load applies the defaults below before validation.
type AnalyticsConfig struct {
	CriticalPct    float64 `yaml:"critical_pct" envconfig:"CRITICAL_PCT"`
	WatchPct       float64 `yaml:"watch_pct" envconfig:"WATCH_PCT"`
	IndustryAvgPct float64 `yaml:"industry_avg_pct" envconfig:"INDUSTRY_AVG_PCT"`
	RisingPct      float64 `yaml:"rising_pct" envconfig:"RISING_PCT"`
	FallingPct     float64 `yaml:"falling_pct" envconfig:"FALLING_PCT"`
	LatencyMinDays int     `yaml:"latency_min_days" envconfig:"LATENCY_MIN_DAYS"`
	LatencyMaxDays int     `yaml:"latency_max_days" envconfig:"LATENCY_MAX_DAYS"`
	FastDays       int     `yaml:"fast_days" envconfig:"FAST_DAYS"`
	DefaultTopN    int     `yaml:"default_top_n" envconfig:"DEFAULT_TOP_N"`
	MaxTopN        int     `yaml:"max_top_n" envconfig:"MAX_TOP_N"`
}

// Thresholds converts the configured values to the analytics package type.
func (a AnalyticsConfig) Thresholds() analytics.Thresholds {
	return analytics.Thresholds{
		CriticalPct:    a.CriticalPct,
		WatchPct:       a.WatchPct,
		IndustryAvgPct: a.IndustryAvgPct,
		RisingPct:      a.RisingPct,
		FallingPct:     a.FallingPct,
		WindowMinDays:  a.LatencyMinDays,
		WindowMaxDays:  a.LatencyMaxDays,
		FastDays:       a.FastDays,
	}
}

// CacheConfig controls the analytics result cache.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled" envconfig:"ENABLED"`
	MaxEntries int  `yaml:"max_entries" envconfig:"MAX_ENTRIES"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load loads configuration with the precedence env > file > defaults.
func Load() (*Config, error) {
	cfg := Default()

	// Overlay the config file if one exists. Fields absent from the file
	// keep their defaults.
	if configFile := getConfigFilePath(); configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configFile, err)
		}
	}

	// Environment variables win over everything.
	if err := envconfig.Process("CCLENS", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// resolvePaths anchors relative file locations at the executable directory.
func (c *Config) resolvePaths() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("get paths: %w", err)
	}

	if c.Data.CSVPath == "" {
		c.Data.CSVPath = paths.DatasetCSV
	} else if !filepath.IsAbs(c.Data.CSVPath) {
		c.Data.CSVPath = filepath.Join(paths.ExecutableDir, c.Data.CSVPath)
	}

	if c.Logging.FilePath != "" && !filepath.IsAbs(c.Logging.FilePath) {
		c.Logging.FilePath = filepath.Join(paths.ExecutableDir, c.Logging.FilePath)
	}

	return paths.EnsureDirectories()
}

// validate checks the configuration and normalizes the logging block.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}

	if c.Analytics.WatchPct < 0 || c.Analytics.CriticalPct < c.Analytics.WatchPct {
		return fmt.Errorf("risk thresholds out of order: critical %.1f < watch %.1f",
			c.Analytics.CriticalPct, c.Analytics.WatchPct)
	}
	if c.Analytics.LatencyMaxDays < c.Analytics.LatencyMinDays {
		return fmt.Errorf("latency window inverted: max %d < min %d",
			c.Analytics.LatencyMaxDays, c.Analytics.LatencyMinDays)
	}
	if c.Analytics.DefaultTopN <= 0 || c.Analytics.DefaultTopN > c.Analytics.MaxTopN {
		return fmt.Errorf("invalid default top-n: %d (max %d)",
			c.Analytics.DefaultTopN, c.Analytics.MaxTopN)
	}

	if c.Cache.Enabled && c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be positive")
	}

	if c.Data.CSVPath == "" {
		return fmt.Errorf("data csv path must be set")
	}

	// Structured logs are always JSON; the console handler is for
	// development only.
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second, // exports can take a while on the full dataset
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:       DefaultLogLevel,
			Format:      DefaultLogFormat,
			Output:      "both",
			FilePath:    "logs/app.log",
			Development: false,
		},
		Data: DataConfig{
			CSVPath:        DefaultDatasetCSV,
			FetchIfMissing: true,
		},
		Analytics: AnalyticsConfig{
			CriticalPct:    22,   // dispute share at or above this is critical
			WatchPct:       15,   // watch band lower bound
			IndustryAvgPct: 20.2, // published industry-wide dispute share
			RisingPct:      10,   // growth beyond +10% reads as rising
			FallingPct:     -10,  // decline beyond -10% reads as falling
			LatencyMinDays: 0,
			LatencyMaxDays: 30, // routing-latency window for the charts
			FastDays:       3,  // "fast response" KPI cutoff
			DefaultTopN:    DefaultTopN,
			MaxTopN:        MaxTopN,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 256,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
	}
}
