package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Collector   CollectorConfig `toml:"collector"`
	Filter      FilterConfig    `toml:"filter"`
	Monitor     MonitorConfig   `toml:"monitor"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// CollectorConfig contains engine-wide collection defaults. Per-task
// settings override these; per-platform HTTP policies override the timeout
// and delay for their platform.
type CollectorConfig struct {
	UserAgent        string        `toml:"user_agent"`        // Default user agent string
	RequestTimeout   time.Duration `toml:"request_timeout"`   // HTTP request timeout
	RetryCount       int           `toml:"retry_count"`       // Fetch retry budget
	RetryBackoff     time.Duration `toml:"retry_backoff"`     // Initial backoff between fetch retries
	ChunkDelay       time.Duration `toml:"chunk_delay"`       // Delay between batch chunks
	Concurrency      int           `toml:"concurrency"`       // Default batch chunk size
	ShopConcurrency  int           `toml:"shop_concurrency"`  // Chunk size for shop collection (rate-sensitive)
	MaxItems         int           `toml:"max_items"`         // Default shop discovery cap
	MaxBodySize      int           `toml:"max_body_size"`     // Maximum response body size in bytes
	Extractor        string        `toml:"extractor"`         // "goquery" or "mock" - explicit, never a silent fallback
	MinContentLength int           `toml:"min_content_length"`
	MaxContentLength int           `toml:"max_content_length"`
}

// FilterConfig contains content filter behavior toggles.
type FilterConfig struct {
	Enabled        bool     `toml:"enabled"`          // Master switch; tasks can still disable per task
	ExtraKeywords  []string `toml:"extra_keywords"`   // Service-wide custom keyword list
	TitleMaxLength int      `toml:"title_max_length"` // Hard cap applied by FilterTitle
}

// MonitorConfig contains progress monitor tuning.
type MonitorConfig struct {
	SpeedWindow   time.Duration `toml:"speed_window"`   // Trailing window for current speed
	ErrorLogSize  int           `toml:"error_log_size"` // Rolling error log cap per task
	SweepSchedule string        `toml:"sweep_schedule"` // Cron schedule for terminal-task eviction
	RetainFor     time.Duration `toml:"retain_for"`     // How long terminal tasks are retained
}

// WebSocketConfig contains configuration for the progress push channel.
type WebSocketConfig struct {
	// Throttle interval for product_progress broadcasts. Stats and cleanup
	// messages are never throttled.
	ProgressThrottle string `toml:"progress_throttle"`
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings should be exposed in harvester.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Collector: CollectorConfig{
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout:   10 * time.Second,
			RetryCount:       3,
			RetryBackoff:     time.Second,
			ChunkDelay:       2 * time.Second,
			Concurrency:      3,
			ShopConcurrency:  2,
			MaxItems:         20,
			MaxBodySize:      10 * 1024 * 1024, // 10MB
			Extractor:        "goquery",
			MinContentLength: 10,
			MaxContentLength: 5000,
		},
		Filter: FilterConfig{
			Enabled:        true,
			TitleMaxLength: 60,
		},
		Monitor: MonitorConfig{
			SpeedWindow:   5 * time.Minute,
			ErrorLogSize:  10,
			SweepSchedule: "0 * * * *", // hourly
			RetainFor:     24 * time.Hour,
		},
		WebSocket: WebSocketConfig{
			ProgressThrottle: "500ms",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override
// earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("HARVESTER_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("HARVESTER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("HARVESTER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("HARVESTER_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("HARVESTER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("HARVESTER_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if userAgent := os.Getenv("HARVESTER_COLLECTOR_USER_AGENT"); userAgent != "" {
		config.Collector.UserAgent = userAgent
	}
	if timeout := os.Getenv("HARVESTER_COLLECTOR_REQUEST_TIMEOUT"); timeout != "" {
		if rt, err := time.ParseDuration(timeout); err == nil {
			config.Collector.RequestTimeout = rt
		}
	}
	if concurrency := os.Getenv("HARVESTER_COLLECTOR_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Collector.Concurrency = c
		}
	}
	if extractor := os.Getenv("HARVESTER_COLLECTOR_EXTRACTOR"); extractor != "" {
		config.Collector.Extractor = extractor
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime behavior.
func (c *Config) Validate() error {
	if c.Collector.Extractor != "goquery" && c.Collector.Extractor != "mock" {
		return fmt.Errorf("collector.extractor must be \"goquery\" or \"mock\", got %q", c.Collector.Extractor)
	}
	if c.Collector.Concurrency < 1 {
		return fmt.Errorf("collector.concurrency must be at least 1")
	}
	if c.Collector.ShopConcurrency < 1 {
		return fmt.Errorf("collector.shop_concurrency must be at least 1")
	}
	if c.Monitor.ErrorLogSize < 1 {
		return fmt.Errorf("monitor.error_log_size must be at least 1")
	}
	return nil
}
