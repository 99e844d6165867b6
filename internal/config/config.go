package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Deck source and build output
	SourceDir string   `yaml:"source_dir"`
	OutputDir string   `yaml:"output_dir"`
	Locales   []string `yaml:"locales"`

	// Rebuild on source changes
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Auth for the rebuild API; empty disables it
	APIKey string `yaml:"api_key"`

	// Sync hub
	SyncPath     string        `yaml:"sync_path"`
	PingInterval time.Duration `yaml:"ping_interval"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Build jobs
	MaxQueueSize int           `yaml:"max_queue"`
	JobTTL       time.Duration `yaml:"job_ttl"`
}

func defaults() Config {
	return Config{
		Port:          "8080",
		SourceDir:     "deck",
		OutputDir:     "static",
		Watch:         true,
		WatchDebounce: 300 * time.Millisecond,
		SyncPath:      "/sync",
		PingInterval:  30 * time.Second,
		WriteTimeout:  10 * time.Second,
		MaxQueueSize:  16,
		JobTTL:        1 * time.Hour,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// STEPDECK_CONFIG if set, then environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("STEPDECK_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.SourceDir = envOr("STEPDECK_SOURCE_DIR", cfg.SourceDir)
	cfg.OutputDir = envOr("STEPDECK_OUTPUT_DIR", cfg.OutputDir)
	cfg.Locales = envList("STEPDECK_LOCALES", cfg.Locales)
	cfg.Watch = envBool("STEPDECK_WATCH", cfg.Watch)
	cfg.WatchDebounce = envDuration("STEPDECK_WATCH_DEBOUNCE", cfg.WatchDebounce)
	cfg.APIKey = envOr("STEPDECK_API_KEY", cfg.APIKey)
	cfg.SyncPath = envOr("STEPDECK_SYNC_PATH", cfg.SyncPath)
	cfg.PingInterval = envDuration("STEPDECK_PING_INTERVAL", cfg.PingInterval)
	cfg.WriteTimeout = envDuration("STEPDECK_WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.MaxQueueSize = envInt("STEPDECK_MAX_QUEUE", cfg.MaxQueueSize)
	cfg.JobTTL = envDuration("STEPDECK_JOB_TTL", cfg.JobTTL)

	d := defaults()
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = d.WatchDebounce
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = d.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = d.WriteTimeout
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = d.MaxQueueSize
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = d.JobTTL
	}

	return cfg, nil
}

// loadFile overlays the YAML file at path onto cfg. ${VAR} references in the
// file are expanded from the environment.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("STEPDECK_SOURCE_DIR is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("STEPDECK_OUTPUT_DIR is required")
	}
	if !strings.HasPrefix(c.SyncPath, "/") {
		return fmt.Errorf("STEPDECK_SYNC_PATH must start with /: %q", c.SyncPath)
	}
	if strings.HasPrefix(c.SyncPath, "/api/") || c.SyncPath == "/health" {
		return fmt.Errorf("STEPDECK_SYNC_PATH %q collides with a server route", c.SyncPath)
	}
	for _, l := range c.Locales {
		if l == "" || l == "." || l == ".." || strings.ContainsAny(l, `/\`) {
			return fmt.Errorf("invalid locale %q", l)
		}
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be a number: %q", c.Port)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated value, dropping empty items.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
