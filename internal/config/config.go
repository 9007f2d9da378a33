package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the inspector's process settings.
type Config struct {
	Addr            string            `yaml:"addr"`
	SnapshotDir     string            `yaml:"snapshot_dir"`
	ScriptDir       string            `yaml:"script_dir"`
	DefaultRuntime  string            `yaml:"default_runtime"`
	Runtimes        map[string]string `yaml:"runtimes"` // runtime name -> docker image
	EnableLauncher  bool              `yaml:"enable_launcher"`
	MaxSessions     int64             `yaml:"max_sessions"`
	RequestsPerHour int               `yaml:"requests_per_hour"`
	Burst           int               `yaml:"burst"`
	RequestTimeout  time.Duration     `yaml:"request_timeout"`
	Debug           bool              `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:           ":8080",
		SnapshotDir:    "./storage/snapshots",
		ScriptDir:      "./storage/scripts",
		DefaultRuntime: "node20",
		Runtimes: map[string]string{
			"node18": "node:18-slim",
			"node20": "node:20-slim",
			"node22": "node:22-slim",
		},
		EnableLauncher:  true,
		MaxSessions:     10,
		RequestsPerHour: 100,
		Burst:           10,
		RequestTimeout:  30 * time.Second,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then INSPECTOR_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("INSPECTOR_ADDR", &c.Addr)
	setString("INSPECTOR_SNAPSHOT_DIR", &c.SnapshotDir)
	setString("INSPECTOR_SCRIPT_DIR", &c.ScriptDir)
	setString("INSPECTOR_DEFAULT_RUNTIME", &c.DefaultRuntime)

	if v := os.Getenv("INSPECTOR_MAX_SESSIONS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("INSPECTOR_MAX_SESSIONS: %w", err)
		}
		c.MaxSessions = n
	}
	if v := os.Getenv("INSPECTOR_REQUESTS_PER_HOUR"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("INSPECTOR_REQUESTS_PER_HOUR: %w", err)
		}
		c.RequestsPerHour = n
	}
	if v := os.Getenv("INSPECTOR_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("INSPECTOR_BURST: %w", err)
		}
		c.Burst = n
	}
	if v := os.Getenv("INSPECTOR_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("INSPECTOR_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	if v := os.Getenv("INSPECTOR_ENABLE_LAUNCHER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("INSPECTOR_ENABLE_LAUNCHER: %w", err)
		}
		c.EnableLauncher = b
	}
	if v := os.Getenv("INSPECTOR_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("INSPECTOR_DEBUG: %w", err)
		}
		c.Debug = b
	}
	return nil
}

// Validate checks value ranges and cross-field consistency.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.SnapshotDir == "" {
		errs = append(errs, errors.New("snapshot_dir is required"))
	}
	if c.MaxSessions < 1 {
		errs = append(errs, fmt.Errorf("max_sessions must be positive, got %d", c.MaxSessions))
	}
	if c.RequestsPerHour < 1 {
		errs = append(errs, fmt.Errorf("requests_per_hour must be positive, got %d", c.RequestsPerHour))
	}
	if c.Burst < 1 {
		errs = append(errs, fmt.Errorf("burst must be positive, got %d", c.Burst))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.EnableLauncher {
		if c.ScriptDir == "" {
			errs = append(errs, errors.New("script_dir is required when the launcher is enabled"))
		}
		if _, ok := c.Runtimes[c.DefaultRuntime]; !ok {
			errs = append(errs, fmt.Errorf("default_runtime %q has no image", c.DefaultRuntime))
		}
	}
	return errors.Join(errs...)
}
