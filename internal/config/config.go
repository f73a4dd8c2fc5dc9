// Package config loads the settings of the tickfsm command.
//
// Values are layered, later sources winning:
//
//	defaults -> YAML file (optional) -> .env file (optional) -> environment
//
// Every field has a TICKFSM_ prefixed environment variable.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrParsingConfig = errors.New("failed to parse config")
)

// Config is the full command configuration.
type Config struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	Runtime   RuntimeConfig   `yaml:"runtime" envPrefix:"RUNTIME_"`
	Scheduler SchedulerConfig `yaml:"scheduler" envPrefix:"SCHEDULER_"`
	Metrics   MetricsConfig   `yaml:"metrics" envPrefix:"METRICS_"`
	Snapshot  SnapshotConfig  `yaml:"snapshot" envPrefix:"SNAPSHOT_"`
	Door      DoorConfig      `yaml:"door" envPrefix:"DOOR_"`
}

// RuntimeConfig configures the tick loop.
type RuntimeConfig struct {
	TickRate         time.Duration `yaml:"tick_rate" env:"TICK_RATE"`
	MaxEventsPerTick int           `yaml:"max_events_per_tick" env:"MAX_EVENTS_PER_TICK"`
}

// SchedulerConfig configures the task table and its clock.
type SchedulerConfig struct {
	Capacity   int           `yaml:"capacity" env:"CAPACITY"`
	Resolution time.Duration `yaml:"resolution" env:"RESOLUTION"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr" env:"ADDR"`
}

// SnapshotConfig configures the status snapshot written on exit.
type SnapshotConfig struct {
	Dir    string `yaml:"dir" env:"DIR"`
	Format string `yaml:"format" env:"FORMAT"`
}

// DoorConfig configures the demo door controller.
type DoorConfig struct {
	TogglePeriod    time.Duration `yaml:"toggle_period" env:"TOGGLE_PERIOD"`
	HeartbeatPeriod time.Duration `yaml:"heartbeat_period" env:"HEARTBEAT_PERIOD"`
	AutoClose       time.Duration `yaml:"auto_close" env:"AUTO_CLOSE"`
	// FailEvery makes every n-th toggle attempt report failure; 0 disables.
	FailEvery int `yaml:"fail_every" env:"FAIL_EVERY"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Runtime: RuntimeConfig{
			TickRate:         10 * time.Millisecond,
			MaxEventsPerTick: 1000,
		},
		Scheduler: SchedulerConfig{
			Capacity:   16,
			Resolution: time.Millisecond,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Snapshot: SnapshotConfig{
			Format: "json",
		},
		Door: DoorConfig{
			TogglePeriod:    time.Second,
			HeartbeatPeriod: 5 * time.Second,
			AutoClose:       3 * time.Second,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty), the given .env files (missing files are skipped) and the process
// environment, then validates it.
func Load(path string, dotenv ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Join(ErrParsingConfig, fmt.Errorf("yaml %s: %w", path, err))
		}
	}

	for _, f := range dotenv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "TICKFSM_"}); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
		}
	}

	check(c.Runtime.TickRate > 0, "runtime.tick_rate must be positive, got %v", c.Runtime.TickRate)
	check(c.Runtime.MaxEventsPerTick > 0, "runtime.max_events_per_tick must be positive, got %d", c.Runtime.MaxEventsPerTick)
	check(c.Scheduler.Capacity > 0, "scheduler.capacity must be positive, got %d", c.Scheduler.Capacity)
	check(c.Scheduler.Resolution > 0, "scheduler.resolution must be positive, got %v", c.Scheduler.Resolution)
	check(c.Door.TogglePeriod > 0, "door.toggle_period must be positive, got %v", c.Door.TogglePeriod)
	check(c.Door.HeartbeatPeriod > 0, "door.heartbeat_period must be positive, got %v", c.Door.HeartbeatPeriod)
	check(c.Door.AutoClose >= 0, "door.auto_close must not be negative, got %v", c.Door.AutoClose)
	check(c.Door.FailEvery >= 0, "door.fail_every must not be negative, got %d", c.Door.FailEvery)
	check(!c.Metrics.Enabled || c.Metrics.Addr != "", "metrics.addr is required when metrics are enabled")
	check(c.Snapshot.Format == "json" || c.Snapshot.Format == "yaml", "snapshot.format must be json or yaml, got %q", c.Snapshot.Format)

	return errors.Join(errs...)
}
