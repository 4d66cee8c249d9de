// Package config loads the YAML configuration of the worker host.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "json"

	defaultMaxReconnectInterval = 30 * time.Second

	defaultPollers         = 2
	defaultPollingInterval = 200 * time.Millisecond

	defaultTracingExporter = ExporterNone
)

// Tracing exporters
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlphttp"
)

type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Worker      WorkerConfig      `yaml:"worker"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CoordinatorConfig struct {
	// Address of the coordinator's gRPC endpoint, e.g. localhost:4001
	Address string `yaml:"address"`

	MaxReconnectInterval time.Duration `yaml:"max_reconnect_interval"`
}

type WorkerConfig struct {
	Pollers int `yaml:"pollers"`

	// Zero means unlimited
	MaxParallelOrchestratorTasks int `yaml:"max_parallel_orchestrator_tasks"`
	MaxParallelActivityTasks     int `yaml:"max_parallel_activity_tasks"`

	PollingInterval time.Duration `yaml:"polling_interval"`
}

type TracingConfig struct {
	// Exporter is one of none, stdout or otlphttp
	Exporter string `yaml:"exporter"`

	// Endpoint of the OTLP collector, only used by the otlphttp exporter
	Endpoint string `yaml:"endpoint"`

	Insecure bool `yaml:"insecure"`
}

type MetricsConfig struct {
	// Address to serve /metrics on. Metrics are disabled when empty.
	Address string `yaml:"address"`
}

// SetDefaults fills in defaults for optional fields
func (c *Config) SetDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Coordinator.MaxReconnectInterval == 0 {
		c.Coordinator.MaxReconnectInterval = defaultMaxReconnectInterval
	}
	if c.Worker.Pollers == 0 {
		c.Worker.Pollers = defaultPollers
	}
	if c.Worker.PollingInterval == 0 {
		c.Worker.PollingInterval = defaultPollingInterval
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = defaultTracingExporter
	}
}

func (c *Config) Validate() error {
	if c.Coordinator.Address == "" {
		return errors.New("coordinator address is required")
	}
	if c.Coordinator.MaxReconnectInterval < 0 {
		return errors.New("coordinator max reconnect interval must not be negative")
	}
	if c.Worker.Pollers < 1 {
		return errors.New("worker pollers must be positive")
	}
	if c.Worker.MaxParallelOrchestratorTasks < 0 || c.Worker.MaxParallelActivityTasks < 0 {
		return errors.New("worker parallelism must not be negative")
	}
	if c.Worker.PollingInterval < 0 {
		return errors.New("worker polling interval must not be negative")
	}
	if _, err := c.Logging.level(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	switch c.Tracing.Exporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLPHTTP:
		if c.Tracing.Endpoint == "" {
			return errors.New("tracing endpoint is required for the otlphttp exporter")
		}
	default:
		return fmt.Errorf("unknown tracing exporter %q", c.Tracing.Exporter)
	}

	return nil
}

func (l LoggingConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}

	return level, nil
}

// NewLogger returns a logger writing to w in the configured format and level.
func (l LoggingConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(l.Format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", l.Format)
	}
}

// Parse decodes a YAML configuration, applies defaults and validates the result.
func Parse(r io.Reader) (Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Load reads the YAML configuration file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()

	return Parse(f)
}
