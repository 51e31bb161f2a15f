// Package config handles YAML configuration parsing for the simulator.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Interval    time.Duration `yaml:"interval"`
	MaxRuntime  time.Duration `yaml:"max_runtime"`
	AssetsCSV   string        `yaml:"assets_csv"`
	ProductsCSV string        `yaml:"products_csv"`
	Seed        int64         `yaml:"seed"`
	Sink        SinkConfig    `yaml:"sink"`
	Publish     PublishConfig `yaml:"publish"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Log         LogConfig     `yaml:"log"`
}

// SinkConfig selects and configures the ingestion sink adapter.
type SinkConfig struct {
	Type     string        `yaml:"type"`     // "http" or "kafka"
	Endpoint string        `yaml:"endpoint"` // HTTP URL
	Brokers  []string      `yaml:"brokers"`  // Kafka bootstrap brokers
	Topic    string        `yaml:"topic"`    // Kafka topic
	Timeout  time.Duration `yaml:"timeout"`
}

// PublishConfig controls retry and pacing of the publisher.
type PublishConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	RateLimit      int           `yaml:"rate_limit"` // events/sec, 0 = unlimited
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty = disabled
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"` // "stderr" or "nop"
}

// Load reads and parses a YAML configuration file, applies defaults and
// validates. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Interval == 0 {
		c.Interval = 5 * time.Second
	}
	if c.AssetsCSV == "" {
		c.AssetsCSV = "infra/data/assets.csv"
	}
	if c.ProductsCSV == "" {
		c.ProductsCSV = "infra/data/products.csv"
	}
	if c.Sink.Type == "" {
		c.Sink.Type = "http"
	}
	if c.Sink.Endpoint == "" {
		c.Sink.Endpoint = os.Getenv("SINK_ENDPOINT")
	}
	if c.Sink.Timeout == 0 {
		c.Sink.Timeout = 10 * time.Second
	}
	if c.Publish.MaxAttempts == 0 {
		c.Publish.MaxAttempts = 3
	}
	if c.Publish.InitialBackoff == 0 {
		c.Publish.InitialBackoff = 200 * time.Millisecond
	}
	if c.Publish.MaxBackoff == 0 {
		c.Publish.MaxBackoff = 5 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stderr"
	}
}

func (c *Config) validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.MaxRuntime < 0 {
		return fmt.Errorf("max_runtime must not be negative, got %v", c.MaxRuntime)
	}
	switch c.Sink.Type {
	case "http":
		if c.Sink.Endpoint == "" {
			return fmt.Errorf("sink.endpoint is required for the http sink (or set SINK_ENDPOINT)")
		}
	case "kafka":
		if len(c.Sink.Brokers) == 0 {
			return fmt.Errorf("sink.brokers is required for the kafka sink")
		}
		if c.Sink.Topic == "" {
			return fmt.Errorf("sink.topic is required for the kafka sink")
		}
	default:
		return fmt.Errorf("sink.type must be http or kafka, got %q", c.Sink.Type)
	}
	if c.Publish.MaxAttempts < 1 {
		return fmt.Errorf("publish.max_attempts must be at least 1, got %d", c.Publish.MaxAttempts)
	}
	if c.Publish.RateLimit < 0 {
		return fmt.Errorf("publish.rate_limit must not be negative, got %d", c.Publish.RateLimit)
	}
	return nil
}
