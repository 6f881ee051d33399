package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Agent    AgentConfig    `mapstructure:"agent"`
	Spool    SpoolConfig    `mapstructure:"spool"`
	Exporter ExporterConfig `mapstructure:"exporter"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AgentConfig struct {
	Hostname string `mapstructure:"hostname"`
}

type SpoolConfig struct {
	Dir            string        `mapstructure:"dir"`
	MaxDiskSize    int64         `mapstructure:"max_disk_size"`
	MaxBatchSize   int64         `mapstructure:"max_batch_size"`
	LeniencyFactor float64       `mapstructure:"leniency_factor"`
	FlushInterval  time.Duration `mapstructure:"flush_interval"`
	RecordType     string        `mapstructure:"record_type"`
}

type ExporterConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Backend    string        `mapstructure:"backend"`
	Interval   time.Duration `mapstructure:"interval"`
	BatchLimit int           `mapstructure:"batch_limit"`
	HTTP       HTTPConfig    `mapstructure:"http"`
	NATS       NATSConfig    `mapstructure:"nats"`
}

type HTTPConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	Stream  string `mapstructure:"stream"`
	Name    string `mapstructure:"name"`
}

type CaptureConfig struct {
	Mode string        `mapstructure:"mode"`
	Rate time.Duration `mapstructure:"rate"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("agent.hostname", "")
	v.SetDefault("spool.dir", "/var/lib/sentryflow/spool")
	v.SetDefault("spool.max_disk_size", 256*1024*1024)
	v.SetDefault("spool.max_batch_size", 1024*1024)
	v.SetDefault("spool.leniency_factor", 1.2)
	v.SetDefault("spool.flush_interval", "5s")
	v.SetDefault("spool.record_type", "endpoint.event")
	v.SetDefault("exporter.enabled", true)
	v.SetDefault("exporter.backend", "http")
	v.SetDefault("exporter.interval", "10s")
	v.SetDefault("exporter.batch_limit", 16)
	v.SetDefault("exporter.http.url", "http://localhost:8087")
	v.SetDefault("exporter.http.timeout", "30s")
	v.SetDefault("exporter.nats.url", "nats://localhost:4222")
	v.SetDefault("exporter.nats.subject", "sentryflow.batches")
	v.SetDefault("exporter.nats.stream", "SENTRYFLOW_BATCHES")
	v.SetDefault("exporter.nats.name", "sentryflow-agent")
	v.SetDefault("capture.mode", "none")
	v.SetDefault("capture.rate", "100ms")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9187")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("agent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sentryflow")
	}

	// Environment variables override
	v.SetEnvPrefix("SENTRYFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration invariants that would otherwise surface as
// runtime misbehavior deep inside the spool.
func (c *Config) Validate() error {
	if c.Spool.Dir == "" {
		return fmt.Errorf("spool.dir must not be empty")
	}
	if c.Spool.MaxDiskSize <= 0 {
		return fmt.Errorf("spool.max_disk_size must be positive, got %d", c.Spool.MaxDiskSize)
	}
	if c.Spool.MaxBatchSize <= 0 {
		return fmt.Errorf("spool.max_batch_size must be positive, got %d", c.Spool.MaxBatchSize)
	}
	if c.Spool.MaxBatchSize > c.Spool.MaxDiskSize {
		return fmt.Errorf("spool.max_batch_size (%d) must not exceed spool.max_disk_size (%d)",
			c.Spool.MaxBatchSize, c.Spool.MaxDiskSize)
	}
	if c.Spool.LeniencyFactor < 1.0 {
		return fmt.Errorf("spool.leniency_factor must be >= 1.0, got %v", c.Spool.LeniencyFactor)
	}
	if c.Spool.FlushInterval <= 0 {
		return fmt.Errorf("spool.flush_interval must be positive, got %v", c.Spool.FlushInterval)
	}
	if c.Exporter.Enabled {
		switch c.Exporter.Backend {
		case "http", "nats":
		default:
			return fmt.Errorf("exporter.backend must be \"http\" or \"nats\", got %q", c.Exporter.Backend)
		}
		if c.Exporter.BatchLimit <= 0 {
			return fmt.Errorf("exporter.batch_limit must be positive, got %d", c.Exporter.BatchLimit)
		}
	}
	switch c.Capture.Mode {
	case "none", "synthetic":
	default:
		return fmt.Errorf("capture.mode must be \"none\" or \"synthetic\", got %q", c.Capture.Mode)
	}
	return nil
}
