package observability

import (
	"time"

	"github.com/kbukum/streamkit/validation"
)

// Config is the observability section of the service configuration.
type Config struct {
	// Tracing enables the OTLP trace exporter.
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`
	// Metrics enables the OTLP metric exporter.
	Metrics bool `yaml:"metrics" mapstructure:"metrics"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows plain HTTP to the collector.
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// ApplyDefaults fills the endpoint, sampling and export interval.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.Interval == 0 {
		c.Interval = 15 * time.Second
	}
}

// Validate checks the config with struct tags.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// TracerConfig derives the tracer settings for a service.
func (c Config) TracerConfig(service, version, environment string) TracerConfig {
	return TracerConfig{Exporter: c.exporter(service, version, environment), SampleRate: c.SampleRate}
}

// MeterConfig derives the meter settings for a service.
func (c Config) MeterConfig(service, version, environment string) MeterConfig {
	return MeterConfig{Exporter: c.exporter(service, version, environment), Interval: c.Interval}
}

func (c Config) exporter(service, version, environment string) Exporter {
	return Exporter{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    environment,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
	}
}
