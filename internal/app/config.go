package app

import (
	"fmt"
	"time"

	"github.com/kbukum/streamkit/config"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/redis"
	"github.com/kbukum/streamkit/server"
	"github.com/kbukum/streamkit/sse"
	"github.com/kbukum/streamkit/validation"
)

// ServiceName is the config and telemetry name of the daemon.
const ServiceName = "sseld"

// Config is the full sseld configuration.
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	SSE           sse.Config           `yaml:"sse" mapstructure:"sse"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Publish       PublishConfig        `yaml:"publish" mapstructure:"publish"`
	Demo          DemoConfig           `yaml:"demo" mapstructure:"demo"`
}

// PublishConfig guards the publish endpoint.
type PublishConfig struct {
	// RequestsPerMinute limits publishes per client IP. Zero disables it.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute" validate:"gte=0"`
}

// DemoConfig shapes the demo stream mounted by serve.
type DemoConfig struct {
	// Welcome is the payload of the start event.
	Welcome string `yaml:"welcome" mapstructure:"welcome"`
	// ClockInterval is the clock event period in seconds.
	ClockInterval float64 `yaml:"clock_interval" mapstructure:"clock_interval" validate:"gte=0"`
}

// ClockPeriod returns the clock interval as a duration.
func (d DemoConfig) ClockPeriod() time.Duration {
	return time.Duration(d.ClockInterval * float64(time.Second))
}

// ApplyDefaults fills unset fields in every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.SSE.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.Demo.Welcome == "" {
		c.Demo.Welcome = "welcome"
	}
	if c.Demo.ClockInterval == 0 {
		c.Demo.ClockInterval = 1
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.SSE.Validate(); err != nil {
		return fmt.Errorf("sse: %w", err)
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	if err := validation.Validate(&c.Publish); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if err := validation.Validate(&c.Demo); err != nil {
		return fmt.Errorf("demo: %w", err)
	}
	return nil
}

// LoadConfig reads sseld configuration from file, .env and environment,
// then applies defaults and validates.
func LoadConfig(opts ...config.LoaderOption) (*Config, error) {
	var cfg Config
	if err := config.LoadConfig(ServiceName, &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
