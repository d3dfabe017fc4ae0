package sse

import (
	"strings"
	"time"

	"github.com/kbukum/streamkit/validation"
)

const (
	DefaultExecLimit         = 60 * time.Second
	DefaultRetryTime         = time.Second
	DefaultKeepAliveInterval = 30 * time.Second
	DefaultKeepAliveMessage  = "keep alive"
	DefaultPath              = "/events"
)

// Settings are the per-stream policies. Zero durations disable the
// corresponding policy.
type Settings struct {
	ExecLimit         time.Duration
	RetryTime         time.Duration
	KeepAliveInterval time.Duration
	SendEventName     bool
	KeepAliveMessage  string
}

// DefaultSettings returns a 60s exec limit, 1s retry, 30s keep-alive and
// named events.
func DefaultSettings() Settings {
	return Settings{
		ExecLimit:         DefaultExecLimit,
		RetryTime:         DefaultRetryTime,
		KeepAliveInterval: DefaultKeepAliveInterval,
		SendEventName:     true,
		KeepAliveMessage:  DefaultKeepAliveMessage,
	}
}

// Validate rejects negative durations.
func (s Settings) Validate() error {
	v := validation.New().
		NonNegativeDuration("exec_limit", s.ExecLimit).
		NonNegativeDuration("retry_time", s.RetryTime).
		NonNegativeDuration("keep_alive_interval", s.KeepAliveInterval)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Config is the file/env form of the stream settings plus handler options.
// Durations are in seconds. Pointer fields distinguish "unset" from 0.
type Config struct {
	ExecLimit         *float64 `yaml:"exec_limit" mapstructure:"exec_limit" validate:"omitnil,gte=0"`
	RetryTime         *float64 `yaml:"retry_time" mapstructure:"retry_time" validate:"omitnil,gte=0"`
	KeepAliveInterval *float64 `yaml:"keep_alive_interval" mapstructure:"keep_alive_interval" validate:"omitnil,gte=0"`
	SendEventName     *bool    `yaml:"send_event_name" mapstructure:"send_event_name"`
	KeepAliveMessage  *string  `yaml:"keep_alive_message" mapstructure:"keep_alive_message"`

	// Path is where the stream handler is mounted.
	Path string `yaml:"path" mapstructure:"path" validate:"required,startswith=/"`
	// BehindNginx adds X-Accel-Buffering: no to every stream.
	BehindNginx bool `yaml:"behind_nginx" mapstructure:"behind_nginx"`
	// ServerSoftware is matched against "nginx" when BehindNginx is unset,
	// for deployments that forward the proxy's SERVER_SOFTWARE string.
	ServerSoftware string `yaml:"server_software" mapstructure:"server_software"`
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	d := DefaultSettings()
	if c.ExecLimit == nil {
		c.ExecLimit = seconds(d.ExecLimit)
	}
	if c.RetryTime == nil {
		c.RetryTime = seconds(d.RetryTime)
	}
	if c.KeepAliveInterval == nil {
		c.KeepAliveInterval = seconds(d.KeepAliveInterval)
	}
	if c.SendEventName == nil {
		v := d.SendEventName
		c.SendEventName = &v
	}
	if c.KeepAliveMessage == nil {
		v := d.KeepAliveMessage
		c.KeepAliveMessage = &v
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
}

// Validate checks the config with struct tags.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Settings converts the config into stream settings. Unset fields take
// their defaults.
func (c Config) Settings() Settings {
	s := DefaultSettings()
	if c.ExecLimit != nil {
		s.ExecLimit = duration(*c.ExecLimit)
	}
	if c.RetryTime != nil {
		s.RetryTime = duration(*c.RetryTime)
	}
	if c.KeepAliveInterval != nil {
		s.KeepAliveInterval = duration(*c.KeepAliveInterval)
	}
	if c.SendEventName != nil {
		s.SendEventName = *c.SendEventName
	}
	if c.KeepAliveMessage != nil {
		s.KeepAliveMessage = *c.KeepAliveMessage
	}
	return s
}

// DisableProxyBuffering reports whether streams should carry
// X-Accel-Buffering: no.
func (c Config) DisableProxyBuffering() bool {
	return c.BehindNginx || strings.Contains(strings.ToLower(c.ServerSoftware), "nginx")
}

func seconds(d time.Duration) *float64 {
	v := d.Seconds()
	return &v
}

func duration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
