package redis

import (
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/streamkit/resilience"
	"github.com/kbukum/streamkit/validation"
)

// Config is the redis section: the connection pool plus the pub/sub
// channels streams are bridged to.
type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`

	// PoolSize caps open sockets. Each attached stream pins one for its
	// subscription.
	PoolSize     int `mapstructure:"pool_size" validate:"gte=0"`
	MinIdleConns int `mapstructure:"min_idle_conns" validate:"gte=0"`
	MaxRetries   int `mapstructure:"max_retries" validate:"gte=0"`

	DialTimeout  time.Duration `mapstructure:"dial_timeout" validate:"gte=0"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0"`

	// ChannelPrefix namespaces broker channels: stream channel "news" is
	// broker channel ChannelPrefix+"news".
	ChannelPrefix string `mapstructure:"channel_prefix"`
	// Channels the demo stream subscribes to.
	Channels []string `mapstructure:"channels"`

	SubscribeRetry resilience.RetryConfig `mapstructure:"subscribe_retry"`
}

func (c *Config) ApplyDefaults() {
	setDefault(&c.PoolSize, 10)
	setDefault(&c.MinIdleConns, 2)
	setDefault(&c.MaxRetries, 3)
	setDefault(&c.DialTimeout, 5*time.Second)
	setDefault(&c.ReadTimeout, 3*time.Second)
	setDefault(&c.WriteTimeout, 3*time.Second)
	if c.SubscribeRetry.MaxAttempts <= 0 {
		c.SubscribeRetry = resilience.DefaultRetryConfig()
	}
}

func setDefault[T int | time.Duration](field *T, v T) {
	if *field <= 0 {
		*field = v
	}
}

// Validate is a no-op while the component is disabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.Validate(c)
}

func (c *Config) options() *goredis.Options {
	return &goredis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}
