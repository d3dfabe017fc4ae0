package redis

import (
	"context"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
)

// Client publishes to and subscribes on stream channels. Stream channel
// names are mapped onto broker channels with Config.ChannelPrefix.
type Client struct {
	rdb       *goredis.Client
	cfg       Config
	log       *logger.Logger
	closeOnce sync.Once
	closeErr  error
}

// New validates cfg and builds the connection pool. Nothing is dialed
// until the first command; use Ping to check reachability.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, errors.ServiceUnavailable("redis").WithDetail("reason", "disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	log.Debug("redis pool configured", logger.Fields(
		"addr", cfg.Addr, "db", cfg.DB, "pool_size", cfg.PoolSize,
	))
	return &Client{rdb: goredis.NewClient(cfg.options()), cfg: cfg, log: log}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.ConnectionFailed("redis").WithCause(err)
	}
	return nil
}

// Publish returns how many subscribers received payload.
func (c *Client) Publish(ctx context.Context, channel, payload string) (int64, error) {
	n, err := c.rdb.Publish(ctx, c.brokerChannel(channel), payload).Result()
	if err != nil {
		return 0, errors.ServiceUnavailable("redis").WithCause(err)
	}
	c.log.Debug("published", logger.Fields(logger.FieldChannel, channel, "receivers", n))
	return n, nil
}

// Subscribe returns once the broker has confirmed the subscription.
func (c *Client) Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error) {
	broker := make([]string, 0, len(channels))
	for _, ch := range channels {
		broker = append(broker, c.brokerChannel(ch))
	}
	ps := c.rdb.Subscribe(ctx, broker...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.ConnectionFailed("redis").WithCause(err)
	}
	return ps, nil
}

func (c *Client) brokerChannel(channel string) string { return c.cfg.ChannelPrefix + channel }

func (c *Client) streamChannel(broker string) string {
	return strings.TrimPrefix(broker, c.cfg.ChannelPrefix)
}

// Config has defaults applied.
func (c *Client) Config() Config { return c.cfg }

// Close releases the pool. Later calls return the first result.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closeErr = c.rdb.Close()
	})
	return c.closeErr
}
