package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/streamkit/component"
	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/sse"
)

// Component wraps Client and implements component.Component for lifecycle management.
type Component struct {
	cfg Config
	log *logger.Logger

	mu     sync.RWMutex
	client *Client
	bridge *Bridge
}

// ensure Component satisfies component.Component and Describable.
var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a Redis component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Component{
		cfg: cfg,
		log: log.WithComponent("redis"),
	}
}

// Client returns the underlying *Client, or nil if not started.
func (c *Component) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Name returns the component name.
func (c *Component) Name() string { return "redis" }

// Start creates the client and verifies connectivity.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis start: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis start ping: %w", err)
	}

	c.mu.Lock()
	c.client = client
	c.bridge = NewBridge(client, c.log)
	c.mu.Unlock()
	c.log.Info("Redis component started")
	return nil
}

// Stop closes the Redis connection.
func (c *Component) Stop(_ context.Context) error {
	client := c.Client()
	if client == nil {
		return nil
	}
	c.log.Info("Redis component stopping")
	return client.Close()
}

// Health pings Redis.
func (c *Component) Health(ctx context.Context) component.Health {
	client := c.Client()
	if client == nil {
		return component.Unhealthy(c.Name(), "redis not initialized")
	}
	if err := client.Ping(ctx); err != nil {
		return component.Unhealthy(c.Name(), fmt.Sprintf("ping failed: %v", err))
	}
	return component.Healthy(c.Name(), map[string]any{"channels": len(c.cfg.Channels)})
}

// Describe returns infrastructure summary info for the startup display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Redis",
		Type:    "redis",
		Details: fmt.Sprintf("%s db=%d pool=%d prefix=%q", c.cfg.Addr, c.cfg.DB, c.cfg.PoolSize, c.cfg.ChannelPrefix),
	}
}

// Bridge returns an sse.Bridge over this component's client. It can be
// handed to the stream handler before Start; Attach fails with
// SERVICE_UNAVAILABLE until the client exists.
func (c *Component) Bridge() sse.Bridge {
	return componentBridge{c: c}
}

type componentBridge struct {
	c *Component
}

func (b componentBridge) Attach(ctx context.Context, d sse.Dispatcher, channels []string) (func(), error) {
	b.c.mu.RLock()
	bridge := b.c.bridge
	b.c.mu.RUnlock()
	if bridge == nil {
		return nil, errors.ServiceUnavailable("redis")
	}
	return bridge.Attach(ctx, d, channels)
}
