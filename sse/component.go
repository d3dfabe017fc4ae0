package sse

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kbukum/streamkit/component"
)

// Component wraps a Handler as a lifecycle-managed component. Stopping it
// ends every running stream.
type Component struct {
	handler *Handler
	started atomic.Bool
}

// ensure Component satisfies component.Component and Describable.
var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a stream component serving h.
func NewComponent(h *Handler) *Component {
	return &Component{handler: h}
}

// Handler returns the wrapped handler for mounting on a router.
func (c *Component) Handler() *Handler { return c.handler }

// Name returns the component name.
func (c *Component) Name() string { return "sse" }

// Start marks the component ready. Streams start per request.
func (c *Component) Start(_ context.Context) error {
	c.started.Store(true)
	return nil
}

// Stop stops every active stream and waits for them to finish.
func (c *Component) Stop(ctx context.Context) error {
	c.started.Store(false)
	return c.handler.Shutdown(ctx)
}

// Health reports the number of active streams.
func (c *Component) Health(_ context.Context) component.Health {
	n := c.handler.ActiveStreams()
	status := component.StatusHealthy
	if !c.started.Load() {
		status = component.StatusUnhealthy
	}
	return component.Health{
		Name:    c.Name(),
		Status:  status,
		Message: fmt.Sprintf("%d active streams", n),
		Details: map[string]any{"active_streams": n},
	}
}

// Describe returns infrastructure summary info for the startup display.
func (c *Component) Describe() component.Description {
	cfg := c.handler.Config()
	s := c.handler.settings
	return component.Description{
		Name: "SSE Streams",
		Type: "sse",
		Details: fmt.Sprintf("Path: %s exec_limit=%s keep_alive=%s",
			cfg.Path, s.ExecLimit, s.KeepAliveInterval),
	}
}
