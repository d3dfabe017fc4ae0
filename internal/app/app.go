// Package app wires the sseld daemon: configuration, telemetry, the Redis
// bridge, the demo stream and the HTTP server, under one component registry.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/streamkit/component"
	apperrors "github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/redis"
	"github.com/kbukum/streamkit/server"
	"github.com/kbukum/streamkit/server/endpoint"
	"github.com/kbukum/streamkit/server/middleware"
	"github.com/kbukum/streamkit/sse"
	"github.com/kbukum/streamkit/version"
)

// Event names of the demo stream.
const (
	EventWelcome = "welcome"
	EventClock   = "clock"
)

// maxPublishBytes caps the body of a publish request; larger bodies get 413.
const maxPublishBytes = 64 << 10

// App is a wired sseld instance.
type App struct {
	cfg      *Config
	log      *logger.Logger
	registry *component.Registry
	server   *server.Server
	streams  *sse.Handler
	redis    *redis.Component

	shutdown []func(context.Context) error
}

// New builds every component from cfg. Telemetry providers are installed
// here; nothing listens until Start.
func New(ctx context.Context, cfg *Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{
		cfg:      cfg,
		log:      log,
		registry: component.NewRegistry(log.WithComponent("registry")),
	}
	if t := cfg.Server.ShutdownTimeout; t > 0 {
		a.registry.SetStopTimeout(time.Duration(t) * time.Second)
	}

	metrics, err := a.initTelemetry(ctx)
	if err != nil {
		return nil, err
	}

	var bridge sse.Bridge
	if cfg.Redis.Enabled {
		a.redis = redis.NewComponent(cfg.Redis, log)
		bridge = a.redis.Bridge()
		if err := a.registry.Register(a.redis); err != nil {
			return nil, err
		}
	}

	a.streams, err = sse.NewHandler(cfg.SSE, sse.HandlerOptions{
		Setup:   a.setupStream,
		Bridge:  bridge,
		Metrics: metrics,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("stream handler: %w", err)
	}

	a.server = server.New(cfg.Server, log)
	a.server.RegisterDefaultEndpoints(cfg.Name, version.Get().Short(), a.registry.HealthAll)
	a.server.Mount(a.streams.Config().Path, a.streams)
	a.server.GinEngine().GET("/debug/runtime", endpoint.Runtime(a.streams.ActiveStreams))
	if a.redis != nil {
		a.server.GinEngine().POST("/channels/:channel", a.publishHandlers()...)
	}

	// Stop order is the reverse: streams end before the server drains.
	if err := a.registry.Register(server.NewComponent(a.server)); err != nil {
		return nil, err
	}
	if err := a.registry.Register(sse.NewComponent(a.streams)); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) initTelemetry(ctx context.Context) (sse.Metrics, error) {
	obs := a.cfg.Observability
	v := version.Get().Short()

	if obs.Tracing {
		tp, err := observability.InitTracer(ctx, obs.TracerConfig(a.cfg.Name, v, a.cfg.Environment))
		if err != nil {
			return nil, fmt.Errorf("tracing: %w", err)
		}
		a.shutdown = append(a.shutdown, tp.Shutdown)
	}

	if !obs.Metrics {
		return nil, nil
	}
	mp, err := observability.InitMeter(ctx, obs.MeterConfig(a.cfg.Name, v, a.cfg.Environment))
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.shutdown = append(a.shutdown, mp.Shutdown)

	m, err := observability.NewStreamMetrics(observability.Meter(a.cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	return m, nil
}

// setupStream registers the demo events on every new stream.
func (a *App) setupStream(s *sse.Scheduler, _ *http.Request) error {
	s.AddStartEvent(EventWelcome, sse.Value(a.cfg.Demo.Welcome))
	if _, err := s.AddTimerEvent(EventClock, a.cfg.Demo.ClockPeriod(), clock); err != nil {
		return err
	}
	if a.redis != nil {
		for _, ch := range a.cfg.Redis.Channels {
			s.AddSubscriptionEvent(ch, ch, nil)
		}
	}
	return nil
}

func clock(context.Context, string) (string, bool, error) {
	return time.Now().UTC().Format(time.RFC3339), true, nil
}

// publishHandlers is the publish route chain: the optional per-IP rate
// limit, the body cap, then publish.
func (a *App) publishHandlers() []gin.HandlerFunc {
	var hs []gin.HandlerFunc
	if rpm := a.cfg.Publish.RequestsPerMinute; rpm > 0 {
		hs = append(hs, middleware.RateLimit(middleware.RateLimitConfig{RequestsPerMinute: rpm}))
	}
	return append(hs, middleware.GinBodySizeLimit(maxPublishBytes), a.publish)
}

// publish forwards the request body to a Redis channel.
func (a *App) publish(c *gin.Context) {
	channel := c.Param("channel")
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			server.RespondWithError(c, apperrors.PayloadTooLarge(tooLarge.Limit))
			return
		}
		server.RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return
	}
	if len(body) == 0 {
		server.RespondWithError(c, apperrors.InvalidInput("body", "must not be empty"))
		return
	}

	client := a.redis.Client()
	if client == nil {
		server.RespondWithError(c, apperrors.ServiceUnavailable("redis"))
		return
	}
	n, err := client.Publish(c.Request.Context(), channel, string(body))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, map[string]any{"channel": channel, "receivers": n})
}

// Start starts every component and logs the startup summary.
func (a *App) Start(ctx context.Context) error {
	if err := a.registry.StartAll(ctx); err != nil {
		return err
	}
	for _, d := range a.registry.Describe() {
		a.log.Info("Component ready", map[string]interface{}{
			"component": d.Name,
			"type":      d.Type,
			"details":   d.Details,
		})
	}
	return nil
}

// Stop stops every component, then flushes telemetry.
func (a *App) Stop(ctx context.Context) error {
	err := a.registry.StopAll(ctx)
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if serr := a.shutdown[i](ctx); serr != nil {
			a.log.Warn("Telemetry shutdown failed", logger.ErrorFields("shutdown", serr))
		}
	}
	return err
}

// Run starts the app, blocks until ctx is done and stops it within the
// server's shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background())
		return err
	}
	a.log.Info("sseld running", map[string]interface{}{
		"addr":    a.server.Addr(),
		"path":    a.streams.Config().Path,
		"version": version.Get().Short(),
	})

	<-ctx.Done()
	a.log.Info("Shutdown requested")

	timeout := time.Duration(a.cfg.Server.ShutdownTimeout) * time.Second
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*timeout)
	defer cancel()
	return a.Stop(stopCtx)
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server { return a.server }

// Streams returns the stream handler.
func (a *App) Streams() *sse.Handler { return a.streams }
