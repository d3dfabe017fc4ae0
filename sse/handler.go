package sse

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
)

const tracerName = "github.com/kbukum/streamkit/sse"

// SetupFunc registers the events of one stream before it runs. Returning
// an error rejects the request; an *errors.AppError keeps its status.
type SetupFunc func(s *Scheduler, r *http.Request) error

// Dispatcher accepts pushes for subscription events. *Scheduler implements it.
type Dispatcher interface {
	Dispatch(channel, payload string) error
}

// Bridge feeds messages from an external broker into a stream. Attach
// subscribes to channels and forwards until ctx is done; the returned
// function releases the subscription.
type Bridge interface {
	Attach(ctx context.Context, d Dispatcher, channels []string) (func(), error)
}

// HandlerOptions are the collaborators of a Handler. Every field is optional.
type HandlerOptions struct {
	Setup   SetupFunc
	Bridge  Bridge
	Metrics Metrics
	Tracer  trace.Tracer
	Logger  *logger.Logger
}

// Handler serves one event stream per request.
type Handler struct {
	cfg      Config
	settings Settings
	opts     HandlerOptions
	log      *logger.Logger

	mu      sync.Mutex
	streams map[string]*Scheduler
	closed  bool
	wg      sync.WaitGroup
}

var _ http.Handler = (*Handler)(nil)

// NewHandler creates a stream handler. cfg gets its defaults applied and
// must validate.
func NewHandler(cfg Config, opts HandlerOptions) (*Handler, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Handler{
		cfg:      cfg,
		settings: cfg.Settings(),
		opts:     opts,
		log:      opts.Logger.WithComponent("sse.handler"),
		streams:  make(map[string]*Scheduler),
	}, nil
}

// Config returns the handler config with defaults applied.
func (h *Handler) Config() Config { return h.cfg }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lastID := LastEventID(r)
	ctx, span := h.opts.Tracer.Start(r.Context(), "sse.stream",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.route", h.cfg.Path),
			attribute.Int64("sse.last_event_id", lastID),
		),
	)
	defer span.End()

	opts := []Option{
		WithLogger(h.opts.Logger),
		WithMetrics(h.opts.Metrics),
		WithHeaders(h.streamHeaders()),
	}
	if lastID > 0 {
		opts = append(opts, WithLastEventID(lastID))
	}
	s := New(h.settings, NewHTTPSink(w, r, h.log), opts...)
	span.SetAttributes(attribute.String("sse.stream_id", s.ID()))
	log := h.log.WithFields(map[string]interface{}{logger.FieldStreamID: s.ID()})

	if h.opts.Setup != nil {
		if err := h.opts.Setup(s, r); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "setup failed")
			log.Warn("Stream setup rejected", logger.ErrorFields("setup", err))
			errors.Write(w, err)
			return
		}
	}

	if !h.track(s) {
		errors.Write(w, errors.ServiceUnavailable("sse"))
		return
	}
	defer h.untrack(s)

	ctx = logger.ContextWithStreamID(ctx, s.ID())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if h.opts.Bridge != nil {
		if channels := s.Channels(); len(channels) > 0 {
			detach, err := h.opts.Bridge.Attach(ctx, s, channels)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "bridge attach failed")
				log.Error("Could not subscribe stream channels", logger.ErrorFields("attach", err))
				errors.Write(w, err)
				return
			}
			defer detach()
		}
	}

	err := s.Run(ctx)
	span.SetAttributes(
		attribute.String("sse.stop_reason", string(s.StopReason())),
		attribute.Int64("sse.events_sent", s.EventsSent()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(s.StopReason()))
	}
}

// streamHeaders returns the proxy headers for every stream. CORS is left
// to the server middleware.
func (h *Handler) streamHeaders() http.Header {
	hdr := make(http.Header)
	if h.cfg.DisableProxyBuffering() {
		hdr.Set("X-Accel-Buffering", "no")
	}
	return hdr
}

func (h *Handler) track(s *Scheduler) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.streams[s.ID()] = s
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(s *Scheduler) {
	h.mu.Lock()
	delete(h.streams, s.ID())
	h.mu.Unlock()
	h.wg.Done()
}

// ActiveStreams returns the number of streams currently running.
func (h *Handler) ActiveStreams() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams)
}

// Shutdown refuses new streams, stops the running ones and waits for them
// to return or for ctx to end.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	active := make([]*Scheduler, 0, len(h.streams))
	for _, s := range h.streams {
		active = append(active, s)
	}
	h.mu.Unlock()

	for _, s := range active {
		s.Stop()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		h.log.Info("All streams stopped", map[string]interface{}{"streams": len(active)})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastEventID reads the id a reconnecting client last saw, from the
// Last-Event-ID header or the lastEventId query parameter. Missing,
// malformed or negative values yield 0, as does math.MaxInt64, which
// leaves no id to resume with.
func LastEventID(r *http.Request) int64 {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("lastEventId")
	}
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 || id == math.MaxInt64 {
		return 0
	}
	return id
}
