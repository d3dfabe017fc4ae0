package sse

import (
	"container/heap"
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
)

// State is the lifecycle position of a Scheduler.
type State int32

const (
	// StateCreated accepts events, settings and queued pushes until Run.
	StateCreated State = iota
	// StateRunning is set while Run drives the loop.
	StateRunning
	// StateStopped is final; the scheduler cannot run again.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StopReason records why a stream ended.
type StopReason string

const (
	// ReasonNone is reported until the stream stops.
	ReasonNone StopReason = ""
	// ReasonExecLimit is the stream reaching its execution time limit.
	ReasonExecLimit StopReason = "exec_limit"
	// ReasonStopped is an explicit Stop call.
	ReasonStopped StopReason = "stopped"
	// ReasonContextDone is the Run context being cancelled.
	ReasonContextDone StopReason = "context_done"
	// ReasonConnectionLost is a write to a gone client.
	ReasonConnectionLost StopReason = "connection_lost"
	// ReasonProducerFailure is a producer returning an error.
	ReasonProducerFailure StopReason = "producer_failure"
)

// disconnectPollInterval bounds how long the loop sleeps before asking the
// sink whether the client is still connected.
const disconnectPollInterval = 100 * time.Millisecond

var errExecLimit = stderrors.New("sse: exec limit reached")

// Metrics receives stream lifecycle signals. observability.StreamMetrics
// implements it.
type Metrics interface {
	StreamStarted(ctx context.Context)
	StreamStopped(ctx context.Context, reason string, d time.Duration)
	EventSent(ctx context.Context, event string, typ Type)
	KeepAliveSent(ctx context.Context)
	ProducerFailed(ctx context.Context, event string)
}

type nopMetrics struct{}

func (nopMetrics) StreamStarted(context.Context)                       {}
func (nopMetrics) StreamStopped(context.Context, string, time.Duration) {}
func (nopMetrics) EventSent(context.Context, string, Type)              {}
func (nopMetrics) KeepAliveSent(context.Context)                        {}
func (nopMetrics) ProducerFailed(context.Context, string)               {}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLastEventID resumes the id sequence after id.
func WithLastEventID(id int64) Option {
	return func(s *Scheduler) { s.seq = NewSequenceAfter(id) }
}

// WithLogger sets the logger. Lines are tagged with the stream id.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) { s.baseLog = l }
}

// WithHeaders adds headers sent with the response.
func WithHeaders(h http.Header) Option {
	return func(s *Scheduler) {
		for k, vs := range h {
			for _, v := range vs {
				s.header.Add(k, v)
			}
		}
	}
}

// WithStatus overrides the 200 response status.
func WithStatus(code int) Option {
	return func(s *Scheduler) { s.status = code }
}

// WithMetrics reports stream activity to m.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithStreamID overrides the generated stream id.
func WithStreamID(id string) Option {
	return func(s *Scheduler) { s.id = id }
}

type push struct {
	channel string
	payload string
}

// Scheduler drives one event stream. All producers, encoding and writes
// run on the goroutine that called Run; other goroutines may register,
// remove or dispatch at any time and are serialized with the loop.
type Scheduler struct {
	id      string
	sink    Sink
	baseLog *logger.Logger
	log     *logger.Logger
	metrics Metrics
	seq     *Sequence
	sent    atomic.Int64

	mu        sync.Mutex
	state     State
	settings  Settings
	header    http.Header
	status    int
	registry  *Registry
	queue     timerQueue
	timerSeq  uint64
	pushes    []push
	startedAt time.Time
	reason    StopReason

	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a scheduler writing to sink.
func New(settings Settings, sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		sink:     sink,
		metrics:  nopMetrics{},
		seq:      NewSequence(),
		settings: settings,
		header:   make(http.Header),
		status:   http.StatusOK,
		registry: NewRegistry(),
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.baseLog == nil {
		s.baseLog = logger.Nop()
	}
	s.log = s.baseLog.WithComponent("sse").WithFields(map[string]interface{}{
		logger.FieldStreamID: s.id,
	})
	return s
}

// ID returns the stream id used in logs and metrics.
func (s *Scheduler) ID() string { return s.id }

// AddEvent registers ev under name, replacing any previous registration.
// While running, the event is armed immediately: a start event fires on the
// next tick and a timer event begins its first interval now.
func (s *Scheduler) AddEvent(name string, ev Event) error {
	if ev == nil {
		return errors.InvalidInput("event", "event must not be nil")
	}
	if te, ok := ev.(interface{ Interval() time.Duration }); ok && ev.Type() == TypeTimer {
		if appErr := validateInterval(te.Interval()); appErr != nil {
			return appErr
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Add(name, ev)
	if s.state == StateRunning {
		s.arm(s.registry.entry(name), time.Now())
		s.signal()
	}
	return nil
}

// AddStartEvent registers a start event named name.
func (s *Scheduler) AddStartEvent(name string, produce Producer) *StartEvent {
	ev := NewStartEvent(name, produce)
	_ = s.AddEvent(name, ev)
	return ev
}

// AddTimerEvent registers a timer event named name. interval must be positive.
func (s *Scheduler) AddTimerEvent(name string, interval time.Duration, produce Producer) (*TimerEvent, error) {
	ev := NewTimerEvent(name, interval, produce)
	if err := s.AddEvent(name, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// AddSubscriptionEvent registers an event fed by Dispatch on channel.
// A nil producer forwards dispatched payloads unchanged.
func (s *Scheduler) AddSubscriptionEvent(name, channel string, produce Producer) *SubscriptionEvent {
	ev := NewSubscriptionEvent(name, channel, produce)
	_ = s.AddEvent(name, ev)
	return ev
}

// Event returns the event registered under name.
func (s *Scheduler) Event(name string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Get(name)
}

// RemoveEvent unregisters name and cancels its timer, if any.
func (s *Scheduler) RemoveEvent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Remove(name)
}

// Events returns a snapshot of the registrations in insertion order.
func (s *Scheduler) Events() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.List()
}

// Channels returns the distinct subscription channels in registration order.
func (s *Scheduler) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	seen := make(map[string]bool)
	for _, e := range s.registry.entries {
		c, ok := channelOf(e.event)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Dispatch queues payload for every subscription event on channel. The
// events are evaluated on the loop goroutine in registration order.
// Pushes queued before Run are delivered after the start events; a stopped
// stream rejects them.
func (s *Scheduler) Dispatch(channel, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return errors.StreamNotRunning(s.state.String())
	}
	s.pushes = append(s.pushes, push{channel: channel, payload: payload})
	s.signal()
	return nil
}

// SetHeader sets a response header. Headers are sent on the first tick, so
// later calls have no effect.
func (s *Scheduler) SetHeader(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header.Set(name, value)
}

// Settings returns a copy of the current settings.
func (s *Scheduler) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings applies fn to the settings. Only allowed before Run.
func (s *Scheduler) UpdateSettings(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCreated {
		return errors.InvalidInput("settings", "settings are fixed once the stream has started")
	}
	next := s.settings
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	s.settings = next
	return nil
}

// State returns the lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StopReason returns why the stream stopped, or ReasonNone.
func (s *Scheduler) StopReason() StopReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// EventID returns the id the next data event will carry.
func (s *Scheduler) EventID() int64 { return s.seq.Current() }

// EventsSent returns the number of data events written.
func (s *Scheduler) EventsSent() int64 { return s.sent.Load() }

// StartedAt returns when the first tick ran, zero before that.
func (s *Scheduler) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Stop ends the stream. Safe to call more than once and from any goroutine.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Run streams until the exec limit, Stop, ctx cancellation or a client
// disconnect. A disconnect is a normal end and returns nil. A producer
// error ends the stream and is returned as PRODUCER_FAILURE.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateCreated {
		state := s.state
		s.mu.Unlock()
		return errors.StreamNotRunning(state.String()).
			WithDetail("reason", "Run may only be called once")
	}
	if err := s.settings.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = StateRunning
	settings := s.settings
	s.setup(time.Now())
	events := s.registry.Len()
	s.mu.Unlock()

	s.log.Info("Stream started", map[string]interface{}{
		"events":            events,
		logger.FieldEventID: s.seq.Current(),
		"exec_limit_ms":     settings.ExecLimit.Milliseconds(),
		"keep_alive_ms":     settings.KeepAliveInterval.Milliseconds(),
		"send_event_name":   settings.SendEventName,
	})
	s.metrics.StreamStarted(ctx)
	begin := time.Now()

	reason, err := s.loop(ctx)
	s.finish(ctx, reason, begin, err)
	return err
}

// setup arms the initial timers. Caller holds s.mu.
func (s *Scheduler) setup(now time.Time) {
	settings := s.settings
	if settings.ExecLimit > 0 {
		s.schedule(&timer{
			due:   now.Add(settings.ExecLimit),
			phase: phaseExecLimit,
			fire:  func(context.Context) error { return errExecLimit },
		})
	}
	s.schedule(&timer{due: now, phase: phaseStart, fire: s.startup})
	for _, e := range s.registry.entries {
		s.arm(e, now)
	}
	if settings.KeepAliveInterval > 0 {
		msg := settings.KeepAliveMessage
		s.schedule(&timer{
			due:    now.Add(settings.KeepAliveInterval),
			phase:  phaseKeepAlive,
			period: settings.KeepAliveInterval,
			fire:   func(ctx context.Context) error { return s.keepAlive(ctx, msg) },
		})
	}
}

// arm schedules the timer for a registry entry. Caller holds s.mu.
func (s *Scheduler) arm(e *registryEntry, now time.Time) {
	if e == nil {
		return
	}
	ev := e.event
	switch ev.Type() {
	case TypeStart:
		t := &timer{
			due:   now,
			phase: phaseStart,
			order: e.order,
			fire:  func(ctx context.Context) error { return s.emit(ctx, ev, "") },
		}
		e.timer = t
		s.schedule(t)
	case TypeTimer:
		te, ok := ev.(interface{ Interval() time.Duration })
		if !ok || te.Interval() <= 0 {
			return
		}
		t := &timer{
			due:    now.Add(te.Interval()),
			phase:  phaseTimer,
			order:  e.order,
			period: te.Interval(),
			fire:   func(ctx context.Context) error { return s.emit(ctx, ev, "") },
		}
		e.timer = t
		s.schedule(t)
	}
}

func (s *Scheduler) schedule(t *timer) {
	s.timerSeq++
	t.seq = s.timerSeq
	heap.Push(&s.queue, t)
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) (StopReason, error) {
	wait := time.NewTimer(disconnectPollInterval)
	defer wait.Stop()

	for {
		select {
		case <-s.stopCh:
			return ReasonStopped, nil
		default:
		}
		if ctx.Err() != nil {
			return ReasonContextDone, nil
		}
		if !s.sink.Connected() {
			return ReasonConnectionLost, nil
		}

		s.mu.Lock()
		now := time.Now()
		next := s.queue.head()
		if next != nil && !next.due.After(now) {
			heap.Pop(&s.queue)
			s.mu.Unlock()

			err := next.fire(ctx)

			s.mu.Lock()
			if err == nil && next.period > 0 && !next.canceled {
				next.due = next.due.Add(next.period)
				if late := time.Now(); next.due.Before(late) {
					next.due = late
				}
				s.schedule(next)
			}
			s.mu.Unlock()
			if err != nil {
				return s.classify(err)
			}
			continue
		}
		if len(s.pushes) > 0 {
			p := s.pushes[0]
			s.pushes = s.pushes[1:]
			subs := s.subscribers(p.channel)
			s.mu.Unlock()

			for _, ev := range subs {
				if err := s.emit(ctx, ev, p.payload); err != nil {
					return s.classify(err)
				}
			}
			continue
		}
		d := disconnectPollInterval
		if next != nil {
			if until := next.due.Sub(now); until < d {
				d = until
			}
		}
		s.mu.Unlock()

		wait.Reset(d)
		select {
		case <-wait.C:
		case <-s.wake:
		case <-s.stopCh:
		case <-ctx.Done():
		}
		wait.Stop()
	}
}

func (s *Scheduler) classify(err error) (StopReason, error) {
	switch {
	case stderrors.Is(err, errExecLimit):
		return ReasonExecLimit, nil
	case errors.HasCode(err, errors.ErrCodeConnectionLost):
		s.log.Debug("Client connection lost", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
		return ReasonConnectionLost, nil
	default:
		return ReasonProducerFailure, err
	}
}

// subscribers returns the subscription events on channel. Caller holds s.mu.
func (s *Scheduler) subscribers(channel string) []Event {
	var out []Event
	for _, e := range s.registry.entries {
		if c, ok := channelOf(e.event); ok && c == channel {
			out = append(out, e.event)
		}
	}
	return out
}

func channelOf(ev Event) (string, bool) {
	if ev.Type() != TypeSubscription {
		return "", false
	}
	c, ok := ev.(interface{ Channel() string })
	if !ok {
		return "", false
	}
	return c.Channel(), true
}

func (s *Scheduler) startup(context.Context) error {
	s.mu.Lock()
	s.startedAt = time.Now()
	header := s.header.Clone()
	status := s.status
	retry := s.settings.RetryTime
	s.mu.Unlock()

	if err := s.sink.SendHeaders(status, header); err != nil {
		return errors.ConnectionLost(err)
	}
	if retry > 0 {
		return s.write(EncodeRetry(retry))
	}
	return nil
}

func (s *Scheduler) emit(ctx context.Context, ev Event, input string) error {
	payload, ok, err := ev.Ready(ctx, input)
	if err != nil {
		s.metrics.ProducerFailed(ctx, ev.Name())
		s.log.Error("Producer failed", map[string]interface{}{
			logger.FieldEvent: ev.Name(),
			logger.FieldError: err.Error(),
		})
		return errors.ProducerFailure(ev.Name(), err)
	}
	if !ok {
		return nil
	}

	id := s.seq.Current()
	if err := s.write(EncodeEvent(ev.Name(), payload, id, s.sendEventName())); err != nil {
		return err
	}
	s.seq.Advance()
	s.sent.Add(1)
	s.metrics.EventSent(ctx, ev.Name(), ev.Type())
	s.log.Debug("Event sent", map[string]interface{}{
		logger.FieldEvent:   ev.Name(),
		logger.FieldEventID: id,
		"bytes":             len(payload),
	})
	return nil
}

func (s *Scheduler) keepAlive(ctx context.Context, msg string) error {
	if err := s.write(EncodeKeepAlive(msg)); err != nil {
		return err
	}
	s.metrics.KeepAliveSent(ctx)
	return nil
}

func (s *Scheduler) write(p []byte) error {
	if err := s.sink.Write(p); err != nil {
		return errors.ConnectionLost(err)
	}
	if err := s.sink.Flush(); err != nil {
		return errors.ConnectionLost(err)
	}
	return nil
}

func (s *Scheduler) sendEventName() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.SendEventName
}

func (s *Scheduler) finish(ctx context.Context, reason StopReason, begin time.Time, err error) {
	s.mu.Lock()
	s.state = StateStopped
	s.reason = reason
	s.queue.reset()
	s.pushes = nil
	for _, e := range s.registry.entries {
		e.timer = nil
	}
	s.mu.Unlock()
	s.Stop()

	elapsed := time.Since(begin)
	s.metrics.StreamStopped(context.WithoutCancel(ctx), string(reason), elapsed)

	fields := map[string]interface{}{
		logger.FieldReason:   string(reason),
		"events_sent":        s.sent.Load(),
		logger.FieldEventID:  s.seq.Current(),
		logger.FieldDuration: elapsed.Milliseconds(),
	}
	if err != nil {
		s.log.WithError(err).Warn("Stream stopped", fields)
		return
	}
	s.log.Info("Stream stopped", fields)
}

func validateInterval(d time.Duration) *errors.AppError {
	if d <= 0 {
		return errors.InvalidInput("interval", "timer interval must be positive")
	}
	return nil
}
