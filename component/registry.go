package component

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/streamkit/logger"
)

// DefaultStopTimeout bounds each component's Stop during StopAll.
const DefaultStopTimeout = 10 * time.Second

type slot struct {
	c       Component
	running bool
}

// Registry owns the lifecycle of a binary's components. Start follows
// registration order; stop walks it backwards, so a component registered
// after its dependencies is also stopped before them.
type Registry struct {
	mu          sync.RWMutex
	slots       []*slot
	stopTimeout time.Duration
	log         *logger.Logger
}

func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{log: log, stopTimeout: DefaultStopTimeout}
}

func (r *Registry) SetStopTimeout(d time.Duration) {
	r.mu.Lock()
	r.stopTimeout = d
	r.mu.Unlock()
}

// Register appends c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if slices.ContainsFunc(r.slots, func(s *slot) bool { return s.c.Name() == name }) {
		return fmt.Errorf("component %q already registered", name)
	}
	r.slots = append(r.slots, &slot{c: c})
	r.log.Debug("component registered", logger.Fields("component", name))
	return nil
}

// StartAll starts components that are not running yet. The first failure
// aborts; whatever already started stays running until StopAll.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.slots {
		if s.running {
			continue
		}
		name := s.c.Name()
		if err := s.c.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.ErrorFields("start", err).With(logger.FieldComponent, name))
			return fmt.Errorf("start %s: %w", name, err)
		}
		s.running = true
		r.log.Debug("component started", logger.Fields("component", name))
	}
	r.log.Info("components started", logger.Fields("count", len(r.slots)))
	return nil
}

// StopAll stops running components in reverse order, giving each its own
// stop deadline. Every component is attempted; failures are joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, s := range slices.Backward(r.slots) {
		if !s.running {
			continue
		}
		name := s.c.Name()
		if err := r.stop(ctx, s.c); err != nil {
			r.log.Error("component stop failed", logger.ErrorFields("stop", err).With(logger.FieldComponent, name))
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
		} else {
			r.log.Debug("component stopped", logger.Fields("component", name))
		}
		s.running = false
	}
	return errors.Join(errs...)
}

func (r *Registry) stop(ctx context.Context, c Component) error {
	ctx, cancel := context.WithTimeout(ctx, r.stopTimeout)
	defer cancel()
	return c.Stop(ctx)
}

// HealthAll reports every component in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.c.Health(ctx)
	}
	return out
}

// Describe collects the startup summary of Describable components. An
// empty Name falls back to the component's registered name.
func (r *Registry) Describe() []Description {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Description
	for _, s := range r.slots {
		d, ok := s.c.(Describable)
		if !ok {
			continue
		}
		desc := d.Describe()
		if desc.Name == "" {
			desc.Name = s.c.Name()
		}
		out = append(out, desc)
	}
	return out
}
