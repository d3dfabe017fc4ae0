package sse

import (
	"context"
	"sync"
	"time"
)

// Type identifies how an event is driven.
type Type string

const (
	// TypeStart events fire once when the stream starts.
	TypeStart Type = "start"
	// TypeTimer events fire on a fixed interval.
	TypeTimer Type = "timer"
	// TypeSubscription events fire when a payload is dispatched to their channel.
	TypeSubscription Type = "subscription"
)

// Producer computes the payload for one firing. input is the dispatched
// payload for subscription events and empty otherwise. Returning false
// skips the firing without consuming an event id.
type Producer func(ctx context.Context, input string) (payload string, ok bool, err error)

// Value returns a Producer that always yields s.
func Value(s string) Producer {
	return func(context.Context, string) (string, bool, error) {
		return s, true, nil
	}
}

// Event is a named source of SSE payloads.
type Event interface {
	// Name is written on the event: line.
	Name() string
	Type() Type
	// Ready runs the producer. On success the payload is also retained as Data.
	Ready(ctx context.Context, input string) (string, bool, error)
	// Data returns the last produced payload.
	Data() string
}

type base struct {
	name    string
	produce Producer

	mu   sync.RWMutex
	data string
}

func (b *base) Name() string { return b.name }

func (b *base) Data() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}

func (b *base) ready(ctx context.Context, input string) (string, bool, error) {
	if b.produce == nil {
		return "", false, nil
	}
	payload, ok, err := b.produce(ctx, input)
	if err != nil || !ok {
		return "", false, err
	}
	b.mu.Lock()
	b.data = payload
	b.mu.Unlock()
	return payload, true, nil
}

// StartEvent fires exactly once, right after the stream headers are sent.
type StartEvent struct {
	base
}

// NewStartEvent creates a start event.
func NewStartEvent(name string, produce Producer) *StartEvent {
	return &StartEvent{base: base{name: name, produce: produce}}
}

func (e *StartEvent) Type() Type { return TypeStart }

func (e *StartEvent) Ready(ctx context.Context, input string) (string, bool, error) {
	return e.ready(ctx, input)
}

// TimerEvent fires every Interval for the life of the stream.
type TimerEvent struct {
	base
	interval time.Duration
}

// NewTimerEvent creates a periodic event. interval must be positive; the
// scheduler rejects the event otherwise.
func NewTimerEvent(name string, interval time.Duration, produce Producer) *TimerEvent {
	return &TimerEvent{base: base{name: name, produce: produce}, interval: interval}
}

func (e *TimerEvent) Type() Type { return TypeTimer }

func (e *TimerEvent) Interval() time.Duration { return e.interval }

func (e *TimerEvent) Ready(ctx context.Context, input string) (string, bool, error) {
	return e.ready(ctx, input)
}

// SubscriptionEvent fires for every payload dispatched to its channel.
// Without a producer the dispatched payload is emitted unchanged.
type SubscriptionEvent struct {
	base
	channel string
}

// NewSubscriptionEvent creates an event bound to channel. produce may be nil.
func NewSubscriptionEvent(name, channel string, produce Producer) *SubscriptionEvent {
	if produce == nil {
		produce = passThrough
	}
	return &SubscriptionEvent{base: base{name: name, produce: produce}, channel: channel}
}

func (e *SubscriptionEvent) Type() Type { return TypeSubscription }

func (e *SubscriptionEvent) Channel() string { return e.channel }

func (e *SubscriptionEvent) Ready(ctx context.Context, input string) (string, bool, error) {
	return e.ready(ctx, input)
}

func passThrough(_ context.Context, input string) (string, bool, error) {
	return input, true, nil
}
