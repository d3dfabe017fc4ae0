package sse

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestTimerEvent_Properties(t *testing.T) {
	ev := NewTimerEvent("timer", 10*time.Second, Value("test"))

	payload, ok, err := ev.Ready(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || payload != "test" {
		t.Errorf("Ready() = (%q, %v), want (test, true)", payload, ok)
	}
	if ev.Name() != "timer" {
		t.Errorf("Name() = %q", ev.Name())
	}
	if ev.Interval() != 10*time.Second {
		t.Errorf("Interval() = %v", ev.Interval())
	}
	if ev.Type() != TypeTimer {
		t.Errorf("Type() = %q", ev.Type())
	}
	if ev.Data() != "test" {
		t.Errorf("Data() = %q", ev.Data())
	}
}

func TestStartEvent_Properties(t *testing.T) {
	ev := NewStartEvent("start", Value("test"))
	payload, ok, err := ev.Ready(context.Background(), "")
	if err != nil || !ok || payload != "test" {
		t.Errorf("Ready() = (%q, %v, %v)", payload, ok, err)
	}
	if ev.Type() != TypeStart || ev.Name() != "start" {
		t.Errorf("unexpected identity %q/%q", ev.Type(), ev.Name())
	}
}

func TestEvent_NotProducedKeepsPreviousData(t *testing.T) {
	calls := 0
	ev := NewTimerEvent("poll", time.Second, func(context.Context, string) (string, bool, error) {
		calls++
		if calls == 1 {
			return "first", true, nil
		}
		return "ignored", false, nil
	})

	ev.Ready(context.Background(), "")
	payload, ok, _ := ev.Ready(context.Background(), "")
	if ok || payload != "" {
		t.Errorf("expected no payload, got (%q, %v)", payload, ok)
	}
	if ev.Data() != "first" {
		t.Errorf("Data() = %q, want first", ev.Data())
	}
}

func TestEvent_ProducerError(t *testing.T) {
	ev := NewStartEvent("boom", func(context.Context, string) (string, bool, error) {
		return "partial", true, fmt.Errorf("db down")
	})
	payload, ok, err := ev.Ready(context.Background(), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if ok || payload != "" || ev.Data() != "" {
		t.Errorf("expected nothing retained on error, got (%q, %v, %q)", payload, ok, ev.Data())
	}
}

func TestEvent_NilProducer(t *testing.T) {
	ev := NewStartEvent("empty", nil)
	if _, ok, err := ev.Ready(context.Background(), ""); ok || err != nil {
		t.Errorf("expected no payload and no error, got (%v, %v)", ok, err)
	}
}

func TestSubscriptionEvent(t *testing.T) {
	t.Run("pass-through", func(t *testing.T) {
		ev := NewSubscriptionEvent("news", "news-channel", nil)
		payload, ok, err := ev.Ready(context.Background(), "hello")
		if err != nil || !ok || payload != "hello" {
			t.Errorf("Ready() = (%q, %v, %v)", payload, ok, err)
		}
		if ev.Channel() != "news-channel" || ev.Type() != TypeSubscription {
			t.Errorf("unexpected channel/type %q/%q", ev.Channel(), ev.Type())
		}
	})

	t.Run("transforming producer", func(t *testing.T) {
		ev := NewSubscriptionEvent("news", "ch", func(_ context.Context, in string) (string, bool, error) {
			if in == "" {
				return "", false, nil
			}
			return strings.ToUpper(in), true, nil
		})
		if _, ok, _ := ev.Ready(context.Background(), ""); ok {
			t.Error("expected empty input to be skipped")
		}
		payload, _, _ := ev.Ready(context.Background(), "hi")
		if payload != "HI" {
			t.Errorf("payload = %q", payload)
		}
	})
}
