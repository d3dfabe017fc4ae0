package sse

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/streamkit/sseclient"
)

func TestEncodeEvent(t *testing.T) {
	tests := []struct {
		name     string
		event    string
		payload  string
		id       int64
		sendName bool
		want     string
	}{
		{"named", "clock", "12:00", 1, true, "event: clock\ndata: 12:00\nid: 1\n\n"},
		{"name suppressed", "clock", "12:00", 2, false, "data: 12:00\nid: 2\n\n"},
		{"empty name", "", "x", 3, true, "data: x\nid: 3\n\n"},
		{"multi-line payload", "log", "a\nb\r\nc", 10, true, "event: log\ndata: a\ndata: b\ndata: c\nid: 10\n\n"},
		{"empty payload", "ping", "", 4, true, "event: ping\ndata: \nid: 4\n\n"},
		{"large id", "e", "p", 9007199254740993, false, "data: p\nid: 9007199254740993\n\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := string(EncodeEvent(tc.event, tc.payload, tc.id, tc.sendName))
			if got != tc.want {
				t.Errorf("EncodeEvent() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEncodeKeepAlive(t *testing.T) {
	if got := string(EncodeKeepAlive("keep alive")); got != ": keep alive\n\n" {
		t.Errorf("got %q", got)
	}
	if got := string(EncodeKeepAlive("two\nlines")); got != ": two lines\n\n" {
		t.Errorf("expected newlines flattened, got %q", got)
	}
}

func TestEncodeRetry(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{time.Second, "retry: 1000\n\n"},
		{1500 * time.Millisecond, "retry: 1500\n\n"},
		{2*time.Millisecond + 900*time.Microsecond, "retry: 2\n\n"},
	}
	for _, tc := range tests {
		if got := string(EncodeRetry(tc.d)); got != tc.want {
			t.Errorf("EncodeRetry(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

func TestEncodeEvent_IDRoundTrip(t *testing.T) {
	for _, id := range []int64{1, 42, 1 << 40} {
		block := EncodeEvent("e", "line1\nline2", id, true)
		r := sseclient.NewReader(nopCloser{strings.NewReader(string(block))})
		ev, err := r.Next()
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		got, err := ev.IntID()
		if err != nil || got != id {
			t.Errorf("round trip id = %d (%v), want %d", got, err, id)
		}
		if ev.Data != "line1\nline2" {
			t.Errorf("round trip data = %q", ev.Data)
		}
	}
}
