package sse

import (
	"strings"
	"testing"
	"time"

	"github.com/kbukum/streamkit/errors"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	s := cfg.Settings()

	if s != DefaultSettings() {
		t.Errorf("expected defaults, got %+v", s)
	}
	if cfg.Path != DefaultPath {
		t.Errorf("expected path %q, got %q", DefaultPath, cfg.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestConfig_ZeroDisables(t *testing.T) {
	zero := 0.0
	off := false
	msg := "ping"
	cfg := Config{ExecLimit: &zero, RetryTime: &zero, KeepAliveInterval: &zero, SendEventName: &off, KeepAliveMessage: &msg}
	cfg.ApplyDefaults()
	s := cfg.Settings()

	if s.ExecLimit != 0 || s.RetryTime != 0 || s.KeepAliveInterval != 0 {
		t.Errorf("expected zero durations to be kept, got %+v", s)
	}
	if s.SendEventName {
		t.Error("expected SendEventName=false")
	}
	if s.KeepAliveMessage != "ping" {
		t.Errorf("expected custom message, got %q", s.KeepAliveMessage)
	}
}

func TestConfig_FractionalSeconds(t *testing.T) {
	v := 2.5
	s := Config{RetryTime: &v}.Settings()
	if s.RetryTime != 2500*time.Millisecond {
		t.Errorf("expected 2.5s, got %v", s.RetryTime)
	}
}

func TestConfig_ValidateNegative(t *testing.T) {
	neg := -1.0
	cfg := Config{KeepAliveInterval: &neg}
	cfg.ApplyDefaults()
	err := cfg.Validate()
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if !strings.Contains(err.Error(), "keep_alive_interval") {
		t.Errorf("expected field name in error, got %q", err.Error())
	}
}

func TestConfig_ValidatePath(t *testing.T) {
	cfg := Config{Path: "events"}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected relative path to be rejected")
	}
}

func TestConfig_DisableProxyBuffering(t *testing.T) {
	tests := []struct {
		cfg  Config
		want bool
	}{
		{Config{}, false},
		{Config{BehindNginx: true}, true},
		{Config{ServerSoftware: "nginx/1.25.3"}, true},
		{Config{ServerSoftware: "Apache/2.4"}, false},
	}
	for _, tc := range tests {
		if got := tc.cfg.DisableProxyBuffering(); got != tc.want {
			t.Errorf("%+v: got %v, want %v", tc.cfg, got, tc.want)
		}
	}
}

func TestSettings_Validate(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.ExecLimit = -time.Second
	if err := s.Validate(); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}
