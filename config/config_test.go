package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "sseld"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected development, got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected Debug=true in development")
		}
		if cfg.Logging.ServiceName != "sseld" {
			t.Errorf("expected logging service name to follow Name, got %q", cfg.Logging.ServiceName)
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected logging defaults to apply, got level %q", cfg.Logging.Level)
		}
	})

	t.Run("production keeps debug off", func(t *testing.T) {
		cfg := ServiceConfig{Name: "sseld", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected Debug=false in production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid development", ServiceConfig{Name: "svc", Environment: "development"}, false, ""},
		{"valid staging", ServiceConfig{Name: "svc", Environment: "staging"}, false, ""},
		{"valid production", ServiceConfig{Name: "svc", Environment: "production"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "name: is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "invalid"}, true, "environment: must be one of: development staging production"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Stream        struct {
		ExecLimit float64 `mapstructure:"exec_limit"`
		Message   string  `mapstructure:"message"`
	} `mapstructure:"stream"`
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: sseld
environment: staging
stream:
  exec_limit: 12.5
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg testConfig
	err := LoadConfig("sseld", &cfg,
		WithConfigFile(configPath),
		WithEnvFile(filepath.Join(dir, "missing.env")),
		WithDefaults(map[string]interface{}{"stream.message": "keep alive"}),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "sseld" {
		t.Errorf("expected name 'sseld', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Stream.ExecLimit != 12.5 {
		t.Errorf("expected exec_limit 12.5, got %v", cfg.Stream.ExecLimit)
	}
	if cfg.Stream.Message != "keep alive" {
		t.Errorf("expected default message, got %q", cfg.Stream.Message)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("stream:\n  exec_limit: 5\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("STREAM_EXEC_LIMIT", "30")

	var cfg testConfig
	if err := LoadConfig("sseld", &cfg, WithConfigFile(configPath), WithEnvFile(filepath.Join(dir, "none"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Stream.ExecLimit != 30 {
		t.Errorf("expected env override 30, got %v", cfg.Stream.ExecLimit)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("name: [unterminated\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg testConfig
	if err := LoadConfig("sseld", &cfg, WithConfigFile(configPath)); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent-service", &cfg,
		WithConfigFile("/nonexistent/path.yml"),
		WithEnvFile("/nonexistent/.env"),
	)
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/sseld/config.yml": true,
		".env.sseld":             true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("sseld", LoaderConfig{})
	if files.ConfigFile != "./cmd/sseld/config.yml" {
		t.Errorf("expected config file at ./cmd/sseld/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != ".env.sseld" {
		t.Errorf("expected env file .env.sseld, got %q", files.EnvFile)
	}
}

func TestResolverExplicitPathsWin(t *testing.T) {
	resolver := &Resolver{FileSystem: &mockFS{files: map[string]bool{"./config.yml": true}}}
	files := resolver.ResolveFiles("sseld", LoaderConfig{ConfigFile: "/etc/sseld.yml"})
	if files.ConfigFile != "/etc/sseld.yml" {
		t.Errorf("expected explicit path, got %q", files.ConfigFile)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestEnvName(t *testing.T) {
	tests := []struct {
		service, key, want string
	}{
		{"sseld", "sse.exec_limit", "SSELD_SSE_EXEC_LIMIT"},
		{"", "redis.subscribe_retry.max_attempts", "REDIS_SUBSCRIBE_RETRY_MAX_ATTEMPTS"},
		{"acme-sseld", "name", "ACME_SSELD_NAME"},
	}
	for _, tc := range tests {
		if got := EnvName(tc.service, tc.key); got != tc.want {
			t.Errorf("EnvName(%q, %q) = %q, want %q", tc.service, tc.key, got, tc.want)
		}
	}
}

func TestKeys(t *testing.T) {
	type retry struct {
		Attempts int           `mapstructure:"attempts"`
		OnRetry  func()        `mapstructure:"-"`
		Backoff  time.Duration `mapstructure:"backoff"`
	}
	type cfg struct {
		ServiceConfig `mapstructure:",squash"`
		Limit         *float64 `mapstructure:"limit"`
		Retry         retry    `mapstructure:"retry"`
		Plain         string
		Skip          func(int) error
		hidden        string
	}
	keys := strings.Join(Keys(reflect.TypeOf(cfg{})), ",")
	for _, want := range []string{"name", "environment", "logging.level", "limit", "retry.attempts", "retry.backoff", "plain"} {
		if !strings.Contains(","+keys+",", ","+want+",") {
			t.Errorf("expected key %q in %s", want, keys)
		}
	}
	if strings.Contains(keys, "onretry") || strings.Contains(keys, "skip") || strings.Contains(keys, "hidden") {
		t.Errorf("unexpected keys %s", keys)
	}
}

func TestLoadConfigServicePrefixedEnvWins(t *testing.T) {
	t.Setenv("STREAM_MESSAGE", "plain")
	t.Setenv("SSELD_STREAM_MESSAGE", "prefixed")

	var cfg testConfig
	if err := LoadConfig("sseld", &cfg, WithFileSystem(&mockFS{})); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Stream.Message != "prefixed" {
		t.Errorf("expected prefixed variable to win, got %q", cfg.Stream.Message)
	}
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	if err := LoadConfig("sseld", testConfig{}, WithFileSystem(&mockFS{})); err == nil {
		t.Error("expected error for non-pointer config")
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithDefaults(map[string]interface{}{"a": 1})(&lc)

	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/config.yml" {
		t.Errorf("expected config file path, got %q", lc.ConfigFile)
	}
	if lc.EnvFile != "/path/to/.env" {
		t.Errorf("expected env file path, got %q", lc.EnvFile)
	}
	if lc.Defaults["a"] != 1 {
		t.Error("expected defaults to be set")
	}
}
