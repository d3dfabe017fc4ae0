package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	Defaults   map[string]interface{}
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithDefaults seeds viper with default values keyed by dotted path
// (for example "sse.exec_limit"). File and environment values win.
func WithDefaults(defaults map[string]interface{}) LoaderOption {
	return func(lc *LoaderConfig) { lc.Defaults = defaults }
}

// LoadConfig loads configuration for a service into cfg, a pointer to a
// struct with mapstructure tags. Precedence, lowest first: defaults, the
// YAML file, the .env file, the process environment.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: OSFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)

	v := viper.New()
	for key, value := range lc.Defaults {
		v.SetDefault(key, value)
	}

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", files.ConfigFile, err)
		}
	}

	// Bound variables are read at unmarshal time, so .env values loaded
	// below are still picked up.
	if err := bindEnv(v, serviceName, cfg); err != nil {
		return err
	}
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", files.EnvFile, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

// bindEnv binds every leaf key of cfg to its environment variable names:
// sse.exec_limit reads SSELD_SSE_EXEC_LIMIT, then SSE_EXEC_LIMIT.
func bindEnv(v *viper.Viper, serviceName string, cfg interface{}) error {
	t := reflect.TypeOf(cfg)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config for service %s must be a pointer to a struct, got %T", serviceName, cfg)
	}
	for _, key := range Keys(t.Elem()) {
		if err := v.BindEnv(key, EnvName(serviceName, key), EnvName("", key)); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// EnvName returns the environment variable for a dotted key, optionally
// prefixed with the service name: ("sseld", "redis.addr") is SSELD_REDIS_ADDR.
func EnvName(serviceName, key string) string {
	parts := make([]string, 0, 2)
	if serviceName != "" {
		parts = append(parts, serviceName)
	}
	if key != "" {
		parts = append(parts, key)
	}
	name := strings.Join(parts, "_")
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(name))
}

var durationType = reflect.TypeOf(time.Duration(0))
var timeType = reflect.TypeOf(time.Time{})

// Keys lists the dotted leaf keys of a struct type as viper sees them,
// following mapstructure tags. Squashed fields merge into their parent.
func Keys(t reflect.Type) []string {
	var keys []string
	collectKeys(t, "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" || f.Type.Kind() == reflect.Func {
			continue
		}

		ft := f.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		nested := ft.Kind() == reflect.Struct && ft != timeType && ft != durationType

		if nested && strings.Contains(opts, "squash") {
			collectKeys(ft, prefix, keys)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if nested {
			collectKeys(ft, key, keys)
			continue
		}
		*keys = append(*keys, key)
	}
}
