package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// parse runs ParseWithEnv against env instead of the process environment.
func parse(t *testing.T, yaml string, env map[string]string) (*Config, error) {
	t.Helper()
	return ParseWithEnv(context.Background(), []byte(yaml), envconfig.MapLookuper(env))
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := parse(t, "", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Title != "HaloLight" {
		t.Errorf("Title = %q, want HaloLight", cfg.Title)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Auth.TokenTTL.Duration() != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.Auth.TokenTTL.Duration())
	}
	if cfg.Notify.Interval.Duration() != 10*time.Second {
		t.Errorf("Notify.Interval = %v, want 10s", cfg.Notify.Interval.Duration())
	}
	if cfg.Notify.Probability == nil || *cfg.Notify.Probability != 0.2 {
		t.Errorf("Notify.Probability = %v, want 0.2", cfg.Notify.Probability)
	}
	if cfg.HTTP.AllowedOrigin != "*" {
		t.Errorf("AllowedOrigin = %q, want *", cfg.HTTP.AllowedOrigin)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Errorf("Storage.Backend = %q, want memory", cfg.Storage.Backend)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Ops Console
port: 9090
log_level: debug
instant_responses: true
demo:
  email: ops@example.com
  password: letmein
auth:
  token_secret: 0123456789abcdef
  token_ttl: 12h
notify:
  interval: 5s
  probability: 0.5
http:
  allowed_origin: https://console.example.com
  rate_limit:
    general_per_minute: 60
    auth_per_minute: 5
storage:
  backend: redis
  redis:
    addr: localhost:6379
    db: 2
    timeout: 2s
`
	cfg, err := parse(t, yaml, nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Ops Console" || cfg.Port != 9090 || cfg.LogLevel != "debug" {
		t.Errorf("top level = %q/%d/%q", cfg.Title, cfg.Port, cfg.LogLevel)
	}
	if !cfg.InstantResponses {
		t.Error("InstantResponses = false, want true")
	}
	if cfg.Demo.Email != "ops@example.com" || cfg.Demo.Password != "letmein" {
		t.Errorf("Demo = %+v", cfg.Demo)
	}
	if cfg.Auth.TokenTTL.Duration() != 12*time.Hour {
		t.Errorf("TokenTTL = %v, want 12h", cfg.Auth.TokenTTL.Duration())
	}
	if cfg.Notify.Interval.Duration() != 5*time.Second || *cfg.Notify.Probability != 0.5 {
		t.Errorf("Notify = %v/%v", cfg.Notify.Interval.Duration(), *cfg.Notify.Probability)
	}
	if cfg.HTTP.RateLimit.GeneralPerMinute != 60 || cfg.HTTP.RateLimit.AuthPerMinute != 5 {
		t.Errorf("RateLimit = %+v", cfg.HTTP.RateLimit)
	}
	if cfg.Storage.Redis.DB != 2 || cfg.Storage.Redis.Timeout.Duration() != 2*time.Second {
		t.Errorf("Redis = %+v", cfg.Storage.Redis)
	}
	if cfg.Storage.Redis.Prefix != "halolight:" {
		t.Errorf("Redis.Prefix = %q, want default halolight:", cfg.Storage.Redis.Prefix)
	}
}

func TestParse_ZeroProbabilityIsKept(t *testing.T) {
	cfg, err := parse(t, "notify:\n  probability: 0\n", nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if *cfg.Notify.Probability != 0 {
		t.Errorf("Probability = %v, want 0", *cfg.Notify.Probability)
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	yaml := `
title: From File
port: 9090
notify:
  interval: 5s
`
	env := map[string]string{
		"HALOLIGHT_TITLE":                           "From Env",
		"HALOLIGHT_NOTIFY_INTERVAL":                 "2s",
		"HALOLIGHT_NOTIFY_PROBABILITY":              "1",
		"HALOLIGHT_DEMO_EMAIL":                      "env@example.com",
		"HALOLIGHT_DEMO_PASSWORD":                   "secret",
		"HALOLIGHT_HTTP_RATE_LIMIT_AUTH_PER_MINUTE": "3",
		"HALOLIGHT_STORAGE_BACKEND":                 "file",
		"HALOLIGHT_STORAGE_PATH":                    "/tmp/state.json",
	}

	cfg, err := parse(t, yaml, env)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "From Env" {
		t.Errorf("Title = %q, want env override", cfg.Title)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, file value should survive", cfg.Port)
	}
	if cfg.Notify.Interval.Duration() != 2*time.Second {
		t.Errorf("Notify.Interval = %v, want 2s", cfg.Notify.Interval.Duration())
	}
	if *cfg.Notify.Probability != 1 {
		t.Errorf("Notify.Probability = %v, want 1", *cfg.Notify.Probability)
	}
	if cfg.Demo.Email != "env@example.com" {
		t.Errorf("Demo.Email = %q", cfg.Demo.Email)
	}
	if cfg.HTTP.RateLimit.AuthPerMinute != 3 {
		t.Errorf("AuthPerMinute = %d, want 3", cfg.HTTP.RateLimit.AuthPerMinute)
	}
	if cfg.Storage.Backend != BackendFile || cfg.Storage.Path != "/tmp/state.json" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
}

func TestParse_EnvOverrideInvalidDuration(t *testing.T) {
	_, err := parse(t, "", map[string]string{"HALOLIGHT_AUTH_TOKEN_TTL": "soon"})
	if err == nil {
		t.Fatal("Parse() expected error for invalid duration, got nil")
	}
}

func TestParse_VariableExpansion(t *testing.T) {
	yaml := `
auth:
  token_secret: ${SECRET}
demo:
  email: ${DEMO_EMAIL:-admin@example.com}
  password: ${DEMO_PASSWORD:-}pass
`
	cfg, err := parse(t, yaml, map[string]string{"SECRET": "0123456789abcdef0123"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Auth.TokenSecret != "0123456789abcdef0123" {
		t.Errorf("TokenSecret = %q", cfg.Auth.TokenSecret)
	}
	if cfg.Demo.Email != "admin@example.com" {
		t.Errorf("Demo.Email = %q, want default", cfg.Demo.Email)
	}
	if cfg.Demo.Password != "pass" {
		t.Errorf("Demo.Password = %q, want empty default plus suffix", cfg.Demo.Password)
	}
}

func TestParse_MissingVariable(t *testing.T) {
	_, err := parse(t, "auth:\n  token_secret: ${NOT_SET_ANYWHERE}\n", nil)
	if err == nil {
		t.Fatal("Parse() expected error for missing variable, got nil")
	}
	if !strings.Contains(err.Error(), "NOT_SET_ANYWHERE") {
		t.Errorf("error = %v, want it to name the variable", err)
	}
}

func TestParse_ProcessEnvironment(t *testing.T) {
	t.Setenv("HALOLIGHT_PORT", "7070")

	cfg, err := Parse([]byte("port: 9090\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from HALOLIGHT_PORT", cfg.Port)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"port too high", "port: 70000", "port must be between"},
		{"bad log level", "log_level: loud", "log_level"},
		{"email without password", "demo:\n  email: a@b.c", "set together"},
		{"short secret", "auth:\n  token_secret: short", "at least 16 bytes"},
		{"negative ttl", "auth:\n  token_ttl: -1h", "token_ttl must be positive"},
		{"interval too short", "notify:\n  interval: 10ms", "interval must be at least"},
		{"probability above one", "notify:\n  probability: 2", "probability"},
		{"negative rate limit", "http:\n  rate_limit:\n    auth_per_minute: -1", "rate limits"},
		{"file without path", "storage:\n  backend: file", "path is required"},
		{"redis without addr", "storage:\n  backend: redis", "redis.addr is required"},
		{"unknown backend", "storage:\n  backend: etcd", "unknown backend"},
		{"bad duration", "notify:\n  interval: often", "invalid duration"},
		{"malformed yaml", "port: [", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.yaml, nil)
			if err == nil {
				t.Fatalf("Parse() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "halolight.yaml")
	if err := os.WriteFile(path, []byte("title: Loaded\nport: 9191\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Title != "Loaded" || cfg.Port != 9191 {
		t.Errorf("cfg = %q/%d", cfg.Title, cfg.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("error = %v", err)
	}
}
