package main

import (
	"bytes"
	"context"
	"dealspot-web/auth"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func envFunc(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(envFunc(map[string]string{
		"API_BASE_URL": "https://api.example.com/",
		"DEV_AUTH":     "true",
	}))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q, want trailing slash trimmed", cfg.APIBaseURL)
	}
	if cfg.CacheBackend != "memory" || cfg.CacheMaxEntries != 1024 {
		t.Errorf("cache = %s/%d, want memory/1024", cfg.CacheBackend, cfg.CacheMaxEntries)
	}
	if cfg.GeocoderURL != defaultGeocoderURL {
		t.Errorf("GeocoderURL = %q, want %q", cfg.GeocoderURL, defaultGeocoderURL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.AllowedOrigins != nil {
		t.Errorf("AllowedOrigins = %v, want none", cfg.AllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(envFunc(map[string]string{
		"PORT":              "9000",
		"API_BASE_URL":      "http://localhost:3000",
		"APP_NAME":          "Deals",
		"DEV_AUTH":          "1",
		"CACHE_BACKEND":     "SQLite",
		"CACHE_PATH":        "/tmp/cache.db",
		"CACHE_MAX_ENTRIES": "50",
		"ALLOWED_ORIGINS":   "https://a.example, https://b.example,",
		"LOG_LEVEL":         "debug",
		"TZ_NAME":           "America/New_York",
	}))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Port != "9000" || cfg.AppName != "Deals" || !cfg.DevAuth {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.CacheBackend != "sqlite" || cfg.CacheMaxEntries != 50 {
		t.Errorf("cache = %s/%d, want sqlite/50", cfg.CacheBackend, cfg.CacheMaxEntries)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.TimeZone.String() != "America/New_York" {
		t.Errorf("TimeZone = %v", cfg.TimeZone)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing api", map[string]string{"DEV_AUTH": "true"}, "API_BASE_URL"},
		{"no verifier", map[string]string{"API_BASE_URL": "http://x"}, "DEV_AUTH"},
		{"bad dev auth", map[string]string{"API_BASE_URL": "http://x", "DEV_AUTH": "maybe"}, "DEV_AUTH"},
		{"bad backend", map[string]string{"API_BASE_URL": "http://x", "DEV_AUTH": "true", "CACHE_BACKEND": "redis"}, "CACHE_BACKEND"},
		{"gcs without bucket", map[string]string{"API_BASE_URL": "http://x", "DEV_AUTH": "true", "CACHE_BACKEND": "gcs"}, "CACHE_BUCKET"},
		{"bad max entries", map[string]string{"API_BASE_URL": "http://x", "DEV_AUTH": "true", "CACHE_MAX_ENTRIES": "0"}, "CACHE_MAX_ENTRIES"},
		{"bad log level", map[string]string{"API_BASE_URL": "http://x", "DEV_AUTH": "true", "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(envFunc(tt.env))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("loadConfig() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, slog.LevelInfo).Info("Hello", "user_id", "u1")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("info logger output = %q, want JSON", buf.String())
	}

	buf.Reset()
	newLogger(&buf, slog.LevelDebug).Debug("Hello")
	if !strings.Contains(buf.String(), "level=DEBUG") {
		t.Errorf("debug logger output = %q, want text", buf.String())
	}
}

func TestNewCacheBackendLocal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	dir := filepath.Join(t.TempDir(), "cache")
	backend, closeFn, err := newCacheBackend(context.Background(), &config{CacheBackend: "local", CachePath: dir}, logger)
	if err != nil {
		t.Fatalf("newCacheBackend() error = %v", err)
	}
	defer closeFn()
	if backend == nil {
		t.Fatal("newCacheBackend() returned nil backend")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("cache dir not created: %v", err)
	}
}

func TestNewVerifierFallsBackToDev(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	v, err := newVerifier(context.Background(), &config{DevAuth: true}, logger)
	if err != nil {
		t.Fatalf("newVerifier() error = %v", err)
	}
	if _, ok := v.(auth.DevVerifier); !ok {
		t.Errorf("newVerifier() = %T, want auth.DevVerifier", v)
	}
}
