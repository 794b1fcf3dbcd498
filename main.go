// Package main runs the DealSpot web client: a server-rendered front end
// for the restaurant deals backend that keeps bookmarks in sync across
// every open screen of a session.
package main

import (
	"context"
	"dealspot-web/api"
	"dealspot-web/auth"
	"dealspot-web/cache"
	"dealspot-web/geo"
	"dealspot-web/server"
	dstorage "dealspot-web/storage"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"
)

const defaultGeocoderURL = "https://nominatim.openstreetmap.org"

// config is read once from the environment at startup.
type config struct {
	Port              string
	APIBaseURL        string
	AppName           string
	AppVersion        string
	IdentityPublicKey string
	IdentityIssuer    string
	FirebaseCredFile  string
	DevAuth           bool
	GeocoderURL       string
	CacheBackend      string
	CachePath         string
	CacheBucket       string
	CacheMaxEntries   int
	AllowedOrigins    []string
	LogLevel          slog.Level
	TimeZone          *time.Location
}

func loadConfig(getenv func(string) string) (*config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &config{
		Port:              get("PORT", "8080"),
		APIBaseURL:        strings.TrimRight(get("API_BASE_URL", ""), "/"),
		AppName:           get("APP_NAME", "DealSpot"),
		AppVersion:        get("APP_VERSION", "dev"),
		IdentityPublicKey: get("IDENTITY_PUBLIC_KEY", ""),
		IdentityIssuer:    get("IDENTITY_ISSUER", ""),
		FirebaseCredFile:  get("FIREBASE_CREDENTIALS_FILE", ""),
		GeocoderURL:       strings.TrimRight(get("GEOCODER_URL", defaultGeocoderURL), "/"),
		CacheBackend:      strings.ToLower(get("CACHE_BACKEND", "memory")),
		CachePath:         get("CACHE_PATH", "./data/cache"),
		CacheBucket:       get("CACHE_BUCKET", ""),
		CacheMaxEntries:   1024,
		TimeZone:          time.Local,
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL environment variable required")
	}

	var err error
	if v := getenv("DEV_AUTH"); v != "" {
		if cfg.DevAuth, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("parse DEV_AUTH: %w", err)
		}
	}
	if v := getenv("CACHE_MAX_ENTRIES"); v != "" {
		if cfg.CacheMaxEntries, err = strconv.Atoi(v); err != nil || cfg.CacheMaxEntries <= 0 {
			return nil, fmt.Errorf("invalid CACHE_MAX_ENTRIES %q", v)
		}
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	if v := getenv("TZ_NAME"); v != "" {
		if cfg.TimeZone, err = time.LoadLocation(v); err != nil {
			return nil, fmt.Errorf("load TZ_NAME: %w", err)
		}
	}
	for _, origin := range strings.Split(getenv("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	switch cfg.CacheBackend {
	case "memory", "local", "sqlite":
	case "gcs":
		if cfg.CacheBucket == "" {
			return nil, errors.New("CACHE_BUCKET required when CACHE_BACKEND=gcs")
		}
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}

	if cfg.IdentityPublicKey == "" && cfg.FirebaseCredFile == "" && !cfg.DevAuth {
		return nil, errors.New("one of IDENTITY_PUBLIC_KEY, FIREBASE_CREDENTIALS_FILE or DEV_AUTH is required")
	}
	return cfg, nil
}

// newLogger writes JSON in production and readable text when debugging.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if level <= slog.LevelDebug {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newCacheBackend opens the configured store. The returned func releases it.
func newCacheBackend(ctx context.Context, cfg *config, logger *slog.Logger) (cache.Backend, func(), error) {
	switch cfg.CacheBackend {
	case "local":
		local, err := dstorage.NewLocal(cfg.CachePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return local, func() {}, nil
	case "sqlite":
		db, err := dstorage.NewSQLite(cfg.CachePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, func() {
			if err := db.Close(); err != nil {
				logger.Warn("Failed to close cache database", "error", err)
			}
		}, nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create storage client: %w", err)
		}
		return dstorage.NewGCS(client, cfg.CacheBucket, "cache/", logger), func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close storage client", "error", err)
			}
		}, nil
	default:
		return cache.NewMemory(), func() {}, nil
	}
}

// newVerifier prefers a signed-token verifier; the dev verifier is the last resort.
func newVerifier(ctx context.Context, cfg *config, logger *slog.Logger) (auth.Verifier, error) {
	switch {
	case cfg.IdentityPublicKey != "":
		logger.Info("Verifying identity tokens with public key", "issuer", cfg.IdentityIssuer)
		return auth.NewJWTVerifier([]byte(cfg.IdentityPublicKey), cfg.IdentityIssuer)
	case cfg.FirebaseCredFile != "":
		logger.Info("Verifying identity tokens with Firebase")
		return auth.NewFirebaseVerifier(ctx, cfg.FirebaseCredFile)
	default:
		logger.Warn("Development sign-in enabled; do not use in production")
		return auth.DevVerifier{}, nil
	}
}

func run(ctx context.Context, cfg *config, logger *slog.Logger) error {
	backend, closeBackend, err := newCacheBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer closeBackend()
	c := cache.New(backend, logger.With("component", "cache"), cache.WithMaxEntries(cfg.CacheMaxEntries))
	logger.Info("Cache ready", "backend", cfg.CacheBackend, "max_entries", cfg.CacheMaxEntries)

	verifier, err := newVerifier(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	userAgent := fmt.Sprintf("%s/%s", cfg.AppName, cfg.AppVersion)
	srv := server.New(&server.Config{
		Backend:        api.New(httpClient, cfg.APIBaseURL, logger.With("component", "api")),
		Geocoder:       geo.NewGeocoder(httpClient, cfg.GeocoderURL, userAgent, c, logger.With("component", "geo")),
		Verifier:       verifier,
		Cache:          c,
		Logger:         logger,
		AppName:        cfg.AppName,
		AppVersion:     cfg.AppVersion,
		AllowedOrigins: cfg.AllowedOrigins,
		Location:       cfg.TimeZone,
		DevAuth:        cfg.DevAuth,
	})
	if err := srv.ListenAndServe(ctx, cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		stop()
		os.Exit(1)
	}
}
