package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	SnapshotStore string
	SQLitePath    string
	SnapshotDir   string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	AutosaveDelay    time.Duration
	AutosaveWindow   int
	ThumbnailMaxDim  int
	ThumbnailQuality int
	SnapshotMaxBytes int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		SnapshotStore:    getEnv("SNAPSHOT_STORE", "sqlite"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/sessions.db"),
		SnapshotDir:      getEnv("SNAPSHOT_DIR", "./data/snapshots"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		AutosaveDelay:    time.Millisecond * time.Duration(getEnvInt("AUTOSAVE_DELAY_MS", 1500)),
		AutosaveWindow:   getEnvInt("AUTOSAVE_WINDOW", 5),
		ThumbnailMaxDim:  getEnvInt("THUMBNAIL_MAX_DIM", 640),
		ThumbnailQuality: getEnvInt("THUMBNAIL_QUALITY", 70),
		SnapshotMaxBytes: getEnvInt("SNAPSHOT_MAX_BYTES", 4<<20),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if origins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
			}
		}
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	switch cfg.SnapshotStore {
	case "sqlite", "fs":
	default:
		return nil, fmt.Errorf("SNAPSHOT_STORE must be sqlite or fs, got %q", cfg.SnapshotStore)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
