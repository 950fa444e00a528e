package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the sync layer.
type Config struct {
	App     AppConfig
	Backend BackendConfig
	SLA     SLAConfig
	Redis   RedisConfig
	Logger  LoggerConfig
	Refresh RefreshConfig
}

// AppConfig controls process level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// BackendConfig holds ticket API connection values.
type BackendConfig struct {
	BaseURL           string
	AuthToken         string
	TimeoutSeconds    int
	ListPageSize      int
	DashboardPageSize int
}

// SLAConfig holds the SLA collaborator endpoint values.
type SLAConfig struct {
	BaseURL        string
	Enabled        bool
	TimeoutSeconds int
}

// RedisConfig holds the optional reference-snapshot cache values.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SnapshotTTLMinutes int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// RefreshConfig controls the periodic dashboard refresh worker.
type RefreshConfig struct {
	IntervalSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "ticket-sync"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Backend: BackendConfig{
			BaseURL:           getEnv("BACKEND_BASE_URL", "http://127.0.0.1:8080/api"),
			AuthToken:         os.Getenv("BACKEND_AUTH_TOKEN"),
			TimeoutSeconds:    getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 30),
			ListPageSize:      getEnvAsInt("BACKEND_LIST_PAGE_SIZE", 20),
			DashboardPageSize: getEnvAsInt("BACKEND_DASHBOARD_PAGE_SIZE", 10),
		},
		SLA: SLAConfig{
			BaseURL:        getEnv("SLA_BASE_URL", "http://127.0.0.1:8081/api/sla"),
			Enabled:        getEnvAsBool("SLA_ENABLED", true),
			TimeoutSeconds: getEnvAsInt("SLA_TIMEOUT_SECONDS", 10),
		},
		Redis: RedisConfig{
			Addr:               getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:           os.Getenv("REDIS_PASSWORD"),
			DB:                 redisDB,
			SnapshotTTLMinutes: getEnvAsInt("REDIS_SNAPSHOT_TTL_MINUTES", 1440),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Refresh: RefreshConfig{
			IntervalSeconds: getEnvAsInt("REFRESH_INTERVAL_SECONDS", 60),
		},
	}

	if cfg.Backend.ListPageSize <= 0 || cfg.Backend.DashboardPageSize <= 0 {
		return nil, fmt.Errorf("page sizes must be positive")
	}

	return cfg, nil
}

// Timeout returns the configured backend request timeout duration.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Timeout returns the configured SLA request timeout duration.
func (s SLAConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// SnapshotTTL returns the reference snapshot expiry duration.
func (r RedisConfig) SnapshotTTL() time.Duration {
	if r.SnapshotTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(r.SnapshotTTLMinutes) * time.Minute
}

// Interval returns the refresh worker period.
func (r RefreshConfig) Interval() time.Duration {
	if r.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.IntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
