package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers understood by Load.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port             string
	StorageDriver    string
	DatabaseURL      string
	JWTSecret        string
	JWTIssuer        string
	JWTTTL           time.Duration
	CORSOrigins      []string
	DefaultTimeZone  string
	SweepInterval    time.Duration
	SeedDefaultUsers bool
	LogLevel         string
	LogFormat        string
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:             fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:        strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:        fallback(os.Getenv("JWT_ISSUER"), "syncink-attendance"),
		CORSOrigins:      parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		DefaultTimeZone:  fallback(os.Getenv("DEFAULT_TIMEZONE"), "UTC"),
		SeedDefaultUsers: parseBool(os.Getenv("SEED_DEFAULT_USERS"), true),
		LogLevel:         fallback(os.Getenv("LOG_LEVEL"), "info"),
		LogFormat:        fallback(os.Getenv("LOG_FORMAT"), "text"),
	}

	minutes := fallback(os.Getenv("JWT_TTL_MINUTES"), "60")
	if ttlMinutes, err := strconv.Atoi(minutes); err == nil && ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 60 * time.Minute
	}

	sweep := fallback(os.Getenv("SWEEP_INTERVAL_MINUTES"), "5")
	if sweepMinutes, err := strconv.Atoi(sweep); err == nil && sweepMinutes >= 0 {
		cfg.SweepInterval = time.Duration(sweepMinutes) * time.Minute
	} else {
		cfg.SweepInterval = 5 * time.Minute
	}

	defaultDriver := DriverMemory
	if cfg.DatabaseURL != "" {
		defaultDriver = DriverPostgres
	}
	cfg.StorageDriver = strings.ToLower(fallback(os.Getenv("STORAGE_DRIVER"), defaultDriver))

	switch cfg.StorageDriver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required for the postgres storage driver")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if _, err := time.LoadLocation(cfg.DefaultTimeZone); err != nil {
		return Config{}, fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", cfg.DefaultTimeZone, err)
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseBool(value string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return b
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
