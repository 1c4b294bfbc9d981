package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig collects everything the server needs to start.
type AppConfig struct {
	ListenAddr         string
	Port               string
	DatabaseDriver     string
	DatabaseDSN        string
	JWTSecret          string
	TokenTTL           time.Duration
	GinMode            string
	Debug              bool
	LogLevel           string
	LogPretty          bool
	ReapInterval       time.Duration
	PageSize           int
	CORSAllowedOrigins []string
	SeedTags           bool
}

// Load reads a .env file when present, then the process environment, and
// fills every missing value with a development default.
func Load() AppConfig {
	_ = godotenv.Load()

	port := envString("PORT", "8080")

	listenAddr := envString("LISTEN_ADDR", "")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	return AppConfig{
		ListenAddr:         listenAddr,
		Port:               port,
		DatabaseDriver:     envString("DB_DRIVER", "sqlite"),
		DatabaseDSN:        envString("DATABASE_DSN", "fleeting.db"),
		JWTSecret:          envString("JWT_SECRET", "fleeting-dev-secret-change-in-production"),
		TokenTTL:           envDuration("TOKEN_TTL", time.Hour),
		GinMode:            envString("GIN_MODE", "release"),
		Debug:              envBool("APP_DEBUG", false),
		LogLevel:           envString("LOG_LEVEL", "info"),
		LogPretty:          envBool("LOG_PRETTY", false),
		ReapInterval:       envDuration("REAP_INTERVAL", 15*time.Minute),
		PageSize:           envInt("PAGE_SIZE", 15),
		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		SeedTags:           envBool("SEED_TAGS", true),
	}
}

func envString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(envString(key, ""))
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(envString(key, ""))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// envDuration accepts Go durations ("90m") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := envString(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	raw := envString(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
