package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingEnv is returned when a required environment variable is unset or empty.
var ErrMissingEnv = errors.New("missing required environment variable")

// Config holds the application configuration.
type Config struct {
	ServerPort          int
	DatabaseURL         string
	JWTSecret           string
	Environment         string
	LogLevel            string
	AllowedOrigins      []string
	MaintenanceSchedule string // cron expression, empty disables maintenance
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load loads configuration from environment variables, seeding them from a
// .env file in the working directory when one exists.
func Load() (*Config, error) {
	// A missing .env file is fine, the real environment always wins.
	_ = godotenv.Load()

	return fromEnv()
}

func fromEnv() (*Config, error) {
	databaseURL, err := requireEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	secret, err := requireEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	portStr, err := requireEnv("PORT")
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", portStr)
	}

	return &Config{
		ServerPort:          port,
		DatabaseURL:         databaseURL,
		JWTSecret:           secret,
		Environment:         getEnv("APP_ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		AllowedOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "@hourly"),
	}, nil
}

func requireEnv(key string) (string, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, key)
	}
	return value, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
