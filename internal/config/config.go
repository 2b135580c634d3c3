package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Booking backend
	BookingAPIBaseURL string
	BookingAPITimeout time.Duration

	// Inline page data: provider identity and backend client credentials
	ProviderJSON string
	BackendJSON  string

	// Selector policy
	BookingWindowDays int
	DayStripDays      int
	ConfirmationURL   string
	Timezone          string

	// Widget sessions
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	// HTTP surface
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	MetricsEnabled     bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),

		BookingAPIBaseURL: strings.TrimRight(getEnv("BOOKING_API_BASE_URL", "http://localhost:5000"), "/"),
		BookingAPITimeout: getEnvAsDuration("BOOKING_API_TIMEOUT", 15*time.Second),

		ProviderJSON: getEnv("PROVIDER_JSON", ""),
		BackendJSON:  getEnv("BACKEND_JSON", ""),

		BookingWindowDays: getEnvAsInt("BOOKING_WINDOW_DAYS", 30),
		DayStripDays:      getEnvAsInt("DAY_STRIP_DAYS", 5),
		ConfirmationURL:   getEnv("CONFIRMATION_URL", "/confirmed"),
		Timezone:          getEnv("TIMEZONE", "Local"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 30*time.Minute),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
	}
}

// Location resolves the configured timezone. Unknown names fall back to time.Local.
func (c *Config) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate returns human-readable problems with the configuration. None of them
// are fatal; callers log them and keep running.
func (c *Config) Validate() []string {
	var problems []string
	if strings.TrimSpace(c.ProviderJSON) == "" {
		problems = append(problems, "PROVIDER_JSON is empty; slot loading will fail until a provider id is configured")
	}
	if c.BookingWindowDays < 1 {
		problems = append(problems, "BOOKING_WINDOW_DAYS must be at least 1; using 30")
	}
	if c.DayStripDays < 1 {
		problems = append(problems, "DAY_STRIP_DAYS must be at least 1")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil && !strings.EqualFold(c.Timezone, "local") {
		problems = append(problems, "TIMEZONE "+c.Timezone+" is unknown; using local time")
	}
	return problems
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
