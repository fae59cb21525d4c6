// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	AppEnv     string
	LogLevel   string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Flight store: "mongo" or "memory"
	StoreDriver string

	// MongoDB
	MongoURI            string
	MongoDB             string
	MongoCollection     string
	MongoUser           string
	MongoPassword       string
	MongoConnectRetries int

	// PostgreSQL, optional. Enables the tracking run audit table.
	PostgresURI string

	// Seed
	SeedFile string

	// Tracking
	TrackingEnabled    bool
	TrackingTimezone   string
	TrackingRandomSeed int64

	// Search
	SearchCacheTTL time.Duration

	// HTTP middleware
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string

	// Metrics
	MetricsNamespace string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion: getEnv("APP_VERSION", "1.0.0"),
		AppEnv:     getEnv("APP_ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		Port:         getEnv("PORT", "3000"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "mongo")),

		MongoURI:            getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:             getEnv("MONGO_DB", "flightDB"),
		MongoCollection:     getEnv("MONGO_COLLECTION", "flights"),
		MongoUser:           getEnv("MONGO_USER", ""),
		MongoPassword:       getEnv("MONGO_PASSWORD", ""),
		MongoConnectRetries: getEnvAsInt("MONGO_CONNECT_RETRIES", 5),

		PostgresURI: getEnv("POSTGRES_URI", ""),

		SeedFile: getEnv("SEED_FILE", "data/flights.json"),

		TrackingEnabled:    getEnvAsBool("TRACKING_ENABLED", true),
		TrackingTimezone:   getEnv("TRACKING_TIMEZONE", "Local"),
		TrackingRandomSeed: int64(getEnvAsInt("TRACKING_RANDOM_SEED", 0)),

		SearchCacheTTL: getEnvAsDuration("SEARCH_CACHE_TTL", 30*time.Second),

		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 40),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		MetricsNamespace: getEnv("METRICS_NAMESPACE", "flight_tracker"),
	}

	if config.StoreDriver != "mongo" && config.StoreDriver != "memory" {
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", config.StoreDriver)
	}

	return config, nil
}

// TrackingLocation resolves the wall-clock zone used by the calendar triggers
func (c *Config) TrackingLocation() (*time.Location, error) {
	return time.LoadLocation(c.TrackingTimezone)
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
