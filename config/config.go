package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"classroom-gateway/platform"
)

// Backends selectable through DATA_BACKEND.
const (
	BackendPlatform = "platform" // hosted data platform over HTTP
	BackendSandbox  = "sandbox"  // Redis-backed local stand-in
)

// Config holds the settings read at startup.
type Config struct {
	Port     string
	LogLevel slog.Level

	Backend string

	PlatformBaseURL   string
	PlatformProjectID string
	PlatformPublicKey string
	PlatformTimeout   time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SeedData            bool
	NotificationFeedCap int
}

// Load reads the configuration from the environment.
func Load() *Config {
	creds := PlatformCredentials()
	return &Config{
		Port:                getEnv("PORT", "8080"),
		LogLevel:            getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
		Backend:             strings.ToLower(getEnv("DATA_BACKEND", BackendSandbox)),
		PlatformBaseURL:     creds.BaseURL,
		PlatformProjectID:   creds.ProjectID,
		PlatformPublicKey:   creds.PublicKey,
		PlatformTimeout:     time.Duration(getEnvAsInt("PLATFORM_TIMEOUT_SECONDS", 30)) * time.Second,
		RedisAddr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvAsInt("REDIS_DB", 8),
		SeedData:            getEnvAsBool("SEED_DATA", true),
		NotificationFeedCap: getEnvAsInt("NOTIFICATION_FEED_CAP", 100),
	}
}

// PlatformCredentials reads the platform credentials from the environment.
// The platform factory calls it for every client handle.
func PlatformCredentials() platform.Credentials {
	return platform.Credentials{
		BaseURL:   strings.TrimRight(getEnv("PLATFORM_BASE_URL", "https://api.dataplatform.io"), "/"),
		ProjectID: getEnv("PLATFORM_PROJECT_ID", ""),
		PublicKey: getEnv("PLATFORM_PUBLIC_KEY", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value, exists := os.LookupEnv(key); exists {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err == nil {
			return level
		}
	}
	return defaultValue
}
