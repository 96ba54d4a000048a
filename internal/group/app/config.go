package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	GroupName string // Required: human-readable group name registered with the ledger
	LedgerURL string // Required: base URL of the ledger authority

	LedgerIdentity  string // Optional: ledger's identity; acknowledgements are verified when set
	FounderIdentity string // Optional: identity of the founding member, seeded at registration
	FounderEmail    string // Optional: founding member's email

	DatabaseFile string // Optional: path to SQLite database file (default: ./group.db)
	KeyFile      string // Optional: path to the group's ed25519 key PEM (default: ./group.pem, created if missing)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		GroupName:           getEnvOrDefault("GROUP_NAME", "uome-group"),
		LedgerURL:           getEnvOrDefault("LEDGER_URL", "http://localhost:8090"),
		LedgerIdentity:      os.Getenv("LEDGER_IDENTITY"),
		FounderIdentity:     os.Getenv("GROUP_FOUNDER_IDENTITY"),
		FounderEmail:        os.Getenv("GROUP_FOUNDER_EMAIL"),
		DatabaseFile:        getEnvOrDefault("GROUP_DATABASE_FILE", "group.db"),
		KeyFile:             getEnvOrDefault("GROUP_KEY_FILE", "group.pem"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
