package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration for the swapdeck API server.
// Values come from the environment; poll cadences and backoff are
// configuration constants, not CLI flags.
type Config struct {
	Port          string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	RedisAddr     string
	RedisPassword string

	AggregatorBaseURL string
	AggregatorAPIKey  string

	// Fan-out hub cadences.
	PricePollInterval time.Duration
	GasPollInterval   time.Duration
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration

	// Client stream manager.
	ReconnectBase        time.Duration
	MaxReconnectAttempts int
}

// Load reads configuration from the environment, applying defaults
// for anything unset.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found")
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBUser:        getEnv("DB_USER", "swapdeck"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        getEnv("DB_NAME", "swapdeck"),
		DBPort:        getEnv("DB_PORT", "5432"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		AggregatorBaseURL: getEnv("AGGREGATOR_BASE_URL", "https://api.1inch.dev"),
		AggregatorAPIKey:  os.Getenv("AGGREGATOR_API_KEY"),

		PricePollInterval: getDuration("PRICE_POLL_INTERVAL", 10*time.Second),
		GasPollInterval:   getDuration("GAS_POLL_INTERVAL", 15*time.Second),
		HeartbeatInterval: getDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		StaleAfter:        getDuration("STALE_AFTER", 60*time.Second),

		ReconnectBase:        getDuration("RECONNECT_BASE", time.Second),
		MaxReconnectAttempts: getInt("MAX_RECONNECT_ATTEMPTS", 10),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithField("key", key).Warn("Invalid integer in environment, using default")
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.WithField("key", key).Warn("Invalid duration in environment, using default")
		return fallback
	}
	return d
}
