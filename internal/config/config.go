package config

import (
	"os"
	"strings"
	"time"

	"pushretry/internal/domain"
)

// Config holds all application configuration values.
type Config struct {
	// HTTP server
	HTTPAddr string

	// Redis (queue snapshot persistence)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Kafka (dead-letter routing)
	KafkaBrokers    []string
	DeadLetterTopic string

	// Push gateway
	GatewayURL     string
	GatewayTimeout time.Duration

	// Worker
	PollInterval time.Duration

	// Retry policy file (optional, hot-reloaded when set)
	RetryConfigFile string

	// Application
	Environment string
	LogLevel    string
}

// New creates a Config populated from environment variables with sensible defaults.
func New() *Config {
	return &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		RedisAddr:       getEnv("REDIS_HOST", "localhost") + ":" + getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         0,
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		DeadLetterTopic: getEnv("DEAD_LETTER_TOPIC", domain.DefaultDeadLetterTopic),
		GatewayURL:      getEnv("GATEWAY_URL", "http://localhost:9100/push"),
		GatewayTimeout:  getDurationEnv("GATEWAY_TIMEOUT", domain.DefaultAttemptTimeout),
		PollInterval:    getDurationEnv("POLL_INTERVAL", domain.DefaultPollInterval),
		RetryConfigFile: getEnv("RETRY_CONFIG_FILE", ""),
		Environment:     getEnv("ENVIRONMENT", "local"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
