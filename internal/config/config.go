package config

import (
	"os"
)

// Config holds all configuration for the ledger server.
type Config struct {
	// Port the HTTP server listens on
	Port string

	// DataDir is the directory holding per-tenant partition databases
	DataDir string

	RabbitMQ RabbitMQConfig
}

// RabbitMQConfig holds RabbitMQ publishing configuration. An empty URL
// disables event publishing entirely.
type RabbitMQConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// Load loads configuration from environment variables with default values.
func Load() *Config {
	return &Config{
		Port:    getEnv("BOKBANK_PORT", "8080"),
		DataDir: getEnv("BOKBANK_DATA_DIR", "Databases"),
		RabbitMQ: RabbitMQConfig{
			URL:        os.Getenv("RABBITMQ_URL"),
			Exchange:   getEnv("RABBITMQ_EXCHANGE", "bank.operations"),
			RoutingKey: getEnv("RABBITMQ_ROUTING_KEY", "bank.operations.transfer.completed"),
		},
	}
}

// getEnv retrieves an environment variable or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
