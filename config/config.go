package config

import (
	"fmt"
	"os"
)

type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port string

	// Admin
	AdminToken string

	// Show timing
	ShowTimezone  string
	VoteLength    int // seconds a voting window stays open
	ResultLength  int // seconds the result is displayed afterwards
	VoteOptions   int // options offered per vote
	RandomizeFrom int // top slice of the candidate pool to sample from

	// Vote recording queue
	AMQPURL       string
	VoteQueueSize int

	// Other
	Environment string
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/deathpool?sslmode=disable"),

		Port: getEnv("PORT", "8080"),

		AdminToken: getEnv("ADMIN_TOKEN", ""),

		ShowTimezone:  getEnv("SHOW_TIMEZONE", "America/Denver"),
		VoteLength:    getEnvInt("VOTE_LENGTH_SECONDS", 25),
		ResultLength:  getEnvInt("RESULT_LENGTH_SECONDS", 8),
		VoteOptions:   getEnvInt("VOTE_OPTIONS", 3),
		RandomizeFrom: getEnvInt("RANDOMIZE_AMOUNT", 6),

		AMQPURL:       getEnv("AMQP_URL", ""),
		VoteQueueSize: getEnvInt("VOTE_QUEUE_SIZE", 1000),

		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

// IsAdminToken reports whether the given token matches the configured admin
// token. An empty configured token never matches.
func (c *Config) IsAdminToken(token string) bool {
	return c.AdminToken != "" && token == c.AdminToken
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result int
	fmt.Sscanf(value, "%d", &result)
	if result == 0 {
		return defaultValue
	}
	return result
}
