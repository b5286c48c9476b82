package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	DiscordToken string

	// Riot API
	RiotAPIKey   string
	RiotPlatform string // e.g. euw1, used for spectator and match id prefixes
	RiotRegion   string // e.g. europe, used for account and match endpoints

	// Database
	DatabasePath string

	// Live game polling
	PollingInterval time.Duration

	// Pending match retries
	PendingInterval    time.Duration
	PendingMinAge      time.Duration
	PendingMaxAttempts int
	PendingMaxAge      time.Duration

	// Presence updates
	StatusInterval time.Duration

	// Optional HTTP status server, disabled when empty
	StatusAddr string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken: os.Getenv("DISCORD_BOT_TOKEN"),
		RiotAPIKey:   os.Getenv("RIOT_API_KEY"),
		RiotPlatform: getEnvOrDefault("RIOT_PLATFORM", "euw1"),
		RiotRegion:   getEnvOrDefault("RIOT_REGION", "europe"),
		DatabasePath: getEnvOrDefault("DATABASE_PATH", "./data/bot.db"),
		StatusAddr:   os.Getenv("STATUS_ADDR"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
	}

	ints := []struct {
		key   string
		def   string
		min   int
		apply func(int)
	}{
		{"POLLING_INTERVAL_SECONDS", "60", 5, func(n int) { cfg.PollingInterval = time.Duration(n) * time.Second }},
		{"PENDING_INTERVAL_SECONDS", "120", 5, func(n int) { cfg.PendingInterval = time.Duration(n) * time.Second }},
		{"PENDING_MIN_AGE_SECONDS", "60", 0, func(n int) { cfg.PendingMinAge = time.Duration(n) * time.Second }},
		{"PENDING_MAX_ATTEMPTS", "10", 1, func(n int) { cfg.PendingMaxAttempts = n }},
		{"PENDING_MAX_AGE_HOURS", "168", 1, func(n int) { cfg.PendingMaxAge = time.Duration(n) * time.Hour }},
		{"STATUS_INTERVAL_SECONDS", "30", 5, func(n int) { cfg.StatusInterval = time.Duration(n) * time.Second }},
	}
	for _, v := range ints {
		n, err := strconv.Atoi(getEnvOrDefault(v.key, v.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", v.key, err)
		}
		if n < v.min {
			return nil, fmt.Errorf("invalid %s: must be at least %d", v.key, v.min)
		}
		v.apply(n)
	}

	// Validate required fields
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if cfg.RiotAPIKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
