// Package config holds the worker's environment-driven configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds everything the worker needs to serve runs.
type Config struct {
	ListenAddr      string // HTTP ingress address
	DBPath          string // sqlite database file
	MaxIterations   int    // orchestration loop cap
	HistoryWindow   int    // prior turns loaded per run
	SandboxTemplate string // default sandbox template when the trigger has none
}

// Load reads the configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:      getEnv("FORGE_LISTEN_ADDR", ":8080"),
		DBPath:          getEnv("FORGE_DB_PATH", "forge.db"),
		MaxIterations:   15,
		HistoryWindow:   5,
		SandboxTemplate: getEnv("FORGE_SANDBOX_TEMPLATE", "nextjs"),
	}

	if v := os.Getenv("FORGE_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid FORGE_MAX_ITERATIONS: %q", v)
		}
		cfg.MaxIterations = n
	}
	if v := os.Getenv("FORGE_HISTORY_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid FORGE_HISTORY_WINDOW: %q", v)
		}
		cfg.HistoryWindow = n
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
