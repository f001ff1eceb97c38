package sandbox

import (
	"log"
	"os"
	"time"
)

// Config holds configuration for sandbox sessions.
type Config struct {
	Image      string        // Custom image override (takes precedence over templates)
	CPU        string        // CPU limit (e.g. "2")
	Memory     string        // Memory limit (e.g. "1g")
	CmdTimeout time.Duration // Default per-command timeout (0 = use default)
	TTL        time.Duration // Session wall-clock time-to-live
	DevPort    int           // Port the generated app's dev server listens on
}

const (
	defaultCmdTimeout = 2 * time.Minute
	defaultTTL        = 10 * time.Minute
	defaultDevPort    = 3000
)

// DefaultConfig returns the default configuration based on environment
// variables.
func DefaultConfig() Config {
	cmdTimeout := defaultCmdTimeout
	if timeoutStr := os.Getenv("FORGE_CMD_TIMEOUT"); timeoutStr != "" {
		if d, err := time.ParseDuration(timeoutStr); err == nil && d > 0 {
			cmdTimeout = d
		} else {
			log.Printf("WARNING: Invalid FORGE_CMD_TIMEOUT value '%s', using default %s", timeoutStr, defaultCmdTimeout)
		}
	}

	ttl := defaultTTL
	if ttlStr := os.Getenv("FORGE_SANDBOX_TTL"); ttlStr != "" {
		if d, err := time.ParseDuration(ttlStr); err == nil && d > 0 {
			ttl = d
		} else {
			log.Printf("WARNING: Invalid FORGE_SANDBOX_TTL value '%s', using default %s", ttlStr, defaultTTL)
		}
	}

	return Config{
		Image:      os.Getenv("FORGE_SANDBOX_IMAGE"),
		CPU:        getEnvOrDefault("FORGE_SANDBOX_CPU", "2"),
		Memory:     getEnvOrDefault("FORGE_SANDBOX_MEMORY", "1g"),
		CmdTimeout: cmdTimeout,
		TTL:        ttl,
		DevPort:    defaultDevPort,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
