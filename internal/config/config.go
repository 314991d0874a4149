// Package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// statistics service
	StatsBaseURL  string
	StatsUsername string
	StatsPassword string
	StatsTimeout  time.Duration
	StatsAuthRPS  float64 // 0 disables throttling of the auth endpoint

	// optional password gate; the hash wins when both are set
	GatePassword     string
	GatePasswordHash string

	// server
	HTTPPort     int
	TemplatesDir string // empty means embedded templates
	CORSOrigins  []string

	// mock upstream
	MockPort     int
	MockFixture  string
	MockRandom   bool
	MockTokenTTL time.Duration

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first; variables already
// set in the environment take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	cfg := &Config{
		StatsBaseURL:     strings.TrimRight(getEnv("STATS_BASE_URL", "http://127.0.0.1:8000"), "/"),
		StatsUsername:    getEnv("STATS_USERNAME", "root"),
		StatsPassword:    getEnv("STATS_PASSWORD", ""),
		StatsTimeout:     getEnvDuration("STATS_TIMEOUT", 15*time.Second),
		StatsAuthRPS:     getEnvFloat("STATS_AUTH_RPS", 0),
		GatePassword:     getEnv("GATE_PASSWORD", ""),
		GatePasswordHash: getEnv("GATE_PASSWORD_HASH", ""),
		HTTPPort:         getEnvInt("HTTP_PORT", 3100),
		TemplatesDir:     getEnv("TEMPLATES_DIR", ""),
		CORSOrigins:      getEnvList("CORS_ORIGINS"),
		MockPort:         getEnvInt("MOCK_PORT", 8000),
		MockFixture:      getEnv("MOCK_FIXTURE", ""),
		MockRandom:       getEnvBool("MOCK_RANDOM", false),
		MockTokenTTL:     getEnvDuration("MOCK_TOKEN_TTL", 0),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          getEnv("LOG_FILE", ""),
	}

	return cfg, nil
}

// GateRequired reports whether the dashboard starts locked.
func (c *Config) GateRequired() bool {
	return c.GatePassword != "" || c.GatePasswordHash != ""
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("15s") or a bare number of seconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
