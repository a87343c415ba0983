package common

import (
	"os"
	"strconv"
	"time"

	"github.com/fintrack-io/docpipe/constants"
)

// Config holds all application configuration
type Config struct {
	Database     DatabaseConfig
	LLM          LLMConfig
	Orchestrator OrchestratorConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// LLMConfig holds model/session-related configuration
type LLMConfig struct {
	Model             string
	APIKey            string
	BaseURL           string
	Temperature       float32
	Timeout           time.Duration
	RequestsPerMinute int
}

// OrchestratorConfig holds run-level behavior flags
type OrchestratorConfig struct {
	Autonomy   constants.AutonomyMode
	LinkPolicy string // "vat_only" or "vat_or_signals"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		LLM: LLMConfig{
			Model:             getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			APIKey:            getEnv("GEMINI_API_KEY", ""),
			BaseURL:           getEnv("GEMINI_BASE_URL", ""),
			Temperature:       getEnvAsFloat32("GEMINI_TEMPERATURE", 0.0),
			Timeout:           getEnvAsDuration("GEMINI_TIMEOUT", 120*time.Second),
			RequestsPerMinute: getEnvAsInt("GEMINI_RPM", 60),
		},
		Orchestrator: OrchestratorConfig{
			Autonomy:   constants.ParseAutonomyMode(getEnv("AUTONOMY_MODE", "ASSISTED")),
			LinkPolicy: getEnv("CONTACT_LINK_POLICY", "vat_only"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	if c.Orchestrator.LinkPolicy != "vat_only" && c.Orchestrator.LinkPolicy != "vat_or_signals" {
		return NewAppError("CONFIG_ERROR", "CONTACT_LINK_POLICY must be vat_only or vat_or_signals", ErrInvalidInput)
	}
	return nil
}
