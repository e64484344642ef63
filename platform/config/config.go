// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// StoreConfig provides item store connection settings.
type StoreConfig interface {
	GetDatabaseURL() string
	GetSQLitePath() string
}

// TextGenConfig provides settings for the text-generation service client.
type TextGenConfig interface {
	GetGeminiAPIKey() string
	GetTextGenModel() string
}

// SubjectConfig resolves the monitored subject.
type SubjectConfig interface {
	GetSubject() string
}

// ReportConfig provides settings for run-scoped report output.
type ReportConfig interface {
	GetOutputDir() string
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetPipelineInterval() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env              string
	DatabaseURL      string
	SQLitePath       string
	GeminiAPIKey     string
	TextGenModel     string
	Subject          string
	ProfilePath      string
	OutputDir        string
	RedisURL         string
	AsynqQueueName   string
	AsynqConcurrency int
	PipelineInterval time.Duration
}

// StoreConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }
func (c *Config) GetSQLitePath() string  { return c.SQLitePath }

// TextGenConfig implementation
func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }
func (c *Config) GetTextGenModel() string { return c.TextGenModel }

// SubjectConfig implementation
func (c *Config) GetSubject() string { return c.Subject }

// ReportConfig implementation
func (c *Config) GetOutputDir() string { return c.OutputDir }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string               { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string         { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int          { return c.AsynqConcurrency }
func (c *Config) GetPipelineInterval() time.Duration { return c.PipelineInterval }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		SQLitePath:       getEnv("SQLITE_PATH", "data/watch.db"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		TextGenModel:     getEnv("TEXTGEN_MODEL", "gemini-2.5-flash"),
		Subject:          getEnv("SUBJECT", ""),
		ProfilePath:      getEnv("WATCH_PROFILE", "watch.yaml"),
		OutputDir:        getEnv("OUTPUT_DIR", "runs"),
		RedisURL:         getEnv("REDIS_URL", ""),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "2")),
		PipelineInterval: mustDuration(getEnv("PIPELINE_INTERVAL", "1h")),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("invalid duration %q: %v", value, err))
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		panic(fmt.Sprintf("invalid integer %q: %v", value, err))
	}
	return n
}
