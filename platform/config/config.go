// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides Redis connection settings for caching.
type RedisConfig interface {
	GetRedisURL() string
	GetCaptureCacheTTL() time.Duration
	GetSummaryCacheTTL() time.Duration
}

// PolicyConfig provides the lead lifecycle policy knobs.
type PolicyConfig interface {
	GetWorkloadCeiling() int
	GetTaskStalenessWindow() time.Duration
	GetDuplicateWindow() time.Duration
}

// SchedulerConfig provides settings for the background snapshot scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSnapshotInterval() time.Duration
}

// =============================================================================
// Config
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env string

	DatabaseURL string

	RedisURL        string
	CaptureCacheTTL time.Duration
	SummaryCacheTTL time.Duration

	WorkloadCeiling     int
	TaskStalenessWindow time.Duration
	DuplicateWindow     time.Duration

	AsynqQueueName   string
	AsynqConcurrency int
	SnapshotInterval time.Duration
}

// Load reads configuration from the environment, loading a .env file first
// when present. Missing required values are an error at startup, not at
// first use.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisURL:        getEnv("REDIS_URL", ""),
		CaptureCacheTTL: getEnvDuration("LEAD_CAPTURE_CACHE_TTL", time.Hour),
		SummaryCacheTTL: getEnvDuration("AGENT_SUMMARY_CACHE_TTL", 5*time.Minute),

		WorkloadCeiling:     getEnvInt("LEAD_WORKLOAD_CEILING", 50),
		TaskStalenessWindow: getEnvDuration("TASK_STALENESS_WINDOW", 30*24*time.Hour),
		DuplicateWindow:     getEnvDuration("LEAD_DUPLICATE_WINDOW", 24*time.Hour),

		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),
		SnapshotInterval: getEnvDuration("METRICS_SNAPSHOT_INTERVAL", 24*time.Hour),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.WorkloadCeiling < 1 {
		return nil, fmt.Errorf("LEAD_WORKLOAD_CEILING must be positive, got %d", cfg.WorkloadCeiling)
	}

	return cfg, nil
}

// GetDatabaseURL implements DatabaseConfig.
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// GetRedisURL implements RedisConfig and SchedulerConfig.
func (c *Config) GetRedisURL() string { return c.RedisURL }

// GetCaptureCacheTTL implements RedisConfig.
func (c *Config) GetCaptureCacheTTL() time.Duration { return c.CaptureCacheTTL }

// GetSummaryCacheTTL implements RedisConfig.
func (c *Config) GetSummaryCacheTTL() time.Duration { return c.SummaryCacheTTL }

// GetWorkloadCeiling implements PolicyConfig.
func (c *Config) GetWorkloadCeiling() int { return c.WorkloadCeiling }

// GetTaskStalenessWindow implements PolicyConfig.
func (c *Config) GetTaskStalenessWindow() time.Duration { return c.TaskStalenessWindow }

// GetDuplicateWindow implements PolicyConfig.
func (c *Config) GetDuplicateWindow() time.Duration { return c.DuplicateWindow }

// GetAsynqQueueName implements SchedulerConfig.
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }

// GetAsynqConcurrency implements SchedulerConfig.
func (c *Config) GetAsynqConcurrency() int { return c.AsynqConcurrency }

// GetSnapshotInterval implements SchedulerConfig.
func (c *Config) GetSnapshotInterval() time.Duration { return c.SnapshotInterval }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
