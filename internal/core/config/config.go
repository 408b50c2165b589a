package config

import (
	"time"

	"github.com/vuxmai/budgetwatch/internal/infra/bus"
	redisclient "github.com/vuxmai/budgetwatch/internal/infra/redis"
	"github.com/vuxmai/budgetwatch/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Bus      bus.Config         `yaml:"bus"`
	Consumer ConsumerConfig     `yaml:"consumer"`
	Retry    RetryConfig        `yaml:"retry"`
	Breaker  BreakerConfig      `yaml:"breaker"`
	Replay   ReplayConfig       `yaml:"replay"`
	History  HistoryConfig      `yaml:"history"`
}

// HistoryConfig holds notification history retention settings.
type HistoryConfig struct {
	Retention time.Duration `yaml:"retention"` // 0 = keep forever
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ConsumerConfig holds settings for the event consumer loop.
type ConsumerConfig struct {
	Subject string `yaml:"subject"` // bus subject carrying transaction events
	Queue   string `yaml:"queue"`   // queue group for horizontal scaling
}

// RetryConfig holds settings for the retry executor.
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       bool          `yaml:"jitter"`
}

// BreakerConfig holds circuit breaker tuning.
type BreakerConfig struct {
	FailureThreshold  int           `yaml:"failure_threshold"`
	RecoveryTimeout   time.Duration `yaml:"recovery_timeout"`
	HalfOpenSuccesses int           `yaml:"half_open_successes"`
}

// ReplayConfig holds settings for the dead-letter replay loop.
type ReplayConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}
