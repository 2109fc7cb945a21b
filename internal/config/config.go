package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Backend kinds for the order store and the notification bus
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	BusMemory       = "memory"
	BusRedis        = "redis"
	ProviderMock    = "mock"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Bus       BusConfig       `yaml:"bus"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Provider  ProviderConfig  `yaml:"provider"`
	Logging   LoggingConfig   `yaml:"logging"`
	App       AppConfig       `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects the order store backend
type StorageConfig struct {
	Kind string `yaml:"kind"` // memory, postgres
}

// DatabaseConfig holds PostgreSQL connection configuration,
// used when storage.kind is postgres
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// BusConfig selects the notification bus backend
type BusConfig struct {
	Kind string `yaml:"kind"` // memory, redis
}

// RedisConfig holds Redis connection configuration,
// used when bus.kind is redis
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SchedulerConfig holds job scheduler configuration
type SchedulerConfig struct {
	Concurrency        int           `yaml:"concurrency"`
	MaxAttempts        int           `yaml:"max_attempts"`
	BaseDelay          time.Duration `yaml:"base_delay"`
	RateLimit          int           `yaml:"rate_limit"`
	RateWindow         time.Duration `yaml:"rate_window"`
	QueueSize          int           `yaml:"queue_size"`
	CompletedRetention int           `yaml:"completed_retention"`
	CompletedMaxAge    time.Duration `yaml:"completed_max_age"`
	FailedRetention    int           `yaml:"failed_retention"`
}

// ProviderConfig selects the execution provider
type ProviderConfig struct {
	Kind string `yaml:"kind"` // mock
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	switch c.Storage.Kind {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required for postgres storage")
		}
		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage kind: %q (must be %s or %s)", c.Storage.Kind, StorageMemory, StoragePostgres)
	}

	switch c.Bus.Kind {
	case BusMemory:
	case BusRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("redis host is required for redis bus")
		}
		if c.Redis.Port < MinPort || c.Redis.Port > MaxPort {
			return fmt.Errorf("invalid redis port: %d", c.Redis.Port)
		}
	default:
		return fmt.Errorf("invalid bus kind: %q (must be %s or %s)", c.Bus.Kind, BusMemory, BusRedis)
	}

	if c.Provider.Kind != ProviderMock {
		return fmt.Errorf("invalid provider kind: %q (only %s is supported)", c.Provider.Kind, ProviderMock)
	}

	if c.Scheduler.Concurrency <= 0 {
		return fmt.Errorf("scheduler concurrency must be greater than 0")
	}

	if c.Scheduler.MaxAttempts <= 0 {
		return fmt.Errorf("scheduler max_attempts must be greater than 0")
	}

	if c.Scheduler.BaseDelay <= 0 {
		return fmt.Errorf("scheduler base_delay must be greater than 0")
	}

	if c.Scheduler.RateLimit <= 0 {
		return fmt.Errorf("scheduler rate_limit must be greater than 0")
	}

	if c.Scheduler.RateWindow <= 0 {
		return fmt.Errorf("scheduler rate_window must be greater than 0")
	}

	return nil
}
