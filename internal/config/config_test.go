package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 3000, cfg.Server.Port)
				assert.Equal(t, StorageMemory, cfg.Storage.Kind)
				assert.Equal(t, BusMemory, cfg.Bus.Kind)
				assert.Equal(t, ProviderMock, cfg.Provider.Kind)
				assert.Equal(t, 10, cfg.Scheduler.Concurrency)
				assert.Equal(t, 3, cfg.Scheduler.MaxAttempts)
				assert.Equal(t, time.Second, cfg.Scheduler.BaseDelay)
				assert.Equal(t, 100, cfg.Scheduler.RateLimit)
				assert.Equal(t, time.Minute, cfg.Scheduler.RateWindow)
				assert.Equal(t, 1000, cfg.Scheduler.CompletedRetention)
				assert.Equal(t, 24*time.Hour, cfg.Scheduler.CompletedMaxAge)
				assert.Equal(t, 5000, cfg.Scheduler.FailedRetention)
				assert.Equal(t, "swap-service", cfg.App.Name)
			}
		})
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errString string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:      "invalid server port",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			errString: "invalid server port",
		},
		{
			name:      "unknown storage kind",
			mutate:    func(c *Config) { c.Storage.Kind = "mongo" },
			errString: "invalid storage kind",
		},
		{
			name: "postgres storage without host",
			mutate: func(c *Config) {
				c.Storage.Kind = StoragePostgres
				c.Database.Host = ""
			},
			errString: "database host is required",
		},
		{
			name:      "unknown bus kind",
			mutate:    func(c *Config) { c.Bus.Kind = "kafka" },
			errString: "invalid bus kind",
		},
		{
			name: "redis bus without host",
			mutate: func(c *Config) {
				c.Bus.Kind = BusRedis
				c.Redis.Host = ""
			},
			errString: "redis host is required",
		},
		{
			name:      "unknown provider kind",
			mutate:    func(c *Config) { c.Provider.Kind = "live" },
			errString: "invalid provider kind",
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Scheduler.Concurrency = 0 },
			errString: "concurrency must be greater than 0",
		},
		{
			name:      "zero max attempts",
			mutate:    func(c *Config) { c.Scheduler.MaxAttempts = 0 },
			errString: "max_attempts must be greater than 0",
		},
		{
			name:      "zero base delay",
			mutate:    func(c *Config) { c.Scheduler.BaseDelay = 0 },
			errString: "base_delay must be greater than 0",
		},
		{
			name:      "zero rate limit",
			mutate:    func(c *Config) { c.Scheduler.RateLimit = 0 },
			errString: "rate_limit must be greater than 0",
		},
		{
			name:      "zero rate window",
			mutate:    func(c *Config) { c.Scheduler.RateWindow = 0 },
			errString: "rate_window must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errString == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			}
		})
	}
}
