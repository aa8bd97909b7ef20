package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, ":8080", config.ListenAddr)
	assert.Equal(t, ModeLive, config.Mode)
	assert.Equal(t, 10, config.BatchLimit)
	assert.Equal(t, 200, config.MaxTotalProducts)
	assert.Equal(t, 3, config.Concurrency)
	assert.Equal(t, 15*time.Second, config.FetchTimeout)
	assert.Equal(t, 180*time.Second, config.MarketTimeout)
	assert.Equal(t, "auto", config.VariantTitleMode)
	assert.Equal(t, 0.2, config.VariantTitleRatio)
	assert.True(t, config.MarketInjection)
	assert.False(t, config.RedisEnabled)
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, "localhost:11211", config.MemcacheAddr)
	require.NoError(t, config.Validate())

	// Test with environment variables
	os.Setenv("EXTRACTION_MODE", "simulated")
	os.Setenv("BATCH_LIMIT", "25")
	os.Setenv("SCRAPE_CONCURRENCY", "6")
	os.Setenv("MARKET_TIMEOUT_SECONDS", "60")
	os.Setenv("VARIANT_TITLE_MODE", "off")
	os.Setenv("REDIS_ENABLED", "true")
	os.Setenv("REDIS_ADDR", "redis.example.com:6379")

	config = LoadConfig()
	assert.Equal(t, ModeSimulated, config.Mode)
	assert.Equal(t, 25, config.BatchLimit)
	assert.Equal(t, 6, config.Concurrency)
	assert.Equal(t, 60*time.Second, config.MarketTimeout)
	assert.Equal(t, "off", config.VariantTitleMode)
	assert.True(t, config.RedisEnabled)
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	require.NoError(t, config.Validate())

	// Clean up
	os.Unsetenv("EXTRACTION_MODE")
	os.Unsetenv("BATCH_LIMIT")
	os.Unsetenv("SCRAPE_CONCURRENCY")
	os.Unsetenv("MARKET_TIMEOUT_SECONDS")
	os.Unsetenv("VARIANT_TITLE_MODE")
	os.Unsetenv("REDIS_ENABLED")
	os.Unsetenv("REDIS_ADDR")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "replay" }},
		{"limit bounds inverted", func(c *Config) { c.BatchLimitMin = 10; c.BatchLimitMax = 5 }},
		{"zero max total", func(c *Config) { c.MaxTotalProducts = 0 }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"bad variant title mode", func(c *Config) { c.VariantTitleMode = "maybe" }},
		{"ratio out of range", func(c *Config) { c.VariantTitleRatio = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := LoadConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestClampLimit(t *testing.T) {
	config := LoadConfig()
	assert.Equal(t, config.BatchLimit, config.ClampLimit(0))
	assert.Equal(t, config.BatchLimitMin, config.ClampLimit(-3))
	assert.Equal(t, 20, config.ClampLimit(20))
	assert.Equal(t, config.BatchLimitMax, config.ClampLimit(1000))
}
