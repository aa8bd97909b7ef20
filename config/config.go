package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Extraction modes
const (
	ModeLive      = "live"
	ModeSimulated = "simulated"
)

// Config represents the application configuration. It is built once at
// process start and passed by reference into each component; no package
// reads environment variables past this point.
type Config struct {
	// HTTP server
	ListenAddr string
	V2Enabled  bool

	// Extraction
	Mode             string
	BatchLimit       int
	BatchLimitMin    int
	BatchLimitMax    int
	MaxTotalProducts int
	DiscoveryReserve int
	Concurrency      int

	// Timeouts
	FetchTimeout  time.Duration
	NavTimeout    time.Duration
	LaunchTimeout time.Duration
	MarketTimeout time.Duration

	// Discovery bounds
	MaxSitemapDocs int
	MaxFeedPages   int
	FeedPageSize   int

	// Offer shaping
	LowStockThreshold int
	VariantTitleMode  string
	VariantTitleRatio float64

	// Market simulation
	MarketInjection bool
	BrowserEnabled  bool

	// Redis configuration (offer stream publishing, optional)
	RedisEnabled bool
	RedisAddr    string
	RedisDB      int
	RedisStream  string

	// Memcache configuration (fetch rate-limit blocking, optional)
	MemcacheEnabled bool
	MemcacheAddr    string
	FetchBlockTime  time.Duration

	// Run history
	HistoryPath     string
	HistoryLookback time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		V2Enabled:  getBoolEnv("EXTRACT_V2_ENABLED", true),

		Mode:             getEnv("EXTRACTION_MODE", ModeLive),
		BatchLimit:       getIntEnv("BATCH_LIMIT", 10),
		BatchLimitMin:    getIntEnv("BATCH_LIMIT_MIN", 1),
		BatchLimitMax:    getIntEnv("BATCH_LIMIT_MAX", 50),
		MaxTotalProducts: getIntEnv("MAX_TOTAL_PRODUCTS", 200),
		DiscoveryReserve: getIntEnv("DISCOVERY_RESERVE", 5),
		Concurrency:      getIntEnv("SCRAPE_CONCURRENCY", 3),

		FetchTimeout:  getDurationEnv("FETCH_TIMEOUT_SECONDS", 15),
		NavTimeout:    getDurationEnv("NAV_TIMEOUT_SECONDS", 30),
		LaunchTimeout: getDurationEnv("LAUNCH_TIMEOUT_SECONDS", 20),
		MarketTimeout: getDurationEnv("MARKET_TIMEOUT_SECONDS", 180),

		MaxSitemapDocs: getIntEnv("MAX_SITEMAP_DOCS", 20),
		MaxFeedPages:   getIntEnv("MAX_FEED_PAGES", 10),
		FeedPageSize:   getIntEnv("FEED_PAGE_SIZE", 250),

		LowStockThreshold: getIntEnv("LOW_STOCK_THRESHOLD", 5),
		VariantTitleMode:  getEnv("VARIANT_TITLE_MODE", "auto"),
		VariantTitleRatio: getFloatEnv("VARIANT_TITLE_RATIO", 0.2),

		MarketInjection: getBoolEnv("MARKET_INJECTION_ENABLED", true),
		BrowserEnabled:  getBoolEnv("BROWSER_ENABLED", true),

		RedisEnabled: getBoolEnv("REDIS_ENABLED", false),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:      getIntEnv("REDIS_DB", 0),
		RedisStream:  getEnv("REDIS_STREAM", "offers"),

		MemcacheEnabled: getBoolEnv("MEMCACHE_ENABLED", false),
		MemcacheAddr:    getEnv("MEMCACHE_ADDR", "localhost:11211"),
		FetchBlockTime:  getDurationEnv("FETCH_BLOCK_SECONDS", 300),

		HistoryPath:     getEnv("HISTORY_PATH", "data/run_history.jsonl"),
		HistoryLookback: getDurationEnv("HISTORY_LOOKBACK_SECONDS", 7*24*3600),

		Environment: getEnv("OFFERHARVESTER_ENVIRONMENT", "development"),
	}
}

// Validate rejects configurations no component can run with.
func (c *Config) Validate() error {
	if c.Mode != ModeLive && c.Mode != ModeSimulated {
		return fmt.Errorf("invalid extraction mode %q", c.Mode)
	}
	if c.BatchLimitMin < 1 || c.BatchLimitMax < c.BatchLimitMin {
		return fmt.Errorf("invalid batch limit bounds [%d, %d]", c.BatchLimitMin, c.BatchLimitMax)
	}
	if c.MaxTotalProducts < 1 {
		return fmt.Errorf("max total products must be positive, got %d", c.MaxTotalProducts)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	switch c.VariantTitleMode {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("invalid variant title mode %q", c.VariantTitleMode)
	}
	if c.VariantTitleRatio < 0 || c.VariantTitleRatio > 1 {
		return fmt.Errorf("variant title ratio must be within [0, 1], got %f", c.VariantTitleRatio)
	}
	return nil
}

// ClampLimit applies the configured batch limit bounds, substituting the
// default for a non-positive request.
func (c *Config) ClampLimit(limit int) int {
	if limit <= 0 {
		limit = c.BatchLimit
	}
	if limit < c.BatchLimitMin {
		return c.BatchLimitMin
	}
	if limit > c.BatchLimitMax {
		return c.BatchLimitMax
	}
	return limit
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	if parsed, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return parsed
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if parsed, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return parsed
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if parsed, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return parsed
	}
	return defaultValue
}

func getDurationEnv(key string, defaultSeconds int) time.Duration {
	seconds := getIntEnv(key, defaultSeconds)
	return time.Duration(seconds) * time.Second
}
