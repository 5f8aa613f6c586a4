package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Market data stream
	StreamWSURL             string
	StreamSeriesPrefixes    string
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSEventBufferSize       int

	// Exchange REST API (market metadata)
	MarketAPIURL     string
	MarketAPIKey     string
	MarketAPITimeout time.Duration
	MarketCacheTTL   time.Duration

	// Scoreboard (outcome source)
	ScoreboardURL     string
	ScoreboardTimeout time.Duration
	ScoreboardLeague  string

	// Narrative summarizer
	SummarizerURL     string
	SummarizerTimeout time.Duration

	// Longshot filter
	FilterLongshotCeiling int
	FilterFavoriteFloor   int

	// Edge evaluation
	EdgeConfirmedGapPP    float64
	EdgeWeakGapPP         float64
	EdgeConfirmedSamples  int
	EdgeWeakSamples       int
	EdgeStaleHorizon      time.Duration
	StatsCategoryPattern  string

	// Sizing
	KellyCap float64

	// Review
	ReviewRiskThreshold      int
	ReviewLiquidityFloor     int
	ReviewExposureCapUSD     float64
	ReviewMediumFractionCeil float64

	// Ledger
	LedgerStartingCash float64
	LedgerMaxContracts int

	// Settlement
	SettlementSweepInterval time.Duration
	SettlementConcurrency   int

	// Circuit breaker
	BreakerEnabled         bool
	BreakerCheckInterval   time.Duration
	BreakerTradeMultiplier float64
	BreakerMinAbsolute     float64
	BreakerHysteresisRatio float64

	// Storage
	StorageMode  string // "postgres", "csv" or "console"
	CSVDataDir   string
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Stream defaults
		StreamWSURL:             getEnvOrDefault("STREAM_WS_URL", "wss://api.elections.kalshi.com/trade-api/ws/v2"),
		StreamSeriesPrefixes:    getEnvOrDefault("STREAM_SERIES_PREFIXES", "KXNBA"),
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSEventBufferSize:       getIntOrDefault("WS_EVENT_BUFFER_SIZE", 1000),

		// Market API defaults
		MarketAPIURL:     getEnvOrDefault("MARKET_API_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		MarketAPIKey:     os.Getenv("MARKET_API_KEY"),
		MarketAPITimeout: getDurationOrDefault("MARKET_API_TIMEOUT", 5*time.Second),
		MarketCacheTTL:   getDurationOrDefault("MARKET_CACHE_TTL", 1*time.Hour),

		// Scoreboard defaults
		ScoreboardURL:     getEnvOrDefault("SCOREBOARD_URL", "https://site.api.espn.com/apis/site/v2/sports/basketball/nba"),
		ScoreboardTimeout: getDurationOrDefault("SCOREBOARD_TIMEOUT", 5*time.Second),
		ScoreboardLeague:  getEnvOrDefault("SCOREBOARD_LEAGUE", "nba"),

		// Summarizer defaults (empty URL falls back to templates)
		SummarizerURL:     os.Getenv("SUMMARIZER_URL"),
		SummarizerTimeout: getDurationOrDefault("SUMMARIZER_TIMEOUT", 10*time.Second),

		// Filter defaults
		FilterLongshotCeiling: getIntOrDefault("FILTER_LONGSHOT_CEILING", 20),
		FilterFavoriteFloor:   getIntOrDefault("FILTER_FAVORITE_FLOOR", 80),

		// Edge evaluation defaults
		EdgeConfirmedGapPP:   getFloat64OrDefault("EDGE_CONFIRMED_GAP_PP", 2.0),
		EdgeWeakGapPP:        getFloat64OrDefault("EDGE_WEAK_GAP_PP", 0.8),
		EdgeConfirmedSamples: getIntOrDefault("EDGE_CONFIRMED_SAMPLES", 200),
		EdgeWeakSamples:      getIntOrDefault("EDGE_WEAK_SAMPLES", 100),
		EdgeStaleHorizon:     getDurationOrDefault("EDGE_STALE_HORIZON", 180*24*time.Hour),
		StatsCategoryPattern: getEnvOrDefault("STATS_CATEGORY_PATTERN", "KXNBAGAME-%"),

		// Sizing defaults
		KellyCap: getFloat64OrDefault("KELLY_CAP", 0.15),

		// Review defaults
		ReviewRiskThreshold:      getIntOrDefault("REVIEW_RISK_THRESHOLD", 6),
		ReviewLiquidityFloor:     getIntOrDefault("REVIEW_LIQUIDITY_FLOOR", 500),
		ReviewExposureCapUSD:     getFloat64OrDefault("REVIEW_EXPOSURE_CAP_USD", 15.0),
		ReviewMediumFractionCeil: getFloat64OrDefault("REVIEW_MEDIUM_FRACTION_CEILING", 0.10),

		// Ledger defaults
		LedgerStartingCash: getFloat64OrDefault("LEDGER_STARTING_CASH", 1000.0),
		LedgerMaxContracts: getIntOrDefault("LEDGER_MAX_CONTRACTS", 500),

		// Settlement defaults
		SettlementSweepInterval: getDurationOrDefault("SETTLEMENT_SWEEP_INTERVAL", 5*time.Minute),
		SettlementConcurrency:   getIntOrDefault("SETTLEMENT_CONCURRENCY", 4),

		// Circuit breaker defaults
		BreakerEnabled:         getBoolOrDefault("BREAKER_ENABLED", true),
		BreakerCheckInterval:   getDurationOrDefault("BREAKER_CHECK_INTERVAL", 30*time.Second),
		BreakerTradeMultiplier: getFloat64OrDefault("BREAKER_TRADE_MULTIPLIER", 3.0),
		BreakerMinAbsolute:     getFloat64OrDefault("BREAKER_MIN_ABSOLUTE", 25.0),
		BreakerHysteresisRatio: getFloat64OrDefault("BREAKER_HYSTERESIS_RATIO", 1.5),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "csv"),
		CSVDataDir:   getEnvOrDefault("CSV_DATA_DIR", "data"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "longshot"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "longshot123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "longshot"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.StreamWSURL == "" {
		return fmt.Errorf("STREAM_WS_URL cannot be empty")
	}

	if c.FilterLongshotCeiling <= 0 || c.FilterLongshotCeiling >= c.FilterFavoriteFloor {
		return fmt.Errorf("FILTER_LONGSHOT_CEILING must be positive and below FILTER_FAVORITE_FLOOR, got %d/%d",
			c.FilterLongshotCeiling, c.FilterFavoriteFloor)
	}

	if c.FilterFavoriteFloor >= 100 {
		return fmt.Errorf("FILTER_FAVORITE_FLOOR must be below 100, got %d", c.FilterFavoriteFloor)
	}

	if c.KellyCap <= 0 || c.KellyCap > 1.0 {
		return fmt.Errorf("KELLY_CAP must be between 0 and 1.0, got %f", c.KellyCap)
	}

	if c.EdgeWeakGapPP > c.EdgeConfirmedGapPP {
		return fmt.Errorf("EDGE_WEAK_GAP_PP cannot exceed EDGE_CONFIRMED_GAP_PP, got %f > %f",
			c.EdgeWeakGapPP, c.EdgeConfirmedGapPP)
	}

	if c.LedgerStartingCash <= 0 {
		return fmt.Errorf("LEDGER_STARTING_CASH must be positive, got %f", c.LedgerStartingCash)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "csv" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres', 'csv' or 'console', got %q", c.StorageMode)
	}

	return nil
}

// PostgresDSN assembles the connection string for lib/pq.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL)
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
