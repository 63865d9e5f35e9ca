package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Pipeline tuning
	Pipeline PipelineConfig

	// External collaborators
	MarketData MarketDataConfig
	Scoring    ScoringConfig
	Email      EmailConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// PipelineConfig holds tuning knobs for the analysis pipeline
type PipelineConfig struct {
	ChunkSize           int           // stocks per distributed chunk
	SequentialThreshold int           // universe size at or below which we run in-process
	BatchSize           int           // stocks per scoring batch on the sequential path
	FetchWorkers        int           // concurrent fetches inside one chunk
	TopN                int           // rows kept in the final ranking
	StoragePrefix       string        // key prefix for intermediate chunk results
	FetchDelay          time.Duration // delay between sequential-path fetches
	BatchDelay          time.Duration // delay between sequential-path scoring batches
	DispatchDelay       time.Duration // delay between successive chunk dispatches
	ChunkEstimate       time.Duration // per-chunk completion estimate
	MaxEstimate         time.Duration // ceiling on the completion estimate
}

// MarketDataConfig holds market data source configuration
type MarketDataConfig struct {
	PrimaryBaseURL    string
	AlphaVantageKey   string // secondary source is skipped entirely when empty
	AlphaVantageURL   string
	RequestTimeout    time.Duration
	SharedRateLimit   bool // rate-limit fetches through Redis across workers
	RequestsPerSecond int
}

// ScoringConfig holds scoring oracle configuration
type ScoringConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// EmailConfig holds SMTP configuration for result delivery
type EmailConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	Recipient string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Pipeline: PipelineConfig{
			ChunkSize:           getEnvAsInt("CHUNK_SIZE", 50),
			SequentialThreshold: getEnvAsInt("SEQUENTIAL_THRESHOLD", 100),
			BatchSize:           getEnvAsInt("BATCH_SIZE", 8),
			FetchWorkers:        getEnvAsInt("MAX_WORKERS", 10),
			TopN:                getEnvAsInt("TOP_N", 25),
			StoragePrefix:       getEnv("STORAGE_PREFIX", "stock-analysis/chunks"),
			FetchDelay:          getEnvAsDuration("FETCH_DELAY", "10s"),
			BatchDelay:          getEnvAsDuration("BATCH_DELAY", "3s"),
			DispatchDelay:       getEnvAsDuration("DISPATCH_DELAY", "500ms"),
			ChunkEstimate:       getEnvAsDuration("CHUNK_ESTIMATE", "30s"),
			MaxEstimate:         getEnvAsDuration("MAX_ESTIMATE", "10m"),
		},

		MarketData: MarketDataConfig{
			PrimaryBaseURL:    getEnv("MARKET_DATA_BASE_URL", "https://query1.finance.yahoo.com"),
			AlphaVantageKey:   getEnv("ALPHA_VANTAGE_API_KEY", ""),
			AlphaVantageURL:   getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co"),
			RequestTimeout:    getEnvAsDuration("MARKET_DATA_TIMEOUT", "10s"),
			SharedRateLimit:   getEnvAsBool("MARKET_DATA_SHARED_RATE_LIMIT", false),
			RequestsPerSecond: getEnvAsInt("MARKET_DATA_RPS", 10),
		},

		Scoring: ScoringConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("SCORING_BASE_URL", "https://api.openai.com"),
			Model:       getEnv("SCORING_MODEL", "gpt-4o"),
			Temperature: getEnvAsFloat("SCORING_TEMPERATURE", 0.3),
			MaxTokens:   getEnvAsInt("SCORING_MAX_TOKENS", 2000),
			Timeout:     getEnvAsDuration("SCORING_TIMEOUT", "20s"),
		},

		Email: EmailConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			From:      getEnv("SMTP_FROM", ""),
			Recipient: getEnv("EMAIL_RECIPIENT", ""),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive")
	}
	if c.Pipeline.FetchWorkers <= 0 {
		return fmt.Errorf("MAX_WORKERS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
