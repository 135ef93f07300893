package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode  string // Set via flag, not env
	LogLevel string
	AppName  string // Reported to MongoDB and Redis as the client name

	// Connection setup for both stores
	ConnectTimeout time.Duration

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int // 0 keeps the go-redis default

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort            string
	ServiceApiPort     string
	CorsAllowedOrigins []string // "*" allows any origin without credentials

	// Queue
	EnterpriseFeatures   bool   // Installs the SLA/priority extension
	DefaultSortMechanism string // Used when the settings store has no value
	DispatchInterval     string // asynq cron spec for the queue sweep
	DispatchMaxRetries   int    // Claim retries on transient store errors
	DispatchBatchSize    int    // Max claims per department per dispatch task

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "omnichannel")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.AppName = getEnv("APP_NAME", "omnichannel-inquiries")
	cfg.CorsAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))
	cfg.DefaultSortMechanism = getEnv("DEFAULT_SORT_MECHANISM", "Timestamp")
	cfg.DispatchInterval = getEnv("DISPATCH_INTERVAL", "@every 5s")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.RedisPoolSize, err = strconv.Atoi(getEnv("REDIS_POOL_SIZE", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_POOL_SIZE: %w", err)
	}

	connectTimeoutSeconds, err := strconv.Atoi(getEnv("CONNECT_TIMEOUT_SECONDS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONNECT_TIMEOUT_SECONDS: %w", err)
	}
	if connectTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid CONNECT_TIMEOUT_SECONDS: must be positive, got %d", connectTimeoutSeconds)
	}
	cfg.ConnectTimeout = time.Duration(connectTimeoutSeconds) * time.Second

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	cfg.EnterpriseFeatures, err = strconv.ParseBool(getEnv("ENTERPRISE_FEATURES", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENTERPRISE_FEATURES: %w", err)
	}

	cfg.DispatchMaxRetries, err = strconv.Atoi(getEnv("DISPATCH_MAX_RETRIES", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_MAX_RETRIES: %w", err)
	}

	cfg.DispatchBatchSize, err = strconv.Atoi(getEnv("DISPATCH_BATCH_SIZE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_BATCH_SIZE: %w", err)
	}
	if cfg.DispatchBatchSize <= 0 {
		return nil, fmt.Errorf("invalid DISPATCH_BATCH_SIZE: must be positive, got %d", cfg.DispatchBatchSize)
	}

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}

// splitList parses a comma separated value, dropping blank entries.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
