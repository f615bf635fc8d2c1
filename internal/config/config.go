package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI            string
	MongoDbName         string
	MongoConnectTimeout time.Duration

	// Redis
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	RedisConnectTimeout time.Duration

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort string

	// Marketplace rules
	PremiumPriceThreshold float64
	PremiumListingFee     float64
	FeeCurrencyCode       string

	// Payment gateway
	PaymentGatewayURL string
	PaymentGatewayKey string

	// Verification / reset
	VerificationCodeTTL time.Duration
	ResetTokenTTL       time.Duration

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string

	// AWS S3 (deliverable documents)
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string

	// App Defaults
	AppName        string
	ViewsFlushTick time.Duration

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	// Load basic string values
	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "biztech")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "3000")
	cfg.PaymentGatewayURL = getEnv("PAYMENT_GATEWAY_URL", "")
	cfg.PaymentGatewayKey = getEnv("PAYMENT_GATEWAY_KEY", "")
	cfg.FeeCurrencyCode = getEnv("FEE_CURRENCY", "AED")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@biztech.example.com")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.AppName = getEnv("APP_NAME", "BizTech")

	// Load numeric and time duration values with defaults and parsing
	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	mongoTimeoutSeconds, err := strconv.ParseInt(getEnv("MONGO_CONNECT_TIMEOUT_SECONDS", "10"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MONGO_CONNECT_TIMEOUT_SECONDS: %w", err)
	}
	cfg.MongoConnectTimeout = time.Duration(mongoTimeoutSeconds) * time.Second

	redisTimeoutSeconds, err := strconv.ParseInt(getEnv("REDIS_CONNECT_TIMEOUT_SECONDS", "5"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_CONNECT_TIMEOUT_SECONDS: %w", err)
	}
	cfg.RedisConnectTimeout = time.Duration(redisTimeoutSeconds) * time.Second

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "86400"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.PremiumPriceThreshold, err = strconv.ParseFloat(getEnv("PREMIUM_PRICE_THRESHOLD", "500000"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PREMIUM_PRICE_THRESHOLD: %w", err)
	}

	cfg.PremiumListingFee, err = strconv.ParseFloat(getEnv("PREMIUM_LISTING_FEE", "1500"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PREMIUM_LISTING_FEE: %w", err)
	}

	verificationTTLMinutes, err := strconv.ParseInt(getEnv("VERIFICATION_CODE_TTL_MINUTES", "1440"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid VERIFICATION_CODE_TTL_MINUTES: %w", err)
	}
	cfg.VerificationCodeTTL = time.Duration(verificationTTLMinutes) * time.Minute

	resetTTLMinutes, err := strconv.ParseInt(getEnv("RESET_TOKEN_TTL_MINUTES", "20"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RESET_TOKEN_TTL_MINUTES: %w", err)
	}
	cfg.ResetTokenTTL = time.Duration(resetTTLMinutes) * time.Minute

	viewsFlushSeconds, err := strconv.ParseInt(getEnv("VIEWS_FLUSH_TICK_SECONDS", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid VIEWS_FLUSH_TICK_SECONDS: %w", err)
	}
	cfg.ViewsFlushTick = time.Duration(viewsFlushSeconds) * time.Second

	// Rate Limiting
	cfg.RateLimitSoftBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_SOFT_BUCKET_SIZE", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SOFT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitSoftRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_SOFT_REFILL_RATE", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SOFT_REFILL_RATE: %w", err)
	}
	cfg.RateLimitHardBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_BUCKET_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitHardRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_REFILL_RATE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
