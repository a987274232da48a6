package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Redis     RedisConfig
	S3        S3Config
	Ledger    LedgerConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxIdle  int
	MaxOpen  int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
	// PendingTTL bounds how long an unfinished claim blocks retries.
	PendingTTL time.Duration
}

// Enabled reports whether a Redis host was configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

// LedgerConfig holds the money rules of the funding engine. Amounts are
// decimal strings in major units (e.g. "1000.00").
type LedgerConfig struct {
	OverfundTolerance decimal.Decimal
	MinInvestment     decimal.Decimal
	MaxInvestment     decimal.Decimal // zero means uncapped
	MinFundingGoal    decimal.Decimal
	OperationTimeout  time.Duration
	ListingFees       map[string]decimal.Decimal // business tier -> fee
}

type SchedulerConfig struct {
	Enabled       bool
	DeadlineSweep string // cron spec for closing businesses whose funding period elapsed
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ledger, err := loadLedger()
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "investly"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxIdle:  parseInt(getEnv("DB_MAX_IDLE_CONNS", "10"), 10),
			MaxOpen:  parseInt(getEnv("DB_MAX_OPEN_CONNS", "100"), 100),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
			Issuer: getEnv("JWT_ISSUER", "investly"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", ""),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             parseInt(getEnv("REDIS_DB", "0"), 0),
			IdempotencyTTL: parseDuration(getEnv("IDEMPOTENCY_TTL", "24h"), 24*time.Hour),
			PendingTTL:     parseDuration(getEnv("IDEMPOTENCY_PENDING_TTL", "1m"), time.Minute),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "investly-verifications"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Ledger: ledger,
		Scheduler: SchedulerConfig{
			Enabled:       getEnv("SCHEDULER_ENABLED", "true") == "true",
			DeadlineSweep: getEnv("SCHEDULER_DEADLINE_SWEEP", "0 * * * *"),
		},
	}

	return config, nil
}

// DefaultLedger returns the ledger rules used when nothing is configured:
// strict no-overfund, no upper cap on a single investment.
func DefaultLedger() LedgerConfig {
	return LedgerConfig{
		OverfundTolerance: decimal.Zero,
		MinInvestment:     decimal.NewFromInt(1),
		MaxInvestment:     decimal.Zero,
		MinFundingGoal:    decimal.NewFromInt(1000),
		OperationTimeout:  5 * time.Second,
		ListingFees: map[string]decimal.Decimal{
			"basic":   decimal.RequireFromString("99.00"),
			"growth":  decimal.RequireFromString("249.00"),
			"premium": decimal.RequireFromString("499.00"),
		},
	}
}

func loadLedger() (LedgerConfig, error) {
	cfg := DefaultLedger()

	decimals := []struct {
		key    string
		target *decimal.Decimal
	}{
		{"LEDGER_OVERFUND_TOLERANCE", &cfg.OverfundTolerance},
		{"LEDGER_MIN_INVESTMENT", &cfg.MinInvestment},
		{"LEDGER_MAX_INVESTMENT", &cfg.MaxInvestment},
		{"LEDGER_MIN_FUNDING_GOAL", &cfg.MinFundingGoal},
	}
	for _, d := range decimals {
		raw := os.Getenv(d.key)
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil || value.IsNegative() {
			return cfg, fmt.Errorf("invalid %s %q", d.key, raw)
		}
		*d.target = value
	}

	cfg.OperationTimeout = parseDuration(getEnv("LEDGER_OPERATION_TIMEOUT", "5s"), 5*time.Second)

	// LISTING_FEES=basic:99.00,growth:249.00
	if raw := os.Getenv("LISTING_FEES"); raw != "" {
		fees := make(map[string]decimal.Decimal)
		for _, pair := range parseSlice(raw) {
			tier, amount, ok := strings.Cut(pair, ":")
			if !ok {
				return cfg, fmt.Errorf("invalid LISTING_FEES entry %q", pair)
			}
			fee, err := decimal.NewFromString(strings.TrimSpace(amount))
			if err != nil || fee.IsNegative() {
				return cfg, fmt.Errorf("invalid listing fee for tier %q", tier)
			}
			fees[strings.ToLower(strings.TrimSpace(tier))] = fee
		}
		cfg.ListingFees = fees
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
