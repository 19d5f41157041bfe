package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	DB       DatabaseConfig
	Redis    RedisConfig
	Tap      TapConfig
	Worker   WorkerConfig
	Frontend FrontendConfig
	Limits   LimitsConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// TapConfig contains credentials and endpoints for the Tap Payments gateway.
type TapConfig struct {
	SecretKey     string
	BaseURL       string
	WebhookSecret string
	WebhookURL    string
	RedirectURL   string
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	ExpiryInterval     time.Duration
	ReconcileInterval  time.Duration
	ReconcileAfter     time.Duration
	ReconcileBatchSize int
}

// FrontendConfig contains URLs the API redirects browsers to after payment.
type FrontendConfig struct {
	PaymentResultURL string
}

// LimitsConfig controls plan-limit enforcement. When FailOpen is true an
// internal enforcement error lets the request through instead of blocking it;
// resource limits are best-effort and must not take core functionality down.
type LimitsConfig struct {
	FailOpen          bool
	BasicInquiryQuota int
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Tap Payments
	cfg.Tap = TapConfig{
		SecretKey:     getEnv("TAP_SECRET_KEY", ""),
		BaseURL:       getEnv("TAP_BASE_URL", ""),
		WebhookSecret: getEnv("TAP_WEBHOOK_SECRET", ""),
		WebhookURL:    getEnv("TAP_WEBHOOK_URL", ""),
		RedirectURL:   getEnv("TAP_REDIRECT_URL", ""),
	}

	// Frontend
	cfg.Frontend = FrontendConfig{
		PaymentResultURL: getEnv("FRONTEND_PAYMENT_RESULT_URL", "http://localhost:3000/subscription/result"),
	}

	// Plan limits
	cfg.Limits = LimitsConfig{
		FailOpen:          getEnvBool("PLAN_LIMITS_FAIL_OPEN", true),
		BasicInquiryQuota: getEnvInt("PLAN_BASIC_INQUIRY_QUOTA", 20),
	}

	// Workers (durations)
	var err error
	if cfg.Worker.ExpiryInterval, err = parseDurationEnv("SUBSCRIPTION_EXPIRY_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid SUBSCRIPTION_EXPIRY_INTERVAL: %w", err)
	}
	if cfg.Worker.ReconcileInterval, err = parseDurationEnv("RECONCILE_INTERVAL", "5m"); err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_INTERVAL: %w", err)
	}
	if cfg.Worker.ReconcileAfter, err = parseDurationEnv("RECONCILE_AFTER", "10m"); err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_AFTER: %w", err)
	}
	cfg.Worker.ReconcileBatchSize = getEnvInt("RECONCILE_BATCH_SIZE", 50)

	// Basic validation for DB parameters — keeps messages concise and helpful.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}
	if cfg.Tap.SecretKey == "" {
		return nil, errors.New("TAP_SECRET_KEY must be set for payment processing")
	}

	return cfg, nil
}

// Store keeps a versioned snapshot of the configuration that can be reloaded
// at runtime by an admin without restarting the process. Readers always get a
// consistent snapshot.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// Snapshot is one immutable configuration version.
type Snapshot struct {
	Version  int
	LoadedAt time.Time
	Config   *Config
}

// NewStore creates a Store seeded with the given config as version 1.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(&Snapshot{Version: 1, LoadedAt: time.Now(), Config: cfg})
	return s
}

// Current returns the latest configuration snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Reload re-reads the environment and swaps in a new snapshot. The previous
// snapshot stays valid for in-flight readers.
func (s *Store) Reload() (*Snapshot, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	prev := s.current.Load()
	next := &Snapshot{Version: prev.Version + 1, LoadedAt: time.Now(), Config: cfg}
	s.current.Store(next)
	return next, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvBool returns the value of an environment variable as a bool or a default if empty/invalid.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
