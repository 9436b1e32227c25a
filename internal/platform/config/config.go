// Package config loads runtime settings from the environment (and an optional
// .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the API and notifier processes read at startup.
type Config struct {
	Env  string
	Port string

	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnLifetime time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	KafkaBrokers      []string
	NotificationTopic string

	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool
	StoragePublicURL string
	UploadMaxBytes   int64

	DefaultCurrency string

	JaegerEndpoint string

	CardGatewayKey           string
	CardGatewayBaseURL       string
	CardGatewayWebhookSecret string

	// Bootstrap administrator, created at startup when no account uses the
	// email yet.
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment with defaults applied.
func FromEnv() *Config {
	return &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("APP_PORT", "8080"),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 10),
		DBConnLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		JWTSecret: getEnv("JWT_SECRET", "dev-only-secret"),
		JWTTTL:    getDuration("JWT_TTL", 24*time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CacheTTL:      getDuration("CACHE_TTL", 5*time.Minute),

		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "jisr.notifications"),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "jisr-uploads"),
		StorageUseSSL:    getBool("STORAGE_USE_SSL", false),
		StoragePublicURL: os.Getenv("STORAGE_PUBLIC_URL"),
		UploadMaxBytes:   int64(getInt("UPLOAD_MAX_BYTES", 10<<20)),

		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "SAR"),

		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),

		CardGatewayKey:           os.Getenv("CARD_GATEWAY_API_KEY"),
		CardGatewayBaseURL:       getEnv("CARD_GATEWAY_BASE_URL", "https://sandbox.card-gateway.local"),
		CardGatewayWebhookSecret: os.Getenv("CARD_GATEWAY_WEBHOOK_SECRET"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == "dev-only-secret") {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.IsProduction() && c.CardGatewayWebhookSecret == "" {
		return fmt.Errorf("CARD_GATEWAY_WEBHOOK_SECRET must be set in production")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if c.AdminEmail != "" && len(c.AdminPassword) < 8 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters when ADMIN_EMAIL is set")
	}
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func getBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
