package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings read from the environment.
type Config struct {
	AppEnv  string
	AppPort string

	PGHost     string
	PGPort     string
	PGUser     string
	PGDB       string
	PGPassword string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	Auth AuthConfig

	GoogleClientID string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	AMQPURL string

	TaskWorkers   int
	TaskQueueSize int
}

// AuthConfig groups the token and hashing settings used by the account services.
type AuthConfig struct {
	AccessSecret           string
	RefreshSecret          string
	ResetSecret            string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	ResetTokenTTL          time.Duration
	MaxActiveRefreshTokens int
	BcryptCost             int
}

// DefaultAuthConfig returns the settings used when nothing is configured.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenTTL:         15 * time.Minute,
		RefreshTokenTTL:        7 * 24 * time.Hour,
		ResetTokenTTL:          15 * time.Minute,
		MaxActiveRefreshTokens: 15,
		BcryptCost:             10,
	}
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[Config] .env not loaded: %v", err)
	}

	auth := DefaultAuthConfig()
	auth.AccessSecret = os.Getenv("JWT_ACCESS_SECRET")
	auth.RefreshSecret = os.Getenv("JWT_REFRESH_SECRET")
	auth.ResetSecret = getEnv("JWT_RESET_SECRET", auth.AccessSecret)
	auth.AccessTokenTTL = time.Duration(getEnvInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute
	auth.RefreshTokenTTL = time.Duration(getEnvInt("REFRESH_TOKEN_TTL_HOURS", 168)) * time.Hour
	auth.ResetTokenTTL = time.Duration(getEnvInt("RESET_TOKEN_TTL_MIN", 15)) * time.Minute
	auth.MaxActiveRefreshTokens = getEnvInt("MAX_ACTIVE_REFRESH_TOKENS", 15)
	auth.BcryptCost = getEnvInt("BCRYPT_COST", 10)

	cfg := &Config{
		AppEnv:  getEnv("APP_ENV", "development"),
		AppPort: getEnv("APP_PORT", "8080"),

		PGHost:     getEnv("PG_HOST", "localhost"),
		PGPort:     getEnv("PG_PORT", "5432"),
		PGUser:     os.Getenv("PG_USER"),
		PGDB:       os.Getenv("PG_DB"),
		PGPassword: os.Getenv("PG_PASSWORD"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		Auth: auth,

		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@clubhouse.local"),

		AMQPURL: os.Getenv("AMQP_URL"),

		TaskWorkers:   getEnvInt("TASK_WORKERS", 4),
		TaskQueueSize: getEnvInt("TASK_QUEUE_SIZE", 256),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("access and refresh tokens must use different secrets")
	}
	if c.Auth.MaxActiveRefreshTokens < 1 {
		return fmt.Errorf("MAX_ACTIVE_REFRESH_TOKENS must be positive, got %d", c.Auth.MaxActiveRefreshTokens)
	}
	return nil
}

// PostgresDSN builds the connection string shared by GORM and sqlx.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDB)
}

// RedisAddr returns host:port for the Redis client. An empty REDIS_HOST
// disables the mail outbox.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[Config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
