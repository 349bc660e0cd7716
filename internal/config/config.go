package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	Crypto    CryptoConfig
	Feed      FeedConfig
	Refresh   RefreshConfig
	OAuth     OAuthConfig
	Platforms PlatformsConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings. An empty Addr disables the
// feed mirror entirely.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string

	// JWTSecret guards the /api/v1 surface. When empty the API runs
	// unauthenticated, which is only sensible for local development.
	JWTSecret string //nolint:gosec // G117: JWT signing secret config
}

// CryptoConfig holds the process-wide token encryption secret.
type CryptoConfig struct {
	EncryptionSecret string //nolint:gosec // G117: token cipher secret config
}

// FeedConfig bounds the in-memory message feed.
type FeedConfig struct {
	Capacity int
}

// RefreshConfig controls the proactive token refresh sweep.
type RefreshConfig struct {
	Interval time.Duration
	Window   time.Duration
}

// OAuthConfig holds app credentials used by the token refresher.
type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	MetaAppID          string
	MetaAppSecret      string
}

// PlatformConfig is the common per-platform shape.
type PlatformConfig struct {
	Enabled bool
}

// PlatformsConfig holds per-platform credentials and flags.
type PlatformsConfig struct {
	Facebook  FacebookConfig
	Instagram InstagramConfig
	Telegram  TelegramConfig
	WhatsApp  WhatsAppConfig
	Slack     SlackConfig
	Twitter   TwitterConfig
}

// FacebookConfig holds Messenger Platform settings.
type FacebookConfig struct {
	PlatformConfig
	PageAccessToken string
	VerifyToken     string
	APIVersion      string
}

// InstagramConfig holds Instagram Messaging settings.
type InstagramConfig struct {
	PlatformConfig
	AccessToken       string
	BusinessAccountID string
	VerifyToken       string
	APIVersion        string
}

// TelegramConfig holds Telegram Bot API settings.
type TelegramConfig struct {
	PlatformConfig
	BotToken string
}

// WhatsAppConfig holds WhatsApp Cloud API settings.
type WhatsAppConfig struct {
	PlatformConfig
	PhoneNumberID string
	AccessToken   string
	VerifyToken   string
	APIVersion    string
}

// SlackConfig holds Slack Web API settings.
type SlackConfig struct {
	PlatformConfig
	BotToken      string
	SigningSecret string
}

// TwitterConfig holds Twitter API settings. Sending is not implemented (the
// DM API needs OAuth 1.0a request signing); the consumer secret answers the
// Account Activity CRC challenge on the webhook side.
type TwitterConfig struct {
	PlatformConfig
	ConsumerSecret string
}

// Load reads configuration from environment variables. Defaults are safe for
// local development only; the encryption secret has no default and must be
// set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("COURIER_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("COURIER_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("COURIER_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("COURIER_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("COURIER_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	feedCapacity, err := getEnvInt("COURIER_FEED_CAPACITY", 1000)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshInterval, err := getEnvDuration("COURIER_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshWindow, err := getEnvDuration("COURIER_REFRESH_WINDOW", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("COURIER_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("COURIER_DB_USER", "courier"),
			Password: getEnv("COURIER_DB_PASSWORD", ""),
			DBName:   getEnv("COURIER_DB_NAME", "courier_dev"),
			SSLMode:  getEnv("COURIER_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("COURIER_REDIS_ADDR", ""),
			Password: getEnv("COURIER_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Server: ServerConfig{
			Addr:         getEnv("COURIER_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  []string{getEnv("COURIER_CORS_ORIGIN", "*")},
			JWTSecret:    getEnv("COURIER_API_JWT_SECRET", ""),
		},
		Crypto: CryptoConfig{
			EncryptionSecret: getEnv("COURIER_TOKEN_ENCRYPTION_SECRET", ""),
		},
		Feed: FeedConfig{
			Capacity: feedCapacity,
		},
		Refresh: RefreshConfig{
			Interval: refreshInterval,
			Window:   refreshWindow,
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnv("COURIER_GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("COURIER_GOOGLE_CLIENT_SECRET", ""),
			MetaAppID:          getEnv("COURIER_META_APP_ID", ""),
			MetaAppSecret:      getEnv("COURIER_META_APP_SECRET", ""),
		},
		Platforms: PlatformsConfig{
			Facebook: FacebookConfig{
				PlatformConfig:  PlatformConfig{Enabled: getEnvBool("COURIER_FB_ENABLED")},
				PageAccessToken: getEnv("COURIER_FB_PAGE_ACCESS_TOKEN", ""),
				VerifyToken:     getEnv("COURIER_FB_VERIFY_TOKEN", ""),
				APIVersion:      getEnv("COURIER_FB_API_VERSION", "v18.0"),
			},
			Instagram: InstagramConfig{
				PlatformConfig:    PlatformConfig{Enabled: getEnvBool("COURIER_IG_ENABLED")},
				AccessToken:       getEnv("COURIER_IG_ACCESS_TOKEN", ""),
				BusinessAccountID: getEnv("COURIER_IG_BUSINESS_ACCOUNT_ID", ""),
				VerifyToken:       getEnv("COURIER_IG_VERIFY_TOKEN", ""),
				APIVersion:        getEnv("COURIER_IG_API_VERSION", "v18.0"),
			},
			Telegram: TelegramConfig{
				PlatformConfig: PlatformConfig{Enabled: getEnvBool("COURIER_TG_ENABLED")},
				BotToken:       getEnv("COURIER_TG_BOT_TOKEN", ""),
			},
			WhatsApp: WhatsAppConfig{
				PlatformConfig: PlatformConfig{Enabled: getEnvBool("COURIER_WA_ENABLED")},
				PhoneNumberID:  getEnv("COURIER_WA_PHONE_NUMBER_ID", ""),
				AccessToken:    getEnv("COURIER_WA_ACCESS_TOKEN", ""),
				VerifyToken:    getEnv("COURIER_WA_VERIFY_TOKEN", ""),
				APIVersion:     getEnv("COURIER_WA_API_VERSION", "v18.0"),
			},
			Slack: SlackConfig{
				PlatformConfig: PlatformConfig{Enabled: getEnvBool("COURIER_SLACK_ENABLED")},
				BotToken:       getEnv("COURIER_SLACK_BOT_TOKEN", ""),
				SigningSecret:  getEnv("COURIER_SLACK_SIGNING_SECRET", ""),
			},
			Twitter: TwitterConfig{
				PlatformConfig: PlatformConfig{Enabled: getEnvBool("COURIER_TW_ENABLED")},
				ConsumerSecret: getEnv("COURIER_TW_CONSUMER_SECRET", ""),
			},
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// The token encryption secret is required (no insecure default) and
	// must be long enough to be treated as high-entropy key material.
	if c.Crypto.EncryptionSecret == "" {
		return errors.New("COURIER_TOKEN_ENCRYPTION_SECRET is required")
	}
	if len(c.Crypto.EncryptionSecret) < 32 {
		return errors.New("COURIER_TOKEN_ENCRYPTION_SECRET must be at least 32 characters")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("COURIER_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("COURIER_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Feed.Capacity < 1 {
		return fmt.Errorf("COURIER_FEED_CAPACITY must be >= 1, got %d", c.Feed.Capacity)
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("COURIER_REFRESH_INTERVAL must be positive, got %s", c.Refresh.Interval)
	}
	if c.Refresh.Window <= 0 {
		return fmt.Errorf("COURIER_REFRESH_WINDOW must be positive, got %s", c.Refresh.Window)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("COURIER_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("COURIER_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string) bool {
	v := os.Getenv(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}
