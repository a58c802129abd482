package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration (optional, enables shared view de-dup and change feed)
	Redis RedisConfig

	// Bearer token verification
	Auth AuthConfig

	// Object storage for uploaded images
	Storage StorageConfig

	// Article workflow settings
	Articles ArticlesConfig

	// View counting settings
	Views ViewsConfig

	// Visitor analytics settings
	Visitors VisitorsConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Enabled reports whether a Redis server is configured
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// AuthConfig holds the settings used to verify identity tokens
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	PublicURL      string
	MaxImageSize   int64 // in bytes
	MaxAvatarSize  int64 // in bytes
	ArticlesPrefix string
	AvatarsPrefix  string
}

// ArticlesConfig holds article workflow settings
type ArticlesConfig struct {
	DefaultCategory          string
	ClearPublishedAtOnRevert bool
}

// ViewsConfig holds view counting settings
type ViewsConfig struct {
	DedupTTL     time.Duration
	DedupSize    int
	PopularTTL   time.Duration
	PopularLimit int
}

// VisitorsConfig holds visitor analytics settings
type VisitorsConfig struct {
	Retention     time.Duration
	SweepInterval time.Duration
	ListLimit     int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables, after applying an optional .env file
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "newsdesk"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHANGES_CHANNEL", "newsdesk:changes"),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			JWTIssuer:   getEnv("JWT_ISSUER", "newsdesk-auth"),
			JWTAudience: getEnv("JWT_AUDIENCE", "newsdesk-api"),
		},
		Storage: StorageConfig{
			Endpoint:       getEnv("STORAGE_ENDPOINT", ""),
			Region:         getEnv("STORAGE_REGION", "us-east-1"),
			Bucket:         getEnv("STORAGE_BUCKET", "news-images"),
			AccessKey:      getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:      getEnv("STORAGE_SECRET_KEY", ""),
			PublicURL:      getEnv("STORAGE_PUBLIC_URL", ""),
			MaxImageSize:   getInt64Env("MAX_IMAGE_SIZE", 5*1024*1024),  // 5MB
			MaxAvatarSize:  getInt64Env("MAX_AVATAR_SIZE", 2*1024*1024), // 2MB
			ArticlesPrefix: getEnv("STORAGE_ARTICLES_PREFIX", "articles"),
			AvatarsPrefix:  getEnv("STORAGE_AVATARS_PREFIX", "avatars"),
		},
		Articles: ArticlesConfig{
			DefaultCategory:          getEnv("ARTICLES_DEFAULT_CATEGORY", "national"),
			ClearPublishedAtOnRevert: getBoolEnv("ARTICLES_CLEAR_PUBLISHED_AT_ON_REVERT", false),
		},
		Views: ViewsConfig{
			DedupTTL:     getDurationEnv("VIEWS_DEDUP_TTL", 12*time.Hour),
			DedupSize:    getIntEnv("VIEWS_DEDUP_SIZE", 100000),
			PopularTTL:   getDurationEnv("VIEWS_POPULAR_TTL", 30*time.Second),
			PopularLimit: getIntEnv("VIEWS_POPULAR_LIMIT", 50),
		},
		Visitors: VisitorsConfig{
			Retention:     getDurationEnv("VISITOR_RETENTION", 90*24*time.Hour),
			SweepInterval: getDurationEnv("VISITOR_SWEEP_INTERVAL", time.Hour),
			ListLimit:     getIntEnv("VISITOR_LIST_LIMIT", 500),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Articles.DefaultCategory == "" {
		return fmt.Errorf("ARTICLES_DEFAULT_CATEGORY must not be empty")
	}
	if c.Storage.MaxImageSize <= 0 || c.Storage.MaxAvatarSize <= 0 {
		return fmt.Errorf("MAX_IMAGE_SIZE and MAX_AVATAR_SIZE must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
