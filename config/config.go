package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Taxonomy  TaxonomyConfig  `mapstructure:"taxonomy"`
	Advisor   AdvisorConfig   `mapstructure:"advisor"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig holds the product catalog location
type CatalogConfig struct {
	Source       string        `mapstructure:"source"` // path, file://, http(s):// or s3://bucket/key
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	S3           S3Config      `mapstructure:"s3"`
}

// S3Config holds credentials for s3:// catalog sources
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// TaxonomyConfig points at an optional rule-set override
type TaxonomyConfig struct {
	Path string `mapstructure:"path"` // empty = embedded default
}

// AdvisorConfig holds Gemini advisor configuration
type AdvisorConfig struct {
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
	ClientTTL         time.Duration `mapstructure:"client_ttl"`
	DefaultLanguage   string        `mapstructure:"default_language"`
	MaxImageBytes     int64         `mapstructure:"max_image_bytes"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables, an optional .env file
// and config files
func Load() (*Config, error) {
	// .env never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/halalscan/")

	// Environment variable settings: HALALSCAN_ADVISOR_TIMEOUT -> advisor.timeout
	v.SetEnvPrefix("HALALSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default so
// that AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Catalog defaults
	v.SetDefault("catalog.source", "./data/products.json")
	v.SetDefault("catalog.fetch_timeout", "10s")
	v.SetDefault("catalog.s3.region", "us-east-1")
	v.SetDefault("catalog.s3.endpoint", "")
	v.SetDefault("catalog.s3.access_key_id", "")
	v.SetDefault("catalog.s3.secret_access_key", "")
	v.SetDefault("catalog.s3.use_path_style", false)

	v.SetDefault("taxonomy.path", "")

	// Advisor defaults
	v.SetDefault("advisor.model", "gemini-2.5-flash")
	v.SetDefault("advisor.base_url", "")
	v.SetDefault("advisor.timeout", "60s")
	v.SetDefault("advisor.requests_per_minute", 15)
	v.SetDefault("advisor.burst", 5)
	v.SetDefault("advisor.client_ttl", "1h")
	v.SetDefault("advisor.default_language", "ru")
	v.SetDefault("advisor.max_image_bytes", 10<<20)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)

	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if strings.TrimSpace(config.Catalog.Source) == "" {
		return fmt.Errorf("catalog source is required (set HALALSCAN_CATALOG_SOURCE)")
	}

	if config.Catalog.FetchTimeout <= 0 {
		return fmt.Errorf("catalog fetch timeout must be positive, got: %s", config.Catalog.FetchTimeout)
	}

	if config.Advisor.Timeout <= 0 {
		return fmt.Errorf("advisor timeout must be positive, got: %s", config.Advisor.Timeout)
	}

	switch config.Advisor.DefaultLanguage {
	case "en", "ru", "ar":
	default:
		return fmt.Errorf("advisor default language must be 'en', 'ru' or 'ar', got: %s", config.Advisor.DefaultLanguage)
	}

	if config.Advisor.RequestsPerMinute <= 0 {
		return fmt.Errorf("advisor requests per minute must be positive, got: %d", config.Advisor.RequestsPerMinute)
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("per-IP rate limit must be positive, got: %d", config.RateLimit.PerIP)
	}

	switch strings.ToLower(config.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error, got: %s", config.Log.Level)
	}

	return nil
}
