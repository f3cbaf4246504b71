// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Media drivers.
const (
	MediaDriverCloudinary = "cloudinary"
	MediaDriverLocal      = "local"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port                     string `mapstructure:"PORT"`
	Env                      string `mapstructure:"APP_ENV"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	AllowedOrigins           string `mapstructure:"ALLOWED_ORIGINS"`

	// Identity: session tokens are issued by the hosted identity provider and
	// verified here with either a shared secret (HS256) or a PEM public key (RS256).
	AuthJWTSecret    string `mapstructure:"AUTH_JWT_SECRET"`
	AuthJWTPublicKey string `mapstructure:"AUTH_JWT_PUBLIC_KEY"`
	AuthIssuer       string `mapstructure:"AUTH_ISSUER"`
	AuthAudience     string `mapstructure:"AUTH_AUDIENCE"`

	MediaDriver               string `mapstructure:"MEDIA_DRIVER"`
	CloudinaryURL             string `mapstructure:"CLOUDINARY_URL"`
	CloudinaryCloudName       string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey          string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret       string `mapstructure:"CLOUDINARY_API_SECRET"`
	MediaFolder               string `mapstructure:"MEDIA_FOLDER"`
	MediaMaxWidth             int    `mapstructure:"MEDIA_MAX_WIDTH"`
	MediaMaxHeight            int    `mapstructure:"MEDIA_MAX_HEIGHT"`
	MediaQuality              string `mapstructure:"MEDIA_QUALITY"`
	MediaUploadTimeoutSeconds int    `mapstructure:"MEDIA_UPLOAD_TIMEOUT_SECONDS"`
	MediaLocalDir             string `mapstructure:"MEDIA_LOCAL_DIR"`
	MediaPublicBaseURL        string `mapstructure:"MEDIA_PUBLIC_BASE_URL"`
	ImageMaxUploadSizeMB      int    `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env vars and defaults cover everything.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	SetDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SetDefaults registers development defaults. Every key needs a default so
// AutomaticEnv overrides are visible to Unmarshal.
func SetDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "catalog")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "catalog")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")

	viper.SetDefault("AUTH_JWT_SECRET", "")
	viper.SetDefault("AUTH_JWT_PUBLIC_KEY", "")
	viper.SetDefault("AUTH_ISSUER", "")
	viper.SetDefault("AUTH_AUDIENCE", "")

	viper.SetDefault("MEDIA_DRIVER", MediaDriverLocal)
	viper.SetDefault("CLOUDINARY_URL", "")
	viper.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	viper.SetDefault("CLOUDINARY_API_KEY", "")
	viper.SetDefault("CLOUDINARY_API_SECRET", "")
	viper.SetDefault("MEDIA_FOLDER", "charlesempire-software-dashboard")
	viper.SetDefault("MEDIA_MAX_WIDTH", 800)
	viper.SetDefault("MEDIA_MAX_HEIGHT", 600)
	viper.SetDefault("MEDIA_QUALITY", "auto:good")
	viper.SetDefault("MEDIA_UPLOAD_TIMEOUT_SECONDS", 60)
	viper.SetDefault("MEDIA_LOCAL_DIR", "./uploads")
	viper.SetDefault("MEDIA_PUBLIC_BASE_URL", "/media")
	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 5)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.MediaDriver = strings.ToLower(strings.TrimSpace(c.MediaDriver))
}

// IsProduction reports whether the app runs with production rules.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// RateLimitsEnabled reports whether write rate limits apply. Local and test
// runs are never throttled.
func (c *Config) RateLimitsEnabled() bool {
	switch c.Env {
	case "", "development", "test":
		return false
	}
	return true
}

// MediaUploadTimeout is the ceiling for a single image upload.
func (c *Config) MediaUploadTimeout() time.Duration {
	return time.Duration(c.MediaUploadTimeoutSeconds) * time.Second
}

// ImageMaxUploadBytes is the largest accepted image payload.
func (c *Config) ImageMaxUploadBytes() int64 {
	return int64(c.ImageMaxUploadSizeMB) * 1024 * 1024
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.AuthJWTSecret == "" && c.AuthJWTPublicKey == "" {
		return errors.New("AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY is required")
	}
	if c.ImageMaxUploadSizeMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.MediaUploadTimeoutSeconds <= 0 {
		return errors.New("MEDIA_UPLOAD_TIMEOUT_SECONDS must be positive")
	}
	if c.MediaMaxWidth <= 0 || c.MediaMaxHeight <= 0 {
		return errors.New("MEDIA_MAX_WIDTH and MEDIA_MAX_HEIGHT must be positive")
	}
	if c.DBConnMaxLifetimeMinutes <= 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must be positive")
	}

	switch c.MediaDriver {
	case MediaDriverCloudinary:
		if c.CloudinaryURL == "" && (c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "") {
			return errors.New("cloudinary media driver requires CLOUDINARY_URL or cloud name, API key and API secret")
		}
	case MediaDriverLocal:
		if c.MediaLocalDir == "" {
			return errors.New("MEDIA_LOCAL_DIR is required for the local media driver")
		}
	default:
		return fmt.Errorf("unknown MEDIA_DRIVER %q", c.MediaDriver)
	}

	switch c.DBSchemaMode {
	case "", "hybrid", "sql", "auto":
	default:
		return fmt.Errorf("unknown DB_SCHEMA_MODE %q", c.DBSchemaMode)
	}

	// Strict checks for production
	if c.IsProduction() {
		if c.AuthJWTSecret != "" && len(c.AuthJWTSecret) < 32 {
			return errors.New("AUTH_JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.MediaDriver == MediaDriverLocal {
			log.Println("WARNING: MEDIA_DRIVER is 'local' in production. Images are stored on this host only.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if c.AuthJWTSecret != "" && len(c.AuthJWTSecret) < 32 {
		log.Println("WARNING: AUTH_JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
