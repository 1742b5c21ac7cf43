package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all process-wide configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	PublicBaseURL     string `mapstructure:"PUBLIC_BASE_URL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Database. "memory" keeps everything in-process for local development.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Object storage: "s3", "cloudinary" or "memory".
	StorageDriver       string `mapstructure:"STORAGE_DRIVER"`
	S3Region            string `mapstructure:"S3_REGION"`
	S3Bucket            string `mapstructure:"S3_BUCKET"`
	S3Endpoint          string `mapstructure:"S3_ENDPOINT"`
	S3AccessKeyID       string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey   string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`

	// Email: "ses" or "log".
	MailDriver string `mapstructure:"MAIL_DRIVER"`
	MailFrom   string `mapstructure:"MAIL_FROM"`
	SESRegion  string `mapstructure:"SES_REGION"`

	// Payment gateways.
	FlutterwaveSecretKey  string `mapstructure:"FLUTTERWAVE_SECRET_KEY"`
	FlutterwaveSecretHash string `mapstructure:"FLUTTERWAVE_SECRET_HASH"`
	FlutterwaveBaseURL    string `mapstructure:"FLUTTERWAVE_BASE_URL"`
	PesapalConsumerKey    string `mapstructure:"PESAPAL_CONSUMER_KEY"`
	PesapalConsumerSecret string `mapstructure:"PESAPAL_CONSUMER_SECRET"`
	PesapalNotificationID string `mapstructure:"PESAPAL_NOTIFICATION_ID"`
	PesapalBaseURL        string `mapstructure:"PESAPAL_BASE_URL"`
	StripeKey             string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret   string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	// Workflow timings.
	VerificationTokenTTL time.Duration `mapstructure:"VERIFICATION_TOKEN_TTL"`
	PayoutSweepCron      string        `mapstructure:"PAYOUT_SWEEP_CRON"`
	StorageCleanupCron   string        `mapstructure:"STORAGE_CLEANUP_CRON"`
}

// Load reads config.yaml from the current or ./config directory, applies
// environment overrides and defaults, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "venuebook")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("STORAGE_DRIVER", "s3")
	v.SetDefault("S3_REGION", "eu-west-1")
	v.SetDefault("MAIL_DRIVER", "log")
	v.SetDefault("MAIL_FROM", "no-reply@venuebook.co.ke")
	v.SetDefault("SES_REGION", "eu-west-1")
	v.SetDefault("FLUTTERWAVE_BASE_URL", "https://api.flutterwave.com")
	v.SetDefault("PESAPAL_BASE_URL", "https://pay.pesapal.com/v3")
	v.SetDefault("VERIFICATION_TOKEN_TTL", 24*time.Hour)
	v.SetDefault("PAYOUT_SWEEP_CRON", "*/15 * * * *")
	v.SetDefault("STORAGE_CLEANUP_CRON", "0 3 * * *")

	// Unmarshal only sees env vars for keys viper already knows about.
	for _, key := range []string{
		"JWT_SECRET", "S3_BUCKET", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY",
		"CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET",
		"FLUTTERWAVE_SECRET_KEY", "FLUTTERWAVE_SECRET_HASH",
		"PESAPAL_CONSUMER_KEY", "PESAPAL_CONSUMER_SECRET", "PESAPAL_NOTIFICATION_ID",
		"STRIPE_KEY", "STRIPE_WEBHOOK_SECRET",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" && c.IsProduction() {
		return errors.New("JWT_SECRET must be set in production")
	}
	switch c.StorageDriver {
	case "s3", "cloudinary", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER: %q", c.StorageDriver)
	}
	switch c.MailDriver {
	case "ses", "log":
	default:
		return fmt.Errorf("unknown MAIL_DRIVER: %q", c.MailDriver)
	}
	if c.VerificationTokenTTL <= 0 {
		return errors.New("VERIFICATION_TOKEN_TTL must be positive")
	}
	return nil
}

// IsProduction reports whether the process runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesMemoryStore reports whether repositories should be kept in-process.
func (c *Config) UsesMemoryStore() bool {
	return c.DatabaseURL == "memory"
}
