package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	RedisAddr   string   `mapstructure:"REDIS_ADDR"`
	JWTSecret   string   `mapstructure:"JWT_SECRET"`
	JWTTTLHours int      `mapstructure:"JWT_TTL_HOURS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	TracingEnabled    bool    `mapstructure:"TRACING_ENABLED"`
	TracingEndpoint   string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRate float64 `mapstructure:"TRACING_SAMPLE_RATE"`

	SMTPHost  string `mapstructure:"SMTP_HOST"`
	SMTPPort  int    `mapstructure:"SMTP_PORT"`
	EmailUser string `mapstructure:"EMAIL_USER"`
	EmailPass string `mapstructure:"EMAIL_PASS"`

	CloudinaryCloudName    string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey       string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret    string `mapstructure:"CLOUDINARY_API_SECRET"`
	CloudinaryUploadPreset string `mapstructure:"CLOUDINARY_UPLOAD_PRESET"`

	AppointmentNumberPrefix string  `mapstructure:"APPOINTMENT_NUMBER_PREFIX"`
	InvoiceNumberPrefix     string  `mapstructure:"INVOICE_NUMBER_PREFIX"`
	ConfirmationWindowHours int     `mapstructure:"CONFIRMATION_WINDOW_HOURS"`
	DisputeWindowHours      int     `mapstructure:"DISPUTE_WINDOW_HOURS"`
	ReminderLeadHours       int     `mapstructure:"REMINDER_LEAD_HOURS"`
	AutoCancelUnconfirmed   bool    `mapstructure:"AUTO_CANCEL_UNCONFIRMED"`
	InvoiceDueDays          int     `mapstructure:"INVOICE_DUE_DAYS"`
	TaxRate                 float64 `mapstructure:"TAX_RATE"`
	LogRetentionDays        int     `mapstructure:"LOG_RETENTION_DAYS"`
	JobLockTTLMinutes       int     `mapstructure:"JOB_LOCK_TTL_MINUTES"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "REDIS_ADDR", "JWT_SECRET", "JWT_TTL_HOURS", "CORS_ORIGINS",
	"LOG_LEVEL", "LOG_FORMAT", "TRACING_ENABLED", "OTLP_ENDPOINT", "TRACING_SAMPLE_RATE",
	"SMTP_HOST", "SMTP_PORT", "EMAIL_USER", "EMAIL_PASS",
	"CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET", "CLOUDINARY_UPLOAD_PRESET",
	"APPOINTMENT_NUMBER_PREFIX", "INVOICE_NUMBER_PREFIX", "CONFIRMATION_WINDOW_HOURS", "DISPUTE_WINDOW_HOURS",
	"REMINDER_LEAD_HOURS", "AUTO_CANCEL_UNCONFIRMED", "INVOICE_DUE_DAYS", "TAX_RATE", "LOG_RETENTION_DAYS",
	"JOB_LOCK_TTL_MINUTES",
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file. Using environment variables directly.")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("JWT_TTL_HOURS", 24)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLE_RATE", 0.1)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("APPOINTMENT_NUMBER_PREFIX", "APT")
	v.SetDefault("INVOICE_NUMBER_PREFIX", "INV")
	v.SetDefault("CONFIRMATION_WINDOW_HOURS", 24)
	v.SetDefault("DISPUTE_WINDOW_HOURS", 72)
	v.SetDefault("REMINDER_LEAD_HOURS", 24)
	v.SetDefault("AUTO_CANCEL_UNCONFIRMED", true)
	v.SetDefault("INVOICE_DUE_DAYS", 14)
	v.SetDefault("TAX_RATE", 0.0)
	v.SetDefault("LOG_RETENTION_DAYS", 90)
	v.SetDefault("JOB_LOCK_TTL_MINUTES", 30)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects settings that are unsafe to serve with.
func (c *Config) Validate() error {
	var errs []string
	if c.JWTSecret == "" {
		if c.IsProduction() {
			errs = append(errs, "JWT_SECRET is required in production")
		}
	} else if len(c.JWTSecret) < 32 && c.IsProduction() {
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}
	if c.ConfirmationWindowHours <= 0 {
		errs = append(errs, "CONFIRMATION_WINDOW_HOURS must be positive")
	}
	if c.DisputeWindowHours <= 0 {
		errs = append(errs, "DISPUTE_WINDOW_HOURS must be positive")
	}
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		errs = append(errs, "TAX_RATE must be in [0, 1)")
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) ConfirmationWindow() time.Duration {
	return time.Duration(c.ConfirmationWindowHours) * time.Hour
}

func (c *Config) DisputeWindow() time.Duration {
	return time.Duration(c.DisputeWindowHours) * time.Hour
}

func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.ReminderLeadHours) * time.Hour
}

func (c *Config) InvoiceDue() time.Duration {
	return time.Duration(c.InvoiceDueDays) * 24 * time.Hour
}

func (c *Config) LogRetention() time.Duration {
	return time.Duration(c.LogRetentionDays) * 24 * time.Hour
}

func (c *Config) JobLockTTL() time.Duration {
	return time.Duration(c.JobLockTTLMinutes) * time.Minute
}

// JWTSigningKey falls back to a development key outside production.
func (c *Config) JWTSigningKey() []byte {
	if c.JWTSecret == "" {
		return []byte("dev_only_secret_key")
	}
	return []byte(c.JWTSecret)
}
