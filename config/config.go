// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// SMTP holds outgoing mail settings. Host empty means mail is disabled.
type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
}

// Sender is the From address used for notifications.
type Sender struct {
	Address string `env:"SENDER_ADDRESS"`
	Name    string `env:"SENDER_NAME" envDefault:"Wedding Invitation"`
}

// Backup configures the S3-compatible database backup.
type Backup struct {
	Bucket          string `env:"BACKUP_BUCKET_NAME"`
	EndpointURL     string `env:"BACKUP_ENDPOINT_URL"`
	AccessKeyID     string `env:"BACKUP_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"BACKUP_SECRET_ACCESS_KEY"`
	Hour            int    `env:"BACKUP_HOUR" envDefault:"3"`
	RetentionDays   int    `env:"BACKUP_RETENTION_DAYS" envDefault:"30"`
}

// Enabled reports whether every credential needed for an upload is set.
func (b Backup) Enabled() bool {
	return b.Bucket != "" && b.EndpointURL != "" && b.AccessKeyID != "" && b.SecretAccessKey != ""
}

// Config is the server configuration.
type Config struct {
	PublicBaseURL         string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8090"`
	EncryptionKey         string        `env:"ENCRYPTION_KEY"`
	EncryptionKeyPrevious string        `env:"ENCRYPTION_KEY_PREVIOUS"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	DefaultLocale         string        `env:"DEFAULT_LOCALE" envDefault:"id"`
	Timezone              string        `env:"WEDDING_TIMEZONE" envDefault:"Asia/Jakarta"`
	NotifyEmail           string        `env:"NOTIFY_EMAIL"`
	RateLimitPublic       int           `env:"RATE_LIMIT_PUBLIC_PER_MIN" envDefault:"60"`
	RateLimitAuth         int           `env:"RATE_LIMIT_AUTH_PER_MIN" envDefault:"120"`
	GuestSessionTTL       time.Duration `env:"GUEST_SESSION_TTL" envDefault:"720h"`

	SMTP   SMTP
	Sender Sender
	Backup Backup
}

// Load parses Config and checks the values that would otherwise fail later.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	if _, err := language.Parse(cfg.DefaultLocale); err != nil {
		return Config{}, fmt.Errorf("DEFAULT_LOCALE %q: %w", cfg.DefaultLocale, err)
	}
	if cfg.Backup.Hour < 0 || cfg.Backup.Hour > 23 {
		return Config{}, fmt.Errorf("BACKUP_HOUR must be 0-23, got %d", cfg.Backup.Hour)
	}
	if cfg.GuestSessionTTL <= 0 {
		return Config{}, fmt.Errorf("GUEST_SESSION_TTL must be positive")
	}
	return cfg, nil
}

// Location resolves WEDDING_TIMEZONE.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("WEDDING_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Language is the display language used when a request names none.
func (c Config) Language() language.Tag {
	tag, err := language.Parse(c.DefaultLocale)
	if err != nil {
		return language.Indonesian
	}
	return tag
}

// MailEnabled reports whether RSVP notifications can be sent.
func (c Config) MailEnabled() bool {
	return c.SMTP.Host != "" && c.NotifyEmail != ""
}
