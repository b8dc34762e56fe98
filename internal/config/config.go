// Package config reads the server settings from the environment. A .env file
// in the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CredentialsMode selects how the credentials sign-in treats passwords
type CredentialsMode string

const (
	// CredentialsTrusted accepts any non-empty password for a known e-mail
	CredentialsTrusted CredentialsMode = "trusted"
	// CredentialsVerified checks the password against the stored bcrypt hash
	CredentialsVerified CredentialsMode = "verified"
)

const (
	DefaultPort       = "8080"
	DefaultDataPath   = "data/db.json"
	DefaultSQLitePath = "data/flight-calendar.db"
	DefaultSessionTTL = 30 * 24 * time.Hour
)

// Config holds every setting of the server process
type Config struct {
	Port string
	Env  string

	StoreDriver string
	DataPath    string
	SQLitePath  string
	DatabaseURL string

	SessionSecret   string
	SessionTTL      time.Duration
	CredentialsMode CredentialsMode

	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string

	CSRFKey string

	NATSURL     string
	NATSSubject string

	ResendAPIKey string
	MailFrom     string

	LogLevel slog.Level

	AuthRateLimit float64
	AuthRateBurst int

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable behind a proxy that overwrites them.
	TrustProxy bool
}

// Production reports whether the server runs in production mode
func (c *Config) Production() bool {
	return c.Env == "production"
}

// GoogleEnabled reports whether Google sign-in is configured
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// StoreDSN returns the location the selected store driver opens
func (c *Config) StoreDSN() string {
	switch c.StoreDriver {
	case "sqlite":
		return c.SQLitePath
	case "postgres":
		return c.DatabaseURL
	default:
		return c.DataPath
	}
}

// Load reads .env (if any) and the environment, then validates the result
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only
func FromEnv() (*Config, error) {
	c := &Config{
		Port:               env("PORT", DefaultPort),
		Env:                env("ENV", "development"),
		StoreDriver:        strings.ToLower(env("STORE_DRIVER", "file")),
		DataPath:           env("DATA_PATH", DefaultDataPath),
		SQLitePath:         env("SQLITE_PATH", DefaultSQLitePath),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		CredentialsMode:    CredentialsMode(strings.ToLower(env("CREDENTIALS_MODE", string(CredentialsTrusted)))),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectURL:   env("OAUTH_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),
		CSRFKey:            os.Getenv("CSRF_KEY"),
		NATSURL:            os.Getenv("NATS_URL"),
		NATSSubject:        env("NATS_SUBJECT", "flightcalendar.events"),
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		MailFrom:           env("MAIL_FROM", "Aeroclub <reservas@aeroclub.com>"),
	}

	var errs []error

	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}

	switch c.StoreDriver {
	case "file", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of file, sqlite, postgres", c.StoreDriver))
	}

	switch c.CredentialsMode {
	case CredentialsTrusted, CredentialsVerified:
	default:
		errs = append(errs, fmt.Errorf("CREDENTIALS_MODE %q is not one of trusted, verified", c.CredentialsMode))
	}

	ttl, err := time.ParseDuration(env("SESSION_TTL", DefaultSessionTTL.String()))
	if err != nil || ttl <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL %q is not a positive duration", os.Getenv("SESSION_TTL")))
	}
	c.SessionTTL = ttl

	if err := c.LogLevel.UnmarshalText([]byte(env("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	c.AuthRateLimit, err = strconv.ParseFloat(env("AUTH_RATE_LIMIT", "5"), 64)
	if err != nil || c.AuthRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_RATE_LIMIT %q is not a positive number", os.Getenv("AUTH_RATE_LIMIT")))
	}
	c.AuthRateBurst, err = strconv.Atoi(env("AUTH_RATE_BURST", "10"))
	if err != nil || c.AuthRateBurst <= 0 {
		errs = append(errs, fmt.Errorf("AUTH_RATE_BURST %q is not a positive integer", os.Getenv("AUTH_RATE_BURST")))
	}

	c.TrustProxy, err = strconv.ParseBool(env("TRUST_PROXY", "false"))
	if err != nil {
		errs = append(errs, fmt.Errorf("TRUST_PROXY %q is not a boolean", os.Getenv("TRUST_PROXY")))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
