// Package config resolves service settings: defaults, then an optional .env file, then the
// process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName     string
	Env             string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// DatabaseDSN empty selects the in-memory store.
	DatabaseDSN   string
	DBAutoMigrate bool

	JWTSecret string
	Currency  string

	Razorpay Razorpay
	SMTP     SMTP
}

type Razorpay struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func Default() Config {
	return Config{
		ServiceName:     "minishop-checkout",
		Env:             "dev",
		HTTPAddr:        ":8080",
		ShutdownTimeout: 10 * time.Second,
		Currency:        "INR",
		Razorpay: Razorpay{
			BaseURL: "https://api.razorpay.com/v1",
		},
		SMTP: SMTP{
			Port: 587,
			From: "no-reply@minishop.local",
		},
	}
}

// Load reads files (".env" when none are given) without overriding variables already set,
// then applies the environment on top of Default.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	cfg, err := fromEnv(Default())
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromEnv(c Config) (Config, error) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error

	str("SERVICE_NAME", &c.ServiceName)
	str("ENV", &c.Env)
	str("HTTP_ADDR", &c.HTTPAddr)
	str("DATABASE_DSN", &c.DatabaseDSN)
	str("JWT_SECRET", &c.JWTSecret)
	str("CURRENCY", &c.Currency)
	str("RAZORPAY_KEY_ID", &c.Razorpay.KeyID)
	str("RAZORPAY_KEY_SECRET", &c.Razorpay.KeySecret)
	str("RAZORPAY_WEBHOOK_SECRET", &c.Razorpay.WebhookSecret)
	str("RAZORPAY_BASE_URL", &c.Razorpay.BaseURL)
	str("SMTP_HOST", &c.SMTP.Host)
	str("SMTP_USER", &c.SMTP.User)
	str("SMTP_PASSWORD", &c.SMTP.Password)
	str("SMTP_FROM", &c.SMTP.From)

	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DB_AUTO_MIGRATE: %w", err))
		}
		c.DBAutoMigrate = b
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SMTP_PORT: %w", err))
		}
		c.SMTP.Port = p
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err))
		}
		c.ShutdownTimeout = d
	}
	c.Currency = strings.ToUpper(c.Currency)

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// UsesDatabase reports whether the durable store is configured.
func (c Config) UsesDatabase() bool { return c.DatabaseDSN != "" }

// RazorpayEnabled reports whether gateway credentials are present.
func (c Config) RazorpayEnabled() bool {
	return c.Razorpay.KeyID != "" && c.Razorpay.KeySecret != ""
}
