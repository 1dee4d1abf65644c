package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. Values come from the
// environment (optionally seeded from a .env file by the caller).
type Config struct {
	// --- Server & Paths ---
	Env          string
	ServerAddr   string
	DataPath     string
	DatabasePath string
	FrontendURL  string

	// --- Security ---
	// JwtSecret may be empty: the server still starts, but login and every admin
	// route fail closed with a misconfiguration error.
	JwtSecret string
	TokenTTL  time.Duration

	// --- Admin bootstrap ---
	AdminEmail    string
	AdminPassword string

	Logging LoggingConfig
	SMTP    SMTPConfig
}

type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// SMTPConfig is optional; notifications are disabled when Host is empty.
type SMTPConfig struct {
	Host   string
	Port   int
	User   string
	Pass   string
	Sender string
}

// Enabled reports whether competitor notifications should be sent.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// New builds a Config from environment variables and validates it.
func New() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("server_addr", ":4000")
	v.SetDefault("data_path", "./data")
	v.SetDefault("token_ttl", "12h")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("smtp_port", 587)

	cfg := &Config{
		Env:           v.GetString("env"),
		ServerAddr:    v.GetString("server_addr"),
		DataPath:      v.GetString("data_path"),
		DatabasePath:  v.GetString("database_path"),
		FrontendURL:   strings.TrimRight(v.GetString("frontend_url"), "/"),
		JwtSecret:     v.GetString("jwt_secret"),
		TokenTTL:      v.GetDuration("token_ttl"),
		AdminEmail:    strings.TrimSpace(v.GetString("admin_email")),
		AdminPassword: v.GetString("admin_password"),
		Logging: LoggingConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		SMTP: SMTPConfig{
			Host:   v.GetString("smtp_host"),
			Port:   v.GetInt("smtp_port"),
			User:   v.GetString("smtp_user"),
			Pass:   v.GetString("smtp_pass"),
			Sender: v.GetString("smtp_sender"),
		},
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataPath, "gathering.db")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.AdminEmail == "" || c.AdminPassword == "" {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD environment variables must be set")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.FrontendURL != "" {
		if _, err := url.ParseRequestURI(c.FrontendURL); err != nil {
			return fmt.Errorf("invalid FRONTEND_URL: %w", err)
		}
	}
	if c.SMTP.Enabled() && c.SMTP.Sender == "" {
		return errors.New("SMTP_SENDER must be set when SMTP_HOST is set")
	}
	return nil
}
