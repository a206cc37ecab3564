// Package Config loads the server configuration from YAML, an optional .env
// file and AERO_* environment variables, in that order of precedence.
package Config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "AERO_"

type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Auth     AuthConfig     `yaml:"auth" envPrefix:"AUTH_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOGGING_"`
	Photos   PhotosConfig   `yaml:"photos" envPrefix:"PHOTOS_"`
	Jobs     JobsConfig     `yaml:"jobs" envPrefix:"JOBS_"`
	Notify   NotifyConfig   `yaml:"notify" envPrefix:"NOTIFY_"`
}

type ServerConfig struct {
	Port        int      `yaml:"port" env:"PORT"`
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS"`
	Templates   string   `yaml:"templates" env:"TEMPLATES"` // directory of HTML views
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"` // sqlite, mysql or postgres
	DSN    string `yaml:"dsn" env:"DSN"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret" env:"SECRET"`
	TokenTTL time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // text or json
	File   string `yaml:"file" env:"FILE"`     // request log, empty disables
}

type PhotosConfig struct {
	Dir     string `yaml:"dir" env:"DIR"`
	MaxSize int    `yaml:"max_size" env:"MAX_SIZE"` // longest edge in pixels
}

type JobsConfig struct {
	// ReconcileSchedule is a cron spec with a seconds field. Empty disables
	// the job.
	ReconcileSchedule string `yaml:"reconcile_schedule" env:"RECONCILE_SCHEDULE"`
}

type NotifyConfig struct {
	SlackToken     string     `yaml:"slack_token" env:"SLACK_TOKEN"`
	SlackChannel   string     `yaml:"slack_channel" env:"SLACK_CHANNEL"`
	FCMCredentials string     `yaml:"fcm_credentials" env:"FCM_CREDENTIALS"` // service account key file
	SMTP           SMTPConfig `yaml:"smtp" envPrefix:"SMTP_"`
}

// SMTPConfig mails billing notices to the office. An empty Host disables it.
type SMTPConfig struct {
	Host     string   `yaml:"host" env:"HOST"`
	Port     int      `yaml:"port" env:"PORT"`
	Username string   `yaml:"username" env:"USERNAME"`
	Password string   `yaml:"password" env:"PASSWORD"`
	From     string   `yaml:"from" env:"FROM"`
	FromName string   `yaml:"from_name" env:"FROM_NAME"`
	To       []string `yaml:"to" env:"TO"`
	TLS      bool     `yaml:"tls" env:"TLS"` // implicit TLS, usually port 465
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:        3001,
			CORSOrigins: []string{"*"},
			Templates:   "./Templates",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "aerofield.db",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "logs/requests.log",
		},
		Photos: PhotosConfig{
			Dir:     "./Photos",
			MaxSize: 1600,
		},
		Notify: NotifyConfig{
			SMTP: SMTPConfig{Port: 587, FromName: "Aerofield"},
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error. A .env file in the same directory is loaded into the process
// environment without overriding variables that are already set.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	dotenv := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return nil, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	if err := cfg.applyEnv(nil); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyEnv overlays AERO_* variables from environ, or from the process
// environment when environ is nil.
func (c *Config) applyEnv(environ map[string]string) error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: envPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse %s environment: %w", envPrefix, err)
	}
	c.Server.CORSOrigins = splitList(c.Server.CORSOrigins)
	c.Notify.SMTP.To = splitList(c.Notify.SMTP.To)
	return nil
}

// splitList trims list items and drops empty ones.
func splitList(items []string) []string {
	var out []string
	for _, part := range items {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if c.Photos.MaxSize <= 0 {
		return fmt.Errorf("photos.max_size must be positive")
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	case "mysql":
		dsn, err := mysqldriver.ParseDSN(c.Database.DSN)
		if err != nil {
			return fmt.Errorf("database.dsn: %w", err)
		}
		if !dsn.ParseTime {
			return fmt.Errorf("database.dsn: mysql requires parseTime=true")
		}
	default:
		return fmt.Errorf("database.driver %q: want sqlite, mysql or postgres", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn cannot be empty")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q: want text or json", c.Logging.Format)
	}
	if c.Notify.SlackToken != "" && c.Notify.SlackChannel == "" {
		return fmt.Errorf("notify.slack_channel is required with notify.slack_token")
	}
	if smtp := c.Notify.SMTP; smtp.Host != "" {
		if smtp.From == "" || len(smtp.To) == 0 {
			return fmt.Errorf("notify.smtp needs from and to")
		}
		if smtp.Port <= 0 || smtp.Port > 65535 {
			return fmt.Errorf("notify.smtp.port %d out of range", smtp.Port)
		}
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
