package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config/config.yaml"

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type MPWAConfig struct {
	APIKey   string        `yaml:"api_key"`
	Sender   string        `yaml:"sender"`
	Footer   string        `yaml:"footer"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	DryRun   bool          `yaml:"dry_run"`
}

type ShopifyConfig struct {
	StoreDomain string        `yaml:"store_domain"`
	AccessToken string        `yaml:"access_token"`
	APIVersion  string        `yaml:"api_version"`
	Timeout     time.Duration `yaml:"timeout"`
	Country     string        `yaml:"country"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SessionConfig struct {
	Backend       string        `yaml:"backend"` // memory | redis
	OTPTTL        time.Duration `yaml:"otp_ttl"`
	MaxAttempts   int           `yaml:"max_attempts"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	Redis         RedisConfig   `yaml:"redis"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

type KeepAliveConfig struct {
	Interval time.Duration `yaml:"interval"` // 0 выключает самопинг
	URL      string        `yaml:"url"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LogLevel  string          `yaml:"log_level"`
	MPWA      MPWAConfig      `yaml:"mpwa"`
	Shopify   ShopifyConfig   `yaml:"shopify"`
	Session   SessionConfig   `yaml:"session"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Email     EmailConfig     `yaml:"email"`
	KeepAlive KeepAliveConfig `yaml:"keepalive"`
}

func Defaults() *Config {
	cfg := &Config{LogLevel: "info"}
	cfg.Server.Port = 3000
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.MPWA.Footer = "Sent via ZapiKart.store"
	cfg.MPWA.Timeout = 10 * time.Second
	cfg.Shopify.APIVersion = "2024-10"
	cfg.Shopify.Timeout = 15 * time.Second
	cfg.Shopify.Country = "India"
	cfg.Session.Backend = "memory"
	cfg.Session.OTPTTL = 10 * time.Minute
	cfg.Session.MaxAttempts = 5
	cfg.Session.SweepInterval = time.Minute
	cfg.Email.SMTPPort = 587
	return cfg
}

// LoadConfig читает YAML (путь из CONFIG_PATH, файл необязателен), затем
// накладывает переменные окружения и валидирует результат.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	return Load(path, explicit)
}

// Load reads path; a missing file is an error only when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Defaults()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	setString(&c.LogLevel, "LOG_LEVEL")
	setInt(&c.Server.Port, "PORT", &errs)

	setString(&c.MPWA.APIKey, "MPWA_API_KEY")
	setString(&c.MPWA.Sender, "MPWA_SENDER")
	setString(&c.MPWA.Endpoint, "MPWA_ENDPOINT")
	setBool(&c.MPWA.DryRun, "MPWA_DRY_RUN", &errs)

	setString(&c.Shopify.AccessToken, "SHOPIFY_ADMIN_TOKEN")
	setString(&c.Shopify.StoreDomain, "SHOPIFY_STORE_DOMAIN")
	setString(&c.Shopify.APIVersion, "SHOPIFY_API_VERSION")

	setString(&c.Session.Backend, "SESSION_BACKEND")
	setDuration(&c.Session.OTPTTL, "OTP_TTL", &errs)
	setString(&c.Session.Redis.Addr, "REDIS_ADDR")
	setString(&c.Session.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Session.Redis.DB, "REDIS_DB", &errs)

	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	if v := env("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err))
		}
		c.Telegram.ChatID = id
	}

	setString(&c.Email.SMTPHost, "SMTP_HOST")
	setInt(&c.Email.SMTPPort, "SMTP_PORT", &errs)
	setString(&c.Email.SMTPUser, "SMTP_USER")
	setString(&c.Email.SMTPPassword, "SMTP_PASSWORD")
	setString(&c.Email.FromEmail, "SMTP_FROM")

	setDuration(&c.KeepAlive.Interval, "KEEPALIVE_INTERVAL", &errs)
	setString(&c.KeepAlive.URL, "KEEPALIVE_URL")

	return errors.Join(errs...)
}

// Validate fails fast on anything the checkout flow cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, errors.New("server.port must be positive"))
	}
	if !c.MPWA.DryRun {
		if c.MPWA.APIKey == "" {
			errs = append(errs, errors.New("MPWA_API_KEY is required"))
		}
		if c.MPWA.Sender == "" {
			errs = append(errs, errors.New("MPWA_SENDER is required"))
		}
	}
	if c.Shopify.AccessToken == "" {
		errs = append(errs, errors.New("SHOPIFY_ADMIN_TOKEN is required"))
	}
	if c.Shopify.StoreDomain == "" {
		errs = append(errs, errors.New("SHOPIFY_STORE_DOMAIN is required"))
	}
	switch strings.ToLower(c.Session.Backend) {
	case "memory":
	case "redis":
		if c.Session.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis session backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q (memory or redis)", c.Session.Backend))
	}
	if c.Session.OTPTTL <= 0 {
		errs = append(errs, errors.New("session.otp_ttl must be positive"))
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == 0) {
		errs = append(errs, errors.New("telegram needs both bot_token and chat_id"))
	}
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Helper functions for reading environment variables

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string, errs *[]error) {
	v := env(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func setBool(dst *bool, key string, errs *[]error) {
	v := env(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}

func setDuration(dst *time.Duration, key string, errs *[]error) {
	v := env(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = d
}
