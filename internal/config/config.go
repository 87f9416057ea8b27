// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"classifieds-marketplace/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	// RateLimit is requests per minute per account on write endpoints; 0 disables.
	RateLimit int `yaml:"rate_limit"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	AdminRole string `yaml:"admin_role"`
}

type ListingConfig struct {
	FreeListingCap int           `yaml:"free_listing_cap"`
	Currency       string        `yaml:"currency"`
	ExpiringSoon   time.Duration `yaml:"expiring_soon"`
	Urgent         time.Duration `yaml:"urgent"`
}

type MpesaConfig struct {
	BaseURL        string `yaml:"base_url"`
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	ShortCode      string `yaml:"short_code"`
	Passkey        string `yaml:"passkey"`
	CallbackURL    string `yaml:"callback_url"`
	// CallbackSecret, when set, must arrive as the callback's ?token= value.
	CallbackSecret string `yaml:"callback_secret"`
	Sandbox        bool   `yaml:"sandbox"`
}

type PaymentConfig struct {
	Provider            string        `yaml:"provider"` // mpesa | noop
	DispatchTimeout     time.Duration `yaml:"dispatch_timeout"`
	ConfirmationTimeout time.Duration `yaml:"confirmation_timeout"`
	PollAfter           time.Duration `yaml:"poll_after"`
	Mpesa               MpesaConfig   `yaml:"mpesa"`
}

type SchedulerConfig struct {
	ExpiryCron   string `yaml:"expiry_cron"`
	ReminderCron string `yaml:"reminder_cron"`
	// ReminderWindow is how close to term end the renewal reminder goes out.
	ReminderWindow time.Duration `yaml:"reminder_window"`
	PaymentCron    string        `yaml:"payment_cron"`
	BatchSize      int           `yaml:"batch_size"`
	Window         time.Duration `yaml:"window"`
	Workers        int           `yaml:"workers"`
}

type TelegramConfig struct {
	Token      string `yaml:"token"`
	BotName    string `yaml:"bot_name"` // for t.me deep links
	Workers    int    `yaml:"workers"`
	Language   string `yaml:"language"` // en | sw
	RenewalURL string `yaml:"renewal_url"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type Config struct {
	HTTP      HTTPConfig          `yaml:"http"`
	Log       LogConfig           `yaml:"log"`
	Database  DatabaseConfig      `yaml:"database"`
	Redis     RedisConfig         `yaml:"redis"`
	Auth      AuthConfig          `yaml:"auth"`
	Listing   ListingConfig       `yaml:"listing"`
	Plans     []model.PremiumPlan `yaml:"plans"`
	Payment   PaymentConfig       `yaml:"payment"`
	Scheduler SchedulerConfig     `yaml:"scheduler"`
	Telegram  TelegramConfig      `yaml:"telegram"`
	RabbitMQ  RabbitMQConfig      `yaml:"rabbitmq"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, loads .env if present, applies
// environment overrides and defaults, then validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployment
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str(&cfg.Database.URL, "DATABASE_URL")
	str(&cfg.Redis.URL, "REDIS_URL")
	str(&cfg.Redis.Password, "REDIS_PASSWORD")
	str(&cfg.Auth.JWTSecret, "JWT_SECRET")
	str(&cfg.Payment.Provider, "PAYMENT_PROVIDER")
	str(&cfg.Payment.Mpesa.ConsumerKey, "MPESA_CONSUMER_KEY")
	str(&cfg.Payment.Mpesa.ConsumerSecret, "MPESA_CONSUMER_SECRET")
	str(&cfg.Payment.Mpesa.ShortCode, "MPESA_SHORTCODE")
	str(&cfg.Payment.Mpesa.Passkey, "MPESA_PASSKEY")
	str(&cfg.Payment.Mpesa.CallbackURL, "MPESA_CALLBACK_URL")
	str(&cfg.Payment.Mpesa.CallbackSecret, "MPESA_CALLBACK_SECRET")
	str(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	str(&cfg.RabbitMQ.URL, "RABBITMQ_URL")
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Port = p
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Auth.AdminRole == "" {
		cfg.Auth.AdminRole = "admin"
	}

	if cfg.Listing.FreeListingCap <= 0 {
		cfg.Listing.FreeListingCap = model.DefaultFreeListingCap
	}
	if cfg.Listing.Currency == "" {
		cfg.Listing.Currency = "KES"
	}
	if cfg.Listing.ExpiringSoon <= 0 {
		cfg.Listing.ExpiringSoon = model.DefaultBands.ExpiringSoon
	}
	if cfg.Listing.Urgent <= 0 {
		cfg.Listing.Urgent = model.DefaultBands.Urgent
	}
	if len(cfg.Plans) == 0 {
		cfg.Plans = append([]model.PremiumPlan(nil), model.DefaultPlans...)
	}

	if cfg.Payment.Provider == "" {
		cfg.Payment.Provider = "noop"
	}
	if cfg.Payment.DispatchTimeout <= 0 {
		cfg.Payment.DispatchTimeout = 30 * time.Second
	}
	if cfg.Payment.ConfirmationTimeout <= 0 {
		cfg.Payment.ConfirmationTimeout = 3 * time.Minute
	}
	if cfg.Payment.PollAfter <= 0 {
		cfg.Payment.PollAfter = 45 * time.Second
	}
	if cfg.Payment.Mpesa.BaseURL == "" {
		if cfg.Payment.Mpesa.Sandbox {
			cfg.Payment.Mpesa.BaseURL = "https://sandbox.safaricom.co.ke"
		} else {
			cfg.Payment.Mpesa.BaseURL = "https://api.safaricom.co.ke"
		}
	}

	if cfg.Scheduler.ExpiryCron == "" {
		cfg.Scheduler.ExpiryCron = "@every 1m"
	}
	if cfg.Scheduler.ReminderCron == "" {
		cfg.Scheduler.ReminderCron = "@every 1h"
	}
	if cfg.Scheduler.ReminderWindow <= 0 {
		cfg.Scheduler.ReminderWindow = cfg.Listing.Urgent
	}
	if cfg.Scheduler.PaymentCron == "" {
		cfg.Scheduler.PaymentCron = "@every 30s"
	}
	if cfg.Scheduler.BatchSize <= 0 {
		cfg.Scheduler.BatchSize = 200
	}
	if cfg.Scheduler.Window < 0 {
		cfg.Scheduler.Window = 0
	}
	if cfg.Scheduler.Window == 0 {
		cfg.Scheduler.Window = cfg.Listing.ExpiringSoon
	}
	if cfg.Scheduler.Workers <= 0 {
		cfg.Scheduler.Workers = 4
	}
	if cfg.Telegram.Language == "" {
		cfg.Telegram.Language = "en"
	}
	if cfg.RabbitMQ.Exchange == "" {
		cfg.RabbitMQ.Exchange = "classifieds.events"
	}
}

// Validate performs the minimal checks needed to start the service.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Listing.Urgent > c.Listing.ExpiringSoon {
		return errors.New("listing.urgent must not exceed listing.expiring_soon")
	}
	if _, err := model.NewPlanCatalog(c.Listing.Currency, c.Plans); err != nil {
		return fmt.Errorf("plans: %w", err)
	}
	if c.Payment.PollAfter >= c.Payment.ConfirmationTimeout {
		return errors.New("payment.poll_after must be shorter than payment.confirmation_timeout")
	}
	switch c.Payment.Provider {
	case "noop":
	case "mpesa":
		m := c.Payment.Mpesa
		if m.ConsumerKey == "" || m.ConsumerSecret == "" || m.ShortCode == "" || m.Passkey == "" || m.CallbackURL == "" {
			return errors.New("payment.mpesa credentials and callback_url are required")
		}
	default:
		return fmt.Errorf("unknown payment.provider %q", c.Payment.Provider)
	}
	return nil
}

// Bands returns the configured countdown thresholds.
func (c *Config) Bands() model.Bands {
	return model.Bands{ExpiringSoon: c.Listing.ExpiringSoon, Urgent: c.Listing.Urgent}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
