package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is built once at startup and handed to the components that need it.
type Config struct {
	App      App
	Database Database
	Cache    Cache
	Webhook  Webhook
	Admin    Admin
	Retry    Retry
	Mail     Mail
}

type App struct {
	Env  string `env:"APP_ENV" env-default:"prod"`
	Host string `env:"APP_HOST" env-default:"localhost"`
	Port string `env:"APP_PORT" env-default:"4000"`
}

type Database struct {
	Driver   string `env:"DB_DRIVER" env-default:"mysql"`
	Host     string `env:"DB_HOST" env-default:"127.0.0.1"`
	Port     string `env:"DB_PORT" env-default:"3306"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
}

type Cache struct {
	Host     string `env:"CACHE_HOST" env-default:"localhost"`
	Port     string `env:"CACHE_PORT" env-default:"6379"`
	Password string `env:"CACHE_PASSWORD"`
}

type Webhook struct {
	PaddleSecret       string        `env:"PADDLE_WEBHOOK_SECRET"`
	SignatureTolerance time.Duration `env:"PADDLE_SIGNATURE_TOLERANCE" env-default:"0s"`
	// RateLimit is the number of deliveries accepted per IP and minute; 0 disables the limiter.
	RateLimit int `env:"WEBHOOK_RATE_LIMIT" env-default:"600"`
}

type Admin struct {
	Emails     []string `env:"ADMIN_EMAILS" env-separator:","`
	CronSecret string   `env:"CRON_SECRET"`
}

type Retry struct {
	MaxRetries    int           `env:"RETRY_MAX_RETRIES" env-default:"5"`
	BatchSize     int           `env:"RETRY_BATCH_SIZE" env-default:"50"`
	ClaimTTL      time.Duration `env:"RETRY_CLAIM_TTL" env-default:"10m"`
	SweepInterval time.Duration `env:"RETRY_SWEEP_INTERVAL" env-default:"0s"`
}

type Mail struct {
	Host        string   `env:"SMTP_HOST"`
	Port        string   `env:"SMTP_PORT" env-default:"587"`
	Username    string   `env:"SMTP_USERNAME"`
	Password    string   `env:"SMTP_PASSWORD"`
	Sender      string   `env:"SMTP_SENDER"`
	AlertEmails []string `env:"ALERT_EMAILS" env-separator:","`
}

// Load reads the process environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Admin.Emails = normalizeEmails(c.Admin.Emails)
	c.Mail.AlertEmails = normalizeEmails(c.Mail.AlertEmails)
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Webhook.PaddleSecret = strings.TrimSpace(c.Webhook.PaddleSecret)
	c.Admin.CronSecret = strings.TrimSpace(c.Admin.CronSecret)
}

// Validate rejects configurations the pipeline cannot run with. Secrets may
// be empty in dev; the verifier then reports a configuration fault per request.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "mysql", "memory":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported", c.Database.Driver))
	}
	if !c.IsDev() {
		if c.Webhook.PaddleSecret == "" {
			errs = append(errs, errors.New("PADDLE_WEBHOOK_SECRET is required"))
		}
		if c.Admin.CronSecret == "" {
			errs = append(errs, errors.New("CRON_SECRET is required"))
		}
	}
	if c.Retry.MaxRetries < 1 || c.Retry.MaxRetries > MaxRetryLimit {
		errs = append(errs, fmt.Errorf("RETRY_MAX_RETRIES must be between 1 and %d", MaxRetryLimit))
	}
	if c.Retry.BatchSize < 1 {
		errs = append(errs, errors.New("RETRY_BATCH_SIZE must be positive"))
	}
	if c.Retry.ClaimTTL <= 0 {
		errs = append(errs, errors.New("RETRY_CLAIM_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// MaxRetryLimit matches the length of the retry backoff schedule so delays
// keep growing for every attempt.
const MaxRetryLimit = 5

func (c *Config) IsDev() bool {
	return strings.EqualFold(c.App.Env, "dev")
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.App.Host, c.App.Port)
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
