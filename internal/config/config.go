package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultSessionSecret = "local-development-session-secret-change-before-deploying"

	// minWriteTimeoutCalls is how many back-to-back ERP timeouts a response
	// must survive: a delivery confirmation makes several calls per picking.
	minWriteTimeoutCalls = 4
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" env-default:":8080"`
	Env        string `env:"APP_ENV" env-default:"development"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`

	HTTP    HTTPConfig
	ERP     ERPConfig
	Session SessionConfig
	Login   LoginConfig
	Catalog CatalogConfig
	Audit   AuditConfig
}

// HTTPConfig holds the listener timeouts. WriteTimeout bounds a whole
// workflow, which chains several ERP calls, so it must exceed ERP_TIMEOUT.
type HTTPConfig struct {
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"5m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type ERPConfig struct {
	URL     string        `env:"ERP_URL" env-default:"https://www.babetteconcept.be/jsonrpc"`
	DB      string        `env:"ERP_DB" env-default:"babetteconcept"`
	Timeout time.Duration `env:"ERP_TIMEOUT" env-default:"30s"`
}

type SessionConfig struct {
	Secret     string        `env:"SESSION_SECRET" env-default:"local-development-session-secret-change-before-deploying"`
	CookieName string        `env:"SESSION_COOKIE" env-default:"babette_pos_session"`
	TTL        time.Duration `env:"SESSION_TTL" env-default:"24h"`
}

type LoginConfig struct {
	MaxAttempts   int           `env:"LOGIN_MAX_ATTEMPTS" env-default:"5"`
	Window        time.Duration `env:"LOGIN_WINDOW" env-default:"15m"`
	SweepSchedule string        `env:"LOGIN_SWEEP_SCHEDULE" env-default:"@every 5m"`
}

type CatalogConfig struct {
	AttributeCacheTTL time.Duration `env:"ATTR_CACHE_TTL" env-default:"5m"`
}

type AuditConfig struct {
	WebhookURL string        `env:"AUDIT_WEBHOOK_URL"`
	Timeout    time.Duration `env:"AUDIT_WEBHOOK_TIMEOUT" env-default:"5s"`
	MaxRetries int           `env:"AUDIT_WEBHOOK_RETRIES" env-default:"3"`
	RetryBase  time.Duration `env:"AUDIT_WEBHOOK_RETRY_BASE" env-default:"500ms"`
	RetryMax   time.Duration `env:"AUDIT_WEBHOOK_RETRY_MAX" env-default:"5s"`
	MaxEvents  int           `env:"AUDIT_MAX_EVENTS" env-default:"1000"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "" {
		c.Env = EnvDevelopment
	}
	c.ERP.URL = strings.TrimSpace(c.ERP.URL)
	c.ERP.DB = strings.TrimSpace(c.ERP.DB)
	c.Audit.WebhookURL = strings.TrimSpace(c.Audit.WebhookURL)
}

func (c Config) Validate() error {
	var errs []error
	if c.ERP.URL == "" {
		errs = append(errs, errors.New("ERP_URL is required"))
	} else if _, err := url.ParseRequestURI(c.ERP.URL); err != nil {
		errs = append(errs, fmt.Errorf("ERP_URL: %w", err))
	}
	if c.ERP.DB == "" {
		errs = append(errs, errors.New("ERP_DB is required"))
	}
	if c.ERP.Timeout <= 0 {
		errs = append(errs, errors.New("ERP_TIMEOUT must be positive"))
	}
	if c.HTTP.WriteTimeout < minWriteTimeoutCalls*c.ERP.Timeout {
		errs = append(errs, fmt.Errorf("HTTP_WRITE_TIMEOUT (%s) must be at least %d x ERP_TIMEOUT (%s)",
			c.HTTP.WriteTimeout, minWriteTimeoutCalls, c.ERP.Timeout))
	}
	if len(c.Session.Secret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 characters"))
	}
	if c.IsProduction() && c.Session.Secret == defaultSessionSecret {
		errs = append(errs, errors.New("SESSION_SECRET must be set in production"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Login.MaxAttempts <= 0 || c.Login.Window <= 0 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS and LOGIN_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// ERPLooksProduction reports whether the configured database is the live shop.
func (c Config) ERPLooksProduction() bool {
	return c.ERP.DB == "babetteconcept" || strings.Contains(strings.ToLower(c.ERP.DB), "prod")
}

// ERPHost returns the ERP hostname, or the raw URL when it cannot be parsed.
func (c Config) ERPHost() string {
	u, err := url.Parse(c.ERP.URL)
	if err != nil || u.Hostname() == "" {
		return c.ERP.URL
	}
	return u.Hostname()
}
