package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Security SecurityConfig
	Upload   UploadConfig
	Store    StoreConfig
	Report   ReportConfig
}

type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"localhost"`
	Port            int           `envconfig:"SERVER_PORT" default:"8084" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s" validate:"gt=0"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s" validate:"gt=0"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`
}

type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `envconfig:"SECURITY_RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRPS    int      `envconfig:"SECURITY_RATE_LIMIT_RPS" default:"100" validate:"gt=0"`
	RateLimitBurst  int      `envconfig:"SECURITY_RATE_LIMIT_BURST" default:"20" validate:"gt=0"`
	AllowedOrigins  []string `envconfig:"SECURITY_ALLOWED_ORIGINS" default:"http://localhost:8084"`
	TrustedProxies  []string `envconfig:"SECURITY_TRUSTED_PROXIES" default:"127.0.0.1"`
	ForceHTTPS      bool     `envconfig:"SECURITY_FORCE_HTTPS" default:"false"`
}

type UploadConfig struct {
	MaxBytes     int64         `envconfig:"UPLOAD_MAX_BYTES" default:"33554432" validate:"gt=0"`
	ParseTimeout time.Duration `envconfig:"UPLOAD_PARSE_TIMEOUT" default:"30s" validate:"gt=0"`
}

type StoreConfig struct {
	Backend    string        `envconfig:"STORE_BACKEND" default:"memory"`
	TTL        time.Duration `envconfig:"STORE_TTL" default:"30m" validate:"gt=0"`
	MaxEntries int           `envconfig:"STORE_MAX_ENTRIES" default:"64" validate:"gte=0"`
	RedisAddr  string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisDB    int           `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
}

// ReportConfig pins the year-over-year comparison. Zero years are derived
// from each dataset (latest year vs. the one before).
type ReportConfig struct {
	CurrentYear int `envconfig:"REPORT_CURRENT_YEAR" default:"0" validate:"gte=0"`
	PriorYear   int `envconfig:"REPORT_PRIOR_YEAR" default:"0" validate:"gte=0"`
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text"}
	validBackends   = []string{"memory", "redis"}
)

func Load() (*Config, error) {
	var cfg Config
	sections := []any{&cfg.Server, &cfg.Logger, &cfg.Security, &cfg.Upload, &cfg.Store, &cfg.Report}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if !slices.Contains(validBackends, c.Store.Backend) {
		return fmt.Errorf("invalid store backend %q, must be one of: %s", c.Store.Backend, strings.Join(validBackends, ", "))
	}

	if c.Store.Backend == "redis" && c.Store.RedisAddr == "" {
		return fmt.Errorf("redis address cannot be empty when the redis store is selected")
	}

	if c.Report.CurrentYear != 0 && c.Report.PriorYear != 0 && c.Report.PriorYear >= c.Report.CurrentYear {
		return fmt.Errorf("report prior year %d must be before current year %d", c.Report.PriorYear, c.Report.CurrentYear)
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
