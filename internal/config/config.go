package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"Ledgerly"`
		Port     int    `envconfig:"PORT" default:"8080"`
		TimeZone string `envconfig:"TIME_ZONE" default:"UTC"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"ledgerly"`
		Migrate  bool   `envconfig:"DB_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout         time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
		CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	}

	Auth struct {
		JWTSecret string `envconfig:"JWT_SECRET"`
		Issuer    string `envconfig:"JWT_ISSUER" default:"ledgerly"`
	}

	// Redis is optional. Without an address tenant locks are process-local.
	Redis struct {
		Addr      string `envconfig:"REDIS_ADDR"`
		Password  string `envconfig:"REDIS_PASSWORD"`
		DB        int    `envconfig:"REDIS_DB" default:"0"`
		KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"ledgerly:"`
	}

	// Mail is optional. Without a base URL notifications are only logged.
	Mail struct {
		BaseURL    string        `envconfig:"MAIL_BASE_URL"`
		APIKey     string        `envconfig:"MAIL_API_KEY"`
		From       string        `envconfig:"MAIL_FROM" default:"no-reply@ledgerly.local"`
		Timeout    time.Duration `envconfig:"MAIL_TIMEOUT" default:"10s"`
		RetryCount int           `envconfig:"MAIL_RETRY_COUNT" default:"2"`
	}

	// Operator is the admin identity the tui acts as. The ID keys its read
	// state on notes.
	Operator struct {
		ID   string `envconfig:"OPERATOR_ID" default:"00000000-0000-0000-0000-000000000001"`
		Name string `envconfig:"OPERATOR_NAME" default:"operator"`
	}

	Storage struct {
		Token string `envconfig:"STORAGE_TOKEN"`
	}

	Scheduler struct {
		Enabled        bool          `envconfig:"SCHEDULER_ENABLED" default:"true"`
		AutoLockDay    int           `envconfig:"AUTO_LOCK_DAY" default:"1"`
		AutoLockHour   int           `envconfig:"AUTO_LOCK_HOUR" default:"1"`
		PlanChangeHour int           `envconfig:"PLAN_CHANGE_HOUR" default:"0"`
		TickInterval   time.Duration `envconfig:"SCHEDULER_TICK" default:"1m"`
		TenantPause    time.Duration `envconfig:"TENANT_PAUSE" default:"0s"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// Location resolves App.TimeZone. Every calendar decision uses it.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", c.App.TimeZone, err)
	}

	return loc, nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.Scheduler.AutoLockDay < 1 || cfg.Scheduler.AutoLockDay > 28 {
		return nil, fmt.Errorf("AUTO_LOCK_DAY must be within 1..28, got %d", cfg.Scheduler.AutoLockDay)
	}

	if cfg.Scheduler.AutoLockHour < 0 || cfg.Scheduler.AutoLockHour > 23 {
		return nil, fmt.Errorf("AUTO_LOCK_HOUR must be within 0..23, got %d", cfg.Scheduler.AutoLockHour)
	}

	if cfg.Scheduler.PlanChangeHour < 0 || cfg.Scheduler.PlanChangeHour > 23 {
		return nil, fmt.Errorf("PLAN_CHANGE_HOUR must be within 0..23, got %d", cfg.Scheduler.PlanChangeHour)
	}

	return &cfg, nil
}
