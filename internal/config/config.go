package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogFile     string `envconfig:"LOG_FILE"`

	// Storage
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Landmark source
	ProviderType string `envconfig:"PROVIDER_TYPE" default:"faceapi"`
	FaceAPIURL   string `envconfig:"FACEAPI_URL" default:"http://localhost:5005"`
	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Detection loop
	DetectionInterval    time.Duration `envconfig:"DETECTION_INTERVAL" default:"500ms"`
	LookingAwayThreshold float64       `envconfig:"LOOKING_AWAY_THRESHOLD" default:"45"`
	ConcurrentAnalyses   bool          `envconfig:"CONCURRENT_ANALYSES" default:"false"`
	MonitorIdleTimeout   time.Duration `envconfig:"MONITOR_IDLE_TIMEOUT" default:"2m"`

	// Alerts
	AlertCooldown time.Duration `envconfig:"ALERT_COOLDOWN" default:"10s"`
	RedisURL      string        `envconfig:"REDIS_URL"`
	WebhookURL    string        `envconfig:"WEBHOOK_URL"`
	WebhookSecret string        `envconfig:"WEBHOOK_SECRET"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.DetectionInterval <= 0 {
		return errors.New("DETECTION_INTERVAL must be positive")
	}
	if c.LookingAwayThreshold <= 0 || c.LookingAwayThreshold >= 90 {
		return errors.New("LOOKING_AWAY_THRESHOLD must be between 0 and 90 degrees")
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		return errors.New("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
