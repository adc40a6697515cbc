// Package config resuelve la configuración: defaults → fichero YAML → env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/markets"
)

// Config es la configuración ya resuelta del servicio.
type Config struct {
	Port string

	ImpactBaseURL string
	PageSize      int
	// Campaigns mapea campaña de Impact → mercado.
	Campaigns map[int64]string

	PATABaseURL string
	PATAToken   string

	HTTPTimeout time.Duration

	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration

	Concurrency int
	Schedule    string

	WebhookURL      string
	WebhookAttempts int

	CredentialsFile string
}

type configFile struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Impact struct {
		BaseURL   string           `yaml:"base_url"`
		PageSize  int              `yaml:"page_size"`
		Campaigns map[int64]string `yaml:"campaigns"`
	} `yaml:"impact"`
	PATA struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"pata"`
	HTTP struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"http"`
	Breaker struct {
		ConsecutiveFailures int `yaml:"consecutive_failures"`
		OpenTimeoutSeconds  int `yaml:"open_timeout_seconds"`
	} `yaml:"breaker"`
	Runner struct {
		Concurrency int    `yaml:"concurrency"`
		Schedule    string `yaml:"schedule"`
	} `yaml:"runner"`
	Webhook struct {
		URL      string `yaml:"url"`
		Attempts int    `yaml:"attempts"`
	} `yaml:"webhook"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Load resuelve la configuración. path vacío o inexistente = sólo defaults + env.
func Load(path string) (Config, error) {
	cfg := Config{
		Port:               "8080",
		PageSize:           1000,
		Campaigns:          copyCampaigns(markets.DefaultCampaigns),
		HTTPTimeout:        30 * time.Second,
		BreakerFailures:    5,
		BreakerOpenTimeout: 30 * time.Second,
		Concurrency:        1,
		WebhookAttempts:    3,
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := applyFile(&cfg, raw); err != nil {
				return Config{}, err
			}
		case errors.Is(err, os.ErrNotExist):
			// sin fichero: defaults + env
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.Port = envOrDefault("PORT", cfg.Port)
	cfg.ImpactBaseURL = envOrDefault("IMPACT_BASE_URL", cfg.ImpactBaseURL)
	cfg.PATABaseURL = envOrDefault("PATA_BASE_URL", cfg.PATABaseURL)
	cfg.PATAToken = envOrDefault("PATA_TOKEN", cfg.PATAToken)
	cfg.WebhookURL = envOrDefault("WEBHOOK_URL", cfg.WebhookURL)
	cfg.Schedule = strings.TrimSpace(envOrDefault("RECONCILE_SCHEDULE", cfg.Schedule))
	cfg.CredentialsFile = envOrDefault("CREDENTIALS_FILE", cfg.CredentialsFile)
	cfg.Concurrency = envInt("RECONCILE_CONCURRENCY", cfg.Concurrency)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Server.Port != "" {
		cfg.Port = f.Server.Port
	}
	if f.Impact.BaseURL != "" {
		cfg.ImpactBaseURL = f.Impact.BaseURL
	}
	if f.Impact.PageSize != 0 {
		cfg.PageSize = f.Impact.PageSize
	}
	if len(f.Impact.Campaigns) > 0 {
		cfg.Campaigns = copyCampaigns(f.Impact.Campaigns)
	}
	if f.PATA.BaseURL != "" {
		cfg.PATABaseURL = f.PATA.BaseURL
	}
	if f.PATA.Token != "" {
		cfg.PATAToken = f.PATA.Token
	}
	if f.HTTP.TimeoutSeconds > 0 {
		cfg.HTTPTimeout = time.Duration(f.HTTP.TimeoutSeconds) * time.Second
	}
	if f.Breaker.ConsecutiveFailures > 0 {
		cfg.BreakerFailures = uint32(f.Breaker.ConsecutiveFailures)
	}
	if f.Breaker.OpenTimeoutSeconds > 0 {
		cfg.BreakerOpenTimeout = time.Duration(f.Breaker.OpenTimeoutSeconds) * time.Second
	}
	if f.Runner.Concurrency != 0 {
		cfg.Concurrency = f.Runner.Concurrency
	}
	if f.Runner.Schedule != "" {
		cfg.Schedule = f.Runner.Schedule
	}
	if f.Webhook.URL != "" {
		cfg.WebhookURL = f.Webhook.URL
	}
	if f.Webhook.Attempts > 0 {
		cfg.WebhookAttempts = f.Webhook.Attempts
	}
	if f.CredentialsFile != "" {
		cfg.CredentialsFile = f.CredentialsFile
	}
	return nil
}

// Validate comprueba que la configuración sea usable.
func (c Config) Validate() error {
	var errs []error
	if c.ImpactBaseURL == "" {
		errs = append(errs, errors.New("IMPACT_BASE_URL is required"))
	}
	if c.PATABaseURL == "" {
		errs = append(errs, errors.New("PATA_BASE_URL is required"))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page size must be positive, got %d", c.PageSize))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if len(c.Campaigns) == 0 {
		errs = append(errs, errors.New("at least one campaign is required"))
	}
	for id, m := range c.Campaigns {
		if !markets.HasVAT(m) {
			errs = append(errs, fmt.Errorf("campaign %d: market %q has no VAT rate", id, m))
		}
	}
	return errors.Join(errs...)
}

// Markets devuelve los mercados configurados, ordenados.
func (c Config) Markets() []string {
	return markets.MarketsOf(c.Campaigns)
}

func copyCampaigns(in map[int64]string) map[int64]string {
	out := make(map[int64]string, len(in))
	for id, m := range in {
		out[id] = strings.ToUpper(strings.TrimSpace(m))
	}
	return out
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}
