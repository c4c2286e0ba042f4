// Package config loads and validates the worker configuration from the
// process environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration that unmarshals from strings like "60s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full worker configuration.
type Config struct {
	// Backing store (Supabase Postgres). SupabaseURL is either a postgres://
	// connection string used verbatim, or the project https URL from which
	// the direct database host is derived together with the service role key.
	SupabaseURL        string
	SupabaseServiceKey string

	// Scheduler.
	MainLoopInterval   Duration
	MaxConcurrentTasks int
	StaggerDelay       Duration

	// Upstream.
	EbayDailyLimit int

	// Health server.
	HealthPort int

	// Notifications. Empty means notifications are silently skipped.
	SlackWebhookURL string

	LogLevel string
}

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultMainLoopInterval   = 1 * time.Second
	DefaultMaxConcurrentTasks = 3
	DefaultStaggerDelay       = 200 * time.Millisecond
	DefaultEbayDailyLimit     = 4500
	DefaultHealthPort         = 3001
)

// FromEnv builds a Config from the process environment, applying defaults
// and validating required settings.
func FromEnv() (*Config, error) {
	cfg := &Config{
		SupabaseURL:        strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseServiceKey: strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY")),
		MainLoopInterval:   Duration{DefaultMainLoopInterval},
		MaxConcurrentTasks: DefaultMaxConcurrentTasks,
		StaggerDelay:       Duration{DefaultStaggerDelay},
		EbayDailyLimit:     DefaultEbayDailyLimit,
		HealthPort:         DefaultHealthPort,
		SlackWebhookURL:    strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL")),
		LogLevel:           strings.TrimSpace(os.Getenv("LOG_LEVEL")),
	}

	if v, err := envSeconds("MAIN_LOOP_INTERVAL"); err != nil {
		return nil, err
	} else if v > 0 {
		cfg.MainLoopInterval = Duration{v}
	}
	if v, err := envInt("MAX_CONCURRENT_TASKS"); err != nil {
		return nil, err
	} else if v > 0 {
		cfg.MaxConcurrentTasks = v
	}
	if v, err := envMillis("STAGGER_DELAY"); err != nil {
		return nil, err
	} else if v > 0 {
		cfg.StaggerDelay = Duration{v}
	}
	if v, err := envInt("EBAY_DAILY_LIMIT"); err != nil {
		return nil, err
	} else if v > 0 {
		cfg.EbayDailyLimit = v
	}
	if v, err := envInt("HEALTH_PORT"); err != nil {
		return nil, err
	} else if v > 0 {
		cfg.HealthPort = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("config: SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" && !strings.HasPrefix(c.SupabaseURL, "postgres://") && !strings.HasPrefix(c.SupabaseURL, "postgresql://") {
		return fmt.Errorf("config: SUPABASE_SERVICE_ROLE_KEY is required")
	}
	if c.MainLoopInterval.Duration <= 0 {
		return fmt.Errorf("config: MAIN_LOOP_INTERVAL must be positive")
	}
	if c.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("config: MAX_CONCURRENT_TASKS must be positive")
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("config: HEALTH_PORT %d out of range", c.HealthPort)
	}
	return nil
}

// DatabaseDSN resolves the Postgres connection string for the backing store.
// A postgres:// SUPABASE_URL is used as-is; a project https URL is rewritten
// to the direct database host with the service role key as credentials.
func (c *Config) DatabaseDSN() (string, error) {
	if strings.HasPrefix(c.SupabaseURL, "postgres://") || strings.HasPrefix(c.SupabaseURL, "postgresql://") {
		return c.SupabaseURL, nil
	}

	u, err := url.Parse(c.SupabaseURL)
	if err != nil {
		return "", fmt.Errorf("config: parse SUPABASE_URL: %w", err)
	}
	ref := strings.TrimSuffix(u.Hostname(), ".supabase.co")
	if ref == "" || ref == u.Hostname() && !strings.Contains(u.Hostname(), ".") {
		return "", fmt.Errorf("config: cannot derive database host from SUPABASE_URL %q", c.SupabaseURL)
	}
	return fmt.Sprintf("postgres://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(c.SupabaseServiceKey), ref), nil
}

func envInt(name string) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid integer %q", name, raw)
	}
	return v, nil
}

func envSeconds(name string) (time.Duration, error) {
	v, err := envInt(name)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Second, nil
}

func envMillis(name string) (time.Duration, error) {
	v, err := envInt(name)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Millisecond, nil
}
