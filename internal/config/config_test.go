package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://abcdefgh.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")
	t.Setenv("MAIN_LOOP_INTERVAL", "")
	t.Setenv("MAX_CONCURRENT_TASKS", "")
	t.Setenv("STAGGER_DELAY", "")
	t.Setenv("EBAY_DAILY_LIMIT", "")
	t.Setenv("HEALTH_PORT", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.MainLoopInterval.Duration)
	require.Equal(t, 3, cfg.MaxConcurrentTasks)
	require.Equal(t, 200*time.Millisecond, cfg.StaggerDelay.Duration)
	require.Equal(t, 4500, cfg.EbayDailyLimit)
	require.Equal(t, 3001, cfg.HealthPort)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SUPABASE_URL", "postgres://worker:pw@db.example.com:5432/hunter")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")
	t.Setenv("MAIN_LOOP_INTERVAL", "5")
	t.Setenv("MAX_CONCURRENT_TASKS", "8")
	t.Setenv("STAGGER_DELAY", "50")
	t.Setenv("EBAY_DAILY_LIMIT", "1000")
	t.Setenv("HEALTH_PORT", "9090")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.MainLoopInterval.Duration)
	require.Equal(t, 8, cfg.MaxConcurrentTasks)
	require.Equal(t, 50*time.Millisecond, cfg.StaggerDelay.Duration)
	require.Equal(t, 1000, cfg.EbayDailyLimit)
	require.Equal(t, 9090, cfg.HealthPort)
}

func TestFromEnvMissingRequired(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")

	_, err := FromEnv()
	require.Error(t, err)
	require.Contains(t, err.Error(), "SUPABASE_URL")
}

func TestFromEnvMissingServiceKey(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://abcdefgh.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")

	_, err := FromEnv()
	require.Error(t, err)
	require.Contains(t, err.Error(), "SUPABASE_SERVICE_ROLE_KEY")
}

func TestFromEnvBadInteger(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://abcdefgh.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")
	t.Setenv("MAX_CONCURRENT_TASKS", "three")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestDatabaseDSNPassthrough(t *testing.T) {
	cfg := &Config{SupabaseURL: "postgres://worker:pw@localhost:5432/hunter"}
	dsn, err := cfg.DatabaseDSN()
	require.NoError(t, err)
	require.Equal(t, cfg.SupabaseURL, dsn)
}

func TestDatabaseDSNDerived(t *testing.T) {
	cfg := &Config{
		SupabaseURL:        "https://abcdefgh.supabase.co",
		SupabaseServiceKey: "service-key",
	}
	dsn, err := cfg.DatabaseDSN()
	require.NoError(t, err)
	require.Contains(t, dsn, "db.abcdefgh.supabase.co:5432")
	require.Contains(t, dsn, "service-key")
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("2m")))
	require.Equal(t, 2*time.Minute, d.Duration)
	require.Error(t, d.UnmarshalText([]byte("bogus")))
}
