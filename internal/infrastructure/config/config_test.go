package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "bankrecon", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 140, cfg.Reconciliation.MinConfidence)
	assert.Equal(t, 50, cfg.Reconciliation.MinMatchScore)
	assert.Equal(t, "TRANSFER", cfg.Reconciliation.PaymentMethod)
	assert.Equal(t, 5, cfg.Reconciliation.SuggestionLimit)
	assert.Equal(t, 24*time.Hour, cfg.Reconciliation.IdempotencyTTL)
	assert.Equal(t, "bankrecon", cfg.Telemetry.ServiceName)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RECON_DATABASE_HOST", "db.internal")
	t.Setenv("RECON_DATABASE_PASSWORD", "p@ss word")
	t.Setenv("RECON_REDIS_HOST", "cache")
	t.Setenv("RECON_RECONCILIATION_MIN_CONFIDENCE", "100")
	t.Setenv("RECON_RECONCILIATION_PAYMENT_METHOD", "CASH")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 100, cfg.Reconciliation.MinConfidence)
	assert.Equal(t, "CASH", cfg.Reconciliation.PaymentMethod)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Contains(t, cfg.Database.DSN(), "p%40ss%20word@db.internal:5432/bankrecon")
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[app]
name = "recon-test"

[reconciliation]
min_match_score = 70
similarity_threshold = 0.8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "recon-test", cfg.App.Name)
	assert.Equal(t, 70, cfg.Reconciliation.MinMatchScore)
	assert.InDelta(t, 0.8, cfg.Reconciliation.SimilarityThreshold, 1e-9)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		applyDefaults(c)
		return c
	}

	t.Run("valid defaults", func(t *testing.T) {
		assert.NoError(t, base().validate())
	})

	t.Run("unknown payment method", func(t *testing.T) {
		c := base()
		c.Reconciliation.PaymentMethod = "CHEQUE"
		assert.ErrorContains(t, c.validate(), "payment_method")
	})

	t.Run("match score above 100", func(t *testing.T) {
		c := base()
		c.Reconciliation.MinMatchScore = 101
		assert.Error(t, c.validate())
	})

	t.Run("idle conns above open conns", func(t *testing.T) {
		c := base()
		c.Database.MaxIdleConns = 50
		assert.ErrorContains(t, c.validate(), "max_idle_conns")
	})

	t.Run("production requires password and ssl", func(t *testing.T) {
		c := base()
		c.App.Env = "production"
		assert.ErrorContains(t, c.validate(), "password")

		c.Database.Password = "secret"
		assert.ErrorContains(t, c.validate(), "sslmode")

		c.Database.SSLMode = "require"
		assert.NoError(t, c.validate())
		assert.True(t, c.IsProduction())
	})
}
