package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "5433")
		t.Setenv("APP_PORT", "9090")
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
		t.Setenv("SMTP_PORT", "2525")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "5433", cfg.DBPort)
		assert.Equal(t, "9090", cfg.AppPort)
		assert.Equal(t, "sk_test_123", cfg.StripeSecretKey)
		assert.Equal(t, 2525, cfg.SMTPPort)
		assert.True(t, cfg.IsProduction())
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("DB_PORT", "")
		t.Setenv("APP_PORT", "")
		t.Setenv("APP_ENV", "")
		t.Setenv("CURRENCY", "")
		t.Setenv("SMTP_PORT", "not-a-number")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "5432", cfg.DBPort)
		assert.Equal(t, "8080", cfg.AppPort)
		assert.Equal(t, "EUR", cfg.Currency)
		assert.Equal(t, "disable", cfg.DBSSLMode)
		assert.Equal(t, 587, cfg.SMTPPort)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("Missing DB host", func(t *testing.T) {
		t.Setenv("DB_HOST", "")
		t.Setenv("JWT_SECRET", "secret")

		cfg, err := Load()

		assert.ErrorIs(t, err, ErrMissingDBHost)
		assert.Nil(t, cfg)
	})

	t.Run("Missing JWT secret", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("JWT_SECRET", "")

		cfg, err := Load()

		assert.ErrorIs(t, err, ErrMissingJWTSecret)
		assert.Nil(t, cfg)
	})
}
