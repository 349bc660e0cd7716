package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEncryptionSecret = "a-very-long-operator-supplied-secret-value"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("COURIER_TOKEN_ENCRYPTION_SECRET", testEncryptionSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 1000, cfg.Feed.Capacity)
	assert.Equal(t, 15*time.Minute, cfg.Refresh.Interval)
	assert.Equal(t, 30*time.Minute, cfg.Refresh.Window)
	assert.Equal(t, "v18.0", cfg.Platforms.Facebook.APIVersion)
	assert.Equal(t, "v18.0", cfg.Platforms.Instagram.APIVersion)
	assert.Equal(t, "v18.0", cfg.Platforms.WhatsApp.APIVersion)
	assert.Empty(t, cfg.Redis.Addr)

	// All platforms disabled unless explicitly enabled.
	assert.False(t, cfg.Platforms.Facebook.Enabled)
	assert.False(t, cfg.Platforms.Telegram.Enabled)
	assert.False(t, cfg.Platforms.Slack.Enabled)
}

func TestLoad_MissingEncryptionSecret(t *testing.T) {
	cfg, err := Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COURIER_TOKEN_ENCRYPTION_SECRET")
}

func TestLoad_ShortEncryptionSecret(t *testing.T) {
	t.Setenv("COURIER_TOKEN_ENCRYPTION_SECRET", "too-short")

	cfg, err := Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_PlatformFlags(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("COURIER_TG_ENABLED", "true")
	t.Setenv("COURIER_TG_BOT_TOKEN", "123:abc")
	t.Setenv("COURIER_SLACK_ENABLED", "1")
	t.Setenv("COURIER_FB_ENABLED", "not-a-bool")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Platforms.Telegram.Enabled)
	assert.Equal(t, "123:abc", cfg.Platforms.Telegram.BotToken)
	assert.True(t, cfg.Platforms.Slack.Enabled)
	// Unparseable booleans fall back to disabled.
	assert.False(t, cfg.Platforms.Facebook.Enabled)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad db port", key: "COURIER_DB_PORT", val: "70000"},
		{name: "non-numeric port", key: "COURIER_DB_PORT", val: "abc"},
		{name: "zero max conns", key: "COURIER_DB_MAX_CONNS", val: "0"},
		{name: "zero feed capacity", key: "COURIER_FEED_CAPACITY", val: "0"},
		{name: "negative refresh interval", key: "COURIER_REFRESH_INTERVAL", val: "-5m"},
		{name: "bad duration", key: "COURIER_REFRESH_WINDOW", val: "soon"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.key, tc.val)

			cfg, err := Load()
			assert.Nil(t, cfg)
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	t.Parallel()

	db := DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", DBName: "courier", SSLMode: "require",
	}

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=courier sslmode=require", db.DSN())
}
