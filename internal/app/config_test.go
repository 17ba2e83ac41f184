package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "0123456789abcdef0123")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.JWTAccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshTTL)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, "KE", cfg.DefaultPhoneRegion)
	assert.Equal(t, 3, cfg.MpesaRetryAttempts)
	assert.True(t, cfg.MigrateOnStart)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "short")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestMpesaConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "0123456789abcdef0123")
	t.Setenv("MPESA_SHORTCODE", "174379")
	t.Setenv("BASE_URL", "https://pos.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	mp := cfg.Mpesa()
	assert.Equal(t, "174379", mp.ShortCode)
	assert.Equal(t, "https://pos.example.com", mp.CallbackBaseURL)
	assert.Equal(t, "KE", mp.PhoneRegion)
}
