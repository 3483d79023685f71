package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_API_URL", "SHIPPING_PRICE", "SESSION_TTL", "CHECKOUT_IDEMPOTENCY_TTL", "CORS_ORIGINS", "CLOUDWATCH_ENABLED"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "http://localhost:5000/api", cfg.StoreAPIURL)
	assert.True(t, cfg.ShippingPrice.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.False(t, cfg.CloudWatchEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_API_URL", "https://store.example.com/api/")
	t.Setenv("SHIPPING_PRICE", "35.5")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")
	t.Setenv("CLOUDWATCH_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := Load()
	assert.Equal(t, "https://store.example.com/api", cfg.StoreAPIURL)
	assert.True(t, cfg.ShippingPrice.Equal(decimal.RequireFromString("35.5")))
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.True(t, cfg.CloudWatchEnabled)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SHIPPING_PRICE", "-5")
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("RATE_LIMIT_BURST", "0")

	cfg := Load()
	assert.True(t, cfg.ShippingPrice.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 20, cfg.RateLimitBurst)
}
