package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "cart-service.yaml"), []byte(content), 0o600)
	require.NoError(t, err)
	return dir
}

func TestInitConfig(t *testing.T) {
	dir := writeConfig(t, `
application:
  env: development
  port: 9090
  secret_key: secret
cart:
  default_ttl: 2h
  session_ttl: 30m
services:
  product_url: http://localhost:8081
kafka:
  brokers: ["localhost:9092"]
`)

	cfg, err := InitConfig(context.Background(), "cart-service", dir)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 9090, cfg.Application.Port)
	assert.Equal(t, "secret", cfg.Application.SecretKey)
	assert.Equal(t, 2*time.Hour, cfg.Cart.DefaultTTL)
	assert.Equal(t, 30*time.Minute, cfg.Cart.SessionTTL)
	assert.Equal(t, "http://localhost:8081", cfg.Services.ProductURL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestInitConfigDefaults(t *testing.T) {
	dir := writeConfig(t, "application:\n  env: test\n")

	cfg, err := InitConfig(context.Background(), "cart-service", dir)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Application.Port)
	assert.Equal(t, time.Hour, cfg.Cart.DefaultTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cart.SessionTTL)
	assert.Equal(t, 5*time.Second, cfg.Services.ProductTimeout)
	assert.Equal(t, 30*time.Second, cfg.Services.ProxyTimeout)
	assert.Equal(t, "cart.events", cfg.Kafka.Topic)
}

func TestInitConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, "cart:\n  session_ttl: 30m\n")
	t.Setenv("CART_SESSION_TTL", "45m")

	cfg, err := InitConfig(context.Background(), "cart-service", dir)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, cfg.Cart.SessionTTL)
}

func TestInitConfigMissingFile(t *testing.T) {
	_, err := InitConfig(context.Background(), "missing-service", t.TempDir())
	assert.Error(t, err)
}

func TestInitConfigRejectsNonPositiveDurations(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		env   string
		value string
	}{
		{name: "zero cleanup interval", key: "cart.cleanup_interval", env: "CART_CLEANUP_INTERVAL", value: "0s"},
		{name: "negative session ttl", key: "cart.session_ttl", env: "CART_SESSION_TTL", value: "-1m"},
		{name: "zero proxy timeout", key: "services.proxy_timeout", env: "SERVICES_PROXY_TIMEOUT", value: "0s"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeConfig(t, "application:\n  env: test\n")
			t.Setenv(tc.env, tc.value)

			_, err := InitConfig(context.Background(), "cart-service", dir)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}
