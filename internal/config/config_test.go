package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 50, cfg.Notifications.Window)
	assert.Equal(t, 2*time.Second, cfg.Notifications.OrderedQueryTimeout)
	assert.Equal(t, 720*time.Hour, cfg.Notifications.Retention.ReadTTL)
	assert.Equal(t, 5*time.Second, cfg.Connections.SendCooldown)
	assert.Equal(t, "12345", cfg.Auth.JWTSecret)
	assert.Empty(t, cfg.Redis.Address)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("NOTIFICATIONS_WINDOW", "20")
	t.Setenv("CONNECTIONS_SEND_COOLDOWN", "0s")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 20, cfg.Notifications.Window)
	assert.Equal(t, time.Duration(0), cfg.Connections.SendCooldown)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"production without secret", map[string]string{"APP_ENV": "production"}},
		{"zero window", map[string]string{"NOTIFICATIONS_WINDOW": "0"}},
		{"negative cooldown", map[string]string{"CONNECTIONS_SEND_COOLDOWN": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(viper.New())
			assert.Error(t, err)
		})
	}
}
