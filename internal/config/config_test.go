package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("RIOT_API_KEY", "RGAPI-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "euw1", cfg.RiotPlatform)
	assert.Equal(t, "europe", cfg.RiotRegion)
	assert.Equal(t, 60*time.Second, cfg.PollingInterval)
	assert.Equal(t, 120*time.Second, cfg.PendingInterval)
	assert.Equal(t, 10, cfg.PendingMaxAttempts)
	assert.Equal(t, 7*24*time.Hour, cfg.PendingMaxAge)
	assert.Empty(t, cfg.StatusAddr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing discord token",
			env:  map[string]string{"DISCORD_BOT_TOKEN": "", "RIOT_API_KEY": "key"},
		},
		{
			name: "missing riot key",
			env:  map[string]string{"DISCORD_BOT_TOKEN": "token", "RIOT_API_KEY": ""},
		},
		{
			name: "non numeric interval",
			env:  map[string]string{"DISCORD_BOT_TOKEN": "token", "RIOT_API_KEY": "key", "POLLING_INTERVAL_SECONDS": "soon"},
		},
		{
			name: "zero attempts",
			env:  map[string]string{"DISCORD_BOT_TOKEN": "token", "RIOT_API_KEY": "key", "PENDING_MAX_ATTEMPTS": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
