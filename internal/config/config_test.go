package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, uint16(8080), cfg.RelayPort)
	assert.Equal(t, uint16(8085), cfg.HttpServerPort)
	assert.Equal(t, 256, cfg.WsSendBuffer)
	assert.Equal(t, int64(100<<20), cfg.WsReadLimit)
	assert.Equal(t, 30*time.Second, cfg.WsPingPeriod)
	assert.False(t, cfg.PresenceMirrorEnabled)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("RELAY_PORT", "9000")
	t.Setenv("PRESENCE_MIRROR_ENABLED", "true")
	t.Setenv("REDIS_PRESENCE_PORT", "6380")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(9000), cfg.RelayPort)
	assert.True(t, cfg.PresenceMirrorEnabled)
	assert.Equal(t, uint16(6380), cfg.RedisPresencePort)
}

func TestLoadConfigRejectsSharedPort(t *testing.T) {
	t.Setenv("RELAY_PORT", "8085")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsLowPort(t *testing.T) {
	t.Setenv("HTTP_SERVER_PORT", "80")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadClientConfig(t *testing.T) {
	t.Setenv("CHAT_USERNAME", "alice")

	cfg, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "general", cfg.Room)
	assert.Equal(t, 3*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, "ws://localhost:8080", cfg.RelayURL)
}

func TestLoadClientConfigRequiresUsername(t *testing.T) {
	t.Setenv("CHAT_USERNAME", "")

	_, err := LoadClientConfig()
	require.Error(t, err)
}
