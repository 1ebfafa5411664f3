package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearServerEnv(t *testing.T) {
	for _, k := range []string{"PORT", "APP_ENV", "WIRE_CODEC", "CORS_ALLOW", "ROOM_MAX_AGE",
		"REAP_INTERVAL", "SEND_BUFFER", "MAX_MESSAGE_SIZE", "SHUTDOWN_TIMEOUT", "ADMIN_TOKEN"} {
		t.Setenv(k, "")
	}
}

func TestLoadServer_Defaults(t *testing.T) {
	clearServerEnv(t)
	cfg, err := LoadServer()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, "json", cfg.Codec)
	assert.Equal(t, []string{"*"}, cfg.CORSAllow)
	assert.Equal(t, 2*time.Hour, cfg.RoomMaxAge)
	assert.Equal(t, 30*time.Minute, cfg.ReapInterval)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.EqualValues(t, 65536, cfg.MaxMessageSize)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.IsProd())
	assert.Empty(t, cfg.AdminToken)
}

func TestLoadServer_FromEnv(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("WIRE_CODEC", "MsgPack")
	t.Setenv("CORS_ALLOW", "https://a.example, https://b.example ,")
	t.Setenv("ROOM_MAX_AGE", "90m")
	t.Setenv("REAP_INTERVAL", "1m")
	t.Setenv("ADMIN_TOKEN", "tok")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.True(t, cfg.IsProd())
	assert.Equal(t, "msgpack", cfg.Codec)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllow)
	assert.Equal(t, 90*time.Minute, cfg.RoomMaxAge)
	assert.Equal(t, time.Minute, cfg.ReapInterval)
	assert.Equal(t, "tok", cfg.AdminToken)
}

func TestLoadServer_Invalid(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("PORT", "eighty")
	t.Setenv("ROOM_MAX_AGE", "forever")
	_, err := LoadServer()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "ROOM_MAX_AGE")

	t.Setenv("PORT", "70000")
	t.Setenv("ROOM_MAX_AGE", "-1h")
	_, err = LoadServer()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "out of range")
}

func TestLoadClient_Priority(t *testing.T) {
	t.Setenv("RELAY_CODEC", "")
	t.Setenv("RELAY_URL", "wss://relay.example/ws")
	t.Setenv("STUN_SERVER", "stun:env.example:3478")
	t.Setenv("ADMIN_TOKEN", "env-token")

	cfg, err := LoadClient(Options{STUNServer: "stun:flag.example:3478", AdminToken: "flag-token"})
	require.NoError(t, err)
	assert.Equal(t, "flag-token", cfg.AdminToken)
	assert.Equal(t, "wss://relay.example/ws", cfg.RelayURL)
	assert.Equal(t, "stun:flag.example:3478", cfg.STUNServer)
	assert.Equal(t, "json", cfg.Codec)
	assert.Equal(t, "https://relay.example", cfg.HTTPBase())

	stun, turn := cfg.ICEServers()
	assert.Equal(t, []string{"stun:flag.example:3478"}, stun)
	assert.Empty(t, turn)
}

func TestLoadClient_RejectsHTTPURL(t *testing.T) {
	_, err := LoadClient(Options{RelayURL: "http://localhost:3000/ws"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestClient_HTTPBase(t *testing.T) {
	cfg, err := LoadClient(Options{RelayURL: "ws://localhost:3000/ws"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.HTTPBase())
}
