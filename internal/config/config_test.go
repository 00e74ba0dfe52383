package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/turn-chat/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, config.TransportTCP, cfg.Client.Transport)
	assert.Equal(t, "Server3000", cfg.Server.Handle)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverlaysDefinedKeys(t *testing.T) {
	path := writeConfig(t, `
[client]
host = "localhost"
port = "9999"
handle = " alice "
transport = "ws"

[log]
level = "debug"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Client.Host)
	assert.Equal(t, "9999", cfg.Client.Port)
	assert.Equal(t, "alice", cfg.Client.Handle)
	assert.Equal(t, config.TransportWebSocket, cfg.Client.Transport)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "Server3000", cfg.Server.Handle, "undefined keys keep defaults")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad transport", "[client]\ntransport = \"udp\"\n"},
		{"handle too long", "[client]\nhandle = \"abcdefghijk\"\n"},
		{"server handle with delimiter", "[server]\nhandle = \"a>b\"\n"},
		{"unknown key", "[client]\nnickname = \"alice\"\n"},
		{"malformed toml", "[client\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorContains(t, err, "config load failed")
}
