// Package config loads the optional TOML configuration shared by chatclient and chatserve.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/omochice/turn-chat/pkg/protocol"
)

// Transport names accepted in configuration.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "ws"
)

// DefaultServerHandle is the handle the peer server speaks as.
const DefaultServerHandle = "Server3000"

type Config struct {
	Client ClientConfig
	Server ServerConfig
	Log    LogConfig
}

type ClientConfig struct {
	Host      string
	Port      string
	Handle    string
	Transport string
	WSPath    string
}

type ServerConfig struct {
	Addr   string
	Handle string
}

type LogConfig struct {
	Level string
}

type fileConfig struct {
	Client struct {
		Host      string `toml:"host"`
		Port      string `toml:"port"`
		Handle    string `toml:"handle"`
		Transport string `toml:"transport"`
		WSPath    string `toml:"ws_path"`
	} `toml:"client"`
	Server struct {
		Addr   string `toml:"addr"`
		Handle string `toml:"handle"`
	} `toml:"server"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Client: ClientConfig{Transport: TransportTCP},
		Server: ServerConfig{Handle: DefaultServerHandle},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over Default. Keys missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	set := func(key string, dst *string, v string) {
		if meta.IsDefined(strings.Split(key, ".")...) {
			*dst = strings.TrimSpace(v)
		}
	}
	set("client.host", &cfg.Client.Host, raw.Client.Host)
	set("client.port", &cfg.Client.Port, raw.Client.Port)
	set("client.handle", &cfg.Client.Handle, raw.Client.Handle)
	set("client.transport", &cfg.Client.Transport, raw.Client.Transport)
	set("client.ws_path", &cfg.Client.WSPath, raw.Client.WSPath)
	set("server.addr", &cfg.Server.Addr, raw.Server.Addr)
	set("server.handle", &cfg.Server.Handle, raw.Server.Handle)
	set("log.level", &cfg.Log.Level, raw.Log.Level)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that can be checked without the network.
func (c Config) Validate() error {
	switch c.Client.Transport {
	case TransportTCP, TransportWebSocket:
	default:
		return fmt.Errorf("client transport must be %q or %q, got %q", TransportTCP, TransportWebSocket, c.Client.Transport)
	}
	if c.Client.Handle != "" {
		if _, err := protocol.NewHandle(c.Client.Handle); err != nil {
			return fmt.Errorf("client handle: %w", err)
		}
	}
	if _, err := protocol.NewHandle(c.Server.Handle); err != nil {
		return fmt.Errorf("server handle: %w", err)
	}
	return nil
}
