package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server contains connection settings for the Wingman backend.
type Server struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	SocketPath string `toml:"socket_path"`
}

// Transport contains tuning knobs for the push channel.
type Transport struct {
	ReconnectSeconds    int `toml:"reconnect_seconds"`
	MaxReconnectSeconds int `toml:"max_reconnect_seconds"`
	HandshakeSeconds    int `toml:"handshake_seconds"`
}

// Config is the full client configuration loaded from wingman.toml.
type Config struct {
	Server    Server    `toml:"server"`
	Transport Transport `toml:"transport"`
}

const (
	defaultHost                = "127.0.0.1"
	defaultPort                = 6568
	defaultSocketPath          = "/"
	defaultReconnectSeconds    = 1
	defaultMaxReconnectSeconds = 30
	defaultHandshakeSeconds    = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Host:       defaultHost,
			Port:       defaultPort,
			SocketPath: defaultSocketPath,
		},
		Transport: Transport{
			ReconnectSeconds:    defaultReconnectSeconds,
			MaxReconnectSeconds: defaultMaxReconnectSeconds,
			HandshakeSeconds:    defaultHandshakeSeconds,
		},
	}
}

// Load reads the configuration file at path, falling back to defaults when the
// file does not exist. Values absent from the file keep their defaults. A
// leading ~ in path is expanded to the user home directory.
func Load(path string) (Config, error) {
	cfg := Default()

	path = ExpandPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports configuration values that cannot work.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("config: server.host must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Transport.ReconnectSeconds <= 0 {
		return fmt.Errorf("config: transport.reconnect_seconds must be positive")
	}
	if c.Transport.MaxReconnectSeconds < c.Transport.ReconnectSeconds {
		return fmt.Errorf("config: transport.max_reconnect_seconds must be >= reconnect_seconds")
	}
	return nil
}

// BaseURL returns the HTTP base URL of the control API.
func (c Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// SocketURL returns the WebSocket URL of the push channel.
func (c Config) SocketURL() string {
	path := c.Server.SocketPath
	if path == "" {
		path = defaultSocketPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("ws://%s:%d%s", c.Server.Host, c.Server.Port, path)
}

// ReconnectInterval returns the base reconnect wait as a duration.
func (c Config) ReconnectInterval() time.Duration {
	return time.Duration(c.Transport.ReconnectSeconds) * time.Second
}

// MaxReconnectInterval returns the reconnect backoff cap as a duration.
func (c Config) MaxReconnectInterval() time.Duration {
	return time.Duration(c.Transport.MaxReconnectSeconds) * time.Second
}

// HandshakeTimeout returns the WebSocket handshake timeout as a duration.
func (c Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Transport.HandshakeSeconds) * time.Second
}
