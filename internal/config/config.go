// Package config loads client settings from PHIREPASS_* environment
// variables.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/dimitrmo/phirepass-widgets/internal/protocol"
)

// Prefix is the environment variable prefix.
const Prefix = "PHIREPASS"

// WebSocketPath is the server path that accepts web clients.
const WebSocketPath = "/api/web/ws"

// LogFileName is the log file created under HomeDir.
const LogFileName = "term.log"

// Config holds everything the terminal client needs to reach a node.
type Config struct {
	ServerHost        string        `envconfig:"SERVER_HOST" default:"phirepass.io"`
	ServerPort        int           `envconfig:"SERVER_PORT" default:"443"`
	AllowInsecure     bool          `envconfig:"ALLOW_INSECURE" default:"false"`
	HeartbeatInterval time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"30s"`
	NodeID            string        `envconfig:"NODE_ID" default:""`
	Encoding          string        `envconfig:"ENCODING" default:"msgpack"`
	StrictTunnelIDs   bool          `envconfig:"STRICT_TUNNEL_IDS" default:"false"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	HomeDir           string        `envconfig:"HOME_DIR" default:""`
}

// Load reads the environment. An empty HomeDir resolves to ~/.phirepass.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.HomeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.HomeDir = filepath.Join(home, ".phirepass")
	}
	return cfg, nil
}

// Validate checks values that flags or the environment may have mangled.
func (c Config) Validate() error {
	if c.ServerHost == "" {
		return fmt.Errorf("server host is empty")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("server port %d out of range", c.ServerPort)
	}
	if _, err := protocol.ParseEncoding(c.Encoding); err != nil {
		return err
	}
	return nil
}

// WireEncoding returns the parsed Encoding setting.
func (c Config) WireEncoding() (protocol.Encoding, error) {
	return protocol.ParseEncoding(c.Encoding)
}

// Endpoint returns the websocket base URL. The port is omitted when it is the
// default for the scheme.
func (c Config) Endpoint() string {
	scheme := "wss"
	defaultPort := 443
	if c.AllowInsecure {
		scheme = "ws"
		defaultPort = 80
	}
	if c.ServerPort == defaultPort {
		return scheme + "://" + c.ServerHost
	}
	return scheme + "://" + net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// WebSocketURL returns the full URL the channel transport dials.
func (c Config) WebSocketURL() string {
	return c.Endpoint() + WebSocketPath
}

// LogFile returns the path of the client log file.
func (c Config) LogFile() string {
	return filepath.Join(c.HomeDir, LogFileName)
}
