package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// History backends.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// ErrUnknownBackend is returned by Validate for an unsupported history backend.
var ErrUnknownBackend = errors.New("unknown history backend")

// Config holds runtime settings for the Image Studio CLI.
type Config struct {
	ServerEndpointAddr  string
	GenerateURL         string
	GenerateTimeout     time.Duration
	HistoryBackend      string
	LocalDBPath         string
	OnlineCheckInterval time.Duration
	LogLevel            string
	LogFormat           string
	DownloadDir         string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.GenerateURL = "http://127.0.0.1:8080"
	c.GenerateTimeout = 0
	c.HistoryBackend = BackendRemote
	c.LocalDBPath = "imagestudio.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "console"
	c.DownloadDir = "downloads"
}

// Validate reports settings the CLI cannot run with.
func (c *Config) Validate() error {
	switch c.HistoryBackend {
	case BackendRemote, BackendLocal:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.HistoryBackend)
	}
	if c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("online check interval must be positive, got %s", c.OnlineCheckInterval)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if given) and command-line flags. Later sources take
// precedence over earlier ones. It panics on unreadable input.
func LoadConfig() *Config {
	return load(os.Args[1:])
}

func load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
