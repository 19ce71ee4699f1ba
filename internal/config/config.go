package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/silkgo/internal/constants"
)

// Client holds all configuration for the gateway client.
type Client struct {
	// Network
	Address      string        `yaml:"address"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Protocol
	LengthMask        uint16        `yaml:"length_mask"`
	KeepAliveInterval time.Duration `yaml:"keepalive_interval"`
	RecvQueueSize     int           `yaml:"recv_queue_size"`

	// Identity
	ClientName   string `yaml:"client_name"`
	ClientLocale byte   `yaml:"client_locale"`

	// Server list polling
	ServerListInterval time.Duration `yaml:"server_list_interval"`

	// Prometheus endpoint, empty = disabled
	MetricsAddress string `yaml:"metrics_address"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// DefaultClient returns Client config with sensible defaults.
func DefaultClient() Client {
	return Client{
		Address:            "127.0.0.1:15779",
		DialTimeout:        10 * time.Second,
		WriteTimeout:       constants.DefaultWriteTimeout,
		LengthMask:         constants.LengthMaskExtended,
		KeepAliveInterval:  constants.DefaultKeepAliveInterval,
		RecvQueueSize:      constants.DefaultRecvQueueSize,
		ClientName:         "SR_Client",
		ClientLocale:       0,
		ServerListInterval: 5 * time.Second,
		LogLevel:           "info",
	}
}

// LoadClient loads client config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks field ranges.
func (c Client) Validate() error {
	var errs []error

	if c.Address == "" {
		errs = append(errs, errors.New("address is empty"))
	}
	if c.LengthMask != constants.LengthMaskExtended && c.LengthMask != constants.LengthMaskLegacy {
		errs = append(errs, fmt.Errorf("length_mask 0x%04X: want 0x%04X or 0x%04X",
			c.LengthMask, constants.LengthMaskExtended, constants.LengthMaskLegacy))
	}
	if c.DialTimeout <= 0 {
		errs = append(errs, fmt.Errorf("dial_timeout must be positive, got %v", c.DialTimeout))
	}
	if c.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("write_timeout must not be negative, got %v", c.WriteTimeout))
	}
	if c.KeepAliveInterval <= 0 {
		errs = append(errs, fmt.Errorf("keepalive_interval must be positive, got %v", c.KeepAliveInterval))
	}
	if c.ServerListInterval <= 0 {
		errs = append(errs, fmt.Errorf("server_list_interval must be positive, got %v", c.ServerListInterval))
	}
	if c.RecvQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("recv_queue_size must be positive, got %d", c.RecvQueueSize))
	}
	if len(c.ClientName) > 0xFFFF {
		errs = append(errs, errors.New("client_name is too long"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q: want debug, info, warn or error", c.LogLevel))
	}

	return errors.Join(errs...)
}
