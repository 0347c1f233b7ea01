package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/bass/internal/bass"
	"github.com/srg/bass/internal/iso"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel       string  `yaml:"log_level" default:"info"`
	ReceiveStates  int     `yaml:"receive_states" default:"2"`
	AdapterAddress string  `yaml:"adapter_address" default:"00:00:00:00:00:00"`
	EventBuffer    int     `yaml:"event_buffer" default:"64"`
	DeviceName     string  `yaml:"device_name" default:"bassd"`
	ISO            iso.QoS `yaml:"iso"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	c := &Config{}
	defaults.SetDefaults(c)
	return c
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	c := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.ReceiveStates < 1 || c.ReceiveStates > bass.MaxReceiveStates {
		return fmt.Errorf("receive_states must be within 1..%d, got %d", bass.MaxReceiveStates, c.ReceiveStates)
	}
	if _, err := bass.ParseAddress(c.AdapterAddress); err != nil {
		return fmt.Errorf("adapter_address: %w", err)
	}
	if c.EventBuffer < 1 {
		return fmt.Errorf("event_buffer must be positive, got %d", c.EventBuffer)
	}
	return nil
}

// Level returns the parsed log level, info when unset or malformed.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Adapter returns the parsed adapter address, zero when malformed.
func (c *Config) Adapter() bass.Address {
	a, _ := bass.ParseAddress(c.AdapterAddress)
	return a
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
