package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/bass/internal/bass"
	"github.com/srg/bass/internal/iso"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, bass.DefaultReceiveStates, cfg.ReceiveStates)
	assert.Equal(t, "00:00:00:00:00:00", cfg.AdapterAddress)
	assert.Equal(t, 64, cfg.EventBuffer)
	assert.Equal(t, "bassd", cfg.DeviceName)
	assert.Equal(t, iso.DefaultQoS(), cfg.ISO, "ISO defaults MUST match the broadcast sink QoS")
	assert.NoError(t, cfg.Validate())
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     logrus.Level
	}{
		{name: "creates logger with debug level", logLevel: "debug", want: logrus.DebugLevel},
		{name: "creates logger with info level", logLevel: "info", want: logrus.InfoLevel},
		{name: "creates logger with warn level", logLevel: "warn", want: logrus.WarnLevel},
		{name: "falls back to info on garbage", logLevel: "chatty", want: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}

			logger := cfg.NewLogger()

			assert.NotNil(t, logger)
			assert.Equal(t, tt.want, logger.GetLevel())

			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			assert.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "max slots", mutate: func(c *Config) { c.ReceiveStates = 255 }},
		{name: "zero slots", mutate: func(c *Config) { c.ReceiveStates = 0 }, wantErr: "receive_states"},
		{name: "too many slots", mutate: func(c *Config) { c.ReceiveStates = 256 }, wantErr: "receive_states"},
		{name: "bad address", mutate: func(c *Config) { c.AdapterAddress = "00:11" }, wantErr: "adapter_address"},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "not a valid logrus Level"},
		{name: "no event buffer", mutate: func(c *Config) { c.EventBuffer = 0 }, wantErr: "event_buffer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("overrides defaults", func(t *testing.T) {
		path := filepath.Join(dir, "bassd.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
receive_states: 4
adapter_address: "00:1A:7D:DA:71:13"
iso:
  sdu: 120
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, logrus.DebugLevel, cfg.Level())
		assert.Equal(t, 4, cfg.ReceiveStates)
		assert.Equal(t, bass.MustParseAddress("00:1A:7D:DA:71:13"), cfg.Adapter())
		assert.Equal(t, uint16(120), cfg.ISO.SDU)
		assert.Equal(t, uint32(10000), cfg.ISO.Interval, "unset ISO fields MUST keep their defaults")
		assert.Equal(t, "bassd", cfg.DeviceName)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("receive_states: 0\n"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "receive_states")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})
}

func BenchmarkDefaultConfig(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = DefaultConfig()
	}
}
