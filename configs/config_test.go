package configs_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/mcptime/configs"
)

// clearEnv unsets every variable Load may read for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "HOST", "PORT", "TRANSPORT", "LOCAL_TIMEZONE", "AUTH_TOKEN",
		"KEEPALIVE_INTERVAL", "SESSION_QUEUE_SIZE", "SHUTDOWN_TIMEOUT",
		"SERVER_READ_TIMEOUT", "SERVER_IDLE_TIMEOUT", "SERVER_WRITE_TIMEOUT",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "LOG_LEVEL",
	} {
		for _, name := range []string{key, "MCPTIME_" + key} {
			if old, ok := os.LookupEnv(name); ok {
				require.NoError(t, os.Unsetenv(name))
				t.Cleanup(func() { os.Setenv(name, old) })
			}
		}
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcptime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func ptr[T any](v T) *T { return &v }

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := configs.Load(configs.Overrides{})

	require.NoError(t, err)
	want := configs.Default()
	assert.Equal(t, &want, cfg)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, slog.LevelInfo, cfg.ParsedLogLevel())
}

func TestLoad_Layering(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
host: 127.0.0.1
port: 9000
local_timezone: Europe/Paris
keepalive_interval: 30s
log_level: debug
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := configs.Load(configs.Overrides{ConfigFilePath: ptr(path)})

		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Host)
		assert.Equal(t, 9000, cfg.Port)
		assert.Equal(t, "Europe/Paris", cfg.LocalTimezone)
		assert.Equal(t, 30*time.Second, cfg.KeepAliveInterval)
		assert.Equal(t, slog.LevelDebug, cfg.ParsedLogLevel())
		assert.Equal(t, 32, cfg.SessionQueueSize)
		assert.Equal(t, path, cfg.ConfigFilePath)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("MCPTIME_CONFIG_FILE", path)
		t.Setenv("MCPTIME_LOCAL_TIMEZONE", "Asia/Tokyo")
		t.Setenv("MCPTIME_SESSION_QUEUE_SIZE", "4")

		cfg, err := configs.Load(configs.Overrides{})

		require.NoError(t, err)
		assert.Equal(t, "Asia/Tokyo", cfg.LocalTimezone)
		assert.Equal(t, 4, cfg.SessionQueueSize)
		assert.Equal(t, 9000, cfg.Port)
	})

	t.Run("unprefixed PORT", func(t *testing.T) {
		t.Setenv("PORT", "8123")

		cfg, err := configs.Load(configs.Overrides{ConfigFilePath: ptr(path)})

		require.NoError(t, err)
		assert.Equal(t, 8123, cfg.Port)
	})

	t.Run("MCPTIME_PORT over PORT", func(t *testing.T) {
		t.Setenv("PORT", "8123")
		t.Setenv("MCPTIME_PORT", "8125")

		cfg, err := configs.Load(configs.Overrides{ConfigFilePath: ptr(path)})

		require.NoError(t, err)
		assert.Equal(t, 8125, cfg.Port)
	})

	t.Run("other unprefixed variables are ignored", func(t *testing.T) {
		t.Setenv("HOST", "10.0.0.1")
		t.Setenv("TRANSPORT", "stdio")
		t.Setenv("LOG_LEVEL", "error")
		t.Setenv("LOCAL_TIMEZONE", "Asia/Tokyo")
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

		cfg, err := configs.Load(configs.Overrides{ConfigFilePath: ptr(path)})

		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Host)
		assert.Equal(t, configs.TransportSSE, cfg.Transport)
		assert.Equal(t, slog.LevelDebug, cfg.ParsedLogLevel())
		assert.Equal(t, "Europe/Paris", cfg.LocalTimezone)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("MCPTIME_PORT", "8124")
		t.Setenv("MCPTIME_TRANSPORT", "sse")

		cfg, err := configs.Load(configs.Overrides{
			ConfigFilePath: ptr(path),
			Port:           ptr(7000),
			Transport:      ptr("stdio"),
			LocalTimezone:  ptr("UTC"),
		})

		require.NoError(t, err)
		assert.Equal(t, 7000, cfg.Port)
		assert.Equal(t, configs.TransportStdio, cfg.Transport)
		assert.Equal(t, "UTC", cfg.LocalTimezone)
		assert.Equal(t, "127.0.0.1:7000", cfg.Addr())
	})
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name      string
		setup     func(t *testing.T) configs.Overrides
		wantError string
	}{
		{
			name: "missing file",
			setup: func(t *testing.T) configs.Overrides {
				return configs.Overrides{ConfigFilePath: ptr(filepath.Join(t.TempDir(), "nope.yaml"))}
			},
			wantError: "failed to read config file",
		},
		{
			name: "malformed file",
			setup: func(t *testing.T) configs.Overrides {
				return configs.Overrides{ConfigFilePath: ptr(writeFile(t, "port: [1, 2"))}
			},
			wantError: "failed to unmarshal config file",
		},
		{
			name: "bad env value",
			setup: func(t *testing.T) configs.Overrides {
				t.Setenv("MCPTIME_SESSION_QUEUE_SIZE", "lots")
				return configs.Overrides{}
			},
			wantError: "environment variables",
		},
		{
			name: "bad PORT value",
			setup: func(t *testing.T) configs.Overrides {
				t.Setenv("PORT", "eighty")
				return configs.Overrides{}
			},
			wantError: `failed to parse PORT="eighty"`,
		},
		{
			name: "unknown transport",
			setup: func(t *testing.T) configs.Overrides {
				return configs.Overrides{Transport: ptr("carrier-pigeon")}
			},
			wantError: `unsupported transport "carrier-pigeon"`,
		},
		{
			name: "port out of range",
			setup: func(t *testing.T) configs.Overrides {
				return configs.Overrides{Port: ptr(70000)}
			},
			wantError: "port 70000 out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := configs.Load(tt.setup(t))

			assert.Nil(t, cfg)
			assert.ErrorContains(t, err, tt.wantError)
		})
	}
}

func TestConfig_ParsedLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg := configs.Config{LogLevel: tt.in}
			assert.Equal(t, tt.want, cfg.ParsedLogLevel())
		})
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	clearEnv(t)

	cfg, err := configs.Load(configs.Overrides{ConfigFilePath: ptr("mcptime.example.yaml")})

	require.NoError(t, err)
	want := configs.Default()
	want.ConfigFilePath = "mcptime.example.yaml"
	assert.Equal(t, &want, cfg)
}
