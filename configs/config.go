package configs

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// portEnv is the unprefixed port variable set by most hosting platforms.
// MCPTIME_PORT takes precedence over it.
const portEnv = "PORT"

// Transport names accepted by Config.Transport.
const (
	TransportSSE   = "sse"
	TransportStdio = "stdio"
)

// Config holds the final application configuration.
// Values are layered: defaults, then the YAML file, then PORT and the
// MCPTIME_* environment variables, then command line flags.
// Tags carry full variable names so no other unprefixed variable is read.
type Config struct {
	// Config File Path (Loaded first from env)
	ConfigFilePath string `envconfig:"MCPTIME_CONFIG_FILE" yaml:"-"`

	Host          string `envconfig:"MCPTIME_HOST" yaml:"host"`
	Port          int    `envconfig:"MCPTIME_PORT" yaml:"port"`
	Transport     string `envconfig:"MCPTIME_TRANSPORT" yaml:"transport"`
	LocalTimezone string `envconfig:"MCPTIME_LOCAL_TIMEZONE" yaml:"local_timezone"`
	AuthToken     string `envconfig:"MCPTIME_AUTH_TOKEN" yaml:"auth_token"`

	KeepAliveInterval  time.Duration `envconfig:"MCPTIME_KEEPALIVE_INTERVAL" yaml:"keepalive_interval"`
	SessionQueueSize   int           `envconfig:"MCPTIME_SESSION_QUEUE_SIZE" yaml:"session_queue_size"`
	ShutdownTimeout    time.Duration `envconfig:"MCPTIME_SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`
	ServerReadTimeout  time.Duration `envconfig:"MCPTIME_SERVER_READ_TIMEOUT" yaml:"server_read_timeout"`
	ServerIdleTimeout  time.Duration `envconfig:"MCPTIME_SERVER_IDLE_TIMEOUT" yaml:"server_idle_timeout"`
	ServerWriteTimeout time.Duration `envconfig:"MCPTIME_SERVER_WRITE_TIMEOUT" yaml:"server_write_timeout"` // Zero keeps streams open

	OtelExporterOtlpEndpoint string `envconfig:"MCPTIME_OTEL_EXPORTER_OTLP_ENDPOINT" yaml:"otel_exporter_otlp_endpoint"`
	OtelExporterOtlpInsecure bool   `envconfig:"MCPTIME_OTEL_EXPORTER_OTLP_INSECURE" yaml:"otel_exporter_otlp_insecure"`
	LogLevel                 string `envconfig:"MCPTIME_LOG_LEVEL" yaml:"log_level"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Host:                     "0.0.0.0",
		Port:                     8000,
		Transport:                TransportSSE,
		KeepAliveInterval:        15 * time.Second,
		SessionQueueSize:         32,
		ShutdownTimeout:          5 * time.Second,
		ServerReadTimeout:        10 * time.Second,
		ServerIdleTimeout:        120 * time.Second,
		OtelExporterOtlpInsecure: true,
		LogLevel:                 "info",
	}
}

// Overrides carries values set on the command line. Nil fields are left alone.
type Overrides struct {
	ConfigFilePath *string
	Host           *string
	Port           *int
	Transport      *string
	LocalTimezone  *string
	AuthToken      *string
	LogLevel       *string
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	switch c.Transport {
	case TransportSSE, TransportStdio:
	default:
		errs = append(errs, fmt.Errorf("unsupported transport %q (want %q or %q)", c.Transport, TransportSSE, TransportStdio))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.SessionQueueSize < 1 {
		errs = append(errs, fmt.Errorf("session queue size must be positive, got %d", c.SessionQueueSize))
	}
	if c.KeepAliveInterval <= 0 {
		errs = append(errs, fmt.Errorf("keep-alive interval must be positive, got %s", c.KeepAliveInterval))
	}
	return errors.Join(errs...)
}

// Load builds the configuration from defaults, the optional YAML file,
// the environment and finally the command line overrides.
func Load(overrides Overrides) (*Config, error) {
	// 1. Load initial config from Env (primarily to get ConfigFilePath)
	var initialCfg Config
	if err := envconfig.Process("", &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}
	path := initialCfg.ConfigFilePath
	if overrides.ConfigFilePath != nil {
		path = *overrides.ConfigFilePath
	}

	// 2. Start from defaults and apply the YAML file if one is specified
	finalCfg := Default()
	if path != "" {
		yamlFile, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(yamlFile, &finalCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", path, err)
		}
		slog.Info("Loaded configuration from file.", "path", path)
	} else {
		slog.Debug("No config file path specified (MCPTIME_CONFIG_FILE), using defaults/env vars only.")
	}
	finalCfg.ConfigFilePath = path

	// 3. Process environment variables AGAIN to allow overrides over file settings.
	// Fields without a matching variable keep their current value.
	if v, ok := os.LookupEnv(portEnv); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s=%q: %w", portEnv, v, err)
		}
		finalCfg.Port = port
	}
	if err := envconfig.Process("", &finalCfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}
	finalCfg.ConfigFilePath = path

	// 4. Command line flags win over everything else.
	finalCfg.apply(overrides)

	if err := finalCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &finalCfg, nil
}

func (c *Config) apply(o Overrides) {
	setString(&c.Host, o.Host)
	setString(&c.Transport, o.Transport)
	setString(&c.LocalTimezone, o.LocalTimezone)
	setString(&c.AuthToken, o.AuthToken)
	setString(&c.LogLevel, o.LogLevel)
	if o.Port != nil {
		c.Port = *o.Port
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
