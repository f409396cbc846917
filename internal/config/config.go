package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the fixed prefix for environment overrides.
const EnvPrefix = "WIRNN_SERVICE_"

// Default values applied when fields are absent from the config file.
const (
	DefaultName           = "wirnn-service"
	DefaultPathPrefix     = "/wirnn-service"
	DefaultProfile        = "development"
	DefaultLogLevel       = "info"
	DefaultPort           = 8080
	DefaultStreamInterval = 5 * time.Second
)

// Config is the full service configuration, bound once at startup.
type Config struct {
	// Name of the application, reported in the metadata endpoint.
	Name string `yaml:"name"`

	// PathPrefix is the URL prefix all service routes are mounted under.
	PathPrefix string `yaml:"path_prefix"`

	// Profile selects the logging profile: development | production.
	Profile string `yaml:"profile"`

	// LogLevel is one of: debug | info | warning | error.
	LogLevel string `yaml:"log_level"`

	// Port is the HTTP listen port.
	Port int `yaml:"port"`

	// EFD configures the telemetry database connection.
	EFD EFDConfig `yaml:"efd"`

	// Auth configures API-key authentication on the service routes.
	Auth AuthConfig `yaml:"auth"`

	// Stream configures the WebSocket live-sample hub.
	Stream StreamConfig `yaml:"stream"`
}

// EFDConfig selects the EFD instance to connect to. An empty Instance
// disables the topic and stream endpoints.
type EFDConfig struct {
	// Instance is the EFD instance alias, e.g. "usdf_efd".
	Instance string `yaml:"instance"`

	// SecretsEndpoint overrides the credential service base URL.
	// Empty selects the default segwarides endpoint.
	SecretsEndpoint string `yaml:"secrets_endpoint"`
}

// AuthConfig controls authentication of incoming HTTP requests.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the
	// expected API key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// StreamConfig controls the WebSocket live-sample hub.
type StreamConfig struct {
	// Topics are polled for fresh samples and broadcast to clients.
	Topics []string `yaml:"topics"`

	// Interval is the poll/broadcast period. Default: 5s.
	Interval time.Duration `yaml:"interval"`
}

// Load reads the YAML config file at path, applies environment overrides,
// and validates the result. An empty path skips the file and uses defaults
// plus environment only.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Name:       DefaultName,
		PathPrefix: DefaultPathPrefix,
		Profile:    DefaultProfile,
		LogLevel:   DefaultLogLevel,
		Port:       DefaultPort,
		Stream: StreamConfig{
			Interval: DefaultStreamInterval,
		},
	}
}

// applyEnv overlays the recognized WIRNN_SERVICE_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "NAME"); v != "" {
		cfg.Name = v
	}
	if v := os.Getenv(EnvPrefix + "PATH_PREFIX"); v != "" {
		cfg.PathPrefix = v
	}
	if v := os.Getenv(EnvPrefix + "PROFILE"); v != "" {
		cfg.Profile = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
}

// validate checks structural constraints on the final configuration.
func validate(cfg *Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !strings.HasPrefix(cfg.PathPrefix, "/") {
		return fmt.Errorf("path_prefix %q must start with /", cfg.PathPrefix)
	}
	switch cfg.Profile {
	case "development", "production":
	default:
		return fmt.Errorf("profile %q unknown: want development|production", cfg.Profile)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return fmt.Errorf("log_level %q unknown: want debug|info|warning|error", cfg.LogLevel)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d is out of range [1, 65535]", cfg.Port)
	}
	switch cfg.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("auth.mode %q unknown: want apikey|none", cfg.Auth.Mode)
	}
	if cfg.Stream.Interval <= 0 {
		return fmt.Errorf("stream.interval must be positive")
	}
	return nil
}
