// ABOUTME: Configuration loading for orbital-mcp from YAML or TOML files.
// ABOUTME: Supports ${VAR} environment expansion and duration parsing.

// Package config loads the server configuration supplied before engine
// construction: backend base URL, credential, enabled toolsets, licensed
// modules, transport selection, and client retry bounds.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Transport kinds.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Auth kinds.
const (
	AuthAPIKey  = "apikey"
	AuthBearer  = "bearer"
	AuthService = "service"
	AuthJWT     = "jwt"
)

// Config is the complete orbital-mcp configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	BaseURL  string         `yaml:"base_url" toml:"base_url"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Toolsets ToolsetsConfig `yaml:"toolsets" toml:"toolsets"`
	Client   ClientConfig   `yaml:"client" toml:"client"`
	Audit    AuditConfig    `yaml:"audit" toml:"audit"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServerConfig selects the transport and its HTTP parameters.
type ServerConfig struct {
	Transport   string `yaml:"transport" toml:"transport"`
	HTTPAddr    string `yaml:"http_addr" toml:"http_addr"`
	MCPPath     string `yaml:"mcp_path" toml:"mcp_path"`
	RequireAuth bool   `yaml:"require_auth" toml:"require_auth"`
}

// AuthConfig selects and parameterizes the credential variant.
type AuthConfig struct {
	Kind              string `yaml:"kind" toml:"kind"`
	APIKey            string `yaml:"api_key" toml:"api_key"`
	BearerToken       string `yaml:"bearer_token" toml:"bearer_token"`
	ServiceName       string `yaml:"service_name" toml:"service_name"`
	ServiceSecret     string `yaml:"service_secret" toml:"service_secret"`
	ServiceSecretHash string `yaml:"service_secret_hash" toml:"service_secret_hash"`
	AccountID         string `yaml:"account_id" toml:"account_id"`
	JWTSecret         string `yaml:"jwt_secret" toml:"jwt_secret"`
	JWTToken          string `yaml:"jwt_token" toml:"jwt_token"`
}

// ToolsetsConfig selects which toolsets load beyond the default.
type ToolsetsConfig struct {
	Enabled         []string `yaml:"enabled" toml:"enabled"`
	LicensedModules []string `yaml:"licensed_modules" toml:"licensed_modules"`
}

// ClientConfig bounds the resilient client.
type ClientConfig struct {
	Timeout          time.Duration `yaml:"-" toml:"-"`
	RetryMaxInterval time.Duration `yaml:"-" toml:"-"`
	RetryMaxElapsed  time.Duration `yaml:"-" toml:"-"`

	// Raw string values for file unmarshaling
	TimeoutRaw          string `yaml:"timeout" toml:"timeout"`
	RetryMaxIntervalRaw string `yaml:"retry_max_interval" toml:"retry_max_interval"`
	RetryMaxElapsedRaw  string `yaml:"retry_max_elapsed" toml:"retry_max_elapsed"`
}

// AuditConfig enables the sqlite audit log when Path is set.
type AuditConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads a configuration file, expands ${VAR} environment
// references, parses by extension (.toml vs everything-else-as-YAML),
// fills duration fields, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if filepath.Ext(path) == ".toml" {
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with environment values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.Transport == "" {
		c.Server.Transport = TransportStdio
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8085"
	}
	if c.Server.MCPPath == "" {
		c.Server.MCPPath = "/mcp"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks required fields, returning the first failure.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("server.transport must be %q or %q, got %q",
			TransportStdio, TransportHTTP, c.Server.Transport)
	}

	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	switch c.Auth.Kind {
	case AuthAPIKey:
		if c.Auth.APIKey == "" {
			return fmt.Errorf("auth.api_key is required for kind %q", AuthAPIKey)
		}
	case AuthBearer:
		if c.Auth.BearerToken == "" {
			return fmt.Errorf("auth.bearer_token is required for kind %q", AuthBearer)
		}
	case AuthService:
		if c.Auth.ServiceName == "" || c.Auth.ServiceSecret == "" {
			return fmt.Errorf("auth.service_name and auth.service_secret are required for kind %q", AuthService)
		}
	case AuthJWT:
		if c.Auth.JWTSecret == "" || c.Auth.JWTToken == "" {
			return fmt.Errorf("auth.jwt_secret and auth.jwt_token are required for kind %q", AuthJWT)
		}
	case "":
		return fmt.Errorf("auth.kind is required")
	default:
		return fmt.Errorf("unknown auth.kind %q", c.Auth.Kind)
	}

	if c.Server.RequireAuth && c.Auth.Kind != AuthJWT {
		return fmt.Errorf("server.require_auth needs auth.kind %q for inbound verification", AuthJWT)
	}

	return nil
}

// parseDurations converts raw duration strings into time.Duration.
func (c *Config) parseDurations() error {
	var err error
	if c.Client.TimeoutRaw != "" {
		c.Client.Timeout, err = time.ParseDuration(c.Client.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing client.timeout %q: %w", c.Client.TimeoutRaw, err)
		}
	}
	if c.Client.RetryMaxIntervalRaw != "" {
		c.Client.RetryMaxInterval, err = time.ParseDuration(c.Client.RetryMaxIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing client.retry_max_interval %q: %w", c.Client.RetryMaxIntervalRaw, err)
		}
	}
	if c.Client.RetryMaxElapsedRaw != "" {
		c.Client.RetryMaxElapsed, err = time.ParseDuration(c.Client.RetryMaxElapsedRaw)
		if err != nil {
			return fmt.Errorf("parsing client.retry_max_elapsed %q: %w", c.Client.RetryMaxElapsedRaw, err)
		}
	}
	return nil
}
