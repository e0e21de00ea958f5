// Package config holds the process configuration for the run-tools MCP server.
//
// The server never reads the environment itself: the embedding caller builds
// a Config (the CLI does so from flags, environment and an optional YAML file)
// and hands it to the server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultServerName is advertised to MCP clients during initialize
	DefaultServerName = "trigger.dev"
	// DefaultServerVersion is advertised to MCP clients during initialize
	DefaultServerVersion = "1.0.0"
	// DefaultPort is the HTTP listening port
	DefaultPort = 8080
	// DefaultAPIURL is the task/run API base URL
	DefaultAPIURL = "https://api.trigger.dev"
	// DefaultDashboardURL is the base URL used for run links
	DefaultDashboardURL = "https://cloud.trigger.dev"
)

// ErrMissingCredential is returned when no access token was supplied
var ErrMissingCredential = errors.New("missing access token")

// Config is the full server configuration
type Config struct {
	// Port is the HTTP listening port; 0 picks a free port
	Port int `yaml:"port"`

	// APIURL is the base URL of the task/run API
	APIURL string `yaml:"api_url"`

	// AccessToken authenticates backend calls. Never logged.
	AccessToken string `yaml:"access_token"`

	// ProjectRef identifies the project in dashboard links
	ProjectRef string `yaml:"project_ref"`

	// DashboardURL is the base URL for dashboard links
	DashboardURL string `yaml:"dashboard_url"`

	ServerName    string `yaml:"server_name"`
	ServerVersion string `yaml:"server_version"`

	// MaxSessions is how many event streams may be open at once.
	// Opening one more evicts the oldest.
	MaxSessions int `yaml:"max_sessions"`

	KeepAliveInterval time.Duration `yaml:"keep_alive_interval"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

// ProcessContext is the read-only state every tool handler needs
type ProcessContext struct {
	APIURL       string
	AccessToken  string
	ProjectRef   string
	DashboardURL string
}

// Default returns a configuration with every optional field populated
func Default() Config {
	return Config{
		Port:              DefaultPort,
		APIURL:            DefaultAPIURL,
		DashboardURL:      DefaultDashboardURL,
		ServerName:        DefaultServerName,
		ServerVersion:     DefaultServerVersion,
		MaxSessions:       DefaultMaxSessions,
		KeepAliveInterval: DefaultKeepAliveInterval,
		RequestTimeout:    DefaultRequestTimeout,
	}
}

// LoadFile reads a YAML file over the defaults. Fields absent from the file
// keep their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// WithDefaults fills zero-valued optional fields
func (c Config) WithDefaults() Config {
	d := Default()
	if c.APIURL == "" {
		c.APIURL = d.APIURL
	}
	if c.DashboardURL == "" {
		c.DashboardURL = d.DashboardURL
	}
	if c.ServerName == "" {
		c.ServerName = d.ServerName
	}
	if c.ServerVersion == "" {
		c.ServerVersion = d.ServerVersion
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = d.MaxSessions
	}
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = d.KeepAliveInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	return c
}

// Validate checks the configuration. A missing access token is reported as
// ErrMissingCredential so callers can tell it apart from other mistakes.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AccessToken) == "" {
		return ErrMissingCredential
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	return nil
}

// ProcessContext extracts the handler-facing part of the configuration
func (c Config) ProcessContext() ProcessContext {
	return ProcessContext{
		APIURL:       strings.TrimRight(c.APIURL, "/"),
		AccessToken:  c.AccessToken,
		ProjectRef:   c.ProjectRef,
		DashboardURL: strings.TrimRight(c.DashboardURL, "/"),
	}
}

// Address returns the listen address for the configured port
func (c Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// TaskRunURL builds the dashboard link for a run
func (p ProcessContext) TaskRunURL(runID string) string {
	return fmt.Sprintf(TaskRunURLFormat, p.DashboardURL, p.ProjectRef, runID)
}
