// Package config handles the configuration directory, credential paths and settings.
package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "bcload"

	// SettingsFile is the optional YAML settings filename.
	SettingsFile = "config.yaml"

	// BackendBasecamp selects the Basecamp 3 backend.
	BackendBasecamp = "basecamp"

	// BackendGoogleTasks selects the Google Tasks backend.
	BackendGoogleTasks = "googletasks"

	// DefaultUserAgent identifies the client to the remote API.
	DefaultUserAgent = "bcload (https://github.com/bcload/bcload)"

	// DefaultMinInterval is the minimum spacing between outbound requests.
	DefaultMinInterval = 250 * time.Millisecond

	// DefaultMaxRetries is how many times a throttled request is retried.
	DefaultMaxRetries = 5

	// DefaultMaxPages caps pagination against servers that never stop linking.
	DefaultMaxPages = 100

	// DefaultRequestTimeout bounds a single HTTP exchange.
	DefaultRequestTimeout = 30 * time.Second
)

// Settings mirrors config.yaml.
type Settings struct {
	Backend        string `yaml:"backend"`
	Project        string `yaml:"project"`
	UserAgent      string `yaml:"user_agent"`
	MinInterval    string `yaml:"min_interval"`
	MaxRetries     *int   `yaml:"max_retries"`
	MaxPages       int    `yaml:"max_pages"`
	RequestTimeout string `yaml:"request_timeout"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Backend is the remote service in use.
	Backend string

	// Project is the default project id for commands that need one.
	Project string

	UserAgent      string
	MinInterval    time.Duration
	MaxRetries     int
	MaxPages       int
	RequestTimeout time.Duration

	// Log receives debug output. Nil discards.
	Log *log.Logger
}

// New creates a Config for the default or specified config directory and
// applies config.yaml from it when present.
// If configDir is empty, uses XDG_CONFIG_HOME/bcload or $HOME/.config/bcload.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:            dir,
		Backend:        BackendBasecamp,
		UserAgent:      DefaultUserAgent,
		MinInterval:    DefaultMinInterval,
		MaxRetries:     DefaultMaxRetries,
		MaxPages:       DefaultMaxPages,
		RequestTimeout: DefaultRequestTimeout,
	}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	cfg.Project = Getenv("BCLOAD_PROJECT", cfg.Project)
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (c *Config) loadSettings() error {
	data, err := os.ReadFile(c.SettingsPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", SettingsFile, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid %s: %w", SettingsFile, err)
	}
	return c.apply(s)
}

func (c *Config) apply(s Settings) error {
	if s.Backend != "" {
		if err := c.SetBackend(s.Backend); err != nil {
			return fmt.Errorf("invalid %s: %w", SettingsFile, err)
		}
	}
	if s.Project != "" {
		c.Project = s.Project
	}
	if s.UserAgent != "" {
		c.UserAgent = s.UserAgent
	}
	if s.MinInterval != "" {
		d, err := time.ParseDuration(s.MinInterval)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid %s: min_interval: %q", SettingsFile, s.MinInterval)
		}
		c.MinInterval = d
	}
	if s.MaxRetries != nil {
		if *s.MaxRetries < 0 {
			return fmt.Errorf("invalid %s: max_retries: %d", SettingsFile, *s.MaxRetries)
		}
		c.MaxRetries = *s.MaxRetries
	}
	if s.MaxPages != 0 {
		if s.MaxPages < 0 {
			return fmt.Errorf("invalid %s: max_pages: %d", SettingsFile, s.MaxPages)
		}
		c.MaxPages = s.MaxPages
	}
	if s.RequestTimeout != "" {
		d, err := time.ParseDuration(s.RequestTimeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: request_timeout: %q", SettingsFile, s.RequestTimeout)
		}
		c.RequestTimeout = d
	}
	return nil
}

// SetBackend validates and selects the backend.
func (c *Config) SetBackend(name string) error {
	switch name {
	case BackendBasecamp, BackendGoogleTasks:
		c.Backend = name
		return nil
	default:
		return fmt.Errorf("unknown backend: %s", name)
	}
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// OAuthClientPath returns the path to the active backend's OAuth client file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, c.Backend+"_client.json")
}

// TokenPath returns the path to the active backend's stored token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, c.Backend+"_token.json")
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

// SetLogOutput routes debug logs to w when Debug is set.
func (c *Config) SetLogOutput(w io.Writer) {
	if !c.Debug {
		w = io.Discard
	}
	c.Log = log.New(w, "debug: ", log.Ltime|log.Lmicroseconds)
}

// Debugf logs when debug output is enabled.
func (c *Config) Debugf(format string, args ...any) {
	if c == nil || c.Log == nil {
		return
	}
	c.Log.Printf(format, args...)
}

// Getenv returns the environment value for key or fallback when unset.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
