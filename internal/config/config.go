// Package config handles the XDG configuration directory, the optional
// config.yaml file in it and INTRANET_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "intranet"

	// ConfigFile is the optional settings file in the config directory.
	ConfigFile = "config.yaml"

	// OAuthClientFile is the Google OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored Google OAuth token filename.
	TokenFile = "token.json"
)

// Backend names.
const (
	BackendConnector = "connector"
	BackendGoogle    = "google"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `yaml:"-"`

	// Debug enables debug logging.
	Debug bool `yaml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `yaml:"-"`

	Backend   string          `yaml:"backend"`
	Connector ConnectorConfig `yaml:"connector"`
	Google    GoogleConfig    `yaml:"google"`
	Cache     CacheConfig     `yaml:"cache"`
	Images    ImagesConfig    `yaml:"images"`
	Serve     ServeConfig     `yaml:"serve"`
	Log       LogConfig       `yaml:"log"`
}

// ConnectorConfig configures the list connector backend.
type ConnectorConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Dataset      string        `yaml:"dataset"`
	TenantID     string        `yaml:"tenant_id"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Scopes       []string      `yaml:"scopes"`
	Timeout      time.Duration `yaml:"timeout"`
}

// GoogleConfig configures the Google Workspace backend.
type GoogleConfig struct {
	// TaskList is the Google Tasks list backing the Tasks table.
	TaskList string `yaml:"task_list"`

	// Customer is the Admin SDK customer used for directory searches.
	Customer string `yaml:"customer"`
}

// CacheConfig holds the query cache windows and retry policy.
type CacheConfig struct {
	TaskStaleTime    time.Duration `yaml:"task_stale_time"`
	ContentStaleTime time.Duration `yaml:"content_stale_time"`
	Retry            int           `yaml:"retry"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
}

// ImagesConfig configures image reference resolution.
type ImagesConfig struct {
	AssetsRoot string `yaml:"assets_root"`
	BrandColor string `yaml:"brand_color"`
	Label      string `yaml:"label"`
}

// ServeConfig configures the HTTP surface.
type ServeConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// New creates a Config for the default or specified config directory, then
// applies config.yaml from that directory (when present) and environment
// overrides. If configDir is empty, uses XDG_CONFIG_HOME/intranet or
// $HOME/.config/intranet.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := Default()
	cfg.Dir = dir

	if err := cfg.loadFile(cfg.Path()); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Backend: BackendConnector,
		Connector: ConnectorConfig{
			Dataset: "default",
			Timeout: 30 * time.Second,
		},
		Google: GoogleConfig{
			TaskList: "@default",
			Customer: "my_customer",
		},
		Cache: CacheConfig{
			TaskStaleTime:    30 * time.Second,
			ContentStaleTime: 5 * time.Minute,
			Retry:            1,
			RetryDelay:       time.Second,
		},
		Serve: ServeConfig{
			Addr: "localhost:8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
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

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"INTRANET_BACKEND":          &c.Backend,
		"INTRANET_CONNECTOR_URL":    &c.Connector.BaseURL,
		"INTRANET_DATASET":          &c.Connector.Dataset,
		"INTRANET_TENANT_ID":        &c.Connector.TenantID,
		"INTRANET_CLIENT_ID":        &c.Connector.ClientID,
		"INTRANET_CLIENT_SECRET":    &c.Connector.ClientSecret,
		"INTRANET_GOOGLE_TASK_LIST": &c.Google.TaskList,
		"INTRANET_GOOGLE_CUSTOMER":  &c.Google.Customer,
		"INTRANET_ASSETS_ROOT":      &c.Images.AssetsRoot,
		"INTRANET_SERVE_ADDR":       &c.Serve.Addr,
		"INTRANET_LOG_LEVEL":        &c.Log.Level,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("INTRANET_CONNECTOR_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid INTRANET_CONNECTOR_TIMEOUT: %w", err)
		}
		c.Connector.Timeout = d
	}
	if v, ok := lookup("INTRANET_CACHE_RETRY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid INTRANET_CACHE_RETRY: %w", err)
		}
		c.Cache.Retry = n
	}
	if v, ok := lookup("INTRANET_ALLOWED_ORIGINS"); ok && v != "" {
		c.Serve.AllowedOrigins = splitList(v)
	}
	return nil
}

// Validate checks that the selected backend is configured.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendConnector:
		var missing []string
		if c.Connector.BaseURL == "" {
			missing = append(missing, "connector.base_url")
		}
		if c.Connector.TenantID == "" {
			missing = append(missing, "connector.tenant_id")
		}
		if c.Connector.ClientID == "" {
			missing = append(missing, "connector.client_id")
		}
		if c.Connector.ClientSecret == "" {
			missing = append(missing, "connector.client_secret")
		}
		if len(missing) > 0 {
			return fmt.Errorf("connector backend not configured: missing %s", strings.Join(missing, ", "))
		}
	case BackendGoogle:
		if c.Google.TaskList == "" {
			return errors.New("google backend not configured: missing google.task_list")
		}
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	if c.Cache.Retry < 0 {
		return errors.New("cache.retry must not be negative")
	}
	return nil
}

// Path returns the path to config.yaml.
func (c *Config) Path() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
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

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
