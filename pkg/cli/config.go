package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/callwaiting/voxbridge/pkg/storage"
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".voxbridge"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

// Config is the on-disk CLI configuration: a set of named contexts and the
// one currently in use.
type Config struct {
	// AppName is the application name (e.g., "voxbridge")
	AppName string `yaml:"-"`

	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is one backend deployment plus the identity used against it.
type Context struct {
	Name string `yaml:"name"`

	// BaseURL is the web voice API base URL.
	BaseURL string `yaml:"base_url"`

	// Token is the bearer token sent to the API and the bridge.
	Token string `yaml:"token,omitempty"`

	// OrgID is the validated organization (tenant) id.
	OrgID string `yaml:"org_id,omitempty"`

	// FrontendPort and BackendPort drive the local dev bridge URL rewrite.
	FrontendPort string `yaml:"frontend_port,omitempty"`
	BackendPort  string `yaml:"backend_port,omitempty"`

	// Timeout is the bridge establishment timeout in seconds (optional)
	Timeout int `yaml:"timeout,omitempty"`

	// MaxRetries bounds automatic reconnection attempts (optional)
	MaxRetries int `yaml:"max_retries,omitempty"`

	// ArchiveDir overrides where finished sessions are stored.
	ArchiveDir string `yaml:"archive_dir,omitempty"`

	// StorageURI is where exports and recordings go: a directory,
	// file:// or s3://bucket/prefix.
	StorageURI string `yaml:"storage_uri,omitempty"`

	// S3 configures the client used for s3:// storage URIs.
	S3 *storage.S3Config `yaml:"s3,omitempty"`

	Extra map[string]string `yaml:"extra,omitempty"`
}

// LoadConfig loads or creates configuration for the specified app
func LoadConfig(appName string) (*Config, error) {
	return LoadConfigWithPath(appName, "")
}

// LoadConfigWithPath loads configuration from a custom path. An empty path
// selects ~/.voxbridge/<app>/config.yaml. A missing file is created empty.
func LoadConfigWithPath(appName, customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		paths, err := NewPaths(appName)
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = paths.ConfigFile()
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		AppName:    appName,
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		if ctx == nil {
			delete(cfg.Contexts, name)
			continue
		}
		ctx.Name = name
	}

	cfg.AppName = appName
	cfg.configPath = configPath
	return cfg, nil
}

// Save saves the configuration to disk. The file holds tokens, so it is
// written owner-only.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// AddContext adds or replaces a context
func (c *Config) AddContext(name string, ctx *Context) error {
	if name == "" {
		return fmt.Errorf("context name is required")
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// GetCurrentContext returns the current context
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}
	return c.GetContext(c.CurrentContext)
}

// ResolveContext returns the context by name, or current context if name is empty
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		return c.GetCurrentContext()
	}
	return c.GetContext(name)
}

// ListContexts returns all context names, sorted.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// EstablishTimeout returns Timeout as a duration, or zero when unset.
func (ctx *Context) EstablishTimeout() time.Duration {
	return time.Duration(ctx.Timeout) * time.Second
}

// Set assigns a context field by its YAML key. Unknown keys land in Extra.
func (ctx *Context) Set(key, value string) error {
	switch key {
	case "base_url":
		ctx.BaseURL = value
	case "token":
		ctx.Token = value
	case "org_id":
		ctx.OrgID = value
	case "frontend_port":
		ctx.FrontendPort = value
	case "backend_port":
		ctx.BackendPort = value
	case "archive_dir":
		ctx.ArchiveDir = value
	case "storage_uri":
		ctx.StorageURI = value
	case "timeout", "max_retries":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s: want a non-negative integer, got %q", key, value)
		}
		if key == "timeout" {
			ctx.Timeout = n
		} else {
			ctx.MaxRetries = n
		}
	default:
		if s3key, ok := strings.CutPrefix(key, "s3."); ok {
			return ctx.setS3(s3key, value)
		}
		ctx.SetExtra(key, value)
	}
	return nil
}

func (ctx *Context) setS3(key, value string) error {
	if ctx.S3 == nil {
		ctx.S3 = &storage.S3Config{}
	}
	switch key {
	case "region":
		ctx.S3.Region = value
	case "endpoint":
		ctx.S3.Endpoint = value
	case "access_key_id":
		ctx.S3.AccessKeyID = value
	case "secret_access_key":
		ctx.S3.SecretAccessKey = value
	case "path_style":
		ctx.S3.PathStyle = value == "true" || value == "1"
	default:
		return fmt.Errorf("unknown s3 setting %q", key)
	}
	return nil
}

// GetExtra returns an extra value for the context
func (ctx *Context) GetExtra(key string) string {
	if ctx.Extra == nil {
		return ""
	}
	return ctx.Extra[key]
}

// SetExtra sets an extra value for the context
func (ctx *Context) SetExtra(key, value string) {
	if ctx.Extra == nil {
		ctx.Extra = make(map[string]string)
	}
	ctx.Extra[key] = value
}

// MaskToken masks a secret for display
func MaskToken(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
