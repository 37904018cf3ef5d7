package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration of zotbridge.
type Config struct {
	// Translation server (Zotero translation-server)
	Translation TranslationConfig `yaml:"translation" json:"translation"`

	// Desktop Zotero connector
	Connector ConnectorConfig `yaml:"connector" json:"connector"`

	// Zotero local and web API targets of save_to_zotero
	Local LibraryConfig `yaml:"local" json:"local"`
	Web   LibraryConfig `yaml:"web" json:"web"`

	// Page snapshots
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	// Tool registration
	Tools ToolsConfig `yaml:"tools" json:"tools"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// ConfigFilePath is the file the configuration was loaded from, if any.
	ConfigFilePath string `yaml:"-" json:"-"`
}

// TranslationConfig locates the translation server.
type TranslationConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// ConnectorConfig locates the Zotero connector server.
type ConnectorConfig struct {
	URL               string        `yaml:"url" json:"url"`
	APIVersion        int           `yaml:"api_version" json:"api_version"`
	ClientVersion     string        `yaml:"client_version" json:"client_version"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`                       // metadata calls
	AttachmentTimeout time.Duration `yaml:"attachment_timeout" json:"attachment_timeout"` // binary fetch and upload
	ValidatePDF       bool          `yaml:"validate_pdf" json:"validate_pdf"`
}

// LibraryConfig locates a Zotero API (local or web) and its key.
type LibraryConfig struct {
	URL     string        `yaml:"url" json:"url"`
	APIKey  string        `yaml:"api_key" json:"-"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Snapshot renderers.
const (
	RendererHTTP    = "http"
	RendererBrowser = "browser"
)

// SnapshotConfig selects how page snapshots are captured.
type SnapshotConfig struct {
	Renderer    string `yaml:"renderer" json:"renderer"`
	WaitUntil   string `yaml:"wait_until" json:"wait_until"`
	ShowBrowser bool   `yaml:"show_browser" json:"show_browser"`
	SkipInstall bool   `yaml:"skip_install" json:"skip_install"`
}

// ToolsConfig restricts which tools are exposed. Patterns are globs over
// tool names; denied wins over allowed, and an empty allowed list allows all.
type ToolsConfig struct {
	Allowed []string `yaml:"allowed" json:"allowed"`
	Denied  []string `yaml:"denied" json:"denied"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `yaml:"level" json:"level"`
	// Dir overrides ~/.zotbridge/logs
	Dir string `yaml:"dir" json:"dir"`
}

// DefaultConfig returns a configuration for a desktop Zotero and a
// translation server running on the same machine.
func DefaultConfig() *Config {
	return &Config{
		Translation: TranslationConfig{
			URL:     "http://127.0.0.1:1969",
			Timeout: 15 * time.Second,
		},
		Connector: ConnectorConfig{
			URL:               "http://127.0.0.1:23119",
			APIVersion:        3,
			ClientVersion:     "zotbridge",
			Timeout:           15 * time.Second,
			AttachmentTimeout: 120 * time.Second,
		},
		Local: LibraryConfig{
			URL:     "http://127.0.0.1:23119/api",
			Timeout: 15 * time.Second,
		},
		Web: LibraryConfig{
			URL:     "https://api.zotero.org",
			Timeout: 15 * time.Second,
		},
		Snapshot: SnapshotConfig{
			Renderer:  RendererHTTP,
			WaitUntil: "load",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	c.ConfigFilePath = path
	return nil
}

var validWaitUntil = map[string]bool{
	"load":             true,
	"domcontentloaded": true,
	"networkidle":      true,
	"commit":           true,
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate validates the configuration
func (c *Config) Validate() error {
	urls := []struct {
		name  string
		value string
	}{
		{"translation.url", c.Translation.URL},
		{"connector.url", c.Connector.URL},
		{"local.url", c.Local.URL},
		{"web.url", c.Web.URL},
	}
	for _, u := range urls {
		if err := validateURL(u.value); err != nil {
			return fmt.Errorf("%s: %w", u.name, err)
		}
	}

	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"translation.timeout", c.Translation.Timeout},
		{"connector.timeout", c.Connector.Timeout},
		{"connector.attachment_timeout", c.Connector.AttachmentTimeout},
		{"local.timeout", c.Local.Timeout},
		{"web.timeout", c.Web.Timeout},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			return fmt.Errorf("%s must be positive", t.name)
		}
	}

	if c.Connector.APIVersion <= 0 {
		return fmt.Errorf("connector.api_version must be positive")
	}

	switch c.Snapshot.Renderer {
	case RendererHTTP, RendererBrowser:
	default:
		return fmt.Errorf("invalid snapshot.renderer: %s (must be 'http' or 'browser')", c.Snapshot.Renderer)
	}
	if c.Snapshot.WaitUntil != "" && !validWaitUntil[c.Snapshot.WaitUntil] {
		return fmt.Errorf("invalid snapshot.wait_until: %s", c.Snapshot.WaitUntil)
	}

	for _, p := range append(append([]string{}, c.Tools.Allowed...), c.Tools.Denied...) {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("invalid tool pattern %q: %w", p, err)
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level)
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
