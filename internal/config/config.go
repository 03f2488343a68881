// Package config provides configuration loading and structs for the docsync service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/renameio"
	"github.com/joho/godotenv"
	"github.com/mohae/deepcopy"
	"gopkg.in/yaml.v3"
)

// Index providers.
const (
	ProviderAlgolia = "algolia"
	ProviderLocal   = "local"
)

// Environment variables that override index credentials from the file.
const (
	EnvAppID        = "ALGOLIA_APPLICATION_ID"
	EnvAdminAPIKey  = "ALGOLIA_ADMIN_API_KEY"
	EnvSearchAPIKey = "ALGOLIA_SEARCH_API_KEY"
	EnvIndexName    = "ALGOLIA_INDEX_NAME"
	EnvIndexPrefix  = "ALGOLIA_INDEX_PREFIX"
)

// ErrUnknownSite is returned by Site when no site has the given name.
var ErrUnknownSite = errors.New("unknown site")

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Index    IndexConfig    `yaml:"index"`
	Splitter SplitterConfig `yaml:"splitter"`
	Sync     SyncConfig     `yaml:"sync"`
	Watch    WatchConfig    `yaml:"watch"`
	Sites    []SiteConfig   `yaml:"sites"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the document database and the local index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// IndexConfig holds search index credentials and naming.
type IndexConfig struct {
	Provider          string  `yaml:"provider"`
	AppID             string  `yaml:"app_id"`
	AdminAPIKey       string  `yaml:"admin_api_key"`
	SearchAPIKey      string  `yaml:"search_api_key"`
	Name              string  `yaml:"name"`
	Prefix            string  `yaml:"prefix"`
	SettingsDir       string  `yaml:"settings_dir"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	WaitForTasks      *bool   `yaml:"wait_for_tasks"`
	// RecheckAfter is how long a failed connection check is trusted before it is
	// repeated. Negative values keep a failure until the next explicit check.
	RecheckAfter time.Duration `yaml:"recheck_after"`
}

// WaitForTasksOrDefault returns whether writes wait for the remote task; defaults to true when unset.
func (c *IndexConfig) WaitForTasksOrDefault() bool {
	if c.WaitForTasks != nil {
		return *c.WaitForTasks
	}
	return true
}

// SplitterConfig holds content splitting settings.
type SplitterConfig struct {
	ContentLimit int    `yaml:"content_limit"`
	HeadingLevel string `yaml:"heading_level"`
	ASCIIOnly    bool   `yaml:"ascii_only"`
}

// SyncConfig holds sync and reindex settings.
type SyncConfig struct {
	IndexableTypes []string            `yaml:"indexable_types"`
	TypeAttributes map[string][]string `yaml:"type_attributes"`
	PageSize       int                 `yaml:"page_size"`
	Workers        int                 `yaml:"workers"`
	FilterChunk    int                 `yaml:"filter_chunk"`
}

// WatchConfig holds export directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	DefaultType string   `yaml:"default_type"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// SiteConfig names an index and type set that can be selected with --site.
type SiteConfig struct {
	Name  string   `yaml:"name"`
	Index string   `yaml:"index"`
	Types []string `yaml:"types"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Log.Format, validation.In("json", "console")),
	); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := validation.ValidateStruct(&c.Index,
		validation.Field(&c.Index.Provider, validation.Required, validation.In(ProviderAlgolia, ProviderLocal)),
		validation.Field(&c.Index.RequestsPerSecond, validation.Min(0.0)),
	); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := validation.ValidateStruct(&c.Splitter,
		validation.Field(&c.Splitter.ContentLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.Splitter.HeadingLevel, validation.Required, validation.Match(headingTag)),
	); err != nil {
		return fmt.Errorf("splitter: %w", err)
	}
	if err := validation.ValidateStruct(&c.Sync,
		validation.Field(&c.Sync.PageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.Sync.Workers, validation.Required, validation.Min(1)),
		validation.Field(&c.Sync.FilterChunk, validation.Required, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	seen := make(map[string]bool, len(c.Sites))
	for i := range c.Sites {
		s := &c.Sites[i]
		if err := validation.ValidateStruct(s, validation.Field(&s.Name, validation.Required)); err != nil {
			return fmt.Errorf("sites[%d]: %w", i, err)
		}
		if seen[s.Name] {
			return fmt.Errorf("sites[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Site returns a copy of the config with the named site's index and types applied.
// An empty name returns the config unchanged.
func (c *Config) Site(name string) (*Config, error) {
	if name == "" {
		return c, nil
	}
	for _, s := range c.Sites {
		if s.Name != name {
			continue
		}
		out := deepcopy.Copy(c).(*Config)
		if s.Index != "" {
			out.Index.Name = s.Index
		}
		if len(s.Types) > 0 {
			out.Sync.IndexableTypes = append([]string(nil), s.Types...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSite, name)
}

// SiteNames returns the configured site names in file order.
func (c *Config) SiteNames() []string {
	names := make([]string, len(c.Sites))
	for i, s := range c.Sites {
		names[i] = s.Name
	}
	return names
}

// Load reads the config file at path, expands ${VAR} references, applies environment
// overrides and defaults, expands paths and validates the result. A .env file next to
// the config is loaded first; variables already set in the environment win.
func Load(path string) (*Config, error) {
	configDir := filepath.Dir(path)
	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	if cfg.Index.SettingsDir != "" {
		cfg.Index.SettingsDir = expandPath(cfg.Index.SettingsDir, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns a config built from defaults and the environment only.
func Default() *Config {
	var cfg Config
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	return &cfg
}

// ApplyEnv overrides index credentials and naming with non-empty environment variables.
func ApplyEnv(cfg *Config) {
	for env, dst := range map[string]*string{
		EnvAppID:        &cfg.Index.AppID,
		EnvAdminAPIKey:  &cfg.Index.AdminAPIKey,
		EnvSearchAPIKey: &cfg.Index.SearchAPIKey,
		EnvIndexName:    &cfg.Index.Name,
		EnvIndexPrefix:  &cfg.Index.Prefix,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}

// Save atomically writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
