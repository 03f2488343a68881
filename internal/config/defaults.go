package config

import (
	"regexp"
	"time"
)

var headingTag = regexp.MustCompile(`^[hH][1-6]$`)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/docsync/data/db/documents.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/docsync/data/indices"
	}
	if cfg.Index.Provider == "" {
		cfg.Index.Provider = ProviderAlgolia
	}
	if cfg.Index.RecheckAfter == 0 {
		cfg.Index.RecheckAfter = 30 * time.Second
	}
	if cfg.Splitter.ContentLimit == 0 {
		cfg.Splitter.ContentLimit = 2000
	}
	if cfg.Splitter.HeadingLevel == "" {
		cfg.Splitter.HeadingLevel = "h2"
	}
	if cfg.Sync.IndexableTypes == nil {
		cfg.Sync.IndexableTypes = []string{"post", "page"}
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 100
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 4
	}
	if cfg.Sync.FilterChunk == 0 {
		cfg.Sync.FilterChunk = 50
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".html", ".htm", ".md", ".markdown"}
	}
	if cfg.Watch.DefaultType == "" {
		cfg.Watch.DefaultType = "page"
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
