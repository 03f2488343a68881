// Package cmd provides the CLI commands for docsync.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/docsync/internal/config"
	"github.com/hyperjump/docsync/internal/indexer"
	"github.com/hyperjump/docsync/pkg/utils"
)

// Exit codes returned by Execute.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitNotConnected = 2
)

const defaultConfigPath = "/usr/local/etc/docsync/config.yaml"

var version = "dev"

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	debug      bool
	site       string
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	err := root.Execute()
	return reportError(root.ErrOrStderr(), err)
}

// reportError prints err and maps it to an exit code. A missing index connection is a
// warning with its own exit code so that scripts can tell it apart from a failure.
func reportError(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, indexer.ErrNotConnected) {
		fmt.Fprintf(w, "warning: %v\n", err)
		return ExitNotConnected
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return ExitFailure
}

// NewRootCmd creates the root command for the docsync CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "docsync",
		Short: "Keep a hosted search index in step with a content store",
		Long: `docsync splits published documents into search records and keeps a hosted
search index (Algolia, or a local Bleve index for development) in step with the
document store: single-document sync on change, bulk reindex, and index maintenance.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("docsync version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	pf.StringVar(&opts.site, "site", "", "use the index and types of a configured site")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSyncCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newReindexCmd(opts))
	cmd.AddCommand(newClearCmd(opts))
	cmd.AddCommand(newPushConfigCmd(opts))
	cmd.AddCommand(newTestConnectionCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory is preferred if present, and a missing default file falls back to
// defaults plus the environment. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// load resolves the config for the selected site and builds the logger.
func (o *globalOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.site != "" {
		cfg, err = cfg.Site(o.site)
		if err != nil {
			return nil, nil, err
		}
	}
	level := cfg.Log.Level
	if o.debug || cfg.Debug {
		level = "debug"
	}
	logger, err := utils.NewLogger(level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("config_path", resolved),
		zap.String("site", o.site),
	)
	return cfg, logger, nil
}

// setup loads the config and initializes the components for a command.
func (o *globalOptions) setup() (*components, error) {
	cfg, logger, err := o.load()
	if err != nil {
		return nil, err
	}
	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return comps, nil
}
