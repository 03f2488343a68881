package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/docsync/internal/cli"
	"github.com/hyperjump/docsync/internal/indexer"
	"github.com/hyperjump/docsync/internal/searchindex"
)

func newClearCmd(opts *globalOptions) *cobra.Command {
	var index string
	var where map[string]string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove records from the index",
		Long: `Remove every record from the index, or with --where only the records whose
attributes match all of the given key=value pairs.`,
		Example: `  docsync clear
  docsync clear --index posts --where type=post --where author=ann`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			comps, err := opts.setup()
			if err != nil {
				return err
			}
			defer comps.Close()

			ctx := cmd.Context()
			var name string
			if len(where) > 0 {
				name, err = comps.syncer.DeleteWhere(ctx, index, where)
			} else {
				name, err = comps.syncer.Clear(ctx, index)
			}
			if err != nil {
				return err
			}
			if len(where) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "deleted records matching %s from %s\n", searchindex.MapIntoFilters(where, searchindex.OpAnd), name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&index, "index", "", "index name (default from config)")
	cmd.Flags().StringToStringVar(&where, "where", nil, "only delete records with attribute key=value (repeatable)")

	return cmd
}

func newPushConfigCmd(opts *globalOptions) *cobra.Command {
	var index string
	var settingsDir string

	cmd := &cobra.Command{
		Use:   "push-config",
		Short: "Push index settings",
		Long: `Push the settings in <settings-dir>/<index>-settings.json to the index, or the
built-in settings when no such file exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			comps, err := opts.setup()
			if err != nil {
				return err
			}
			defer comps.Close()

			name := comps.syncer.IndexName(index)
			if name == "" {
				return indexer.ErrNoIndex
			}
			dir := settingsDir
			if dir == "" {
				dir = comps.cfg.Index.SettingsDir
			}
			settings, err := searchindex.LoadSettings(dir, name)
			if err != nil {
				return err
			}
			if _, err := comps.syncer.PushSettings(cmd.Context(), name, settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pushed settings to %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&index, "index", "", "index name (default from config)")
	cmd.Flags().StringVar(&settingsDir, "settings-dir", "", "directory with <index>-settings.json files (default from config)")

	return cmd
}

func newTestConnectionCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Verify the search index credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			comps, err := opts.setup()
			if err != nil {
				return err
			}
			defer comps.Close()

			checkErr := comps.conn.Check(cmd.Context())
			if err := cli.WriteConnection(cmd.OutOrStdout(), comps.conn.Status(), format); err != nil {
				return err
			}
			if checkErr != nil {
				return fmt.Errorf("%w: %w", indexer.ErrNotConnected, checkErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")

	return cmd
}
