package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyperjump/docsync/internal/cli"
	"github.com/hyperjump/docsync/internal/importer"
)

func newImportCmd(opts *globalOptions) *cobra.Command {
	var recursive bool
	var output string

	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import exported files into the store and sync them",
		Long: `Import an HTML or Markdown file, or every supported file in a directory, into the
document store and sync each changed document to the index. Unchanged files are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			comps, err := opts.setup()
			if err != nil {
				return err
			}
			defer comps.Close()

			ctx := cmd.Context()
			if !info.IsDir() {
				res, err := comps.importer.ImportFile(ctx, args[0])
				if err != nil {
					return err
				}
				sum := &importer.Summary{Files: 1}
				switch res.Action {
				case importer.ActionImported:
					sum.Imported = 1
				case importer.ActionUnchanged:
					sum.Unchanged = 1
				}
				return cli.WriteImportSummary(cmd.OutOrStdout(), sum, format)
			}

			if !cmd.Flags().Changed("recursive") {
				recursive = comps.cfg.Watch.RecursiveOrDefault()
			}
			sum, err := comps.importer.ImportDirectory(ctx, args[0], recursive)
			if sum != nil {
				if writeErr := cli.WriteImportSummary(cmd.OutOrStdout(), sum, format); writeErr != nil && err == nil {
					err = writeErr
				}
			}
			if err != nil {
				return err
			}
			if sum.Failed > 0 {
				return fmt.Errorf("import finished with %d failed files", sum.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "descend into subdirectories (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")

	return cmd
}
