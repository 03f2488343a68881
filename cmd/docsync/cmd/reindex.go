package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hyperjump/docsync/internal/cli"
	"github.com/hyperjump/docsync/internal/indexer"
)

type reindexFlags struct {
	index    string
	types    []string
	clear    bool
	pageSize int
	output   string
	allSites bool
}

func newReindexCmd(opts *globalOptions) *cobra.Command {
	f := &reindexFlags{}

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from every published document",
		Long: `Page through every published document of the indexable types and replace its
records in the index. Failed documents and pages are reported; the run continues.

With --all-sites every configured site is reindexed in turn.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReindex(cmd, opts, f)
		},
	}

	cmd.Flags().StringVar(&f.index, "index", "", "index name (default from config)")
	cmd.Flags().StringSliceVar(&f.types, "types", nil, "document types to index, comma-separated (default from config)")
	cmd.Flags().BoolVar(&f.clear, "clear", false, "clear the index before writing")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "documents per page (default from config)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "text", "output format: text or json")
	cmd.Flags().BoolVar(&f.allSites, "all-sites", false, "reindex every configured site")

	return cmd
}

func runReindex(cmd *cobra.Command, opts *globalOptions, f *reindexFlags) error {
	format, err := cli.ParseOutputFormat(f.output)
	if err != nil {
		return err
	}
	if f.allSites && (opts.site != "" || f.index != "" || len(f.types) > 0) {
		return errors.New("--all-sites cannot be combined with --site, --index or --types")
	}
	comps, err := opts.setup()
	if err != nil {
		return err
	}
	defer comps.Close()

	if err := comps.lock.TryLock(); err != nil {
		return err
	}

	runs := []indexer.ReindexOptions{{Index: f.index, Types: f.types}}
	if f.allSites {
		if len(comps.cfg.Sites) == 0 {
			return errors.New("no sites configured")
		}
		runs = runs[:0]
		for _, site := range comps.cfg.Sites {
			runs = append(runs, indexer.ReindexOptions{Index: site.Index, Types: site.Types})
		}
	}

	var failed int
	for _, run := range runs {
		run.Clear = f.clear
		run.PageSize = f.pageSize
		report, err := reindexOnce(cmd.Context(), comps.syncer, run, cmd.OutOrStdout(), cmd.ErrOrStderr(), format)
		if err != nil {
			return err
		}
		failed += report.Failed
	}
	if failed > 0 {
		return fmt.Errorf("reindex finished with %d failed documents", failed)
	}
	return nil
}

func reindexOnce(ctx context.Context, syncer *indexer.Syncer, opts indexer.ReindexOptions, out, progress io.Writer, format cli.OutputFormat) (*indexer.Report, error) {
	if format == cli.OutputText {
		p := cli.NewProgress(progress)
		defer p.Finish()
		opts.Observer = p
	}
	report, err := syncer.Reindex(ctx, opts)
	if report != nil {
		if writeErr := cli.WriteReport(out, report, format); writeErr != nil && err == nil {
			err = writeErr
		}
	}
	return report, err
}
