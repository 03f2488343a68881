package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/docsync/internal/cli"
	"github.com/hyperjump/docsync/internal/models"
	"github.com/hyperjump/docsync/internal/storage"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var check bool
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store, index and connection status",
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

			ctx := cmd.Context()
			if check {
				_ = comps.conn.Check(ctx)
			}
			docs, err := comps.store.CountDocuments(ctx)
			if err != nil {
				return err
			}
			published, err := comps.store.CountByType(ctx, models.StatusPublish)
			if err != nil {
				return err
			}
			usage, err := storage.DiskUsageBytes(comps.cfg.Storage.DatabasePath, comps.cfg.Storage.BleveIndexPath)
			if err != nil {
				comps.logger.Debug("disk usage unavailable", zap.Error(err))
			}
			return cli.WriteStatus(cmd.OutOrStdout(), cli.Status{
				Index:           comps.syncer.IndexName(""),
				IndexableTypes:  comps.syncer.Types(),
				Documents:       docs,
				PublishedByType: published,
				DiskUsageBytes:  usage,
				Connection:      comps.conn.Status(),
			}, format)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "verify the index connection first")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")

	return cmd
}
