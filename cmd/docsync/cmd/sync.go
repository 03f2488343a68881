package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/docsync/internal/cli"
	"github.com/hyperjump/docsync/internal/models"
	"github.com/hyperjump/docsync/internal/storage"
)

func newSyncCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "sync <id>",
		Short: "Sync one document to the search index",
		Long: `Delete every record of the document from the index and, when it is published
and of an indexable type, write its new records.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if err := comps.requireConnection(ctx); err != nil {
				return err
			}
			out, syncErr := comps.syncer.SyncDocument(ctx, models.ChangeEvent{DocumentID: args[0]})
			if err := cli.WriteOutcome(cmd.OutOrStdout(), out, format); err != nil {
				return err
			}
			return syncErr
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")

	return cmd
}

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	var keep bool
	var output string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a document from the index and the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if err := comps.requireConnection(ctx); err != nil {
				return err
			}
			doc, err := comps.store.GetDocument(ctx, args[0])
			if err != nil {
				return fmt.Errorf("document %s: %w", args[0], err)
			}
			out, err := comps.syncer.Purge(ctx, doc)
			if err != nil {
				return err
			}
			if !keep {
				if err := comps.store.DeleteDocument(ctx, doc.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("failed to delete document: %w", err)
				}
			}
			return cli.WriteOutcome(cmd.OutOrStdout(), out, format)
		},
	}

	cmd.Flags().BoolVar(&keep, "keep-document", false, "only remove the records from the index")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")

	return cmd
}
