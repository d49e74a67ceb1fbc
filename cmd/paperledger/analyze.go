package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendant/paper-ledger/pkg/paperledger"
	"github.com/tendant/paper-ledger/pkg/paperledger/rtransparent"
)

func (c *cli) oddpubCmd() *cobra.Command {
	var opts paperledger.RunOptions

	cmd := &cobra.Command{
		Use:   "oddpub <dir>",
		Short: "Score already ingested PDFs with the oddpub service",
		Long: `Send every *.pdf in a directory to the oddpub service at ODDPUB_HOST_API
and attach the result to the document with the same content. PDFs that
were never uploaded and articles that already have metrics are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cfg, closeFn, err := c.service(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if cfg.OddpubHostAPI == "" {
				return paperledger.NewConfigurationError("ODDPUB_HOST_API", "oddpub host is required for analysis")
			}

			summary, err := svc.AnalyzeDirectory(ctx, args[0], opts)
			if summary == nil {
				return err
			}
			if err != nil {
				c.logger.Sugar().Errorf("analysis finished with errors: %v", err)
			}
			return outputJSON(cmd.OutOrStdout(), summary)
		},
	}
	runOptionFlags(cmd, &opts)
	return cmd
}

func (c *cli) rtransparentCmd() *cobra.Command {
	var opts paperledger.LoadOptions

	cmd := &cobra.Command{
		Use:   "rtransparent <file.csv>",
		Short: "Load rtransparent publication metrics from CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pubs, err := rtransparent.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			ctx := cmd.Context()
			svc, _, closeFn, err := c.service(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			summary, err := svc.LoadPublications(ctx, pubs, opts)
			if summary == nil {
				return err
			}
			if err != nil {
				c.logger.Sugar().Errorf("load stopped after %d rows: %v", summary.Inserted, err)
			}
			return outputJSON(cmd.OutOrStdout(), summary)
		},
	}
	runOptionFlags(cmd, &opts.RunOptions)
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", paperledger.DefaultChunkSize, "Rows per insert transaction")
	cmd.Flags().BoolVar(&opts.CreateWorks, "with-works", false, "Create a work for every row")
	return cmd
}
