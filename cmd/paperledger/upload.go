package main

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tendant/paper-ledger/pkg/paperledger"
	"github.com/tendant/paper-ledger/pkg/paperledger/scan"
)

// UploadResult aggregates the batches of one upload run.
type UploadResult struct {
	Found             int64    `json:"found"`
	Batches           int      `json:"batches"`
	Uploaded          int      `json:"uploaded"`
	NewDocuments      int      `json:"new_documents"`
	DuplicatesSkipped int      `json:"duplicates_skipped"`
	Failed            int      `json:"failed"`
	ProvenanceIDs     []int64  `json:"provenance_ids"`
	FailedFiles       []string `json:"failed_files,omitempty"`
	DryRun            bool     `json:"dry_run,omitempty"`
}

func (r *UploadResult) add(s *paperledger.BatchSummary) {
	r.Batches++
	r.Uploaded += s.Uploaded
	r.NewDocuments += s.NewDocuments
	r.DuplicatesSkipped += s.DuplicatesSkipped
	r.Failed += s.Failed
	r.FailedFiles = append(r.FailedFiles, s.FailedFiles...)
	if s.ProvenanceID != nil {
		r.ProvenanceIDs = append(r.ProvenanceIDs, *s.ProvenanceID)
	}
}

func (c *cli) uploadCmd() *cobra.Command {
	var (
		opts      paperledger.RunOptions
		recursive bool
		batchSize int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "upload <dir>",
		Short: "Upload the PDFs in a directory as one batch",
		Long: `Upload every *.pdf in a directory, record new content as documents,
write one provenance record for the batch and create an initial work per
new document. Files whose content is already recorded are skipped.

With --batch-size, files are split into several batches, each with its own
provenance record. Failures of individual files are logged and do not
change the exit status; a missing directory does.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, _, closeFn, err := c.service(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			size := batchSize
			if size <= 0 {
				size = math.MaxInt
			}

			result := &UploadResult{DryRun: dryRun}
			processor := scan.BatchFunc(func(ctx context.Context, paths []string) error {
				summary, err := svc.IngestFiles(ctx, paths, opts)
				if summary == nil {
					return err
				}
				result.add(summary)
				if err != nil {
					c.logger.Error("batch finished with persistence errors", zap.Error(err))
				}
				return nil
			})

			scanned, err := scan.New(c.logger).Scan(ctx, scan.ScanOptions{
				Root:      args[0],
				Find:      scan.FindOptions{Recursive: recursive},
				Processor: processor,
				BatchSize: size,
				DryRun:    dryRun,
			})
			if err != nil {
				if errors.Is(err, scan.ErrNotDirectory) {
					return fmt.Errorf("%w: %s", paperledger.ErrDirectoryNotFound, args[0])
				}
				return err
			}
			result.Found = scanned.TotalFound
			if scanned.TotalFailed > 0 {
				result.Failed += int(scanned.TotalFailed)
				result.FailedFiles = append(result.FailedFiles, scanned.FailedPaths...)
			}
			if scanned.TotalFound == 0 {
				c.logger.Warn("no PDF files found", zap.String("dir", args[0]))
			}

			return outputJSON(cmd.OutOrStdout(), result)
		},
	}

	runOptionFlags(cmd, &opts)
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Files per batch (default: all files in one batch)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the files that would be uploaded")
	return cmd
}
