package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrNotDirectory is returned when the scan root is missing or is not a directory.
var ErrNotDirectory = errors.New("scan root is not a directory")

// BatchProcessor handles one batch of file paths.
// Return an error to mark every path in the batch as failed; scanning continues.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, paths []string) error
}

// BatchFunc adapts a function to the BatchProcessor interface.
type BatchFunc func(ctx context.Context, paths []string) error

func (f BatchFunc) ProcessBatch(ctx context.Context, paths []string) error {
	return f(ctx, paths)
}

// FindOptions selects files below a root.
type FindOptions struct {
	// Extensions to match, case-insensitive, with leading dot (default: .pdf)
	Extensions []string

	// Recursive descends into subdirectories. Hidden directories are skipped.
	Recursive bool
}

// FindResult lists matched files in lexical order.
type FindResult struct {
	Paths   []string
	Skipped int
}

// Find lists the files under root whose extension matches opts.
func Find(root string, opts FindOptions) (*FindResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".pdf"}
	}
	match := func(name string) bool {
		ext := filepath.Ext(name)
		for _, e := range exts {
			if strings.EqualFold(ext, e) {
				return true
			}
		}
		return false
	}

	result := &FindResult{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if !opts.Recursive || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !match(d.Name()) {
			result.Skipped++
			return nil
		}
		result.Paths = append(result.Paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	sort.Strings(result.Paths)
	return result, nil
}

// Scanner walks a directory and hands matching files to a processor in batches.
type Scanner struct {
	logger *zap.Logger
}

// New creates a new Scanner instance.
func New(logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{logger: logger}
}

// ScanOptions configures the scan operation.
type ScanOptions struct {
	// Root is the directory to scan
	Root string

	// Find selects which files are processed
	Find FindOptions

	// Processor handles each batch (required unless DryRun is true)
	Processor BatchProcessor

	// BatchSize controls how many files are passed per call (default: 100)
	BatchSize int

	// DryRun reports what would be processed without calling the processor
	DryRun bool

	// OnProgress is called after each batch is processed (optional)
	OnProgress func(processed, total int64)
}

// ScanResult contains statistics about the scan operation.
type ScanResult struct {
	// TotalFound is the number of files matching the options
	TotalFound int64

	// TotalProcessed is the number of files in batches that succeeded
	TotalProcessed int64

	// TotalFailed is the number of files in batches that failed
	TotalFailed int64

	// TotalSkipped is the number of entries that did not match
	TotalSkipped int64

	// FailedPaths lists the files of failed batches
	FailedPaths []string
}

// Scan finds files under opts.Root and processes them in batches. A failed
// batch is recorded and scanning continues with the next one.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{}

	if !opts.DryRun && opts.Processor == nil {
		return result, fmt.Errorf("processor is required when DryRun is false")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	found, err := Find(opts.Root, opts.Find)
	if err != nil {
		return result, err
	}
	result.TotalFound = int64(len(found.Paths))
	result.TotalSkipped = int64(found.Skipped)

	for start := 0; start < len(found.Paths); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch := found.Paths[start:min(start+opts.BatchSize, len(found.Paths))]

		switch {
		case opts.DryRun:
			for _, path := range batch {
				s.logger.Info("dry run, would process", zap.String("path", path))
			}
			result.TotalProcessed += int64(len(batch))
		default:
			if err := opts.Processor.ProcessBatch(ctx, batch); err != nil {
				s.logger.Error("failed to process batch",
					zap.Int("batch_start", start),
					zap.Int("batch_size", len(batch)),
					zap.Error(err))
				result.TotalFailed += int64(len(batch))
				result.FailedPaths = append(result.FailedPaths, batch...)
			} else {
				result.TotalProcessed += int64(len(batch))
			}
		}

		if opts.OnProgress != nil {
			opts.OnProgress(result.TotalProcessed+result.TotalFailed, result.TotalFound)
		}
	}

	return result, nil
}
