package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))
}

func fixtureTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"))
	touch(t, filepath.Join(root, "a.PDF"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "sub", "c.pdf"))
	touch(t, filepath.Join(root, ".hidden", "d.pdf"))
	return root
}

func TestFind(t *testing.T) {
	root := fixtureTree(t)

	t.Run("TopLevelOnly", func(t *testing.T) {
		res, err := Find(root, FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "a.PDF"),
			filepath.Join(root, "b.pdf"),
		}, res.Paths)
		assert.Equal(t, 1, res.Skipped)
	})

	t.Run("Recursive", func(t *testing.T) {
		res, err := Find(root, FindOptions{Recursive: true})
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "a.PDF"),
			filepath.Join(root, "b.pdf"),
			filepath.Join(root, "sub", "c.pdf"),
		}, res.Paths)
	})

	t.Run("OtherExtensions", func(t *testing.T) {
		res, err := Find(root, FindOptions{Extensions: []string{".txt"}})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "notes.txt")}, res.Paths)
	})

	t.Run("MissingRoot", func(t *testing.T) {
		_, err := Find(filepath.Join(root, "nope"), FindOptions{})
		assert.ErrorIs(t, err, ErrNotDirectory)
	})

	t.Run("FileRoot", func(t *testing.T) {
		_, err := Find(filepath.Join(root, "b.pdf"), FindOptions{})
		assert.ErrorIs(t, err, ErrNotDirectory)
	})
}

func TestScanner_Scan(t *testing.T) {
	root := fixtureTree(t)
	ctx := context.Background()

	t.Run("Batches", func(t *testing.T) {
		var batches [][]string
		var progress []int64
		res, err := New(nil).Scan(ctx, ScanOptions{
			Root:      root,
			Find:      FindOptions{Recursive: true},
			BatchSize: 2,
			Processor: BatchFunc(func(ctx context.Context, paths []string) error {
				batches = append(batches, append([]string(nil), paths...))
				return nil
			}),
			OnProgress: func(processed, total int64) {
				progress = append(progress, processed)
				assert.Equal(t, int64(3), total)
			},
		})
		require.NoError(t, err)

		require.Len(t, batches, 2)
		assert.Len(t, batches[0], 2)
		assert.Len(t, batches[1], 1)
		assert.Equal(t, []int64{2, 3}, progress)
		assert.Equal(t, int64(3), res.TotalFound)
		assert.Equal(t, int64(3), res.TotalProcessed)
		assert.Equal(t, int64(1), res.TotalSkipped)
	})

	t.Run("FailedBatchContinues", func(t *testing.T) {
		calls := 0
		res, err := New(nil).Scan(ctx, ScanOptions{
			Root:      root,
			Find:      FindOptions{Recursive: true},
			BatchSize: 2,
			Processor: BatchFunc(func(ctx context.Context, paths []string) error {
				calls++
				if calls == 1 {
					return errors.New("database unavailable")
				}
				return nil
			}),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, int64(2), res.TotalFailed)
		assert.Equal(t, int64(1), res.TotalProcessed)
		assert.Len(t, res.FailedPaths, 2)
	})

	t.Run("DryRun", func(t *testing.T) {
		res, err := New(nil).Scan(ctx, ScanOptions{Root: root, DryRun: true})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.TotalProcessed)
	})

	t.Run("ProcessorRequired", func(t *testing.T) {
		_, err := New(nil).Scan(ctx, ScanOptions{Root: root})
		assert.Error(t, err)
	})

	t.Run("Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := New(nil).Scan(cctx, ScanOptions{Root: root, DryRun: true})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
