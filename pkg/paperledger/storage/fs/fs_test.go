package fs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)

	ctx := context.Background()
	key := "pdfs/nested/paper.pdf"
	data := []byte("%PDF-1.4 hello fs")

	require.NoError(t, backend.UploadWithParams(ctx, bytes.NewReader(data), paperledger.UploadParams{ObjectKey: key}))

	meta, err := backend.GetObjectMeta(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), meta.Size)
	assert.Equal(t, "application/pdf", meta.ContentType)

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, data, got)

	_, err = backend.Download(ctx, "pdfs/missing.pdf")
	assert.ErrorIs(t, err, paperledger.ErrObjectNotFound)
	_, err = backend.GetObjectMeta(ctx, "pdfs/missing.pdf")
	assert.ErrorIs(t, err, paperledger.ErrObjectNotFound)
}

func TestFSBackend_CreateOnly(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)
	ctx := context.Background()

	params := paperledger.UploadParams{ObjectKey: "pdfs/paper.pdf", CreateOnly: true}
	require.NoError(t, backend.UploadWithParams(ctx, bytes.NewReader([]byte("first")), params))

	err = backend.UploadWithParams(ctx, bytes.NewReader([]byte("second")), params)
	assert.ErrorIs(t, err, paperledger.ErrObjectExists)

	content, err := os.ReadFile(filepath.Join(tmp, "pdfs", "paper.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))

	entries, err := os.ReadDir(filepath.Join(tmp, "pdfs"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFSBackend_URI(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)

	assert.Equal(t, "fs", backend.Name())
	assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(tmp, "pdfs", "a.pdf")), backend.URI("pdfs/a.pdf"))
}

func TestFSBackend_OverwriteLeavesNoTempFiles(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backend.UploadWithParams(ctx, bytes.NewReader([]byte("one")), paperledger.UploadParams{ObjectKey: "a.pdf"}))
	require.NoError(t, backend.UploadWithParams(ctx, bytes.NewReader([]byte("two")), paperledger.UploadParams{ObjectKey: "a.pdf"}))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.pdf", entries[0].Name())

	content, err := os.ReadFile(filepath.Join(tmp, "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(content))
}

func TestFSBackend_RequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base directory is required")
}
