package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/paper-ledger/pkg/paperledger"
	memorystorage "github.com/tendant/paper-ledger/pkg/paperledger/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	backend := memorystorage.New()
	ctx := context.Background()
	testKey := "pdfs/paper.pdf"
	testData := "%PDF-1.4 test data"

	t.Run("NameAndURI", func(t *testing.T) {
		assert.Equal(t, "memory", backend.Name())
		assert.Equal(t, "memory://pdfs/paper.pdf", backend.URI(testKey))
	})

	t.Run("Upload", func(t *testing.T) {
		err := backend.UploadWithParams(ctx, strings.NewReader(testData), paperledger.UploadParams{ObjectKey: testKey})
		assert.NoError(t, err)
	})

	t.Run("GetObjectMeta", func(t *testing.T) {
		meta, err := backend.GetObjectMeta(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, testKey, meta.Key)
		assert.Equal(t, int64(len(testData)), meta.Size)
		assert.Equal(t, "application/octet-stream", meta.ContentType)
		assert.False(t, meta.UpdatedAt.IsZero())
	})

	t.Run("Download", func(t *testing.T) {
		reader, err := backend.Download(ctx, testKey)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, testData, string(data))
	})

	t.Run("UploadWithParams", func(t *testing.T) {
		err := backend.UploadWithParams(ctx, strings.NewReader(testData), paperledger.UploadParams{
			ObjectKey: "pdfs/other.pdf",
			MimeType:  paperledger.PDFMimeType,
		})
		require.NoError(t, err)

		meta, err := backend.GetObjectMeta(ctx, "pdfs/other.pdf")
		require.NoError(t, err)
		assert.Equal(t, paperledger.PDFMimeType, meta.ContentType)
	})

	t.Run("OverwriteKeepsMimeType", func(t *testing.T) {
		err := backend.UploadWithParams(ctx, strings.NewReader("new bytes"), paperledger.UploadParams{ObjectKey: "pdfs/other.pdf"})
		require.NoError(t, err)

		meta, err := backend.GetObjectMeta(ctx, "pdfs/other.pdf")
		require.NoError(t, err)
		assert.Equal(t, paperledger.PDFMimeType, meta.ContentType)
		assert.Equal(t, int64(len("new bytes")), meta.Size)
	})

	t.Run("CreateOnly", func(t *testing.T) {
		err := backend.UploadWithParams(ctx, strings.NewReader("other bytes"), paperledger.UploadParams{
			ObjectKey:  testKey,
			CreateOnly: true,
		})
		assert.ErrorIs(t, err, paperledger.ErrObjectExists)

		reader, err := backend.Download(ctx, testKey)
		require.NoError(t, err)
		defer reader.Close()
		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, testData, string(data))
	})

	t.Run("DownloadMissing", func(t *testing.T) {
		_, err := backend.Download(ctx, "pdfs/missing.pdf")
		assert.ErrorIs(t, err, paperledger.ErrObjectNotFound)
	})

	assert.Equal(t, 2, backend.Len())
}
