package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

func TestS3Backend_BasicConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("DefaultRegion", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, "s3", backend.Name())
	})

	t.Run("URI", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "ledger-pdfs",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "s3://ledger-pdfs/pdfs/a.pdf", backend.URI("pdfs/a.pdf"))
	})

	t.Run("CustomEndpoint", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			Endpoint:        "http://localhost:9000",
			UsePathStyle:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9000", backend.config.Endpoint)
		assert.True(t, backend.config.UsePathStyle)
	})
}

func TestApplySSE(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantSSE   types.ServerSideEncryption
		wantKMSID string
	}{
		{name: "Disabled", config: Config{SSEAlgorithm: "AES256"}},
		{name: "AES256", config: Config{EnableSSE: true, SSEAlgorithm: "AES256"}, wantSSE: types.ServerSideEncryptionAes256},
		{
			name:      "KMSWithKey",
			config:    Config{EnableSSE: true, SSEAlgorithm: "aws:kms", SSEKMSKeyID: "key-1"},
			wantSSE:   types.ServerSideEncryptionAwsKms,
			wantKMSID: "key-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Backend{config: tt.config}
			input := &s3.PutObjectInput{}
			b.applySSE(input)
			assert.Equal(t, tt.wantSSE, input.ServerSideEncryption)
			if tt.wantKMSID == "" {
				assert.Nil(t, input.SSEKMSKeyId)
			} else {
				require.NotNil(t, input.SSEKMSKeyId)
				assert.Equal(t, tt.wantKMSID, *input.SSEKMSKeyId)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(fmt.Errorf("wrapped: %w", &smithy.GenericAPIError{Code: "NoSuchKey"})))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("connection refused")))
}

func TestIsPreconditionFailed(t *testing.T) {
	assert.True(t, isPreconditionFailed(&smithy.GenericAPIError{Code: "PreconditionFailed"}))
	assert.True(t, isPreconditionFailed(fmt.Errorf("upload: %w", &smithy.GenericAPIError{Code: "ConditionalRequestConflict"})))
	assert.False(t, isPreconditionFailed(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isPreconditionFailed(errors.New("connection reset")))
}

// TestS3Backend_Integration requires a running MinIO instance or S3 credentials
func TestS3Backend_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	endpoint := os.Getenv("AWS_S3_ENDPOINT")
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	bucket := os.Getenv("AWS_S3_BUCKET")

	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		t.Skip("Skipping integration test: S3/MinIO environment variables not set")
	}

	backend, err := New(Config{
		Bucket:                 bucket,
		Region:                 "us-east-1",
		AccessKeyID:            accessKey,
		SecretAccessKey:        secretKey,
		Endpoint:               endpoint,
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err, "Failed to create S3 backend")

	ctx := context.Background()
	objectKey := fmt.Sprintf("test/integration/%d/paper.pdf", time.Now().Unix())
	testData := []byte("%PDF-1.4 integration")

	t.Run("UploadAndDownload", func(t *testing.T) {
		err := backend.UploadWithParams(ctx, bytes.NewReader(testData), paperledger.UploadParams{
			ObjectKey: objectKey,
			MimeType:  paperledger.PDFMimeType,
		})
		require.NoError(t, err)

		reader, err := backend.Download(ctx, objectKey)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, testData, data)
	})

	t.Run("GetObjectMeta", func(t *testing.T) {
		meta, err := backend.GetObjectMeta(ctx, objectKey)
		require.NoError(t, err)
		assert.Equal(t, int64(len(testData)), meta.Size)
		assert.Equal(t, paperledger.PDFMimeType, meta.ContentType)
		assert.NotEmpty(t, meta.ETag)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := backend.GetObjectMeta(ctx, "nonexistent/object.pdf")
		assert.ErrorIs(t, err, paperledger.ErrObjectNotFound)
	})

	t.Run("CreateOnly", func(t *testing.T) {
		err := backend.UploadWithParams(ctx, bytes.NewReader([]byte("%PDF-1.4 other")), paperledger.UploadParams{
			ObjectKey:  objectKey,
			MimeType:   paperledger.PDFMimeType,
			CreateOnly: true,
		})
		assert.ErrorIs(t, err, paperledger.ErrObjectExists)

		meta, err := backend.GetObjectMeta(ctx, objectKey)
		require.NoError(t, err)
		assert.Equal(t, int64(len(testData)), meta.Size)
	})
}
