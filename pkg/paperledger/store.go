package paperledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// PDFMimeType is the content type ingested files are stored with.
const PDFMimeType = "application/pdf"

// ContentStore uploads local files to a BlobStore under a fixed key prefix.
// It performs no retries and never replaces an object holding different
// content.
type ContentStore struct {
	blobs  BlobStore
	prefix string
}

// NewContentStore creates a ContentStore writing keys as <prefix>/<basename>.
func NewContentStore(blobs BlobStore, prefix string) *ContentStore {
	return &ContentStore{blobs: blobs, prefix: prefix}
}

// Key returns the blob key for a local file.
func (c *ContentStore) Key(localPath string) string {
	return path.Join(c.prefix, filepath.Base(localPath))
}

// Store uploads the file at localPath, whose content digest is hash, and
// returns its storage URI. When the key already holds the same content the
// upload is skipped. When it holds different content the file is refused
// with ErrKeyConflict. Failures are returned as *StorageError.
func (c *ContentStore) Store(ctx context.Context, localPath, hash string) (string, error) {
	key := c.Key(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return "", c.storageError(key, "open", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", c.storageError(key, "open", err)
	}

	found, err := c.holds(ctx, key, hash, info.Size())
	if err != nil {
		return "", err
	}
	if found {
		return c.blobs.URI(key), nil
	}

	err = c.blobs.UploadWithParams(ctx, f, UploadParams{
		ObjectKey:  key,
		MimeType:   PDFMimeType,
		CreateOnly: true,
	})
	if errors.Is(err, ErrObjectExists) {
		// Another writer created the key after the check above.
		found, err = c.holds(ctx, key, hash, info.Size())
		if err != nil {
			return "", err
		}
		if !found {
			return "", c.storageError(key, "upload", ErrKeyConflict)
		}
		return c.blobs.URI(key), nil
	}
	if err != nil {
		return "", c.storageError(key, "upload", err)
	}

	return c.blobs.URI(key), nil
}

// holds reports whether key already stores content with digest hash. A key
// holding other content is a conflict.
func (c *ContentStore) holds(ctx context.Context, key, hash string, size int64) (bool, error) {
	meta, err := c.blobs.GetObjectMeta(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, c.storageError(key, "stat", err)
	}
	if meta.Size != size {
		return false, c.storageError(key, "upload",
			fmt.Errorf("%w: stored %d bytes, file has %d", ErrKeyConflict, meta.Size, size))
	}

	rc, err := c.blobs.Download(ctx, key)
	if err != nil {
		return false, c.storageError(key, "download", err)
	}
	defer rc.Close()

	stored, err := ComputeDigest(rc)
	if err != nil {
		return false, c.storageError(key, "download", err)
	}
	if stored != hash {
		return false, c.storageError(key, "upload",
			fmt.Errorf("%w: stored digest %s", ErrKeyConflict, stored))
	}
	return true, nil
}

// Open returns the stored bytes behind a URI produced by this store's
// backend. URIs of another backend report ErrObjectNotFound.
func (c *ContentStore) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	key, ok := c.keyFromURI(uri)
	if !ok {
		return nil, c.storageError(uri, "download", ErrObjectNotFound)
	}
	rc, err := c.blobs.Download(ctx, key)
	if err != nil {
		return nil, c.storageError(key, "download", err)
	}
	return rc, nil
}

func (c *ContentStore) keyFromURI(uri string) (string, bool) {
	base := c.blobs.URI("")
	rest, ok := strings.CutPrefix(uri, base)
	if !ok {
		return "", false
	}
	if !strings.HasSuffix(base, "/") && !strings.HasPrefix(rest, "/") {
		// file:///data/blobs must not match file:///data/blobs2/...
		return "", false
	}
	key := strings.TrimPrefix(rest, "/")
	return key, key != ""
}

func (c *ContentStore) storageError(key, op string, err error) error {
	return &StorageError{Backend: c.blobs.Name(), Key: key, Op: op, Err: err}
}
