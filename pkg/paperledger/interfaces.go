package paperledger

import (
	"context"
	"io"
	"time"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Name identifies the backend in errors and logs
	Name() string

	// URI returns the durable locator for a key, e.g. s3://bucket/key
	URI(objectKey string) string

	// UploadWithParams uploads content. With CreateOnly set an existing key
	// is left untouched and ErrObjectExists is returned.
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// UploadParams carries optional attributes for an upload.
type UploadParams struct {
	ObjectKey  string
	MimeType   string
	CreateOnly bool
}

// ObjectMeta describes a stored object.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// Repository defines the interface for document, work, provenance and metrics persistence.
//
// Each mutating call is its own transaction. Implementations must enforce
// uniqueness of Document.HashData and OddpubMetrics.Article in the store
// itself, never by check-then-insert in application code.
type Repository interface {
	// Document operations
	CreateDocumentIfAbsent(ctx context.Context, hash, uri string) (*Document, InsertResult, error)
	GetDocument(ctx context.Context, id int64) (*Document, error)
	GetDocumentByHash(ctx context.Context, hash string) (*Document, error)
	ListDocumentsByWork(ctx context.Context, workID int64) ([]*Document, error)
	// ListIncompleteDocuments returns documents missing a provenance stamp or
	// a work, ordered by id.
	ListIncompleteDocuments(ctx context.Context) ([]*Document, error)

	// Provenance operations
	CreateProvenance(ctx context.Context, p *Provenance) error
	// RecordBatchProvenance inserts p and stamps the listed documents with its id atomically.
	RecordBatchProvenance(ctx context.Context, p *Provenance, documentIDs []int64) error
	GetProvenance(ctx context.Context, id int64) (*Provenance, error)

	// Work operations
	// CreateInitialWork links a document to a new work unless it already has one.
	// The boolean is true when a work was created.
	CreateInitialWork(ctx context.Context, documentID int64, provenanceID *int64) (*Work, bool, error)
	CreateWork(ctx context.Context, work *Work) error
	GetWork(ctx context.Context, id int64) (*Work, error)
	RelinkDocuments(ctx context.Context, documentIDs []int64, targetWorkID int64) (int, error)
	SetPrimaryDocument(ctx context.Context, workID, documentID int64) error
	ListOrphanWorks(ctx context.Context) ([]*Work, error)

	// Metrics operations
	CreateOddpubMetrics(ctx context.Context, m *OddpubMetrics) error
	GetOddpubMetricsByArticle(ctx context.Context, article string) (*OddpubMetrics, error)
	ListOddpubMetricsByWork(ctx context.Context, workID int64) ([]*OddpubMetrics, error)
	InsertPublications(ctx context.Context, pubs []*RTransparentPublication) (int, error)
}

// Analyzer computes open-data and open-code indicators for a PDF.
type Analyzer interface {
	Analyze(ctx context.Context, filename string, body io.Reader) (*OddpubResult, error)
}

// Validator rejects files that should not be ingested.
type Validator interface {
	Validate(ctx context.Context, path string) error
}

// EventSink receives notifications about ingestion progress
type EventSink interface {
	// DocumentCreated is fired when new content is recorded
	DocumentCreated(ctx context.Context, doc *Document) error

	// DuplicateSkipped is fired when a file's content is already recorded
	DuplicateSkipped(ctx context.Context, path string, existing *Document) error

	// UploadFailed is fired when a file could not be validated or stored
	UploadFailed(ctx context.Context, path string, cause error) error

	// WorkCreated is fired when an initial work is created
	WorkCreated(ctx context.Context, work *Work) error

	// MetricsRecorded is fired when analyzer metrics are attached
	MetricsRecorded(ctx context.Context, m *OddpubMetrics) error

	// BatchCompleted is fired when a batch reaches Done
	BatchCompleted(ctx context.Context, summary *BatchSummary) error
}
