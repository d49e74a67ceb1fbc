package paperledger

import (
	"context"
	"io"
)

// Service defines the main interface for the paper-ledger library
type Service interface {
	// Ingestion operations
	IngestFiles(ctx context.Context, paths []string, opts RunOptions) (*BatchSummary, error)
	IngestDirectory(ctx context.Context, dir string, opts RunOptions) (*BatchSummary, error)
	// RepairDocuments finishes documents a failed batch left without a
	// provenance stamp or a work. It must not run alongside live batches.
	RepairDocuments(ctx context.Context, opts RunOptions) (*RepairSummary, error)

	// Document operations
	CreateDocumentIfAbsent(ctx context.Context, hash, uri string) (*Document, InsertResult, error)
	GetDocument(ctx context.Context, id int64) (*Document, error)
	GetDocumentByHash(ctx context.Context, hash string) (*Document, error)
	ListDocumentsByWork(ctx context.Context, workID int64) ([]*Document, error)
	// OpenDocumentContent streams a document's stored PDF. The caller closes it.
	OpenDocumentContent(ctx context.Context, id int64) (*Document, io.ReadCloser, error)

	// Provenance operations
	RecordProvenance(ctx context.Context, in ProvenanceInput) (*Provenance, error)
	GetProvenance(ctx context.Context, id int64) (*Provenance, error)

	// Work operations
	CreateInitialWork(ctx context.Context, documentID int64, provenanceID *int64) (*Work, error)
	GetWork(ctx context.Context, id int64) (*Work, error)
	Relink(ctx context.Context, documentIDs []int64, targetWorkID int64) (*RelinkResult, error)
	SetPrimaryDocument(ctx context.Context, workID, documentID int64) (*Work, error)
	ListOrphanWorks(ctx context.Context) ([]*Work, error)

	// Metrics operations
	AttachOddpubMetrics(ctx context.Context, documentID int64, result *OddpubResult, provenanceID *int64) (*OddpubMetrics, error)
	AnalyzeDirectory(ctx context.Context, dir string, opts RunOptions) (*AnalysisSummary, error)
	ListOddpubMetricsByWork(ctx context.Context, workID int64) ([]*OddpubMetrics, error)
	LoadPublications(ctx context.Context, pubs []*RTransparentPublication, opts LoadOptions) (*LoadSummary, error)
}

// RunOptions carries operator supplied provenance details for a run.
// Empty fields fall back to the service's run context.
type RunOptions struct {
	Comment   string
	Personnel string
	Compute   string
}

func (o RunOptions) provenance(pipeline string, rc RunContext) ProvenanceInput {
	in := ProvenanceInput{
		PipelineName: pipeline,
		Comment:      o.Comment,
		Personnel:    o.Personnel,
		Compute:      o.Compute,
	}
	return in.withDefaults(pipeline, rc)
}

// DefaultChunkSize is the number of publication rows inserted per transaction.
const DefaultChunkSize = 1000

// LoadOptions configures a publication metrics load.
type LoadOptions struct {
	RunOptions

	// ChunkSize is the number of rows per insert transaction (default: 1000)
	ChunkSize int

	// CreateWorks creates a document-less work for every row
	CreateWorks bool
}
