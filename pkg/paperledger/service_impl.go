package paperledger

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// DefaultKeyPrefix is the blob key prefix for ingested PDFs.
const DefaultKeyPrefix = "pdfs"

// service implements the Service interface
type service struct {
	repository Repository
	blobStore  BlobStore
	store      *ContentStore
	eventSink  EventSink
	analyzer   Analyzer
	validator  Validator
	logger     *zap.Logger
	runContext RunContext
	keyPrefix  string
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob store ingested files are uploaded to
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithAnalyzer sets the analyzer used by AnalyzeDirectory
func WithAnalyzer(analyzer Analyzer) Option {
	return func(s *service) {
		s.analyzer = analyzer
	}
}

// WithValidator sets a validator that runs before each upload
func WithValidator(validator Validator) Option {
	return func(s *service) {
		s.validator = validator
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *zap.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithRunContext overrides the host and operator stamped on provenance rows
func WithRunContext(rc RunContext) Option {
	return func(s *service) {
		s.runContext = rc
	}
}

// WithKeyPrefix overrides the blob key prefix (default: pdfs)
func WithKeyPrefix(prefix string) Option {
	return func(s *service) {
		s.keyPrefix = prefix
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		keyPrefix: DefaultKeyPrefix,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.runContext == (RunContext{}) {
		s.runContext = DetectRunContext()
	}
	if s.blobStore != nil {
		s.store = NewContentStore(s.blobStore, s.keyPrefix)
	}

	return s, nil
}

// notify delivers an event; sink failures are logged and never fail the caller.
func (s *service) notify(event string, fn func(EventSink) error) {
	if err := fn(s.eventSink); err != nil {
		s.logger.Warn("event sink failed", zap.String("event", event), zap.Error(err))
	}
}

// Document operations

func (s *service) CreateDocumentIfAbsent(ctx context.Context, hash, uri string) (*Document, InsertResult, error) {
	if len(hash) != DigestSize {
		return nil, InsertExisting, fmt.Errorf("invalid content digest %q", hash)
	}
	if uri == "" {
		return nil, InsertExisting, errors.New("storage uri is required")
	}

	doc, result, err := s.repository.CreateDocumentIfAbsent(ctx, hash, uri)
	if err != nil {
		return nil, result, err
	}
	if result == InsertCreated {
		s.notify("document_created", func(e EventSink) error { return e.DocumentCreated(ctx, doc) })
	}
	return doc, result, nil
}

func (s *service) GetDocument(ctx context.Context, id int64) (*Document, error) {
	return s.repository.GetDocument(ctx, id)
}

func (s *service) OpenDocumentContent(ctx context.Context, id int64) (*Document, io.ReadCloser, error) {
	if s.store == nil {
		return nil, nil, NewConfigurationError("storage", "a blob store is required to read documents")
	}
	doc, err := s.repository.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, doc.S3URI)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

func (s *service) GetDocumentByHash(ctx context.Context, hash string) (*Document, error) {
	return s.repository.GetDocumentByHash(ctx, hash)
}

func (s *service) ListDocumentsByWork(ctx context.Context, workID int64) ([]*Document, error) {
	if _, err := s.repository.GetWork(ctx, workID); err != nil {
		return nil, err
	}
	return s.repository.ListDocumentsByWork(ctx, workID)
}

// Provenance operations

func (s *service) RecordProvenance(ctx context.Context, in ProvenanceInput) (*Provenance, error) {
	in = in.withDefaults(in.PipelineName, s.runContext)
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := in.record()
	if err := s.repository.CreateProvenance(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProvenance(ctx context.Context, id int64) (*Provenance, error) {
	return s.repository.GetProvenance(ctx, id)
}

// Work operations

func (s *service) CreateInitialWork(ctx context.Context, documentID int64, provenanceID *int64) (*Work, error) {
	work, created, err := s.repository.CreateInitialWork(ctx, documentID, provenanceID)
	if err != nil {
		return nil, err
	}
	if created {
		s.notify("work_created", func(e EventSink) error { return e.WorkCreated(ctx, work) })
	}
	return work, nil
}

func (s *service) GetWork(ctx context.Context, id int64) (*Work, error) {
	return s.repository.GetWork(ctx, id)
}

func (s *service) Relink(ctx context.Context, documentIDs []int64, targetWorkID int64) (*RelinkResult, error) {
	ids := uniqueIDs(documentIDs)
	result := &RelinkResult{TargetWorkID: targetWorkID, Requested: len(ids)}
	if len(ids) == 0 {
		return result, nil
	}

	changed, err := s.repository.RelinkDocuments(ctx, ids, targetWorkID)
	if err != nil {
		return nil, err
	}
	result.Changed = changed

	s.logger.Info("relinked documents",
		zap.Int64("work_id", targetWorkID),
		zap.Int("requested", result.Requested),
		zap.Int("changed", changed))
	return result, nil
}

func (s *service) SetPrimaryDocument(ctx context.Context, workID, documentID int64) (*Work, error) {
	if err := s.repository.SetPrimaryDocument(ctx, workID, documentID); err != nil {
		return nil, err
	}
	return s.repository.GetWork(ctx, workID)
}

func (s *service) ListOrphanWorks(ctx context.Context) ([]*Work, error) {
	return s.repository.ListOrphanWorks(ctx)
}

// Metrics operations

func (s *service) AttachOddpubMetrics(ctx context.Context, documentID int64, result *OddpubResult, provenanceID *int64) (*OddpubMetrics, error) {
	if result == nil {
		return nil, errors.New("analysis result is required")
	}
	if result.Article == "" {
		return nil, errors.New("article is required")
	}

	doc, err := s.repository.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	m := &OddpubMetrics{
		OddpubResult: *result,
		WorkID:       doc.WorkID,
		DocumentID:   &doc.ID,
		ProvenanceID: provenanceID,
	}
	if err := s.repository.CreateOddpubMetrics(ctx, m); err != nil {
		return nil, err
	}

	s.notify("metrics_recorded", func(e EventSink) error { return e.MetricsRecorded(ctx, m) })
	return m, nil
}

func (s *service) ListOddpubMetricsByWork(ctx context.Context, workID int64) ([]*OddpubMetrics, error) {
	return s.repository.ListOddpubMetricsByWork(ctx, workID)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
