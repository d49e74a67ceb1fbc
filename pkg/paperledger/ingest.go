package paperledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendant/paper-ledger/pkg/paperledger/scan"
)

// ListPDFs returns the *.pdf files directly inside dir, sorted by name.
// The extension match is case-insensitive.
func ListPDFs(dir string) ([]string, error) {
	found, err := scan.Find(dir, scan.FindOptions{Extensions: []string{".pdf"}})
	if err != nil {
		if errors.Is(err, scan.ErrNotDirectory) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return nil, err
	}
	return found.Paths, nil
}

func (s *service) IngestDirectory(ctx context.Context, dir string, opts RunOptions) (*BatchSummary, error) {
	paths, err := ListPDFs(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		s.logger.Warn("no PDF files found", zap.String("dir", dir))
		return &BatchSummary{State: BatchStateDone}, nil
	}
	return s.IngestFiles(ctx, paths, opts)
}

type uploadedFile struct {
	path string
	hash string
	uri  string
}

// IngestFiles runs one batch over paths. Storage failures and duplicate
// content are per-item and never abort the batch. Persistence failures fail
// only their item; they are joined into the returned error while the
// partial summary is still returned. Nothing already committed is rolled
// back.
func (s *service) IngestFiles(ctx context.Context, paths []string, opts RunOptions) (*BatchSummary, error) {
	if s.store == nil {
		return nil, NewConfigurationError("storage", "a blob store is required for ingestion")
	}

	in := opts.provenance(PipelineDocumentUpload, s.runContext)
	if err := in.validate(); err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("batch", uuid.NewString()), zap.Int("files", len(paths)))
	summary := &BatchSummary{State: BatchStateUploading}
	var batchErr error

	fail := func(path string, cause error) {
		summary.Failed++
		summary.FailedFiles = append(summary.FailedFiles, path)
		s.notify("upload_failed", func(e EventSink) error { return e.UploadFailed(ctx, path, cause) })
	}

	var uploaded []uploadedFile
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if s.validator != nil {
			if err := s.validator.Validate(ctx, path); err != nil {
				log.Error("rejected file", zap.String("path", path), zap.Error(err))
				fail(path, err)
				continue
			}
		}

		hash, err := DigestFile(path)
		if err != nil {
			log.Error("failed to digest file", zap.String("path", path), zap.Error(err))
			fail(path, err)
			continue
		}

		uri, err := s.store.Store(ctx, path, hash)
		if err != nil {
			log.Error("failed to upload file", zap.String("path", path), zap.Error(err))
			fail(path, err)
			continue
		}
		summary.Uploaded++
		uploaded = append(uploaded, uploadedFile{path: path, hash: hash, uri: uri})
	}

	summary.State = BatchStateRecording
	var created []*Document
	for _, f := range uploaded {
		if err := ctx.Err(); err != nil {
			return summary, errors.Join(batchErr, err)
		}

		hash := f.hash
		doc, result, err := s.CreateDocumentIfAbsent(ctx, hash, f.uri)
		if err != nil {
			log.Error("failed to record document", zap.String("path", f.path), zap.Error(err))
			fail(f.path, err)
			batchErr = errors.Join(batchErr, err)
			continue
		}
		if result == InsertExisting {
			log.Warn("document with hash already exists, skipping",
				zap.String("hash", hash),
				zap.String("path", f.path),
				zap.Int64("document_id", doc.ID))
			summary.DuplicatesSkipped++
			s.notify("duplicate_skipped", func(e EventSink) error { return e.DuplicateSkipped(ctx, f.path, doc) })
			continue
		}
		created = append(created, doc)
		summary.NewDocuments++
		summary.DocumentIDs = append(summary.DocumentIDs, doc.ID)
	}

	if len(created) == 0 {
		summary.State = BatchStateDone
		log.Info("batch finished without new documents",
			zap.Int("uploaded", summary.Uploaded),
			zap.Int("duplicates_skipped", summary.DuplicatesSkipped),
			zap.Int("failed", summary.Failed))
		s.notify("batch_completed", func(e EventSink) error { return e.BatchCompleted(ctx, summary) })
		return summary, batchErr
	}

	prov := in.record()
	if err := s.repository.RecordBatchProvenance(ctx, prov, summary.DocumentIDs); err != nil {
		log.Error("failed to record provenance", zap.Error(err))
		return summary, errors.Join(batchErr, err)
	}
	summary.ProvenanceID = &prov.ID
	for _, doc := range created {
		doc.ProvenanceID = &prov.ID
	}

	summary.State = BatchStateLinking
	for _, doc := range created {
		work, err := s.CreateInitialWork(ctx, doc.ID, &prov.ID)
		if err != nil {
			log.Error("failed to create initial work", zap.Int64("document_id", doc.ID), zap.Error(err))
			batchErr = errors.Join(batchErr, err)
			continue
		}
		doc.WorkID = &work.ID
		summary.WorkIDs = append(summary.WorkIDs, work.ID)
	}

	summary.State = BatchStateDone
	log.Info("batch finished",
		zap.Int64("provenance_id", prov.ID),
		zap.Int("uploaded", summary.Uploaded),
		zap.Int("new_documents", summary.NewDocuments),
		zap.Int("duplicates_skipped", summary.DuplicatesSkipped),
		zap.Int("failed", summary.Failed))
	s.notify("batch_completed", func(e EventSink) error { return e.BatchCompleted(ctx, summary) })

	return summary, batchErr
}
