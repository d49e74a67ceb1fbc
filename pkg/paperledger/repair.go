package paperledger

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// RepairDocuments stamps every unstamped document with one "Document Repair"
// provenance row and gives each unlinked document its initial work. Work
// failures are per document and joined into the returned error.
//
// An ingest batch commits its documents before stamping them, so a batch
// still in flight looks incomplete. Run repair only when no batch is.
func (s *service) RepairDocuments(ctx context.Context, opts RunOptions) (*RepairSummary, error) {
	in := opts.provenance(PipelineDocumentRepair, s.runContext)
	if err := in.validate(); err != nil {
		return nil, err
	}

	docs, err := s.repository.ListIncompleteDocuments(ctx)
	if err != nil {
		return nil, err
	}
	summary := &RepairSummary{Incomplete: len(docs)}
	if len(docs) == 0 {
		s.logger.Info("no incomplete documents")
		return summary, nil
	}

	var unstamped []int64
	for _, doc := range docs {
		if doc.ProvenanceID == nil {
			unstamped = append(unstamped, doc.ID)
		}
	}
	if len(unstamped) > 0 {
		prov := in.record()
		if err := s.repository.RecordBatchProvenance(ctx, prov, unstamped); err != nil {
			s.logger.Error("failed to record repair provenance", zap.Error(err))
			return summary, err
		}
		summary.ProvenanceID = &prov.ID
		summary.Stamped = len(unstamped)
		summary.DocumentIDs = unstamped
		for _, doc := range docs {
			if doc.ProvenanceID == nil {
				doc.ProvenanceID = &prov.ID
			}
		}
	}

	var repairErr error
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return summary, errors.Join(repairErr, err)
		}
		if doc.WorkID != nil {
			continue
		}
		work, err := s.CreateInitialWork(ctx, doc.ID, doc.ProvenanceID)
		if err != nil {
			s.logger.Error("failed to create initial work", zap.Int64("document_id", doc.ID), zap.Error(err))
			repairErr = errors.Join(repairErr, err)
			continue
		}
		summary.WorksCreated++
		summary.WorkIDs = append(summary.WorkIDs, work.ID)
	}

	s.logger.Info("repair finished",
		zap.Int("incomplete", summary.Incomplete),
		zap.Int("stamped", summary.Stamped),
		zap.Int("works_created", summary.WorksCreated))
	return summary, repairErr
}
