package paperledger

import (
	"context"

	"go.uber.org/zap"
)

// LoadPublications inserts rtransparent rows in chunks, one transaction per
// chunk, under a single provenance row. Chunks committed before a failure
// stay committed.
func (s *service) LoadPublications(ctx context.Context, pubs []*RTransparentPublication, opts LoadOptions) (*LoadSummary, error) {
	summary := &LoadSummary{Rows: len(pubs)}
	if len(pubs) == 0 {
		return summary, nil
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	prov, err := s.RecordProvenance(ctx, opts.provenance(PipelineRTransparentUpload, s.runContext))
	if err != nil {
		return nil, err
	}
	summary.ProvenanceID = &prov.ID

	log := s.logger.With(zap.Int64("provenance_id", prov.ID), zap.Int("rows", len(pubs)))

	for start := 0; start < len(pubs); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		end := min(start+chunkSize, len(pubs))
		chunk := pubs[start:end]
		for _, pub := range chunk {
			pub.ProvenanceID = &prov.ID
			if opts.CreateWorks && pub.WorkID == nil {
				work := &Work{ProvenanceID: &prov.ID}
				if err := s.repository.CreateWork(ctx, work); err != nil {
					log.Error("failed to create work", zap.Int("row", start), zap.Error(err))
					return summary, err
				}
				pub.WorkID = &work.ID
				summary.WorksCreated++
			}
		}

		n, err := s.repository.InsertPublications(ctx, chunk)
		if err != nil {
			log.Error("failed to insert chunk", zap.Int("start", start), zap.Int("end", end), zap.Error(err))
			return summary, err
		}
		summary.Inserted += n
		summary.Chunks++
		log.Debug("inserted chunk", zap.Int("start", start), zap.Int("end", end))
	}

	log.Info("publications loaded",
		zap.Int("inserted", summary.Inserted),
		zap.Int("chunks", summary.Chunks),
		zap.Int("works_created", summary.WorksCreated))
	return summary, nil
}
