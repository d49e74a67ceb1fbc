package paperledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// AnalyzeDirectory sends every PDF in dir to the analyzer and attaches the
// result to the document with the same content. Files whose content was
// never ingested are counted as Unknown and left alone. Articles that already
// have metrics are counted as AlreadyScored. One provenance row is written
// before the first metrics row, so a run that records nothing leaves no trace.
func (s *service) AnalyzeDirectory(ctx context.Context, dir string, opts RunOptions) (*AnalysisSummary, error) {
	if s.analyzer == nil {
		return nil, ErrNoAnalyzer
	}

	paths, err := ListPDFs(dir)
	if err != nil {
		return nil, err
	}

	in := opts.provenance(PipelineOddpubAnalysis, s.runContext)
	if err := in.validate(); err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("dir", dir), zap.Int("files", len(paths)))
	summary := &AnalysisSummary{}
	var prov *Provenance
	var runErr error

	fail := func(path string) {
		summary.Failed++
		summary.FailedFiles = append(summary.FailedFiles, path)
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		hash, err := DigestFile(path)
		if err != nil {
			log.Error("failed to digest file", zap.String("path", path), zap.Error(err))
			fail(path)
			continue
		}

		doc, err := s.repository.GetDocumentByHash(ctx, hash)
		if errors.Is(err, ErrDocumentNotFound) {
			log.Warn("file has not been ingested, skipping", zap.String("path", path))
			summary.Unknown++
			continue
		}
		if err != nil {
			log.Error("failed to look up document", zap.String("path", path), zap.Error(err))
			fail(path)
			runErr = errors.Join(runErr, err)
			continue
		}

		result, err := s.analyzeFile(ctx, path)
		if err != nil {
			log.Error("analysis failed", zap.String("path", path), zap.Error(err))
			fail(path)
			continue
		}
		if result.Article == "" {
			result.Article = filepath.Base(path)
		}

		if _, err := s.repository.GetOddpubMetricsByArticle(ctx, result.Article); err == nil {
			log.Info("metrics already recorded, skipping", zap.String("article", result.Article))
			summary.AlreadyScored++
			continue
		}

		if prov == nil {
			prov = in.record()
			if err := s.repository.CreateProvenance(ctx, prov); err != nil {
				log.Error("failed to record provenance", zap.Error(err))
				return summary, errors.Join(runErr, err)
			}
			summary.ProvenanceID = &prov.ID
		}

		if _, err := s.AttachOddpubMetrics(ctx, doc.ID, result, &prov.ID); err != nil {
			if errors.Is(err, ErrMetricsExist) {
				log.Info("metrics already recorded, skipping", zap.String("article", result.Article))
				summary.AlreadyScored++
				continue
			}
			log.Error("failed to record metrics", zap.String("path", path), zap.Error(err))
			fail(path)
			runErr = errors.Join(runErr, err)
			continue
		}
		summary.Analyzed++
	}

	log.Info("analysis finished",
		zap.Int("analyzed", summary.Analyzed),
		zap.Int("already_scored", summary.AlreadyScored),
		zap.Int("unknown", summary.Unknown),
		zap.Int("failed", summary.Failed))
	return summary, runErr
}

func (s *service) analyzeFile(ctx context.Context, path string) (*OddpubResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.analyzer.Analyze(ctx, filepath.Base(path), f)
}
