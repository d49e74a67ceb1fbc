// Package metrics exposes ingestion events as Prometheus counters.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

const namespace = "paperledger"

// Sink is a paperledger.EventSink that counts events.
type Sink struct {
	documentsCreated  prometheus.Counter
	duplicatesSkipped prometheus.Counter
	uploadsFailed     *prometheus.CounterVec
	worksCreated      prometheus.Counter
	metricsRecorded   prometheus.Counter
	batchesCompleted  *prometheus.CounterVec
	batchFiles        prometheus.Histogram
}

// NewSink creates the collectors and registers them with reg.
func NewSink(reg prometheus.Registerer) *Sink {
	s := &Sink{
		documentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_created_total",
			Help:      "Total number of new documents recorded.",
		}),
		duplicatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_skipped_total",
			Help:      "Total number of files skipped because their content was already recorded.",
		}),
		uploadsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_failed_total",
			Help:      "Total number of files that could not be ingested, by failure kind.",
		}, []string{"kind"}),
		worksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "works_created_total",
			Help:      "Total number of initial works created.",
		}),
		metricsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oddpub_metrics_recorded_total",
			Help:      "Total number of analyzer results attached to documents.",
		}),
		batchesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_completed_total",
			Help:      "Total number of upload batches that reached done, by outcome.",
		}, []string{"outcome"}),
		batchFiles: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_files",
			Help:      "Number of files offered per upload batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 6),
		}),
	}

	reg.MustRegister(
		s.documentsCreated,
		s.duplicatesSkipped,
		s.uploadsFailed,
		s.worksCreated,
		s.metricsRecorded,
		s.batchesCompleted,
		s.batchFiles,
	)
	return s
}

var _ paperledger.EventSink = (*Sink)(nil)

func (s *Sink) DocumentCreated(ctx context.Context, doc *paperledger.Document) error {
	s.documentsCreated.Inc()
	return nil
}

func (s *Sink) DuplicateSkipped(ctx context.Context, path string, existing *paperledger.Document) error {
	s.duplicatesSkipped.Inc()
	return nil
}

func (s *Sink) UploadFailed(ctx context.Context, path string, cause error) error {
	s.uploadsFailed.WithLabelValues(failureKind(cause)).Inc()
	return nil
}

func (s *Sink) WorkCreated(ctx context.Context, work *paperledger.Work) error {
	s.worksCreated.Inc()
	return nil
}

func (s *Sink) MetricsRecorded(ctx context.Context, m *paperledger.OddpubMetrics) error {
	s.metricsRecorded.Inc()
	return nil
}

func (s *Sink) BatchCompleted(ctx context.Context, summary *paperledger.BatchSummary) error {
	outcome := "ok"
	switch {
	case summary.NewDocuments == 0:
		outcome = "no_new_documents"
	case summary.Failed > 0:
		outcome = "partial"
	}
	s.batchesCompleted.WithLabelValues(outcome).Inc()
	s.batchFiles.Observe(float64(summary.Uploaded + summary.Failed))
	return nil
}

func failureKind(err error) string {
	switch {
	case paperledger.IsStorageError(err):
		return "storage"
	case paperledger.IsPersistenceError(err):
		return "persistence"
	default:
		return "rejected"
	}
}
