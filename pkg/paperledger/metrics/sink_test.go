package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

func TestSink_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewSink(reg)
	ctx := context.Background()

	doc := &paperledger.Document{ID: 1}
	require.NoError(t, sink.DocumentCreated(ctx, doc))
	require.NoError(t, sink.DocumentCreated(ctx, doc))
	require.NoError(t, sink.DuplicateSkipped(ctx, "a_copy.pdf", doc))
	require.NoError(t, sink.WorkCreated(ctx, &paperledger.Work{ID: 1}))
	require.NoError(t, sink.MetricsRecorded(ctx, &paperledger.OddpubMetrics{}))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.documentsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.duplicatesSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.worksCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.metricsRecorded))
}

func TestSink_UploadFailedKinds(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewSink(reg)
	ctx := context.Background()

	require.NoError(t, sink.UploadFailed(ctx, "a.pdf", &paperledger.StorageError{Backend: "s3", Op: "upload", Err: errors.New("timeout")}))
	require.NoError(t, sink.UploadFailed(ctx, "b.pdf", &paperledger.PersistenceError{Op: "insert", Err: errors.New("conn reset")}))
	require.NoError(t, sink.UploadFailed(ctx, "c.pdf", errors.New("not a PDF file")))
	require.NoError(t, sink.UploadFailed(ctx, "d.pdf", errors.New("not a PDF file")))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.uploadsFailed.WithLabelValues("storage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.uploadsFailed.WithLabelValues("persistence")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.uploadsFailed.WithLabelValues("rejected")))
}

func TestSink_BatchCompleted(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewSink(reg)
	ctx := context.Background()

	require.NoError(t, sink.BatchCompleted(ctx, &paperledger.BatchSummary{Uploaded: 3, NewDocuments: 2, DuplicatesSkipped: 1}))
	require.NoError(t, sink.BatchCompleted(ctx, &paperledger.BatchSummary{Uploaded: 1, DuplicatesSkipped: 1}))
	require.NoError(t, sink.BatchCompleted(ctx, &paperledger.BatchSummary{Uploaded: 1, NewDocuments: 1, Failed: 1}))

	expected := `
# HELP paperledger_batches_completed_total Total number of upload batches that reached done, by outcome.
# TYPE paperledger_batches_completed_total counter
paperledger_batches_completed_total{outcome="no_new_documents"} 1
paperledger_batches_completed_total{outcome="ok"} 1
paperledger_batches_completed_total{outcome="partial"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "paperledger_batches_completed_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(sink.batchFiles))
}

func TestNewSink_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewSink(reg)
	assert.Panics(t, func() { NewSink(reg) })
}
