package paperledger

import (
	"context"

	"go.uber.org/zap"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) DocumentCreated(ctx context.Context, doc *Document) error { return nil }

func (n *NoopEventSink) DuplicateSkipped(ctx context.Context, path string, existing *Document) error {
	return nil
}

func (n *NoopEventSink) UploadFailed(ctx context.Context, path string, cause error) error { return nil }

func (n *NoopEventSink) WorkCreated(ctx context.Context, work *Work) error { return nil }

func (n *NoopEventSink) MetricsRecorded(ctx context.Context, m *OddpubMetrics) error { return nil }

func (n *NoopEventSink) BatchCompleted(ctx context.Context, summary *BatchSummary) error { return nil }

// LoggingEventSink logs events at debug level and takes no other action.
// Useful for development and debugging
type LoggingEventSink struct {
	logger *zap.Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger *zap.Logger) EventSink {
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) DocumentCreated(ctx context.Context, doc *Document) error {
	l.logger.Debug("document created", zap.Int64("document_id", doc.ID), zap.String("hash", doc.HashData))
	return nil
}

func (l *LoggingEventSink) DuplicateSkipped(ctx context.Context, path string, existing *Document) error {
	l.logger.Debug("duplicate skipped", zap.String("path", path), zap.Int64("document_id", existing.ID))
	return nil
}

func (l *LoggingEventSink) UploadFailed(ctx context.Context, path string, cause error) error {
	l.logger.Debug("upload failed", zap.String("path", path), zap.Error(cause))
	return nil
}

func (l *LoggingEventSink) WorkCreated(ctx context.Context, work *Work) error {
	l.logger.Debug("work created", zap.Int64("work_id", work.ID))
	return nil
}

func (l *LoggingEventSink) MetricsRecorded(ctx context.Context, m *OddpubMetrics) error {
	l.logger.Debug("metrics recorded", zap.String("article", m.Article))
	return nil
}

func (l *LoggingEventSink) BatchCompleted(ctx context.Context, summary *BatchSummary) error {
	l.logger.Debug("batch completed",
		zap.Int("uploaded", summary.Uploaded),
		zap.Int("new_documents", summary.NewDocuments),
		zap.Int("duplicates_skipped", summary.DuplicatesSkipped),
		zap.Int("failed", summary.Failed))
	return nil
}

// MultiEventSink fans events out to several sinks. The first error is returned
// after every sink has been notified.
type MultiEventSink []EventSink

func (m MultiEventSink) each(fn func(EventSink) error) error {
	var first error
	for _, s := range m {
		if err := fn(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiEventSink) DocumentCreated(ctx context.Context, doc *Document) error {
	return m.each(func(s EventSink) error { return s.DocumentCreated(ctx, doc) })
}

func (m MultiEventSink) DuplicateSkipped(ctx context.Context, path string, existing *Document) error {
	return m.each(func(s EventSink) error { return s.DuplicateSkipped(ctx, path, existing) })
}

func (m MultiEventSink) UploadFailed(ctx context.Context, path string, cause error) error {
	return m.each(func(s EventSink) error { return s.UploadFailed(ctx, path, cause) })
}

func (m MultiEventSink) WorkCreated(ctx context.Context, work *Work) error {
	return m.each(func(s EventSink) error { return s.WorkCreated(ctx, work) })
}

func (m MultiEventSink) MetricsRecorded(ctx context.Context, om *OddpubMetrics) error {
	return m.each(func(s EventSink) error { return s.MetricsRecorded(ctx, om) })
}

func (m MultiEventSink) BatchCompleted(ctx context.Context, summary *BatchSummary) error {
	return m.each(func(s EventSink) error { return s.BatchCompleted(ctx, summary) })
}
