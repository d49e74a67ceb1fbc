// Package schedule runs inbox ingestion on a cron schedule.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

// DefaultSchedule runs the inbox every fifteen minutes.
const DefaultSchedule = "@every 15m"

// Ingester is the part of paperledger.Service the inbox needs.
type Ingester interface {
	IngestDirectory(ctx context.Context, dir string, opts paperledger.RunOptions) (*paperledger.BatchSummary, error)
}

// Inbox periodically ingests every PDF found in a directory. A tick that
// fires while the previous run is still going is skipped.
type Inbox struct {
	ingester Ingester
	dir      string
	spec     string
	opts     paperledger.RunOptions
	logger   *zap.Logger
	timeout  time.Duration

	cron    *cron.Cron
	running sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithSchedule sets the cron spec, e.g. "0 */2 * * *" or "@every 1h".
func WithSchedule(spec string) Option {
	return func(i *Inbox) {
		if spec != "" {
			i.spec = spec
		}
	}
}

// WithRunOptions sets the provenance comment and personnel for scheduled batches.
func WithRunOptions(opts paperledger.RunOptions) Option {
	return func(i *Inbox) {
		i.opts = opts
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Inbox) {
		i.logger = logger
	}
}

// WithRunTimeout bounds a single run. Zero means no limit.
func WithRunTimeout(d time.Duration) Option {
	return func(i *Inbox) {
		i.timeout = d
	}
}

// NewInbox validates the schedule and returns an Inbox that is not yet started.
func NewInbox(ingester Ingester, dir string, opts ...Option) (*Inbox, error) {
	if dir == "" {
		return nil, paperledger.NewConfigurationError("INBOX_DIR", "inbox directory is required")
	}

	i := &Inbox{
		ingester: ingester,
		dir:      dir,
		spec:     DefaultSchedule,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.opts.Comment == "" {
		i.opts.Comment = "scheduled inbox ingestion"
	}

	i.cron = cron.New()
	if _, err := i.cron.AddFunc(i.spec, i.tick); err != nil {
		return nil, &paperledger.ConfigurationError{Field: "INBOX_SCHEDULE", Err: fmt.Errorf("invalid schedule %q: %w", i.spec, err)}
	}
	return i, nil
}

// Start begins scheduling runs. Runs are cancelled when ctx is done or Stop is called.
func (i *Inbox) Start(ctx context.Context) {
	i.ctx, i.cancel = context.WithCancel(ctx)
	i.logger.Info("inbox scheduled", zap.String("dir", i.dir), zap.String("schedule", i.spec))
	i.cron.Start()
}

// Stop halts scheduling, cancels a run in progress and waits for it to return.
func (i *Inbox) Stop() {
	if i.cancel != nil {
		i.cancel()
	}
	<-i.cron.Stop().Done()
}

func (i *Inbox) tick() {
	ctx := i.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := i.RunOnce(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
		i.logger.Error("inbox run failed", zap.String("dir", i.dir), zap.Error(err))
	}
}

// ErrRunInProgress is returned by RunOnce when another run holds the inbox.
var ErrRunInProgress = errors.New("inbox run already in progress")

// RunOnce ingests the inbox now unless a run is already in progress.
func (i *Inbox) RunOnce(ctx context.Context) (*paperledger.BatchSummary, error) {
	if !i.running.TryLock() {
		i.logger.Warn("previous inbox run still in progress, skipping", zap.String("dir", i.dir))
		return nil, ErrRunInProgress
	}
	defer i.running.Unlock()

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	started := time.Now()
	summary, err := i.ingester.IngestDirectory(ctx, i.dir, i.opts)
	if summary != nil {
		i.logger.Info("inbox run completed",
			zap.String("dir", i.dir),
			zap.Int("new_documents", summary.NewDocuments),
			zap.Int("duplicates_skipped", summary.DuplicatesSkipped),
			zap.Int("failed", summary.Failed),
			zap.Duration("took", time.Since(started)))
	}
	return summary, err
}
