package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

type blockingIngester struct {
	calls       atomic.Int32
	release     chan struct{}
	started     chan struct{}
	startedOnce sync.Once

	mu      sync.Mutex
	lastDir string
	opts    paperledger.RunOptions
}

func (b *blockingIngester) IngestDirectory(ctx context.Context, dir string, opts paperledger.RunOptions) (*paperledger.BatchSummary, error) {
	b.calls.Add(1)
	b.mu.Lock()
	b.lastDir, b.opts = dir, opts
	b.mu.Unlock()
	if b.started != nil {
		b.startedOnce.Do(func() { close(b.started) })
	}
	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &paperledger.BatchSummary{NewDocuments: 1, State: paperledger.BatchStateDone}, nil
}

func TestNewInbox_Validation(t *testing.T) {
	_, err := NewInbox(&blockingIngester{}, "")
	assert.True(t, paperledger.IsConfigurationError(err))

	_, err = NewInbox(&blockingIngester{}, "/data/inbox", WithSchedule("every tuesday"))
	require.Error(t, err)
	assert.True(t, paperledger.IsConfigurationError(err))

	inbox, err := NewInbox(&blockingIngester{}, "/data/inbox")
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, inbox.spec)
}

func TestInbox_RunOnce(t *testing.T) {
	ing := &blockingIngester{}
	inbox, err := NewInbox(ing, "/data/inbox", WithRunOptions(paperledger.RunOptions{Personnel: "cron"}))
	require.NoError(t, err)

	summary, err := inbox.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NewDocuments)
	assert.Equal(t, "/data/inbox", ing.lastDir)
	assert.Equal(t, "cron", ing.opts.Personnel)
	assert.Equal(t, "scheduled inbox ingestion", ing.opts.Comment)
}

func TestInbox_SkipsOverlappingRuns(t *testing.T) {
	ing := &blockingIngester{release: make(chan struct{}), started: make(chan struct{})}
	inbox, err := NewInbox(ing, "/data/inbox")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := inbox.RunOnce(context.Background())
		done <- err
	}()
	<-ing.started

	_, err = inbox.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(ing.release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), ing.calls.Load())
}

func TestInbox_StopCancelsRun(t *testing.T) {
	ing := &blockingIngester{release: make(chan struct{}), started: make(chan struct{})}
	inbox, err := NewInbox(ing, "/data/inbox", WithSchedule("@every 10ms"))
	require.NoError(t, err)

	inbox.Start(context.Background())
	select {
	case <-ing.started:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run did not start")
	}

	stopped := make(chan struct{})
	go func() {
		inbox.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
}
