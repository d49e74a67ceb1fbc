package paperledger_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/paper-ledger/pkg/paperledger"
	"github.com/tendant/paper-ledger/pkg/paperledger/repo/memory"
)

// flakyRepository fails the next RecordBatchProvenance or CreateInitialWork
// calls while the matching counter is positive.
type flakyRepository struct {
	*memory.Repository
	provenanceFailures atomic.Int32
	workFailures       atomic.Int32
}

func (f *flakyRepository) RecordBatchProvenance(ctx context.Context, p *paperledger.Provenance, documentIDs []int64) error {
	if f.provenanceFailures.Add(-1) >= 0 {
		return &paperledger.PersistenceError{Op: "record batch provenance", Err: errors.New("connection reset by peer")}
	}
	return f.Repository.RecordBatchProvenance(ctx, p, documentIDs)
}

func (f *flakyRepository) CreateInitialWork(ctx context.Context, documentID int64, provenanceID *int64) (*paperledger.Work, bool, error) {
	if f.workFailures.Add(-1) >= 0 {
		return nil, false, &paperledger.PersistenceError{Op: "create initial work", Err: errors.New("connection reset by peer")}
	}
	return f.Repository.CreateInitialWork(ctx, documentID, provenanceID)
}

func TestRepairDocuments_AfterProvenanceFailure(t *testing.T) {
	ctx := context.Background()
	repo := &flakyRepository{Repository: memory.New()}
	repo.provenanceFailures.Store(1)
	svc := newTestService(t, repo)
	dir := writeFiles(t, map[string]string{
		"a.pdf": "%PDF-1.4 alpha",
		"b.pdf": "%PDF-1.4 beta",
	})

	summary, err := svc.IngestDirectory(ctx, dir, paperledger.RunOptions{})
	require.Error(t, err)
	assert.True(t, paperledger.IsPersistenceError(err))
	require.Len(t, summary.DocumentIDs, 2)
	assert.Nil(t, summary.ProvenanceID)

	// Re-running the batch cannot finish these: their content is recorded.
	again, err := svc.IngestDirectory(ctx, dir, paperledger.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, again.DuplicatesSkipped)
	incomplete, err := repo.ListIncompleteDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, incomplete, 2)

	repair, err := svc.RepairDocuments(ctx, paperledger.RunOptions{Comment: "after outage"})
	require.NoError(t, err)
	assert.Equal(t, 2, repair.Incomplete)
	assert.Equal(t, 2, repair.Stamped)
	assert.Equal(t, 2, repair.WorksCreated)
	assert.Equal(t, summary.DocumentIDs, repair.DocumentIDs)
	require.NotNil(t, repair.ProvenanceID)

	prov, err := svc.GetProvenance(ctx, *repair.ProvenanceID)
	require.NoError(t, err)
	assert.Equal(t, paperledger.PipelineDocumentRepair, prov.PipelineName)
	assert.Equal(t, "after outage", prov.Comment)

	for _, id := range summary.DocumentIDs {
		doc, err := svc.GetDocument(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, doc.ProvenanceID)
		assert.Equal(t, *repair.ProvenanceID, *doc.ProvenanceID)
		assert.NotNil(t, doc.WorkID)
	}

	// Nothing is left for a second run.
	repair, err = svc.RepairDocuments(ctx, paperledger.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, repair.Incomplete)
	assert.Nil(t, repair.ProvenanceID)
	_, _, provenance := repo.Counts()
	assert.Equal(t, 1, provenance)
}

func TestRepairDocuments_KeepsBatchProvenance(t *testing.T) {
	ctx := context.Background()
	repo := &flakyRepository{Repository: memory.New()}
	repo.workFailures.Store(1)
	svc := newTestService(t, repo)
	dir := writeFiles(t, map[string]string{
		"a.pdf": "%PDF-1.4 alpha",
		"b.pdf": "%PDF-1.4 beta",
	})

	summary, err := svc.IngestDirectory(ctx, dir, paperledger.RunOptions{})
	require.Error(t, err)
	require.NotNil(t, summary.ProvenanceID)
	assert.Len(t, summary.WorkIDs, 1)

	repair, err := svc.RepairDocuments(ctx, paperledger.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, repair.Incomplete)
	assert.Equal(t, 0, repair.Stamped)
	assert.Nil(t, repair.ProvenanceID)
	require.Len(t, repair.WorkIDs, 1)

	work, err := svc.GetWork(ctx, repair.WorkIDs[0])
	require.NoError(t, err)
	require.NotNil(t, work.ProvenanceID)
	assert.Equal(t, *summary.ProvenanceID, *work.ProvenanceID)

	_, works, provenance := repo.Counts()
	assert.Equal(t, 2, works)
	assert.Equal(t, 1, provenance)
}

func TestRepairDocuments_WorkFailureIsPerDocument(t *testing.T) {
	ctx := context.Background()
	repo := &flakyRepository{Repository: memory.New()}
	svc := newTestService(t, repo)

	for _, content := range []string{"alpha", "beta"} {
		_, _, err := svc.CreateDocumentIfAbsent(ctx, paperledger.DigestBytes([]byte(content)), "memory://pdfs/"+content+".pdf")
		require.NoError(t, err)
	}
	repo.workFailures.Store(1)

	repair, err := svc.RepairDocuments(ctx, paperledger.RunOptions{})
	require.Error(t, err)
	assert.True(t, paperledger.IsPersistenceError(err))
	assert.Equal(t, 2, repair.Stamped)
	assert.Equal(t, 1, repair.WorksCreated)

	repair, err = svc.RepairDocuments(ctx, paperledger.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, repair.Incomplete)
	assert.Equal(t, 0, repair.Stamped)
	assert.Equal(t, 1, repair.WorksCreated)
}
