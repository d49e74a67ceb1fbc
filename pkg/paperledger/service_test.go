package paperledger_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/paper-ledger/pkg/paperledger"
	"github.com/tendant/paper-ledger/pkg/paperledger/repo/memory"
)

func TestDigest(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", paperledger.DigestBytes(nil))

	dir := writeFiles(t, map[string]string{"a.pdf": "%PDF-1.4 alpha"})
	fromFile, err := paperledger.DigestFile(filepath.Join(dir, "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, paperledger.DigestBytes([]byte("%PDF-1.4 alpha")), fromFile)
	assert.Len(t, fromFile, paperledger.DigestSize)

	fromReader, err := paperledger.ComputeDigest(strings.NewReader("%PDF-1.4 alpha"))
	require.NoError(t, err)
	assert.Equal(t, fromFile, fromReader)

	_, err = paperledger.DigestFile(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestComputeContext(t *testing.T) {
	sum := sha256.Sum256([]byte("lab-01_curator"))
	fingerprint := paperledger.ComputeContext("lab-01", "curator")
	assert.Equal(t, hex.EncodeToString(sum[:]), fingerprint)
	assert.Len(t, fingerprint, paperledger.DigestSize)
	assert.NotEqual(t, paperledger.ComputeContext("lab-01", "curator"), paperledger.ComputeContext("lab-02", "curator"))
}

func TestRecordProvenance(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())

	tests := []struct {
		name    string
		in      paperledger.ProvenanceInput
		wantErr bool
	}{
		{"defaults filled", paperledger.ProvenanceInput{PipelineName: "Manual Fix"}, false},
		{"explicit fields kept", paperledger.ProvenanceInput{PipelineName: "Manual Fix", Version: "2.0", Personnel: "jdoe", Compute: "abc"}, false},
		{"blank pipeline", paperledger.ProvenanceInput{PipelineName: "   "}, true},
		{"pipeline too long", paperledger.ProvenanceInput{PipelineName: strings.Repeat("p", 256)}, true},
		{"version too long", paperledger.ProvenanceInput{PipelineName: "Manual Fix", Version: strings.Repeat("1", 51)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prov, err := svc.RecordProvenance(ctx, tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, paperledger.ErrInvalidProvenance)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, prov.ID)
			assert.Equal(t, "Manual Fix", prov.PipelineName)
			if tt.in.Version == "" {
				assert.Equal(t, paperledger.Version, prov.Version)
				assert.Equal(t, "lab-01", prov.Personnel)
				assert.Equal(t, paperledger.ComputeContext("lab-01", "curator"), prov.Compute)
			} else {
				assert.Equal(t, tt.in.Version, prov.Version)
				assert.Equal(t, tt.in.Personnel, prov.Personnel)
				assert.Equal(t, tt.in.Compute, prov.Compute)
			}

			stored, err := svc.GetProvenance(ctx, prov.ID)
			require.NoError(t, err)
			assert.Equal(t, prov.PipelineName, stored.PipelineName)
		})
	}

	_, err := svc.GetProvenance(ctx, 999)
	assert.ErrorIs(t, err, paperledger.ErrProvenanceNotFound)
}

func TestCreateInitialWork_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())

	doc, _, err := svc.CreateDocumentIfAbsent(ctx, paperledger.DigestBytes([]byte("x")), "memory://pdfs/x.pdf")
	require.NoError(t, err)

	work, err := svc.CreateInitialWork(ctx, doc.ID, nil)
	require.NoError(t, err)
	again, err := svc.CreateInitialWork(ctx, doc.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, work.ID, again.ID)

	_, err = svc.CreateInitialWork(ctx, 999, nil)
	assert.ErrorIs(t, err, paperledger.ErrDocumentNotFound)
}

func TestRelinkAndOrphans(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())
	dir := writeFiles(t, abCopy)

	summary, err := svc.IngestDirectory(ctx, dir, paperledger.RunOptions{})
	require.NoError(t, err)
	docA, docB := summary.DocumentIDs[0], summary.DocumentIDs[1]
	workA, workB := summary.WorkIDs[0], summary.WorkIDs[1]

	orphans, err := svc.ListOrphanWorks(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	result, err := svc.Relink(ctx, []int64{docB, docB}, workA)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Requested)
	assert.Equal(t, 1, result.Changed)

	result, err = svc.Relink(ctx, []int64{docA, docB}, workA)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Changed)

	docs, err := svc.ListDocumentsByWork(ctx, workA)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	orphans, err = svc.ListOrphanWorks(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, workB, orphans[0].ID)
	assert.Equal(t, docB, *orphans[0].InitialDocumentID)

	// The orphaned work is kept and can be relinked back.
	result, err = svc.Relink(ctx, []int64{docB}, workB)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Changed)
	orphans, err = svc.ListOrphanWorks(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	_, err = svc.Relink(ctx, []int64{docA}, 999)
	assert.ErrorIs(t, err, paperledger.ErrWorkNotFound)
	_, err = svc.Relink(ctx, []int64{999}, workA)
	assert.ErrorIs(t, err, paperledger.ErrDocumentNotFound)

	empty, err := svc.Relink(ctx, nil, workA)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Requested)

	_, err = svc.ListDocumentsByWork(ctx, 999)
	assert.ErrorIs(t, err, paperledger.ErrWorkNotFound)
}

func TestSetPrimaryDocument(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())
	summary, err := svc.IngestDirectory(ctx, writeFiles(t, abCopy), paperledger.RunOptions{})
	require.NoError(t, err)
	docA, docB := summary.DocumentIDs[0], summary.DocumentIDs[1]
	workA := summary.WorkIDs[0]

	_, err = svc.SetPrimaryDocument(ctx, workA, docB)
	assert.ErrorIs(t, err, paperledger.ErrDocumentNotLinked)

	_, err = svc.Relink(ctx, []int64{docB}, workA)
	require.NoError(t, err)

	work, err := svc.SetPrimaryDocument(ctx, workA, docB)
	require.NoError(t, err)
	assert.Equal(t, docB, *work.PrimaryDocumentID)
	assert.Equal(t, docA, *work.InitialDocumentID)
}

// stubAnalyzer scores files by name and fails for the ones listed.
type stubAnalyzer struct {
	fail  map[string]bool
	calls int
}

func (s *stubAnalyzer) Analyze(ctx context.Context, filename string, body io.Reader) (*paperledger.OddpubResult, error) {
	s.calls++
	if _, err := io.Copy(io.Discard, body); err != nil {
		return nil, err
	}
	if s.fail[filename] {
		return nil, errors.New("analyzer returned 500")
	}
	return &paperledger.OddpubResult{
		Article:    strings.TrimSuffix(filename, ".pdf") + ".txt",
		IsOpenData: strings.HasPrefix(filename, "a"),
	}, nil
}

func TestAnalyzeDirectory(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	analyzer := &stubAnalyzer{fail: map[string]bool{"b.pdf": true}}
	svc := newTestService(t, repo, paperledger.WithAnalyzer(analyzer))

	ingested, err := svc.IngestDirectory(ctx, writeFiles(t, map[string]string{
		"a.pdf": "%PDF-1.4 alpha",
		"b.pdf": "%PDF-1.4 beta",
	}), paperledger.RunOptions{})
	require.NoError(t, err)

	dir := writeFiles(t, map[string]string{
		"a.pdf":     "%PDF-1.4 alpha",
		"b.pdf":     "%PDF-1.4 beta",
		"fresh.pdf": "%PDF-1.4 never uploaded",
	})

	summary, err := svc.AnalyzeDirectory(ctx, dir, paperledger.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Analyzed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Unknown)
	require.NotNil(t, summary.ProvenanceID)

	prov, err := svc.GetProvenance(ctx, *summary.ProvenanceID)
	require.NoError(t, err)
	assert.Equal(t, paperledger.PipelineOddpubAnalysis, prov.PipelineName)

	metrics, err := svc.ListOddpubMetricsByWork(ctx, ingested.WorkIDs[0])
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "a.txt", metrics[0].Article)
	assert.True(t, metrics[0].IsOpenData)
	assert.Equal(t, ingested.DocumentIDs[0], *metrics[0].DocumentID)
	assert.Equal(t, *summary.ProvenanceID, *metrics[0].ProvenanceID)

	// A second run records nothing new and leaves no provenance behind.
	_, _, before := repo.Counts()
	again, err := svc.AnalyzeDirectory(ctx, dir, paperledger.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Analyzed)
	assert.Equal(t, 1, again.AlreadyScored)
	assert.Nil(t, again.ProvenanceID)
	_, _, after := repo.Counts()
	assert.Equal(t, before, after)
}

func TestAnalyzeDirectory_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())
	_, err := svc.AnalyzeDirectory(ctx, t.TempDir(), paperledger.RunOptions{})
	assert.ErrorIs(t, err, paperledger.ErrNoAnalyzer)

	svc = newTestService(t, memory.New(), paperledger.WithAnalyzer(&stubAnalyzer{}))
	_, err = svc.AnalyzeDirectory(ctx, filepath.Join(t.TempDir(), "missing"), paperledger.RunOptions{})
	assert.ErrorIs(t, err, paperledger.ErrDirectoryNotFound)
}

func TestAttachOddpubMetrics_WriteOnce(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())
	doc, _, err := svc.CreateDocumentIfAbsent(ctx, paperledger.DigestBytes([]byte("x")), "memory://pdfs/x.pdf")
	require.NoError(t, err)

	_, err = svc.AttachOddpubMetrics(ctx, doc.ID, &paperledger.OddpubResult{Article: "x.txt"}, nil)
	require.NoError(t, err)
	_, err = svc.AttachOddpubMetrics(ctx, doc.ID, &paperledger.OddpubResult{Article: "x.txt"}, nil)
	assert.ErrorIs(t, err, paperledger.ErrMetricsExist)

	_, err = svc.AttachOddpubMetrics(ctx, doc.ID, &paperledger.OddpubResult{}, nil)
	assert.Error(t, err)
	_, err = svc.AttachOddpubMetrics(ctx, 999, &paperledger.OddpubResult{Article: "y.txt"}, nil)
	assert.ErrorIs(t, err, paperledger.ErrDocumentNotFound)
}

func TestLoadPublications(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	svc := newTestService(t, repo)

	pubs := make([]*paperledger.RTransparentPublication, 5)
	for i := range pubs {
		title := fmt.Sprintf("Paper %d", i)
		pubs[i] = &paperledger.RTransparentPublication{Title: &title}
	}

	summary, err := svc.LoadPublications(ctx, pubs, paperledger.LoadOptions{ChunkSize: 2, CreateWorks: true})
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Rows)
	assert.Equal(t, 5, summary.Inserted)
	assert.Equal(t, 3, summary.Chunks)
	assert.Equal(t, 5, summary.WorksCreated)
	require.NotNil(t, summary.ProvenanceID)

	stored := repo.Publications()
	require.Len(t, stored, 5)
	for _, pub := range stored {
		assert.Equal(t, *summary.ProvenanceID, *pub.ProvenanceID)
		require.NotNil(t, pub.WorkID)
		work, err := svc.GetWork(ctx, *pub.WorkID)
		require.NoError(t, err)
		assert.Nil(t, work.InitialDocumentID)
	}

	prov, err := svc.GetProvenance(ctx, *summary.ProvenanceID)
	require.NoError(t, err)
	assert.Equal(t, paperledger.PipelineRTransparentUpload, prov.PipelineName)

	// Document-less works are never orphans.
	orphans, err := svc.ListOrphanWorks(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	empty, err := svc.LoadPublications(ctx, nil, paperledger.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Rows)
	assert.Nil(t, empty.ProvenanceID)
}
