package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tendant/paper-ledger/pkg/paperledger"
)

// Repository implements paperledger.Repository using in-memory storage.
// A single mutex serializes writers, which gives the same single-winner
// behaviour for duplicate hashes as the unique index in Postgres.
type Repository struct {
	mu           sync.RWMutex
	documents    map[int64]*paperledger.Document
	docsByHash   map[string]int64
	works        map[int64]*paperledger.Work
	provenance   map[int64]*paperledger.Provenance
	oddpub       map[int64]*paperledger.OddpubMetrics
	oddpubByArt  map[string]int64
	publications []*paperledger.RTransparentPublication

	nextDocumentID    int64
	nextWorkID        int64
	nextProvenanceID  int64
	nextMetricsID     int64
	nextPublicationID int64

	now func() time.Time
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		documents:   make(map[int64]*paperledger.Document),
		docsByHash:  make(map[string]int64),
		works:       make(map[int64]*paperledger.Work),
		provenance:  make(map[int64]*paperledger.Provenance),
		oddpub:      make(map[int64]*paperledger.OddpubMetrics),
		oddpubByArt: make(map[string]int64),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var _ paperledger.Repository = (*Repository)(nil)

// Document operations

func (r *Repository) CreateDocumentIfAbsent(ctx context.Context, hash, uri string) (*paperledger.Document, paperledger.InsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.docsByHash[hash]; exists {
		docCopy := *r.documents[id]
		return &docCopy, paperledger.InsertExisting, nil
	}

	r.nextDocumentID++
	doc := &paperledger.Document{
		ID:        r.nextDocumentID,
		HashData:  hash,
		S3URI:     uri,
		CreatedAt: r.now(),
	}
	r.documents[doc.ID] = doc
	r.docsByHash[hash] = doc.ID

	docCopy := *doc
	return &docCopy, paperledger.InsertCreated, nil
}

func (r *Repository) GetDocument(ctx context.Context, id int64) (*paperledger.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.documents[id]
	if !exists {
		return nil, paperledger.ErrDocumentNotFound
	}
	docCopy := *doc
	return &docCopy, nil
}

func (r *Repository) GetDocumentByHash(ctx context.Context, hash string) (*paperledger.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.docsByHash[hash]
	if !exists {
		return nil, paperledger.ErrDocumentNotFound
	}
	docCopy := *r.documents[id]
	return &docCopy, nil
}

func (r *Repository) ListDocumentsByWork(ctx context.Context, workID int64) ([]*paperledger.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*paperledger.Document
	for _, doc := range r.documents {
		if doc.WorkID != nil && *doc.WorkID == workID {
			docCopy := *doc
			result = append(result, &docCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *Repository) ListIncompleteDocuments(ctx context.Context) ([]*paperledger.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*paperledger.Document
	for _, doc := range r.documents {
		if doc.ProvenanceID == nil || doc.WorkID == nil {
			docCopy := *doc
			result = append(result, &docCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Provenance operations

func (r *Repository) CreateProvenance(ctx context.Context, p *paperledger.Provenance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertProvenance(p)
	return nil
}

func (r *Repository) insertProvenance(p *paperledger.Provenance) {
	r.nextProvenanceID++
	p.ID = r.nextProvenanceID
	p.CreatedAt = r.now()

	pCopy := *p
	r.provenance[p.ID] = &pCopy
}

func (r *Repository) RecordBatchProvenance(ctx context.Context, p *paperledger.Provenance, documentIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range documentIDs {
		if _, exists := r.documents[id]; !exists {
			return fmt.Errorf("stamp document %d: %w", id, paperledger.ErrDocumentNotFound)
		}
	}

	r.insertProvenance(p)
	for _, id := range documentIDs {
		pid := p.ID
		r.documents[id].ProvenanceID = &pid
	}
	return nil
}

func (r *Repository) GetProvenance(ctx context.Context, id int64) (*paperledger.Provenance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.provenance[id]
	if !exists {
		return nil, paperledger.ErrProvenanceNotFound
	}
	pCopy := *p
	return &pCopy, nil
}

// Work operations

func (r *Repository) CreateInitialWork(ctx context.Context, documentID int64, provenanceID *int64) (*paperledger.Work, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, exists := r.documents[documentID]
	if !exists {
		return nil, false, paperledger.ErrDocumentNotFound
	}
	if doc.WorkID != nil {
		if work, ok := r.works[*doc.WorkID]; ok {
			workCopy := *work
			return &workCopy, false, nil
		}
	}

	now := r.now()
	r.nextWorkID++
	work := &paperledger.Work{
		ID:                r.nextWorkID,
		CreatedAt:         now,
		ModifiedAt:        now,
		InitialDocumentID: paperledger.Int64Ptr(documentID),
		PrimaryDocumentID: paperledger.Int64Ptr(documentID),
		ProvenanceID:      copyID(provenanceID),
	}
	r.works[work.ID] = work
	doc.WorkID = paperledger.Int64Ptr(work.ID)

	workCopy := *work
	return &workCopy, true, nil
}

func (r *Repository) CreateWork(ctx context.Context, work *paperledger.Work) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.nextWorkID++
	work.ID = r.nextWorkID
	work.CreatedAt = now
	work.ModifiedAt = now

	workCopy := *work
	workCopy.InitialDocumentID = copyID(work.InitialDocumentID)
	workCopy.PrimaryDocumentID = copyID(work.PrimaryDocumentID)
	workCopy.ProvenanceID = copyID(work.ProvenanceID)
	r.works[work.ID] = &workCopy
	return nil
}

func (r *Repository) GetWork(ctx context.Context, id int64) (*paperledger.Work, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	work, exists := r.works[id]
	if !exists {
		return nil, paperledger.ErrWorkNotFound
	}
	workCopy := *work
	return &workCopy, nil
}

func (r *Repository) RelinkDocuments(ctx context.Context, documentIDs []int64, targetWorkID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	work, exists := r.works[targetWorkID]
	if !exists {
		return 0, paperledger.ErrWorkNotFound
	}
	for _, id := range documentIDs {
		if _, exists := r.documents[id]; !exists {
			return 0, fmt.Errorf("relink document %d: %w", id, paperledger.ErrDocumentNotFound)
		}
	}

	changed := 0
	for _, id := range documentIDs {
		doc := r.documents[id]
		if doc.WorkID != nil && *doc.WorkID == targetWorkID {
			continue
		}
		doc.WorkID = paperledger.Int64Ptr(targetWorkID)
		changed++
	}
	if changed > 0 {
		work.ModifiedAt = r.now()
	}
	return changed, nil
}

func (r *Repository) SetPrimaryDocument(ctx context.Context, workID, documentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	work, exists := r.works[workID]
	if !exists {
		return paperledger.ErrWorkNotFound
	}
	doc, exists := r.documents[documentID]
	if !exists {
		return paperledger.ErrDocumentNotFound
	}
	if doc.WorkID == nil || *doc.WorkID != workID {
		return paperledger.ErrDocumentNotLinked
	}

	if work.PrimaryDocumentID == nil || *work.PrimaryDocumentID != documentID {
		work.PrimaryDocumentID = paperledger.Int64Ptr(documentID)
		work.ModifiedAt = r.now()
	}
	return nil
}

func (r *Repository) ListOrphanWorks(ctx context.Context) ([]*paperledger.Work, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	referenced := make(map[int64]bool)
	for _, doc := range r.documents {
		if doc.WorkID != nil {
			referenced[*doc.WorkID] = true
		}
	}

	var result []*paperledger.Work
	for id, work := range r.works {
		if work.InitialDocumentID == nil || referenced[id] {
			continue
		}
		workCopy := *work
		result = append(result, &workCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Metrics operations

func (r *Repository) CreateOddpubMetrics(ctx context.Context, m *paperledger.OddpubMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.oddpubByArt[m.Article]; exists {
		return paperledger.ErrMetricsExist
	}

	r.nextMetricsID++
	m.ID = r.nextMetricsID
	mCopy := *m
	r.oddpub[m.ID] = &mCopy
	r.oddpubByArt[m.Article] = m.ID
	return nil
}

func (r *Repository) GetOddpubMetricsByArticle(ctx context.Context, article string) (*paperledger.OddpubMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.oddpubByArt[article]
	if !exists {
		return nil, paperledger.ErrMetricsNotFound
	}
	mCopy := *r.oddpub[id]
	return &mCopy, nil
}

func (r *Repository) ListOddpubMetricsByWork(ctx context.Context, workID int64) ([]*paperledger.OddpubMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*paperledger.OddpubMetrics
	for _, m := range r.oddpub {
		if m.WorkID != nil && *m.WorkID == workID {
			mCopy := *m
			result = append(result, &mCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *Repository) InsertPublications(ctx context.Context, pubs []*paperledger.RTransparentPublication) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, pub := range pubs {
		r.nextPublicationID++
		pub.ID = r.nextPublicationID
		pubCopy := *pub
		r.publications = append(r.publications, &pubCopy)
	}
	return len(pubs), nil
}

// Publications returns a snapshot of stored publication rows. Test helper.
func (r *Repository) Publications() []*paperledger.RTransparentPublication {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*paperledger.RTransparentPublication, len(r.publications))
	for i, pub := range r.publications {
		pubCopy := *pub
		out[i] = &pubCopy
	}
	return out
}

// Counts reports the number of stored documents, works and provenance rows.
func (r *Repository) Counts() (documents, works, provenance int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.documents), len(r.works), len(r.provenance)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
