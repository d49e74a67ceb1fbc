package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/paper-ledger/pkg/paperledger"
)

// DBTX is an interface that allows us to use either a connection pool or a transaction.
// Begin on a pgx.Tx opens a savepoint, so every repository method keeps its
// own transaction boundary when the repository is scoped to an outer tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Repository implements paperledger.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var _ paperledger.Repository = (*Repository)(nil)

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "oddpub_metrics_article") {
				return paperledger.ErrMetricsExist
			}
			return &paperledger.PersistenceError{Op: operation, Err: fmt.Errorf("duplicate entry for %s", pgErr.ConstraintName)}
		case "23503": // foreign_key_violation
			return &paperledger.PersistenceError{Op: operation, Err: fmt.Errorf("referenced record not found (%s)", pgErr.ConstraintName)}
		case "23502": // not_null_violation
			return &paperledger.PersistenceError{Op: operation, Err: fmt.Errorf("required field %s is missing", pgErr.ColumnName)}
		case "42P01": // undefined_table
			return &paperledger.PersistenceError{Op: operation, Err: errors.New("table does not exist - database migration required")}
		default:
			return &paperledger.PersistenceError{Op: operation, Err: fmt.Errorf("%s (code: %s)", pgErr.Message, pgErr.Code)}
		}
	}

	return &paperledger.PersistenceError{Op: operation, Err: err}
}

const documentColumns = `id, hash_data, s3uri, created_at, provenance_id, work_id`

func scanDocument(row pgx.Row) (*paperledger.Document, error) {
	var doc paperledger.Document
	err := row.Scan(&doc.ID, &doc.HashData, &doc.S3URI, &doc.CreatedAt, &doc.ProvenanceID, &doc.WorkID)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

const workColumns = `id, created_at, modified_at, initial_document_id, primary_document_id, provenance_id`

func scanWork(row pgx.Row) (*paperledger.Work, error) {
	var w paperledger.Work
	err := row.Scan(&w.ID, &w.CreatedAt, &w.ModifiedAt, &w.InitialDocumentID, &w.PrimaryDocumentID, &w.ProvenanceID)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Document operations

// CreateDocumentIfAbsent inserts a document or returns the row that already
// holds the hash. ON CONFLICT DO NOTHING waits for a concurrent inserter of
// the same hash to finish, so exactly one caller observes InsertCreated.
func (r *Repository) CreateDocumentIfAbsent(ctx context.Context, hash, uri string) (*paperledger.Document, paperledger.InsertResult, error) {
	var (
		doc    *paperledger.Document
		result paperledger.InsertResult
	)

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		inserted, err := scanDocument(tx.QueryRow(ctx, `
			INSERT INTO documents (hash_data, s3uri)
			VALUES ($1, $2)
			ON CONFLICT (hash_data) DO NOTHING
			RETURNING `+documentColumns, hash, uri))
		if err == nil {
			doc, result = inserted, paperledger.InsertCreated
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		existing, err := scanDocument(tx.QueryRow(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE hash_data = $1`, hash))
		if err != nil {
			return err
		}
		doc, result = existing, paperledger.InsertExisting
		return nil
	})
	if err != nil {
		return nil, paperledger.InsertExisting, r.handlePostgresError("create document", err)
	}

	return doc, result, nil
}

func (r *Repository) GetDocument(ctx context.Context, id int64) (*paperledger.Document, error) {
	doc, err := scanDocument(r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paperledger.ErrDocumentNotFound
		}
		return nil, r.handlePostgresError("get document", err)
	}
	return doc, nil
}

func (r *Repository) GetDocumentByHash(ctx context.Context, hash string) (*paperledger.Document, error) {
	doc, err := scanDocument(r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE hash_data = $1`, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paperledger.ErrDocumentNotFound
		}
		return nil, r.handlePostgresError("get document by hash", err)
	}
	return doc, nil
}

func (r *Repository) ListDocumentsByWork(ctx context.Context, workID int64) ([]*paperledger.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE work_id = $1 ORDER BY id`, workID)
	if err != nil {
		return nil, r.handlePostgresError("list documents by work", err)
	}
	defer rows.Close()

	var docs []*paperledger.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan document", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list documents by work", err)
	}
	return docs, nil
}

func (r *Repository) ListIncompleteDocuments(ctx context.Context) ([]*paperledger.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE provenance_id IS NULL OR work_id IS NULL ORDER BY id`)
	if err != nil {
		return nil, r.handlePostgresError("list incomplete documents", err)
	}
	defer rows.Close()

	var docs []*paperledger.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan document", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list incomplete documents", err)
	}
	return docs, nil
}

// Provenance operations

// CreateProvenanceTx inserts p inside tx and fills in its id without
// committing, so callers can reference it before their transaction ends.
func CreateProvenanceTx(ctx context.Context, tx pgx.Tx, p *paperledger.Provenance) error {
	return tx.QueryRow(ctx, `
		INSERT INTO provenance (pipeline_name, version, compute, personnel, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		p.PipelineName, p.Version, p.Compute, p.Personnel, p.Comment,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *Repository) CreateProvenance(ctx context.Context, p *paperledger.Provenance) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return CreateProvenanceTx(ctx, tx, p)
	})
	if err != nil {
		return r.handlePostgresError("create provenance", err)
	}
	return nil
}

func (r *Repository) RecordBatchProvenance(ctx context.Context, p *paperledger.Provenance, documentIDs []int64) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := CreateProvenanceTx(ctx, tx, p); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE documents SET provenance_id = $1 WHERE id = ANY($2)`, p.ID, documentIDs)
		if err != nil {
			return err
		}
		if int(tag.RowsAffected()) != len(documentIDs) {
			return fmt.Errorf("stamped %d of %d documents: %w", tag.RowsAffected(), len(documentIDs), paperledger.ErrDocumentNotFound)
		}
		return nil
	})
	if err != nil {
		p.ID = 0
		if errors.Is(err, paperledger.ErrDocumentNotFound) {
			return err
		}
		return r.handlePostgresError("record batch provenance", err)
	}
	return nil
}

func (r *Repository) GetProvenance(ctx context.Context, id int64) (*paperledger.Provenance, error) {
	var p paperledger.Provenance
	var version, compute, personnel, comment *string
	err := r.db.QueryRow(ctx, `
		SELECT id, pipeline_name, version, compute, personnel, comment, created_at
		FROM provenance WHERE id = $1`, id,
	).Scan(&p.ID, &p.PipelineName, &version, &compute, &personnel, &comment, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paperledger.ErrProvenanceNotFound
		}
		return nil, r.handlePostgresError("get provenance", err)
	}
	p.Version = deref(version)
	p.Compute = deref(compute)
	p.Personnel = deref(personnel)
	p.Comment = deref(comment)
	return &p, nil
}

// Work operations

func (r *Repository) CreateInitialWork(ctx context.Context, documentID int64, provenanceID *int64) (*paperledger.Work, bool, error) {
	var (
		work    *paperledger.Work
		created bool
	)

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var current *int64
		err := tx.QueryRow(ctx,
			`SELECT work_id FROM documents WHERE id = $1 FOR UPDATE`, documentID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return paperledger.ErrDocumentNotFound
			}
			return err
		}

		if current != nil {
			work, err = scanWork(tx.QueryRow(ctx,
				`SELECT `+workColumns+` FROM works WHERE id = $1`, *current))
			return err
		}

		work, err = scanWork(tx.QueryRow(ctx, `
			INSERT INTO works (initial_document_id, primary_document_id, provenance_id)
			VALUES ($1, $1, $2)
			RETURNING `+workColumns, documentID, provenanceID))
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE documents SET work_id = $1 WHERE id = $2`, work.ID, documentID); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		if errors.Is(err, paperledger.ErrDocumentNotFound) {
			return nil, false, err
		}
		return nil, false, r.handlePostgresError("create initial work", err)
	}

	return work, created, nil
}

func (r *Repository) CreateWork(ctx context.Context, work *paperledger.Work) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO works (initial_document_id, primary_document_id, provenance_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, modified_at`,
		work.InitialDocumentID, work.PrimaryDocumentID, work.ProvenanceID,
	).Scan(&work.ID, &work.CreatedAt, &work.ModifiedAt)
	if err != nil {
		return r.handlePostgresError("create work", err)
	}
	return nil
}

func (r *Repository) GetWork(ctx context.Context, id int64) (*paperledger.Work, error) {
	work, err := scanWork(r.db.QueryRow(ctx,
		`SELECT `+workColumns+` FROM works WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paperledger.ErrWorkNotFound
		}
		return nil, r.handlePostgresError("get work", err)
	}
	return work, nil
}

// RelinkDocuments moves the documents onto targetWorkID in one transaction.
// Previous works are left untouched.
func (r *Repository) RelinkDocuments(ctx context.Context, documentIDs []int64, targetWorkID int64) (int, error) {
	var changed int

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM works WHERE id = $1)`, targetWorkID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return paperledger.ErrWorkNotFound
		}

		var found int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM documents WHERE id = ANY($1)`, documentIDs).Scan(&found); err != nil {
			return err
		}
		if found != len(documentIDs) {
			return fmt.Errorf("relink found %d of %d documents: %w", found, len(documentIDs), paperledger.ErrDocumentNotFound)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE documents SET work_id = $1
			WHERE id = ANY($2) AND work_id IS DISTINCT FROM $1`, targetWorkID, documentIDs)
		if err != nil {
			return err
		}
		changed = int(tag.RowsAffected())

		if changed > 0 {
			if _, err := tx.Exec(ctx,
				`UPDATE works SET modified_at = NOW() WHERE id = $1`, targetWorkID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, paperledger.ErrWorkNotFound) || errors.Is(err, paperledger.ErrDocumentNotFound) {
			return 0, err
		}
		return 0, r.handlePostgresError("relink documents", err)
	}

	return changed, nil
}

func (r *Repository) SetPrimaryDocument(ctx context.Context, workID, documentID int64) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var primary *int64
		err := tx.QueryRow(ctx,
			`SELECT primary_document_id FROM works WHERE id = $1 FOR UPDATE`, workID).Scan(&primary)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return paperledger.ErrWorkNotFound
			}
			return err
		}

		var linked *int64
		err = tx.QueryRow(ctx, `SELECT work_id FROM documents WHERE id = $1`, documentID).Scan(&linked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return paperledger.ErrDocumentNotFound
			}
			return err
		}
		if linked == nil || *linked != workID {
			return paperledger.ErrDocumentNotLinked
		}

		if primary != nil && *primary == documentID {
			return nil
		}
		_, err = tx.Exec(ctx, `
			UPDATE works SET primary_document_id = $2, modified_at = NOW()
			WHERE id = $1`, workID, documentID)
		return err
	})
	if err != nil {
		if errors.Is(err, paperledger.ErrWorkNotFound) ||
			errors.Is(err, paperledger.ErrDocumentNotFound) ||
			errors.Is(err, paperledger.ErrDocumentNotLinked) {
			return err
		}
		return r.handlePostgresError("set primary document", err)
	}
	return nil
}

// ListOrphanWorks returns works that were born from a document but no longer
// have any document linked to them.
func (r *Repository) ListOrphanWorks(ctx context.Context) ([]*paperledger.Work, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+workColumns+` FROM works w
		WHERE w.initial_document_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM documents d WHERE d.work_id = w.id)
		ORDER BY w.id`)
	if err != nil {
		return nil, r.handlePostgresError("list orphan works", err)
	}
	defer rows.Close()

	var works []*paperledger.Work
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan work", err)
		}
		works = append(works, w)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list orphan works", err)
	}
	return works, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
