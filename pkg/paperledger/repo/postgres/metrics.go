package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/tendant/paper-ledger/pkg/paperledger"
)

const oddpubColumns = `id, article, is_open_data, open_data_category, is_reuse, is_open_code,
	is_open_data_das, is_open_code_cas, das, open_data_statements, cas, open_code_statements,
	work_id, provenance_id, document_id`

func scanOddpub(row pgx.Row) (*paperledger.OddpubMetrics, error) {
	var (
		m                             paperledger.OddpubMetrics
		category, das, dataStatements *string
		cas, codeStatements           *string
		openData, reuse, openCode     *bool
		openDataDAS, openCodeCAS      *bool
	)
	err := row.Scan(&m.ID, &m.Article, &openData, &category, &reuse, &openCode,
		&openDataDAS, &openCodeCAS, &das, &dataStatements, &cas, &codeStatements,
		&m.WorkID, &m.ProvenanceID, &m.DocumentID)
	if err != nil {
		return nil, err
	}
	m.IsOpenData = boolValue(openData)
	m.IsReuse = boolValue(reuse)
	m.IsOpenCode = boolValue(openCode)
	m.IsOpenDataDAS = boolValue(openDataDAS)
	m.IsOpenCodeCAS = boolValue(openCodeCAS)
	m.OpenDataCategory = deref(category)
	m.DAS = deref(das)
	m.OpenDataStatements = deref(dataStatements)
	m.CAS = deref(cas)
	m.OpenCodeStatements = deref(codeStatements)
	return &m, nil
}

// CreateOddpubMetrics inserts a metrics row. A second row for the same
// article returns paperledger.ErrMetricsExist.
func (r *Repository) CreateOddpubMetrics(ctx context.Context, m *paperledger.OddpubMetrics) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO oddpub_metrics (
			article, is_open_data, open_data_category, is_reuse, is_open_code,
			is_open_data_das, is_open_code_cas, das, open_data_statements, cas,
			open_code_statements, work_id, provenance_id, document_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		m.Article, m.IsOpenData, m.OpenDataCategory, m.IsReuse, m.IsOpenCode,
		m.IsOpenDataDAS, m.IsOpenCodeCAS, m.DAS, m.OpenDataStatements, m.CAS,
		m.OpenCodeStatements, m.WorkID, m.ProvenanceID, m.DocumentID,
	).Scan(&m.ID)
	if err != nil {
		return r.handlePostgresError("create oddpub metrics", err)
	}
	return nil
}

func (r *Repository) GetOddpubMetricsByArticle(ctx context.Context, article string) (*paperledger.OddpubMetrics, error) {
	m, err := scanOddpub(r.db.QueryRow(ctx,
		`SELECT `+oddpubColumns+` FROM oddpub_metrics WHERE article = $1`, article))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paperledger.ErrMetricsNotFound
		}
		return nil, r.handlePostgresError("get oddpub metrics", err)
	}
	return m, nil
}

func (r *Repository) ListOddpubMetricsByWork(ctx context.Context, workID int64) ([]*paperledger.OddpubMetrics, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+oddpubColumns+` FROM oddpub_metrics WHERE work_id = $1 ORDER BY id`, workID)
	if err != nil {
		return nil, r.handlePostgresError("list oddpub metrics", err)
	}
	defer rows.Close()

	var result []*paperledger.OddpubMetrics
	for rows.Next() {
		m, err := scanOddpub(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan oddpub metrics", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list oddpub metrics", err)
	}
	return result, nil
}

// InsertPublications copies pubs into rtransparent_publication in one
// transaction.
func (r *Repository) InsertPublications(ctx context.Context, pubs []*paperledger.RTransparentPublication) (int, error) {
	if len(pubs) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(pubs))
	for i, pub := range pubs {
		rows[i] = pub.Values()
	}

	var n int64
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		n, err = tx.CopyFrom(ctx,
			pgx.Identifier{"rtransparent_publication"},
			paperledger.PublicationColumns(),
			pgx.CopyFromRows(rows))
		return err
	})
	if err != nil {
		return 0, r.handlePostgresError("insert publications", err)
	}
	return int(n), nil
}

func boolValue(b *bool) bool {
	return b != nil && *b
}
