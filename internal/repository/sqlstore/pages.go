package sqlstore

import (
	"context"
	"database/sql"

	"github.com/kailas-cloud/vecmatch/internal/domain/corpus"
	"github.com/kailas-cloud/vecmatch/internal/domain/query"
)

// CorpusPage returns catalog embeddings ordered by id, limit rows starting at offset.
func (s *Store) CorpusPage(ctx context.Context, offset, limit int) ([]corpus.Entry, error) {
	stmt := `
		SELECT id, master_id, embedding
		FROM catalog_embedding
		ORDER BY id
		LIMIT ` + s.dialect.placeholder(1) + ` OFFSET ` + s.dialect.placeholder(2)

	rows, err := s.db.QueryContext(ctx, stmt, limit, offset)
	if err != nil {
		return nil, wrapf(err, "failed to list catalog embeddings at offset %d", offset)
	}
	defer rows.Close()

	entries := make([]corpus.Entry, 0, limit)
	for rows.Next() {
		var e corpus.Entry
		vs := s.dialect.newScanner()
		if err := rows.Scan(&e.ID, &e.GroupID, vs.dest()); err != nil {
			return nil, wrap(err, "failed to scan catalog embedding")
		}
		if e.Vector, err = vs.vector(); err != nil {
			return nil, wrapf(err, "failed to decode embedding of row %d", e.ID)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "failed to iterate catalog embeddings")
	}
	return entries, nil
}

// QueryPage returns invoice lines ordered by id. A non-zero claimID restricts
// the page to that claim.
func (s *Store) QueryPage(ctx context.Context, offset, limit int, claimID int64) ([]query.Query, error) {
	stmt := `SELECT id, description FROM invoice`
	args := []any{}
	if claimID != 0 {
		args = append(args, claimID)
		stmt += ` WHERE claim_id = ` + s.dialect.placeholder(len(args))
	}
	args = append(args, limit, offset)
	stmt += ` ORDER BY id LIMIT ` + s.dialect.placeholder(len(args)-1) + ` OFFSET ` + s.dialect.placeholder(len(args))

	qs, err := s.listTexts(ctx, stmt, args...)
	if err != nil {
		return nil, wrapf(err, "failed to list invoices at offset %d", offset)
	}
	return qs, nil
}

// CatalogItems returns master rows (id, name) ordered by id, for embedding write-back.
func (s *Store) CatalogItems(ctx context.Context, offset, limit int) ([]query.Query, error) {
	stmt := `
		SELECT id, COALESCE(name, '')
		FROM master
		ORDER BY id
		LIMIT ` + s.dialect.placeholder(1) + ` OFFSET ` + s.dialect.placeholder(2)

	qs, err := s.listTexts(ctx, stmt, limit, offset)
	if err != nil {
		return nil, wrapf(err, "failed to list catalog items at offset %d", offset)
	}
	return qs, nil
}

func (s *Store) listTexts(ctx context.Context, stmt string, args ...any) ([]query.Query, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var qs []query.Query
	for rows.Next() {
		var q query.Query
		if err := rows.Scan(&q.ID, &q.Text); err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	return qs, rows.Err()
}

// SaveEmbeddings writes one catalog embedding per entry in a single transaction.
// Entry.GroupID is the master id the embedding belongs to; Entry.ID is ignored.
func (s *Store) SaveEmbeddings(ctx context.Context, entries []corpus.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO catalog_embedding (master_id, embedding) VALUES (`+s.dialect.placeholders(1, 2)+`)`)
	if err != nil {
		return wrap(err, "failed to prepare embedding insert")
	}
	defer func(st *sql.Stmt) { _ = st.Close() }(stmt)

	for _, e := range entries {
		v, err := s.dialect.encode(e.Vector)
		if err != nil {
			return wrapf(err, "failed to encode embedding of master %d", e.GroupID)
		}
		if _, err := stmt.ExecContext(ctx, e.GroupID, v); err != nil {
			return wrapf(err, "failed to insert embedding of master %d", e.GroupID)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap(err, "failed to commit embeddings")
	}
	return nil
}
