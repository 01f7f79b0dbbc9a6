package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
)

// maxDetails is the number of child rows returned per group.
const maxDetails = 5

// MasterInfo looks up code and name for ids, binding at most maxLookupIDs per statement.
// Ids without a master row are absent from the map.
func (s *Store) MasterInfo(ctx context.Context, ids []int64) (map[int64]dommatch.Info, error) {
	out := make(map[int64]dommatch.Info, len(ids))

	for start := 0; start < len(ids); start += s.maxLookupIDs {
		end := min(start+s.maxLookupIDs, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		stmt := `SELECT id, code, name FROM master WHERE id IN (` + s.dialect.placeholders(1, len(chunk)) + `)`

		if err := s.scanInfo(ctx, stmt, args, out); err != nil {
			return nil, wrapf(err, "failed to look up %d master rows", len(chunk))
		}
	}
	return out, nil
}

func (s *Store) scanInfo(ctx context.Context, stmt string, args []any, out map[int64]dommatch.Info) error {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id         int64
			code, name sql.NullString
		)
		if err := rows.Scan(&id, &code, &name); err != nil {
			return err
		}
		out[id] = dommatch.Info{Code: code.String, Name: name.String}
	}
	return rows.Err()
}

// Details returns up to five child rows of a group, ordered by name ascending then qty descending.
func (s *Store) Details(ctx context.Context, groupID int64) ([]dommatch.Detail, error) {
	stmt := `
		SELECT id, name, brand, manufacturer, qty, unit, unit_detail, price
		FROM master_detail
		WHERE master_id = ` + s.dialect.placeholder(1) + `
		ORDER BY name ASC, qty DESC
		LIMIT ` + s.dialect.placeholder(2)

	rows, err := s.db.QueryContext(ctx, stmt, groupID, maxDetails)
	if err != nil {
		return nil, wrapf(err, "failed to list details of master %d", groupID)
	}
	defer rows.Close()

	var details []dommatch.Detail
	for rows.Next() {
		var (
			d                                           dommatch.Detail
			name, brand, manufacturer, unit, unitDetail sql.NullString
			qty, price                                  sql.NullFloat64
		)
		if err := rows.Scan(&d.DetailID, &name, &brand, &manufacturer, &qty, &unit, &unitDetail, &price); err != nil {
			return nil, wrapf(err, "failed to scan detail of master %d", groupID)
		}
		d.Rank = len(details) + 1
		d.Name = nullString(name)
		d.Brand = nullString(brand)
		d.Manufacturer = nullString(manufacturer)
		d.Qty = nullFloat(qty)
		d.Unit = nullString(unit)
		d.UnitDetail = nullString(unitDetail)
		d.Price = nullFloat(price)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(err, "failed to iterate details of master %d", groupID)
	}
	return details, nil
}

// Header returns the master row of a group, or a domain.NotFoundError when there is none.
func (s *Store) Header(ctx context.Context, groupID int64) (dommatch.Header, error) {
	stmt := `SELECT code, name, type FROM master WHERE id = ` + s.dialect.placeholder(1)

	var code, name, typ sql.NullString
	err := s.db.QueryRowContext(ctx, stmt, groupID).Scan(&code, &name, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return dommatch.Header{}, domain.NewNotFound("header", groupID)
	}
	if err != nil {
		return dommatch.Header{}, wrapf(err, "failed to get header of master %d", groupID)
	}
	return dommatch.Header{Code: code.String, Name: name.String, Type: typ.String}, nil
}

// ProductKeywords returns the non-null keyword rows of a product, in id order.
func (s *Store) ProductKeywords(ctx context.Context, productID int64) ([]string, error) {
	stmt := `
		SELECT keywords
		FROM product_keyword
		WHERE product_id = ` + s.dialect.placeholder(1) + ` AND keywords IS NOT NULL
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, stmt, productID)
	if err != nil {
		return nil, wrapf(err, "failed to list keywords of product %d", productID)
	}
	defer rows.Close()

	var keywords []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, wrapf(err, "failed to scan keywords of product %d", productID)
		}
		keywords = append(keywords, k)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapf(err, "failed to iterate keywords of product %d", productID)
	}
	return keywords, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}
