package datastore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/masvision/shelfsync/internal/catalog"
	"github.com/masvision/shelfsync/internal/errors"
)

// Count returns the number of rows in table, 0 when the table does not exist yet.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	schema, ok := catalog.SchemaFor(table)
	if !ok {
		return 0, errors.ValidationError("unknown table " + table)
	}

	db := s.db.WithContext(ctx)
	if !db.Migrator().HasTable(schema.Table) {
		return 0, nil
	}

	var n int64
	if err := db.Raw("SELECT COUNT(*) FROM " + quoteIdent(schema.Table)).Scan(&n).Error; err != nil {
		return 0, dbError(err, "count", s.path)
	}
	return n, nil
}

// Products returns the stored products in insert order.
func (s *Store) Products(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.selectAll(ctx, catalog.ProductsSchema)
	if err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(rows))
	for i, r := range rows {
		products[i] = catalog.Product{
			PLU:           r[0],
			Description:   r[1],
			InitialPrice:  r[2],
			Discount:      r[3],
			DiscountLabel: r[4],
			FinalPrice:    r[5],
			Action:        r[6],
		}
	}
	return products, nil
}

// Planograms returns the stored planogram entries in insert order.
func (s *Store) Planograms(ctx context.Context) ([]catalog.PlanogramEntry, error) {
	rows, err := s.selectAll(ctx, catalog.PlanogramsSchema)
	if err != nil {
		return nil, err
	}
	entries := make([]catalog.PlanogramEntry, len(rows))
	for i, r := range rows {
		entries[i] = catalog.PlanogramEntry{
			FixtureKey:  r[0],
			ShelfNumber: r[1],
			Position:    r[2],
			Description: r[3],
			Faces:       r[4],
			View:        r[5],
			PLU:         r[6],
		}
	}
	return entries, nil
}

func (s *Store) selectAll(ctx context.Context, schema catalog.Schema) ([][]string, error) {
	db := s.db.WithContext(ctx)
	if !db.Migrator().HasTable(schema.Table) {
		return nil, nil
	}

	cols := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = quoteIdent(c.Name)
	}

	rows, err := db.Raw("SELECT " + strings.Join(cols, ", ") + " FROM " + quoteIdent(schema.Table) + " ORDER BY rowid").Rows()
	if err != nil {
		return nil, dbError(err, "select", s.path)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, dbError(err, "select", s.path)
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = v.String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "select", s.path)
	}
	return out, nil
}
