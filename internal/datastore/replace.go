package datastore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/masvision/shelfsync/internal/catalog"
	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
)

// ReplaceTable drops and recreates table with its fixed schema and inserts rows,
// all in one transaction. On error nothing changes and the previous contents remain.
// Every value is written as a quoted SQL literal. Returns the number of rows written.
func (s *Store) ReplaceTable(ctx context.Context, table string, rows [][]string) (int, error) {
	schema, ok := catalog.SchemaFor(table)
	if !ok {
		return 0, errors.LoadError(fmt.Errorf("unknown table %q", table), table)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(dropStatement(schema)).Error; err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
		if err := tx.Exec(createStatement(schema)).Error; err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
		for _, batch := range batches(rows, s.batchSize) {
			stmt, err := insertStatement(schema, batch)
			if err != nil {
				return err
			}
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("insert into %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("table replace rolled back",
			logger.String("path", s.path),
			logger.String("table", table),
			logger.Int("rows", len(rows)),
			logger.Error(err))
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryLoad).
			Context("table", table).
			Context("path", s.path).
			Context("elapsed_ms", time.Since(start).Milliseconds()).
			Build()
	}

	s.log.Info("table replaced",
		logger.String("path", s.path),
		logger.String("table", table),
		logger.Int("rows", len(rows)),
		logger.Duration("elapsed", time.Since(start)))

	return len(rows), nil
}

// ReplaceProducts replaces the products table.
func (s *Store) ReplaceProducts(ctx context.Context, products []catalog.Product) (int, error) {
	rows := make([][]string, len(products))
	for i := range products {
		rows[i] = products[i].Row()
	}
	return s.ReplaceTable(ctx, catalog.ProductsTable, rows)
}

// ReplacePlanograms replaces the planograms table.
func (s *Store) ReplacePlanograms(ctx context.Context, entries []catalog.PlanogramEntry) (int, error) {
	rows := make([][]string, len(entries))
	for i := range entries {
		rows[i] = entries[i].Row()
	}
	return s.ReplaceTable(ctx, catalog.PlanogramsTable, rows)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral encodes v as a single-quoted SQL string literal.
// NUL bytes are dropped, SQLite would truncate the value at them.
func quoteLiteral(v string) string {
	v = strings.ReplaceAll(v, "\x00", "")
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func dropStatement(schema catalog.Schema) string {
	return "DROP TABLE IF EXISTS " + quoteIdent(schema.Table)
}

func createStatement(schema catalog.Schema) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(quoteIdent(schema.Table))
	b.WriteString(" (")
	for i, col := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(col.Name))
		b.WriteString(" TEXT")
		if col.NotNull {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(")")
	return b.String()
}

func insertStatement(schema catalog.Schema, rows [][]string) (string, error) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(schema.Table))
	b.WriteString(" (")
	for i, col := range schema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(col.Name))
	}
	b.WriteString(") VALUES ")

	for r, row := range rows {
		if len(row) != len(schema.Columns) {
			return "", fmt.Errorf("row has %d values, %s has %d columns", len(row), schema.Table, len(schema.Columns))
		}
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for i, v := range row {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteLiteral(v))
		}
		b.WriteString(")")
	}
	return b.String(), nil
}

// batches splits rows into chunks of size; size 0 keeps them together.
func batches(rows [][]string, size int) [][][]string {
	if len(rows) == 0 {
		return nil
	}
	if size <= 0 || size >= len(rows) {
		return [][][]string{rows}
	}
	out := make([][][]string, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}
