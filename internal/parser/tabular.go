package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/masvision/shelfsync/internal/catalog"
	"github.com/masvision/shelfsync/internal/errors"
)

// DefaultSkipRows is the number of report metadata rows above the column header.
const DefaultSkipRows = 6

// Planogram workbook extensions.
const (
	ExtXLS  = ".xls"
	ExtXLSX = ".xlsx"
)

// PlanogramExtensions lists the workbook kinds the tabular parser reads.
var PlanogramExtensions = []string{ExtXLS, ExtXLSX}

// TabularParser reads planogram workbooks.
type TabularParser struct {
	// SkipRows leading rows are ignored; the row after them is the column header.
	SkipRows int
	// Charset is passed to the BIFF reader for legacy .xls files.
	Charset string
}

// NewTabularParser returns a parser with the given skip count. A negative count means the default.
func NewTabularParser(skipRows int) *TabularParser {
	if skipRows < 0 {
		skipRows = DefaultSkipRows
	}
	return &TabularParser{SkipRows: skipRows, Charset: "utf-8"}
}

// ParseFile reads the first worksheet of path into planogram entries with raw descriptions.
// Rows without a PLU are dropped.
func (p *TabularParser) ParseFile(path string) ([]catalog.PlanogramEntry, error) {
	rows, err := p.readRows(path)
	if err != nil {
		return nil, errors.ParseError(err, path)
	}
	return entriesFromRows(rows, p.SkipRows, FixtureKey(path)), nil
}

func (p *TabularParser) readRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtXLSX:
		return readXLSX(path)
	case ExtXLS:
		return readXLS(path, p.Charset)
	}
	return nil, fmt.Errorf("unsupported workbook type %q", filepath.Ext(path))
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no worksheet")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", sheetName, err)
	}
	return rows, nil
}

// readXLS reads a BIFF workbook. The reader panics on some truncated files,
// which is reported as a parse error for that file only.
func readXLS(path, charset string) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("corrupt workbook: %v", r)
		}
	}()

	wb, err := xls.Open(path, charset)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no worksheet")
	}

	rows = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := range cells {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// entriesFromRows skips skip rows, takes the next row as the header and maps the
// remaining rows by position over the columns whose header cell is non-empty.
func entriesFromRows(rows [][]string, skip int, fixtureKey string) []catalog.PlanogramEntry {
	if len(rows) <= skip {
		return []catalog.PlanogramEntry{}
	}

	columns := headerColumns(rows[skip])
	entries := make([]catalog.PlanogramEntry, 0, len(rows)-skip-1)

	for _, row := range rows[skip+1:] {
		field := func(pos int) string {
			if pos >= len(columns) {
				return ""
			}
			col := columns[pos]
			if col >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[col])
		}

		plu := field(catalog.ColPLU)
		if plu == "" {
			continue
		}

		entries = append(entries, catalog.PlanogramEntry{
			FixtureKey:     fixtureKey,
			ShelfNumber:    field(catalog.ColShelf),
			Position:       field(catalog.ColPosition),
			RawDescription: field(catalog.ColDescription),
			Faces:          field(catalog.ColFaces),
			View:           field(catalog.ColView),
			PLU:            plu,
		})
	}

	return entries
}

// headerColumns returns the indexes of columns with a non-empty header cell.
func headerColumns(header []string) []int {
	columns := make([]int, 0, len(header))
	for i, name := range header {
		if strings.TrimSpace(name) != "" {
			columns = append(columns, i)
		}
	}
	return columns
}
