package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/masvision/shelfsync/internal/catalog"
	"github.com/masvision/shelfsync/internal/errors"
)

// Barcode file defaults.
const (
	ExtCSV           = ".csv"
	DefaultDelimiter = '|'
)

const (
	stagingFilePermissions = 0o644
	maxLineBytes           = 1024 * 1024
)

// Record is one delimited line keyed by header field name.
type Record map[string]string

// DelimitedParser reads headerless barcode files.
type DelimitedParser struct {
	// StagingDir receives the header-synthesized copy of every parsed file.
	StagingDir string
	Header     []string
	Delimiter  rune
}

// NewDelimitedParser returns a parser for the barcode layout.
func NewDelimitedParser(stagingDir string) *DelimitedParser {
	return &DelimitedParser{
		StagingDir: stagingDir,
		Header:     catalog.BarcodeFields,
		Delimiter:  DefaultDelimiter,
	}
}

// ParseFile writes the header line followed by the original bytes to a staging
// copy, then parses the copy. The source file is only read.
func (p *DelimitedParser) ParseFile(path string) ([]Record, error) {
	staged, err := p.stage(path)
	if err != nil {
		return nil, errors.ParseError(err, path)
	}

	f, err := os.Open(staged)
	if err != nil {
		return nil, errors.ParseError(fmt.Errorf("open staged copy: %w", err), path)
	}
	defer f.Close()

	records, err := p.parse(f)
	if err != nil {
		return nil, errors.ParseError(err, path)
	}
	return records, nil
}

// ParseProducts parses a barcode file into products with raw descriptions.
func (p *DelimitedParser) ParseProducts(path string) ([]catalog.Product, error) {
	records, err := p.ParseFile(path)
	if err != nil {
		return nil, err
	}
	products := make([]catalog.Product, 0, len(records))
	for _, r := range records {
		products = append(products, r.Product())
	}
	return products, nil
}

// Product maps a barcode record onto a product. The extra column is the final price.
func (r Record) Product() catalog.Product {
	return catalog.Product{
		PLU:            r[catalog.FieldPLU],
		RawDescription: r[catalog.FieldDescription],
		InitialPrice:   r[catalog.FieldPrice],
		Discount:       r[catalog.FieldDiscount],
		FinalPrice:     r[catalog.FieldExtra],
		Action:         r[catalog.FieldAction],
	}
}

func (p *DelimitedParser) stage(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dir := p.StagingDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(path), "staging")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}

	staged := filepath.Join(dir, filepath.Base(path))
	if sameFile(staged, path) {
		return "", fmt.Errorf("staging copy would overwrite the source")
	}

	dst, err := os.OpenFile(staged, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, stagingFilePermissions)
	if err != nil {
		return "", fmt.Errorf("create staged copy: %w", err)
	}

	header := strings.Join(p.Header, string(p.Delimiter)) + "\n"
	if _, err := io.WriteString(dst, header); err != nil {
		dst.Close()
		return "", fmt.Errorf("write header: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("copy source: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close staged copy: %w", err)
	}
	return staged, nil
}

// parse reads delimited lines keyed by the first line. Fields are split on
// every delimiter and quote characters are ordinary text. Short lines leave the
// missing trailing fields empty, surplus fields are ignored.
func (p *DelimitedParser) parse(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	sep := string(p.Delimiter)

	var keys []string
	records := make([]Record, 0, 256)
	for scanner.Scan() {
		fields := strings.Split(strings.TrimRight(scanner.Text(), "\r"), sep)

		if keys == nil {
			keys = make([]string, len(fields))
			for i, h := range fields {
				keys[i] = strings.TrimSpace(h)
			}
			continue
		}
		if isBlank(fields) {
			continue
		}

		rec := make(Record, len(keys))
		for i, key := range keys {
			if i < len(fields) {
				rec[key] = strings.TrimSpace(fields[i])
			} else {
				rec[key] = ""
			}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read line %d: %w", len(records)+2, err)
	}

	return records, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
