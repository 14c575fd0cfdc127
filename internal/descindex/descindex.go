// Package descindex builds the PLU to long-form description lookup from the
// e-shop items export that accompanies each store's barcode file.
package descindex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/masvision/shelfsync/internal/errors"
)

// Supported source encodings.
const (
	EncodingUTF16LE = "utf-16le"
	EncodingUTF16BE = "utf-16be"
	EncodingUTF8    = "utf-8"
	EncodingCP1253  = "windows-1253"
)

// DefaultEncoding is what the point-of-sale system writes.
const DefaultEncoding = EncodingUTF16LE

const maxLineBytes = 1024 * 1024

// Index maps a PLU to its preferred description. It is read-only once built.
type Index struct {
	entries map[string]string
}

// Lookup returns the description for plu. ok is false when the PLU is unknown
// or its line carried no description.
func (ix *Index) Lookup(plu string) (string, bool) {
	if ix == nil {
		return "", false
	}
	desc, found := ix.entries[plu]
	if !found || desc == "" {
		return "", false
	}
	return desc, true
}

// Len returns the number of PLUs seen, including those without a description.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// decoderFor resolves an encoding name. UTF-16 decoders honour a BOM.
func decoderFor(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EncodingUTF16LE, "utf16le", "ucs-2":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case EncodingUTF16BE, "utf16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	case EncodingUTF8, "utf8":
		return unicode.UTF8BOM, nil
	case EncodingCP1253, "cp1253":
		return charmap.Windows1253, nil
	}
	return nil, errors.Newf("unsupported description encoding %q", name).
		Category(errors.CategoryConfiguration).
		Build()
}

// ValidEncoding reports whether name is an accepted encoding.
func ValidEncoding(name string) bool {
	_, err := decoderFor(name)
	return err == nil
}

// Build reads TAB separated "PLU<TAB>description" lines. Later lines win,
// a line without a TAB records the PLU with no description.
func Build(r io.Reader, encodingName string) (*Index, error) {
	enc, err := decoderFor(encodingName)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(transform.NewReader(r, enc.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	ix := &Index{entries: make(map[string]string)}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		plu, desc, _ := strings.Cut(line, "\t")
		ix.entries[strings.TrimSpace(plu)] = strings.TrimSpace(desc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read description index: %w", err)
	}

	return ix, nil
}

// BuildFile builds an index from a local file.
func BuildFile(path, encodingName string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.ParseError(fmt.Errorf("open description file: %w", err), path)
	}
	defer f.Close()

	ix, err := Build(f, encodingName)
	if err != nil {
		if errors.IsCategory(err, errors.CategoryConfiguration) {
			return nil, err
		}
		return nil, errors.ParseError(err, path)
	}
	return ix, nil
}
