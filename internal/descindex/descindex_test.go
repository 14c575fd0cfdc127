package descindex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/masvision/shelfsync/internal/errors"
)

const sample = "100\tΤυρί 200Γ\r\n101\tΓάλα 1L\r\n102\r\n\r\n100\tΤυρί φέτα 400Γ\r\n"

func encode(t *testing.T, enc encoding.Encoding, s string) string {
	t.Helper()
	out, err := enc.NewEncoder().String(s)
	require.NoError(t, err)
	return out
}

func TestBuildEncodings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		encoding string
		data     string
	}{
		{"utf-16le without BOM", EncodingUTF16LE, encode(t, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), sample)},
		{"utf-16le with BOM", EncodingUTF16LE, encode(t, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), sample)},
		{"utf-16be", EncodingUTF16BE, encode(t, unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), sample)},
		{"utf-8", EncodingUTF8, sample},
		{"windows-1253", EncodingCP1253, encode(t, charmap.Windows1253, sample)},
		{"default is utf-16le", "", encode(t, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), sample)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ix, err := Build(strings.NewReader(tt.data), tt.encoding)
			require.NoError(t, err)

			assert.Equal(t, 3, ix.Len())

			desc, ok := ix.Lookup("100")
			assert.True(t, ok)
			assert.Equal(t, "Τυρί φέτα 400Γ", desc, "later lines overwrite earlier ones")

			desc, ok = ix.Lookup("101")
			assert.True(t, ok)
			assert.Equal(t, "Γάλα 1L", desc)
		})
	}
}

func TestLookupAbsentDescription(t *testing.T) {
	t.Parallel()

	ix, err := Build(strings.NewReader("102\n103\t\n"), EncodingUTF8)
	require.NoError(t, err)

	_, ok := ix.Lookup("102")
	assert.False(t, ok, "line without a tab has no description")
	_, ok = ix.Lookup("103")
	assert.False(t, ok, "empty description is no override")
	_, ok = ix.Lookup("999")
	assert.False(t, ok)

	var nilIndex *Index
	_, ok = nilIndex.Lookup("102")
	assert.False(t, ok)
}

func TestSplitsOnFirstTabOnly(t *testing.T) {
	t.Parallel()

	ix, err := Build(strings.NewReader("200\tΚΑΦΕΣ\tΕΛΛΗΝΙΚΟΣ\n"), EncodingUTF8)
	require.NoError(t, err)

	desc, ok := ix.Lookup("200")
	assert.True(t, ok)
	assert.Equal(t, "ΚΑΦΕΣ\tΕΛΛΗΝΙΚΟΣ", desc)
}

func TestUnsupportedEncoding(t *testing.T) {
	t.Parallel()

	_, err := Build(strings.NewReader(""), "ebcdic")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.False(t, ValidEncoding("ebcdic"))
	assert.True(t, ValidEncoding("UTF-16LE"))
}

func TestBuildFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "desc.txt")
	require.NoError(t, os.WriteFile(path, []byte(encode(t, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), sample)), 0o600))

	ix, err := BuildFile(path, DefaultEncoding)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())

	_, err = BuildFile(filepath.Join(dir, "missing.txt"), DefaultEncoding)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}
