package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masvision/shelfsync/internal/catalog"
	"github.com/masvision/shelfsync/internal/descindex"
)

func TestDiscountLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		discount string
		want     string
	}{
		{"10", "10% έκπτωση"},
		{"10.50", "10.5% έκπτωση"},
		{"12,5", "12.5% έκπτωση"},
		{" 25 ", "25% έκπτωση"},
		{"0", ""},
		{"0.00", ""},
		{"", ""},
		{"abc", ""},
		{"NaN", ""},
	}

	for _, tt := range tests {
		t.Run(tt.discount, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DiscountLabel(tt.discount))
		})
	}
}

func TestActionTag(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1+1 όμοια ", ActionTag("1+1OMOIA"))
	assert.Equal(t, "προσφορα", ActionTag("ΠΡΟΣΦΟΡΑ"))
	assert.Equal(t, "", ActionTag(""))
}

func testIndex(t *testing.T) *descindex.Index {
	t.Helper()
	ix, err := descindex.Build(strings.NewReader("100\tΤυρί 200Γ\n101\tΓάλα 1L\n102\n"), descindex.EncodingUTF8)
	require.NoError(t, err)
	return ix
}

func TestProductOverrideAndNormalize(t *testing.T) {
	t.Parallel()

	e := New(testIndex(t))

	got := e.Product(catalog.Product{PLU: "100", RawDescription: "ΤΥΡΙ 200Γ", InitialPrice: "3.50", Discount: "10", FinalPrice: "3.15", Action: "X"})
	assert.Equal(t, "ΤΥΡΙ 200Γ", got.RawDescription, "raw description is kept")
	assert.Equal(t, "τυρί 200 γραμμάρια ", got.Description)
	assert.Equal(t, "10% έκπτωση", got.DiscountLabel)
	assert.Equal(t, "x", got.Action)

	// 102 has a line without a description, so the parsed text is used
	got = e.Product(catalog.Product{PLU: "102", RawDescription: `ΧΥΜΟ "ΑΜΙΤΑ" 1L`})
	assert.Equal(t, "χυμο 'αμιτα' 1 λίτρο ", got.Description)
	assert.Equal(t, "", got.DiscountLabel)
}

func TestPlanogramUsesPositionalPLU(t *testing.T) {
	t.Parallel()

	e := New(testIndex(t))
	entries := e.Planograms([]catalog.PlanogramEntry{
		{FixtureKey: "189", PLU: "101", RawDescription: "ΓΑΛΑ"},
		{FixtureKey: "189", PLU: "999"},
	})

	assert.Equal(t, "γάλα 1 λίτρο ", entries[0].Description)
	assert.Equal(t, "", entries[1].Description, "absent description becomes empty")
}

func TestNilIndex(t *testing.T) {
	t.Parallel()

	products := New(nil).Products([]catalog.Product{{PLU: "100", RawDescription: "ΤΥΡΙ 200Γ"}})
	assert.Equal(t, "τυρι 200 γραμμάρια ", products[0].Description)
}
