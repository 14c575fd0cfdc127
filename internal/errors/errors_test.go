package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestCategoryInheritedFromWrappedError(t *testing.T) {
	t.Parallel()

	inner := TransferError(fmt.Errorf("connection refused"), "/189/plano")
	outer := New(fmt.Errorf("fetch planograms: %w", inner)).Build()

	assert.Equal(t, CategoryTransfer, outer.Category)
	assert.True(t, IsCategory(outer, CategoryTransfer))
}

func TestTaxonomyHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *EnhancedError
		category ErrorCategory
		key      string
		value    any
	}{
		{"transfer", TransferError(fmt.Errorf("x"), "/620/a.csv"), CategoryTransfer, "remote_path", "/620/a.csv"},
		{"parse", ParseError(fmt.Errorf("x"), "data/189/planograms/1_a.xls"), CategoryFileParsing, "file_extension", "xls"},
		{"load", LoadError(fmt.Errorf("x"), "products"), CategoryLoad, "table", "products"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.category, tt.err.Category)
			ctx := tt.err.GetContext()
			require.NotNil(t, ctx)
			assert.Equal(t, tt.value, ctx[tt.key])
		})
	}
}

func TestIsMatchesCategory(t *testing.T) {
	t.Parallel()

	a := LoadError(fmt.Errorf("disk full"), "planograms")
	b := LoadError(fmt.Errorf("locked"), "products")

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, ValidationError("bad")))
}

func TestComponentDetection(t *testing.T) {
	t.Parallel()

	// Frames inside this package are skipped, so the test runner's package is reported.
	ee := New(fmt.Errorf("boom")).Build()
	assert.Equal(t, "testing", ee.GetComponent())

	explicit := New(fmt.Errorf("boom")).Component("pipeline").Build()
	assert.Equal(t, "pipeline", explicit.GetComponent())
}
