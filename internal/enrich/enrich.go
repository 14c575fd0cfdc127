// Package enrich joins parsed records with the description index and derives
// the display fields stored in the catalog.
package enrich

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/masvision/shelfsync/internal/catalog"
	"github.com/masvision/shelfsync/internal/normalize"
)

// Descriptions is the lookup used for description overrides.
type Descriptions interface {
	Lookup(plu string) (string, bool)
}

const discountSuffix = "% έκπτωση"

var similarTag = regexp.MustCompile(`omoia`)

// Enricher applies description overrides and normalization. A nil index means no overrides.
type Enricher struct {
	index Descriptions
}

// New returns an Enricher over index, which may be nil.
func New(index Descriptions) *Enricher {
	return &Enricher{index: index}
}

// description picks the index override when there is one, then normalizes.
func (e *Enricher) description(plu, raw string) string {
	if e.index != nil {
		if override, ok := e.index.Lookup(plu); ok {
			raw = override
		}
	}
	return normalize.Normalize(raw)
}

// Product returns a copy of p with derived fields set.
func (e *Enricher) Product(p catalog.Product) catalog.Product {
	p.Description = e.description(p.PLU, p.RawDescription)
	p.Action = ActionTag(p.Action)
	p.DiscountLabel = DiscountLabel(p.Discount)
	return p
}

// Planogram returns a copy of entry with its description set.
func (e *Enricher) Planogram(entry catalog.PlanogramEntry) catalog.PlanogramEntry {
	entry.Description = e.description(entry.PLU, entry.RawDescription)
	return entry
}

// Products enriches in place and returns the slice.
func (e *Enricher) Products(products []catalog.Product) []catalog.Product {
	for i := range products {
		products[i] = e.Product(products[i])
	}
	return products
}

// Planograms enriches in place and returns the slice.
func (e *Enricher) Planograms(entries []catalog.PlanogramEntry) []catalog.PlanogramEntry {
	for i := range entries {
		entries[i] = e.Planogram(entries[i])
	}
	return entries
}

// ActionTag lower-cases the promotion tag and spells out "omoia".
func ActionTag(action string) string {
	return similarTag.ReplaceAllLiteralString(strings.ToLower(action), " όμοια ")
}

// DiscountLabel renders "<n>% έκπτωση" for a non-zero numeric discount, otherwise "".
// Both "12.5" and "12,5" are accepted; the magnitude is printed without trailing zeros.
func DiscountLabel(discount string) string {
	value, ok := parseDiscount(discount)
	if !ok || value == 0 {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64) + discountSuffix
}

func parseDiscount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, false
	}
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
