// Package catalog defines the records produced by one sync cycle and the
// fixed table schemas they are persisted under.
package catalog

// Table names in the catalog store.
const (
	ProductsTable   = "products"
	PlanogramsTable = "planograms"
)

// Product is one barcode/price line of the barcode file after enrichment.
type Product struct {
	PLU            string
	RawDescription string
	Description    string
	InitialPrice   string
	Discount       string
	DiscountLabel  string
	FinalPrice     string
	Action         string
}

// PlanogramEntry is one shelf slot of a fixture layout.
type PlanogramEntry struct {
	FixtureKey     string
	ShelfNumber    string
	Position       string
	RawDescription string
	Description    string
	Faces          string
	View           string
	PLU            string
}

// Column is one TEXT column of a table schema.
type Column struct {
	Name    string
	NotNull bool
}

// Schema is the ordered column list of a table. Column order is insert order.
type Schema struct {
	Table   string
	Columns []Column
}

// ProductsSchema is the products table consumed by the in-store application.
var ProductsSchema = Schema{
	Table: ProductsTable,
	Columns: []Column{
		{Name: "PLU"},
		{Name: "description"},
		{Name: "initial_price"},
		{Name: "discount"},
		{Name: "discount_label"},
		{Name: "final_price"},
		{Name: "action"},
	},
}

// PlanogramsSchema is the planograms table consumed by the in-store application.
var PlanogramsSchema = Schema{
	Table: PlanogramsTable,
	Columns: []Column{
		{Name: "fk", NotNull: true},
		{Name: "shelf_num"},
		{Name: "position"},
		{Name: "description"},
		{Name: "face"},
		{Name: "view"},
		{Name: "PLU", NotNull: true},
	},
}

// SchemaFor returns the schema of a known table.
func SchemaFor(table string) (Schema, bool) {
	switch table {
	case ProductsTable:
		return ProductsSchema, true
	case PlanogramsTable:
		return PlanogramsSchema, true
	}
	return Schema{}, false
}

// Row returns the product's values in ProductsSchema order.
func (p *Product) Row() []string {
	return []string{p.PLU, p.Description, p.InitialPrice, p.Discount, p.DiscountLabel, p.FinalPrice, p.Action}
}

// Row returns the entry's values in PlanogramsSchema order.
func (e *PlanogramEntry) Row() []string {
	return []string{e.FixtureKey, e.ShelfNumber, e.Position, e.Description, e.Faces, e.View, e.PLU}
}

// Delimited barcode file fields, in the order of the synthesized header line.
const (
	FieldPLU         = "PLU"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldDiscount    = "discount"
	FieldAction      = "action"
	FieldExtra       = "extra"
)

// BarcodeFields is the header synthesized in front of every barcode file.
var BarcodeFields = []string{FieldPLU, FieldDescription, FieldPrice, FieldDiscount, FieldAction, FieldExtra}

// Positional planogram worksheet columns.
const (
	ColShelf = iota
	ColPosition
	ColDescription
	ColFaces
	ColView
	ColPLU

	PlanogramColumns
)
