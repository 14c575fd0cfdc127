// Package parser turns the planogram workbooks and barcode files of a store
// drop into raw catalog records.
package parser

import (
	"path/filepath"
	"strings"
)

// FixtureKey derives the fixture key shared by every row of a planogram file:
// the file name up to the first "_", then up to the first space.
//
//	"189 ΠΕΡΙΠΤΕΡΟ_plano.xls" -> "189"
//	"620_layout.xls"          -> "620"
func FixtureKey(path string) string {
	name := filepath.Base(path)
	segment, _, _ := strings.Cut(name, "_")
	token, _, _ := strings.Cut(segment, " ")
	return token
}
