// Package countries maps ISO 3166-1 alpha-2 codes to English country names.
package countries

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Unknown is the name reported for codes without a mapping.
const Unknown = "Unknown"

// Table is a static, read-only code-to-name table backed by CLDR data.
// It is safe for concurrent use.
type Table struct {
	namer display.Namer
}

// NewTable returns a table with English country names.
func NewTable() *Table {
	return &Table{namer: display.English.Regions()}
}

// Name returns the country name for an alpha-2 code.
// Codes that are not two ASCII letters, or that do not name a country, are not found.
func (t *Table) Name(code string) (string, bool) {
	if len(code) != 2 || !isAlpha(code) {
		return "", false
	}

	region, err := language.ParseRegion(strings.ToUpper(code))
	if err != nil || !region.IsCountry() {
		return "", false
	}

	name := t.namer.Name(region)
	if name == "" {
		return "", false
	}
	return name, true
}

// NameOrUnknown returns the country name for code, or Unknown.
func (t *Table) NameOrUnknown(code string) string {
	if name, ok := t.Name(code); ok {
		return name
	}
	return Unknown
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}
