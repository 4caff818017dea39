package main

import (
	"fmt"
	"sort"
	"strings"
)

// collectCollationWarnings summarizes the source charsets and collations and
// warns about case-insensitive (_ci) collations on columns used to match
// edge endpoints. Graph keys are compared byte for byte, so a foreign key
// value that differs from its parent only in case no longer finds a vertex.
func collectCollationWarnings(schema *Schema) []string {
	charsets := make(map[string]bool)
	collations := make(map[string]bool)
	// _ci collation → "table.column" entries used as keys or foreign keys
	ciKeyRefs := make(map[string][]string)

	for _, t := range schema.Tables {
		keyCols := make(map[string]bool)
		if t.PrimaryKey != nil {
			for _, c := range t.PrimaryKey.Columns {
				keyCols[strings.ToLower(c)] = true
			}
		}
		for _, idx := range t.Indexes {
			if idx.Unique {
				for _, c := range idx.Columns {
					keyCols[strings.ToLower(c)] = true
				}
			}
		}
		for _, fk := range t.ForeignKeys {
			for _, c := range fk.Columns {
				keyCols[strings.ToLower(c)] = true
			}
		}

		for _, col := range t.Columns {
			if col.Charset != "" {
				charsets[col.Charset] = true
			}
			if col.Collation == "" {
				continue
			}
			collations[col.Collation] = true
			if strings.HasSuffix(strings.ToLower(col.Collation), "_ci") && keyCols[strings.ToLower(col.SourceName)] {
				ciKeyRefs[col.Collation] = append(ciKeyRefs[col.Collation],
					fmt.Sprintf("%s.%s", t.SourceName, col.SourceName))
			}
		}
	}

	var warnings []string
	if len(charsets) > 0 {
		warnings = append(warnings, fmt.Sprintf("source charsets found: %s", strings.Join(sortedKeys(charsets), ", ")))
	}
	if len(collations) > 0 {
		warnings = append(warnings, fmt.Sprintf("source collations found: %s", strings.Join(sortedKeys(collations), ", ")))
	}
	for _, coll := range sortedKeys(ciKeyRefs) {
		refs := ciKeyRefs[coll]
		warnings = append(warnings, fmt.Sprintf(
			"%d key column(s) use %s (case-insensitive); edge endpoints are matched case-sensitively: %s",
			len(refs), coll, strings.Join(refs, ", ")))
	}
	return warnings
}

// sortedKeys returns the keys of a map in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
