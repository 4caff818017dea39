package main

import "fmt"

// isGeneratedColumn detects generated columns from the Extra field, which
// every source fills the same way.
func isGeneratedColumn(col Column) bool {
	return isMySQLGeneratedColumn(col)
}

func collectGeneratedColumnWarnings(schema *Schema) []string {
	if schema == nil {
		return nil
	}

	var warnings []string
	for _, t := range schema.Tables {
		for _, col := range t.Columns {
			if !isGeneratedColumn(col) {
				continue
			}
			warnings = append(warnings, fmt.Sprintf(
				"generated column %s.%s (%s) is copied as a plain property; it is not recomputed in the graph",
				t.SourceName, col.SourceName, col.Extra,
			))
		}
	}
	return warnings
}
