package privatemedia

import (
	"fmt"
	"strings"
)

// Column is one column of a grants table as a database reports it.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// SchemaError reports how an existing table differs from the expected layout.
type SchemaError struct {
	Table          string
	TableMissing   bool
	MissingColumns []string
	Mismatched     []string
}

func (e *SchemaError) Error() string {
	if e.TableMissing {
		return fmt.Sprintf("table %s does not exist", e.Table)
	}

	var parts []string
	if len(e.MissingColumns) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.MissingColumns, ", "))
	}
	if len(e.Mismatched) > 0 {
		parts = append(parts, "mismatched columns: "+strings.Join(e.Mismatched, "; "))
	}

	return fmt.Sprintf("table %s: %s", e.Table, strings.Join(parts, "; "))
}

// CheckColumns compares the columns a database reported for table against
// want. Types are compared case-insensitively. An empty got means the table
// does not exist. Extra columns are allowed.
func CheckColumns(table string, want []Column, got []Column) error {
	if len(got) == 0 {
		return &SchemaError{Table: table, TableMissing: true}
	}

	actual := make(map[string]Column, len(got))
	for _, c := range got {
		actual[c.Name] = c
	}

	schemaErr := &SchemaError{Table: table}
	for _, w := range want {
		a, ok := actual[w.Name]
		if !ok {
			schemaErr.MissingColumns = append(schemaErr.MissingColumns, w.Name)
			continue
		}

		if !strings.EqualFold(a.Type, w.Type) {
			schemaErr.Mismatched = append(schemaErr.Mismatched, fmt.Sprintf("%s has type %s, want %s", w.Name, strings.ToLower(a.Type), w.Type))
		}

		if a.Nullable != w.Nullable {
			schemaErr.Mismatched = append(schemaErr.Mismatched, fmt.Sprintf("%s has nullable=%t, want %t", w.Name, a.Nullable, w.Nullable))
		}
	}

	if len(schemaErr.MissingColumns) == 0 && len(schemaErr.Mismatched) == 0 {
		return nil
	}

	return schemaErr
}
