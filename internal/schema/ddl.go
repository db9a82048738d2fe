package schema

import (
	"fmt"
	"strings"
)

// CreateTableSQL renders the CREATE TABLE statement for t. Column order
// is always the registry's declared order, never call-site order, per
// the contract that "column orders in generated INSERTs are defined by
// the registry and never by call sites."
func CreateTableSQL(t Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", t.Name)

	lines := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	for _, c := range t.Columns {
		line := "  " + c.Name + " " + c.Type
		if t.AutoID && len(t.PrimaryKey) == 1 && t.PrimaryKey[0] == c.Name {
			line += " PRIMARY KEY AUTOINCREMENT"
		} else if c.NotNull {
			line += " NOT NULL"
		}
		if c.Unique {
			line += " UNIQUE"
		}
		if c.Default != "" {
			line += " DEFAULT " + c.Default
		}
		lines = append(lines, line)
	}
	if !t.AutoID && len(t.PrimaryKey) > 0 {
		lines = append(lines, "  PRIMARY KEY ("+strings.Join(t.PrimaryKey, ", ")+")")
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s(%s)",
			strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", ")))
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")
	return b.String()
}

// CreateIndexSQL renders the CREATE INDEX statement for idx on table.
func CreateIndexSQL(table string, idx Index) string {
	kw := "INDEX"
	if idx.Unique {
		kw = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s(%s)", kw, idx.Name, table, strings.Join(idx.Columns, ", "))
}

// AllDDL renders every CREATE TABLE and CREATE INDEX statement in the
// registry's declared (FK-safe) order, suitable for executing verbatim
// against a freshly created database.
func (r *Registry) AllDDL() []string {
	var stmts []string
	for _, name := range r.OrderedNames() {
		t := r.tables[name]
		stmts = append(stmts, CreateTableSQL(t))
		for _, idx := range t.Indexes {
			stmts = append(stmts, CreateIndexSQL(t.Name, idx))
		}
	}
	return stmts
}

// InsertColumns returns the column name list, in registry-declared
// order, that an INSERT for table must supply in a batched row. For
// AutoID tables the primary-key column is excluded since SQLite
// assigns it.
func InsertColumns(t Table) []string {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if t.AutoID && len(t.PrimaryKey) == 1 && t.PrimaryKey[0] == c.Name {
			continue
		}
		cols = append(cols, c.Name)
	}
	return cols
}

// InsertSQL renders a parameterized multi-row INSERT for table with
// rowCount rows, each having len(InsertColumns(t)) placeholders.
func InsertSQL(t Table, rowCount int) string {
	cols := InsertColumns(t)
	placeholderRow := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"
	rows := make([]string, rowCount)
	for i := range rows {
		rows[i] = placeholderRow
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		t.Name, strings.Join(cols, ", "), strings.Join(rows, ", "))
}
