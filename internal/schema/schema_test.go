package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryNoDuplicates(t *testing.T) {
	require.NotPanics(t, func() { New() })
}

func TestRegistryMustHave(t *testing.T) {
	r := New()
	tbl := r.MustHave("files")
	assert.Equal(t, "files", tbl.Name)

	assert.Panics(t, func() { r.MustHave("no_such_table") })
}

func TestHashDeterministic(t *testing.T) {
	r1 := New()
	r2 := New()
	assert.Equal(t, r1.Hash(), r2.Hash())
	assert.NotEmpty(t, r1.Hash())
}

func TestHashChangesWithSchema(t *testing.T) {
	r := New()
	base := r.Hash()

	mutated := &Registry{tables: map[string]Table{}, order: nil}
	for _, name := range r.order {
		mutated.tables[name] = r.tables[name]
		mutated.order = append(mutated.order, name)
	}
	f := mutated.tables["files"]
	f.Columns = append(f.Columns, Column{Name: "extra_column", Type: "TEXT"})
	mutated.tables["files"] = f

	assert.NotEqual(t, base, mutated.Hash())
}

func TestVerifyStamp(t *testing.T) {
	r := New()
	h := r.Hash()
	assert.True(t, r.VerifyStamp(h))
	assert.False(t, r.VerifyStamp("deadbeef"))
	assert.False(t, r.VerifyStamp(""))
}

func TestCreateTableSQLAutoIDUsesAutoincrement(t *testing.T) {
	r := New()
	tbl := r.MustHave("cfg_blocks")
	ddl := CreateTableSQL(tbl)
	assert.Contains(t, ddl, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.NotContains(t, ddl, "PRIMARY KEY (id)")
}

func TestCreateTableSQLCompositeKey(t *testing.T) {
	r := New()
	tbl := r.MustHave("assignment_sources")
	ddl := CreateTableSQL(tbl)
	assert.Contains(t, ddl, "PRIMARY KEY (file, line, target_var, source_var_name)")
}

func TestInsertColumnsExcludesAutoID(t *testing.T) {
	r := New()
	tbl := r.MustHave("cfg_blocks")
	cols := InsertColumns(tbl)
	for _, c := range cols {
		assert.NotEqual(t, "id", c)
	}
}

func TestInsertSQLPlaceholderCount(t *testing.T) {
	r := New()
	tbl := r.MustHave("files")
	sqlStr := InsertSQL(tbl, 2)
	assert.Equal(t, 2*len(InsertColumns(tbl)), strings.Count(sqlStr, "?"))
}

func TestAllDDLOrderRespectsForeignKeys(t *testing.T) {
	r := New()
	names := r.OrderedNames()
	pos := make(map[string]int, len(names))
	for i, n := range names {
		pos[n] = i
	}
	for _, n := range names {
		t2 := r.tables[n]
		for _, fk := range t2.ForeignKeys {
			require.Lessf(t, pos[fk.RefTable], pos[n], "%s must be declared after %s", n, fk.RefTable)
		}
	}
}
