// Package schema is the Schema Registry: the single authoritative
// catalog mapping table name to (columns, primary key, foreign keys,
// indexes). Every DDL statement and every parameterized INSERT the
// relational store issues is derived from this registry; nothing in
// internal/store hardcodes a column list. Grounded on the teacher's
// struct-catalog style in ruleset/types.go, generalized from a single
// flat struct to a registry of many tables.
package schema

import "sort"

// Column describes one column of a table.
type Column struct {
	Name     string
	Type     string // abstract: "TEXT", "INTEGER", "REAL", "BLOB"
	NotNull  bool
	Unique   bool
	Default  string // literal SQL default, empty if none
}

// ForeignKey describes a reference from this table to another.
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
}

// Index describes a non-unique or unique secondary index.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table is the authoritative definition of one persisted entity.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string
	AutoID      bool // true if PrimaryKey is a single auto-assigned integer
	ForeignKeys []ForeignKey
	Indexes     []Index
}

// Registry is the authoritative catalog: name -> definition. Construct
// it only through New; callers never build a Registry by hand so that
// the write-guard (Registry.MustHave) and the hash gate stay in sync
// with whatever the registry actually contains.
type Registry struct {
	tables map[string]Table
	order  []string // insertion order, for deterministic DDL emission
}

// New builds the registry from the fixed table list in tables.go.
// This is the only constructor; there is no way to register a table
// at runtime, matching the "authoritative, never call-site-defined"
// contract.
func New() *Registry {
	r := &Registry{tables: make(map[string]Table, len(allTables))}
	for _, t := range allTables {
		if _, exists := r.tables[t.Name]; exists {
			panic("schema: duplicate table definition: " + t.Name)
		}
		r.tables[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r
}

// Table returns the definition for name and whether it exists.
func (r *Registry) Table(name string) (Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// MustHave panics if name is not a registered table. internal/store
// calls this before enqueueing any row; an unregistered table is a
// programming error, not a runtime condition to recover from, per the
// contract: "any attempt to write to a table not in the registry is a
// fatal error."
func (r *Registry) MustHave(name string) Table {
	t, ok := r.tables[name]
	if !ok {
		panic("schema: write to unregistered table: " + name)
	}
	return t
}

// Names returns every registered table name in a stable, sorted order
// (used by the hasher so its output is deterministic regardless of map
// iteration order; DDL emission uses OrderedNames).
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OrderedNames returns tables in declaration order, which is also their
// FK-safe flush order: a table only references tables declared before it.
func (r *Registry) OrderedNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
