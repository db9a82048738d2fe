package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash produces a stable SHA-256 over the sorted table definitions.
// Sorting column and foreign-key slices (not just table names) before
// hashing means the result depends only on the registry's logical
// content, never on slice-literal order in tables.go.
func (r *Registry) Hash() string {
	var b strings.Builder
	for _, name := range r.Names() {
		t := r.tables[name]
		b.WriteString("TABLE ")
		b.WriteString(t.Name)
		b.WriteByte('\n')

		cols := make([]Column, len(t.Columns))
		copy(cols, t.Columns)
		sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
		for _, c := range cols {
			fmt.Fprintf(&b, "  COL %s %s notnull=%v unique=%v default=%q\n",
				c.Name, c.Type, c.NotNull, c.Unique, c.Default)
		}

		pk := make([]string, len(t.PrimaryKey))
		copy(pk, t.PrimaryKey)
		sort.Strings(pk)
		fmt.Fprintf(&b, "  PK %s autoid=%v\n", strings.Join(pk, ","), t.AutoID)

		fks := make([]string, len(t.ForeignKeys))
		for i, fk := range t.ForeignKeys {
			cc := append([]string(nil), fk.Columns...)
			rc := append([]string(nil), fk.RefColumns...)
			sort.Strings(cc)
			sort.Strings(rc)
			fks[i] = fmt.Sprintf("FK %s->%s(%s)", strings.Join(cc, ","), fk.RefTable, strings.Join(rc, ","))
		}
		sort.Strings(fks)
		for _, fk := range fks {
			b.WriteString("  ")
			b.WriteString(fk)
			b.WriteByte('\n')
		}

		idxs := make([]string, len(t.Indexes))
		for i, ix := range t.Indexes {
			ic := append([]string(nil), ix.Columns...)
			sort.Strings(ic)
			idxs[i] = fmt.Sprintf("IDX %s(%s) unique=%v", ix.Name, strings.Join(ic, ","), ix.Unique)
		}
		sort.Strings(idxs)
		for _, ix := range idxs {
			b.WriteString("  ")
			b.WriteString(ix)
			b.WriteByte('\n')
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifyStamp checks the registry's hash against a previously stamped
// value (e.g., one written alongside generated DDL/INSERT helpers at
// build time). A mismatch means the registry changed since generated
// code was produced: per the data-model invariant, the system MUST
// refuse to run until regenerated.
func (r *Registry) VerifyStamp(stamp string) bool {
	return stamp != "" && r.Hash() == stamp
}
