// Package ifds is the IFDS Backward Engine (spec component F): a
// field-sensitive, demand-driven backward reachability analysis over
// access paths, per spec §4.F. Grounded on the worklist/visited-set DFS
// idiom of dsl/dataflow_executor.go, field-sensitized and reversed, and
// on the synthetic-source annotation concept of
// graph/callgraph/analysis/taint/analyzer.go's TaintSummary.
package ifds

import (
	"strings"
)

// AccessPath is the immutable domain element spec §4.F.1 defines:
// base.field1.field2... at a specific (file, function) program point,
// k-limited to MaxLength fields. File is always forward-slash normalized
// on construction so Windows-path equality is impossible by construction
// (spec invariant #1, testable property #5).
type AccessPath struct {
	File      string
	Function  string
	Base      string
	Fields    []string
	MaxLength int
}

// New constructs an AccessPath, normalizing file to forward slashes.
func New(file, function, base string, fields []string, maxLength int) AccessPath {
	if maxLength <= 0 {
		maxLength = 5
	}
	return AccessPath{
		File:      normalizeSlashes(file),
		Function:  function,
		Base:      base,
		Fields:    append([]string(nil), fields...),
		MaxLength: maxLength,
	}
}

func normalizeSlashes(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// NodeID renders the canonical round-trip string: file::function::base[.f1.f2...].
func (a AccessPath) NodeID() string {
	id := a.File + "::" + a.Function + "::" + a.Base
	if len(a.Fields) > 0 {
		id += "." + strings.Join(a.Fields, ".")
	}
	return id
}

// Parse parses a node id produced by NodeID (or graphbuild.NodeID, which
// uses the identical format) back into an AccessPath. Malformed ids are
// rejected, never silently coerced, per spec §4.F.1.
func Parse(nodeID string, maxLength int) (AccessPath, bool) {
	parts := strings.SplitN(nodeID, "::", 3)
	if len(parts) != 3 {
		return AccessPath{}, false
	}
	file, function, baseAndFields := parts[0], parts[1], parts[2]
	if baseAndFields == "" {
		return AccessPath{}, false
	}
	segs := strings.Split(baseAndFields, ".")
	base := segs[0]
	if base == "" {
		return AccessPath{}, false
	}
	var fields []string
	if len(segs) > 1 {
		fields = segs[1:]
	}
	return New(file, function, base, fields, maxLength), true
}

// AppendField returns a new AccessPath with field appended, or (zero,
// false) if doing so would exceed MaxLength -- the k-limit that bounds
// worst-case complexity (spec §4.F.1, testable property #8) rather than
// lengthening past the cap.
func (a AccessPath) AppendField(field string) (AccessPath, bool) {
	if len(a.Fields) >= a.MaxLength {
		return AccessPath{}, false
	}
	next := a
	next.Fields = append(append([]string(nil), a.Fields...), field)
	return next, true
}

// StripFields returns a new AccessPath with its last n fields removed
// (n clamped to len(Fields)).
func (a AccessPath) StripFields(n int) AccessPath {
	if n > len(a.Fields) {
		n = len(a.Fields)
	}
	next := a
	next.Fields = append([]string(nil), a.Fields[:len(a.Fields)-n]...)
	return next
}

// ChangeBase returns a new AccessPath with the same fields but a
// different (file, function, base) -- used when a flow edge crosses into
// a new scope (e.g. a call argument binding to a callee parameter).
func (a AccessPath) ChangeBase(file, function, base string) AccessPath {
	return New(file, function, base, a.Fields, a.MaxLength)
}

// Matches implements the conservative aliasing rule spec §4.F.1
// documents: same base, and one field tuple is a prefix of the other.
// This is the deliberate recall/precision tradeoff spec.md §1's
// non-goals call for ("Aliasing is deliberately approximated... to trade
// recall for scalability").
func (a AccessPath) Matches(b AccessPath) bool {
	if a.Base != b.Base {
		return false
	}
	short, long := a.Fields, b.Fields
	if len(short) > len(long) {
		short, long = long, short
	}
	for i, f := range short {
		if long[i] != f {
			return false
		}
	}
	return true
}

// Equal is value equality over the logical tuple (file, function, base,
// fields), independent of how MaxLength was configured.
func (a AccessPath) Equal(b AccessPath) bool {
	if a.File != b.File || a.Function != b.Function || a.Base != b.Base {
		return false
	}
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i] != b.Fields[i] {
			return false
		}
	}
	return true
}
