// Package sanitizer is the Sanitizer Registry (spec component H): a
// uniform "did the path cross a sanitizer?" predicate built from three
// signals checked in order (name-based safe sinks, validation-framework
// anchors, validator-name patterns), per spec §4.H. Grounded on the
// substring-match idiom of graph/callgraph/patterns/frameworks.go's
// DetectFramework, generalized from "detect a framework" to "does this
// hop match a registered safe sink/validator."
package sanitizer

import (
	"database/sql"
	"sort"
	"strings"
)

// HopRef is the minimal view of a taint hop the registry needs to scan:
// the file/line it occurred at and the node id it targets.
type HopRef struct {
	File   string
	Line   int
	NodeID string
}

type safeSink struct {
	FrameworkID string
	Pattern     string
	SinkType    string
	IsSafe      bool
}

type validatorUse struct {
	Line        int
	Method      string
	IsValidator bool
}

// validatorNamePatterns are the language-agnostic validator/escaper name
// fragments spec §4.H.3 calls out by example.
var validatorNamePatterns = []string{"sanitize", "escape", "validate", "purify", "encodeHTML", "htmlspecialchars"}

// Registry holds every signal pre-loaded at construction time so the hot
// scan path (called once per recorded IFDS/FFR path) never touches SQL.
type Registry struct {
	safeSinks   []safeSink
	callArgs    map[string][]string // "file:line" -> callee_function names seen there
	validations map[string][]validatorUse // file -> sorted validation uses
}

// New loads framework_safe_sinks, the function_call_args (file,line)
// multi-map, and validation_framework_usage from repo, matching spec
// §4.H's "pre-loaded into an in-memory multi-map... on initialization."
func New(repo *sql.DB) (*Registry, error) {
	r := &Registry{
		callArgs:    make(map[string][]string),
		validations: make(map[string][]validatorUse),
	}

	if repo == nil {
		return r, nil
	}

	rows, err := repo.Query(`SELECT framework_id, sink_pattern, sink_type, is_safe FROM framework_safe_sinks`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var s safeSink
		var isSafe int
		if err := rows.Scan(&s.FrameworkID, &s.Pattern, &s.SinkType, &isSafe); err != nil {
			rows.Close()
			return nil, err
		}
		s.IsSafe = isSafe != 0
		r.safeSinks = append(r.safeSinks, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	caRows, err := repo.Query(`SELECT file, line, callee_function FROM function_call_args`)
	if err != nil {
		return nil, err
	}
	for caRows.Next() {
		var file, callee string
		var line int
		if err := caRows.Scan(&file, &line, &callee); err != nil {
			caRows.Close()
			return nil, err
		}
		key := keyOf(file, line)
		r.callArgs[key] = append(r.callArgs[key], callee)
	}
	caRows.Close()
	if err := caRows.Err(); err != nil {
		return nil, err
	}

	vRows, err := repo.Query(`SELECT file_path, line, method, is_validator FROM validation_framework_usage`)
	if err != nil {
		return nil, err
	}
	for vRows.Next() {
		var file, method string
		var line, isValidator int
		if err := vRows.Scan(&file, &line, &method, &isValidator); err != nil {
			vRows.Close()
			return nil, err
		}
		r.validations[file] = append(r.validations[file], validatorUse{Line: line, Method: method, IsValidator: isValidator != 0})
	}
	vRows.Close()
	if err := vRows.Err(); err != nil {
		return nil, err
	}
	for file := range r.validations {
		uses := r.validations[file]
		sort.Slice(uses, func(i, j int) bool { return uses[i].Line < uses[j].Line })
		r.validations[file] = uses
	}

	return r, nil
}

func keyOf(file string, line int) string {
	return file + ":" + itoa(line)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Scan checks every hop in order against the three signals and returns
// the metadata of the first match, matching spec §4.H: "On first positive
// match, the scan returns (file, line, method)."
func (r *Registry) Scan(hops []HopRef) (file string, line int, method string, sanitized bool) {
	for _, h := range hops {
		if f, l, m, ok := r.matchSafeSink(h); ok {
			return f, l, m, true
		}
		if f, l, m, ok := r.matchValidationAnchor(h); ok {
			return f, l, m, true
		}
		if m, ok := r.matchValidatorName(h); ok {
			return h.File, h.Line, m, true
		}
	}
	return "", 0, "", false
}

func (r *Registry) matchSafeSink(h HopRef) (string, int, string, bool) {
	callees := r.callArgs[keyOf(h.File, h.Line)]
	if len(callees) == 0 {
		return "", 0, "", false
	}
	for _, s := range r.safeSinks {
		if !s.IsSafe {
			continue
		}
		for _, callee := range callees {
			if callee == s.Pattern || strings.Contains(callee, s.Pattern) || strings.Contains(s.Pattern, callee) {
				return h.File, h.Line, "safe_sink:" + s.Pattern, true
			}
		}
	}
	return "", 0, "", false
}

// matchValidationAnchor reports a hit at (h.File, u.Line) when a
// validator call sits within 10 lines of the hop. u.Method is already
// the extractor's own "<framework>:<schema/validator>" label (e.g.
// "validate:Schema"), so it is returned verbatim rather than wrapped
// in another prefix.
func (r *Registry) matchValidationAnchor(h HopRef) (string, int, string, bool) {
	uses := r.validations[h.File]
	for _, u := range uses {
		if !u.IsValidator {
			continue
		}
		if abs(u.Line-h.Line) <= 10 {
			return h.File, u.Line, u.Method, true
		}
	}
	return "", 0, "", false
}

func (r *Registry) matchValidatorName(h HopRef) (string, bool) {
	lower := strings.ToLower(h.NodeID)
	for _, pat := range validatorNamePatterns {
		if strings.Contains(lower, strings.ToLower(pat)) {
			return "name_pattern:" + pat, true
		}
	}
	return "", false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
