// Package registry seeds the two framework signal tables the Sanitizer
// Registry and the classifier read but no extractor ever produces on
// its own: framework_safe_sinks (name-based "this call is already
// escaped" facts) and framework_taint_patterns (named source/sink
// patterns per framework). These are static knowledge, not facts
// observed in any one file, so they are written once at the start of
// an index run rather than accumulated per-file like everything in
// internal/extract.
//
// Grounded on graph/callgraph/core/frameworks.go's builtinFrameworks --
// a literal slice of known-framework facts baked into the binary -- and
// on the concrete Express/Flask/Django safe-sink and taint-pattern
// tables theauditor's own indexer orchestrator seeds per detected
// framework. This package skips the separate framework-detection pass
// and seeds every known framework's rows unconditionally: a safe sink
// or taint pattern that matches nothing in the repo being analyzed is
// simply never scanned against, so seeding one a project doesn't use
// costs nothing but idle rows.
package registry

import "github.com/theauditor/auditor-core/internal/store"

// SafeSink is one row of framework_safe_sinks: a call whose name or
// substring marks its output as already encoded for the context it's
// used in (e.g. a JSON responder that escapes for you).
type SafeSink struct {
	FrameworkID string
	Pattern     string
	SinkType    string
	IsSafe      bool
	Reason      string
}

// TaintPattern is one row of framework_taint_patterns: a named
// source or sink pattern scoped to one framework's API surface.
type TaintPattern struct {
	FrameworkID string
	Pattern     string
	Direction   string // source, sink
	Category    string
}

// builtinSafeSinks mirrors the express_id seeding in theauditor's
// orchestrator: response helpers that serialize to JSON are treated as
// already-safe output for XSS purposes (they never interpolate into
// an HTML response body the way res.send/res.render do).
var builtinSafeSinks = []SafeSink{
	{FrameworkID: "express", Pattern: "res.json", SinkType: "response", IsSafe: true, Reason: "JSON encoded response"},
	{FrameworkID: "express", Pattern: "res.jsonp", SinkType: "response", IsSafe: true, Reason: "JSONP callback response"},
	{FrameworkID: "express", Pattern: "res.status().json", SinkType: "response", IsSafe: true, Reason: "JSON response with status code"},
}

// builtinTaintPatterns mirrors the Express/Flask/Django source and
// sink pattern lists theauditor's orchestrator seeds per framework.
var builtinTaintPatterns = []TaintPattern{
	// Express (Node/JS)
	{FrameworkID: "express", Pattern: "req.body", Direction: "source", Category: "http_request"},
	{FrameworkID: "express", Pattern: "req.params", Direction: "source", Category: "http_request"},
	{FrameworkID: "express", Pattern: "req.query", Direction: "source", Category: "http_request"},
	{FrameworkID: "express", Pattern: "req.headers", Direction: "source", Category: "http_request"},
	{FrameworkID: "express", Pattern: "req.cookies", Direction: "source", Category: "http_request"},
	{FrameworkID: "express", Pattern: "req.files", Direction: "source", Category: "http_request"},
	{FrameworkID: "express", Pattern: "eval", Direction: "sink", Category: "code_execution"},
	{FrameworkID: "express", Pattern: "Function", Direction: "sink", Category: "code_execution"},
	{FrameworkID: "express", Pattern: "child_process.exec", Direction: "sink", Category: "command_injection"},
	{FrameworkID: "express", Pattern: "child_process.execSync", Direction: "sink", Category: "command_injection"},
	{FrameworkID: "express", Pattern: "child_process.spawn", Direction: "sink", Category: "command_injection"},
	{FrameworkID: "express", Pattern: "res.send", Direction: "sink", Category: "xss"},
	{FrameworkID: "express", Pattern: "res.write", Direction: "sink", Category: "xss"},
	{FrameworkID: "express", Pattern: "res.render", Direction: "sink", Category: "xss"},
	{FrameworkID: "express", Pattern: "res.redirect", Direction: "sink", Category: "open_redirect"},
	{FrameworkID: "express", Pattern: "query", Direction: "sink", Category: "sql_injection"},
	{FrameworkID: "express", Pattern: "execute", Direction: "sink", Category: "sql_injection"},

	// Flask (Python)
	{FrameworkID: "flask", Pattern: "request.args", Direction: "source", Category: "http_request"},
	{FrameworkID: "flask", Pattern: "request.form", Direction: "source", Category: "http_request"},
	{FrameworkID: "flask", Pattern: "request.json", Direction: "source", Category: "http_request"},
	{FrameworkID: "flask", Pattern: "request.values", Direction: "source", Category: "http_request"},
	{FrameworkID: "flask", Pattern: "request.cookies", Direction: "source", Category: "http_request"},
	{FrameworkID: "flask", Pattern: "eval", Direction: "sink", Category: "code_execution"},
	{FrameworkID: "flask", Pattern: "os.system", Direction: "sink", Category: "command_injection"},
	{FrameworkID: "flask", Pattern: "subprocess.run", Direction: "sink", Category: "command_injection"},
	{FrameworkID: "flask", Pattern: "render_template_string", Direction: "sink", Category: "ssti"},
	{FrameworkID: "flask", Pattern: "cursor.execute", Direction: "sink", Category: "sql_injection"},

	// Django (Python)
	{FrameworkID: "django", Pattern: "request.GET", Direction: "source", Category: "http_request"},
	{FrameworkID: "django", Pattern: "request.POST", Direction: "source", Category: "http_request"},
	{FrameworkID: "django", Pattern: "request.body", Direction: "source", Category: "http_request"},
	{FrameworkID: "django", Pattern: "request.COOKIES", Direction: "source", Category: "http_request"},
	{FrameworkID: "django", Pattern: "eval", Direction: "sink", Category: "code_execution"},
	{FrameworkID: "django", Pattern: "cursor.execute", Direction: "sink", Category: "sql_injection"},
	{FrameworkID: "django", Pattern: "raw", Direction: "sink", Category: "sql_injection"},
	{FrameworkID: "django", Pattern: "mark_safe", Direction: "sink", Category: "xss"},
}

// Seed writes every builtin safe sink and taint pattern into s, once
// per index run, ahead of extraction. It does not flush; the caller's
// next Flush (typically the orchestrator's, after walking the tree)
// commits these rows alongside everything extraction produces.
func Seed(s *store.Store) error {
	for _, sink := range builtinSafeSinks {
		if err := s.Add("framework_safe_sinks", sink.FrameworkID, sink.Pattern, sink.SinkType, boolToInt(sink.IsSafe), sink.Reason); err != nil {
			return err
		}
	}
	for _, p := range builtinTaintPatterns {
		if err := s.Add("framework_taint_patterns", p.FrameworkID, p.Pattern, p.Direction, p.Category); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
