// Package classify is the Vulnerability Classifier (spec component I): a
// pure, deterministic function from (sink pattern, source pattern) to a
// vulnerability kind, shared by both the IFDS engine and the Forward Flow
// Resolver so findings from either are directly comparable. Grounded on
// the pattern-list-driven classification idiom of
// graph/callgraph/patterns/detector.go.
package classify

import "strings"

// Precedence order matches spec §4.I exactly: XSS, SQLi, command/code
// injection, path traversal, SSRF, prototype pollution, log injection,
// open redirect, then a source-shaped fallback.
var sinkPatterns = []struct {
	Kind     string
	Patterns []string
}{
	{"Cross-Site Scripting (XSS)", []string{"innerhtml", "dangerouslysetinnerhtml", "document.write", "res.send", "render(", ".html("}},
	{"SQL Injection", []string{"query(", "execute(", "raw(", "select ", "insert ", "update ", "delete from"}},
	{"Command Injection", []string{"exec(", "spawn(", "system(", "popen(", "shell_exec", "os.system", "subprocess"}},
	{"Path Traversal", []string{"readfile", "sendfile", "path.join", "fs.read", "open(", "createreadstream"}},
	{"Server-Side Request Forgery (SSRF)", []string{"fetch(", "axios.get", "requests.get", "urlopen", "http.get", "curl"}},
	{"Prototype Pollution", []string{"object.assign", "merge(", "__proto__", "extend("}},
	{"Log Injection", []string{"console.log", "logger.", "log.info", "log.warn", "log.error"}},
	{"Open Redirect", []string{"redirect(", "location.href", "res.redirect"}},
}

var requestShapedPatterns = []string{"req.", "request.", "params.", "query.", "body.", "process.env", "process.argv"}

// Classify implements spec §4.I's ordered, case-insensitive substring
// cascade. sourcePattern may be empty when the caller has no source
// context (e.g. a sink reached with no matched source).
func Classify(sinkPattern, sourcePattern string) string {
	lowerSink := strings.ToLower(sinkPattern)
	for _, group := range sinkPatterns {
		for _, p := range group.Patterns {
			if strings.Contains(lowerSink, p) {
				return group.Kind
			}
		}
	}
	if looksRequestShaped(sourcePattern) {
		return "Unvalidated Input"
	}
	return "Data Exposure"
}

func looksRequestShaped(pattern string) bool {
	lower := strings.ToLower(pattern)
	for _, p := range requestShapedPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
