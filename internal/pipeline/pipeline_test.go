package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theauditor/auditor-core/internal/schema"
	"github.com/theauditor/auditor-core/internal/store"
	"github.com/theauditor/auditor-core/internal/taint/ffr"
	"github.com/theauditor/auditor-core/internal/taint/ifds"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	reg := schema.New()
	s, err := store.Open(filepath.Join(t.TempDir(), "repo_index.db"), reg, 64)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBaseIdentifier(t *testing.T) {
	assert.Equal(t, "req", baseIdentifier("req.body.id"))
	assert.Equal(t, "req", baseIdentifier("req.args.get('id')"))
	assert.Equal(t, "", baseIdentifier(`"literal"`))
	assert.Equal(t, "", baseIdentifier(""))
}

func TestLooksLikeSource(t *testing.T) {
	assert.True(t, looksLikeSource("req.body.id"))
	assert.True(t, looksLikeSource("process.env.SECRET"))
	assert.True(t, looksLikeSource("REQUEST.args"))
	assert.False(t, looksLikeSource("someLocalVariable"))
}

func TestDiscoverSinksSkipsDataExposureAndUnresolvableArgs(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("files", "app.py", "sha1", ".py", int64(10), int64(1)))
	require.NoError(t, s.Add("function_call_args", "app.py", 3, "handler", "db.execute", 0, "user_id", nil, nil))
	require.NoError(t, s.Add("function_call_args", "app.py", 4, "handler", "internalHelper", 0, "localVar", nil, nil))
	require.NoError(t, s.Add("function_call_args", "app.py", 5, "handler", "db.execute", 0, `"literal"`, nil, nil))
	require.NoError(t, s.Flush())

	sinks, err := discoverSinks(s.DB())
	require.NoError(t, err)
	require.Len(t, sinks, 1, "internalHelper classifies as Data Exposure and the literal argument has no base identifier")
	assert.Equal(t, "db.execute(user_id)", sinks[0].Pattern)
}

func TestDiscoverSourcesMatchesRequestShapedAssignments(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("files", "app.py", "sha1", ".py", int64(10), int64(1)))
	require.NoError(t, s.Add("assignments", "app.py", 2, "user_id", "req.args.get('id')", "handler", nil))
	require.NoError(t, s.Add("assignments", "app.py", 3, "total", "a + b", "handler", nil))
	require.NoError(t, s.Flush())

	sources, err := discoverSources(s.DB())
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "user_id", sources[0].Name)
	assert.Equal(t, "req", sources[0].AP.Base)
}

func TestDiscoverFFREntriesClassifiesByBase(t *testing.T) {
	sources := []ifds.SourceDef{
		{File: "a.py", Line: 1, Name: "x", Pattern: "req.body", AP: ifds.AccessPath{Base: "req"}},
		{File: "a.py", Line: 2, Name: "y", Pattern: "process.env.SECRET", AP: ifds.AccessPath{Base: "process.env"}},
	}
	entries := discoverFFREntries(sources)
	require.Len(t, entries, 2)
	assert.Equal(t, ffr.UserCode, entries[0].Kind)
	assert.Equal(t, ffr.Infrastructure, entries[1].Kind)
}

func TestWriteFindingsPersistsClassifiedVulnerability(t *testing.T) {
	s := newTestStore(t)
	finding := ifds.Finding{
		Source: ifds.SourceDef{File: "app.py", Line: 2, Pattern: "req.args.get('id')"},
		Sink:   ifds.Sink{File: "app.py", Line: 3, Pattern: "db.execute(user_id)"},
		Hops:   []ifds.Hop{{Type: "assignment", From: "req", To: "user_id", Line: 2}},
	}
	require.NoError(t, writeFindings(s.DB(), []ifds.Finding{finding}, "VULNERABLE"))

	var status, kind string
	row := s.DB().QueryRow(`SELECT status, vulnerability_kind FROM taint_findings WHERE sink_file = ? AND sink_line = ?`, "app.py", 3)
	require.NoError(t, row.Scan(&status, &kind))
	assert.Equal(t, "VULNERABLE", status)
	assert.Equal(t, "SQL Injection", kind)
}

func TestWriteFlowAuditPersistsSanitizedPath(t *testing.T) {
	s := newTestStore(t)
	path := ffr.Path{
		SourceFile: "app.py", SourcePattern: "req.body.html", SourceLine: 1,
		SinkFile: "app.py", SinkPattern: "res.send(html)", SinkLine: 4,
		Status:            "SANITIZED",
		SanitizerFile:     "app.py",
		SanitizerLine:     2,
		SanitizerMethod:   "escape",
		VulnerabilityKind: "Cross-Site Scripting (XSS)",
	}
	require.NoError(t, writeFlowAudit(s.DB(), []ffr.Path{path}))

	var status, sanMethod string
	row := s.DB().QueryRow(`SELECT status, sanitizer_method FROM resolved_flow_audit WHERE sink_file = ? AND sink_line = ?`, "app.py", 4)
	require.NoError(t, row.Scan(&status, &sanMethod))
	assert.Equal(t, "SANITIZED", status)
	assert.Equal(t, "escape", sanMethod)
}
