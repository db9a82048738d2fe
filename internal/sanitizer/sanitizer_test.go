package sanitizer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theauditor/auditor-core/internal/schema"
	"github.com/theauditor/auditor-core/internal/store"
)

func newTestRepo(t *testing.T) *store.Store {
	t.Helper()
	reg := schema.New()
	dbPath := filepath.Join(t.TempDir(), "repo_index.db")
	s, err := store.Open(dbPath, reg, 8)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMatchSafeSink(t *testing.T) {
	s := newTestRepo(t)
	require.NoError(t, s.Add("files", "app.js", "sha1", ".js", int64(10), int64(1)))
	require.NoError(t, s.Add("function_call_args", "app.js", 5, "handler", "res.json", 0, "payload", nil, nil))
	require.NoError(t, s.Add("framework_safe_sinks", "express", "res.json", "response", 1, "auto-escapes JSON"))
	require.NoError(t, s.Flush())

	r, err := New(s.DB())
	require.NoError(t, err)

	file, line, method, ok := r.Scan([]HopRef{{File: "app.js", Line: 5, NodeID: "app.js::handler::payload"}})
	require.True(t, ok)
	assert.Equal(t, "app.js", file)
	assert.Equal(t, 5, line)
	assert.Equal(t, "safe_sink:res.json", method)
}

func TestMatchValidationAnchorReturnsMethodVerbatim(t *testing.T) {
	s := newTestRepo(t)
	require.NoError(t, s.Add("files", "app.js", "sha1", ".js", int64(10), int64(1)))
	require.NoError(t, s.Add("validation_framework_usage", "app.js", 12, "joi", "validate:Schema", "req.body", 1, nil))
	require.NoError(t, s.Flush())

	r, err := New(s.DB())
	require.NoError(t, err)

	_, line, method, ok := r.Scan([]HopRef{{File: "app.js", Line: 15, NodeID: "app.js::handler::x"}})
	require.True(t, ok)
	assert.Equal(t, 12, line)
	assert.Equal(t, "validate:Schema", method, "method must not be re-wrapped with another framework: prefix")
}

func TestMatchValidatorNameFallsBackToNamePattern(t *testing.T) {
	s := newTestRepo(t)
	r, err := New(s.DB())
	require.NoError(t, err)

	_, _, method, ok := r.Scan([]HopRef{{File: "app.js", Line: 1, NodeID: "app.js::handler::sanitizeInput"}})
	require.True(t, ok)
	assert.Equal(t, "name_pattern:sanitize", method)
}

func TestScanReturnsFalseWhenNoSignalMatches(t *testing.T) {
	s := newTestRepo(t)
	r, err := New(s.DB())
	require.NoError(t, err)

	_, _, _, ok := r.Scan([]HopRef{{File: "app.js", Line: 1, NodeID: "app.js::handler::rawValue"}})
	assert.False(t, ok)
}
