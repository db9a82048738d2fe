package graphbuild

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theauditor/auditor-core/internal/graphstore"
	"github.com/theauditor/auditor-core/internal/schema"
	"github.com/theauditor/auditor-core/internal/store"
)

func newTestRepo(t *testing.T) *store.Store {
	t.Helper()
	reg := schema.New()
	s, err := store.Open(filepath.Join(t.TempDir(), "repo_index.db"), reg, 64)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestGraph(t *testing.T) *graphstore.Store {
	t.Helper()
	gs, err := graphstore.Open(filepath.Join(t.TempDir(), "graphs.db"), 64)
	require.NoError(t, err)
	t.Cleanup(func() { gs.Close() })
	return gs
}

// forwardEdgeType returns the type of the (non-reverse) edge stored
// directly from src to dst, or "" if none exists.
func forwardEdgeType(t *testing.T, gs *graphstore.Store, src, dst string) string {
	t.Helper()
	var typ string
	row := gs.DB().QueryRow(`SELECT type FROM edges WHERE source = ? AND target = ? AND type NOT LIKE '%_reverse'`, src, dst)
	err := row.Scan(&typ)
	if err != nil {
		return ""
	}
	return typ
}

func TestSplitPropertyPath(t *testing.T) {
	base, fields := SplitPropertyPath("req.params.id")
	assert.Equal(t, "req", base)
	assert.Equal(t, []string{"params", "id"}, fields)
}

func TestBuildAssignmentEdgesFieldStore(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Add("files", "app.py", "sha1", ".py", int64(1), int64(1)))
	// user.name = raw  ("x.f = y")
	require.NoError(t, repo.Add("assignments", "app.py", 1, "user", "raw", "f", "user.name"))
	require.NoError(t, repo.Add("assignment_sources", "app.py", 1, "user", "raw"))
	require.NoError(t, repo.Flush())

	gs := newTestGraph(t)
	b := New(repo.DB(), gs)
	require.NoError(t, b.buildAssignmentEdges())
	require.NoError(t, gs.Flush())

	src := NodeID("app.py", "f", "raw")
	dst := NodeID("app.py", "f", "user", "name")
	assert.Equal(t, "field_store", forwardEdgeType(t, gs, src, dst))
}

func TestBuildAssignmentEdgesFieldLoad(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Add("files", "app.py", "sha1", ".py", int64(1), int64(1)))
	// name = user.name  ("x = y.f")
	require.NoError(t, repo.Add("assignments", "app.py", 2, "name", "user.name", "f", nil))
	require.NoError(t, repo.Add("assignment_sources", "app.py", 2, "name", "user"))
	require.NoError(t, repo.Flush())

	gs := newTestGraph(t)
	b := New(repo.DB(), gs)
	require.NoError(t, b.buildAssignmentEdges())
	require.NoError(t, gs.Flush())

	src := NodeID("app.py", "f", "user", "name")
	dst := NodeID("app.py", "f", "name")
	assert.Equal(t, "field_load", forwardEdgeType(t, gs, src, dst))
}

func TestBuildAssignmentEdgesPlainCopy(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Add("files", "app.py", "sha1", ".py", int64(1), int64(1)))
	require.NoError(t, repo.Add("assignments", "app.py", 3, "b", "a", "f", nil))
	require.NoError(t, repo.Add("assignment_sources", "app.py", 3, "b", "a"))
	require.NoError(t, repo.Flush())

	gs := newTestGraph(t)
	b := New(repo.DB(), gs)
	require.NoError(t, b.buildAssignmentEdges())
	require.NoError(t, gs.Flush())

	src := NodeID("app.py", "f", "a")
	dst := NodeID("app.py", "f", "b")
	assert.Equal(t, "assignment", forwardEdgeType(t, gs, src, dst))
}

func TestSourceFieldAccess(t *testing.T) {
	fields, ok := sourceFieldAccess("user.name", "user")
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, fields)

	_, ok = sourceFieldAccess("user", "user")
	assert.False(t, ok, "bare variable reference is not a field access")

	_, ok = sourceFieldAccess("userdata.name", "user")
	assert.False(t, ok, "must match a dotted prefix, not just a string prefix")

	_, ok = sourceFieldAccess("other.name", "user")
	assert.False(t, ok)
}
