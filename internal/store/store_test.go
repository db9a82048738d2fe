package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theauditor/auditor-core/internal/schema"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	reg := schema.New()
	dbPath := filepath.Join(t.TempDir(), "repo_index.db")
	s, err := Open(dbPath, reg, 2)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddRejectsWrongColumnCount(t *testing.T) {
	s := newTestStore(t)
	err := s.Add("files", "a.py")
	assert.Error(t, err)
}

func TestAddAndFlushFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("files", "a.py", "sha1", ".py", int64(10), int64(1)))
	require.NoError(t, s.Flush())

	var count int
	row := s.DB().QueryRow("SELECT COUNT(*) FROM files")
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, s.FlushedCounts()["files"])
}

func TestAddAutoIDOnNonAutoTableFails(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddAutoID("files", "a.py", "sha1", ".py", int64(10), int64(1))
	assert.Error(t, err)
}

func TestCFGBlockTempIDTranslation(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("files", "a.py", "sha1", ".py", int64(10), int64(1)))

	blockCols := schema.InsertColumns(s.registry.MustHave("cfg_blocks"))
	require.Equal(t, []string{"file", "function_name", "block_type", "start_line", "end_line", "condition_expr"}, blockCols)

	tmp1, err := s.AddAutoID("cfg_blocks", "a.py", "f", "entry", int64(1), int64(1), nil)
	require.NoError(t, err)
	tmp2, err := s.AddAutoID("cfg_blocks", "a.py", "f", "exit", int64(2), int64(2), nil)
	require.NoError(t, err)
	assert.Less(t, tmp1, int64(0))
	assert.Less(t, tmp2, int64(0))
	assert.NotEqual(t, tmp1, tmp2)

	require.NoError(t, s.Add("cfg_edges", tmp1, tmp2, "fallthrough"))
	require.NoError(t, s.Flush())

	var sourceID, targetID int64
	row := s.DB().QueryRow("SELECT source_block_id, target_block_id FROM cfg_edges")
	require.NoError(t, row.Scan(&sourceID, &targetID))
	assert.Greater(t, sourceID, int64(0))
	assert.Greater(t, targetID, int64(0))
	assert.NotEqual(t, sourceID, targetID)
}

func TestFlushIsNoOpWhenEmpty(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Flush())
}

func TestBatchAutoFlushesAtBatchSize(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("files", "a.py", "sha1", ".py", int64(10), int64(1)))
	require.NoError(t, s.Add("files", "b.py", "sha2", ".py", int64(20), int64(2)))

	var count int
	row := s.DB().QueryRow("SELECT COUNT(*) FROM files")
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 2, count, "batch size 2 should have auto-flushed")
}
