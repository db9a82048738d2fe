package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theauditor/auditor-core/internal/schema"
	"github.com/theauditor/auditor-core/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	reg := schema.New()
	dbPath := filepath.Join(t.TempDir(), "repo_index.db")
	s, err := store.Open(dbPath, reg, 64)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSeedWritesSafeSinksAndTaintPatterns(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Seed(s))
	require.NoError(t, s.Flush())

	var sinkCount int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM framework_safe_sinks").Scan(&sinkCount))
	assert.Equal(t, len(builtinSafeSinks), sinkCount)

	var patternCount int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM framework_taint_patterns").Scan(&patternCount))
	assert.Equal(t, len(builtinTaintPatterns), patternCount)
}

func TestSeedExpressJSONSinksAreMarkedSafe(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Seed(s))
	require.NoError(t, s.Flush())

	var isSafe int
	row := s.DB().QueryRow(`SELECT is_safe FROM framework_safe_sinks WHERE framework_id = 'express' AND sink_pattern = 'res.json'`)
	require.NoError(t, row.Scan(&isSafe))
	assert.Equal(t, 1, isSafe)
}

func TestBuiltinTaintPatternsCoverExpressFlaskDjango(t *testing.T) {
	frameworks := map[string]bool{}
	for _, p := range builtinTaintPatterns {
		frameworks[p.FrameworkID] = true
	}
	assert.True(t, frameworks["express"])
	assert.True(t, frameworks["flask"])
	assert.True(t, frameworks["django"])
}
