package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theauditor/auditor-core/internal/config"
	"github.com/theauditor/auditor-core/internal/extract"
	"github.com/theauditor/auditor-core/internal/log"
	"github.com/theauditor/auditor-core/internal/model"
	"github.com/theauditor/auditor-core/internal/schema"
	"github.com/theauditor/auditor-core/internal/store"
)

func TestNormalizeSlashes(t *testing.T) {
	assert.Equal(t, "a/b/c.py", normalizeSlashes(`a\b\c.py`))
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(nil))
	assert.Equal(t, 1, countLines([]byte("one line, no trailing newline")))
	assert.Equal(t, 3, countLines([]byte("a\nb\nc\n")))
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	assert.Nil(t, nullable(0))
	assert.Equal(t, "x", nullable("x"))
	assert.Equal(t, 5, nullable(5))
}

func TestBoolToInt(t *testing.T) {
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}

func newTestOrchestrator(t *testing.T, projectRoot string, disp *extract.Dispatcher) (*Orchestrator, *store.Store) {
	t.Helper()
	reg := schema.New()
	s, err := store.Open(filepath.Join(t.TempDir(), "repo_index.db"), reg, 64)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfg := config.Default(projectRoot)
	logger := log.New(log.VerbosityQuiet)
	return New(cfg, disp, s, logger), s
}

func TestWalkSkipsExcludedDirsAndReturnsSortedOrder(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "skip.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "z.py"), []byte("z"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("a"), 0o644))

	o, _ := newTestOrchestrator(t, root, extract.NewDispatcher())
	files, err := o.walk()
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.relPath)
	}
	assert.Equal(t, []string{"a.py", "z.py"}, rels, "node_modules must be excluded and results sorted")
}

func TestReconcileNilManifestIsNoOp(t *testing.T) {
	o, _ := newTestOrchestrator(t, t.TempDir(), extract.NewDispatcher())
	require.NoError(t, o.reconcile("x.py", &model.Facts{}, nil))
}

func TestReconcileDetectsFidelityMismatch(t *testing.T) {
	o, _ := newTestOrchestrator(t, t.TempDir(), extract.NewDispatcher())
	facts := &model.Facts{Symbols: []model.Symbol{{Path: "x.py", Name: "f", Kind: "function", Line: 1}}}
	manifest := &model.Manifest{Counts: map[string]int{"symbols": 2}}
	err := o.reconcile("x.py", facts, manifest)
	require.Error(t, err)
}

func TestReconcileAcceptsMatchingManifest(t *testing.T) {
	o, _ := newTestOrchestrator(t, t.TempDir(), extract.NewDispatcher())
	facts := &model.Facts{Symbols: []model.Symbol{{Path: "x.py", Name: "f", Kind: "function", Line: 1}}}
	manifest := model.NewManifest(facts)
	require.NoError(t, o.reconcile("x.py", facts, manifest))
}

// stubExtractor always reports one symbol per file and a manifest
// consistent with it, so Run's full commit+reconcile path is exercised
// without depending on a real language extractor.
type stubExtractor struct{}

func (stubExtractor) SupportedExtensions() []string { return []string{".py"} }

func (stubExtractor) Extract(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error) {
	facts := &model.Facts{
		File:    file,
		Symbols: []model.Symbol{{Path: file.Path, Name: "f", Kind: "function", Line: 1, Col: 0}},
	}
	return facts, model.NewManifest(facts), nil
}

func TestRunCommitsFactsAndReconciles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.py"), []byte("def f(): pass\n"), 0o644))

	disp := extract.NewDispatcher()
	disp.Register(stubExtractor{})

	o, s := newTestOrchestrator(t, root, disp)
	res, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesWalked)
	assert.Equal(t, 1, res.FilesExtracted)
	assert.Empty(t, res.Findings)

	var count int
	row := s.DB().QueryRow(`SELECT COUNT(*) FROM symbols WHERE path = ? AND name = ?`, "app.py", "f")
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}
