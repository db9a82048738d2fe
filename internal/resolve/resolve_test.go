package resolve

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
	s, err := store.Open(filepath.Join(t.TempDir(), "repo_index.db"), reg, 64)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParamNameStrategyResolvesGenericArgNames(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("files", "handlers.js", "sha1", ".js", int64(10), int64(1)))
	require.NoError(t, s.Add("files", "routes.js", "sha1", ".js", int64(10), int64(1)))
	require.NoError(t, s.Add("symbols", "handlers.js", "getUser", "function", 1, 0, nil, nil, `[{"name":"req"},{"name":"res"}]`))
	require.NoError(t, s.Add("function_call_args", "routes.js", 5, "handler", "getUser", 0, "request", "arg0", nil))
	require.NoError(t, s.Flush())

	require.NoError(t, ParamNameStrategy{}.Resolve(s.DB()))

	var paramName string
	row := s.DB().QueryRow(`SELECT param_name FROM function_call_args WHERE file = ? AND line = ?`, "routes.js", 5)
	require.NoError(t, row.Scan(&paramName))
	assert.Equal(t, "req", paramName)
}

func TestParamNameStrategyLeavesUnmatchedArgsAlone(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("files", "routes.js", "sha1", ".js", int64(10), int64(1)))
	require.NoError(t, s.Add("function_call_args", "routes.js", 5, "handler", "unknownFn", 0, "request", "arg0", nil))
	require.NoError(t, s.Flush())

	require.NoError(t, ParamNameStrategy{}.Resolve(s.DB()))

	var paramName string
	row := s.DB().QueryRow(`SELECT param_name FROM function_call_args WHERE file = ? AND line = ?`, "routes.js", 5)
	require.NoError(t, row.Scan(&paramName))
	assert.Equal(t, "arg0", paramName, "no matching symbol means the generic name stays")
}

func TestMountHierarchyStrategyFillsFullPath(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("files", "server.js", "sha1", ".js", int64(10), int64(1)))
	require.NoError(t, s.Add("files", "routes/users.js", "sha1", ".js", int64(10), int64(1)))
	require.NoError(t, s.Add("router_mounts", "server.js", 3, `"/api"`, "usersRouter", 1))
	require.NoError(t, s.Add("import_styles", "server.js", 1, "./routes/users.js", "require", "usersRouter", nil))
	require.NoError(t, s.Add("api_endpoints", "routes/users.js", 10, "GET", "/:id", "/:id", nil, 0, "getUser"))
	require.NoError(t, s.Flush())

	require.NoError(t, MountHierarchyStrategy{}.Resolve(s.DB()))

	var fullPath string
	row := s.DB().QueryRow(`SELECT full_path FROM api_endpoints WHERE file = ? AND line = ?`, "routes/users.js", 10)
	require.NoError(t, row.Scan(&fullPath))
	assert.Equal(t, "/api/:id", fullPath)
}

func TestHandlerFileStrategyResolvesImportedHandler(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("files", "routes.js", "sha1", ".js", int64(10), int64(1)))
	require.NoError(t, s.Add("import_styles", "routes.js", 1, "./controllers/users", "require", "usersController", nil))
	require.NoError(t, s.Add("express_middleware_chains", "routes.js", 5, "/users/:id", "GET", 0, "usersController.getUser", "handler", "usersController.getUser", nil))
	require.NoError(t, s.Flush())

	require.NoError(t, HandlerFileStrategy{}.Resolve(s.DB()))

	var handlerFile string
	row := s.DB().QueryRow(`SELECT handler_file FROM express_middleware_chains WHERE file = ? AND route_line = ? AND execution_order = ?`, "routes.js", 5, 0)
	require.NoError(t, row.Scan(&handlerFile))
	assert.Equal(t, "controllers/users.ts", handlerFile)
}

func TestResolveModulePathVariants(t *testing.T) {
	assert.Equal(t, "routes/users.ts", resolveModulePath("routes/index.js", "./users"))
	assert.Equal(t, "controllers/users.ts", resolveModulePath("routes/index.js", "../controllers/users"))
	assert.Equal(t, "src/shared/db", resolveModulePath("routes/index.js", "@shared/db"))
	assert.Equal(t, "", resolveModulePath("routes/index.js", "express"), "bare package specifiers resolve to nothing on disk")
	assert.Equal(t, "", resolveModulePath("routes/index.js", ""))
}
