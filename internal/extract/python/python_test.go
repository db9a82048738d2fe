package python

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theauditor/auditor-core/internal/model"
)

func extractSrc(t *testing.T, src string) *model.Facts {
	t.Helper()
	facts, manifest, err := New().Extract(context.Background(), model.FileInfo{
		Path: "app.py", Content: []byte(src),
	})
	require.NoError(t, err)
	require.NotNil(t, manifest)
	return facts
}

func TestExtractFunctionSymbol(t *testing.T) {
	facts := extractSrc(t, "def handler(request):\n    return request\n")
	require.Len(t, facts.Symbols, 1)
	assert.Equal(t, "handler", facts.Symbols[0].Name)
	assert.Equal(t, "function", facts.Symbols[0].Kind)
	assert.Equal(t, `[{"name":"request"}]`, facts.Symbols[0].ParametersJSON)
}

func TestExtractAssignmentSourceVars(t *testing.T) {
	facts := extractSrc(t, "def f():\n    user_id = request.args.get('id')\n")
	require.Len(t, facts.Assignments, 1)
	a := facts.Assignments[0]
	assert.Equal(t, "user_id", a.TargetVar)
	assert.Equal(t, "f", a.InFunction)
	assert.Contains(t, a.SourceVars, "request")
}

func TestExtractCallArgs(t *testing.T) {
	facts := extractSrc(t, "def f():\n    db.execute(query)\n")
	require.Len(t, facts.FunctionCallArgs, 1)
	arg := facts.FunctionCallArgs[0]
	assert.Equal(t, "db.execute", arg.CalleeFunction)
	assert.Equal(t, "query", arg.ArgumentExpr)
	assert.Equal(t, 0, arg.ArgumentIndex)
	assert.Equal(t, "arg0", arg.ParamName)
}

func TestExtractReturnVars(t *testing.T) {
	facts := extractSrc(t, "def f(x):\n    return x\n")
	require.Len(t, facts.FunctionReturns, 1)
	assert.Equal(t, "f", facts.FunctionReturns[0].FunctionName)
	assert.Contains(t, facts.FunctionReturns[0].ReturnVars, "x")
}

func TestExtractClassSymbol(t *testing.T) {
	facts := extractSrc(t, "class Widget:\n    def __init__(self):\n        pass\n")
	var kinds []string
	for _, s := range facts.Symbols {
		kinds = append(kinds, s.Kind)
	}
	assert.Contains(t, kinds, "class")
	assert.Contains(t, kinds, "function")
}

func TestExtractAssignmentSourceVarsSkipsAttributeNames(t *testing.T) {
	facts := extractSrc(t, "def f():\n    x = y.f\n")
	require.Len(t, facts.Assignments, 1)
	a := facts.Assignments[0]
	assert.Equal(t, []string{"y"}, a.SourceVars)
}

func TestExtractMalformedSourceDoesNotError(t *testing.T) {
	_, manifest, err := New().Extract(context.Background(), model.FileInfo{
		Path: "broken.py", Content: []byte("def (((("),
	})
	require.NoError(t, err)
	assert.NotNil(t, manifest)
}

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{".py"}, New().SupportedExtensions())
}
