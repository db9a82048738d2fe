package jsts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"}, New(30).SupportedExtensions())
}

func TestPrepareVerifiesEmbeddedBuildSignature(t *testing.T) {
	e := New(30)
	e.prepare()
	require.NoError(t, e.buildErr, "embedded extractor.cjs must match its committed .build_signature")
	assert.FileExists(t, e.scriptPath)
}

func TestToModelFactsMapsAllFactKinds(t *testing.T) {
	wire := &wireFacts{
		Symbols: []wireSymbol{{Name: "handler", Kind: "function", Line: 1, Col: 0, EndLine: 3}},
		Refs:    []wireRef{{Kind: "call", Value: "res.json", Line: 2}},
		ImportStyles: []wireImportStyle{
			{Line: 1, Package: "express", Style: "require", Names: "express", Specifiers: []string{"express"}},
		},
		Assignments: []wireAssignment{
			{Line: 2, TargetVar: "id", SourceExpr: "req.params.id", InFunction: "handler", SourceVars: []string{"req"}},
		},
		FunctionCallArgs: []wireFunctionCallArg{
			{Line: 3, CallerFunction: "handler", CalleeFunction: "db.query", ArgumentIndex: 0, ArgumentExpr: "id", ParamName: "arg0"},
		},
		FunctionReturns: []wireFunctionReturn{
			{Line: 4, FunctionName: "handler", ReturnExpr: "id", ReturnVars: []string{"id"}},
		},
		APIEndpoints: []wireAPIEndpoint{
			{Line: 1, Method: "GET", Pattern: "/users/:id", Path: "/users/:id", HasAuth: true, HandlerFunction: "handler", Controls: []string{"requireAuth"}},
		},
		RouterMounts: []wireRouterMount{
			{Line: 1, MountPathExpr: "/api", RouterVariable: "router", IsLiteral: true},
		},
		MiddlewareChains: []wireMiddlewareChain{
			{RouteLine: 1, RoutePath: "/users/:id", RouteMethod: "GET", ExecutionOrder: 0, HandlerExpr: "requireAuth", HandlerType: "middleware", HandlerFunction: "requireAuth"},
		},
		ValidationUsages: []wireValidationUsage{
			{Line: 1, Framework: "joi", Method: "validate:Schema", ArgumentExpr: "req.body", IsValidator: true, VariableName: "schema"},
		},
		SQLQueries: []wireSQLQuery{
			{Line: 3, QueryText: "SELECT * FROM users WHERE id = ?", Command: "SELECT", Tables: []string{"users"}},
		},
	}

	f := toModelFacts("routes/users.js", wire)

	require.Len(t, f.Symbols, 1)
	assert.Equal(t, "routes/users.js", f.Symbols[0].Path)
	assert.Equal(t, "handler", f.Symbols[0].Name)

	require.Len(t, f.Refs, 1)
	assert.Equal(t, "routes/users.js", f.Refs[0].Src)

	require.Len(t, f.ImportStyles, 1)
	assert.Equal(t, "express", f.ImportStyles[0].Package)

	require.Len(t, f.Assignments, 1)
	assert.Equal(t, "routes/users.js", f.Assignments[0].File)
	assert.Contains(t, f.Assignments[0].SourceVars, "req")

	require.Len(t, f.FunctionCallArgs, 1)
	assert.Equal(t, "db.query", f.FunctionCallArgs[0].CalleeFunction)

	require.Len(t, f.FunctionReturns, 1)
	assert.Equal(t, "handler", f.FunctionReturns[0].FunctionName)

	require.Len(t, f.APIEndpoints, 1)
	assert.Equal(t, "GET", f.APIEndpoints[0].Method)
	assert.True(t, f.APIEndpoints[0].HasAuth)
	assert.Contains(t, f.APIEndpoints[0].Controls, "requireAuth")

	require.Len(t, f.RouterMounts, 1)
	assert.Equal(t, "router", f.RouterMounts[0].RouterVariable)

	require.Len(t, f.MiddlewareChains, 1)
	assert.Equal(t, "requireAuth", f.MiddlewareChains[0].HandlerFunction)

	require.Len(t, f.ValidationUsages, 1)
	assert.Equal(t, "validate:Schema", f.ValidationUsages[0].Method)
	assert.True(t, f.ValidationUsages[0].IsValidator)

	require.Len(t, f.SQLQueries, 1)
	assert.Equal(t, "code_execute", f.SQLQueries[0].ExtractionSource)
	assert.Contains(t, f.SQLQueries[0].Tables, "users")
}

func TestToModelFactsEmptyInputProducesEmptyFacts(t *testing.T) {
	f := toModelFacts("empty.js", &wireFacts{})
	assert.Empty(t, f.Symbols)
	assert.Empty(t, f.Assignments)
	assert.Empty(t, f.APIEndpoints)
}
