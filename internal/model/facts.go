// Package model defines the normalized fact rows every language
// extractor emits (spec §3's Data Model and §4.C's extractor contract),
// independent of any particular AST library. internal/store's schema
// and internal/graphbuild's projection both consume these shapes.
package model

// FileInfo identifies the file an Extractor is given. The orchestrator
// assigns Path; extractors take it from this struct, not from the AST,
// and copy it into the rows they emit.
type FileInfo struct {
	Path    string // forward-slash normalized
	SHA256  string
	Ext     string
	Bytes   int64
	Content []byte
}

// Symbol is one row of the symbols table.
type Symbol struct {
	Path           string
	Name           string
	Kind           string // function, class, parameter, variable, call
	Line           int
	Col            int
	EndLine        int
	TypeAnnotation string
	ParametersJSON string // ordered array of {name, ...} objects, verbatim
}

// Ref is one row of the refs table.
type Ref struct {
	Src   string
	Kind  string // import, from, require, ...
	Value string
	Line  int
}

// ImportStyle is one row of import_styles, with its specifiers nested
// here for convenience; the extractor/store boundary flattens
// Specifiers into import_specifiers rows.
type ImportStyle struct {
	File        string
	Line        int
	Package     string
	Style       string // namespace, named, default, side-effect
	Names       string
	Alias       string
	Specifiers  []string
}

// Assignment is one row of assignments, with its referenced source
// variables nested for convenience (flattened into assignment_sources).
type Assignment struct {
	File         string
	Line         int
	TargetVar    string
	SourceExpr   string
	InFunction   string
	PropertyPath string
	SourceVars   []string
}

// FunctionCallArg is one row of function_call_args.
type FunctionCallArg struct {
	File            string
	Line            int
	CallerFunction  string
	CalleeFunction  string
	ArgumentIndex   int
	ArgumentExpr    string
	ParamName       string
	CalleeFilePath  string
}

// FunctionReturn is one row of function_returns, with its referenced
// variables nested (flattened into function_return_sources).
type FunctionReturn struct {
	File         string
	Line         int
	FunctionName string
	ReturnExpr   string
	ReturnVars   []string
}

// CFGBlockType enumerates the recognized control-flow block kinds.
type CFGBlockType string

const (
	CFGEntry     CFGBlockType = "entry"
	CFGExit      CFGBlockType = "exit"
	CFGCondition CFGBlockType = "condition"
	CFGLoop      CFGBlockType = "loop"
	CFGBody      CFGBlockType = "body"
	CFGCall      CFGBlockType = "call"
)

// CFGBlock is one row of cfg_blocks, keyed (before flush) by a
// caller-assigned temporary id that AutoID rows within the same
// extraction unit use to link edges and statements.
type CFGBlock struct {
	TempID        int64
	File          string
	FunctionName  string
	BlockType     CFGBlockType
	StartLine     int
	EndLine       int
	ConditionExpr string
	Statements    []CFGStatement
}

// CFGStatement is one row of cfg_block_statements.
type CFGStatement struct {
	StatementType string
	Line          int
	StatementText string
}

// CFGEdge is one row of cfg_edges, referencing blocks by temporary id
// until the store's flush translates them.
type CFGEdge struct {
	SourceTempID int64
	TargetTempID int64
	EdgeType     string
}

// APIEndpoint is one row of api_endpoints.
type APIEndpoint struct {
	File             string
	Line             int
	Method           string
	Pattern          string
	Path             string
	HasAuth          bool
	HandlerFunction  string
	Controls         []string // flattened into api_endpoint_controls
}

// RouterMount is one row of router_mounts.
type RouterMount struct {
	File           string
	Line           int
	MountPathExpr  string
	RouterVariable string
	IsLiteral      bool
}

// MiddlewareChainEntry is one row of express_middleware_chains.
type MiddlewareChainEntry struct {
	File            string
	RouteLine       int
	RoutePath       string
	RouteMethod     string
	ExecutionOrder  int
	HandlerExpr     string
	HandlerType     string // middleware, controller
	HandlerFunction string
	HandlerFile     string
}

// ValidationUsage is one row of validation_framework_usage.
type ValidationUsage struct {
	FilePath     string
	Line         int
	Framework    string
	Method       string
	ArgumentExpr string
	IsValidator  bool
	VariableName string
}

// SQLQuery is one row of sql_queries, with its referenced tables nested
// (flattened into sql_query_tables).
type SQLQuery struct {
	File             string
	Line             int
	QueryText        string
	Command          string
	ExtractionSource string // code_execute, orm_query, migration_file
	Tables           []string
}

// SQLObject is one row of sql_objects.
type SQLObject struct {
	File string
	Kind string
	Name string
}

// ConfigFile is one row of config_files.
type ConfigFile struct {
	Path       string
	Content    string
	Type       string
	ContextDir string
}

// Facts is the full set of normalized rows a single Extract call
// returns. Any field left nil/empty simply yields no rows for that
// table; extractors populate only the subset relevant to their
// language.
type Facts struct {
	File             FileInfo
	Symbols          []Symbol
	ConfigFiles      []ConfigFile
	Refs             []Ref
	ImportStyles     []ImportStyle
	Assignments      []Assignment
	FunctionCallArgs []FunctionCallArg
	FunctionReturns  []FunctionReturn
	CFGBlocks        []CFGBlock
	CFGEdges         []CFGEdge
	APIEndpoints     []APIEndpoint
	RouterMounts     []RouterMount
	MiddlewareChains []MiddlewareChainEntry
	ValidationUsages []ValidationUsage
	SQLQueries       []SQLQuery
	SQLObjects       []SQLObject
	DomainFacts      []DomainFact
}

// DomainFact is a generic row for the non-taint-core domain tables
// (ORM, GraphQL, Docker, Terraform, GitHub Actions, Compose) — each
// carries its target table name and an ordered value list matching
// schema.InsertColumns(table), so internal/indexer can commit any
// domain-stack extractor's output through the same code path as the
// taint-core tables without a table-specific Facts field for each.
type DomainFact struct {
	Table  string
	Values []interface{}
}

// Manifest counts every record an Extract call emitted, keyed by table
// name (plus one entry per distinct DomainFact table). The orchestrator
// reconciles it against a Manifest recomputed from the same Facts value
// with NewManifest and hard-fails on mismatch (§4.C, §7
// fidelity_mismatch); it is not compared with the rows the store commits.
type Manifest struct {
	Counts map[string]int
}

// NewManifest derives a Manifest from a Facts value by counting each
// populated slice, so extractors never hand-maintain counts that could
// drift from what they actually appended.
func NewManifest(f *Facts) *Manifest {
	m := &Manifest{Counts: make(map[string]int)}
	add := func(key string, n int) {
		if n > 0 {
			m.Counts[key] = n
		}
	}
	add("symbols", len(f.Symbols))
	add("config_files", len(f.ConfigFiles))
	add("refs", len(f.Refs))
	add("import_styles", len(f.ImportStyles))
	add("assignments", len(f.Assignments))
	add("function_call_args", len(f.FunctionCallArgs))
	add("function_returns", len(f.FunctionReturns))
	add("cfg_blocks", len(f.CFGBlocks))
	add("cfg_edges", len(f.CFGEdges))
	add("api_endpoints", len(f.APIEndpoints))
	add("router_mounts", len(f.RouterMounts))
	add("express_middleware_chains", len(f.MiddlewareChains))
	add("validation_framework_usage", len(f.ValidationUsages))
	add("sql_queries", len(f.SQLQueries))
	add("sql_objects", len(f.SQLObjects))
	for _, df := range f.DomainFacts {
		m.Counts[df.Table]++
	}
	return m
}
