// Package graphbuild is the Graph Builder (spec component E): a pure
// projection of the relational model (internal/store's repo_index.db)
// into the materialized forward+reverse edge store (internal/graphstore's
// graphs.db). It has no opinions of its own -- it never reads source
// text, only rows already committed by extractors and the post-resolution
// pass. Grounded on the teacher's graph/callgraph/core.CallGraph.AddEdge
// forward+reverse-in-one-call idiom, retargeted from an in-memory
// map[string][]string to SQL rows carrying edge-type and line metadata.
package graphbuild

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/theauditor/auditor-core/internal/graphstore"
)

// NodeID renders the canonical access-path node identifier spec §4.E
// defines: file::function::base[.field1.field2...]. The function part
// is used as given: module-scope references keep whatever scope name
// their extractor wrote (the bash extractor writes "<module>"), and no
// caller normalizes it.
func NodeID(file, function, base string, fields ...string) string {
	id := file + "::" + function + "::" + base
	if len(fields) > 0 {
		id += "." + strings.Join(fields, ".")
	}
	return id
}

// SplitPropertyPath turns "req.params.id" into base="req", fields=["params","id"].
func SplitPropertyPath(path string) (base string, fields []string) {
	parts := strings.Split(path, ".")
	if len(parts) == 0 {
		return path, nil
	}
	return parts[0], parts[1:]
}

// Builder projects repo_index.db into a graphstore.Store.
type Builder struct {
	repo *sql.DB
	gs   *graphstore.Store
}

// New creates a Builder reading from repo and writing to gs.
func New(repo *sql.DB, gs *graphstore.Store) *Builder {
	return &Builder{repo: repo, gs: gs}
}

// Build runs every projection pass in turn and flushes the graph store.
// Order does not matter between passes -- each reads only repo_index.db
// and appends independent edges.
func (b *Builder) Build() error {
	passes := []func() error{
		b.buildAssignmentEdges,
		b.buildCallArgumentEdges,
		b.buildReturnToCallerEdges,
		b.buildMiddlewareChainEdges,
		b.buildCrossBoundaryAPIEdges,
	}
	for _, pass := range passes {
		if err := pass(); err != nil {
			return err
		}
	}
	return b.gs.Flush()
}

// buildAssignmentEdges projects assignments+assignment_sources into
// "assignment"/"assignment_reverse" edges for plain variable-to-variable
// copies, "field_store" edges when property_path marks an attribute
// target ("x.f = y"), and "field_load" edges when the source side is
// itself an attribute access ("x = y.f"). field_store_pass (spec §4.E's
// third field edge kind) is deliberately not materialized here: per
// theauditor's original IFDS implementation it is a traversal-time
// identity case ("this store doesn't alias the path I'm tracing, keep
// looking past it"), not a precomputed edge -- since Engine.predecessors
// already falls through to whatever earlier edge targets the same
// AccessPath when a statement contributes none, the "pass" behavior
// is the graph's natural default and needs no row of its own. A
// genuine overwrite of a whole subtree ("x.f = ..." while tracing
// "x.f.g") also emits nothing here, which is the kill case.
func (b *Builder) buildAssignmentEdges() error {
	rows, err := b.repo.Query(`
		SELECT a.file, a.line, a.target_var, a.in_function, a.property_path, a.source_expr, s.source_var_name
		FROM assignments a
		JOIN assignment_sources s ON s.file = a.file AND s.line = a.line AND s.target_var = a.target_var
		ORDER BY a.file, a.line, a.target_var, s.source_var_name`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var file, target, fn, propPath, sourceExpr, srcVar string
		var line int
		var propPathN sql.NullString
		if err := rows.Scan(&file, &line, &target, &fn, &propPathN, &sourceExpr, &srcVar); err != nil {
			return err
		}
		propPath = propPathN.String

		var srcNode, dstNode, edgeType string
		if propPath != "" {
			// "x.f = y": the store target carries the field path, the
			// source is traced as the plain variable it names.
			base, fields := SplitPropertyPath(propPath)
			srcNode = NodeID(file, fn, srcVar)
			dstNode = NodeID(file, fn, base, fields...)
			edgeType = "field_store"
		} else if fieldPath, ok := sourceFieldAccess(sourceExpr, srcVar); ok {
			// "x = y.f": the load side carries the field path, the
			// target is the plain variable receiving it.
			srcNode = NodeID(file, fn, srcVar, fieldPath...)
			dstNode = NodeID(file, fn, target)
			edgeType = "field_load"
		} else {
			srcNode = NodeID(file, fn, srcVar)
			dstNode = NodeID(file, fn, target)
			edgeType = "assignment"
		}
		if err := b.gs.AddEdgePair(srcNode, dstNode, edgeType, "{}", file, line); err != nil {
			return err
		}
	}
	return rows.Err()
}

// sourceFieldAccess reports whether sourceExpr accesses srcVar through
// one or more attribute hops ("srcVar.a.b...") and, if so, the field
// path beyond the base. A bare "srcVar" or an expression where srcVar
// only appears as an argument/operand (no leading "srcVar.") is not a
// field access.
func sourceFieldAccess(sourceExpr, srcVar string) ([]string, bool) {
	trimmed := strings.TrimSpace(sourceExpr)
	prefix := srcVar + "."
	if !strings.HasPrefix(trimmed, prefix) {
		return nil, false
	}
	rest := strings.TrimPrefix(trimmed, prefix)
	if rest == "" || !isIdentifier(strings.Split(rest, ".")[0]) {
		return nil, false
	}
	return strings.Split(rest, "."), true
}

// buildCallArgumentEdges projects function_call_args into
// "call_argument"/"call_argument_reverse" edges linking the argument
// variable at the call site to the callee's declared parameter. Where
// callee_file_path is NULL the callee is assumed to live in the caller's
// file; no pass in internal/resolve fills callee_file_path.
func (b *Builder) buildCallArgumentEdges() error {
	rows, err := b.repo.Query(`
		SELECT file, line, caller_function, callee_function, argument_expr, param_name, callee_file_path
		FROM function_call_args
		ORDER BY file, line, argument_index`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var file, caller, callee, argExpr, paramName string
		var line int
		var calleeFile, paramNameN sql.NullString
		if err := rows.Scan(&file, &line, &caller, &callee, &argExpr, &paramNameN, &calleeFile); err != nil {
			return err
		}
		paramName = paramNameN.String
		if paramName == "" || !isIdentifier(argExpr) {
			continue
		}
		calleeFilePath := calleeFile.String
		if calleeFilePath == "" {
			calleeFilePath = file
		}
		srcNode := NodeID(file, caller, argExpr)
		dstNode := NodeID(calleeFilePath, callee, paramName)
		meta := fmt.Sprintf(`{"argument_expr":%q}`, argExpr)
		if err := b.gs.AddEdgePair(srcNode, dstNode, "call_argument", meta, file, line); err != nil {
			return err
		}
	}
	return rows.Err()
}

// buildReturnToCallerEdges projects function_returns+function_return_sources
// against call sites of the same function name, producing "return_to_caller"
// edges to every assignment target whose source expression invokes that
// callee. This is the one projection that must join across two otherwise
// independent fact tables (function_returns and assignments) since the
// relational model has no direct "call result assigned here" column.
func (b *Builder) buildReturnToCallerEdges() error {
	rows, err := b.repo.Query(`
		SELECT r.file, r.line, r.function_name, s.return_var_name,
		       a.file, a.line, a.target_var, a.in_function
		FROM function_returns r
		JOIN function_return_sources s
		  ON s.return_file = r.file AND s.return_line = r.line AND s.return_function = r.function_name
		JOIN function_call_args c ON c.callee_function = r.function_name
		JOIN assignments a ON a.file = c.file AND a.in_function = c.caller_function
		                   AND a.source_expr LIKE '%' || r.function_name || '(%'
		ORDER BY r.file, r.line, a.file, a.line`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var retFile, retVar, retFn string
		var retLine int
		var callerFile, callerTarget, callerFn string
		var callerLine int
		if err := rows.Scan(&retFile, &retLine, &retFn, &retVar, &callerFile, &callerLine, &callerTarget, &callerFn); err != nil {
			return err
		}
		srcNode := NodeID(retFile, retFn, retVar)
		dstNode := NodeID(callerFile, callerFn, callerTarget)
		if err := b.gs.AddEdgePair(srcNode, dstNode, "return_to_caller", "{}", callerFile, callerLine); err != nil {
			return err
		}
	}
	return rows.Err()
}

// buildMiddlewareChainEdges projects express_middleware_chains' ordered
// handler list into "express_middleware_chain" edges from each handler's
// exit sentinel to the next handler's entry sentinel, in execution order,
// per spec §4.E ("including the transition from a validation middleware
// to the controller").
func (b *Builder) buildMiddlewareChainEdges() error {
	rows, err := b.repo.Query(`
		SELECT file, route_line, execution_order, handler_function, handler_file
		FROM express_middleware_chains
		ORDER BY file, route_line, execution_order`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type entry struct {
		file, handlerFn, handlerFile string
		line, order                  int
	}
	chains := make(map[string][]entry)
	for rows.Next() {
		var file, handlerFn string
		var line, order int
		var handlerFileN sql.NullString
		if err := rows.Scan(&file, &line, &order, &handlerFn, &handlerFileN); err != nil {
			return err
		}
		key := fmt.Sprintf("%s:%d", file, line)
		hf := handlerFileN.String
		if hf == "" {
			hf = file
		}
		chains[key] = append(chains[key], entry{file: file, handlerFn: handlerFn, handlerFile: hf, line: line, order: order})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, chain := range chains {
		for i := 0; i+1 < len(chain); i++ {
			from := chain[i]
			to := chain[i+1]
			srcNode := NodeID(from.handlerFile, from.handlerFn, "exit")
			dstNode := NodeID(to.handlerFile, to.handlerFn, "entry")
			if err := b.gs.AddEdgePair(srcNode, dstNode, "express_middleware_chain", "{}", from.file, from.line); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildCrossBoundaryAPIEdges matches function_call_args rows whose callee
// is a known HTTP client call (fetch/axios) against api_endpoints by
// (method, url_pattern), normalizing ":param" path segments to the "${...}"
// template-literal form so a frontend literal path and a backend Express
// pattern can compare equal, per spec §4.E. The method comes from the
// axios.<method> callee name; bare fetch/axios calls carry no method and
// match on the URL pattern alone. No gateway path rewrites are applied.
func (b *Builder) buildCrossBoundaryAPIEdges() error {
	rows, err := b.repo.Query(`
		SELECT file, line, caller_function, callee_function, argument_expr, argument_index
		FROM function_call_args
		WHERE callee_function IN ('fetch','axios','axios.get','axios.post','axios.put','axios.delete','axios.patch')
		ORDER BY file, line, argument_index`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type call struct {
		file, fn, expr, method string
		line                   int
	}
	var calls []call
	for rows.Next() {
		var file, fn, callee, expr string
		var line, idx int
		if err := rows.Scan(&file, &line, &fn, &callee, &expr, &idx); err != nil {
			return err
		}
		if idx != 0 {
			continue // URL is conventionally the first argument
		}
		method := ""
		if strings.HasPrefix(callee, "axios.") {
			method = strings.ToUpper(strings.TrimPrefix(callee, "axios."))
		}
		calls = append(calls, call{file: file, fn: fn, expr: trimQuotes(expr), method: method, line: line})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	epRows, err := b.repo.Query(`SELECT file, line, method, pattern, handler_function FROM api_endpoints`)
	if err != nil {
		return err
	}
	defer epRows.Close()
	type endpoint struct {
		file, method, pattern, handler string
		line                           int
	}
	var endpoints []endpoint
	for epRows.Next() {
		var e endpoint
		if err := epRows.Scan(&e.file, &e.line, &e.method, &e.pattern, &e.handler); err != nil {
			return err
		}
		endpoints = append(endpoints, e)
	}
	if err := epRows.Err(); err != nil {
		return err
	}

	for _, c := range calls {
		normalized := normalizeURLPattern(c.expr)
		for _, e := range endpoints {
			if normalizeURLPattern(e.pattern) != normalized {
				continue
			}
			if c.method != "" && !strings.EqualFold(c.method, e.method) {
				continue
			}
			srcNode := NodeID(c.file, c.fn, "body")
			dstNode := NodeID(e.file, e.handler, "req", "body")
			if err := b.gs.AddEdgePair(srcNode, dstNode, "cross_boundary_api", "{}", c.file, c.line); err != nil {
				return err
			}
		}
	}
	return nil
}

func normalizeURLPattern(s string) string {
	parts := strings.Split(s, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") || (strings.HasPrefix(p, "${") && strings.HasSuffix(p, "}")) {
			parts[i] = "${}"
		}
	}
	return strings.Join(parts, "/")
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '`' && s[len(s)-1] == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isAlpha {
			return false
		}
		if i > 0 && !isAlpha && !isDigit {
			return false
		}
	}
	return true
}
