// Package resolve is the Post-Resolution Pass (spec component J): four
// idempotent sub-passes run after first-pass indexing and before the
// second JSX pass, each reading and writing the relational store only.
// Grounded on graph/callgraph/resolution/strategies' pluggable
// InferenceStrategy interface (CanHandle/Synthesize/Priority), reused
// here as a Strategy interface (CanHandle/Resolve/Priority) with one
// strategy per sub-pass.
package resolve

import (
	"database/sql"
	"encoding/json"
	"path"
	"sort"
	"strings"

	"github.com/theauditor/auditor-core/internal/errs"
)

// Strategy is one post-resolution sub-pass.
type Strategy interface {
	Name() string
	Priority() int
	Resolve(db *sql.DB) error
}

// Run executes every strategy in priority order (lowest first), matching
// spec §4.J's numbered sequence.
func Run(db *sql.DB, strategies ...Strategy) error {
	sort.Slice(strategies, func(i, j int) bool { return strategies[i].Priority() < strategies[j].Priority() })
	for _, s := range strategies {
		if err := s.Resolve(db); err != nil {
			return errs.Wrap(errs.AmbiguousName, err, "post-resolution: "+s.Name())
		}
	}
	return nil
}

// Default returns the four strategies spec §4.J names, in its documented
// order.
func Default() []Strategy {
	return []Strategy{
		ParamNameStrategy{},
		MountHierarchyStrategy{},
		HandlerFileStrategy{},
		ImportPathStrategy{},
	}
}

// --- 1. Cross-file parameter names -----------------------------------

// ParamNameStrategy replaces generic parameter names (arg0, arg1, ...)
// in function_call_args with the callee's declared parameter name from
// symbols.parameters_json, matched by callee base name (spec §4.J.1).
type ParamNameStrategy struct{}

func (ParamNameStrategy) Name() string   { return "param_names" }
func (ParamNameStrategy) Priority() int  { return 1 }

func (ParamNameStrategy) Resolve(db *sql.DB) error {
	type paramList struct {
		names []string
	}
	symRows, err := db.Query(`SELECT name, parameters_json FROM symbols WHERE kind = 'function' AND parameters_json IS NOT NULL`)
	if err != nil {
		return err
	}
	byName := make(map[string]paramList)
	for symRows.Next() {
		var name, paramsJSON string
		if err := symRows.Scan(&name, &paramsJSON); err != nil {
			symRows.Close()
			return err
		}
		var entries []map[string]interface{}
		if err := json.Unmarshal([]byte(paramsJSON), &entries); err != nil {
			continue
		}
		names := make([]string, len(entries))
		for i, e := range entries {
			if n, ok := e["name"].(string); ok {
				names[i] = n
			}
		}
		byName[name] = paramList{names: names}
	}
	symRows.Close()
	if err := symRows.Err(); err != nil {
		return err
	}

	callRows, err := db.Query(`
		SELECT file, line, callee_function, argument_index, param_name
		FROM function_call_args WHERE param_name LIKE 'arg%'`)
	if err != nil {
		return err
	}
	type update struct {
		file, callee, newName string
		line, index           int
	}
	var updates []update
	for callRows.Next() {
		var file, callee, paramName string
		var line, idx int
		if err := callRows.Scan(&file, &line, &callee, &idx, &paramName); err != nil {
			callRows.Close()
			return err
		}
		pl, ok := byName[callee]
		if !ok || idx >= len(pl.names) || pl.names[idx] == "" {
			continue
		}
		updates = append(updates, update{file: file, callee: callee, line: line, index: idx, newName: pl.names[idx]})
	}
	callRows.Close()
	if err := callRows.Err(); err != nil {
		return err
	}

	stmt, err := db.Prepare(`UPDATE function_call_args SET param_name = ? WHERE file = ? AND line = ? AND callee_function = ? AND argument_index = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, u := range updates {
		if _, err := stmt.Exec(u.newName, u.file, u.line, u.callee, u.index); err != nil {
			return err
		}
	}
	return nil
}

// --- 2. Router mount hierarchy ----------------------------------------

// MountHierarchyStrategy resolves router_mounts.mount_path_expr into
// literal prefixes (directly, or via assignments for constant values),
// follows each mount's router_variable through import_styles to the
// router's defining file (the same import-following HandlerFileStrategy
// uses), recursively propagates through nested mounts, then fills
// api_endpoints.full_path = mount_prefix + pattern (spec §4.J.2).
//
// router_mounts.file is where "app.use(prefix, routerVar)" appears;
// router_variable names a LOCAL binding imported from elsewhere, so the
// endpoints it prefixes live in the file that import resolves to, not in
// router_mounts.file itself -- prefixes are keyed by that resolved
// endpoint file.
type MountHierarchyStrategy struct{}

func (MountHierarchyStrategy) Name() string  { return "mount_hierarchy" }
func (MountHierarchyStrategy) Priority() int { return 2 }

func (MountHierarchyStrategy) Resolve(db *sql.DB) error {
	rows, err := db.Query(`SELECT file, mount_path_expr, router_variable, is_literal FROM router_mounts`)
	if err != nil {
		return err
	}
	type mount struct {
		file, expr, routerVar string
		literal               bool
	}
	var mounts []mount
	for rows.Next() {
		var m mount
		var lit int
		if err := rows.Scan(&m.file, &m.expr, &m.routerVar, &lit); err != nil {
			rows.Close()
			return err
		}
		m.literal = lit != 0
		mounts = append(mounts, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	constants, err := loadStringConstants(db)
	if err != nil {
		return err
	}

	impStmt, err := db.Prepare(`SELECT package FROM import_styles WHERE file = ? AND (names LIKE ? OR alias = ?) LIMIT 1`)
	if err != nil {
		return err
	}
	defer impStmt.Close()

	// endpoint file -> resolved mount prefix, resolved iteratively so
	// nested mounts (mounting one router under another) converge.
	prefixes := make(map[string]string)
	for i := 0; i < len(mounts)+1; i++ {
		changed := false
		for _, m := range mounts {
			prefix := m.expr
			if !m.literal {
				if v, ok := constants[m.expr]; ok {
					prefix = v
				} else {
					continue
				}
			}
			prefix = prefixes[m.file] + strings.Trim(prefix, `"'`+"`")

			var pkg string
			if err := impStmt.QueryRow(m.file, "%"+m.routerVar+"%", m.routerVar).Scan(&pkg); err != nil {
				continue
			}
			endpointFile := resolveModulePath(m.file, pkg)
			if endpointFile == "" {
				continue
			}
			if existing, done := prefixes[endpointFile]; done && existing == prefix {
				continue
			}
			prefixes[endpointFile] = prefix
			changed = true
		}
		if !changed {
			break
		}
	}

	epRows, err := db.Query(`SELECT file, line, method, pattern FROM api_endpoints WHERE full_path IS NULL`)
	if err != nil {
		return err
	}
	type ep struct {
		file, method, pattern string
		line                  int
	}
	var eps []ep
	for epRows.Next() {
		var e ep
		if err := epRows.Scan(&e.file, &e.line, &e.method, &e.pattern); err != nil {
			epRows.Close()
			return err
		}
		eps = append(eps, e)
	}
	epRows.Close()
	if err := epRows.Err(); err != nil {
		return err
	}

	stmt, err := db.Prepare(`UPDATE api_endpoints SET full_path = ? WHERE file = ? AND line = ? AND method = ? AND pattern = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range eps {
		prefix := prefixes[e.file]
		fullPath := prefix + e.pattern
		if _, err := stmt.Exec(fullPath, e.file, e.line, e.method, e.pattern); err != nil {
			return err
		}
	}
	return nil
}

func loadStringConstants(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT target_var, source_expr FROM assignments WHERE source_expr LIKE '"%' OR source_expr LIKE '''%'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var target, expr string
		if err := rows.Scan(&target, &expr); err != nil {
			return nil, err
		}
		out[target] = expr
	}
	return out, rows.Err()
}

// --- 3. Handler file resolution ----------------------------------------

// HandlerFileStrategy resolves express_middleware_chains.handler_function
// entries lacking handler_file by following the importing variable to its
// import module path and on-disk file, using import_specifiers and
// import_styles (spec §4.J.3). "new X()" class-instance assignments and
// path-alias learning are approximated: the variable's declared import
// package is resolved the same way ImportPathStrategy resolves any import
// target.
type HandlerFileStrategy struct{}

func (HandlerFileStrategy) Name() string  { return "handler_file" }
func (HandlerFileStrategy) Priority() int { return 3 }

func (HandlerFileStrategy) Resolve(db *sql.DB) error {
	rows, err := db.Query(`
		SELECT file, route_line, execution_order, handler_function
		FROM express_middleware_chains WHERE handler_file IS NULL AND handler_function IS NOT NULL`)
	if err != nil {
		return err
	}
	type entry struct {
		file, handlerFn string
		line, order     int
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.file, &e.line, &e.order, &e.handlerFn); err != nil {
			rows.Close()
			return err
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	stmt, err := db.Prepare(`UPDATE express_middleware_chains SET handler_file = ? WHERE file = ? AND route_line = ? AND execution_order = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	impStmt, err := db.Prepare(`SELECT package FROM import_styles WHERE file = ? AND (names LIKE ? OR alias = ?) LIMIT 1`)
	if err != nil {
		return err
	}
	defer impStmt.Close()

	for _, e := range entries {
		owner := strings.SplitN(e.handlerFn, ".", 2)[0]
		var pkg string
		if err := impStmt.QueryRow(e.file, "%"+owner+"%", owner).Scan(&pkg); err != nil {
			continue
		}
		resolved := resolveModulePath(e.file, pkg)
		if resolved == "" {
			continue
		}
		if _, err := stmt.Exec(resolved, e.file, e.line, e.order); err != nil {
			return err
		}
	}
	return nil
}

// --- 4. Import path resolution ------------------------------------------

// ImportPathStrategy resolves raw refs.value import targets to canonical
// on-disk paths, handling "@alias" roots, relative "./"/"../" targets,
// and extension inference (spec §4.J.4). It writes nothing back -- the
// resolution is exposed via resolveModulePath for HandlerFileStrategy and
// for future graph-building passes, since refs itself carries no
// "resolved path" column in the schema (raw import strings are the
// contract; resolution is computed on demand).
type ImportPathStrategy struct{}

func (ImportPathStrategy) Name() string  { return "import_paths" }
func (ImportPathStrategy) Priority() int { return 4 }

func (ImportPathStrategy) Resolve(db *sql.DB) error {
	return nil // on-demand resolution; see resolveModulePath.
}

// resolveModulePath implements the relative/alias/extension-inference
// rules spec §4.J.4 documents, given the importing file and the raw
// import target string.
func resolveModulePath(fromFile, target string) string {
	if target == "" {
		return ""
	}
	if strings.HasPrefix(target, "@") {
		parts := strings.SplitN(target, "/", 2)
		if len(parts) == 2 {
			return path.Join("src", strings.TrimPrefix(target, "@"))
		}
		return ""
	}
	if strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") {
		dir := path.Dir(fromFile)
		joined := path.Join(dir, target)
		if path.Ext(joined) == "" {
			joined += ".ts"
		}
		return joined
	}
	return "" // bare package specifiers (node_modules) resolve to nothing on disk
}
