// Package indexer is the Indexer Orchestrator (spec component D): walks
// the project tree, dispatches each file to its language extractor via a
// worker pool, commits emitted facts through the relational store, and
// enforces fidelity reconciliation. Grounded on graph/initialize.go's
// channel-based worker pool (fileChan/resultChan/statusChan/progressChan,
// sync.WaitGroup), generalized from the teacher's inline Java/Python/
// Dockerfile dispatch to the full extract.Dispatcher table, since the
// extractor contract is now uniform (spec §4.D permits Go/Rust ports to
// parallelize per-file extraction, §5).
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/theauditor/auditor-core/internal/config"
	"github.com/theauditor/auditor-core/internal/errs"
	"github.com/theauditor/auditor-core/internal/extract"
	"github.com/theauditor/auditor-core/internal/log"
	"github.com/theauditor/auditor-core/internal/model"
	"github.com/theauditor/auditor-core/internal/store"
)

// Result summarizes one run's aggregate counts (spec §4.D step 6).
type Result struct {
	FilesWalked    int
	FilesExtracted int
	FilesSkipped   int
	Findings       []string // extraction_failure findings, one line each
	FlushedCounts  map[string]int
}

// Orchestrator walks cfg.ProjectRoot, dispatches files through disp, and
// commits facts through s.
type Orchestrator struct {
	cfg  *config.Config
	disp *extract.Dispatcher
	s    *store.Store
	log  *log.Logger
}

// New builds an Orchestrator.
func New(cfg *config.Config, disp *extract.Dispatcher, s *store.Store, logger *log.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, disp: disp, s: s, log: logger}
}

type walkedFile struct {
	absPath string
	relPath string // forward-slash normalized, relative to project root
}

// Run walks the tree, extracts every claimed file (optionally in
// parallel per §5), commits facts, and reconciles fidelity. It does NOT
// run post-resolution or the JSX second pass -- callers sequence those
// separately (spec §4.D steps 4-5) since they are independent subsystems
// (internal/resolve, and the jsts extractor's JSXExtractor path).
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	files, err := o.walk()
	if err != nil {
		return nil, err
	}

	res := &Result{FilesWalked: len(files)}
	numWorkers := 8
	if numWorkers > len(files) && len(files) > 0 {
		numWorkers = len(files)
	}

	type job struct {
		file walkedFile
		ext  string
	}
	type outcome struct {
		file     walkedFile
		facts    *model.Facts
		manifest *model.Manifest
		err      error
	}

	jobs := make(chan job, len(files))
	results := make(chan outcome, len(files))
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for j := range jobs {
			fi, err := readFile(j.file.absPath, j.file.relPath)
			if err != nil {
				results <- outcome{file: j.file, err: err}
				continue
			}
			e := o.disp.For(filepath.Base(j.file.relPath), j.ext)
			if e == nil {
				results <- outcome{file: j.file, facts: &model.Facts{File: fi}, manifest: &model.Manifest{}}
				continue
			}
			facts, manifest, err := e.Extract(ctx, fi)
			if facts != nil {
				facts.File = fi
			}
			results <- outcome{file: j.file, facts: facts, manifest: manifest, err: err}
		}
	}

	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go worker()
	}
	for _, f := range files {
		jobs <- job{file: f, ext: strings.ToLower(filepath.Ext(f.relPath))}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect in stable (sorted) order before committing, per spec §5:
	// "Across files, order is the orchestrator's walk order and MUST be
	// stable (sorted) so that deduplication in §4.G is deterministic."
	byFile := make(map[string]outcome, len(files))
	for out := range results {
		byFile[out.file.relPath] = out
	}

	var relPaths []string
	for p := range byFile {
		relPaths = append(relPaths, p)
	}
	sort.Strings(relPaths)

	for _, rel := range relPaths {
		out := byFile[rel]
		if out.err != nil {
			res.Findings = append(res.Findings, "extraction_failure: "+rel+": "+out.err.Error())
			res.FilesSkipped++
			continue
		}
		if out.facts == nil {
			res.FilesSkipped++
			continue
		}
		if err := o.commit(rel, out.facts); err != nil {
			return res, err
		}
		if err := o.reconcile(rel, out.facts, out.manifest); err != nil {
			return res, err
		}
		res.FilesExtracted++
	}

	if err := o.s.Flush(); err != nil {
		return res, err
	}
	res.FlushedCounts = o.s.FlushedCounts()
	return res, nil
}

// RunJSXPass re-walks the tree and, for every file whose dispatched
// extractor also implements extract.JSXExtractor, runs the second
// "preserved" pass (spec §4.C's two-pass JSX rule) and commits its
// facts into the *_jsx parallel tables rather than the primary ones.
// Callers run this after post-resolution (spec §4.D step 5), since the
// preserved pass exists to retain JSX-specific shape the transform pass
// discards, not to feed the taint graph directly. Unlike Run, this pass
// does not reconcile against a fidelity manifest: the *_jsx tables are
// a supplementary view, not the primary fact set §7 holds to account.
func (o *Orchestrator) RunJSXPass(ctx context.Context, disp *extract.Dispatcher) error {
	files, err := o.walk()
	if err != nil {
		return err
	}
	for _, wf := range files {
		ext := strings.ToLower(filepath.Ext(wf.relPath))
		e := disp.For(filepath.Base(wf.relPath), ext)
		jsxE, ok := e.(extract.JSXExtractor)
		if !ok {
			continue
		}
		fi, err := readFile(wf.absPath, wf.relPath)
		if err != nil {
			continue // the primary pass already recorded this as extraction_failure
		}
		facts, _, err := jsxE.ExtractJSXPreserved(ctx, fi)
		if err != nil || facts == nil {
			continue
		}
		if err := o.commitJSXFacts(facts); err != nil {
			return err
		}
	}
	return o.s.Flush()
}

func (o *Orchestrator) commitJSXFacts(f *model.Facts) error {
	for _, a := range f.Assignments {
		if err := o.s.Add("assignments_jsx", a.File, a.Line, a.TargetVar, a.SourceExpr, a.InFunction, nullable(a.PropertyPath)); err != nil {
			return err
		}
		for _, sv := range a.SourceVars {
			if err := o.s.Add("assignment_sources_jsx", a.File, a.Line, a.TargetVar, sv); err != nil {
				return err
			}
		}
	}
	for _, c := range f.FunctionCallArgs {
		if err := o.s.Add("function_call_args_jsx", c.File, c.Line, c.CallerFunction, c.CalleeFunction, c.ArgumentIndex, c.ArgumentExpr, nullable(c.ParamName), nullable(c.CalleeFilePath)); err != nil {
			return err
		}
	}
	for _, r := range f.FunctionReturns {
		if err := o.s.Add("function_returns_jsx", r.File, r.Line, r.FunctionName, r.ReturnExpr); err != nil {
			return err
		}
		for _, rv := range r.ReturnVars {
			if err := o.s.Add("function_return_sources_jsx", r.File, r.Line, r.FunctionName, rv); err != nil {
				return err
			}
		}
	}
	tmpToReal := make(map[int64]int64)
	for _, b := range f.CFGBlocks {
		tmp, err := o.s.AddAutoID("cfg_blocks_jsx", b.File, b.FunctionName, string(b.BlockType), b.StartLine, b.EndLine, nullable(b.ConditionExpr))
		if err != nil {
			return err
		}
		tmpToReal[b.TempID] = tmp
		for _, st := range b.Statements {
			if err := o.s.Add("cfg_block_statements_jsx", tmp, st.StatementType, st.Line, nullable(st.StatementText)); err != nil {
				return err
			}
		}
	}
	for _, e := range f.CFGEdges {
		src, ok := tmpToReal[e.SourceTempID]
		if !ok {
			continue
		}
		dst, ok := tmpToReal[e.TargetTempID]
		if !ok {
			continue
		}
		if err := o.s.Add("cfg_edges_jsx", src, dst, e.EdgeType); err != nil {
			return err
		}
	}
	return nil
}

func readFile(absPath, relPath string) (model.FileInfo, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return model.FileInfo{}, errs.Wrap(errs.IOError, err, "read "+relPath).WithFile(relPath)
	}
	sum := sha256.Sum256(content)
	return model.FileInfo{
		Path:    relPath,
		SHA256:  hex.EncodeToString(sum[:]),
		Ext:     strings.ToLower(filepath.Ext(relPath)),
		Bytes:   int64(len(content)),
		Content: content,
	}, nil
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := strings.Count(string(content), "\n")
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

// walk enumerates every file under the project root, skipping excluded
// directories and (by default) symlinks, returning a stable sorted order.
func (o *Orchestrator) walk() ([]walkedFile, error) {
	var out []walkedFile
	err := filepath.Walk(o.cfg.ProjectRoot, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if info.IsDir() {
			if o.cfg.ExcludedDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(o.cfg.ProjectRoot, p)
		if err != nil {
			return nil
		}
		out = append(out, walkedFile{absPath: p, relPath: normalizeSlashes(rel)})
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "walk "+o.cfg.ProjectRoot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].relPath < out[j].relPath })
	return out, nil
}

func normalizeSlashes(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// commit writes a file's row and every fact it emitted through the
// store, in the registry's declared (FK-safe) order.
func (o *Orchestrator) commit(rel string, f *model.Facts) error {
	if err := o.commitFile(rel, f); err != nil {
		return err
	}
	return o.commitFacts(rel, f)
}

func (o *Orchestrator) commitFile(rel string, f *model.Facts) error {
	fi := f.File
	return o.s.Add("files", fi.Path, fi.SHA256, fi.Ext, fi.Bytes, countLines(fi.Content))
}

func (o *Orchestrator) commitFacts(rel string, f *model.Facts) error {
	for _, sym := range f.Symbols {
		if err := o.s.Add("symbols", sym.Path, sym.Name, sym.Kind, sym.Line, sym.Col, nullable(sym.EndLine), nullable(sym.TypeAnnotation), nullable(sym.ParametersJSON)); err != nil {
			return err
		}
	}
	for _, cf := range f.ConfigFiles {
		if err := o.s.Add("config_files", cf.Path, cf.Content, cf.Type, nullable(cf.ContextDir)); err != nil {
			return err
		}
	}
	for _, r := range f.Refs {
		if err := o.s.Add("refs", r.Src, r.Kind, r.Value, nullable(r.Line)); err != nil {
			return err
		}
	}
	for _, is := range f.ImportStyles {
		if err := o.s.Add("import_styles", is.File, is.Line, is.Package, is.Style, nullable(is.Names), nullable(is.Alias)); err != nil {
			return err
		}
		for _, spec := range is.Specifiers {
			if err := o.s.Add("import_specifiers", is.File, is.Line, spec); err != nil {
				return err
			}
		}
	}
	for _, a := range f.Assignments {
		if err := o.s.Add("assignments", a.File, a.Line, a.TargetVar, a.SourceExpr, a.InFunction, nullable(a.PropertyPath)); err != nil {
			return err
		}
		for _, sv := range a.SourceVars {
			if err := o.s.Add("assignment_sources", a.File, a.Line, a.TargetVar, sv); err != nil {
				return err
			}
		}
	}
	for _, c := range f.FunctionCallArgs {
		if err := o.s.Add("function_call_args", c.File, c.Line, c.CallerFunction, c.CalleeFunction, c.ArgumentIndex, c.ArgumentExpr, nullable(c.ParamName), nullable(c.CalleeFilePath)); err != nil {
			return err
		}
	}
	for _, r := range f.FunctionReturns {
		if err := o.s.Add("function_returns", r.File, r.Line, r.FunctionName, r.ReturnExpr); err != nil {
			return err
		}
		for _, rv := range r.ReturnVars {
			if err := o.s.Add("function_return_sources", r.File, r.Line, r.FunctionName, rv); err != nil {
				return err
			}
		}
	}

	tmpToReal := make(map[int64]int64)
	for _, b := range f.CFGBlocks {
		tmp, err := o.s.AddAutoID("cfg_blocks", b.File, b.FunctionName, string(b.BlockType), b.StartLine, b.EndLine, nullable(b.ConditionExpr))
		if err != nil {
			return err
		}
		tmpToReal[b.TempID] = tmp
		for _, st := range b.Statements {
			if err := o.s.Add("cfg_block_statements", tmp, st.StatementType, st.Line, nullable(st.StatementText)); err != nil {
				return err
			}
		}
	}
	for _, e := range f.CFGEdges {
		src, ok := tmpToReal[e.SourceTempID]
		if !ok {
			continue // dangling reference to a block the extractor never emitted
		}
		dst, ok := tmpToReal[e.TargetTempID]
		if !ok {
			continue
		}
		if err := o.s.Add("cfg_edges", src, dst, e.EdgeType); err != nil {
			return err
		}
	}

	for _, ep := range f.APIEndpoints {
		// full_path is left NULL here; MountHierarchyStrategy fills it
		// during post-resolution once router mounts are known.
		if err := o.s.Add("api_endpoints", ep.File, ep.Line, ep.Method, ep.Pattern, ep.Path, nil, boolToInt(ep.HasAuth), ep.HandlerFunction); err != nil {
			return err
		}
		for _, ctl := range ep.Controls {
			if err := o.s.Add("api_endpoint_controls", ep.File, ep.Line, ctl); err != nil {
				return err
			}
		}
	}
	for _, rm := range f.RouterMounts {
		if err := o.s.Add("router_mounts", rm.File, rm.Line, rm.MountPathExpr, rm.RouterVariable, boolToInt(rm.IsLiteral)); err != nil {
			return err
		}
	}
	for _, mc := range f.MiddlewareChains {
		if err := o.s.Add("express_middleware_chains", mc.File, mc.RouteLine, mc.RoutePath, mc.RouteMethod, mc.ExecutionOrder, mc.HandlerExpr, mc.HandlerType, nullable(mc.HandlerFunction), nullable(mc.HandlerFile)); err != nil {
			return err
		}
	}
	for _, vu := range f.ValidationUsages {
		if err := o.s.Add("validation_framework_usage", vu.FilePath, vu.Line, vu.Framework, vu.Method, vu.ArgumentExpr, boolToInt(vu.IsValidator), nullable(vu.VariableName)); err != nil {
			return err
		}
	}
	for _, q := range f.SQLQueries {
		if err := o.s.Add("sql_queries", q.File, q.Line, q.QueryText, q.Command, q.ExtractionSource); err != nil {
			return err
		}
		for _, t := range q.Tables {
			if err := o.s.Add("sql_query_tables", q.File, q.Line, t); err != nil {
				return err
			}
		}
	}
	for _, so := range f.SQLObjects {
		if err := o.s.Add("sql_objects", so.File, so.Kind, so.Name); err != nil {
			return err
		}
	}
	for _, df := range f.DomainFacts {
		if err := o.s.Add(df.Table, df.Values...); err != nil {
			return err
		}
	}
	return nil
}

func nullable(v interface{}) interface{} {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil
		}
	case int:
		if x == 0 {
			return nil
		}
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// reconcile diffs an extractor's declared fidelity manifest against the
// counts independently recomputed from the same Facts value commit just
// wrote, per §7 fidelity_mismatch: every fact slice the orchestrator
// commits must be exactly what the extractor claimed it emitted, so a
// manifest hand-built (or stale) relative to the Facts it describes is
// caught before it can silently under-report coverage.
func (o *Orchestrator) reconcile(rel string, f *model.Facts, m *model.Manifest) error {
	if m == nil {
		return nil
	}
	want := model.NewManifest(f)
	for table, n := range want.Counts {
		if m.Counts[table] != n {
			return errs.New(errs.FidelityMismatch,
				fmt.Sprintf("%s: table %s: manifest claims %d rows, facts carry %d", rel, table, m.Counts[table], n)).WithFile(rel)
		}
	}
	for table, n := range m.Counts {
		if want.Counts[table] != n {
			return errs.New(errs.FidelityMismatch,
				fmt.Sprintf("%s: table %s: manifest claims %d rows, facts carry %d", rel, table, n, want.Counts[table])).WithFile(rel)
		}
	}
	return nil
}
