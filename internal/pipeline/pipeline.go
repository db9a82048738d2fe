// Package pipeline sequences the full index and taint runs cmd/ exposes,
// keeping cobra's RunE bodies thin the way sast-engine/cmd/scan.go
// delegates its heavy lifting to graph.Initialize -- here the
// equivalent delegate is pipeline.Index / pipeline.Taint.
package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/theauditor/auditor-core/internal/classify"
	"github.com/theauditor/auditor-core/internal/config"
	"github.com/theauditor/auditor-core/internal/errs"
	"github.com/theauditor/auditor-core/internal/extract"
	"github.com/theauditor/auditor-core/internal/extract/bash"
	"github.com/theauditor/auditor-core/internal/extract/composeyaml"
	"github.com/theauditor/auditor-core/internal/extract/docker"
	"github.com/theauditor/auditor-core/internal/extract/ghactions"
	"github.com/theauditor/auditor-core/internal/extract/graphql"
	"github.com/theauditor/auditor-core/internal/extract/jsts"
	"github.com/theauditor/auditor-core/internal/extract/python"
	"github.com/theauditor/auditor-core/internal/extract/sqlext"
	"github.com/theauditor/auditor-core/internal/extract/terraform"
	"github.com/theauditor/auditor-core/internal/graphbuild"
	"github.com/theauditor/auditor-core/internal/graphstore"
	"github.com/theauditor/auditor-core/internal/indexer"
	"github.com/theauditor/auditor-core/internal/log"
	frameworkseed "github.com/theauditor/auditor-core/internal/registry"
	"github.com/theauditor/auditor-core/internal/resolve"
	"github.com/theauditor/auditor-core/internal/sanitizer"
	"github.com/theauditor/auditor-core/internal/schema"
	"github.com/theauditor/auditor-core/internal/store"
	"github.com/theauditor/auditor-core/internal/taint/ffr"
	"github.com/theauditor/auditor-core/internal/taint/ifds"
)

func repoDBPath(cfg *config.Config) string  { return filepath.Join(cfg.OutputDir, "repo_index.db") }
func graphDBPath(cfg *config.Config) string { return filepath.Join(cfg.OutputDir, "graphs.db") }
func stampPath(cfg *config.Config) string   { return filepath.Join(cfg.OutputDir, "schema.stamp") }
func manifestPath(cfg *config.Config) string {
	return filepath.Join(cfg.OutputDir, "manifest.json")
}

func newDispatcher(cfg *config.Config) *extract.Dispatcher {
	d := extract.NewDispatcher()
	d.Register(python.New())
	d.Register(jsts.New(cfg.SubprocessTimeoutSeconds))
	d.RegisterFilename("Dockerfile", docker.New())
	d.Register(ghactions.New()) // claims .yml/.yaml; no-ops outside .github/workflows/
	compose := composeyaml.New()
	for _, name := range composeyaml.Filenames() {
		d.RegisterFilename(name, compose)
	}
	d.Register(terraform.New())
	d.Register(sqlext.New())
	d.Register(graphql.New())
	d.Register(bash.New())
	return d
}

// IndexResult summarizes one `auditor index` run for the caller to print.
type IndexResult struct {
	FilesWalked, FilesExtracted, FilesSkipped int
	GraphEdges                                int
	Findings                                  []string
}

// Index runs the full first-pass pipeline: walk + extract, post-resolve,
// project to the graph store, and write manifest.json (spec §4.D-E).
func Index(ctx context.Context, cfg *config.Config, logger *log.Logger) (*IndexResult, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.IOError, err, "create output dir")
	}

	registry := schema.New()
	stop := logger.StartTiming("index.open_store")
	s, err := store.Open(repoDBPath(cfg), registry, cfg.BatchSize)
	stop()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if err := os.WriteFile(stampPath(cfg), []byte(registry.Hash()), 0o644); err != nil {
		return nil, errs.Wrap(errs.IOError, err, "write schema stamp")
	}

	if err := frameworkseed.Seed(s); err != nil {
		return nil, err
	}

	disp := newDispatcher(cfg)
	orch := indexer.New(cfg, disp, s, logger)

	stop = logger.StartTiming("index.walk_extract")
	res, err := orch.Run(ctx)
	stop()
	if err != nil {
		return nil, err
	}
	logger.Progress("indexed %d files (%d extracted, %d skipped)", res.FilesWalked, res.FilesExtracted, res.FilesSkipped)

	stop = logger.StartTiming("index.post_resolve")
	err = resolve.Run(s.DB(), resolve.Default()...)
	stop()
	if err != nil {
		return nil, err
	}

	stop = logger.StartTiming("index.jsx_pass")
	err = orch.RunJSXPass(ctx, disp)
	stop()
	if err != nil {
		return nil, err
	}

	gs, err := graphstore.Open(graphDBPath(cfg), cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	defer gs.Close()

	stop = logger.StartTiming("index.graph_build")
	builder := graphbuild.New(s.DB(), gs)
	err = builder.Build()
	stop()
	if err != nil {
		return nil, err
	}

	ir := &IndexResult{
		FilesWalked:    res.FilesWalked,
		FilesExtracted: res.FilesExtracted,
		FilesSkipped:   res.FilesSkipped,
		Findings:       res.Findings,
	}
	if err := writeManifest(cfg, ir); err != nil {
		return ir, err
	}
	return ir, nil
}

func writeManifest(cfg *config.Config, ir *IndexResult) error {
	b, err := json.MarshalIndent(map[string]interface{}{
		"files_walked":    ir.FilesWalked,
		"files_extracted": ir.FilesExtracted,
		"files_skipped":   ir.FilesSkipped,
		"findings":        ir.Findings,
	}, "", "  ")
	if err != nil {
		return errs.Wrap(errs.IOError, err, "marshal manifest")
	}
	if err := os.WriteFile(manifestPath(cfg), b, 0o644); err != nil {
		return errs.Wrap(errs.IOError, err, "write manifest")
	}
	return nil
}

// TaintResult summarizes one `auditor taint` run.
type TaintResult struct {
	Vulnerable int
	Sanitized  int
	FlowPaths  int
}

// Taint opens the databases an Index run produced, discovers sinks and
// sources by substring pattern, runs the IFDS backward engine per sink
// and the Forward Flow Resolver from every source, and persists both
// result sets (spec §4.F-G).
func Taint(ctx context.Context, cfg *config.Config, logger *log.Logger) (*TaintResult, error) {
	stamp, err := os.ReadFile(stampPath(cfg))
	if err != nil {
		return nil, errs.New(errs.SchemaStale, "no index found; run `auditor index` first")
	}
	registry := schema.New()
	if !registry.VerifyStamp(string(stamp)) {
		return nil, errs.New(errs.SchemaStale, "schema definitions changed since last index; re-run `auditor index`")
	}

	s, err := store.Open(repoDBPath(cfg), registry, cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	gs, err := graphstore.Open(graphDBPath(cfg), cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	defer gs.Close()

	san, err := sanitizer.New(s.DB())
	if err != nil {
		return nil, err
	}

	sinks, err := discoverSinks(s.DB())
	if err != nil {
		return nil, err
	}
	sources, err := discoverSources(s.DB())
	if err != nil {
		return nil, err
	}
	logger.Statistic("discovered %d sink candidates, %d source candidates", len(sinks), len(sources))

	engine := ifds.New(s.DB(), gs, san, cfg, logger)

	tr := &TaintResult{}
	var vulnRows, sanRows []ifds.Finding
	for _, sink := range sinks {
		vuln, sanitized, err := engine.Analyze(sink, sources)
		if err != nil {
			return nil, err
		}
		vulnRows = append(vulnRows, vuln...)
		sanRows = append(sanRows, sanitized...)
	}
	tr.Vulnerable = len(vulnRows)
	tr.Sanitized = len(sanRows)

	if err := writeFindings(s.DB(), vulnRows, "VULNERABLE"); err != nil {
		return tr, err
	}
	if err := writeFindings(s.DB(), sanRows, "SANITIZED"); err != nil {
		return tr, err
	}

	ffrResolver := ffr.New(gs, san, cfg)
	entries := discoverFFREntries(sources)
	sinkNodeIDs := make(map[string]bool, len(sinks))
	for _, sk := range sinks {
		sinkNodeIDs[sk.NodeID] = true
	}
	paths, err := ffrResolver.Resolve(entries, sinkNodeIDs)
	if err != nil {
		return tr, err
	}
	tr.FlowPaths = len(paths)
	if err := writeFlowAudit(s.DB(), paths); err != nil {
		return tr, err
	}

	if err := s.Flush(); err != nil {
		return tr, err
	}
	return tr, nil
}

// discoverSinks scans function_call_args for callee expressions matching
// classify's sink patterns and returns one ifds.Sink per dangerous call
// argument, keyed to its caller-scoped access path node.
func discoverSinks(db *sql.DB) ([]ifds.Sink, error) {
	rows, err := db.Query(`
		SELECT file, line, caller_function, callee_function, argument_expr
		FROM function_call_args`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sinks []ifds.Sink
	for rows.Next() {
		var file, caller, callee, argExpr string
		var line int
		if err := rows.Scan(&file, &line, &caller, &callee, &argExpr); err != nil {
			return nil, err
		}
		if classify.Classify(callee+"("+argExpr+")", "") == "Data Exposure" {
			continue
		}
		base := baseIdentifier(argExpr)
		if base == "" {
			continue
		}
		sinks = append(sinks, ifds.Sink{
			File: file, Line: line, Name: callee, Pattern: callee + "(" + argExpr + ")",
			NodeID: graphbuild.NodeID(file, caller, base),
		})
	}
	return sinks, rows.Err()
}

// discoverSources scans assignments for a target bound to a
// request-shaped expression (req.*, process.env, etc) and returns one
// ifds.SourceDef per match (spec §4.F.1's "known source definitions").
func discoverSources(db *sql.DB) ([]ifds.SourceDef, error) {
	rows, err := db.Query(`SELECT file, line, target_var, source_expr, in_function FROM assignments`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ifds.SourceDef
	for rows.Next() {
		var file, target, expr, fn string
		var line int
		if err := rows.Scan(&file, &line, &target, &expr, &fn); err != nil {
			return nil, err
		}
		if !looksLikeSource(expr) {
			continue
		}
		base, fields := graphbuild.SplitPropertyPath(expr)
		ap := ifds.AccessPath{File: file, Function: fn, Base: strings.TrimSpace(base), Fields: fields, MaxLength: 5}
		out = append(out, ifds.SourceDef{File: file, Line: line, Name: target, Pattern: expr, AP: ap})
	}
	return out, rows.Err()
}

func discoverFFREntries(sources []ifds.SourceDef) []ffr.Entry {
	entries := make([]ffr.Entry, 0, len(sources))
	for _, src := range sources {
		entries = append(entries, ffr.Entry{
			File: src.File, Line: src.Line, Pattern: src.Pattern,
			NodeID: src.AP.NodeID(),
			Kind:   ffr.ClassifyEntry(src.AP.Base),
		})
	}
	return entries
}

var sourcePatterns = []string{"req.", "request.", "process.env", "process.argv", "params.", "query.", "body."}

func looksLikeSource(expr string) bool {
	lower := strings.ToLower(expr)
	for _, p := range sourcePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// baseIdentifier extracts the leading identifier of a dotted expression
// ("req.body.name" -> "req"), the same shape AccessPath.Base expects.
func baseIdentifier(expr string) string {
	expr = strings.TrimSpace(expr)
	end := len(expr)
	for i, r := range expr {
		if r == '.' || r == '(' || r == '[' || r == ',' || r == ' ' {
			end = i
			break
		}
	}
	base := expr[:end]
	if base == "" || strings.ContainsAny(base, `"'`+"`") {
		return ""
	}
	return base
}

func writeFindings(db *sql.DB, findings []ifds.Finding, status string) error {
	stmt, err := db.Prepare(`
		INSERT OR REPLACE INTO taint_findings
		(source_file, source_line, source_pattern, sink_file, sink_line, sink_pattern,
		 status, sanitizer_file, sanitizer_line, sanitizer_method, vulnerability_kind, hop_chain_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range findings {
		kind := classify.Classify(f.Sink.Pattern, f.Source.Pattern)
		hopJSON, err := json.Marshal(f.Hops)
		if err != nil {
			return err
		}
		var sanFile, sanMethod interface{}
		var sanLine interface{}
		if f.Sanitized {
			sanFile, sanLine, sanMethod = f.SanitizerFile, f.SanitizerLine, f.SanitizerMethod
		}
		if _, err := stmt.Exec(
			f.Source.File, f.Source.Line, f.Source.Pattern,
			f.Sink.File, f.Sink.Line, f.Sink.Pattern,
			status, sanFile, sanLine, sanMethod, kind, string(hopJSON),
		); err != nil {
			return err
		}
	}
	return nil
}

func writeFlowAudit(db *sql.DB, paths []ffr.Path) error {
	stmt, err := db.Prepare(`
		INSERT OR REPLACE INTO resolved_flow_audit
		(source_file, source_line, source_pattern, sink_file, sink_line, sink_pattern,
		 status, sanitizer_file, sanitizer_line, sanitizer_method, vulnerability_kind, hop_chain_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range paths {
		var sanFile, sanMethod interface{}
		var sanLine interface{}
		if p.Status == "SANITIZED" {
			sanFile, sanLine, sanMethod = p.SanitizerFile, p.SanitizerLine, p.SanitizerMethod
		}
		if _, err := stmt.Exec(
			p.SourceFile, p.SourceLine, p.SourcePattern,
			p.SinkFile, p.SinkLine, p.SinkPattern,
			p.Status, sanFile, sanLine, sanMethod, p.VulnerabilityKind, p.HopChainJSON(),
		); err != nil {
			return err
		}
	}
	return nil
}
