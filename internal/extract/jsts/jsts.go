// Package jsts is the Language Extractor (spec component C) for
// JavaScript/TypeScript/JSX/TSX. Unlike python's in-process tree-sitter
// walk, a JS/TS AST needs a real JS parser, and there is none in the Go
// dependency graph -- so this extractor shells out to a bundled Node
// script over stdin/stdout JSON, the subprocess protocol spec §6
// describes. Grounded on dsl/loader.go's buildNsjailCommand/
// exec.CommandContext(ctx, ...)/30-second-timeout idiom, retargeted
// from "run arbitrary Python DSL rules" to "run one bundled, trusted
// extractor script," and from a bare filename argument to a JSON
// payload over stdin so the extractor never needs its own filesystem
// access to the repo being analyzed.
package jsts

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/theauditor/auditor-core/internal/buildguard"
	"github.com/theauditor/auditor-core/internal/errs"
	"github.com/theauditor/auditor-core/internal/model"
)

// Extractor implements extract.Extractor and extract.JSXExtractor for
// .js/.jsx/.ts/.tsx/.mjs/.cjs files by delegating to a bundled Node
// script, extracted from distFS to a temp path on first use.
type Extractor struct {
	TimeoutSeconds int

	once       sync.Once
	scriptPath string
	buildErr   error
}

// New returns a ready-to-register JS/TS extractor. timeoutSeconds
// bounds every subprocess invocation (spec §6,
// config.Config.SubprocessTimeoutSeconds).
func New(timeoutSeconds int) *Extractor {
	return &Extractor{TimeoutSeconds: timeoutSeconds}
}

// prepare extracts the embedded dist/ tree to a temp directory once per
// process and verifies it with buildguard before any subprocess runs.
func (e *Extractor) prepare() {
	dir, err := os.MkdirTemp("", "auditor-jsts-*")
	if err != nil {
		e.buildErr = errs.Wrap(errs.BuildOutOfDate, err, "create jsts temp dir")
		return
	}
	for _, name := range []string{"extractor.cjs", buildguard.SignatureFileName} {
		b, err := distFS.ReadFile("dist/" + name)
		if err != nil {
			e.buildErr = errs.Wrap(errs.BuildOutOfDate, err, "read embedded "+name)
			return
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			e.buildErr = errs.Wrap(errs.BuildOutOfDate, err, "write "+name+" to temp dir")
			return
		}
	}
	e.scriptPath = filepath.Join(dir, "extractor.cjs")
	e.buildErr = buildguard.VerifyBuild(e.scriptPath)
}

func (e *Extractor) SupportedExtensions() []string {
	return []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"}
}

// request is the JSON payload written to the script's stdin.
type request struct {
	Mode    string `json:"mode"` // "transform" or "preserved"
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (e *Extractor) Extract(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error) {
	return e.run(ctx, file, "transform")
}

// ExtractJSXPreserved implements extract.JSXExtractor's second pass
// (spec §4.C's two-pass JSX rule): the same script, invoked with mode
// "preserved". The embedded script does not read the mode, so this pass
// returns the same facts as Extract; only the *_jsx tables the indexer
// writes them to differ.
func (e *Extractor) ExtractJSXPreserved(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error) {
	return e.run(ctx, file, "preserved")
}

func (e *Extractor) run(ctx context.Context, file model.FileInfo, mode string) (*model.Facts, *model.Manifest, error) {
	e.once.Do(e.prepare)
	if e.buildErr != nil {
		return nil, nil, e.buildErr
	}

	req, err := json.Marshal(request{Mode: mode, Path: file.Path, Content: string(file.Content)})
	if err != nil {
		return nil, nil, errs.Wrap(errs.ExtractionFailure, err, "marshal jsts request").WithFile(file.Path)
	}

	timeout := time.Duration(e.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "node", e.scriptPath)
	cmd.Stdin = bytes.NewReader(req)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, nil, errs.New(errs.SubprocessTimeout,
				"jsts extractor timed out after "+timeout.String()+" on "+file.Path).WithFile(file.Path)
		}
		// A script crash is not returned as an error, matching python's
		// ParseCtx-failure handling: the file yields empty facts, no
		// finding is recorded for it, and the orchestrator continues.
		return &model.Facts{}, &model.Manifest{Counts: map[string]int{}}, nil
	}

	var wire wireFacts
	if err := json.Unmarshal(stdout.Bytes(), &wire); err != nil {
		return nil, nil, errs.Wrap(errs.ExtractionFailure, err, "parse jsts output for "+file.Path).WithFile(file.Path)
	}

	facts := toModelFacts(file.Path, &wire)
	return facts, model.NewManifest(facts), nil
}

func toModelFacts(path string, w *wireFacts) *model.Facts {
	f := &model.Facts{}

	for _, s := range w.Symbols {
		f.Symbols = append(f.Symbols, model.Symbol{
			Path: path, Name: s.Name, Kind: s.Kind, Line: s.Line, Col: s.Col, EndLine: s.EndLine,
		})
	}
	for _, r := range w.Refs {
		f.Refs = append(f.Refs, model.Ref{Src: path, Kind: r.Kind, Value: r.Value, Line: r.Line})
	}
	for _, is := range w.ImportStyles {
		f.ImportStyles = append(f.ImportStyles, model.ImportStyle{
			File: path, Line: is.Line, Package: is.Package, Style: is.Style,
			Names: is.Names, Alias: is.Alias, Specifiers: is.Specifiers,
		})
	}
	for _, a := range w.Assignments {
		f.Assignments = append(f.Assignments, model.Assignment{
			File: path, Line: a.Line, TargetVar: a.TargetVar, SourceExpr: a.SourceExpr,
			InFunction: a.InFunction, PropertyPath: a.PropertyPath, SourceVars: a.SourceVars,
		})
	}
	for _, c := range w.FunctionCallArgs {
		f.FunctionCallArgs = append(f.FunctionCallArgs, model.FunctionCallArg{
			File: path, Line: c.Line, CallerFunction: c.CallerFunction, CalleeFunction: c.CalleeFunction,
			ArgumentIndex: c.ArgumentIndex, ArgumentExpr: c.ArgumentExpr, ParamName: c.ParamName,
		})
	}
	for _, r := range w.FunctionReturns {
		f.FunctionReturns = append(f.FunctionReturns, model.FunctionReturn{
			File: path, Line: r.Line, FunctionName: r.FunctionName, ReturnExpr: r.ReturnExpr, ReturnVars: r.ReturnVars,
		})
	}
	for _, ep := range w.APIEndpoints {
		f.APIEndpoints = append(f.APIEndpoints, model.APIEndpoint{
			File: path, Line: ep.Line, Method: ep.Method, Pattern: ep.Pattern, Path: ep.Path,
			HasAuth: ep.HasAuth, HandlerFunction: ep.HandlerFunction, Controls: ep.Controls,
		})
	}
	for _, rm := range w.RouterMounts {
		f.RouterMounts = append(f.RouterMounts, model.RouterMount{
			File: path, Line: rm.Line, MountPathExpr: rm.MountPathExpr,
			RouterVariable: rm.RouterVariable, IsLiteral: rm.IsLiteral,
		})
	}
	for _, mc := range w.MiddlewareChains {
		f.MiddlewareChains = append(f.MiddlewareChains, model.MiddlewareChainEntry{
			File: path, RouteLine: mc.RouteLine, RoutePath: mc.RoutePath, RouteMethod: mc.RouteMethod,
			ExecutionOrder: mc.ExecutionOrder, HandlerExpr: mc.HandlerExpr, HandlerType: mc.HandlerType,
			HandlerFunction: mc.HandlerFunction,
		})
	}
	for _, vu := range w.ValidationUsages {
		f.ValidationUsages = append(f.ValidationUsages, model.ValidationUsage{
			FilePath: path, Line: vu.Line, Framework: vu.Framework, Method: vu.Method,
			ArgumentExpr: vu.ArgumentExpr, IsValidator: vu.IsValidator, VariableName: vu.VariableName,
		})
	}
	for _, q := range w.SQLQueries {
		f.SQLQueries = append(f.SQLQueries, model.SQLQuery{
			File: path, Line: q.Line, QueryText: q.QueryText, Command: q.Command,
			ExtractionSource: "code_execute", Tables: q.Tables,
		})
	}
	return f
}
