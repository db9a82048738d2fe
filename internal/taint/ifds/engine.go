package ifds

import (
	"database/sql"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/theauditor/auditor-core/internal/config"
	"github.com/theauditor/auditor-core/internal/graphstore"
	"github.com/theauditor/auditor-core/internal/log"
	"github.com/theauditor/auditor-core/internal/sanitizer"
)

// Sink identifies the dangerous call the backward search starts from.
type Sink struct {
	File    string
	Line    int
	Name    string
	Pattern string
	NodeID  string // the AccessPath node id of the tainted argument at the sink
}

// SourceDef identifies a known taint source and the access path it binds
// at its definition site.
type SourceDef struct {
	File    string
	Line    int
	Name    string
	Pattern string
	AP      AccessPath
}

// Hop is one step along a recorded taint path (spec GLOSSARY).
type Hop struct {
	Type     string
	From     string
	To       string
	FromFile string
	ToFile   string
	Line     int
	Depth    int
}

// Finding is a recorded source-to-sink path, classified sanitized or not.
type Finding struct {
	Source          SourceDef
	Sink            Sink
	Hops            []Hop
	Sanitized       bool
	SanitizerFile   string
	SanitizerLine   int
	SanitizerMethod string
}

// Engine runs the demand-driven backward worklist of spec §4.F.2 against
// a graphstore.Store (reverse DFG + call edges) and the relational model
// (for on-demand cross-file parameter binding, §4.F.3).
type Engine struct {
	gs   *graphstore.Store
	repo *sql.DB
	san  *sanitizer.Registry
	cfg  *config.Config
	log  *log.Logger

	succCache *lru.Cache[string, []graphstore.Edge]
}

// New builds an Engine. repo is the relational store's *sql.DB (read-only
// from here); gs is the graph store; san is the sanitizer registry.
func New(repo *sql.DB, gs *graphstore.Store, san *sanitizer.Registry, cfg *config.Config, logger *log.Logger) *Engine {
	cache, _ := lru.New[string, []graphstore.Edge](cfg.IFDSSuccessorCacheSize)
	return &Engine{gs: gs, repo: repo, san: san, cfg: cfg, log: logger, succCache: cache}
}

type frame struct {
	ap    AccessPath
	depth int
	hops  []Hop
	src   *SourceDef
}

// trueEntryBases are the language-agnostic "definitionally untrusted"
// variable bases spec §4.F.2 names as true entry points.
var trueEntryBases = map[string]bool{
	"req": true, "request": true, "body": true, "params": true,
	"query": true, "process.env": true, "process.argv": true,
}

func isTrueEntry(ap AccessPath) bool {
	return trueEntryBases[ap.Base]
}

// Analyze runs the backward worklist from sink against the supplied
// source definitions and returns (vulnerable, sanitized) findings,
// ordered deterministically by node id (spec §4.F.4).
func (e *Engine) Analyze(sink Sink, sources []SourceDef) (vulnerable, sanitized []Finding, err error) {
	startAP, ok := Parse(sink.NodeID, e.cfg.AccessPathMaxFields)
	if !ok {
		e.log.Debug("ifds: malformed sink node id %q, skipping", sink.NodeID)
		return nil, nil, nil
	}

	visited := make(map[string]bool)
	var worklist []frame
	worklist = append(worklist, frame{ap: startAP, depth: 0})

	totalPaths := 0
	iterations := 0

	for len(worklist) > 0 && totalPaths < e.cfg.IFDSMaxPathsPerSink && iterations < e.cfg.IFDSMaxIterations {
		f := worklist[0]
		worklist = worklist[1:]
		iterations++

		id := f.ap.NodeID()
		if visited[id] {
			continue
		}
		visited[id] = true

		if hopCycle(f.hops, id) {
			continue
		}

		src := f.src
		if isTrueEntry(f.ap) {
			synth := SourceDef{File: f.ap.File, Line: 0, Name: f.ap.Base, Pattern: "true_entry:" + f.ap.Base, AP: f.ap}
			src = &synth
		} else if src == nil {
			for i := range sources {
				if f.ap.Matches(sources[i].AP) {
					src = &sources[i]
					break
				}
			}
		}

		if f.depth >= e.cfg.IFDSMaxDepth {
			if src != nil {
				e.record(*src, sink, f.hops, &vulnerable, &sanitized)
				totalPaths++
			}
			continue
		}

		preds, perr := e.predecessors(f.ap)
		if perr != nil {
			return nil, nil, perr
		}
		if len(preds) == 0 {
			if src != nil {
				e.record(*src, sink, f.hops, &vulnerable, &sanitized)
				totalPaths++
			}
			continue
		}

		for _, p := range preds {
			predAP, ok := Parse(p.Source, e.cfg.AccessPathMaxFields)
			if !ok {
				e.log.Debug("ifds: malformed predecessor node id %q, dropping hop", p.Source)
				continue
			}
			hop := Hop{
				Type: strings.TrimSuffix(p.Type, "_reverse"), From: predAP.NodeID(), To: id,
				FromFile: predAP.File, ToFile: f.ap.File, Line: p.Line, Depth: f.depth + 1,
			}
			newHops := append([]Hop{hop}, f.hops...)
			worklist = append(worklist, frame{ap: predAP, depth: f.depth + 1, hops: newHops, src: src})
		}
	}

	sortFindings(vulnerable)
	sortFindings(sanitized)
	return vulnerable, sanitized, nil
}

func hopCycle(hops []Hop, nodeID string) bool {
	for _, h := range hops {
		if h.To == nodeID || h.From == nodeID {
			return true
		}
	}
	return false
}

func (e *Engine) record(src SourceDef, sink Sink, hops []Hop, vulnerable, sanitized *[]Finding) {
	file, line, method, isSanitized := e.san.Scan(hops2scan(hops))
	f := Finding{Source: src, Sink: sink, Hops: append([]Hop(nil), hops...)}
	if isSanitized {
		f.Sanitized = true
		f.SanitizerFile = file
		f.SanitizerLine = line
		f.SanitizerMethod = method
		*sanitized = append(*sanitized, f)
	} else {
		*vulnerable = append(*vulnerable, f)
	}
}

func hops2scan(hops []Hop) []sanitizer.HopRef {
	out := make([]sanitizer.HopRef, len(hops))
	for i, h := range hops {
		out[i] = sanitizer.HopRef{File: h.ToFile, Line: h.Line, NodeID: h.To}
	}
	return out
}

// predecessors returns graph-store predecessors plus, when ap's base is a
// function parameter, synthesized parameter_call predecessors from every
// call site of the enclosing function (spec §4.F.3: "the only place
// where graph edges are computed on demand").
func (e *Engine) predecessors(ap AccessPath) ([]graphstore.Edge, error) {
	id := ap.NodeID()
	if cached, ok := e.succCache.Get(id); ok {
		return cached, nil
	}
	preds, err := e.gs.Predecessors(id)
	if err != nil {
		return nil, err
	}
	synth, err := e.parameterCallPredecessors(ap)
	if err != nil {
		return nil, err
	}
	preds = append(preds, synth...)
	e.succCache.Add(id, preds)
	return preds, nil
}

func (e *Engine) parameterCallPredecessors(ap AccessPath) ([]graphstore.Edge, error) {
	if e.repo == nil {
		return nil, nil
	}
	rows, err := e.repo.Query(`
		SELECT file, line, caller_function, argument_expr
		FROM function_call_args
		WHERE callee_function = ? AND param_name = ?
		ORDER BY file, line`, ap.Function, ap.Base)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []graphstore.Edge
	for rows.Next() {
		var file, caller, argExpr string
		var line int
		if err := rows.Scan(&file, &line, &caller, &argExpr); err != nil {
			return nil, err
		}
		callerAP := New(file, caller, argExpr, nil, ap.MaxLength)
		out = append(out, graphstore.Edge{
			Source: callerAP.NodeID(), Target: ap.NodeID(), Type: "parameter_call",
			GraphType: graphstore.Call, File: file, Line: line,
		})
	}
	return out, rows.Err()
}

func sortFindings(fs []Finding) {
	sort.Slice(fs, func(i, j int) bool {
		ni, nj := findingKey(fs[i]), findingKey(fs[j])
		return ni < nj
	})
}

func findingKey(f Finding) string {
	return f.Source.AP.NodeID() + "|" + f.Sink.NodeID
}
