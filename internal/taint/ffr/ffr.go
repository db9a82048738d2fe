// Package ffr is the Forward Flow Resolver (spec component G): an
// adaptive-throttled forward DFS from entry points to exit nodes,
// populating resolved_flow_audit for audit/truth-table output. Grounded
// on dsl/dataflow_executor.go's executeGlobal/findPath/dfs triad -- the
// teacher's "global scope" cross-function path search is the same shape
// as this resolver, just re-targeted at the SQL edge store and given the
// two-tier throttle table spec §4.G defines.
package ffr

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/theauditor/auditor-core/internal/classify"
	"github.com/theauditor/auditor-core/internal/config"
	"github.com/theauditor/auditor-core/internal/graphstore"
	"github.com/theauditor/auditor-core/internal/sanitizer"
)

// EntryKind classifies a forward-search starting point for throttling.
type EntryKind int

const (
	// UserCode is the default throttle tier: everything not recognized
	// as configuration/environment/constant.
	UserCode EntryKind = iota
	// Infrastructure covers configs, env vars, and ALL_CAPS constants --
	// spec §4.G's lower-effort tier.
	Infrastructure
)

// Entry is one forward-search starting point.
type Entry struct {
	File    string
	Line    int
	Pattern string
	NodeID  string
	Kind    EntryKind
}

// ClassifyEntry determines an Entry's throttle tier from its base name,
// per spec §4.G's table ("Infrastructure (configs, env vars, ALL_CAPS
// constants)").
func ClassifyEntry(base string) EntryKind {
	if base == "process.env" || strings.HasPrefix(base, "config.") || strings.HasSuffix(base, "_config") {
		return Infrastructure
	}
	if base == strings.ToUpper(base) && base != strings.ToLower(base) {
		return Infrastructure
	}
	return UserCode
}

// Path is one resolved forward flow, ready to write to resolved_flow_audit.
type Path struct {
	SourceFile, SourcePattern string
	SourceLine                int
	SinkFile, SinkPattern     string
	SinkLine                  int
	Status                    string // VULNERABLE or SANITIZED
	SanitizerFile             string
	SanitizerLine             int
	SanitizerMethod           string
	VulnerabilityKind         string
	Hops                      []hop
}

type hop struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
	Line int    `json:"line"`
}

// HopChainJSON renders the path's hop chain for storage.
func (p Path) HopChainJSON() string {
	b, _ := json.Marshal(p.Hops)
	return string(b)
}

// Resolver runs the adaptive-throttled forward search.
type Resolver struct {
	gs  *graphstore.Store
	san *sanitizer.Registry
	cfg *config.Config
}

// New builds a Resolver over gs (forward edges) using san to classify
// each terminated path.
func New(gs *graphstore.Store, san *sanitizer.Registry, cfg *config.Config) *Resolver {
	return &Resolver{gs: gs, san: san, cfg: cfg}
}

type visitState struct {
	count int
}

// Resolve runs a forward DFS from every entry, deduplicates by (source
// file, source pattern, sink file, sink pattern, status, sanitizer
// method) keeping the shortest path, and returns the surviving set in
// deterministic order.
func (r *Resolver) Resolve(entries []Entry, sinkNodeIDs map[string]bool) ([]Path, error) {
	var all []Path
	for _, e := range entries {
		maxEffort, maxVisits := r.throttleFor(e.Kind)
		paths, err := r.dfsFrom(e, sinkNodeIDs, maxEffort, maxVisits)
		if err != nil {
			return nil, err
		}
		all = append(all, paths...)
	}
	return dedupShortest(all), nil
}

func (r *Resolver) throttleFor(kind EntryKind) (maxEffort, maxVisits int) {
	if kind == Infrastructure {
		return r.cfg.FFRInfraMaxEffort, r.cfg.FFRInfraMaxVisits
	}
	return r.cfg.FFRUserMaxEffort, r.cfg.FFRUserMaxVisits
}

func (r *Resolver) dfsFrom(entry Entry, sinkNodeIDs map[string]bool, maxEffort, maxVisits int) ([]Path, error) {
	visits := make(map[string]*visitState)
	var out []Path
	effort := 0

	type frame struct {
		node  string
		depth int
		hops  []hop
	}
	stack := []frame{{node: entry.NodeID, depth: 0}}

	for len(stack) > 0 && effort < maxEffort {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		effort++

		vs, ok := visits[f.node]
		if !ok {
			vs = &visitState{}
			visits[f.node] = vs
		}
		if vs.count >= maxVisits {
			continue
		}
		vs.count++

		if sinkNodeIDs[f.node] || f.depth >= r.cfg.FFRMaxDepth {
			out = append(out, r.finishPath(entry, f.node, f.hops))
			continue
		}

		succs, err := r.gs.Successors(f.node)
		if err != nil {
			return nil, err
		}
		if len(succs) == 0 {
			out = append(out, r.finishPath(entry, f.node, f.hops))
			continue
		}
		for _, s := range succs {
			h := hop{Type: s.Type, From: s.Source, To: s.Target, Line: s.Line}
			stack = append(stack, frame{node: s.Target, depth: f.depth + 1, hops: append(append([]hop(nil), f.hops...), h)})
		}
	}
	return out, nil
}

func (r *Resolver) finishPath(entry Entry, exitNode string, hops []hop) Path {
	scanHops := make([]sanitizer.HopRef, len(hops))
	for i, h := range hops {
		scanHops[i] = sanitizer.HopRef{File: splitFile(h.To), NodeID: h.To, Line: h.Line}
	}
	sanFile, sanLine, sanMethod, isSan := r.san.Scan(scanHops)

	sinkLine := 0
	sinkPattern := exitNode
	if len(hops) > 0 {
		sinkLine = hops[len(hops)-1].Line
	}

	status := "VULNERABLE"
	if isSan {
		status = "SANITIZED"
	}

	p := Path{
		SourceFile: entry.File, SourceLine: entry.Line, SourcePattern: entry.Pattern,
		SinkFile: splitFile(exitNode), SinkLine: sinkLine, SinkPattern: sinkPattern,
		Status: status, VulnerabilityKind: classify.Classify(sinkPattern, entry.Pattern), Hops: hops,
	}
	if isSan {
		p.SanitizerFile = sanFile
		p.SanitizerLine = sanLine
		p.SanitizerMethod = sanMethod
	}
	return p
}

func splitFile(nodeID string) string {
	if i := strings.Index(nodeID, "::"); i >= 0 {
		return nodeID[:i]
	}
	return nodeID
}

// dedupShortest keeps only the shortest-hop path per (source_file,
// source_pattern, sink_file, sink_pattern, status, sanitizer_method),
// matching spec §4.G step 2 exactly.
func dedupShortest(paths []Path) []Path {
	best := make(map[string]Path)
	for _, p := range paths {
		key := strings.Join([]string{p.SourceFile, p.SourcePattern, p.SinkFile, p.SinkPattern, p.Status, p.SanitizerMethod}, "|")
		if existing, ok := best[key]; !ok || len(p.Hops) < len(existing.Hops) {
			best[key] = p
		}
	}
	out := make([]Path, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return dedupKey(out[i]) < dedupKey(out[j])
	})
	return out
}

func dedupKey(p Path) string {
	return p.SourceFile + "|" + p.SourcePattern + "|" + p.SinkFile + "|" + p.SinkPattern + "|" + p.Status + "|" + p.SanitizerMethod
}
