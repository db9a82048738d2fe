// Package extract defines the uniform contract every language
// extractor implements (spec §4.C): a small interface with exactly two
// operations, matching the "Deep inheritance" design note's call for
// composition over a multi-mixin DatabaseManager. Concrete extractors
// live in subpackages (python, jsts, docker, ghactions, composeyaml,
// terraform, sqlext, graphql, bash) and are registered with a Dispatcher
// by internal/indexer.
package extract

import (
	"context"

	"github.com/theauditor/auditor-core/internal/model"
)

// Extractor turns one file's content into normalized facts. The
// orchestrator assigns FileInfo.Path, and extractors read it: they copy
// it into their rows, and some (ghactions, terraform) branch on it. A
// parse failure in the AST- and line-based extractors yields empty facts
// and a nil error; the jsts extractor can return an error (build
// signature mismatch, subprocess timeout, unreadable output), which the
// indexer records as an extraction_failure finding before going on with
// the next file (§7 extraction_failure).
type Extractor interface {
	// SupportedExtensions lists the file extensions (including the dot,
	// e.g. ".py") this extractor accepts. The indexer uses this, plus a
	// handful of filename-based overrides (Dockerfile, docker-compose.yml)
	// it applies itself, for dispatch.
	SupportedExtensions() []string

	// Extract parses one file and returns its facts and fidelity
	// manifest. ctx carries the subprocess timeout for extractors that
	// shell out (jsts); AST-based extractors ignore it.
	Extract(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error)
}

// JSXExtractor is implemented by extractors that support a second,
// JSX-preserved extraction pass (spec §4.C's two-pass JSX rule). Only
// internal/extract/jsts implements this; everything else is asked once.
type JSXExtractor interface {
	Extractor
	ExtractJSXPreserved(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error)
}

// Dispatcher maps a file to the extractor responsible for it.
type Dispatcher struct {
	byExt      map[string]Extractor
	byFilename map[string]Extractor
}

// NewDispatcher builds an empty dispatcher; callers Register each
// concrete extractor into it.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		byExt:      make(map[string]Extractor),
		byFilename: make(map[string]Extractor),
	}
}

// Register associates e with every extension it declares.
func (d *Dispatcher) Register(e Extractor) {
	for _, ext := range e.SupportedExtensions() {
		d.byExt[ext] = e
	}
}

// RegisterFilename associates e with an exact filename match (e.g.
// "Dockerfile", "docker-compose.yml"), checked before extension lookup.
func (d *Dispatcher) RegisterFilename(filename string, e Extractor) {
	d.byFilename[filename] = e
}

// For returns the extractor responsible for a file, given its basename
// and extension, or nil if no extractor claims it (the file is then
// skipped, not an error — polyglot repos contain many files no
// extractor needs to understand).
func (d *Dispatcher) For(basename, ext string) Extractor {
	if e, ok := d.byFilename[basename]; ok {
		return e
	}
	return d.byExt[ext]
}
