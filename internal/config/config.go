// Package config centralizes every tunable default the pipeline reads:
// batch size, excluded directories, IFDS/FFR caps, and the output
// directory convention. Defaults are overridable by a .env file (loaded
// through analytics.LoadEnvFile's godotenv path) and by cmd/ flags; no
// other envvar alters behavior, per the external-interface contract's
// "single debug flag" rule.
package config

import (
	"os"
	"strconv"
)

// Config holds every runtime tunable for one analysis run.
type Config struct {
	// ProjectRoot is the directory being analyzed.
	ProjectRoot string
	// OutputDir is <ProjectRoot>/.pf by default.
	OutputDir string

	// ExcludedDirs are skipped entirely during the filesystem walk.
	ExcludedDirs map[string]bool

	// BatchSize is the per-table in-memory batch before a flush.
	BatchSize int
	// MaxBatchSize is the implementation ceiling BatchSize is clamped to.
	MaxBatchSize int

	// AccessPathMaxFields is the k-limit on AccessPath.fields length.
	AccessPathMaxFields int

	// IFDSMaxDepth bounds backward worklist traversal depth.
	IFDSMaxDepth int
	// IFDSMaxPathsPerSink bounds recorded paths per sink.
	IFDSMaxPathsPerSink int
	// IFDSMaxIterations bounds total worklist pops per run.
	IFDSMaxIterations int
	// IFDSSuccessorCacheSize is the LRU cache size for predecessor lookups.
	IFDSSuccessorCacheSize int
	// IFDSEdgeTypeCacheSize is a configured edge-type cache size; no
	// component reads it, and the IFDS engine keeps no edge-type cache.
	IFDSEdgeTypeCacheSize int

	// FFRInfraMaxEffort/MaxVisits apply to infrastructure-classified entries.
	FFRInfraMaxEffort int
	FFRInfraMaxVisits int
	// FFRUserMaxEffort/MaxVisits apply to everything else.
	FFRUserMaxEffort int
	FFRUserMaxVisits int
	// FFRMaxDepth bounds forward DFS depth regardless of entry kind.
	FFRMaxDepth int

	// SubprocessTimeoutSeconds bounds the JS/TS extractor and build invocations.
	SubprocessTimeoutSeconds int

	// Debug enables VerbosityDebug trace output across every component.
	Debug bool
}

// defaultExcludedDirs mirrors the conventional set any polyglot indexer
// skips: VCS metadata, dependency trees, and build output.
func defaultExcludedDirs() map[string]bool {
	names := []string{
		".git", ".hg", ".svn",
		"node_modules", "vendor", ".venv", "venv", "__pycache__",
		"dist", "build", "target", ".pf",
		".cache", ".mypy_cache", ".pytest_cache",
	}
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Default returns the built-in defaults for projectRoot with no overrides applied.
func Default(projectRoot string) *Config {
	return &Config{
		ProjectRoot:              projectRoot,
		OutputDir:                projectRoot + "/.pf",
		ExcludedDirs:             defaultExcludedDirs(),
		BatchSize:                200,
		MaxBatchSize:             2000,
		AccessPathMaxFields:      5,
		IFDSMaxDepth:             64,
		IFDSMaxPathsPerSink:      100,
		IFDSMaxIterations:        10000,
		IFDSSuccessorCacheSize:   10000,
		IFDSEdgeTypeCacheSize:    20000,
		FFRInfraMaxEffort:        5000,
		FFRInfraMaxVisits:        2,
		FFRUserMaxEffort:         25000,
		FFRUserMaxVisits:         10,
		FFRMaxDepth:              64,
		SubprocessTimeoutSeconds: 30,
		Debug:                    false,
	}
}

// LoadEnv applies AUDITOR_* environment overrides on top of the defaults.
// Only numeric/bool tunables are overridable this way; ProjectRoot and
// ExcludedDirs are set programmatically by the caller.
func (c *Config) LoadEnv() {
	if v := os.Getenv("AUDITOR_DEBUG"); v != "" {
		c.Debug, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("AUDITOR_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if n > c.MaxBatchSize {
				n = c.MaxBatchSize
			}
			c.BatchSize = n
		}
	}
}
