package jsts

import "embed"

// distFS bakes the bundled Node extractor and its build signature into
// the auditor binary, the same embed.FS idiom codenerd's internal/prompt
// package uses for its baked-in prompt atoms -- retargeted from YAML
// corpus files to a single CommonJS script, so the extractor needs no
// install-time file layout to find at runtime.
//
//go:embed dist
var distFS embed.FS
