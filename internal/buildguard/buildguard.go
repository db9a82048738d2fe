// Package buildguard gates invocation of the bundled jsts subprocess on
// a build signature matching the script actually on disk, the same
// "fingerprint what's supposed to run, fail loud on drift" idiom
// internal/schema's Hash/VerifyStamp pair uses for repo_index.db's
// table definitions, retargeted from a schema's DDL text to a bundled
// Node script's bytes. A stale or missing build produces
// errs.BuildOutOfDate rather than a confusing subprocess failure deep
// inside extraction.
package buildguard

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/theauditor/auditor-core/internal/errs"
)

// SignatureFileName is the sibling file VerifyBuild compares against,
// conventionally written by whatever packages scriptPath (npm run
// build, a Makefile target, ...).
const SignatureFileName = ".build_signature"

// Sign hashes script's bytes into the signature VerifyBuild expects to
// find recorded alongside it. Exposed so a build step can call it
// directly rather than shelling out to sha256sum.
func Sign(script []byte) string {
	sum := sha256.Sum256(script)
	return hex.EncodeToString(sum[:])
}

// VerifyBuild reads scriptPath and its sibling signature file and
// confirms they match. It returns errs.BuildOutOfDate when the script
// is missing, the signature is missing, or the recorded signature no
// longer matches the script's actual bytes -- any of which mean the
// bundled extractor was never built, or was edited without rebuilding.
func VerifyBuild(scriptPath string) error {
	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return errs.Wrap(errs.BuildOutOfDate, err, "jsts extractor script not found at "+scriptPath)
	}

	sigPath := filepath.Join(filepath.Dir(scriptPath), SignatureFileName)
	recorded, err := os.ReadFile(sigPath)
	if err != nil {
		return errs.Wrap(errs.BuildOutOfDate, err, "jsts build signature not found at "+sigPath)
	}

	want := Sign(script)
	got := strings.TrimSpace(string(recorded))
	if got != want {
		return errs.New(errs.BuildOutOfDate,
			"jsts extractor script at "+scriptPath+" does not match its recorded build signature; rebuild it")
	}
	return nil
}
