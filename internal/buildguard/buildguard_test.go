package buildguard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theauditor/auditor-core/internal/errs"
)

func writeScriptAndSignature(t *testing.T, script []byte, signature string) string {
	t.Helper()
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "extractor.cjs")
	require.NoError(t, os.WriteFile(scriptPath, script, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SignatureFileName), []byte(signature), 0o644))
	return scriptPath
}

func TestVerifyBuildAcceptsMatchingSignature(t *testing.T) {
	script := []byte("console.log('hi')\n")
	scriptPath := writeScriptAndSignature(t, script, Sign(script)+"\n")
	assert.NoError(t, VerifyBuild(scriptPath))
}

func TestVerifyBuildRejectsMismatchedSignature(t *testing.T) {
	scriptPath := writeScriptAndSignature(t, []byte("console.log('hi')\n"), "0000000000000000000000000000000000000000000000000000000000000000\n")
	err := VerifyBuild(scriptPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.Sentinel(errs.BuildOutOfDate)))
}

func TestVerifyBuildMissingScript(t *testing.T) {
	dir := t.TempDir()
	err := VerifyBuild(filepath.Join(dir, "does_not_exist.cjs"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.Sentinel(errs.BuildOutOfDate)))
}

func TestVerifyBuildMissingSignatureFile(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "extractor.cjs")
	require.NoError(t, os.WriteFile(scriptPath, []byte("x"), 0o644))
	err := VerifyBuild(scriptPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.Sentinel(errs.BuildOutOfDate)))
}

func TestSignIsDeterministic(t *testing.T) {
	a := Sign([]byte("same content"))
	b := Sign([]byte("same content"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Sign([]byte("different content")))
}
