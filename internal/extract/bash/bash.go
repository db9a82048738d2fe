// Package bash extracts assignment and command-invocation facts from
// shell scripts directly into the taint core's generic
// assignments/function_call_args tables, the same tables python's
// extractor populates, rather than a bash-specific domain table --
// `curl $URL | bash`, `eval "$1"`, and `VAR=$(curl ...)` are exactly
// the variable-assignment and call-argument shapes the IFDS engine
// already walks, so a shell command is modeled as a function call
// (the command name is CalleeFunction, each word after it an
// indexed argument) rather than invented as its own concept.
//
// No shell-parsing library appears in the pack, so this is a
// hand-rolled line scanner like internal/extract/terraform and
// internal/extract/sqlext, tracking only enough state (current
// function, brace depth) to assign each statement to its enclosing
// function and to recognize simple "name() {" / "function name {"
// headers.
package bash

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/theauditor/auditor-core/internal/model"
)

// Extractor implements extract.Extractor for shell scripts.
type Extractor struct{}

// New returns a ready-to-register bash extractor.
func New() *Extractor { return &Extractor{} }

func (e *Extractor) SupportedExtensions() []string { return []string{".sh", ".bash"} }

func (e *Extractor) Extract(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error) {
	facts := &model.Facts{}

	scanner := bufio.NewScanner(bytes.NewReader(file.Content))
	line := 0
	depth := 0
	currentFunc := ""
	funcDepth := -1

	for scanner.Scan() {
		line++
		raw := scanner.Text()
		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, "#") {
			depth += strings.Count(text, "{") - strings.Count(text, "}")
			continue
		}

		if name, ok := parseFunctionHeader(text); ok {
			currentFunc = name
			funcDepth = depth
		} else if funcDepth >= 0 && strings.Contains(text, "}") && depth+strings.Count(text, "{")-strings.Count(text, "}") <= funcDepth {
			currentFunc = ""
			funcDepth = -1
		}

		if target, source, ok := parseAssignment(text); ok {
			facts.Assignments = append(facts.Assignments, model.Assignment{
				File: file.Path, Line: line, TargetVar: target, SourceExpr: source,
				InFunction: funcName(currentFunc), SourceVars: collectVarRefs(source),
			})
		} else if cmd, args := parseCommand(text); cmd != "" {
			for i, arg := range args {
				facts.FunctionCallArgs = append(facts.FunctionCallArgs, model.FunctionCallArg{
					File: file.Path, Line: line, CallerFunction: funcName(currentFunc),
					CalleeFunction: cmd, ArgumentIndex: i, ArgumentExpr: arg,
				})
			}
		}

		depth += strings.Count(text, "{") - strings.Count(text, "}")
	}

	return facts, model.NewManifest(facts), nil
}

func funcName(name string) string {
	if name == "" {
		return "<module>"
	}
	return name
}

// parseFunctionHeader matches "name() {" and "function name {".
func parseFunctionHeader(line string) (name string, ok bool) {
	line = strings.TrimSuffix(strings.TrimSpace(line), "{")
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "function ") {
		return strings.TrimSpace(strings.TrimPrefix(line, "function ")), true
	}
	if idx := strings.Index(line, "()"); idx > 0 {
		return strings.TrimSpace(line[:idx]), true
	}
	return "", false
}

// parseAssignment matches "VAR=value" and "VAR=$(cmd ...)", rejecting
// comparisons ("[ $a == $b ]") and export/local prefixes are stripped
// so the variable name itself is what lands in TargetVar.
func parseAssignment(line string) (target, source string, ok bool) {
	for _, prefix := range []string{"export ", "local ", "readonly ", "declare "} {
		line = strings.TrimPrefix(line, prefix)
	}
	idx := strings.Index(line, "=")
	if idx <= 0 {
		return "", "", false
	}
	name := line[:idx]
	if strings.ContainsAny(name, " \t[]\"'$(){}") {
		return "", "", false
	}
	if idx+1 < len(line) && line[idx+1] == '=' {
		return "", "", false
	}
	return name, strings.TrimSpace(line[idx+1:]), true
}

// parseCommand splits a bare statement into a command word and its
// arguments, skipping control-flow keywords and variable assignments.
func parseCommand(line string) (cmd string, args []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	switch fields[0] {
	case "if", "then", "else", "elif", "fi", "for", "while", "do", "done",
		"case", "esac", "{", "}", "return", "break", "continue":
		return "", nil
	}
	if strings.Contains(fields[0], "=") {
		return "", nil
	}
	return fields[0], fields[1:]
}

// collectVarRefs pulls $VAR / ${VAR} references out of a source
// expression, the bash analogue of python's identifier-collection pass.
func collectVarRefs(expr string) []string {
	var out []string
	for i := 0; i < len(expr); i++ {
		if expr[i] != '$' || i+1 >= len(expr) {
			continue
		}
		j := i + 1
		braced := false
		if expr[j] == '{' {
			braced = true
			j++
		}
		start := j
		for j < len(expr) && isVarChar(expr[j]) {
			j++
		}
		if j > start {
			out = append(out, expr[start:j])
		}
		_ = braced
		i = j
	}
	return out
}

func isVarChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
