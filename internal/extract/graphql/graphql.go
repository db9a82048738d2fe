// Package graphql extracts type/field facts from GraphQL SDL files
// (.graphql, .gql). The pack's only graphql dependency
// (shurcooL-graphql, githubnext-gh-aw/go.mod) is a client library for
// issuing queries against a server, not an SDL parser, so there is
// nothing in the corpus to wire here either; this follows the same
// brace-depth line scanner internal/extract/terraform uses, since SDL
// type/field declarations nest exactly one level like an HCL resource
// block does.
package graphql

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/theauditor/auditor-core/internal/model"
)

// Extractor implements extract.Extractor for GraphQL SDL files.
type Extractor struct{}

// New returns a ready-to-register GraphQL SDL extractor.
func New() *Extractor { return &Extractor{} }

func (e *Extractor) SupportedExtensions() []string { return []string{".graphql", ".gql"} }

var typeKeywords = map[string]string{
	"type":      "object",
	"interface": "interface",
	"input":     "input",
	"enum":      "enum",
	"union":     "union",
}

func (e *Extractor) Extract(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error) {
	facts := &model.Facts{
		ConfigFiles: []model.ConfigFile{{Path: file.Path, Content: string(file.Content), Type: "graphql_schema"}},
	}

	scanner := bufio.NewScanner(bytes.NewReader(file.Content))
	line := 0
	depth := 0
	inType := false
	typeDepth := 0
	var curName string

	for scanner.Scan() {
		line++
		raw := scanner.Text()
		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if !inType {
			if kind, name, ok := parseTypeHeader(text); ok {
				curName = name
				inType = true
				typeDepth = depth
				facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
					Table:  "graphql_types",
					Values: []interface{}{file.Path, line, curName, kind},
				})
			}
		} else if depth == typeDepth+1 {
			if fieldName, fieldType, resolver, ok := parseField(text); ok {
				facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
					Table:  "graphql_fields",
					Values: []interface{}{file.Path, line, curName, fieldName, fieldType, resolver},
				})
			}
		}

		depth += strings.Count(text, "{") - strings.Count(text, "}")
		if inType && depth <= typeDepth {
			inType = false
		}
	}

	return facts, model.NewManifest(facts), nil
}

// parseTypeHeader matches "type Foo {", "type Foo implements Bar {",
// "interface Foo {", "enum Foo {", "input Foo {".
func parseTypeHeader(line string) (kind, name string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", false
	}
	k, known := typeKeywords[fields[0]]
	if !known {
		return "", "", false
	}
	n := strings.TrimSuffix(fields[1], "{")
	n = strings.TrimSpace(n)
	if n == "" {
		return "", "", false
	}
	return k, n, true
}

// parseField matches "name(args): Type" or "name: Type", the two
// forms a field declaration takes inside a type/interface/input block.
// Enum members ("ACTIVE") have no colon and are skipped.
func parseField(line string) (name, fieldType string, resolver interface{}, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", nil, false
	}
	head := strings.TrimSpace(line[:idx])
	if parenIdx := strings.Index(head, "("); parenIdx >= 0 {
		head = strings.TrimSpace(head[:parenIdx])
	}
	if head == "" {
		return "", "", nil, false
	}
	rest := strings.TrimSpace(line[idx+1:])
	rest = strings.TrimSuffix(rest, ",")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", "", nil, false
	}
	fieldType = firstToken(rest)
	return head, fieldType, nil, true
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}
