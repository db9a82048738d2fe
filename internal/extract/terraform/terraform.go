// Package terraform extracts resource/attribute facts from .tf and
// .tfvars files with a hand-rolled brace-depth line scanner rather than
// a full HCL parser, matching spec §4.C's allowance that "YAML/INI/TOML
// [and HCL-like formats] may use a plain-text/line parser... but never a
// regex sweep over the entire config file." Grounded on the plain
// key=value idiom the pack's config-loading code uses throughout
// (theRebelliousNerd-codenerd/internal/config/config.go's line-oriented
// env parsing), generalized here to one extra nesting level for
// `resource "type" "name" { ... }` blocks.
package terraform

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/theauditor/auditor-core/internal/model"
)

// Extractor implements extract.Extractor for .tf/.tfvars files.
type Extractor struct{}

// New returns a ready-to-register Terraform extractor.
func New() *Extractor { return &Extractor{} }

func (e *Extractor) SupportedExtensions() []string { return []string{".tf", ".tfvars"} }

func (e *Extractor) Extract(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error) {
	facts := &model.Facts{
		ConfigFiles: []model.ConfigFile{{Path: file.Path, Content: string(file.Content), Type: "terraform"}},
	}

	if strings.HasSuffix(file.Path, ".tfvars") {
		extractTFVars(file, facts)
		return facts, model.NewManifest(facts), nil
	}

	extractResources(file, facts)
	return facts, model.NewManifest(facts), nil
}

// extractTFVars treats a .tfvars file as flat key = value pairs, one
// per line, per the dependency table's explicit "treated as plain
// key=value" rule. Values are attached to a synthetic "tfvars"/"root"
// resource row so the attribute rows satisfy terraform_attributes' FK
// into terraform_resources without a real HCL resource block to anchor to.
func extractTFVars(file model.FileInfo, facts *model.Facts) {
	facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
		Table:  "terraform_resources",
		Values: []interface{}{file.Path, 1, "tfvars", "root"},
	})

	scanner := bufio.NewScanner(bytes.NewReader(file.Content))
	line := 0
	for scanner.Scan() {
		line++
		key, val, ok := splitAssignment(scanner.Text())
		if !ok {
			continue
		}
		facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
			Table:  "terraform_attributes",
			Values: []interface{}{file.Path, line, "tfvars", "root", key, nullableStr(val)},
		})
	}
}

// extractResources scans top-level `resource "type" "name" {` blocks and
// the simple one-line attributes directly inside them, tracking brace
// depth so nested blocks (e.g. a resource's "tags {}") don't get
// misread as sibling resources.
func extractResources(file model.FileInfo, facts *model.Facts) {
	scanner := bufio.NewScanner(bytes.NewReader(file.Content))
	line := 0
	depth := 0
	var curType, curName string
	inResource := false
	resourceDepth := 0

	for scanner.Scan() {
		line++
		raw := scanner.Text()
		text := strings.TrimSpace(raw)

		if !inResource {
			if rType, rName, ok := parseResourceHeader(text); ok {
				curType, curName = rType, rName
				inResource = true
				resourceDepth = depth
				facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
					Table:  "terraform_resources",
					Values: []interface{}{file.Path, line, curType, curName},
				})
			}
		} else if depth == resourceDepth+1 {
			if key, val, ok := splitAssignment(text); ok {
				facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
					Table:  "terraform_attributes",
					Values: []interface{}{file.Path, line, curType, curName, key, nullableStr(val)},
				})
			}
		}

		depth += strings.Count(text, "{") - strings.Count(text, "}")
		if inResource && depth <= resourceDepth {
			inResource = false
		}
	}
}

// parseResourceHeader matches `resource "type" "name" {`.
func parseResourceHeader(line string) (resType, name string, ok bool) {
	if !strings.HasPrefix(line, "resource ") && !strings.HasPrefix(line, "resource\"") {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "resource"))
	parts := splitQuoted(rest)
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// splitQuoted extracts the contents of every "..." segment in s, in order.
func splitQuoted(s string) []string {
	var out []string
	inQuote := false
	var cur strings.Builder
	for _, r := range s {
		if r == '"' {
			if inQuote {
				out = append(out, cur.String())
				cur.Reset()
			}
			inQuote = !inQuote
			continue
		}
		if inQuote {
			cur.WriteRune(r)
		}
	}
	return out
}

// splitAssignment splits a "key = value" line; value may be blank for
// block-opening lines ("tags = {"), which callers should ignore.
func splitAssignment(line string) (key, val string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	val = strings.TrimSpace(line[idx+1:])
	if key == "" || strings.ContainsAny(key, "{}\"") {
		return "", "", false
	}
	if val == "{" || val == "[" {
		return "", "", false
	}
	val = strings.Trim(val, `"`)
	return key, val, true
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
