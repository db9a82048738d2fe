// Package docker extracts normalized facts from Dockerfiles via
// tree-sitter, following spec §4.C's AST-only rule for every extractor
// including the domain-stack ones. Grounded on graph/docker/parser.go's
// convertInstruction dispatch (walk top-level instruction nodes, map
// node type to an instruction keyword, track FROM as a stage boundary)
// but retargeted from the teacher's rich per-instruction DockerfileNode
// struct to the generic DomainFact rows docker_instructions/docker_images
// define, since the taint pipeline only needs the base-image and raw
// instruction text, not a full structured Dockerfile model.
package docker

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/dockerfile"

	"github.com/theauditor/auditor-core/internal/model"
)

// Extractor implements extract.Extractor for Dockerfiles, matched by
// filename rather than extension (extract.Dispatcher.RegisterFilename).
type Extractor struct{}

// New returns a ready-to-register Dockerfile extractor.
func New() *Extractor { return &Extractor{} }

func (e *Extractor) SupportedExtensions() []string { return nil }

// instructionTypes maps tree-sitter's per-instruction node type to the
// Dockerfile keyword it represents, same mapping parser.go's
// extractInstructionType builds.
var instructionTypes = map[string]string{
	"from_instruction":        "FROM",
	"run_instruction":         "RUN",
	"copy_instruction":        "COPY",
	"add_instruction":         "ADD",
	"env_instruction":         "ENV",
	"arg_instruction":         "ARG",
	"user_instruction":        "USER",
	"expose_instruction":      "EXPOSE",
	"workdir_instruction":     "WORKDIR",
	"cmd_instruction":         "CMD",
	"entrypoint_instruction":  "ENTRYPOINT",
	"volume_instruction":      "VOLUME",
	"shell_instruction":       "SHELL",
	"healthcheck_instruction": "HEALTHCHECK",
	"label_instruction":       "LABEL",
	"onbuild_instruction":     "ONBUILD",
	"stopsignal_instruction":  "STOPSIGNAL",
	"maintainer_instruction":  "MAINTAINER",
}

func (e *Extractor) Extract(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(dockerfile.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, file.Content)
	if err != nil {
		return &model.Facts{}, &model.Manifest{Counts: map[string]int{}}, nil
	}
	defer tree.Close()

	facts := &model.Facts{
		ConfigFiles: []model.ConfigFile{{Path: file.Path, Content: string(file.Content), Type: "dockerfile"}},
	}

	root := tree.RootNode()
	stageIndex := 0
	stageName := "0"
	for i := 0; i < int(root.ChildCount()); i++ {
		n := root.Child(i)
		keyword, ok := instructionTypes[n.Type()]
		if !ok {
			continue
		}
		line := int(n.StartPoint().Row) + 1
		raw := n.Content(file.Content)
		args := strings.TrimSpace(strings.TrimPrefix(raw, keyword))

		facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
			Table:  "docker_instructions",
			Values: []interface{}{file.Path, line, keyword, args, stageName},
		})

		if keyword == "FROM" {
			image, tag, alias := parseFromArgs(args)
			if alias != "" {
				stageName = alias
			} else {
				stageName = itoa(stageIndex)
			}
			facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
				Table:  "docker_images",
				Values: []interface{}{file.Path, line, image, nullableStr(tag), nullableStr(stageName)},
			})
			stageIndex++
		}
	}

	return facts, model.NewManifest(facts), nil
}

// parseFromArgs splits "image[:tag] [AS alias]" per FROM's grammar.
func parseFromArgs(args string) (image, tag, alias string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", "", ""
	}
	spec := fields[0]
	for i := 1; i+1 < len(fields); i++ {
		if strings.EqualFold(fields[i], "AS") {
			alias = fields[i+1]
			break
		}
	}
	if before, after, ok := strings.Cut(spec, "@"); ok {
		return before, after, alias
	}
	if idx := strings.LastIndex(spec, ":"); idx > strings.LastIndex(spec, "/") {
		return spec[:idx], spec[idx+1:], alias
	}
	return spec, "", alias
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
