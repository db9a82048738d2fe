// Package ghactions extracts GitHub Actions workflow facts (spec §4.C's
// domain stack) using yamlnode rather than a regex sweep. Grounded on
// graph/parser_yaml.go's YAMLGraph.Query/GetChild traversal idiom,
// retargeted from the teacher's generic docker-compose use case to
// workflow/job/step rows -- a CI injection sink (a `run:` step
// interpolating `${{ github.event.* }}`) is exactly the kind of
// source-to-sink path the taint core is built to chase, so job/step
// structure needs to exist as real rows, not just config_files text.
package ghactions

import (
	"context"
	"strconv"

	"github.com/theauditor/auditor-core/internal/extract/yamlnode"
	"github.com/theauditor/auditor-core/internal/model"
)

// Extractor implements extract.Extractor for .github/workflows/*.yml.
type Extractor struct{}

// New returns a ready-to-register GitHub Actions workflow extractor.
func New() *Extractor { return &Extractor{} }

func (e *Extractor) SupportedExtensions() []string { return []string{".yml", ".yaml"} }

func (e *Extractor) Extract(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error) {
	if !isWorkflowPath(file.Path) {
		return &model.Facts{}, &model.Manifest{Counts: map[string]int{}}, nil
	}

	root, err := yamlnode.Parse(file.Content)
	if err != nil {
		return &model.Facts{}, &model.Manifest{Counts: map[string]int{}}, nil
	}

	facts := &model.Facts{
		ConfigFiles: []model.ConfigFile{{Path: file.Path, Content: string(file.Content), Type: "github_actions_workflow"}},
	}

	name := root.Get("name").String()
	facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
		Table:  "github_actions_workflows",
		Values: []interface{}{file.Path, name, nil},
	})

	jobsNode := root.Get("jobs")
	if jobsNode == nil || jobsNode.Children == nil {
		return facts, model.NewManifest(facts), nil
	}

	for jobID, job := range jobsNode.Children {
		runsOn := job.Get("runs-on")
		var runsOnStr interface{}
		if runsOn != nil {
			runsOnStr = runsOn.String()
		}
		facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
			Table:  "github_actions_jobs",
			Values: []interface{}{file.Path, jobID, runsOnStr, job.Line},
		})

		steps := job.Get("steps")
		if steps == nil {
			continue
		}
		for i, raw := range steps.Seq() {
			step, ok := raw.(*yamlnode.Node)
			if !ok {
				continue
			}
			stepName := nullableNode(step.Get("name"))
			uses := nullableNode(step.Get("uses"))
			run := nullableNode(step.Get("run"))
			facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
				Table:  "github_actions_steps",
				Values: []interface{}{file.Path, jobID, i, stepName, uses, run, step.Line},
			})

			if runNode := step.Get("run"); runNode != nil {
				runText := runNode.String()
				if hasInterpolation(runText) {
					facts.Assignments = append(facts.Assignments, model.Assignment{
						File: file.Path, Line: step.Line, TargetVar: "shell_command",
						SourceExpr: runText, InFunction: jobID + ":" + stepNameOrIndex(stepName, i),
					})
				}
			}
		}
	}

	return facts, model.NewManifest(facts), nil
}

func isWorkflowPath(p string) bool {
	return contains(p, ".github/workflows/")
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func nullableNode(n *yamlnode.Node) interface{} {
	if n == nil {
		return nil
	}
	return n.String()
}

func stepNameOrIndex(name interface{}, i int) string {
	if s, ok := name.(string); ok && s != "" {
		return s
	}
	return "step" + strconv.Itoa(i)
}

// hasInterpolation reports whether text contains a "${{ ... }}"
// expression, GitHub Actions' templating syntax and the classic
// script-injection vector when it interpolates untrusted event data
// straight into a shell step.
func hasInterpolation(s string) bool {
	for i := 0; i+3 < len(s); i++ {
		if s[i] == '$' && s[i+1] == '{' && s[i+2] == '{' {
			return true
		}
	}
	return false
}
