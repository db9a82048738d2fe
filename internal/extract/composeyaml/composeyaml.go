// Package composeyaml extracts docker-compose service facts using
// yamlnode, matched by exact filename (docker-compose.yml and its
// common variants) rather than extension, since the extension is shared
// with every other YAML file in a repo. Grounded on graph/parser_yaml.go,
// whose own doc comment calls out "docker-compose.yml" as its default
// path -- this package is that exact use case pulled out of the
// teacher's general-purpose graph package into its own extractor.
package composeyaml

import (
	"context"

	"github.com/theauditor/auditor-core/internal/extract/yamlnode"
	"github.com/theauditor/auditor-core/internal/model"
)

// Extractor implements extract.Extractor for docker-compose files,
// registered by exact filename (extract.Dispatcher.RegisterFilename),
// not by extension.
type Extractor struct{}

// New returns a ready-to-register docker-compose extractor.
func New() *Extractor { return &Extractor{} }

func (e *Extractor) SupportedExtensions() []string { return nil }

// Filenames lists the exact basenames this extractor claims.
func Filenames() []string {
	return []string{"docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml"}
}

func (e *Extractor) Extract(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error) {
	root, err := yamlnode.Parse(file.Content)
	if err != nil {
		return &model.Facts{}, &model.Manifest{Counts: map[string]int{}}, nil
	}

	facts := &model.Facts{
		ConfigFiles: []model.ConfigFile{{Path: file.Path, Content: string(file.Content), Type: "docker_compose"}},
	}

	services := root.Get("services")
	if services == nil || services.Children == nil {
		return facts, model.NewManifest(facts), nil
	}

	for name, svc := range services.Children {
		var image interface{}
		if img := svc.Get("image"); img != nil {
			image = img.String()
		}
		facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
			Table:  "compose_services",
			Values: []interface{}{file.Path, svc.Line, name, image},
		})

		for _, raw := range svc.Get("ports").Seq() {
			hostPort, containerPort := splitPortMapping(raw)
			if hostPort == "" && containerPort == "" {
				continue
			}
			facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
				Table:  "compose_service_ports",
				Values: []interface{}{file.Path, name, hostPort, containerPort},
			})
		}

		envNode := svc.Get("environment")
		for key, val := range envEntries(envNode) {
			facts.DomainFacts = append(facts.DomainFacts, model.DomainFact{
				Table:  "compose_service_env",
				Values: []interface{}{file.Path, name, key, nullableStr(val)},
			})
		}
	}

	return facts, model.NewManifest(facts), nil
}

func splitPortMapping(raw interface{}) (host, container string) {
	s, ok := raw.(string)
	if !ok {
		return "", ""
	}
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return s[:i], s[i+1:]
		}
	}
	return "", s
}

// envEntries normalizes both compose environment forms -- a mapping
// (KEY: value) and a sequence of "KEY=value"/"KEY" strings -- into a
// single key->value map.
func envEntries(n *yamlnode.Node) map[string]string {
	out := make(map[string]string)
	if n == nil {
		return out
	}
	if n.Type == "mapping" {
		for k, v := range n.Children {
			out[k] = v.String()
		}
		return out
	}
	for _, raw := range n.Seq() {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		key, val, hasVal := cutEnvEntry(s)
		if hasVal {
			out[key] = val
		} else {
			out[key] = ""
		}
	}
	return out
}

func cutEnvEntry(s string) (key, val string, hasVal bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func nullableStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
