// Package yamlnode is the shared YAML-tree helper the ghactions and
// composeyaml extractors both build on, so config-file extraction stays
// regex-free per spec §4.C ("YAML/INI/TOML may use a plain-text/line
// parser... but never a regex sweep over the entire config file").
// Grounded verbatim on graph/parser_yaml.go's YAMLNode/YAMLGraph shape
// (mapping/sequence/scalar kinds, line numbers preserved from
// yaml.Node.Line), lifted out of the teacher's single `graph` package
// into its own package since two independent domain extractors need it.
package yamlnode

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Node is one parsed YAML node, line-numbered for fact extraction.
type Node struct {
	Value    interface{}
	Children map[string]*Node
	Type     string // "scalar", "mapping", "sequence"
	Line     int
}

// Parse decodes content into a line-numbered Node tree rooted at the
// document's first content node.
func Parse(content []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	return convert(root), nil
}

func convert(n *yaml.Node) *Node {
	if n == nil {
		return &Node{Type: "scalar"}
	}
	out := &Node{Line: n.Line}
	switch n.Kind {
	case yaml.MappingNode:
		out.Type = "mapping"
		out.Children = make(map[string]*Node)
		for i := 0; i+1 < len(n.Content); i += 2 {
			out.Children[n.Content[i].Value] = convert(n.Content[i+1])
		}
	case yaml.SequenceNode:
		out.Type = "sequence"
		items := make([]interface{}, 0, len(n.Content))
		for _, c := range n.Content {
			cv := convert(c)
			if cv.Type == "scalar" {
				items = append(items, cv.Value)
			} else {
				items = append(items, cv)
			}
		}
		out.Value = items
	case yaml.AliasNode:
		return convert(n.Alias)
	default:
		out.Type = "scalar"
		var decoded interface{}
		if err := n.Decode(&decoded); err == nil {
			out.Value = decoded
		} else {
			out.Value = n.Value
		}
	}
	return out
}

func (n *Node) Get(key string) *Node {
	if n == nil || n.Children == nil {
		return nil
	}
	return n.Children[key]
}

// Seq returns the node's raw sequence items, or its sub-nodes when each
// item is itself a mapping/sequence.
func (n *Node) Seq() []interface{} {
	if n == nil || n.Type != "sequence" {
		return nil
	}
	items, _ := n.Value.([]interface{})
	return items
}

func (n *Node) String() string {
	if n == nil || n.Value == nil {
		return ""
	}
	return fmt.Sprint(n.Value)
}

// Keys returns a mapping node's keys in the order yaml.v3 preserved them
// is not guaranteed by a Go map, so callers needing declaration order
// should walk the underlying yaml.Node directly; Keys is for callers
// that only need membership, not order.
func (n *Node) Keys() []string {
	if n == nil || n.Children == nil {
		return nil
	}
	out := make([]string, 0, len(n.Children))
	for k := range n.Children {
		out = append(out, k)
	}
	return out
}
