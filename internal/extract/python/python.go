// Package python extracts normalized facts from Python source via
// tree-sitter, the only AST backend spec §4.C permits ("Extractors MUST
// be AST-based"). Grounded on parser_python.go's statement-kind dispatch
// (decorated_definition/function_definition/class_definition/call/
// assignment/return_statement switch over *sitter.Node, StartPoint().Row
// used as the 1-indexed line number) and parser.go's ParseCtx setup in
// initialize.go, retargeted from building an in-memory graph.Node tree to
// emitting model.Facts rows.
package python

import (
	"context"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/theauditor/auditor-core/internal/model"
)

// Extractor implements extract.Extractor for .py files.
type Extractor struct{}

// New returns a ready-to-register Python extractor.
func New() *Extractor { return &Extractor{} }

func (e *Extractor) SupportedExtensions() []string { return []string{".py"} }

func (e *Extractor) Extract(ctx context.Context, file model.FileInfo) (*model.Facts, *model.Manifest, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, file.Content)
	if err != nil {
		// A parse crash is extraction_failure, not a hard error: return
		// empty facts so the orchestrator can record a finding and move
		// on (§7).
		return &model.Facts{}, &model.Manifest{Counts: map[string]int{}}, nil
	}
	defer tree.Close()

	w := &walker{file: file.Path, src: file.Content, facts: &model.Facts{}, funcStack: []string{"global"}}
	w.walk(tree.RootNode())

	return w.facts, model.NewManifest(w.facts), nil
}

// walker carries per-file state across a single recursive descent.
type walker struct {
	file      string
	src       []byte
	facts     *model.Facts
	funcStack []string // innermost-last; "global" at module scope
	cfgSeq    int64
}

func (w *walker) currentFunction() string {
	return w.funcStack[len(w.funcStack)-1]
}

func (w *walker) line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func (w *walker) text(n *sitter.Node) string {
	return n.Content(w.src)
}

func (w *walker) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "function_definition":
		w.onFunctionDef(n)
		return // onFunctionDef recurses into the body itself
	case "class_definition":
		w.onClassDef(n)
		return
	case "call":
		w.onCall(n)
	case "assignment":
		w.onAssignment(n)
	case "return_statement":
		w.onReturn(n)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i))
	}
}

func (w *walker) onFunctionDef(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	name := ""
	if nameNode != nil {
		name = w.text(nameNode)
	}

	params := paramsJSON(n.ChildByFieldName("parameters"), w.src)
	endLine := int(n.EndPoint().Row) + 1

	w.facts.Symbols = append(w.facts.Symbols, model.Symbol{
		Path: w.file, Name: name, Kind: "function",
		Line: w.line(n), Col: int(n.StartPoint().Column),
		EndLine: endLine, ParametersJSON: params,
	})

	w.funcStack = append(w.funcStack, name)
	if body := n.ChildByFieldName("body"); body != nil {
		w.walk(body)
	}
	w.funcStack = w.funcStack[:len(w.funcStack)-1]
}

func (w *walker) onClassDef(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	name := ""
	if nameNode != nil {
		name = w.text(nameNode)
	}
	w.facts.Symbols = append(w.facts.Symbols, model.Symbol{
		Path: w.file, Name: name, Kind: "class",
		Line: w.line(n), Col: int(n.StartPoint().Column),
		EndLine: int(n.EndPoint().Row) + 1,
	})
	if body := n.ChildByFieldName("body"); body != nil {
		w.walk(body)
	}
}

func (w *walker) onCall(n *sitter.Node) {
	fnNode := n.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	callee := w.text(fnNode)
	argsNode := n.ChildByFieldName("arguments")
	if argsNode == nil {
		return
	}
	line := w.line(n)
	idx := 0
	for i := 0; i < int(argsNode.NamedChildCount()); i++ {
		arg := argsNode.NamedChild(i)
		w.facts.FunctionCallArgs = append(w.facts.FunctionCallArgs, model.FunctionCallArg{
			File: w.file, Line: line, CallerFunction: w.currentFunction(),
			CalleeFunction: callee, ArgumentIndex: idx, ArgumentExpr: w.text(arg),
			ParamName: genericParamName(idx),
		})
		idx++
	}
}

func (w *walker) onAssignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || right == nil {
		return
	}
	target := w.text(left)
	source := w.text(right)
	line := w.line(n)

	propertyPath := ""
	if left.Type() == "attribute" {
		propertyPath = target
	}

	w.facts.Assignments = append(w.facts.Assignments, model.Assignment{
		File: w.file, Line: line, TargetVar: target, SourceExpr: source,
		InFunction: w.currentFunction(), PropertyPath: propertyPath,
		SourceVars: collectIdentifiers(right, w.src),
	})
}

func (w *walker) onReturn(n *sitter.Node) {
	expr := ""
	if n.NamedChildCount() > 0 {
		expr = w.text(n.NamedChild(0))
	}
	w.facts.FunctionReturns = append(w.facts.FunctionReturns, model.FunctionReturn{
		File: w.file, Line: w.line(n), FunctionName: w.currentFunction(),
		ReturnExpr: expr, ReturnVars: collectIdentifiers(n, w.src),
	})
}

// collectIdentifiers walks n and returns the text of every "identifier"
// leaf beneath it, matching the spec's call for an explicit junction
// row per referenced variable rather than a single opaque expression.
// An "attribute" node's own attribute-name child ("f" in "y.f") is not
// a variable reference and is skipped; only its "object" child is
// descended into, so "y.f" contributes "y" alone, not "y" and "f".
func collectIdentifiers(n *sitter.Node, src []byte) []string {
	if n == nil {
		return nil
	}
	var out []string
	var visit func(*sitter.Node)
	visit = func(node *sitter.Node) {
		switch node.Type() {
		case "identifier":
			out = append(out, node.Content(src))
		case "attribute":
			if obj := node.ChildByFieldName("object"); obj != nil {
				visit(obj)
			}
		default:
			for i := 0; i < int(node.NamedChildCount()); i++ {
				visit(node.NamedChild(i))
			}
		}
	}
	visit(n)
	return out
}

// paramsJSON renders a parameters node as the ordered JSON array spec
// §3's parameters_json column documents: "{name, ...}" per parameter,
// in declared order.
func paramsJSON(n *sitter.Node, src []byte) string {
	if n == nil {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		name := p.Content(src)
		if nameNode := p.ChildByFieldName("name"); nameNode != nil {
			name = nameNode.Content(src)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`{"name":"`)
		b.WriteString(jsonEscape(name))
		b.WriteString(`"}`)
	}
	b.WriteByte(']')
	return b.String()
}

func jsonEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func genericParamName(index int) string {
	return "arg" + strconv.Itoa(index)
}
