//go:build cgo

package extract

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Available reports whether the tree-sitter extractors are compiled in.
func Available() bool {
	return true
}

func grammar(lang Language) *sitter.Language {
	switch lang {
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	default:
		return nil
	}
}

// parse builds a syntax tree with a fresh parser so callers never share one.
func parse(lang Language, source []byte) *sitter.Node {
	g := grammar(lang)
	if g == nil {
		return nil
	}
	parser := sitter.NewParser()
	parser.SetLanguage(g)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil || tree == nil {
		return nil
	}
	return tree.RootNode()
}

// walk visits n and its named descendants depth-first in source order.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

// namedArgs returns the named children of an argument list, skipping comments.
func namedArgs(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// position converts a tree-sitter point to 1-based line and column.
func position(p sitter.Point) (line, column int) {
	return int(p.Row) + 1, int(p.Column) + 1
}
