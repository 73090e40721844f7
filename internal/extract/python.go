//go:build cgo

package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"routewatch/internal/endpoint"
)

// PythonExtractor finds route decorators on function definitions.
//
// Two passes run over every `@<object>.<attr>(...)` decorator:
//
//  1. Flask style: the first positional argument is a string and either
//     attr is `route` or a `methods=[...]` keyword is present. One endpoint
//     per recognized method; no keyword or an empty list means GET.
//  2. FastAPI style: attr is an HTTP verb and the path string is the only
//     argument.
//
// The handler is the decorated function's name.
type PythonExtractor struct{}

// NewPythonExtractor returns a Python extractor.
func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{}
}

type pyDecorator struct {
	attr    *sitter.Node
	args    []*sitter.Node
	handler string
}

// Extract implements Extractor.
func (x *PythonExtractor) Extract(source []byte) []endpoint.Endpoint {
	root := parse(LangPython, source)
	if root == nil {
		return nil
	}

	var decorators []pyDecorator
	walk(root, func(n *sitter.Node) {
		if n.Type() == "decorated_definition" {
			decorators = append(decorators, routeDecorators(n, source)...)
		}
	})

	var out []endpoint.Endpoint
	for _, d := range decorators {
		out = append(out, flaskRoutes(d, source)...)
	}
	for _, d := range decorators {
		if ep, ok := verbRoute(d, source); ok {
			out = append(out, ep)
		}
	}
	return out
}

// routeDecorators collects attribute-call decorators of a decorated function.
func routeDecorators(def *sitter.Node, source []byte) []pyDecorator {
	fn := def.ChildByFieldName("definition")
	if fn == nil || fn.Type() != "function_definition" {
		return nil
	}
	name := fn.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	handler := name.Content(source)

	var out []pyDecorator
	for i := 0; i < int(def.NamedChildCount()); i++ {
		dec := def.NamedChild(i)
		if dec == nil || dec.Type() != "decorator" || dec.NamedChildCount() == 0 {
			continue
		}
		call := dec.NamedChild(0)
		if call.Type() != "call" {
			continue
		}
		target := call.ChildByFieldName("function")
		if target == nil || target.Type() != "attribute" {
			continue
		}
		attr := target.ChildByFieldName("attribute")
		args := call.ChildByFieldName("arguments")
		if attr == nil || args == nil || args.Type() != "argument_list" {
			continue
		}
		out = append(out, pyDecorator{attr: attr, args: namedArgs(args), handler: handler})
	}
	return out
}

func flaskRoutes(d pyDecorator, source []byte) []endpoint.Endpoint {
	var positional []*sitter.Node
	var methodsList *sitter.Node
	hasMethods := false
	for _, a := range d.args {
		if a.Type() != "keyword_argument" {
			positional = append(positional, a)
			continue
		}
		name := a.ChildByFieldName("name")
		if name == nil || name.Content(source) != "methods" {
			continue
		}
		hasMethods = true
		if v := a.ChildByFieldName("value"); v != nil && (v.Type() == "list" || v.Type() == "tuple") {
			methodsList = v
		}
	}
	if d.attr.Content(source) != "route" && !hasMethods {
		return nil
	}
	if len(positional) == 0 {
		return nil
	}
	path, pos, ok := pyString(positional[0], source)
	if !ok {
		return nil
	}
	line, col := position(pos)

	var methods []endpoint.HTTPMethod
	listed := 0
	if methodsList != nil {
		for _, item := range namedArgs(methodsList) {
			token, _, ok := pyString(item, source)
			if !ok {
				continue
			}
			listed++
			if m, ok := endpoint.ParseHTTPMethod(token); ok {
				methods = append(methods, m)
			}
		}
	}
	if listed == 0 {
		methods = []endpoint.HTTPMethod{endpoint.GET}
	}

	out := make([]endpoint.Endpoint, 0, len(methods))
	for _, m := range methods {
		out = append(out, endpoint.Endpoint{
			Method:  m,
			Path:    path,
			Handler: d.handler,
			Line:    line,
			Column:  col,
		})
	}
	return out
}

func verbRoute(d pyDecorator, source []byte) (endpoint.Endpoint, bool) {
	method, ok := endpoint.ParseHTTPMethod(d.attr.Content(source))
	if !ok || len(d.args) != 1 {
		return endpoint.Endpoint{}, false
	}
	path, _, ok := pyString(d.args[0], source)
	if !ok {
		return endpoint.Endpoint{}, false
	}
	line, col := position(d.attr.StartPoint())
	return endpoint.Endpoint{
		Method:  method,
		Path:    path,
		Handler: d.handler,
		Line:    line,
		Column:  col,
	}, true
}

// pyString returns the literal text of a plain (non f-string) string node
// and the position where that text starts.
func pyString(n *sitter.Node, source []byte) (string, sitter.Point, bool) {
	if n == nil || n.Type() != "string" {
		return "", sitter.Point{}, false
	}
	var start, end *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "interpolation":
			return "", sitter.Point{}, false
		case "string_start":
			start = c
		case "string_end":
			end = c
		}
	}
	if start == nil || end == nil {
		return "", sitter.Point{}, false
	}
	if strings.ContainsAny(strings.ToLower(start.Content(source)), "f") {
		return "", sitter.Point{}, false
	}
	value := string(source[start.EndByte():end.StartByte()])
	if value == "" {
		return "", sitter.Point{}, false
	}
	return value, start.EndPoint(), true
}
