//go:build cgo

package extract

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"routewatch/internal/endpoint"
)

// JavaScriptExtractor finds `<object>.<verb>('<path>', ...)` calls such as
// Express or Koa router registrations. The receiver is not resolved, so
// `app.get` and `router.get` are treated alike.
type JavaScriptExtractor struct {
	lang Language
}

// NewJavaScriptExtractor returns an extractor using the grammar for lang
// (javascript, typescript or tsx).
func NewJavaScriptExtractor(lang Language) *JavaScriptExtractor {
	return &JavaScriptExtractor{lang: lang}
}

// Extract implements Extractor.
func (x *JavaScriptExtractor) Extract(source []byte) []endpoint.Endpoint {
	root := parse(x.lang, source)
	if root == nil {
		return nil
	}

	var out []endpoint.Endpoint
	walk(root, func(n *sitter.Node) {
		if n.Type() != "call_expression" {
			return
		}
		if ep, ok := routeCall(n, source); ok {
			out = append(out, ep)
		}
	})
	return out
}

func routeCall(call *sitter.Node, source []byte) (endpoint.Endpoint, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return endpoint.Endpoint{}, false
	}
	prop := fn.ChildByFieldName("property")
	if prop == nil || prop.Type() != "property_identifier" {
		return endpoint.Endpoint{}, false
	}
	method, ok := endpoint.ParseHTTPMethod(prop.Content(source))
	if !ok {
		return endpoint.Endpoint{}, false
	}

	args := call.ChildByFieldName("arguments")
	if args == nil || args.Type() != "arguments" {
		return endpoint.Endpoint{}, false
	}
	list := namedArgs(args)
	if len(list) == 0 || list[0].Type() != "string" {
		return endpoint.Endpoint{}, false
	}
	path := quotedInner(list[0].Content(source))
	if path == "" {
		return endpoint.Endpoint{}, false
	}

	line, col := position(prop.StartPoint())
	return endpoint.Endpoint{
		Method:  method,
		Path:    path,
		Handler: fmt.Sprintf("%d:%d", line, col),
		Line:    line,
		Column:  col,
	}, true
}

// quotedInner strips one matching pair of quotes.
func quotedInner(s string) string {
	if len(s) < 2 {
		return ""
	}
	q := s[0]
	if (q != '\'' && q != '"') || s[len(s)-1] != q {
		return ""
	}
	return s[1 : len(s)-1]
}
