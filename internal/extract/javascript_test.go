//go:build cgo

package extract

import (
	"testing"

	"routewatch/internal/endpoint"
)

func TestJavaScriptExtractor_ExpressRoutes(t *testing.T) {
	src := `const express = require('express');
const router = express.Router();

router.get('/users', handler); router.post('/users', handler);
app.delete("/users/:id", (req, res) => res.sendStatus(204));
`
	eps := NewJavaScriptExtractor(LangJavaScript).Extract([]byte(src))
	if len(eps) != 3 {
		t.Fatalf("got %d endpoints, want 3: %+v", len(eps), eps)
	}

	if eps[0].Method != endpoint.GET || eps[0].Path != "/users" {
		t.Errorf("eps[0] = %+v", eps[0])
	}
	if eps[0].Line != 4 || eps[0].Column != 8 || eps[0].Handler != "4:8" {
		t.Errorf("eps[0] position = %d:%d handler %q, want 4:8", eps[0].Line, eps[0].Column, eps[0].Handler)
	}
	if eps[1].Method != endpoint.POST || eps[1].Path != "/users" {
		t.Errorf("eps[1] = %+v", eps[1])
	}
	if eps[2].Method != endpoint.DELETE || eps[2].Path != "/users/:id" || eps[2].Line != 5 {
		t.Errorf("eps[2] = %+v", eps[2])
	}
}

func TestJavaScriptExtractor_TwoRoutesSameLine(t *testing.T) {
	src := `router.get('/users', handler); router.post('/users', handler);`
	eps := NewJavaScriptExtractor(LangJavaScript).Extract([]byte(src))
	if len(eps) != 2 {
		t.Fatalf("got %d endpoints, want 2", len(eps))
	}
}

func TestJavaScriptExtractor_SkipsNonLiteralPaths(t *testing.T) {
	src := "app.get(`/users/${id}`, h);\n" +
		"app.get(base + '/x', h);\n" +
		"app.get(PATH, h);\n" +
		"app.get('', h);\n" +
		"app.use('/static', serve);\n" +
		"app.listen(3000);\n" +
		"get('/bare', h);\n"
	if eps := NewJavaScriptExtractor(LangJavaScript).Extract([]byte(src)); len(eps) != 0 {
		t.Errorf("expected no endpoints, got %+v", eps)
	}
}

func TestJavaScriptExtractor_UppercaseVerb(t *testing.T) {
	eps := NewJavaScriptExtractor(LangJavaScript).Extract([]byte(`api.PATCH('/items/:id', h)`))
	if len(eps) != 1 || eps[0].Method != endpoint.PATCH {
		t.Fatalf("got %+v, want one PATCH", eps)
	}
}

func TestJavaScriptExtractor_TypeScript(t *testing.T) {
	src := `import { Router, Request, Response } from 'express';

const router: Router = Router();

router.put('/orders/:id', async (req: Request, res: Response): Promise<void> => {
  res.json({ ok: true });
});

export default router;
`
	eps := NewJavaScriptExtractor(LangTypeScript).Extract([]byte(src))
	if len(eps) != 1 {
		t.Fatalf("got %d endpoints, want 1", len(eps))
	}
	if eps[0].Method != endpoint.PUT || eps[0].Path != "/orders/:id" || eps[0].Line != 5 {
		t.Errorf("eps[0] = %+v", eps[0])
	}
}

func TestJavaScriptExtractor_TSX(t *testing.T) {
	src := `const Page = () => <div>{label}</div>;
server.options('/health', (_req, res) => res.end());
`
	eps := NewJavaScriptExtractor(LangTSX).Extract([]byte(src))
	if len(eps) != 1 || eps[0].Method != endpoint.OPTIONS || eps[0].Line != 2 {
		t.Fatalf("got %+v", eps)
	}
}

func TestJavaScriptExtractor_MalformedInput(t *testing.T) {
	inputs := []string{
		"",
		"app.get('/users', ",
		"}}}{{{ ((( app.get(",
		"\x00\x01\x02",
	}
	x := NewJavaScriptExtractor(LangJavaScript)
	for _, in := range inputs {
		// Must not panic; partial input may or may not recover a route.
		for _, ep := range x.Extract([]byte(in)) {
			if ep.Path == "" || ep.Line < 1 {
				t.Errorf("Extract(%q) returned partial endpoint %+v", in, ep)
			}
		}
	}
}
