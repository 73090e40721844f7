package extract

import (
	"regexp"
	"strings"

	"routewatch/internal/endpoint"
)

// phpRoutePattern matches the head of a Laravel facade call up to the
// comma after the path literal. The handler is read by scanning the rest
// of the line.
const phpRoutePattern = `Route::((?i:get|post|put|delete|patch|options|head|any|match|resource|apiResource))\s*\(\s*(?:'([^'"]*)'|"([^'"]*)")\s*,`

// PHPExtractor scans PHP source line by line for `Route::<verb>('<path>', <handler>)`.
// It is a regex scan, not a parse: handlers spanning several lines are cut
// at the end of the first line.
type PHPExtractor struct {
	re *regexp.Regexp
}

// NewPHPExtractor compiles the route pattern.
func NewPHPExtractor() (*PHPExtractor, error) {
	re, err := regexp.Compile(phpRoutePattern)
	if err != nil {
		return nil, err
	}
	return &PHPExtractor{re: re}, nil
}

// Extract implements Extractor.
func (x *PHPExtractor) Extract(source []byte) []endpoint.Endpoint {
	var out []endpoint.Endpoint
	for i, line := range strings.Split(string(source), "\n") {
		line = strings.TrimSuffix(line, "\r")
		for _, m := range x.re.FindAllStringSubmatchIndex(line, -1) {
			path := ""
			switch {
			case m[4] >= 0:
				path = line[m[4]:m[5]]
			case m[6] >= 0:
				path = line[m[6]:m[7]]
			}
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			out = append(out, endpoint.Endpoint{
				Method:  phpMethod(line[m[2]:m[3]]),
				Path:    path,
				Handler: phpHandler(line[m[1]:]),
				Line:    i + 1,
				Column:  m[2] + 1,
			})
		}
	}
	return out
}

// phpMethod folds Laravel's multi-verb helpers to GET.
func phpMethod(token string) endpoint.HTTPMethod {
	if m, ok := endpoint.ParseHTTPMethod(token); ok {
		return m
	}
	return endpoint.GET
}

// phpHandler returns the text up to the parenthesis that closes the Route
// call, or the rest of the line when it does not close on this line.
// Parentheses inside quoted strings are ignored.
func phpHandler(rest string) string {
	depth := 0
	var quote byte
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				if c == ')' {
					return strings.TrimSpace(rest[:i])
				}
				continue
			}
			depth--
		}
	}
	return strings.TrimSpace(rest)
}
