package runtime

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/simserve/simserve/internal/mocknet"
	"github.com/simserve/simserve/internal/parser"
)

// deriveRoutes builds the simulated route table for decorator-annotated
// source. When a handler body ends in a literal return value we serve that
// value; otherwise the route gets a descriptive envelope.
func deriveRoutes(pr *parser.ParseResult) mocknet.RouteTable {
	table := make(mocknet.RouteTable, len(pr.Endpoints))
	for _, ep := range pr.Endpoints {
		if v, ok := returnLiteral(ep.Body); ok {
			table[ep.Route] = v
			continue
		}
		table[ep.Route] = map[string]any{
			"message": fmt.Sprintf("Response from %s", ep.Name),
			"handler": ep.Name,
		}
	}
	return table
}

// returnLiteral extracts the last return expression from a handler body and
// decodes it as JSON, tolerating Python single-quoted literals. Anything
// that is not a plain literal (a call, a variable) is skipped.
func returnLiteral(body string) (any, bool) {
	lines := strings.Split(body, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, "return ") {
			continue
		}
		expr := strings.TrimSpace(strings.TrimPrefix(trimmed, "return "))
		// Unwrap jsonify(...) so the inner literal is used as the payload.
		if strings.HasPrefix(expr, "jsonify(") && strings.HasSuffix(expr, ")") {
			expr = strings.TrimSuffix(strings.TrimPrefix(expr, "jsonify("), ")")
		}
		// Python's default quoting and keyword literals are not JSON;
		// literals with embedded apostrophes simply fall through to the
		// envelope.
		normalized := strings.ReplaceAll(expr, "'", `"`)
		normalized = pyBoolRe.ReplaceAllStringFunc(normalized, func(word string) string {
			switch word {
			case "True":
				return "true"
			case "False":
				return "false"
			default:
				return "null"
			}
		})
		var v any
		if err := json.Unmarshal([]byte(normalized), &v); err == nil {
			return v, true
		}
		return nil, false
	}
	return nil, false
}

var routeCallRe = regexp.MustCompile(`\.route\(\s*['"]([^'"]+)['"]`)

var pyBoolRe = regexp.MustCompile(`\b(True|False|None)\b`)

// cannedPages are payloads for the routes every conventional sample app in
// the learning environment ships with.
var cannedPages = map[string]any{
	"/": map[string]any{
		"message": "Welcome to the home page",
		"page":    "home",
	},
	"/about": map[string]any{
		"page":  "about",
		"title": "About Us",
	},
	"/contact": map[string]any{
		"page":  "contact",
		"email": "hello@example.com",
	},
}

// conventionalRoutes extracts route registrations from an already-written
// Flask module so simulation can answer the same paths the real server
// would.
func conventionalRoutes(source string) mocknet.RouteTable {
	table := mocknet.RouteTable{}
	for _, m := range routeCallRe.FindAllStringSubmatch(source, -1) {
		path := m[1]
		if canned, ok := cannedPages[path]; ok {
			table[path] = canned
			continue
		}
		table[path] = map[string]any{
			"message": fmt.Sprintf("Simulated response for %s", path),
			"path":    path,
		}
	}
	return table
}
