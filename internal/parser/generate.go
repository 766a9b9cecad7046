package parser

import (
	"fmt"
	"strings"
)

const flaskPreamble = `from flask import Flask, jsonify, request

app = Flask(__name__)
`

const flaskTrailer = `if __name__ == '__main__':
    app.run(host='0.0.0.0', port=5000)
`

// GenerateFlaskApp renders a ParseResult as a conventional Flask server
// module: a fixed preamble, each helper routine verbatim, one route
// registration per endpoint, and a fixed trailer. The function is
// deterministic and pure; output order follows parse order.
//
// Known limitation: HTTP methods captured at parse time are not propagated
// into the generated @app.route registration, so generated routes answer
// Flask's default method set.
func GenerateFlaskApp(pr *ParseResult) string {
	if pr == nil {
		pr = &ParseResult{}
	}

	var b strings.Builder
	b.WriteString(flaskPreamble)
	b.WriteString("\n")

	for _, h := range pr.Helpers {
		b.WriteString(h.Body)
		b.WriteString("\n\n")
	}

	for _, ep := range pr.Endpoints {
		fmt.Fprintf(&b, "@app.route('%s')\n", ep.Route)
		fmt.Fprintf(&b, "def %s(%s):\n", ep.Name, renderParams(ep.Parameters))
		for _, line := range functionBodyLines(ep.Body) {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(flaskTrailer)
	return b.String()
}

// functionBodyLines strips the original def line from a captured function
// text and re-indents the remainder one level.
func functionBodyLines(body string) []string {
	lines := strings.Split(body, "\n")
	if len(lines) <= 1 {
		return []string{"    pass"}
	}
	defIndent := leadingWhitespace(lines[0])

	out := make([]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			out = append(out, "")
			continue
		}
		out = append(out, strings.TrimPrefix(line, defIndent))
	}
	return out
}

func leadingWhitespace(line string) string {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}
	return line
}

// renderParams renders a parameter list back to source form.
func renderParams(params []Parameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		switch p.Kind {
		case ParamDefaulted:
			parts = append(parts, fmt.Sprintf("%s=%s", p.Name, p.DefaultValue))
		case ParamVarPositional:
			parts = append(parts, "*"+p.Name)
		case ParamVarKeyword:
			parts = append(parts, "**"+p.Name)
		default:
			parts = append(parts, p.Name)
		}
	}
	return strings.Join(parts, ", ")
}
