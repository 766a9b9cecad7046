package parser

import (
	"fmt"
	"strings"
)

// Decorator heads the scanner recognizes. "app.route" is accepted alongside
// "endpoint" so that regenerated Flask modules re-parse to the same set of
// endpoints.
var decoratorHeads = map[string]struct{}{
	"endpoint":  {},
	"app.route": {},
}

// decorator is the parsed form of one recognized decorator line.
type decorator struct {
	route   string
	methods []string
}

// Parse converts decorator-annotated source into a ParseResult. It scans line
// by line: a recognized decorator applies to the next function definition, an
// undecorated function becomes a helper routine, and indentation closes
// function bodies (the final function closes implicitly at end of input).
//
// Parse never fails. Lines that start with a recognized decorator head but do
// not match the grammar fall through as plain text and are recorded on
// ParseResult.Diagnostics.
func Parse(source string) *ParseResult {
	res := &ParseResult{}
	lines := strings.Split(source, "\n")

	var pending *decorator
	i := 0
	for i < len(lines) {
		line := strings.TrimRight(lines[i], "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			i++
			continue
		}

		if strings.HasPrefix(trimmed, "@") {
			dec, recognized, err := parseDecoratorLine(trimmed)
			if err != nil && recognized {
				res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("line %d: %v", i+1, err))
			}
			if dec != nil {
				// A later decorator replaces an unconsumed earlier one.
				pending = dec
			}
			i++
			continue
		}

		if name, params, ok := parseDefLine(line); ok {
			indent := indentWidth(line)
			body := []string{line}
			i++
			for i < len(lines) {
				next := strings.TrimRight(lines[i], "\r")
				if strings.TrimSpace(next) == "" {
					body = append(body, next)
					i++
					continue
				}
				if indentWidth(next) <= indent {
					// Closes the function; re-scanned as the next declaration.
					break
				}
				body = append(body, next)
				i++
			}
			for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
				body = body[:len(body)-1]
			}
			text := strings.Join(body, "\n")

			if pending != nil {
				res.Endpoints = append(res.Endpoints, Endpoint{
					Name:       name,
					Route:      pending.route,
					Methods:    pending.methods,
					Parameters: params,
					Body:       text,
				})
				pending = nil
			} else {
				res.Helpers = append(res.Helpers, HelperRoutine{
					Name:       name,
					Parameters: params,
					Body:       text,
				})
			}
			continue
		}

		// Ordinary unrecognized text.
		i++
	}

	return res
}

// parseDecoratorLine parses a line whose trimmed form starts with "@".
// recognized reports whether the decorator head is one the runtime owns;
// unrecognized decorators (e.g. @staticmethod) return (nil, false, nil) and
// fall through silently.
func parseDecoratorLine(trimmed string) (dec *decorator, recognized bool, err error) {
	lx := newLexer(trimmed)

	if tok := lx.next(); tok.kind != tokPunct || tok.text != "@" {
		return nil, false, nil
	}
	head, ok := lx.dottedIdent()
	if !ok {
		return nil, false, nil
	}
	if _, ours := decoratorHeads[head]; !ours {
		return nil, false, nil
	}

	if tok := lx.next(); tok.kind != tokPunct || tok.text != "(" {
		return nil, true, fmt.Errorf("@%s: missing argument list", head)
	}

	routeTok := lx.next()
	if routeTok.kind != tokString {
		return nil, true, fmt.Errorf("@%s: route must be a string literal", head)
	}
	route := routeTok.text

	methods := []string{"GET"}
	tok := lx.next()
	if tok.kind == tokPunct && tok.text == "," {
		var perr error
		methods, perr = parseMethodsArg(lx, head)
		if perr != nil {
			return nil, true, perr
		}
		tok = lx.next()
	}
	if tok.kind != tokPunct || tok.text != ")" {
		return nil, true, fmt.Errorf("@%s: unterminated argument list", head)
	}
	if tok := lx.next(); tok.kind != tokEOF {
		return nil, true, fmt.Errorf("@%s: unexpected trailing %q", head, tok.text)
	}

	return &decorator{route: route, methods: methods}, true, nil
}

// parseMethodsArg parses `methods=[...]` after the route argument. Each list
// element is a string literal naming one HTTP method.
func parseMethodsArg(lx *lexer, head string) ([]string, error) {
	if tok := lx.next(); tok.kind != tokIdent || tok.text != "methods" {
		return nil, fmt.Errorf("@%s: expected methods= keyword argument", head)
	}
	if tok := lx.next(); tok.kind != tokPunct || tok.text != "=" {
		return nil, fmt.Errorf("@%s: expected = after methods", head)
	}
	if tok := lx.next(); tok.kind != tokPunct || tok.text != "[" {
		return nil, fmt.Errorf("@%s: methods must be a list", head)
	}

	var methods []string
	seen := map[string]struct{}{}
	for {
		tok := lx.next()
		if tok.kind == tokPunct && tok.text == "]" {
			break
		}
		if tok.kind != tokString {
			return nil, fmt.Errorf("@%s: method names must be string literals", head)
		}
		m := strings.ToUpper(strings.TrimSpace(tok.text))
		if m != "" {
			if _, dup := seen[m]; !dup {
				seen[m] = struct{}{}
				methods = append(methods, m)
			}
		}
		tok = lx.next()
		if tok.kind == tokPunct && tok.text == "]" {
			break
		}
		if tok.kind != tokPunct || tok.text != "," {
			return nil, fmt.Errorf("@%s: malformed methods list", head)
		}
	}
	if len(methods) == 0 {
		methods = []string{"GET"}
	}
	return methods, nil
}

// parseDefLine recognizes `def name(params):` and classifies the parameter
// list. Splitting happens on top-level commas only; default expressions that
// themselves contain top-level commas are an acknowledged simplification, not
// general expression parsing.
func parseDefLine(line string) (name string, params []Parameter, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "def ") {
		return "", nil, false
	}
	rest := strings.TrimSpace(trimmed[len("def "):])
	open := strings.IndexByte(rest, '(')
	if open <= 0 {
		return "", nil, false
	}
	name = strings.TrimSpace(rest[:open])
	if !isIdentifier(name) {
		return "", nil, false
	}
	closeIdx := matchParen(rest, open)
	if closeIdx < 0 {
		return "", nil, false
	}
	tail := strings.TrimSpace(rest[closeIdx+1:])
	if !strings.HasPrefix(tail, ":") {
		return "", nil, false
	}

	inner := rest[open+1 : closeIdx]
	seenStar := false
	seenDoubleStar := false
	for _, tok := range splitTopLevel(inner) {
		p, valid := classifyParam(tok)
		if !valid {
			continue
		}
		switch p.Kind {
		case ParamVarPositional:
			if seenStar {
				continue
			}
			seenStar = true
		case ParamVarKeyword:
			if seenDoubleStar {
				continue
			}
			seenDoubleStar = true
		}
		params = append(params, p)
	}
	return name, params, true
}

// classifyParam turns one comma-delimited token into a Parameter.
func classifyParam(tok string) (Parameter, bool) {
	tok = strings.TrimSpace(tok)
	if tok == "" || tok == "*" || tok == "/" {
		// Bare separators carry no parameter of their own.
		return Parameter{}, false
	}

	if strings.HasPrefix(tok, "**") {
		name := strings.TrimSpace(tok[2:])
		name = stripAnnotation(name)
		if name == "" {
			return Parameter{}, false
		}
		return Parameter{Name: name, Kind: ParamVarKeyword}, true
	}
	if strings.HasPrefix(tok, "*") {
		name := strings.TrimSpace(tok[1:])
		name = stripAnnotation(name)
		if name == "" {
			return Parameter{}, false
		}
		return Parameter{Name: name, Kind: ParamVarPositional}, true
	}

	if eq := indexTopLevel(tok, '='); eq >= 0 {
		name := stripAnnotation(strings.TrimSpace(tok[:eq]))
		value := strings.TrimSpace(tok[eq+1:])
		if name == "" {
			return Parameter{}, false
		}
		return Parameter{Name: name, Kind: ParamDefaulted, DefaultValue: value}, true
	}

	name := stripAnnotation(tok)
	if name == "" {
		return Parameter{}, false
	}
	return Parameter{Name: name, Kind: ParamRequired}, true
}

// stripAnnotation drops a `: type` annotation from a parameter name.
func stripAnnotation(tok string) string {
	if idx := strings.IndexByte(tok, ':'); idx >= 0 {
		tok = tok[:idx]
	}
	return strings.TrimSpace(tok)
}

// splitTopLevel splits s on commas that are not nested inside brackets or
// string literals.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
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
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if strings.TrimSpace(s[start:]) != "" || len(parts) > 0 {
		parts = append(parts, s[start:])
	}
	return parts
}

// indexTopLevel returns the index of the first occurrence of c outside
// brackets and string literals, or -1.
func indexTopLevel(s string, c byte) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if ch == c && depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchParen returns the index of the parenthesis closing s[open], honoring
// nesting and string literals, or -1.
func matchParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// indentWidth counts leading whitespace, expanding tabs to four columns.
func indentWidth(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		digit := r >= '0' && r <= '9'
		if i == 0 && !alpha {
			return false
		}
		if !alpha && !digit {
			return false
		}
	}
	return true
}
