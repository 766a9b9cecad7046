package parser

import "strings"

// A minimal tokenizer for decorator lines. The grammar is tiny (identifiers,
// string literals, and punctuation), so the lexer stays deliberately small.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokPunct
	tokInvalid
)

type token struct {
	kind tokenKind
	text string
}

type lexer struct {
	s   string
	pos int
}

func newLexer(s string) *lexer {
	return &lexer{s: s}
}

func (lx *lexer) next() token {
	lx.skipSpace()
	if lx.pos >= len(lx.s) {
		return token{kind: tokEOF}
	}
	c := lx.s[lx.pos]

	switch {
	case c == '\'' || c == '"':
		return lx.lexString(c)
	case isIdentByte(c):
		start := lx.pos
		for lx.pos < len(lx.s) && isIdentByte(lx.s[lx.pos]) {
			lx.pos++
		}
		return token{kind: tokIdent, text: lx.s[start:lx.pos]}
	case strings.IndexByte("@()[]=,.", c) >= 0:
		lx.pos++
		return token{kind: tokPunct, text: string(c)}
	default:
		lx.pos++
		return token{kind: tokInvalid, text: string(c)}
	}
}

// peek returns the next token without consuming it.
func (lx *lexer) peek() token {
	saved := lx.pos
	tok := lx.next()
	lx.pos = saved
	return tok
}

// dottedIdent consumes an identifier optionally joined by dots, e.g.
// "endpoint" or "app.route".
func (lx *lexer) dottedIdent() (string, bool) {
	tok := lx.next()
	if tok.kind != tokIdent {
		return "", false
	}
	name := tok.text
	for {
		if p := lx.peek(); p.kind != tokPunct || p.text != "." {
			return name, true
		}
		lx.next() // consume the dot
		part := lx.next()
		if part.kind != tokIdent {
			return "", false
		}
		name += "." + part.text
	}
}

func (lx *lexer) lexString(quote byte) token {
	lx.pos++ // opening quote
	start := lx.pos
	for lx.pos < len(lx.s) {
		c := lx.s[lx.pos]
		if c == '\\' && lx.pos+1 < len(lx.s) {
			lx.pos += 2
			continue
		}
		if c == quote {
			text := lx.s[start:lx.pos]
			lx.pos++
			return token{kind: tokString, text: text}
		}
		lx.pos++
	}
	return token{kind: tokInvalid, text: lx.s[start:]}
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.s) && (lx.s[lx.pos] == ' ' || lx.s[lx.pos] == '\t') {
		lx.pos++
	}
}

func isIdentByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
