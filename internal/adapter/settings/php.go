package settings

import (
	"strconv"
	"strings"
)

// The reader understands a tiny subset of PHP: assignments to $databases
// whose right-hand side is a literal. Everything else is skipped unread.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokVariable
	tokString
	tokNumber
	tokIdent
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

func lex(src string) []token {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case strings.HasPrefix(src[i:], "<?php"):
			i += len("<?php")
		case strings.HasPrefix(src[i:], "?>"):
			i += 2
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '#' || strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
			} else {
				i += end + 4
			}
		case c == '\'':
			s, n := singleQuoted(src[i:])
			toks = append(toks, token{tokString, s})
			i += n
		case c == '"':
			s, n := doubleQuoted(src[i:])
			toks = append(toks, token{tokString, s})
			i += n
		case c == '$':
			j := i + 1
			for j < len(src) && isIdentByte(src[j]) {
				j++
			}
			toks = append(toks, token{tokVariable, src[i:j]})
			i = j
		case c >= '0' && c <= '9':
			j := i
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, src[i:j]})
			i = j
		case isIdentByte(c) || c == '\\':
			j := i
			for j < len(src) && (isIdentByte(src[j]) || src[j] == '\\') {
				j++
			}
			toks = append(toks, token{tokIdent, src[i:j]})
			i = j
		case strings.HasPrefix(src[i:], "=>"):
			toks = append(toks, token{tokPunct, "=>"})
			i += 2
		default:
			toks = append(toks, token{tokPunct, string(c)})
			i++
		}
	}
	return append(toks, token{kind: tokEOF})
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}

// singleQuoted decodes a '...' literal starting at s[0] and returns the value
// and the number of bytes consumed.
func singleQuoted(s string) (string, int) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) && (s[i+1] == '\'' || s[i+1] == '\\') {
			b.WriteByte(s[i+1])
			i += 2
			continue
		}
		if c == '\'' {
			return b.String(), i + 1
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), i
}

func doubleQuoted(s string) (string, int) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '"', '$':
				b.WriteByte(s[i+1])
			default:
				b.WriteByte('\\')
				b.WriteByte(s[i+1])
			}
			i += 2
			continue
		}
		if c == '"' {
			return b.String(), i + 1
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), i
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(punct string) bool {
	if t := p.peek(); t.kind == tokPunct && t.text == punct {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipStatement() {
	for {
		t := p.next()
		if t.kind == tokEOF || t.kind == tokPunct && t.text == ";" {
			return
		}
	}
}

// parseVariable replays every literal assignment to name and returns the
// resulting value, nil when the variable is never assigned.
func parseVariable(src, name string) interface{} {
	p := &parser{toks: lex(src)}
	var root interface{}
	for p.peek().kind != tokEOF {
		t := p.next()
		if t.kind != tokVariable || t.text != name {
			continue
		}
		start := p.pos
		path, value, ok := p.assignment()
		if !ok {
			p.pos = start
			p.skipStatement()
			continue
		}
		root = assign(root, path, value)
	}
	return root
}

func (p *parser) assignment() ([]string, interface{}, bool) {
	var path []string
	for p.accept("[") {
		key, ok := p.scalar()
		if !ok || !p.accept("]") {
			return nil, nil, false
		}
		path = append(path, key)
	}
	if !p.accept("=") {
		return nil, nil, false
	}
	value, ok := p.value()
	if !ok {
		return nil, nil, false
	}
	if !p.accept(";") && p.peek().kind != tokEOF {
		return nil, nil, false
	}
	return path, value, true
}

func (p *parser) scalar() (string, bool) {
	t := p.next()
	switch t.kind {
	case tokString, tokNumber:
		return t.text, true
	case tokPunct:
		if t.text == "-" && p.peek().kind == tokNumber {
			return "-" + p.next().text, true
		}
	}
	return "", false
}

func (p *parser) value() (interface{}, bool) {
	t := p.peek()
	switch {
	case t.kind == tokString || t.kind == tokNumber || t.kind == tokPunct && t.text == "-":
		return p.scalar()
	case t.kind == tokPunct && t.text == "[":
		p.next()
		return p.array("]")
	case t.kind == tokIdent:
		p.next()
		switch strings.ToLower(t.text) {
		case "array":
			if !p.accept("(") {
				return nil, false
			}
			return p.array(")")
		case "true":
			return "1", true
		case "false", "null":
			return "", true
		}
	}
	return nil, false
}

func (p *parser) array(closer string) (interface{}, bool) {
	m := map[string]interface{}{}
	index := 0
	for !p.accept(closer) {
		first, ok := p.value()
		if !ok {
			return nil, false
		}
		if p.accept("=>") {
			key, isScalar := first.(string)
			if !isScalar {
				return nil, false
			}
			val, ok := p.value()
			if !ok {
				return nil, false
			}
			m[key] = val
			if n, err := strconv.Atoi(key); err == nil && n >= index {
				index = n + 1
			}
		} else {
			m[strconv.Itoa(index)] = first
			index++
		}
		if !p.accept(",") && !(p.peek().kind == tokPunct && p.peek().text == closer) {
			return nil, false
		}
	}
	return m, true
}

func assign(root interface{}, path []string, value interface{}) interface{} {
	if len(path) == 0 {
		return value
	}
	m, ok := root.(map[string]interface{})
	if !ok {
		m = map[string]interface{}{}
	}
	m[path[0]] = assign(m[path[0]], path[1:], value)
	return m
}
