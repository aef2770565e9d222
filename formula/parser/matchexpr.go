package parser

import (
	"strings"

	verr "github.com/MaGaroo/isla/error"
	"github.com/MaGaroo/isla/formula"
)

// The match-expression sub-language is lexed in three modes: default emits
// raw text up to the next { or [, var-decl recognises <type> and identifier
// between { and }, and optional emits raw text between [ and ]. Newlines in
// default mode are stripped so multi-line match expressions concatenate.

// parseMatchExpr parses the decoded content of a quantifier's match
// expression string.
func (p *parser) parseMatchExpr(src string) *formula.MatchExpr {
	m := &matchParser{
		src:   []rune(src),
		row:   p.row,
		col:   p.col,
		names: map[string]struct{}{},
	}
	elems := m.parse()
	return formula.NewMatchExpr(src, elems)
}

type matchParser struct {
	src   []rune
	pos   int
	row   int
	col   int
	names map[string]struct{}
}

func (m *matchParser) raise(synErr *SyntaxError, detail string) {
	panic(&verr.SpecError{
		Cause:  synErr,
		Detail: detail,
		Row:    m.row,
		Col:    m.col,
	})
}

func (m *matchParser) eof() bool {
	return m.pos >= len(m.src)
}

func (m *matchParser) parse() []formula.MatchElement {
	var elems []formula.MatchElement
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			elems = append(elems, &formula.MatchText{Text: text.String()})
			text.Reset()
		}
	}
	for !m.eof() {
		c := m.src[m.pos]
		switch c {
		case '{':
			flush()
			m.pos++
			elems = append(elems, m.parseBind())
		case '[':
			flush()
			m.pos++
			elems = append(elems, m.parseOptional())
		case '\n':
			m.pos++
		default:
			text.WriteRune(c)
			m.pos++
		}
	}
	flush()
	return elems
}

func (m *matchParser) parseBind() *formula.MatchBind {
	m.skipSpaces()
	if m.eof() || m.src[m.pos] != '<' {
		m.raise(synErrMatchNoVarType, "")
	}
	m.pos++
	var typ strings.Builder
	for {
		if m.eof() {
			m.raise(synErrMatchUnclosedVar, "")
		}
		c := m.src[m.pos]
		m.pos++
		if c == '>' {
			break
		}
		if c == '<' || c == '}' {
			m.raise(synErrMatchNoVarType, "")
		}
		typ.WriteRune(c)
	}
	if typ.Len() == 0 {
		m.raise(synErrMatchNoVarType, "")
	}

	m.skipSpaces()
	var name strings.Builder
	for !m.eof() {
		c := m.src[m.pos]
		if c == '}' || c == ' ' || c == '\t' || c == '\n' {
			break
		}
		name.WriteRune(c)
		m.pos++
	}
	if name.Len() == 0 {
		m.raise(synErrMatchNoVarName, "")
	}
	m.skipSpaces()
	if m.eof() || m.src[m.pos] != '}' {
		m.raise(synErrMatchUnclosedVar, "")
	}
	m.pos++

	if _, dup := m.names[name.String()]; dup {
		m.raise(synErrMatchDuplicateName, name.String())
	}
	m.names[name.String()] = struct{}{}

	return &formula.MatchBind{
		Type: typ.String(),
		Name: name.String(),
	}
}

func (m *matchParser) parseOptional() *formula.MatchOptional {
	var text strings.Builder
	for {
		if m.eof() {
			m.raise(synErrMatchUnclosedOptional, "")
		}
		c := m.src[m.pos]
		m.pos++
		if c == ']' {
			break
		}
		text.WriteRune(c)
	}
	return &formula.MatchOptional{
		Elements: []formula.MatchElement{
			&formula.MatchText{Text: text.String()},
		},
	}
}

func (m *matchParser) skipSpaces() {
	for !m.eof() {
		c := m.src[m.pos]
		if c == ' ' || c == '\t' || c == '\n' {
			m.pos++
			continue
		}
		break
	}
}
