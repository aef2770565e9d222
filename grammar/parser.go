package grammar

import (
	"fmt"
	"io"
	"strings"

	verr "github.com/MaGaroo/isla/error"
)

// RuleNode is a single `<lhs> ::= alt | alt ;` definition as it appears in
// the source, before duplicate definitions are merged into the Grammar.
type RuleNode struct {
	LHS  string
	RHS  []*AlternativeNode
	Row  int
	Col  int
}

type AlternativeNode struct {
	Symbols []Symbol
	Row     int
	Col     int
}

func Parse(src io.Reader) (*Grammar, error) {
	p := newParser(src)
	root, err := p.parse()
	if err != nil {
		return nil, err
	}
	return build(root)
}

// ParseString is a convenience wrapper around Parse.
func ParseString(src string) (*Grammar, error) {
	return Parse(strings.NewReader(src))
}

type parser struct {
	lex       *lexer
	peekedTok *token
	lastTok   *token
	errs      verr.SpecErrors
	row       int
	col       int
}

func newParser(src io.Reader) *parser {
	return &parser{
		lex: newLexer(src),
	}
}

func (p *parser) parse() ([]*RuleNode, error) {
	rules := p.parseRules()
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return rules, nil
}

func (p *parser) parseRules() []*RuleNode {
	defer func() {
		err := recover()
		if err != nil {
			specErr, ok := err.(*verr.SpecError)
			if !ok {
				panic(fmt.Errorf("an unexpected error occurred: %v", err))
			}
			p.errs = append(p.errs, specErr)
		}
	}()

	var rules []*RuleNode
	for {
		if p.consume(tokenKindEOF) {
			break
		}
		rule := p.parseRule()
		if rule != nil {
			rules = append(rules, rule)
		}
	}
	return rules
}

func (p *parser) parseRule() *RuleNode {
	defer func() {
		err := recover()
		if err == nil {
			return
		}
		specErr, ok := err.(*verr.SpecError)
		if !ok {
			panic(err)
		}
		p.errs = append(p.errs, specErr)
		p.skipOverTo(tokenKindSemicolon)
	}()

	if p.consume(tokenKindDefOp) {
		raiseSyntaxError(p.row, p.col, synErrStrayDefOp)
	}
	if !p.consume(tokenKindNonTerminal) {
		raiseSyntaxError(p.row, p.col, synErrInvalidToken)
	}
	lhs := p.lastTok.text
	row := p.lastTok.row
	col := p.lastTok.col

	if !p.consume(tokenKindDefOp) {
		raiseSyntaxError(p.row, p.col, synErrNoDefOp)
	}

	alt := p.parseAlternative()
	rhs := []*AlternativeNode{alt}
	for {
		if !p.consume(tokenKindOr) {
			break
		}
		rhs = append(rhs, p.parseAlternative())
	}

	if !p.consume(tokenKindSemicolon) {
		raiseSyntaxError(p.row, p.col, synErrNoSemicolon)
	}

	return &RuleNode{
		LHS: lhs,
		RHS: rhs,
		Row: row,
		Col: col,
	}
}

func (p *parser) parseAlternative() *AlternativeNode {
	var syms []Symbol
	row := p.row
	col := p.col
	for {
		switch {
		case p.consume(tokenKindNonTerminal):
			syms = append(syms, NewNonTerminal(p.lastTok.text))
		case p.consume(tokenKindTerminal):
			syms = append(syms, NewTerminal(p.lastTok.text))
		default:
			if len(syms) == 0 {
				raiseSyntaxError(p.row, p.col, synErrEmptyAlt)
			}
			return &AlternativeNode{
				Symbols: syms,
				Row:     row,
				Col:     col,
			}
		}
		if len(syms) == 1 {
			row = p.lastTok.row
			col = p.lastTok.col
		}
	}
}

func (p *parser) consume(expected tokenKind) bool {
	var tok *token
	var err error
	if p.peekedTok != nil {
		tok = p.peekedTok
		p.peekedTok = nil
	} else {
		tok, err = p.lex.next()
		if err != nil {
			panic(err)
		}
	}
	p.row = tok.row
	p.col = tok.col
	if tok.kind == tokenKindInvalid {
		panic(&verr.SpecError{
			Cause:  synErrInvalidToken,
			Detail: tok.text,
			Row:    tok.row,
			Col:    tok.col,
		})
	}
	if tok.kind == expected {
		p.lastTok = tok
		return true
	}
	p.peekedTok = tok
	return false
}

func (p *parser) skip() {
	if p.peekedTok != nil {
		p.lastTok = p.peekedTok
		p.peekedTok = nil
		return
	}
	tok, err := p.lex.next()
	if err != nil {
		p.errs = append(p.errs, &verr.SpecError{
			Cause: err,
			Row:   p.row,
			Col:   p.col,
		})
		return
	}
	p.lastTok = tok
	p.row = tok.row
	p.col = tok.col
}

func (p *parser) skipOverTo(kind tokenKind) {
	for {
		if p.consume(kind) || p.consume(tokenKindEOF) {
			return
		}
		p.skip()
	}
}
