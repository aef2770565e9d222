// Package parser builds formula ASTs from ISLa source. It contains the
// surface lexer, the recursive-descent formula parser with its embedded
// S-expression and infix/prefix sub-parsers, and the match-expression
// sub-language.
package parser

import (
	"fmt"
	"io"

	verr "github.com/MaGaroo/isla/error"
	"github.com/MaGaroo/isla/formula"
	"github.com/MaGaroo/isla/grammar"
	"github.com/MaGaroo/isla/predicate"
	"github.com/MaGaroo/isla/smt"
)

// Parse reads one ISLa specification: an optional constant declaration
// followed by exactly one formula. Predicate names are resolved against the
// structural library and the given semantic registry; a nil registry means
// the built-in one.
func Parse(src io.Reader, g *grammar.Grammar, semantics *predicate.Registry) (*formula.Spec, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return ParseString(string(data), g, semantics)
}

func ParseString(src string, g *grammar.Grammar, semantics *predicate.Registry) (*formula.Spec, error) {
	if semantics == nil {
		semantics = predicate.DefaultRegistry()
	}
	p := &parser{
		lex:       newLexer(src),
		g:         g,
		semantics: semantics,
	}
	return p.parse()
}

type parser struct {
	lex       *lexer
	peekedTok *token
	pushback  *token
	lastTok   *token
	row       int
	col       int
	g         *grammar.Grammar
	semantics *predicate.Registry

	// xpaths accumulates the XPath references of the atom being parsed,
	// keyed by their placeholder spelling.
	xpaths map[string]*formula.XPath
}

func (p *parser) parse() (spec *formula.Spec, retErr error) {
	defer func() {
		err := recover()
		if err != nil {
			specErr, ok := err.(*verr.SpecError)
			if !ok {
				panic(fmt.Errorf("an unexpected error occurred: %v", err))
			}
			retErr = specErr
		}
	}()

	spec = &formula.Spec{
		ConstName: formula.DefaultConstName,
		ConstType: p.g.Start(),
	}
	if p.consume(tokenKindKWConst) {
		if !p.consume(tokenKindIdent) {
			p.raise(synErrNoConstName)
		}
		spec.ConstName = p.lastTok.text
		if !p.consume(tokenKindColon) {
			p.raise(synErrNoConstType)
		}
		if !p.consume(tokenKindNonTerminal) {
			p.raise(synErrNoConstType)
		}
		spec.ConstType = p.lastTok.text
		if !p.consume(tokenKindSemicolon) {
			p.raise(synErrNoConstSemicolon)
		}
		spec.ConstDeclared = true
	}

	spec.Root = p.parseFormula()
	if !p.consume(tokenKindEOF) {
		p.raise(synErrTrailingText)
	}
	return spec, nil
}

// Formula-level precedence, lowest binding first: iff, implies, xor, or,
// and, not, quantifier prefixes, atoms. A quantifier body after the colon
// extends maximally rightward.

func (p *parser) parseFormula() formula.Formula {
	return p.parseIff()
}

func (p *parser) parseIff() formula.Formula {
	left := p.parseImplies()
	for p.consume(tokenKindKWIff) {
		right := p.parseImplies()
		left = &formula.Binary{Op: formula.OpIff, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseImplies() formula.Formula {
	left := p.parseXor()
	if p.consume(tokenKindKWImplies) {
		right := p.parseImplies()
		return &formula.Binary{Op: formula.OpImplies, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseXor() formula.Formula {
	left := p.parseOr()
	for p.consume(tokenKindKWXor) {
		right := p.parseOr()
		left = &formula.Binary{Op: formula.OpXor, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseOr() formula.Formula {
	left := p.parseAnd()
	for p.consume(tokenKindKWOr) {
		right := p.parseAnd()
		left = &formula.Binary{Op: formula.OpOr, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseAnd() formula.Formula {
	left := p.parseNot()
	for p.consume(tokenKindKWAnd) {
		right := p.parseNot()
		left = &formula.Binary{Op: formula.OpAnd, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseNot() formula.Formula {
	if p.consume(tokenKindKWNot) {
		return &formula.Not{Operand: p.parseNot()}
	}
	return p.parseQuantified()
}

func (p *parser) parseQuantified() formula.Formula {
	switch {
	case p.consume(tokenKindKWForall):
		return p.parseQuantifierRest(true)
	case p.consume(tokenKindKWExists):
		return p.parseQuantifierRest(false)
	}
	return p.parsePrimary()
}

func (p *parser) parseQuantifierRest(universal bool) formula.Formula {
	if p.consume(tokenKindKWInt) {
		if !p.consume(tokenKindIdent) {
			p.raise(synErrNoIntBoundName)
		}
		name := p.lastTok.text
		if !p.consume(tokenKindColon) {
			p.raise(synErrNoColon)
		}
		return &formula.IntQuantifier{
			Universal: universal,
			BoundName: name,
			Body:      p.parseFormula(),
		}
	}

	if !p.consume(tokenKindNonTerminal) {
		p.raise(synErrNoBoundType)
	}
	q := &formula.Quantifier{
		Universal: universal,
		BoundType: p.lastTok.text,
	}
	if p.consume(tokenKindIdent) {
		q.BoundName = p.lastTok.text
	}
	if p.consumeOp("=") {
		if !p.consume(tokenKindString) {
			p.raise(synErrNoMatchExpr)
		}
		q.Match = p.parseMatchExpr(p.lastTok.text)
	}
	if p.consume(tokenKindKWIn) {
		if !p.consume(tokenKindIdent) {
			p.raise(synErrNoInTarget)
		}
		q.In = p.lastTok.text
	}
	if !p.consume(tokenKindColon) {
		p.raise(synErrNoColon)
	}
	q.Body = p.parseFormula()
	return q
}

func (p *parser) parsePrimary() formula.Formula {
	switch {
	case p.consume(tokenKindKWTrue):
		return p.newAtom(smt.NewSymbol("true"))
	case p.consume(tokenKindKWFalse):
		return p.newAtom(smt.NewSymbol("false"))
	case p.consume(tokenKindLParen):
		if p.peekSExprHead() {
			p.beginAtom()
			e := p.parseSExprList()
			e = p.parseInfixRest(e, 1)
			return p.finishAtom(e)
		}
		f := p.parseFormula()
		if !p.consume(tokenKindRParen) {
			p.raise(synErrUnclosedParen)
		}
		return f
	}

	if tok := p.peekToken(); tok.kind == tokenKindIdent {
		name := tok.text
		_, isOp := smt.LookupOperator(name)
		if !isOp && p.peekSecondIs(tokenKindLParen) {
			p.consume(tokenKindIdent)
			return p.parsePredicateCall(name)
		}
	}

	switch p.peekToken().kind {
	case tokenKindIdent, tokenKindNonTerminal, tokenKindInt, tokenKindString:
		p.beginAtom()
		e := p.parseSmtExpr(1)
		return p.finishAtom(e)
	}
	p.raise(synErrNoFormula)
	return nil
}

// peekSExprHead reports whether the token after an already-consumed ( opens
// an S-expression rather than a parenthesised formula: any SMT operator
// symbol, including the and, or and xor keywords. A parenthesised not is
// read as a formula negation.
func (p *parser) peekSExprHead() bool {
	tok := p.peekToken()
	switch tok.kind {
	case tokenKindOp:
		return true
	case tokenKindKWAnd, tokenKindKWOr, tokenKindKWXor:
		return true
	case tokenKindIdent:
		_, ok := smt.LookupOperator(tok.text)
		return ok
	}
	return false
}

func (p *parser) beginAtom() {
	p.xpaths = map[string]*formula.XPath{}
}

func (p *parser) finishAtom(e *smt.SExpr) *formula.SmtAtom {
	atom := &formula.SmtAtom{
		Expr:    e,
		FreeIDs: e.Symbols(),
		XPaths:  p.xpaths,
	}
	p.xpaths = nil
	return atom
}

func (p *parser) newAtom(e *smt.SExpr) *formula.SmtAtom {
	return &formula.SmtAtom{
		Expr:    e,
		FreeIDs: e.Symbols(),
		XPaths:  map[string]*formula.XPath{},
	}
}

// parseSExprList parses the interior of a parenthesised S-expression, the
// opening ( already consumed. The structure is preserved verbatim for the
// oracle.
func (p *parser) parseSExprList() *smt.SExpr {
	var elems []*smt.SExpr
	for {
		if p.consume(tokenKindRParen) {
			return smt.NewList(elems...)
		}
		if p.consume(tokenKindEOF) {
			p.raise(synErrUnclosedParen)
		}
		elems = append(elems, p.parseSExprElem())
	}
}

func (p *parser) parseSExprElem() *smt.SExpr {
	switch {
	case p.consume(tokenKindLParen):
		return p.parseSExprList()
	case p.consume(tokenKindInt):
		return smt.NewInt(p.lastTok.num)
	case p.consume(tokenKindString):
		return smt.NewString(p.lastTok.text)
	case p.consume(tokenKindOp):
		return smt.NewSymbol(p.lastTok.text)
	case p.consume(tokenKindKWAnd), p.consume(tokenKindKWOr), p.consume(tokenKindKWXor),
		p.consume(tokenKindKWNot), p.consume(tokenKindKWTrue), p.consume(tokenKindKWFalse):
		return smt.NewSymbol(string(p.lastTok.kind))
	case p.consume(tokenKindIdent):
		name := p.lastTok.text
		if p.peekXPathSegment() {
			return p.parseRef(name, false)
		}
		return smt.NewSymbol(name)
	case p.consume(tokenKindNonTerminal):
		typ := p.lastTok.text
		if p.peekXPathSegment() {
			return p.parseRef(typ, true)
		}
		return p.typeRefSymbol(typ)
	}
	p.raise(synErrUnexpectedToken)
	return nil
}

// parseSmtExpr parses an infix SMT expression with precedence climbing.
// Both infix chains and prefix calls normalise to the same S-expression
// representation as the parenthesised form.
func (p *parser) parseSmtExpr(minPrec int) *smt.SExpr {
	left := p.parseSmtOperand()
	return p.parseInfixRest(left, minPrec)
}

func (p *parser) parseInfixRest(left *smt.SExpr, minPrec int) *smt.SExpr {
	for {
		opText, ok := p.peekInfixOp()
		if !ok {
			return left
		}
		op, _ := smt.LookupOperator(opText)
		if op.InfixPrec < minPrec {
			return left
		}
		p.skipToken()
		right := p.parseSmtExpr(op.InfixPrec + 1)
		left = smt.NewCall(opText, left, right)
	}
}

func (p *parser) peekInfixOp() (string, bool) {
	tok := p.peekToken()
	var text string
	switch tok.kind {
	case tokenKindOp:
		text = tok.text
	case tokenKindIdent:
		text = tok.text
	default:
		return "", false
	}
	op, ok := smt.LookupOperator(text)
	if !ok || !op.Infix || op.InfixPrec == 0 {
		return "", false
	}
	return text, true
}

func (p *parser) parseSmtOperand() *smt.SExpr {
	switch {
	case p.consume(tokenKindInt):
		return smt.NewInt(p.lastTok.num)
	case p.consume(tokenKindString):
		return smt.NewString(p.lastTok.text)
	case p.consume(tokenKindLParen):
		return p.parseSExprList()
	case p.consume(tokenKindIdent):
		name := p.lastTok.text
		if op, ok := smt.LookupOperator(name); ok {
			if p.consume(tokenKindLParen) {
				return p.parsePrefixCall(name, op)
			}
			if op.Arity == 0 {
				return smt.NewSymbol(name)
			}
		}
		if p.peekXPathSegment() {
			return p.parseRef(name, false)
		}
		return smt.NewSymbol(name)
	case p.consume(tokenKindNonTerminal):
		typ := p.lastTok.text
		if p.peekXPathSegment() {
			return p.parseRef(typ, true)
		}
		return p.typeRefSymbol(typ)
	}
	p.raise(synErrNoOperand)
	return nil
}

// parsePrefixCall parses op(a, b, ...) and normalises it to (op a b ...).
func (p *parser) parsePrefixCall(name string, op smt.Operator) *smt.SExpr {
	var args []*smt.SExpr
	if !p.consume(tokenKindRParen) {
		for {
			args = append(args, p.parseSmtExpr(1))
			if p.consume(tokenKindComma) {
				continue
			}
			if !p.consume(tokenKindRParen) {
				p.raise(synErrUnclosedCall)
			}
			break
		}
	}
	if !op.AcceptsArity(len(args)) {
		p.raiseWithDetail(synErrArityMismatch, fmt.Sprintf("%v takes %v operands, got %v", name, op.Arity, len(args)))
	}
	return smt.NewCall(name, args...)
}

// typeRefSymbol records a bare non-terminal reference like <var> as the
// free identifier "<var>".
func (p *parser) typeRefSymbol(typ string) *smt.SExpr {
	return smt.NewSymbol("<" + typ + ">")
}

func (p *parser) peekXPathSegment() bool {
	k := p.peekToken().kind
	return k == tokenKindDot || k == tokenKindDotDot
}

// parseRef parses the segments of an XPath expression whose base has been
// consumed, registers the expression under its source spelling, and returns
// the placeholder symbol standing for it.
func (p *parser) parseRef(base string, baseIsType bool) *smt.SExpr {
	x := p.parseXPathSegments(base, baseIsType)
	placeholder := x.String()
	if p.xpaths != nil {
		p.xpaths[placeholder] = x
	}
	return smt.NewSymbol(placeholder)
}

func (p *parser) parseXPathSegments(base string, baseIsType bool) *formula.XPath {
	x := &formula.XPath{
		Base:       base,
		BaseIsType: baseIsType,
	}
	for {
		var descend bool
		switch {
		case p.consume(tokenKindDotDot):
			descend = true
		case p.consume(tokenKindDot):
		default:
			return x
		}
		if !p.consume(tokenKindNonTerminal) {
			p.raise(synErrNoSegmentType)
		}
		seg := formula.XPathSegment{
			Type:    p.lastTok.text,
			Descend: descend,
		}
		if p.consume(tokenKindLBracket) {
			if !p.consume(tokenKindInt) {
				p.raise(synErrNoIndex)
			}
			seg.Index = p.lastTok.num
			if !p.consume(tokenKindRBracket) {
				p.raise(synErrUnclosedIndex)
			}
		}
		x.Segments = append(x.Segments, seg)
	}
}

// parsePredicateCall parses name(arg, ...) for a name that is not an SMT
// operator. The name must resolve against the structural library or the
// semantic registry.
func (p *parser) parsePredicateCall(name string) formula.Formula {
	structPred, isStruct := predicate.LookupStructural(name)
	semPred, isSem := p.semantics.Lookup(name)
	if !isStruct && !isSem {
		p.raiseWithDetail(synErrUnknownPredicate, name)
	}

	if !p.consume(tokenKindLParen) {
		p.raise(synErrUnexpectedToken)
	}
	var args []*formula.Arg
	if !p.consume(tokenKindRParen) {
		for {
			args = append(args, p.parsePredArg())
			if p.consume(tokenKindComma) {
				continue
			}
			if !p.consume(tokenKindRParen) {
				p.raise(synErrUnclosedCall)
			}
			break
		}
	}

	if isStruct {
		if len(args) != structPred.Arity {
			p.raiseWithDetail(synErrArityMismatch, fmt.Sprintf("%v takes %v arguments, got %v", name, structPred.Arity, len(args)))
		}
		return &formula.StructPredAtom{Name: name, Args: args}
	}
	if len(args) != semPred.Arity {
		p.raiseWithDetail(synErrArityMismatch, fmt.Sprintf("%v takes %v arguments, got %v", name, semPred.Arity, len(args)))
	}
	return &formula.SemPredAtom{Name: name, Args: args}
}

func (p *parser) parsePredArg() *formula.Arg {
	switch {
	case p.consume(tokenKindInt):
		return formula.IntArg(p.lastTok.num)
	case p.consume(tokenKindString):
		return formula.StringArg(p.lastTok.text)
	case p.consume(tokenKindIdent):
		name := p.lastTok.text
		if p.peekXPathSegment() {
			return formula.XPathArg(p.parseXPathSegments(name, false))
		}
		return formula.VariableArg(name)
	case p.consume(tokenKindNonTerminal):
		typ := p.lastTok.text
		if p.peekXPathSegment() {
			return formula.XPathArg(p.parseXPathSegments(typ, true))
		}
		return formula.NonTerminalArg(typ)
	}
	p.raise(synErrUnexpectedToken)
	return nil
}

func (p *parser) raise(synErr *SyntaxError) {
	raiseSyntaxError(p.row, p.col, synErr)
}

func (p *parser) raiseWithDetail(synErr *SyntaxError, detail string) {
	panic(&verr.SpecError{
		Cause:  synErr,
		Detail: detail,
		Row:    p.row,
		Col:    p.col,
	})
}

func raiseSyntaxError(row, col int, synErr *SyntaxError) {
	panic(&verr.SpecError{
		Cause: synErr,
		Row:   row,
		Col:   col,
	})
}

func (p *parser) peekToken() *token {
	if p.peekedTok == nil {
		p.peekedTok = p.lex.next()
	}
	return p.peekedTok
}

// peekSecondIs reports whether the token after the peeked one has the given
// kind. It is needed in exactly one place: telling a predicate call
// name( ... ) from a bare variable reference.
func (p *parser) peekSecondIs(kind tokenKind) bool {
	first := p.peekToken()
	second := p.lex.next()
	// push back: re-queue the second token behind the first
	p.peekedTok = first
	p.pushback = second
	return second.kind == kind
}

func (p *parser) skipToken() {
	tok := p.peekToken()
	p.peekedTok = p.pushback
	p.pushback = nil
	p.lastTok = tok
	p.row = tok.row
	p.col = tok.col
}

func (p *parser) consume(expected tokenKind) bool {
	tok := p.peekToken()
	p.row = tok.row
	p.col = tok.col
	if tok.kind == tokenKindInvalid {
		p.raiseWithDetail(synErrInvalidToken, tok.text)
	}
	if tok.kind == expected {
		p.peekedTok = p.pushback
		p.pushback = nil
		p.lastTok = tok
		return true
	}
	return false
}

func (p *parser) consumeOp(text string) bool {
	tok := p.peekToken()
	if tok.kind == tokenKindOp && tok.text == text {
		return p.consume(tokenKindOp)
	}
	return false
}
