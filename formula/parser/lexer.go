package parser

import (
	"strconv"
	"strings"

	verr "github.com/MaGaroo/isla/error"
)

type tokenKind string

const (
	tokenKindIdent       = tokenKind("identifier")
	tokenKindInt         = tokenKind("integer")
	tokenKindString      = tokenKind("string")
	tokenKindNonTerminal = tokenKind("non-terminal")
	tokenKindOp          = tokenKind("operator")
	tokenKindLParen      = tokenKind("(")
	tokenKindRParen      = tokenKind(")")
	tokenKindLBracket    = tokenKind("[")
	tokenKindRBracket    = tokenKind("]")
	tokenKindComma       = tokenKind(",")
	tokenKindColon       = tokenKind(":")
	tokenKindSemicolon   = tokenKind(";")
	tokenKindDot         = tokenKind(".")
	tokenKindDotDot      = tokenKind("..")
	tokenKindKWConst     = tokenKind("const")
	tokenKindKWForall    = tokenKind("forall")
	tokenKindKWExists    = tokenKind("exists")
	tokenKindKWIn        = tokenKind("in")
	tokenKindKWInt       = tokenKind("int")
	tokenKindKWNot       = tokenKind("not")
	tokenKindKWAnd       = tokenKind("and")
	tokenKindKWOr        = tokenKind("or")
	tokenKindKWXor       = tokenKind("xor")
	tokenKindKWImplies   = tokenKind("implies")
	tokenKindKWIff       = tokenKind("iff")
	tokenKindKWTrue      = tokenKind("true")
	tokenKindKWFalse     = tokenKind("false")
	tokenKindEOF         = tokenKind("eof")
	tokenKindInvalid     = tokenKind("invalid")
)

var keywords = map[string]tokenKind{
	"const":   tokenKindKWConst,
	"forall":  tokenKindKWForall,
	"exists":  tokenKindKWExists,
	"in":      tokenKindKWIn,
	"int":     tokenKindKWInt,
	"not":     tokenKindKWNot,
	"and":     tokenKindKWAnd,
	"or":      tokenKindKWOr,
	"xor":     tokenKindKWXor,
	"implies": tokenKindKWImplies,
	"iff":     tokenKindKWIff,
	"true":    tokenKindKWTrue,
	"false":   tokenKindKWFalse,
}

type token struct {
	kind tokenKind
	text string
	num  int
	row  int
	col  int
}

func newSymbolToken(kind tokenKind, row, col int) *token {
	return &token{
		kind: kind,
		row:  row,
		col:  col,
	}
}

func newIdentToken(text string, row, col int) *token {
	kind := tokenKindIdent
	if kw, ok := keywords[text]; ok {
		kind = kw
	}
	return &token{
		kind: kind,
		text: text,
		row:  row,
		col:  col,
	}
}

func newOpToken(text string, row, col int) *token {
	return &token{
		kind: tokenKindOp,
		text: text,
		row:  row,
		col:  col,
	}
}

func newIntToken(num int, text string, row, col int) *token {
	return &token{
		kind: tokenKindInt,
		text: text,
		num:  num,
		row:  row,
		col:  col,
	}
}

func newStringToken(text string, row, col int) *token {
	return &token{
		kind: tokenKindString,
		text: text,
		row:  row,
		col:  col,
	}
}

func newNonTerminalToken(text string, row, col int) *token {
	return &token{
		kind: tokenKindNonTerminal,
		text: text,
		row:  row,
		col:  col,
	}
}

// lexer tokenises ISLa source. It scans a rune slice directly because the
// token language needs unbounded lookahead in one place: a < may open a
// non-terminal type or be the comparison operator, and only the characters
// up to the matching > decide.
type lexer struct {
	src []rune
	pos int
	row int
	col int
}

func newLexer(src string) *lexer {
	return &lexer{
		src: []rune(src),
		row: 1,
		col: 1,
	}
}

func (l *lexer) eof() bool {
	return l.pos >= len(l.src)
}

func (l *lexer) peek() rune {
	if l.eof() {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekAt(off int) rune {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) read() rune {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.row++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) raise(synErr *SyntaxError, detail string) {
	panic(&verr.SpecError{
		Cause:  synErr,
		Detail: detail,
		Row:    l.row,
		Col:    l.col,
	})
}

func (l *lexer) next() *token {
	l.skipSpacesAndComments()
	row := l.row
	col := l.col
	if l.eof() {
		return newSymbolToken(tokenKindEOF, row, col)
	}

	c := l.peek()
	switch {
	case c == '(':
		l.read()
		return newSymbolToken(tokenKindLParen, row, col)
	case c == ')':
		l.read()
		return newSymbolToken(tokenKindRParen, row, col)
	case c == '[':
		l.read()
		return newSymbolToken(tokenKindLBracket, row, col)
	case c == ']':
		l.read()
		return newSymbolToken(tokenKindRBracket, row, col)
	case c == ',':
		l.read()
		return newSymbolToken(tokenKindComma, row, col)
	case c == ':':
		l.read()
		return newSymbolToken(tokenKindColon, row, col)
	case c == ';':
		l.read()
		return newSymbolToken(tokenKindSemicolon, row, col)
	case c == '.':
		l.read()
		if l.peek() == '.' {
			l.read()
			return newSymbolToken(tokenKindDotDot, row, col)
		}
		return newSymbolToken(tokenKindDot, row, col)
	case c == '<':
		return l.lexLessThan(row, col)
	case c == '>':
		l.read()
		if l.peek() == '=' {
			l.read()
			return newOpToken(">=", row, col)
		}
		return newOpToken(">", row, col)
	case c == '=':
		l.read()
		if l.peek() == '>' {
			l.read()
			return newOpToken("=>", row, col)
		}
		return newOpToken("=", row, col)
	case c == '+' || c == '-' || c == '*':
		l.read()
		return newOpToken(string(c), row, col)
	case c == '"':
		return l.lexString(row, col)
	case c >= '0' && c <= '9':
		return l.lexInt(row, col)
	case isIdentStart(c):
		return l.lexIdent(row, col)
	}
	l.raise(synErrInvalidChar, strconv.QuoteRune(c))
	return nil
}

func (l *lexer) skipSpacesAndComments() {
	for !l.eof() {
		c := l.peek()
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			l.read()
			continue
		}
		if c == '#' {
			for !l.eof() && l.peek() != '\n' {
				l.read()
			}
			continue
		}
		break
	}
}

// lexLessThan decides between a non-terminal type token and the < or <=
// operators by scanning ahead for a well-formed <name>.
func (l *lexer) lexLessThan(row, col int) *token {
	off := 1
	for isTypeChar(l.peekAt(off)) {
		off++
	}
	if off > 1 && l.peekAt(off) == '>' {
		l.read() // <
		var b strings.Builder
		for l.peek() != '>' {
			b.WriteRune(l.read())
		}
		l.read() // >
		return newNonTerminalToken(b.String(), row, col)
	}
	l.read()
	if l.peek() == '=' {
		l.read()
		return newOpToken("<=", row, col)
	}
	return newOpToken("<", row, col)
}

func (l *lexer) lexString(row, col int) *token {
	l.read() // opening quote
	var b strings.Builder
	for {
		if l.eof() {
			l.raise(synErrUnterminatedString, "")
		}
		c := l.read()
		switch c {
		case '"':
			return newStringToken(b.String(), row, col)
		case '\\':
			if l.eof() {
				l.raise(synErrIncompletedEscSeq, "")
			}
			e := l.read()
			switch e {
			case 'b':
				b.WriteRune('\b')
			case 't':
				b.WriteRune('\t')
			case 'n':
				b.WriteRune('\n')
			case 'r':
				b.WriteRune('\r')
			case '"':
				b.WriteRune('"')
			case '\\':
				b.WriteRune('\\')
			default:
				l.raise(synErrInvalidEscSeq, `\`+string(e))
			}
		default:
			b.WriteRune(c)
		}
	}
}

func (l *lexer) lexInt(row, col int) *token {
	var b strings.Builder
	for !l.eof() && l.peek() >= '0' && l.peek() <= '9' {
		b.WriteRune(l.read())
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		l.raise(synErrInvalidToken, b.String())
	}
	return newIntToken(n, b.String(), row, col)
}

// lexIdent scans an identifier, absorbing the dotted SMT-LIB operator
// spellings: str.to.int continues over letters, and the suffixes .++ .+ .*
// and .<= complete str.++, re.+, re.*, re.++ and str.<=.
func (l *lexer) lexIdent(row, col int) *token {
	var b strings.Builder
	b.WriteRune(l.read())
	for isIdentChar(l.peek()) {
		b.WriteRune(l.read())
	}
	for l.peek() == '.' {
		next := l.peekAt(1)
		switch {
		case isIdentStart(next):
			b.WriteRune(l.read()) // .
			for isIdentChar(l.peek()) {
				b.WriteRune(l.read())
			}
		case next == '+' && l.peekAt(2) == '+':
			l.read()
			l.read()
			l.read()
			b.WriteString(".++")
			return newIdentToken(b.String(), row, col)
		case next == '+':
			l.read()
			l.read()
			b.WriteString(".+")
			return newIdentToken(b.String(), row, col)
		case next == '*':
			l.read()
			l.read()
			b.WriteString(".*")
			return newIdentToken(b.String(), row, col)
		case next == '<' && l.peekAt(2) == '=':
			l.read()
			l.read()
			l.read()
			b.WriteString(".<=")
			return newIdentToken(b.String(), row, col)
		default:
			return newIdentToken(b.String(), row, col)
		}
	}
	return newIdentToken(b.String(), row, col)
}

func isIdentStart(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentChar(c rune) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

func isTypeChar(c rune) bool {
	return isIdentChar(c) || c == '-'
}
