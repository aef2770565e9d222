package grammar

import (
	"bufio"
	"io"
	"strings"

	verr "github.com/MaGaroo/isla/error"
)

type tokenKind string

const (
	tokenKindNonTerminal = tokenKind("non-terminal")
	tokenKindTerminal    = tokenKind("terminal")
	tokenKindDefOp       = tokenKind("::=")
	tokenKindOr          = tokenKind("|")
	tokenKindSemicolon   = tokenKind(";")
	tokenKindEOF         = tokenKind("eof")
	tokenKindInvalid     = tokenKind("invalid")
)

type token struct {
	kind tokenKind
	text string
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

func newNonTerminalToken(text string, row, col int) *token {
	return &token{
		kind: tokenKindNonTerminal,
		text: text,
		row:  row,
		col:  col,
	}
}

func newTerminalToken(text string, row, col int) *token {
	return &token{
		kind: tokenKindTerminal,
		text: text,
		row:  row,
		col:  col,
	}
}

func newEOFToken(row, col int) *token {
	return &token{
		kind: tokenKindEOF,
		row:  row,
		col:  col,
	}
}

func newInvalidToken(text string, row, col int) *token {
	return &token{
		kind: tokenKindInvalid,
		text: text,
		row:  row,
		col:  col,
	}
}

type lexer struct {
	src        *bufio.Reader
	row        int
	col        int
	reachedEOF bool
}

func newLexer(src io.Reader) *lexer {
	return &lexer{
		src: bufio.NewReader(src),
		row: 1,
		col: 0,
	}
}

func (l *lexer) raise(synErr *SyntaxError) {
	raiseSyntaxError(l.row, l.col, synErr)
}

func (l *lexer) next() (*token, error) {
	c, eof, err := l.read()
	if err != nil {
		return nil, err
	}
	for {
		if eof {
			return newEOFToken(l.row, l.col), nil
		}
		if c == '#' {
			for {
				c, eof, err = l.read()
				if err != nil {
					return nil, err
				}
				if eof || c == '\n' {
					break
				}
			}
			continue
		}
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			c, eof, err = l.read()
			if err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	row := l.row
	col := l.col
	switch c {
	case '<':
		return l.lexNonTerminal(row, col)
	case '"':
		return l.lexTerminal(row, col)
	case ':':
		for _, want := range []rune{':', '='} {
			c, eof, err := l.read()
			if err != nil {
				return nil, err
			}
			if eof || c != want {
				l.raise(synErrInvalidToken)
			}
		}
		return newSymbolToken(tokenKindDefOp, row, col), nil
	case '|':
		return newSymbolToken(tokenKindOr, row, col), nil
	case ';':
		return newSymbolToken(tokenKindSemicolon, row, col), nil
	default:
		return newInvalidToken(string(c), row, col), nil
	}
}

func (l *lexer) lexNonTerminal(row, col int) (*token, error) {
	var b strings.Builder
	for {
		c, eof, err := l.read()
		if err != nil {
			return nil, err
		}
		if eof || c == '\n' {
			l.raise(synErrUnclosedNonTerminal)
		}
		if c == '>' {
			break
		}
		if c == '<' {
			l.raise(synErrUnclosedNonTerminal)
		}
		b.WriteRune(c)
	}
	if b.Len() == 0 {
		raiseSyntaxError(row, col, synErrEmptyNonTerminal)
	}
	return newNonTerminalToken(b.String(), row, col), nil
}

func (l *lexer) lexTerminal(row, col int) (*token, error) {
	var b strings.Builder
	for {
		c, eof, err := l.read()
		if err != nil {
			return nil, err
		}
		if eof {
			l.raise(synErrUnclosedTerminal)
		}
		switch c {
		case '"':
			return newTerminalToken(b.String(), row, col), nil
		case '\\':
			c, eof, err := l.read()
			if err != nil {
				return nil, err
			}
			if eof {
				l.raise(synErrIncompletedEscSeq)
			}
			e, ok := unescape(c)
			if !ok {
				l.raise(synErrInvalidEscSeq)
			}
			b.WriteRune(e)
		default:
			b.WriteRune(c)
		}
	}
}

func unescape(c rune) (rune, bool) {
	switch c {
	case 'b':
		return '\b', true
	case 't':
		return '\t', true
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case '"':
		return '"', true
	case '\\':
		return '\\', true
	}
	return 0, false
}

func (l *lexer) read() (rune, bool, error) {
	if l.reachedEOF {
		return 0, true, nil
	}
	c, _, err := l.src.ReadRune()
	if err != nil {
		if err == io.EOF {
			l.reachedEOF = true
			return 0, true, nil
		}
		return 0, false, err
	}
	if c == '\n' {
		l.row++
		l.col = 0
	} else {
		l.col++
	}
	return c, false, nil
}

func raiseSyntaxError(row, col int, synErr *SyntaxError) {
	panic(&verr.SpecError{
		Cause: synErr,
		Row:   row,
		Col:   col,
	})
}
