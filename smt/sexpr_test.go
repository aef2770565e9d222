package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSExpr_String(t *testing.T) {
	e := NewCall(">=", NewCall("str.to.int", NewSymbol("d")), NewInt(0))
	assert.Equal(t, "(>= (str.to.int d) 0)", e.String())

	assert.Equal(t, `(= x "a \"b\"")`, NewCall("=", NewSymbol("x"), NewString(`a "b"`)).String())
	assert.Equal(t, "(- 3)", NewInt(-3).String())
}

func TestSExpr_Symbols(t *testing.T) {
	e := NewCall("and",
		NewCall("=", NewSymbol("x"), NewSymbol("y")),
		NewCall("str.in_re", NewSymbol("x"), NewSymbol("re.none")),
		NewSymbol("true"),
	)
	assert.Equal(t, []string{"x", "y"}, e.Symbols())
}

func TestSExpr_Equal(t *testing.T) {
	a := NewCall("=", NewSymbol("x"), NewInt(1))
	b := NewCall("=", NewSymbol("x"), NewInt(1))
	c := NewCall("=", NewSymbol("x"), NewInt(2))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(NewSymbol("x")))
}
