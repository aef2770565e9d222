package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroundOracle_Check(t *testing.T) {
	sym := NewSymbol
	str := NewString
	num := NewInt
	call := NewCall

	tests := []struct {
		caption string
		expr    *SExpr
		env     Env
		want    Verdict
	}{
		{
			caption: "equal strings",
			expr:    call("=", sym("x"), str("abc")),
			env:     Env{"x": StringValue("abc")},
			want:    SAT,
		},
		{
			caption: "unequal strings",
			expr:    call("=", sym("x"), str("abc")),
			env:     Env{"x": StringValue("abd")},
			want:    UNSAT,
		},
		{
			caption: "integer comparison",
			expr:    call(">=", call("str.to.int", str("17")), num(0)),
			want:    SAT,
		},
		{
			caption: "str.to.int of a non-numeral is -1",
			expr:    call("=", call("str.to.int", str("a")), call("-", num(0), num(1))),
			want:    SAT,
		},
		{
			caption: "arithmetic",
			expr:    call("=", call("+", call("*", num(3), num(4)), num(1)), num(13)),
			want:    SAT,
		},
		{
			caption: "division by zero is undef",
			expr:    call("=", call("div", num(1), num(0)), num(0)),
			want:    UNDEF,
		},
		{
			caption: "string functions",
			expr: call("and",
				call("=", call("str.len", str("abc")), num(3)),
				call("str.prefixof", str("ab"), str("abc")),
				call("str.contains", str("abc"), str("b")),
				call("=", call("str.++", str("a"), str("b"), str("c")), str("abc")),
			),
			want: SAT,
		},
		{
			caption: "substring and indexing",
			expr: call("and",
				call("=", call("str.at", str("abc"), num(1)), str("b")),
				call("=", call("str.substr", str("abcde"), num(1), num(3)), str("bcd")),
				call("=", call("str.indexof", str("abcab"), str("ab"), num(1)), num(3)),
			),
			want: SAT,
		},
		{
			caption: "boolean connectives",
			expr:    call("=>", call("<", num(1), num(0)), sym("false")),
			want:    SAT,
		},
		{
			caption: "negation",
			expr:    call("not", call("=", str("a"), str("a"))),
			want:    UNSAT,
		},
		{
			caption: "missing binding is undef",
			expr:    call("=", sym("x"), str("a")),
			want:    UNDEF,
		},
		{
			caption: "regular expressions are beyond the ground oracle",
			expr:    call("str.in_re", str("a"), call("str.to_re", str("a"))),
			want:    UNDEF,
		},
		{
			caption: "quantifiers are beyond the ground oracle",
			expr: NewList(sym("exists"),
				NewList(NewList(sym("i"), sym("Int"))),
				call("=", sym("i"), num(1))),
			want: UNDEF,
		},
		{
			caption: "a non-boolean top level is undef",
			expr:    call("+", num(1), num(2)),
			want:    UNDEF,
		},
		{
			caption: "is_digit",
			expr:    call("str.is_digit", str("7")),
			want:    SAT,
		},
		{
			caption: "from_int and to_code",
			expr: call("and",
				call("=", call("str.from_int", num(42)), str("42")),
				call("=", call("str.to_code", str("A")), num(65)),
			),
			want: SAT,
		},
	}
	o := NewGroundOracle()
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			assert.Equal(t, tt.want, o.Check(tt.expr, tt.env))
		})
	}
}
