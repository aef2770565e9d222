package parser

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	verr "github.com/MaGaroo/isla/error"
	"github.com/MaGaroo/isla/formula"
	"github.com/MaGaroo/isla/grammar"
)

const testGrammarSrc = `
<start> ::= <stmt>;
<stmt> ::= <assgn> | <assgn> " ; " <stmt>;
<assgn> ::= <var> " := " <rhs>;
<rhs> ::= <var> | <digit>;
<var> ::= "a" | "b" | "c";
<digit> ::= "0" | "1" | "2";
`

func testGrammar(t *testing.T) *grammar.Grammar {
	t.Helper()
	g, err := grammar.ParseString(testGrammarSrc)
	if err != nil {
		t.Fatalf("cannot parse the test grammar: %v", err)
	}
	return g
}

func TestParse(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		check   func(t *testing.T, spec *formula.Spec)
		synErr  *SyntaxError
	}{
		{
			caption: "a constant declaration precedes the formula",
			src:     `const c: <stmt>; exists <assgn> a in c: true`,
			check: func(t *testing.T, spec *formula.Spec) {
				if !spec.ConstDeclared || spec.ConstName != "c" || spec.ConstType != "stmt" {
					t.Fatalf("unexpected constant: %+v", spec)
				}
			},
		},
		{
			caption: "without a declaration the start constant is assumed",
			src:     `true`,
			check: func(t *testing.T, spec *formula.Spec) {
				if spec.ConstDeclared || spec.ConstName != "start" || spec.ConstType != "start" {
					t.Fatalf("unexpected constant: %+v", spec)
				}
			},
		},
		{
			caption: "and binds tighter than or",
			src:     `true and false or true`,
			check: func(t *testing.T, spec *formula.Spec) {
				or, ok := spec.Root.(*formula.Binary)
				if !ok || or.Op != formula.OpOr {
					t.Fatalf("the root must be an or: %v", spec.Root)
				}
				and, ok := or.Left.(*formula.Binary)
				if !ok || and.Op != formula.OpAnd {
					t.Fatalf("the left operand must be an and: %v", or.Left)
				}
			},
		},
		{
			caption: "iff binds loosest and implies is right-associative",
			src:     `true implies false implies true iff false`,
			check: func(t *testing.T, spec *formula.Spec) {
				iff, ok := spec.Root.(*formula.Binary)
				if !ok || iff.Op != formula.OpIff {
					t.Fatalf("the root must be an iff: %v", spec.Root)
				}
				outer, ok := iff.Left.(*formula.Binary)
				if !ok || outer.Op != formula.OpImplies {
					t.Fatalf("the left of iff must be an implies: %v", iff.Left)
				}
				if inner, ok := outer.Right.(*formula.Binary); !ok || inner.Op != formula.OpImplies {
					t.Fatalf("implies must associate to the right: %v", outer.Right)
				}
			},
		},
		{
			caption: "not binds tighter than and",
			src:     `not true and false`,
			check: func(t *testing.T, spec *formula.Spec) {
				and, ok := spec.Root.(*formula.Binary)
				if !ok || and.Op != formula.OpAnd {
					t.Fatalf("the root must be an and: %v", spec.Root)
				}
				if _, ok := and.Left.(*formula.Not); !ok {
					t.Fatalf("the left operand must be a negation: %v", and.Left)
				}
			},
		},
		{
			caption: "a quantifier body extends maximally rightward",
			src:     `forall <assgn> a: true and false`,
			check: func(t *testing.T, spec *formula.Spec) {
				q, ok := spec.Root.(*formula.Quantifier)
				if !ok || !q.Universal {
					t.Fatalf("the root must be a forall: %v", spec.Root)
				}
				if b, ok := q.Body.(*formula.Binary); !ok || b.Op != formula.OpAnd {
					t.Fatalf("the body must contain the whole conjunction: %v", q.Body)
				}
			},
		},
		{
			caption: "an s-expression atom is preserved structurally",
			src:     `forall <digit> d: (>= (str.to.int d) 0)`,
			check: func(t *testing.T, spec *formula.Spec) {
				q := spec.Root.(*formula.Quantifier)
				atom, ok := q.Body.(*formula.SmtAtom)
				if !ok {
					t.Fatalf("the body must be an smt atom: %v", q.Body)
				}
				if got := atom.Expr.String(); got != "(>= (str.to.int d) 0)" {
					t.Fatalf("unexpected expression: %v", got)
				}
				if len(atom.FreeIDs) != 1 || atom.FreeIDs[0] != "d" {
					t.Fatalf("unexpected free identifiers: %v", atom.FreeIDs)
				}
			},
		},
		{
			caption: "infix and prefix notations normalise to the s-expression form",
			src:     `str.len(x) + 1 > 2 * 3`,
			check: func(t *testing.T, spec *formula.Spec) {
				atom := spec.Root.(*formula.SmtAtom)
				if got := atom.Expr.String(); got != "(> (+ (str.len x) 1) (* 2 3))" {
					t.Fatalf("unexpected expression: %v", got)
				}
			},
		},
		{
			caption: "the dotted operator spellings lex as single identifiers",
			src:     `x str.++ y = "ab" and str.to.int(d) >= 0`,
			check: func(t *testing.T, spec *formula.Spec) {
				and := spec.Root.(*formula.Binary)
				left := and.Left.(*formula.SmtAtom)
				if got := left.Expr.String(); got != `(= (str.++ x y) "ab")` {
					t.Fatalf("unexpected expression: %v", got)
				}
			},
		},
		{
			caption: "an xpath becomes a placeholder identifier",
			src:     `forall <assgn> a1: a1.<rhs>.<var> = "x"`,
			check: func(t *testing.T, spec *formula.Spec) {
				q := spec.Root.(*formula.Quantifier)
				atom := q.Body.(*formula.SmtAtom)
				x, ok := atom.XPaths["a1.<rhs>.<var>"]
				if !ok {
					t.Fatalf("the xpath was not recorded: %v", atom.XPaths)
				}
				if x.Base != "a1" || x.BaseIsType || len(x.Segments) != 2 {
					t.Fatalf("unexpected xpath: %+v", x)
				}
				if x.Segments[0].Type != "rhs" || x.Segments[0].Descend || x.Segments[0].Index != 0 {
					t.Fatalf("unexpected first segment: %+v", x.Segments[0])
				}
			},
		},
		{
			caption: "descendant segments and child selectors",
			src:     `<stmt>..<assgn>.<var>[1] = "a"`,
			check: func(t *testing.T, spec *formula.Spec) {
				atom := spec.Root.(*formula.SmtAtom)
				x, ok := atom.XPaths["<stmt>..<assgn>.<var>[1]"]
				if !ok {
					t.Fatalf("the xpath was not recorded: %v", atom.XPaths)
				}
				if !x.BaseIsType || x.Base != "stmt" {
					t.Fatalf("unexpected base: %+v", x)
				}
				if !x.Segments[0].Descend || x.Segments[1].Index != 1 {
					t.Fatalf("unexpected segments: %+v", x.Segments)
				}
			},
		},
		{
			caption: "a structural predicate call",
			src:     `forall <assgn> a1: exists <assgn> a2: before(a2, a1)`,
			check: func(t *testing.T, spec *formula.Spec) {
				q := spec.Root.(*formula.Quantifier).Body.(*formula.Quantifier)
				pred, ok := q.Body.(*formula.StructPredAtom)
				if !ok || pred.Name != "before" {
					t.Fatalf("the body must be a structural predicate: %v", q.Body)
				}
				if len(pred.Args) != 2 || pred.Args[0].Name != "a2" {
					t.Fatalf("unexpected arguments: %v", pred.Args)
				}
			},
		},
		{
			caption: "a semantic predicate call resolves against the registry",
			src:     `forall <stmt> s: count(s, "<assgn>", 2)`,
			check: func(t *testing.T, spec *formula.Spec) {
				q := spec.Root.(*formula.Quantifier)
				pred, ok := q.Body.(*formula.SemPredAtom)
				if !ok || pred.Name != "count" {
					t.Fatalf("the body must be a semantic predicate: %v", q.Body)
				}
			},
		},
		{
			caption: "a match expression introduces typed holes",
			src:     `forall <assgn> a="{<var> lhs} := {<var> rhs}": lhs = rhs`,
			check: func(t *testing.T, spec *formula.Spec) {
				q := spec.Root.(*formula.Quantifier)
				if q.Match == nil {
					t.Fatalf("the match expression is missing")
				}
				elems := q.Match.Elements
				if len(elems) != 3 {
					t.Fatalf("unexpected element count: %v", len(elems))
				}
				b1, ok := elems[0].(*formula.MatchBind)
				if !ok || b1.Type != "var" || b1.Name != "lhs" {
					t.Fatalf("unexpected first element: %+v", elems[0])
				}
				txt, ok := elems[1].(*formula.MatchText)
				if !ok || txt.Text != " := " {
					t.Fatalf("unexpected second element: %+v", elems[1])
				}
			},
		},
		{
			caption: "optional fragments and stripped newlines in match expressions",
			src:     "forall <stmt> s=\"{<assgn> a}[ ; ]\ntail\": true",
			check: func(t *testing.T, spec *formula.Spec) {
				q := spec.Root.(*formula.Quantifier)
				elems := q.Match.Elements
				if len(elems) != 3 {
					t.Fatalf("unexpected element count: %v", len(elems))
				}
				opt, ok := elems[1].(*formula.MatchOptional)
				if !ok {
					t.Fatalf("the second element must be optional: %+v", elems[1])
				}
				if txt := opt.Elements[0].(*formula.MatchText); txt.Text != " ; " {
					t.Fatalf("unexpected optional content: %+v", opt.Elements[0])
				}
				if txt := elems[2].(*formula.MatchText); txt.Text != "tail" {
					t.Fatalf("the newline must be stripped: %q", txt.Text)
				}
			},
		},
		{
			caption: "integer quantifiers",
			src:     `exists int i: forall <digit> d: (= (str.to.int d) i)`,
			check: func(t *testing.T, spec *formula.Spec) {
				q, ok := spec.Root.(*formula.IntQuantifier)
				if !ok || q.Universal || q.BoundName != "i" {
					t.Fatalf("the root must be an exists int: %v", spec.Root)
				}
			},
		},
		{
			caption: "comments are elided",
			src: `# leading note
true # trailing note`,
			check: func(t *testing.T, spec *formula.Spec) {},
		},
		{
			caption: "a string literal quote is escaped with a backslash",
			src:     `forall <var> v: v = "\""`,
			check: func(t *testing.T, spec *formula.Spec) {
				atom := spec.Root.(*formula.Quantifier).Body.(*formula.SmtAtom)
				if got := atom.Expr.List[2].Str; got != `"` {
					t.Fatalf("unexpected literal: %q", got)
				}
			},
		},
		{
			caption: "an unknown predicate name is rejected",
			src:     `frobnicate(a, b)`,
			synErr:  synErrUnknownPredicate,
		},
		{
			caption: "a predicate arity mismatch is rejected",
			src:     `forall <assgn> a: before(a)`,
			synErr:  synErrArityMismatch,
		},
		{
			caption: "a prefix operator arity mismatch is rejected",
			src:     `str.len(x, y) = 1`,
			synErr:  synErrArityMismatch,
		},
		{
			caption: "an unterminated string is rejected",
			src:     `forall <var> v: v = "abc`,
			synErr:  synErrUnterminatedString,
		},
		{
			caption: "text after the formula is rejected",
			src:     `true true`,
			synErr:  synErrTrailingText,
		},
		{
			caption: "a quantifier needs its colon",
			src:     `forall <assgn> a true`,
			synErr:  synErrNoColon,
		},
		{
			caption: "a duplicate match-expression name is rejected",
			src:     `forall <assgn> a="{<var> v} := {<var> v}": true`,
			synErr:  synErrMatchDuplicateName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			g := testGrammar(t)
			spec, err := ParseString(tt.src, g, nil)
			if tt.synErr != nil {
				if err == nil {
					t.Fatalf("an expected error didn't occur")
				}
				var specErr *verr.SpecError
				if !errors.As(err, &specErr) || !errors.Is(specErr.Cause, tt.synErr) {
					t.Fatalf("unexpected error: want: %v, got: %v", tt.synErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, spec)
		})
	}
}

func TestParse_PrintRoundTrip(t *testing.T) {
	srcs := []string{
		`true`,
		`forall <digit> d: (>= (str.to.int d) 0)`,
		`forall <assgn> a1: exists <assgn> a2: (before(a2, a1) and a1.<rhs>.<var> = a2.<var>)`,
		`forall <assgn> a="{<var> lhs} := {<var> rhs}": lhs = rhs`,
		`const c: <stmt>; exists <assgn> a in c: not a.<var> = "b"`,
		`exists int i: forall <digit> d: (= (str.to.int d) i)`,
		`true and false or not true xor false implies true iff false`,
		`forall <var> v: (v = "a" or v = "\"")`,
		`count(start, "<assgn>", 1)`,
	}
	g := testGrammar(t)
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			first, err := ParseString(src, g, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			printed := first.String()
			second, err := ParseString(printed, g, nil)
			if err != nil {
				t.Fatalf("the printed form does not re-parse: %v\n%v", err, printed)
			}
			if !reflect.DeepEqual(first.Root, second.Root) {
				t.Fatalf("the round-tripped formula differs:\nsource:  %v\nprinted: %v", src, printed)
			}
		})
	}
}

func TestLexer_Tokens(t *testing.T) {
	tests := []struct {
		caption string
		src     string
		kinds   []tokenKind
	}{
		{
			caption: "angle brackets open non-terminals only when one closes",
			src:     `<assgn> < <= <x-y>`,
			kinds:   []tokenKind{tokenKindNonTerminal, tokenKindOp, tokenKindOp, tokenKindNonTerminal, tokenKindEOF},
		},
		{
			caption: "dotted operators stay single tokens",
			src:     `str.to.int str.++ re.+ re.* str.<= str.len`,
			kinds:   []tokenKind{tokenKindIdent, tokenKindIdent, tokenKindIdent, tokenKindIdent, tokenKindIdent, tokenKindIdent, tokenKindEOF},
		},
		{
			caption: "xpath punctuation",
			src:     `a1.<rhs>..<var>[1]`,
			kinds: []tokenKind{
				tokenKindIdent, tokenKindDot, tokenKindNonTerminal, tokenKindDotDot,
				tokenKindNonTerminal, tokenKindLBracket, tokenKindInt, tokenKindRBracket, tokenKindEOF,
			},
		},
		{
			caption: "keywords are classified",
			src:     `const forall exists in int not and or xor implies iff true false`,
			kinds: []tokenKind{
				tokenKindKWConst, tokenKindKWForall, tokenKindKWExists, tokenKindKWIn,
				tokenKindKWInt, tokenKindKWNot, tokenKindKWAnd, tokenKindKWOr,
				tokenKindKWXor, tokenKindKWImplies, tokenKindKWIff, tokenKindKWTrue,
				tokenKindKWFalse, tokenKindEOF,
			},
		},
		{
			caption: "operators",
			src:     `= => >= <= > + - *`,
			kinds: []tokenKind{
				tokenKindOp, tokenKindOp, tokenKindOp, tokenKindOp, tokenKindOp,
				tokenKindOp, tokenKindOp, tokenKindOp, tokenKindEOF,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			l := newLexer(tt.src)
			for i, want := range tt.kinds {
				tok := l.next()
				if tok.kind != want {
					t.Fatalf("unexpected token kind at %v: want: %v, got: %v (%v)", i, want, tok.kind, tok.text)
				}
			}
		})
	}
}

func TestLexer_DottedOperatorTexts(t *testing.T) {
	l := newLexer(`str.to.int str.++ str.<=`)
	for _, want := range []string{"str.to.int", "str.++", "str.<="} {
		tok := l.next()
		if tok.text != want {
			t.Fatalf("unexpected token text: want: %v, got: %v", want, tok.text)
		}
	}
}

func TestParse_ReaderEntryPoint(t *testing.T) {
	g := testGrammar(t)
	spec, err := Parse(strings.NewReader(`forall <digit> d: (>= (str.to.int d) 0)`), g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := spec.Root.(*formula.Quantifier); !ok {
		t.Fatalf("unexpected root: %v", spec.Root)
	}
}
