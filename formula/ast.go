// Package formula defines the abstract syntax of ISLa formulas and the
// well-formedness checks performed after parsing.
package formula

import (
	"fmt"
	"strings"

	"github.com/MaGaroo/isla/smt"
)

// Formula is the tagged-variant interface over all formula nodes. The
// concrete variants are SmtAtom, StructPredAtom, SemPredAtom, Not, Binary,
// Quantifier, and IntQuantifier; consumers switch exhaustively.
type Formula interface {
	isFormula()
	fmt.Stringer
}

// SmtAtom is an embedded SMT-LIB boolean expression. FreeIDs lists the
// expression's free identifiers in first-occurrence order; identifiers that
// stand for XPath expressions map to their parsed form in XPaths and occur
// in the expression as placeholder symbols spelled like their source text.
type SmtAtom struct {
	Expr    *smt.SExpr
	FreeIDs []string
	XPaths  map[string]*XPath
}

// StructPredAtom applies one of the fixed structural predicates.
type StructPredAtom struct {
	Name string
	Args []*Arg
}

// SemPredAtom applies a semantic predicate resolved against the registry.
type SemPredAtom struct {
	Name string
	Args []*Arg
}

type Not struct {
	Operand Formula
}

type BinaryOp string

const (
	OpAnd     = BinaryOp("and")
	OpOr      = BinaryOp("or")
	OpXor     = BinaryOp("xor")
	OpImplies = BinaryOp("implies")
	OpIff     = BinaryOp("iff")
)

type Binary struct {
	Op    BinaryOp
	Left  Formula
	Right Formula
}

// Quantifier ranges over the <BoundType>-rooted subtrees of the tree bound
// to In (the top-level constant when In is empty). BoundName may be empty.
type Quantifier struct {
	Universal bool
	BoundType string
	BoundName string
	Match     *MatchExpr
	In        string
	Body      Formula
}

// IntQuantifier ranges over the non-negative integers.
type IntQuantifier struct {
	Universal bool
	BoundName string
	Body      Formula
}

func (*SmtAtom) isFormula()        {}
func (*StructPredAtom) isFormula() {}
func (*SemPredAtom) isFormula()    {}
func (*Not) isFormula()            {}
func (*Binary) isFormula()         {}
func (*Quantifier) isFormula()     {}
func (*IntQuantifier) isFormula()  {}

// ArgKind discriminates predicate arguments.
type ArgKind string

const (
	ArgKindVariable    = ArgKind("variable")
	ArgKindNonTerminal = ArgKind("non-terminal")
	ArgKindXPath       = ArgKind("xpath")
	ArgKindInt         = ArgKind("int")
	ArgKindString      = ArgKind("string")
)

type Arg struct {
	Kind  ArgKind
	Name  string // variable name or non-terminal type
	XPath *XPath
	Num   int
	Str   string
}

func VariableArg(name string) *Arg {
	return &Arg{Kind: ArgKindVariable, Name: name}
}

func NonTerminalArg(typ string) *Arg {
	return &Arg{Kind: ArgKindNonTerminal, Name: typ}
}

func XPathArg(x *XPath) *Arg {
	return &Arg{Kind: ArgKindXPath, XPath: x}
}

func IntArg(n int) *Arg {
	return &Arg{Kind: ArgKindInt, Num: n}
}

func StringArg(s string) *Arg {
	return &Arg{Kind: ArgKindString, Str: s}
}

func (a *Arg) String() string {
	switch a.Kind {
	case ArgKindVariable:
		return a.Name
	case ArgKindNonTerminal:
		return fmt.Sprintf("<%v>", a.Name)
	case ArgKindXPath:
		return a.XPath.String()
	case ArgKindInt:
		return fmt.Sprintf("%v", a.Num)
	default:
		return smt.QuoteString(a.Str)
	}
}

// Spec is a parsed top-level ISLa specification: an optional constant
// declaration and exactly one formula. When the source declares no
// constant, the conventional `start: <start>` constant is assumed.
type Spec struct {
	ConstName string
	ConstType string
	// ConstDeclared records whether the constant was written in the
	// source, so printing round-trips.
	ConstDeclared bool
	Root          Formula
}

// DefaultConstName is the constant assumed when a specification does not
// declare one.
const DefaultConstName = "start"

func (s *Spec) String() string {
	var b strings.Builder
	if s.ConstDeclared {
		fmt.Fprintf(&b, "const %v: <%v>;\n\n", s.ConstName, s.ConstType)
	}
	b.WriteString(s.Root.String())
	return b.String()
}

func (f *SmtAtom) String() string {
	return f.Expr.String()
}

func (f *StructPredAtom) String() string {
	return formatPredicate(f.Name, f.Args)
}

func (f *SemPredAtom) String() string {
	return formatPredicate(f.Name, f.Args)
}

func formatPredicate(name string, args []*Arg) string {
	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = a.String()
	}
	return fmt.Sprintf("%v(%v)", name, strings.Join(strs, ", "))
}

func (f *Not) String() string {
	return fmt.Sprintf("not %v", parenthesize(f.Operand))
}

func (f *Binary) String() string {
	return fmt.Sprintf("%v %v %v", parenthesize(f.Left), f.Op, parenthesize(f.Right))
}

func (f *Quantifier) String() string {
	var b strings.Builder
	if f.Universal {
		b.WriteString("forall")
	} else {
		b.WriteString("exists")
	}
	fmt.Fprintf(&b, " <%v>", f.BoundType)
	if f.BoundName != "" {
		fmt.Fprintf(&b, " %v", f.BoundName)
	}
	if f.Match != nil {
		fmt.Fprintf(&b, "=%v", smt.QuoteString(f.Match.Source()))
	}
	if f.In != "" {
		fmt.Fprintf(&b, " in %v", f.In)
	}
	fmt.Fprintf(&b, ": %v", f.Body)
	return b.String()
}

func (f *IntQuantifier) String() string {
	kw := "exists"
	if f.Universal {
		kw = "forall"
	}
	return fmt.Sprintf("%v int %v: %v", kw, f.BoundName, f.Body)
}

// parenthesize wraps composite operands so the printed form re-parses with
// the same shape regardless of the precedence context.
func parenthesize(f Formula) string {
	switch f.(type) {
	case *SmtAtom, *StructPredAtom, *SemPredAtom:
		return f.String()
	}
	return fmt.Sprintf("(%v)", f)
}
