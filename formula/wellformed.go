package formula

import (
	"errors"
	"fmt"

	verr "github.com/MaGaroo/isla/error"
	"github.com/MaGaroo/isla/grammar"
	"github.com/MaGaroo/isla/smt"
)

var (
	ErrUnresolvedVariable = errors.New("unresolved variable")
	ErrSortMismatch       = errors.New("sort mismatch")
	ErrUnreachableXPath   = errors.New("unreachable xpath")
	ErrDuplicateBinder    = errors.New("duplicate binder")
)

// VarSort is a variable's sort: a derivation subtree of some non-terminal
// type, or an integer.
type VarSort struct {
	IsInt bool
	Type  string // non-terminal type of a tree sort
}

func TreeSort(typ string) VarSort {
	return VarSort{Type: typ}
}

func IntSort() VarSort {
	return VarSort{IsInt: true}
}

// Check traverses the formula once, resolving every identifier to a binder
// in scope or the top-level constant, assigning sorts, validating the SMT
// atoms against the operator signature table, and checking every XPath
// against the reference grammar.
func Check(spec *Spec, g *grammar.Grammar) error {
	if !g.IsDefined(spec.ConstType) {
		return &verr.SpecError{
			Cause:  ErrUnreachableXPath,
			Detail: fmt.Sprintf("the constant's type <%v> is not defined by the grammar", spec.ConstType),
		}
	}
	c := &checker{
		g: g,
		scope: map[string]VarSort{
			spec.ConstName: TreeSort(spec.ConstType),
		},
	}
	return c.check(spec.Root)
}

type checker struct {
	g     *grammar.Grammar
	scope map[string]VarSort
}

func (c *checker) check(f Formula) error {
	switch f := f.(type) {
	case *SmtAtom:
		return c.checkAtom(f)
	case *StructPredAtom:
		return c.checkArgs(f.Args)
	case *SemPredAtom:
		return c.checkArgs(f.Args)
	case *Not:
		return c.check(f.Operand)
	case *Binary:
		if err := c.check(f.Left); err != nil {
			return err
		}
		return c.check(f.Right)
	case *Quantifier:
		return c.checkQuantifier(f)
	case *IntQuantifier:
		return c.withBinding(f.BoundName, IntSort(), func() error {
			return c.check(f.Body)
		})
	}
	return fmt.Errorf("unknown formula node %T", f)
}

func (c *checker) checkQuantifier(f *Quantifier) error {
	if !c.g.IsDefined(f.BoundType) {
		return &verr.SpecError{
			Cause:  ErrUnreachableXPath,
			Detail: fmt.Sprintf("<%v> is not defined by the grammar", f.BoundType),
		}
	}
	if f.In != "" {
		s, ok := c.scope[f.In]
		if !ok {
			return &verr.SpecError{
				Cause:  ErrUnresolvedVariable,
				Detail: f.In,
			}
		}
		if s.IsInt {
			return &verr.SpecError{
				Cause:  ErrSortMismatch,
				Detail: fmt.Sprintf("%v is an integer and cannot contain subtrees", f.In),
			}
		}
	}
	bindings := map[string]VarSort{}
	if f.BoundName != "" {
		bindings[f.BoundName] = TreeSort(f.BoundType)
	}
	if f.Match != nil {
		for _, b := range f.Match.Binds() {
			if !c.g.IsDefined(b.Type) {
				return &verr.SpecError{
					Cause:  ErrUnreachableXPath,
					Detail: fmt.Sprintf("<%v> is not defined by the grammar", b.Type),
				}
			}
			if _, dup := bindings[b.Name]; dup {
				return &verr.SpecError{
					Cause:  ErrDuplicateBinder,
					Detail: b.Name,
				}
			}
			bindings[b.Name] = TreeSort(b.Type)
		}
	}
	return c.withBindings(bindings, func() error {
		return c.check(f.Body)
	})
}

func (c *checker) withBinding(name string, s VarSort, body func() error) error {
	if name == "" {
		return body()
	}
	return c.withBindings(map[string]VarSort{name: s}, body)
}

func (c *checker) withBindings(bindings map[string]VarSort, body func() error) error {
	saved := map[string]VarSort{}
	for name, s := range bindings {
		if _, shadows := c.scope[name]; shadows {
			return &verr.SpecError{
				Cause:  ErrDuplicateBinder,
				Detail: name,
			}
		}
		saved[name] = s
		c.scope[name] = s
	}
	defer func() {
		for name := range saved {
			delete(c.scope, name)
		}
	}()
	return body()
}

func (c *checker) checkArgs(args []*Arg) error {
	for _, a := range args {
		switch a.Kind {
		case ArgKindVariable:
			if _, ok := c.scope[a.Name]; !ok {
				return &verr.SpecError{
					Cause:  ErrUnresolvedVariable,
					Detail: a.Name,
				}
			}
		case ArgKindNonTerminal:
			if err := c.checkTypeRef(a.Name); err != nil {
				return err
			}
		case ArgKindXPath:
			if err := c.checkXPath(a.XPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *checker) checkAtom(f *SmtAtom) error {
	env := map[string]smt.Sort{}
	for _, id := range f.FreeIDs {
		if x, ok := f.XPaths[id]; ok {
			if err := c.checkXPath(x); err != nil {
				return err
			}
			env[id] = smt.SortString
			continue
		}
		if isTypeRef(id) {
			if err := c.checkTypeRef(typeRefName(id)); err != nil {
				return err
			}
			env[id] = smt.SortString
			continue
		}
		s, ok := c.scope[id]
		if !ok {
			return &verr.SpecError{
				Cause:  ErrUnresolvedVariable,
				Detail: id,
			}
		}
		if s.IsInt {
			env[id] = smt.SortInt
		} else {
			env[id] = smt.SortString
		}
	}
	return checkExprSort(f.Expr, env, smt.SortBool)
}

// checkExprSort infers the sort of an expression bottom-up against the
// operator signature table. Strings and integers never coerce implicitly;
// only str.to.int and str.from_int cross between them.
func checkExprSort(e *smt.SExpr, env map[string]smt.Sort, expected smt.Sort) error {
	actual, err := inferSort(e, env)
	if err != nil {
		return err
	}
	if expected != smt.SortAny && actual != smt.SortAny && actual != expected {
		return &verr.SpecError{
			Cause:  ErrSortMismatch,
			Detail: fmt.Sprintf("%v has sort %v, expected %v", e, actual, expected),
		}
	}
	return nil
}

func inferSort(e *smt.SExpr, env map[string]smt.Sort) (smt.Sort, error) {
	switch e.Kind {
	case smt.ExprKindInt:
		return smt.SortInt, nil
	case smt.ExprKindString:
		return smt.SortString, nil
	case smt.ExprKindSymbol:
		switch e.Sym {
		case "true", "false":
			return smt.SortBool, nil
		case "re.none", "re.all", "re.allchar":
			return smt.SortRegLan, nil
		}
		if s, ok := env[e.Sym]; ok {
			return s, nil
		}
		return smt.SortAny, nil
	}

	head := e.Head()
	op, ok := smt.LookupOperator(head)
	if !ok {
		return smt.SortAny, nil
	}
	args := e.Args()
	if !op.AcceptsArity(len(args)) {
		return smt.SortAny, &verr.SpecError{
			Cause:  ErrSortMismatch,
			Detail: fmt.Sprintf("%v takes %v operands, got %v", head, op.Arity, len(args)),
		}
	}
	if head == "=" {
		// polymorphic: the operands must agree with each other
		var common smt.Sort
		for _, a := range args {
			s, err := inferSort(a, env)
			if err != nil {
				return smt.SortAny, err
			}
			if s == smt.SortAny {
				continue
			}
			if common == smt.SortAny {
				common = s
				continue
			}
			if s != common {
				return smt.SortAny, &verr.SpecError{
					Cause:  ErrSortMismatch,
					Detail: fmt.Sprintf("cannot equate %v and %v in %v", common, s, e),
				}
			}
		}
		return smt.SortBool, nil
	}
	for i, a := range args {
		if err := checkExprSort(a, env, op.ParamSort(i)); err != nil {
			return smt.SortAny, err
		}
	}
	return op.Result, nil
}

func (c *checker) checkTypeRef(typ string) error {
	if !c.g.IsDefined(typ) {
		return &verr.SpecError{
			Cause:  ErrUnreachableXPath,
			Detail: fmt.Sprintf("<%v> is not defined by the grammar", typ),
		}
	}
	return nil
}

func (c *checker) checkXPath(x *XPath) error {
	var baseType string
	if x.BaseIsType {
		if err := c.checkTypeRef(x.Base); err != nil {
			return err
		}
		if x.Base != c.g.Start() && !c.g.Reachable(c.g.Start(), x.Base) {
			return &verr.SpecError{
				Cause:  ErrUnreachableXPath,
				Detail: fmt.Sprintf("<%v> is not reachable from <%v>", x.Base, c.g.Start()),
			}
		}
		baseType = x.Base
	} else {
		s, ok := c.scope[x.Base]
		if !ok {
			return &verr.SpecError{
				Cause:  ErrUnresolvedVariable,
				Detail: x.Base,
			}
		}
		if s.IsInt {
			return &verr.SpecError{
				Cause:  ErrSortMismatch,
				Detail: fmt.Sprintf("%v is an integer and has no subtrees", x.Base),
			}
		}
		baseType = s.Type
	}

	cur := baseType
	for _, seg := range x.Segments {
		if err := c.checkTypeRef(seg.Type); err != nil {
			return err
		}
		if seg.Descend {
			if !c.g.Reachable(cur, seg.Type) {
				return &verr.SpecError{
					Cause:  ErrUnreachableXPath,
					Detail: fmt.Sprintf("<%v> is not a descendant type of <%v>", seg.Type, cur),
				}
			}
		} else {
			if !c.g.ChildType(cur, seg.Type) {
				return &verr.SpecError{
					Cause:  ErrUnreachableXPath,
					Detail: fmt.Sprintf("<%v> is not a child type of <%v>", seg.Type, cur),
				}
			}
		}
		cur = seg.Type
	}
	return nil
}

func isTypeRef(id string) bool {
	return len(id) >= 2 && id[0] == '<' && id[len(id)-1] == '>'
}

func typeRefName(id string) string {
	return id[1 : len(id)-1]
}
