package eval

import (
	"strconv"

	"github.com/MaGaroo/isla/formula"
	"github.com/MaGaroo/isla/smt"
	"github.com/MaGaroo/isla/tree"
)

// Integer quantifiers range over all non-negative integers, which the
// evaluator cannot enumerate. Three strategies apply, in order:
//
//  1. When the caller asserted the functional-domain hypothesis, a
//     universal quantifier of the shape
//     forall int i: exists <T> e in c: not phi(e, i)
//     is rewritten to
//     exists int i: (exists e in c: phi) and (exists e in c: not phi),
//     which is equivalence-preserving under that hypothesis.
//  2. When the bound variable occurs only inside SMT atoms, the whole
//     quantified formula is lifted to the oracle.
//  3. Otherwise candidate integers harvested from the tree's numeric
//     yields are probed: a witness decides an existential quantifier SAT
//     and a counterexample decides a universal one UNSAT. Without a
//     definite probe the verdict stays UNDEF, never a wrong pole.
func (e *evaluator) evalIntQuantifier(q *formula.IntQuantifier, a Assignment) (smt.Verdict, error) {
	if e.functionalInt && q.Universal {
		if rw, ok := rewriteFunctionalInt(q); ok {
			return e.eval(rw, a)
		}
	}

	if liftable(q.Body) {
		return e.liftIntQuantifier(q, a)
	}

	return e.probeIntQuantifier(q, a)
}

// rewriteFunctionalInt matches the documented forall-int special case. The
// precondition that phi holds for exactly one integer given fixed other
// parameters is the caller's assertion and is not inferred here.
func rewriteFunctionalInt(q *formula.IntQuantifier) (formula.Formula, bool) {
	ex, ok := q.Body.(*formula.Quantifier)
	if !ok || ex.Universal {
		return nil, false
	}
	neg, ok := ex.Body.(*formula.Not)
	if !ok {
		return nil, false
	}
	phi := neg.Operand
	pos := &formula.Quantifier{
		BoundType: ex.BoundType,
		BoundName: ex.BoundName,
		Match:     ex.Match,
		In:        ex.In,
		Body:      phi,
	}
	negQ := &formula.Quantifier{
		BoundType: ex.BoundType,
		BoundName: ex.BoundName,
		Match:     ex.Match,
		In:        ex.In,
		Body:      &formula.Not{Operand: phi},
	}
	return &formula.IntQuantifier{
		BoundName: q.BoundName,
		Body: &formula.Binary{
			Op:    formula.OpAnd,
			Left:  pos,
			Right: negQ,
		},
	}, true
}

// liftable reports whether a formula consists purely of SMT atoms and
// connectives, so the quantified formula can be delegated whole.
func liftable(f formula.Formula) bool {
	switch f := f.(type) {
	case *formula.SmtAtom:
		return true
	case *formula.Not:
		return liftable(f.Operand)
	case *formula.Binary:
		return liftable(f.Left) && liftable(f.Right)
	}
	return false
}

func (e *evaluator) liftIntQuantifier(q *formula.IntQuantifier, a Assignment) (smt.Verdict, error) {
	env := smt.Env{}
	body, err := e.liftFormula(q.Body, a, q.BoundName, env)
	if err != nil {
		return smt.UNDEF, err
	}
	if body == nil {
		return smt.UNDEF, nil
	}
	bound := smt.NewList(smt.NewList(smt.NewSymbol(q.BoundName), smt.NewSymbol("Int")))
	nonNeg := smt.NewCall(">=", smt.NewSymbol(q.BoundName), smt.NewInt(0))
	var lifted *smt.SExpr
	if q.Universal {
		lifted = smt.NewList(smt.NewSymbol("forall"), bound, smt.NewCall("=>", nonNeg, body))
	} else {
		lifted = smt.NewList(smt.NewSymbol("exists"), bound, smt.NewCall("and", nonNeg, body))
	}
	return e.checkGround(lifted, env), nil
}

// liftFormula renders a pure-SMT formula as one S-expression, populating
// the environment with the ground values of every free identifier other
// than the bound one. Multi-valued references cannot be lifted; they make
// the result nil.
func (e *evaluator) liftFormula(f formula.Formula, a Assignment, bound string, env smt.Env) (*smt.SExpr, error) {
	switch f := f.(type) {
	case *formula.SmtAtom:
		for _, id := range f.FreeIDs {
			if id == bound {
				continue
			}
			if x, ok := f.XPaths[id]; ok {
				paths, err := e.resolveXPath(x, a)
				if err != nil {
					return nil, err
				}
				if len(paths) != 1 {
					return nil, nil
				}
				sub, _ := e.root.Subtree(paths[0])
				env[id] = smt.StringValue(sub.Yield())
				continue
			}
			if isTypeRef(id) {
				paths := e.root.DescendantsOfType(typeRefName(id))
				if len(paths) != 1 {
					return nil, nil
				}
				sub, _ := e.root.Subtree(paths[0])
				env[id] = smt.StringValue(sub.Yield())
				continue
			}
			b, ok := a[id]
			if !ok {
				return nil, &EvalError{Name: id}
			}
			env[id] = e.bindingValue(b)
		}
		return f.Expr, nil
	case *formula.Not:
		inner, err := e.liftFormula(f.Operand, a, bound, env)
		if err != nil || inner == nil {
			return nil, err
		}
		return smt.Not(inner), nil
	case *formula.Binary:
		left, err := e.liftFormula(f.Left, a, bound, env)
		if err != nil || left == nil {
			return nil, err
		}
		right, err := e.liftFormula(f.Right, a, bound, env)
		if err != nil || right == nil {
			return nil, err
		}
		switch f.Op {
		case formula.OpAnd:
			return smt.NewCall("and", left, right), nil
		case formula.OpOr:
			return smt.NewCall("or", left, right), nil
		case formula.OpXor:
			return smt.NewCall("xor", left, right), nil
		case formula.OpImplies:
			return smt.NewCall("=>", left, right), nil
		default:
			return smt.NewCall("=", left, right), nil
		}
	}
	return nil, nil
}

// probeIntQuantifier instantiates the bound variable with the integers
// readable off the tree. The probes can only decide one pole; the infinite
// remainder of the domain keeps the other pole UNDEF.
func (e *evaluator) probeIntQuantifier(q *formula.IntQuantifier, a Assignment) (smt.Verdict, error) {
	for _, n := range e.treeInts() {
		v, err := e.eval(q.Body, a.extend(q.BoundName, IntBinding(n)))
		if err != nil {
			return smt.UNDEF, err
		}
		if q.Universal && v == smt.UNSAT {
			return smt.UNSAT, nil
		}
		if !q.Universal && v == smt.SAT {
			return smt.SAT, nil
		}
	}
	return smt.UNDEF, nil
}

// treeInts collects the distinct non-negative integers that occur as
// numeric yields of the evaluated tree's nodes, plus zero.
func (e *evaluator) treeInts() []int {
	seen := map[int]struct{}{0: {}}
	ints := []int{0}
	e.root.Walk(func(p tree.Path, id tree.NodeID) bool {
		sub := e.root.SubtreeAt(id)
		y := sub.Yield()
		if y == "" {
			return true
		}
		n, err := strconv.Atoi(y)
		if err != nil || n < 0 {
			return true
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			ints = append(ints, n)
		}
		return true
	})
	return ints
}
