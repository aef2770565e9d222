package eval

import (
	"fmt"

	"github.com/MaGaroo/isla/formula"
	"github.com/MaGaroo/isla/predicate"
	"github.com/MaGaroo/isla/smt"
	"github.com/MaGaroo/isla/tree"
)

// Option configures a Check call.
type Option func(*evaluator)

// WithSemantics supplies the semantic predicate registry the formula was
// parsed against. Defaults to the built-in registry.
func WithSemantics(r *predicate.Registry) Option {
	return func(e *evaluator) {
		e.semantics = r
	}
}

// AssumeFunctionalIntDomain asserts that inside every universal integer
// quantifier of the checked formula, the quantified property holds for
// exactly one integer given fixed other parameters. Under that hypothesis
// the evaluator rewrites forall-int/exists-tree/negation shapes into an
// equivalent existential form. The hypothesis is the caller's to assert;
// it is not verified.
func AssumeFunctionalIntDomain() Option {
	return func(e *evaluator) {
		e.functionalInt = true
	}
}

type evaluator struct {
	root          *tree.Tree
	oracle        smt.Oracle
	semantics     *predicate.Registry
	constName     string
	functionalInt bool
}

// Check decides whether the closed tree satisfies the specification's
// formula: the top-level constant is bound to the tree and the formula is
// evaluated under Kleene three-valued semantics. Oracle and predicate
// uncertainty surface as UNDEF; a missing binding is an *EvalError.
func Check(t *tree.Tree, spec *formula.Spec, oracle smt.Oracle, opts ...Option) (smt.Verdict, error) {
	e := &evaluator{
		root:      t,
		oracle:    oracle,
		semantics: predicate.DefaultRegistry(),
		constName: spec.ConstName,
	}
	for _, opt := range opts {
		opt(e)
	}
	a := Assignment{
		spec.ConstName: TreeBinding(tree.Path{}),
	}
	return e.eval(spec.Root, a)
}

func (e *evaluator) eval(f formula.Formula, a Assignment) (smt.Verdict, error) {
	switch f := f.(type) {
	case *formula.SmtAtom:
		return e.evalAtom(f, a)
	case *formula.StructPredAtom:
		return e.evalPred(f.Name, f.Args, a, true)
	case *formula.SemPredAtom:
		return e.evalPred(f.Name, f.Args, a, false)
	case *formula.Not:
		v, err := e.eval(f.Operand, a)
		if err != nil {
			return smt.UNDEF, err
		}
		return smt.VerdictNot(v), nil
	case *formula.Binary:
		return e.evalBinary(f, a)
	case *formula.Quantifier:
		return e.evalQuantifier(f, a)
	case *formula.IntQuantifier:
		return e.evalIntQuantifier(f, a)
	}
	return smt.UNDEF, fmt.Errorf("unknown formula node %T", f)
}

func (e *evaluator) evalBinary(f *formula.Binary, a Assignment) (smt.Verdict, error) {
	left, err := e.eval(f.Left, a)
	if err != nil {
		return smt.UNDEF, err
	}
	// short-circuit on a dominating left verdict
	switch f.Op {
	case formula.OpAnd:
		if left == smt.UNSAT {
			return smt.UNSAT, nil
		}
	case formula.OpOr:
		if left == smt.SAT {
			return smt.SAT, nil
		}
	}
	right, err := e.eval(f.Right, a)
	if err != nil {
		return smt.UNDEF, err
	}
	switch f.Op {
	case formula.OpAnd:
		return smt.VerdictAnd(left, right), nil
	case formula.OpOr:
		return smt.VerdictOr(left, right), nil
	case formula.OpXor:
		return smt.VerdictXor(left, right), nil
	case formula.OpImplies:
		return smt.VerdictImplies(left, right), nil
	default:
		return smt.VerdictIff(left, right), nil
	}
}

// candidateValues is the resolution of one free identifier of an atom: one
// value for plain variables, possibly several for XPath and bare-type
// references.
type candidateValues struct {
	id   string
	vals []smt.Value
}

func (e *evaluator) evalAtom(f *formula.SmtAtom, a Assignment) (smt.Verdict, error) {
	var multi []candidateValues
	for _, id := range f.FreeIDs {
		if x, ok := f.XPaths[id]; ok {
			paths, err := e.resolveXPath(x, a)
			if err != nil {
				return smt.UNDEF, err
			}
			if len(paths) == 0 {
				return smt.UNDEF, nil
			}
			vals := make([]smt.Value, len(paths))
			for i, p := range paths {
				sub, _ := e.root.Subtree(p)
				vals[i] = smt.StringValue(sub.Yield())
			}
			multi = append(multi, candidateValues{id: id, vals: vals})
			continue
		}
		if isTypeRef(id) {
			paths := e.root.DescendantsOfType(typeRefName(id))
			if len(paths) == 0 {
				return smt.UNDEF, nil
			}
			vals := make([]smt.Value, len(paths))
			for i, p := range paths {
				sub, _ := e.root.Subtree(p)
				vals[i] = smt.StringValue(sub.Yield())
			}
			multi = append(multi, candidateValues{id: id, vals: vals})
			continue
		}
		b, ok := a[id]
		if !ok {
			return smt.UNDEF, &EvalError{Name: id}
		}
		multi = append(multi, candidateValues{id: id, vals: []smt.Value{e.bindingValue(b)}})
	}

	// Every combination of resolutions must hold (universal reading of
	// multi-valued references); UNSAT short-circuits.
	acc := smt.SAT
	forEachCombination(multi, func(env smt.Env) bool {
		v := e.checkGround(f.Expr, env)
		acc = smt.VerdictAnd(acc, v)
		return acc != smt.UNSAT
	})
	return acc, nil
}

func (e *evaluator) bindingValue(b Binding) smt.Value {
	if b.IsInt {
		return smt.IntValue(b.Int)
	}
	sub, _ := e.root.Subtree(b.Path)
	return smt.StringValue(sub.Yield())
}

// checkGround asks the oracle about the negated instantiation: the formula
// holds iff its negation is unsatisfiable over the ground environment.
func (e *evaluator) checkGround(expr *smt.SExpr, env smt.Env) smt.Verdict {
	switch e.oracle.Check(smt.Not(expr), env) {
	case smt.UNSAT:
		return smt.SAT
	case smt.SAT:
		return smt.UNSAT
	}
	return smt.UNDEF
}

func forEachCombination(multi []candidateValues, visit func(env smt.Env) bool) {
	env := smt.Env{}
	var rec func(i int) bool
	rec = func(i int) bool {
		if i == len(multi) {
			return visit(env)
		}
		for _, v := range multi[i].vals {
			env[multi[i].id] = v
			if !rec(i + 1) {
				return false
			}
		}
		return true
	}
	rec(0)
}

// candidateArgs mirrors candidateValues for predicate arguments.
type candidateArgs struct {
	vals []predicate.Value
}

func (e *evaluator) evalPred(name string, args []*formula.Arg, a Assignment, structural bool) (smt.Verdict, error) {
	multi := make([]candidateArgs, len(args))
	for i, arg := range args {
		switch arg.Kind {
		case formula.ArgKindInt:
			multi[i] = candidateArgs{vals: []predicate.Value{predicate.IntValue(arg.Num)}}
		case formula.ArgKindString:
			multi[i] = candidateArgs{vals: []predicate.Value{predicate.StringValue(arg.Str)}}
		case formula.ArgKindNonTerminal:
			multi[i] = candidateArgs{vals: []predicate.Value{predicate.StringValue(arg.Name)}}
		case formula.ArgKindVariable:
			b, ok := a[arg.Name]
			if !ok {
				return smt.UNDEF, &EvalError{Name: arg.Name}
			}
			var v predicate.Value
			if b.IsInt {
				v = predicate.IntValue(b.Int)
			} else {
				v = predicate.NodeValue(b.Path)
			}
			multi[i] = candidateArgs{vals: []predicate.Value{v}}
		case formula.ArgKindXPath:
			paths, err := e.resolveXPath(arg.XPath, a)
			if err != nil {
				return smt.UNDEF, err
			}
			if len(paths) == 0 {
				return smt.UNDEF, nil
			}
			vals := make([]predicate.Value, len(paths))
			for j, p := range paths {
				vals[j] = predicate.NodeValue(p)
			}
			multi[i] = candidateArgs{vals: vals}
		}
	}

	var apply func(vals []predicate.Value) smt.Verdict
	if structural {
		pred, ok := predicate.LookupStructural(name)
		if !ok {
			return smt.UNDEF, nil
		}
		apply = func(vals []predicate.Value) smt.Verdict {
			return pred.Eval(e.root, vals)
		}
	} else {
		pred, ok := e.semantics.Lookup(name)
		if !ok {
			return smt.UNDEF, nil
		}
		apply = func(vals []predicate.Value) smt.Verdict {
			return pred.Eval(e.root, vals)
		}
	}

	acc := smt.SAT
	vals := make([]predicate.Value, len(multi))
	var rec func(i int) bool
	rec = func(i int) bool {
		if i == len(multi) {
			acc = smt.VerdictAnd(acc, apply(vals))
			return acc != smt.UNSAT
		}
		for _, v := range multi[i].vals {
			vals[i] = v
			if !rec(i + 1) {
				return false
			}
		}
		return true
	}
	rec(0)
	return acc, nil
}

// evalQuantifier enumerates the <T>-rooted subtrees of the quantifier's
// target in pre-order, filters them through the match expression when one
// is given, and aggregates the body verdicts: a universal quantifier
// short-circuits on the first UNSAT, an existential one on the first SAT,
// and UNDEF keeps the aggregate undefined.
func (e *evaluator) evalQuantifier(q *formula.Quantifier, a Assignment) (smt.Verdict, error) {
	target := q.In
	if target == "" {
		target = e.constName
	}
	b, ok := a[target]
	if !ok {
		return smt.UNDEF, &EvalError{Name: target}
	}
	if b.IsInt {
		return smt.UNDEF, &EvalError{Name: target}
	}
	sub, ok := e.root.Subtree(b.Path)
	if !ok {
		return smt.UNDEF, &EvalError{Name: target}
	}

	var binderXPaths []*formula.XPath
	if q.BoundName != "" {
		binderXPaths = collectBinderXPaths(q.Body, q.BoundName)
	}

	sawUndef := false
	for _, rel := range sub.DescendantsOfType(q.BoundType) {
		cand := append(b.Path.Clone(), rel...)

		ext := a
		if q.Match != nil {
			binds, ok := e.matchSubtree(cand, q.Match)
			if !ok {
				continue
			}
			for name, p := range binds {
				ext = ext.extend(name, TreeBinding(p))
			}
		}
		if q.BoundName != "" {
			ext = ext.extend(q.BoundName, TreeBinding(cand))
		}

		// An XPath rooted at the binder abbreviates a match constraint on
		// the quantified subtree: candidates it does not resolve in are
		// not in the quantifier's range at all.
		if !e.binderXPathsResolve(binderXPaths, ext) {
			continue
		}

		v, err := e.eval(q.Body, ext)
		if err != nil {
			return smt.UNDEF, err
		}
		if q.Universal {
			if v == smt.UNSAT {
				return smt.UNSAT, nil
			}
		} else {
			if v == smt.SAT {
				return smt.SAT, nil
			}
		}
		if v == smt.UNDEF {
			sawUndef = true
		}
	}

	if sawUndef {
		return smt.UNDEF, nil
	}
	if q.Universal {
		return smt.SAT, nil
	}
	return smt.UNSAT, nil
}

func (e *evaluator) binderXPathsResolve(xpaths []*formula.XPath, a Assignment) bool {
	for _, x := range xpaths {
		paths, err := e.resolveXPath(x, a)
		if err != nil || len(paths) == 0 {
			return false
		}
	}
	return true
}

// collectBinderXPaths gathers the XPath expressions of a quantifier body
// that are rooted at the given binder. Collection stops below any inner
// quantifier that rebinds the name.
func collectBinderXPaths(f formula.Formula, name string) []*formula.XPath {
	var xs []*formula.XPath
	collectXPaths(f, name, &xs)
	return xs
}

func collectXPaths(f formula.Formula, name string, xs *[]*formula.XPath) {
	switch f := f.(type) {
	case *formula.SmtAtom:
		for _, x := range f.XPaths {
			if !x.BaseIsType && x.Base == name {
				*xs = append(*xs, x)
			}
		}
	case *formula.StructPredAtom:
		collectArgXPaths(f.Args, name, xs)
	case *formula.SemPredAtom:
		collectArgXPaths(f.Args, name, xs)
	case *formula.Not:
		collectXPaths(f.Operand, name, xs)
	case *formula.Binary:
		collectXPaths(f.Left, name, xs)
		collectXPaths(f.Right, name, xs)
	case *formula.Quantifier:
		if rebinds(f, name) {
			return
		}
		collectXPaths(f.Body, name, xs)
	case *formula.IntQuantifier:
		if f.BoundName != name {
			collectXPaths(f.Body, name, xs)
		}
	}
}

func collectArgXPaths(args []*formula.Arg, name string, xs *[]*formula.XPath) {
	for _, a := range args {
		if a.Kind == formula.ArgKindXPath && !a.XPath.BaseIsType && a.XPath.Base == name {
			*xs = append(*xs, a.XPath)
		}
	}
}

func rebinds(q *formula.Quantifier, name string) bool {
	if q.BoundName == name {
		return true
	}
	if q.Match != nil {
		for _, n := range q.Match.BindNames() {
			if n == name {
				return true
			}
		}
	}
	return false
}

func isTypeRef(id string) bool {
	return len(id) >= 2 && id[0] == '<' && id[len(id)-1] == '>'
}

func typeRefName(id string) string {
	return id[1 : len(id)-1]
}
