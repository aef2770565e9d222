package predicate

import (
	"github.com/MaGaroo/isla/smt"
	"github.com/MaGaroo/isla/tree"
)

// Structural is one member of the fixed library of tree-relational
// predicates. All of them are defined purely in terms of the lexicographic
// path order.
type Structural struct {
	Name  string
	Arity int
	eval  func(root *tree.Tree, args []Value) smt.Verdict
}

// Eval applies the predicate to resolved arguments. Arguments that are not
// nodes of the evaluated tree give UNDEF.
func (p Structural) Eval(root *tree.Tree, args []Value) smt.Verdict {
	if len(args) != p.Arity {
		return undef
	}
	return p.eval(root, args)
}

var structuralLib = func() map[string]Structural {
	lib := map[string]Structural{}
	for _, p := range []Structural{
		{Name: "before", Arity: 2, eval: evalBefore},
		{Name: "after", Arity: 2, eval: evalAfter},
		{Name: "same_position", Arity: 2, eval: evalSamePosition},
		{Name: "different_position", Arity: 2, eval: evalDifferentPosition},
		{Name: "direct_child", Arity: 2, eval: evalDirectChild},
		{Name: "inside", Arity: 2, eval: evalInside},
		{Name: "nth", Arity: 3, eval: evalNth},
		{Name: "level", Arity: 4, eval: evalLevel},
	} {
		lib[p.Name] = p
	}
	return lib
}()

// LookupStructural resolves a name against the structural library.
func LookupStructural(name string) (Structural, bool) {
	p, ok := structuralLib[name]
	return p, ok
}

// IsStructural reports whether the name denotes a structural predicate.
func IsStructural(name string) bool {
	_, ok := structuralLib[name]
	return ok
}

func twoNodes(root *tree.Tree, args []Value) (tree.Path, tree.Path, bool) {
	a, ok := nodeArg(root, args[0])
	if !ok {
		return nil, nil, false
	}
	b, ok := nodeArg(root, args[1])
	if !ok {
		return nil, nil, false
	}
	return a, b, true
}

// before(a, b) holds iff a's path precedes b's lexicographically and
// neither path is a prefix of the other.
func evalBefore(root *tree.Tree, args []Value) smt.Verdict {
	a, b, ok := twoNodes(root, args)
	if !ok {
		return undef
	}
	return smt.VerdictOf(tree.Compare(a, b) < 0 && !tree.IsPrefix(a, b))
}

func evalAfter(root *tree.Tree, args []Value) smt.Verdict {
	a, b, ok := twoNodes(root, args)
	if !ok {
		return undef
	}
	return smt.VerdictOf(tree.Compare(a, b) > 0 && !tree.IsPrefix(b, a))
}

func evalSamePosition(root *tree.Tree, args []Value) smt.Verdict {
	a, b, ok := twoNodes(root, args)
	if !ok {
		return undef
	}
	return smt.VerdictOf(tree.Equal(a, b))
}

func evalDifferentPosition(root *tree.Tree, args []Value) smt.Verdict {
	a, b, ok := twoNodes(root, args)
	if !ok {
		return undef
	}
	return smt.VerdictOf(!tree.Equal(a, b))
}

// direct_child(a, b) holds iff a is a direct child of b.
func evalDirectChild(root *tree.Tree, args []Value) smt.Verdict {
	a, b, ok := twoNodes(root, args)
	if !ok {
		return undef
	}
	return smt.VerdictOf(len(a) == len(b)+1 && tree.IsPrefix(b, a))
}

// inside(a, b) holds iff b's path is a prefix of a's, equality included.
func evalInside(root *tree.Tree, args []Value) smt.Verdict {
	a, b, ok := twoNodes(root, args)
	if !ok {
		return undef
	}
	return smt.VerdictOf(tree.IsPrefix(b, a))
}

// nth(k, a, b) holds iff a is the k-th node (1-based, pre-order) carrying
// a's label among b's descendants.
func evalNth(root *tree.Tree, args []Value) smt.Verdict {
	k, ok := intArg(args[0])
	if !ok {
		return undef
	}
	a, ok := nodeArg(root, args[1])
	if !ok {
		return undef
	}
	b, ok := nodeArg(root, args[2])
	if !ok {
		return undef
	}
	if !tree.IsPrefix(b, a) {
		return smt.UNSAT
	}
	aid, _ := root.At(a)
	label := root.Label(aid)
	sub, _ := root.Subtree(b)
	n := 0
	verdict := smt.UNSAT
	sub.Walk(func(p tree.Path, id tree.NodeID) bool {
		if !sub.IsNonTerminal(id) || sub.Label(id) != label {
			return true
		}
		n++
		abs := append(b.Clone(), p...)
		if tree.Equal(abs, a) {
			verdict = smt.VerdictOf(n == k)
			return false
		}
		return n <= k
	})
	return verdict
}

// level(rel, t, a, b) compares the number of strict <t>-labelled ancestors
// of a and b under rel, one of EQ, NE, GE, LE, GT, LT.
func evalLevel(root *tree.Tree, args []Value) smt.Verdict {
	rel, ok := stringArg(args[0])
	if !ok {
		return undef
	}
	typ, ok := stringArg(args[1])
	if !ok {
		return undef
	}
	typ = typeName(typ)
	a, ok := nodeArg(root, args[2])
	if !ok {
		return undef
	}
	b, ok := nodeArg(root, args[3])
	if !ok {
		return undef
	}
	la := ancestorCount(root, a, typ)
	lb := ancestorCount(root, b, typ)
	switch rel {
	case "EQ":
		return smt.VerdictOf(la == lb)
	case "NE":
		return smt.VerdictOf(la != lb)
	case "GE":
		return smt.VerdictOf(la >= lb)
	case "LE":
		return smt.VerdictOf(la <= lb)
	case "GT":
		return smt.VerdictOf(la > lb)
	case "LT":
		return smt.VerdictOf(la < lb)
	}
	return undef
}

func ancestorCount(root *tree.Tree, p tree.Path, typ string) int {
	n := 0
	for i := 0; i < len(p); i++ {
		id, ok := root.At(p[:i])
		if !ok {
			continue
		}
		if root.IsNonTerminal(id) && root.Label(id) == typ {
			n++
		}
	}
	return n
}
