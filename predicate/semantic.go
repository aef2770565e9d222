package predicate

import (
	"github.com/MaGaroo/isla/smt"
	"github.com/MaGaroo/isla/tree"
)

// Semantic is a host-provided predicate. The evaluator resolves the
// arguments before the call; the eval function must be side-effect-free for
// the duration of the call and may answer UNDEF when it cannot decide.
type Semantic struct {
	Name  string
	Arity int
	Eval  func(root *tree.Tree, args []Value) smt.Verdict
}

// Registry maps semantic predicate names to their evaluators. A registry is
// populated at construction and read-only afterwards, so it may be shared
// across goroutines.
type Registry struct {
	preds map[string]Semantic
}

func NewRegistry(preds ...Semantic) *Registry {
	m := make(map[string]Semantic, len(preds))
	for _, p := range preds {
		m[p.Name] = p
	}
	return &Registry{
		preds: m,
	}
}

func (r *Registry) Lookup(name string) (Semantic, bool) {
	if r == nil {
		return Semantic{}, false
	}
	p, ok := r.preds[name]
	return p, ok
}

func (r *Registry) Contains(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// DefaultRegistry returns a registry holding the built-in semantic
// predicates.
func DefaultRegistry() *Registry {
	return NewRegistry(countPredicate)
}

// count(in, type, n) holds iff the number of <type> nodes in the subtree
// bound to in equals n. n may be an integer, a string of digits, or a node
// whose yield is one.
var countPredicate = Semantic{
	Name:  "count",
	Arity: 3,
	Eval: func(root *tree.Tree, args []Value) smt.Verdict {
		in, ok := nodeArg(root, args[0])
		if !ok {
			return undef
		}
		typ, ok := stringArg(args[1])
		if !ok {
			return undef
		}
		typ = typeName(typ)
		var want int
		switch args[2].Kind {
		case ValueKindNode:
			p, ok := nodeArg(root, args[2])
			if !ok {
				return undef
			}
			sub, _ := root.Subtree(p)
			want, ok = parseCount(sub.Yield())
			if !ok {
				return undef
			}
		default:
			want, ok = intArg(args[2])
			if !ok {
				return undef
			}
		}
		sub, _ := root.Subtree(in)
		return smt.VerdictOf(len(sub.DescendantsOfType(typ)) == want)
	},
}

func parseCount(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
