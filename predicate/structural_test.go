package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MaGaroo/isla/smt"
	"github.com/MaGaroo/isla/tree"
)

// stmtFixture is the derivation tree of "a := 1 ; b := a":
//
//	(<start> (<stmt> (<assgn> ...) " ; " (<stmt> (<assgn> ...))))
func stmtFixture() *tree.Tree {
	assgn := func(lhs string, rhs *tree.Tree) *tree.Tree {
		return tree.NewNonTerminal("assgn",
			tree.NewNonTerminal("var", tree.NewTerminal(lhs)),
			tree.NewTerminal(" := "),
			tree.NewNonTerminal("rhs", rhs),
		)
	}
	digit := func(d string) *tree.Tree {
		return tree.NewNonTerminal("digit", tree.NewTerminal(d))
	}
	v := func(n string) *tree.Tree {
		return tree.NewNonTerminal("var", tree.NewTerminal(n))
	}
	return tree.NewNonTerminal("start",
		tree.NewNonTerminal("stmt",
			assgn("a", digit("1")),
			tree.NewTerminal(" ; "),
			tree.NewNonTerminal("stmt",
				assgn("b", v("a")),
			),
		),
	)
}

var (
	firstAssgn  = tree.Path{0, 0}
	secondAssgn = tree.Path{0, 2, 0}
)

func evalStructural(t *testing.T, name string, root *tree.Tree, args ...Value) smt.Verdict {
	t.Helper()
	p, ok := LookupStructural(name)
	if !ok {
		t.Fatalf("%v is not a structural predicate", name)
	}
	return p.Eval(root, args)
}

func TestStructural_PathOrder(t *testing.T) {
	root := stmtFixture()
	a := NodeValue(firstAssgn)
	b := NodeValue(secondAssgn)

	assert.Equal(t, smt.SAT, evalStructural(t, "before", root, a, b))
	assert.Equal(t, smt.UNSAT, evalStructural(t, "before", root, b, a))
	assert.Equal(t, smt.SAT, evalStructural(t, "after", root, b, a))
	assert.Equal(t, smt.UNSAT, evalStructural(t, "after", root, a, b))

	// a node is neither before nor after its ancestors
	stmt := NodeValue(tree.Path{0})
	assert.Equal(t, smt.UNSAT, evalStructural(t, "before", root, stmt, a))
	assert.Equal(t, smt.UNSAT, evalStructural(t, "after", root, a, stmt))
}

func TestStructural_Positions(t *testing.T) {
	root := stmtFixture()
	a := NodeValue(firstAssgn)

	assert.Equal(t, smt.SAT, evalStructural(t, "same_position", root, a, NodeValue(firstAssgn)))
	assert.Equal(t, smt.UNSAT, evalStructural(t, "same_position", root, a, NodeValue(secondAssgn)))
	assert.Equal(t, smt.SAT, evalStructural(t, "different_position", root, a, NodeValue(secondAssgn)))
	assert.Equal(t, smt.UNSAT, evalStructural(t, "different_position", root, a, NodeValue(firstAssgn)))
}

func TestStructural_Containment(t *testing.T) {
	root := stmtFixture()
	outerStmt := NodeValue(tree.Path{0})
	innerStmt := NodeValue(tree.Path{0, 2})
	a := NodeValue(firstAssgn)

	assert.Equal(t, smt.SAT, evalStructural(t, "direct_child", root, a, outerStmt))
	assert.Equal(t, smt.UNSAT, evalStructural(t, "direct_child", root, NodeValue(secondAssgn), outerStmt))

	assert.Equal(t, smt.SAT, evalStructural(t, "inside", root, NodeValue(secondAssgn), outerStmt))
	assert.Equal(t, smt.SAT, evalStructural(t, "inside", root, innerStmt, innerStmt))
	assert.Equal(t, smt.UNSAT, evalStructural(t, "inside", root, outerStmt, innerStmt))
}

func TestStructural_Nth(t *testing.T) {
	root := stmtFixture()

	assert.Equal(t, smt.SAT, evalStructural(t, "nth", root, IntValue(1), NodeValue(firstAssgn), NodeValue(tree.Path{})))
	assert.Equal(t, smt.SAT, evalStructural(t, "nth", root, IntValue(2), NodeValue(secondAssgn), NodeValue(tree.Path{})))
	assert.Equal(t, smt.UNSAT, evalStructural(t, "nth", root, IntValue(1), NodeValue(secondAssgn), NodeValue(tree.Path{})))
	// the count argument may be a string of digits
	assert.Equal(t, smt.SAT, evalStructural(t, "nth", root, StringValue("2"), NodeValue(secondAssgn), NodeValue(tree.Path{})))
	// a node outside the container is simply not the nth
	assert.Equal(t, smt.UNSAT, evalStructural(t, "nth", root, IntValue(1), NodeValue(firstAssgn), NodeValue(tree.Path{0, 2})))
}

func TestStructural_Level(t *testing.T) {
	root := stmtFixture()
	a := NodeValue(firstAssgn)
	b := NodeValue(secondAssgn)

	assert.Equal(t, smt.SAT, evalStructural(t, "level", root, StringValue("LT"), StringValue("stmt"), a, b))
	assert.Equal(t, smt.SAT, evalStructural(t, "level", root, StringValue("GT"), StringValue("stmt"), b, a))
	assert.Equal(t, smt.UNSAT, evalStructural(t, "level", root, StringValue("EQ"), StringValue("stmt"), a, b))
	assert.Equal(t, smt.SAT, evalStructural(t, "level", root, StringValue("EQ"), StringValue("stmt"), a, a))
	// the type argument may carry angle brackets
	assert.Equal(t, smt.SAT, evalStructural(t, "level", root, StringValue("LE"), StringValue("<stmt>"), a, b))
	// an unknown relation is undef
	assert.Equal(t, smt.UNDEF, evalStructural(t, "level", root, StringValue("APPROX"), StringValue("stmt"), a, b))
}

func TestStructural_Undef(t *testing.T) {
	root := stmtFixture()
	a := NodeValue(firstAssgn)

	// a path outside the tree
	assert.Equal(t, smt.UNDEF, evalStructural(t, "before", root, a, NodeValue(tree.Path{9, 9})))
	// a non-node argument
	assert.Equal(t, smt.UNDEF, evalStructural(t, "before", root, a, IntValue(1)))
}

func TestSemantic_Count(t *testing.T) {
	root := stmtFixture()
	reg := DefaultRegistry()
	count, ok := reg.Lookup("count")
	assert.True(t, ok)

	whole := NodeValue(tree.Path{})
	assert.Equal(t, smt.SAT, count.Eval(root, []Value{whole, StringValue("<assgn>"), IntValue(2)}))
	assert.Equal(t, smt.UNSAT, count.Eval(root, []Value{whole, StringValue("assgn"), IntValue(3)}))
	assert.Equal(t, smt.SAT, count.Eval(root, []Value{whole, StringValue("var"), StringValue("3")}))
	assert.Equal(t, smt.UNDEF, count.Eval(root, []Value{whole, StringValue("assgn"), StringValue("many")}))

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}
