// Package predicate contains the fixed library of structural tree
// predicates and the registry of host-provided semantic predicates.
package predicate

import (
	"strconv"

	"github.com/MaGaroo/isla/smt"
	"github.com/MaGaroo/isla/tree"
)

// ValueKind discriminates resolved predicate arguments.
type ValueKind string

const (
	ValueKindNode   = ValueKind("node")
	ValueKindInt    = ValueKind("int")
	ValueKindString = ValueKind("string")
)

// Value is a predicate argument after resolution against an assignment: a
// node of the evaluated tree (addressed by path), an integer, or a string.
// A node argument that does not address a node of the evaluated tree makes
// a structural predicate UNDEF.
type Value struct {
	Kind ValueKind
	Path tree.Path
	Num  int
	Str  string
}

func NodeValue(p tree.Path) Value {
	return Value{
		Kind: ValueKindNode,
		Path: p,
	}
}

func IntValue(n int) Value {
	return Value{
		Kind: ValueKindInt,
		Num:  n,
	}
}

func StringValue(s string) Value {
	return Value{
		Kind: ValueKindString,
		Str:  s,
	}
}

// intArg reads an argument that may be written as an integer or as a string
// of digits.
func intArg(v Value) (int, bool) {
	switch v.Kind {
	case ValueKindInt:
		return v.Num, true
	case ValueKindString:
		n, err := strconv.Atoi(v.Str)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func nodeArg(root *tree.Tree, v Value) (tree.Path, bool) {
	if v.Kind != ValueKindNode {
		return nil, false
	}
	if _, ok := root.At(v.Path); !ok {
		return nil, false
	}
	return v.Path, true
}

func stringArg(v Value) (string, bool) {
	if v.Kind != ValueKindString {
		return "", false
	}
	return v.Str, true
}

// typeName normalises a non-terminal type argument: the surrounding angle
// brackets may or may not be written.
func typeName(s string) string {
	if len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1]
	}
	return s
}

var undef = smt.UNDEF
