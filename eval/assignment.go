// Package eval implements the satisfaction relation between closed
// derivation trees and well-formed ISLa formulas, delegating ground SMT
// checks to an oracle and predicate calls to the predicate libraries.
package eval

import (
	"fmt"

	"github.com/MaGaroo/isla/tree"
)

// Binding is one bound value of an assignment: a subtree of the evaluated
// tree, addressed by its absolute path, or an integer.
type Binding struct {
	IsInt bool
	Int   int
	Path  tree.Path
}

func TreeBinding(p tree.Path) Binding {
	return Binding{
		Path: p,
	}
}

func IntBinding(n int) Binding {
	return Binding{
		IsInt: true,
		Int:   n,
	}
}

// Assignment maps variable names to bound values. Assignments are extended
// functionally during quantifier instantiation; the maps themselves are
// never shared across branches.
type Assignment map[string]Binding

func (a Assignment) extend(name string, b Binding) Assignment {
	ext := make(Assignment, len(a)+1)
	for n, v := range a {
		ext[n] = v
	}
	ext[name] = b
	return ext
}

// EvalError reports a malformed assignment: a free variable of the
// evaluated formula has no binding. Unlike oracle or predicate
// uncertainty, this is a programming error, not an UNDEF verdict.
type EvalError struct {
	Name string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("missing binding for variable %v", e.Name)
}
