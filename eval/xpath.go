package eval

import (
	"github.com/MaGaroo/isla/formula"
	"github.com/MaGaroo/isla/tree"
)

// resolveXPath returns the paths of all nodes the expression selects under
// the assignment, in pre-order. A variable base resolves through the
// assignment; a non-terminal-type base starts from every node of that type
// in the evaluated tree.
func (e *evaluator) resolveXPath(x *formula.XPath, a Assignment) ([]tree.Path, error) {
	var cur []tree.Path
	if x.BaseIsType {
		cur = e.root.DescendantsOfType(x.Base)
	} else {
		b, ok := a[x.Base]
		if !ok {
			return nil, &EvalError{Name: x.Base}
		}
		if b.IsInt {
			return nil, &EvalError{Name: x.Base}
		}
		cur = []tree.Path{b.Path}
	}

	for _, seg := range x.Segments {
		var next []tree.Path
		for _, p := range cur {
			next = append(next, e.resolveSegment(p, seg)...)
		}
		cur = next
	}
	return cur, nil
}

func (e *evaluator) resolveSegment(p tree.Path, seg formula.XPathSegment) []tree.Path {
	var matched []tree.Path
	if seg.Descend {
		sub, ok := e.root.Subtree(p)
		if !ok {
			return nil
		}
		for _, d := range sub.DescendantsOfType(seg.Type) {
			if len(d) == 0 {
				// ..<T> selects proper descendants only
				continue
			}
			matched = append(matched, append(p.Clone(), d...))
		}
	} else {
		id, ok := e.root.At(p)
		if !ok {
			return nil
		}
		for i, c := range e.root.Children(id) {
			if e.root.IsNonTerminal(c) && e.root.Label(c) == seg.Type {
				matched = append(matched, p.Child(i))
			}
		}
	}
	if seg.Index > 0 {
		if seg.Index > len(matched) {
			return nil
		}
		return matched[seg.Index-1 : seg.Index]
	}
	return matched
}
