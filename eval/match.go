package eval

import (
	"strings"

	"github.com/MaGaroo/isla/formula"
	"github.com/MaGaroo/isla/tree"
)

// matchSubtree matches the node at the candidate path against a match
// expression. On success it returns the absolute paths the {<T> v} holes
// bound. The elements are aligned with the candidate's direct children;
// a hole accepts a child of its type, descending through single-child
// expansion chains when necessary.
func (e *evaluator) matchSubtree(p tree.Path, m *formula.MatchExpr) (map[string]tree.Path, bool) {
	id, ok := e.root.At(p)
	if !ok {
		return nil, false
	}
	children := e.root.Children(id)
	paths := make([]tree.Path, len(children))
	for i := range children {
		paths[i] = p.Child(i)
	}
	binds := map[string]tree.Path{}
	if !e.matchElems(m.Elements, paths, binds) {
		return nil, false
	}
	return binds, true
}

func (e *evaluator) matchElems(elems []formula.MatchElement, nodes []tree.Path, binds map[string]tree.Path) bool {
	if len(elems) == 0 {
		return len(nodes) == 0
	}
	switch el := elems[0].(type) {
	case *formula.MatchText:
		rest, ok := e.consumeText(el.Text, nodes)
		if !ok {
			return false
		}
		return e.matchElems(elems[1:], rest, binds)
	case *formula.MatchBind:
		if len(nodes) == 0 {
			return false
		}
		target, ok := e.resolveHole(nodes[0], el.Type)
		if !ok {
			return false
		}
		binds[el.Name] = target
		if e.matchElems(elems[1:], nodes[1:], binds) {
			return true
		}
		delete(binds, el.Name)
		return false
	case *formula.MatchOptional:
		// try with the optional contents present, then without
		with := make([]formula.MatchElement, 0, len(el.Elements)+len(elems)-1)
		with = append(with, el.Elements...)
		with = append(with, elems[1:]...)
		if e.matchElems(with, nodes, binds) {
			return true
		}
		return e.matchElems(elems[1:], nodes, binds)
	}
	return false
}

// consumeText consumes whole leading nodes whose concatenated yields equal
// the text. Partial consumption of a node would cut across the tree
// structure and never matches.
func (e *evaluator) consumeText(text string, nodes []tree.Path) ([]tree.Path, bool) {
	for text != "" {
		if len(nodes) == 0 {
			return nil, false
		}
		sub, ok := e.root.Subtree(nodes[0])
		if !ok {
			return nil, false
		}
		y := sub.Yield()
		if !strings.HasPrefix(text, y) || y == "" {
			return nil, false
		}
		text = text[len(y):]
		nodes = nodes[1:]
	}
	return nodes, true
}

// resolveHole accepts a node for a {<T> v} hole: the node itself when it
// carries the hole's type, or the end of a single-child expansion chain
// that reaches one.
func (e *evaluator) resolveHole(p tree.Path, typ string) (tree.Path, bool) {
	for {
		id, ok := e.root.At(p)
		if !ok {
			return nil, false
		}
		if !e.root.IsNonTerminal(id) {
			return nil, false
		}
		if e.root.Label(id) == typ {
			return p, true
		}
		if len(e.root.Children(id)) != 1 {
			return nil, false
		}
		p = p.Child(0)
	}
}
