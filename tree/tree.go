// Package tree implements derivation trees over a reference grammar.
//
// All nodes of a tree live in a contiguous arena and refer to their children
// by index, so a subtree is just a root index into a shared arena and taking
// one copies no nodes. Trees are immutable once constructed.
package tree

import "strings"

// NodeID indexes a node within a tree's arena.
type NodeID int

type node struct {
	label    string
	nonTerm  bool
	children []NodeID
	// expanded distinguishes a non-terminal expanded to zero symbols from
	// an open node that has not been expanded at all.
	expanded bool
}

// Tree is a rooted, ordered derivation tree. Every node carries either a
// non-terminal label or a terminal literal. A non-terminal node without an
// expansion is open; a tree all of whose leaves are terminals is closed.
type Tree struct {
	nodes []node
	root  NodeID
}

// NewTerminal returns a tree consisting of a single terminal node.
func NewTerminal(text string) *Tree {
	return &Tree{
		nodes: []node{{label: text}},
	}
}

// NewOpen returns a tree consisting of a single unexpanded non-terminal.
func NewOpen(label string) *Tree {
	return &Tree{
		nodes: []node{{label: label, nonTerm: true}},
	}
}

// NewNonTerminal returns a tree whose root is a non-terminal expanded to the
// given children. Zero children represent an epsilon expansion.
func NewNonTerminal(label string, children ...*Tree) *Tree {
	t := &Tree{
		nodes: []node{{label: label, nonTerm: true, expanded: true}},
	}
	for _, c := range children {
		id := t.graft(c, c.root)
		t.nodes[0].children = append(t.nodes[0].children, id)
	}
	return t
}

// graft copies the subtree of src rooted at id into t's arena and returns
// the new root's ID.
func (t *Tree) graft(src *Tree, id NodeID) NodeID {
	n := src.nodes[id]
	copied := node{
		label:    n.label,
		nonTerm:  n.nonTerm,
		expanded: n.expanded,
	}
	nid := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, copied)
	for _, c := range n.children {
		cid := t.graft(src, c)
		t.nodes[nid].children = append(t.nodes[nid].children, cid)
	}
	return nid
}

// Root returns the ID of the root node.
func (t *Tree) Root() NodeID {
	return t.root
}

// Label returns the node's non-terminal name or terminal text.
func (t *Tree) Label(id NodeID) string {
	return t.nodes[id].label
}

// IsNonTerminal reports whether the node is labelled with a non-terminal.
func (t *Tree) IsNonTerminal(id NodeID) bool {
	return t.nodes[id].nonTerm
}

// IsOpen reports whether the node is an unexpanded non-terminal.
func (t *Tree) IsOpen(id NodeID) bool {
	n := t.nodes[id]
	return n.nonTerm && !n.expanded
}

// Children returns the node's child IDs in order.
func (t *Tree) Children(id NodeID) []NodeID {
	return t.nodes[id].children
}

// At resolves a path relative to the root.
func (t *Tree) At(p Path) (NodeID, bool) {
	id := t.root
	for _, i := range p {
		cs := t.nodes[id].children
		if i < 0 || i >= len(cs) {
			return 0, false
		}
		id = cs[i]
	}
	return id, true
}

// Subtree returns the subtree rooted at a path. The result shares t's arena.
func (t *Tree) Subtree(p Path) (*Tree, bool) {
	id, ok := t.At(p)
	if !ok {
		return nil, false
	}
	return t.SubtreeAt(id), true
}

// SubtreeAt returns the subtree rooted at a node. The result shares t's arena.
func (t *Tree) SubtreeAt(id NodeID) *Tree {
	return &Tree{
		nodes: t.nodes,
		root:  id,
	}
}

// Yield concatenates the terminal labels of the tree in left-to-right order.
func (t *Tree) Yield() string {
	var b strings.Builder
	t.yield(t.root, &b)
	return b.String()
}

func (t *Tree) yield(id NodeID, b *strings.Builder) {
	n := t.nodes[id]
	if !n.nonTerm {
		b.WriteString(n.label)
		return
	}
	for _, c := range n.children {
		t.yield(c, b)
	}
}

// Walk visits every node in pre-order, which coincides with the
// lexicographic order of the visited paths. Returning false from fn stops
// the walk.
func (t *Tree) Walk(fn func(p Path, id NodeID) bool) {
	t.walk(t.root, Path{}, fn)
}

func (t *Tree) walk(id NodeID, p Path, fn func(p Path, id NodeID) bool) bool {
	if !fn(p, id) {
		return false
	}
	for i, c := range t.nodes[id].children {
		if !t.walk(c, p.Child(i), fn) {
			return false
		}
	}
	return true
}

// PathNode pairs a node with its path for Paths.
type PathNode struct {
	Path Path
	ID   NodeID
}

// Paths lists every (path, node) pair in pre-order.
func (t *Tree) Paths() []PathNode {
	var ps []PathNode
	t.Walk(func(p Path, id NodeID) bool {
		ps = append(ps, PathNode{Path: p.Clone(), ID: id})
		return true
	})
	return ps
}

// DescendantsOfType returns the paths of all nodes labelled with the given
// non-terminal, in pre-order. The root itself is included when it matches.
func (t *Tree) DescendantsOfType(label string) []Path {
	var ps []Path
	t.Walk(func(p Path, id NodeID) bool {
		n := t.nodes[id]
		if n.nonTerm && n.label == label {
			ps = append(ps, p.Clone())
		}
		return true
	})
	return ps
}

// IsClosed reports whether all leaves are terminals.
func (t *Tree) IsClosed() bool {
	closed := true
	t.Walk(func(p Path, id NodeID) bool {
		if t.IsOpen(id) {
			closed = false
			return false
		}
		return true
	})
	return closed
}

// Equal reports structural equality over labels and children.
func (t *Tree) Equal(u *Tree) bool {
	if t == nil || u == nil {
		return t == u
	}
	return t.equal(t.root, u, u.root)
}

func (t *Tree) equal(id NodeID, u *Tree, uid NodeID) bool {
	n := t.nodes[id]
	m := u.nodes[uid]
	if n.label != m.label || n.nonTerm != m.nonTerm || n.expanded != m.expanded {
		return false
	}
	if len(n.children) != len(m.children) {
		return false
	}
	for i := range n.children {
		if !t.equal(n.children[i], u, m.children[i]) {
			return false
		}
	}
	return true
}
