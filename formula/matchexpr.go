package formula

// MatchExpr constrains the expansions a quantifier binds: a sequence of
// constant text fragments, {<T> v} holes that bind nested subtrees, and
// [optional] sub-patterns matched only when present.
type MatchExpr struct {
	Elements []MatchElement
	src      string
}

func NewMatchExpr(src string, elems []MatchElement) *MatchExpr {
	return &MatchExpr{
		Elements: elems,
		src:      src,
	}
}

// Source returns the match expression exactly as it was written.
func (m *MatchExpr) Source() string {
	return m.src
}

// BindNames returns the names introduced by {<T> v} holes, in order,
// including the ones inside optional sub-patterns.
func (m *MatchExpr) BindNames() []string {
	var names []string
	collectBindNames(m.Elements, &names)
	return names
}

// Binds returns every hole of the expression in order.
func (m *MatchExpr) Binds() []*MatchBind {
	var binds []*MatchBind
	collectBinds(m.Elements, &binds)
	return binds
}

func collectBindNames(elems []MatchElement, names *[]string) {
	for _, e := range elems {
		switch e := e.(type) {
		case *MatchBind:
			*names = append(*names, e.Name)
		case *MatchOptional:
			collectBindNames(e.Elements, names)
		}
	}
}

func collectBinds(elems []MatchElement, binds *[]*MatchBind) {
	for _, e := range elems {
		switch e := e.(type) {
		case *MatchBind:
			*binds = append(*binds, e)
		case *MatchOptional:
			collectBinds(e.Elements, binds)
		}
	}
}

type MatchElement interface {
	isMatchElement()
}

// MatchText is a constant terminal fragment.
type MatchText struct {
	Text string
}

// MatchBind is a {<Type> Name} hole binding the matched subtree.
type MatchBind struct {
	Type string
	Name string
}

// MatchOptional is an [ ... ] sub-pattern matched iff present.
type MatchOptional struct {
	Elements []MatchElement
}

func (*MatchText) isMatchElement()     {}
func (*MatchBind) isMatchElement()     {}
func (*MatchOptional) isMatchElement() {}
