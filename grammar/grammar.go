package grammar

import (
	"fmt"

	verr "github.com/MaGaroo/isla/error"
)

// StartSymbol is the conventional start symbol of a reference grammar.
const StartSymbol = "start"

// Symbol is one element of an alternative: either a terminal literal or a
// reference to a non-terminal. Non-terminal values are stored without the
// surrounding angle brackets.
type Symbol struct {
	value   string
	nonTerm bool
}

func NewNonTerminal(name string) Symbol {
	return Symbol{
		value:   name,
		nonTerm: true,
	}
}

func NewTerminal(text string) Symbol {
	return Symbol{
		value: text,
	}
}

func (s Symbol) IsNonTerminal() bool {
	return s.nonTerm
}

func (s Symbol) IsTerminal() bool {
	return !s.nonTerm
}

// Value returns the non-terminal name or the terminal text.
func (s Symbol) Value() string {
	return s.value
}

func (s Symbol) String() string {
	if s.nonTerm {
		return fmt.Sprintf("<%v>", s.value)
	}
	return fmt.Sprintf("%q", s.value)
}

// Alternative is one ordered expansion of a non-terminal.
type Alternative []Symbol

// Grammar is an immutable BNF reference grammar: an ordered mapping from
// non-terminal names to their alternatives, with a designated start symbol.
type Grammar struct {
	start string
	order []string
	alts  map[string][]Alternative

	children    map[string]map[string]struct{}
	descendants map[string]map[string]struct{}
}

// build merges the parsed rules into a Grammar and validates it. A
// non-terminal defined more than once has the later alternatives appended,
// preserving order. Duplicate alternatives are retained.
func build(rules []*RuleNode) (*Grammar, error) {
	var errs verr.SpecErrors
	if len(rules) == 0 {
		errs = append(errs, &verr.SpecError{
			Cause: semErrEmptyGrammar,
		})
		return nil, errs
	}

	g := &Grammar{
		start: StartSymbol,
		alts:  map[string][]Alternative{},
	}
	for _, rule := range rules {
		if _, defined := g.alts[rule.LHS]; !defined {
			g.order = append(g.order, rule.LHS)
		}
		for _, alt := range rule.RHS {
			g.alts[rule.LHS] = append(g.alts[rule.LHS], Alternative(alt.Symbols))
		}
	}

	for _, rule := range rules {
		for _, alt := range rule.RHS {
			for _, sym := range alt.Symbols {
				if !sym.IsNonTerminal() {
					continue
				}
				if _, defined := g.alts[sym.Value()]; !defined {
					errs = append(errs, &verr.SpecError{
						Cause:  semErrUndefinedNonTerminal,
						Detail: fmt.Sprintf("<%v>", sym.Value()),
						Row:    alt.Row,
						Col:    alt.Col,
					})
				}
			}
		}
	}
	if _, defined := g.alts[g.start]; !defined {
		errs = append(errs, &verr.SpecError{
			Cause:  semErrNoStartSymbol,
			Detail: fmt.Sprintf("<%v>", g.start),
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	g.children = map[string]map[string]struct{}{}
	for _, n := range g.order {
		cs := map[string]struct{}{}
		for _, alt := range g.alts[n] {
			for _, sym := range alt {
				if sym.IsNonTerminal() {
					cs[sym.Value()] = struct{}{}
				}
			}
		}
		g.children[n] = cs
	}
	g.descendants = map[string]map[string]struct{}{}
	for _, n := range g.order {
		ds := map[string]struct{}{}
		collectDescendants(g.children, n, ds)
		g.descendants[n] = ds
	}

	return g, nil
}

func collectDescendants(children map[string]map[string]struct{}, n string, ds map[string]struct{}) {
	for c := range children[n] {
		if _, seen := ds[c]; seen {
			continue
		}
		ds[c] = struct{}{}
		collectDescendants(children, c, ds)
	}
}

// Start returns the start symbol's name.
func (g *Grammar) Start() string {
	return g.start
}

// Nonterminals returns all defined non-terminal names in definition order.
func (g *Grammar) Nonterminals() []string {
	ns := make([]string, len(g.order))
	copy(ns, g.order)
	return ns
}

// Rules returns the alternatives of a non-terminal in definition order.
func (g *Grammar) Rules(n string) ([]Alternative, bool) {
	alts, ok := g.alts[n]
	return alts, ok
}

// IsDefined reports whether a non-terminal has a definition.
func (g *Grammar) IsDefined(n string) bool {
	_, ok := g.alts[n]
	return ok
}

// ChildType reports whether c occurs as a direct RHS non-terminal of n.
func (g *Grammar) ChildType(n, c string) bool {
	_, ok := g.children[n][c]
	return ok
}

// Reachable reports whether d is a proper descendant type of n, that is,
// whether some derivation starting at n produces a d node below the root.
func (g *Grammar) Reachable(n, d string) bool {
	_, ok := g.descendants[n][d]
	return ok
}

// ReachableSet returns all descendant types of n.
func (g *Grammar) ReachableSet(n string) []string {
	var ds []string
	for _, m := range g.order {
		if g.Reachable(n, m) {
			ds = append(ds, m)
		}
	}
	return ds
}
