package formula

// FreeVars computes the free-variable set of a formula structurally: atoms
// contribute their non-reserved identifiers and XPath roots, quantifiers
// subtract their binder and match-expression names, combinators union. The
// result preserves first-occurrence order.
func FreeVars(f Formula) []string {
	var names []string
	seen := map[string]struct{}{}
	add := func(n string) {
		if n == "" {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	collectFreeVars(f, map[string]struct{}{}, add)
	return names
}

func collectFreeVars(f Formula, bound map[string]struct{}, add func(string)) {
	emit := func(n string) {
		if _, ok := bound[n]; !ok {
			add(n)
		}
	}
	switch f := f.(type) {
	case *SmtAtom:
		for _, id := range f.FreeIDs {
			if x, ok := f.XPaths[id]; ok {
				emit(xpathRoot(x))
				continue
			}
			emit(id)
		}
	case *StructPredAtom:
		collectArgVars(f.Args, emit)
	case *SemPredAtom:
		collectArgVars(f.Args, emit)
	case *Not:
		collectFreeVars(f.Operand, bound, add)
	case *Binary:
		collectFreeVars(f.Left, bound, add)
		collectFreeVars(f.Right, bound, add)
	case *Quantifier:
		if f.In != "" {
			emit(f.In)
		}
		inner := extendBound(bound, f.BoundName)
		if f.Match != nil {
			for _, n := range f.Match.BindNames() {
				inner[n] = struct{}{}
			}
		}
		collectFreeVars(f.Body, inner, add)
	case *IntQuantifier:
		inner := extendBound(bound, f.BoundName)
		collectFreeVars(f.Body, inner, add)
	}
}

func collectArgVars(args []*Arg, emit func(string)) {
	for _, a := range args {
		switch a.Kind {
		case ArgKindVariable:
			emit(a.Name)
		case ArgKindXPath:
			emit(xpathRoot(a.XPath))
		}
	}
}

// xpathRoot is the name an XPath contributes to the free-variable set: the
// base variable, or the <T> spelling for a non-terminal-type base.
func xpathRoot(x *XPath) string {
	if x.BaseIsType {
		return "<" + x.Base + ">"
	}
	return x.Base
}

func extendBound(bound map[string]struct{}, name string) map[string]struct{} {
	inner := make(map[string]struct{}, len(bound)+1)
	for n := range bound {
		inner[n] = struct{}{}
	}
	if name != "" {
		inner[name] = struct{}{}
	}
	return inner
}
