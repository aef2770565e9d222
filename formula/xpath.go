package formula

import (
	"fmt"
	"strings"
)

// XPath selects nodes of declared non-terminal types relative to a base: a
// variable or a non-terminal type, followed by one or more segments.
type XPath struct {
	Base string
	// BaseIsType marks a non-terminal-type base (<expr>..<id>) as opposed
	// to a variable base (x.<id>).
	BaseIsType bool
	Segments   []XPathSegment
}

// XPathSegment restricts the reachable node set: .<T> selects direct <T>
// children, .<T>[k] the k-th of them (1-based), and ..<T> every transitive
// <T> descendant.
type XPathSegment struct {
	Type    string
	Index   int // 1-based child selector, 0 when absent
	Descend bool
}

func (x *XPath) String() string {
	var b strings.Builder
	if x.BaseIsType {
		fmt.Fprintf(&b, "<%v>", x.Base)
	} else {
		b.WriteString(x.Base)
	}
	for _, seg := range x.Segments {
		if seg.Descend {
			b.WriteString("..")
		} else {
			b.WriteString(".")
		}
		fmt.Fprintf(&b, "<%v>", seg.Type)
		if seg.Index > 0 {
			fmt.Fprintf(&b, "[%v]", seg.Index)
		}
	}
	return b.String()
}

// TargetType is the non-terminal type of the nodes the expression selects.
func (x *XPath) TargetType() string {
	if len(x.Segments) == 0 {
		return x.Base
	}
	return x.Segments[len(x.Segments)-1].Type
}
