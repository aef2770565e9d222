package tree

import (
	"bytes"
	"fmt"
	"strings"
)

// The description format is a parenthesised rendition of a derivation tree:
//
//	(<assgn> (<var> "a") " := " (<rhs> (<digit> "1")))
//
// A parenthesised group is an expanded non-terminal, a bare <name> is an
// open node, and a quoted string is a terminal leaf. String escapes are the
// same six recognised everywhere else: \b \t \n \r \" \\.

// ParseDescription parses the textual tree-description format.
func ParseDescription(src string) (*Tree, error) {
	p := &descParser{src: []rune(src)}
	t, err := p.parseTree()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if !p.eof() {
		return nil, fmt.Errorf("tree description: unexpected trailing character %q", p.src[p.pos])
	}
	return t, nil
}

type descParser struct {
	src []rune
	pos int
}

func (p *descParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *descParser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *descParser) skipSpaces() {
	for !p.eof() {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		break
	}
}

func (p *descParser) parseTree() (*Tree, error) {
	p.skipSpaces()
	if p.eof() {
		return nil, fmt.Errorf("tree description: unexpected EOF")
	}
	switch p.peek() {
	case '(':
		p.pos++
		label, err := p.parseNonTerminal()
		if err != nil {
			return nil, err
		}
		var children []*Tree
		for {
			p.skipSpaces()
			if p.eof() {
				return nil, fmt.Errorf("tree description: unclosed group for <%v>", label)
			}
			if p.peek() == ')' {
				p.pos++
				break
			}
			c, err := p.parseTree()
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		return NewNonTerminal(label, children...), nil
	case '<':
		label, err := p.parseNonTerminal()
		if err != nil {
			return nil, err
		}
		return NewOpen(label), nil
	case '"':
		text, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return NewTerminal(text), nil
	default:
		return nil, fmt.Errorf("tree description: unexpected character %q", p.peek())
	}
}

func (p *descParser) parseNonTerminal() (string, error) {
	p.skipSpaces()
	if p.eof() || p.peek() != '<' {
		return "", fmt.Errorf("tree description: a non-terminal symbol is missing")
	}
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return "", fmt.Errorf("tree description: unclosed non-terminal symbol")
		}
		c := p.src[p.pos]
		p.pos++
		if c == '>' {
			break
		}
		if c == '<' || c == '\n' {
			return "", fmt.Errorf("tree description: unclosed non-terminal symbol")
		}
		b.WriteRune(c)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("tree description: a non-terminal symbol must include at least one character")
	}
	return b.String(), nil
}

func (p *descParser) parseString() (string, error) {
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return "", fmt.Errorf("tree description: unclosed string")
		}
		c := p.src[p.pos]
		p.pos++
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			if p.eof() {
				return "", fmt.Errorf("tree description: incompleted escape sequence")
			}
			e := p.src[p.pos]
			p.pos++
			switch e {
			case 'b':
				b.WriteRune('\b')
			case 't':
				b.WriteRune('\t')
			case 'n':
				b.WriteRune('\n')
			case 'r':
				b.WriteRune('\r')
			case '"':
				b.WriteRune('"')
			case '\\':
				b.WriteRune('\\')
			default:
				return "", fmt.Errorf("tree description: invalid escape sequence \\%v", string(e))
			}
		default:
			b.WriteRune(c)
		}
	}
}

// Format renders the tree in the description format, indented one level per
// depth so that trees diff readably.
func (t *Tree) Format() []byte {
	var b bytes.Buffer
	t.format(&b, t.root, 0)
	return b.Bytes()
}

func (t *Tree) format(buf *bytes.Buffer, id NodeID, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("    ")
	}
	n := t.nodes[id]
	if !n.nonTerm {
		buf.WriteString(quoteTerminal(n.label))
		return
	}
	if !n.expanded {
		fmt.Fprintf(buf, "<%v>", n.label)
		return
	}
	fmt.Fprintf(buf, "(<%v>", n.label)
	for _, c := range n.children {
		buf.WriteString("\n")
		t.format(buf, c, depth+1)
	}
	buf.WriteString(")")
}

func quoteTerminal(text string) string {
	var b strings.Builder
	b.WriteString(`"`)
	for _, c := range text {
		switch c {
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteString(`"`)
	return b.String()
}

// Diff describes one structural mismatch between two trees.
type Diff struct {
	ExpectedPath string
	ActualPath   string
	Message      string
}

func newDiff(p Path, message string) *Diff {
	return &Diff{
		ExpectedPath: p.String(),
		ActualPath:   p.String(),
		Message:      message,
	}
}

// DiffTree compares two trees structurally and reports every mismatch with
// the path it occurred at. The non-terminal label _ matches any label.
func DiffTree(expected, actual *Tree) []*Diff {
	if expected == nil && actual == nil {
		return nil
	}
	return diffTree(expected, expected.root, actual, actual.root, Path{})
}

func diffTree(expected *Tree, eid NodeID, actual *Tree, aid NodeID, p Path) []*Diff {
	e := expected.nodes[eid]
	a := actual.nodes[aid]
	if e.nonTerm != a.nonTerm {
		return []*Diff{newDiff(p, fmt.Sprintf("unexpected node: expected %v but got %v", describeNode(e), describeNode(a)))}
	}
	if !(e.nonTerm && e.label == "_") && e.label != a.label {
		return []*Diff{newDiff(p, fmt.Sprintf("unexpected label: expected '%v' but got '%v'", e.label, a.label))}
	}
	if len(e.children) != len(a.children) {
		return []*Diff{newDiff(p, fmt.Sprintf("unexpected node count: expected %v but got %v", len(e.children), len(a.children)))}
	}
	var diffs []*Diff
	for i := range e.children {
		if ds := diffTree(expected, e.children[i], actual, a.children[i], p.Child(i)); len(ds) > 0 {
			diffs = append(diffs, ds...)
		}
	}
	return diffs
}

func describeNode(n node) string {
	if n.nonTerm {
		return fmt.Sprintf("a non-terminal <%v>", n.label)
	}
	return fmt.Sprintf("a terminal %q", n.label)
}
