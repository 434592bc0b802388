package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Selector is a parsed selector list. It supports compound selectors made of
// a tag name, #id, .class and [attr], [attr=value] parts, the descendant
// combinator (whitespace) and comma-separated alternatives.
type Selector struct {
	alternatives [][]compound
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	name     string
	value    string
	hasValue bool
}

// ParseSelector parses sel.
func ParseSelector(sel string) (*Selector, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return nil, fmt.Errorf("empty selector")
	}
	s := &Selector{}
	for _, alt := range strings.Split(sel, ",") {
		fields := strings.Fields(alt)
		if len(fields) == 0 {
			return nil, fmt.Errorf("empty selector in list %q", sel)
		}
		chain := make([]compound, 0, len(fields))
		for _, f := range fields {
			c, err := parseCompound(f)
			if err != nil {
				return nil, err
			}
			chain = append(chain, c)
		}
		s.alternatives = append(s.alternatives, chain)
	}
	return s, nil
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	readIdent := func() string {
		start := i
		for i < len(s) && !strings.ContainsRune("#.[", rune(s[i])) {
			i++
		}
		return s[start:i]
	}
	c.tag = strings.ToLower(readIdent())
	if c.tag == "*" {
		c.tag = ""
	}
	for i < len(s) {
		switch s[i] {
		case '#':
			i++
			c.id = readIdent()
			if c.id == "" {
				return c, fmt.Errorf("empty id in selector %q", s)
			}
		case '.':
			i++
			class := readIdent()
			if class == "" {
				return c, fmt.Errorf("empty class in selector %q", s)
			}
			c.classes = append(c.classes, class)
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute selector %q", s)
			}
			body := s[i+1 : i+end]
			i += end + 1
			m := attrMatch{}
			if eq := strings.IndexByte(body, '='); eq >= 0 {
				m.name = strings.ToLower(strings.TrimSpace(body[:eq]))
				m.value = strings.Trim(strings.TrimSpace(body[eq+1:]), `"'`)
				m.hasValue = true
			} else {
				m.name = strings.ToLower(strings.TrimSpace(body))
			}
			if m.name == "" {
				return c, fmt.Errorf("empty attribute name in selector %q", s)
			}
			c.attrs = append(c.attrs, m)
		default:
			return c, fmt.Errorf("unexpected %q in selector %q", s[i], s)
		}
	}
	return c, nil
}

// Match reports whether n matches any alternative.
func (s *Selector) Match(n *html.Node) bool {
	for _, chain := range s.alternatives {
		if matchChain(n, chain) {
			return true
		}
	}
	return false
}

func matchChain(n *html.Node, chain []compound) bool {
	last := len(chain) - 1
	if !chain[last].match(n) {
		return false
	}
	cur := n.Parent
	for i := last - 1; i >= 0; i-- {
		for cur != nil && !(cur.Type == html.ElementNode && chain[i].match(cur)) {
			cur = cur.Parent
		}
		if cur == nil {
			return false
		}
		cur = cur.Parent
	}
	return true
}

func (c compound) match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" {
		if v, _ := attr(n, "id"); v != c.id {
			return false
		}
	}
	if len(c.classes) > 0 {
		have := strings.Fields(func() string { v, _ := attr(n, "class"); return v }())
		for _, want := range c.classes {
			if !containsString(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		v, ok := attr(n, a.name)
		if !ok || a.hasValue && v != a.value {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
