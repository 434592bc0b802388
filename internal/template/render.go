package template

import (
	"strconv"
	"strings"

	"github.com/conneroisu/componentry/internal/values"
)

// scope is one level of each iteration. The outermost scope has the root
// data as its item and no index.
type scope struct {
	root   any
	item   any
	index  int
	inEach bool
}

type builder = strings.Builder

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Escape replaces the HTML-reserved characters & < > " ' with entities.
func Escape(s string) string {
	return escaper.Replace(s)
}

// resolve looks a path up in the current scope. this and @index refer to
// the innermost each; every other path is resolved against the root data.
func (s *scope) resolve(path string) any {
	switch {
	case path == "@index":
		if !s.inEach {
			return nil
		}
		return s.index
	case path == "this":
		return s.item
	case strings.HasPrefix(path, "this."):
		v, _ := values.Lookup(s.item, path[len("this."):])
		return v
	}
	v, _ := values.Lookup(s.root, path)
	return v
}

func (n *textNode) render(_ *scope, b *builder) {
	b.WriteString(n.text)
}

func (n *varNode) render(s *scope, b *builder) {
	v := s.resolve(n.path)
	if n.path == "@index" && v != nil {
		b.WriteString(strconv.Itoa(v.(int)))
		return
	}
	out := values.Stringify(v)
	if !n.raw {
		out = Escape(out)
	}
	b.WriteString(out)
}

func (n *blockNode) render(s *scope, b *builder) {
	v := s.resolve(n.path)
	switch n.kind {
	case blockIf:
		if values.Truthy(v) {
			renderNodes(n.body, s, b)
		}
	case blockUnless:
		if !values.Truthy(v) {
			renderNodes(n.body, s, b)
		}
	case blockEach:
		items, ok := values.Slice(v)
		if !ok {
			return
		}
		for i, item := range items {
			renderNodes(n.body, &scope{root: s.root, item: item, index: i, inEach: true}, b)
		}
	}
}

func renderNodes(nodes []node, s *scope, b *builder) {
	for _, n := range nodes {
		n.render(s, b)
	}
}
