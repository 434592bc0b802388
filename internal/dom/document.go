// Package dom provides an in-memory HTML document built on golang.org/x/net/html
// with the small slice of browser DOM behaviour the component runtime needs:
// element lookup, innerHTML/textContent, form properties, class and style
// manipulation, bubbling custom events and a queued mutation observer.
//
// A Document is not safe for concurrent use; it is owned by one runtime.
package dom

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document wraps a parsed HTML tree.
type Document struct {
	root      *html.Node
	data      map[*html.Node]*nodeData
	listeners map[string][]*listener
	observers []*observer
	pending   []MutationRecord
	nextID    int

	// OnListenerPanic receives values recovered from panicking listeners and
	// observers. Dispatch continues with the remaining listeners either way.
	OnListenerPanic func(eventType string, recovered any)
}

type nodeData struct {
	elem      *Element
	props     map[string]any
	listeners map[string][]*listener
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return newDocument(root), nil
}

// ParseString is Parse for an in-memory string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// NewDocument returns an empty document with head and body.
func NewDocument() *Document {
	doc, _ := ParseString("<!DOCTYPE html><html><head></head><body></body></html>")
	return doc
}

func newDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		data:      make(map[*html.Node]*nodeData),
		listeners: make(map[string][]*listener),
	}
}

// Root returns the underlying document node.
func (d *Document) Root() *html.Node {
	return d.root
}

func (d *Document) dataFor(n *html.Node) *nodeData {
	nd, ok := d.data[n]
	if !ok {
		nd = &nodeData{}
		d.data[n] = nd
	}
	return nd
}

// wrap returns the canonical Element for n so wrappers compare by pointer.
func (d *Document) wrap(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	nd := d.dataFor(n)
	if nd.elem == nil {
		nd.elem = &Element{node: n, doc: d}
	}
	return nd.elem
}

// Wrap exposes an html.Node of this document as an Element.
func (d *Document) Wrap(n *html.Node) *Element {
	return d.wrap(n)
}

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *Element {
	return d.findFirst(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Html })
}

// Head returns the <head> element.
func (d *Document) Head() *Element {
	return d.findFirst(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Head })
}

// Body returns the <body> element.
func (d *Document) Body() *Element {
	return d.findFirst(d.root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
}

// GetElementByID finds the first element whose id attribute equals id.
func (d *Document) GetElementByID(id string) *Element {
	if id == "" {
		return nil
	}
	return d.findFirst(d.root, func(n *html.Node) bool {
		v, ok := attr(n, "id")
		return ok && v == id
	})
}

// QuerySelector returns the first element matching sel.
func (d *Document) QuerySelector(sel string) *Element {
	all := d.QuerySelectorAll(sel)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// QuerySelectorAll returns all elements matching sel in document order.
func (d *Document) QuerySelectorAll(sel string) []*Element {
	s, err := ParseSelector(sel)
	if err != nil {
		return nil
	}
	return d.collect(d.root, s.Match)
}

// ElementsWithAttribute returns all elements carrying the attribute name.
func (d *Document) ElementsWithAttribute(name string) []*Element {
	return d.collect(d.root, func(n *html.Node) bool {
		_, ok := attr(n, name)
		return ok
	})
}

// CreateElement builds a detached element.
func (d *Document) CreateElement(tag string) *Element {
	tag = strings.ToLower(tag)
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return d.wrap(n)
}

// UniqueID returns an id not used by any element in the document.
func (d *Document) UniqueID(prefix string) string {
	for {
		d.nextID++
		id := prefix + "-" + strconv.Itoa(d.nextID)
		if d.GetElementByID(id) == nil {
			return id
		}
	}
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// HTML renders the document to a string.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}

func (d *Document) findFirst(from *html.Node, pred func(*html.Node) bool) *Element {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && pred(c) {
				found = c
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(from)
	return d.wrap(found)
}

func (d *Document) collect(from *html.Node, pred func(*html.Node) bool) []*Element {
	var out []*Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && pred(c) {
				out = append(out, d.wrap(c))
			}
			walk(c)
		}
	}
	walk(from)
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
