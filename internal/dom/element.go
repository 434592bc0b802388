package dom

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/componentry/internal/values"
)

// Element is an element node of a Document. Each node has exactly one
// Element wrapper, so wrappers can be compared with ==.
type Element struct {
	node *html.Node
	doc  *Document
}

// booleanAttributes reflect a boolean property as attribute presence.
var booleanAttributes = map[string]bool{
	"checked":  true,
	"disabled": true,
	"hidden":   true,
	"selected": true,
	"readonly": true,
	"required": true,
	"multiple": true,
}

// Node returns the underlying html node.
func (e *Element) Node() *html.Node { return e.node }

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// TagName returns the lower-case tag name.
func (e *Element) TagName() string { return e.node.Data }

// ID returns the id attribute.
func (e *Element) ID() string {
	v, _ := attr(e.node, "id")
	return v
}

// SetID sets the id attribute.
func (e *Element) SetID(id string) { e.SetAttribute("id", id) }

// InputType returns the lower-cased type attribute for form controls.
func (e *Element) InputType() string {
	t, ok := attr(e.node, "type")
	if !ok || t == "" {
		if e.node.DataAtom == atom.Input {
			return "text"
		}
		return ""
	}
	return strings.ToLower(t)
}

// IsFormControl reports whether the element is an input, textarea or select.
func (e *Element) IsFormControl() bool {
	switch e.node.DataAtom {
	case atom.Input, atom.Textarea, atom.Select:
		return true
	}
	return false
}

// GetAttribute returns the attribute value or "".
func (e *Element) GetAttribute(name string) string {
	v, _ := attr(e.node, strings.ToLower(name))
	return v
}

// LookupAttribute returns the attribute value and whether it is present.
func (e *Element) LookupAttribute(name string) (string, bool) {
	return attr(e.node, strings.ToLower(name))
}

// HasAttribute reports whether the attribute is present.
func (e *Element) HasAttribute(name string) bool {
	_, ok := attr(e.node, strings.ToLower(name))
	return ok
}

// SetAttribute creates or replaces an attribute.
func (e *Element) SetAttribute(name, value string) {
	name = strings.ToLower(name)
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttribute deletes an attribute if present.
func (e *Element) RemoveAttribute(name string) {
	name = strings.ToLower(name)
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	e.node.Attr = attrs
}

// Attributes returns a copy of the attribute list in source order.
func (e *Element) Attributes() []html.Attribute {
	out := make([]html.Attribute, len(e.node.Attr))
	copy(out, e.node.Attr)
	return out
}

// Parent returns the parent element, or nil at the top or when detached.
func (e *Element) Parent() *Element {
	return e.doc.wrap(e.node.Parent)
}

// Children returns the element children.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// FirstElementChild returns the first element child or nil.
func (e *Element) FirstElementChild() *Element {
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return e.doc.wrap(c)
		}
	}
	return nil
}

// Contains reports whether other is e or a descendant of e.
func (e *Element) Contains(other *Element) bool {
	for n := other.node; n != nil; n = n.Parent {
		if n == e.node {
			return true
		}
	}
	return false
}

// IsConnected reports whether the element is attached to the document tree.
func (e *Element) IsConnected() bool {
	for n := e.node; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

// AppendChild detaches child from its current parent and appends it to e.
func (e *Element) AppendChild(child *Element) {
	e.InsertBefore(child, nil)
}

// Prepend inserts child as the first child of e.
func (e *Element) Prepend(child *Element) {
	first := e.node.FirstChild
	if first == nil {
		e.AppendChild(child)
		return
	}
	e.insertNodeBefore(child.node, first)
}

// InsertBefore inserts child before ref; a nil ref appends.
func (e *Element) InsertBefore(child, ref *Element) {
	var refNode *html.Node
	if ref != nil {
		refNode = ref.node
	}
	e.insertNodeBefore(child.node, refNode)
}

func (e *Element) insertNodeBefore(child, ref *html.Node) {
	if child.Parent != nil {
		e.doc.wrap(child.Parent).removeNode(child)
	}
	e.node.InsertBefore(child, ref)
	e.doc.record(MutationRecord{Target: e, Added: elementsOf(e.doc, []*html.Node{child})})
}

// Remove detaches the element from its parent.
func (e *Element) Remove() {
	if e.node.Parent == nil {
		return
	}
	parent := e.doc.wrap(e.node.Parent)
	if parent == nil {
		e.node.Parent.RemoveChild(e.node)
		return
	}
	parent.removeNode(e.node)
}

func (e *Element) removeNode(n *html.Node) {
	e.node.RemoveChild(n)
	e.doc.record(MutationRecord{Target: e, Removed: elementsOf(e.doc, []*html.Node{n})})
}

// TextContent concatenates all descendant text.
func (e *Element) TextContent() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
			walk(c)
		}
	}
	walk(e.node)
	return b.String()
}

// SetTextContent replaces all children with a single text node.
func (e *Element) SetTextContent(s string) {
	removed := e.clearChildren()
	if s != "" {
		e.node.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
	if len(removed) > 0 {
		e.doc.record(MutationRecord{Target: e, Removed: removed})
	}
}

// InnerHTML serializes the children of e.
func (e *Element) InnerHTML() string {
	var buf bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// OuterHTML serializes e itself.
func (e *Element) OuterHTML() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, e.node)
	return buf.String()
}

// SetInnerHTML parses markup in the context of e and replaces its children.
func (e *Element) SetInnerHTML(markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), e.contextNode())
	if err != nil {
		return err
	}
	removed := e.clearChildren()
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	e.doc.record(MutationRecord{Target: e, Added: elementsOf(e.doc, nodes), Removed: removed})
	return nil
}

// contextNode returns a parse context for fragment parsing. A detached copy is
// used so the parser never observes the live tree.
func (e *Element) contextNode() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: e.node.Data, DataAtom: e.node.DataAtom}
}

func (e *Element) clearChildren() []*Element {
	var removed []*html.Node
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	return elementsOf(e.doc, removed)
}

// QuerySelector returns the first matching descendant.
func (e *Element) QuerySelector(sel string) *Element {
	all := e.QuerySelectorAll(sel)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// QuerySelectorAll returns matching descendants in document order.
func (e *Element) QuerySelectorAll(sel string) []*Element {
	s, err := ParseSelector(sel)
	if err != nil {
		return nil
	}
	return e.doc.collect(e.node, s.Match)
}

// Matches reports whether e matches sel.
func (e *Element) Matches(sel string) bool {
	s, err := ParseSelector(sel)
	if err != nil {
		return false
	}
	return s.Match(e.node)
}

// Value returns the current value of a form control.
func (e *Element) Value() string {
	switch e.node.DataAtom {
	case atom.Textarea:
		return e.TextContent()
	case atom.Select:
		var first *Element
		for _, opt := range e.QuerySelectorAll("option") {
			if first == nil {
				first = opt
			}
			if opt.HasAttribute("selected") {
				return opt.optionValue()
			}
		}
		if first != nil {
			return first.optionValue()
		}
		return ""
	}
	if v, ok := e.doc.dataFor(e.node).props["value"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	v, ok := attr(e.node, "value")
	if !ok {
		switch e.InputType() {
		case "checkbox", "radio":
			return "on"
		}
	}
	return v
}

func (e *Element) optionValue() string {
	if v, ok := attr(e.node, "value"); ok {
		return v
	}
	return strings.TrimSpace(e.TextContent())
}

// SetValue updates a form control value and reflects it into the markup.
func (e *Element) SetValue(v string) {
	switch e.node.DataAtom {
	case atom.Textarea:
		e.SetTextContent(v)
		return
	case atom.Select:
		for _, opt := range e.QuerySelectorAll("option") {
			if opt.optionValue() == v {
				opt.SetAttribute("selected", "")
			} else {
				opt.RemoveAttribute("selected")
			}
		}
		return
	}
	e.setProp("value", v)
	e.SetAttribute("value", v)
}

// Checked reports the checked state of a checkbox or radio.
func (e *Element) Checked() bool {
	return e.HasAttribute("checked")
}

// SetChecked sets the checked state.
func (e *Element) SetChecked(on bool) {
	e.setBoolAttr("checked", on)
}

func (e *Element) setBoolAttr(name string, on bool) {
	if on {
		e.SetAttribute(name, "")
	} else {
		e.RemoveAttribute(name)
	}
}

func (e *Element) setProp(name string, v any) {
	nd := e.doc.dataFor(e.node)
	if nd.props == nil {
		nd.props = make(map[string]any)
	}
	nd.props[name] = v
}

// Property reads a DOM property. Well-known properties map onto the markup;
// anything else lives in a per-element property bag.
func (e *Element) Property(name string) any {
	switch name {
	case "textContent":
		return e.TextContent()
	case "innerHTML":
		return e.InnerHTML()
	case "value":
		return e.Value()
	case "id":
		return e.ID()
	case "className":
		return e.GetAttribute("class")
	}
	if booleanAttributes[name] {
		return e.HasAttribute(name)
	}
	return e.doc.dataFor(e.node).props[name]
}

// SetProperty writes a DOM property using the same mapping as Property.
func (e *Element) SetProperty(name string, v any) error {
	switch name {
	case "textContent":
		e.SetTextContent(values.Stringify(v))
		return nil
	case "innerHTML":
		return e.SetInnerHTML(values.Stringify(v))
	case "value":
		e.SetValue(values.Stringify(v))
		return nil
	case "id":
		e.SetID(values.Stringify(v))
		return nil
	case "className":
		e.SetAttribute("class", values.Stringify(v))
		return nil
	}
	if booleanAttributes[name] {
		e.setBoolAttr(name, values.Truthy(v))
		return nil
	}
	e.setProp(name, v)
	return nil
}
