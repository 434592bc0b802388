package state

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/componentry/internal/dom"
)

func parseDoc(t *testing.T, markup string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(markup)
	require.NoError(t, err)
	return doc
}

func TestBindTextContent(t *testing.T) {
	s, _ := newTestStore()
	el := dom.NewDocument().CreateElement("span")

	s.SetState("c", map[string]any{"user": map[string]any{"name": "Ada"}})
	s.BindToElement("c", "user.name", el, BindOptions{})
	assert.Equal(t, "Ada", el.TextContent(), "initial sync")

	s.SetState("c", map[string]any{"user": map[string]any{"name": "<b>"}})
	assert.Equal(t, "<b>", el.TextContent())
}

func TestBindParentPathAndDescendants(t *testing.T) {
	s, _ := newTestStore()
	whole := dom.NewDocument().CreateElement("pre")
	leaf := dom.NewDocument().CreateElement("span")

	s.BindToElement("c", "user", whole, BindOptions{})
	s.BindToElement("c", "user.name", leaf, BindOptions{})

	s.SetState("c", map[string]any{"user": map[string]any{"name": "A"}})
	assert.Equal(t, `{"name":"A"}`, whole.TextContent())
	assert.Equal(t, "A", leaf.TextContent())

	s.SetState("c", map[string]any{"user": "gone"})
	assert.Equal(t, "gone", whole.TextContent())
	assert.Empty(t, leaf.TextContent())
}

func TestBindAttributeKinds(t *testing.T) {
	doc := parseDoc(t, `<div id="box" class="keep"></div><input id="in"><input id="cb" type="checkbox">`)
	s, _ := newTestStore()
	box := doc.GetElementByID("box")
	in := doc.GetElementByID("in")
	cb := doc.GetElementByID("cb")

	s.SetState("c", map[string]any{
		"html":    "<em>hi</em>",
		"val":     "typed",
		"on":      true,
		"classes": map[string]any{"active": true, "keep": false},
		"styles":  map[string]any{"backgroundColor": "red", "width": nil},
		"tip":     "hello",
		"href":    "/x",
		"hidden":  true,
	})

	s.BindToElement("c", "html", box, BindOptions{Attribute: "innerHTML"})
	assert.Equal(t, "<em>hi</em>", box.InnerHTML())

	s.BindToElement("c", "val", in, BindOptions{Attribute: "value"})
	assert.Equal(t, "typed", in.Value())

	s.BindToElement("c", "on", cb, BindOptions{Attribute: "checked"})
	assert.True(t, cb.Checked())

	s.BindToElement("c", "classes", box, BindOptions{Attribute: "class"})
	assert.Equal(t, []string{"active"}, box.Classes())

	s.BindToElement("c", "styles", box, BindOptions{Attribute: "style"})
	assert.Equal(t, "red", box.Style("background-color"))

	s.BindToElement("c", "tip", box, BindOptions{Attribute: "data-tip"})
	assert.Equal(t, "hello", box.GetAttribute("data-tip"))

	s.BindToElement("c", "href", box, BindOptions{Attribute: "attr-href"})
	assert.Equal(t, "/x", box.GetAttribute("href"))

	s.BindToElement("c", "hidden", box, BindOptions{Attribute: "hidden"})
	assert.True(t, box.HasAttribute("hidden"))

	s.SetState("c", map[string]any{"tip": nil, "href": nil, "on": false, "hidden": false})
	assert.False(t, box.HasAttribute("data-tip"))
	assert.False(t, box.HasAttribute("href"))
	assert.False(t, cb.Checked())
	assert.False(t, box.HasAttribute("hidden"))
}

func TestBindClassForms(t *testing.T) {
	s, _ := newTestStore()
	el := dom.NewDocument().CreateElement("div")
	el.SetClassName("old")

	s.SetState("c", map[string]any{"cls": []any{"a", "b"}})
	s.BindToElement("c", "cls", el, BindOptions{Attribute: "class"})
	assert.Equal(t, "a b", el.GetAttribute("class"))

	s.SetState("c", map[string]any{"cls": "plain"})
	assert.Equal(t, "plain", el.GetAttribute("class"))

	s.SetState("c", map[string]any{"cls": map[string]bool{"x": true}})
	assert.Equal(t, "plain x", el.GetAttribute("class"))
}

func TestBindStyleString(t *testing.T) {
	s, _ := newTestStore()
	el := dom.NewDocument().CreateElement("div")
	s.SetState("c", map[string]any{"css": "color: blue"})
	s.BindToElement("c", "css", el, BindOptions{Attribute: "style"})
	assert.Equal(t, "blue", el.Style("color"))
}

func TestBindFormatter(t *testing.T) {
	s, _ := newTestStore()
	el := dom.NewDocument().CreateElement("span")
	s.SetState("c", map[string]any{"n": 3})
	s.BindToElement("c", "n", el, BindOptions{Formatter: func(v any) (any, error) {
		return strings.Repeat("*", v.(int)), nil
	}})
	assert.Equal(t, "***", el.TextContent())
}

func TestBindFormatterFailureFallsBack(t *testing.T) {
	s, _ := newTestStore()
	el := dom.NewDocument().CreateElement("span")
	s.SetState("c", map[string]any{"n": 3})
	s.BindToElement("c", "n", el, BindOptions{Formatter: func(any) (any, error) {
		return nil, errors.New("bad")
	}})
	assert.Equal(t, "3", el.TextContent())
}

func TestTwoWayTextInput(t *testing.T) {
	doc := parseDoc(t, `<input id="q" type="text">`)
	s, _ := newTestStore()
	input := doc.GetElementByID("q")

	writes := 0
	s.BindToElement("c", "query", input, BindOptions{
		Attribute: "value",
		Event:     "input",
		TwoWay:    true,
		Formatter: func(v any) (any, error) {
			writes++
			return v, nil
		},
	})
	require.Equal(t, 1, writes, "initial sync")

	input.SetValue("abc")
	input.DispatchEvent(&dom.Event{Type: "input"})

	assert.Equal(t, "abc", s.GetState("c")["query"])
	assert.Equal(t, 1, writes, "own write-back is not echoed")

	s.SetState("c", map[string]any{"query": "from code"})
	assert.Equal(t, "from code", input.Value())
	assert.Equal(t, 2, writes)
}

func TestTwoWayNestedPathAndSiblingBinding(t *testing.T) {
	doc := parseDoc(t, `<input id="a"><span id="mirror"></span>`)
	s, _ := newTestStore()
	a := doc.GetElementByID("a")
	mirror := doc.GetElementByID("mirror")

	s.BindToElement("c", "form.name", a, BindOptions{Attribute: "value", Event: "change", TwoWay: true})
	s.BindToElement("c", "form.name", mirror, BindOptions{})

	a.SetValue("Zed")
	a.DispatchEvent(&dom.Event{Type: "change"})

	assert.Equal(t, map[string]any{"name": "Zed"}, s.GetState("c")["form"])
	assert.Equal(t, "Zed", mirror.TextContent(), "other bindings on the path still update")
}

func TestTwoWayCheckboxAndRadio(t *testing.T) {
	doc := parseDoc(t, `<input id="cb" type="checkbox"><input id="r" type="radio" value="blue">`)
	s, _ := newTestStore()
	cb := doc.GetElementByID("cb")
	r := doc.GetElementByID("r")

	s.BindToElement("c", "agree", cb, BindOptions{Attribute: "checked", Event: "change", TwoWay: true})
	s.BindToElement("c", "color", r, BindOptions{Attribute: "data-x", Event: "change", TwoWay: true})

	cb.SetChecked(true)
	cb.DispatchEvent(&dom.Event{Type: "change"})
	assert.Equal(t, true, s.GetState("c")["agree"])

	r.SetChecked(true)
	r.DispatchEvent(&dom.Event{Type: "change"})
	assert.Equal(t, "blue", s.GetState("c")["color"])

	r.SetChecked(false)
	r.DispatchEvent(&dom.Event{Type: "change"})
	assert.Nil(t, s.GetState("c")["color"])
}

func TestUnbind(t *testing.T) {
	doc := parseDoc(t, `<input id="q">`)
	s, _ := newTestStore()
	in := doc.GetElementByID("q")

	unbind := s.BindToElement("c", "q", in, BindOptions{Attribute: "value", Event: "input", TwoWay: true})
	unbind()

	s.SetState("c", map[string]any{"q": "x"})
	assert.Empty(t, in.Value())

	in.SetValue("typed")
	in.DispatchEvent(&dom.Event{Type: "input"})
	assert.Equal(t, "x", s.GetState("c")["q"], "listener removed")
}

func TestBindNilElement(t *testing.T) {
	s, _ := newTestStore()
	assert.NotPanics(t, func() { s.BindToElement("c", "x", nil, BindOptions{})() })
}
