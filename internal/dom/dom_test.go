package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html><head><title>t</title></head>
<body>
  <div id="app" class="shell main">
    <section data-component="card" data-param-title="Hi">
      <p class="lead">Hello</p>
    </section>
    <input id="name" type="text" value="Ada">
    <input id="agree" type="checkbox">
    <textarea id="bio">about</textarea>
    <select id="color"><option value="r">Red</option><option value="g" selected>Green</option></select>
  </div>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(page)
	require.NoError(t, err)
	return doc
}

func TestLookups(t *testing.T) {
	doc := mustParse(t)

	app := doc.GetElementByID("app")
	require.NotNil(t, app)
	assert.Equal(t, "div", app.TagName())
	assert.Same(t, app, doc.GetElementByID("app"), "wrappers are canonical")
	assert.Nil(t, doc.GetElementByID("missing"))
	assert.Nil(t, doc.GetElementByID(""))

	assert.NotNil(t, doc.Head())
	assert.NotNil(t, doc.Body())
	assert.Equal(t, "html", doc.DocumentElement().TagName())

	comps := doc.ElementsWithAttribute("data-component")
	require.Len(t, comps, 1)
	assert.Equal(t, "card", comps[0].GetAttribute("data-component"))
}

func TestSelectors(t *testing.T) {
	doc := mustParse(t)

	tests := []struct {
		sel  string
		want int
	}{
		{"p", 1},
		{".lead", 1},
		{"div.shell.main", 1},
		{"#app p.lead", 1},
		{"section p", 1},
		{"[data-component]", 1},
		{"[data-component=card]", 1},
		{`[data-component="other"]`, 0},
		{"input, textarea", 3},
		{"body *", 9},
		{"span", 0},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			assert.Len(t, doc.QuerySelectorAll(tt.sel), tt.want)
		})
	}

	_, err := ParseSelector("")
	assert.Error(t, err)
	_, err = ParseSelector("[unterminated")
	assert.Error(t, err)
	assert.Nil(t, doc.QuerySelector("a >"), "invalid selectors match nothing")

	lead := doc.QuerySelector(".lead")
	assert.True(t, lead.Matches("section .lead"))
	assert.False(t, lead.Matches("#other .lead"))
}

func TestTreeMutation(t *testing.T) {
	doc := mustParse(t)
	app := doc.GetElementByID("app")

	span := doc.CreateElement("SPAN")
	assert.Equal(t, "span", span.TagName())
	assert.False(t, span.IsConnected())

	app.AppendChild(span)
	assert.True(t, span.IsConnected())
	assert.Same(t, app, span.Parent())
	assert.True(t, app.Contains(span))

	first := doc.CreateElement("header")
	app.Prepend(first)
	assert.Same(t, first, app.FirstElementChild())

	span.Remove()
	assert.False(t, span.IsConnected())
	assert.Nil(t, span.Parent())
	span.Remove()
}

func TestContent(t *testing.T) {
	doc := mustParse(t)
	lead := doc.QuerySelector(".lead")

	assert.Equal(t, "Hello", lead.TextContent())
	lead.SetTextContent("<b>x</b>")
	assert.Equal(t, "&lt;b&gt;x&lt;/b&gt;", lead.InnerHTML())

	require.NoError(t, lead.SetInnerHTML(`<b class="k">bold</b> tail`))
	assert.Equal(t, "bold tail", lead.TextContent())
	assert.NotNil(t, lead.QuerySelector("b.k"))
	assert.Equal(t, `<p class="lead"><b class="k">bold</b> tail</p>`, lead.OuterHTML())

	lead.SetTextContent("")
	assert.Empty(t, lead.InnerHTML())
}

func TestFormControls(t *testing.T) {
	doc := mustParse(t)

	name := doc.GetElementByID("name")
	assert.True(t, name.IsFormControl())
	assert.Equal(t, "text", name.InputType())
	assert.Equal(t, "Ada", name.Value())
	name.SetValue("Grace")
	assert.Equal(t, "Grace", name.Value())
	assert.Equal(t, "Grace", name.GetAttribute("value"))

	agree := doc.GetElementByID("agree")
	assert.Equal(t, "on", agree.Value())
	assert.False(t, agree.Checked())
	agree.SetChecked(true)
	assert.True(t, agree.Checked())
	assert.Equal(t, true, agree.Property("checked"))

	bio := doc.GetElementByID("bio")
	assert.Equal(t, "about", bio.Value())
	bio.SetValue("more")
	assert.Equal(t, "more", bio.Value())

	color := doc.GetElementByID("color")
	assert.Equal(t, "g", color.Value())
	color.SetValue("r")
	assert.Equal(t, "r", color.Value())
}

func TestProperties(t *testing.T) {
	doc := mustParse(t)
	lead := doc.QuerySelector(".lead")

	require.NoError(t, lead.SetProperty("textContent", 42))
	assert.Equal(t, "42", lead.Property("textContent"))

	require.NoError(t, lead.SetProperty("className", "lead big"))
	assert.True(t, lead.HasClass("big"))

	require.NoError(t, lead.SetProperty("hidden", 0))
	assert.False(t, lead.HasAttribute("hidden"))
	require.NoError(t, lead.SetProperty("hidden", "yes"))
	assert.True(t, lead.HasAttribute("hidden"))

	require.NoError(t, lead.SetProperty("customThing", []int{1}))
	assert.Equal(t, []int{1}, lead.Property("customThing"))
	assert.Nil(t, lead.Property("unknown"))
}

func TestClassesAndStyle(t *testing.T) {
	doc := NewDocument()
	el := doc.CreateElement("div")

	el.AddClass("a")
	el.AddClass("b")
	el.AddClass("a")
	assert.Equal(t, []string{"a", "b"}, el.Classes())
	el.RemoveClass("a")
	assert.Equal(t, "b", el.GetAttribute("class"))
	el.SetClassName("x y")
	assert.True(t, el.HasClass("y"))

	assert.Equal(t, "background-color", CSSPropertyName("backgroundColor"))
	assert.Equal(t, "--brand", CSSPropertyName("--brand"))

	el.SetStyle("color", "red")
	el.SetStyle("fontSize", "12px")
	assert.Equal(t, "color: red; font-size: 12px;", el.GetAttribute("style"))
	assert.Equal(t, "12px", el.Style("font-size"))
	el.SetStyle("color", "blue")
	assert.Equal(t, "blue", el.Style("color"))
	el.SetStyle("color", "")
	el.SetStyle("fontSize", "")
	assert.False(t, el.HasAttribute("style"))

	el.SetStyleText("  margin: 0 ")
	assert.Equal(t, "0", el.Style("margin"))
}

func TestEventsBubble(t *testing.T) {
	doc := mustParse(t)
	lead := doc.QuerySelector(".lead")
	app := doc.GetElementByID("app")

	var order []string
	lead.AddEventListener("ping", func(ev *Event) {
		order = append(order, "lead")
		assert.Same(t, lead, ev.Target)
	})
	app.AddEventListener("ping", func(ev *Event) {
		order = append(order, "app")
		assert.Same(t, app, ev.CurrentTarget)
	})
	doc.AddEventListener("ping", func(ev *Event) {
		order = append(order, "document")
		assert.Equal(t, "payload", ev.Detail)
	})

	lead.DispatchEvent(NewCustomEvent("ping", "payload"))
	assert.Equal(t, []string{"lead", "app", "document"}, order)
}

func TestEventsStopAndRemove(t *testing.T) {
	doc := mustParse(t)
	lead := doc.QuerySelector(".lead")
	app := doc.GetElementByID("app")

	calls := 0
	off := app.AddEventListener("ping", func(*Event) { calls++ })
	stop := lead.AddEventListener("ping", func(ev *Event) { ev.StopPropagation() })

	lead.DispatchEvent(NewCustomEvent("ping", nil))
	assert.Equal(t, 0, calls)

	stop()
	lead.DispatchEvent(NewCustomEvent("ping", nil))
	assert.Equal(t, 1, calls)

	off()
	lead.DispatchEvent(NewCustomEvent("ping", nil))
	assert.Equal(t, 1, calls)

	lead.DispatchEvent(&Event{Type: "ping"})
	assert.Equal(t, 1, calls)
}

func TestListenerPanicRecovered(t *testing.T) {
	doc := mustParse(t)
	var recovered any
	doc.OnListenerPanic = func(_ string, r any) { recovered = r }

	after := false
	doc.AddEventListener("boom", func(*Event) { panic("bad") })
	doc.AddEventListener("boom", func(*Event) { after = true })
	doc.DispatchEvent(&Event{Type: "boom"})

	assert.Equal(t, "bad", recovered)
	assert.True(t, after)
}

func TestMutationObserver(t *testing.T) {
	doc := mustParse(t)
	app := doc.GetElementByID("app")

	// Without observers nothing is queued.
	app.AppendChild(doc.CreateElement("i"))
	assert.Zero(t, doc.PendingMutations())

	var added []string
	disconnect := doc.Observe(func(records []MutationRecord) {
		for _, r := range records {
			for _, el := range r.Added {
				added = append(added, el.TagName())
				if el.TagName() == "em" {
					// Mutations made while observing are delivered next round.
					app.AppendChild(doc.CreateElement("strong"))
				}
			}
		}
	})

	app.AppendChild(doc.CreateElement("em"))
	assert.Equal(t, 1, doc.PendingMutations())
	assert.Empty(t, added, "delivery waits for a flush")

	doc.FlushMutations()
	assert.Equal(t, []string{"em", "strong"}, added)
	assert.Zero(t, doc.PendingMutations())

	disconnect()
	app.AppendChild(doc.CreateElement("u"))
	doc.FlushMutations()
	assert.Equal(t, []string{"em", "strong"}, added)
}

func TestUniqueID(t *testing.T) {
	doc, err := ParseString(`<div id="component-1"></div>`)
	require.NoError(t, err)

	id := doc.UniqueID("component")
	assert.Equal(t, "component-2", id)
	assert.NotEqual(t, id, doc.UniqueID("component"))
}
