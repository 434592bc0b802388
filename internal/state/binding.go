package state

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/conneroisu/componentry/internal/dom"
	"github.com/conneroisu/componentry/internal/values"
)

// Formatter transforms a state value before it is written to the DOM.
type Formatter func(value any) (any, error)

// BindOptions configures a binding.
type BindOptions struct {
	// Attribute selects the write target: textContent (default), innerHTML,
	// value, checked, class, style, data-*, attr-<name> or any property name.
	Attribute string
	Formatter Formatter
	// Event is the DOM event read back by two-way bindings.
	Event  string
	TwoWay bool
}

type binding struct {
	path    string
	element *dom.Element
	opts    BindOptions

	// writing counts in-flight write-backs of this binding; while positive
	// the binding does not rewrite its own element.
	writing        int
	removeListener func()
}

func (b *binding) detach() {
	if b.removeListener != nil {
		b.removeListener()
		b.removeListener = nil
	}
}

// BindToElement keeps element in sync with path. The element is written
// once immediately and again on every change at, above or below path. With
// TwoWay and Event set, the element's value is written back through
// SetState when the event fires. The returned function removes the binding.
func (s *Store) BindToElement(id, path string, element *dom.Element, opts BindOptions) func() {
	if element == nil {
		return func() {}
	}
	if opts.Attribute == "" {
		opts.Attribute = "textContent"
	}

	byPath, ok := s.bindings[id]
	if !ok {
		byPath = make(map[string][]*binding)
		s.bindings[id] = byPath
	}
	b := &binding{path: path, element: element, opts: opts}
	byPath[path] = append(byPath[path], b)

	if opts.TwoWay && opts.Event != "" {
		b.removeListener = element.AddEventListener(opts.Event, func(*dom.Event) {
			update := nestedUpdate(path, readBack(element, opts.Attribute))
			b.writing++
			defer func() { b.writing-- }()
			s.SetState(id, update)
		})
	}

	s.refresh(id, b)

	return func() {
		b.detach()
		byPath, ok := s.bindings[id]
		if !ok {
			return
		}
		list := byPath[path]
		for i, x := range list {
			if x == b {
				byPath[path] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// readBack reads the bound value from element after a DOM event.
func readBack(el *dom.Element, attribute string) any {
	if el.IsFormControl() {
		switch el.InputType() {
		case "checkbox":
			return el.Checked()
		case "radio":
			if el.Checked() {
				return el.Value()
			}
			return nil
		}
		return el.Value()
	}
	return el.Property(attribute)
}

// nestedUpdate builds {"a": {"b": v}} for path "a.b".
func nestedUpdate(path string, v any) map[string]any {
	parts := strings.Split(path, ".")
	update := map[string]any{}
	cur := update
	for _, p := range parts[:len(parts)-1] {
		next := map[string]any{}
		cur[p] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = v
	return update
}

// updateBindings refreshes every binding whose path equals, encloses or lies
// under a changed path. Each binding is refreshed at most once per call.
func (s *Store) updateBindings(id string, changes []Change) {
	byPath := s.bindings[id]
	if len(byPath) == 0 {
		return
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	seen := make(map[*binding]bool)
	var due []*binding
	for _, c := range changes {
		for _, p := range paths {
			if p != c.Path && !strings.HasPrefix(c.Path, p+".") && !strings.HasPrefix(p, c.Path+".") {
				continue
			}
			for _, b := range byPath[p] {
				if !seen[b] {
					seen[b] = true
					due = append(due, b)
				}
			}
		}
	}
	for _, b := range due {
		s.refresh(id, b)
	}
}

// refresh writes the current value of the binding's path to its element.
func (s *Store) refresh(id string, b *binding) {
	if b.writing > 0 {
		return
	}
	value, _ := values.Lookup(s.GetState(id), b.path)

	if b.opts.Formatter != nil {
		formatted, err := s.format(b.opts.Formatter, value)
		if err != nil {
			s.logger.Error(context.Background(), err, "binding formatter failed",
				"component", id, "path", b.path)
		} else {
			value = formatted
		}
	}

	s.guard(id, "binding", b.path, func() {
		if err := apply(b.element, b.opts.Attribute, value); err != nil {
			s.logger.Error(context.Background(), err, "binding update failed",
				"component", id, "path", b.path, "attribute", b.opts.Attribute)
		}
	})
}

func (s *Store) format(f Formatter, v any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f(v)
}

// apply writes v to el according to the attribute dispatch table.
func apply(el *dom.Element, attribute string, v any) error {
	switch {
	case attribute == "textContent":
		el.SetTextContent(values.Stringify(v))
	case attribute == "innerHTML":
		return el.SetInnerHTML(values.Stringify(v))
	case attribute == "value":
		el.SetValue(values.Stringify(v))
	case attribute == "checked":
		el.SetChecked(values.Truthy(v))
	case attribute == "class":
		applyClass(el, v)
	case attribute == "style":
		applyStyle(el, v)
	case strings.HasPrefix(attribute, "data-"):
		setOrRemove(el, attribute, v)
	case strings.HasPrefix(attribute, "attr-"):
		setOrRemove(el, strings.TrimPrefix(attribute, "attr-"), v)
	default:
		return el.SetProperty(attribute, v)
	}
	return nil
}

// applyClass accepts a class string, a list of class names or a map of
// class name to condition.
func applyClass(el *dom.Element, v any) {
	switch x := DeepClone(v).(type) {
	case map[string]any:
		for _, name := range sortedKeys(x) {
			if values.Truthy(x[name]) {
				el.AddClass(name)
			} else {
				el.RemoveClass(name)
			}
		}
	case []any:
		el.SetClassName("")
		for _, name := range x {
			el.AddClass(values.Stringify(name))
		}
	default:
		el.SetClassName(values.Stringify(v))
	}
}

// applyStyle accepts a style string or a map of property to value. Nil or
// empty values remove the property.
func applyStyle(el *dom.Element, v any) {
	if m, ok := DeepClone(v).(map[string]any); ok {
		for _, prop := range sortedKeys(m) {
			el.SetStyle(prop, values.Stringify(m[prop]))
		}
		return
	}
	el.SetStyleText(values.Stringify(v))
}

func setOrRemove(el *dom.Element, name string, v any) {
	if v == nil {
		el.RemoveAttribute(name)
		return
	}
	el.SetAttribute(name, values.Stringify(v))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
