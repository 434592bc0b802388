package runtime

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/conneroisu/componentry/internal/dom"
	"github.com/conneroisu/componentry/internal/errors"
	"github.com/conneroisu/componentry/internal/values"
)

// Marker is a declarative component placeholder found in the document.
type Marker struct {
	ID      string         `json:"id"`
	Path    string         `json:"path"`
	Params  map[string]any `json:"params,omitempty"`
	Nested  bool           `json:"nested,omitempty"`
	Element *dom.Element   `json:"-"`
}

// ParseParamValue decodes a marker parameter. Values that look like JSON
// arrays or objects are decoded after &quot; unescaping; anything else,
// including JSON that fails to decode, stays a string.
func ParseParamValue(raw string) any {
	if !strings.HasPrefix(raw, "[") && !strings.HasPrefix(raw, "{") {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(strings.ReplaceAll(raw, "&quot;", `"`)), &v); err != nil {
		return raw
	}
	return v
}

// encodeParamValue is the inverse used when writing parameter attributes:
// objects and arrays become JSON, scalars their string form.
func encodeParamValue(v any) string {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return values.Stringify(v)
}

// Params extracts the prefixed parameter attributes of el.
func (r *Runtime) Params(el *dom.Element) map[string]any {
	params := make(map[string]any)
	for _, a := range el.Attributes() {
		name, ok := strings.CutPrefix(a.Key, r.markers.ParamPrefix)
		if !ok || name == "" {
			continue
		}
		params[name] = ParseParamValue(a.Val)
	}
	return params
}

// marker reads the marker attribute attr of el. Elements without an id are
// reported and skipped.
func (r *Runtime) marker(ctx context.Context, el *dom.Element, attr string) (Marker, bool) {
	path := el.GetAttribute(attr)
	id := el.ID()
	if id == "" {
		r.logger.Error(ctx, errors.ErrMissingID(path), "component marker skipped",
			"attribute", attr)
		return Marker{}, false
	}
	return Marker{
		ID:      id,
		Path:    path,
		Params:  r.Params(el),
		Nested:  attr == r.markers.Nested,
		Element: el,
	}, true
}

// Discover lists the markers under root, or the whole document when root
// is nil, in document order.
func (r *Runtime) Discover(ctx context.Context, root *dom.Element) []Marker {
	var out []Marker
	for _, attr := range []string{r.markers.Component, r.markers.Nested} {
		for _, el := range r.scope(root, attr) {
			if m, ok := r.marker(ctx, el, attr); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

func (r *Runtime) scope(root *dom.Element, attr string) []*dom.Element {
	sel := "[" + attr + "]"
	if root == nil {
		return r.doc.QuerySelectorAll(sel)
	}
	return root.QuerySelectorAll(sel)
}

// depth counts the component hosts enclosing el.
func (r *Runtime) depth(el *dom.Element) int {
	n := 0
	for p := el.Parent(); p != nil; p = p.Parent() {
		if p.HasAttribute(r.markers.Component) || p.HasAttribute(r.markers.Nested) {
			n++
		}
	}
	return n
}

// tooDeep reports and rejects markers nested beyond the configured depth.
func (r *Runtime) tooDeep(ctx context.Context, m Marker) bool {
	if r.maxDepth <= 0 || r.depth(m.Element) < r.maxDepth {
		return false
	}
	err := errors.NewValidationError(errors.ErrCodeNestingTooDeep, "component nesting too deep").
		WithComponent(m.ID).WithPath(m.Path)
	r.logger.Error(ctx, err, "component marker skipped", "max_depth", r.maxDepth)
	return true
}

// loadable validates a marker found during discovery: it must be connected,
// own its id and sit within the nesting bound.
func (r *Runtime) loadable(ctx context.Context, el *dom.Element, attr string) (Marker, bool) {
	if !el.IsConnected() {
		return Marker{}, false
	}
	m, ok := r.marker(ctx, el, attr)
	if !ok {
		return Marker{}, false
	}
	if r.doc.GetElementByID(m.ID) != el {
		r.logger.Error(ctx, errors.NewValidationError(errors.ErrCodeMissingID, "duplicate component id").
			WithComponent(m.ID).WithPath(m.Path), "component marker skipped")
		return Marker{}, false
	}
	if r.tooDeep(ctx, m) {
		return Marker{}, false
	}
	return m, true
}
