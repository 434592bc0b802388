package state

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/componentry/internal/dom"
	"github.com/conneroisu/componentry/internal/lifecycle"
)

type triggered struct {
	id    string
	phase lifecycle.Phase
	data  any
}

type recordingEmitter struct {
	events []triggered
}

func (r *recordingEmitter) Trigger(id string, phase lifecycle.Phase, data any) {
	r.events = append(r.events, triggered{id: id, phase: phase, data: data})
}

func (r *recordingEmitter) phases() []lifecycle.Phase {
	var out []lifecycle.Phase
	for _, e := range r.events {
		out = append(out, e.phase)
	}
	return out
}

func newTestStore() (*Store, *recordingEmitter) {
	rec := &recordingEmitter{}
	return NewStore(WithEmitter(rec)), rec
}

func TestGetStateCreatesEmpty(t *testing.T) {
	s, _ := newTestStore()
	assert.False(t, s.Has("a"))
	assert.Empty(t, s.GetState("a"))
	assert.True(t, s.Has("a"))
	assert.Equal(t, []string{"a"}, s.IDs())
}

func TestSetStateMerges(t *testing.T) {
	s, rec := newTestStore()

	s.SetState("c", map[string]any{
		"user":  map[string]any{"name": "Ada", "age": 36},
		"tags":  []any{"a", "b"},
		"count": 1,
	})
	got := s.SetState("c", map[string]any{
		"user": map[string]any{"name": "Grace"},
		"tags": []any{"z"},
	})

	assert.Equal(t, map[string]any{
		"user":  map[string]any{"name": "Grace", "age": 36},
		"tags":  []any{"z"},
		"count": 1,
	}, got)

	require.Len(t, rec.events, 2)
	change := rec.events[1].data.(StateChange)
	assert.Equal(t, "Ada", change.PreviousState["user"].(map[string]any)["name"])
	assert.Equal(t, []Change{
		{Path: "tags.0", OldValue: "a", NewValue: "z", Kind: ChangeUpdate},
		{Path: "tags.1", OldValue: "b", Kind: ChangeDelete},
		{Path: "user.name", OldValue: "Ada", NewValue: "Grace", Kind: ChangeUpdate},
	}, change.Changes)
}

func TestSetStateDoesNotAliasInput(t *testing.T) {
	s, _ := newTestStore()
	in := map[string]any{"list": []any{1}}
	s.SetState("c", in)
	in["list"].([]any)[0] = 99
	assert.Equal(t, []any{1}, s.GetState("c")["list"])
}

func TestEmptySetStateIsNoop(t *testing.T) {
	s, rec := newTestStore()
	s.SetState("c", map[string]any{"a": 1})

	calls := 0
	s.Watch("c", Wildcard, func(any, any, Change) { calls++ })
	s.AddComputed("c", "double", func(st map[string]any) (any, error) {
		calls++
		return st["a"], nil
	})
	calls = 0
	before := len(rec.events)

	s.SetState("c", map[string]any{})
	s.SetState("c", map[string]any{"a": 1.0})

	assert.Zero(t, calls)
	assert.Len(t, rec.events, before)
}

func TestSetStateReplacesContainerKind(t *testing.T) {
	s, rec := newTestStore()
	s.SetState("c", map[string]any{"a": map[string]any{}})
	before := len(rec.events)

	got := s.SetState("c", map[string]any{"a": []any{}})

	assert.Equal(t, []any{}, got["a"])
	assert.Equal(t, []any{}, s.GetState("c")["a"])
	require.Len(t, rec.events, before+1)
	change := rec.events[before].data.(StateChange)
	require.Len(t, change.Changes, 1)
	assert.Equal(t, ChangeUpdate, change.Changes[0].Kind)
}

func TestSetStateStoresMergeWithoutChanges(t *testing.T) {
	s, rec := newTestStore()
	s.SetState("c", map[string]any{"n": 1})
	before := len(rec.events)

	s.SetState("c", map[string]any{"n": 1.0})

	assert.Equal(t, 1.0, s.GetState("c")["n"])
	assert.Len(t, rec.events, before)
}

func TestNaNStateIsStable(t *testing.T) {
	s, rec := newTestStore()
	s.SetState("c", map[string]any{"x": math.NaN(), "m": map[string]any{"y": math.NaN()}})

	calls := 0
	s.Watch("c", "x", func(any, any, Change) { calls++ })
	s.Watch("c", Wildcard, func(any, any, Change) { calls++ })
	before := len(rec.events)

	s.SetState("c", map[string]any{})
	s.SetState("c", map[string]any{"x": math.NaN()})

	assert.Zero(t, calls)
	assert.Len(t, rec.events, before)
}

func TestFanOutOrder(t *testing.T) {
	s, rec := newTestStore()
	el := dom.NewDocument().CreateElement("span")

	var order []string
	s.AddComputed("c", "upper", func(st map[string]any) (any, error) {
		order = append(order, "computed")
		return st["name"], nil
	}, "name")
	s.Watch("c", "name", func(any, any, Change) { order = append(order, "watcher") })
	s.BindToElement("c", "name", el, BindOptions{Formatter: func(v any) (any, error) {
		order = append(order, "binding")
		return v, nil
	}})
	order = nil
	rec.events = nil

	s.SetState("c", map[string]any{"name": "x"})
	assert.Equal(t, []string{"computed", "watcher", "binding"}, order)
	assert.Equal(t, []lifecycle.Phase{lifecycle.PhaseComputedChange, lifecycle.PhaseStateChange}, rec.phases())
}

func TestResetState(t *testing.T) {
	s, rec := newTestStore()
	el := dom.NewDocument().CreateElement("span")

	s.SetState("c", map[string]any{"a": 1})
	calls := 0
	s.Watch("c", "a", func(any, any, Change) { calls++ })
	s.AddComputed("c", "x", func(map[string]any) (any, error) { calls++; return 1, nil }, "a")
	s.BindToElement("c", "a", el, BindOptions{})
	calls = 0

	s.ResetState("c")
	assert.Empty(t, s.GetState("c"))
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, lifecycle.PhaseStateReset, last.phase)
	assert.Equal(t, []Change{{Path: "a", OldValue: 1, Kind: ChangeDelete}}, last.data.(StateReset).Changes)

	el.SetTextContent("untouched")
	s.SetState("c", map[string]any{"a": 2})
	assert.Zero(t, calls)
	assert.Equal(t, "untouched", el.TextContent())
	_, ok := s.GetComputed("c", "x")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	s, rec := newTestStore()
	s.SetState("c", map[string]any{"a": 1})
	rec.events = nil

	s.Delete("c")
	assert.False(t, s.Has("c"))
	assert.Empty(t, rec.events)
}

func TestComputedDependencies(t *testing.T) {
	s, rec := newTestStore()
	s.SetState("c", map[string]any{"user": map[string]any{"name": "A", "age": 1}})

	runs := 0
	s.AddComputed("c", "greeting", func(st map[string]any) (any, error) {
		runs++
		user := st["user"].(map[string]any)
		return "hi " + user["name"].(string), nil
	}, "user.name")
	require.Equal(t, 1, runs, "evaluated immediately")
	v, ok := s.GetComputed("c", "greeting")
	require.True(t, ok)
	assert.Equal(t, "hi A", v)

	s.SetState("c", map[string]any{"user": map[string]any{"name": "X"}})
	assert.Equal(t, 2, runs)
	v, _ = s.GetComputed("c", "greeting")
	assert.Equal(t, "hi X", v)

	s.SetState("c", map[string]any{"user": map[string]any{"age": 5}})
	assert.Equal(t, 2, runs, "unrelated change does not recompute")

	var computedEvents int
	for _, e := range rec.events {
		if e.phase == lifecycle.PhaseComputedChange {
			computedEvents++
		}
	}
	assert.Equal(t, 2, computedEvents)
}

func TestComputedParentDependency(t *testing.T) {
	s, _ := newTestStore()
	runs := 0
	s.AddComputed("c", "u", func(map[string]any) (any, error) { runs++; return runs, nil }, "user")
	s.SetState("c", map[string]any{"user": map[string]any{"name": "X"}})
	assert.Equal(t, 2, runs)
}

func TestComputedWildcardAndNoDeps(t *testing.T) {
	s, _ := newTestStore()
	wild, none := 0, 0
	s.AddComputed("c", "w", func(map[string]any) (any, error) { wild++; return nil, nil }, Wildcard)
	s.AddComputed("c", "n", func(map[string]any) (any, error) { none++; return nil, nil })

	s.SetState("c", map[string]any{"anything": true})
	assert.Equal(t, 2, wild)
	assert.Equal(t, 2, none)
}

func TestComputedSkipsEqualValues(t *testing.T) {
	s, rec := newTestStore()
	s.AddComputed("c", "const", func(map[string]any) (any, error) {
		return map[string]any{"k": []any{1}}, nil
	})
	rec.events = nil

	s.SetState("c", map[string]any{"x": 1})
	assert.Equal(t, []lifecycle.Phase{lifecycle.PhaseStateChange}, rec.phases())
}

func TestComputedRemove(t *testing.T) {
	s, _ := newTestStore()
	runs := 0
	remove := s.AddComputed("c", "n", func(map[string]any) (any, error) { runs++; return runs, nil })
	assert.Equal(t, []string{"n"}, s.ComputedNames("c"))
	remove()
	s.SetState("c", map[string]any{"x": 1})
	assert.Equal(t, 1, runs)
	assert.Empty(t, s.ComputedNames("c"))
}

func TestComputedFailureIsContained(t *testing.T) {
	s, _ := newTestStore()
	good := 0
	s.AddComputed("c", "err", func(map[string]any) (any, error) { return nil, errors.New("nope") })
	s.AddComputed("c", "panic", func(map[string]any) (any, error) { panic("bad") })
	s.AddComputed("c", "good", func(map[string]any) (any, error) { good++; return good, nil })

	assert.NotPanics(t, func() { s.SetState("c", map[string]any{"x": 1}) })
	assert.Equal(t, 2, good)
	_, ok := s.GetComputed("c", "err")
	assert.True(t, ok)
}

func TestWatchExactAndAncestor(t *testing.T) {
	s, _ := newTestStore()
	s.SetState("c", map[string]any{"user": map[string]any{"name": "A", "age": 1}})

	var leaf []any
	s.Watch("c", "user.name", func(newValue, oldValue any, ch Change) {
		leaf = append(leaf, oldValue, newValue)
		assert.Nil(t, ch.Nested)
	})

	var parentNew, parentOld any
	var parentChange Change
	s.Watch("c", "user", func(newValue, oldValue any, ch Change) {
		parentNew, parentOld, parentChange = newValue, oldValue, ch
	})

	s.SetState("c", map[string]any{"user": map[string]any{"name": "X"}})

	assert.Equal(t, []any{"A", "X"}, leaf)
	assert.Equal(t, map[string]any{"name": "X", "age": 1}, parentNew)
	assert.Equal(t, map[string]any{"name": "A", "age": 1}, parentOld)
	assert.Equal(t, "user", parentChange.Path)
	assert.Equal(t, ChangeUpdate, parentChange.Kind)
	require.NotNil(t, parentChange.Nested)
	assert.Equal(t, "user.name", parentChange.Nested.Path)
}

func TestWatchWildcard(t *testing.T) {
	s, _ := newTestStore()
	var paths []string
	s.Watch("c", Wildcard, func(newValue, oldValue any, ch Change) {
		paths = append(paths, ch.Path)
		assert.Equal(t, 2, newValue.(map[string]any)["b"])
		assert.Empty(t, oldValue)
	})
	s.SetState("c", map[string]any{"a": 1, "b": 2})
	assert.Equal(t, []string{"a", "b"}, paths)
}

func TestUnwatch(t *testing.T) {
	s, _ := newTestStore()
	calls := 0
	unwatch := s.Watch("c", "a", func(any, any, Change) { calls++ })
	s.SetState("c", map[string]any{"a": 1})
	unwatch()
	unwatch()
	s.SetState("c", map[string]any{"a": 2})
	assert.Equal(t, 1, calls)
}

func TestWatcherFailureIsContained(t *testing.T) {
	s, _ := newTestStore()
	second := false
	s.Watch("c", "a", func(any, any, Change) { panic("first") })
	s.Watch("c", "a", func(any, any, Change) { second = true })
	assert.NotPanics(t, func() { s.SetState("c", map[string]any{"a": 1}) })
	assert.True(t, second)
}

func TestReentrantSetState(t *testing.T) {
	s, _ := newTestStore()
	s.Watch("c", "celsius", func(newValue, _ any, _ Change) {
		s.SetState("c", map[string]any{"fahrenheit": newValue.(float64)*9/5 + 32})
	})
	var seen any
	s.Watch("c", "fahrenheit", func(newValue, _ any, _ Change) { seen = newValue })

	s.SetState("c", map[string]any{"celsius": 100.0})
	assert.Equal(t, 212.0, seen)
	assert.Equal(t, 212.0, s.GetState("c")["fahrenheit"])
	assert.Equal(t, 100.0, s.GetState("c")["celsius"])
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s, _ := newTestStore()
	s.SetState("c", map[string]any{"m": map[string]any{"k": 1}})
	snap := s.Snapshot()
	snap["c"]["m"].(map[string]any)["k"] = 2
	assert.Equal(t, 1, s.GetState("c")["m"].(map[string]any)["k"])
}
